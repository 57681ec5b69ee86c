// Package watcher observes a project tree and feeds watch mode with
// debounced change batches.
//
// Watching is hybrid: fsnotify when the platform supports it, with a
// polling fallback for environments where inotify is unavailable or
// exhausted (network mounts, some containers). Either way consumers see
// the same batched API.
//
// Bursts of events from editors and git operations are coalesced per
// path within a debounce window, and paths are filtered against the
// project's .gitignore files plus any extra patterns. Changes to
// .gitignore or .runready.yaml surface as dedicated operations so the
// consumer can rescan or reload config instead of treating them as
// ordinary edits.
//
// Usage:
//
//	w, err := watcher.NewHybridWatcher(watcher.DefaultOptions())
//	if err != nil {
//	    return err
//	}
//	defer w.Stop()
//
//	go func() { _ = w.Start(ctx, projectPath) }()
//
//	for batch := range w.Events() {
//	    for _, event := range batch {
//	        switch event.Operation {
//	        case watcher.OpConfigChange:
//	            // Reload configuration
//	        case watcher.OpGitignoreChange:
//	            // Rescan with fresh ignore rules
//	        default:
//	            // Queue a readiness rescan
//	        }
//	    }
//	}
package watcher
