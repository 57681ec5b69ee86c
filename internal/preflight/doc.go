// Package preflight validates the host before the server starts
// serving. The state directory must exist and be writable with at
// least 100 MB of disk to spare, at least 1 GB of memory must be
// free, the effective configuration and the detection ruleset must
// load, and the file descriptor limit must accommodate source scans.
// GPU availability and project identity are reported informationally;
// neither blocks startup.
//
// A passing run is recorded in a marker file so later startups can
// skip the sweep until the binary version changes; see NeedsCheck.
//
//	checker := preflight.New(preflight.WithProber(prober))
//	if checker.HasCriticalFailures(checker.RunAll(ctx)) {
//	    // refuse to start
//	}
package preflight
