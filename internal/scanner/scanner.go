package scanner

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/runready/runready/internal/gitignore"
)

// gitignoreCacheSize bounds the matcher cache so long-running watch
// sessions cannot grow it without limit.
const gitignoreCacheSize = 1000

// defaultBufferSize is the result channel capacity when unset.
const defaultBufferSize = 64

// Scanner streams the files of a project directory.
//
// Scans run on a single goroutine in filepath.WalkDir's lexical order,
// so the same tree always yields the same file sequence. The detector
// relies on that ordering for reproducible findings.
type Scanner struct {
	// gitignoreCache holds parsed matchers keyed by directory. The LRU
	// cache is safe for concurrent use, no extra locking needed.
	gitignoreCache *lru.Cache[string, *gitignore.Matcher]
}

// New creates a new Scanner instance.
func New() (*Scanner, error) {
	cache, err := lru.New[string, *gitignore.Matcher](gitignoreCacheSize)
	if err != nil {
		return nil, fmt.Errorf("create gitignore cache: %w", err)
	}
	return &Scanner{gitignoreCache: cache}, nil
}

// Scan walks the project directory and streams every file that passes
// the configured filters. The channel is closed when scanning is
// complete. With default options every regular file is streamed.
func (s *Scanner) Scan(ctx context.Context, opts *ScanOptions) (<-chan ScanResult, error) {
	if opts == nil {
		opts = &ScanOptions{}
	}

	root, err := resolveRoot(opts.RootDir)
	if err != nil {
		return nil, err
	}

	bufSize := opts.BufferSize
	if bufSize <= 0 {
		bufSize = defaultBufferSize
	}

	results := make(chan ScanResult, bufSize)
	go s.stream(ctx, root, opts, results)
	return results, nil
}

// resolveRoot turns the configured root into an absolute directory
// path, defaulting to the working directory.
func resolveRoot(rootDir string) (string, error) {
	if rootDir == "" {
		rootDir = "."
	}
	abs, err := filepath.Abs(rootDir)
	if err != nil {
		return "", fmt.Errorf("resolve scan root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("stat scan root: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("scan root is not a directory: %s", abs)
	}
	return abs, nil
}

// stream owns the results channel: it closes the channel when the walk
// finishes and converts a walk failure into a final error result.
// Cancellation is not an error, the channel just closes early.
func (s *Scanner) stream(ctx context.Context, root string, opts *ScanOptions, out chan<- ScanResult) {
	defer close(out)

	w := &treeWalk{scanner: s, root: root, opts: opts, maxSize: opts.MaxFileSize, out: out}
	if w.maxSize <= 0 {
		w.maxSize = DefaultMaxFileSize
	}

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		return w.visit(ctx, path, d, walkErr)
	})
	if err != nil && err != context.Canceled {
		select {
		case out <- ScanResult{Error: err}:
		case <-ctx.Done():
		}
	}
}

// treeWalk carries the per-scan state through the WalkDir callback.
type treeWalk struct {
	scanner *Scanner
	root    string
	opts    *ScanOptions
	maxSize int64
	out     chan<- ScanResult
}

func (w *treeWalk) visit(ctx context.Context, path string, d fs.DirEntry, walkErr error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if walkErr != nil {
		return nil // unreadable entries are skipped, not fatal
	}

	relPath, err := filepath.Rel(w.root, path)
	if err != nil || relPath == "." {
		return nil
	}

	if d.IsDir() {
		if dirExcluded(relPath, w.opts.ExcludePatterns) {
			return filepath.SkipDir
		}
		return nil
	}

	if d.Type()&fs.ModeSymlink != 0 && !w.opts.FollowSymlinks {
		return nil
	}
	if w.scanner.fileExcluded(relPath, w.root, w.opts) {
		return nil
	}

	info, err := d.Info()
	if err != nil || info.Size() > w.maxSize {
		return nil
	}

	return w.send(ctx, &FileInfo{
		Path:    relPath,
		AbsPath: path,
		Size:    info.Size(),
		ModTime: info.ModTime(),
	})
}

func (w *treeWalk) send(ctx context.Context, fi *FileInfo) error {
	select {
	case w.out <- ScanResult{File: fi}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// dirExcluded reports whether a directory should be pruned from the
// walk. Only user-configured patterns apply; there are no built-in
// exclusions.
func dirExcluded(relPath string, patterns []string) bool {
	for _, p := range patterns {
		if matchDirPattern(relPath, p) {
			return true
		}
	}
	return false
}

// fileExcluded applies the configured patterns and, when enabled, the
// project's gitignore rules.
func (s *Scanner) fileExcluded(relPath, root string, opts *ScanOptions) bool {
	base := filepath.Base(relPath)
	for _, p := range opts.ExcludePatterns {
		if matchFilePattern(base, relPath, p) {
			return true
		}
	}
	return opts.RespectGitignore && s.isGitignored(relPath, root)
}

func pathParts(relPath string) []string {
	return strings.Split(relPath, string(filepath.Separator))
}

func underDir(relPath, dir string) bool {
	return relPath == dir || strings.HasPrefix(relPath, dir+string(filepath.Separator))
}

// matchDirPattern checks if a directory path matches a pattern.
func matchDirPattern(relPath, pattern string) bool {
	switch {
	case strings.HasPrefix(pattern, "**/"):
		// **/name/** matches the named directory at any depth
		name := strings.TrimSuffix(strings.TrimPrefix(pattern, "**/"), "/**")
		return slices.Contains(pathParts(relPath), name)
	case strings.HasSuffix(pattern, "/**"):
		return underDir(relPath, strings.TrimSuffix(pattern, "/**"))
	default:
		// A bare name covers the directory and everything below it
		return underDir(relPath, pattern)
	}
}

// matchFilePattern checks if a file matches a pattern.
func matchFilePattern(baseName, relPath, pattern string) bool {
	sep := string(filepath.Separator)

	switch {
	case strings.HasPrefix(pattern, "**/"):
		rest := strings.TrimPrefix(pattern, "**/")
		if name, ok := strings.CutSuffix(rest, "/**"); ok {
			// **/name/**: some parent directory is the named one
			return slices.Contains(pathParts(filepath.Dir(relPath)), name)
		}
		if strings.HasPrefix(rest, "*.") {
			// **/*.ckpt: extension match anywhere in the tree
			return strings.HasSuffix(baseName, rest[1:])
		}
		return slices.Contains(pathParts(relPath), rest)

	case strings.HasSuffix(pattern, "/**"):
		return strings.HasPrefix(relPath, strings.TrimSuffix(pattern, "/**")+sep)

	case strings.Contains(pattern, sep) && strings.Contains(pattern, "*"):
		// dir/name*.ext: the directory part is exact, the file part a glob
		if filepath.Dir(relPath) != filepath.Dir(pattern) {
			return false
		}
		ok, err := filepath.Match(filepath.Base(pattern), baseName)
		return err == nil && ok

	case len(pattern) > 1 && strings.HasPrefix(pattern, "*") && strings.HasSuffix(pattern, "*"):
		mid := pattern[1 : len(pattern)-1]
		return strings.Contains(strings.ToLower(baseName), strings.ToLower(mid))

	case strings.HasPrefix(pattern, "*"):
		return strings.HasSuffix(baseName, pattern[1:])

	case strings.HasSuffix(pattern, "*"):
		return strings.HasPrefix(baseName, pattern[:len(pattern)-1])

	default:
		return baseName == pattern
	}
}

// isGitignored checks the file against every .gitignore between the
// project root and the file's own directory. Matchers are consulted
// from the root down, so a nested .gitignore only sees paths inside its
// own subtree.
func (s *Scanner) isGitignored(relPath, root string) bool {
	bases := []string{""}
	if dir := filepath.Dir(relPath); dir != "." {
		parts := pathParts(dir)
		for i := range parts {
			bases = append(bases, filepath.Join(parts[:i+1]...))
		}
	}

	for _, base := range bases {
		m := s.matcherFor(filepath.Join(root, base), base)
		if m != nil && m.Match(relPath, false) {
			return true
		}
	}
	return false
}

// matcherFor returns the cached matcher for a directory, parsing its
// .gitignore on first use. Directories without one yield nil.
func (s *Scanner) matcherFor(dir, base string) *gitignore.Matcher {
	if m, ok := s.gitignoreCache.Get(dir); ok {
		return m
	}

	path := filepath.Join(dir, ".gitignore")
	if _, err := os.Stat(path); err != nil {
		return nil
	}

	m := gitignore.New()
	if err := m.AddFromFile(path, base); err != nil {
		return nil
	}
	s.gitignoreCache.Add(dir, m)
	return m
}

// InvalidateGitignoreCache clears the gitignore matcher cache.
// Watch mode calls this when a .gitignore file changes so the next scan
// picks up fresh patterns.
func (s *Scanner) InvalidateGitignoreCache() {
	s.gitignoreCache.Purge()
}
