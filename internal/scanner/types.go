// Package scanner walks a project directory and streams the files found
// there. The heavy-usage detector consumes the stream to look for GPU
// and ML workload signals.
//
// By default nothing is excluded: vendored trees, virtualenvs, and
// generated code are all visited, because heavy imports hide in those
// too. Exclusion patterns and .gitignore support are strictly opt-in
// via configuration.
package scanner

import "time"

// FileInfo describes one streamed file.
type FileInfo struct {
	Path    string    // relative to the scan root
	AbsPath string    // absolute
	Size    int64     // bytes
	ModTime time.Time
}

// ScanOptions configures a single scan.
type ScanOptions struct {
	// RootDir is the project root to walk. Empty means the working
	// directory.
	RootDir string

	// ExcludePatterns prunes matching files and directories. Empty
	// excludes nothing.
	ExcludePatterns []string

	// RespectGitignore additionally applies the project's .gitignore
	// rules.
	RespectGitignore bool

	// MaxFileSize drops files larger than this many bytes. Zero means
	// DefaultMaxFileSize.
	MaxFileSize int64

	// FollowSymlinks streams symlinked files too. Off by default.
	FollowSymlinks bool

	// BufferSize is the result channel capacity (0 = 64).
	BufferSize int
}

// ScanResult carries one streamed file, or the error that ended the
// walk.
type ScanResult struct {
	File  *FileInfo
	Error error
}

// DefaultMaxFileSize caps streamed files at 10MB unless overridden.
const DefaultMaxFileSize = 10 * 1024 * 1024
