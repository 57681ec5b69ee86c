package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Rotation defaults shared by every setup path.
const (
	defaultMaxSizeMB = 10
	defaultMaxFiles  = 5
)

// Config controls where log records go and how much history is kept.
type Config struct {
	// Level is the minimum level to record: debug, info, warn or error.
	Level string
	// FilePath is the log file location. Its parent directory is created
	// on first use.
	FilePath string
	// MaxSizeMB is the file size that triggers rotation.
	MaxSizeMB int
	// MaxFiles caps how many rotated files are retained.
	MaxFiles int
	// WriteToStderr mirrors every record to stderr. Must stay false
	// while serving MCP, where stderr is visible to the host client.
	WriteToStderr bool
}

// DefaultConfig logs at info level to the server log, mirrored to stderr.
func DefaultConfig() Config { return newConfig("info") }

// DebugConfig is DefaultConfig with the level lowered to debug. The
// --debug flag uses it.
func DebugConfig() Config { return newConfig("debug") }

func newConfig(level string) Config {
	return Config{
		Level:         level,
		FilePath:      DefaultLogPath(),
		MaxSizeMB:     defaultMaxSizeMB,
		MaxFiles:      defaultMaxFiles,
		WriteToStderr: true,
	}
}

// Setup builds a JSON slog.Logger writing to the configured file and
// returns it with a cleanup function that flushes and closes the file.
// Records logged after cleanup are lost.
func Setup(cfg Config) (*slog.Logger, func(), error) {
	writer, err := NewRotatingWriter(cfg.FilePath, cfg.MaxSizeMB, cfg.MaxFiles)
	if err != nil {
		return nil, nil, err
	}

	var out io.Writer = writer
	if cfg.WriteToStderr {
		out = io.MultiWriter(writer, os.Stderr)
	}
	handler := slog.NewJSONHandler(out, &slog.HandlerOptions{
		Level: LevelFromString(cfg.Level),
	})

	return slog.New(handler), func() {
		_ = writer.Sync()
		_ = writer.Close()
	}, nil
}

var levelNames = map[string]slog.Level{
	"debug":   slog.LevelDebug,
	"info":    slog.LevelInfo,
	"warn":    slog.LevelWarn,
	"warning": slog.LevelWarn,
	"error":   slog.LevelError,
}

// LevelFromString maps a level name to its slog.Level. Unrecognized
// names map to info.
func LevelFromString(level string) slog.Level {
	if lvl, ok := levelNames[strings.ToLower(level)]; ok {
		return lvl
	}
	return slog.LevelInfo
}
