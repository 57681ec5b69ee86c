package logging

import "log/slog"

// MCP transports own the process's stdout for JSON-RPC framing, and
// clients surface anything written to stderr. While serving, the only
// safe sink is the log file, so these setups never mirror to stderr.

// SetupMCPMode points the default slog logger at the server log file at
// debug level and returns the cleanup function that closes it.
func SetupMCPMode() (func(), error) {
	cleanup, err := installDefault(fileOnlyConfig("debug"))
	if err != nil {
		return nil, err
	}
	slog.Info("file-only logging active",
		slog.String("log_file", DefaultLogPath()),
		slog.String("level", "debug"))
	return cleanup, nil
}

// SetupMCPModeWithLevel is SetupMCPMode at an explicit level.
func SetupMCPModeWithLevel(level string) (func(), error) {
	return installDefault(fileOnlyConfig(level))
}

func fileOnlyConfig(level string) Config {
	cfg := newConfig(level)
	cfg.WriteToStderr = false
	return cfg
}

// installDefault runs Setup and promotes the result to the process-wide
// default logger.
func installDefault(cfg Config) (func(), error) {
	logger, cleanup, err := Setup(cfg)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)
	return cleanup, nil
}
