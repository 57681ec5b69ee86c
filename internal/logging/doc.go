// Package logging wires slog to a rotating JSON log file under
// ~/.runready/logs.
//
// CLI runs mirror records to stderr and the --debug flag lowers the
// level to debug. MCP serving logs to the file only, since the
// transport owns stdout and clients surface stderr. The companion
// runready-logs binary reads the same files back through Viewer.
package logging
