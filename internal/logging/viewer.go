package logging

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"regexp"
	"sort"
	"strings"
	"time"
)

// Records carrying large attribute payloads (full dependency lists,
// report sections) can exceed bufio's default 64KB token limit.
const maxLogLine = 1 << 20

// How often Follow polls the file for appended lines.
const followInterval = 100 * time.Millisecond

// LogEntry is one parsed line of the JSON server log. Lines that are
// not valid JSON are kept with IsValid false so the viewer can still
// show them.
type LogEntry struct {
	Time    time.Time              `json:"time"`
	Level   string                 `json:"level"`
	Msg     string                 `json:"msg"`
	Attrs   map[string]interface{} `json:"-"`
	Raw     string                 `json:"-"`
	IsValid bool                   `json:"-"`
}

// ViewerConfig holds the active filters for a viewing session.
type ViewerConfig struct {
	Level   string         // minimum level to show, empty for all
	Pattern *regexp.Regexp // raw-line match, nil for all
	NoColor bool
}

// Viewer reads, filters and renders server log files.
type Viewer struct {
	config ViewerConfig
	out    io.Writer
}

// NewViewer returns a Viewer that prints to out.
func NewViewer(cfg ViewerConfig, out io.Writer) *Viewer {
	return &Viewer{config: cfg, out: out}
}

// Tail returns the last n lines of the file at path, parsed and
// filtered. Only the trailing window is held in memory, so tailing a
// log that has grown large stays cheap.
func (v *Viewer) Tail(path string, n int) ([]LogEntry, error) {
	if n <= 0 {
		return nil, nil
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	defer func() { _ = file.Close() }()

	ring := make([]string, 0, n)
	next := 0

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, maxLogLine), maxLogLine)
	for scanner.Scan() {
		if len(ring) < n {
			ring = append(ring, scanner.Text())
			continue
		}
		ring[next] = scanner.Text()
		next = (next + 1) % n
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read log file: %w", err)
	}

	var entries []LogEntry
	for i := range ring {
		entry := parseLogLine(ring[(next+i)%len(ring)])
		if v.matches(entry) {
			entries = append(entries, entry)
		}
	}
	return entries, nil
}

// Follow streams records appended to the file at path onto the channel
// until ctx is cancelled. It starts at the current end of file, so only
// new records are delivered.
func (v *Viewer) Follow(ctx context.Context, path string, entries chan<- LogEntry) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer func() { _ = file.Close() }()

	if _, err := file.Seek(0, io.SeekEnd); err != nil {
		return fmt.Errorf("seek log file: %w", err)
	}

	reader := bufio.NewReader(file)
	ticker := time.NewTicker(followInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if !v.pump(ctx, reader, entries) {
				return nil
			}
		}
	}
}

// pump forwards the complete lines currently available on reader.
// Returns false once ctx is cancelled mid-send.
func (v *Viewer) pump(ctx context.Context, reader *bufio.Reader, entries chan<- LogEntry) bool {
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			// Partial or no line yet; pick it up on the next tick.
			return true
		}

		line = strings.TrimSuffix(line, "\n")
		if line == "" {
			continue
		}
		entry := parseLogLine(line)
		if !v.matches(entry) {
			continue
		}

		select {
		case entries <- entry:
		case <-ctx.Done():
			return false
		}
	}
}

// FormatEntry renders one entry as a single display line. Attributes
// are sorted by key so repeated runs line up.
func (v *Viewer) FormatEntry(entry LogEntry) string {
	if !entry.IsValid {
		return entry.Raw
	}

	var b strings.Builder
	b.WriteString(entry.Time.Format("15:04:05.000"))
	b.WriteByte(' ')
	b.WriteString(v.colorLevel(entry.Level))
	b.WriteByte(' ')
	b.WriteString(entry.Msg)

	keys := make([]string, 0, len(entry.Attrs))
	for k := range entry.Attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		_, _ = fmt.Fprintf(&b, " %s=%v", k, entry.Attrs[k])
	}
	return b.String()
}

// Print writes the formatted entries to the viewer's output.
func (v *Viewer) Print(entries []LogEntry) {
	for _, entry := range entries {
		_, _ = fmt.Fprintln(v.out, v.FormatEntry(entry))
	}
}

// parseLogLine decodes one slog JSON record. Anything that does not
// decode is returned raw with IsValid false.
func parseLogLine(line string) LogEntry {
	entry := LogEntry{Raw: line}

	var fields map[string]interface{}
	if err := json.Unmarshal([]byte(line), &fields); err != nil {
		return entry
	}
	entry.IsValid = true

	if s, ok := fields["time"].(string); ok {
		if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
			entry.Time = t
		}
	}
	entry.Level, _ = fields["level"].(string)
	entry.Msg, _ = fields["msg"].(string)

	delete(fields, "time")
	delete(fields, "level")
	delete(fields, "msg")
	entry.Attrs = fields
	return entry
}

func (v *Viewer) matches(entry LogEntry) bool {
	if v.config.Level != "" && LevelFromString(entry.Level) < LevelFromString(v.config.Level) {
		return false
	}
	if v.config.Pattern != nil && !v.config.Pattern.MatchString(entry.Raw) {
		return false
	}
	return true
}

// ANSI color prefix per level name.
var levelColors = map[string]string{
	"debug":   "\033[90m",
	"info":    "\033[32m",
	"warn":    "\033[33m",
	"warning": "\033[33m",
	"error":   "\033[31m",
}

func (v *Viewer) colorLevel(level string) string {
	padded := fmt.Sprintf("%-5.5s", strings.ToUpper(level))
	if v.config.NoColor {
		return padded
	}
	color, ok := levelColors[strings.ToLower(level)]
	if !ok {
		return padded
	}
	return color + padded + "\033[0m"
}
