package errors

import (
	stderrors "errors"
	"fmt"
	"sort"
	"strings"
)

// FormatForUser renders err for terminal display. ReadyErrors print
// their message, suggestion and code, and with debug true the
// underlying cause. Other errors print as a single Error line.
func FormatForUser(err error, debug bool) string {
	if err == nil {
		return ""
	}

	var re *ReadyError
	if !stderrors.As(err, &re) {
		return fmt.Sprintf("Error: %s\n", err)
	}

	var sb strings.Builder
	_, _ = fmt.Fprintf(&sb, "Error: %s\n", re.Message)
	if re.Suggestion != "" {
		_, _ = fmt.Fprintf(&sb, "\nSuggestion: %s\n", re.Suggestion)
	}
	_, _ = fmt.Fprintf(&sb, "\n[%s]", re.Code)
	if debug && re.Cause != nil {
		_, _ = fmt.Fprintf(&sb, "\nCause: %s", re.Cause)
	}
	sb.WriteByte('\n')
	return sb.String()
}

// FormatForLog renders err as alternating slog key/value args.
// ReadyErrors expand to error_code, message, category and severity,
// then cause, suggestion and detail_* keys when present. Other errors
// yield a single error attr. Detail keys are sorted so log lines are
// stable.
func FormatForLog(err error) []any {
	if err == nil {
		return nil
	}

	var re *ReadyError
	if !stderrors.As(err, &re) {
		return []any{"error", err.Error()}
	}

	args := []any{
		"error_code", re.Code,
		"message", re.Message,
		"category", string(re.Category),
		"severity", string(re.Severity),
	}
	if re.Cause != nil {
		args = append(args, "cause", re.Cause.Error())
	}
	if re.Suggestion != "" {
		args = append(args, "suggestion", re.Suggestion)
	}

	keys := make([]string, 0, len(re.Details))
	for k := range re.Details {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		args = append(args, "detail_"+k, re.Details[k])
	}
	return args
}
