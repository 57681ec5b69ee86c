// Package errors provides structured error handling for RunReady.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where the leading
// digit selects the category:
//
//	1XX configuration
//	2XX file and disk IO
//	3XX host resource probes (CPU, memory, disk, GPU)
//	4XX input validation
//	5XX internal failures
package errors

import "strings"

// Category classifies an error by subsystem.
type Category string

const (
	CategoryConfig     Category = "CONFIG"
	CategoryIO         Category = "IO"
	CategoryHost       Category = "HOST"
	CategoryValidation Category = "VALIDATION"
	CategoryInternal   Category = "INTERNAL"
)

// Severity says how much of the current operation survives the error.
type Severity string

const (
	// SeverityFatal aborts the current operation.
	SeverityFatal Severity = "FATAL"
	// SeverityError failed the operation, the process can continue.
	SeverityError Severity = "ERROR"
	// SeverityWarning degrades the result, the operation continues.
	SeverityWarning Severity = "WARNING"
	// SeverityInfo is informational only.
	SeverityInfo Severity = "INFO"
)

// Codes grouped by their category digit.
const (
	// 1xx configuration
	ErrCodeConfigNotFound   = "ERR_101_CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid    = "ERR_102_CONFIG_INVALID"
	ErrCodeConfigPermission = "ERR_103_CONFIG_PERMISSION"
	ErrCodeRulesInvalid     = "ERR_104_RULES_INVALID"

	// 2xx file and disk IO
	ErrCodeFileNotFound   = "ERR_201_FILE_NOT_FOUND"
	ErrCodeFilePermission = "ERR_202_FILE_PERMISSION"
	ErrCodeDiskFull       = "ERR_203_DISK_FULL"
	ErrCodeFileTooLarge   = "ERR_204_FILE_TOO_LARGE"
	ErrCodeHistoryCorrupt = "ERR_205_HISTORY_CORRUPT"

	// 3xx host probes
	ErrCodeHostProbe      = "ERR_301_HOST_PROBE"
	ErrCodeGPUUnavailable = "ERR_302_GPU_UNAVAILABLE"
	ErrCodeGPUProbe       = "ERR_303_GPU_PROBE"

	// 4xx validation
	ErrCodeInvalidInput    = "ERR_401_INVALID_INPUT"
	ErrCodeInvalidPath     = "ERR_402_INVALID_PATH"
	ErrCodeNotADirectory   = "ERR_403_NOT_A_DIRECTORY"
	ErrCodeUnknownTool     = "ERR_404_UNKNOWN_TOOL"
	ErrCodeMissingArgument = "ERR_405_MISSING_ARGUMENT"

	// 5xx internal
	ErrCodeInternal      = "ERR_501_INTERNAL"
	ErrCodeScanFailed    = "ERR_502_SCAN_FAILED"
	ErrCodeReportFailed  = "ERR_503_REPORT_FAILED"
	ErrCodeHistoryFailed = "ERR_504_HISTORY_FAILED"
)

var codeCategories = map[byte]Category{
	'1': CategoryConfig,
	'2': CategoryIO,
	'3': CategoryHost,
	'4': CategoryValidation,
	'5': CategoryInternal,
}

// categoryFromCode reads the category out of the code's leading digit.
// Malformed codes count as internal.
func categoryFromCode(code string) Category {
	const prefix = "ERR_"
	if !strings.HasPrefix(code, prefix) || len(code) <= len(prefix) {
		return CategoryInternal
	}
	if cat, ok := codeCategories[code[len(prefix)]]; ok {
		return cat
	}
	return CategoryInternal
}

// fatalCodes abort the current operation outright.
var fatalCodes = map[string]bool{
	ErrCodeDiskFull:       true,
	ErrCodeHistoryCorrupt: true,
}

func severityFromCode(code string) Severity {
	switch {
	case fatalCodes[code]:
		return SeverityFatal
	case categoryFromCode(code) == CategoryHost:
		// Probe failures degrade the snapshot instead of aborting
		return SeverityWarning
	default:
		return SeverityError
	}
}
