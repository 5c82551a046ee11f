// Package clierror provides structured errors for CLI output with codes,
// exit codes, and remediation hints.
package clierror

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Exit codes returned by sentry-cli.
const (
	ExitSuccess     = 0 // Operation completed successfully
	ExitGeneral     = 1 // Unknown/unhandled error
	ExitAuth        = 2 // Missing or rejected auth token
	ExitNotFound    = 3 // Organization, project, or debug file doesn't exist
	ExitRateLimited = 4 // Too many requests
	ExitUsage       = 5 // Invalid flags or configuration
)

// Error codes (strings) for programmatic error handling
const (
	CodeNotAuthorized    = "NOT_AUTHORIZED"
	CodeProjectNotFound  = "PROJECT_NOT_FOUND"
	CodeDebugIDNotFound  = "DEBUG_ID_NOT_FOUND"
	CodeRateLimited      = "RATE_LIMITED"
	CodeAPIError         = "API_ERROR"
	CodeConnectionFailed = "CONNECTION_FAILED"
	CodeInvalidConfig    = "INVALID_CONFIG"
	CodeInternalError    = "INTERNAL_ERROR"
)

// CLIError represents a structured error for CLI output.
type CLIError struct {
	Code      string `json:"code" yaml:"code"`
	Message   string `json:"message" yaml:"message"`
	Hint      string `json:"hint,omitempty" yaml:"hint,omitempty"`
	Retryable bool   `json:"retryable" yaml:"retryable"`
	ExitCode  int    `json:"-" yaml:"-"` // Not serialized, used for os.Exit
}

// Error implements the error interface.
func (e *CLIError) Error() string {
	return e.Message
}

// NotAuthorized creates an error for a missing or rejected auth token.
func NotAuthorized(detail string) *CLIError {
	msg := "not authorized"
	if detail != "" {
		msg = fmt.Sprintf("not authorized: %s", detail)
	}
	return &CLIError{
		Code:      CodeNotAuthorized,
		Message:   msg,
		Hint:      "Set --auth-token, SENTRY_AUTH_TOKEN, or [auth] token in .sentryclirc",
		Retryable: false,
		ExitCode:  ExitAuth,
	}
}

// ProjectNotFound creates an error when the organization or project doesn't exist.
func ProjectNotFound(org, project string) *CLIError {
	return &CLIError{
		Code:      CodeProjectNotFound,
		Message:   fmt.Sprintf("project '%s/%s' not found", org, project),
		Hint:      "Check the --org and --project values",
		Retryable: false,
		ExitCode:  ExitNotFound,
	}
}

// DebugIDsNotFound creates an error when requested debug ids were not found
// in the scanned paths.
func DebugIDsNotFound(ids []string) *CLIError {
	return &CLIError{
		Code:      CodeDebugIDNotFound,
		Message:   fmt.Sprintf("missing debug information files: %v", ids),
		Hint:      "Check the search paths or drop --require-all",
		Retryable: false,
		ExitCode:  ExitNotFound,
	}
}

// RateLimited creates an error for rate limiting.
func RateLimited() *CLIError {
	return &CLIError{
		Code:      CodeRateLimited,
		Message:   "rate limit exceeded",
		Hint:      "Wait a moment before retrying",
		Retryable: true,
		ExitCode:  ExitRateLimited,
	}
}

// APIError creates an error for an unexpected API response.
func APIError(status int, body string) *CLIError {
	return &CLIError{
		Code:      CodeAPIError,
		Message:   fmt.Sprintf("API request failed with status %d: %s", status, body),
		Retryable: status >= 500,
		ExitCode:  ExitGeneral,
	}
}

// ConnectionFailed creates an error for connection failures.
func ConnectionFailed(target string, err error) *CLIError {
	msg := fmt.Sprintf("failed to connect to '%s'", target)
	if err != nil {
		msg = fmt.Sprintf("%s: %v", msg, err)
	}
	return &CLIError{
		Code:      CodeConnectionFailed,
		Message:   msg,
		Hint:      "Check network connectivity and the --url value",
		Retryable: true,
		ExitCode:  ExitGeneral,
	}
}

// InvalidConfig creates an error for unusable configuration or flags.
func InvalidConfig(reason string) *CLIError {
	return &CLIError{
		Code:      CodeInvalidConfig,
		Message:   fmt.Sprintf("invalid configuration: %s", reason),
		Retryable: false,
		ExitCode:  ExitUsage,
	}
}

// InternalError creates an error for unexpected internal errors.
func InternalError(err error) *CLIError {
	msg := "an unexpected internal error occurred"
	if err != nil {
		msg = fmt.Sprintf("internal error: %s", err.Error())
	}
	return &CLIError{
		Code:      CodeInternalError,
		Message:   msg,
		Retryable: false,
		ExitCode:  ExitGeneral,
	}
}

// From returns err as a *CLIError, wrapping unknown errors as internal errors.
// A nil err returns nil.
func From(err error) *CLIError {
	if err == nil {
		return nil
	}
	var cliErr *CLIError
	if errors.As(err, &cliErr) {
		return cliErr
	}
	return InternalError(err)
}

// ExitCodeOf returns the process exit code for err.
func ExitCodeOf(err error) int {
	if err == nil {
		return ExitSuccess
	}
	return From(err).ExitCode
}

// FormatError returns the error formatted for the given output format.
// Supported formats: "json" for JSON output, anything else for human-readable text.
func FormatError(err *CLIError, outputFormat string) string {
	if outputFormat == "json" {
		data, jsonErr := json.MarshalIndent(err, "", "  ")
		if jsonErr != nil {
			// Fallback to simple JSON if marshaling fails
			return fmt.Sprintf(`{"code":"%s","message":"%s"}`, err.Code, err.Message)
		}
		return string(data)
	}

	output := fmt.Sprintf("error: %s", err.Message)
	if err.Hint != "" {
		output += fmt.Sprintf("\n  hint: %s", err.Hint)
	}
	return output
}

// PrintError writes the error to w in the appropriate format.
func PrintError(w io.Writer, err *CLIError, outputFormat string) {
	fmt.Fprintln(w, FormatError(err, outputFormat))
}
