package errors

import (
	"fmt"
	"strings"
)

// ErrorCode represents a unique error identifier
type ErrorCode string

// Error categories
const (
	// Configuration errors (CONFIG-001 to CONFIG-099)
	ErrCodeConfigRepository ErrorCode = "CONFIG-001"
	ErrCodeConfigSeverity   ErrorCode = "CONFIG-002"
	ErrCodeConfigFile       ErrorCode = "CONFIG-003"
	ErrCodeConfigFormat     ErrorCode = "CONFIG-004"

	// GitHub API errors (GITHUB-001 to GITHUB-099)
	ErrCodeGitHubRequest  ErrorCode = "GITHUB-001"
	ErrCodeGitHubAuth     ErrorCode = "GITHUB-002"
	ErrCodeGitHubResponse ErrorCode = "GITHUB-003"
	ErrCodeGitHubNetwork  ErrorCode = "GITHUB-004"

	// Gate outcomes (GATE-001 to GATE-099)
	ErrCodeGateThreshold       ErrorCode = "GATE-001"
	ErrCodeGateMissingAnalysis ErrorCode = "GATE-002"

	// File I/O errors (IO-001 to IO-099)
	ErrCodeFileWriteFailed ErrorCode = "IO-003"
)

// GateError represents an error with code, suggestions, and documentation
type GateError struct {
	Code        ErrorCode
	Message     string
	Suggestions []string
	DocsURL     string
	Cause       error
}

// Error implements the error interface
func (e *GateError) Error() string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("[%s] %s", e.Code, e.Message))

	if e.Cause != nil {
		b.WriteString(fmt.Sprintf(": %v", e.Cause))
	}

	if len(e.Suggestions) > 0 {
		b.WriteString("\n\nSuggestions:")
		for _, suggestion := range e.Suggestions {
			b.WriteString(fmt.Sprintf("\n  • %s", suggestion))
		}
	}

	if e.DocsURL != "" {
		b.WriteString(fmt.Sprintf("\n\nDocumentation: %s", e.DocsURL))
	}

	return b.String()
}

// Summary returns the code, message and cause without suggestions or docs.
// Annotations use it so they stay on one line.
func (e *GateError) Summary() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap implements error unwrapping for errors.Is and errors.As
func (e *GateError) Unwrap() error {
	return e.Cause
}

// New creates a new GateError
func New(code ErrorCode, message string) *GateError {
	return &GateError{
		Code:    code,
		Message: message,
	}
}

// Wrap creates a new GateError wrapping an existing error
func Wrap(code ErrorCode, message string, cause error) *GateError {
	return &GateError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// WithSuggestion adds a suggestion to the error
func (e *GateError) WithSuggestion(suggestion string) *GateError {
	e.Suggestions = append(e.Suggestions, suggestion)
	return e
}

// WithSuggestions adds multiple suggestions to the error
func (e *GateError) WithSuggestions(suggestions ...string) *GateError {
	e.Suggestions = append(e.Suggestions, suggestions...)
	return e
}

// WithDocs adds a documentation URL to the error
func (e *GateError) WithDocs(url string) *GateError {
	e.DocsURL = url
	return e
}

// Common error constructors

// NewRepositoryError reports a repository identifier that is missing or malformed
func NewRepositoryError(repository string) *GateError {
	msg := "repository is not set and could not be resolved from the workflow context"
	if repository != "" {
		msg = fmt.Sprintf("invalid repository %q: expected owner/name", repository)
	}
	return New(ErrCodeConfigRepository, msg).
		WithSuggestion("Set the 'repository' input or --repository flag to owner/name").
		WithSuggestion("When running outside GitHub Actions, export GITHUB_REPOSITORY")
}

// NewSeverityError reports an unrecognized threshold
func NewSeverityError(cause error) *GateError {
	return Wrap(ErrCodeConfigSeverity, "invalid severity threshold", cause).
		WithSuggestion("Use one of: critical, high, moderate, medium, low")
}

// NewConfigFileError reports a config file that could not be read or parsed
func NewConfigFileError(path string, cause error) *GateError {
	return Wrap(ErrCodeConfigFile, fmt.Sprintf("failed to load config file: %s", path), cause).
		WithSuggestion("Check the file exists and is valid YAML")
}

// NewGitHubAuthError reports a rejected token for the given alert source
func NewGitHubAuthError(source string, cause error) *GateError {
	return Wrap(ErrCodeGitHubAuth, fmt.Sprintf("authentication failed for %s", source), cause).
		WithSuggestion("Set GITHUB_TOKEN or the 'token' input").
		WithSuggestion("Grant the token security-events: read and vulnerability-alerts: read").
		WithDocs("https://docs.github.com/en/rest/code-scanning")
}

// NewGitHubRequestError reports a failed API call for the given alert source
func NewGitHubRequestError(source string, cause error) *GateError {
	return Wrap(ErrCodeGitHubRequest, fmt.Sprintf("%s request failed", source), cause)
}

// NewGitHubNetworkError reports a transport failure before any response was received
func NewGitHubNetworkError(source string, cause error) *GateError {
	return Wrap(ErrCodeGitHubNetwork, fmt.Sprintf("network error fetching %s", source), cause).
		WithSuggestion("Check connectivity to the GitHub API")
}

// NewGitHubResponseError reports a response whose shape could not be used
func NewGitHubResponseError(source string, details string) *GateError {
	return New(ErrCodeGitHubResponse, fmt.Sprintf("unexpected %s response: %s", source, details))
}
