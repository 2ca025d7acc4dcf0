package exitcode

import (
	"errors"
	"os"
	"strings"

	gateerrors "github.com/felixgeelhaar/alertgate/internal/errors"
)

// Exit codes for consistent error handling across the CLI
const (
	// Success indicates no failure was raised
	Success = 0

	// GeneralError indicates a general error condition
	GeneralError = 1

	// UsageError indicates invalid flags, inputs or configuration
	UsageError = 2

	// FindingsDetected indicates alerts at or above the threshold with fail-action enabled
	FindingsDetected = 3

	// MissingAnalysis indicates code scanning has no analysis and it was not allowed
	MissingAnalysis = 4

	// AuthError indicates an authentication or authorization failure
	AuthError = 5

	// NetworkError indicates a network connectivity issue
	NetworkError = 6

	// Interrupted indicates the run was cancelled by SIGINT or SIGTERM
	Interrupted = 130
)

// Exit terminates the program with the given exit code
func Exit(code int) {
	os.Exit(code)
}

// DetermineExitCode analyzes an error and returns the appropriate exit code.
// Coded errors are mapped by code; anything else falls back to message matching.
func DetermineExitCode(err error) int {
	if err == nil {
		return Success
	}

	var gateErr *gateerrors.GateError
	if errors.As(err, &gateErr) {
		if code, ok := fromCode(gateErr.Code); ok {
			return code
		}
	}

	errMsg := strings.ToLower(err.Error())

	if containsAny(errMsg, "authentication", "unauthorized", "bad credentials", "forbidden", " 401 ", " 403 ") {
		return AuthError
	}
	if containsAny(errMsg, "network", "connection", "timeout", "unreachable", "no route to host", "dns", " 502 ", " 503 ", " 504 ") {
		return NetworkError
	}
	if containsAny(errMsg, "invalid flag", "unknown flag", "unknown command", "invalid argument", "required flag") {
		return UsageError
	}

	return GeneralError
}

func containsAny(s string, substrs ...string) bool {
	for _, sub := range substrs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func fromCode(code gateerrors.ErrorCode) (int, bool) {
	switch code {
	case gateerrors.ErrCodeConfigRepository,
		gateerrors.ErrCodeConfigSeverity,
		gateerrors.ErrCodeConfigFile,
		gateerrors.ErrCodeConfigFormat:
		return UsageError, true
	case gateerrors.ErrCodeGitHubAuth:
		return AuthError, true
	case gateerrors.ErrCodeGitHubNetwork:
		return NetworkError, true
	case gateerrors.ErrCodeGateThreshold:
		return FindingsDetected, true
	case gateerrors.ErrCodeGateMissingAnalysis:
		return MissingAnalysis, true
	default:
		return 0, false
	}
}

// GetExitCodeDescription returns a human-readable description of an exit code
func GetExitCodeDescription(code int) string {
	switch code {
	case Success:
		return "Success"
	case GeneralError:
		return "General error"
	case UsageError:
		return "Usage error (invalid flags, inputs or configuration)"
	case FindingsDetected:
		return "Security alerts at or above threshold"
	case MissingAnalysis:
		return "No code scanning analysis found"
	case AuthError:
		return "Authentication error"
	case NetworkError:
		return "Network error"
	case Interrupted:
		return "Interrupted"
	default:
		return "Unknown error"
	}
}
