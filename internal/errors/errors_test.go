package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	err := New(ErrCodeConfigRepository, "test error message")

	if err.Code != ErrCodeConfigRepository {
		t.Errorf("expected code %s, got %s", ErrCodeConfigRepository, err.Code)
	}

	if err.Message != "test error message" {
		t.Errorf("expected message 'test error message', got '%s'", err.Message)
	}

	if err.Cause != nil {
		t.Errorf("expected nil cause, got %v", err.Cause)
	}
}

func TestWrap(t *testing.T) {
	cause := fmt.Errorf("underlying error")
	err := Wrap(ErrCodeGitHubRequest, "request failed", cause)

	if err.Code != ErrCodeGitHubRequest {
		t.Errorf("expected code %s, got %s", ErrCodeGitHubRequest, err.Code)
	}

	if !errors.Is(err, cause) {
		t.Errorf("Wrap should support errors.Is")
	}
}

func TestErrorFormatting(t *testing.T) {
	tests := []struct {
		name     string
		err      *GateError
		wantCode string
		wantMsg  string
	}{
		{
			name:     "simple error",
			err:      New(ErrCodeGitHubResponse, "bad shape"),
			wantCode: "GITHUB-003",
			wantMsg:  "bad shape",
		},
		{
			name:     "error with cause",
			err:      Wrap(ErrCodeGitHubNetwork, "fetch failed", fmt.Errorf("connection refused")),
			wantCode: "GITHUB-004",
			wantMsg:  "connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errStr := tt.err.Error()

			if !strings.Contains(errStr, tt.wantCode) {
				t.Errorf("error string should contain code %s, got: %s", tt.wantCode, errStr)
			}

			if !strings.Contains(errStr, tt.wantMsg) {
				t.Errorf("error string should contain message '%s', got: %s", tt.wantMsg, errStr)
			}
		})
	}
}

func TestWithSuggestions(t *testing.T) {
	err := New(ErrCodeConfigSeverity, "bad severity").
		WithSuggestions("Suggestion 1", "Suggestion 2")

	if len(err.Suggestions) != 2 {
		t.Errorf("expected 2 suggestions, got %d", len(err.Suggestions))
	}

	errStr := err.Error()
	if !strings.Contains(errStr, "Suggestions:") {
		t.Errorf("error string should contain suggestions section")
	}
	for _, suggestion := range err.Suggestions {
		if !strings.Contains(errStr, suggestion) {
			t.Errorf("error string should contain suggestion: %s", suggestion)
		}
	}
}

func TestSummaryOmitsSuggestions(t *testing.T) {
	err := NewGitHubAuthError("code scanning", fmt.Errorf("401 Bad credentials"))

	summary := err.Summary()
	if strings.Contains(summary, "\n") {
		t.Errorf("summary should be a single line, got %q", summary)
	}
	if !strings.Contains(summary, "GITHUB-002") || !strings.Contains(summary, "Bad credentials") {
		t.Errorf("unexpected summary: %q", summary)
	}
	if !strings.Contains(err.Error(), "Documentation:") {
		t.Errorf("full error should include docs link")
	}
}

func TestRepositoryError(t *testing.T) {
	missing := NewRepositoryError("")
	if !strings.Contains(missing.Message, "not set") {
		t.Errorf("unexpected message: %s", missing.Message)
	}

	invalid := NewRepositoryError("just-a-name")
	if !strings.Contains(invalid.Message, `"just-a-name"`) {
		t.Errorf("unexpected message: %s", invalid.Message)
	}
	if invalid.Code != ErrCodeConfigRepository {
		t.Errorf("expected code %s, got %s", ErrCodeConfigRepository, invalid.Code)
	}
}

func TestErrorsAs(t *testing.T) {
	wrapped := fmt.Errorf("run: %w", NewSeverityError(fmt.Errorf("invalid severity \"x\"")))

	var gateErr *GateError
	if !errors.As(wrapped, &gateErr) {
		t.Fatal("errors.As should find GateError")
	}
	if gateErr.Code != ErrCodeConfigSeverity {
		t.Errorf("expected code %s, got %s", ErrCodeConfigSeverity, gateErr.Code)
	}
}
