package alerts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gateerrors "github.com/felixgeelhaar/alertgate/internal/errors"
	"github.com/felixgeelhaar/alertgate/internal/log"
)

func newTestFetcher(t *testing.T, handler http.Handler) (*GitHubFetcher, *bytes.Buffer) {
	t.Helper()
	return newTestFetcherAt(t, handler, log.LevelDebug)
}

func newTestFetcherAt(t *testing.T, handler http.Handler, level log.Level) (*GitHubFetcher, *bytes.Buffer) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	var buf bytes.Buffer
	logger := log.New(log.Config{Level: level, Format: log.FormatJSON, Output: &buf})

	f, err := NewGitHubFetcher(context.Background(), ClientOptions{
		Token:      "test-token",
		APIURL:     server.URL,
		HTTPClient: server.Client(),
	}, logger)
	require.NoError(t, err)
	return f, &buf
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

var testRepo = Repository{Owner: "octo", Name: "hello"}

func TestParseRepository(t *testing.T) {
	tests := []struct {
		input   string
		want    Repository
		wantErr bool
	}{
		{input: "octo/hello", want: Repository{Owner: "octo", Name: "hello"}},
		{input: "octo", wantErr: true},
		{input: "octo/hello/extra", wantErr: true},
		{input: "/hello", wantErr: true},
		{input: "octo/", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseRepository(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.input, got.String())
		})
	}
}

func TestEffectiveSeverity(t *testing.T) {
	withLevel := CodeScanAlert{Rule: CodeScanRule{Severity: "warning", SecuritySeverityLevel: "high"}}
	assert.Equal(t, "high", withLevel.EffectiveSeverity())

	withoutLevel := CodeScanAlert{Rule: CodeScanRule{Severity: "error"}}
	assert.Equal(t, "error", withoutLevel.EffectiveSeverity())
}

func TestCodeScanAlerts(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/octo/hello/code-scanning/alerts", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "open", r.URL.Query().Get("state"))
		assert.Equal(t, "100", r.URL.Query().Get("per_page"))
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		assert.Equal(t, "alertgate/dev", r.Header.Get("User-Agent"))
		writeJSON(w, http.StatusOK, `[
			{"number": 1, "state": "open", "html_url": "https://github.com/octo/hello/security/code-scanning/1",
			 "rule": {"id": "go/sql-injection", "severity": "error", "security_severity_level": "critical"}},
			{"number": 2, "state": "open",
			 "rule": {"id": "go/unused", "severity": "note"}}
		]`)
	})

	f, logs := newTestFetcher(t, mux)
	got, err := f.CodeScanAlerts(context.Background(), testRepo)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, 1, got[0].Number)
	assert.Equal(t, "go/sql-injection", got[0].Rule.ID)
	assert.Equal(t, "critical", got[0].EffectiveSeverity())
	assert.Equal(t, "note", got[1].EffectiveSeverity())
	assert.Contains(t, logs.String(), "code scanning alerts fetched")
}

func TestCodeScanAlerts_NoAnalysis(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/octo/hello/code-scanning/alerts", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, `{"message": "no analysis found", "documentation_url": "https://docs.github.com"}`)
	})

	f, _ := newTestFetcher(t, mux)
	_, err := f.CodeScanAlerts(context.Background(), testRepo)
	assert.ErrorIs(t, err, ErrNoAnalysis)
}

func TestCodeScanAlerts_NotFoundIsNotSentinel(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/octo/hello/code-scanning/alerts", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, `{"message": "Not Found"}`)
	})

	f, _ := newTestFetcher(t, mux)
	_, err := f.CodeScanAlerts(context.Background(), testRepo)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNoAnalysis))

	var gateErr *gateerrors.GateError
	require.ErrorAs(t, err, &gateErr)
	assert.Equal(t, gateerrors.ErrCodeGitHubRequest, gateErr.Code)
}

func TestCodeScanAlerts_Unauthorized(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/octo/hello/code-scanning/alerts", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, `{"message": "Bad credentials"}`)
	})

	f, _ := newTestFetcher(t, mux)
	_, err := f.CodeScanAlerts(context.Background(), testRepo)

	var gateErr *gateerrors.GateError
	require.ErrorAs(t, err, &gateErr)
	assert.Equal(t, gateerrors.ErrCodeGitHubAuth, gateErr.Code)
	assert.Contains(t, err.Error(), "Bad credentials")
}

func TestSecretScanAlerts(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/octo/hello/secret-scanning/alerts", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "open", r.URL.Query().Get("state"))
		assert.Equal(t, "100", r.URL.Query().Get("per_page"))
		writeJSON(w, http.StatusOK, `[
			{"number": 1, "state": "open", "secret_type": "github_personal_access_token"},
			{"number": 2, "state": "open", "secret_type": "aws_access_key_id"},
			{"number": 3, "state": "open", "secret_type": "slack_api_token"}
		]`)
	})

	f, _ := newTestFetcher(t, mux)
	got, err := f.SecretScanAlerts(context.Background(), testRepo)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "aws_access_key_id", got[1].SecretType)
}

func TestSecretScanAlerts_ServerError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/octo/hello/secret-scanning/alerts", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusInternalServerError, `{"message": "boom"}`)
	})

	f, _ := newTestFetcher(t, mux)
	_, err := f.SecretScanAlerts(context.Background(), testRepo)

	var gateErr *gateerrors.GateError
	require.ErrorAs(t, err, &gateErr)
	assert.Equal(t, gateerrors.ErrCodeGitHubRequest, gateErr.Code)
	assert.Contains(t, gateErr.Message, "secret scanning")
}

func TestNetworkError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	f, err := NewGitHubFetcher(context.Background(), ClientOptions{APIURL: url}, nil)
	require.NoError(t, err)

	_, err = f.SecretScanAlerts(context.Background(), testRepo)
	var gateErr *gateerrors.GateError
	require.ErrorAs(t, err, &gateErr)
	assert.Equal(t, gateerrors.ErrCodeGitHubNetwork, gateErr.Code)
}

func TestDependencyAlerts(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/graphql", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)

		var req graphQLRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Contains(t, req.Query, "vulnerabilityAlerts(first: 100)")
		assert.Equal(t, "octo", req.Variables["org"])
		assert.Equal(t, "hello", req.Variables["repository"])

		writeJSON(w, http.StatusOK, `{"data": {"repository": {"vulnerabilityAlerts": {"nodes": [
			{"createdAt": "2024-05-01T10:00:00Z", "state": "OPEN",
			 "securityVulnerability": {"package": {"name": "lodash"}, "severity": "CRITICAL",
			   "advisory": {"description": "Prototype pollution"}}},
			{"createdAt": "2024-04-01T10:00:00Z", "state": "FIXED",
			 "securityVulnerability": {"package": {"name": "minimist"}, "severity": "MODERATE",
			   "advisory": {"description": "Prototype pollution"}}}
		]}}}}`)
	})

	f, logs := newTestFetcher(t, mux)
	got, err := f.DependencyAlerts(context.Background(), testRepo)
	require.NoError(t, err)
	require.Len(t, got, 2)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(logs.Bytes(), &entry))
	assert.Equal(t, "dependency alerts query returned", entry["msg"])
	group, ok := entry["github"].(map[string]any)
	require.True(t, ok, "debug dump should be grouped under github")
	assert.Contains(t, group["response"], `"lodash"`)

	assert.Equal(t, StateOpen, got[0].State)
	assert.Equal(t, "lodash", got[0].SecurityVulnerability.Package.Name)
	assert.Equal(t, "CRITICAL", got[0].SecurityVulnerability.Severity)
	assert.Equal(t, 2024, got[0].CreatedAt.Year())
	assert.Equal(t, "FIXED", got[1].State)
}

func TestDependencyAlerts_NoDumpAboveDebug(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/graphql", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"data": {"repository": {"vulnerabilityAlerts": {"nodes": []}}}}`)
	})

	f, logs := newTestFetcherAt(t, mux, log.LevelInfo)
	got, err := f.DependencyAlerts(context.Background(), testRepo)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Empty(t, logs.String())
}

func TestDependencyAlerts_GraphQLURLOverride(t *testing.T) {
	var hit bool
	mux := http.NewServeMux()
	mux.HandleFunc("/api/graphql", func(w http.ResponseWriter, r *http.Request) {
		hit = true
		writeJSON(w, http.StatusOK, `{"data": {"repository": {"vulnerabilityAlerts": {"nodes": []}}}}`)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	f, err := NewGitHubFetcher(context.Background(), ClientOptions{
		APIURL:     server.URL + "/api/v3",
		GraphQLURL: server.URL + "/api/graphql",
	}, nil)
	require.NoError(t, err)

	got, err := f.DependencyAlerts(context.Background(), testRepo)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.True(t, hit)
}

func TestDependencyAlerts_ResponseShape(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantMsg string
	}{
		{
			name:    "graphql errors",
			body:    `{"data": {"repository": null}, "errors": [{"message": "Could not resolve to a Repository"}]}`,
			wantMsg: "Could not resolve to a Repository",
		},
		{
			name:    "null repository",
			body:    `{"data": {"repository": null}}`,
			wantMsg: "repository missing",
		},
		{
			name:    "missing data",
			body:    `{}`,
			wantMsg: "repository missing",
		},
		{
			name:    "null vulnerability alerts",
			body:    `{"data": {"repository": {"vulnerabilityAlerts": null}}}`,
			wantMsg: "vulnerabilityAlerts missing",
		},
		{
			name:    "node without vulnerability",
			body:    `{"data": {"repository": {"vulnerabilityAlerts": {"nodes": [{"state": "OPEN", "securityVulnerability": null}]}}}}`,
			wantMsg: "securityVulnerability missing",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := http.NewServeMux()
			mux.HandleFunc("/graphql", func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusOK, tt.body)
			})

			f, _ := newTestFetcher(t, mux)
			_, err := f.DependencyAlerts(context.Background(), testRepo)

			var gateErr *gateerrors.GateError
			require.ErrorAs(t, err, &gateErr)
			assert.Equal(t, gateerrors.ErrCodeGitHubResponse, gateErr.Code)
			assert.Contains(t, gateErr.Message, tt.wantMsg)
		})
	}
}

func TestSourceString(t *testing.T) {
	assert.Equal(t, "code scanning", SourceCodeScanning.String())
	assert.Equal(t, "dependency alerts", SourceDependency.String())
	assert.Equal(t, "secret scanning", SourceSecretScanning.String())
}
