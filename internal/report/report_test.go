package report

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/felixgeelhaar/alertgate/internal/alerts"
	"github.com/felixgeelhaar/alertgate/internal/gate"
)

func sampleResult() *gate.Result {
	return &gate.Result{
		RunID:      "6f1c1d7e-1111-4a3b-9c2d-000000000001",
		Repository: alerts.Repository{Owner: "octo", Name: "hello"},
		Threshold:  "high",
		Fetched:    gate.Counts{CodeScan: 2, Dependency: 1, SecretScan: 1},
		Retained:   gate.Counts{CodeScan: 1, Dependency: 1, SecretScan: 1},
		Findings: gate.Findings{
			CodeScan: []alerts.CodeScanAlert{{
				Number:  12,
				State:   "open",
				HTMLURL: "https://github.com/octo/hello/security/code-scanning/12",
				Rule: alerts.CodeScanRule{
					ID:                    "go/sql-injection",
					Description:           "Database query built from user-controlled sources",
					Severity:              "error",
					SecuritySeverityLevel: "critical",
				},
			}},
			Dependency: []alerts.DependencyAlert{{
				State: "OPEN",
				SecurityVulnerability: alerts.SecurityVulnerability{
					Package:  alerts.Package{Name: "lodash"},
					Severity: "MODERATE",
					Advisory: alerts.Advisory{Description: "Prototype pollution"},
				},
			}},
			SecretScan: []alerts.SecretScanAlert{{Number: 3, SecretType: "github_personal_access_token"}},
		},
		Outcomes: []gate.Outcome{{
			Kind:    gate.OutcomeThresholdExceeded,
			Message: "Found 1 code scan issues with high severity and above",
		}},
		Duration: 1500 * time.Millisecond,
	}
}

func TestToSARIF(t *testing.T) {
	sarif := ToSARIF(sampleResult())

	assert.Equal(t, "2.1.0", sarif.Version)
	require.Len(t, sarif.Runs, 1)
	run := sarif.Runs[0]
	assert.Equal(t, "alertgate", run.Tool.Driver.Name)
	require.NotNil(t, run.AutomationDetails)
	assert.Equal(t, "alertgate/octo/hello/", run.AutomationDetails.ID)
	assert.Equal(t, "6f1c1d7e-1111-4a3b-9c2d-000000000001", run.AutomationDetails.GUID)

	require.Len(t, run.Results, 3)

	code := run.Results[0]
	assert.Equal(t, "go/sql-injection", code.RuleID)
	assert.Equal(t, "error", code.Level)
	assert.Equal(t, "Database query built from user-controlled sources", code.Message.Text)
	require.Len(t, code.Locations, 1)
	assert.Equal(t, "https://github.com/octo/hello/security/code-scanning/12", code.Locations[0].PhysicalLocation.ArtifactLocation.URI)
	assert.Equal(t, "critical", code.Properties["severity"])

	dep := run.Results[1]
	assert.Equal(t, "dependency/lodash", dep.RuleID)
	assert.Equal(t, "warning", dep.Level)
	assert.Equal(t, "lodash: Prototype pollution", dep.Message.Text)
	assert.Empty(t, dep.Locations)

	secret := run.Results[2]
	assert.Equal(t, "secret-scanning/github_personal_access_token", secret.RuleID)
	assert.Equal(t, "error", secret.Level)
}

func TestToSARIF_Empty(t *testing.T) {
	sarif := ToSARIF(&gate.Result{Repository: alerts.Repository{Owner: "o", Name: "r"}})

	require.Len(t, sarif.Runs, 1)
	assert.Nil(t, sarif.Runs[0].AutomationDetails)
	assert.NotNil(t, sarif.Runs[0].Results)
	assert.Empty(t, sarif.Runs[0].Results)
}

func TestSarifLevel(t *testing.T) {
	tests := map[string]string{
		"CRITICAL": "error",
		"high":     "error",
		"medium":   "warning",
		"moderate": "warning",
		"low":      "note",
		"note":     "note",
		"":         "note",
	}
	for label, want := range tests {
		assert.Equal(t, want, sarifLevel(label), label)
	}
}

func TestSaveSARIF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "alertgate.sarif")
	require.NoError(t, SaveSARIF(ToSARIF(sampleResult()), path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "2.1.0", decoded["version"])
	assert.Equal(t, sarifSchema, decoded["$schema"])
}

func TestSaveSARIF_BadPath(t *testing.T) {
	err := SaveSARIF(ToSARIF(sampleResult()), filepath.Join(t.TempDir(), "missing", "out.sarif"))
	assert.Error(t, err)
}

func TestRunSummaryWrite(t *testing.T) {
	summary := NewRunSummary(sampleResult())

	t.Run("text", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, summary.Write(&buf, "text"))
		assert.Equal(t, "octo/hello: warning (threshold high; code scan 1/2, dependency 1/1, secret scan 1/1)\n", buf.String())

		buf.Reset()
		require.NoError(t, summary.Write(&buf, ""))
		assert.True(t, strings.HasPrefix(buf.String(), "octo/hello: warning"))
	})

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, summary.Write(&buf, "json"))

		var decoded map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
		assert.Equal(t, "octo/hello", decoded["repository"])
		assert.Equal(t, "warning", decoded["result"])
		assert.Equal(t, float64(1500), decoded["duration_ms"])
		assert.NotContains(t, buf.String(), "aborted")

		outcomes := decoded["outcomes"].([]any)
		require.Len(t, outcomes, 1)
		assert.Equal(t, "threshold_exceeded", outcomes[0].(map[string]any)["kind"])
	})

	t.Run("yaml", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, summary.Write(&buf, "yaml"))

		var decoded map[string]any
		require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
		assert.Equal(t, "high", decoded["threshold"])
		assert.Contains(t, buf.String(), "kind: threshold_exceeded")
	})

	t.Run("unknown", func(t *testing.T) {
		assert.Error(t, summary.Write(&bytes.Buffer{}, "xml"))
	})
}

func TestRunSummarySave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "summary.json")
	require.NoError(t, os.WriteFile(path, []byte("stale content that is longer than nothing"), 0644))
	require.NoError(t, NewRunSummary(sampleResult()).Save(path, "json"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "6f1c1d7e-1111-4a3b-9c2d-000000000001", decoded["run_id"])
	assert.Equal(t, float64(1), decoded["retained"].(map[string]any)["code_scan"])

	assert.Error(t, NewRunSummary(sampleResult()).Save(filepath.Join(t.TempDir(), "missing", "s.json"), "json"))
}

func TestRunSummaryAborted(t *testing.T) {
	res := &gate.Result{Repository: alerts.Repository{Owner: "o", Name: "r"}, Threshold: "low", Aborted: true}
	assert.Contains(t, NewRunSummary(res).String(), "[aborted]")
}
