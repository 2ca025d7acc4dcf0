package report

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/felixgeelhaar/alertgate/internal/alerts"
	"github.com/felixgeelhaar/alertgate/internal/gate"
	"github.com/felixgeelhaar/alertgate/internal/severity"
	"github.com/felixgeelhaar/alertgate/internal/version"
)

const sarifSchema = "https://raw.githubusercontent.com/oasis-tcs/sarif-spec/master/Schemata/sarif-schema-2.1.0.json"

// SARIF represents a SARIF 2.1.0 report structure
type SARIF struct {
	Version string     `json:"version"`
	Schema  string     `json:"$schema"`
	Runs    []SARIFRun `json:"runs"`
}

// SARIFRun represents a single run in a SARIF report
type SARIFRun struct {
	Tool              SARIFTool               `json:"tool"`
	AutomationDetails *SARIFAutomationDetails `json:"automationDetails,omitempty"`
	Results           []SARIFResult           `json:"results"`
}

// SARIFAutomationDetails ties a run to the gate invocation that produced it
type SARIFAutomationDetails struct {
	ID   string `json:"id"`
	GUID string `json:"guid,omitempty"`
}

// SARIFTool describes the tool that generated the report
type SARIFTool struct {
	Driver SARIFDriver `json:"driver"`
}

// SARIFDriver contains tool metadata
type SARIFDriver struct {
	Name            string `json:"name"`
	InformationURI  string `json:"informationUri,omitempty"`
	SemanticVersion string `json:"semanticVersion,omitempty"`
}

// SARIFResult represents a single finding
type SARIFResult struct {
	RuleID     string            `json:"ruleId"`
	Level      string            `json:"level"` // "error", "warning", "note"
	Message    SARIFMessage      `json:"message"`
	Locations  []SARIFLocation   `json:"locations,omitempty"`
	Properties map[string]string `json:"properties,omitempty"`
}

// SARIFMessage contains the finding message
type SARIFMessage struct {
	Text string `json:"text"`
}

// SARIFLocation describes where the finding can be viewed
type SARIFLocation struct {
	PhysicalLocation SARIFPhysicalLocation `json:"physicalLocation"`
}

// SARIFPhysicalLocation provides artifact-level location
type SARIFPhysicalLocation struct {
	ArtifactLocation SARIFArtifactLocation `json:"artifactLocation"`
}

// SARIFArtifactLocation identifies the artifact
type SARIFArtifactLocation struct {
	URI string `json:"uri"`
}

// ToSARIF converts the retained findings of a run to SARIF
func ToSARIF(res *gate.Result) *SARIF {
	run := SARIFRun{
		Tool: SARIFTool{
			Driver: SARIFDriver{
				Name:            "alertgate",
				InformationURI:  "https://github.com/felixgeelhaar/alertgate",
				SemanticVersion: version.GetInfo().Short(),
			},
		},
		Results: convertFindingsToSARIF(res.Findings),
	}
	if res.RunID != "" {
		run.AutomationDetails = &SARIFAutomationDetails{
			ID:   fmt.Sprintf("alertgate/%s/", res.Repository),
			GUID: res.RunID,
		}
	}

	return &SARIF{
		Version: "2.1.0",
		Schema:  sarifSchema,
		Runs:    []SARIFRun{run},
	}
}

func convertFindingsToSARIF(f gate.Findings) []SARIFResult {
	results := make([]SARIFResult, 0, len(f.CodeScan)+len(f.Dependency)+len(f.SecretScan))

	for _, a := range f.CodeScan {
		text := a.Rule.Description
		if text == "" {
			text = fmt.Sprintf("Code scanning alert #%d", a.Number)
		}
		results = append(results, SARIFResult{
			RuleID:    a.Rule.ID,
			Level:     sarifLevel(a.EffectiveSeverity()),
			Message:   SARIFMessage{Text: text},
			Locations: htmlLocation(a.HTMLURL),
			Properties: map[string]string{
				"source":   string(alerts.SourceCodeScanning),
				"severity": a.EffectiveSeverity(),
			},
		})
	}

	for _, a := range f.Dependency {
		v := a.SecurityVulnerability
		results = append(results, SARIFResult{
			RuleID:  "dependency/" + v.Package.Name,
			Level:   sarifLevel(v.Severity),
			Message: SARIFMessage{Text: fmt.Sprintf("%s: %s", v.Package.Name, v.Advisory.Description)},
			Properties: map[string]string{
				"source":   string(alerts.SourceDependency),
				"severity": v.Severity,
			},
		})
	}

	for _, a := range f.SecretScan {
		secretType := a.SecretType
		if secretType == "" {
			secretType = "unknown"
		}
		results = append(results, SARIFResult{
			RuleID:    "secret-scanning/" + secretType,
			Level:     "error",
			Message:   SARIFMessage{Text: fmt.Sprintf("Secret scanning alert #%d (%s)", a.Number, secretType)},
			Locations: htmlLocation(a.HTMLURL),
			Properties: map[string]string{
				"source": string(alerts.SourceSecretScanning),
			},
		})
	}

	return results
}

func sarifLevel(label string) string {
	switch severity.Normalize(label) {
	case severity.LevelCritical, severity.LevelHigh:
		return "error"
	case severity.LevelMedium:
		return "warning"
	default:
		return "note"
	}
}

func htmlLocation(uri string) []SARIFLocation {
	if uri == "" {
		return nil
	}
	return []SARIFLocation{{
		PhysicalLocation: SARIFPhysicalLocation{
			ArtifactLocation: SARIFArtifactLocation{URI: uri},
		},
	}}
}

// SaveSARIF writes a SARIF report to disk
func SaveSARIF(sarif *SARIF, path string) error {
	data, err := json.MarshalIndent(sarif, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal SARIF: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write SARIF file: %w", err)
	}

	return nil
}
