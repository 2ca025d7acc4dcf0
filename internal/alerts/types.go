// Package alerts fetches security alerts for a single repository from the
// GitHub code scanning, Dependabot and secret scanning APIs.
package alerts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Source identifies one of the alert subsystems
type Source string

// Alert sources, in fetch order
const (
	SourceCodeScanning   Source = "code_scanning"
	SourceDependency     Source = "dependency"
	SourceSecretScanning Source = "secret_scanning"
)

// String returns the human-readable source name
func (s Source) String() string {
	switch s {
	case SourceCodeScanning:
		return "code scanning"
	case SourceDependency:
		return "dependency alerts"
	case SourceSecretScanning:
		return "secret scanning"
	default:
		return string(s)
	}
}

// ErrNoAnalysis is returned by CodeScanAlerts when the repository has never
// had a code scanning analysis uploaded.
var ErrNoAnalysis = errors.New("no analysis found")

// Repository identifies an owner/name pair
type Repository struct {
	Owner string
	Name  string
}

// ParseRepository splits "owner/name". Exactly one separator is allowed and
// neither side may be empty.
func ParseRepository(s string) (Repository, error) {
	parts := strings.Split(s, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return Repository{}, fmt.Errorf("invalid repository %q: expected owner/name", s)
	}
	return Repository{Owner: parts[0], Name: parts[1]}, nil
}

// String returns "owner/name"
func (r Repository) String() string {
	return r.Owner + "/" + r.Name
}

// CodeScanAlert is an open static analysis finding
type CodeScanAlert struct {
	Number  int          `json:"number"`
	State   string       `json:"state"`
	Rule    CodeScanRule `json:"rule"`
	HTMLURL string       `json:"html_url,omitempty"`
}

// CodeScanRule is the rule that produced a code scanning alert
type CodeScanRule struct {
	ID                    string `json:"id"`
	Description           string `json:"description,omitempty"`
	Severity              string `json:"severity"`
	SecuritySeverityLevel string `json:"security_severity_level,omitempty"`
}

// EffectiveSeverity prefers the security severity level over the rule severity.
func (a CodeScanAlert) EffectiveSeverity() string {
	if a.Rule.SecuritySeverityLevel != "" {
		return a.Rule.SecuritySeverityLevel
	}
	return a.Rule.Severity
}

// DependencyAlert is a Dependabot vulnerability alert node
type DependencyAlert struct {
	CreatedAt             time.Time             `json:"createdAt"`
	State                 string                `json:"state"`
	SecurityVulnerability SecurityVulnerability `json:"securityVulnerability"`
}

// StateOpen is the only dependency alert state eligible for filtering
const StateOpen = "OPEN"

// SecurityVulnerability describes the advisory affecting a dependency
type SecurityVulnerability struct {
	Package  Package  `json:"package"`
	Severity string   `json:"severity"`
	Advisory Advisory `json:"advisory"`
}

// Package is the affected dependency
type Package struct {
	Name string `json:"name"`
}

// Advisory is the published security advisory
type Advisory struct {
	Description string `json:"description"`
}

// SecretScanAlert is an open secret scanning alert. Only its presence matters
// to the gate.
type SecretScanAlert struct {
	Number     int    `json:"number"`
	State      string `json:"state"`
	SecretType string `json:"secret_type,omitempty"`
	HTMLURL    string `json:"html_url,omitempty"`
}

// Fetcher retrieves a single page of open alerts from each source
type Fetcher interface {
	// CodeScanAlerts returns ErrNoAnalysis when no analysis exists yet.
	CodeScanAlerts(ctx context.Context, repo Repository) ([]CodeScanAlert, error)
	DependencyAlerts(ctx context.Context, repo Repository) ([]DependencyAlert, error)
	SecretScanAlerts(ctx context.Context, repo Repository) ([]SecretScanAlert, error)
}
