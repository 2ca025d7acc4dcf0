package gate

import (
	"errors"
	"strings"
	"time"

	"github.com/felixgeelhaar/alertgate/internal/alerts"
	gateerrors "github.com/felixgeelhaar/alertgate/internal/errors"
	"github.com/felixgeelhaar/alertgate/internal/severity"
)

// OutcomeKind classifies one result of a gate run
type OutcomeKind int

const (
	OutcomeSuccess OutcomeKind = iota
	OutcomeMissingAnalysis
	OutcomeThresholdExceeded
	OutcomeTransportError
)

// String returns the snake_case name used in logs, metrics and reports
func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeMissingAnalysis:
		return "missing_analysis"
	case OutcomeThresholdExceeded:
		return "threshold_exceeded"
	case OutcomeTransportError:
		return "transport_error"
	default:
		return "unknown"
	}
}

// MarshalText encodes the kind by name in JSON and YAML output
func (k OutcomeKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Outcome is a single signal raised by a run. Fatal outcomes fail the
// pipeline; the rest are reported as warnings or notices.
type Outcome struct {
	Kind    OutcomeKind `json:"kind" yaml:"kind"`
	Message string      `json:"message" yaml:"message"`
	Fatal   bool        `json:"fatal" yaml:"fatal"`
	Err     error       `json:"-" yaml:"-"`
}

// Findings holds the alerts retained after filtering
type Findings struct {
	CodeScan   []alerts.CodeScanAlert   `json:"code_scan" yaml:"code_scan"`
	Dependency []alerts.DependencyAlert `json:"dependency" yaml:"dependency"`
	SecretScan []alerts.SecretScanAlert `json:"secret_scan" yaml:"secret_scan"`
}

// Counts is the number of alerts per source
type Counts struct {
	CodeScan   int `json:"code_scan" yaml:"code_scan"`
	Dependency int `json:"dependency" yaml:"dependency"`
	SecretScan int `json:"secret_scan" yaml:"secret_scan"`
}

// Counts returns the retained count per source
func (f Findings) Counts() Counts {
	return Counts{
		CodeScan:   len(f.CodeScan),
		Dependency: len(f.Dependency),
		SecretScan: len(f.SecretScan),
	}
}

// Summary is the ordered list of human-readable lines, one per source with
// retained findings, in fetch order.
type Summary []string

// Empty reports whether no source produced findings
func (s Summary) Empty() bool {
	return len(s) == 0
}

// String joins the lines with newlines
func (s Summary) String() string {
	return strings.Join(s, "\n")
}

// Status values written to the "result" step output
const (
	StatusSuccess = "success"
	StatusWarning = "warning"
	StatusFailure = "failure"
)

// Result is everything a run produced. Outcomes are combined only at the
// end through Failed and Err.
type Result struct {
	RunID      string            `json:"run_id" yaml:"run_id"`
	Repository alerts.Repository `json:"-" yaml:"-"`
	Threshold  severity.Label    `json:"threshold" yaml:"threshold"`
	Fetched    Counts            `json:"fetched" yaml:"fetched"`
	Retained   Counts            `json:"retained" yaml:"retained"`
	Findings   Findings          `json:"findings" yaml:"findings"`
	Summary    Summary           `json:"summary" yaml:"summary"`
	Outcomes   []Outcome         `json:"outcomes" yaml:"outcomes"`
	Aborted    bool              `json:"aborted" yaml:"aborted"`
	Duration   time.Duration     `json:"duration" yaml:"duration"`
}

// Failed reports whether any outcome fails the pipeline
func (r *Result) Failed() bool {
	for _, o := range r.Outcomes {
		if o.Fatal {
			return true
		}
	}
	return false
}

// Status condenses the outcomes into success, warning or failure. An allowed
// missing analysis counts as success.
func (r *Result) Status() string {
	if r.Failed() {
		return StatusFailure
	}
	for _, o := range r.Outcomes {
		if o.Kind == OutcomeThresholdExceeded {
			return StatusWarning
		}
	}
	return StatusSuccess
}

// Err returns a *FailureError when the run failed, nil otherwise
func (r *Result) Err() error {
	var fatal []Outcome
	for _, o := range r.Outcomes {
		if o.Fatal {
			fatal = append(fatal, o)
		}
	}
	if len(fatal) == 0 {
		return nil
	}
	return &FailureError{Outcomes: fatal}
}

// FailureError carries every fatal outcome of a run
type FailureError struct {
	Outcomes []Outcome
}

// Error joins the outcome messages, one per line
func (e *FailureError) Error() string {
	msgs := make([]string, 0, len(e.Outcomes))
	for _, o := range e.Outcomes {
		msgs = append(msgs, o.Message)
	}
	return strings.Join(msgs, "\n")
}

// Unwrap exposes the underlying coded errors, in the order they were raised
func (e *FailureError) Unwrap() []error {
	errs := make([]error, 0, len(e.Outcomes))
	for _, o := range e.Outcomes {
		if o.Err != nil {
			errs = append(errs, o.Err)
		}
	}
	return errs
}

// IsFailure reports whether err is a gate failure that was already
// surfaced as a workflow annotation.
func IsFailure(err error) bool {
	var fe *FailureError
	return errors.As(err, &fe)
}

// errorMessage renders err on a single line for annotations
func errorMessage(err error) string {
	var ge *gateerrors.GateError
	if errors.As(err, &ge) {
		return ge.Summary()
	}
	return err.Error()
}
