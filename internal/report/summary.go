package report

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/felixgeelhaar/alertgate/internal/gate"
)

// RunSummary is the machine-readable view of a gate run
type RunSummary struct {
	RunID      string         `json:"run_id" yaml:"run_id"`
	Repository string         `json:"repository" yaml:"repository"`
	Threshold  string         `json:"threshold" yaml:"threshold"`
	Result     string         `json:"result" yaml:"result"`
	Aborted    bool           `json:"aborted,omitempty" yaml:"aborted,omitempty"`
	Fetched    gate.Counts    `json:"fetched" yaml:"fetched"`
	Retained   gate.Counts    `json:"retained" yaml:"retained"`
	Outcomes   []gate.Outcome `json:"outcomes" yaml:"outcomes"`
	DurationMS int64          `json:"duration_ms" yaml:"duration_ms"`
}

// NewRunSummary builds the summary view of res
func NewRunSummary(res *gate.Result) RunSummary {
	return RunSummary{
		RunID:      res.RunID,
		Repository: res.Repository.String(),
		Threshold:  res.Threshold.String(),
		Result:     res.Status(),
		Aborted:    res.Aborted,
		Fetched:    res.Fetched,
		Retained:   res.Retained,
		Outcomes:   res.Outcomes,
		DurationMS: res.Duration.Milliseconds(),
	}
}

// String renders a one-line summary
func (s RunSummary) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s (threshold %s; code scan %d/%d, dependency %d/%d, secret scan %d/%d)",
		s.Repository, s.Result, s.Threshold,
		s.Retained.CodeScan, s.Fetched.CodeScan,
		s.Retained.Dependency, s.Fetched.Dependency,
		s.Retained.SecretScan, s.Fetched.SecretScan,
	)
	if s.Aborted {
		b.WriteString(" [aborted]")
	}
	return b.String()
}

// Write renders the summary to w as a text line, JSON or YAML. An empty
// format means text.
func (s RunSummary) Write(w io.Writer, format string) error {
	switch format {
	case "json":
		return WriteJSON(w, s)
	case "yaml":
		return writeYAML(w, s)
	case "text", "":
		_, err := fmt.Fprintln(w, s.String())
		return err
	default:
		return fmt.Errorf("unknown summary format %q (supported: text, json, yaml)", format)
	}
}

// Save writes the summary to path, replacing any previous content
func (s RunSummary) Save(path, format string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := s.Write(f, format); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
