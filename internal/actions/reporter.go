// Package actions speaks the GitHub Actions runner protocol through
// go-githubactions: annotations, step outputs and the job summary.
package actions

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/sethvargo/go-githubactions"

	"github.com/felixgeelhaar/alertgate/internal/gate"
)

// New returns an Action that writes workflow commands to w and reads the
// runner environment through getenv. Nil arguments mean stdout and os.Getenv.
func New(w io.Writer, getenv func(string) string) *githubactions.Action {
	if w == nil {
		w = os.Stdout
	}
	if getenv == nil {
		getenv = os.Getenv
	}
	return githubactions.New(githubactions.WithWriter(w), githubactions.WithGetenv(getenv))
}

// Reporter surfaces gate results to the runner
type Reporter struct {
	action *githubactions.Action
	getenv func(string) string
}

// NewReporter creates a reporter on top of New(w, getenv)
func NewReporter(w io.Writer, getenv func(string) string) *Reporter {
	if getenv == nil {
		getenv = os.Getenv
	}
	return &Reporter{action: New(w, getenv), getenv: getenv}
}

// Error raises a failure annotation
func (r *Reporter) Error(msg string) {
	r.action.Errorf("%s", msg)
}

// Warning raises a warning annotation
func (r *Reporter) Warning(msg string) {
	r.action.Warningf("%s", msg)
}

// Debug writes a message shown only when step debug logging is enabled
func (r *Reporter) Debug(msg string) {
	r.action.Debugf("%s", msg)
}

// Info writes a plain log line
func (r *Reporter) Info(msg string) {
	r.action.Infof("%s", msg)
}

// Report surfaces every outcome: fatal ones as errors, findings that do not
// fail the run as warnings, everything else as info.
func (r *Reporter) Report(outcomes []gate.Outcome) {
	for _, o := range outcomes {
		switch {
		case o.Fatal:
			r.Error(o.Message)
		case o.Kind == gate.OutcomeThresholdExceeded:
			r.Warning(o.Message)
		default:
			r.Info(o.Message)
		}
	}
}

// DebugFindings dumps the retained alerts of each source as JSON debug
// messages.
func (r *Reporter) DebugFindings(f gate.Findings) {
	dump := func(source string, v any, n int) {
		if n == 0 {
			return
		}
		data, err := json.Marshal(v)
		if err != nil {
			r.Debug(fmt.Sprintf("%s: %d retained alerts (not encodable: %v)", source, n, err))
			return
		}
		r.Debug(fmt.Sprintf("%s: %d retained alerts: %s", source, n, data))
	}
	dump("code scanning", f.CodeScan, len(f.CodeScan))
	dump("dependency", f.Dependency, len(f.Dependency))
	dump("secret scanning", f.SecretScan, len(f.SecretScan))
}

// fileCommand runs a go-githubactions file command against the file named
// by env. The library panics when the file cannot be written, so the file
// is opened first and any panic is returned as an error.
func (r *Reporter) fileCommand(env string, fn func()) (err error) {
	path := r.getenv(env)
	if path == "" {
		return fmt.Errorf("%s is not set", env)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}

	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("write %s: %v", path, p)
		}
	}()
	fn()
	return nil
}
