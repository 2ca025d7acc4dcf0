// Package gate filters fetched security alerts against a severity threshold
// and decides whether the pipeline passes, warns or fails.
package gate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/felixgeelhaar/alertgate/internal/alerts"
	"github.com/felixgeelhaar/alertgate/internal/config"
	gateerrors "github.com/felixgeelhaar/alertgate/internal/errors"
	"github.com/felixgeelhaar/alertgate/internal/log"
	"github.com/felixgeelhaar/alertgate/internal/metrics"
	"github.com/felixgeelhaar/alertgate/internal/severity"
)

// MissingAnalysisMessage is raised when code scanning has never run
const MissingAnalysisMessage = "No code scanning results!"

// Options configures a gate run
type Options struct {
	Fetcher alerts.Fetcher
	Logger  *log.Logger
	Metrics *metrics.Metrics
}

// Run fetches the three alert sources in order, filters them and decides.
// Fetch failures do not return an error: they end the run with a fatal
// TransportError outcome. The error return is reserved for invalid options.
func Run(ctx context.Context, cfg config.Config, opts Options) (*Result, error) {
	if opts.Fetcher == nil {
		return nil, fmt.Errorf("fetcher is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.DefaultLogger()
	}
	logger = logger.With("repository", cfg.Repository.String(), "threshold", cfg.Threshold.String())

	startTime := time.Now()
	result := &Result{
		RunID:      cfg.RunID,
		Repository: cfg.Repository,
		Threshold:  cfg.Threshold,
	}
	defer func() {
		result.Duration = time.Since(startTime)
		for _, o := range result.Outcomes {
			opts.Metrics.ObserveOutcome(o.Kind.String(), o.Fatal)
		}
		opts.Metrics.MarkRun(time.Now())
	}()

	r := runner{cfg: cfg, opts: opts, logger: logger, result: result}

	codeScan, err := fetch(ctx, r, alerts.SourceCodeScanning, opts.Fetcher.CodeScanAlerts)
	switch {
	case errors.Is(err, alerts.ErrNoAnalysis):
		result.Outcomes = append(result.Outcomes, missingAnalysis(cfg.AllowMissingAnalysis))
		logger.InfoContext(ctx, "code scanning has no analysis", "allowed", cfg.AllowMissingAnalysis)
	case err != nil:
		r.abort(ctx, alerts.SourceCodeScanning, err)
		return result, nil
	}

	dependency, err := fetch(ctx, r, alerts.SourceDependency, opts.Fetcher.DependencyAlerts)
	if err != nil {
		r.abort(ctx, alerts.SourceDependency, err)
		return result, nil
	}

	secretScan, err := fetch(ctx, r, alerts.SourceSecretScanning, opts.Fetcher.SecretScanAlerts)
	if err != nil {
		r.abort(ctx, alerts.SourceSecretScanning, err)
		return result, nil
	}

	result.Fetched = Counts{
		CodeScan:   len(codeScan),
		Dependency: len(dependency),
		SecretScan: len(secretScan),
	}

	threshold := cfg.Threshold.Level()
	result.Findings = Findings{
		CodeScan:   FilterCodeScan(codeScan, threshold),
		Dependency: FilterDependency(dependency, threshold),
		SecretScan: FilterSecretScan(secretScan),
	}
	result.Retained = result.Findings.Counts()
	r.observeRetained()

	result.Summary = Summarize(result.Findings, cfg.Threshold)
	decision := Decide(result.Summary, cfg.Threshold, cfg.FailOnFinding)
	result.Outcomes = append(result.Outcomes, decision)

	logger.InfoContext(ctx, "gate decided",
		"outcome", decision.Kind.String(),
		"fatal", decision.Fatal,
		"code_scan", result.Retained.CodeScan,
		"dependency", result.Retained.Dependency,
		"secret_scan", result.Retained.SecretScan,
	)

	return result, nil
}

type runner struct {
	cfg    config.Config
	opts   Options
	logger *log.Logger
	result *Result
}

func fetch[T any](ctx context.Context, r runner, source alerts.Source, fn func(context.Context, alerts.Repository) ([]T, error)) ([]T, error) {
	startTime := time.Now()
	items, err := fn(ctx, r.cfg.Repository)
	if err != nil {
		return nil, err
	}
	r.opts.Metrics.ObserveFetch(r.cfg.Repository.String(), string(source), len(items), time.Since(startTime))
	r.logger.DebugContext(ctx, "fetched alerts", "source", source.String(), "count", len(items))
	return items, nil
}

// abort records a transport error. It is logged once here and nowhere else.
func (r runner) abort(ctx context.Context, source alerts.Source, err error) {
	code := "unknown"
	var ge *gateerrors.GateError
	if errors.As(err, &ge) {
		code = string(ge.Code)
	}
	r.opts.Metrics.ObserveFetchError(string(source), code)
	r.logger.LogErrorContext(ctx, "fetch failed, aborting", err)

	r.result.Aborted = true
	r.result.Outcomes = append(r.result.Outcomes, Outcome{
		Kind:    OutcomeTransportError,
		Message: errorMessage(err),
		Fatal:   true,
		Err:     err,
	})
}

func (r runner) observeRetained() {
	repo := r.cfg.Repository.String()
	threshold := r.cfg.Threshold.String()
	if threshold == "" {
		threshold = "none"
	}
	r.opts.Metrics.ObserveRetained(repo, string(alerts.SourceCodeScanning), threshold, r.result.Retained.CodeScan)
	r.opts.Metrics.ObserveRetained(repo, string(alerts.SourceDependency), threshold, r.result.Retained.Dependency)
	r.opts.Metrics.ObserveRetained(repo, string(alerts.SourceSecretScanning), threshold, r.result.Retained.SecretScan)
}

func missingAnalysis(allowed bool) Outcome {
	if allowed {
		return Outcome{Kind: OutcomeMissingAnalysis, Message: "Code scanning has no analysis yet"}
	}
	return Outcome{
		Kind:    OutcomeMissingAnalysis,
		Message: MissingAnalysisMessage,
		Fatal:   true,
		Err: gateerrors.New(gateerrors.ErrCodeGateMissingAnalysis, MissingAnalysisMessage).
			WithSuggestion("Upload a code scanning analysis or set allow-not-found to true"),
	}
}

// FilterCodeScan keeps alerts whose effective severity is at or above threshold
func FilterCodeScan(items []alerts.CodeScanAlert, threshold severity.Level) []alerts.CodeScanAlert {
	kept := make([]alerts.CodeScanAlert, 0, len(items))
	for _, a := range items {
		if severity.Normalize(a.EffectiveSeverity()).AtLeast(threshold) {
			kept = append(kept, a)
		}
	}
	return kept
}

// FilterDependency keeps OPEN alerts whose severity is at or above threshold
func FilterDependency(items []alerts.DependencyAlert, threshold severity.Level) []alerts.DependencyAlert {
	kept := make([]alerts.DependencyAlert, 0, len(items))
	for _, a := range items {
		if a.State != alerts.StateOpen {
			continue
		}
		if severity.Normalize(a.SecurityVulnerability.Severity).AtLeast(threshold) {
			kept = append(kept, a)
		}
	}
	return kept
}

// FilterSecretScan keeps every alert; secrets carry no severity.
func FilterSecretScan(items []alerts.SecretScanAlert) []alerts.SecretScanAlert {
	kept := make([]alerts.SecretScanAlert, len(items))
	copy(kept, items)
	return kept
}

// Summarize builds one line per source with retained findings
func Summarize(f Findings, threshold severity.Label) Summary {
	var lines Summary
	if n := len(f.CodeScan); n > 0 {
		lines = append(lines, fmt.Sprintf("Found %d code scan issues with %s severity and above", n, threshold))
	}
	if n := len(f.Dependency); n > 0 {
		lines = append(lines, fmt.Sprintf("Found %d dependency vulnerabilities with %s severity and above", n, threshold))
	}
	if n := len(f.SecretScan); n > 0 {
		lines = append(lines, fmt.Sprintf("Found %d secret scanning alerts", n))
	}
	return lines
}

// Decide turns the summary into a single outcome
func Decide(summary Summary, threshold severity.Label, failOnFinding bool) Outcome {
	if summary.Empty() {
		return Outcome{
			Kind:    OutcomeSuccess,
			Message: fmt.Sprintf("No security alerts with %s severity and above detected", threshold),
		}
	}

	o := Outcome{
		Kind:    OutcomeThresholdExceeded,
		Message: summary.String(),
		Fatal:   failOnFinding,
	}
	if failOnFinding {
		o.Err = gateerrors.New(gateerrors.ErrCodeGateThreshold, "security alerts at or above threshold").
			WithSuggestion("Resolve the listed alerts or raise the severity threshold")
	}
	return o
}
