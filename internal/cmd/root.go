// Package cmd wires the alertgate command line.
package cmd

import (
	"context"
	"errors"
	"io"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/alertgate/internal/actions"
	"github.com/felixgeelhaar/alertgate/internal/alerts"
	"github.com/felixgeelhaar/alertgate/internal/config"
	gateerrors "github.com/felixgeelhaar/alertgate/internal/errors"
	"github.com/felixgeelhaar/alertgate/internal/gate"
	"github.com/felixgeelhaar/alertgate/internal/log"
	"github.com/felixgeelhaar/alertgate/internal/metrics"
	"github.com/felixgeelhaar/alertgate/internal/report"
	"github.com/felixgeelhaar/alertgate/internal/version"
)

// FetcherFactory builds the alert fetcher for a resolved configuration
type FetcherFactory func(ctx context.Context, cfg config.Config, logger *log.Logger) (alerts.Fetcher, error)

type options struct {
	getenv     func(string) string
	stdout     io.Writer
	stderr     io.Writer
	newFetcher FetcherFactory
	dotenv     []string
}

func defaultOptions() options {
	return options{
		getenv:     os.Getenv,
		stdout:     os.Stdout,
		stderr:     os.Stderr,
		newFetcher: newGitHubFetcher,
		dotenv:     []string{".env"},
	}
}

func newGitHubFetcher(ctx context.Context, cfg config.Config, logger *log.Logger) (alerts.Fetcher, error) {
	f, err := alerts.NewGitHubFetcher(ctx, alerts.ClientOptions{
		Token:      cfg.Token,
		APIURL:     cfg.APIURL,
		GraphQLURL: cfg.GraphQLURL,
	}, logger)
	if err != nil {
		return nil, err
	}
	return f, nil
}

// NewRootCommand creates the alertgate command with its subcommands
func NewRootCommand() *cobra.Command {
	return newRootCommand(defaultOptions())
}

func newRootCommand(o options) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "alertgate",
		Short: "Fail CI on GitHub security alerts above a severity threshold",
		Long: `alertgate queries the code scanning, Dependabot and secret scanning alerts
of one repository, keeps those at or above a severity threshold and fails or
warns the pipeline accordingly.

Settings come from flags, GitHub Actions inputs (INPUT_*), an optional YAML
file and the workflow context, in that order of precedence.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runGate(cmd, o)
		},
	}
	rootCmd.SetOut(o.stdout)
	rootCmd.SetErr(o.stderr)

	f := rootCmd.Flags()
	f.String(config.KeyRepository, "", "repository as owner/name (default: workflow repository)")
	f.String(config.KeySeverity, "", "minimum severity: critical, high, moderate, medium or low (default: keep every alert)")
	f.Bool(config.KeyAllowNotFound, false, "do not fail when code scanning has no analysis")
	f.Bool(config.KeyFailAction, false, "fail instead of warn when alerts are found")
	f.String(config.KeyToken, "", "GitHub token (default: $GITHUB_TOKEN)")
	f.String(config.KeyAPIURL, "", "GitHub REST API URL (default: $GITHUB_API_URL)")
	f.String(config.KeyGraphQLURL, "", "GitHub GraphQL URL (default: $GITHUB_GRAPHQL_URL)")
	f.String(config.KeyConfig, "", "YAML config file")
	f.String(config.KeyLogLevel, "", "log level: debug, info, warn, error")
	f.String(config.KeyLogFormat, "", "log format: text or json")
	f.String(config.KeyFormat, "", "run summary format: text, json or yaml (json and yaml need --summary-file)")
	f.String(config.KeySummaryFile, "", "write the run summary to this path instead of stdout")
	f.String(config.KeySARIF, "", "write retained findings as SARIF to this path")
	f.String(config.KeyMetricsFile, "", "write Prometheus metrics to this textfile")

	rootCmd.AddCommand(newVersionCommand(o))

	return rootCmd
}

// setFlags returns the flags given on the command line, as strings
func setFlags(cmd *cobra.Command) map[string]string {
	flags := make(map[string]string)
	for _, name := range []string{
		config.KeyRepository, config.KeySeverity, config.KeyAllowNotFound, config.KeyFailAction,
		config.KeyToken, config.KeyAPIURL, config.KeyGraphQLURL, config.KeyConfig,
		config.KeyLogLevel, config.KeyLogFormat, config.KeyFormat, config.KeySARIF, config.KeyMetricsFile,
	} {
		if cmd.Flags().Changed(name) {
			flags[name] = cmd.Flags().Lookup(name).Value.String()
		}
	}
	return flags
}

func runGate(cmd *cobra.Command, o options) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	reporter := actions.NewReporter(o.stdout, o.getenv)

	if err := config.LoadDotEnv(o.dotenv...); err != nil {
		log.DefaultLogger().Warn("ignoring .env file", "error", err)
	}

	cfg, err := config.Resolve(config.Sources{Flags: setFlags(cmd), Getenv: o.getenv})
	if err != nil {
		return reportError(reporter, err)
	}

	logger := newLogger(cfg, o.stderr)
	log.SetDefaultLogger(logger)

	fetcher, err := o.newFetcher(ctx, cfg, logger)
	if err != nil {
		return reportError(reporter, err)
	}

	reg, m := metrics.NewRegistry()
	res, err := gate.Run(ctx, cfg, gate.Options{Fetcher: fetcher, Logger: logger, Metrics: m})
	if err != nil {
		return err
	}

	reporter.Report(res.Outcomes)
	if cfg.LogLevel == log.LevelDebug {
		reporter.DebugFindings(res.Findings)
	}
	writeArtifacts(ctx, cfg, res, reporter, reg, logger)

	if cfg.SummaryPath == "" {
		if err := report.NewRunSummary(res).Write(o.stdout, cfg.OutputFormat); err != nil {
			logger.WarnContext(ctx, "failed to write run summary", "error", err)
		}
	}

	return res.Err()
}

// newLogger logs to stderr. Debug runs, including RUNNER_DEBUG, also
// record source locations.
func newLogger(cfg config.Config, w io.Writer) *log.Logger {
	lc := log.DefaultConfig()
	if cfg.LogLevel == log.LevelDebug {
		lc = log.DebugConfig()
	}
	lc.Level = cfg.LogLevel
	lc.Format = cfg.LogFormat
	lc.Output = w
	lc.ServiceVersion = version.GetInfo().Version
	return log.New(lc).With("run_id", cfg.RunID)
}

// writeArtifacts writes step outputs, the job summary, the run summary file,
// SARIF and metrics. Failures are logged; they never change the gate's outcome.
func writeArtifacts(ctx context.Context, cfg config.Config, res *gate.Result, reporter *actions.Reporter, reg prometheus.Gatherer, logger *log.Logger) {
	write := func(what, path string, fn func() error) {
		if path == "" {
			return
		}
		if err := fn(); err != nil {
			logger.WithError(gateerrors.Wrap(gateerrors.ErrCodeFileWriteFailed, "failed to write "+what, err)).
				WarnContext(ctx, "artifact not written", "path", path)
			return
		}
		logger.DebugContext(ctx, "artifact written", "artifact", what, "path", path)
	}

	write("step outputs", cfg.OutputPath, func() error {
		return reporter.SetOutputs(actions.Outputs(res))
	})
	write("job summary", cfg.StepSummaryPath, func() error {
		return reporter.AddStepSummary(actions.RenderSummary(res))
	})
	write("run summary", cfg.SummaryPath, func() error {
		return report.NewRunSummary(res).Save(cfg.SummaryPath, cfg.OutputFormat)
	})
	write("SARIF report", cfg.SARIFPath, func() error {
		return report.SaveSARIF(report.ToSARIF(res), cfg.SARIFPath)
	})
	write("metrics", cfg.MetricsPath, func() error {
		return metrics.WriteTextfile(cfg.MetricsPath, reg)
	})
}

// reportedError marks an error that was already raised as an annotation
type reportedError struct {
	err error
}

func (e *reportedError) Error() string { return e.err.Error() }
func (e *reportedError) Unwrap() error { return e.err }

// reportError raises err as an error annotation, with its suggestions as
// plain lines, and marks it reported.
func reportError(reporter *actions.Reporter, err error) error {
	var ge *gateerrors.GateError
	if !errors.As(err, &ge) {
		reporter.Error(err.Error())
		return &reportedError{err: err}
	}

	reporter.Error(ge.Summary())
	for _, s := range ge.Suggestions {
		reporter.Info("  • " + s)
	}
	if ge.DocsURL != "" {
		reporter.Info("  Documentation: " + ge.DocsURL)
	}
	return &reportedError{err: err}
}

// Reported reports whether err was already surfaced to the runner as
// annotations, so it should not be printed again.
func Reported(err error) bool {
	var re *reportedError
	return errors.As(err, &re) || gate.IsFailure(err)
}

// Execute runs the root command
func Execute() error {
	return ExecuteContext(context.Background())
}

// ExecuteContext runs the root command with ctx, which is cancelled on interrupt
func ExecuteContext(ctx context.Context) error {
	return NewRootCommand().ExecuteContext(ctx)
}
