// Package config resolves the gate configuration once, at startup, from
// command-line flags, GitHub Actions inputs, an optional YAML file and the
// ambient workflow context.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/sethvargo/go-githubactions"

	"github.com/felixgeelhaar/alertgate/internal/alerts"
	gateerrors "github.com/felixgeelhaar/alertgate/internal/errors"
	"github.com/felixgeelhaar/alertgate/internal/log"
	"github.com/felixgeelhaar/alertgate/internal/severity"
)

// Input names, shared by flags and action inputs
const (
	KeyRepository    = "repository"
	KeySeverity      = "severity"
	KeyAllowNotFound = "allow-not-found"
	KeyFailAction    = "fail-action"
	KeyToken         = "token"
	KeyAPIURL        = "api-url"
	KeyGraphQLURL    = "graphql-url"
	KeyConfig        = "config"
	KeyLogLevel      = "log-level"
	KeyLogFormat     = "log-format"
	KeyFormat        = "format"
	KeySARIF         = "sarif"
	KeyMetricsFile   = "metrics-file"
	KeySummaryFile   = "summary-file"
)

// Output formats for the run summary
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Config is the immutable configuration of one run
type Config struct {
	Repository           alerts.Repository
	Threshold            severity.Label
	AllowMissingAnalysis bool
	FailOnFinding        bool

	Token      string
	APIURL     string
	GraphQLURL string

	LogLevel  log.Level
	LogFormat log.Format

	OutputFormat string
	// SummaryPath receives the run summary. Empty means stdout, which only
	// the text format may share with workflow commands.
	SummaryPath string
	SARIFPath   string
	MetricsPath string

	// Paths provided by the Actions runner; empty outside a workflow
	StepSummaryPath string
	OutputPath      string

	RunID string
}

// Sources are the raw inputs to Resolve
type Sources struct {
	// Flags holds only the flags explicitly set on the command line
	Flags map[string]string
	// Getenv looks up environment variables; nil means os.Getenv
	Getenv func(string) string
}

// Resolve builds a Config. Precedence per setting is flag, action input,
// config file, then default.
func Resolve(src Sources) (Config, error) {
	getenv := src.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	r := resolver{
		flags:  src.Flags,
		getenv: getenv,
		action: githubactions.New(githubactions.WithGetenv(getenv)),
		file:   &File{},
	}

	if path := r.input(KeyConfig); path != "" {
		f, err := LoadFile(path)
		if err != nil {
			return Config{}, gateerrors.NewConfigFileError(path, err)
		}
		r.file = f
	}

	cfg := Config{
		AllowMissingAnalysis: r.input(KeyAllowNotFound, boolString(r.file.AllowNotFound)) == "true",
		FailOnFinding:        r.input(KeyFailAction, boolString(r.file.FailAction)) == "true",
		Token:                r.first(r.flag(KeyToken), r.action.GetInput(KeyToken), getenv("GITHUB_TOKEN")),
		APIURL:               r.first(r.flag(KeyAPIURL), getenv("GITHUB_API_URL"), r.file.APIURL),
		GraphQLURL:           r.first(r.flag(KeyGraphQLURL), getenv("GITHUB_GRAPHQL_URL"), r.file.GraphQLURL),
		SARIFPath:            r.input(KeySARIF, r.file.SARIF),
		MetricsPath:          r.input(KeyMetricsFile, r.file.MetricsFile),
		SummaryPath:          r.input(KeySummaryFile, r.file.SummaryFile),
		StepSummaryPath:      getenv("GITHUB_STEP_SUMMARY"),
		OutputPath:           getenv("GITHUB_OUTPUT"),
		RunID:                uuid.NewString(),
	}

	repo, err := r.repository()
	if err != nil {
		return Config{}, err
	}
	cfg.Repository = repo

	cfg.Threshold, err = severity.ParseLabel(r.input(KeySeverity, r.file.Severity))
	if err != nil {
		return Config{}, gateerrors.NewSeverityError(err)
	}

	cfg.OutputFormat = r.input(KeyFormat, r.file.Format)
	switch cfg.OutputFormat {
	case "":
		cfg.OutputFormat = FormatText
	case FormatText, FormatJSON, FormatYAML:
	default:
		return Config{}, gateerrors.New(gateerrors.ErrCodeConfigFormat,
			fmt.Sprintf("unsupported output format %q", cfg.OutputFormat)).
			WithSuggestion("Use one of: text, json, yaml")
	}
	if cfg.OutputFormat != FormatText && cfg.SummaryPath == "" {
		return Config{}, gateerrors.New(gateerrors.ErrCodeConfigFormat,
			fmt.Sprintf("output format %q needs a summary file", cfg.OutputFormat)).
			WithSuggestions(
				"Set --summary-file or the summary-file input",
				"Stdout carries workflow commands, so only the text format can share it",
			)
	}

	level := r.input(KeyLogLevel, r.file.Log.Level)
	if level == "" && getenv("RUNNER_DEBUG") == "1" {
		level = "debug"
	}
	cfg.LogLevel = log.ParseLevel(level)
	cfg.LogFormat = log.ParseFormat(r.input(KeyLogFormat, r.file.Log.Format))

	return cfg, nil
}

type resolver struct {
	flags  map[string]string
	getenv func(string) string
	action *githubactions.Action
	file   *File
}

func (r resolver) flag(name string) string {
	return strings.TrimSpace(r.flags[name])
}

// input resolves a setting from its flag, then its action input, then fallbacks
func (r resolver) input(name string, fallbacks ...string) string {
	values := append([]string{r.flag(name), r.action.GetInput(name)}, fallbacks...)
	return r.first(values...)
}

func (r resolver) first(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// repository resolves owner/name, falling back to the workflow event payload
// and then GITHUB_REPOSITORY.
func (r resolver) repository() (alerts.Repository, error) {
	name := r.input(KeyRepository, r.file.Repository)
	if name == "" {
		name = r.workflowRepository()
	}
	if name == "" {
		return alerts.Repository{}, gateerrors.NewRepositoryError("")
	}

	repo, err := alerts.ParseRepository(name)
	if err != nil {
		return alerts.Repository{}, gateerrors.NewRepositoryError(name)
	}
	return repo, nil
}

// workflowRepository prefers repository.full_name from the event payload.
// An unreadable payload falls back to GITHUB_REPOSITORY.
func (r resolver) workflowRepository() string {
	ghctx, err := r.action.Context()
	if err != nil {
		return strings.TrimSpace(r.getenv("GITHUB_REPOSITORY"))
	}
	if repo, ok := ghctx.Event["repository"].(map[string]any); ok {
		if name, ok := repo["full_name"].(string); ok && strings.TrimSpace(name) != "" {
			return strings.TrimSpace(name)
		}
	}
	return strings.TrimSpace(ghctx.Repository)
}
