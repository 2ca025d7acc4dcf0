package alerts

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/go-github/v73/github"
	"golang.org/x/oauth2"

	gateerrors "github.com/felixgeelhaar/alertgate/internal/errors"
	"github.com/felixgeelhaar/alertgate/internal/log"
	"github.com/felixgeelhaar/alertgate/internal/version"
)

// pageSize is the single page fetched from every source
const pageSize = 100

// DefaultAPIURL is the public GitHub REST endpoint
const DefaultAPIURL = "https://api.github.com"

// ClientOptions configures the GitHub API client
type ClientOptions struct {
	// Token authenticates requests; empty sends anonymous requests
	Token string

	// APIURL is the REST base URL (GITHUB_API_URL on Actions runners)
	APIURL string

	// GraphQLURL is the GraphQL endpoint; derived from APIURL when empty
	GraphQLURL string

	// HTTPClient is the base transport; http.DefaultClient when nil
	HTTPClient *http.Client
}

// GitHubFetcher implements Fetcher on the GitHub REST and GraphQL APIs
type GitHubFetcher struct {
	client     *github.Client
	graphqlURL string
	logger     *log.Logger
}

// NewGitHubFetcher creates a fetcher for the configured GitHub instance
func NewGitHubFetcher(ctx context.Context, opts ClientOptions, logger *log.Logger) (*GitHubFetcher, error) {
	httpClient := opts.HTTPClient
	if opts.Token != "" {
		if httpClient != nil {
			ctx = context.WithValue(ctx, oauth2.HTTPClient, httpClient)
		}
		httpClient = oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: opts.Token}))
	}

	client := github.NewClient(httpClient)
	client.UserAgent = version.GetInfo().UserAgent()

	apiURL := opts.APIURL
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	if !strings.HasSuffix(apiURL, "/") {
		apiURL += "/"
	}
	baseURL, err := url.Parse(apiURL)
	if err != nil {
		return nil, fmt.Errorf("invalid API URL %q: %w", opts.APIURL, err)
	}
	client.BaseURL = baseURL

	graphqlURL := opts.GraphQLURL
	if graphqlURL == "" {
		graphqlURL = baseURL.ResolveReference(&url.URL{Path: "graphql"}).String()
	}

	if logger == nil {
		logger = log.DefaultLogger()
	}

	return &GitHubFetcher{
		client:     client,
		graphqlURL: graphqlURL,
		logger:     logger.WithGroup("github"),
	}, nil
}

// CodeScanAlerts lists open code scanning alerts
func (f *GitHubFetcher) CodeScanAlerts(ctx context.Context, repo Repository) ([]CodeScanAlert, error) {
	opts := &github.AlertListOptions{
		State:       "open",
		ListOptions: github.ListOptions{PerPage: pageSize},
	}

	raw, _, err := f.client.CodeScanning.ListAlertsForRepo(ctx, repo.Owner, repo.Name, opts)
	if err != nil {
		if isNoAnalysis(err) {
			f.logger.DebugContext(ctx, "code scanning has no analysis", "repository", repo.String())
			return nil, ErrNoAnalysis
		}
		return nil, classify(SourceCodeScanning, err)
	}

	result := make([]CodeScanAlert, 0, len(raw))
	for _, a := range raw {
		rule := a.GetRule()
		result = append(result, CodeScanAlert{
			Number:  a.GetNumber(),
			State:   a.GetState(),
			HTMLURL: a.GetHTMLURL(),
			Rule: CodeScanRule{
				ID:                    rule.GetID(),
				Description:           rule.GetDescription(),
				Severity:              rule.GetSeverity(),
				SecuritySeverityLevel: rule.GetSecuritySeverityLevel(),
			},
		})
	}

	f.logger.DebugContext(ctx, "code scanning alerts fetched",
		"repository", repo.String(), "count", len(result), "alerts", result)
	return result, nil
}

// SecretScanAlerts lists open secret scanning alerts
func (f *GitHubFetcher) SecretScanAlerts(ctx context.Context, repo Repository) ([]SecretScanAlert, error) {
	opts := &github.SecretScanningAlertListOptions{
		State:       "open",
		ListOptions: github.ListOptions{PerPage: pageSize},
	}

	raw, _, err := f.client.SecretScanning.ListAlertsForRepo(ctx, repo.Owner, repo.Name, opts)
	if err != nil {
		return nil, classify(SourceSecretScanning, err)
	}

	result := make([]SecretScanAlert, 0, len(raw))
	for _, a := range raw {
		result = append(result, SecretScanAlert{
			Number:     a.GetNumber(),
			State:      a.GetState(),
			SecretType: a.GetSecretType(),
			HTMLURL:    a.GetHTMLURL(),
		})
	}

	f.logger.DebugContext(ctx, "secret scanning alerts fetched",
		"repository", repo.String(), "count", len(result), "alerts", result)
	return result, nil
}

func isNoAnalysis(err error) bool {
	var errResp *github.ErrorResponse
	if !errors.As(err, &errResp) || errResp.Response == nil {
		return false
	}
	return errResp.Response.StatusCode == http.StatusNotFound &&
		strings.Contains(strings.ToLower(errResp.Message), ErrNoAnalysis.Error())
}

// classify converts a go-github error into a coded error for the source
func classify(source Source, err error) error {
	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) {
		return gateerrors.NewGitHubRequestError(source.String(), err).
			WithSuggestion(fmt.Sprintf("Rate limit resets at %s", rateErr.Rate.Reset.Time.UTC().Format("15:04:05 MST")))
	}

	var errResp *github.ErrorResponse
	if errors.As(err, &errResp) && errResp.Response != nil {
		switch errResp.Response.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return gateerrors.NewGitHubAuthError(source.String(), err)
		}
		return gateerrors.NewGitHubRequestError(source.String(), err)
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return gateerrors.NewGitHubNetworkError(source.String(), err)
	}

	return gateerrors.NewGitHubRequestError(source.String(), err)
}
