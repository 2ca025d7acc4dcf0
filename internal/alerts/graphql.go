package alerts

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	gateerrors "github.com/felixgeelhaar/alertgate/internal/errors"
	"github.com/felixgeelhaar/alertgate/internal/log"
)

const dependencyAlertsQuery = `query ($org: String!, $repository: String!) {
  repository(owner: $org, name: $repository) {
    vulnerabilityAlerts(first: 100) {
      nodes {
        createdAt
        state
        securityVulnerability {
          package {
            name
          }
          severity
          advisory {
            description
          }
        }
      }
    }
  }
}`

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type graphQLError struct {
	Message string `json:"message"`
}

type dependencyAlertsResponse struct {
	Data *struct {
		Repository *struct {
			VulnerabilityAlerts *struct {
				Nodes []dependencyAlertNode `json:"nodes"`
			} `json:"vulnerabilityAlerts"`
		} `json:"repository"`
	} `json:"data"`
	Errors []graphQLError `json:"errors"`
}

type dependencyAlertNode struct {
	CreatedAt             time.Time              `json:"createdAt"`
	State                 string                 `json:"state"`
	SecurityVulnerability *SecurityVulnerability `json:"securityVulnerability"`
}

// DependencyAlerts runs the vulnerabilityAlerts GraphQL query
func (f *GitHubFetcher) DependencyAlerts(ctx context.Context, repo Repository) ([]DependencyAlert, error) {
	body := graphQLRequest{
		Query: dependencyAlertsQuery,
		Variables: map[string]any{
			"org":        repo.Owner,
			"repository": repo.Name,
		},
	}

	req, err := f.client.NewRequest(http.MethodPost, f.graphqlURL, body)
	if err != nil {
		return nil, gateerrors.NewGitHubRequestError(SourceDependency.String(), err)
	}

	var resp dependencyAlertsResponse
	if _, err := f.client.Do(ctx, req, &resp); err != nil {
		return nil, classify(SourceDependency, err)
	}

	if f.logger.Enabled(ctx, log.LevelDebug) {
		raw, _ := json.Marshal(resp)
		f.logger.DebugContext(ctx, "dependency alerts query returned", "repository", repo.String(), "response", string(raw))
	}

	return decodeDependencyAlerts(resp)
}

func decodeDependencyAlerts(resp dependencyAlertsResponse) ([]DependencyAlert, error) {
	source := SourceDependency.String()

	if len(resp.Errors) > 0 {
		msgs := make([]string, 0, len(resp.Errors))
		for _, e := range resp.Errors {
			msgs = append(msgs, e.Message)
		}
		return nil, gateerrors.NewGitHubResponseError(source, strings.Join(msgs, "; "))
	}
	if resp.Data == nil || resp.Data.Repository == nil {
		return nil, gateerrors.NewGitHubResponseError(source, "repository missing from response")
	}
	if resp.Data.Repository.VulnerabilityAlerts == nil {
		return nil, gateerrors.NewGitHubResponseError(source, "vulnerabilityAlerts missing from response")
	}

	nodes := resp.Data.Repository.VulnerabilityAlerts.Nodes
	result := make([]DependencyAlert, 0, len(nodes))
	for _, n := range nodes {
		if n.SecurityVulnerability == nil {
			return nil, gateerrors.NewGitHubResponseError(source, "securityVulnerability missing from alert node")
		}
		result = append(result, DependencyAlert{
			CreatedAt:             n.CreatedAt,
			State:                 n.State,
			SecurityVulnerability: *n.SecurityVulnerability,
		})
	}
	return result, nil
}
