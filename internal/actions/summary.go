package actions

import (
	"fmt"
	"strings"

	"github.com/felixgeelhaar/alertgate/internal/gate"
)

var statusIcons = map[string]string{
	gate.StatusSuccess: "✅",
	gate.StatusWarning: "⚠️",
	gate.StatusFailure: "❌",
}

// RenderSummary renders a run as GitHub-flavored Markdown for the job summary
func RenderSummary(res *gate.Result) string {
	var b strings.Builder

	status := res.Status()
	fmt.Fprintf(&b, "## %s Security alerts for %s\n\n", statusIcons[status], res.Repository)
	fmt.Fprintf(&b, "Threshold: **%s** · Result: **%s**\n\n", res.Threshold, status)

	if res.Aborted {
		b.WriteString("Alert fetching was aborted; counts are incomplete.\n\n")
	}

	b.WriteString("| Source | Open | At or above threshold |\n")
	b.WriteString("|---|---:|---:|\n")
	fmt.Fprintf(&b, "| Code scanning | %d | %d |\n", res.Fetched.CodeScan, res.Retained.CodeScan)
	fmt.Fprintf(&b, "| Dependabot | %d | %d |\n", res.Fetched.Dependency, res.Retained.Dependency)
	fmt.Fprintf(&b, "| Secret scanning | %d | %d |\n", res.Fetched.SecretScan, res.Retained.SecretScan)

	if len(res.Findings.Dependency) > 0 {
		b.WriteString("\n### Vulnerable dependencies\n\n")
		b.WriteString("| Package | Severity | Advisory |\n|---|---|---|\n")
		for _, a := range res.Findings.Dependency {
			v := a.SecurityVulnerability
			fmt.Fprintf(&b, "| %s | %s | %s |\n", cell(v.Package.Name), cell(v.Severity), cell(firstLine(v.Advisory.Description)))
		}
	}

	if len(res.Outcomes) > 0 {
		b.WriteString("\n")
		for _, o := range res.Outcomes {
			for _, line := range strings.Split(o.Message, "\n") {
				fmt.Fprintf(&b, "- %s\n", line)
			}
		}
	}

	return b.String()
}

// AddStepSummary appends markdown to the GITHUB_STEP_SUMMARY file
func (r *Reporter) AddStepSummary(markdown string) error {
	return r.fileCommand("GITHUB_STEP_SUMMARY", func() {
		r.action.AddStepSummary(strings.TrimRight(markdown, "\n"))
	})
}

func cell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

func firstLine(s string) string {
	if i := strings.IndexAny(s, "\r\n"); i >= 0 {
		return s[:i]
	}
	return s
}
