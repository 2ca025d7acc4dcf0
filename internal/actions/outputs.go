package actions

import (
	"maps"
	"slices"
	"strconv"

	"github.com/felixgeelhaar/alertgate/internal/gate"
)

// Step output names
const (
	OutputCodeScanCount   = "code-scan-count"
	OutputDependencyCount = "dependency-count"
	OutputSecretScanCount = "secret-scan-count"
	OutputResult          = "result"
)

// Outputs returns the step outputs for a run
func Outputs(res *gate.Result) map[string]string {
	return map[string]string{
		OutputCodeScanCount:   strconv.Itoa(res.Retained.CodeScan),
		OutputDependencyCount: strconv.Itoa(res.Retained.Dependency),
		OutputSecretScanCount: strconv.Itoa(res.Retained.SecretScan),
		OutputResult:          res.Status(),
	}
}

// SetOutputs appends outputs to the GITHUB_OUTPUT file in key order
func (r *Reporter) SetOutputs(outputs map[string]string) error {
	return r.fileCommand("GITHUB_OUTPUT", func() {
		for _, k := range slices.Sorted(maps.Keys(outputs)) {
			r.action.SetOutput(k, outputs[k])
		}
	})
}
