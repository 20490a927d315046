package harness

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
)

// SuiteResult summarizes a directory of scenarios.
type SuiteResult struct {
	Total    int               `json:"total"`
	Passed   int               `json:"passed"`
	Failed   int               `json:"failed"`
	Failures []ScenarioFailure `json:"failures,omitempty"`
}

// ScenarioFailure is one scenario that did not pass.
type ScenarioFailure struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}

// RunDir loads and runs every *.yaml scenario in dir, in name order.
// Catalogue paths are resolved relative to dir. A scenario that fails to
// load, fails to run, or fails an assertion counts as failed; RunDir
// itself only errors when dir cannot be listed.
func RunDir(dir string) (*SuiteResult, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		if _, err := os.Stat(dir); err != nil {
			return nil, err
		}
	}
	slices.Sort(paths)

	result := &SuiteResult{}
	for _, path := range paths {
		result.Total++

		scenario, err := LoadScenarioWithBasePath(path, dir)
		if err != nil {
			result.fail(path, fmt.Sprintf("failed to load scenario: %v", err))
			continue
		}

		runResult, err := Run(scenario)
		if err != nil {
			result.fail(path, fmt.Sprintf("scenario execution failed: %v", err))
			continue
		}

		if !runResult.Pass {
			result.fail(path, fmt.Sprintf("scenario assertions failed: %v", runResult.Errors))
			continue
		}

		result.Passed++
	}

	return result, nil
}

func (r *SuiteResult) fail(path, msg string) {
	r.Failed++
	r.Failures = append(r.Failures, ScenarioFailure{Path: path, Error: msg})
}
