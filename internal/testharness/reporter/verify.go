package reporter

import (
	"errors"

	"github.com/omnitrix21/android-frameworks-av/internal/testharness/engine"
	"github.com/omnitrix21/android-frameworks-av/internal/testharness/loader"
	"github.com/omnitrix21/android-frameworks-av/pkg/verify"
)

// FromVerify converts built-in scenario results into a suite so they can
// be written by any Reporter. Each failed check becomes a failed step
// carrying its diagnostic.
func FromVerify(name string, results verify.Results) *engine.SuiteResult {
	suite := &engine.SuiteResult{SuiteName: name}
	for _, cr := range results {
		tr := &engine.TestResult{
			TestCase:   &loader.TestCase{ID: cr.Name, Name: cr.Name},
			Passed:     cr.Passed(),
			Skipped:    cr.Skipped(),
			SkipReason: cr.SkipReason,
			Duration:   cr.Duration,
			Error:      cr.Err(),
		}
		for i, f := range cr.Failures {
			tr.StepResults = append(tr.StepResults, &engine.StepResult{
				Step:      &loader.Step{Action: f.Check},
				StepIndex: i,
				Error:     errors.New(f.String()),
				Output:    map[string]interface{}{DiagnosticKey: f.Diagnostic},
			})
			tr.Fatal = tr.Fatal || f.Fatal
		}

		suite.Duration += cr.Duration
		suite.Results = append(suite.Results, tr)
		switch {
		case tr.Skipped:
			suite.SkipCount++
		case tr.Passed:
			suite.PassCount++
		default:
			suite.FailCount++
		}
	}
	return suite
}
