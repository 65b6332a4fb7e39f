package runner

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/omnitrix21/android-frameworks-av/internal/testharness/engine"
	"github.com/omnitrix21/android-frameworks-av/internal/testharness/loader"
	"github.com/omnitrix21/android-frameworks-av/pkg/verify"
)

// registerScenarioHandlers registers the built-in scenario handlers.
func (r *Runner) registerScenarioHandlers() {
	r.engine.RegisterHandler(ActionVerifyPerformanceMode, r.handleVerifyPerformanceMode)
	r.engine.RegisterHandler(ActionVerifyRemoteSubmix, r.handleVerifyRemoteSubmix)
}

func (r *Runner) verifier(e *env) *verify.Verifier {
	return &verify.Verifier{
		Platform: e.platform,
		Config:   e.policy,
		Mode:     e.mode,
		Resource: r.resource(),
		Timeout:  r.callbackTimeout(),
		Events:   r.events,
	}
}

// handleVerifyPerformanceMode runs the performance mode scenario. With a
// tag parameter only that case runs, and a skipped case skips the test.
func (r *Runner) handleVerifyPerformanceMode(ctx context.Context, step *loader.Step, state *engine.ExecutionState) (map[string]any, error) {
	e := getEnv(state)
	if e == nil {
		return nil, errors.New("no routing environment")
	}
	params := r.params(step, state)
	v := r.verifier(e)

	tag := paramString(params, ParamTag, "")
	if tag == "" {
		return scenarioOutputs(v.PerformanceMode(ctx)), nil
	}
	if !strings.HasPrefix(tag, "AUDIO_OUTPUT_FLAG_") {
		tag = "AUDIO_OUTPUT_FLAG_" + tag
	}
	for _, tc := range verify.PerformanceModeCases {
		if tc.Tag == tag {
			return caseOutputs(v.PerformanceModeCase(ctx, tc))
		}
	}
	return nil, fmt.Errorf("no performance mode case for %s", tag)
}

// handleVerifyRemoteSubmix runs the remote submix scenario.
func (r *Runner) handleVerifyRemoteSubmix(ctx context.Context, step *loader.Step, state *engine.ExecutionState) (map[string]any, error) {
	e := getEnv(state)
	if e == nil {
		return nil, errors.New("no routing environment")
	}
	return caseOutputs(r.verifier(e).RemoteSubmix(ctx))
}

// caseOutputs converts one case result. A skipped case skips the test.
func caseOutputs(cr *verify.CaseResult) (map[string]any, error) {
	if cr.Skipped() {
		return nil, engine.Skip("%s", cr.SkipReason)
	}
	out := scenarioOutputs(verify.Results{cr})
	out[KeyCaseStatus] = cr.Status.String()
	out[KeyFatal] = cr.Fatal()
	out[KeyIO] = int(cr.IO)
	out[KeyDeviceID] = int(cr.DeviceID)
	if cr.Path.Port.Name != "" {
		out[KeyMixPort] = cr.Path.Port.Name
		out[KeySink] = cr.Path.Sink()
	}
	return out, nil
}

// scenarioOutputs summarizes results. Diagnostics of every failure are
// joined into the diagnostic output.
func scenarioOutputs(results verify.Results) map[string]any {
	var (
		checks int
		failed []any
		diag   strings.Builder
	)
	for _, cr := range results {
		checks += cr.Checks
		for _, f := range cr.Failures {
			failed = append(failed, f.Check)
			if f.Diagnostic != "" {
				fmt.Fprintf(&diag, "%s %s:\n%s", cr.Name, f.Check, f.Diagnostic)
			}
		}
	}
	status := verify.StatusPassed
	switch {
	case len(results.Failed()) > 0:
		status = verify.StatusFailed
	case allSkipped(results):
		status = verify.StatusSkipped
	}
	return map[string]any{
		KeyPassed:       len(results.Failed()) == 0,
		KeyStatus:       status.String(),
		KeyChecks:       checks,
		KeyFailureCount: len(failed),
		KeyFailedChecks: failed,
		KeyDiagnostic:   diag.String(),
	}
}

func allSkipped(results verify.Results) bool {
	for _, cr := range results {
		if !cr.Skipped() {
			return false
		}
	}
	return len(results) > 0
}
