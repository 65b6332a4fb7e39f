// Package verify runs routing checks against an audio platform.
//
// Two scenarios are provided. PerformanceMode checks that LOW_LATENCY and
// DEEP_BUFFER playback lands on a FAST or DEEP_BUFFER output when the
// policy declares one routed to an attached device. RemoteSubmix checks
// that capture from and playback to the remote submix are routed to the
// remote submix device ports.
//
// Failures are either fatal, aborting the case, or recorded with a
// diagnostic while the case continues.
package verify

import (
	"context"
	"fmt"
	"time"

	"github.com/omnitrix21/android-frameworks-av/pkg/log"
	"github.com/omnitrix21/android-frameworks-av/pkg/platform"
	"github.com/omnitrix21/android-frameworks-av/pkg/policy"
)

// Verifier runs the routing scenarios.
type Verifier struct {
	// Platform is the audio system under test.
	Platform platform.Platform

	// Config is the routing policy of the platform.
	Config *policy.Config

	// Mode selects how flags and route sources are matched.
	Mode policy.MatchMode

	// Resource is the PCM file played by playback streams.
	// Defaults to platform.DefaultResourcePath.
	Resource string

	// Timeout bounds the wait for a device callback.
	// Defaults to platform.DefaultCallbackTimeout.
	Timeout time.Duration

	// Events receives check outcomes. Nil discards them.
	Events *log.Emitter

	// PolicyErr is the error from loading Config. When set, every case
	// fails its policy_load check instead of running.
	PolicyErr error
}

func (v *Verifier) resource() string {
	if v.Resource == "" {
		return platform.DefaultResourcePath
	}
	return v.Resource
}

func (v *Verifier) timeout() time.Duration {
	if v.Timeout <= 0 {
		return platform.DefaultCallbackTimeout
	}
	return v.Timeout
}

// Run executes both scenarios.
func (v *Verifier) Run(ctx context.Context) Results {
	out := v.PerformanceMode(ctx)
	return append(out, v.RemoteSubmix(ctx))
}

// caseRun records checks for one case.
type caseRun struct {
	v     *Verifier
	res   *CaseResult
	start time.Time
}

func (v *Verifier) begin(name string) *caseRun {
	return &caseRun{v: v, res: &CaseResult{Name: name}, start: time.Now()}
}

// check records a non-fatal check and reports whether it held.
func (c *caseRun) check(name string, ok bool, diag string, format string, args ...any) bool {
	c.res.Checks++
	f := Failure{Check: name}
	if !ok {
		f.Message = fmt.Sprintf(format, args...)
		f.Diagnostic = diag
		c.res.Failures = append(c.res.Failures, f)
	}
	c.emit(f, ok)
	return ok
}

// policyLoaded records the policy_load check. A case must not run, or
// skip, on a policy that did not load.
func (c *caseRun) policyLoaded() bool {
	return c.must("policy_load", c.v.PolicyErr)
}

// must records a check whose failure aborts the case.
func (c *caseRun) must(name string, err error) bool {
	c.res.Checks++
	if err == nil {
		c.emit(Failure{Check: name}, true)
		return true
	}
	f := Failure{Check: name, Message: err.Error(), Fatal: true}
	c.res.Failures = append(c.res.Failures, f)
	c.emit(f, false)
	return false
}

func (c *caseRun) emit(f Failure, passed bool) {
	c.v.Events.Emit(log.Event{
		TestID:   c.res.Name,
		Layer:    log.LayerVerifier,
		Category: log.CategoryCheck,
		Check: &log.CheckEvent{
			Name:       f.Check,
			Passed:     passed,
			Fatal:      f.Fatal,
			Message:    f.Message,
			Diagnostic: f.Diagnostic,
		},
	})
}

func (c *caseRun) skip(reason string) *CaseResult {
	c.res.Status = StatusSkipped
	c.res.SkipReason = reason
	c.v.Events.Emit(log.Event{
		TestID:   c.res.Name,
		Layer:    log.LayerVerifier,
		Category: log.CategoryCheck,
		Check:    &log.CheckEvent{Name: "skip", Passed: true, Message: reason},
	})
	return c.finish()
}

func (c *caseRun) finish() *CaseResult {
	c.res.Duration = time.Since(c.start)
	if c.res.Status != StatusSkipped {
		c.res.Status = StatusPassed
		if len(c.res.Failures) > 0 {
			c.res.Status = StatusFailed
		}
	}
	return c.res
}
