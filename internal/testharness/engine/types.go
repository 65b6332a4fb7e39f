// Package engine provides test execution orchestration for the routing test harness.
package engine

import (
	"context"
	"strings"
	"time"

	"github.com/omnitrix21/android-frameworks-av/internal/testharness/loader"
	"github.com/omnitrix21/android-frameworks-av/pkg/log"
)

// TestResult represents the outcome of a single test case.
type TestResult struct {
	// TestCase is the test case that was executed.
	TestCase *loader.TestCase

	// Passed indicates if all steps passed.
	Passed bool

	// Fatal is set when a failed step aborted the remaining steps.
	Fatal bool

	// Error is the first failure, if any.
	Error error

	// StepResults contains results for each executed step.
	StepResults []*StepResult

	// Duration is how long the test took.
	Duration time.Duration

	// StartTime when the test started.
	StartTime time.Time

	// EndTime when the test finished.
	EndTime time.Time

	// Skipped indicates the test could not run on this platform: a missing
	// capability, a skip in the definition, or a handler skip.
	Skipped bool

	// SkipReason explains why the test was skipped.
	SkipReason string
}

func (r *TestResult) skip(reason string) *TestResult {
	r.Skipped = true
	r.SkipReason = reason
	r.Passed = false
	r.Error = nil
	return r
}

func (r *TestResult) finish() {
	r.EndTime = time.Now()
	r.Duration = r.EndTime.Sub(r.StartTime)
}

// FailedSteps returns the steps that did not pass.
func (r *TestResult) FailedSteps() []*StepResult {
	var out []*StepResult
	for _, sr := range r.StepResults {
		if !sr.Passed {
			out = append(out, sr)
		}
	}
	return out
}

// StepResult represents the outcome of a single step.
type StepResult struct {
	// Step is the step that was executed.
	Step *loader.Step

	// StepIndex is the index of this step (0-based).
	StepIndex int

	// Passed indicates if the step passed.
	Passed bool

	// Error is the handler error or the first failed expectation.
	Error error

	// ExpectResults maps expectation keys to their results.
	ExpectResults map[string]*ExpectResult

	// Duration is how long the step took.
	Duration time.Duration

	// Output holds the values the handler returned.
	Output map[string]interface{}
}

// ExpectResult represents the result of checking an expectation.
type ExpectResult struct {
	// Key is the expectation key (e.g., "sink_device").
	Key string

	// Expected is the expected value.
	Expected interface{}

	// Actual is the actual value.
	Actual interface{}

	// Passed indicates if the expectation was met.
	Passed bool

	// Message describes the result.
	Message string
}

// SuiteResult represents the outcome of running a test suite.
type SuiteResult struct {
	SuiteName string
	Results   []*TestResult
	PassCount int
	FailCount int
	SkipCount int
	Duration  time.Duration
}

// ActionHandler processes a test step action. It returns outputs made
// available to the step's expectations and later steps. Returning a
// SkipError skips the test case.
type ActionHandler func(ctx context.Context, step *loader.Step, state *ExecutionState) (map[string]interface{}, error)

// ExpectChecker checks an expectation against actual results.
type ExpectChecker func(key string, expected interface{}, state *ExecutionState) *ExpectResult

// ExecutionState holds state during test execution.
type ExecutionState struct {
	// TestID is the ID of the running test case.
	TestID string

	// Outputs accumulated from previous steps.
	Outputs map[string]interface{}

	// Context for cancellation.
	Context context.Context

	// Custom state that handlers can use (streams, notifiers).
	Custom map[string]interface{}
}

// NewExecutionState creates a new execution state.
func NewExecutionState(ctx context.Context) *ExecutionState {
	return &ExecutionState{
		Outputs: make(map[string]interface{}),
		Custom:  make(map[string]interface{}),
		Context: ctx,
	}
}

// Get retrieves an output. "{{ key }}" is accepted for key.
func (s *ExecutionState) Get(key string) (interface{}, bool) {
	if ref, ok := templateRef(key); ok {
		key = ref
	}
	v, ok := s.Outputs[key]
	return v, ok
}

// Set stores a value in outputs.
func (s *ExecutionState) Set(key string, value interface{}) {
	s.Outputs[key] = value
}

func templateRef(s string) (string, bool) {
	if len(s) <= 4 || !strings.HasPrefix(s, "{{") || !strings.HasSuffix(s, "}}") {
		return "", false
	}
	return strings.TrimSpace(s[2 : len(s)-2]), true
}

// EngineConfig configures the test engine.
type EngineConfig struct {
	// DefaultTimeout is the default timeout for test cases.
	DefaultTimeout time.Duration

	// StepTimeout is the default timeout for individual steps.
	StepTimeout time.Duration

	// SuiteTimeout bounds RunSuite. Zero derives it from the test timeouts.
	SuiteTimeout time.Duration

	// StopOnFirstFailure stops execution after the first test failure.
	StopOnFirstFailure bool

	// Capabilities gate test cases by their requirements. Nil runs
	// everything.
	Capabilities *loader.CapabilityFile

	// Events receives a check event per expectation and an error event
	// per failed handler. Nil discards them.
	Events *log.Emitter

	// Setup runs before the first step of every test case.
	Setup func(ctx context.Context, tc *loader.TestCase, state *ExecutionState) error

	// Teardown runs after every test case that got past Setup.
	Teardown func(ctx context.Context, tc *loader.TestCase, state *ExecutionState)

	// OnTestComplete is called after each test in RunSuite.
	OnTestComplete func(*TestResult)
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() *EngineConfig {
	return &EngineConfig{
		DefaultTimeout: 30 * time.Second,
		StepTimeout:    10 * time.Second,
	}
}
