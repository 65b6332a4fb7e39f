package engine

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/omnitrix21/android-frameworks-av/internal/testharness/loader"
	"github.com/omnitrix21/android-frameworks-av/pkg/log"
)

// Engine executes test cases.
type Engine struct {
	config   *EngineConfig
	handlers map[string]ActionHandler
	checkers map[string]ExpectChecker
	fields   map[string]FieldChecker
	mu       sync.RWMutex
}

// New creates a new test engine with default configuration.
func New() *Engine {
	return NewWithConfig(DefaultConfig())
}

// NewWithConfig creates a new test engine with the given configuration.
// The engine keeps config, so hooks set on it later are seen.
func NewWithConfig(config *EngineConfig) *Engine {
	if config == nil {
		config = DefaultConfig()
	}

	e := &Engine{
		config:   config,
		handlers: make(map[string]ActionHandler),
		checkers: make(map[string]ExpectChecker),
		fields:   make(map[string]FieldChecker),
	}
	e.RegisterChecker(CheckerNameDefault, defaultChecker)

	return e
}

// RegisterHandler registers an action handler.
func (e *Engine) RegisterHandler(action string, handler ActionHandler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handlers[action] = handler
}

// RegisterChecker registers a checker for an exact expect key.
func (e *Engine) RegisterChecker(key string, checker ExpectChecker) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.checkers[key] = checker
}

// RegisterFieldChecker registers a checker for expect keys ending in suffix.
func (e *Engine) RegisterFieldChecker(suffix string, checker FieldChecker) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.fields[suffix] = checker
}

// Run executes a single test case.
func (e *Engine) Run(ctx context.Context, tc *loader.TestCase) *TestResult {
	result := &TestResult{
		TestCase:  tc,
		StartTime: time.Now(),
	}
	defer result.finish()

	if tc.Skip != "" {
		return result.skip(tc.Skip)
	}
	if e.config.Capabilities != nil {
		if missing := loader.MissingRequirements(e.config.Capabilities, tc.Requires); len(missing) > 0 {
			return result.skip("missing capabilities: " + strings.Join(missing, ", "))
		}
	}

	testCtx, cancel := context.WithTimeout(ctx, parseTimeout(tc.Timeout, e.config.DefaultTimeout))
	defer cancel()

	state := NewExecutionState(testCtx)
	state.TestID = tc.ID

	if e.config.Setup != nil {
		if err := e.config.Setup(testCtx, tc, state); err != nil {
			if reason, ok := IsSkip(err); ok {
				return result.skip(reason)
			}
			result.Error = fmt.Errorf("setup failed: %w", err)
			e.emitError(tc.ID, result.Error, "setup")
			return result
		}
	}
	if e.config.Teardown != nil {
		defer e.config.Teardown(context.WithoutCancel(testCtx), tc, state)
	}

	for i := range tc.Steps {
		step := &tc.Steps[i]
		sr := e.executeStep(testCtx, step, i, state)
		result.StepResults = append(result.StepResults, sr)

		if reason, ok := IsSkip(sr.Error); ok {
			return result.skip(reason)
		}
		if sr.Passed {
			continue
		}
		if result.Error == nil {
			result.Error = sr.Error
		}
		// A failed step without continue_on_failure aborts the case.
		if !step.ContinueOnFailure {
			result.Fatal = true
			break
		}
	}

	result.Passed = result.Error == nil
	return result
}

// executeStep executes a single step.
func (e *Engine) executeStep(ctx context.Context, step *loader.Step, index int, state *ExecutionState) *StepResult {
	result := &StepResult{
		Step:          step,
		StepIndex:     index,
		ExpectResults: make(map[string]*ExpectResult),
		Output:        make(map[string]interface{}),
	}
	start := time.Now()
	defer func() { result.Duration = time.Since(start) }()

	stepCtx, cancel := context.WithTimeout(ctx, e.stepTimeout(step))
	defer cancel()

	e.mu.RLock()
	handler, exists := e.handlers[step.Action]
	e.mu.RUnlock()
	if !exists {
		result.Error = fmt.Errorf("unknown action: %s", step.Action)
		return result
	}

	outputs, err := handler(stepCtx, step, state)
	if err != nil {
		result.Error = err
		if _, skip := IsSkip(err); !skip {
			e.emitError(state.TestID, err, step.Action)
		}
		return result
	}

	snapshot := make(map[string]interface{}, len(outputs))
	for k, v := range outputs {
		state.Set(k, v)
		result.Output[k] = v
		snapshot[k] = v
	}
	state.Set(InternalStepOutput, snapshot)

	// Expectations are checked in key order so the first failure reported
	// is stable across runs.
	expect := InterpolateParamsWithCapabilities(step.Expect, state, e.config.Capabilities)
	keys := make([]string, 0, len(expect))
	for k := range expect {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	result.Passed = true
	for _, key := range keys {
		er := e.checkExpectation(key, expect[key], state)
		result.ExpectResults[key] = er
		e.emitCheck(state.TestID, step, er, result.Output)
		if !er.Passed && result.Passed {
			result.Passed = false
			result.Error = fmt.Errorf("expectation failed: %s - %s", key, er.Message)
		}
	}
	return result
}

// stepTimeout is the step's own timeout or the configured default, raised
// to fit an explicit wait or callback timeout in the step parameters.
func (e *Engine) stepTimeout(step *loader.Step) time.Duration {
	timeout := parseTimeout(step.Timeout, e.config.StepTimeout)
	if wait := paramDuration(step.Params, "duration_ms", "timeout_ms"); wait > 0 {
		if needed := wait + 5*time.Second; needed > timeout {
			timeout = needed
		}
	}
	return timeout
}

func parseTimeout(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

// paramDuration returns the longest of the named millisecond parameters.
// Unresolved references count as zero.
func paramDuration(params map[string]interface{}, names ...string) time.Duration {
	var longest time.Duration
	for _, name := range names {
		ms, ok := ToFloat64(params[name])
		if !ok {
			continue
		}
		if d := time.Duration(ms * float64(time.Millisecond)); d > longest {
			longest = d
		}
	}
	return longest
}

// checkExpectation picks the checker for key: an exact registration first,
// then a field checker by suffix unless key is itself an output, then the
// equality check.
func (e *Engine) checkExpectation(key string, expected interface{}, state *ExecutionState) *ExpectResult {
	e.mu.RLock()
	checker, exact := e.checkers[key]
	field, fieldCheck := "", FieldChecker(nil)
	if !exact {
		if _, isOutput := state.Get(key); !isOutput {
			field, fieldCheck = e.fieldChecker(key)
		}
	}
	fallback := e.checkers[CheckerNameDefault]
	e.mu.RUnlock()

	switch {
	case exact:
		return checker(key, expected, state)
	case fieldCheck != nil:
		return fieldCheck(key, field, expected, state)
	default:
		return fallback(key, expected, state)
	}
}

// fieldChecker finds the longest registered suffix of key. Callers hold mu.
func (e *Engine) fieldChecker(key string) (string, FieldChecker) {
	var best string
	for suffix := range e.fields {
		if len(suffix) > len(best) && len(key) > len(suffix) && strings.HasSuffix(key, suffix) {
			best = suffix
		}
	}
	if best == "" {
		return "", nil
	}
	return strings.TrimSuffix(key, best), e.fields[best]
}

// defaultChecker compares the output named key with expected.
func defaultChecker(key string, expected interface{}, state *ExecutionState) *ExpectResult {
	actual, exists := state.Get(key)
	if !exists {
		return newResult(key, expected, nil, false, "key %q not found in outputs", key)
	}

	if s, ok := expected.(string); ok {
		// "present" means the key exists with any value.
		if s == "present" {
			return newResult(key, expected, actual, true, "%s = %v", key, actual)
		}
		// An unresolved reference means no capability provides the value.
		if capabilityPattern.MatchString(s) {
			return newResult(key, expected, actual, false, "unresolved capability reference %s", s)
		}
	}

	if fmt.Sprintf("%v", expected) == fmt.Sprintf("%v", actual) {
		return newResult(key, expected, actual, true, "%s = %v", key, expected)
	}
	return newResult(key, expected, actual, false, "expected %v, got %v", expected, actual)
}

// RunSuite executes all test cases in a suite.
func (e *Engine) RunSuite(ctx context.Context, cases []*loader.TestCase) *SuiteResult {
	result := &SuiteResult{
		SuiteName: "Test Suite",
	}

	start := time.Now()
	defer func() { result.Duration = time.Since(start) }()

	// Without a configured suite timeout, allow the sum of the test
	// timeouts plus slack.
	suiteTimeout := e.config.SuiteTimeout
	if suiteTimeout == 0 {
		for _, tc := range cases {
			suiteTimeout += parseTimeout(tc.Timeout, e.config.DefaultTimeout)
		}
		suiteTimeout += 2 * time.Minute
	}
	if deadline, ok := ctx.Deadline(); !ok || time.Until(deadline) > suiteTimeout {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, suiteTimeout)
		defer cancel()
	}

	for _, tc := range cases {
		if ctx.Err() != nil {
			return result
		}

		tr := e.Run(ctx, tc)
		result.Results = append(result.Results, tr)

		switch {
		case tr.Skipped:
			result.SkipCount++
		case tr.Passed:
			result.PassCount++
		default:
			result.FailCount++
		}

		if e.config.OnTestComplete != nil {
			e.config.OnTestComplete(tr)
		}

		if !tr.Passed && !tr.Skipped && e.config.StopOnFirstFailure {
			break
		}
	}

	return result
}

// emitCheck records an expectation outcome in the routing event log.
func (e *Engine) emitCheck(testID string, step *loader.Step, er *ExpectResult, output map[string]interface{}) {
	if e.config.Events == nil {
		return
	}
	check := &log.CheckEvent{
		Name:    step.Action + "/" + er.Key,
		Passed:  er.Passed,
		Fatal:   !er.Passed && !step.ContinueOnFailure,
		Message: er.Message,
	}
	if !er.Passed {
		if diag, ok := output[KeyDiagnostic].(string); ok {
			check.Diagnostic = diag
		}
	}
	e.config.Events.Emit(log.Event{
		TestID:   testID,
		Layer:    log.LayerVerifier,
		Category: log.CategoryCheck,
		Check:    check,
	})
}

func (e *Engine) emitError(testID string, err error, where string) {
	if e.config.Events == nil {
		return
	}
	e.config.Events.Emit(log.Event{
		TestID:   testID,
		Layer:    log.LayerVerifier,
		Category: log.CategoryError,
		Error:    &log.ErrorEventData{Layer: log.LayerVerifier, Message: err.Error(), Context: where},
	})
}
