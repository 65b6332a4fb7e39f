// Package runner executes YAML routing test cases against an audio platform.
//
// The runner loads the audio policy configuration, derives capabilities from
// it, and registers the step actions that drive playback and capture streams
// and inspect the resulting patches.
package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/omnitrix21/android-frameworks-av/internal/testharness/engine"
	"github.com/omnitrix21/android-frameworks-av/internal/testharness/loader"
	"github.com/omnitrix21/android-frameworks-av/internal/testharness/reporter"
	"github.com/omnitrix21/android-frameworks-av/pkg/log"
	"github.com/omnitrix21/android-frameworks-av/pkg/platform"
	"github.com/omnitrix21/android-frameworks-av/pkg/platform/sim"
	"github.com/omnitrix21/android-frameworks-av/pkg/policy"
)

// PlatformFactory builds the platform under test for a policy.
type PlatformFactory func(cfg *policy.Config, mode policy.MatchMode, events *log.Emitter) (platform.Platform, error)

// Config configures the test runner.
type Config struct {
	// PolicyPath is the audio policy configuration. Empty searches the
	// platform directories.
	PolicyPath string

	// SKU selects the sku_<SKU> vendor directories during the search.
	SKU string

	// Root is prepended to every search directory.
	Root string

	// MatchMode is "token" (default) or "substring".
	MatchMode string

	// CapabilityFile overrides auto-derived capabilities.
	CapabilityFile string

	// TestDir is the path to the test case file or directory.
	TestDir string

	// Pattern filters test cases by ID or name (comma-separated globs).
	Pattern string

	// Tags includes only tests with at least one of these tags (comma-separated).
	Tags string

	// ExcludeTags excludes tests with any of these tags (comma-separated).
	ExcludeTags string

	// Timeout is the default test timeout.
	Timeout time.Duration

	// SuiteTimeout is the overall test suite timeout (0 = none).
	SuiteTimeout time.Duration

	// CallbackTimeout bounds wait_device_callback when a step sets no timeout.
	CallbackTimeout time.Duration

	// Resource is the PCM file played by playback streams.
	Resource string

	// Verbose enables verbose output.
	Verbose bool

	// Output is where to write results.
	Output io.Writer

	// OutputFormat is "text", "json", or "junit".
	OutputFormat string

	// Events receives routing and check events. Nil discards them.
	Events log.Logger

	// Logger receives operational messages. Nil uses slog.Default.
	Logger *slog.Logger

	// Platform builds the platform under test. Nil uses the simulator.
	Platform PlatformFactory
}

// Runner executes routing test cases.
type Runner struct {
	config       *Config
	engine       *engine.Engine
	engineConfig *engine.EngineConfig
	reporter     reporter.Reporter
	events       *log.Emitter
	logger       *slog.Logger
	mode         policy.MatchMode

	// policy and platform are the suite-level environment. load_policy
	// replaces them for the current test only.
	policy   *policy.Config
	platform platform.Platform
	caps     *loader.CapabilityFile

	// policyErr is why the suite policy did not load. Run reports it as a
	// failed case.
	policyErr error
}

// SimulatorFactory builds a sim.Simulator. Missing playback resources are
// replaced by silence so cases run without device files.
func SimulatorFactory(cfg *policy.Config, mode policy.MatchMode, events *log.Emitter) (platform.Platform, error) {
	return sim.New(cfg, sim.Options{Mode: mode, Events: events, SynthesizeMissing: true}), nil
}

// New creates a runner. The policy is loaded by Run or LoadPolicy.
func New(config *Config) *Runner {
	engineConfig := engine.DefaultConfig()
	if config.Timeout > 0 {
		engineConfig.DefaultTimeout = config.Timeout
	}
	engineConfig.SuiteTimeout = config.SuiteTimeout

	if config.Output == nil {
		config.Output = os.Stdout
	}
	if config.Platform == nil {
		config.Platform = SimulatorFactory
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	mode, ok := policy.ParseMatchMode(config.MatchMode)
	if !ok {
		logger.Warn("unknown match mode, using token matching", "mode", config.MatchMode)
	}

	r := &Runner{
		config:       config,
		engine:       engine.NewWithConfig(engineConfig),
		engineConfig: engineConfig,
		reporter:     reporter.New(config.OutputFormat, config.Output, config.Verbose),
		events:       log.NewEmitter(config.Events),
		logger:       logger,
		mode:         mode,
	}

	// NewWithConfig keeps the *EngineConfig, so hooks set here are seen.
	engineConfig.Events = r.events
	engineConfig.Setup = r.setupTest
	engineConfig.Teardown = r.teardownTest
	engineConfig.OnTestComplete = func(result *engine.TestResult) {
		r.reporter.ReportTest(result)
	}

	engine.RegisterEnhancedCheckers(r.engine)
	r.registerHandlers()

	return r
}

// Engine returns the underlying engine.
func (r *Runner) Engine() *engine.Engine { return r.engine }

// Capabilities returns the capabilities in effect after LoadPolicy.
func (r *Runner) Capabilities() *loader.CapabilityFile { return r.caps }

// LoadPolicy loads the suite policy, builds the platform and derives the
// capabilities. A configured capability file is merged on top.
func (r *Runner) LoadPolicy() error {
	cfg, err := r.loadPolicy(r.config.PolicyPath, policy.SearchOptions{SKU: r.config.SKU, Root: r.config.Root})
	if err != nil {
		// An unusable policy still yields a capability set without
		// POLICY.LOADED. Policy-dependent cases skip and Run fails the
		// suite through PolicyLoadCaseID.
		r.logger.Error("audio policy configuration unavailable", "error", err)
	}
	r.policyErr = err

	plat, perr := r.config.Platform(cfg, r.mode, r.events)
	if perr != nil {
		return fmt.Errorf("platform: %w", perr)
	}
	r.policy = cfg
	r.platform = plat

	r.caps = BuildCapabilities(cfg, err == nil, r.mode)
	r.caps.Items[loader.CapCallbackTimeoutMS] = int(r.callbackTimeout() / time.Millisecond)

	if r.config.CapabilityFile != "" {
		override, lerr := loader.LoadCapabilities(r.config.CapabilityFile)
		if lerr != nil {
			return fmt.Errorf("capabilities: %w", lerr)
		}
		r.caps.Merge(override)
	}
	for _, v := range loader.ValidateCapabilities(r.caps) {
		if v.Level == loader.ValidationLevelError {
			return fmt.Errorf("capabilities: %s", v.Message)
		}
		r.logger.Warn("capability warning", "item", v.Field, "message", v.Message)
	}

	r.engineConfig.Capabilities = r.caps
	return nil
}

// loadPolicy parses path, or searches the platform directories when path
// is empty. The returned config is never nil.
func (r *Runner) loadPolicy(path string, opts policy.SearchOptions) (*policy.Config, error) {
	var (
		cfg *policy.Config
		err error
	)
	if path != "" {
		cfg, err = policy.ParseFile(path)
	} else {
		cfg, err = policy.LoadDefault(opts)
	}
	if cfg == nil {
		cfg = &policy.Config{}
	}
	if err != nil {
		r.events.Emit(log.Event{
			Layer:    log.LayerPolicy,
			Category: log.CategoryError,
			Error:    &log.ErrorEventData{Layer: log.LayerPolicy, Message: err.Error(), Context: path},
		})
		return cfg, err
	}
	r.events.Emit(log.Event{
		Layer:    log.LayerPolicy,
		Category: log.CategoryPolicy,
		Policy: &log.PolicyEvent{
			Path:            cfg.Path,
			AttachedDevices: len(cfg.AttachedDevices),
			MixPorts:        len(cfg.MixPorts),
			Routes:          len(cfg.Routes),
		},
	})
	return cfg, nil
}

// Run loads the policy and test cases, executes them and reports results.
func (r *Runner) Run(ctx context.Context) (*engine.SuiteResult, error) {
	if r.platform == nil {
		if err := r.LoadPolicy(); err != nil {
			return nil, err
		}
	}

	cases, err := r.selectCases()
	if err != nil {
		return nil, err
	}

	var policyCase *engine.TestResult
	if r.policyErr != nil {
		policyCase = r.policyFailure()
		r.reporter.ReportTest(policyCase)
	}

	result := r.engine.RunSuite(ctx, cases)
	if policyCase != nil {
		result.Results = append([]*engine.TestResult{policyCase}, result.Results...)
		result.FailCount++
	}
	result.SuiteName = "Audio Routing Tests"
	if r.policy.Path != "" {
		result.SuiteName = fmt.Sprintf("Audio Routing Tests (%s)", r.policy.Path)
	}

	// Individual tests were streamed through OnTestComplete.
	r.reporter.ReportSummary(result)
	return result, nil
}

// PolicyLoadCaseID names the failed case Run reports when the suite policy
// does not load.
const PolicyLoadCaseID = "TC-POLICY-LOAD"

// policyFailure records the suite policy error as a fatal failed case.
func (r *Runner) policyFailure() *engine.TestResult {
	now := time.Now()
	step := loader.Step{Action: ActionLoadPolicy, Description: "load the suite audio policy configuration"}
	tc := &loader.TestCase{
		ID:    PolicyLoadCaseID,
		Name:  "Audio policy configuration loads",
		Steps: []loader.Step{step},
	}
	r.events.Emit(log.Event{
		TestID:   tc.ID,
		Layer:    log.LayerVerifier,
		Category: log.CategoryCheck,
		Check: &log.CheckEvent{
			Name:    "policy_load",
			Fatal:   true,
			Message: r.policyErr.Error(),
		},
	})
	return &engine.TestResult{
		TestCase: tc,
		Fatal:    true,
		Error:    r.policyErr,
		StepResults: []*engine.StepResult{{
			Step:   &tc.Steps[0],
			Error:  r.policyErr,
			Output: map[string]interface{}{KeyLoaded: false, KeyError: r.policyErr.Error()},
		}},
		StartTime: now,
		EndTime:   now,
	}
}

// Plan loads the policy and the selected test cases without running them.
// Cases whose requirements the platform capabilities do not meet are
// returned as skipped.
func (r *Runner) Plan() (runnable, skipped []*loader.TestCase, err error) {
	if r.platform == nil {
		if err := r.LoadPolicy(); err != nil {
			return nil, nil, err
		}
	}
	cases, err := r.selectCases()
	if err != nil {
		return nil, nil, err
	}
	runnable = loader.FilterTestCases(cases, r.caps)
	ok := make(map[*loader.TestCase]bool, len(runnable))
	for _, tc := range runnable {
		ok[tc] = true
	}
	for _, tc := range cases {
		if !ok[tc] {
			skipped = append(skipped, tc)
		}
	}
	return runnable, skipped, nil
}

// selectCases loads the test cases and applies the pattern and tag filters.
func (r *Runner) selectCases() ([]*loader.TestCase, error) {
	cases, err := loader.Load(r.config.TestDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load tests: %w", err)
	}

	filter, err := newCaseFilter(r.config.Pattern, r.config.Tags, r.config.ExcludeTags)
	if err != nil {
		return nil, err
	}
	cases = filter.apply(cases)
	if len(cases) == 0 {
		return nil, fmt.Errorf("no test cases found matching filters (pattern=%q, tags=%q, exclude-tags=%q)",
			r.config.Pattern, r.config.Tags, r.config.ExcludeTags)
	}
	return cases, nil
}

// Close releases the suite platform.
func (r *Runner) Close() error {
	if c, ok := r.platform.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func (r *Runner) callbackTimeout() time.Duration {
	if r.config.CallbackTimeout > 0 {
		return r.config.CallbackTimeout
	}
	return platform.DefaultCallbackTimeout
}

func (r *Runner) resource() string {
	if r.config.Resource != "" {
		return r.config.Resource
	}
	return platform.DefaultResourcePath
}

// env is the per-test routing environment stored in ExecutionState.Custom.
type env struct {
	policy   *policy.Config
	platform platform.Platform
	mode     policy.MatchMode

	// owned is set when load_policy built a platform for this test only.
	owned bool

	playbacks map[string]*playbackStream
	captures  map[string]platform.Capture
}

type playbackStream struct {
	stream   platform.Playback
	notifier *platform.DeviceUpdateNotifier
	// registered is set while notifier is attached to stream.
	registered bool
	// started marks when Start returned, for callback latency.
	started time.Time
}

func (r *Runner) setupTest(ctx context.Context, tc *loader.TestCase, state *engine.ExecutionState) error {
	if r.platform == nil {
		return errors.New("no platform: LoadPolicy was not called")
	}
	state.Custom[customEnv] = &env{
		policy:    r.policy,
		platform:  r.platform,
		mode:      r.mode,
		playbacks: make(map[string]*playbackStream),
		captures:  make(map[string]platform.Capture),
	}
	return nil
}

// teardownTest stops every stream the test left behind, so one test's
// routing never leaks into the next.
func (r *Runner) teardownTest(ctx context.Context, tc *loader.TestCase, state *engine.ExecutionState) {
	e := getEnv(state)
	if e == nil {
		return
	}
	for name, ps := range e.playbacks {
		if err := ps.stream.Stop(); err != nil {
			r.logger.Debug("teardown: stop playback", "test", tc.ID, "stream", name, "error", err)
		}
		if ps.registered {
			_ = ps.stream.RemoveDeviceCallback(ps.notifier)
		}
	}
	for name, c := range e.captures {
		if err := c.Stop(); err != nil {
			r.logger.Debug("teardown: stop capture", "test", tc.ID, "stream", name, "error", err)
		}
	}
	if e.owned {
		if c, ok := e.platform.(io.Closer); ok {
			_ = c.Close()
		}
	}
}

func getEnv(state *engine.ExecutionState) *env {
	e, _ := state.Custom[customEnv].(*env)
	return e
}

// registerHandlers registers all action handlers with the engine.
func (r *Runner) registerHandlers() {
	r.registerPolicyHandlers()
	r.registerPlaybackHandlers()
	r.registerCaptureHandlers()
	r.registerScenarioHandlers()
	r.registerUtilityHandlers()
}
