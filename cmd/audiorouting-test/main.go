// Command audiorouting-test checks audio routing against an audio policy
// configuration.
//
// The policy file is parsed, a platform is built from it, and either the
// YAML test cases or the built-in routing scenarios are run. The built-in
// scenarios check that LOW_LATENCY and DEEP_BUFFER playback lands on a FAST
// or DEEP_BUFFER output, and that remote submix capture and playback are
// routed to the remote submix device ports.
//
// Usage:
//
//	audiorouting-test [flags] [test-pattern]
//
// Flags:
//
//	-policy string            Audio policy configuration file (default: search platform directories)
//	-sku string               Vendor SKU for the directory search
//	-root string              Root prepended to the search directories
//	-match-mode string        Flag matching: token, substring (default "token")
//	-caps string              Capability file overriding derived capabilities
//	-tests string             Path to test cases directory (default "./testdata/cases")
//	-tags string              Only run tests with one of these tags
//	-exclude-tags string      Skip tests with any of these tags
//	-scenario                 Run the built-in scenarios instead of test cases
//	-list                     List the selected test cases and whether they would run
//	-timeout duration         Test timeout (default 30s)
//	-callback-timeout duration  Device callback timeout (default 3s)
//	-resource string          PCM or WAV file played by playback streams
//	-verbose                  Enable verbose output
//	-json                     Output results as JSON
//	-junit                    Output results as JUnit XML
//	-event-log string         File path for routing event logging (CBOR format)
//	-log-level string         Log level: debug, info, warn, error (default "info")
//
// Examples:
//
//	# Run all test cases against the device policy
//	audiorouting-test -policy /vendor/etc/audio_policy_configuration.xml
//
//	# Run the built-in scenarios against an extracted system image
//	audiorouting-test -root ./image -sku sku_a -scenario
//
//	# Run only the remote submix cases with an event log
//	audiorouting-test -policy ./apc.xml -event-log run.arlog "TC-SUBMIX-*"
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/omnitrix21/android-frameworks-av/internal/testharness/reporter"
	"github.com/omnitrix21/android-frameworks-av/internal/testharness/runner"
	arlog "github.com/omnitrix21/android-frameworks-av/pkg/log"
	"github.com/omnitrix21/android-frameworks-av/pkg/platform"
	"github.com/omnitrix21/android-frameworks-av/pkg/platform/sim"
	"github.com/omnitrix21/android-frameworks-av/pkg/policy"
	"github.com/omnitrix21/android-frameworks-av/pkg/verify"
)

var (
	policyPath      = flag.String("policy", "", "Audio policy configuration file (default: search platform directories)")
	sku             = flag.String("sku", "", "Vendor SKU for the directory search")
	root            = flag.String("root", "", "Root prepended to the search directories")
	matchMode       = flag.String("match-mode", "token", "Flag matching: token, substring")
	caps            = flag.String("caps", "", "Capability file overriding derived capabilities")
	tests           = flag.String("tests", "./testdata/cases", "Path to test cases directory")
	tags            = flag.String("tags", "", "Only run tests with one of these tags (comma-separated)")
	excludeTags     = flag.String("exclude-tags", "", "Skip tests with any of these tags (comma-separated)")
	scenario        = flag.Bool("scenario", false, "Run the built-in scenarios instead of test cases")
	list            = flag.Bool("list", false, "List the selected test cases and whether they would run")
	timeout         = flag.Duration("timeout", 30*time.Second, "Test timeout")
	callbackTimeout = flag.Duration("callback-timeout", platform.DefaultCallbackTimeout, "Device callback timeout")
	resource        = flag.String("resource", "", "PCM or WAV file played by playback streams")
	verbose         = flag.Bool("verbose", false, "Enable verbose output")
	jsonOut         = flag.Bool("json", false, "Output results as JSON")
	junitOut        = flag.Bool("junit", false, "Output results as JUnit XML")
	eventLog        = flag.String("event-log", "", "File path for routing event logging (CBOR format)")
	logLevel        = flag.String("log-level", "info", "Log level: debug, info, warn, error")
)

func main() {
	flag.Parse()

	pattern := ""
	if flag.NArg() > 0 {
		pattern = flag.Arg(0)
	}

	if _, ok := policy.ParseMatchMode(*matchMode); !ok {
		fmt.Fprintf(os.Stderr, "Error: match-mode must be 'token' or 'substring', got '%s'\n", *matchMode)
		flag.Usage()
		os.Exit(1)
	}
	if *callbackTimeout <= 0 {
		fmt.Fprintln(os.Stderr, "Error: callback-timeout must be positive")
		os.Exit(1)
	}

	outputFormat := "text"
	if *jsonOut {
		outputFormat = "json"
	} else if *junitOut {
		outputFormat = "junit"
	}

	// Operational messages go to stderr so JSON and JUnit stay parseable.
	level := arlog.ParseLevel(*logLevel)
	if *verbose && level > slog.LevelDebug {
		level = slog.LevelDebug
	}
	logger := slog.New(arlog.NewConsoleHandler(os.Stderr, level))
	slog.SetDefault(logger)

	if outputFormat == "text" {
		log.SetFlags(log.Ltime)
		if *verbose {
			log.SetFlags(log.Ltime | log.Lmicroseconds)
		}
		printBanner()
		if *policyPath != "" {
			log.Printf("Policy: %s", *policyPath)
		} else {
			log.Printf("Policy: search (sku=%q root=%q)", *sku, *root)
		}
		log.Printf("Match mode: %s", *matchMode)
		if *scenario {
			log.Printf("Mode: built-in scenarios")
		} else if pattern != "" {
			log.Printf("Pattern: %s", pattern)
		}
		log.Println()
	}

	var eventLogger *arlog.FileLogger
	if *eventLog != "" {
		var err error
		eventLogger, err = arlog.NewFileLogger(*eventLog)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to create event logger: %v\n", err)
			os.Exit(1)
		}
		if outputFormat == "text" {
			log.Printf("Event logging to: %s", *eventLog)
		}
	}
	// Routing events go to the event log and, at debug level, to the console.
	var sinks []arlog.Logger
	if eventLogger != nil {
		sinks = append(sinks, eventLogger)
	}
	if level <= slog.LevelDebug {
		sinks = append(sinks, arlog.NewSlogAdapter(logger))
	}
	var events arlog.Logger
	if len(sinks) > 0 {
		events = arlog.NewMultiLogger(sinks...)
	}
	closeEvents := func() {
		if eventLogger != nil {
			eventLogger.Close()
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	var failed bool
	if *scenario {
		failed = runScenarios(ctx, outputFormat, events, logger)
	} else {
		config := &runner.Config{
			PolicyPath:      *policyPath,
			SKU:             *sku,
			Root:            *root,
			MatchMode:       *matchMode,
			CapabilityFile:  *caps,
			TestDir:         *tests,
			Pattern:         pattern,
			Tags:            *tags,
			ExcludeTags:     *excludeTags,
			Timeout:         *timeout,
			CallbackTimeout: *callbackTimeout,
			Resource:        *resource,
			Verbose:         *verbose,
			Output:          os.Stdout,
			OutputFormat:    outputFormat,
			Logger:          logger,
			Events:          events,
		}

		r := runner.New(config)
		if *list {
			err := listCases(r)
			r.Close()
			closeEvents()
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			return
		}
		result, err := r.Run(ctx)
		r.Close()
		if err != nil {
			closeEvents()
			if outputFormat == "text" {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			} else {
				log.Printf("Error: %v", err)
			}
			os.Exit(1)
		}
		failed = result.FailCount > 0
	}

	closeEvents()
	if failed {
		os.Exit(1)
	}
}

// listCases prints the selected cases, marking those the platform
// capabilities would skip.
func listCases(r *runner.Runner) error {
	runnable, skipped, err := r.Plan()
	if err != nil {
		return err
	}
	for _, tc := range runnable {
		fmt.Printf("  run   %-16s %s\n", tc.ID, tc.Name)
	}
	for _, tc := range skipped {
		fmt.Printf("  skip  %-16s %s (requires %s)\n", tc.ID, tc.Name, strings.Join(tc.Requires, ", "))
	}
	fmt.Printf("\n%d runnable, %d skipped\n", len(runnable), len(skipped))
	return nil
}

// runScenarios runs the built-in routing scenarios on a simulated platform
// built from the policy and reports them like a test suite.
func runScenarios(ctx context.Context, format string, events arlog.Logger, logger *slog.Logger) bool {
	mode, _ := policy.ParseMatchMode(*matchMode)

	var (
		cfg *policy.Config
		err error
	)
	if *policyPath != "" {
		cfg, err = policy.ParseFile(*policyPath)
	} else {
		cfg, err = policy.LoadDefault(policy.SearchOptions{SKU: *sku, Root: *root})
	}
	if err != nil {
		logger.Error("audio policy configuration unavailable", "error", err)
	}

	var emitter *arlog.Emitter
	if events != nil {
		emitter = arlog.NewEmitter(events)
	}

	plat := sim.New(cfg, sim.Options{Mode: mode, Events: emitter, SynthesizeMissing: true})
	defer plat.Close()

	v := &verify.Verifier{
		Platform:  plat,
		Config:    cfg,
		Mode:      mode,
		Resource:  *resource,
		Timeout:   *callbackTimeout,
		Events:    emitter,
		PolicyErr: err,
	}
	results := v.Run(ctx)

	name := "Audio Routing Scenarios"
	if cfg.Path != "" {
		name = fmt.Sprintf("Audio Routing Scenarios (%s)", cfg.Path)
	}
	suite := reporter.FromVerify(name, results)
	reporter.New(format, os.Stdout, *verbose).ReportSuite(suite)

	return suite.FailCount > 0
}

func printBanner() {
	fmt.Print(`
    _             _ _         ____             _   _
   / \  _   _  __| (_) ___   |  _ \ ___  _   _| |_(_)_ __   __ _
  / _ \| | | |/ _' | |/ _ \  | |_) / _ \| | | | __| | '_ \ / _' |
 / ___ \ |_| | (_| | | (_) | |  _ < (_) | |_| | |_| | | | | (_| |
/_/   \_\__,_|\__,_|_|\___/  |_| \_\___/ \__,_|\__|_|_| |_|\__, |
                                                          |___/

Audio Routing Integration Test Runner
`)
}
