// Package reporter formats routing test results as text, JSON or JUnit XML.
package reporter

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/omnitrix21/android-frameworks-av/internal/testharness/engine"
)

// DiagnosticKey is the step output key holding a multi-line diagnostic,
// such as a dumped patch or port config. Reporters print it under failed
// steps.
const DiagnosticKey = engine.KeyDiagnostic

// Reporter formats and outputs test results.
type Reporter interface {
	// ReportTest reports results for a single test as it completes.
	ReportTest(result *engine.TestResult)

	// ReportSummary reports the suite totals after all tests were streamed
	// through ReportTest.
	ReportSummary(result *engine.SuiteResult)

	// ReportSuite reports a complete suite in one go.
	ReportSuite(result *engine.SuiteResult)
}

// New returns the reporter for format: "json", "junit" or text.
func New(format string, w io.Writer, verbose bool) Reporter {
	switch format {
	case "json":
		return NewJSONReporter(w, true)
	case "junit":
		return NewJUnitReporter(w)
	default:
		return NewTextReporter(w, verbose)
	}
}

func status(result *engine.TestResult) string {
	switch {
	case result.Skipped:
		return "skipped"
	case result.Passed:
		return "passed"
	default:
		return "failed"
	}
}

func stepStatus(sr *engine.StepResult) string {
	if sr.Passed {
		return "passed"
	}
	return "failed"
}

func passRate(result *engine.SuiteResult) float64 {
	total := result.PassCount + result.FailCount
	if total == 0 {
		return 0
	}
	return float64(result.PassCount) / float64(total) * 100
}

func diagnostic(sr *engine.StepResult) string {
	diag, _ := sr.Output[DiagnosticKey].(string)
	return strings.TrimRight(diag, "\n")
}

// TextReporter writes one block per test and a summary. Passing steps and
// expectations are only listed when verbose.
type TextReporter struct {
	w       io.Writer
	verbose bool
}

// NewTextReporter creates a new text reporter.
func NewTextReporter(w io.Writer, verbose bool) *TextReporter {
	return &TextReporter{w: w, verbose: verbose}
}

func (r *TextReporter) printf(indent int, format string, args ...any) {
	fmt.Fprintf(r.w, "%s%s\n", strings.Repeat(" ", indent), fmt.Sprintf(format, args...))
}

// ReportSuite reports suite results in text format.
func (r *TextReporter) ReportSuite(result *engine.SuiteResult) {
	r.printf(0, "\n=== Suite: %s ===\n", result.SuiteName)
	for _, tr := range result.Results {
		r.ReportTest(tr)
	}
	r.ReportSummary(result)
}

// ReportSummary prints suite totals and, for larger runs, the slowest tests.
func (r *TextReporter) ReportSummary(result *engine.SuiteResult) {
	r.printf(0, "\n--- Summary ---")
	r.printf(0, "Duration: %s", result.Duration.Round(time.Millisecond))
	r.printf(0, "Total:   %d", len(result.Results))
	r.printf(0, "Passed:  %d", result.PassCount)
	r.printf(0, "Failed:  %d", result.FailCount)
	r.printf(0, "Skipped: %d", result.SkipCount)
	if aborted := countAborted(result.Results); aborted > 0 {
		r.printf(0, "Aborted: %d", aborted)
	}
	if result.PassCount+result.FailCount > 0 {
		r.printf(0, "Pass Rate: %.1f%%", passRate(result))
	}

	slowest := slowestTests(result.Results, slowestCount)
	if len(slowest) < 3 {
		return
	}
	r.printf(0, "\n--- Slowest Tests ---")
	for _, tr := range slowest {
		r.printf(2, "%-8s %s - %s", tr.Duration.Round(time.Millisecond), tr.TestCase.ID, tr.TestCase.Name)
	}
}

func countAborted(results []*engine.TestResult) int {
	n := 0
	for _, tr := range results {
		if tr.Fatal {
			n++
		}
	}
	return n
}

const slowestCount = 10

// slowestTests returns up to n executed tests, longest first.
func slowestTests(results []*engine.TestResult, n int) []*engine.TestResult {
	var ran []*engine.TestResult
	for _, tr := range results {
		if !tr.Skipped {
			ran = append(ran, tr)
		}
	}
	sort.SliceStable(ran, func(i, j int) bool { return ran[i].Duration > ran[j].Duration })
	if len(ran) > n {
		ran = ran[:n]
	}
	return ran
}

// ReportTest reports a single test result in text format.
func (r *TextReporter) ReportTest(result *engine.TestResult) {
	tc := result.TestCase
	label := strings.ToUpper(status(result)[:4])
	suffix := ""
	if result.Fatal {
		suffix = " aborted"
	}
	r.printf(0, "[%s] %s - %s (%s)%s", label, tc.ID, tc.Name, result.Duration.Round(time.Millisecond), suffix)

	switch {
	case result.Skipped && result.SkipReason != "":
		r.printf(7, "Skip reason: %s", result.SkipReason)
	case !result.Passed && result.Error != nil:
		r.printf(7, "Error: %v", result.Error)
	}

	steps := result.FailedSteps()
	if r.verbose {
		steps = result.StepResults
	}
	for _, sr := range steps {
		r.reportStep(sr)
	}
}

func (r *TextReporter) reportStep(sr *engine.StepResult) {
	r.printf(4, "[%s] Step %d: %s (%s)", strings.ToUpper(stepStatus(sr)[:4]), sr.StepIndex+1, sr.Step.Action, sr.Duration.Round(time.Millisecond))
	if sr.Step.Description != "" && r.verbose {
		r.printf(11, "%s", sr.Step.Description)
	}
	if !sr.Passed && sr.Error != nil {
		r.printf(11, "Error: %v", sr.Error)
	}

	for _, key := range sortedKeys(sr.ExpectResults) {
		er := sr.ExpectResults[key]
		switch {
		case !er.Passed:
			r.printf(11, "[FAILED] %s: %s", key, er.Message)
		case r.verbose:
			r.printf(11, "[OK] %s: %s", key, er.Message)
		}
	}

	if diag := diagnostic(sr); diag != "" && !sr.Passed {
		for _, line := range strings.Split(diag, "\n") {
			r.printf(13, "%s", line)
		}
	}
}

func sortedKeys(m map[string]*engine.ExpectResult) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// JSONReporter outputs JSON-formatted reports.
type JSONReporter struct {
	writer io.Writer
	pretty bool
	tests  []JSONTestResult
}

// NewJSONReporter creates a new JSON reporter.
func NewJSONReporter(w io.Writer, pretty bool) *JSONReporter {
	return &JSONReporter{
		writer: w,
		pretty: pretty,
	}
}

// JSONSuiteResult is the JSON representation of suite results.
type JSONSuiteResult struct {
	SuiteName string           `json:"suite_name"`
	Duration  string           `json:"duration"`
	Total     int              `json:"total"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Skipped   int              `json:"skipped"`
	PassRate  float64          `json:"pass_rate"`
	Tests     []JSONTestResult `json:"tests"`
}

// JSONTestResult is the JSON representation of a test result.
type JSONTestResult struct {
	ID         string           `json:"id"`
	Name       string           `json:"name"`
	Status     string           `json:"status"`
	Fatal      bool             `json:"fatal,omitempty"`
	Duration   string           `json:"duration"`
	Error      string           `json:"error,omitempty"`
	SkipReason string           `json:"skip_reason,omitempty"`
	Steps      []JSONStepResult `json:"steps,omitempty"`
}

// JSONStepResult is the JSON representation of a step result.
type JSONStepResult struct {
	Index    int                   `json:"index"`
	Action   string                `json:"action"`
	Status   string                `json:"status"`
	Duration string                `json:"duration"`
	Error    string                `json:"error,omitempty"`
	Expects  map[string]JSONExpect `json:"expects,omitempty"`
	Outputs  map[string]any        `json:"outputs,omitempty"`
}

// JSONExpect is the JSON representation of an expectation result.
type JSONExpect struct {
	Passed   bool   `json:"passed"`
	Expected any    `json:"expected"`
	Actual   any    `json:"actual"`
	Message  string `json:"message"`
}

// ReportSuite reports suite results in JSON format.
func (r *JSONReporter) ReportSuite(result *engine.SuiteResult) {
	r.tests = r.tests[:0]
	for _, tr := range result.Results {
		r.tests = append(r.tests, testToJSON(tr))
	}
	r.ReportSummary(result)
}

// ReportTest buffers a test result. JSON output is a single document
// written by ReportSummary.
func (r *JSONReporter) ReportTest(result *engine.TestResult) {
	r.tests = append(r.tests, testToJSON(result))
}

// ReportSummary writes the suite document with every buffered test.
func (r *JSONReporter) ReportSummary(result *engine.SuiteResult) {
	tests := r.tests
	if tests == nil {
		tests = []JSONTestResult{}
	}
	r.writeJSON(JSONSuiteResult{
		SuiteName: result.SuiteName,
		Duration:  result.Duration.Round(time.Millisecond).String(),
		Total:     len(result.Results),
		Passed:    result.PassCount,
		Failed:    result.FailCount,
		Skipped:   result.SkipCount,
		PassRate:  passRate(result),
		Tests:     tests,
	})
	r.tests = nil
}

func testToJSON(result *engine.TestResult) JSONTestResult {
	jr := JSONTestResult{
		ID:         result.TestCase.ID,
		Name:       result.TestCase.Name,
		Status:     status(result),
		Fatal:      result.Fatal,
		Duration:   result.Duration.Round(time.Millisecond).String(),
		SkipReason: result.SkipReason,
		Error:      errString(result.Error),
	}
	for _, sr := range result.StepResults {
		jr.Steps = append(jr.Steps, stepToJSON(sr))
	}
	return jr
}

func stepToJSON(sr *engine.StepResult) JSONStepResult {
	js := JSONStepResult{
		Index:    sr.StepIndex,
		Action:   sr.Step.Action,
		Status:   stepStatus(sr),
		Duration: sr.Duration.Round(time.Millisecond).String(),
		Error:    errString(sr.Error),
		Outputs:  sr.Output,
	}
	if len(sr.ExpectResults) > 0 {
		js.Expects = make(map[string]JSONExpect, len(sr.ExpectResults))
	}
	for key, er := range sr.ExpectResults {
		js.Expects[key] = JSONExpect{
			Passed:   er.Passed,
			Expected: er.Expected,
			Actual:   er.Actual,
			Message:  er.Message,
		}
	}
	return js
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func (r *JSONReporter) writeJSON(v any) {
	enc := json.NewEncoder(r.writer)
	if r.pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(r.writer, "{\"error\": %q}\n", "failed to marshal: "+err.Error())
	}
}

// JUnitReporter outputs JUnit XML for CI integration.
type JUnitReporter struct {
	writer io.Writer
	tests  []*engine.TestResult
}

// NewJUnitReporter creates a new JUnit reporter.
func NewJUnitReporter(w io.Writer) *JUnitReporter {
	return &JUnitReporter{writer: w}
}

type junitSuite struct {
	XMLName  xml.Name    `xml:"testsuite"`
	Name     string      `xml:"name,attr"`
	Tests    int         `xml:"tests,attr"`
	Failures int         `xml:"failures,attr"`
	Skipped  int         `xml:"skipped,attr"`
	Time     string      `xml:"time,attr"`
	Cases    []junitCase `xml:"testcase"`
}

type junitCase struct {
	Name      string        `xml:"name,attr"`
	ClassName string        `xml:"classname,attr"`
	Time      string        `xml:"time,attr"`
	Skipped   *junitSkipped `xml:"skipped,omitempty"`
	Failure   *junitFailure `xml:"failure,omitempty"`
}

type junitSkipped struct {
	Message string `xml:"message,attr"`
}

type junitFailure struct {
	Message string `xml:"message,attr"`
	Body    string `xml:",cdata"`
}

func seconds(d time.Duration) string {
	return fmt.Sprintf("%.3f", d.Seconds())
}

// ReportTest buffers a test result for ReportSummary.
func (r *JUnitReporter) ReportTest(result *engine.TestResult) {
	r.tests = append(r.tests, result)
}

// ReportSummary writes the buffered tests as one testsuite element.
func (r *JUnitReporter) ReportSummary(result *engine.SuiteResult) {
	r.write(result, r.tests)
	r.tests = nil
}

// ReportSuite writes result as one testsuite element.
func (r *JUnitReporter) ReportSuite(result *engine.SuiteResult) {
	r.write(result, result.Results)
}

func (r *JUnitReporter) write(result *engine.SuiteResult, tests []*engine.TestResult) {
	suite := junitSuite{
		Name:     result.SuiteName,
		Tests:    len(tests),
		Failures: result.FailCount,
		Skipped:  result.SkipCount,
		Time:     seconds(result.Duration),
	}

	for _, tr := range tests {
		jc := junitCase{
			Name:      tr.TestCase.Name,
			ClassName: tr.TestCase.ID,
			Time:      seconds(tr.Duration),
		}
		switch {
		case tr.Skipped:
			jc.Skipped = &junitSkipped{Message: tr.SkipReason}
		case !tr.Passed:
			msg := "test failed"
			if tr.Error != nil {
				msg = tr.Error.Error()
			}
			var body strings.Builder
			for _, sr := range tr.FailedSteps() {
				fmt.Fprintf(&body, "Step %d (%s): %v\n", sr.StepIndex+1, sr.Step.Action, sr.Error)
				if diag := diagnostic(sr); diag != "" {
					body.WriteString(diag + "\n")
				}
			}
			if tr.Fatal {
				body.WriteString("aborted after a fatal check\n")
			}
			jc.Failure = &junitFailure{Message: msg, Body: body.String()}
		}
		suite.Cases = append(suite.Cases, jc)
	}

	data, err := xml.MarshalIndent(suite, "", "  ")
	if err != nil {
		fmt.Fprintf(r.writer, "<!-- failed to marshal: %s -->\n", err)
		return
	}
	fmt.Fprint(r.writer, xml.Header)
	fmt.Fprintln(r.writer, string(data))
}
