package engine

import (
	"fmt"
	"strings"
	"time"

	"github.com/omnitrix21/android-frameworks-av/pkg/audio"
)

// FieldChecker checks the output named field. It is registered for a key
// suffix: "route_count_greater_than" runs the "_greater_than" checker on
// the "route_count" output.
type FieldChecker func(key, field string, expected interface{}, state *ExecutionState) *ExpectResult

func newResult(key string, expected, actual interface{}, passed bool, format string, args ...any) *ExpectResult {
	return &ExpectResult{
		Key:      key,
		Expected: expected,
		Actual:   actual,
		Passed:   passed,
		Message:  fmt.Sprintf(format, args...),
	}
}

func missingOutput(key, field string, expected interface{}) *ExpectResult {
	return newResult(key, expected, nil, false, "output key %q not found", field)
}

// ToFloat64 converts various numeric types to float64 for comparison.
func ToFloat64(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint64:
		return float64(n), true
	case uint32:
		return float64(n), true
	case time.Duration:
		return float64(n / time.Millisecond), true
	default:
		return 0, false
	}
}

func compareNumbers(key, field string, expected interface{}, state *ExecutionState, op string) *ExpectResult {
	actual, exists := state.Get(field)
	if !exists {
		return missingOutput(key, field, expected)
	}
	a, ok1 := ToFloat64(actual)
	e, ok2 := ToFloat64(expected)
	if !ok1 || !ok2 {
		return newResult(key, expected, actual, false,
			"cannot compare non-numeric values: %T and %T", actual, expected)
	}
	passed := a > e
	if op == "<" {
		passed = a < e
	}
	return newResult(key, expected, actual, passed, "%s %v %s %v = %v", field, a, op, e, passed)
}

// CheckerGreaterThan checks that a numeric output is strictly greater than
// expected. Used in YAML as: route_count_greater_than: 0
func CheckerGreaterThan(key, field string, expected interface{}, state *ExecutionState) *ExpectResult {
	return compareNumbers(key, field, expected, state, ">")
}

// CheckerLessThan checks that a numeric output is strictly less than expected.
func CheckerLessThan(key, field string, expected interface{}, state *ExecutionState) *ExpectResult {
	return compareNumbers(key, field, expected, state, "<")
}

// CheckerNot checks that an output differs from expected.
// Used in YAML as: device_id_not: 0
func CheckerNot(key, field string, expected interface{}, state *ExecutionState) *ExpectResult {
	actual, exists := state.Get(field)
	if !exists {
		return missingOutput(key, field, expected)
	}
	passed := fmt.Sprintf("%v", actual) != fmt.Sprintf("%v", expected)
	return newResult(key, expected, actual, passed, "%s %v != %v = %v", field, actual, expected, passed)
}

// CheckerIn checks that an output is one of the expected values.
// Used in YAML as: sink_in: [Speaker, "Wired Headset"]
func CheckerIn(key, field string, expected interface{}, state *ExecutionState) *ExpectResult {
	actual, exists := state.Get(field)
	if !exists {
		return missingOutput(key, field, expected)
	}
	vals, ok := expected.([]interface{})
	if !ok {
		return newResult(key, expected, actual, false, "expected a list, got %T", expected)
	}
	s := fmt.Sprintf("%v", actual)
	for _, v := range vals {
		if fmt.Sprintf("%v", v) == s {
			return newResult(key, expected, actual, true, "%s %v in %v", field, actual, expected)
		}
	}
	return newResult(key, expected, actual, false, "%s %v not in %v", field, actual, expected)
}

// listItems returns the items of a list output as strings.
func listItems(v interface{}) ([]string, bool) {
	switch a := v.(type) {
	case []interface{}:
		out := make([]string, len(a))
		for i, item := range a {
			out[i] = fmt.Sprintf("%v", item)
		}
		return out, true
	case []string:
		return a, true
	default:
		return nil, false
	}
}

// CheckerNotEmpty checks that a list output has at least one item.
// Used in YAML as: attached_devices_not_empty: true
func CheckerNotEmpty(key, field string, expected interface{}, state *ExecutionState) *ExpectResult {
	actual, exists := state.Get(field)
	if !exists {
		return missingOutput(key, field, expected)
	}
	items, ok := listItems(actual)
	if !ok {
		return newResult(key, expected, actual, false, "%s is not a list: %T", field, actual)
	}
	return newResult(key, expected, actual, len(items) > 0, "%s length = %d", field, len(items))
}

// CheckerContains checks that a list output holds every expected item.
// Expected is one item or a list.
// Used in YAML as: attached_devices_contains: Speaker
func CheckerContains(key, field string, expected interface{}, state *ExecutionState) *ExpectResult {
	actual, exists := state.Get(field)
	if !exists {
		return missingOutput(key, field, expected)
	}
	items, ok := listItems(actual)
	if !ok {
		return newResult(key, expected, actual, false, "%s is not a list: %T", field, actual)
	}
	have := make(map[string]bool, len(items))
	for _, item := range items {
		have[item] = true
	}

	want, isList := listItems(expected)
	if !isList {
		want = []string{fmt.Sprintf("%v", expected)}
	}
	var missing []string
	for _, w := range want {
		if !have[w] {
			missing = append(missing, w)
		}
	}
	if len(missing) > 0 {
		return newResult(key, expected, actual, false, "%s missing: %v", field, missing)
	}
	return newResult(key, expected, actual, true, "%s contains all %d expected items", field, len(want))
}

// CheckerSaveAs saves the current step's complete output under the given name.
// This allows later steps to compare their output against the saved snapshot
// using the matches_saved checker.
func CheckerSaveAs(key string, expected interface{}, state *ExecutionState) *ExpectResult {
	target, ok := expected.(string)
	if !ok {
		return newResult(key, expected, nil, false, "save_as target must be a string, got %T", expected)
	}
	output, exists := state.Get(InternalStepOutput)
	if !exists {
		return newResult(key, expected, nil, false, "no step output to save")
	}
	state.Set(target, output)
	return newResult(key, expected, output, true, "saved step output as %q", target)
}

// CheckerMatchesSaved compares the current step's output with one stored by
// save_as. Every key of the saved output must match; extra keys are allowed.
func CheckerMatchesSaved(key string, expected interface{}, state *ExecutionState) *ExpectResult {
	name, ok := expected.(string)
	if !ok {
		return newResult(key, expected, nil, false, "matches_saved target must be a string, got %T", expected)
	}
	saved, exists := state.Get(name)
	if !exists {
		return newResult(key, name, nil, false, "saved value %q not found", name)
	}
	current, _ := state.Get(InternalStepOutput)

	savedMap, ok1 := saved.(map[string]interface{})
	currentMap, ok2 := current.(map[string]interface{})
	if !ok1 || !ok2 {
		passed := fmt.Sprintf("%v", saved) == fmt.Sprintf("%v", current)
		return newResult(key, saved, current, passed, "saved=%v current=%v", saved, current)
	}

	var mismatches []string
	for k, sv := range savedMap {
		cv, has := currentMap[k]
		if !has || fmt.Sprintf("%v", sv) != fmt.Sprintf("%v", cv) {
			mismatches = append(mismatches, fmt.Sprintf("%s: saved=%v current=%v", k, sv, cv))
		}
	}
	if len(mismatches) > 0 {
		return newResult(key, saved, current, false, "mismatches: %s", strings.Join(mismatches, "; "))
	}
	return newResult(key, saved, current, true, "matches %q", name)
}

// CheckerErrorMessageContains checks if the error_message_contains output contains the expected substring.
// Handlers that expect a platform call to fail report its error text under this key.
func CheckerErrorMessageContains(key string, expected interface{}, state *ExecutionState) *ExpectResult {
	actual, exists := state.Get(key)
	if !exists {
		return missingOutput(key, key, expected)
	}
	a, ok1 := actual.(string)
	e, ok2 := expected.(string)
	if !ok1 || !ok2 {
		return newResult(key, expected, actual, false,
			"expected string types for contains check, got %T and %T", actual, expected)
	}
	passed := strings.Contains(a, e)
	return newResult(key, expected, actual, passed, "error message contains %q: %v", e, passed)
}

// CheckerNoError verifies the "error" output field is absent, nil, or empty.
// Used in YAML as: no_error: true
func CheckerNoError(key string, expected interface{}, state *ExecutionState) *ExpectResult {
	actual, exists := state.Get(KeyError)
	if !exists || actual == nil || actual == "" {
		return newResult(key, expected, actual, true, "no error present")
	}
	return newResult(key, expected, actual, false, "error present: %v", actual)
}

// CheckerDurationUnder checks that the "latency" output is under the expected
// threshold. The expected value is a duration string (e.g. "1000ms"). The
// actual value from the handler is a time.Duration or a number of
// milliseconds.
func CheckerDurationUnder(key string, expected interface{}, state *ExecutionState) *ExpectResult {
	actual, exists := state.Get(KeyLatency)
	if !exists {
		return missingOutput(key, KeyLatency, expected)
	}
	threshold, err := parseDuration(expected)
	if err != nil {
		return newResult(key, expected, actual, false, "invalid threshold %v: %v", expected, err)
	}
	got, err := parseDuration(actual)
	if err != nil {
		return newResult(key, expected, actual, false, "cannot parse actual value %v as duration", actual)
	}
	passed := got < threshold
	return newResult(key, expected, actual, passed, "%s: %v < %v = %v", key, got, threshold, passed)
}

// parseDuration accepts a time.Duration, a duration string such as "3s", or
// a number of milliseconds.
func parseDuration(v interface{}) (time.Duration, error) {
	switch val := v.(type) {
	case time.Duration:
		return val, nil
	case string:
		return time.ParseDuration(val)
	case int:
		return time.Duration(val) * time.Millisecond, nil
	case int64:
		return time.Duration(val) * time.Millisecond, nil
	case float64:
		return time.Duration(val * float64(time.Millisecond)), nil
	default:
		return 0, fmt.Errorf("unsupported duration type %T", v)
	}
}

// CheckerFlagsInclude checks that the "flags" output, a symbolic output flag
// mask such as "AUDIO_OUTPUT_FLAG_PRIMARY|AUDIO_OUTPUT_FLAG_FAST", carries
// every expected flag. Expected is one flag name or a list.
// Used in YAML as: flags_include: AUDIO_OUTPUT_FLAG_FAST
func CheckerFlagsInclude(key string, expected interface{}, state *ExecutionState) *ExpectResult {
	return checkFlags(key, expected, state, true)
}

// CheckerFlagsExclude checks that the "flags" output carries none of the
// expected flags.
// Used in YAML as: flags_exclude: AUDIO_OUTPUT_FLAG_FAST
func CheckerFlagsExclude(key string, expected interface{}, state *ExecutionState) *ExpectResult {
	return checkFlags(key, expected, state, false)
}

func checkFlags(key string, expected interface{}, state *ExecutionState, include bool) *ExpectResult {
	actual, exists := state.Get(KeyFlags)
	if !exists {
		return missingOutput(key, KeyFlags, expected)
	}
	have, err := audio.ParseOutputFlags(fmt.Sprintf("%v", actual))
	if err != nil {
		return newResult(key, expected, actual, false, "%v", err)
	}

	names, isList := listItems(expected)
	if !isList {
		names = audio.SplitFlagTags(fmt.Sprintf("%v", expected))
	}

	var wrong []string
	for _, name := range names {
		want, err := audio.ParseOutputFlags(name)
		if err != nil {
			return newResult(key, expected, actual, false, "%v", err)
		}
		if have.Has(want) != include {
			wrong = append(wrong, name)
		}
	}

	switch {
	case len(wrong) == 0:
		return newResult(key, expected, actual, true, "%s carries %v = %v", have, names, include)
	case include:
		return newResult(key, expected, actual, false, "%s lacks %s", have, strings.Join(wrong, ", "))
	default:
		return newResult(key, expected, actual, false, "%s has %s", have, strings.Join(wrong, ", "))
	}
}

// RegisterEnhancedCheckers registers all enhanced checkers with the engine.
func RegisterEnhancedCheckers(e *Engine) {
	e.RegisterChecker(CheckerNameSaveAs, CheckerSaveAs)
	e.RegisterChecker(CheckerNameMatchesSaved, CheckerMatchesSaved)
	e.RegisterChecker(CheckerNameErrorMessageContains, CheckerErrorMessageContains)
	e.RegisterChecker(CheckerNameNoError, CheckerNoError)
	e.RegisterChecker(CheckerNameCallbackLatencyUnder, CheckerDurationUnder)
	e.RegisterChecker(CheckerNameFlagsInclude, CheckerFlagsInclude)
	e.RegisterChecker(CheckerNameFlagsExclude, CheckerFlagsExclude)

	e.RegisterFieldChecker(SuffixGreaterThan, CheckerGreaterThan)
	e.RegisterFieldChecker(SuffixLessThan, CheckerLessThan)
	e.RegisterFieldChecker(SuffixNot, CheckerNot)
	e.RegisterFieldChecker(SuffixIn, CheckerIn)
	e.RegisterFieldChecker(SuffixNotEmpty, CheckerNotEmpty)
	e.RegisterFieldChecker(SuffixContains, CheckerContains)
}
