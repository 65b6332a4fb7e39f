package engine

import (
	"context"
	"testing"
	"time"
)

func stateWith(outputs map[string]interface{}) *ExecutionState {
	state := NewExecutionState(context.Background())
	for k, v := range outputs {
		state.Set(k, v)
	}
	return state
}

func TestCheckerNumericComparisons(t *testing.T) {
	state := stateWith(map[string]interface{}{
		"route_count": 4,
		"io":          float64(13),
		"latency":     120 * time.Millisecond,
		"sink":        "Speaker",
	})

	tests := []struct {
		name     string
		checker  FieldChecker
		field    string
		expected interface{}
		passed   bool
	}{
		{"greater", CheckerGreaterThan, "route_count", 0, true},
		{"greater equal", CheckerGreaterThan, "route_count", 4, false},
		{"greater float", CheckerGreaterThan, "io", float64(12.5), true},
		{"greater duration", CheckerGreaterThan, "latency", 100, true},
		{"less", CheckerLessThan, "route_count", 5, true},
		{"less equal", CheckerLessThan, "route_count", int64(4), false},
		{"less duration", CheckerLessThan, "latency", 100, false},
		{"non numeric", CheckerGreaterThan, "sink", 0, false},
		{"missing", CheckerLessThan, "patch_id", 1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := tt.checker(tt.field+"_x", tt.field, tt.expected, state)
			if r.Passed != tt.passed {
				t.Errorf("Passed = %v, want %v (%s)", r.Passed, tt.passed, r.Message)
			}
			if r.Key != tt.field+"_x" {
				t.Errorf("Key = %q", r.Key)
			}
		})
	}
}

func TestCheckerNotAndIn(t *testing.T) {
	state := stateWith(map[string]interface{}{
		"device_id": int32(2),
		"sink":      "Speaker",
	})

	if r := CheckerNot("device_id_not", "device_id", 0, state); !r.Passed {
		t.Errorf("device 2 != 0 should pass: %s", r.Message)
	}
	if r := CheckerNot("device_id_not", "device_id", 2, state); r.Passed {
		t.Error("device 2 != 2 should fail")
	}
	if r := CheckerNot("io_not", "io", 0, state); r.Passed {
		t.Error("missing output should fail")
	}

	in := []interface{}{"Speaker", "Wired Headset"}
	if r := CheckerIn("sink_in", "sink", in, state); !r.Passed {
		t.Errorf("Speaker should be in %v: %s", in, r.Message)
	}
	if r := CheckerIn("sink_in", "sink", []interface{}{"Earpiece"}, state); r.Passed {
		t.Error("Speaker is not in [Earpiece]")
	}
	if r := CheckerIn("sink_in", "sink", "Speaker", state); r.Passed {
		t.Error("a scalar expected value should fail")
	}
	if r := CheckerIn("device_id_in", "device_id", []interface{}{1, 2}, state); !r.Passed {
		t.Errorf("int32 2 should match YAML 2: %s", r.Message)
	}
}

func TestCheckerNotEmptyAndContains(t *testing.T) {
	state := stateWith(map[string]interface{}{
		"attached_devices": []string{"Speaker", "Built-In Mic", "Remote Submix In"},
		"modules":          []interface{}{"primary", "r_submix"},
		"empty":            []string{},
		"sink":             "Speaker",
	})

	tests := []struct {
		name     string
		checker  FieldChecker
		field    string
		expected interface{}
		passed   bool
	}{
		{"not empty", CheckerNotEmpty, "attached_devices", true, true},
		{"empty", CheckerNotEmpty, "empty", true, false},
		{"not a list", CheckerNotEmpty, "sink", true, false},
		{"contains one", CheckerContains, "attached_devices", "Speaker", true},
		{"contains list", CheckerContains, "modules", []interface{}{"r_submix", "primary"}, true},
		{"contains missing", CheckerContains, "attached_devices", []interface{}{"Speaker", "Wired Headset"}, false},
		{"contains absent output", CheckerContains, "routes", "x", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := tt.checker(tt.field+"_check", tt.field, tt.expected, state)
			if r.Passed != tt.passed {
				t.Errorf("Passed = %v, want %v (%s)", r.Passed, tt.passed, r.Message)
			}
		})
	}
}

func TestCheckerSaveAsAndMatchesSaved(t *testing.T) {
	state := NewExecutionState(context.Background())
	state.Set(InternalStepOutput, map[string]interface{}{"io": 13, "sink": "Speaker"})

	if r := CheckerSaveAs(CheckerNameSaveAs, "first_route", state); !r.Passed {
		t.Fatalf("save_as failed: %s", r.Message)
	}
	if r := CheckerSaveAs(CheckerNameSaveAs, 7, state); r.Passed {
		t.Error("a non-string target should fail")
	}

	// Same route plus an extra key.
	state.Set(InternalStepOutput, map[string]interface{}{"io": 13, "sink": "Speaker", "patch_id": 4})
	if r := CheckerMatchesSaved(CheckerNameMatchesSaved, "first_route", state); !r.Passed {
		t.Errorf("matches_saved should pass: %s", r.Message)
	}

	state.Set(InternalStepOutput, map[string]interface{}{"io": 21, "sink": "Speaker"})
	r := CheckerMatchesSaved(CheckerNameMatchesSaved, "first_route", state)
	if r.Passed {
		t.Error("a different io should not match")
	}
	if r.Message == "" {
		t.Error("mismatch should be described")
	}

	if r := CheckerMatchesSaved(CheckerNameMatchesSaved, "never_saved", state); r.Passed {
		t.Error("an unknown name should fail")
	}
}

func TestCheckerErrors(t *testing.T) {
	state := stateWith(map[string]interface{}{
		CheckerNameErrorMessageContains: "no output supports AUDIO_OUTPUT_FLAG_FAST",
	})

	if r := CheckerErrorMessageContains(CheckerNameErrorMessageContains, "FAST", state); !r.Passed {
		t.Errorf("should contain FAST: %s", r.Message)
	}
	if r := CheckerErrorMessageContains(CheckerNameErrorMessageContains, "DEEP_BUFFER", state); r.Passed {
		t.Error("should not contain DEEP_BUFFER")
	}

	if r := CheckerNoError(CheckerNameNoError, true, state); !r.Passed {
		t.Error("no error output should pass")
	}
	state.Set(KeyError, "")
	if r := CheckerNoError(CheckerNameNoError, true, state); !r.Passed {
		t.Error("an empty error should pass")
	}
	state.Set(KeyError, "stream closed")
	if r := CheckerNoError(CheckerNameNoError, true, state); r.Passed {
		t.Error("an error should fail")
	}
}

func TestCheckerDurationUnder(t *testing.T) {
	tests := []struct {
		name      string
		latency   interface{}
		threshold interface{}
		passed    bool
	}{
		{"duration under", 40 * time.Millisecond, "3s", true},
		{"duration over", 4 * time.Second, "3s", false},
		{"ms under", float64(250), "500ms", true},
		{"ms threshold", 2 * time.Second, 3000, true},
		{"equal", 3 * time.Second, "3s", false},
		{"bad threshold", time.Second, "soon", false},
		{"bad actual", true, "3s", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := stateWith(map[string]interface{}{KeyLatency: tt.latency})
			r := CheckerDurationUnder(CheckerNameCallbackLatencyUnder, tt.threshold, state)
			if r.Passed != tt.passed {
				t.Errorf("Passed = %v, want %v (%s)", r.Passed, tt.passed, r.Message)
			}
		})
	}

	r := CheckerDurationUnder(CheckerNameCallbackLatencyUnder, "3s", NewExecutionState(context.Background()))
	if r.Passed {
		t.Error("missing latency should fail")
	}
}

func TestCheckerFlags(t *testing.T) {
	state := stateWith(map[string]interface{}{
		KeyFlags: "AUDIO_OUTPUT_FLAG_PRIMARY|AUDIO_OUTPUT_FLAG_FAST",
	})

	tests := []struct {
		name     string
		checker  ExpectChecker
		expected interface{}
		passed   bool
	}{
		{"include one", CheckerFlagsInclude, "AUDIO_OUTPUT_FLAG_FAST", true},
		{"include mask", CheckerFlagsInclude, "AUDIO_OUTPUT_FLAG_FAST|AUDIO_OUTPUT_FLAG_PRIMARY", true},
		{"include list", CheckerFlagsInclude, []interface{}{"AUDIO_OUTPUT_FLAG_PRIMARY"}, true},
		{"include absent", CheckerFlagsInclude, "AUDIO_OUTPUT_FLAG_DEEP_BUFFER", false},
		{"include unknown", CheckerFlagsInclude, "AUDIO_OUTPUT_FLAG_WARP", false},
		{"exclude absent", CheckerFlagsExclude, "AUDIO_OUTPUT_FLAG_DEEP_BUFFER", true},
		{"exclude present", CheckerFlagsExclude, []interface{}{"AUDIO_OUTPUT_FLAG_DIRECT", "AUDIO_OUTPUT_FLAG_FAST"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := tt.checker("flags_check", tt.expected, state)
			if r.Passed != tt.passed {
				t.Errorf("Passed = %v, want %v (%s)", r.Passed, tt.passed, r.Message)
			}
		})
	}

	empty := NewExecutionState(context.Background())
	if r := CheckerFlagsInclude(CheckerNameFlagsInclude, "AUDIO_OUTPUT_FLAG_FAST", empty); r.Passed {
		t.Error("missing flags output should fail")
	}
}

func TestFieldCheckerDispatch(t *testing.T) {
	e := New()
	RegisterEnhancedCheckers(e)

	state := stateWith(map[string]interface{}{
		"route_count":      3,
		"attached_devices": []string{"Speaker"},
		"device_id":        int32(2),
		// An output whose name ends in a registered suffix.
		"patch_not": "literal",
	})

	tests := []struct {
		key      string
		expected interface{}
		passed   bool
	}{
		{"route_count_greater_than", 0, true},
		{"route_count_less_than", 3, false},
		{"attached_devices_contains", "Speaker", true},
		{"attached_devices_not_empty", true, true},
		{"device_id_not", 0, true},
		{"device_id_in", []interface{}{2}, true},
		{"patch_not", "literal", true},
		{"route_count", 3, true},
		{"missing_greater_than", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			r := e.checkExpectation(tt.key, tt.expected, state)
			if r.Passed != tt.passed {
				t.Errorf("Passed = %v, want %v (%s)", r.Passed, tt.passed, r.Message)
			}
		})
	}
}

func TestFieldCheckerLongestSuffix(t *testing.T) {
	e := New()
	RegisterEnhancedCheckers(e)

	field, checker := e.fieldChecker("attached_devices_not_empty")
	if checker == nil || field != "attached_devices" {
		t.Errorf("field = %q, want attached_devices", field)
	}

	if _, checker := e.fieldChecker("_in"); checker != nil {
		t.Error("a bare suffix names no field")
	}
}

func TestToFloat64(t *testing.T) {
	tests := []struct {
		in   interface{}
		want float64
		ok   bool
	}{
		{3, 3, true},
		{int32(-1), -1, true},
		{uint32(0x8000), 32768, true},
		{float32(0.5), 0.5, true},
		{1500 * time.Millisecond, 1500, true},
		{"3", 0, false},
		{nil, 0, false},
	}
	for _, tt := range tests {
		got, ok := ToFloat64(tt.in)
		if ok != tt.ok || got != tt.want {
			t.Errorf("ToFloat64(%v) = %v, %v; want %v, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}
