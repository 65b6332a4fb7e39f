package engine

import (
	"context"
	"testing"

	"github.com/omnitrix21/android-frameworks-av/internal/testharness/loader"
)

func routingState() *ExecutionState {
	state := NewExecutionState(context.Background())
	state.Set("io", float64(13))
	state.Set("device_id", int32(2))
	state.Set("mix_port", "deep_buffer")
	state.Set("fast", true)
	state.Set("latency", 12.5)
	state.Set("flags", []string{"AUDIO_OUTPUT_FLAG_FAST"})
	return state
}

func TestInterpolate(t *testing.T) {
	state := routingState()

	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"no references", "no references"},
		{"{{io}}", "13"},
		{"{{ io }}", "13"},
		{"{{  io}}", "13"},
		{"port {{ mix_port }} on io {{ io }}", "port deep_buffer on io 13"},
		{"device {{ device_id }}", "device 2"},
		{"{{ latency }}ms", "12.5ms"},
		{"fast={{ fast }}", "fast=true"},
		{"{{ io }} and {{ missing }}", "13 and {{ missing }}"},
		{"{{ 1bad }}", "{{ 1bad }}"},
	}

	for _, tt := range tests {
		if got := Interpolate(tt.in, state); got != tt.want {
			t.Errorf("Interpolate(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}

	if got := Interpolate("{{ io }}", nil); got != "{{ io }}" {
		t.Errorf("nil state: got %q", got)
	}
}

func TestInterpolateParamsKeepsTypeOfWholeReference(t *testing.T) {
	state := routingState()

	result := InterpolateParams(map[string]interface{}{
		"io":      "{{ io }}",
		"device":  " {{ device_id }} ",
		"fast":    "{{ fast }}",
		"flags":   "{{ flags }}",
		"label":   "io-{{ io }}",
		"buffers": 4,
		"missing": "{{ missing }}",
	}, state)

	if v, ok := result["io"].(float64); !ok || v != 13 {
		t.Errorf("io = %v (%T), want float64 13", result["io"], result["io"])
	}
	if v, ok := result["device"].(int32); !ok || v != 2 {
		t.Errorf("device = %v (%T), want int32 2", result["device"], result["device"])
	}
	if v, ok := result["fast"].(bool); !ok || !v {
		t.Errorf("fast = %v (%T), want true", result["fast"], result["fast"])
	}
	if v, ok := result["flags"].([]string); !ok || len(v) != 1 {
		t.Errorf("flags = %v (%T), want the stored slice", result["flags"], result["flags"])
	}
	if result["label"] != "io-13" {
		t.Errorf("label = %v, want io-13", result["label"])
	}
	if result["buffers"] != 4 {
		t.Errorf("buffers = %v, want 4", result["buffers"])
	}
	if result["missing"] != "{{ missing }}" {
		t.Errorf("missing = %v, want it unchanged", result["missing"])
	}
}

func TestInterpolateParamsNested(t *testing.T) {
	state := routingState()
	params := map[string]interface{}{
		"attributes": map[string]interface{}{
			"usage": "media",
			"tags":  []interface{}{"{{ mix_port }}", "io={{ io }}", 7},
		},
	}

	result := InterpolateParams(params, state)

	attrs, ok := result["attributes"].(map[string]interface{})
	if !ok {
		t.Fatalf("attributes = %T, want map", result["attributes"])
	}
	if attrs["usage"] != "media" {
		t.Errorf("usage = %v", attrs["usage"])
	}
	tags := attrs["tags"].([]interface{})
	if len(tags) != 3 || tags[0] != "deep_buffer" || tags[1] != "io=13" || tags[2] != 7 {
		t.Errorf("tags = %v", tags)
	}

	// The input is not modified.
	orig := params["attributes"].(map[string]interface{})["tags"].([]interface{})
	if orig[0] != "{{ mix_port }}" {
		t.Errorf("input was modified: %v", orig)
	}
}

func TestInterpolateParamsNilAndEmpty(t *testing.T) {
	state := routingState()

	if got := InterpolateParams(nil, state); got != nil {
		t.Errorf("nil params = %v, want nil", got)
	}
	if got := InterpolateParams(map[string]interface{}{}, state); len(got) != 0 {
		t.Errorf("empty params = %v, want empty", got)
	}

	got := InterpolateParams(map[string]interface{}{"io": "{{ io }}"}, nil)
	if got["io"] != "{{ io }}" {
		t.Errorf("nil state: io = %v, want unchanged", got["io"])
	}
}

func TestValueToString(t *testing.T) {
	tests := []struct {
		in   interface{}
		want string
	}{
		{"speaker", "speaker"},
		{float64(48000), "48000"},
		{0.25, "0.25"},
		{int32(-1), "-1"},
		{true, "true"},
		{nil, "<nil>"},
	}
	for _, tt := range tests {
		if got := valueToString(tt.in); got != tt.want {
			t.Errorf("valueToString(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestInterpolateCapabilities(t *testing.T) {
	caps := loader.NewCapabilityFile("phone")
	caps.Items["PLATFORM.CALLBACK_TIMEOUT_MS"] = 3000
	caps.Items["POLICY.ROUTED_FLAG.AUDIO_OUTPUT_FLAG_FAST"] = true

	tests := []struct {
		in   interface{}
		want interface{}
	}{
		{"${PLATFORM.CALLBACK_TIMEOUT_MS}", 3000},
		{" ${ PLATFORM.CALLBACK_TIMEOUT_MS } ", 3000},
		{"${PLATFORM.CALLBACK_TIMEOUT_MS}ms", "3000ms"},
		{"fast=${POLICY.ROUTED_FLAG.AUDIO_OUTPUT_FLAG_FAST}", "fast=true"},
		{"${POLICY.UNKNOWN}", "${POLICY.UNKNOWN}"},
		{"${lowercase.ref}", "${lowercase.ref}"},
		{42, 42},
	}

	for _, tt := range tests {
		got := InterpolateCapabilities(tt.in, caps)
		if got != tt.want {
			t.Errorf("InterpolateCapabilities(%v) = %v (%T), want %v (%T)", tt.in, got, got, tt.want, tt.want)
		}
	}

	if got := InterpolateCapabilities("${PLATFORM.CALLBACK_TIMEOUT_MS}", nil); got != "${PLATFORM.CALLBACK_TIMEOUT_MS}" {
		t.Errorf("nil capabilities should leave the value unchanged, got %v", got)
	}
}

func TestInterpolateParamsWithCapabilities(t *testing.T) {
	state := NewExecutionState(context.Background())
	state.Set("io", 13)
	caps := loader.NewCapabilityFile("phone")
	caps.Items["PLATFORM.SAMPLE_RATE"] = 48000

	params := map[string]interface{}{
		"io":          "{{ io }}",
		"sample_rate": "${PLATFORM.SAMPLE_RATE}",
		"nested": map[string]interface{}{
			"list": []interface{}{"${PLATFORM.SAMPLE_RATE}", "io-{{ io }}"},
		},
	}

	result := InterpolateParamsWithCapabilities(params, state, caps)
	if result["io"] != 13 {
		t.Errorf("io = %v, want 13", result["io"])
	}
	if result["sample_rate"] != 48000 {
		t.Errorf("sample_rate = %v, want 48000", result["sample_rate"])
	}
	list := result["nested"].(map[string]interface{})["list"].([]interface{})
	if list[0] != 48000 || list[1] != "io-13" {
		t.Errorf("nested list = %v", list)
	}

	if InterpolateParamsWithCapabilities(nil, state, caps) != nil {
		t.Error("nil params should stay nil")
	}
}
