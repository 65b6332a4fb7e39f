package commands

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/omnitrix21/android-frameworks-av/pkg/log"
)

func TestFormatRouteEvent(t *testing.T) {
	ts := time.Date(2026, 3, 2, 10, 15, 32, 123456000, time.UTC)
	event := log.Event{
		Timestamp: ts,
		SessionID: "a1b2c3d4-e5f6",
		StreamID:  "9f8e7d6c-5b4a",
		TestID:    "TC-PERF-001",
		Direction: log.DirectionPlayback,
		Layer:     log.LayerPlatform,
		Category:  log.CategoryRouting,
		Route: &log.RouteEvent{
			Kind:     log.RouteKindPatch,
			IO:       13,
			DeviceID: 2,
			PatchID:  5,
			MixPort:  "fast",
			Device:   "Speaker",
			Flags:    "AUDIO_OUTPUT_FLAG_FAST",
		},
	}

	var buf bytes.Buffer
	formatEvent(&buf, event)
	output := buf.String()

	want := []string{
		"2026-03-02T10:15:32.123456Z [a1b2c3d4] [TC-PERF-001] PLAYBACK PLATFORM PATCH",
		"Stream: 9f8e7d6c",
		"IO: 13 (fast)",
		"Device: 2 (Speaker)",
		"Patch: 5",
		"Flags: AUDIO_OUTPUT_FLAG_FAST",
	}
	for _, w := range want {
		if !strings.Contains(output, w) {
			t.Errorf("expected %q in output:\n%s", w, output)
		}
	}
}

func TestFormatCheckEventWithDiagnostic(t *testing.T) {
	event := log.Event{
		Timestamp: time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC),
		SessionID: "s",
		Layer:     log.LayerVerifier,
		Category:  log.CategoryCheck,
		Check: &log.CheckEvent{
			Name:       "playback_device",
			Fatal:      true,
			Message:    "routed to 2, want 7",
			Diagnostic: "patch 5\nsink 2\n",
		},
	}

	var buf bytes.Buffer
	formatEvent(&buf, event)
	output := buf.String()

	if !strings.Contains(output, "VERIFIER FAIL") {
		t.Errorf("expected FAIL label:\n%s", output)
	}
	if !strings.Contains(output, "Check: playback_device (fatal)") {
		t.Errorf("expected fatal check line:\n%s", output)
	}
	if !strings.Contains(output, "    patch 5\n    sink 2\n") {
		t.Errorf("expected indented diagnostic:\n%s", output)
	}
}

func TestFormatPolicyAndErrorEvents(t *testing.T) {
	ts := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	var buf bytes.Buffer

	formatEvent(&buf, log.Event{
		Timestamp: ts,
		Layer:     log.LayerPolicy,
		Category:  log.CategoryPolicy,
		Policy:    &log.PolicyEvent{Path: "/vendor/etc/audio_policy_configuration.xml", AttachedDevices: 3, MixPorts: 4, Routes: 5},
	})
	formatEvent(&buf, log.Event{
		Timestamp: ts,
		Layer:     log.LayerPolicy,
		Category:  log.CategoryError,
		Error:     &log.ErrorEventData{Layer: log.LayerPolicy, Message: "not found", Context: "/odm/etc"},
	})
	output := buf.String()

	for _, w := range []string{
		"Path: /vendor/etc/audio_policy_configuration.xml",
		"Attached: 3  MixPorts: 4  Routes: 5",
		"POLICY Error",
		"Message: not found",
		"Context: /odm/etc",
	} {
		if !strings.Contains(output, w) {
			t.Errorf("expected %q in output:\n%s", w, output)
		}
	}
}

func TestFormatStreamEvent(t *testing.T) {
	var buf bytes.Buffer
	formatEvent(&buf, log.Event{
		Timestamp: time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC),
		Direction: log.DirectionCapture,
		Layer:     log.LayerPlatform,
		Category:  log.CategoryStream,
		Stream:    &log.StreamEvent{OldState: "CREATED", NewState: "STARTED"},
	})
	output := buf.String()
	if !strings.Contains(output, "CAPTURE PLATFORM Stream") {
		t.Errorf("unexpected header:\n%s", output)
	}
	if !strings.Contains(output, "CREATED -> STARTED") {
		t.Errorf("expected transition:\n%s", output)
	}
}

func TestRunViewAppliesFilter(t *testing.T) {
	ts := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	events := []log.Event{
		{Timestamp: ts, Layer: log.LayerPlatform, Category: log.CategoryRouting, Route: &log.RouteEvent{Kind: log.RouteKindCallback}},
		{Timestamp: ts, Layer: log.LayerVerifier, Category: log.CategoryCheck, Check: &log.CheckEvent{Name: "callback", Passed: true}},
	}
	path := createTestLogFile(t, events)

	layer := log.LayerVerifier
	var buf bytes.Buffer
	if err := RunView(path, log.Filter{Layer: &layer}, &buf); err != nil {
		t.Fatalf("RunView failed: %v", err)
	}
	output := buf.String()
	if strings.Contains(output, "CALLBACK") {
		t.Errorf("platform event should be filtered:\n%s", output)
	}
	if !strings.Contains(output, "VERIFIER PASS") {
		t.Errorf("expected check event:\n%s", output)
	}
}

func TestParseLayerAndCategoryFlags(t *testing.T) {
	if l, err := ParseLayerFlag("Verifier"); err != nil || l != log.LayerVerifier {
		t.Errorf("ParseLayerFlag(Verifier) = %v, %v", l, err)
	}
	if _, err := ParseLayerFlag("transport"); err == nil {
		t.Error("expected error for unknown layer")
	}
	if c, err := ParseCategoryFlag("routing"); err != nil || c != log.CategoryRouting {
		t.Errorf("ParseCategoryFlag(routing) = %v, %v", c, err)
	}
	if _, err := ParseCategoryFlag("snapshot"); err == nil {
		t.Error("expected error for unknown category")
	}
}
