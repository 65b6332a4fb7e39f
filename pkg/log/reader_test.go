package log

import (
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func createTestLogFile(t *testing.T, events []Event) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.arlog")

	logger, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("failed to create test log: %v", err)
	}
	for _, e := range events {
		logger.Log(e)
	}
	logger.Close()

	return path
}

func readAll(t *testing.T, path string, filter Filter) []Event {
	t.Helper()
	reader, err := NewFilteredReader(path, filter)
	if err != nil {
		t.Fatalf("NewFilteredReader failed: %v", err)
	}
	defer reader.Close()

	var out []Event
	err = reader.Each(func(e Event) error {
		out = append(out, e)
		return nil
	})
	if err != nil {
		t.Fatalf("Each failed: %v", err)
	}
	return out
}

func TestReaderIteratesEvents(t *testing.T) {
	events := []Event{
		{Timestamp: time.Now(), SessionID: "s", StreamID: "p-1", Layer: LayerPlatform, Category: CategoryStream},
		{Timestamp: time.Now(), SessionID: "s", StreamID: "p-1", Layer: LayerPlatform, Category: CategoryRouting},
		{Timestamp: time.Now(), SessionID: "s", Layer: LayerVerifier, Category: CategoryCheck},
	}

	read := readAll(t, createTestLogFile(t, events), Filter{})
	if len(read) != 3 {
		t.Fatalf("got %d events, want 3", len(read))
	}
	if read[0].Category != CategoryStream {
		t.Errorf("first event Category = %v, want STREAM", read[0].Category)
	}
	if read[2].Layer != LayerVerifier {
		t.Errorf("last event Layer = %v, want VERIFIER", read[2].Layer)
	}
}

func TestReaderHandlesEmptyFile(t *testing.T) {
	if got := readAll(t, createTestLogFile(t, nil), Filter{}); len(got) != 0 {
		t.Errorf("got %d events from empty file", len(got))
	}
}

func TestReaderMissingFile(t *testing.T) {
	if _, err := NewReader(filepath.Join(t.TempDir(), "missing.arlog")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestReaderFilters(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	events := []Event{
		{Timestamp: base, SessionID: "a", StreamID: "p-1", Direction: DirectionPlayback, Layer: LayerPlatform, Category: CategoryStream},
		{Timestamp: base.Add(time.Second), SessionID: "a", StreamID: "c-1", Direction: DirectionCapture, Layer: LayerPlatform, Category: CategoryRouting},
		{Timestamp: base.Add(2 * time.Second), SessionID: "a", TestID: "TC-1", Layer: LayerVerifier, Category: CategoryCheck, Check: &CheckEvent{Name: "flags", Passed: false}},
		{Timestamp: base.Add(3 * time.Second), SessionID: "b", TestID: "TC-2", Layer: LayerVerifier, Category: CategoryCheck, Check: &CheckEvent{Name: "device", Passed: true}},
		{Timestamp: base.Add(4 * time.Second), SessionID: "b", Layer: LayerPolicy, Category: CategoryError, Error: &ErrorEventData{Message: "boom"}},
	}
	path := createTestLogFile(t, events)

	capture := DirectionCapture
	verifier := LayerVerifier
	check := CategoryCheck
	start := base.Add(time.Second)
	end := base.Add(3 * time.Second)

	tests := []struct {
		name   string
		filter Filter
		want   int
	}{
		{"session", Filter{SessionID: "a"}, 3},
		{"stream", Filter{StreamID: "p-1"}, 1},
		{"test", Filter{TestID: "TC-2"}, 1},
		{"direction", Filter{Direction: &capture}, 1},
		{"layer", Filter{Layer: &verifier}, 2},
		{"category", Filter{Category: &check}, 2},
		{"time window", Filter{TimeStart: &start, TimeEnd: &end}, 2},
		{"failed only", Filter{FailedOnly: true}, 2},
		{"combined", Filter{SessionID: "b", FailedOnly: true}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := len(readAll(t, path, tt.filter)); got != tt.want {
				t.Errorf("got %d events, want %d", got, tt.want)
			}
		})
	}
}

func TestReaderEachStopsOnError(t *testing.T) {
	events := []Event{
		{SessionID: "s", Category: CategoryStream},
		{SessionID: "s", Category: CategoryRouting},
		{SessionID: "s", Category: CategoryCheck},
	}
	reader, err := NewReader(createTestLogFile(t, events))
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	defer reader.Close()

	stop := errors.New("stop")
	seen := 0
	err = reader.Each(func(e Event) error {
		seen++
		if e.Category == CategoryRouting {
			return stop
		}
		return nil
	})
	if !errors.Is(err, stop) {
		t.Errorf("Each = %v, want stop", err)
	}
	if seen != 2 {
		t.Errorf("saw %d events, want 2", seen)
	}
}

func TestEventFailed(t *testing.T) {
	if (Event{Check: &CheckEvent{Passed: true}}).Failed() {
		t.Error("a passed check is not a failure")
	}
	if !(Event{Check: &CheckEvent{Passed: false}}).Failed() {
		t.Error("a failed check is a failure")
	}
	if !(Event{Error: &ErrorEventData{Message: "x"}}).Failed() {
		t.Error("an error event is a failure")
	}
}
