package log

import (
	"sync"
	"testing"
	"time"
)

type captureLogger struct {
	mu     sync.Mutex
	events []Event
}

func (c *captureLogger) Log(e Event) {
	c.mu.Lock()
	c.events = append(c.events, e)
	c.mu.Unlock()
}

func TestNoopLoggerIsZeroValue(t *testing.T) {
	var logger NoopLogger
	logger.Log(Event{})
	logger.Log(Event{Error: &ErrorEventData{Message: "ignored"}})
}

func TestEmitterStampsEvents(t *testing.T) {
	c := &captureLogger{}
	e := NewEmitter(c)
	if e.SessionID() == "" {
		t.Fatal("emitter has no session ID")
	}

	e.Emit(Event{Category: CategoryStream})
	fixed := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	e.Emit(Event{Timestamp: fixed, SessionID: "other"})

	if len(c.events) != 2 {
		t.Fatalf("got %d events, want 2", len(c.events))
	}
	if c.events[0].SessionID != e.SessionID() {
		t.Errorf("SessionID: got %q, want %q", c.events[0].SessionID, e.SessionID())
	}
	if c.events[0].Timestamp.IsZero() {
		t.Error("Timestamp not set")
	}
	if c.events[1].SessionID != "other" || !c.events[1].Timestamp.Equal(fixed) {
		t.Errorf("explicit fields overwritten: %+v", c.events[1])
	}
}

func TestEmitterSessionsDiffer(t *testing.T) {
	if NewEmitter(nil).SessionID() == NewEmitter(nil).SessionID() {
		t.Error("two emitters share a session ID")
	}
}

func TestNilEmitter(t *testing.T) {
	var e *Emitter
	e.Emit(Event{})
	if e.SessionID() != "" {
		t.Error("nil emitter has a session ID")
	}
}
