package log

import (
	"time"

	"github.com/google/uuid"
)

// Logger is the interface components use to record routing events.
// Pass nil or NoopLogger to disable capture.
type Logger interface {
	// Log records an event. Implementations must be thread-safe.
	Log(event Event)
}

// NoopLogger discards all events.
// NoopLogger is safe for concurrent use and usable as a zero value.
type NoopLogger struct{}

// Log discards the event.
func (NoopLogger) Log(Event) {}

// Emitter stamps events with a session ID and timestamp before handing
// them to a Logger. A nil *Emitter discards events.
type Emitter struct {
	logger    Logger
	sessionID string
	now       func() time.Time
}

// NewEmitter creates an Emitter with a fresh session ID. A nil logger
// discards events.
func NewEmitter(l Logger) *Emitter {
	if l == nil {
		l = NoopLogger{}
	}
	return &Emitter{
		logger:    l,
		sessionID: uuid.NewString(),
		now:       time.Now,
	}
}

// SessionID returns the session stamped on every event.
func (e *Emitter) SessionID() string {
	if e == nil {
		return ""
	}
	return e.sessionID
}

// Emit fills SessionID and Timestamp when unset and logs the event.
func (e *Emitter) Emit(event Event) {
	if e == nil {
		return
	}
	if event.SessionID == "" {
		event.SessionID = e.sessionID
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = e.now()
	}
	e.logger.Log(event)
}

// Compile-time interface satisfaction check.
var _ Logger = NoopLogger{}
