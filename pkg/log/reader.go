package log

import (
	"errors"
	"io"
	"os"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// Filter selects events from a log. Zero-valued fields match everything.
type Filter struct {
	SessionID string
	StreamID  string
	TestID    string

	Direction *Direction
	Layer     *Layer
	Category  *Category

	// TimeStart is inclusive, TimeEnd exclusive.
	TimeStart *time.Time
	TimeEnd   *time.Time

	// FailedOnly keeps failed checks and error events.
	FailedOnly bool
}

// Matches reports whether event satisfies every criterion of f.
func (f *Filter) Matches(event Event) bool {
	ts := event.Timestamp
	switch {
	case !matchString(f.SessionID, event.SessionID),
		!matchString(f.StreamID, event.StreamID),
		!matchString(f.TestID, event.TestID):
		return false
	case f.Direction != nil && *f.Direction != event.Direction,
		f.Layer != nil && *f.Layer != event.Layer,
		f.Category != nil && *f.Category != event.Category:
		return false
	case f.TimeStart != nil && ts.Before(*f.TimeStart),
		f.TimeEnd != nil && !ts.Before(*f.TimeEnd):
		return false
	case f.FailedOnly:
		return event.Failed()
	}
	return true
}

func matchString(want, got string) bool {
	return want == "" || want == got
}

// Failed reports whether the event records an error or a failed check.
func (e Event) Failed() bool {
	return e.Error != nil || (e.Check != nil && !e.Check.Passed)
}

// Reader streams events from a CBOR log file, skipping those the filter
// rejects.
type Reader struct {
	rc     io.ReadCloser
	dec    *cbor.Decoder
	filter Filter
}

// NewReader opens path and reads every event in it.
func NewReader(path string) (*Reader, error) {
	return NewFilteredReader(path, Filter{})
}

// NewFilteredReader opens path and reads only events matching filter.
func NewFilteredReader(path string, filter Filter) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return &Reader{rc: f, dec: NewDecoder(f), filter: filter}, nil
}

// Next returns the next matching event, or io.EOF at the end of the log.
func (r *Reader) Next() (Event, error) {
	for {
		var event Event
		if err := r.dec.Decode(&event); err != nil {
			return Event{}, err
		}
		if r.filter.Matches(event) {
			return event, nil
		}
	}
}

// Each calls fn for every remaining matching event. It stops at the end
// of the log or at the first error returned by fn.
func (r *Reader) Each(fn func(Event) error) error {
	for {
		event, err := r.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := fn(event); err != nil {
			return err
		}
	}
}

// Close closes the underlying file.
func (r *Reader) Close() error {
	return r.rc.Close()
}
