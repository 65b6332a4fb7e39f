package verify

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/omnitrix21/android-frameworks-av/pkg/audio"
	"github.com/omnitrix21/android-frameworks-av/pkg/policy"
)

// ErrCheckFailed is wrapped by CaseResult.Err for failed cases.
var ErrCheckFailed = errors.New("routing check failed")

// Status is the outcome of a case.
type Status uint8

const (
	StatusPassed Status = iota
	StatusFailed
	StatusSkipped
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusPassed:
		return "PASSED"
	case StatusFailed:
		return "FAILED"
	case StatusSkipped:
		return "SKIPPED"
	default:
		return "UNKNOWN"
	}
}

// Failure is one failed check.
type Failure struct {
	Check   string
	Message string

	// Fatal failures abort the case.
	Fatal bool

	// Diagnostic is an optional multi-line dump, e.g. a port config.
	Diagnostic string
}

func (f Failure) String() string {
	s := f.Check + ": " + f.Message
	if f.Fatal {
		s += " (fatal)"
	}
	return s
}

// CaseResult is the outcome of one scenario case.
type CaseResult struct {
	Name       string
	Status     Status
	SkipReason string

	// Path is the policy path under test for performance mode cases.
	Path policy.Path

	// IO and DeviceID are the routing observed for the playback stream.
	IO       audio.IOHandle
	DeviceID audio.PortHandle

	Checks   int
	Failures []Failure
	Duration time.Duration
}

// Passed reports whether the case ran and no check failed.
func (r *CaseResult) Passed() bool { return r.Status == StatusPassed }

// Skipped reports whether the case was skipped.
func (r *CaseResult) Skipped() bool { return r.Status == StatusSkipped }

// Fatal reports whether the case was aborted.
func (r *CaseResult) Fatal() bool {
	for _, f := range r.Failures {
		if f.Fatal {
			return true
		}
	}
	return false
}

// Err returns nil unless the case failed.
func (r *CaseResult) Err() error {
	if r.Status != StatusFailed {
		return nil
	}
	msgs := make([]string, len(r.Failures))
	for i, f := range r.Failures {
		msgs[i] = f.String()
	}
	return fmt.Errorf("%w: %s: %s", ErrCheckFailed, r.Name, strings.Join(msgs, "; "))
}

// String renders the result and any failure diagnostics.
func (r *CaseResult) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", r.Name, r.Status)
	if r.SkipReason != "" {
		fmt.Fprintf(&b, " (%s)", r.SkipReason)
	}
	b.WriteString("\n")
	for _, f := range r.Failures {
		fmt.Fprintf(&b, "  %s\n", f)
		for _, line := range strings.Split(strings.TrimRight(f.Diagnostic, "\n"), "\n") {
			if line != "" {
				fmt.Fprintf(&b, "    %s\n", line)
			}
		}
	}
	return b.String()
}

// Results is the outcome of a set of cases.
type Results []*CaseResult

// Failed returns the failed cases.
func (rs Results) Failed() Results {
	var out Results
	for _, r := range rs {
		if r.Status == StatusFailed {
			out = append(out, r)
		}
	}
	return out
}

// Err joins the errors of all failed cases.
func (rs Results) Err() error {
	var errs []error
	for _, r := range rs {
		if err := r.Err(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
