package policy

import "errors"

// Extraction failure kinds. A *ParseError matches exactly one of these
// through errors.Is.
var (
	// ErrNotFound is returned when no readable configuration file exists on
	// the search path.
	ErrNotFound = errors.New("audio policy configuration not found")

	// ErrUnreadable is returned when the configuration file cannot be read.
	ErrUnreadable = errors.New("audio policy configuration unreadable")

	// ErrMalformed is returned when the document does not parse or its root
	// element is missing or unexpected.
	ErrMalformed = errors.New("malformed audio policy configuration")

	// ErrInclude is returned when XInclude processing fails.
	ErrInclude = errors.New("audio policy include processing failed")
)

// ParseError describes a failed extraction.
type ParseError struct {
	// Path is the file being processed, empty for in-memory documents.
	Path string

	// Kind is one of the package sentinel errors.
	Kind error

	// Message adds detail to Kind.
	Message string

	// Cause is the underlying error, if any.
	Cause error
}

func (e *ParseError) Error() string {
	msg := e.Kind.Error()
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Path != "" {
		msg = e.Path + ": " + msg
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Is reports whether target is the failure kind of e.
func (e *ParseError) Is(target error) bool {
	return target == e.Kind
}

func (e *ParseError) Unwrap() error {
	return e.Cause
}
