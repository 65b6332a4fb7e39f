// Package loader reads routing test cases and platform capability files.
//
// A test case is a YAML document naming the capabilities it requires and
// the steps it runs:
//
//	id: TC-PERF-001
//	requires: [POLICY.ROUTED_FLAG.AUDIO_OUTPUT_FLAG_FAST]
//	steps:
//	  - action: create_playback
//	    params: {attributes: AUDIO_FLAG_LOW_LATENCY}
//	    expect: {created: true}
package loader

import "strconv"

// TestCase is one routing test.
type TestCase struct {
	ID          string   `yaml:"id"`
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Requires    []string `yaml:"requires"`
	Steps       []Step   `yaml:"steps"`

	// Timeout bounds the whole case, e.g. "20s".
	Timeout string   `yaml:"timeout,omitempty"`
	Tags    []string `yaml:"tags,omitempty"`

	// Skip, when set, skips the case with this reason.
	Skip string `yaml:"skip,omitempty"`
}

// Step is one action of a test case. Params and Expect values may hold
// {{ output }} and ${CAPABILITY} references.
type Step struct {
	Action      string                 `yaml:"action"`
	Params      map[string]interface{} `yaml:"params,omitempty"`
	Expect      map[string]interface{} `yaml:"expect,omitempty"`
	Timeout     string                 `yaml:"timeout,omitempty"`
	Description string                 `yaml:"description,omitempty"`

	// ContinueOnFailure makes a failure of this step non-fatal: it is
	// recorded and the case continues, but the case still fails.
	ContinueOnFailure bool `yaml:"continue_on_failure,omitempty"`
}

// DeviceInfo identifies the handset a capability file describes.
type DeviceInfo struct {
	Vendor  string `yaml:"vendor"`
	Product string `yaml:"product"`
	Model   string `yaml:"model"`
	Build   string `yaml:"build"`
}

// CapabilityFile is a set of platform facts, such as
// POLICY.ATTACHED.REMOTE_SUBMIX=true or PLATFORM.CALLBACK_TIMEOUT_MS=3000,
// that test case requirements are checked against.
type CapabilityFile struct {
	Name   string                 `yaml:"-"`
	Device DeviceInfo             `yaml:"device"`
	Items  map[string]interface{} `yaml:"items"`
}

// NewCapabilityFile returns an empty capability set.
func NewCapabilityFile(name string) *CapabilityFile {
	return &CapabilityFile{Name: name, Items: make(map[string]interface{})}
}

type capabilityYAMLFile struct {
	Device DeviceInfo             `yaml:"device"`
	Items  map[string]interface{} `yaml:"items"`
}

// ValidationLevel is the severity of a capability problem.
type ValidationLevel string

const (
	ValidationLevelError   ValidationLevel = "error"
	ValidationLevelWarning ValidationLevel = "warning"
)

// ValidationError is a problem with one capability item.
type ValidationError struct {
	Field   string
	Message string
	Level   ValidationLevel
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// LoadError reports a file that could not be loaded. Line is 0 when
// unknown.
type LoadError struct {
	File    string
	Line    int
	Message string
	Cause   error
}

func (e *LoadError) Error() string {
	msg := e.Message
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	switch {
	case e.File == "":
		return msg
	case e.Line > 0:
		return e.File + ":" + strconv.Itoa(e.Line) + ": " + msg
	default:
		return e.File + ": " + msg
	}
}

func (e *LoadError) Unwrap() error { return e.Cause }
