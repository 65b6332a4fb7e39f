package log

import (
	"time"
)

// Event represents a routing event captured while a check runs.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// SessionID identifies one harness or verifier run (UUID).
	SessionID string `cbor:"2,keyasint"`

	// StreamID identifies the playback or capture stream (UUID).
	StreamID string `cbor:"3,keyasint,omitempty"`

	// Layer where the event was captured.
	Layer Layer `cbor:"4,keyasint"`

	// Category classifies the event type.
	Category Category `cbor:"5,keyasint"`

	// Direction is playback or capture for stream events.
	Direction Direction `cbor:"6,keyasint,omitempty"`

	// TestID is the harness test case or verifier case name.
	TestID string `cbor:"7,keyasint,omitempty"`

	// Type-specific payload (one of these will be set).
	Stream *StreamEvent    `cbor:"10,keyasint,omitempty"` // Stream lifecycle
	Route  *RouteEvent     `cbor:"11,keyasint,omitempty"` // Routing decisions and callbacks
	Check  *CheckEvent     `cbor:"12,keyasint,omitempty"` // Assertion outcomes
	Policy *PolicyEvent    `cbor:"13,keyasint,omitempty"` // Configuration loads
	Error  *ErrorEventData `cbor:"14,keyasint,omitempty"` // Errors at any layer
}

// Direction indicates the stream direction.
type Direction uint8

const (
	// DirectionNone is used for events not tied to a stream.
	DirectionNone Direction = 0
	// DirectionPlayback indicates an output stream.
	DirectionPlayback Direction = 1
	// DirectionCapture indicates an input stream.
	DirectionCapture Direction = 2
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case DirectionNone:
		return "NONE"
	case DirectionPlayback:
		return "PLAYBACK"
	case DirectionCapture:
		return "CAPTURE"
	default:
		return "UNKNOWN"
	}
}

// Layer indicates which component captured the event.
type Layer uint8

const (
	// LayerPolicy is the configuration extractor.
	LayerPolicy Layer = 0
	// LayerPlatform is the audio platform (real or simulated).
	LayerPlatform Layer = 1
	// LayerVerifier is the routing verifier and the harness.
	LayerVerifier Layer = 2
)

// String returns the layer name.
func (l Layer) String() string {
	switch l {
	case LayerPolicy:
		return "POLICY"
	case LayerPlatform:
		return "PLATFORM"
	case LayerVerifier:
		return "VERIFIER"
	default:
		return "UNKNOWN"
	}
}

// Category classifies the event type.
type Category uint8

const (
	// CategoryStream indicates a stream state change.
	CategoryStream Category = 0
	// CategoryRouting indicates a routing decision or device callback.
	CategoryRouting Category = 1
	// CategoryCheck indicates an assertion outcome.
	CategoryCheck Category = 2
	// CategoryPolicy indicates a configuration load.
	CategoryPolicy Category = 3
	// CategoryError indicates an error event.
	CategoryError Category = 4
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryStream:
		return "STREAM"
	case CategoryRouting:
		return "ROUTING"
	case CategoryCheck:
		return "CHECK"
	case CategoryPolicy:
		return "POLICY"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// StreamEvent captures stream lifecycle transitions.
type StreamEvent struct {
	// OldState is the previous state (may be empty).
	OldState string `cbor:"1,keyasint,omitempty"`

	// NewState is the new state.
	NewState string `cbor:"2,keyasint"`

	// Reason for the change (if available).
	Reason string `cbor:"3,keyasint,omitempty"`
}

// RouteKind distinguishes routing events.
type RouteKind uint8

const (
	// RouteKindSelected is an output or input selection by the policy.
	RouteKindSelected RouteKind = 0
	// RouteKindPatch is a patch being established.
	RouteKindPatch RouteKind = 1
	// RouteKindCallback is a device callback delivered to a client.
	RouteKindCallback RouteKind = 2
	// RouteKindReleased is a patch being released.
	RouteKindReleased RouteKind = 3
)

// String returns the route kind name.
func (k RouteKind) String() string {
	switch k {
	case RouteKindSelected:
		return "SELECTED"
	case RouteKindPatch:
		return "PATCH"
	case RouteKindCallback:
		return "CALLBACK"
	case RouteKindReleased:
		return "RELEASED"
	default:
		return "UNKNOWN"
	}
}

// RouteEvent captures a routing decision.
type RouteEvent struct {
	Kind RouteKind `cbor:"1,keyasint"`

	// IO is the mix handle.
	IO int32 `cbor:"2,keyasint,omitempty"`

	// DeviceID is the device port handle.
	DeviceID int32 `cbor:"3,keyasint,omitempty"`

	// PatchID is the patch handle for patch events.
	PatchID int32 `cbor:"4,keyasint,omitempty"`

	// MixPort is the mix port name from the configuration.
	MixPort string `cbor:"5,keyasint,omitempty"`

	// Device is the device port tag name.
	Device string `cbor:"6,keyasint,omitempty"`

	// Flags is the symbolic flag mask of the mix.
	Flags string `cbor:"7,keyasint,omitempty"`
}

// CheckEvent captures an assertion outcome.
type CheckEvent struct {
	// Name of the check.
	Name string `cbor:"1,keyasint"`

	// Passed is true when the check held.
	Passed bool `cbor:"2,keyasint"`

	// Fatal marks failures that aborted the case.
	Fatal bool `cbor:"3,keyasint,omitempty"`

	// Message describes the outcome.
	Message string `cbor:"4,keyasint,omitempty"`

	// Diagnostic holds dumps attached to a failure.
	Diagnostic string `cbor:"5,keyasint,omitempty"`
}

// PolicyEvent captures a configuration load.
type PolicyEvent struct {
	Path            string `cbor:"1,keyasint"`
	AttachedDevices int    `cbor:"2,keyasint"`
	MixPorts        int    `cbor:"3,keyasint"`
	Routes          int    `cbor:"4,keyasint"`
}

// ErrorEventData captures errors at any layer.
type ErrorEventData struct {
	// Layer where the error occurred.
	Layer Layer `cbor:"1,keyasint"`

	// Message is the error message.
	Message string `cbor:"2,keyasint"`

	// Context describes what operation was being performed.
	Context string `cbor:"3,keyasint,omitempty"`
}
