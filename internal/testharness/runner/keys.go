package runner

import (
	"github.com/omnitrix21/android-frameworks-av/internal/testharness/engine"
	"github.com/omnitrix21/android-frameworks-av/internal/testharness/reporter"
)

// ============================================================================
// Action names -- the values of "action" in YAML test steps.
// ============================================================================

// Policy actions.
const (
	ActionLoadPolicy            = "load_policy"
	ActionFindFlagRoute         = "find_flag_route"
	ActionRequireAttachedDevice = "require_attached_device"
)

// Playback actions.
const (
	ActionCreatePlayback        = "create_playback"
	ActionAddDeviceCallback     = "add_device_callback"
	ActionStartPlayback         = "start_playback"
	ActionProcessPlayback       = "process_playback"
	ActionWaitDeviceCallback    = "wait_device_callback"
	ActionCheckPatchDevice      = "check_patch_device"
	ActionCheckTrackFlags       = "check_track_flags"
	ActionCheckPatchSourceFlags = "check_patch_source_flags"
	ActionStopPlayback          = "stop_playback"
)

// Port and capture actions.
const (
	ActionGetPort       = "get_port"
	ActionCreateCapture = "create_capture"
	ActionStartCapture  = "start_capture"
	ActionStopCapture   = "stop_capture"
)

// Scenario actions run a complete built-in scenario in one step.
const (
	ActionVerifyPerformanceMode = "verify_performance_mode"
	ActionVerifyRemoteSubmix    = "verify_remote_submix"
)

// Utility actions.
const (
	ActionWait    = "wait"
	ActionCompare = "compare"
)

// ============================================================================
// Step parameters.
// ============================================================================

const (
	ParamPath          = "path"
	ParamSKU           = "sku"
	ParamRoot          = "root"
	ParamMatchMode     = "match_mode"
	ParamFlag          = "flag"
	ParamSkipIfMissing = "skip_if_missing"
	ParamDevice        = "device"
	ParamStream        = "stream"
	ParamAttributes    = "attributes"
	ParamOutputFlags   = "output_flags"
	ParamResource      = "resource"
	ParamSampleRate    = "sample_rate"
	ParamBuffers       = "buffers"
	ParamTimeoutMs     = "timeout_ms"
	ParamRole          = "role"
	ParamPortType      = "port_type"
	ParamDeviceType    = "device_type"
	ParamSource        = "source"
	ParamTag           = "tag"
	ParamDurationMs    = "duration_ms"
	ParamLeft          = "left"
	ParamRight         = "right"
	ParamOperator      = "operator"
)

// ============================================================================
// Output keys -- set by handlers and referenced from "expect" blocks.
// ============================================================================

// Policy outputs.
const (
	KeyLoaded          = "loaded"
	KeyPolicyPath      = "policy_path"
	KeyVersion         = "version"
	KeyModules         = "modules"
	KeyAttachedDevices = "attached_devices"
	KeyMixPortCount    = "mix_port_count"
	KeyRouteCount      = "route_count"
	KeyErrorKind       = "error_kind"
	KeyFound           = "found"
	KeyMixPort         = "mix_port"
	KeyMixPortFlags    = "mix_port_flags"
	KeySink            = "sink"
	KeyModule          = "module"
	KeyAttached        = "attached"
)

// Stream outputs.
const (
	KeyStreamID         = "stream_id"
	KeyCreated          = "created"
	KeyRegistered       = "registered"
	KeyStarted          = "started"
	KeyStopped          = "stopped"
	KeyBuffers          = "buffers_written"
	KeyIO               = "io"
	KeyDeviceID         = "device_id"
	KeyCallbackReceived = "callback_received"
	KeyRouted           = "routed"
	KeyPatchID          = "patch_id"
	KeySinkDevice       = "sink_device"
	KeyHasFlag          = "has_flag"
	KeySourceCount      = "source_count"
)

// Port outputs.
const (
	KeyPortID     = "port_id"
	KeyPortName   = "port_name"
	KeyPortType   = "port_type"
	KeyAddress    = "address"
	KeyDeviceType = "device_type"
)

// Scenario outputs.
const (
	KeyPassed       = "passed"
	KeyStatus       = "status"
	KeyChecks       = "checks"
	KeyFailureCount = "failure_count"
	KeyFailedChecks = "failed_checks"
	KeyFatal        = "fatal"
	KeyCaseStatus   = "case_status"
)

// Utility outputs.
const (
	KeyWaited           = "waited"
	KeyComparisonResult = "comparison_result"
	KeyValuesEqual      = "values_equal"
)

// Shared with the engine checkers and the reporter.
const (
	KeyFlags                = engine.KeyFlags
	KeyError                = engine.KeyError
	KeyLatency              = engine.KeyLatency
	KeyErrorMessageContains = engine.CheckerNameErrorMessageContains
	KeyDiagnostic           = reporter.DiagnosticKey
)

// ExecutionState.Custom keys.
const (
	customEnv = "routing_env"
)

// defaultStream is the stream name used when a step does not name one.
const defaultStream = "main"
