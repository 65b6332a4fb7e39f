package engine

// Infrastructure keys used internally by the engine.
const (
	InternalStepOutput = "__step_output"
)

// State keys referenced by engine checkers. These correspond to output keys
// set by runner handlers.
const (
	KeyFlags   = "flags"
	KeyError   = "error"
	KeyLatency = "latency"

	// KeyDiagnostic holds a multi-line dump, such as a patch or port
	// config, attached to a failed check.
	KeyDiagnostic = "diagnostic"
)

// Checker registration names -- the expect keys that appear in YAML test
// files.
const (
	CheckerNameDefault              = "default"
	CheckerNameSaveAs               = "save_as"
	CheckerNameMatchesSaved         = "matches_saved"
	CheckerNameErrorMessageContains = "error_message_contains"
	CheckerNameNoError              = "no_error"
	CheckerNameCallbackLatencyUnder = "callback_latency_under"
	CheckerNameFlagsInclude         = "flags_include"
	CheckerNameFlagsExclude         = "flags_exclude"
)

// Field checker suffixes. An expect key is the output name followed by one
// of these, e.g. "source_count_greater_than".
const (
	SuffixGreaterThan = "_greater_than"
	SuffixLessThan    = "_less_than"
	SuffixNot         = "_not"
	SuffixIn          = "_in"
	SuffixNotEmpty    = "_not_empty"
	SuffixContains    = "_contains"
)
