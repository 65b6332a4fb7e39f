package audio

import (
	"fmt"
	"strings"
)

// OutputFlags is a mask of output stream (mix port) capabilities.
type OutputFlags uint32

const (
	OutputFlagNone            OutputFlags = 0x0
	OutputFlagDirect          OutputFlags = 0x1
	OutputFlagPrimary         OutputFlags = 0x2
	OutputFlagFast            OutputFlags = 0x4
	OutputFlagDeepBuffer      OutputFlags = 0x8
	OutputFlagCompressOffload OutputFlags = 0x10
	OutputFlagNonBlocking     OutputFlags = 0x20
	OutputFlagHwAvSync        OutputFlags = 0x40
	OutputFlagTTS             OutputFlags = 0x80
	OutputFlagRaw             OutputFlags = 0x100
	OutputFlagSync            OutputFlags = 0x200
	OutputFlagIEC958NonAudio  OutputFlags = 0x400
	OutputFlagDirectPCM       OutputFlags = 0x2000
	OutputFlagMmapNoIRQ       OutputFlags = 0x4000
	OutputFlagVoIPRx          OutputFlags = 0x8000
	OutputFlagIncallMusic     OutputFlags = 0x10000
	OutputFlagGaplessOffload  OutputFlags = 0x20000
	OutputFlagSpatializer     OutputFlags = 0x40000
	OutputFlagUltrasound      OutputFlags = 0x80000
	OutputFlagBitPerfect      OutputFlags = 0x100000
)

var outputFlagNames = map[string]OutputFlags{
	"AUDIO_OUTPUT_FLAG_NONE":             OutputFlagNone,
	"AUDIO_OUTPUT_FLAG_DIRECT":           OutputFlagDirect,
	"AUDIO_OUTPUT_FLAG_PRIMARY":          OutputFlagPrimary,
	"AUDIO_OUTPUT_FLAG_FAST":             OutputFlagFast,
	"AUDIO_OUTPUT_FLAG_DEEP_BUFFER":      OutputFlagDeepBuffer,
	"AUDIO_OUTPUT_FLAG_COMPRESS_OFFLOAD": OutputFlagCompressOffload,
	"AUDIO_OUTPUT_FLAG_NON_BLOCKING":     OutputFlagNonBlocking,
	"AUDIO_OUTPUT_FLAG_HW_AV_SYNC":       OutputFlagHwAvSync,
	"AUDIO_OUTPUT_FLAG_TTS":              OutputFlagTTS,
	"AUDIO_OUTPUT_FLAG_RAW":              OutputFlagRaw,
	"AUDIO_OUTPUT_FLAG_SYNC":             OutputFlagSync,
	"AUDIO_OUTPUT_FLAG_IEC958_NONAUDIO":  OutputFlagIEC958NonAudio,
	"AUDIO_OUTPUT_FLAG_DIRECT_PCM":       OutputFlagDirectPCM,
	"AUDIO_OUTPUT_FLAG_MMAP_NOIRQ":       OutputFlagMmapNoIRQ,
	"AUDIO_OUTPUT_FLAG_VOIP_RX":          OutputFlagVoIPRx,
	"AUDIO_OUTPUT_FLAG_INCALL_MUSIC":     OutputFlagIncallMusic,
	"AUDIO_OUTPUT_FLAG_GAPLESS_OFFLOAD":  OutputFlagGaplessOffload,
	"AUDIO_OUTPUT_FLAG_SPATIALIZER":      OutputFlagSpatializer,
	"AUDIO_OUTPUT_FLAG_ULTRASOUND":       OutputFlagUltrasound,
	"AUDIO_OUTPUT_FLAG_BIT_PERFECT":      OutputFlagBitPerfect,
}

// InputFlags is a mask of input stream capabilities.
type InputFlags uint32

const (
	InputFlagNone       InputFlags = 0x0
	InputFlagFast       InputFlags = 0x1
	InputFlagHwHotword  InputFlags = 0x2
	InputFlagRaw        InputFlags = 0x4
	InputFlagSync       InputFlags = 0x8
	InputFlagMmapNoIRQ  InputFlags = 0x10
	InputFlagVoIPTx     InputFlags = 0x20
	InputFlagHwAvSync   InputFlags = 0x40
	InputFlagDirect     InputFlags = 0x80
	InputFlagUltrasound InputFlags = 0x100
)

var inputFlagNames = map[string]InputFlags{
	"AUDIO_INPUT_FLAG_NONE":       InputFlagNone,
	"AUDIO_INPUT_FLAG_FAST":       InputFlagFast,
	"AUDIO_INPUT_FLAG_HW_HOTWORD": InputFlagHwHotword,
	"AUDIO_INPUT_FLAG_RAW":        InputFlagRaw,
	"AUDIO_INPUT_FLAG_SYNC":       InputFlagSync,
	"AUDIO_INPUT_FLAG_MMAP_NOIRQ": InputFlagMmapNoIRQ,
	"AUDIO_INPUT_FLAG_VOIP_TX":    InputFlagVoIPTx,
	"AUDIO_INPUT_FLAG_HW_AV_SYNC": InputFlagHwAvSync,
	"AUDIO_INPUT_FLAG_DIRECT":     InputFlagDirect,
	"AUDIO_INPUT_FLAG_ULTRASOUND": InputFlagUltrasound,
}

// AttributeFlags is the flags mask of stream attributes.
type AttributeFlags uint32

const (
	FlagNone                     AttributeFlags = 0x0
	FlagAudibilityEnforced       AttributeFlags = 0x1
	FlagSecure                   AttributeFlags = 0x2
	FlagSCO                      AttributeFlags = 0x4
	FlagBeacon                   AttributeFlags = 0x8
	FlagHwAvSync                 AttributeFlags = 0x10
	FlagHwHotword                AttributeFlags = 0x20
	FlagBypassInterruptionPolicy AttributeFlags = 0x40
	FlagBypassMute               AttributeFlags = 0x80
	FlagLowLatency               AttributeFlags = 0x100
	FlagDeepBuffer               AttributeFlags = 0x200
	FlagNoMediaProjection        AttributeFlags = 0x400
	FlagMuteHaptic               AttributeFlags = 0x800
	FlagNoSystemCapture          AttributeFlags = 0x1000
	FlagCapturePrivate           AttributeFlags = 0x2000
)

var attributeFlagNames = map[string]AttributeFlags{
	"AUDIO_FLAG_NONE":                       FlagNone,
	"AUDIO_FLAG_AUDIBILITY_ENFORCED":        FlagAudibilityEnforced,
	"AUDIO_FLAG_SECURE":                     FlagSecure,
	"AUDIO_FLAG_SCO":                        FlagSCO,
	"AUDIO_FLAG_BEACON":                     FlagBeacon,
	"AUDIO_FLAG_HW_AV_SYNC":                 FlagHwAvSync,
	"AUDIO_FLAG_HW_HOTWORD":                 FlagHwHotword,
	"AUDIO_FLAG_BYPASS_INTERRUPTION_POLICY": FlagBypassInterruptionPolicy,
	"AUDIO_FLAG_BYPASS_MUTE":                FlagBypassMute,
	"AUDIO_FLAG_LOW_LATENCY":                FlagLowLatency,
	"AUDIO_FLAG_DEEP_BUFFER":                FlagDeepBuffer,
	"AUDIO_FLAG_NO_MEDIA_PROJECTION":        FlagNoMediaProjection,
	"AUDIO_FLAG_MUTE_HAPTIC":                FlagMuteHaptic,
	"AUDIO_FLAG_NO_SYSTEM_CAPTURE":          FlagNoSystemCapture,
	"AUDIO_FLAG_CAPTURE_PRIVATE":            FlagCapturePrivate,
}

// SplitFlagTags splits a policy flags attribute into its tags. Tags may be
// separated by '|', spaces or commas.
func SplitFlagTags(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == '|' || r == ' ' || r == ',' || r == '\t' || r == '\n'
	})
}

// ParseOutputFlags parses a tag list such as
// "AUDIO_OUTPUT_FLAG_FAST|AUDIO_OUTPUT_FLAG_PRIMARY".
func ParseOutputFlags(s string) (OutputFlags, error) {
	var mask OutputFlags
	for _, tag := range SplitFlagTags(s) {
		v, ok := outputFlagNames[tag]
		if !ok {
			return mask, fmt.Errorf("unknown output flag %q", tag)
		}
		mask |= v
	}
	return mask, nil
}

// ParseInputFlags parses an input flag tag list.
func ParseInputFlags(s string) (InputFlags, error) {
	var mask InputFlags
	for _, tag := range SplitFlagTags(s) {
		v, ok := inputFlagNames[tag]
		if !ok {
			return mask, fmt.Errorf("unknown input flag %q", tag)
		}
		mask |= v
	}
	return mask, nil
}

// ParseAttributeFlags parses an attribute flag tag list.
func ParseAttributeFlags(s string) (AttributeFlags, error) {
	var mask AttributeFlags
	for _, tag := range SplitFlagTags(s) {
		v, ok := attributeFlagNames[tag]
		if !ok {
			return mask, fmt.Errorf("unknown attribute flag %q", tag)
		}
		mask |= v
	}
	return mask, nil
}

// Has reports whether all bits of f are set.
func (m OutputFlags) Has(f OutputFlags) bool { return m&f == f && f != 0 }

// Has reports whether all bits of f are set.
func (m AttributeFlags) Has(f AttributeFlags) bool { return m&f == f && f != 0 }

// Has reports whether all bits of f are set.
func (m InputFlags) Has(f InputFlags) bool { return m&f == f && f != 0 }

// OutputFlags returns the output flags a stream with these attribute flags
// requests from the policy. LOW_LATENCY wins over DEEP_BUFFER.
func (m AttributeFlags) OutputFlags() OutputFlags {
	var out OutputFlags
	switch {
	case m.Has(FlagLowLatency):
		out |= OutputFlagFast
	case m.Has(FlagDeepBuffer):
		out |= OutputFlagDeepBuffer
	}
	if m.Has(FlagHwAvSync) {
		out |= OutputFlagHwAvSync | OutputFlagDirect
	}
	return out
}

func (m OutputFlags) String() string {
	return maskString(uint32(m), outputFlagByBit, "AUDIO_OUTPUT_FLAG_NONE")
}

func (m InputFlags) String() string {
	return maskString(uint32(m), inputFlagByBit, "AUDIO_INPUT_FLAG_NONE")
}

func (m AttributeFlags) String() string {
	return maskString(uint32(m), attributeFlagByBit, "AUDIO_FLAG_NONE")
}

var (
	outputFlagByBit    = invertOutput()
	inputFlagByBit     = invertInput()
	attributeFlagByBit = invertAttribute()
)

func invertOutput() map[uint32]string {
	out := make(map[uint32]string, len(outputFlagNames))
	for k, v := range outputFlagNames {
		out[uint32(v)] = k
	}
	return out
}

func invertInput() map[uint32]string {
	out := make(map[uint32]string, len(inputFlagNames))
	for k, v := range inputFlagNames {
		out[uint32(v)] = k
	}
	return out
}

func invertAttribute() map[uint32]string {
	out := make(map[uint32]string, len(attributeFlagNames))
	for k, v := range attributeFlagNames {
		out[uint32(v)] = k
	}
	return out
}

// maskString renders set bits in ascending order, joined by '|'. Unknown
// bits are rendered in hex.
func maskString(v uint32, names map[uint32]string, none string) string {
	if v == 0 {
		return none
	}
	var bits []uint32
	for b := uint32(1); b != 0; b <<= 1 {
		if v&b != 0 {
			bits = append(bits, b)
		}
	}
	parts := make([]string, 0, len(bits))
	for _, b := range bits {
		if name, ok := names[b]; ok {
			parts = append(parts, name)
		} else {
			parts = append(parts, fmt.Sprintf("0x%x", b))
		}
	}
	return strings.Join(parts, "|")
}
