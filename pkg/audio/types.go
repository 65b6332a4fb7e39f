// Package audio defines the audio framework vocabulary shared by the policy
// extractor, the platform boundary and the routing verifier: flag masks,
// device types, port and patch records.
//
// Numeric values follow the platform's system audio headers so that masks
// reported by a real platform can be compared without translation.
package audio

import (
	"fmt"
	"strings"
)

// IOHandle identifies an opened output or input stream (a mix) on the platform.
type IOHandle int32

// IONone is the "no I/O handle" value.
const IONone IOHandle = 0

// PortHandle identifies an audio port (device or mix) on the platform.
type PortHandle int32

// PortNone is the "no port" value.
const PortNone PortHandle = 0

// PortRole is the role of a port in a patch.
type PortRole uint8

const (
	PortRoleNone   PortRole = 0
	PortRoleSource PortRole = 1
	PortRoleSink   PortRole = 2
)

// String returns the role name.
func (r PortRole) String() string {
	switch r {
	case PortRoleSource:
		return "SOURCE"
	case PortRoleSink:
		return "SINK"
	default:
		return "NONE"
	}
}

// PortType is the kind of port.
type PortType uint8

const (
	PortTypeNone    PortType = 0
	PortTypeDevice  PortType = 1
	PortTypeMix     PortType = 2
	PortTypeSession PortType = 3
)

// String returns the port type name.
func (t PortType) String() string {
	switch t {
	case PortTypeDevice:
		return "DEVICE"
	case PortTypeMix:
		return "MIX"
	case PortTypeSession:
		return "SESSION"
	default:
		return "NONE"
	}
}

// Format is a sample format.
type Format uint32

const (
	FormatDefault   Format = 0x0
	FormatPCM16Bit  Format = 0x1
	FormatPCM8Bit   Format = 0x2
	FormatPCM32Bit  Format = 0x3
	FormatPCM824Bit Format = 0x4
	FormatPCMFloat  Format = 0x5
	FormatPCM24Bit  Format = 0x6
)

// BytesPerSample returns the sample width for linear PCM formats, 0 otherwise.
func (f Format) BytesPerSample() int {
	switch f {
	case FormatPCM8Bit:
		return 1
	case FormatPCM16Bit:
		return 2
	case FormatPCM24Bit:
		return 3
	case FormatPCM32Bit, FormatPCM824Bit, FormatPCMFloat:
		return 4
	default:
		return 0
	}
}

// ChannelMask is a channel position mask.
type ChannelMask uint32

const (
	ChannelOutMono   ChannelMask = 0x1
	ChannelOutStereo ChannelMask = 0x3
	ChannelInMono    ChannelMask = 0x10
	ChannelInStereo  ChannelMask = 0xC
)

// Count returns the number of channels in the mask.
func (m ChannelMask) Count() int {
	n := 0
	for v := uint32(m); v != 0; v &= v - 1 {
		n++
	}
	return n
}

// Usage is the audio attributes usage.
type Usage uint32

const (
	UsageUnknown            Usage = 0
	UsageMedia              Usage = 1
	UsageVoiceCommunication Usage = 2
	UsageAlarm              Usage = 4
	UsageNotification       Usage = 5
	UsageGame               Usage = 14
)

// ContentType is the audio attributes content type.
type ContentType uint32

const (
	ContentTypeUnknown      ContentType = 0
	ContentTypeSpeech       ContentType = 1
	ContentTypeMusic        ContentType = 2
	ContentTypeMovie        ContentType = 3
	ContentTypeSonification ContentType = 4
)

// Source is a capture source.
type Source uint32

const (
	SourceDefault            Source = 0
	SourceMic                Source = 1
	SourceVoiceUplink        Source = 2
	SourceVoiceDownlink      Source = 3
	SourceVoiceCall          Source = 4
	SourceCamcorder          Source = 5
	SourceVoiceRecognition   Source = 6
	SourceVoiceCommunication Source = 7
	SourceRemoteSubmix       Source = 8
	SourceUnprocessed        Source = 9
)

var sourceNames = [...]string{
	SourceDefault:            "AUDIO_SOURCE_DEFAULT",
	SourceMic:                "AUDIO_SOURCE_MIC",
	SourceVoiceUplink:        "AUDIO_SOURCE_VOICE_UPLINK",
	SourceVoiceDownlink:      "AUDIO_SOURCE_VOICE_DOWNLINK",
	SourceVoiceCall:          "AUDIO_SOURCE_VOICE_CALL",
	SourceCamcorder:          "AUDIO_SOURCE_CAMCORDER",
	SourceVoiceRecognition:   "AUDIO_SOURCE_VOICE_RECOGNITION",
	SourceVoiceCommunication: "AUDIO_SOURCE_VOICE_COMMUNICATION",
	SourceRemoteSubmix:       "AUDIO_SOURCE_REMOTE_SUBMIX",
	SourceUnprocessed:        "AUDIO_SOURCE_UNPROCESSED",
}

// String returns the source name.
func (s Source) String() string {
	if int(s) < len(sourceNames) {
		return sourceNames[s]
	}
	return fmt.Sprintf("AUDIO_SOURCE(%d)", uint32(s))
}

// ParseSource parses a source name such as "AUDIO_SOURCE_REMOTE_SUBMIX".
func ParseSource(s string) (Source, error) {
	name := strings.TrimSpace(s)
	for i, n := range sourceNames {
		if n == name {
			return Source(i), nil
		}
	}
	return SourceDefault, fmt.Errorf("unknown source %q", s)
}

// TransferType selects how a playback client feeds data.
type TransferType uint8

const (
	TransferDefault TransferType = iota
	TransferCallback
	TransferObtain
	TransferSync
	TransferShared
)

// Attributes describe the intent of a stream to the policy engine.
type Attributes struct {
	Usage       Usage
	ContentType ContentType
	Source      Source
	Flags       AttributeFlags
	Tags        string
}

// DefaultAttributes returns the initializer value used when a client does not
// pass attributes.
func DefaultAttributes() Attributes {
	return Attributes{Usage: UsageUnknown, ContentType: ContentTypeUnknown, Source: SourceDefault}
}

// Port is a platform audio port as reported by the port query API.
type Port struct {
	ID      PortHandle
	Role    PortRole
	Type    PortType
	Name    string
	Device  DeviceType
	Address string
}

// PortConfigFlags carries the output or input flags of a mix port config.
// Which field applies depends on the port role.
type PortConfigFlags struct {
	Output OutputFlags
	Input  InputFlags
}

// MixExt identifies the mix a MIX-type port config belongs to.
type MixExt struct {
	Handle IOHandle
}

// DeviceExt identifies the device a DEVICE-type port config belongs to.
type DeviceExt struct {
	Type    DeviceType
	Address string
}

// PortConfig is one end of an established patch.
type PortConfig struct {
	ID          PortHandle
	Role        PortRole
	Type        PortType
	SampleRate  uint32
	ChannelMask ChannelMask
	Format      Format
	Flags       PortConfigFlags
	Mix         MixExt
	Device      DeviceExt
}

// Patch is the platform's record of an established source to sink connection.
type Patch struct {
	ID      PortHandle
	Sources []PortConfig
	Sinks   []PortConfig
}

// RoutesTo reports whether the patch has a DEVICE sink with the given port id.
func (p Patch) RoutesTo(device PortHandle) bool {
	for _, s := range p.Sinks {
		if s.Type == PortTypeDevice && s.ID == device {
			return true
		}
	}
	return false
}

// MixSources returns the MIX-type sources belonging to the given I/O handle.
func (p Patch) MixSources(io IOHandle) []PortConfig {
	var out []PortConfig
	for _, s := range p.Sources {
		if s.Type == PortTypeMix && s.Mix.Handle == io {
			out = append(out, s)
		}
	}
	return out
}
