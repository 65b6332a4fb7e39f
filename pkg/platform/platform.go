// Package platform defines the audio client surface that routing checks
// drive: playback and capture streams, device callbacks and the port/patch
// query API.
//
// Implementations wrap a real audio stack or, for host-side runs, the
// simulator in package sim.
package platform

import (
	"errors"

	"github.com/omnitrix21/android-frameworks-av/pkg/audio"
)

// Sentinel errors returned by platform implementations.
var (
	ErrNotCreated      = errors.New("stream not created")
	ErrNotStarted      = errors.New("stream not started")
	ErrNoResource      = errors.New("no playback resource loaded")
	ErrCallbackTimeout = errors.New("timed out waiting for device callback")
	ErrPortNotFound    = errors.New("port not found")
	ErrNoPatch         = errors.New("no patch for mix")
	ErrNoRoute         = errors.New("no route to an attached device")
)

// DeviceCallback receives routing updates for a stream.
type DeviceCallback interface {
	OnAudioDeviceUpdate(io audio.IOHandle, devices []audio.PortHandle)
}

// DeviceCallbackFunc adapts a function to DeviceCallback.
type DeviceCallbackFunc func(io audio.IOHandle, devices []audio.PortHandle)

func (f DeviceCallbackFunc) OnAudioDeviceUpdate(io audio.IOHandle, devices []audio.PortHandle) {
	f(io, devices)
}

// PlaybackConfig describes a playback stream.
type PlaybackConfig struct {
	SampleRate  uint32
	Format      audio.Format
	ChannelMask audio.ChannelMask
	OutputFlags audio.OutputFlags
	Transfer    audio.TransferType
	Attributes  audio.Attributes
}

// DefaultPlaybackConfig returns a 48 kHz PCM 16-bit stereo media stream.
func DefaultPlaybackConfig() PlaybackConfig {
	attr := audio.DefaultAttributes()
	attr.Usage = audio.UsageMedia
	attr.ContentType = audio.ContentTypeMusic
	return PlaybackConfig{
		SampleRate:  48000,
		Format:      audio.FormatPCM16Bit,
		ChannelMask: audio.ChannelOutStereo,
		Transfer:    audio.TransferObtain,
		Attributes:  attr,
	}
}

// CaptureConfig describes a capture stream.
type CaptureConfig struct {
	Source      audio.Source
	SampleRate  uint32
	Format      audio.Format
	ChannelMask audio.ChannelMask
	InputFlags  audio.InputFlags
}

// Playback is a client playback stream.
type Playback interface {
	// ID identifies the stream in logs.
	ID() string

	// LoadResource loads the PCM data played by Process.
	LoadResource(path string) error

	// Create opens the stream. No output is attached until Start.
	Create() error

	Start() error

	// Process writes one buffer of the loaded resource.
	Process() error

	Stop() error

	AddDeviceCallback(cb DeviceCallback) error
	RemoveDeviceCallback(cb DeviceCallback) error

	// IO returns the output mix handle, IONone before Start.
	IO() audio.IOHandle

	// RoutedDeviceID returns the sink device port, PortNone when idle.
	RoutedDeviceID() audio.PortHandle

	// Flags returns the effective output flags of the track.
	Flags() audio.OutputFlags
}

// Capture is a client capture stream.
type Capture interface {
	ID() string
	Create() error
	Start() error
	Stop() error
	IO() audio.IOHandle
	RoutedDeviceID() audio.PortHandle
}

// Platform is the audio system under test.
type Platform interface {
	NewPlayback(cfg PlaybackConfig) Playback
	NewCapture(cfg CaptureConfig) Capture

	// PortByAttributes returns the first port matching role, type and
	// device type. ErrPortNotFound when none matches.
	PortByAttributes(role audio.PortRole, typ audio.PortType, device audio.DeviceType) (audio.Port, error)

	// PatchForOutputMix returns the active patch whose sources include the
	// mix io. ErrNoPatch when none is active.
	PatchForOutputMix(io audio.IOHandle) (audio.Patch, error)

	// Ports lists every port known to the platform.
	Ports() []audio.Port
}
