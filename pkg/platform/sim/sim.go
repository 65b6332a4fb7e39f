// Package sim implements platform.Platform on top of a parsed policy
// configuration, for running routing checks on a host without an audio
// stack.
//
// The simulator follows the policy engine closely enough for routing checks:
//
//   - every declared device port gets a port handle; attached devices are
//     available from the start
//   - every source mix port is an opened output with its own I/O handle
//   - media is sent to the default output device, or to the remote submix
//     output while a remote submix capture is running
//   - among the outputs routed to that device, LOW_LATENCY selects a FAST
//     output and DEEP_BUFFER a DEEP_BUFFER output; PRIMARY is the fallback
//
// Starting a stream establishes a patch and delivers device callbacks on
// a separate goroutine.
package sim

import (
	"errors"
	"fmt"
	"io/fs"
	"sync"
	"time"

	"github.com/omnitrix21/android-frameworks-av/pkg/audio"
	"github.com/omnitrix21/android-frameworks-av/pkg/log"
	"github.com/omnitrix21/android-frameworks-av/pkg/platform"
	"github.com/omnitrix21/android-frameworks-av/pkg/policy"
)

// DefaultBufferFrames is the number of frames written per Process call.
const DefaultBufferFrames = 960

// Options configure a Simulator.
type Options struct {
	// Mode selects how route sources are matched against mix port names.
	Mode policy.MatchMode

	// Events receives routing events. Nil discards them.
	Events *log.Emitter

	// CallbackDelay delays device callbacks after Start.
	CallbackDelay time.Duration

	// BufferFrames overrides DefaultBufferFrames.
	BufferFrames int

	// SynthesizeMissing replaces a missing playback resource with one
	// second of silence.
	SynthesizeMissing bool

	// IgnorePerformanceFlags makes output selection disregard LOW_LATENCY
	// and DEEP_BUFFER, like a policy without performance mode support.
	IgnorePerformanceFlags bool
}

type device struct {
	port     audio.Port
	tag      string
	attached bool
	// connected is set for devices made available at runtime.
	connected bool
}

func (d *device) available() bool { return d.attached || d.connected }

type output struct {
	io     audio.IOHandle
	portID audio.PortHandle
	mix    policy.MixPort
	flags  audio.OutputFlags
	active int
	patch  audio.PortHandle
	sink   *device
}

// Simulator is a platform.Platform backed by a policy configuration.
// It is safe for concurrent use.
type Simulator struct {
	mu      sync.Mutex
	cfg     *policy.Config
	opts    Options
	next    int32
	devices []*device
	outputs []*output
	patches map[audio.PortHandle]audio.Patch

	submixCaptures int

	callbacks sync.WaitGroup
}

// New builds a simulator for cfg.
func New(cfg *policy.Config, opts Options) *Simulator {
	if opts.BufferFrames <= 0 {
		opts.BufferFrames = DefaultBufferFrames
	}
	s := &Simulator{
		cfg:     cfg,
		opts:    opts,
		patches: make(map[audio.PortHandle]audio.Patch),
	}

	seen := make(map[string]bool)
	for _, dp := range cfg.DevicePorts {
		if seen[dp.TagName] {
			continue
		}
		seen[dp.TagName] = true
		typ, _ := dp.DeviceType()
		s.devices = append(s.devices, &device{
			port: audio.Port{
				ID:      s.allocate(),
				Role:    deviceRole(typ, dp.Role),
				Type:    audio.PortTypeDevice,
				Name:    dp.TagName,
				Device:  typ,
				Address: dp.Address,
			},
			tag:      dp.TagName,
			attached: cfg.IsAttached(dp.TagName),
		})
	}
	// Attached devices without a device port declaration.
	for _, name := range cfg.AttachedDevices {
		if seen[name] {
			continue
		}
		seen[name] = true
		s.devices = append(s.devices, &device{
			port:     audio.Port{ID: s.allocate(), Role: audio.PortRoleSink, Type: audio.PortTypeDevice, Name: name},
			tag:      name,
			attached: true,
		})
	}

	for _, mp := range cfg.MixPorts {
		s.outputs = append(s.outputs, &output{
			io:     audio.IOHandle(s.allocate()),
			portID: s.allocate(),
			mix:    mp,
			flags:  mp.OutputFlags(),
		})
	}
	return s
}

func deviceRole(typ audio.DeviceType, role string) audio.PortRole {
	switch {
	case typ.IsInput():
		return audio.PortRoleSource
	case typ.IsOutput():
		return audio.PortRoleSink
	case role == policy.RoleSource:
		return audio.PortRoleSource
	default:
		return audio.PortRoleSink
	}
}

// allocate returns a fresh handle. Callers hold mu or run before the
// simulator is shared.
func (s *Simulator) allocate() audio.PortHandle {
	s.next++
	return audio.PortHandle(s.next)
}

// Config returns the configuration the simulator was built from.
func (s *Simulator) Config() *policy.Config { return s.cfg }

// Close waits for pending device callbacks.
func (s *Simulator) Close() error {
	s.callbacks.Wait()
	return nil
}

// NewPlayback implements platform.Platform.
func (s *Simulator) NewPlayback(cfg platform.PlaybackConfig) platform.Playback {
	return newPlayback(s, cfg)
}

// NewCapture implements platform.Platform.
func (s *Simulator) NewCapture(cfg platform.CaptureConfig) platform.Capture {
	return newCapture(s, cfg)
}

// Ports implements platform.Platform. Only available devices are listed.
func (s *Simulator) Ports() []audio.Port {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []audio.Port
	for _, d := range s.devices {
		if d.available() {
			out = append(out, d.port)
		}
	}
	for _, o := range s.outputs {
		out = append(out, audio.Port{ID: o.portID, Role: audio.PortRoleSource, Type: audio.PortTypeMix, Name: o.mix.Name})
	}
	return out
}

// PortByAttributes implements platform.Platform.
func (s *Simulator) PortByAttributes(role audio.PortRole, typ audio.PortType, dev audio.DeviceType) (audio.Port, error) {
	for _, p := range s.Ports() {
		if p.Role == role && p.Type == typ && (typ != audio.PortTypeDevice || p.Device == dev) {
			return p, nil
		}
	}
	return audio.Port{}, fmt.Errorf("%w: role %s type %s device %s", platform.ErrPortNotFound, role, typ, dev)
}

// PatchForOutputMix implements platform.Platform.
func (s *Simulator) PatchForOutputMix(io audio.IOHandle) (audio.Patch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.patches {
		if len(p.MixSources(io)) > 0 {
			return p, nil
		}
	}
	return audio.Patch{}, fmt.Errorf("%w %d", platform.ErrNoPatch, io)
}

func (s *Simulator) routes(o *output, d *device) bool {
	if !d.available() {
		return false
	}
	for _, r := range s.cfg.Routes {
		if r.Sink == d.tag && r.Lists(o.mix.Name, s.opts.Mode) {
			return true
		}
	}
	return false
}

func (s *Simulator) reachable(d *device) bool {
	for _, o := range s.outputs {
		if s.routes(o, d) {
			return true
		}
	}
	return false
}

// selectSink picks the media output device. Callers hold mu.
func (s *Simulator) selectSink() (*device, error) {
	if s.submixCaptures > 0 {
		for _, d := range s.devices {
			if d.port.Device == audio.DeviceOutRemoteSubmix && s.reachable(d) {
				return d, nil
			}
		}
	}
	for _, name := range s.cfg.DefaultOutputDevices {
		for _, d := range s.devices {
			if d.tag == name && s.reachable(d) {
				return d, nil
			}
		}
	}
	for _, d := range s.devices {
		if d.port.Role == audio.PortRoleSink && s.reachable(d) {
			return d, nil
		}
	}
	return nil, platform.ErrNoRoute
}

// selectOutput picks the output for a stream requesting flags on sink.
// Callers hold mu.
func (s *Simulator) selectOutput(sink *device, flags audio.OutputFlags) (*output, error) {
	var candidates []*output
	for _, o := range s.outputs {
		if s.routes(o, sink) {
			candidates = append(candidates, o)
		}
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w: %s", platform.ErrNoRoute, sink.tag)
	}

	if !s.opts.IgnorePerformanceFlags {
		for _, want := range []audio.OutputFlags{audio.OutputFlagFast, audio.OutputFlagDeepBuffer} {
			if !flags.Has(want) {
				continue
			}
			for _, o := range candidates {
				if o.flags.Has(want) {
					return o, nil
				}
			}
		}
	}
	for _, o := range candidates {
		if o.flags.Has(audio.OutputFlagPrimary) {
			return o, nil
		}
	}
	return candidates[0], nil
}

// openOutput attaches a stream to o routed to sink, creating or moving the
// output patch. Callers hold mu.
func (s *Simulator) openOutput(o *output, sink *device, cfg platform.PlaybackConfig) audio.Patch {
	o.active++
	if o.patch != audio.PortNone && o.sink == sink {
		return s.patches[o.patch]
	}
	if o.patch != audio.PortNone {
		delete(s.patches, o.patch)
	}

	p := audio.Patch{
		ID: s.allocate(),
		Sources: []audio.PortConfig{{
			ID:          o.portID,
			Role:        audio.PortRoleSource,
			Type:        audio.PortTypeMix,
			SampleRate:  cfg.SampleRate,
			ChannelMask: cfg.ChannelMask,
			Format:      cfg.Format,
			Flags:       audio.PortConfigFlags{Output: o.flags},
			Mix:         audio.MixExt{Handle: o.io},
		}},
		Sinks: []audio.PortConfig{sinkConfig(sink)},
	}
	s.patches[p.ID] = p
	o.patch = p.ID
	o.sink = sink
	return p
}

// closeOutput detaches a stream from o, releasing the patch with the last
// one. Callers hold mu.
func (s *Simulator) closeOutput(o *output) (released audio.PortHandle) {
	if o.active > 0 {
		o.active--
	}
	if o.active > 0 || o.patch == audio.PortNone {
		return audio.PortNone
	}
	released = o.patch
	delete(s.patches, o.patch)
	o.patch = audio.PortNone
	o.sink = nil
	return released
}

func sinkConfig(d *device) audio.PortConfig {
	return audio.PortConfig{
		ID:     d.port.ID,
		Role:   audio.PortRoleSink,
		Type:   audio.PortTypeDevice,
		Device: audio.DeviceExt{Type: d.port.Device, Address: d.port.Address},
	}
}

// inputDevice picks the capture device for source. Callers hold mu.
func (s *Simulator) inputDevice(source audio.Source) (*device, error) {
	want := audio.DeviceNone
	if source == audio.SourceRemoteSubmix {
		want = audio.DeviceInRemoteSubmix
	}
	for _, d := range s.devices {
		if !d.available() || d.port.Role != audio.PortRoleSource {
			continue
		}
		if want == audio.DeviceNone || d.port.Device == want {
			return d, nil
		}
	}
	return nil, fmt.Errorf("%w: no input device for source %s", platform.ErrNoRoute, source)
}

// setSubmixConnected toggles availability of remote submix outputs.
// Callers hold mu.
func (s *Simulator) setSubmixConnected(on bool) {
	for _, d := range s.devices {
		if d.port.Device == audio.DeviceOutRemoteSubmix {
			d.connected = on
		}
	}
}

// deliver runs cb on a separate goroutine after the configured delay.
func (s *Simulator) deliver(cb platform.DeviceCallback, io audio.IOHandle, dev audio.PortHandle) {
	s.callbacks.Add(1)
	go func() {
		defer s.callbacks.Done()
		if s.opts.CallbackDelay > 0 {
			time.Sleep(s.opts.CallbackDelay)
		}
		cb.OnAudioDeviceUpdate(io, []audio.PortHandle{dev})
	}()
}

func (s *Simulator) emit(e log.Event) {
	e.Layer = log.LayerPlatform
	s.opts.Events.Emit(e)
}

func (s *Simulator) loadResource(path string) (*platform.Resource, error) {
	res, err := platform.LoadResource(path)
	if err == nil || !s.opts.SynthesizeMissing || !errors.Is(err, fs.ErrNotExist) {
		return res, err
	}
	return &platform.Resource{
		Path:       path,
		SampleRate: 48000,
		Channels:   2,
		Format:     audio.FormatPCM16Bit,
		Data:       make([]byte, 48000*4),
	}, nil
}

var _ platform.Platform = (*Simulator)(nil)
