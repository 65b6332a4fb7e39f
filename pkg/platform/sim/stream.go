package sim

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/omnitrix21/android-frameworks-av/pkg/audio"
	"github.com/omnitrix21/android-frameworks-av/pkg/log"
	"github.com/omnitrix21/android-frameworks-av/pkg/platform"
)

// Stream states.
const (
	StateNew     = "NEW"
	StateCreated = "CREATED"
	StateStarted = "STARTED"
	StateStopped = "STOPPED"
)

// Playback is a simulated playback stream.
type Playback struct {
	sim *Simulator
	cfg platform.PlaybackConfig
	id  string

	mu        sync.Mutex
	state     string
	resource  *platform.Resource
	offset    int
	written   int
	callbacks []platform.DeviceCallback
	out       *output
	sink      *device
	requested audio.OutputFlags
	flags     audio.OutputFlags
}

func newPlayback(s *Simulator, cfg platform.PlaybackConfig) *Playback {
	requested := cfg.OutputFlags | cfg.Attributes.Flags.OutputFlags()
	return &Playback{
		sim:       s,
		cfg:       cfg,
		id:        uuid.NewString(),
		state:     StateNew,
		requested: requested,
		flags:     requested,
	}
}

// ID implements platform.Playback.
func (p *Playback) ID() string { return p.id }

// State returns the stream state.
func (p *Playback) State() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// LoadResource implements platform.Playback.
func (p *Playback) LoadResource(path string) error {
	res, err := p.sim.loadResource(path)
	if err != nil {
		return err
	}
	p.mu.Lock()
	p.resource = res
	p.offset = 0
	p.mu.Unlock()
	return nil
}

// Create implements platform.Playback.
func (p *Playback) Create() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != StateNew {
		return fmt.Errorf("playback %s: create in state %s", p.id, p.state)
	}
	if err := validate(p.cfg.SampleRate, p.cfg.Format, p.cfg.ChannelMask); err != nil {
		return fmt.Errorf("playback %s: %w", p.id, err)
	}
	p.setState(StateCreated)
	return nil
}

// Start implements platform.Playback. The output is selected here so that
// device availability changes since Create are honored.
func (p *Playback) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch p.state {
	case StateCreated, StateStopped:
	case StateStarted:
		return nil
	default:
		return fmt.Errorf("playback %s: %w", p.id, platform.ErrNotCreated)
	}

	s := p.sim
	s.mu.Lock()
	sink, err := s.selectSink()
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("playback %s: %w", p.id, err)
	}
	out, err := s.selectOutput(sink, p.requested)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("playback %s: %w", p.id, err)
	}
	patch := s.openOutput(out, sink, p.cfg)
	s.mu.Unlock()

	p.out = out
	p.sink = sink
	// FAST is only granted on a fast output.
	p.flags = p.requested
	if !out.flags.Has(audio.OutputFlagFast) {
		p.flags &^= audio.OutputFlagFast
	}

	s.emit(log.Event{
		StreamID:  p.id,
		Direction: log.DirectionPlayback,
		Category:  log.CategoryRouting,
		Route: &log.RouteEvent{
			Kind:     log.RouteKindPatch,
			IO:       int32(out.io),
			DeviceID: int32(sink.port.ID),
			PatchID:  int32(patch.ID),
			MixPort:  out.mix.Name,
			Device:   sink.tag,
			Flags:    out.flags.String(),
		},
	})
	p.setState(StateStarted)

	for _, cb := range p.callbacks {
		p.deliver(cb)
	}
	return nil
}

func (p *Playback) deliver(cb platform.DeviceCallback) {
	p.sim.emit(log.Event{
		StreamID:  p.id,
		Direction: log.DirectionPlayback,
		Category:  log.CategoryRouting,
		Route: &log.RouteEvent{
			Kind:     log.RouteKindCallback,
			IO:       int32(p.out.io),
			DeviceID: int32(p.sink.port.ID),
			Device:   p.sink.tag,
		},
	})
	p.sim.deliver(cb, p.out.io, p.sink.port.ID)
}

// Process implements platform.Playback.
func (p *Playback) Process() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != StateStarted {
		return fmt.Errorf("playback %s: %w", p.id, platform.ErrNotStarted)
	}
	if p.resource == nil || p.resource.Frames() == 0 {
		return fmt.Errorf("playback %s: %w", p.id, platform.ErrNoResource)
	}

	n := p.sim.opts.BufferFrames * p.resource.FrameSize()
	if n > len(p.resource.Data) {
		n = len(p.resource.Data)
	}
	p.offset = (p.offset + n) % len(p.resource.Data)
	p.written += n / p.resource.FrameSize()
	return nil
}

// FramesWritten returns the number of frames consumed by Process.
func (p *Playback) FramesWritten() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.written
}

// Stop implements platform.Playback.
func (p *Playback) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != StateStarted {
		return nil
	}
	s := p.sim
	s.mu.Lock()
	released := s.closeOutput(p.out)
	s.mu.Unlock()

	if released != audio.PortNone {
		s.emit(log.Event{
			StreamID:  p.id,
			Direction: log.DirectionPlayback,
			Category:  log.CategoryRouting,
			Route:     &log.RouteEvent{Kind: log.RouteKindReleased, IO: int32(p.out.io), PatchID: int32(released)},
		})
	}
	p.sink = nil
	p.setState(StateStopped)
	return nil
}

// AddDeviceCallback implements platform.Playback. A callback added to a
// started stream is notified immediately.
func (p *Playback) AddDeviceCallback(cb platform.DeviceCallback) error {
	if cb == nil {
		return fmt.Errorf("playback %s: nil device callback", p.id)
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, c := range p.callbacks {
		if c == cb {
			return fmt.Errorf("playback %s: device callback already registered", p.id)
		}
	}
	p.callbacks = append(p.callbacks, cb)
	if p.state == StateStarted {
		p.deliver(cb)
	}
	return nil
}

// RemoveDeviceCallback implements platform.Playback.
func (p *Playback) RemoveDeviceCallback(cb platform.DeviceCallback) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i, c := range p.callbacks {
		if c == cb {
			p.callbacks = append(p.callbacks[:i], p.callbacks[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("playback %s: device callback not registered", p.id)
}

// IO implements platform.Playback.
func (p *Playback) IO() audio.IOHandle {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.out == nil {
		return audio.IONone
	}
	return p.out.io
}

// RoutedDeviceID implements platform.Playback.
func (p *Playback) RoutedDeviceID() audio.PortHandle {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sink == nil {
		return audio.PortNone
	}
	return p.sink.port.ID
}

// Flags implements platform.Playback.
func (p *Playback) Flags() audio.OutputFlags {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.flags
}

// setState records a transition. Callers hold mu.
func (p *Playback) setState(state string) {
	old := p.state
	p.state = state
	p.sim.emit(log.Event{
		StreamID:  p.id,
		Direction: log.DirectionPlayback,
		Category:  log.CategoryStream,
		Stream:    &log.StreamEvent{OldState: old, NewState: state},
	})
}

// Capture is a simulated capture stream.
type Capture struct {
	sim *Simulator
	cfg platform.CaptureConfig
	id  string

	mu     sync.Mutex
	state  string
	io     audio.IOHandle
	source *device
	patch  audio.PortHandle
}

func newCapture(s *Simulator, cfg platform.CaptureConfig) *Capture {
	return &Capture{sim: s, cfg: cfg, id: uuid.NewString(), state: StateNew}
}

// ID implements platform.Capture.
func (c *Capture) ID() string { return c.id }

// Create implements platform.Capture.
func (c *Capture) Create() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateNew {
		return fmt.Errorf("capture %s: create in state %s", c.id, c.state)
	}
	if err := validate(c.cfg.SampleRate, c.cfg.Format, c.cfg.ChannelMask); err != nil {
		return fmt.Errorf("capture %s: %w", c.id, err)
	}
	c.setState(StateCreated)
	return nil
}

// Start implements platform.Capture. Starting a remote submix capture
// connects the remote submix output device.
func (c *Capture) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case StateCreated, StateStopped:
	case StateStarted:
		return nil
	default:
		return fmt.Errorf("capture %s: %w", c.id, platform.ErrNotCreated)
	}

	s := c.sim
	s.mu.Lock()
	dev, err := s.inputDevice(c.cfg.Source)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("capture %s: %w", c.id, err)
	}
	if c.io == audio.IONone {
		c.io = audio.IOHandle(s.allocate())
	}
	patch := audio.Patch{
		ID: s.allocate(),
		Sources: []audio.PortConfig{{
			ID:     dev.port.ID,
			Role:   audio.PortRoleSource,
			Type:   audio.PortTypeDevice,
			Device: audio.DeviceExt{Type: dev.port.Device, Address: dev.port.Address},
		}},
		Sinks: []audio.PortConfig{{
			Role:        audio.PortRoleSink,
			Type:        audio.PortTypeMix,
			SampleRate:  c.cfg.SampleRate,
			ChannelMask: c.cfg.ChannelMask,
			Format:      c.cfg.Format,
			Flags:       audio.PortConfigFlags{Input: c.cfg.InputFlags},
			Mix:         audio.MixExt{Handle: c.io},
		}},
	}
	s.patches[patch.ID] = patch
	if c.cfg.Source == audio.SourceRemoteSubmix {
		s.submixCaptures++
		s.setSubmixConnected(true)
	}
	s.mu.Unlock()

	c.source = dev
	c.patch = patch.ID
	s.emit(log.Event{
		StreamID:  c.id,
		Direction: log.DirectionCapture,
		Category:  log.CategoryRouting,
		Route: &log.RouteEvent{
			Kind:     log.RouteKindPatch,
			IO:       int32(c.io),
			DeviceID: int32(dev.port.ID),
			PatchID:  int32(patch.ID),
			Device:   dev.tag,
		},
	})
	c.setState(StateStarted)
	return nil
}

// Stop implements platform.Capture.
func (c *Capture) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateStarted {
		return nil
	}
	s := c.sim
	s.mu.Lock()
	delete(s.patches, c.patch)
	if c.cfg.Source == audio.SourceRemoteSubmix {
		s.submixCaptures--
		if s.submixCaptures == 0 {
			s.setSubmixConnected(false)
		}
	}
	s.mu.Unlock()

	s.emit(log.Event{
		StreamID:  c.id,
		Direction: log.DirectionCapture,
		Category:  log.CategoryRouting,
		Route:     &log.RouteEvent{Kind: log.RouteKindReleased, IO: int32(c.io), PatchID: int32(c.patch)},
	})
	c.source = nil
	c.patch = audio.PortNone
	c.setState(StateStopped)
	return nil
}

// IO implements platform.Capture.
func (c *Capture) IO() audio.IOHandle {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.io
}

// RoutedDeviceID implements platform.Capture.
func (c *Capture) RoutedDeviceID() audio.PortHandle {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.source == nil {
		return audio.PortNone
	}
	return c.source.port.ID
}

func (c *Capture) setState(state string) {
	old := c.state
	c.state = state
	c.sim.emit(log.Event{
		StreamID:  c.id,
		Direction: log.DirectionCapture,
		Category:  log.CategoryStream,
		Stream:    &log.StreamEvent{OldState: old, NewState: state},
	})
}

func validate(rate uint32, format audio.Format, mask audio.ChannelMask) error {
	switch {
	case rate == 0:
		return fmt.Errorf("invalid sample rate %d", rate)
	case format.BytesPerSample() == 0:
		return fmt.Errorf("unsupported format %#x", uint32(format))
	case mask.Count() == 0:
		return fmt.Errorf("invalid channel mask %#x", uint32(mask))
	}
	return nil
}

var (
	_ platform.Playback = (*Playback)(nil)
	_ platform.Capture  = (*Capture)(nil)
)
