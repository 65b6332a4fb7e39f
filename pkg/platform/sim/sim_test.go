package sim

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omnitrix21/android-frameworks-av/pkg/audio"
	"github.com/omnitrix21/android-frameworks-av/pkg/log"
	"github.com/omnitrix21/android-frameworks-av/pkg/platform"
	"github.com/omnitrix21/android-frameworks-av/pkg/policy/policytest"
)

type recorder struct {
	mu     sync.Mutex
	events []log.Event
}

func (r *recorder) Log(e log.Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

func (r *recorder) routes(kind log.RouteKind) []log.RouteEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []log.RouteEvent
	for _, e := range r.events {
		if e.Route != nil && e.Route.Kind == kind {
			out = append(out, *e.Route)
		}
	}
	return out
}

func playbackConfig(attr audio.AttributeFlags) platform.PlaybackConfig {
	cfg := platform.DefaultPlaybackConfig()
	cfg.Attributes.Flags = attr
	return cfg
}

func startPlayback(t *testing.T, s *Simulator, attr audio.AttributeFlags) (platform.Playback, *platform.DeviceUpdateNotifier) {
	t.Helper()
	p := s.NewPlayback(playbackConfig(attr))
	require.NoError(t, p.LoadResource(policytest.WriteResource(t, t.TempDir())))
	require.NoError(t, p.Create())
	n := platform.NewDeviceUpdateNotifier()
	require.NoError(t, p.AddDeviceCallback(n))
	require.NoError(t, p.Start())
	require.NoError(t, p.Process())
	require.NoError(t, n.WaitTimeout(time.Second, audio.PortNone))
	return p, n
}

func TestPortsListAvailableDevices(t *testing.T) {
	s := New(policytest.Phone(t), Options{})

	var names []string
	for _, p := range s.Ports() {
		if p.Type == audio.PortTypeDevice {
			names = append(names, p.Name)
		}
	}
	assert.ElementsMatch(t, []string{"Speaker", "Built-In Mic", "Remote Submix In"}, names)

	_, err := s.PortByAttributes(audio.PortRoleSink, audio.PortTypeDevice, audio.DeviceOutRemoteSubmix)
	assert.True(t, errors.Is(err, platform.ErrPortNotFound))

	in, err := s.PortByAttributes(audio.PortRoleSource, audio.PortTypeDevice, audio.DeviceInRemoteSubmix)
	require.NoError(t, err)
	assert.Equal(t, "Remote Submix In", in.Name)
	assert.Equal(t, "0", in.Address)
}

func TestPerformanceFlagSelectsOutput(t *testing.T) {
	tests := []struct {
		name     string
		attr     audio.AttributeFlags
		wantMix  audio.OutputFlags
		wantFlag audio.OutputFlags
	}{
		{"low latency", audio.FlagLowLatency, audio.OutputFlagFast, audio.OutputFlagFast},
		{"deep buffer", audio.FlagDeepBuffer, audio.OutputFlagDeepBuffer, audio.OutputFlagDeepBuffer},
		{"none", audio.FlagNone, audio.OutputFlagPrimary, audio.OutputFlagNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(policytest.Phone(t), Options{})
			defer s.Close()
			p, n := startPlayback(t, s, tt.attr)
			defer p.Stop()

			io, dev := n.Last()
			assert.Equal(t, p.IO(), io)
			assert.Equal(t, p.RoutedDeviceID(), dev)

			speaker, err := s.PortByAttributes(audio.PortRoleSink, audio.PortTypeDevice, audio.DeviceOutSpeaker)
			require.NoError(t, err)
			assert.Equal(t, speaker.ID, dev)

			patch, err := s.PatchForOutputMix(io)
			require.NoError(t, err)
			assert.True(t, patch.RoutesTo(dev))
			srcs := patch.MixSources(io)
			require.Len(t, srcs, 1)
			assert.True(t, srcs[0].Flags.Output.Has(tt.wantMix), "mix flags %s", srcs[0].Flags.Output)
			if tt.wantFlag != audio.OutputFlagNone {
				assert.True(t, p.Flags().Has(tt.wantFlag))
			}
		})
	}
}

func TestFastDeniedWithoutFastOutput(t *testing.T) {
	s := New(policytest.Phone(t), Options{IgnorePerformanceFlags: true})
	defer s.Close()
	p, _ := startPlayback(t, s, audio.FlagLowLatency)
	defer p.Stop()

	assert.False(t, p.Flags().Has(audio.OutputFlagFast))
	patch, err := s.PatchForOutputMix(p.IO())
	require.NoError(t, err)
	assert.True(t, patch.MixSources(p.IO())[0].Flags.Output.Has(audio.OutputFlagPrimary))
}

func TestStopReleasesPatch(t *testing.T) {
	rec := &recorder{}
	s := New(policytest.Phone(t), Options{Events: log.NewEmitter(rec)})
	defer s.Close()
	p, _ := startPlayback(t, s, audio.FlagNone)
	io := p.IO()

	require.NoError(t, p.Stop())
	assert.Equal(t, audio.PortNone, p.RoutedDeviceID())
	_, err := s.PatchForOutputMix(io)
	assert.True(t, errors.Is(err, platform.ErrNoPatch))

	assert.Len(t, rec.routes(log.RouteKindPatch), 1)
	assert.Len(t, rec.routes(log.RouteKindCallback), 1)
	assert.Len(t, rec.routes(log.RouteKindReleased), 1)
	// Stopping twice is harmless.
	require.NoError(t, p.Stop())
}

func TestSharedOutputKeepsPatchUntilLastStop(t *testing.T) {
	s := New(policytest.Phone(t), Options{})
	defer s.Close()
	a, _ := startPlayback(t, s, audio.FlagNone)
	b, _ := startPlayback(t, s, audio.FlagNone)
	require.Equal(t, a.IO(), b.IO())

	require.NoError(t, a.Stop())
	_, err := s.PatchForOutputMix(b.IO())
	require.NoError(t, err)

	require.NoError(t, b.Stop())
	_, err = s.PatchForOutputMix(b.IO())
	assert.Error(t, err)
}

func TestRemoteSubmixCaptureRedirectsMedia(t *testing.T) {
	s := New(policytest.Phone(t), Options{})
	defer s.Close()

	c := s.NewCapture(platform.CaptureConfig{
		Source:      audio.SourceRemoteSubmix,
		SampleRate:  48000,
		Format:      audio.FormatPCM16Bit,
		ChannelMask: audio.ChannelInStereo,
	})
	require.NoError(t, c.Create())
	require.NoError(t, c.Start())

	in, err := s.PortByAttributes(audio.PortRoleSource, audio.PortTypeDevice, audio.DeviceInRemoteSubmix)
	require.NoError(t, err)
	assert.Equal(t, in.ID, c.RoutedDeviceID())

	out, err := s.PortByAttributes(audio.PortRoleSink, audio.PortTypeDevice, audio.DeviceOutRemoteSubmix)
	require.NoError(t, err)

	p, _ := startPlayback(t, s, audio.FlagNone)
	assert.Equal(t, out.ID, p.RoutedDeviceID())
	require.NoError(t, p.Stop())

	require.NoError(t, c.Stop())
	assert.Equal(t, audio.PortNone, c.RoutedDeviceID())
	_, err = s.PortByAttributes(audio.PortRoleSink, audio.PortTypeDevice, audio.DeviceOutRemoteSubmix)
	assert.True(t, errors.Is(err, platform.ErrPortNotFound))

	// Media is back on the speaker.
	p, _ = startPlayback(t, s, audio.FlagNone)
	defer p.Stop()
	speaker, err := s.PortByAttributes(audio.PortRoleSink, audio.PortTypeDevice, audio.DeviceOutSpeaker)
	require.NoError(t, err)
	assert.Equal(t, speaker.ID, p.RoutedDeviceID())
}

func TestCaptureWithoutRemoteSubmixDevice(t *testing.T) {
	s := New(policytest.PrimaryOnly(t), Options{})
	c := s.NewCapture(platform.CaptureConfig{
		Source:      audio.SourceRemoteSubmix,
		SampleRate:  48000,
		Format:      audio.FormatPCM16Bit,
		ChannelMask: audio.ChannelInStereo,
	})
	require.NoError(t, c.Create())
	err := c.Start()
	assert.True(t, errors.Is(err, platform.ErrNoRoute))
}

func TestPlaybackLifecycleErrors(t *testing.T) {
	s := New(policytest.Phone(t), Options{})
	defer s.Close()

	p := s.NewPlayback(platform.DefaultPlaybackConfig())
	assert.True(t, errors.Is(p.Start(), platform.ErrNotCreated))
	assert.Equal(t, audio.IONone, p.IO())

	require.NoError(t, p.Create())
	assert.Error(t, p.Create())
	require.NoError(t, p.Start())
	// Started without a resource.
	assert.True(t, errors.Is(p.Process(), platform.ErrNoResource))
	require.NoError(t, p.Stop())
	assert.True(t, errors.Is(p.Process(), platform.ErrNotStarted))

	bad := s.NewPlayback(platform.PlaybackConfig{SampleRate: 48000, Format: audio.FormatPCM16Bit})
	assert.Error(t, bad.Create())
}

func TestDeviceCallbackRegistration(t *testing.T) {
	s := New(policytest.Phone(t), Options{CallbackDelay: 5 * time.Millisecond})
	defer s.Close()

	p := s.NewPlayback(platform.DefaultPlaybackConfig())
	require.NoError(t, p.Create())
	n := platform.NewDeviceUpdateNotifier()
	require.NoError(t, p.AddDeviceCallback(n))
	assert.Error(t, p.AddDeviceCallback(n))
	assert.Error(t, p.AddDeviceCallback(nil))

	require.NoError(t, p.RemoveDeviceCallback(n))
	assert.Error(t, p.RemoveDeviceCallback(n))

	require.NoError(t, p.Start())
	assert.Error(t, n.WaitTimeout(30*time.Millisecond, audio.PortNone))

	// Registering on a started stream delivers the current route.
	require.NoError(t, p.AddDeviceCallback(n))
	require.NoError(t, n.WaitTimeout(time.Second, p.RoutedDeviceID()))
	require.NoError(t, p.Stop())
}

func TestSynthesizeMissingResource(t *testing.T) {
	s := New(policytest.Phone(t), Options{SynthesizeMissing: true, BufferFrames: 480})
	p := s.NewPlayback(platform.DefaultPlaybackConfig())
	require.NoError(t, p.LoadResource("/nonexistent/bbb_2ch_24kHz_s16le.raw"))
	require.NoError(t, p.Create())
	require.NoError(t, p.Start())
	require.NoError(t, p.Process())
	require.NoError(t, p.Process())
	assert.Equal(t, 960, p.(*Playback).FramesWritten())
	require.NoError(t, p.Stop())

	strict := New(policytest.Phone(t), Options{})
	err := strict.NewPlayback(platform.DefaultPlaybackConfig()).LoadResource("/nonexistent/x.raw")
	assert.True(t, errors.Is(err, platform.ErrNoResource))
}

func TestProcessWithEmptyResource(t *testing.T) {
	s := New(policytest.Phone(t), Options{})
	defer s.Close()

	p := s.NewPlayback(platform.DefaultPlaybackConfig())
	require.NoError(t, p.Create())
	p.(*Playback).resource = &platform.Resource{Channels: 2, Format: audio.FormatPCM16Bit}
	require.NoError(t, p.Start())
	assert.True(t, errors.Is(p.Process(), platform.ErrNoResource))
	require.NoError(t, p.Stop())
}
