package verify

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/omnitrix21/android-frameworks-av/pkg/audio"
	"github.com/omnitrix21/android-frameworks-av/pkg/log"
	"github.com/omnitrix21/android-frameworks-av/pkg/platform"
	"github.com/omnitrix21/android-frameworks-av/pkg/platform/sim"
	"github.com/omnitrix21/android-frameworks-av/pkg/policy"
	"github.com/omnitrix21/android-frameworks-av/pkg/policy/policytest"
)

type checkRecorder struct {
	mu     sync.Mutex
	checks []log.CheckEvent
}

func (r *checkRecorder) Log(e log.Event) {
	if e.Check == nil {
		return
	}
	r.mu.Lock()
	r.checks = append(r.checks, *e.Check)
	r.mu.Unlock()
}

func (r *checkRecorder) failed() []log.CheckEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []log.CheckEvent
	for _, c := range r.checks {
		if !c.Passed {
			out = append(out, c)
		}
	}
	return out
}

func newSimVerifier(t *testing.T, cfg *policy.Config, opts sim.Options) *Verifier {
	t.Helper()
	s := sim.New(cfg, opts)
	t.Cleanup(func() { _ = s.Close() })
	return &Verifier{
		Platform: s,
		Config:   cfg,
		Resource: policytest.WriteResource(t, t.TempDir()),
		Timeout:  time.Second,
	}
}

func TestPerformanceModeOnPhone(t *testing.T) {
	v := newSimVerifier(t, policytest.Phone(t), sim.Options{})

	results := v.PerformanceMode(context.Background())
	require.Len(t, results, 2)
	for _, r := range results {
		assert.True(t, r.Passed(), r.String())
		assert.NotEqual(t, audio.IONone, r.IO)
		assert.NotEqual(t, audio.PortNone, r.DeviceID)
		assert.Equal(t, "Speaker", r.Path.Sink())
	}
	assert.Equal(t, "low_latency", results[0].Path.Port.Name)
	assert.Equal(t, "deep_buffer", results[1].Path.Port.Name)
	assert.NoError(t, results.Err())
}

func TestPerformanceModeSkipsMissingFlag(t *testing.T) {
	v := newSimVerifier(t, policytest.PrimaryOnly(t), sim.Options{})

	results := v.PerformanceMode(context.Background())
	require.Len(t, results, 2)
	assert.True(t, results[0].Passed(), results[0].String())
	assert.True(t, results[1].Skipped())
	assert.Contains(t, results[1].SkipReason, "AUDIO_OUTPUT_FLAG_DEEP_BUFFER")
	assert.Empty(t, results.Failed())
}

func TestPerformanceModeReportsMissingFlag(t *testing.T) {
	rec := &checkRecorder{}
	v := newSimVerifier(t, policytest.Phone(t), sim.Options{IgnorePerformanceFlags: true})
	v.Events = log.NewEmitter(rec)

	r := v.PerformanceModeCase(context.Background(), PerformanceModeCases[0])
	assert.Equal(t, StatusFailed, r.Status)
	assert.False(t, r.Fatal())

	var names []string
	for _, f := range r.Failures {
		names = append(names, f.Check)
	}
	assert.Equal(t, []string{"track_flags", "patch_source_flags"}, names)
	assert.Contains(t, r.Failures[1].Diagnostic, "output flags:")
	assert.True(t, errors.Is(r.Err(), ErrCheckFailed))
	assert.Len(t, rec.failed(), 2)
}

func TestRemoteSubmixOnPhone(t *testing.T) {
	v := newSimVerifier(t, policytest.Phone(t), sim.Options{})

	r := v.RemoteSubmix(context.Background())
	assert.True(t, r.Passed(), r.String())

	out, err := v.Platform.PortByAttributes(audio.PortRoleSink, audio.PortTypeDevice, audio.DeviceOutRemoteSubmix)
	// Disconnected again once the capture stopped.
	assert.True(t, errors.Is(err, platform.ErrPortNotFound), "%v", out)
	assert.NotEqual(t, audio.PortNone, r.DeviceID)
}

func TestRemoteSubmixSkippedWithoutDevice(t *testing.T) {
	v := newSimVerifier(t, policytest.PrimaryOnly(t), sim.Options{})

	r := v.RemoteSubmix(context.Background())
	assert.True(t, r.Skipped())
	assert.Equal(t, "SKIPPED", r.Status.String())
	assert.NoError(t, r.Err())
}

func TestRunBothScenarios(t *testing.T) {
	v := newSimVerifier(t, policytest.Phone(t), sim.Options{})
	results := v.Run(context.Background())
	require.Len(t, results, 3)
	assert.Equal(t, "remote_submix", results[2].Name)
	assert.Empty(t, results.Failed())
}

func TestMissingResourceIsFatal(t *testing.T) {
	v := newSimVerifier(t, policytest.Phone(t), sim.Options{})
	v.Resource = "/nonexistent/bbb_2ch_24kHz_s16le.raw"

	r := v.PerformanceModeCase(context.Background(), PerformanceModeCases[0])
	assert.Equal(t, StatusFailed, r.Status)
	require.Len(t, r.Failures, 1)
	assert.True(t, r.Failures[0].Fatal)
	assert.Equal(t, "load_resource", r.Failures[0].Check)
	assert.Contains(t, r.String(), "(fatal)")
}

func TestUnloadedPolicyFailsEveryCase(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		kind error
	}{
		{"missing", "", policy.ErrNotFound},
		{"malformed", "<notAPolicy/>", policy.ErrMalformed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "audio_policy_configuration.xml")
			if tt.doc != "" {
				path = policytest.WriteFile(t, t.TempDir(), tt.doc)
			}
			cfg, err := policy.ParseFile(path)
			require.ErrorIs(t, err, tt.kind)

			rec := &checkRecorder{}
			v := newSimVerifier(t, cfg, sim.Options{})
			v.PolicyErr = err
			v.Events = log.NewEmitter(rec)

			results := v.Run(context.Background())
			require.Len(t, results, 3)
			for _, r := range results {
				assert.Equal(t, StatusFailed, r.Status, r.String())
				require.Len(t, r.Failures, 1)
				assert.Equal(t, "policy_load", r.Failures[0].Check)
				assert.True(t, r.Fatal())
			}
			assert.Len(t, results.Failed(), 3)
			assert.ErrorIs(t, results.Err(), ErrCheckFailed)
			assert.Len(t, rec.failed(), 3)
		})
	}
}

// ---------------------------------------------------------------------------
// stubs
// ---------------------------------------------------------------------------

type stubPlatform struct{ mock.Mock }

func (p *stubPlatform) NewPlayback(cfg platform.PlaybackConfig) platform.Playback {
	return p.Called(cfg).Get(0).(platform.Playback)
}
func (p *stubPlatform) NewCapture(cfg platform.CaptureConfig) platform.Capture {
	return p.Called(cfg).Get(0).(platform.Capture)
}
func (p *stubPlatform) PortByAttributes(role audio.PortRole, typ audio.PortType, dev audio.DeviceType) (audio.Port, error) {
	ret := p.Called(role, typ, dev)
	return ret.Get(0).(audio.Port), ret.Error(1)
}
func (p *stubPlatform) PatchForOutputMix(io audio.IOHandle) (audio.Patch, error) {
	ret := p.Called(io)
	return ret.Get(0).(audio.Patch), ret.Error(1)
}
func (p *stubPlatform) Ports() []audio.Port { return p.Called().Get(0).([]audio.Port) }

type stubPlayback struct {
	mock.Mock
	cb platform.DeviceCallback
}

func (s *stubPlayback) ID() string                       { return "stub" }
func (s *stubPlayback) LoadResource(path string) error   { return s.Called(path).Error(0) }
func (s *stubPlayback) Create() error                    { return s.Called().Error(0) }
func (s *stubPlayback) Start() error                     { return s.Called().Error(0) }
func (s *stubPlayback) Process() error                   { return s.Called().Error(0) }
func (s *stubPlayback) Stop() error                      { return s.Called().Error(0) }
func (s *stubPlayback) IO() audio.IOHandle               { return s.Called().Get(0).(audio.IOHandle) }
func (s *stubPlayback) RoutedDeviceID() audio.PortHandle { return s.Called().Get(0).(audio.PortHandle) }
func (s *stubPlayback) Flags() audio.OutputFlags         { return s.Called().Get(0).(audio.OutputFlags) }
func (s *stubPlayback) AddDeviceCallback(cb platform.DeviceCallback) error {
	s.cb = cb
	return s.Called(cb).Error(0)
}
func (s *stubPlayback) RemoveDeviceCallback(cb platform.DeviceCallback) error {
	return s.Called(cb).Error(0)
}

type stubCapture struct{ mock.Mock }

func (s *stubCapture) ID() string                       { return "stub" }
func (s *stubCapture) Create() error                    { return s.Called().Error(0) }
func (s *stubCapture) Start() error                     { return s.Called().Error(0) }
func (s *stubCapture) Stop() error                      { return s.Called().Error(0) }
func (s *stubCapture) IO() audio.IOHandle               { return s.Called().Get(0).(audio.IOHandle) }
func (s *stubCapture) RoutedDeviceID() audio.PortHandle { return s.Called().Get(0).(audio.PortHandle) }

func TestCreateFailureAbortsCase(t *testing.T) {
	pb := &stubPlayback{}
	pb.On("LoadResource", "res.raw").Return(nil)
	pb.On("Create").Return(errors.New("no output for attributes"))

	pf := &stubPlatform{}
	pf.On("NewPlayback", mock.Anything).Return(pb)

	v := &Verifier{Platform: pf, Config: policytest.Phone(t), Resource: "res.raw"}
	r := v.PerformanceModeCase(context.Background(), PerformanceModeCases[1])

	assert.Equal(t, StatusFailed, r.Status)
	assert.True(t, r.Fatal())
	assert.Equal(t, "create_playback", r.Failures[0].Check)
	pb.AssertNotCalled(t, "Start")
	pf.AssertExpectations(t)
}

func TestPatchSourceFlagMismatch(t *testing.T) {
	const io, dev = audio.IOHandle(7), audio.PortHandle(3)

	pb := &stubPlayback{}
	pb.On("LoadResource", mock.Anything).Return(nil)
	pb.On("Create").Return(nil)
	pb.On("AddDeviceCallback", mock.Anything).Return(nil)
	pb.On("Start").Run(func(mock.Arguments) {
		pb.cb.OnAudioDeviceUpdate(io, []audio.PortHandle{dev})
	}).Return(nil)
	pb.On("Process").Return(nil)
	pb.On("Flags").Return(audio.OutputFlagFast)
	pb.On("Stop").Return(nil)
	pb.On("RemoveDeviceCallback", mock.Anything).Return(nil)

	patch := audio.Patch{
		ID: 11,
		Sources: []audio.PortConfig{{
			ID:    20,
			Role:  audio.PortRoleSource,
			Type:  audio.PortTypeMix,
			Flags: audio.PortConfigFlags{Output: audio.OutputFlagPrimary},
			Mix:   audio.MixExt{Handle: io},
		}},
		Sinks: []audio.PortConfig{{ID: dev, Role: audio.PortRoleSink, Type: audio.PortTypeDevice}},
	}
	pf := &stubPlatform{}
	pf.On("NewPlayback", mock.MatchedBy(func(cfg platform.PlaybackConfig) bool {
		return cfg.Attributes.Flags == audio.FlagLowLatency
	})).Return(pb)
	pf.On("PatchForOutputMix", io).Return(patch, nil)

	v := &Verifier{Platform: pf, Config: policytest.Phone(t), Timeout: time.Second}
	r := v.PerformanceModeCase(context.Background(), PerformanceModeCases[0])

	assert.Equal(t, StatusFailed, r.Status)
	assert.False(t, r.Fatal())
	require.Len(t, r.Failures, 1)
	assert.Equal(t, "patch_source_flags", r.Failures[0].Check)
	assert.True(t, strings.Contains(r.Failures[0].Diagnostic, "mix handle: 7"))
	assert.Equal(t, io, r.IO)
	assert.Equal(t, dev, r.DeviceID)
	pb.AssertCalled(t, "Stop")
	pb.AssertCalled(t, "RemoveDeviceCallback", mock.Anything)
}

func TestCallbackTimeoutIsFatal(t *testing.T) {
	pb := &stubPlayback{}
	pb.On("LoadResource", mock.Anything).Return(nil)
	pb.On("Create").Return(nil)
	pb.On("AddDeviceCallback", mock.Anything).Return(nil)
	pb.On("Start").Return(nil)
	pb.On("Process").Return(nil)
	pb.On("Stop").Return(nil)
	pb.On("RemoveDeviceCallback", mock.Anything).Return(nil)

	pf := &stubPlatform{}
	pf.On("NewPlayback", mock.Anything).Return(pb)

	v := &Verifier{Platform: pf, Config: policytest.Phone(t), Timeout: 20 * time.Millisecond}
	r := v.PerformanceModeCase(context.Background(), PerformanceModeCases[0])

	require.Len(t, r.Failures, 1)
	assert.Equal(t, "wait_device_callback", r.Failures[0].Check)
	assert.True(t, r.Failures[0].Fatal)
	pf.AssertNotCalled(t, "PatchForOutputMix", mock.Anything)
}

func TestRemoteSubmixPlaybackMisrouted(t *testing.T) {
	capture := &stubCapture{}
	capture.On("Create").Return(nil)
	capture.On("Start").Return(nil)
	capture.On("Stop").Return(nil)
	capture.On("RoutedDeviceID").Return(audio.PortHandle(4))

	pb := &stubPlayback{}
	pb.On("LoadResource", mock.Anything).Return(nil)
	pb.On("Create").Return(nil)
	pb.On("Start").Return(nil)
	pb.On("Process").Return(nil)
	pb.On("Stop").Return(nil)
	pb.On("IO").Return(audio.IOHandle(9))
	pb.On("RoutedDeviceID").Return(audio.PortHandle(1))

	pf := &stubPlatform{}
	pf.On("NewCapture", mock.Anything).Return(capture)
	pf.On("NewPlayback", mock.Anything).Return(pb)
	pf.On("PortByAttributes", audio.PortRoleSource, audio.PortTypeDevice, audio.DeviceInRemoteSubmix).
		Return(audio.Port{ID: 4}, nil)
	pf.On("PortByAttributes", audio.PortRoleSink, audio.PortTypeDevice, audio.DeviceOutRemoteSubmix).
		Return(audio.Port{ID: 5}, nil)

	v := &Verifier{Platform: pf, Config: policytest.Phone(t)}
	r := v.RemoteSubmix(context.Background())

	assert.Equal(t, StatusFailed, r.Status)
	require.Len(t, r.Failures, 1)
	assert.Equal(t, "playback_routed_device", r.Failures[0].Check)
	assert.True(t, r.Failures[0].Fatal)
	capture.AssertCalled(t, "Stop")
	pb.AssertCalled(t, "Stop")
}
