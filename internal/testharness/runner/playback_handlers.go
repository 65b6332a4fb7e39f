package runner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/omnitrix21/android-frameworks-av/internal/testharness/engine"
	"github.com/omnitrix21/android-frameworks-av/internal/testharness/loader"
	"github.com/omnitrix21/android-frameworks-av/pkg/audio"
	"github.com/omnitrix21/android-frameworks-av/pkg/platform"
)

// registerPlaybackHandlers registers playback stream action handlers.
func (r *Runner) registerPlaybackHandlers() {
	r.engine.RegisterHandler(ActionCreatePlayback, r.handleCreatePlayback)
	r.engine.RegisterHandler(ActionAddDeviceCallback, r.handleAddDeviceCallback)
	r.engine.RegisterHandler(ActionStartPlayback, r.handleStartPlayback)
	r.engine.RegisterHandler(ActionProcessPlayback, r.handleProcessPlayback)
	r.engine.RegisterHandler(ActionWaitDeviceCallback, r.handleWaitDeviceCallback)
	r.engine.RegisterHandler(ActionCheckPatchDevice, r.handleCheckPatchDevice)
	r.engine.RegisterHandler(ActionCheckTrackFlags, r.handleCheckTrackFlags)
	r.engine.RegisterHandler(ActionCheckPatchSourceFlags, r.handleCheckPatchSourceFlags)
	r.engine.RegisterHandler(ActionStopPlayback, r.handleStopPlayback)
}

// handleCreatePlayback opens a media playback stream, loads the playback
// resource and creates the stream.
func (r *Runner) handleCreatePlayback(ctx context.Context, step *loader.Step, state *engine.ExecutionState) (map[string]any, error) {
	e := getEnv(state)
	if e == nil {
		return nil, errors.New("no routing environment")
	}
	params := r.params(step, state)
	name := paramString(params, ParamStream, defaultStream)
	if _, exists := e.playbacks[name]; exists {
		return nil, fmt.Errorf("playback stream %q already created", name)
	}

	cfg := platform.DefaultPlaybackConfig()
	if s := paramString(params, ParamAttributes, ""); s != "" {
		flags, err := audio.ParseAttributeFlags(s)
		if err != nil {
			return nil, err
		}
		cfg.Attributes.Flags = flags
	}
	if s := paramString(params, ParamOutputFlags, ""); s != "" {
		flags, err := audio.ParseOutputFlags(s)
		if err != nil {
			return nil, err
		}
		cfg.OutputFlags = flags
	}
	if rate := paramInt(params, ParamSampleRate, 0); rate > 0 {
		cfg.SampleRate = uint32(rate)
	}

	stream := e.platform.NewPlayback(cfg)
	if err := stream.LoadResource(paramString(params, ParamResource, r.resource())); err != nil {
		return nil, fmt.Errorf("load resource: %w", err)
	}
	if err := stream.Create(); err != nil {
		return nil, fmt.Errorf("create playback: %w", err)
	}
	e.playbacks[name] = &playbackStream{stream: stream, notifier: platform.NewDeviceUpdateNotifier()}

	return map[string]any{
		KeyStreamID: stream.ID(),
		KeyCreated:  true,
	}, nil
}

// handleAddDeviceCallback attaches the stream's routing notifier.
func (r *Runner) handleAddDeviceCallback(ctx context.Context, step *loader.Step, state *engine.ExecutionState) (map[string]any, error) {
	ps, err := r.playback(step, state)
	if err != nil {
		return nil, err
	}
	if !ps.registered {
		if err := ps.stream.AddDeviceCallback(ps.notifier); err != nil {
			return nil, fmt.Errorf("add device callback: %w", err)
		}
		ps.registered = true
	}
	return map[string]any{KeyRegistered: true}, nil
}

func (r *Runner) handleStartPlayback(ctx context.Context, step *loader.Step, state *engine.ExecutionState) (map[string]any, error) {
	ps, err := r.playback(step, state)
	if err != nil {
		return nil, err
	}
	if err := ps.stream.Start(); err != nil {
		return nil, fmt.Errorf("start playback: %w", err)
	}
	ps.started = time.Now()
	return map[string]any{
		KeyStarted: true,
		KeyIO:      int(ps.stream.IO()),
	}, nil
}

// handleProcessPlayback writes buffers of the loaded resource, one by
// default.
func (r *Runner) handleProcessPlayback(ctx context.Context, step *loader.Step, state *engine.ExecutionState) (map[string]any, error) {
	ps, err := r.playback(step, state)
	if err != nil {
		return nil, err
	}
	params := r.params(step, state)
	n := paramInt(params, ParamBuffers, 1)
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := ps.stream.Process(); err != nil {
			return nil, fmt.Errorf("process buffer %d: %w", i, err)
		}
	}
	return map[string]any{KeyBuffers: n}, nil
}

// handleWaitDeviceCallback blocks until the stream reports a routed device.
// latency is measured from start_playback.
func (r *Runner) handleWaitDeviceCallback(ctx context.Context, step *loader.Step, state *engine.ExecutionState) (map[string]any, error) {
	ps, err := r.playback(step, state)
	if err != nil {
		return nil, err
	}
	if !ps.registered {
		return nil, fmt.Errorf("no device callback registered")
	}
	params := r.params(step, state)
	timeout := r.callbackTimeout()
	if ms := paramInt(params, ParamTimeoutMs, 0); ms > 0 {
		timeout = time.Duration(ms) * time.Millisecond
	}

	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := ps.notifier.Wait(waitCtx, audio.PortNone); err != nil {
		return nil, err
	}

	io, dev := ps.notifier.Last()
	out := map[string]any{
		KeyCallbackReceived: true,
		KeyIO:               int(io),
		KeyDeviceID:         int(dev),
	}
	if !ps.started.IsZero() {
		out[KeyLatency] = time.Since(ps.started)
	}
	return out, nil
}

// handleCheckPatchDevice reports whether the patch of the stream's output
// mix has the routed device among its sinks.
func (r *Runner) handleCheckPatchDevice(ctx context.Context, step *loader.Step, state *engine.ExecutionState) (map[string]any, error) {
	e := getEnv(state)
	ps, err := r.playback(step, state)
	if err != nil {
		return nil, err
	}
	io, dev := ps.notifier.Last()
	if io == audio.IONone {
		io = ps.stream.IO()
	}
	patch, err := e.platform.PatchForOutputMix(io)
	if err != nil {
		return map[string]any{
			KeyRouted:     false,
			KeyError:      err.Error(),
			KeyDiagnostic: fmt.Sprintf("no patch for io %d", io),
		}, nil
	}

	out := map[string]any{
		KeyRouted:     patch.RoutesTo(dev),
		KeyPatchID:    int(patch.ID),
		KeyDiagnostic: audio.DumpPatch(patch),
	}
	for _, s := range patch.Sinks {
		if s.Type == audio.PortTypeDevice {
			out[KeySinkDevice] = s.Device.Type.String()
			break
		}
	}
	return out, nil
}

// handleCheckTrackFlags reports the effective output flags of the track.
// has_flag is set when the flag parameter is given.
func (r *Runner) handleCheckTrackFlags(ctx context.Context, step *loader.Step, state *engine.ExecutionState) (map[string]any, error) {
	ps, err := r.playback(step, state)
	if err != nil {
		return nil, err
	}
	params := r.params(step, state)
	flags := ps.stream.Flags()
	out := map[string]any{KeyFlags: flags.String()}
	if s := paramString(params, ParamFlag, ""); s != "" {
		want, err := audio.ParseOutputFlags(s)
		if err != nil {
			return nil, err
		}
		out[KeyHasFlag] = flags.Has(want)
	}
	return out, nil
}

// handleCheckPatchSourceFlags inspects the MIX sources of the patch that
// belong to the stream's output. flags is the union of their output flags;
// has_flag requires every source to carry the flag.
func (r *Runner) handleCheckPatchSourceFlags(ctx context.Context, step *loader.Step, state *engine.ExecutionState) (map[string]any, error) {
	e := getEnv(state)
	ps, err := r.playback(step, state)
	if err != nil {
		return nil, err
	}
	params := r.params(step, state)
	var want audio.OutputFlags
	if s := paramString(params, ParamFlag, ""); s != "" {
		if want, err = audio.ParseOutputFlags(s); err != nil {
			return nil, err
		}
	}

	io, _ := ps.notifier.Last()
	if io == audio.IONone {
		io = ps.stream.IO()
	}
	patch, err := e.platform.PatchForOutputMix(io)
	if err != nil {
		return map[string]any{
			KeySourceCount: 0,
			KeyHasFlag:     false,
			KeyError:       err.Error(),
		}, nil
	}

	sources := patch.MixSources(io)
	var (
		union audio.OutputFlags
		diag  strings.Builder
	)
	all := len(sources) > 0
	for _, src := range sources {
		union |= src.Flags.Output
		if !src.Flags.Output.Has(want) {
			all = false
		}
		diag.WriteString(audio.DumpPortConfig(src))
	}

	out := map[string]any{
		KeyFlags:       union.String(),
		KeySourceCount: len(sources),
		KeyDiagnostic:  diag.String(),
	}
	if want != audio.OutputFlagNone {
		out[KeyHasFlag] = all
	}
	return out, nil
}

func (r *Runner) handleStopPlayback(ctx context.Context, step *loader.Step, state *engine.ExecutionState) (map[string]any, error) {
	e := getEnv(state)
	ps, err := r.playback(step, state)
	if err != nil {
		return nil, err
	}
	if err := ps.stream.Stop(); err != nil {
		return nil, fmt.Errorf("stop playback: %w", err)
	}
	if ps.registered {
		if err := ps.stream.RemoveDeviceCallback(ps.notifier); err != nil {
			return nil, fmt.Errorf("remove device callback: %w", err)
		}
		ps.registered = false
	}
	delete(e.playbacks, paramString(r.params(step, state), ParamStream, defaultStream))
	return map[string]any{KeyStopped: true}, nil
}

// playback returns the stream named by the step, "main" by default.
func (r *Runner) playback(step *loader.Step, state *engine.ExecutionState) (*playbackStream, error) {
	e := getEnv(state)
	if e == nil {
		return nil, errors.New("no routing environment")
	}
	name := paramString(r.params(step, state), ParamStream, defaultStream)
	ps, ok := e.playbacks[name]
	if !ok {
		return nil, fmt.Errorf("playback stream %q not created", name)
	}
	return ps, nil
}
