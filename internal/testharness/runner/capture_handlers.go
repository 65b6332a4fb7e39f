package runner

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/omnitrix21/android-frameworks-av/internal/testharness/engine"
	"github.com/omnitrix21/android-frameworks-av/internal/testharness/loader"
	"github.com/omnitrix21/android-frameworks-av/pkg/audio"
	"github.com/omnitrix21/android-frameworks-av/pkg/platform"
)

// registerCaptureHandlers registers port query and capture stream handlers.
func (r *Runner) registerCaptureHandlers() {
	r.engine.RegisterHandler(ActionGetPort, r.handleGetPort)
	r.engine.RegisterHandler(ActionCreateCapture, r.handleCreateCapture)
	r.engine.RegisterHandler(ActionStartCapture, r.handleStartCapture)
	r.engine.RegisterHandler(ActionStopCapture, r.handleStopCapture)
}

// handleGetPort looks up a port by role, type and device type. A missing
// port sets found to false.
func (r *Runner) handleGetPort(ctx context.Context, step *loader.Step, state *engine.ExecutionState) (map[string]any, error) {
	e := getEnv(state)
	if e == nil {
		return nil, errors.New("no routing environment")
	}
	params := r.params(step, state)

	role, err := parsePortRole(paramString(params, ParamRole, "sink"))
	if err != nil {
		return nil, err
	}
	typ, err := parsePortType(paramString(params, ParamPortType, "device"))
	if err != nil {
		return nil, err
	}
	dev, err := audio.ParseDeviceType(paramString(params, ParamDeviceType, ""))
	if err != nil {
		return nil, err
	}

	port, err := e.platform.PortByAttributes(role, typ, dev)
	if err != nil {
		if errors.Is(err, platform.ErrPortNotFound) {
			return map[string]any{
				KeyFound:                false,
				KeyError:                err.Error(),
				KeyErrorMessageContains: err.Error(),
			}, nil
		}
		return nil, err
	}
	return map[string]any{
		KeyFound:      true,
		KeyPortID:     int(port.ID),
		KeyPortName:   port.Name,
		KeyPortType:   port.Type.String(),
		KeyAddress:    port.Address,
		KeyDeviceType: port.Device.String(),
	}, nil
}

// handleCreateCapture opens a 48 kHz PCM 16-bit stereo capture stream.
func (r *Runner) handleCreateCapture(ctx context.Context, step *loader.Step, state *engine.ExecutionState) (map[string]any, error) {
	e := getEnv(state)
	if e == nil {
		return nil, errors.New("no routing environment")
	}
	params := r.params(step, state)
	name := paramString(params, ParamStream, defaultStream)
	if _, exists := e.captures[name]; exists {
		return nil, fmt.Errorf("capture stream %q already created", name)
	}

	source, err := audio.ParseSource(paramString(params, ParamSource, audio.SourceDefault.String()))
	if err != nil {
		return nil, err
	}
	c := e.platform.NewCapture(platform.CaptureConfig{
		Source:      source,
		SampleRate:  uint32(paramInt(params, ParamSampleRate, 48000)),
		Format:      audio.FormatPCM16Bit,
		ChannelMask: audio.ChannelInStereo,
	})
	if err := c.Create(); err != nil {
		return nil, fmt.Errorf("create capture: %w", err)
	}
	e.captures[name] = c
	return map[string]any{
		KeyStreamID: c.ID(),
		KeyCreated:  true,
	}, nil
}

func (r *Runner) handleStartCapture(ctx context.Context, step *loader.Step, state *engine.ExecutionState) (map[string]any, error) {
	c, err := r.capture(step, state)
	if err != nil {
		return nil, err
	}
	if err := c.Start(); err != nil {
		return nil, fmt.Errorf("start capture: %w", err)
	}
	return map[string]any{
		KeyStarted:  true,
		KeyIO:       int(c.IO()),
		KeyDeviceID: int(c.RoutedDeviceID()),
	}, nil
}

func (r *Runner) handleStopCapture(ctx context.Context, step *loader.Step, state *engine.ExecutionState) (map[string]any, error) {
	c, err := r.capture(step, state)
	if err != nil {
		return nil, err
	}
	if err := c.Stop(); err != nil {
		return nil, fmt.Errorf("stop capture: %w", err)
	}
	delete(getEnv(state).captures, paramString(r.params(step, state), ParamStream, defaultStream))
	return map[string]any{KeyStopped: true}, nil
}

func (r *Runner) capture(step *loader.Step, state *engine.ExecutionState) (platform.Capture, error) {
	e := getEnv(state)
	if e == nil {
		return nil, errors.New("no routing environment")
	}
	name := paramString(r.params(step, state), ParamStream, defaultStream)
	c, ok := e.captures[name]
	if !ok {
		return nil, fmt.Errorf("capture stream %q not created", name)
	}
	return c, nil
}

func parsePortRole(s string) (audio.PortRole, error) {
	switch strings.ToLower(s) {
	case "source":
		return audio.PortRoleSource, nil
	case "sink":
		return audio.PortRoleSink, nil
	}
	return audio.PortRoleNone, fmt.Errorf("unknown port role %q", s)
}

func parsePortType(s string) (audio.PortType, error) {
	switch strings.ToLower(s) {
	case "device":
		return audio.PortTypeDevice, nil
	case "mix":
		return audio.PortTypeMix, nil
	}
	return audio.PortTypeNone, fmt.Errorf("unknown port type %q", s)
}
