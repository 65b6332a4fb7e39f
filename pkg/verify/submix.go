package verify

import (
	"context"
	"fmt"

	"github.com/omnitrix21/android-frameworks-av/pkg/audio"
	"github.com/omnitrix21/android-frameworks-av/pkg/platform"
)

// RemoteSubmixDevice is the attached device name fragment that enables
// RemoteSubmix.
const RemoteSubmixDevice = "Remote Submix"

// RemoteSubmix captures from the remote submix and plays media while the
// capture runs. Both streams must be routed to the remote submix device
// ports. The case is skipped when no attached device is a remote submix.
func (v *Verifier) RemoteSubmix(ctx context.Context) *CaseResult {
	c := v.begin("remote_submix")
	if !c.policyLoaded() {
		return c.finish()
	}

	if !v.Config.HasAttachedDevice(RemoteSubmixDevice) {
		return c.skip("no " + RemoteSubmixDevice + " attached device")
	}

	capture := v.Platform.NewCapture(platform.CaptureConfig{
		Source:      audio.SourceRemoteSubmix,
		SampleRate:  48000,
		Format:      audio.FormatPCM16Bit,
		ChannelMask: audio.ChannelInStereo,
	})
	if !c.must("create_capture", capture.Create()) {
		return c.finish()
	}

	playback := v.Platform.NewPlayback(platform.DefaultPlaybackConfig())
	if !c.must("load_resource", playback.LoadResource(v.resource())) {
		return c.finish()
	}
	if !c.must("create_playback", playback.Create()) {
		return c.finish()
	}

	in, inErr := v.Platform.PortByAttributes(audio.PortRoleSource, audio.PortTypeDevice, audio.DeviceInRemoteSubmix)
	c.check("get_input_port", inErr == nil, "", "%v", inErr)

	if !c.must("start_capture", capture.Start()) {
		return c.finish()
	}
	defer func() { _ = capture.Stop() }()

	if inErr == nil {
		got := capture.RoutedDeviceID()
		c.check("capture_routed_device", got == in.ID, portDiag(in),
			"capture routed to port %d, want %d", got, in.ID)
	}

	out, outErr := v.Platform.PortByAttributes(audio.PortRoleSink, audio.PortTypeDevice, audio.DeviceOutRemoteSubmix)
	c.check("get_output_port", outErr == nil, "", "%v", outErr)

	if !c.must("start_playback", playback.Start()) {
		return c.finish()
	}
	defer func() { _ = playback.Stop() }()
	c.check("process_playback", playback.Process() == nil, "", "writing the first buffer failed")

	c.res.IO = playback.IO()
	c.res.DeviceID = playback.RoutedDeviceID()
	if outErr == nil {
		var err error
		if c.res.DeviceID != out.ID {
			err = fmt.Errorf("playback routed to port %d, want %d", c.res.DeviceID, out.ID)
		}
		c.must("playback_routed_device", err)
	}
	return c.finish()
}

func portDiag(p audio.Port) string {
	return fmt.Sprintf("port id=%d role=%s type=%s name=%q device=%s address=%q",
		p.ID, p.Role, p.Type, p.Name, p.Device, p.Address)
}
