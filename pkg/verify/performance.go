package verify

import (
	"context"
	"fmt"

	"github.com/omnitrix21/android-frameworks-av/pkg/audio"
	"github.com/omnitrix21/android-frameworks-av/pkg/platform"
)

// PerformanceModeCase ties a policy flag tag to the output flag a track
// must be granted and the attribute flag that requests it.
type PerformanceModeCase struct {
	Tag       string
	Output    audio.OutputFlags
	Attribute audio.AttributeFlags
}

// PerformanceModeCases are the cases run by PerformanceMode.
var PerformanceModeCases = []PerformanceModeCase{
	{Tag: "AUDIO_OUTPUT_FLAG_FAST", Output: audio.OutputFlagFast, Attribute: audio.FlagLowLatency},
	{Tag: "AUDIO_OUTPUT_FLAG_DEEP_BUFFER", Output: audio.OutputFlagDeepBuffer, Attribute: audio.FlagDeepBuffer},
}

// PerformanceMode runs every PerformanceModeCases entry.
func (v *Verifier) PerformanceMode(ctx context.Context) Results {
	out := make(Results, 0, len(PerformanceModeCases))
	for _, tc := range PerformanceModeCases {
		out = append(out, v.PerformanceModeCase(ctx, tc))
	}
	return out
}

// PerformanceModeCase plays media with tc.Attribute and checks the track
// lands on an output carrying tc.Output. The case is skipped when no source
// mix port with tc.Tag is routed to an attached device.
func (v *Verifier) PerformanceModeCase(ctx context.Context, tc PerformanceModeCase) *CaseResult {
	c := v.begin("performance_mode/" + tc.Tag)
	if !c.policyLoaded() {
		return c.finish()
	}

	path, ok := v.Config.FindRoutedPort(tc.Tag, v.Mode)
	if !ok {
		return c.skip(fmt.Sprintf("no %s mix port routed to an attached device", tc.Tag))
	}
	c.res.Path = path

	cfg := platform.DefaultPlaybackConfig()
	cfg.Attributes.Flags = tc.Attribute
	p := v.Platform.NewPlayback(cfg)
	if !c.must("load_resource", p.LoadResource(v.resource())) {
		return c.finish()
	}
	if !c.must("create_playback", p.Create()) {
		return c.finish()
	}

	n := platform.NewDeviceUpdateNotifier()
	if !c.must("add_device_callback", p.AddDeviceCallback(n)) {
		return c.finish()
	}
	defer func() { _ = p.RemoveDeviceCallback(n) }()

	if !c.must("start_playback", p.Start()) {
		return c.finish()
	}
	defer func() { _ = p.Stop() }()

	c.check("process_playback", p.Process() == nil, "", "writing the first buffer failed")

	wctx, cancel := context.WithTimeout(ctx, v.timeout())
	defer cancel()
	if !c.must("wait_device_callback", n.Wait(wctx, audio.PortNone)) {
		return c.finish()
	}

	io, dev := n.Last()
	c.res.IO, c.res.DeviceID = io, dev

	patch, err := v.Platform.PatchForOutputMix(io)
	c.check("patch_device", err == nil && patch.RoutesTo(dev), dumpPatch(patch, err),
		"no patch from mix %d to device %d", io, dev)

	c.check("track_flags", p.Flags().Has(tc.Output), "",
		"track flags %s lack %s", p.Flags(), tc.Output)

	if err == nil {
		for _, src := range patch.MixSources(io) {
			c.check("patch_source_flags", src.Flags.Output.Has(tc.Output), audio.DumpPortConfig(src),
				"expected output flag %s is absent", tc.Output)
		}
	}
	return c.finish()
}

func dumpPatch(p audio.Patch, err error) string {
	if err != nil {
		return err.Error()
	}
	return audio.DumpPatch(p)
}
