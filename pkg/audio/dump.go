package audio

import (
	"fmt"
	"strings"
)

// DumpPortConfig renders a port config for failure diagnostics.
func DumpPortConfig(c PortConfig) string {
	var b strings.Builder
	fmt.Fprintf(&b, "port config id=%d role=%s type=%s\n", c.ID, c.Role, c.Type)
	fmt.Fprintf(&b, "  sample rate: %d\n", c.SampleRate)
	fmt.Fprintf(&b, "  channel mask: 0x%x (%d ch)\n", uint32(c.ChannelMask), c.ChannelMask.Count())
	fmt.Fprintf(&b, "  format: 0x%x\n", uint32(c.Format))
	switch c.Type {
	case PortTypeMix:
		fmt.Fprintf(&b, "  mix handle: %d\n", c.Mix.Handle)
		if c.Role == PortRoleSource {
			fmt.Fprintf(&b, "  output flags: %s\n", c.Flags.Output)
		} else {
			fmt.Fprintf(&b, "  input flags: %s\n", c.Flags.Input)
		}
	case PortTypeDevice:
		fmt.Fprintf(&b, "  device: %s", c.Device.Type)
		if c.Device.Address != "" {
			fmt.Fprintf(&b, " address=%q", c.Device.Address)
		}
		b.WriteString("\n")
	}
	return b.String()
}

// DumpPatch renders every source and sink of a patch.
func DumpPatch(p Patch) string {
	var b strings.Builder
	fmt.Fprintf(&b, "patch id=%d sources=%d sinks=%d\n", p.ID, len(p.Sources), len(p.Sinks))
	for i, s := range p.Sources {
		fmt.Fprintf(&b, "source[%d] %s", i, DumpPortConfig(s))
	}
	for i, s := range p.Sinks {
		fmt.Fprintf(&b, "sink[%d] %s", i, DumpPortConfig(s))
	}
	return b.String()
}
