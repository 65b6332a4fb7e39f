package policy

import (
	"strings"

	"github.com/omnitrix21/android-frameworks-av/pkg/audio"
)

// Mix port roles as they appear in the document.
const (
	RoleSource = "source"
	RoleSink   = "sink"
)

// RootElement is the required document root name.
const RootElement = "audioPolicyConfiguration"

// MixPort is a logical stream endpoint declared by a module.
type MixPort struct {
	// Name is the mix port name referenced by routes.
	Name string

	// Role is "source" for playback mixes and "sink" for capture mixes.
	Role string

	// Flags is the raw flags attribute, a list of capability tags.
	Flags string

	// Module is the name of the declaring module.
	Module string
}

// HasFlag reports whether the port's flags carry tag.
func (p MixPort) HasFlag(tag string, mode MatchMode) bool {
	if tag == "" {
		return false
	}
	if mode == MatchSubstring {
		return strings.Contains(p.Flags, tag)
	}
	for _, t := range audio.SplitFlagTags(p.Flags) {
		if t == tag {
			return true
		}
	}
	return false
}

// OutputFlags decodes the flags attribute of a source port. Unknown tags are
// ignored.
func (p MixPort) OutputFlags() audio.OutputFlags {
	var mask audio.OutputFlags
	for _, t := range audio.SplitFlagTags(p.Flags) {
		if v, err := audio.ParseOutputFlags(t); err == nil {
			mask |= v
		}
	}
	return mask
}

// Route is a policy assertion that the listed sources may reach the sink.
type Route struct {
	// Name is the optional route name.
	Name string

	// Type is "mix" or "mux".
	Type string

	// Sources is the raw comma separated list of port names.
	Sources string

	// Sink is the name of the destination port.
	Sink string

	// Module is the name of the declaring module.
	Module string
}

// SourceNames splits Sources into trimmed port names.
func (r Route) SourceNames() []string {
	var names []string
	for _, s := range strings.Split(r.Sources, ",") {
		if s = strings.TrimSpace(s); s != "" {
			names = append(names, s)
		}
	}
	return names
}

// Lists reports whether the route names port among its sources.
func (r Route) Lists(port string, mode MatchMode) bool {
	if port == "" {
		return false
	}
	if mode == MatchSubstring {
		return strings.Contains(r.Sources, port)
	}
	for _, s := range r.SourceNames() {
		if s == port {
			return true
		}
	}
	return false
}

// DevicePort is a physical or virtual device declared by a module.
type DevicePort struct {
	TagName string
	Type    string
	Role    string
	Address string
	Module  string
}

// DeviceType decodes the type attribute.
func (d DevicePort) DeviceType() (audio.DeviceType, error) {
	return audio.ParseDeviceType(d.Type)
}

// Config is the flattened content of a policy document.
type Config struct {
	// Path is the file the configuration was loaded from.
	Path string

	// Version is the root version attribute.
	Version string

	// Modules lists module names in document order.
	Modules []string

	// AttachedDevices lists attached device names in document order.
	AttachedDevices []string

	// MixPorts lists mix ports with role "source" in document order.
	MixPorts []MixPort

	// Routes lists every route in document order.
	Routes []Route

	// DevicePorts lists every device port in document order.
	DevicePorts []DevicePort

	// DefaultOutputDevices lists defaultOutputDevice values in module order.
	DefaultOutputDevices []string
}

// Reset clears all extracted collections.
func (c *Config) Reset() {
	*c = Config{}
}

// DevicePort returns the device port declared with the given tag name.
func (c *Config) DevicePort(tagName string) (DevicePort, bool) {
	for _, d := range c.DevicePorts {
		if d.TagName == tagName {
			return d, true
		}
	}
	return DevicePort{}, false
}

// MixPort returns the source mix port with the given name.
func (c *Config) MixPort(name string) (MixPort, bool) {
	for _, p := range c.MixPorts {
		if p.Name == name {
			return p, true
		}
	}
	return MixPort{}, false
}
