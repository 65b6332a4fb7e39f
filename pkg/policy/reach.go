package policy

import "strings"

// MatchMode selects how port names and flag tags are compared against the
// free-text attributes of the document.
type MatchMode int

const (
	// MatchToken compares whole tokens: flags split on '|', space or comma,
	// route sources split on comma.
	MatchToken MatchMode = iota

	// MatchSubstring uses plain substring containment. Names that are
	// prefixes of other names ("primary output" vs "primary output 2")
	// produce false positives in this mode.
	MatchSubstring
)

// String returns the mode name.
func (m MatchMode) String() string {
	switch m {
	case MatchSubstring:
		return "substring"
	default:
		return "token"
	}
}

// ParseMatchMode accepts "token" or "substring".
func ParseMatchMode(s string) (MatchMode, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "token", "exact":
		return MatchToken, true
	case "substring", "legacy":
		return MatchSubstring, true
	default:
		return MatchToken, false
	}
}

// Path joins a source mix port to a route whose sink is attached.
type Path struct {
	Port  MixPort
	Route Route
}

// Sink is the attached device the path ends at.
func (p Path) Sink() string { return p.Route.Sink }

// IsAttached reports whether device is in the attached device list.
func (c *Config) IsAttached(device string) bool {
	for _, d := range c.AttachedDevices {
		if d == device {
			return true
		}
	}
	return false
}

// HasAttachedDevice reports whether any attached device name contains substr.
func (c *Config) HasAttachedDevice(substr string) bool {
	for _, d := range c.AttachedDevices {
		if strings.Contains(d, substr) {
			return true
		}
	}
	return false
}

// Reachable reports whether some route lists port among its sources and
// ends at device, and device is attached.
func (c *Config) Reachable(port MixPort, device string, mode MatchMode) bool {
	if !c.IsAttached(device) {
		return false
	}
	for _, r := range c.Routes {
		if r.Sink == device && r.Lists(port.Name, mode) {
			return true
		}
	}
	return false
}

// ReachableDevices returns the attached sinks of every route listing port,
// in route order without duplicates.
func (c *Config) ReachableDevices(port MixPort, mode MatchMode) []string {
	var out []string
	seen := make(map[string]bool)
	for _, r := range c.Routes {
		if seen[r.Sink] || !r.Lists(port.Name, mode) || !c.IsAttached(r.Sink) {
			continue
		}
		seen[r.Sink] = true
		out = append(out, r.Sink)
	}
	return out
}

// FindRoutedPort returns the first source mix port carrying flag that a
// route connects to an attached device. Ports and routes are scanned in
// document order.
func (c *Config) FindRoutedPort(flag string, mode MatchMode) (Path, bool) {
	for _, p := range c.MixPorts {
		if p.Role != RoleSource || !p.HasFlag(flag, mode) {
			continue
		}
		for _, r := range c.Routes {
			if r.Lists(p.Name, mode) && c.IsAttached(r.Sink) {
				return Path{Port: p, Route: r}, true
			}
		}
	}
	return Path{}, false
}

// RoutedPorts returns every source mix port with at least one attached sink.
func (c *Config) RoutedPorts(mode MatchMode) []Path {
	var out []Path
	for _, p := range c.MixPorts {
		for _, r := range c.Routes {
			if r.Lists(p.Name, mode) && c.IsAttached(r.Sink) {
				out = append(out, Path{Port: p, Route: r})
				break
			}
		}
	}
	return out
}
