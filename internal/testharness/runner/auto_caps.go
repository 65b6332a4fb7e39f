package runner

import (
	"strings"

	"github.com/omnitrix21/android-frameworks-av/internal/testharness/loader"
	"github.com/omnitrix21/android-frameworks-av/pkg/audio"
	"github.com/omnitrix21/android-frameworks-av/pkg/policy"
)

// AutoCapabilityName names capability sets derived from a policy.
const AutoCapabilityName = "auto"

// defaultSampleRate is the PLATFORM.SAMPLE_RATE of a derived capability set.
const defaultSampleRate = 48000

// BuildCapabilities derives capabilities from a policy. loaded reports
// whether cfg was extracted successfully; when it is false only the
// platform defaults are set.
//
// Derived items:
//
//	POLICY.LOADED                         policy extracted
//	POLICY.ATTACHED.<CLASS>               attached device of that class, e.g. SPEAKER
//	POLICY.ATTACHED.REMOTE_SUBMIX         an attached device named "Remote Submix..."
//	POLICY.ROUTED_FLAG.<TAG>              a source mix port with TAG reaches an attached device
//	PLATFORM.SAMPLE_RATE                  48000
func BuildCapabilities(cfg *policy.Config, loaded bool, mode policy.MatchMode) *loader.CapabilityFile {
	caps := loader.NewCapabilityFile(AutoCapabilityName)
	caps.Items[loader.CapPolicyLoaded] = loaded
	caps.Items[loader.CapSampleRate] = defaultSampleRate
	if !loaded || cfg == nil {
		return caps
	}

	for _, name := range cfg.AttachedDevices {
		if class := deviceClass(cfg, name); class != "" {
			caps.Items[loader.CapAttachedPrefix+class] = true
		}
	}
	// Remote submix presence follows the device name, as the routing
	// check does, so a port typed differently still counts.
	if cfg.HasAttachedDevice("Remote Submix") {
		caps.Items[loader.CapRemoteSubmix] = true
	}

	for _, path := range cfg.RoutedPorts(mode) {
		for _, tag := range audio.SplitFlagTags(path.Port.Flags) {
			caps.Items[loader.CapRoutedFlagPrefix+tag] = true
		}
	}
	return caps
}

// deviceClass returns the device type of the attached device without its
// direction prefix, e.g. "REMOTE_SUBMIX" for AUDIO_DEVICE_IN_REMOTE_SUBMIX.
// Empty when the device port is not declared.
func deviceClass(cfg *policy.Config, name string) string {
	port, ok := cfg.DevicePort(name)
	if !ok || port.Type == "" {
		return ""
	}
	class := strings.TrimSpace(port.Type)
	for _, prefix := range []string{"AUDIO_DEVICE_OUT_", "AUDIO_DEVICE_IN_"} {
		class = strings.TrimPrefix(class, prefix)
	}
	return class
}
