package runner

import (
	"testing"

	"github.com/omnitrix21/android-frameworks-av/internal/testharness/loader"
	"github.com/omnitrix21/android-frameworks-av/pkg/policy"
	"github.com/omnitrix21/android-frameworks-av/pkg/policy/policytest"
)

func TestBuildCapabilitiesPhone(t *testing.T) {
	caps := BuildCapabilities(policytest.Phone(t), true, policy.MatchToken)

	for _, key := range []string{
		loader.CapPolicyLoaded,
		loader.CapAttachedPrefix + "SPEAKER",
		loader.CapAttachedPrefix + "BUILTIN_MIC",
		loader.CapRemoteSubmix,
		loader.CapRoutedFlagPrefix + "AUDIO_OUTPUT_FLAG_PRIMARY",
		loader.CapRoutedFlagPrefix + "AUDIO_OUTPUT_FLAG_FAST",
		loader.CapRoutedFlagPrefix + "AUDIO_OUTPUT_FLAG_DEEP_BUFFER",
	} {
		if !caps.Has(key) {
			t.Errorf("expected capability %s, got %v", key, caps.Keys())
		}
	}
	// Wired Headset is declared but not attached.
	if caps.Has(loader.CapAttachedPrefix + "WIRED_HEADSET") {
		t.Error("unattached device reported")
	}
	if caps.Items[loader.CapSampleRate] != defaultSampleRate {
		t.Errorf("sample rate = %v", caps.Items[loader.CapSampleRate])
	}
	if errs := loader.ValidateCapabilities(caps); len(errs) != 0 {
		t.Errorf("unexpected validation errors: %v", errs)
	}
}

func TestBuildCapabilitiesPrimaryOnly(t *testing.T) {
	caps := BuildCapabilities(policytest.PrimaryOnly(t), true, policy.MatchToken)

	if !caps.Has(loader.CapRoutedFlagPrefix + "AUDIO_OUTPUT_FLAG_FAST") {
		t.Error("expected FAST to be routed")
	}
	if caps.Has(loader.CapRoutedFlagPrefix + "AUDIO_OUTPUT_FLAG_DEEP_BUFFER") {
		t.Error("DEEP_BUFFER is not declared")
	}
	if caps.Has(loader.CapRemoteSubmix) {
		t.Error("remote submix is not attached")
	}
}

func TestBuildCapabilitiesNotLoaded(t *testing.T) {
	caps := BuildCapabilities(&policy.Config{}, false, policy.MatchToken)

	if caps.Has(loader.CapPolicyLoaded) {
		t.Error("POLICY.LOADED must be false")
	}
	if v, ok := caps.Items[loader.CapPolicyLoaded]; !ok || v != false {
		t.Errorf("POLICY.LOADED = %v, %v", v, ok)
	}
	for _, key := range caps.Keys() {
		if key != loader.CapPolicyLoaded && key != loader.CapSampleRate {
			t.Errorf("unexpected capability %s", key)
		}
	}
}

func TestBuildCapabilitiesSubmixByName(t *testing.T) {
	// An attached remote submix without a device port still counts.
	cfg := &policy.Config{AttachedDevices: []string{"Speaker", "Remote Submix In"}}
	caps := BuildCapabilities(cfg, true, policy.MatchToken)
	if !caps.Has(loader.CapRemoteSubmix) {
		t.Errorf("expected %s, got %v", loader.CapRemoteSubmix, caps.Keys())
	}
}
