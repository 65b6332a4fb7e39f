// Package policytest provides policy configurations for tests.
package policytest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/omnitrix21/android-frameworks-av/pkg/policy"
)

// PhoneXML is a handset configuration: a primary module with speaker,
// FAST and DEEP_BUFFER outputs, plus a remote submix module.
const PhoneXML = `<?xml version="1.0" encoding="UTF-8"?>
<audioPolicyConfiguration version="7.0">
    <modules>
        <module name="primary" halVersion="3.0">
            <attachedDevices>
                <item>Speaker</item>
                <item>Built-In Mic</item>
            </attachedDevices>
            <defaultOutputDevice>Speaker</defaultOutputDevice>
            <mixPorts>
                <mixPort name="primary output" role="source" flags="AUDIO_OUTPUT_FLAG_PRIMARY"/>
                <mixPort name="deep_buffer" role="source" flags="AUDIO_OUTPUT_FLAG_DEEP_BUFFER"/>
                <mixPort name="low_latency" role="source" flags="AUDIO_OUTPUT_FLAG_FAST"/>
                <mixPort name="primary input" role="sink"/>
            </mixPorts>
            <devicePorts>
                <devicePort tagName="Speaker" type="AUDIO_DEVICE_OUT_SPEAKER" role="sink"/>
                <devicePort tagName="Wired Headset" type="AUDIO_DEVICE_OUT_WIRED_HEADSET" role="sink"/>
                <devicePort tagName="Built-In Mic" type="AUDIO_DEVICE_IN_BUILTIN_MIC" role="source"/>
            </devicePorts>
            <routes>
                <route type="mix" sink="Speaker" sources="primary output,deep_buffer,low_latency"/>
                <route type="mix" sink="Wired Headset" sources="primary output,deep_buffer,low_latency"/>
                <route type="mix" sink="primary input" sources="Built-In Mic"/>
            </routes>
        </module>
        <module name="r_submix" halVersion="2.0">
            <attachedDevices>
                <item>Remote Submix In</item>
            </attachedDevices>
            <mixPorts>
                <mixPort name="r_submix output" role="source"/>
                <mixPort name="r_submix input" role="sink"/>
            </mixPorts>
            <devicePorts>
                <devicePort tagName="Remote Submix Out" type="AUDIO_DEVICE_OUT_REMOTE_SUBMIX" role="sink" address="0"/>
                <devicePort tagName="Remote Submix In" type="AUDIO_DEVICE_IN_REMOTE_SUBMIX" role="source" address="0"/>
            </devicePorts>
            <routes>
                <route type="mix" sink="Remote Submix Out" sources="r_submix output"/>
                <route type="mix" sink="r_submix input" sources="Remote Submix In"/>
            </routes>
        </module>
    </modules>
</audioPolicyConfiguration>
`

// PrimaryOnlyXML is PhoneXML without the remote submix module and without
// a DEEP_BUFFER output.
const PrimaryOnlyXML = `<?xml version="1.0" encoding="UTF-8"?>
<audioPolicyConfiguration version="7.0">
    <modules>
        <module name="primary" halVersion="3.0">
            <attachedDevices>
                <item>Speaker</item>
            </attachedDevices>
            <defaultOutputDevice>Speaker</defaultOutputDevice>
            <mixPorts>
                <mixPort name="primary output" role="source" flags="AUDIO_OUTPUT_FLAG_PRIMARY"/>
                <mixPort name="low_latency" role="source" flags="AUDIO_OUTPUT_FLAG_FAST"/>
            </mixPorts>
            <devicePorts>
                <devicePort tagName="Speaker" type="AUDIO_DEVICE_OUT_SPEAKER" role="sink"/>
            </devicePorts>
            <routes>
                <route type="mix" sink="Speaker" sources="primary output,low_latency"/>
            </routes>
        </module>
    </modules>
</audioPolicyConfiguration>
`

// Parse parses doc and fails the test on error.
func Parse(t testing.TB, doc string) *policy.Config {
	t.Helper()
	cfg, err := policy.Parse(strings.NewReader(doc), "")
	if err != nil {
		t.Fatalf("policytest: %v", err)
	}
	return cfg
}

// Phone returns the parsed PhoneXML.
func Phone(t testing.TB) *policy.Config { return Parse(t, PhoneXML) }

// PrimaryOnly returns the parsed PrimaryOnlyXML.
func PrimaryOnly(t testing.TB) *policy.Config { return Parse(t, PrimaryOnlyXML) }

// WriteFile writes doc as the default configuration file name into dir and
// returns its path.
func WriteFile(t testing.TB, dir, doc string) string {
	t.Helper()
	path := filepath.Join(dir, policy.DefaultFileName)
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("policytest: %v", err)
	}
	return path
}

// WriteResource writes one second of silent stereo 48 kHz PCM and returns
// its path.
func WriteResource(t testing.TB, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "silence_2ch_48kHz_s16le.raw")
	if err := os.WriteFile(path, make([]byte, 48000*4), 0o644); err != nil {
		t.Fatalf("policytest: %v", err)
	}
	return path
}
