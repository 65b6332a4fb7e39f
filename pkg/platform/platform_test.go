package platform

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/youpy/go-wav"

	"github.com/omnitrix21/android-frameworks-av/pkg/audio"
)

func TestNotifierWaitReturnsAfterUpdate(t *testing.T) {
	n := NewDeviceUpdateNotifier()

	go func() {
		time.Sleep(10 * time.Millisecond)
		n.OnAudioDeviceUpdate(13, []audio.PortHandle{3})
	}()

	require.NoError(t, n.WaitTimeout(time.Second, audio.PortNone))
	io, dev := n.Last()
	assert.Equal(t, audio.IOHandle(13), io)
	assert.Equal(t, audio.PortHandle(3), dev)
	assert.Equal(t, 1, n.Updates())
}

func TestNotifierWaitForSpecificDevice(t *testing.T) {
	n := NewDeviceUpdateNotifier()
	n.OnAudioDeviceUpdate(13, []audio.PortHandle{3})

	go func() {
		time.Sleep(10 * time.Millisecond)
		n.OnAudioDeviceUpdate(13, []audio.PortHandle{5})
	}()

	require.NoError(t, n.WaitTimeout(time.Second, 5))
	assert.Equal(t, 2, n.Updates())
}

func TestNotifierTimeout(t *testing.T) {
	n := NewDeviceUpdateNotifier()

	err := n.WaitTimeout(20*time.Millisecond, audio.PortNone)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCallbackTimeout))

	// An update with no device does not satisfy a wait.
	n.OnAudioDeviceUpdate(13, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.True(t, errors.Is(n.Wait(ctx, audio.PortNone), ErrCallbackTimeout))
}

func TestDeviceCallbackFunc(t *testing.T) {
	var got audio.IOHandle
	var cb DeviceCallback = DeviceCallbackFunc(func(io audio.IOHandle, _ []audio.PortHandle) { got = io })
	cb.OnAudioDeviceUpdate(21, nil)
	assert.Equal(t, audio.IOHandle(21), got)
}

func TestLoadRawResourceFromName(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bbb_2ch_24kHz_s16le.raw")
	// Two full frames plus a trailing partial sample.
	require.NoError(t, os.WriteFile(path, make([]byte, 2*4+1), 0o644))

	res, err := LoadResource(path)
	require.NoError(t, err)
	assert.Equal(t, uint32(24000), res.SampleRate)
	assert.Equal(t, 2, res.Channels)
	assert.Equal(t, 4, res.FrameSize())
	assert.Equal(t, 2, res.Frames())
	assert.Len(t, res.Data, 8)
}

func TestLoadDefaultClip(t *testing.T) {
	path := filepath.Join(t.TempDir(), filepath.Base(DefaultResourcePath))
	// One second of stereo 16-bit audio at 24 kHz.
	require.NoError(t, os.WriteFile(path, make([]byte, 96000), 0o644))

	res, err := LoadResource(path)
	require.NoError(t, err)
	assert.Len(t, res.Data, 96000)
	assert.Equal(t, 24000, res.Frames())
	assert.Equal(t, time.Second, res.Duration())
}

func TestLoadRawResourceDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tone.raw")
	require.NoError(t, os.WriteFile(path, make([]byte, 48000*4), 0o644))

	res, err := LoadResource(path)
	require.NoError(t, err)
	assert.Equal(t, uint32(48000), res.SampleRate)
	assert.Equal(t, time.Second, res.Duration())
}

func TestLoadResourceErrors(t *testing.T) {
	_, err := LoadResource(filepath.Join(t.TempDir(), "missing.raw"))
	assert.True(t, errors.Is(err, ErrNoResource))
	assert.True(t, errors.Is(err, os.ErrNotExist))

	empty := filepath.Join(t.TempDir(), "empty.raw")
	require.NoError(t, os.WriteFile(empty, nil, 0o644))
	_, err = LoadResource(empty)
	assert.True(t, errors.Is(err, ErrNoResource))
}

func TestLoadWAVResource(t *testing.T) {
	var buf bytes.Buffer
	samples := []wav.Sample{
		{Values: [2]int{100, -100}},
		{Values: [2]int{200, -200}},
		{Values: [2]int{300, -300}},
	}
	w := wav.NewWriter(&buf, uint32(len(samples)), 2, 44100, 16)
	require.NoError(t, w.WriteSamples(samples))

	path := filepath.Join(t.TempDir(), "clip.wav")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))

	res, err := LoadResource(path)
	require.NoError(t, err)
	assert.Equal(t, uint32(44100), res.SampleRate)
	assert.Equal(t, 2, res.Channels)
	assert.Equal(t, audio.FormatPCM16Bit, res.Format)
	assert.Equal(t, 3, res.Frames())
	// First left sample, little endian.
	assert.Equal(t, []byte{100, 0}, res.Data[:2])
}

func TestDefaultPlaybackConfig(t *testing.T) {
	cfg := DefaultPlaybackConfig()
	assert.Equal(t, audio.UsageMedia, cfg.Attributes.Usage)
	assert.Equal(t, audio.ContentTypeMusic, cfg.Attributes.ContentType)
	assert.Equal(t, audio.TransferObtain, cfg.Transfer)
	assert.Equal(t, 2, cfg.ChannelMask.Count())
}
