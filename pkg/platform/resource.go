package platform

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"time"

	"github.com/youpy/go-wav"

	"github.com/omnitrix21/android-frameworks-av/pkg/audio"
)

// DefaultResourcePath is the stereo 24 kHz clip pushed to devices for
// playback checks.
const DefaultResourcePath = "/data/local/tmp/bbb_2ch_24kHz_s16le.raw"

// Resource is decoded PCM ready to be written to a playback stream.
type Resource struct {
	Path       string
	SampleRate uint32
	Channels   int
	Format     audio.Format
	Data       []byte
}

// FrameSize returns the size in bytes of one frame.
func (r *Resource) FrameSize() int {
	return r.Channels * r.Format.BytesPerSample()
}

// Frames returns the number of complete frames in Data.
func (r *Resource) Frames() int {
	fs := r.FrameSize()
	if fs == 0 {
		return 0
	}
	return len(r.Data) / fs
}

// Duration returns the playback length at the native sample rate.
func (r *Resource) Duration() time.Duration {
	if r.SampleRate == 0 {
		return 0
	}
	return time.Duration(r.Frames()) * time.Second / time.Duration(r.SampleRate)
}

// rawName matches names like bbb_2ch_24kHz_s16le.raw.
var rawName = regexp.MustCompile(`(\d+)ch_(\d+)kHz_s16le`)

// LoadResource reads a WAV file or a raw little-endian PCM 16-bit file.
// Raw files take channel count and rate from their name, defaulting to
// stereo 48 kHz.
func LoadResource(path string) (*Resource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoResource, err)
	}
	if len(data) >= 12 && string(data[:4]) == "RIFF" && string(data[8:12]) == "WAVE" {
		return decodeWAV(path, data)
	}
	return decodeRaw(path, data)
}

func decodeRaw(path string, data []byte) (*Resource, error) {
	res := &Resource{
		Path:       path,
		SampleRate: 48000,
		Channels:   2,
		Format:     audio.FormatPCM16Bit,
	}
	if m := rawName.FindStringSubmatch(filepath.Base(path)); m != nil {
		ch, _ := strconv.Atoi(m[1])
		khz, _ := strconv.Atoi(m[2])
		if ch > 0 && khz > 0 {
			res.Channels = ch
			res.SampleRate = uint32(khz * 1000)
		}
	}
	fs := res.FrameSize()
	if len(data) < fs {
		return nil, fmt.Errorf("%w: %s holds no complete frame", ErrNoResource, path)
	}
	res.Data = data[:len(data)/fs*fs]
	return res, nil
}

func decodeWAV(path string, data []byte) (*Resource, error) {
	r := wav.NewReader(bytes.NewReader(data))
	f, err := r.Format()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrNoResource, path, err)
	}
	if f.AudioFormat != wav.AudioFormatPCM {
		return nil, fmt.Errorf("%w: %s: unsupported wav encoding %d", ErrNoResource, path, f.AudioFormat)
	}

	var format audio.Format
	switch f.BitsPerSample {
	case 8:
		format = audio.FormatPCM8Bit
	case 16:
		format = audio.FormatPCM16Bit
	case 24:
		format = audio.FormatPCM24Bit
	case 32:
		format = audio.FormatPCM32Bit
	default:
		return nil, fmt.Errorf("%w: %s: unsupported sample size %d", ErrNoResource, path, f.BitsPerSample)
	}

	pcm, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrNoResource, path, err)
	}
	res := &Resource{
		Path:       path,
		SampleRate: f.SampleRate,
		Channels:   int(f.NumChannels),
		Format:     format,
		Data:       pcm,
	}
	if res.Frames() == 0 {
		return nil, fmt.Errorf("%w: %s holds no complete frame", ErrNoResource, path)
	}
	return res, nil
}
