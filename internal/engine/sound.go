package engine

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/generators"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/vorbis"
	"github.com/gopxl/beep/v2/wav"
)

// decodeSound loads a WAV, OGG or MP3 file into a buffer at sampleRate.
func decodeSound(path string, sampleRate beep.SampleRate) (*beep.Buffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sound file: %w", err)
	}
	defer func() { _ = f.Close() }()

	var streamer beep.StreamSeekCloser
	var format beep.Format

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".wav":
		streamer, format, err = wav.Decode(f)
	case ".ogg":
		streamer, format, err = vorbis.Decode(f)
	case ".mp3":
		streamer, format, err = mp3.Decode(f)
	default:
		return nil, fmt.Errorf("unsupported audio format: %s", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode sound: %w", err)
	}
	defer func() { _ = streamer.Close() }()

	var src beep.Streamer = streamer
	if format.SampleRate != sampleRate {
		src = beep.Resample(4, format.SampleRate, sampleRate, streamer)
	}

	buffer := beep.NewBuffer(beep.Format{
		SampleRate:  sampleRate,
		NumChannels: 2,
		Precision:   2,
	})
	buffer.Append(src)

	if buffer.Len() == 0 {
		return nil, fmt.Errorf("sound file %s is empty", path)
	}
	return buffer, nil
}

// synthesizeClick renders a short sine burst with a quadratic decay.
func synthesizeClick(sampleRate beep.SampleRate, freq float64, length time.Duration) (*beep.Buffer, error) {
	tone, err := generators.SineTone(sampleRate, freq)
	if err != nil {
		return nil, fmt.Errorf("failed to create click tone: %w", err)
	}

	n := sampleRate.N(length)
	if n <= 0 {
		return nil, fmt.Errorf("click length %s is too short", length)
	}

	buffer := beep.NewBuffer(beep.Format{
		SampleRate:  sampleRate,
		NumChannels: 2,
		Precision:   2,
	})
	buffer.Append(&decay{Streamer: beep.Take(n, tone), total: n})
	return buffer, nil
}

// decay fades its source to silence over total samples.
type decay struct {
	beep.Streamer
	pos   int
	total int
}

func (d *decay) Stream(samples [][2]float64) (int, bool) {
	n, ok := d.Streamer.Stream(samples)
	for i := 0; i < n; i++ {
		g := 1 - float64(d.pos)/float64(d.total)
		if g < 0 {
			g = 0
		}
		g *= g
		samples[i][0] *= g
		samples[i][1] *= g
		d.pos++
	}
	return n, ok
}

// withVolume scales s by a 0-100 volume.
func withVolume(s beep.Streamer, volume int) beep.Streamer {
	if volume >= 100 {
		return s
	}
	return &effects.Volume{
		Streamer: s,
		Base:     2,
		Volume:   volumeToExponent(volume),
		Silent:   volume <= 0,
	}
}

// volumeToExponent converts a 0-100 volume to a base-2 gain exponent.
func volumeToExponent(volume int) float64 {
	if volume <= 0 {
		return -10
	}
	return math.Log2(float64(volume) / 100)
}
