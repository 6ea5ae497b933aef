// Package audio holds decoded audio in memory and the operations that work
// on it without invoking FFmpeg: WAV framing, range validation and trimming.
package audio

import (
	"fmt"
	"math"
	"time"
)

// PCM is fully decoded audio: interleaved signed 16-bit samples.
// A PCM value produced by this package never shares its sample slice with
// another PCM value.
type PCM struct {
	Samples    []int16 // Interleaved, len is a multiple of Channels.
	SampleRate int     // Frames per second.
	Channels   int
}

// validate checks the metadata invariants shared by every operation.
func (p *PCM) validate() error {
	if p == nil {
		return fmt.Errorf("%w: nil audio", ErrInvalidAudio)
	}
	if p.SampleRate <= 0 {
		return fmt.Errorf("%w: sample rate must be positive, got %d", ErrInvalidAudio, p.SampleRate)
	}
	if p.Channels <= 0 {
		return fmt.Errorf("%w: channel count must be positive, got %d", ErrInvalidAudio, p.Channels)
	}
	if len(p.Samples)%p.Channels != 0 {
		return fmt.Errorf("%w: %d samples is not a whole number of %d-channel frames",
			ErrInvalidAudio, len(p.Samples), p.Channels)
	}
	return nil
}

// Frames returns the number of sample frames (one sample per channel).
func (p *PCM) Frames() int {
	if p == nil || p.Channels <= 0 {
		return 0
	}
	return len(p.Samples) / p.Channels
}

// Duration returns the playback length, truncated to the nanosecond.
func (p *PCM) Duration() time.Duration {
	if p == nil || p.SampleRate <= 0 {
		return 0
	}
	frames := int64(p.Frames())
	rate := int64(p.SampleRate)
	return time.Duration(frames/rate)*time.Second +
		time.Duration(frames%rate)*time.Second/time.Duration(rate)
}

// frameAt converts an offset into the nearest frame index, clamped to [0, Frames()].
func (p *PCM) frameAt(d time.Duration) int {
	idx := int(math.Round(d.Seconds() * float64(p.SampleRate)))
	return max(0, min(idx, p.Frames()))
}

// String returns a short description for logs.
func (p *PCM) String() string {
	return fmt.Sprintf("%d Hz, %d ch, %d frames", p.SampleRate, p.Channels, p.Frames())
}
