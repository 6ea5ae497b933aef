package audio

import (
	"fmt"
	"strings"
	"time"

	"github.com/alnah/go-audioconv/internal/format"
	"github.com/alnah/go-audioconv/internal/timespec"
)

// Range is a validated [Start, End) window within a piece of media.
// The zero value is not valid; construct ranges with NewRange or ParseRange.
type Range struct {
	start time.Duration
	end   time.Duration
}

// NewRange validates start and end against the media duration.
// It enforces 0 <= start < end <= total.
func NewRange(start, end, total time.Duration) (Range, error) {
	if start < 0 {
		return Range{}, fmt.Errorf("%w: start %s is negative", ErrInvalidRange, format.Timestamp(start))
	}
	if start > total {
		return Range{}, fmt.Errorf("%w: start %s exceeds media duration %s",
			ErrInvalidRange, format.Timestamp(start), format.Timestamp(total))
	}
	if end <= start {
		return Range{}, fmt.Errorf("%w: end %s must be after start %s",
			ErrInvalidRange, format.Timestamp(end), format.Timestamp(start))
	}
	if end > total {
		return Range{}, fmt.Errorf("%w: end %s exceeds media duration %s",
			ErrInvalidRange, format.Timestamp(end), format.Timestamp(total))
	}
	return Range{start: start, end: end}, nil
}

// ParseRange parses user-entered start and end times and validates them.
// An empty start means the beginning of the media and an empty end means
// its end.
func ParseRange(startText, endText string, total time.Duration) (Range, error) {
	var start time.Duration
	if strings.TrimSpace(startText) != "" {
		s, err := timespec.Parse(startText)
		if err != nil {
			return Range{}, fmt.Errorf("start time: %w", err)
		}
		start = s
	}

	end := total
	if strings.TrimSpace(endText) != "" {
		e, err := timespec.Parse(endText)
		if err != nil {
			return Range{}, fmt.Errorf("end time: %w", err)
		}
		end = e
	}

	return NewRange(start, end, total)
}

// Start returns the inclusive start offset.
func (r Range) Start() time.Duration { return r.start }

// End returns the exclusive end offset.
func (r Range) End() time.Duration { return r.end }

// Duration returns End - Start.
func (r Range) Duration() time.Duration { return r.end - r.start }

// String returns a human-readable representation for logging.
func (r Range) String() string {
	return format.Timestamp(r.start) + "-" + format.Timestamp(r.end)
}

// Trim returns the frames of p covered by r as a new PCM value.
// Offsets are rounded to the nearest frame. p is not modified and the
// result shares no memory with it.
func Trim(p *PCM, r Range) (*PCM, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	if r.end <= r.start {
		return nil, fmt.Errorf("%w: empty range %s", ErrInvalidRange, r)
	}
	if r.end > p.Duration()+frameTolerance(p) {
		return nil, fmt.Errorf("%w: end %s exceeds audio duration %s",
			ErrInvalidRange, format.Timestamp(r.end), format.Timestamp(p.Duration()))
	}

	first := p.frameAt(r.start)
	last := p.frameAt(r.end)
	if last <= first {
		return nil, fmt.Errorf("%w: range %s is shorter than one frame at %d Hz", ErrInvalidRange, r, p.SampleRate)
	}

	out := make([]int16, (last-first)*p.Channels)
	copy(out, p.Samples[first*p.Channels:last*p.Channels])

	return &PCM{
		Samples:    out,
		SampleRate: p.SampleRate,
		Channels:   p.Channels,
	}, nil
}

// frameTolerance is the length of one frame; Duration truncates, so an end
// offset may legitimately exceed it by less than a frame.
func frameTolerance(p *PCM) time.Duration {
	return time.Second / time.Duration(p.SampleRate)
}
