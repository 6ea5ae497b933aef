// Package timespec parses human-entered time offsets such as "90", "01:30"
// or "01:02:03.5".
package timespec

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// grammarHint is appended to every parse error so users see what is accepted.
const grammarHint = "use seconds (90 or 12.5), mm:ss (01:30) or hh:mm:ss (01:02:03.5)"

// componentRe matches one non-negative decimal component.
var componentRe = regexp.MustCompile(`^(\d+(\.\d*)?|\.\d+)$`)

// ParseSeconds converts text into an offset in seconds.
//
// Accepted forms, after trimming surrounding whitespace:
//
//	90        bare seconds
//	01:30     minutes:seconds
//	01:02:03  hours:minutes:seconds
//
// Every component is a non-negative decimal. No upper bound is applied;
// callers check the offset against the media duration.
func ParseSeconds(text string) (float64, error) {
	s := strings.TrimSpace(text)
	if s == "" {
		return 0, fmt.Errorf("%w: empty (%s)", ErrTimeFormat, grammarHint)
	}

	parts := strings.Split(s, ":")
	if len(parts) > 3 {
		return 0, fmt.Errorf("%w: %q has %d components (%s)", ErrTimeFormat, text, len(parts), grammarHint)
	}

	values := make([]float64, len(parts))
	for i, p := range parts {
		if !componentRe.MatchString(p) {
			return 0, fmt.Errorf("%w: %q is not a number in %q (%s)", ErrTimeFormat, p, text, grammarHint)
		}
		// Digit strings too long for a float64 parse as +Inf with ErrRange.
		v, err := strconv.ParseFloat(p, 64)
		if err != nil && !errors.Is(err, strconv.ErrRange) {
			return 0, fmt.Errorf("%w: %q: %v (%s)", ErrTimeFormat, text, err, grammarHint)
		}
		values[i] = v
	}

	switch len(values) {
	case 1:
		return values[0], nil
	case 2:
		return values[0]*60 + values[1], nil
	default:
		return values[0]*3600 + values[1]*60 + values[2], nil
	}
}

// maxOffset is the largest offset Parse returns.
const maxOffset = time.Duration(math.MaxInt64)

// Parse converts text into a duration rounded to the millisecond.
// See ParseSeconds for the accepted grammar. Offsets beyond what a
// time.Duration holds saturate at maxOffset, leaving the bound check to
// range validation.
func Parse(text string) (time.Duration, error) {
	secs, err := ParseSeconds(text)
	if err != nil {
		return 0, err
	}
	ms := math.Round(secs * 1000)
	if ms >= float64(maxOffset/time.Millisecond) {
		return maxOffset, nil
	}
	return time.Duration(ms) * time.Millisecond, nil
}
