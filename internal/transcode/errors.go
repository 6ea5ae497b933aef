package transcode

import (
	"errors"
	"fmt"

	"github.com/alnah/go-audioconv/internal/media"
)

// Sentinel errors for the transcode package.
var (
	// ErrDecode indicates ffmpeg could not turn the input into samples.
	ErrDecode = errors.New("decode failed")

	// ErrEncode indicates ffmpeg could not produce the target format.
	ErrEncode = errors.New("encode failed")

	// ErrInvalidBitrate indicates a bitrate ffmpeg would not accept.
	ErrInvalidBitrate = errors.New("invalid bitrate")

	// errNoOutput is the cause recorded when ffmpeg exits cleanly but
	// writes nothing usable.
	errNoOutput = errors.New("ffmpeg produced no output")
)

// Operation names carried by Error.
const (
	OpDecode = "decode"
	OpEncode = "encode"
)

// Error is a failed ffmpeg invocation. Diagnostics holds ffmpeg's stderr
// verbatim; it is meant for logs and is never parsed.
// It matches ErrDecode or ErrEncode depending on Op.
type Error struct {
	Op          string
	Format      media.Format
	Err         error
	Diagnostics string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Format, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel for e.Op.
func (e *Error) Is(target error) bool {
	switch e.Op {
	case OpDecode:
		return target == ErrDecode
	case OpEncode:
		return target == ErrEncode
	}
	return false
}
