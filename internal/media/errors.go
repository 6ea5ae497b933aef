package media

import "errors"

// ErrUnsupportedFormat indicates an input or target format tag is not in the supported set.
var ErrUnsupportedFormat = errors.New("unsupported audio format")
