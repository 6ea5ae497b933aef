package timespec

import "errors"

// ErrTimeFormat indicates a time string matches none of the accepted grammars.
var ErrTimeFormat = errors.New("invalid time format")
