package audio

import "errors"

// ErrInvalidRange indicates a start/end pair is outside the bounds of the media.
var ErrInvalidRange = errors.New("invalid time range")

// ErrInvalidAudio indicates decoded audio has inconsistent metadata.
var ErrInvalidAudio = errors.New("invalid audio")

// ErrInvalidWAV indicates bytes could not be parsed as 16-bit PCM WAV.
var ErrInvalidWAV = errors.New("invalid WAV data")
