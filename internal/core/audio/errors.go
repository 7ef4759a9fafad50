package audio

import "errors"

var (
	// ErrEmptyBody indicates a PCM payload with no bytes.
	ErrEmptyBody = errors.New("empty PCM body")

	// ErrInvalidLength indicates a PCM payload that does not align to 4-byte samples.
	ErrInvalidLength = errors.New("PCM body length is not a multiple of 4")

	// ErrUnknownContainer indicates a file that is not WAV, MP3 or FLAC.
	ErrUnknownContainer = errors.New("unrecognized audio container")
)
