package transcode

import (
	"errors"
	"fmt"
)

// ErrTranscodeFailed indicates ffmpeg did not produce the output file.
var ErrTranscodeFailed = errors.New("transcode failed")

// ErrUnknownTranscoder indicates an unsupported transcoder kind in configuration.
var ErrUnknownTranscoder = errors.New("unknown transcoder")

// Error carries the diagnostic output of a failed ffmpeg run.
type Error struct {
	ExitCode int
	Output   string
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("ffmpeg failed: %s", e.Output)
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrTranscodeFailed}
	}
	return []error{ErrTranscodeFailed, e.Err}
}
