package asr

import "errors"

// ErrEngineFailure wraps every error raised while loading or running a backend.
var ErrEngineFailure = errors.New("transcription engine failure")

// ErrUnknownModel indicates a model name that is not in the registry.
var ErrUnknownModel = errors.New("unknown model")
