package core

import "errors"

// Sentinel errors shared across the pipeline; callers compare with errors.Is.
var (
	// ErrNotFound signals a missing job, session or collection.
	ErrNotFound = errors.New("not found")

	// ErrJobExists is returned by Create when the job ID is already taken.
	ErrJobExists = errors.New("job already exists")

	// ErrConfigurationUnavailable means a required external capability is not
	// configured. The request fails fast; nothing degrades silently.
	ErrConfigurationUnavailable = errors.New("required service not configured")

	// ErrAuthenticationFailure means a callback secret was absent or wrong.
	// No state is mutated after this error.
	ErrAuthenticationFailure = errors.New("authentication failure")

	// ErrNotReady means the operation requires a completed transcription.
	ErrNotReady = errors.New("transcription not completed")

	// ErrNoContent means a completed job carries no usable transcript text.
	ErrNoContent = errors.New("no transcript content")
)
