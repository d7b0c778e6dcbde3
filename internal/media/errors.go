package media

import (
	"errors"
	"fmt"
)

// Static errors for media operations.
var (
	// ErrUnreadableMedia is returned when a container cannot be parsed or reports no duration.
	ErrUnreadableMedia = errors.New("unreadable media")
	// ErrNoAudioStream is returned when the input has no audio track to extract.
	ErrNoAudioStream = errors.New("no audio stream")
	// ErrEncodeFailure is matched by every *EncodeError.
	ErrEncodeFailure = errors.New("encode failure")
	// ErrEmptyInput is returned when concatenation is requested with zero chunks.
	ErrEmptyInput = errors.New("no audio chunks to concatenate")
	// ErrConcatFailure is returned when the stream-copy join fails.
	ErrConcatFailure = errors.New("audio concatenation failed")
	// ErrInvalidDuration is returned when a slice duration is not positive.
	ErrInvalidDuration = errors.New("invalid duration: must be positive")
)

// Encode stages reported by EncodeError.
const (
	StageSegment = "segment"
	StageExtract = "extract"
)

// EncodeError reports a failed transcode together with the pipeline stage
// and the sequence index of the segment or chunk being produced.
type EncodeError struct {
	Stage string
	Index int
	Err   error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("%s %d: %v", e.Stage, e.Index, e.Err)
}

func (e *EncodeError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrEncodeFailure) true for any EncodeError.
func (e *EncodeError) Is(target error) bool {
	return target == ErrEncodeFailure
}

// FFmpegError represents an error from running ffmpeg, including the stderr output.
type FFmpegError struct {
	Args   []string
	Stderr string
	Err    error
}

func (e *FFmpegError) Error() string {
	return fmt.Sprintf("ffmpeg error: %v\nargs: %v\nstderr: %s", e.Err, e.Args, e.Stderr)
}

func (e *FFmpegError) Unwrap() error {
	return e.Err
}
