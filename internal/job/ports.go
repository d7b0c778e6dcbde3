package job

import (
	"context"
	"errors"
	"io"

	"github.com/maauso/audiograb/internal/media"
)

// ErrTransfer wraps every failure to fetch the source or deliver the result.
var ErrTransfer = errors.New("transfer failed")

// ErrInvalidRequest is returned when a Request is missing its file reference
// or target.
var ErrInvalidRequest = errors.New("invalid request")

// Gateway moves files between the requester and the pipeline.
type Gateway interface {
	// Download opens the source video identified by fileRef.
	// The caller closes the returned ReadCloser.
	Download(ctx context.Context, fileRef string) (io.ReadCloser, error)

	// Upload delivers data to target under the given file name.
	Upload(ctx context.Context, target, name string, data io.Reader) error
}

// Notifier sends short status texts to the requester.
type Notifier interface {
	Notify(ctx context.Context, target, text string) error
}

// NopNotifier discards every message.
type NopNotifier struct{}

// Notify implements Notifier.
func (NopNotifier) Notify(context.Context, string, string) error { return nil }

// Messages sent to the requester while a job runs.
const (
	MsgDownloading = "Downloading your video..."
	MsgSplitting   = "File is larger than %s, splitting it into parts..."
	MsgExtracting  = "Extracting audio..."
	MsgSuccess     = "Audio extracted successfully!"
)

// UserMessage maps a pipeline error to the single failure text shown to the
// requester. Internal detail stays in the logs.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrTransfer):
		return "Sorry, the file could not be transferred. Please try again."
	case errors.Is(err, media.ErrNoAudioStream):
		return "This video has no audio track."
	case errors.Is(err, media.ErrUnreadableMedia):
		return "This file could not be read as a video."
	default:
		return "An error occurred while extracting the audio."
	}
}
