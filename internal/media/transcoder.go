// Package media wraps the external transcoding backend: probing containers
// and running the three ffmpeg operations the audio pipeline needs.
package media

import "context"

// Info describes the parts of a container the pipeline cares about.
type Info struct {
	// Duration is the container duration in seconds.
	Duration float64
	// HasVideo reports whether at least one video stream is present.
	HasVideo bool
	// HasAudio reports whether at least one audio stream is present.
	HasAudio bool
	// AudioCodec is the codec name of the first audio stream, if any.
	AudioCodec string
}

// Prober reads container metadata without modifying the file.
type Prober interface {
	// Probe returns the metadata of the media file at path.
	// It fails with ErrUnreadableMedia when the container cannot be parsed
	// or lacks a positive duration.
	Probe(ctx context.Context, path string) (Info, error)
}

// Transcoder is the narrow contract the pipeline holds against the codec tool.
// Implementations may shell out to ffmpeg, bind a native library or call a
// remote service; callers only rely on input path, output path and the
// codec parameters.
type Transcoder interface {
	// EncodeSlice re-encodes [start, start+duration) of src into an
	// independently playable video file at dst.
	EncodeSlice(ctx context.Context, src, dst string, start, duration float64) error

	// ExtractAudioTrack drops the video and re-encodes the audio of src
	// into dst using the given codec and bitrate.
	ExtractAudioTrack(ctx context.Context, src, dst, codec, bitrate string) error

	// ConcatStreamCopy joins the files listed in the concat manifest into dst
	// without re-encoding.
	ConcatStreamCopy(ctx context.Context, manifest, dst string) error
}
