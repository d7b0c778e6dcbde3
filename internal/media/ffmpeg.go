package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// FFmpegTranscoder implements Transcoder using the ffmpeg CLI.
type FFmpegTranscoder struct {
	// ffmpegPath is the path to the ffmpeg binary. Defaults to "ffmpeg".
	ffmpegPath string
}

// NewFFmpegTranscoder creates a new FFmpegTranscoder.
// If ffmpegPath is empty, it defaults to "ffmpeg" (found via PATH).
func NewFFmpegTranscoder(ffmpegPath string) *FFmpegTranscoder {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	return &FFmpegTranscoder{ffmpegPath: ffmpegPath}
}

// EncodeSlice re-encodes a time window of src with libx264/aac so that the
// slice decodes on its own even when start is not on a keyframe.
func (t *FFmpegTranscoder) EncodeSlice(ctx context.Context, src, dst string, start, duration float64) error {
	if duration <= 0 {
		return fmt.Errorf("%w: got %.3f", ErrInvalidDuration, duration)
	}

	return t.runFFmpeg(ctx, sliceArgs(src, dst, start, duration))
}

// sliceArgs keeps microsecond precision so sub-millisecond tails survive.
func sliceArgs(src, dst string, start, duration float64) []string {
	return []string{
		"-y",
		"-ss", strconv.FormatFloat(start, 'f', 6, 64),
		"-i", src,
		"-t", strconv.FormatFloat(duration, 'f', 6, 64),
		"-c:v", "libx264",
		"-preset", "veryfast",
		"-c:a", "aac",
		dst,
	}
}

// ExtractAudioTrack writes the audio of src to dst, discarding video.
// When ffmpeg reports that the input has nothing to map, the error
// wraps ErrNoAudioStream.
func (t *FFmpegTranscoder) ExtractAudioTrack(ctx context.Context, src, dst, codec, bitrate string) error {
	args := []string{
		"-y",
		"-i", src,
		"-vn",
		"-acodec", codec,
		"-ab", bitrate,
		dst,
	}

	err := t.runFFmpeg(ctx, args)
	if err == nil {
		return nil
	}

	var ffErr *FFmpegError
	if errors.As(err, &ffErr) && strings.Contains(ffErr.Stderr, "does not contain any stream") {
		return fmt.Errorf("%w: %w", ErrNoAudioStream, err)
	}
	return err
}

// ConcatStreamCopy runs the concat demuxer over manifest with stream copy.
func (t *FFmpegTranscoder) ConcatStreamCopy(ctx context.Context, manifest, dst string) error {
	args := []string{
		"-y",
		"-f", "concat",
		"-safe", "0", // Manifest holds absolute paths
		"-i", manifest,
		"-c", "copy",
		dst,
	}
	return t.runFFmpeg(ctx, args)
}

// runFFmpeg executes ffmpeg with the given arguments and returns an error
// containing stderr output if the command fails.
func (t *FFmpegTranscoder) runFFmpeg(ctx context.Context, args []string) error {
	// #nosec G204 - ffmpegPath is set by the application, not user input
	cmd := exec.CommandContext(ctx, t.ffmpegPath, append([]string{"-hide_banner", "-nostdin"}, args...)...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("ffmpeg cancelled: %w", ctx.Err())
		}
		return &FFmpegError{
			Args:   args,
			Stderr: stderr.String(),
			Err:    err,
		}
	}

	return nil
}

// Verify interface implementation at compile time.
var _ Transcoder = (*FFmpegTranscoder)(nil)
