package media

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// skipIfNoFFmpeg skips the test if ffmpeg or ffprobe is not available.
func skipIfNoFFmpeg(t *testing.T) {
	t.Helper()
	for _, bin := range []string{"ffmpeg", "ffprobe"} {
		if _, err := exec.LookPath(bin); err != nil {
			t.Skipf("%s not found in PATH, skipping test", bin)
		}
	}
}

// createTestVideo creates a small test video with a sine audio track.
// When withAudio is false the file carries a video stream only.
func createTestVideo(t *testing.T, path string, duration float64, withAudio bool) {
	t.Helper()

	args := []string{
		"-y",
		"-f", "lavfi",
		"-i", fmt.Sprintf("color=c=red:s=64x64:d=%.1f", duration),
	}
	if withAudio {
		args = append(args,
			"-f", "lavfi",
			"-i", fmt.Sprintf("sine=frequency=440:sample_rate=44100:duration=%.1f", duration),
			"-c:a", "aac",
		)
	}
	args = append(args, "-c:v", "libx264", "-preset", "ultrafast", "-shortest", path)

	cmd := exec.Command("ffmpeg", args...)
	if output, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("failed to create test video: %v\noutput: %s", err, output)
	}
}

func TestNewFFmpegTranscoder(t *testing.T) {
	t.Run("default path", func(t *testing.T) {
		tc := NewFFmpegTranscoder("")
		assert.Equal(t, "ffmpeg", tc.ffmpegPath)
	})

	t.Run("custom path", func(t *testing.T) {
		tc := NewFFmpegTranscoder("/usr/local/bin/ffmpeg")
		assert.Equal(t, "/usr/local/bin/ffmpeg", tc.ffmpegPath)
	})
}

func TestSliceArgs_MicrosecondPrecision(t *testing.T) {
	args := sliceArgs("in.mp4", "out.mp4", 120, 0.0004)

	assert.Equal(t, []string{
		"-y",
		"-ss", "120.000000",
		"-i", "in.mp4",
		"-t", "0.000400",
		"-c:v", "libx264",
		"-preset", "veryfast",
		"-c:a", "aac",
		"out.mp4",
	}, args)
}

func TestEncodeSlice(t *testing.T) {
	t.Run("rejects non-positive duration", func(t *testing.T) {
		tc := NewFFmpegTranscoder("")
		err := tc.EncodeSlice(context.Background(), "in.mp4", "out.mp4", 0, 0)
		assert.ErrorIs(t, err, ErrInvalidDuration)
	})

	t.Run("encodes a window", func(t *testing.T) {
		skipIfNoFFmpeg(t)
		tmpDir := t.TempDir()
		src := filepath.Join(tmpDir, "src.mp4")
		dst := filepath.Join(tmpDir, "slice.mp4")
		createTestVideo(t, src, 3, true)

		tc := NewFFmpegTranscoder("")
		require.NoError(t, tc.EncodeSlice(context.Background(), src, dst, 1, 1.5))

		info, err := NewFFprobe("").Probe(context.Background(), dst)
		require.NoError(t, err)
		assert.InDelta(t, 1.5, info.Duration, 0.2)
		assert.True(t, info.HasVideo)
		assert.True(t, info.HasAudio)
	})
}

func TestExtractAudioTrack(t *testing.T) {
	skipIfNoFFmpeg(t)
	tmpDir := t.TempDir()
	tc := NewFFmpegTranscoder("")
	ctx := context.Background()

	t.Run("extracts mp3", func(t *testing.T) {
		src := filepath.Join(tmpDir, "with_audio.mp4")
		dst := filepath.Join(tmpDir, "audio.mp3")
		createTestVideo(t, src, 2, true)

		require.NoError(t, tc.ExtractAudioTrack(ctx, src, dst, "libmp3lame", "128k"))

		info, err := NewFFprobe("").Probe(ctx, dst)
		require.NoError(t, err)
		assert.False(t, info.HasVideo)
		assert.Equal(t, "mp3", info.AudioCodec)
	})

	t.Run("video without audio", func(t *testing.T) {
		src := filepath.Join(tmpDir, "silent.mp4")
		dst := filepath.Join(tmpDir, "none.mp3")
		createTestVideo(t, src, 1, false)

		err := tc.ExtractAudioTrack(ctx, src, dst, "libmp3lame", "128k")
		assert.ErrorIs(t, err, ErrNoAudioStream)
	})
}

func TestConcatStreamCopy(t *testing.T) {
	skipIfNoFFmpeg(t)
	tmpDir := t.TempDir()
	tc := NewFFmpegTranscoder("")
	ctx := context.Background()

	var lines []string
	for i := 0; i < 2; i++ {
		src := filepath.Join(tmpDir, fmt.Sprintf("v%d.mp4", i))
		dst := filepath.Join(tmpDir, fmt.Sprintf("a%d.mp3", i))
		createTestVideo(t, src, 1, true)
		require.NoError(t, tc.ExtractAudioTrack(ctx, src, dst, "libmp3lame", "128k"))
		lines = append(lines, fmt.Sprintf("file '%s'", dst))
	}

	manifest := filepath.Join(tmpDir, "list.txt")
	require.NoError(t, os.WriteFile(manifest, []byte(strings.Join(lines, "\n")+"\n"), 0600))

	out := filepath.Join(tmpDir, "merged.mp3")
	require.NoError(t, tc.ConcatStreamCopy(ctx, manifest, out))

	d, err := NewFFprobe("").Duration(ctx, out)
	require.NoError(t, err)
	assert.InDelta(t, 2.0, d, 0.2)
}

func TestRunFFmpeg_Cancelled(t *testing.T) {
	skipIfNoFFmpeg(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewFFmpegTranscoder("").ConcatStreamCopy(ctx, "/nonexistent/list.txt", filepath.Join(t.TempDir(), "out.mp3"))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFFmpegError(t *testing.T) {
	err := &FFmpegError{
		Args:   []string{"-i", "input.mp4", "-c", "copy", "output.mp4"},
		Stderr: "Error opening input file",
		Err:    fmt.Errorf("exit status 1"),
	}

	errStr := err.Error()
	assert.Contains(t, errStr, "exit status 1")
	assert.Contains(t, errStr, "Error opening input file")
	require.NotNil(t, err.Unwrap())
	assert.Equal(t, "exit status 1", err.Unwrap().Error())
}

func TestEncodeError(t *testing.T) {
	cause := errors.New("boom")
	var err error = &EncodeError{Stage: StageSegment, Index: 2, Err: cause}

	assert.ErrorIs(t, err, ErrEncodeFailure)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "segment 2: boom", err.Error())

	wrapped := fmt.Errorf("pipeline: %w", err)
	var encErr *EncodeError
	require.True(t, errors.As(wrapped, &encErr))
	assert.Equal(t, 2, encErr.Index)
	assert.Equal(t, StageSegment, encErr.Stage)
}
