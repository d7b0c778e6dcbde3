package media

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// FFprobe implements Prober using the ffprobe CLI.
type FFprobe struct {
	ffprobePath string
}

// NewFFprobe creates a new FFprobe.
// If ffprobePath is empty, it defaults to "ffprobe" (found via PATH).
func NewFFprobe(ffprobePath string) *FFprobe {
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &FFprobe{ffprobePath: ffprobePath}
}

type ffprobeOutput struct {
	Streams []ffprobeStream `json:"streams"`
	Format  ffprobeFormat   `json:"format"`
}

type ffprobeStream struct {
	Index     int    `json:"index"`
	CodecName string `json:"codec_name"`
	CodecType string `json:"codec_type"`
}

type ffprobeFormat struct {
	Duration string `json:"duration"`
}

// Probe reads the format and stream sections of path.
func (p *FFprobe) Probe(ctx context.Context, path string) (Info, error) {
	// #nosec G204 - ffprobePath is set by the application, not user input
	cmd := exec.CommandContext(ctx, p.ffprobePath,
		"-v", "error",
		"-show_format",
		"-show_streams",
		"-of", "json",
		path,
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return Info{}, fmt.Errorf("ffprobe cancelled: %w", ctx.Err())
		}
		return Info{}, fmt.Errorf("%w: %s: %w, stderr: %s", ErrUnreadableMedia, path, err, strings.TrimSpace(stderr.String()))
	}

	return parseProbeOutput(stdout.Bytes())
}

// Duration returns the container duration of path in seconds.
func (p *FFprobe) Duration(ctx context.Context, path string) (float64, error) {
	info, err := p.Probe(ctx, path)
	if err != nil {
		return 0, err
	}
	return info.Duration, nil
}

// parseProbeOutput decodes ffprobe JSON into Info.
func parseProbeOutput(data []byte) (Info, error) {
	var ff ffprobeOutput
	if err := json.Unmarshal(data, &ff); err != nil {
		return Info{}, fmt.Errorf("%w: decode ffprobe output: %w", ErrUnreadableMedia, err)
	}

	duration, err := strconv.ParseFloat(strings.TrimSpace(ff.Format.Duration), 64)
	if err != nil || duration <= 0 {
		return Info{}, fmt.Errorf("%w: missing duration %q", ErrUnreadableMedia, ff.Format.Duration)
	}

	info := Info{Duration: duration}
	for _, s := range ff.Streams {
		switch s.CodecType {
		case "video":
			info.HasVideo = true
		case "audio":
			if !info.HasAudio {
				info.AudioCodec = s.CodecName
			}
			info.HasAudio = true
		}
	}

	return info, nil
}

// Verify interface implementation at compile time.
var _ Prober = (*FFprobe)(nil)
