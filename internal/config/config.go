// Package config provides configuration loading from environment variables.
package config

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sethvargo/go-envconfig"
)

// Static errors for configuration validation.
var (
	// ErrBotTokenRequired is returned when TELEGRAM_BOT_TOKEN is not set.
	ErrBotTokenRequired = errors.New("config: TELEGRAM_BOT_TOKEN is required")
	// ErrInvalidValue is returned when a variable is out of range.
	ErrInvalidValue = errors.New("config: invalid value")
)

// Config holds all configuration for the application.
type Config struct {
	// Telegram settings
	BotToken       string `env:"TELEGRAM_BOT_TOKEN" json:"-"` // Masked in JSON
	BotAPIURL      string `env:"TELEGRAM_API_URL, default=https://api.telegram.org" json:"bot_api_url" validate:"url"`
	PollTimeoutSec int    `env:"TELEGRAM_POLL_TIMEOUT_SEC, default=30" json:"poll_timeout_sec" validate:"min=1,max=300"`
	// MaxDownloadBytes rejects larger videos before download. 0 disables the check.
	MaxDownloadBytes int64 `env:"MAX_DOWNLOAD_BYTES, default=0" json:"max_download_bytes" validate:"gte=0"`

	// Server settings
	Port int `env:"PORT, default=8080" json:"port" validate:"min=1,max=65535"`

	// Storage settings
	VideoDir string `env:"VIDEO_DIR, default=/tmp/audiograb/video" json:"video_dir"`
	AudioDir string `env:"AUDIO_DIR, default=/tmp/audiograb/audio" json:"audio_dir"`

	// Processing settings
	SizeThresholdBytes int64   `env:"SIZE_THRESHOLD_BYTES, default=20971520" json:"size_threshold_bytes" validate:"gt=0"`
	SegmentWindowSec   float64 `env:"SEGMENT_WINDOW_SEC, default=60" json:"segment_window_sec" validate:"gte=1"`
	AudioCodec         string  `env:"AUDIO_CODEC, default=libmp3lame" json:"audio_codec" validate:"oneof=libmp3lame"` // .mp3 output and audio/mpeg uploads assume it
	AudioBitrate       string  `env:"AUDIO_BITRATE, default=128k" json:"audio_bitrate" validate:"required"`
	FFmpegPath         string  `env:"FFMPEG_PATH" json:"ffmpeg_path,omitempty"`
	FFprobePath        string  `env:"FFPROBE_PATH" json:"ffprobe_path,omitempty"`
	JobHistory         int     `env:"JOB_HISTORY, default=200" json:"job_history" validate:"min=1"`

	// Optional S3 settings
	S3Bucket           string `env:"S3_BUCKET" json:"s3_bucket,omitempty"`
	S3Region           string `env:"S3_REGION" json:"s3_region,omitempty"`
	S3Endpoint         string `env:"S3_ENDPOINT" json:"s3_endpoint,omitempty" validate:"omitempty,url"`
	AWSAccessKeyID     string `env:"AWS_ACCESS_KEY_ID" json:"-"`     // Masked in JSON
	AWSSecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY" json:"-"` // Masked in JSON

	// Logging settings
	LogFormat string `env:"LOG_FORMAT, default=text" json:"log_format" validate:"oneof=json text JSON TEXT"` // "json" or "text"
	LogLevel  string `env:"LOG_LEVEL, default=info" json:"log_level"`                                        // "debug", "info", "warn", "error"
}

// S3Enabled returns true if S3 configuration is provided.
func (c *Config) S3Enabled() bool {
	return c.S3Bucket != "" && c.S3Region != ""
}

// PollTimeout returns the long-polling timeout as a duration.
func (c *Config) PollTimeout() time.Duration {
	return time.Duration(c.PollTimeoutSec) * time.Second
}

// Load reads configuration from environment variables using go-envconfig
// and checks value ranges. The bot token is not required here; commands
// that talk to Telegram call RequireBotToken.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := envconfig.Process(context.Background(), cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that every value is within range.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidValue, err)
	}
	return nil
}

// RequireBotToken fails with ErrBotTokenRequired when no token is set.
func (c *Config) RequireBotToken() error {
	if strings.TrimSpace(c.BotToken) == "" {
		return ErrBotTokenRequired
	}
	return nil
}

// NewLogger creates a structured logger writing to stdout.
// When LogFormat is "json", it outputs JSON logs suitable for production.
// Otherwise, it outputs human-readable text logs.
func (c *Config) NewLogger() *slog.Logger {
	return c.NewLoggerTo(os.Stdout)
}

// NewLoggerTo creates a structured logger writing to w.
func (c *Config) NewLoggerTo(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLogLevel(c.LogLevel)}

	var handler slog.Handler
	if strings.EqualFold(c.LogFormat, "json") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler)
}

// String returns a string representation of the config with sensitive values masked.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{BotToken: %s, BotAPIURL: %s, Port: %d, VideoDir: %s, AudioDir: %s, SizeThresholdBytes: %d, SegmentWindowSec: %g, AudioCodec: %s, AudioBitrate: %s, JobHistory: %d, S3Bucket: %s, S3Region: %s, LogFormat: %s, LogLevel: %s}",
		mask(c.BotToken),
		c.BotAPIURL,
		c.Port,
		c.VideoDir,
		c.AudioDir,
		c.SizeThresholdBytes,
		c.SegmentWindowSec,
		c.AudioCodec,
		c.AudioBitrate,
		c.JobHistory,
		c.S3Bucket,
		c.S3Region,
		c.LogFormat,
		c.LogLevel,
	)
}

func mask(secret string) string {
	if secret == "" {
		return ""
	}
	return "***"
}

// parseLogLevel converts a string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
