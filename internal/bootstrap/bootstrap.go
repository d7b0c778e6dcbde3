// Package bootstrap wires configuration into the pipeline, the bot and the
// ops API.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/maauso/audiograb/internal/audio"
	"github.com/maauso/audiograb/internal/bot"
	"github.com/maauso/audiograb/internal/config"
	"github.com/maauso/audiograb/internal/job"
	"github.com/maauso/audiograb/internal/media"
	"github.com/maauso/audiograb/internal/server"
	"github.com/maauso/audiograb/internal/storage"
	"github.com/maauso/audiograb/internal/telegram"
)

// Dependencies holds everything the serve command runs.
type Dependencies struct {
	Service *job.ExtractAudioService
	Bot     *bot.Bot
	Router  http.Handler
}

// NewDependencies creates the Telegram client, the pipeline, the bot and the
// ops router.
func NewDependencies(cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	if err := cfg.RequireBotToken(); err != nil {
		return nil, err
	}

	client, err := telegram.NewClient(cfg.BotToken, telegram.WithBaseURL(cfg.BotAPIURL))
	if err != nil {
		return nil, fmt.Errorf("create Telegram client: %w", err)
	}

	svc, err := NewService(cfg, client, client, logger)
	if err != nil {
		return nil, err
	}

	b := bot.New(client, svc,
		bot.WithPollTimeout(cfg.PollTimeout()),
		bot.WithMaxDownloadBytes(cfg.MaxDownloadBytes),
		bot.WithLogger(logger),
	)

	handlers := server.NewHandlers(svc, logger)

	return &Dependencies{
		Service: svc,
		Bot:     b,
		Router:  server.NewRouter(handlers, logger),
	}, nil
}

// NewService builds the extraction pipeline around the given gateway and
// notifier.
func NewService(cfg *config.Config, gateway job.Gateway, notifier job.Notifier, logger *slog.Logger) (*job.ExtractAudioService, error) {
	workspace, err := storage.NewWorkspace(cfg.VideoDir, cfg.AudioDir)
	if err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}
	logger.Info("workspace configured",
		slog.String("video_dir", workspace.VideoDir()),
		slog.String("audio_dir", workspace.AudioDir()),
	)

	format := audio.DefaultFormat()
	format.Codec = cfg.AudioCodec
	format.Bitrate = cfg.AudioBitrate

	return job.NewExtractAudioService(
		workspace,
		media.NewFFprobe(cfg.FFprobePath),
		media.NewFFmpegTranscoder(cfg.FFmpegPath),
		gateway,
		notifier,
		job.NewMemoryRepository(cfg.JobHistory),
		job.WithSizeThreshold(cfg.SizeThresholdBytes),
		job.WithWindow(cfg.SegmentWindowSec),
		job.WithFormat(format),
		job.WithLogger(logger),
	), nil
}

// NewS3Gateway creates the S3 delivery gateway from configuration.
func NewS3Gateway(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*storage.S3Gateway, error) {
	if !cfg.S3Enabled() {
		return nil, storage.ErrS3NotConfigured
	}
	gw, err := storage.NewS3Gateway(ctx, storage.S3Config{
		Bucket:          cfg.S3Bucket,
		Region:          cfg.S3Region,
		Endpoint:        cfg.S3Endpoint,
		AccessKeyID:     cfg.AWSAccessKeyID,
		SecretAccessKey: cfg.AWSSecretAccessKey,
	})
	if err != nil {
		return nil, fmt.Errorf("create S3 gateway: %w", err)
	}
	logger.Info("S3 delivery configured",
		slog.String("bucket", cfg.S3Bucket),
		slog.String("region", cfg.S3Region),
	)
	return gw, nil
}
