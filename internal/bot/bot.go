package bot

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/maauso/audiograb/internal/job"
	"github.com/maauso/audiograb/internal/telegram"
)

// API is the part of the Bot API the dispatcher uses.
type API interface {
	GetUpdates(ctx context.Context, offset int64, timeout time.Duration) ([]telegram.Update, error)
	SendMessage(ctx context.Context, chatID int64, text string) error
}

// Processor runs one extraction request to completion.
type Processor interface {
	Process(ctx context.Context, req job.Request) (*job.Job, error)
}

// Compile-time check that the Bot API client satisfies API.
var _ API = (*telegram.Client)(nil)

// Bot polls for updates and dispatches them.
type Bot struct {
	api       API
	processor Processor
	validator *validator.Validate
	logger    *slog.Logger

	pollTimeout      time.Duration
	errorBackoff     time.Duration
	maxDownloadBytes int64

	wg sync.WaitGroup
}

// Option configures a Bot.
type Option func(*Bot)

// WithPollTimeout sets the long-poll timeout passed to getUpdates.
func WithPollTimeout(d time.Duration) Option {
	return func(b *Bot) {
		if d > 0 {
			b.pollTimeout = d
		}
	}
}

// WithErrorBackoff sets the pause after a failed getUpdates call.
func WithErrorBackoff(d time.Duration) Option {
	return func(b *Bot) {
		if d > 0 {
			b.errorBackoff = d
		}
	}
}

// WithMaxDownloadBytes rejects videos whose declared size exceeds n.
// Zero disables the check.
func WithMaxDownloadBytes(n int64) Option {
	return func(b *Bot) {
		if n >= 0 {
			b.maxDownloadBytes = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bot) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// New creates a Bot.
func New(api API, processor Processor, opts ...Option) *Bot {
	b := &Bot{
		api:          api,
		processor:    processor,
		validator:    validator.New(),
		logger:       slog.Default(),
		pollTimeout:  30 * time.Second,
		errorBackoff: 3 * time.Second,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Run polls until ctx is cancelled, then waits for in-flight requests to
// finish. Requests already running are not cancelled with ctx.
func (b *Bot) Run(ctx context.Context) error {
	b.logger.Info("bot polling started", slog.Duration("poll_timeout", b.pollTimeout))
	defer b.wg.Wait()

	var offset int64
	for {
		if ctx.Err() != nil {
			b.logger.Info("bot polling stopped")
			return nil
		}

		updates, err := b.api.GetUpdates(ctx, offset, b.pollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			b.logger.Warn("getUpdates failed", slog.String("error", err.Error()))
			select {
			case <-ctx.Done():
			case <-time.After(b.errorBackoff):
			}
			continue
		}

		for _, u := range updates {
			offset = u.UpdateID + 1
			b.Handle(ctx, u)
		}
	}
}

// Wait blocks until every dispatched request has finished.
func (b *Bot) Wait() {
	b.wg.Wait()
}

// Handle dispatches a single update. Video requests run in their own goroutine.
func (b *Bot) Handle(ctx context.Context, u telegram.Update) {
	kind, video := Classify(u.Message)

	switch kind {
	case KindWelcome:
		b.reply(ctx, u.Message.Chat.ID, WelcomeText)

	case KindInvalidFile:
		b.reply(ctx, u.Message.Chat.ID, InvalidVideoText)

	case KindVideo:
		if err := b.validator.Struct(video); err != nil {
			b.logger.Warn("video message validation failed",
				slog.Int64("chat_id", u.Message.Chat.ID),
				slog.String("error", err.Error()),
			)
			b.reply(ctx, u.Message.Chat.ID, InvalidVideoText)
			return
		}
		if b.maxDownloadBytes > 0 && video.FileSize > b.maxDownloadBytes {
			b.logger.Info("video rejected: too large",
				slog.Int64("chat_id", video.ChatID),
				slog.Int64("file_size", video.FileSize),
				slog.Int64("limit", b.maxDownloadBytes),
			)
			b.reply(ctx, video.ChatID, TooLargeText)
			return
		}
		b.dispatch(ctx, video)

	default:
		b.logger.Debug("update ignored", slog.Int64("update_id", u.UpdateID))
	}
}

func (b *Bot) dispatch(ctx context.Context, video IncomingVideo) {
	reqCtx := context.WithoutCancel(ctx)

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				b.logger.Error("panic while processing video",
					slog.Int64("chat_id", video.ChatID),
					slog.Any("panic", r),
				)
			}
		}()

		j, err := b.processor.Process(reqCtx, video.Request())
		if err != nil {
			if errors.Is(err, job.ErrInvalidRequest) {
				b.reply(reqCtx, video.ChatID, InvalidVideoText)
			}
			return
		}
		b.logger.Debug("video processed", slog.String("job_id", j.ID))
	}()
}

func (b *Bot) reply(ctx context.Context, chatID int64, text string) {
	if err := b.api.SendMessage(ctx, chatID, text); err != nil {
		b.logger.Warn("failed to send message",
			slog.Int64("chat_id", chatID),
			slog.String("error", err.Error()),
		)
	}
}
