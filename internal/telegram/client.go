package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	tele "gopkg.in/telebot.v3"
)

// Static errors for Bot API operations.
var (
	// ErrTokenRequired is returned when the bot token is empty.
	ErrTokenRequired = errors.New("telegram: bot token is required")
	// ErrAPI is returned when the Bot API rejects a call or answers garbage.
	ErrAPI = errors.New("telegram: api error")
	// ErrTransfer is returned when a file cannot be downloaded or uploaded.
	ErrTransfer = errors.New("telegram: transfer failed")
	// ErrInvalidChatID is returned when a target is not a numeric chat ID.
	ErrInvalidChatID = errors.New("telegram: invalid chat ID")
)

// DefaultBaseURL is the public Bot API endpoint.
const DefaultBaseURL = tele.DefaultApiURL

// Client wraps a telebot Bot for the calls the pipeline needs. It performs
// no retries and never starts telebot's own poller.
type Client struct {
	bot   *tele.Bot
	token string
}

// ClientOption is a function that configures the underlying telebot settings.
type ClientOption func(*tele.Settings)

// WithBaseURL sets the Bot API base URL, e.g. a self-hosted Bot API server.
func WithBaseURL(u string) ClientOption {
	return func(s *tele.Settings) {
		if u != "" {
			s.URL = strings.TrimRight(u, "/")
		}
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(s *tele.Settings) {
		s.Client = hc
	}
}

// NewClient creates a Bot API client for token. No request is made.
// The default HTTP client has no global timeout so long polls and large
// downloads are not cut short.
func NewClient(token string, opts ...ClientOption) (*Client, error) {
	if token == "" {
		return nil, ErrTokenRequired
	}

	settings := tele.Settings{
		URL:     DefaultBaseURL,
		Token:   token,
		Client:  &http.Client{},
		Offline: true,
	}
	for _, opt := range opts {
		opt(&settings)
	}

	b, err := tele.NewBot(settings)
	if err != nil {
		return nil, fmt.Errorf("telegram: create bot: %w", err)
	}
	return &Client{bot: b, token: token}, nil
}

// BaseURL returns the Bot API endpoint in use.
func (c *Client) BaseURL() string {
	return c.bot.URL
}

// GetUpdates long-polls for updates with an ID of at least offset.
// Cancelling ctx returns immediately; the pending poll is abandoned.
func (c *Client) GetUpdates(ctx context.Context, offset int64, timeout time.Duration) ([]Update, error) {
	type result struct {
		data []byte
		err  error
	}
	done := make(chan result, 1)
	go func() {
		data, err := c.bot.Raw("getUpdates", getUpdatesRequest{
			Offset:         offset,
			Timeout:        int(timeout / time.Second),
			AllowedUpdates: []string{"message"},
		})
		done <- result{data: data, err: err}
	}()

	var r result
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r = <-done:
	}
	if r.err != nil {
		return nil, fmt.Errorf("%w: getUpdates: %w", ErrAPI, c.redact(r.err))
	}

	var envelope apiResponse
	if err := json.Unmarshal(r.data, &envelope); err != nil || !envelope.OK {
		return nil, fmt.Errorf("%w: getUpdates: unexpected response", ErrAPI)
	}
	var updates []Update
	if err := json.Unmarshal(envelope.Result, &updates); err != nil {
		return nil, fmt.Errorf("%w: getUpdates: decode updates: %w", ErrAPI, err)
	}
	return updates, nil
}

// Download implements the pipeline gateway: it resolves fileRef with
// getFile and streams the file. The caller closes the body.
func (c *Client) Download(ctx context.Context, fileRef string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransfer, err)
	}

	f := &tele.File{FileID: fileRef}
	rc, err := c.bot.File(f)
	if err != nil {
		if f.FilePath == "" {
			// getFile itself failed.
			return nil, fmt.Errorf("%w: %w: getFile: %w", ErrTransfer, ErrAPI, c.redact(err))
		}
		return nil, fmt.Errorf("%w: download: %w", ErrTransfer, c.redact(err))
	}
	if f.FilePath == "" {
		_ = rc.Close()
		return nil, fmt.Errorf("%w: %w: getFile: empty file_path for %s", ErrTransfer, ErrAPI, fileRef)
	}
	return rc, nil
}

// SendMessage sends a plain text message to chatID.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := c.bot.Send(tele.ChatID(chatID), text); err != nil {
		return fmt.Errorf("%w: sendMessage: %w", ErrAPI, c.redact(err))
	}
	return nil
}

// Notify implements the pipeline notifier; target is a chat ID.
func (c *Client) Notify(ctx context.Context, target, text string) error {
	chatID, err := ParseChatID(target)
	if err != nil {
		return err
	}
	return c.SendMessage(ctx, chatID, text)
}

// SendAudio uploads data as an audio message titled after name.
// telebot streams the multipart body.
func (c *Client) SendAudio(ctx context.Context, chatID int64, name string, data io.Reader) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrTransfer, err)
	}

	a := &tele.Audio{
		File:     tele.FromReader(data),
		FileName: name,
		Title:    strings.TrimSuffix(name, path.Ext(name)),
	}
	if _, err := c.bot.Send(tele.ChatID(chatID), a); err != nil {
		return fmt.Errorf("%w: %w: sendAudio: %w", ErrTransfer, ErrAPI, c.redact(err))
	}
	return nil
}

// Upload implements the pipeline gateway; target is a chat ID.
func (c *Client) Upload(ctx context.Context, target, name string, data io.Reader) error {
	chatID, err := ParseChatID(target)
	if err != nil {
		return err
	}
	return c.SendAudio(ctx, chatID, name, data)
}

// ParseChatID converts a pipeline target back into a chat ID.
func ParseChatID(target string) (int64, error) {
	id, err := strconv.ParseInt(target, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidChatID, target)
	}
	return id, nil
}

// redactedError hides the bot token that telebot leaves in request URLs.
type redactedError struct {
	msg string
	err error
}

func (e *redactedError) Error() string { return e.msg }
func (e *redactedError) Unwrap() error { return e.err }

func (c *Client) redact(err error) error {
	if err == nil || !strings.Contains(err.Error(), c.token) {
		return err
	}
	return &redactedError{msg: strings.ReplaceAll(err.Error(), c.token, "<redacted>"), err: err}
}
