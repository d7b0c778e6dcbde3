package bootstrap

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maauso/audiograb/internal/config"
	"github.com/maauso/audiograb/internal/storage"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		BotToken:           "123:abc",
		BotAPIURL:          "http://localhost:8081",
		PollTimeoutSec:     30,
		VideoDir:           filepath.Join(dir, "video"),
		AudioDir:           filepath.Join(dir, "audio"),
		SizeThresholdBytes: 20 << 20,
		SegmentWindowSec:   60,
		AudioCodec:         "libmp3lame",
		AudioBitrate:       "128k",
		JobHistory:         10,
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewDependencies(t *testing.T) {
	cfg := testConfig(t)

	deps, err := NewDependencies(cfg, discardLogger())
	require.NoError(t, err)
	require.NotNil(t, deps.Service)
	require.NotNil(t, deps.Bot)
	require.NotNil(t, deps.Router)

	assert.DirExists(t, cfg.VideoDir)
	assert.DirExists(t, cfg.AudioDir)

	rec := httptest.NewRecorder()
	deps.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/jobs", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestNewDependencies_RequiresToken(t *testing.T) {
	cfg := testConfig(t)
	cfg.BotToken = ""

	_, err := NewDependencies(cfg, discardLogger())
	assert.ErrorIs(t, err, config.ErrBotTokenRequired)
}

func TestNewS3Gateway_NotConfigured(t *testing.T) {
	cfg := testConfig(t)

	_, err := NewS3Gateway(t.Context(), cfg, discardLogger())
	assert.ErrorIs(t, err, storage.ErrS3NotConfigured)
}

func TestNewS3Gateway(t *testing.T) {
	cfg := testConfig(t)
	cfg.S3Bucket = "bucket"
	cfg.S3Region = "us-east-1"
	cfg.S3Endpoint = "http://localhost:9000"
	cfg.AWSAccessKeyID = "key"
	cfg.AWSSecretAccessKey = "secret"

	gw, err := NewS3Gateway(t.Context(), cfg, discardLogger())
	require.NoError(t, err)
	assert.NotNil(t, gw)
}
