package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maauso/audiograb/internal/config"
	"github.com/maauso/audiograb/internal/media"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "nil", err: nil, want: exitOK},
		{name: "interrupted", err: fmt.Errorf("job req-1: %w", context.Canceled), want: exitInterrupt},
		{name: "missing token", err: config.ErrBotTokenRequired, want: exitConfig},
		{name: "bad value", err: fmt.Errorf("load config: %w", config.ErrInvalidValue), want: exitConfig},
		{name: "no audio", err: fmt.Errorf("job req-1: %w", media.ErrNoAudioStream), want: exitNoAudio},
		{name: "other", err: errors.New("boom"), want: exitGeneral},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCode(tt.err))
		})
	}
}

func TestPrintNotifier(t *testing.T) {
	var buf bytes.Buffer
	n := printNotifier{w: &buf}

	require.NoError(t, n.Notify(t.Context(), "/tmp/out", "Downloading the video..."))
	require.NoError(t, n.Notify(t.Context(), "/tmp/out", "Done"))

	assert.Equal(t, "Downloading the video...\nDone\n", buf.String())
}

func TestExtractCmd_Flags(t *testing.T) {
	cmd := extractCmd()

	assert.Error(t, cmd.Args(cmd, nil))
	assert.NoError(t, cmd.Args(cmd, []string{"video.mp4"}))

	flag := cmd.Flags().Lookup("output-dir")
	require.NotNil(t, flag)
	assert.Equal(t, ".", flag.DefValue)
	assert.NotNil(t, cmd.Flags().Lookup("s3-key"))
}
