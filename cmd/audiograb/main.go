// Package main provides the audiograb command: a Telegram bot that extracts
// the audio track of the videos it receives, plus a one-shot local extractor.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/maauso/audiograb/internal/config"
	"github.com/maauso/audiograb/internal/media"
)

// Injected at build time via ldflags.
var version = "dev"

// Exit codes.
const (
	exitOK        = 0
	exitGeneral   = 1
	exitConfig    = 3
	exitNoAudio   = 4
	exitInterrupt = 130
)

func main() {
	// Load .env file if present (ignore error if missing).
	_ = godotenv.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	rootCmd := &cobra.Command{
		Use:           "audiograb",
		Short:         "Extract the audio track of videos sent to a Telegram bot",
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(extractCmd())

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps errors to process exit codes.
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, context.Canceled):
		return exitInterrupt
	case errors.Is(err, config.ErrBotTokenRequired), errors.Is(err, config.ErrInvalidValue):
		return exitConfig
	case errors.Is(err, media.ErrNoAudioStream):
		return exitNoAudio
	default:
		return exitGeneral
	}
}

// loadConfig reads and validates the environment.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}
