package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/maauso/audiograb/internal/bootstrap"
	"github.com/maauso/audiograb/internal/job"
	"github.com/maauso/audiograb/internal/storage"
)

type extractOptions struct {
	outputDir string
	s3Key     string
}

func extractCmd() *cobra.Command {
	var opts extractOptions

	cmd := &cobra.Command{
		Use:   "extract <video>",
		Short: "Extract the audio track of a local video file",
		Long: `Run the extraction pipeline on a local video.

Files larger than SIZE_THRESHOLD_BYTES are split into SEGMENT_WINDOW_SEC
segments and their audio is merged, exactly as the bot does.

Example:
  audiograb extract holiday.mp4 --output-dir ./audio
  audiograb extract holiday.mp4 --s3-key audio/`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExtract(cmd.Context(), args[0], opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	cmd.Flags().StringVarP(&opts.outputDir, "output-dir", "o", ".", "Directory the audio file is written to")
	cmd.Flags().StringVar(&opts.s3Key, "s3-key", "", "Upload to S3 under this key (a trailing / makes it a prefix)")
	cmd.MarkFlagsMutuallyExclusive("output-dir", "s3-key")

	return cmd
}

// printNotifier writes status messages to the terminal.
type printNotifier struct {
	w io.Writer
}

func (n printNotifier) Notify(_ context.Context, _ string, text string) error {
	_, err := fmt.Fprintln(n.w, text)
	return err
}

func runExtract(ctx context.Context, videoPath string, opts extractOptions, stdout, stderr io.Writer) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := cfg.NewLoggerTo(stderr)

	src, err := filepath.Abs(videoPath)
	if err != nil {
		return fmt.Errorf("resolve video path: %w", err)
	}
	info, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("stat video: %w", err)
	}

	var (
		gateway job.Gateway = storage.NewFileGateway()
		s3gw    *storage.S3Gateway
		target  = opts.outputDir
	)
	if opts.s3Key != "" {
		s3gw, err = bootstrap.NewS3Gateway(ctx, cfg, logger)
		if err != nil {
			return err
		}
		gateway = s3gw
		target = opts.s3Key
	} else if target, err = filepath.Abs(target); err != nil {
		return fmt.Errorf("resolve output dir: %w", err)
	}

	svc, err := bootstrap.NewService(cfg, gateway, printNotifier{w: stderr}, logger)
	if err != nil {
		return err
	}

	result, err := svc.Process(ctx, job.Request{
		Target:       target,
		FileRef:      src,
		FileName:     filepath.Base(src),
		DeclaredSize: info.Size(),
	})
	if err != nil {
		return err
	}

	logger.Debug("extraction finished",
		slog.String("job_id", result.ID),
		slog.String("mode", string(result.Mode)),
	)

	if s3gw != nil {
		_, err = fmt.Fprintln(stdout, s3gw.ObjectURL(storage.ObjectKey(target, result.OutputName)))
		return err
	}
	_, err = fmt.Fprintln(stdout, filepath.Join(target, result.OutputName))
	return err
}
