package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// FileGateway reads source videos from the local filesystem and writes the
// extracted audio into a target directory. The file reference is a path and
// the target is a directory.
type FileGateway struct{}

// NewFileGateway creates a FileGateway.
func NewFileGateway() *FileGateway {
	return &FileGateway{}
}

// Download opens the local file at fileRef.
func (g *FileGateway) Download(ctx context.Context, fileRef string) (io.ReadCloser, error) {
	return openSource(ctx, fileRef)
}

// Upload writes data to target/name, creating target if needed.
// A partially written file is removed on error.
func (g *FileGateway) Upload(ctx context.Context, target, name string, data io.Reader) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("context cancelled: %w", ctx.Err())
	default:
	}

	if err := os.MkdirAll(target, 0o750); err != nil {
		return fmt.Errorf("%w: create output directory: %w", ErrTransfer, err)
	}

	path := filepath.Join(target, filepath.Base(name))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o640)
	if err != nil {
		return fmt.Errorf("%w: create output file: %w", ErrTransfer, err)
	}

	if _, err := io.Copy(f, data); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return fmt.Errorf("%w: write output file: %w", ErrTransfer, err)
	}

	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return fmt.Errorf("%w: close output file: %w", ErrTransfer, err)
	}
	return nil
}

func openSource(ctx context.Context, path string) (io.ReadCloser, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("context cancelled: %w", ctx.Err())
	default:
	}

	f, err := os.Open(path) // #nosec G304 - path is supplied by the operator
	if err != nil {
		return nil, fmt.Errorf("%w: open source: %w", ErrTransfer, err)
	}
	return f, nil
}
