package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Workspace is the pair of process-wide working directories shared by all
// requests. It is safe for concurrent use; requests are isolated by Namespace.
type Workspace struct {
	videoDir string
	audioDir string
}

// NewWorkspace creates the working directories if they don't exist.
// Empty values default to directories under os.TempDir().
func NewWorkspace(videoDir, audioDir string) (*Workspace, error) {
	if videoDir == "" {
		videoDir = filepath.Join(os.TempDir(), "audiograb", "video")
	}
	if audioDir == "" {
		audioDir = filepath.Join(os.TempDir(), "audiograb", "audio")
	}

	for _, dir := range []string{videoDir, audioDir} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create working directory: %w", err)
		}
	}

	return &Workspace{videoDir: videoDir, audioDir: audioDir}, nil
}

// VideoDir returns the working directory for video artifacts.
func (w *Workspace) VideoDir() string { return w.videoDir }

// AudioDir returns the working directory for audio artifacts.
func (w *Workspace) AudioDir() string { return w.audioDir }

// Open claims the namespace for id. It fails with ErrNamespaceExists if
// either directory is already present, so two requests can never share files.
func (w *Workspace) Open(id string) (*Namespace, error) {
	if id == "" || id != filepath.Base(id) || strings.HasPrefix(id, ".") {
		return nil, fmt.Errorf("invalid namespace id %q", id)
	}

	ns := &Namespace{
		id:       id,
		videoDir: filepath.Join(w.videoDir, id),
		audioDir: filepath.Join(w.audioDir, id),
	}

	if err := mkdirExclusive(ns.videoDir); err != nil {
		return nil, err
	}
	if err := mkdirExclusive(ns.audioDir); err != nil {
		_ = os.Remove(ns.videoDir)
		return nil, err
	}
	return ns, nil
}

func mkdirExclusive(dir string) error {
	err := os.Mkdir(dir, 0o750)
	if errors.Is(err, fs.ErrExist) {
		return fmt.Errorf("%w: %s", ErrNamespaceExists, dir)
	}
	if err != nil {
		return fmt.Errorf("create namespace: %w", err)
	}
	return nil
}

// Namespace is the request-scoped pair of directories. Every artifact of one
// request lives inside it.
type Namespace struct {
	id       string
	videoDir string
	audioDir string
}

// ID returns the request ID the namespace was opened for.
func (n *Namespace) ID() string { return n.id }

// VideoDir returns the request's video directory.
func (n *Namespace) VideoDir() string { return n.videoDir }

// AudioDir returns the request's audio directory.
func (n *Namespace) AudioDir() string { return n.audioDir }

// VideoPath returns the path of name inside the video directory.
func (n *Namespace) VideoPath(name string) string {
	return filepath.Join(n.videoDir, filepath.Base(name))
}

// AudioPath returns the path of name inside the audio directory.
func (n *Namespace) AudioPath(name string) string {
	return filepath.Join(n.audioDir, filepath.Base(name))
}

// SaveVideo streams data into the video directory and returns the path and
// the number of bytes written. A partial file is removed on error.
func (n *Namespace) SaveVideo(ctx context.Context, name string, data io.Reader) (string, int64, error) {
	select {
	case <-ctx.Done():
		return "", 0, fmt.Errorf("context cancelled: %w", ctx.Err())
	default:
	}

	path := n.VideoPath(name)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return "", 0, fmt.Errorf("create video file: %w", err)
	}

	size, err := io.Copy(f, data)
	if err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return "", 0, fmt.Errorf("write video file: %w", err)
	}

	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return "", 0, fmt.Errorf("close video file: %w", err)
	}

	return path, size, nil
}

// Load opens a file for reading. The caller closes the returned ReadCloser.
func (n *Namespace) Load(ctx context.Context, path string) (io.ReadCloser, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("context cancelled: %w", ctx.Err())
	default:
	}

	f, err := os.Open(path) // #nosec G304 - path is built by the namespace
	if err != nil {
		return nil, fmt.Errorf("open artifact: %w", err)
	}
	return f, nil
}

// Release removes individual artifacts as soon as they are no longer needed.
// Missing files are ignored. Every failure is returned as a *CleanupWarning,
// joined together; removal continues past failures.
func (n *Namespace) Release(paths ...string) error {
	var errs []error
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, &CleanupWarning{Path: p, Err: err})
		}
	}
	return errors.Join(errs...)
}

// Cleanup removes both namespace directories and everything left in them.
// It is idempotent and reports failures as joined *CleanupWarning values.
func (n *Namespace) Cleanup() error {
	var errs []error
	for _, dir := range []string{n.videoDir, n.audioDir} {
		if err := os.RemoveAll(dir); err != nil {
			errs = append(errs, &CleanupWarning{Path: dir, Err: err})
		}
	}
	return errors.Join(errs...)
}
