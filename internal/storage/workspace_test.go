package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

func TestNewWorkspace(t *testing.T) {
	t.Run("creates directories if not exist", func(t *testing.T) {
		root := t.TempDir()
		videoDir := filepath.Join(root, "video")
		audioDir := filepath.Join(root, "nested", "audio")

		ws, err := NewWorkspace(videoDir, audioDir)
		if err != nil {
			t.Fatalf("NewWorkspace() error = %v", err)
		}

		if ws.VideoDir() != videoDir {
			t.Errorf("VideoDir() = %v, want %v", ws.VideoDir(), videoDir)
		}
		if ws.AudioDir() != audioDir {
			t.Errorf("AudioDir() = %v, want %v", ws.AudioDir(), audioDir)
		}

		for _, dir := range []string{videoDir, audioDir} {
			info, err := os.Stat(dir)
			if err != nil {
				t.Fatalf("directory not created: %v", err)
			}
			if !info.IsDir() {
				t.Errorf("%s: expected directory, got file", dir)
			}
		}
	})

	t.Run("uses default directories when empty", func(t *testing.T) {
		ws, err := NewWorkspace("", "")
		if err != nil {
			t.Fatalf("NewWorkspace() error = %v", err)
		}

		if want := filepath.Join(os.TempDir(), "audiograb", "video"); ws.VideoDir() != want {
			t.Errorf("VideoDir() = %v, want %v", ws.VideoDir(), want)
		}
		if want := filepath.Join(os.TempDir(), "audiograb", "audio"); ws.AudioDir() != want {
			t.Errorf("AudioDir() = %v, want %v", ws.AudioDir(), want)
		}
	})
}

func TestWorkspace_Open(t *testing.T) {
	ws := setupTestWorkspace(t)

	t.Run("creates both namespace directories", func(t *testing.T) {
		ns, err := ws.Open("req-1")
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}

		if ns.ID() != "req-1" {
			t.Errorf("ID() = %v, want req-1", ns.ID())
		}
		if ns.VideoDir() != filepath.Join(ws.VideoDir(), "req-1") {
			t.Errorf("VideoDir() = %v", ns.VideoDir())
		}
		if ns.AudioDir() != filepath.Join(ws.AudioDir(), "req-1") {
			t.Errorf("AudioDir() = %v", ns.AudioDir())
		}
		for _, dir := range []string{ns.VideoDir(), ns.AudioDir()} {
			if _, err := os.Stat(dir); err != nil {
				t.Errorf("namespace directory missing: %v", err)
			}
		}
	})

	t.Run("rejects a taken id", func(t *testing.T) {
		if _, err := ws.Open("req-2"); err != nil {
			t.Fatalf("Open() error = %v", err)
		}

		_, err := ws.Open("req-2")
		if !errors.Is(err, ErrNamespaceExists) {
			t.Errorf("expected ErrNamespaceExists, got %v", err)
		}
	})

	t.Run("does not leave a half-open namespace", func(t *testing.T) {
		if err := os.Mkdir(filepath.Join(ws.AudioDir(), "req-3"), 0o750); err != nil {
			t.Fatal(err)
		}

		_, err := ws.Open("req-3")
		if !errors.Is(err, ErrNamespaceExists) {
			t.Fatalf("expected ErrNamespaceExists, got %v", err)
		}
		if _, err := os.Stat(filepath.Join(ws.VideoDir(), "req-3")); !os.IsNotExist(err) {
			t.Errorf("video directory should have been rolled back, stat err = %v", err)
		}
	})

	t.Run("rejects ids that escape the working directory", func(t *testing.T) {
		for _, id := range []string{"", "..", "a/b", ".hidden"} {
			if _, err := ws.Open(id); err == nil {
				t.Errorf("Open(%q) should fail", id)
			}
		}
	})

	t.Run("concurrent opens of one id have exactly one winner", func(t *testing.T) {
		var (
			wg   sync.WaitGroup
			mu   sync.Mutex
			wins int
		)
		for range 8 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := ws.Open("contended"); err == nil {
					mu.Lock()
					wins++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		if wins != 1 {
			t.Errorf("wins = %d, want 1", wins)
		}
	})
}

func TestNamespace_SaveVideo(t *testing.T) {
	ns := setupTestNamespace(t)
	ctx := context.Background()

	t.Run("saves data and reports size", func(t *testing.T) {
		path, size, err := ns.SaveVideo(ctx, "clip.mp4", bytes.NewReader([]byte("video data")))
		if err != nil {
			t.Fatalf("SaveVideo() error = %v", err)
		}

		if path != filepath.Join(ns.VideoDir(), "clip.mp4") {
			t.Errorf("path = %v", path)
		}
		if size != int64(len("video data")) {
			t.Errorf("size = %d, want %d", size, len("video data"))
		}

		content, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("failed to read saved file: %v", err)
		}
		if string(content) != "video data" {
			t.Errorf("got %q, want %q", string(content), "video data")
		}
	})

	t.Run("strips directories from the name", func(t *testing.T) {
		path, _, err := ns.SaveVideo(ctx, "../../escape.mp4", strings.NewReader("x"))
		if err != nil {
			t.Fatalf("SaveVideo() error = %v", err)
		}
		if filepath.Dir(path) != ns.VideoDir() {
			t.Errorf("file written outside namespace: %s", path)
		}
	})

	t.Run("removes partial file on read error", func(t *testing.T) {
		_, _, err := ns.SaveVideo(ctx, "broken.mp4", io.MultiReader(strings.NewReader("head"), errReader{}))
		if err == nil {
			t.Fatal("expected error")
		}
		if _, err := os.Stat(ns.VideoPath("broken.mp4")); !os.IsNotExist(err) {
			t.Errorf("partial file left behind")
		}
	})

	t.Run("respects context cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, _, err := ns.SaveVideo(ctx, "never.mp4", strings.NewReader("data"))
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})
}

func TestNamespace_Load(t *testing.T) {
	ns := setupTestNamespace(t)
	ctx := context.Background()

	path, _, err := ns.SaveVideo(ctx, "load.mp4", strings.NewReader("load data"))
	if err != nil {
		t.Fatalf("SaveVideo() error = %v", err)
	}

	reader, err := ns.Load(ctx, path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	defer func() { _ = reader.Close() }()

	content, err := io.ReadAll(reader)
	if err != nil {
		t.Fatalf("failed to read: %v", err)
	}
	if string(content) != "load data" {
		t.Errorf("got %q, want %q", string(content), "load data")
	}

	if _, err := ns.Load(ctx, ns.AudioPath("missing.mp3")); err == nil {
		t.Error("expected error for non-existent file")
	}
}

func TestNamespace_Release(t *testing.T) {
	ns := setupTestNamespace(t)
	ctx := context.Background()

	var paths []string
	for _, name := range []string{"segment_000.mp4", "segment_001.mp4"} {
		p, _, err := ns.SaveVideo(ctx, name, strings.NewReader("data"))
		if err != nil {
			t.Fatalf("SaveVideo() error = %v", err)
		}
		paths = append(paths, p)
	}

	if err := ns.Release(append(paths, "/non/existent/file")...); err != nil {
		t.Fatalf("Release() error = %v", err)
	}
	for _, p := range paths {
		if _, err := os.Stat(p); !os.IsNotExist(err) {
			t.Errorf("file %s still exists", p)
		}
	}
}

func TestNamespace_Release_ReportsCleanupWarning(t *testing.T) {
	ns := setupTestNamespace(t)

	// A non-empty directory cannot be removed with os.Remove.
	dir := ns.AudioPath("stuck")
	if err := os.Mkdir(dir, 0o750); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "f"), []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}

	err := ns.Release(dir)
	var warn *CleanupWarning
	if !errors.As(err, &warn) {
		t.Fatalf("expected *CleanupWarning, got %v", err)
	}
	if warn.Path != dir {
		t.Errorf("warning path = %v, want %v", warn.Path, dir)
	}
}

func TestNamespace_Cleanup(t *testing.T) {
	ws := setupTestWorkspace(t)
	ns, err := ws.Open("req-cleanup")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	ctx := context.Background()
	if _, _, err := ns.SaveVideo(ctx, "source.mp4", strings.NewReader("v")); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(ns.AudioPath("audio_000.mp3"), []byte("a"), 0o600); err != nil {
		t.Fatal(err)
	}

	if err := ns.Cleanup(); err != nil {
		t.Fatalf("Cleanup() error = %v", err)
	}
	for _, dir := range []string{ns.VideoDir(), ns.AudioDir()} {
		if _, err := os.Stat(dir); !os.IsNotExist(err) {
			t.Errorf("namespace directory %s still exists", dir)
		}
	}

	if err := ns.Cleanup(); err != nil {
		t.Errorf("second Cleanup() should be a no-op, got %v", err)
	}

	entries, err := os.ReadDir(ws.VideoDir())
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("video working directory not empty: %v", entries)
	}
}

func TestCleanupWarning(t *testing.T) {
	cause := errors.New("permission denied")
	var err error = &CleanupWarning{Path: "/tmp/x", Err: cause}

	if !errors.Is(err, cause) {
		t.Error("CleanupWarning should unwrap to its cause")
	}
	if got := err.Error(); got != "cleanup /tmp/x: permission denied" {
		t.Errorf("Error() = %q", got)
	}
}

type errReader struct{}

func (errReader) Read([]byte) (int, error) { return 0, errors.New("connection reset") }

func setupTestWorkspace(t *testing.T) *Workspace {
	t.Helper()
	root := t.TempDir()

	ws, err := NewWorkspace(filepath.Join(root, "video"), filepath.Join(root, "audio"))
	if err != nil {
		t.Fatalf("failed to create workspace: %v", err)
	}
	return ws
}

func setupTestNamespace(t *testing.T) *Namespace {
	t.Helper()
	ns, err := setupTestWorkspace(t).Open("req-test")
	if err != nil {
		t.Fatalf("failed to open namespace: %v", err)
	}
	return ns
}
