package audio

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/maauso/audiograb/internal/media"
)

// ManifestName is the file name of the concat-demuxer list written next to
// the output.
const ManifestName = "concat_list.txt"

// Concatenator joins same-format audio chunks with a stream copy.
type Concatenator struct {
	transcoder media.Transcoder
}

// NewConcatenator creates a Concatenator backed by the given transcoder.
func NewConcatenator(transcoder media.Transcoder) *Concatenator {
	return &Concatenator{transcoder: transcoder}
}

// Concatenate writes the chunks, ordered by Index, to outPath.
// Chunks must share codec and bitrate; this is not re-checked.
// A single chunk is copied byte for byte.
func (c *Concatenator) Concatenate(ctx context.Context, chunks []Chunk, outPath string) (Merged, error) {
	if len(chunks) == 0 {
		return Merged{}, media.ErrEmptyInput
	}

	ordered := slices.Clone(chunks)
	slices.SortStableFunc(ordered, func(a, b Chunk) int { return a.Index - b.Index })

	indices := make([]int, len(ordered))
	for i, ch := range ordered {
		indices[i] = ch.Index
	}
	merged := Merged{Path: outPath, Indices: indices}

	for _, ch := range ordered {
		if _, err := os.Stat(ch.Path); err != nil {
			return Merged{}, fmt.Errorf("%w: chunk %d: %w", media.ErrConcatFailure, ch.Index, err)
		}
	}

	if len(ordered) == 1 {
		if filepath.Clean(ordered[0].Path) == filepath.Clean(outPath) {
			return merged, nil
		}
		if err := copyFile(ordered[0].Path, outPath); err != nil {
			_ = os.Remove(outPath)
			return Merged{}, fmt.Errorf("%w: %w", media.ErrConcatFailure, err)
		}
		return merged, nil
	}

	manifest := filepath.Join(filepath.Dir(outPath), ManifestName)
	if err := writeManifest(manifest, ordered); err != nil {
		return Merged{}, fmt.Errorf("%w: write manifest: %w", media.ErrConcatFailure, err)
	}
	defer func() { _ = os.Remove(manifest) }()

	if err := c.transcoder.ConcatStreamCopy(ctx, manifest, outPath); err != nil {
		_ = os.Remove(outPath)
		return Merged{}, fmt.Errorf("%w: %w", media.ErrConcatFailure, err)
	}
	return merged, nil
}

// writeManifest writes an ffmpeg concat-demuxer list with one absolute,
// quoted path per line in the given order.
func writeManifest(path string, chunks []Chunk) error {
	var b strings.Builder
	for _, ch := range chunks {
		abs, err := filepath.Abs(ch.Path)
		if err != nil {
			return fmt.Errorf("resolve chunk %d path: %w", ch.Index, err)
		}
		fmt.Fprintf(&b, "file %s\n", quoteManifestPath(abs))
	}
	return os.WriteFile(path, []byte(b.String()), 0o600)
}

// quoteManifestPath single-quotes p for the concat demuxer. Embedded quotes
// close the string, emit an escaped quote and reopen it.
func quoteManifestPath(p string) string {
	return "'" + strings.ReplaceAll(p, "'", `'\''`) + "'"
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open chunk: %w", err)
	}
	defer func() { _ = in.Close() }()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}

	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return fmt.Errorf("copy chunk: %w", err)
	}
	return out.Close()
}
