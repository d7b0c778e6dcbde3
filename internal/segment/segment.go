// Package segment partitions a video timeline into fixed-length windows and
// materialises each window as an independently encoded video file.
package segment

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"math"
	"path/filepath"

	"github.com/maauso/audiograb/internal/media"
)

// ErrInvalidWindow is returned when the duration or window length is not a
// positive finite number, or when their ratio is absurdly large.
var ErrInvalidWindow = errors.New("segment: duration and window must be positive")

// epsilon absorbs float noise from probed durations so that an exact
// multiple of the window does not produce an empty trailing window.
const epsilon = 1e-6

// maxPrealloc caps the up-front allocation of Plan.
const maxPrealloc = 1024

// Window is a half-open time range [Start, End) of the source, in seconds.
type Window struct {
	Index int
	Start float64
	End   float64
}

// Duration returns the length of the window in seconds.
func (w Window) Duration() float64 {
	return w.End - w.Start
}

// Segment is a window that has been encoded to its own file.
type Segment struct {
	Window
	// Source is the path of the video the segment was cut from.
	Source string
	// Path is the encoded segment file.
	Path string
}

// Plan returns ceil(duration/window) contiguous windows covering [0, duration).
// The last window is truncated to whatever remains; it is never padded or
// dropped. A duration that fits in one window yields exactly one window.
func Plan(duration, window float64) ([]Window, error) {
	if !(duration > 0) || !(window > 0) || math.IsInf(duration, 0) || math.IsInf(window, 0) {
		return nil, fmt.Errorf("%w: duration=%.3f window=%.3f", ErrInvalidWindow, duration, window)
	}

	ratio := math.Ceil(duration/window - epsilon)
	if ratio > math.MaxInt32 {
		return nil, fmt.Errorf("%w: duration=%.3f window=%g yields too many windows", ErrInvalidWindow, duration, window)
	}
	count := max(int(ratio), 1)

	windows := make([]Window, 0, min(count, maxPrealloc))
	for i := 0; i < count; i++ {
		start := float64(i) * window
		end := float64(i+1) * window
		if i == count-1 {
			end = duration
		}
		windows = append(windows, Window{Index: i, Start: start, End: end})
	}
	return windows, nil
}

// FileName returns the on-disk name of the segment with the given index.
func FileName(index int) string {
	return fmt.Sprintf("segment_%03d.mp4", index)
}

// Segmenter cuts a source video into encoded segments.
type Segmenter struct {
	prober     media.Prober
	transcoder media.Transcoder
}

// NewSegmenter creates a Segmenter backed by the given prober and transcoder.
func NewSegmenter(prober media.Prober, transcoder media.Transcoder) *Segmenter {
	return &Segmenter{prober: prober, transcoder: transcoder}
}

// Segments returns a lazy sequence that encodes one window per step into
// outDir. The sequence is restartable: ranging over it again re-encodes from
// the first window. It stops after the first error, which is yielded as a
// *media.EncodeError carrying the window index. Files already produced are
// left in place for the caller to remove.
func (s *Segmenter) Segments(ctx context.Context, src, outDir string, duration, window float64) iter.Seq2[Segment, error] {
	return func(yield func(Segment, error) bool) {
		windows, err := Plan(duration, window)
		if err != nil {
			yield(Segment{}, err)
			return
		}

		for _, w := range windows {
			seg := Segment{
				Window: w,
				Source: src,
				Path:   filepath.Join(outDir, FileName(w.Index)),
			}

			if err := s.transcoder.EncodeSlice(ctx, src, seg.Path, w.Start, w.Duration()); err != nil {
				yield(seg, &media.EncodeError{Stage: media.StageSegment, Index: w.Index, Err: err})
				return
			}

			if !yield(seg, nil) {
				return
			}
		}
	}
}

// Segment probes src and encodes every window into outDir.
// On failure it returns the segments produced so far along with the error;
// it does not delete them.
func (s *Segmenter) Segment(ctx context.Context, src, outDir string, window float64) ([]Segment, error) {
	info, err := s.prober.Probe(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("probe source: %w", err)
	}

	var segments []Segment
	for seg, err := range s.Segments(ctx, src, outDir, info.Duration, window) {
		if err != nil {
			return segments, err
		}
		segments = append(segments, seg)
	}
	return segments, nil
}
