package audio

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/maauso/audiograb/internal/media"
)

// Extractor demultiplexes the audio stream of a video and re-encodes it to
// a fixed Format. It holds no per-call state.
type Extractor struct {
	prober     media.Prober
	transcoder media.Transcoder
	format     Format
}

// NewExtractor creates an Extractor. A zero Format falls back to DefaultFormat.
func NewExtractor(prober media.Prober, transcoder media.Transcoder, format Format) *Extractor {
	def := DefaultFormat()
	if format.Codec == "" {
		format.Codec = def.Codec
	}
	if format.Bitrate == "" {
		format.Bitrate = def.Bitrate
	}
	if format.Ext == "" {
		format.Ext = def.Ext
	}
	return &Extractor{prober: prober, transcoder: transcoder, format: format}
}

// Format returns the output format every chunk is encoded with.
func (e *Extractor) Format() Format {
	return e.format
}

// ExtractAudio writes the audio of videoPath to outPath and returns the chunk.
// A source without an audio track fails with media.ErrNoAudioStream before
// anything is written. Other failures are reported as *media.EncodeError and
// leave no file at outPath.
func (e *Extractor) ExtractAudio(ctx context.Context, videoPath, outPath string, index int) (Chunk, error) {
	info, err := e.prober.Probe(ctx, videoPath)
	if err != nil {
		return Chunk{}, fmt.Errorf("probe video: %w", err)
	}
	if !info.HasAudio {
		return Chunk{}, fmt.Errorf("%s: %w", videoPath, media.ErrNoAudioStream)
	}

	if err := e.transcoder.ExtractAudioTrack(ctx, videoPath, outPath, e.format.Codec, e.format.Bitrate); err != nil {
		_ = os.Remove(outPath)
		if errors.Is(err, media.ErrNoAudioStream) {
			return Chunk{}, err
		}
		return Chunk{}, &media.EncodeError{Stage: media.StageExtract, Index: index, Err: err}
	}

	return Chunk{
		Index:   index,
		Codec:   e.format.Codec,
		Bitrate: e.format.Bitrate,
		Path:    outPath,
	}, nil
}
