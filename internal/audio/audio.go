// Package audio extracts audio tracks from videos and joins the resulting
// chunks into a single file without re-encoding.
package audio

import "fmt"

// Format fixes the codec parameters shared by every chunk of a run.
// Keeping one Format per pipeline is what makes stream-copy concatenation valid.
type Format struct {
	// Codec is the ffmpeg encoder name, e.g. "libmp3lame".
	Codec string
	// Bitrate is the target bitrate, e.g. "128k".
	Bitrate string
	// Ext is the output file extension without the dot.
	Ext string
}

// DefaultFormat returns MP3 at 128 kbit/s.
func DefaultFormat() Format {
	return Format{
		Codec:   "libmp3lame",
		Bitrate: "128k",
		Ext:     "mp3",
	}
}

// ChunkName returns the file name of the chunk with the given sequence index.
func (f Format) ChunkName(index int) string {
	return fmt.Sprintf("audio_%03d.%s", index, f.Ext)
}

// Chunk is the encoded audio of one segment, or of the whole source in
// single-pass mode (Index 0).
type Chunk struct {
	Index   int
	Codec   string
	Bitrate string
	Path    string
}

// Merged is the concatenation of chunks in index order.
type Merged struct {
	Path string
	// Indices lists the constituent chunk indices in output order.
	Indices []int
}
