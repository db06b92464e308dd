package compositor

import (
	"github.com/vmihailenco/msgpack/v5"
)

// FrameEncoder is the platform encoding capability: it turns one composite
// frame into encoded media bytes. Close releases the encoder.
type FrameEncoder interface {
	Encode(f *Frame) ([]byte, error)
	Close() error
}

// Chunk is one fixed-duration unit of the outgoing broadcast, framed with
// msgpack so listeners can resequence without parsing the media payload.
type Chunk struct {
	Seq      uint64 `msgpack:"seq"`
	PTS      int64  `msgpack:"pts"` // milliseconds since broadcast start
	Duration int64  `msgpack:"dur"` // milliseconds
	Data     []byte `msgpack:"data"`
}

// EncodeChunk serializes a chunk for the wire.
func EncodeChunk(c *Chunk) ([]byte, error) {
	return msgpack.Marshal(c)
}

// DecodeChunk deserializes a wire chunk.
func DecodeChunk(data []byte) (*Chunk, error) {
	var c Chunk
	if err := msgpack.Unmarshal(data, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// PreviewEncoder is the built-in FrameEncoder: it downscales the composite
// to a grayscale thumbnail so the broadcast fits comfortably in websocket
// frames. A platform encoder (VP8, H.264) replaces it when one is attached.
type PreviewEncoder struct {
	width  int
	height int
}

// NewPreviewEncoder creates an encoder emitting width×height luma frames.
func NewPreviewEncoder(width, height int) *PreviewEncoder {
	return &PreviewEncoder{width: width, height: height}
}

// Encode nearest-neighbor downsamples f and converts it to 8-bit luma.
func (e *PreviewEncoder) Encode(f *Frame) ([]byte, error) {
	out := make([]byte, e.width*e.height)
	for y := 0; y < e.height; y++ {
		srcY := y * f.Height / e.height
		for x := 0; x < e.width; x++ {
			srcX := x * f.Width / e.width
			off := (srcY*f.Width + srcX) * 4
			r := int(f.Pix[off])
			g := int(f.Pix[off+1])
			b := int(f.Pix[off+2])
			// BT.601 integer approximation.
			out[y*e.width+x] = byte((299*r + 587*g + 114*b) / 1000)
		}
	}
	return out, nil
}

// Close is a no-op; the preview encoder holds no resources.
func (e *PreviewEncoder) Close() error { return nil }

// chunker groups encoded frames into fixed-duration chunks. It cuts on a
// frame count derived from the tick rate, so chunk boundaries do not
// depend on wall-clock jitter.
type chunker struct {
	framesPerChunk int
	chunkMillis    int64

	seq    uint64
	frames int
	buf    []byte
}

func newChunker(tickRate, chunkMillis int) *chunker {
	fpc := tickRate * chunkMillis / 1000
	if fpc < 1 {
		fpc = 1
	}
	return &chunker{
		framesPerChunk: fpc,
		chunkMillis:    int64(chunkMillis),
	}
}

// add appends one encoded frame; when the chunk window is complete it
// returns the framed chunk, otherwise nil. A partially filled window is
// never emitted; cancellation discards it.
func (k *chunker) add(encoded []byte) ([]byte, error) {
	k.buf = append(k.buf, encoded...)
	k.frames++
	if k.frames < k.framesPerChunk {
		return nil, nil
	}

	chunk := &Chunk{
		Seq:      k.seq,
		PTS:      int64(k.seq) * k.chunkMillis,
		Duration: k.chunkMillis,
		Data:     k.buf,
	}
	k.seq++
	k.frames = 0
	k.buf = nil
	return EncodeChunk(chunk)
}
