package compositor

import "sync"

// FrameBuffer is a thread-safe latest-frame holder implementing Source.
// The platform renderer writes into it from its own cadence; the
// compositor reads whatever was rendered most recently.
type FrameBuffer struct {
	mu    sync.Mutex
	frame *Frame
}

// NewFrameBuffer creates an empty buffer. Frame reports not-ok until the
// first SetFrame.
func NewFrameBuffer() *FrameBuffer {
	return &FrameBuffer{}
}

// SetFrame stores the latest rendered frame. The buffer keeps the pointer;
// the renderer must hand over ownership.
func (b *FrameBuffer) SetFrame(f *Frame) {
	b.mu.Lock()
	b.frame = f
	b.mu.Unlock()
}

// Frame returns the most recent frame, if any.
func (b *FrameBuffer) Frame() (*Frame, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.frame == nil {
		return nil, false
	}
	return b.frame, true
}

// ActivityCard renders a meter frame for a feed that cannot be decoded
// locally: a bar fills from the bottom with the packet count observed in
// the last tick, so the rebroadcast shows whether the feed is alive.
func ActivityCard(width, height, level, tick int) *Frame {
	f := NewFrame(width, height)
	if level <= 0 {
		return f
	}

	filled := height * level / 64
	if filled > height {
		filled = height
	}
	left := width / 4
	right := width - width/4
	for y := height - filled; y < height; y++ {
		for x := left; x < right; x++ {
			off := (y*width + x) * 4
			f.Pix[off] = byte((tick * 4) % 256)
			f.Pix[off+1] = 0xb9
			f.Pix[off+2] = 0x81
			f.Pix[off+3] = 0xff
		}
	}
	return f
}

// TestCard paints a deterministic color-bar pattern for the given tick.
// The CLI uses it as the local source when no platform renderer is
// attached, so a standalone broadcast still carries visible content.
func TestCard(width, height, tick int) *Frame {
	f := NewFrame(width, height)
	barWidth := width / 8
	if barWidth == 0 {
		barWidth = 1
	}
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			bar := (x/barWidth + tick) % 8
			off := (y*width + x) * 4
			f.Pix[off] = byte(bar * 32)
			f.Pix[off+1] = byte(255 - bar*32)
			f.Pix[off+2] = byte((bar * 64) % 256)
			f.Pix[off+3] = 0xff
		}
	}
	return f
}
