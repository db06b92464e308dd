// Package compositor merges two rendered video sources into a single
// side-by-side frame at a fixed rate and feeds the result to a chunked
// encoder for rebroadcast through the relay.
package compositor

// Composite dimensions. The left half carries the local source, the right
// half the remote source.
const (
	CompositeWidth  = 1280
	CompositeHeight = 720
)

// Frame is a rendered RGBA pixel buffer, 4 bytes per pixel, row-major.
type Frame struct {
	Width  int
	Height int
	Pix    []byte
}

// NewFrame allocates a zeroed frame.
func NewFrame(width, height int) *Frame {
	return &Frame{
		Width:  width,
		Height: height,
		Pix:    make([]byte, width*height*4),
	}
}

// Source yields the most recently rendered frame of one video element.
// ok is false while nothing has been rendered yet (or the element is
// detached); the compositor then leaves that half of the canvas as it was.
type Source interface {
	Frame() (*Frame, bool)
}

// blit copies src into dst with its top-left corner at (dx, 0), clipping
// to the destination half. Sources are expected to render at half width
// already; anything larger is cropped rather than scaled.
func blit(dst *Frame, src *Frame, dx, maxWidth int) {
	rows := src.Height
	if rows > dst.Height {
		rows = dst.Height
	}
	cols := src.Width
	if cols > maxWidth {
		cols = maxWidth
	}

	for y := 0; y < rows; y++ {
		srcOff := y * src.Width * 4
		dstOff := (y*dst.Width + dx) * 4
		copy(dst.Pix[dstOff:dstOff+cols*4], src.Pix[srcOff:srcOff+cols*4])
	}
}
