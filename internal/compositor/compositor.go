package compositor

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// EmitFunc receives each completed broadcast chunk. The CLI points this at
// the signaling client's binary send path.
type EmitFunc func(chunk []byte)

// Compositor runs the fixed-rate tick loop. Each tick it paints whichever
// source halves are available onto the composite buffer, encodes the
// buffer, and hands encoder output to the chunker. It runs independently
// of negotiation state: starting before any source produces frames just
// means ticks draw nothing new.
type Compositor struct {
	local  Source
	remote Source

	encoder  FrameEncoder
	emit     EmitFunc
	interval time.Duration
	chunks   *chunker

	// buf persists across ticks so a half whose source goes quiet keeps
	// its last drawn content.
	buf *Frame

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	started bool
}

// New assembles a compositor. tickRate is frames per second, chunkMillis
// the duration of each emitted chunk.
func New(local, remote Source, encoder FrameEncoder, emit EmitFunc, tickRate, chunkMillis int) *Compositor {
	return &Compositor{
		local:    local,
		remote:   remote,
		encoder:  encoder,
		emit:     emit,
		interval: time.Second / time.Duration(tickRate),
		chunks:   newChunker(tickRate, chunkMillis),
		buf:      NewFrame(CompositeWidth, CompositeHeight),
	}
}

// Start launches the tick loop. Starting an already started compositor is
// a no-op.
func (c *Compositor) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started {
		return
	}
	c.started = true

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.done = make(chan struct{})
	go c.run(ctx)
}

// Stop cancels the tick loop, waits for it to exit, and closes the
// encoder. No chunk is emitted after Stop returns; a partially filled
// chunk window is discarded. Stop on a never-started or already stopped
// compositor is a no-op.
func (c *Compositor) Stop() {
	c.mu.Lock()
	if !c.started {
		c.mu.Unlock()
		return
	}
	c.started = false
	cancel, done := c.cancel, c.done
	c.mu.Unlock()

	cancel()
	<-done
	if err := c.encoder.Close(); err != nil {
		slog.Warn("encoder close", "err", err)
	}
}

func (c *Compositor) run(ctx context.Context) {
	defer close(c.done)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.tick()
		}
	}
}

// tick draws one composite frame and pushes it through encoder and chunker.
func (c *Compositor) tick() {
	c.draw()

	encoded, err := c.encoder.Encode(c.buf)
	if err != nil {
		slog.Warn("encode tick", "err", err)
		return
	}

	chunk, err := c.chunks.add(encoded)
	if err != nil {
		slog.Warn("frame chunk", "err", err)
		return
	}
	if chunk != nil {
		c.emit(chunk)
	}
}

// draw paints the available halves onto the composite buffer. A source
// with no frame leaves its half untouched.
func (c *Compositor) draw() {
	half := c.buf.Width / 2
	if f, ok := c.local.Frame(); ok {
		blit(c.buf, f, 0, half)
	}
	if f, ok := c.remote.Frame(); ok {
		blit(c.buf, f, half, half)
	}
}
