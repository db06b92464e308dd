package rtc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/pion/webrtc/v4/pkg/media/ivfreader"
	"github.com/pion/webrtc/v4/pkg/media/oggreader"
)

// FeedIVF streams a VP8 IVF file onto the capture's video track until the
// file ends or ctx is cancelled. It is the stand-in for a live camera when
// running from a terminal.
func FeedIVF(ctx context.Context, c *SampleCapture, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMediaUnavailable, err)
	}
	defer file.Close()

	ivf, header, err := ivfreader.NewWith(file)
	if err != nil {
		return fmt.Errorf("read ivf header: %w", err)
	}

	// Per-frame pacing from the IVF timebase.
	interval := time.Millisecond * time.Duration((float32(header.TimebaseNumerator)/float32(header.TimebaseDenominator))*1000)
	if interval <= 0 {
		interval = 33 * time.Millisecond
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			frame, _, err := ivf.ParseNextFrame()
			if errors.Is(err, io.EOF) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("read ivf frame: %w", err)
			}
			if err := c.WriteVideo(frame, interval); err != nil {
				return err
			}
		}
	}
}

// FeedOgg streams an Opus Ogg file onto the capture's audio track until the
// file ends or ctx is cancelled.
func FeedOgg(ctx context.Context, c *SampleCapture, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMediaUnavailable, err)
	}
	defer file.Close()

	ogg, _, err := oggreader.NewWith(file)
	if err != nil {
		return fmt.Errorf("read ogg header: %w", err)
	}

	const pageDuration = 20 * time.Millisecond

	ticker := time.NewTicker(pageDuration)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			page, _, err := ogg.ParseNextPage()
			if errors.Is(err, io.EOF) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("read ogg page: %w", err)
			}
			if err := c.WriteAudio(page, pageDuration); err != nil {
				return err
			}
		}
	}
}
