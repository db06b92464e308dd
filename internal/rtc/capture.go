package rtc

import (
	"errors"
	"time"

	"github.com/pion/webrtc/v4"
	"github.com/pion/webrtc/v4/pkg/media"
)

// ErrMediaUnavailable means the capture capability could not provide its
// tracks. Negotiation is aborted and the failure is shown to the user.
var ErrMediaUnavailable = errors.New("media capture unavailable")

// Capture is the platform capture capability: a synchronized audio/video
// track pair. Implementations own the device; Close releases it.
type Capture interface {
	Tracks() ([]webrtc.TrackLocal, error)
	Close() error
}

// SampleCapture is a Capture fed by an external sample source (camera
// bridge, file reader, test generator). It owns one video and one audio
// track and exposes write methods for the feeder.
type SampleCapture struct {
	video *webrtc.TrackLocalStaticSample
	audio *webrtc.TrackLocalStaticSample
}

// NewSampleCapture creates the local track pair. VP8 and Opus match what
// browsers negotiate by default.
func NewSampleCapture(streamID string) (*SampleCapture, error) {
	video, err := webrtc.NewTrackLocalStaticSample(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeVP8},
		"video", streamID,
	)
	if err != nil {
		return nil, err
	}
	audio, err := webrtc.NewTrackLocalStaticSample(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus},
		"audio", streamID,
	)
	if err != nil {
		return nil, err
	}
	return &SampleCapture{video: video, audio: audio}, nil
}

// Tracks returns the local track pair.
func (c *SampleCapture) Tracks() ([]webrtc.TrackLocal, error) {
	return []webrtc.TrackLocal{c.video, c.audio}, nil
}

// WriteVideo pushes one encoded video sample onto the outgoing track.
func (c *SampleCapture) WriteVideo(data []byte, duration time.Duration) error {
	return c.video.WriteSample(media.Sample{Data: data, Duration: duration})
}

// WriteAudio pushes one encoded audio sample onto the outgoing track.
func (c *SampleCapture) WriteAudio(data []byte, duration time.Duration) error {
	return c.audio.WriteSample(media.Sample{Data: data, Duration: duration})
}

// Close releases the tracks. Static sample tracks hold no device handle,
// so there is nothing to tear down beyond letting the senders stop.
func (c *SampleCapture) Close() error {
	return nil
}
