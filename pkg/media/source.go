package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/pion/webrtc/v3"
	pionmedia "github.com/pion/webrtc/v3/pkg/media"
	"github.com/pion/webrtc/v3/pkg/media/oggreader"
)

// frameDuration is the pacing used when a page carries no timing.
const frameDuration = 20 * time.Millisecond

var opusTags = []byte("OpusTags")

// silenceFrame is a 20 ms Opus frame of digital silence.
var silenceFrame = []byte{0xf8, 0xff, 0xfe}

// FileMicrophone captures from an Ogg/Opus file, paced in real time. It
// stands in for a device when running headless.
type FileMicrophone struct {
	Path string

	// Loop restarts the file at EOF instead of falling silent.
	Loop bool
}

// Open implements Microphone.
func (m *FileMicrophone) Open(ctx context.Context, c Constraints) (Capture, error) {
	f, err := os.Open(m.Path)
	if err != nil {
		return nil, fmt.Errorf("media: open microphone: %w", err)
	}
	if _, _, err := oggreader.NewWith(f); err != nil {
		f.Close()
		return nil, fmt.Errorf("media: open microphone: %w", err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		f.Close()
		return nil, err
	}
	return startCapture(ctx, c, func(yield func([]byte, time.Duration) error) error {
		defer f.Close()
		for {
			if err := readOgg(f, yield); err != nil {
				return err
			}
			if !m.Loop {
				return nil
			}
			if _, err := f.Seek(0, io.SeekStart); err != nil {
				return err
			}
		}
	})
}

func readOgg(r io.Reader, yield func([]byte, time.Duration) error) error {
	ogg, _, err := oggreader.NewWith(r)
	if err != nil {
		return err
	}
	var lastGranule uint64
	for {
		page, header, err := ogg.ParseNextPage()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		d := frameDuration
		if header.GranulePosition > lastGranule && lastGranule > 0 {
			d = time.Duration(header.GranulePosition-lastGranule) * time.Second / 48000
		}
		lastGranule = header.GranulePosition
		if bytes.HasPrefix(page, opusTags) {
			continue
		}
		if err := yield(page, d); err != nil {
			return err
		}
	}
}

// SilentMicrophone captures silence. It keeps the uplink alive for sessions
// driven by text.
type SilentMicrophone struct{}

// Open implements Microphone.
func (SilentMicrophone) Open(ctx context.Context, c Constraints) (Capture, error) {
	return startCapture(ctx, c, func(yield func([]byte, time.Duration) error) error {
		for {
			if err := yield(silenceFrame, frameDuration); err != nil {
				return err
			}
		}
	})
}

type capture struct {
	track  *webrtc.TrackLocalStaticSample
	level  *frameLevel
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

var errCaptureStopped = errors.New("media: capture stopped")

func startCapture(ctx context.Context, c Constraints, run func(yield func([]byte, time.Duration) error) error) (*capture, error) {
	track, err := webrtc.NewTrackLocalStaticSample(opusCodec, "audio", "voiceagent")
	if err != nil {
		return nil, fmt.Errorf("media: create track: %w", err)
	}
	ctx, cancel := context.WithCancel(ctx)
	cp := &capture{
		track:  track,
		level:  &frameLevel{},
		cancel: cancel,
		done:   make(chan struct{}),
	}
	slog.Debug("capture started", "echo_cancellation", c.EchoCancellation, "sample_rate", c.SampleRate, "channels", c.Channels)

	go func() {
		defer close(cp.done)
		ticker := time.NewTicker(frameDuration)
		defer ticker.Stop()
		err := run(func(frame []byte, d time.Duration) error {
			ticker.Reset(d)
			select {
			case <-ctx.Done():
				return errCaptureStopped
			case <-ticker.C:
			}
			cp.level.observe(frame)
			return track.WriteSample(pionmedia.Sample{Data: frame, Duration: d})
		})
		if err != nil && !errors.Is(err, errCaptureStopped) && !errors.Is(err, io.ErrClosedPipe) {
			slog.Warn("capture failed", "error", err)
		}
	}()
	return cp, nil
}

func (c *capture) Track() webrtc.TrackLocal { return c.track }

func (c *capture) Analyser() Analyser { return c.level }

func (c *capture) Stop() error {
	c.once.Do(func() {
		c.cancel()
		<-c.done
		c.level.Close()
	})
	return nil
}
