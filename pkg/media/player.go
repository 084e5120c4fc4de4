package media

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/pion/webrtc/v3/pkg/media/oggwriter"
)

// OggPlayer records remote audio into an Ogg/Opus file.
type OggPlayer struct {
	Path string

	mu     sync.Mutex
	writer *oggwriter.OggWriter
	done   chan struct{}
}

// Attach implements Player. Only one source is recorded at a time; a second
// Attach replaces the first.
func (p *OggPlayer) Attach(src PacketSource) error {
	if err := p.Stop(); err != nil {
		return err
	}
	w, err := oggwriter.New(p.Path, 48000, 2)
	if err != nil {
		return fmt.Errorf("media: open player: %w", err)
	}
	done := make(chan struct{})

	p.mu.Lock()
	p.writer, p.done = w, done
	p.mu.Unlock()

	go func() {
		defer close(done)
		for {
			pkt, err := src.ReadRTP()
			if err != nil {
				if !errors.Is(err, io.EOF) {
					slog.Debug("remote audio ended", "error", err)
				}
				return
			}
			p.mu.Lock()
			if p.writer != w {
				p.mu.Unlock()
				return
			}
			err = w.WriteRTP(pkt)
			p.mu.Unlock()
			if err != nil {
				slog.Warn("write remote audio", "error", err)
				return
			}
		}
	}()
	return nil
}

// Stop implements Player. The file is finalized and closed. Stop is safe to
// call when nothing is attached.
func (p *OggPlayer) Stop() error {
	p.mu.Lock()
	w := p.writer
	p.writer = nil
	p.mu.Unlock()
	if w == nil {
		return nil
	}
	return w.Close()
}

// Wait blocks until the attached source is exhausted.
func (p *OggPlayer) Wait() {
	p.mu.Lock()
	done := p.done
	p.mu.Unlock()
	if done != nil {
		<-done
	}
}

// DiscardPlayer drains remote audio without keeping it.
type DiscardPlayer struct {
	mu   sync.Mutex
	stop chan struct{}
}

// Attach implements Player.
func (p *DiscardPlayer) Attach(src PacketSource) error {
	p.Stop()
	stop := make(chan struct{})
	p.mu.Lock()
	p.stop = stop
	p.mu.Unlock()
	go func() {
		for {
			select {
			case <-stop:
				return
			default:
			}
			if _, err := src.ReadRTP(); err != nil {
				return
			}
		}
	}()
	return nil
}

// Stop implements Player.
func (p *DiscardPlayer) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stop != nil {
		close(p.stop)
		p.stop = nil
	}
	return nil
}
