// Package media provides the local audio source and remote audio sink of a
// voice session.
//
// Audio is never decoded here. Sources produce Opus frames for a local
// WebRTC track, and sinks store the remote Opus stream in an Ogg container.
package media

import (
	"context"

	"github.com/pion/rtp"
	"github.com/pion/webrtc/v3"
)

// Constraints are capture hints for a microphone. Implementations that
// cannot honor a hint ignore it.
type Constraints struct {
	EchoCancellation bool
	NoiseSuppression bool
	AutoGainControl  bool
	SampleRate       int
	Channels         int
}

// VoiceConstraints asks for processed, low-rate mono input, which keeps
// speaker echo low on small devices.
func VoiceConstraints() Constraints {
	return Constraints{
		EchoCancellation: true,
		NoiseSuppression: true,
		AutoGainControl:  true,
		SampleRate:       16000,
		Channels:         1,
	}
}

// Microphone opens audio captures.
type Microphone interface {
	Open(ctx context.Context, c Constraints) (Capture, error)
}

// Capture is an open audio input.
type Capture interface {
	// Track is the local track to add to the peer connection.
	Track() webrtc.TrackLocal

	// Analyser reports the input level while the capture runs.
	Analyser() Analyser

	// Stop ends the capture. It is safe to call more than once.
	Stop() error
}

// Analyser measures input loudness.
type Analyser interface {
	// Level returns the current level in [0, 1].
	Level() float64
	Close()
}

// PacketSource yields RTP packets of a remote track.
type PacketSource interface {
	ReadRTP() (*rtp.Packet, error)
}

// Player plays or records remote audio.
type Player interface {
	// Attach starts consuming src until it fails or the player stops.
	Attach(src PacketSource) error

	// Stop pauses playback and detaches the source.
	Stop() error
}

// opusCodec is the capability of every local track.
var opusCodec = webrtc.RTPCodecCapability{
	MimeType:  webrtc.MimeTypeOpus,
	ClockRate: 48000,
	Channels:  2,
}
