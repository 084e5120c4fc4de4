package realtime

import (
	"github.com/pion/webrtc/v3"

	"github.com/haivivi/voiceagent/pkg/media"
)

// ControlLabel is the data channel that carries control events.
const ControlLabel = "oai-events"

// DefaultICEServers is used when no ICE servers are configured.
var DefaultICEServers = []string{"stun:stun.l.google.com:19302"}

// PeerConfig configures a new peer connection.
type PeerConfig struct {
	ICEServers []string
}

// PeerFactory creates peer connections.
type PeerFactory interface {
	NewPeer(cfg PeerConfig) (Peer, error)
}

// PeerState is a terminal peer connection state.
type PeerState int

const (
	PeerFailed PeerState = iota + 1
	PeerClosed
)

func (s PeerState) String() string {
	switch s {
	case PeerFailed:
		return "failed"
	case PeerClosed:
		return "closed"
	}
	return "unknown"
}

// Peer is the media transport of one session.
type Peer interface {
	AddTrack(track webrtc.TrackLocal) error
	CreateControlChannel(label string) (ControlChannel, error)

	// OnRemoteAudio is called for each remote audio track.
	OnRemoteAudio(fn func(src media.PacketSource))

	// OnStateChange is called when the connection fails or closes.
	OnStateChange(fn func(PeerState))

	// CreateOffer creates an offer, applies it as the local description
	// and starts ICE gathering.
	CreateOffer() error

	// GatheringComplete is closed when ICE gathering finishes. It is only
	// valid after CreateOffer.
	GatheringComplete() <-chan struct{}

	// LocalDescription returns the local SDP including gathered candidates.
	LocalDescription() string

	SetRemoteAnswer(sdp string) error
	Close() error
}

// ControlChannel is an ordered, reliable text channel. Callbacks may run on
// any goroutine.
type ControlChannel interface {
	Send(text string) error
	IsOpen() bool
	OnOpen(fn func())
	OnMessage(fn func(data []byte))
	OnClose(fn func())
	OnError(fn func(err error))
	Close() error
}
