package realtime

import (
	"errors"
	"fmt"

	"github.com/pion/rtp"
	"github.com/pion/webrtc/v3"

	"github.com/haivivi/voiceagent/pkg/media"
)

// PionFactory creates peers with pion/webrtc.
type PionFactory struct {
	// API is used to create peer connections. Nil selects an API with the
	// default codecs registered.
	API *webrtc.API
}

// NewPeer implements PeerFactory.
func (f *PionFactory) NewPeer(cfg PeerConfig) (Peer, error) {
	api := f.API
	if api == nil {
		m := &webrtc.MediaEngine{}
		if err := m.RegisterDefaultCodecs(); err != nil {
			return nil, fmt.Errorf("register codecs: %w", err)
		}
		api = webrtc.NewAPI(webrtc.WithMediaEngine(m))
	}
	servers := cfg.ICEServers
	if len(servers) == 0 {
		servers = DefaultICEServers
	}
	pc, err := api.NewPeerConnection(webrtc.Configuration{
		ICEServers: []webrtc.ICEServer{{URLs: servers}},
	})
	if err != nil {
		return nil, fmt.Errorf("create peer connection: %w", err)
	}
	return &pionPeer{pc: pc}, nil
}

type pionPeer struct {
	pc     *webrtc.PeerConnection
	gather <-chan struct{}
}

func (p *pionPeer) AddTrack(track webrtc.TrackLocal) error {
	sender, err := p.pc.AddTrack(track)
	if err != nil {
		return err
	}
	// RTCP must be read for interceptors such as NACK to work.
	go func() {
		buf := make([]byte, 1500)
		for {
			if _, _, err := sender.Read(buf); err != nil {
				return
			}
		}
	}()
	return nil
}

func (p *pionPeer) CreateControlChannel(label string) (ControlChannel, error) {
	ordered := true
	dc, err := p.pc.CreateDataChannel(label, &webrtc.DataChannelInit{Ordered: &ordered})
	if err != nil {
		return nil, err
	}
	return &pionChannel{dc: dc}, nil
}

func (p *pionPeer) OnRemoteAudio(fn func(src media.PacketSource)) {
	p.pc.OnTrack(func(track *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
		if track.Kind() == webrtc.RTPCodecTypeAudio {
			fn(remoteTrack{track})
		}
	})
}

func (p *pionPeer) OnStateChange(fn func(PeerState)) {
	p.pc.OnConnectionStateChange(func(s webrtc.PeerConnectionState) {
		switch s {
		case webrtc.PeerConnectionStateFailed:
			fn(PeerFailed)
		case webrtc.PeerConnectionStateClosed:
			fn(PeerClosed)
		}
	})
}

func (p *pionPeer) CreateOffer() error {
	offer, err := p.pc.CreateOffer(nil)
	if err != nil {
		return err
	}
	p.gather = webrtc.GatheringCompletePromise(p.pc)
	return p.pc.SetLocalDescription(offer)
}

func (p *pionPeer) GatheringComplete() <-chan struct{} {
	if p.gather == nil {
		ch := make(chan struct{})
		return ch
	}
	return p.gather
}

func (p *pionPeer) LocalDescription() string {
	if ld := p.pc.LocalDescription(); ld != nil {
		return ld.SDP
	}
	return ""
}

func (p *pionPeer) SetRemoteAnswer(sdp string) error {
	return p.pc.SetRemoteDescription(webrtc.SessionDescription{
		Type: webrtc.SDPTypeAnswer,
		SDP:  sdp,
	})
}

func (p *pionPeer) Close() error {
	return p.pc.Close()
}

type remoteTrack struct {
	track *webrtc.TrackRemote
}

func (r remoteTrack) ReadRTP() (*rtp.Packet, error) {
	pkt, _, err := r.track.ReadRTP()
	return pkt, err
}

type pionChannel struct {
	dc *webrtc.DataChannel
}

var errChannelClosed = errors.New("control channel not open")

func (c *pionChannel) Send(text string) error {
	if !c.IsOpen() {
		return errChannelClosed
	}
	return c.dc.SendText(text)
}

func (c *pionChannel) IsOpen() bool {
	return c.dc.ReadyState() == webrtc.DataChannelStateOpen
}

func (c *pionChannel) OnOpen(fn func()) { c.dc.OnOpen(fn) }

func (c *pionChannel) OnMessage(fn func(data []byte)) {
	c.dc.OnMessage(func(msg webrtc.DataChannelMessage) {
		fn(msg.Data)
	})
}

func (c *pionChannel) OnClose(fn func()) { c.dc.OnClose(fn) }

func (c *pionChannel) OnError(fn func(err error)) { c.dc.OnError(fn) }

func (c *pionChannel) Close() error { return c.dc.Close() }
