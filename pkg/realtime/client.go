package realtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/haivivi/voiceagent/pkg/media"
	openairealtime "github.com/haivivi/voiceagent/pkg/openai-realtime"
	"github.com/haivivi/voiceagent/pkg/token"
	"github.com/haivivi/voiceagent/pkg/tools"
)

var (
	// ErrAlreadyConnected is returned by Connect while a session is being
	// established or is live. Callers must Disconnect first.
	ErrAlreadyConnected = errors.New("realtime: already connected")

	// ErrNotConnected is returned by operations that need a live session.
	ErrNotConnected = errors.New("realtime: not connected")
)

// Client runs one realtime voice session at a time.
//
// A Client is created by the application and passed to whatever needs it.
// Its methods are safe for concurrent use.
type Client struct {
	tokens   token.Source
	api      *openairealtime.Client
	mic      media.Microphone
	player   media.Player
	peers    PeerFactory
	handlers Handlers

	model        string
	instructions string
	tools        []openairealtime.Tool
	iceServers   []string

	iceTimeout    time.Duration
	configPoll    time.Duration
	greetingDelay time.Duration
	summaryGrace  time.Duration
	levelInterval time.Duration

	mu     sync.Mutex
	voice  string
	sess   *session
	nextID uint64
}

// session holds the handles of one connection attempt. A session is live
// while it is Client.sess; every callback checks that before touching it.
type session struct {
	id     uint64
	ctx    context.Context
	cancel context.CancelFunc
	inbox  *inbox
	voice  string
	text   bool

	// Set under Client.mu while connecting.
	peer      Peer
	channel   ControlChannel
	capture   media.Capture
	analyser  media.Analyser
	connected bool
	greeted   bool

	// Only touched on the event goroutine.
	seenCalls map[string]bool
}

// NewClient creates a client that gets credentials from tokens.
func NewClient(tokens token.Source, opts ...Option) *Client {
	c := &Client{
		tokens:        tokens,
		api:           openairealtime.NewClient(""),
		mic:           media.SilentMicrophone{},
		player:        &media.DiscardPlayer{},
		peers:         &PionFactory{},
		model:         openairealtime.ModelGPTRealtime,
		voice:         openairealtime.VoiceAlloy,
		tools:         tools.Definitions(),
		iceServers:    DefaultICEServers,
		iceTimeout:    ICEGatherTimeout,
		configPoll:    ConfigPollInterval,
		greetingDelay: GreetingDelay,
		summaryGrace:  FinalSummaryGrace,
		levelInterval: AudioLevelInterval,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// IsConnected reports whether a session is live.
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sess != nil && c.sess.connected
}

func (c *Client) begin(text bool) (*session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sess != nil {
		return nil, ErrAlreadyConnected
	}
	c.nextID++
	ctx, cancel := context.WithCancel(context.Background())
	s := &session{
		id:        c.nextID,
		ctx:       ctx,
		cancel:    cancel,
		inbox:     newInbox(),
		voice:     c.voice,
		text:      text,
		seenCalls: make(map[string]bool),
	}
	c.sess = s
	go s.inbox.run(ctx)
	return s, nil
}

// attach runs fn under the client lock if s is still live.
func (c *Client) attach(s *session, fn func()) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sess != s {
		return false
	}
	fn()
	return true
}

func (c *Client) live(s *session) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sess == s
}

// errTornDown is returned by connect steps when Disconnect ran meanwhile.
var errTornDown = errors.New("realtime: session closed while connecting")

// Connect establishes a voice session. It returns after the remote answer
// is applied, or with the first error. Failures are also reported through
// OnError, and everything acquired so far is released.
//
// Connect must not be called while a previous Connect is in flight or the
// session is live; it returns ErrAlreadyConnected.
func (c *Client) Connect(ctx context.Context) error {
	s, err := c.begin(false)
	if err != nil {
		return err
	}
	c.handlers.connecting()
	slog.Info("connecting", "session", s.id, "model", c.model, "voice", s.voice)

	if err := c.establish(ctx, s); err != nil {
		return c.fail(s, err)
	}
	return nil
}

func (c *Client) fail(s *session, err error) error {
	if errors.Is(err, errTornDown) {
		return err
	}
	if !c.live(s) {
		return errTornDown
	}
	slog.Warn("connect failed", "session", s.id, "error", err)
	c.teardown(s)
	c.handlers.error(err.Error())
	return err
}

func (c *Client) establish(ctx context.Context, s *session) error {
	tok, err := c.tokens.Token(ctx)
	if err != nil {
		return fmt.Errorf("get token: %w", err)
	}

	capture, err := c.mic.Open(s.ctx, media.VoiceConstraints())
	if err != nil {
		return fmt.Errorf("microphone: %w", err)
	}
	if !c.attach(s, func() { s.capture, s.analyser = capture, capture.Analyser() }) {
		capture.Stop()
		return errTornDown
	}

	peer, err := c.peers.NewPeer(PeerConfig{ICEServers: c.iceServers})
	if err != nil {
		return fmt.Errorf("peer connection: %w", err)
	}
	if !c.attach(s, func() { s.peer = peer }) {
		peer.Close()
		return errTornDown
	}
	peer.OnRemoteAudio(func(src media.PacketSource) {
		s.inbox.push(func() { c.playRemote(s, src) })
	})
	peer.OnStateChange(func(st PeerState) {
		s.inbox.push(func() { c.peerLost(s, st) })
	})
	if err := peer.AddTrack(capture.Track()); err != nil {
		return fmt.Errorf("add audio track: %w", err)
	}

	ch, err := peer.CreateControlChannel(ControlLabel)
	if err != nil {
		return fmt.Errorf("control channel: %w", err)
	}
	if !c.attach(s, func() { s.channel = ch }) {
		ch.Close()
		return errTornDown
	}
	c.watchChannel(s, ch)
	go c.configure(s)

	if err := peer.CreateOffer(); err != nil {
		return fmt.Errorf("create offer: %w", err)
	}
	select {
	case <-peer.GatheringComplete():
	case <-time.After(c.iceTimeout):
		slog.Warn("ICE gathering timed out, sending partial candidates", "session", s.id, "timeout", c.iceTimeout)
	case <-s.ctx.Done():
		return errTornDown
	case <-ctx.Done():
		return ctx.Err()
	}

	answer, err := c.api.ExchangeSDP(ctx, tok.Value, peer.LocalDescription())
	if err != nil {
		return fmt.Errorf("signaling: %w", err)
	}
	if !c.live(s) {
		return errTornDown
	}
	if err := peer.SetRemoteAnswer(answer); err != nil {
		return fmt.Errorf("apply answer: %w", err)
	}

	if !c.attach(s, func() { s.connected = true }) {
		return errTornDown
	}
	go c.sampleLevel(s)
	slog.Info("connected", "session", s.id)
	c.handlers.connected()
	return nil
}

// watchChannel routes channel callbacks onto the event goroutine.
func (c *Client) watchChannel(s *session, ch ControlChannel) {
	ch.OnMessage(func(data []byte) {
		s.inbox.push(func() { c.handleMessage(s, data) })
	})
	ch.OnError(func(err error) {
		s.inbox.push(func() { c.channelError(s, err) })
	})
	ch.OnClose(func() {
		s.inbox.push(func() { c.remoteClosed(s, "control channel closed") })
	})
}

func (c *Client) playRemote(s *session, src media.PacketSource) {
	if !c.live(s) || c.player == nil {
		return
	}
	if err := c.player.Attach(src); err != nil {
		slog.Warn("attach remote audio", "session", s.id, "error", err)
	}
}

func (c *Client) peerLost(s *session, st PeerState) {
	if st == PeerFailed && c.live(s) {
		c.handlers.error("Connection failed")
	}
	c.remoteClosed(s, "peer connection "+st.String())
}

func (c *Client) channelError(s *session, err error) {
	if !c.live(s) {
		return
	}
	slog.Warn("control channel error", "session", s.id, "error", err)
	c.handlers.error("Data channel error")
	c.remoteClosed(s, "control channel error")
}

// remoteClosed ends a live session the remote side dropped.
func (c *Client) remoteClosed(s *session, reason string) {
	if wasConnected := c.teardown(s); wasConnected {
		slog.Info("disconnected", "session", s.id, "reason", reason)
		c.handlers.disconnected()
	}
}

// Disconnect ends the session. It is safe to call at any time, any number
// of times. OnDisconnected fires once for each session that connected.
func (c *Client) Disconnect() {
	c.mu.Lock()
	s := c.sess
	c.mu.Unlock()
	if s == nil {
		return
	}
	if c.teardown(s) {
		slog.Info("disconnected", "session", s.id, "reason", "local")
		c.handlers.disconnected()
	}
}

// teardown releases every handle of s. It reports whether s was connected;
// only the first call for a session does any work.
func (c *Client) teardown(s *session) bool {
	c.mu.Lock()
	if c.sess != s {
		c.mu.Unlock()
		return false
	}
	c.sess = nil
	wasConnected := s.connected
	s.connected = false
	capture, channel, peer, analyser := s.capture, s.channel, s.peer, s.analyser
	s.capture, s.channel, s.peer, s.analyser = nil, nil, nil, nil
	c.mu.Unlock()

	s.cancel()
	if capture != nil {
		capture.Stop()
	}
	if channel != nil {
		channel.Close()
	}
	if peer != nil {
		peer.Close()
	}
	if analyser != nil {
		analyser.Close()
	}
	if c.player != nil && !s.text {
		c.player.Stop()
	}
	return wasConnected
}

func (c *Client) sampleLevel(s *session) {
	c.mu.Lock()
	an := s.analyser
	c.mu.Unlock()
	if an == nil {
		return
	}
	t := time.NewTicker(c.levelInterval)
	defer t.Stop()
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-t.C:
			c.handlers.audioLevel(an.Level())
		}
	}
}

// inbox is an unbounded FIFO of work drained by one goroutine.
type inbox struct {
	mu    sync.Mutex
	queue []func()
	wake  chan struct{}
}

func newInbox() *inbox {
	return &inbox{wake: make(chan struct{}, 1)}
}

func (q *inbox) push(fn func()) {
	q.mu.Lock()
	q.queue = append(q.queue, fn)
	q.mu.Unlock()
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

func (q *inbox) run(ctx context.Context) {
	for {
		q.mu.Lock()
		batch := q.queue
		q.queue = nil
		q.mu.Unlock()

		for _, fn := range batch {
			if ctx.Err() != nil {
				return
			}
			fn()
		}
		if len(batch) > 0 {
			continue
		}
		select {
		case <-ctx.Done():
			return
		case <-q.wake:
		}
	}
}
