package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pion/webrtc/v3"

	"github.com/haivivi/voiceagent/pkg/lead"
	"github.com/haivivi/voiceagent/pkg/media"
	openairealtime "github.com/haivivi/voiceagent/pkg/openai-realtime"
	"github.com/haivivi/voiceagent/pkg/token"
)

type fakeChannel struct {
	open   atomic.Bool
	closed atomic.Bool

	mu      sync.Mutex
	sent    []string
	onOpen  func()
	onMsg   func([]byte)
	onClose func()
	onError func(error)
}

func (c *fakeChannel) Send(text string) error {
	if !c.open.Load() {
		return errors.New("not open")
	}
	c.mu.Lock()
	c.sent = append(c.sent, text)
	c.mu.Unlock()
	return nil
}

func (c *fakeChannel) IsOpen() bool { return c.open.Load() }

func (c *fakeChannel) OnOpen(fn func()) { c.mu.Lock(); c.onOpen = fn; c.mu.Unlock() }

func (c *fakeChannel) OnMessage(fn func([]byte)) { c.mu.Lock(); c.onMsg = fn; c.mu.Unlock() }

func (c *fakeChannel) OnClose(fn func()) { c.mu.Lock(); c.onClose = fn; c.mu.Unlock() }

func (c *fakeChannel) OnError(fn func(error)) { c.mu.Lock(); c.onError = fn; c.mu.Unlock() }

func (c *fakeChannel) Close() error {
	c.closed.Store(true)
	c.open.Store(false)
	return nil
}

func (c *fakeChannel) receive(msg string) {
	c.mu.Lock()
	fn := c.onMsg
	c.mu.Unlock()
	fn([]byte(msg))
}

func (c *fakeChannel) remoteClose() {
	c.open.Store(false)
	c.mu.Lock()
	fn := c.onClose
	c.mu.Unlock()
	fn()
}

// sentTypes returns the type of every sent event.
func (c *fakeChannel) sentTypes() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []string
	for _, s := range c.sent {
		var ev struct {
			Type string `json:"type"`
		}
		json.Unmarshal([]byte(s), &ev)
		out = append(out, ev.Type)
	}
	return out
}

func (c *fakeChannel) sentEvents() []map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []map[string]any
	for _, s := range c.sent {
		var ev map[string]any
		json.Unmarshal([]byte(s), &ev)
		out = append(out, ev)
	}
	return out
}

type fakePeer struct {
	channel  *fakeChannel
	gather   chan struct{}
	answer   atomic.Value
	closed   atomic.Bool
	onState  func(PeerState)
	tracks   int
	offerErr error
}

func (p *fakePeer) AddTrack(webrtc.TrackLocal) error { p.tracks++; return nil }

func (p *fakePeer) CreateControlChannel(label string) (ControlChannel, error) {
	if label != ControlLabel {
		return nil, fmt.Errorf("label %q", label)
	}
	return p.channel, nil
}

func (p *fakePeer) OnRemoteAudio(func(media.PacketSource)) {}

func (p *fakePeer) OnStateChange(fn func(PeerState)) { p.onState = fn }

func (p *fakePeer) CreateOffer() error { return p.offerErr }

func (p *fakePeer) GatheringComplete() <-chan struct{} { return p.gather }

func (p *fakePeer) LocalDescription() string { return "v=0\r\no=- offer\r\n" }

func (p *fakePeer) SetRemoteAnswer(sdp string) error {
	p.answer.Store(sdp)
	return nil
}

func (p *fakePeer) Close() error { p.closed.Store(true); return nil }

type fakeFactory struct {
	peer *fakePeer
	cfg  PeerConfig
}

func (f *fakeFactory) NewPeer(cfg PeerConfig) (Peer, error) {
	f.cfg = cfg
	return f.peer, nil
}

type fakeAnalyser struct{ closed atomic.Bool }

func (a *fakeAnalyser) Level() float64 { return 0.5 }

func (a *fakeAnalyser) Close() { a.closed.Store(true) }

type fakeCapture struct {
	stopped  atomic.Int32
	analyser *fakeAnalyser
}

func (c *fakeCapture) Track() webrtc.TrackLocal { return nil }

func (c *fakeCapture) Analyser() media.Analyser { return c.analyser }

func (c *fakeCapture) Stop() error { c.stopped.Add(1); return nil }

type fakeMic struct {
	capture     *fakeCapture
	constraints media.Constraints
	err         error
}

func (m *fakeMic) Open(_ context.Context, c media.Constraints) (media.Capture, error) {
	m.constraints = c
	if m.err != nil {
		return nil, m.err
	}
	return m.capture, nil
}

type tokenFunc func(ctx context.Context) (*token.Token, error)

func (f tokenFunc) Token(ctx context.Context) (*token.Token, error) { return f(ctx) }

func staticToken(v string) token.Source {
	return tokenFunc(func(context.Context) (*token.Token, error) {
		return &token.Token{Value: v, ExpiresAt: time.Now().Add(time.Minute)}, nil
	})
}

// recorder logs handler calls in order.
type recorder struct {
	mu    sync.Mutex
	calls []string
	leads []lead.Data
	sums  []lead.Summary
}

func (r *recorder) add(s string) {
	r.mu.Lock()
	r.calls = append(r.calls, s)
	r.mu.Unlock()
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func (r *recorder) count(s string) int {
	n := 0
	for _, c := range r.snapshot() {
		if c == s {
			n++
		}
	}
	return n
}

func (r *recorder) handlers() Handlers {
	return Handlers{
		OnConnecting:      func() { r.add("connecting") },
		OnConnected:       func() { r.add("connected") },
		OnDisconnected:    func() { r.add("disconnected") },
		OnError:           func(msg string) { r.add("error:" + msg) },
		OnSpeechStarted:   func() { r.add("speech-started") },
		OnSpeechEnded:     func() { r.add("speech-ended") },
		OnTranscript:      func(text string, final bool) { r.add(fmt.Sprintf("transcript:%s:%v", text, final)) },
		OnResponseStarted: func() { r.add("response-started") },
		OnResponseText:    func(text string, final bool) { r.add(fmt.Sprintf("response-text:%s:%v", text, final)) },
		OnResponseEnded:   func() { r.add("response-ended") },
		OnLeadCaptured: func(d lead.Data) {
			r.mu.Lock()
			r.leads = append(r.leads, d)
			r.mu.Unlock()
			r.add("lead")
		},
		OnSummaryGenerated: func(s lead.Summary) {
			r.mu.Lock()
			r.sums = append(r.sums, s)
			r.mu.Unlock()
			r.add("summary")
		},
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

type harness struct {
	client  *Client
	rec     *recorder
	peer    *fakePeer
	channel *fakeChannel
	capture *fakeCapture
	mic     *fakeMic
	factory *fakeFactory
	offers  atomic.Int32
}

// newHarness builds a client wired to fakes and an SDP endpoint that
// answers every offer, unless status is set.
func newHarness(t *testing.T, status int, opts ...Option) *harness {
	t.Helper()
	h := &harness{rec: &recorder{}}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.offers.Add(1)
		if r.Header.Get("Authorization") != "Bearer ek_test" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if status != 0 {
			w.WriteHeader(status)
			w.Write([]byte(`{"error":{"message":"call setup rejected"}}`))
			return
		}
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte("v=0\r\no=- answer\r\n"))
	}))
	t.Cleanup(srv.Close)

	h.channel = &fakeChannel{}
	h.channel.open.Store(true)
	gather := make(chan struct{})
	close(gather)
	h.peer = &fakePeer{channel: h.channel, gather: gather}
	h.factory = &fakeFactory{peer: h.peer}
	h.capture = &fakeCapture{analyser: &fakeAnalyser{}}
	h.mic = &fakeMic{capture: h.capture}

	base := []Option{
		WithAPI(openairealtime.NewClient("", openairealtime.WithHTTPURL(srv.URL))),
		WithMicrophone(h.mic),
		WithPeerFactory(h.factory),
		WithHandlers(h.rec.handlers()),
		WithConfigPollInterval(5 * time.Millisecond),
		WithGreetingDelay(10 * time.Millisecond),
		WithFinalSummaryGrace(30 * time.Millisecond),
	}
	h.client = NewClient(staticToken("ek_test"), append(base, opts...)...)
	t.Cleanup(h.client.Disconnect)
	return h
}

func (h *harness) connect(t *testing.T) {
	t.Helper()
	if err := h.client.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
}

func hasPrefix(calls []string, prefix string) bool {
	for _, c := range calls {
		if strings.HasPrefix(c, prefix) {
			return true
		}
	}
	return false
}
