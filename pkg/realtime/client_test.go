package realtime

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/haivivi/voiceagent/pkg/lead"
	"github.com/haivivi/voiceagent/pkg/token"
)

func TestDisconnect_NeverConnected(t *testing.T) {
	h := newHarness(t, 0)
	h.client.Disconnect()
	h.client.Disconnect()
	if got := h.rec.snapshot(); len(got) != 0 {
		t.Errorf("handler calls = %v, want none", got)
	}
	if h.client.IsConnected() {
		t.Error("IsConnected = true")
	}
}

func TestConnect(t *testing.T) {
	h := newHarness(t, 0)
	h.connect(t)

	if got := h.rec.snapshot(); !reflect.DeepEqual(got[:2], []string{"connecting", "connected"}) {
		t.Fatalf("calls = %v", got)
	}
	if !h.client.IsConnected() {
		t.Fatal("IsConnected = false after Connect")
	}
	if got, _ := h.peer.answer.Load().(string); !strings.HasPrefix(got, "v=0") {
		t.Errorf("answer = %q", got)
	}
	if h.peer.tracks != 1 {
		t.Errorf("tracks = %d", h.peer.tracks)
	}
	if !reflect.DeepEqual(h.factory.cfg.ICEServers, DefaultICEServers) {
		t.Errorf("ICE servers = %v", h.factory.cfg.ICEServers)
	}
	c := h.mic.constraints
	if !c.EchoCancellation || !c.NoiseSuppression || !c.AutoGainControl || c.Channels != 1 {
		t.Errorf("constraints = %+v", c)
	}

	waitFor(t, "greeting", func() bool { return len(h.channel.sentTypes()) >= 2 })
	time.Sleep(30 * time.Millisecond)
	want := []string{"session.update", "response.create"}
	if got := h.channel.sentTypes(); !reflect.DeepEqual(got, want) {
		t.Errorf("sent = %v, want %v", got, want)
	}

	h.client.Disconnect()
	h.client.Disconnect()
	if n := h.rec.count("disconnected"); n != 1 {
		t.Errorf("disconnected fired %d times", n)
	}
	if h.client.IsConnected() {
		t.Error("IsConnected after Disconnect")
	}
	if h.capture.stopped.Load() != 1 {
		t.Errorf("capture stopped %d times", h.capture.stopped.Load())
	}
	if !h.channel.closed.Load() || !h.peer.closed.Load() || !h.capture.analyser.closed.Load() {
		t.Error("handles not released")
	}
}

func TestConnect_AlreadyConnected(t *testing.T) {
	h := newHarness(t, 0)
	h.connect(t)
	if err := h.client.Connect(context.Background()); !errors.Is(err, ErrAlreadyConnected) {
		t.Fatalf("second Connect = %v, want ErrAlreadyConnected", err)
	}
	if h.rec.count("connecting") != 1 {
		t.Error("second Connect signalled connecting")
	}
}

func TestConnect_ICEGatheringTimeout(t *testing.T) {
	if ICEGatherTimeout != 5*time.Second {
		t.Fatalf("ICEGatherTimeout = %v", ICEGatherTimeout)
	}
	h := newHarness(t, 0, WithICEGatherTimeout(50*time.Millisecond))
	h.peer.gather = make(chan struct{})

	start := time.Now()
	h.connect(t)
	if d := time.Since(start); d < 50*time.Millisecond || d > 2*time.Second {
		t.Errorf("Connect took %v", d)
	}
	if h.offers.Load() != 1 {
		t.Errorf("offers = %d", h.offers.Load())
	}
}

func TestConnect_Failures(t *testing.T) {
	tests := []struct {
		name      string
		setup     func(h *harness)
		status    int
		wantInErr string
		wantPeer  bool
	}{
		{
			name:      "token",
			setup:     func(h *harness) { h.client.tokens = tokenFunc(func(context.Context) (*token.Token, error) { return nil, errors.New("quota exceeded") }) },
			wantInErr: "quota exceeded",
		},
		{
			name:      "microphone",
			setup:     func(h *harness) { h.mic.err = errors.New("permission denied") },
			wantInErr: "permission denied",
		},
		{
			name:      "signaling",
			status:    500,
			wantInErr: "call setup rejected",
			wantPeer:  true,
		},
		{
			name:      "offer",
			setup:     func(h *harness) { h.peer.offerErr = errors.New("no codecs") },
			wantInErr: "no codecs",
			wantPeer:  true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, tt.status)
			if tt.setup != nil {
				tt.setup(h)
			}
			err := h.client.Connect(context.Background())
			if err == nil || !strings.Contains(err.Error(), tt.wantInErr) {
				t.Fatalf("Connect = %v, want error containing %q", err, tt.wantInErr)
			}
			calls := h.rec.snapshot()
			if !hasPrefix(calls, "error:") || !strings.Contains(calls[len(calls)-1], tt.wantInErr) {
				t.Errorf("calls = %v", calls)
			}
			if hasPrefix(calls, "connected") || hasPrefix(calls, "disconnected") {
				t.Errorf("calls = %v", calls)
			}
			if h.client.IsConnected() {
				t.Error("connected after failure")
			}
			if tt.wantPeer && !h.peer.closed.Load() {
				t.Error("peer not closed")
			}

			// The client is reusable after a failure.
			h.mic.err = nil
			h.peer.offerErr = nil
			h.client.tokens = staticToken("ek_test")
			if tt.status == 0 {
				h.peer.closed.Store(false)
				h.channel.closed.Store(false)
				h.channel.open.Store(true)
				if err := h.client.Connect(context.Background()); err != nil {
					t.Errorf("retry Connect: %v", err)
				}
			}
		})
	}
}

func TestDisconnectDuringConnect(t *testing.T) {
	h := newHarness(t, 0)
	h.peer.gather = make(chan struct{})

	done := make(chan error, 1)
	go func() { done <- h.client.Connect(context.Background()) }()
	waitFor(t, "connecting", func() bool { return h.rec.count("connecting") == 1 })
	waitFor(t, "peer", func() bool {
		h.client.mu.Lock()
		defer h.client.mu.Unlock()
		return h.client.sess != nil && h.client.sess.channel != nil
	})
	h.client.Disconnect()

	select {
	case err := <-done:
		if err == nil {
			t.Fatal("Connect succeeded after Disconnect")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Connect did not return")
	}
	if hasPrefix(h.rec.snapshot(), "connected") || hasPrefix(h.rec.snapshot(), "error:") {
		t.Errorf("calls = %v", h.rec.snapshot())
	}
	if !h.peer.closed.Load() {
		t.Error("peer not closed")
	}
}

func TestConfigure_WaitsForChannelAndStopsOnTeardown(t *testing.T) {
	h := newHarness(t, 0)
	h.channel.open.Store(false)
	h.connect(t)

	time.Sleep(40 * time.Millisecond)
	if got := h.channel.sentTypes(); len(got) != 0 {
		t.Fatalf("sent before open: %v", got)
	}
	h.client.Disconnect()
	h.channel.open.Store(true)
	time.Sleep(40 * time.Millisecond)
	if got := h.channel.sentTypes(); len(got) != 0 {
		t.Fatalf("sent after teardown: %v", got)
	}
}

func TestConfigure_SendsOnOpen(t *testing.T) {
	h := newHarness(t, 0)
	h.channel.open.Store(false)
	h.connect(t)
	time.Sleep(20 * time.Millisecond)
	h.channel.open.Store(true)
	waitFor(t, "session.update", func() bool { return len(h.channel.sentTypes()) >= 1 })
	if got := h.channel.sentTypes()[0]; got != "session.update" {
		t.Errorf("first event = %s", got)
	}
}

func TestEvents(t *testing.T) {
	h := newHarness(t, 0, WithGreetingDelay(time.Hour))
	h.connect(t)
	waitFor(t, "config", func() bool { return len(h.channel.sentTypes()) == 1 })

	for _, msg := range []string{
		`{"type":"session.updated","session":{"id":"s1"}}`,
		`{"type":"input_audio_buffer.speech_started","item_id":"i1"}`,
		`{"type":"input_audio_buffer.speech_stopped","item_id":"i1"}`,
		`{"type":"conversation.item.input_audio_transcription.completed","item_id":"i1","transcript":"My name is Dana"}`,
		`not json`,
		`{"type":"brand.new.event"}`,
		`{"type":"response.created","response":{"id":"r1"}}`,
		`{"type":"response.output_audio_transcript.delta","response_id":"r1","delta":"Hi "}`,
		`{"type":"response.output_audio_transcript.delta","response_id":"r1","delta":"Dana"}`,
		`{"type":"response.output_audio_transcript.done","response_id":"r1","transcript":"Hi Dana"}`,
		`{"type":"response.function_call_arguments.done","call_id":"call_1","name":"capture_lead","arguments":"{\"name\":\"Dana\"}"}`,
		`{"type":"response.output_item.done","item":{"type":"function_call","status":"completed","call_id":"call_1","name":"capture_lead","arguments":"{\"name\":\"Dana\"}"}}`,
		`{"type":"conversation.item.created","item":{"type":"function_call","call_id":"call_2","name":"generate_summary","arguments":"{\"topicsDiscussed\":\"branding, pricing\",\"sentiment\":\"positive\"}"}}`,
		`{"type":"response.function_call_arguments.done","call_id":"call_3","name":"capture_lead","arguments":"[1,2]"}`,
		`{"type":"response.done","response":{"id":"r1","status":"completed"}}`,
		`{"type":"error","error":{"type":"invalid_request_error","message":"bad tool output"}}`,
	} {
		h.channel.receive(msg)
	}

	want := []string{
		"connecting", "connected",
		"speech-started", "speech-ended",
		"transcript:My name is Dana:true",
		"response-started",
		"response-text:Hi :false", "response-text:Dana:false", "response-text:Hi Dana:true",
		"lead", "summary",
		"response-ended",
		"error:bad tool output",
	}
	waitFor(t, "events", func() bool { return len(h.rec.snapshot()) >= len(want) })
	time.Sleep(20 * time.Millisecond)
	if got := h.rec.snapshot(); !reflect.DeepEqual(got, want) {
		t.Fatalf("calls =\n%v\nwant\n%v", got, want)
	}

	h.rec.mu.Lock()
	if len(h.rec.leads) != 1 || h.rec.leads[0] != (lead.Data{Name: "Dana"}) {
		t.Errorf("leads = %+v", h.rec.leads)
	}
	if !reflect.DeepEqual(h.rec.sums[0].TopicsDiscussed, []string{"branding", "pricing"}) {
		t.Errorf("topics = %v", h.rec.sums[0].TopicsDiscussed)
	}
	h.rec.mu.Unlock()

	var outputs []string
	for _, ev := range h.channel.sentEvents() {
		if ev["type"] != "conversation.item.create" {
			continue
		}
		item := ev["item"].(map[string]any)
		if item["type"] == "function_call_output" {
			outputs = append(outputs, item["call_id"].(string))
		}
	}
	if !reflect.DeepEqual(outputs, []string{"call_1", "call_2", "call_3"}) {
		t.Errorf("acknowledged calls = %v", outputs)
	}
	if !h.client.IsConnected() {
		t.Error("server error must not tear down the session")
	}
}

func TestToolCallArgumentsAfterBareItem(t *testing.T) {
	h := newHarness(t, 0, WithGreetingDelay(time.Hour))
	h.connect(t)
	waitFor(t, "config", func() bool { return len(h.channel.sentTypes()) == 1 })

	h.channel.receive(`{"type":"conversation.item.created","item":{"type":"function_call","call_id":"call_4","name":"capture_lead"}}`)
	h.channel.receive(`{"type":"response.function_call_arguments.done","call_id":"call_4","name":"capture_lead","arguments":"{\"name\":\"Pat\",\"email\":\"pat@example.com\"}"}`)
	waitFor(t, "lead", func() bool { return h.rec.count("lead") == 1 })

	h.rec.mu.Lock()
	defer h.rec.mu.Unlock()
	if want := (lead.Data{Name: "Pat", Email: "pat@example.com"}); len(h.rec.leads) != 1 || h.rec.leads[0] != want {
		t.Errorf("leads = %+v, want [%+v]", h.rec.leads, want)
	}
}

func TestHandlers_CallbackScheduled(t *testing.T) {
	var leads, callbacks []lead.Data
	h := Handlers{
		OnLeadCaptured:      func(d lead.Data) { leads = append(leads, d) },
		OnCallbackScheduled: func(d lead.Data) { callbacks = append(callbacks, d) },
	}
	d := lead.Data{Notes: "Callback requested", PreferredTime: "friday"}
	h.callbackScheduled(d)
	if len(callbacks) != 1 || len(leads) != 0 {
		t.Fatalf("callbacks = %v, leads = %v", callbacks, leads)
	}

	h.OnCallbackScheduled = nil
	h.callbackScheduled(d)
	if len(leads) != 1 || leads[0] != d {
		t.Errorf("without a callback handler, leads = %v", leads)
	}
}

func TestRemoteClose(t *testing.T) {
	h := newHarness(t, 0)
	h.connect(t)
	h.channel.remoteClose()
	waitFor(t, "disconnect", func() bool { return h.rec.count("disconnected") == 1 })
	if h.client.IsConnected() {
		t.Error("still connected")
	}
	h.client.Disconnect()
	if n := h.rec.count("disconnected"); n != 1 {
		t.Errorf("disconnected fired %d times", n)
	}
}

func TestPeerFailed(t *testing.T) {
	h := newHarness(t, 0)
	h.connect(t)
	h.peer.onState(PeerFailed)
	waitFor(t, "disconnect", func() bool { return h.rec.count("disconnected") == 1 })
	if h.rec.count("error:Connection failed") != 1 {
		t.Errorf("calls = %v", h.rec.snapshot())
	}
}

func TestLateEventsIgnored(t *testing.T) {
	h := newHarness(t, 0)
	h.connect(t)
	h.client.Disconnect()
	before := len(h.rec.snapshot())
	h.channel.receive(`{"type":"input_audio_buffer.speech_started"}`)
	h.channel.remoteClose()
	time.Sleep(30 * time.Millisecond)
	if got := h.rec.snapshot(); len(got) != before {
		t.Errorf("late callbacks delivered: %v", got[before:])
	}
}

func TestSendUserText(t *testing.T) {
	h := newHarness(t, 0, WithGreetingDelay(time.Hour))
	if err := h.client.SendUserText("hello"); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("SendUserText before connect = %v", err)
	}
	h.connect(t)
	waitFor(t, "config", func() bool { return len(h.channel.sentTypes()) == 1 })
	if err := h.client.SendUserText("hello"); err != nil {
		t.Fatal(err)
	}
	evs := h.channel.sentEvents()
	if len(evs) != 3 || evs[1]["type"] != "conversation.item.create" || evs[2]["type"] != "response.create" {
		t.Fatalf("sent = %v", evs)
	}
	item := evs[1]["item"].(map[string]any)
	content := item["content"].([]any)[0].(map[string]any)
	if item["role"] != "user" || content["type"] != "input_text" || content["text"] != "hello" {
		t.Errorf("item = %v", item)
	}
}

func TestRequestFinalSummary(t *testing.T) {
	h := newHarness(t, 0, WithGreetingDelay(time.Hour))

	start := time.Now()
	h.client.RequestFinalSummary(context.Background())
	if time.Since(start) > 20*time.Millisecond {
		t.Error("RequestFinalSummary waited without a session")
	}

	h.connect(t)
	waitFor(t, "config", func() bool { return len(h.channel.sentTypes()) == 1 })
	start = time.Now()
	h.client.RequestFinalSummary(context.Background())
	if d := time.Since(start); d < 30*time.Millisecond {
		t.Errorf("returned after %v, before the grace period", d)
	}
	evs := h.channel.sentEvents()
	resp := evs[len(evs)-1]["response"].(map[string]any)
	if resp["tool_choice"] != "required" {
		t.Errorf("tool_choice = %v", resp["tool_choice"])
	}
	if mods := resp["output_modalities"].([]any); len(mods) != 1 || mods[0] != "text" {
		t.Errorf("output_modalities = %v", mods)
	}
	instr := resp["instructions"].(string)
	if !strings.Contains(instr, "capture_lead") || !strings.Contains(instr, "generate_summary") {
		t.Errorf("instructions = %q", instr)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	h2 := newHarness(t, 0, WithFinalSummaryGrace(time.Hour), WithGreetingDelay(time.Hour))
	h2.connect(t)
	waitFor(t, "config", func() bool { return len(h2.channel.sentTypes()) == 1 })
	h2.client.RequestFinalSummary(ctx)
}

func TestSessionConfig(t *testing.T) {
	c := NewClient(staticToken("x"), WithInstructions("be nice"))
	cfg := c.SessionConfig("coral")
	td := cfg.Audio.Input.TurnDetection
	if td.Type != "server_vad" || td.Threshold != 0.6 || td.SilenceDurationMs != 800 || td.PrefixPaddingMs != 300 {
		t.Errorf("turn detection = %+v", td)
	}
	if td.Threshold <= 0.5 || td.SilenceDurationMs <= 500 {
		t.Error("turn detection must be stricter than the server default")
	}
	if cfg.Audio.Output.Voice != "coral" || cfg.Instructions != "be nice" {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.Audio.Input.Transcription.Model != "whisper-1" {
		t.Errorf("transcription = %+v", cfg.Audio.Input.Transcription)
	}
	if len(cfg.Tools) != 3 {
		t.Errorf("tools = %d", len(cfg.Tools))
	}
}

func TestVoice(t *testing.T) {
	c := NewClient(staticToken("x"), WithVoice("nope"))
	if c.Voice() != "alloy" {
		t.Errorf("default voice = %q", c.Voice())
	}
	if err := c.SetVoice("shimmer"); err != nil {
		t.Fatal(err)
	}
	if c.Voice() != "shimmer" {
		t.Errorf("voice = %q", c.Voice())
	}
	if err := c.SetVoice("verse"); err == nil {
		t.Error("SetVoice accepted a voice outside the list")
	}
}
