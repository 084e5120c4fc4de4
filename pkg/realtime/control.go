package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	openairealtime "github.com/haivivi/voiceagent/pkg/openai-realtime"
	"github.com/haivivi/voiceagent/pkg/tools"
)

// Turn detection tuned against background noise: a higher threshold and a
// longer silence window than the server defaults.
const (
	vadThreshold       = 0.6
	vadPrefixPaddingMs = 300
	vadSilenceMs       = 800
)

const transcriptionModel = "whisper-1"

const finalSummaryInstructions = "The call is ending. Using only what the caller has already told you, " +
	"call capture_lead with every contact detail you know, then call generate_summary. " +
	"Do not say anything else."

// toolOutput is the function_call_output that completes a call on the
// model side.
func toolOutput(r tools.Result) string {
	switch r := r.(type) {
	case *tools.Failed:
		data, _ := json.Marshal(map[string]any{"ok": false, "error": r.Err.Error()})
		return string(data)
	case *tools.Unknown:
		return `{"ok":false,"error":"unknown tool"}`
	}
	return `{"ok":true}`
}

// SessionConfig returns the session.update payload for voice.
func (c *Client) SessionConfig(voice string) openairealtime.SessionConfig {
	pcm := &openairealtime.AudioFormat{Type: openairealtime.AudioFormatPCM, Rate: openairealtime.DefaultSampleRate}
	return openairealtime.SessionConfig{
		Type:             openairealtime.SessionType,
		Model:            c.model,
		Instructions:     c.instructions,
		OutputModalities: []string{openairealtime.ModalityAudio},
		Audio: &openairealtime.AudioConfig{
			Input: &openairealtime.AudioInput{
				Format:        pcm,
				Transcription: &openairealtime.TranscriptionConfig{Model: transcriptionModel},
				TurnDetection: &openairealtime.TurnDetection{
					Type:              openairealtime.VADServerVAD,
					Threshold:         vadThreshold,
					PrefixPaddingMs:   vadPrefixPaddingMs,
					SilenceDurationMs: vadSilenceMs,
				},
			},
			Output: &openairealtime.AudioOutput{Format: pcm, Voice: voice},
		},
		Tools:      c.tools,
		ToolChoice: openairealtime.ToolChoiceAuto,
	}
}

func (c *Client) textSessionConfig() openairealtime.SessionConfig {
	return openairealtime.SessionConfig{
		Type:             openairealtime.SessionType,
		Model:            c.model,
		Instructions:     c.instructions,
		OutputModalities: []string{openairealtime.ModalityText},
		Tools:            c.tools,
		ToolChoice:       openairealtime.ToolChoiceAuto,
	}
}

// configure waits for the control channel to open, sends the session
// configuration and, after GreetingDelay, the greeting. It stops when the
// session ends.
func (c *Client) configure(s *session) {
	c.mu.Lock()
	ch := s.channel
	c.mu.Unlock()
	if ch == nil {
		return
	}

	t := time.NewTicker(c.configPoll)
	defer t.Stop()
	for !ch.IsOpen() {
		select {
		case <-s.ctx.Done():
			return
		case <-t.C:
		}
	}

	cfg := c.SessionConfig(s.voice)
	if s.text {
		cfg = c.textSessionConfig()
	}
	if err := c.send(s, map[string]any{
		"type":    openairealtime.EventTypeSessionUpdate,
		"session": cfg,
	}); err != nil {
		slog.Warn("send session config", "session", s.id, "error", err)
		return
	}

	select {
	case <-s.ctx.Done():
		return
	case <-time.After(c.greetingDelay):
	}
	c.greet(s)
}

func (c *Client) greet(s *session) {
	first := false
	c.attach(s, func() {
		first = !s.greeted
		s.greeted = true
	})
	if !first {
		return
	}
	if err := c.send(s, map[string]any{"type": openairealtime.EventTypeResponseCreate}); err != nil {
		slog.Warn("send greeting", "session", s.id, "error", err)
	}
}

// send writes a client event to the live channel of s.
func (c *Client) send(s *session, event map[string]any) error {
	c.mu.Lock()
	var ch ControlChannel
	if c.sess == s {
		ch = s.channel
	}
	c.mu.Unlock()
	if ch == nil || !ch.IsOpen() {
		return ErrNotConnected
	}
	data, err := openairealtime.MarshalClientEvent(event)
	if err != nil {
		return err
	}
	return ch.Send(string(data))
}

func (c *Client) current() *session {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sess == nil || !c.sess.connected {
		return nil
	}
	return c.sess
}

// SendUserText adds a typed user message and asks for a response.
func (c *Client) SendUserText(text string) error {
	s := c.current()
	if s == nil {
		return ErrNotConnected
	}
	err := c.send(s, map[string]any{
		"type": openairealtime.EventTypeConversationItemCreate,
		"item": openairealtime.ConversationItem{
			Type:    openairealtime.ItemTypeMessage,
			Role:    "user",
			Content: []openairealtime.ContentPart{{Type: "input_text", Text: text}},
		},
	})
	if err != nil {
		return err
	}
	return c.send(s, map[string]any{"type": openairealtime.EventTypeResponseCreate})
}

// RequestFinalSummary asks the model to call capture_lead and
// generate_summary from what it already knows, then waits FinalSummaryGrace
// or until ctx is done. Tool calls arrive through the handlers as usual. It
// does nothing without a live session.
func (c *Client) RequestFinalSummary(ctx context.Context) {
	s := c.current()
	if s == nil {
		return
	}
	err := c.send(s, map[string]any{
		"type": openairealtime.EventTypeResponseCreate,
		"response": openairealtime.ResponseCreateOptions{
			OutputModalities: []string{openairealtime.ModalityText},
			Instructions:     finalSummaryInstructions,
			ToolChoice:       openairealtime.ToolChoiceRequired,
		},
	})
	if err != nil {
		slog.Warn("request final summary", "session", s.id, "error", err)
		return
	}

	t := time.NewTimer(c.summaryGrace)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	case <-s.ctx.Done():
	}
}

// handleMessage runs on the event goroutine.
func (c *Client) handleMessage(s *session, data []byte) {
	if !c.live(s) {
		return
	}
	c.deliver(s, Decode(data))
}

func (c *Client) deliver(s *session, ev Event) {
	h := &c.handlers
	switch e := ev.(type) {
	case *SessionAck:
		slog.Debug("session acknowledged", "session", s.id, "type", e.Type())
	case *SpeechStarted:
		h.speechStarted()
	case *SpeechStopped:
		h.speechEnded()
	case *TranscriptDelta:
		if e.Delta != "" {
			h.transcript(e.Delta, false)
		}
	case *TranscriptCompleted:
		if e.Text != "" {
			h.transcript(e.Text, true)
		}
	case *ResponseStarted:
		h.responseStarted()
	case *ResponseTextDelta:
		if e.Delta != "" {
			h.responseText(e.Delta, false)
		}
	case *ResponseTextDone:
		if e.Text != "" {
			h.responseText(e.Text, true)
		}
	case *ResponseDone:
		h.responseEnded()
	case *ToolInvoked:
		c.invoke(s, e.Call)
	case *ServerError:
		msg := e.Err.Message
		if msg == "" {
			msg = e.Err.Error()
		}
		slog.Warn("server error", "session", s.id, "code", e.Err.Code, "message", e.Err.Message)
		h.error(msg)
	case *Ignored:
	case *Unknown:
		slog.Debug("unhandled event", "session", s.id, "type", e.Type())
	case *Malformed:
		slog.Warn("drop malformed event", "session", s.id, "error", e.Err)
	default:
		slog.Warn("unexpected event", "session", s.id, "type", ev.Type())
	}
}

// invoke dispatches a tool call once per call ID and acknowledges it.
func (c *Client) invoke(s *session, call tools.Call) {
	if call.Name == "" {
		// The arguments event of some deployments omits the name; the
		// item events that follow carry it.
		slog.Debug("tool call without name", "session", s.id, "call_id", call.CallID)
		return
	}
	if call.CallID != "" {
		if s.seenCalls[call.CallID] {
			return
		}
		s.seenCalls[call.CallID] = true
	}

	result := tools.Dispatch(call)
	slog.Info("tool call", "session", s.id, "name", call.Name, "call_id", call.CallID)
	switch r := result.(type) {
	case *tools.LeadCaptured:
		c.handlers.leadCaptured(r.Lead)
	case *tools.CallbackScheduled:
		c.handlers.callbackScheduled(r.Lead)
	case *tools.SummaryGenerated:
		c.handlers.summaryGenerated(r.Summary)
	}
	c.handlers.toolCall(call, result)

	if call.CallID == "" {
		return
	}
	err := c.send(s, map[string]any{
		"type": openairealtime.EventTypeConversationItemCreate,
		"item": openairealtime.ConversationItem{
			Type:   openairealtime.ItemTypeFunctionCallOutput,
			CallID: call.CallID,
			Output: toolOutput(result),
		},
	})
	if err != nil {
		slog.Debug("acknowledge tool call", "session", s.id, "error", err)
	}
}
