// Package agent ties a realtime session to a conversation machine and the
// history store. One Agent runs one conversation at a time.
package agent

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/haivivi/voiceagent/pkg/conversation"
	"github.com/haivivi/voiceagent/pkg/history"
	"github.com/haivivi/voiceagent/pkg/lead"
	"github.com/haivivi/voiceagent/pkg/realtime"
	"github.com/haivivi/voiceagent/pkg/token"
	"github.com/haivivi/voiceagent/pkg/tools"
)

// Session is the realtime connection the agent drives. *realtime.Client
// implements it.
type Session interface {
	Connect(ctx context.Context) error
	ConnectText(ctx context.Context) error
	Disconnect()
	IsConnected() bool
	SendUserText(text string) error
	RequestFinalSummary(ctx context.Context)
	SetVoice(voice string) error
}

var _ Session = (*realtime.Client)(nil)

// Dialer builds the session with the handlers it must report to.
type Dialer func(realtime.Handlers) Session

// Client returns a Dialer creating a *realtime.Client.
func Client(tokens token.Source, opts ...realtime.Option) Dialer {
	return func(h realtime.Handlers) Session {
		return realtime.NewClient(tokens, append(slices.Clip(opts), realtime.WithHandlers(h))...)
	}
}

// Option configures an Agent.
type Option func(*Agent)

// WithHistory persists every ended conversation.
func WithHistory(h *history.History) Option {
	return func(a *Agent) { a.history = h }
}

// WithClock sets the conversation time source.
func WithClock(now func() time.Time) Option {
	return func(a *Agent) { a.now = now }
}

// WithToolObserver observes every tool call with its outcome.
func WithToolObserver(fn func(tools.Call, tools.Result)) Option {
	return func(a *Agent) { a.onTool = fn }
}

// WithLevelObserver receives the microphone level.
func WithLevelObserver(fn func(level float64)) Option {
	return func(a *Agent) { a.onLevel = fn }
}

// Agent runs conversations.
type Agent struct {
	session Session
	machine *conversation.Machine
	history *history.History
	now     func() time.Time
	onTool  func(tools.Call, tools.Result)
	onLevel func(float64)

	mu       sync.Mutex
	archived time.Time
}

// New returns an idle agent.
func New(dial Dialer, opts ...Option) *Agent {
	a := &Agent{now: time.Now}
	for _, opt := range opts {
		opt(a)
	}
	a.machine = conversation.New(
		conversation.WithClock(a.now),
		conversation.WithDismissHook(func() { a.session.Disconnect() }),
	)
	a.session = dial(a.handlers())
	a.machine.Subscribe(a.persist)
	return a
}

// Snapshot returns the current conversation.
func (a *Agent) Snapshot() conversation.Record {
	return a.machine.Snapshot()
}

// Subscribe registers fn for every conversation change.
func (a *Agent) Subscribe(fn func(conversation.Record)) (cancel func()) {
	return a.machine.Subscribe(fn)
}

// Start begins a voice conversation and blocks until it is live or failed.
func (a *Agent) Start(ctx context.Context) error {
	return a.start(ctx, a.session.Connect)
}

// StartText begins a text-only conversation.
func (a *Agent) StartText(ctx context.Context) error {
	return a.start(ctx, a.session.ConnectText)
}

func (a *Agent) start(ctx context.Context, connect func(context.Context) error) error {
	if err := a.machine.Start(); err != nil {
		return err
	}
	if err := connect(ctx); err != nil {
		if a.machine.Snapshot().State == conversation.StateConnecting {
			a.machine.Fail(errorMessage(err))
		}
		return err
	}
	return nil
}

func errorMessage(err error) string {
	switch {
	case errors.Is(err, context.Canceled):
		return "Connection cancelled"
	case errors.Is(err, context.DeadlineExceeded):
		return "Connection timed out"
	}
	return err.Error()
}

// Say sends typed caller text and records it in the transcript.
func (a *Agent) Say(text string) error {
	if err := a.session.SendUserText(text); err != nil {
		return err
	}
	a.machine.AddMessage(lead.RoleUser, text)
	return nil
}

// SetVoice changes the voice for the next conversation.
func (a *Agent) SetVoice(voice string) error {
	return a.session.SetVoice(voice)
}

// End asks the model for its final tool calls, finalizes the conversation
// and disconnects. It returns the final record.
func (a *Agent) End(ctx context.Context) conversation.Record {
	if a.session.IsConnected() {
		a.session.RequestFinalSummary(ctx)
	}
	rec := a.machine.End()
	a.session.Disconnect()
	return rec
}

// Dismiss clears an error and tears the session down.
func (a *Agent) Dismiss() {
	a.machine.Dismiss()
}

// Reset discards the conversation and disconnects.
func (a *Agent) Reset() {
	a.session.Disconnect()
	a.machine.Reset()
}

// Close disconnects without finalizing.
func (a *Agent) Close() {
	a.session.Disconnect()
}

func (a *Agent) handlers() realtime.Handlers {
	m := a.machine
	return realtime.Handlers{
		OnConnected:       m.Connected,
		OnDisconnected:    m.Disconnected,
		OnError:           m.Fail,
		OnSpeechStarted:   m.SpeechStarted,
		OnSpeechEnded:     m.SpeechStopped,
		OnTranscript:      m.Transcript,
		OnResponseStarted: m.ResponseStarted,
		OnResponseText: func(text string, final bool) {
			if final {
				m.CompleteResponse(text)
				return
			}
			m.AppendResponseDelta(text)
		},
		OnResponseEnded:     m.ResponseDone,
		OnLeadCaptured:      m.CaptureLead,
		OnCallbackScheduled: m.ScheduleCallback,
		OnSummaryGenerated:  m.SetSummary,
		OnAudioLevel: func(level float64) {
			if a.onLevel != nil {
				a.onLevel(level)
			}
		},
		OnToolCall: func(call tools.Call, result tools.Result) {
			if f, ok := result.(*tools.Failed); ok {
				slog.Warn("tool call failed", "tool", call.Name, "call_id", call.CallID, "error", f.Err)
			}
			if a.onTool != nil {
				a.onTool(call, result)
			}
		},
	}
}

// persist saves a conversation once when it ends. It runs as the first
// subscriber, so later subscribers see an ended record only after it is
// stored.
func (a *Agent) persist(r conversation.Record) {
	if a.history == nil || r.State != conversation.StateEnded {
		return
	}
	a.mu.Lock()
	if r.StartedAt.Equal(a.archived) {
		a.mu.Unlock()
		return
	}
	a.archived = r.StartedAt
	a.mu.Unlock()

	ctx := context.Background()
	snap := history.Snapshot{Messages: r.Messages, Lead: r.Lead, Summary: r.Summary}
	if err := a.history.Save(ctx, snap); err != nil {
		slog.Warn("save conversation", "error", err)
		return
	}
	id, err := a.history.Archive(ctx, snap, r.StartedAt)
	if err != nil {
		slog.Warn("archive conversation", "error", err)
		return
	}
	slog.Info("conversation saved", "id", id, "messages", len(r.Messages))
}
