// Package conversation holds the state of one lead conversation: its
// lifecycle, turn-taking, transcript and the lead data gathered so far.
package conversation

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/haivivi/voiceagent/pkg/extract"
	"github.com/haivivi/voiceagent/pkg/lead"
)

// State is the conversation lifecycle state.
type State string

const (
	StateIdle       State = "idle"
	StateConnecting State = "connecting"
	StateActive     State = "active"
	StateEnded      State = "ended"
	StateError      State = "error"
)

// Activity is the turn-taking state. It is only meaningful while Active.
type Activity string

const (
	ActivityIdle      Activity = "idle"
	ActivityListening Activity = "listening"
	ActivityThinking  Activity = "thinking"
	ActivitySpeaking  Activity = "speaking"
)

// ErrInvalidTransition is returned by Start outside idle and ended.
var ErrInvalidTransition = errors.New("conversation: invalid transition")

// Record is a snapshot of the conversation.
type Record struct {
	State     State
	Activity  Activity
	Messages  []lead.Message
	Lead      *lead.Data
	Summary   *lead.Summary
	StartedAt time.Time
	Error     string

	// PendingTranscript is caller speech not yet transcribed in full.
	PendingTranscript string

	// PendingResponse is response text still streaming.
	PendingResponse string
}

func (r Record) clone() Record {
	r.Messages = append([]lead.Message(nil), r.Messages...)
	if r.Lead != nil {
		l := *r.Lead
		r.Lead = &l
	}
	r.Summary = r.Summary.Clone()
	return r
}

// Machine applies session events to a Record. It is safe for concurrent
// use; subscribers see every change in the order the goroutine driving the
// machine made them.
type Machine struct {
	now       func() time.Time
	onDismiss func()

	mu      sync.Mutex
	rec     Record
	live    bool // the current conversation reached active
	subs    map[int]func(Record)
	nextSub int
}

// Option configures a Machine.
type Option func(*Machine)

// WithClock sets the time source.
func WithClock(now func() time.Time) Option {
	return func(m *Machine) { m.now = now }
}

// WithDismissHook sets a function run when an error is dismissed.
func WithDismissHook(fn func()) Option {
	return func(m *Machine) { m.onDismiss = fn }
}

// New returns an idle machine.
func New(opts ...Option) *Machine {
	m := &Machine{
		now:  time.Now,
		rec:  Record{State: StateIdle, Activity: ActivityIdle},
		subs: make(map[int]func(Record)),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Snapshot returns a copy of the current record.
func (m *Machine) Snapshot() Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rec.clone()
}

// Subscribe registers fn to receive a copy of the record after each change.
// The returned function unsubscribes.
func (m *Machine) Subscribe(fn func(Record)) (cancel func()) {
	m.mu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	m.mu.Unlock()
	return func() {
		m.mu.Lock()
		delete(m.subs, id)
		m.mu.Unlock()
	}
}

// update applies fn under the lock and notifies subscribers if fn reports
// a change.
func (m *Machine) update(fn func(r *Record) bool) {
	m.mu.Lock()
	if !fn(&m.rec) {
		m.mu.Unlock()
		return
	}
	snap := m.rec.clone()
	subs := make([]func(Record), 0, len(m.subs))
	for i := 0; i < m.nextSub; i++ {
		if s, ok := m.subs[i]; ok {
			subs = append(subs, s)
		}
	}
	m.mu.Unlock()
	for _, s := range subs {
		s(snap.clone())
	}
}

// Start begins a new conversation: the transcript, lead and summary are
// cleared and the start time recorded.
func (m *Machine) Start() error {
	var err error
	m.update(func(r *Record) bool {
		if r.State != StateIdle && r.State != StateEnded {
			err = ErrInvalidTransition
			return false
		}
		*r = Record{
			State:     StateConnecting,
			Activity:  ActivityIdle,
			StartedAt: m.now(),
		}
		m.live = false
		return true
	})
	return err
}

// Connected marks the session live.
func (m *Machine) Connected() {
	m.update(func(r *Record) bool {
		if r.State != StateConnecting {
			return false
		}
		r.State = StateActive
		r.Activity = ActivityListening
		m.live = true
		return true
	})
}

// Disconnected ends a conversation the session dropped unexpectedly,
// including one that reported an error after it went live.
func (m *Machine) Disconnected() {
	m.mu.Lock()
	ok := m.endable()
	m.mu.Unlock()
	if ok {
		m.End()
	}
}

// endable reports whether End would finalize the record. The lock must be
// held.
func (m *Machine) endable() bool {
	switch m.rec.State {
	case StateActive, StateConnecting:
		return true
	case StateError:
		return m.live
	}
	return false
}

func (m *Machine) setActivity(a Activity, also func(r *Record)) {
	m.update(func(r *Record) bool {
		if r.State != StateActive {
			return false
		}
		r.Activity = a
		if also != nil {
			also(r)
		}
		return true
	})
}

// SpeechStarted: the caller started talking. Partial transcript text of the
// previous turn that never got a final version is kept as a message.
func (m *Machine) SpeechStarted() {
	m.setActivity(ActivityListening, m.commitTranscript)
}

// SpeechStopped: the caller stopped talking.
func (m *Machine) SpeechStopped() { m.setActivity(ActivityThinking, nil) }

func (m *Machine) commitTranscript(r *Record) {
	if p := strings.TrimSpace(r.PendingTranscript); p != "" {
		m.appendMessage(r, lead.RoleUser, p)
	}
	r.PendingTranscript = ""
}

// ResponseStarted: the model started responding.
func (m *Machine) ResponseStarted() { m.setActivity(ActivitySpeaking, nil) }

// ResponseDone: the model finished responding. Text still streaming is
// committed as the response.
func (m *Machine) ResponseDone() {
	m.setActivity(ActivityListening, func(r *Record) {
		m.commitResponse(r, "")
	})
}

// Transcript records caller text. Partial text accumulates until the final
// transcript replaces it.
func (m *Machine) Transcript(text string, final bool) {
	if final {
		m.update(func(r *Record) bool {
			r.PendingTranscript = ""
			if strings.TrimSpace(text) != "" {
				m.appendMessage(r, lead.RoleUser, text)
			}
			return true
		})
		return
	}
	m.update(func(r *Record) bool {
		if text == "" {
			return false
		}
		r.PendingTranscript += text
		return true
	})
}

// AddMessage appends a message and returns it.
func (m *Machine) AddMessage(role lead.Role, content string) lead.Message {
	var msg lead.Message
	m.update(func(r *Record) bool {
		msg = m.appendMessage(r, role, content)
		return true
	})
	return msg
}

func (m *Machine) appendMessage(r *Record, role lead.Role, content string) lead.Message {
	msg := lead.Message{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   strings.TrimSpace(content),
		Timestamp: m.now(),
	}
	r.Messages = append(r.Messages, msg)
	return msg
}

// AppendResponseDelta adds streamed response text.
func (m *Machine) AppendResponseDelta(delta string) {
	m.update(func(r *Record) bool {
		if delta == "" {
			return false
		}
		r.PendingResponse += delta
		return true
	})
}

// CompleteResponse commits the response as an assistant message. An empty
// text commits what has streamed so far.
func (m *Machine) CompleteResponse(text string) {
	m.update(func(r *Record) bool {
		return m.commitResponse(r, text)
	})
}

func (m *Machine) commitResponse(r *Record, text string) bool {
	if strings.TrimSpace(text) == "" {
		text = r.PendingResponse
	}
	r.PendingResponse = ""
	if strings.TrimSpace(text) == "" {
		return false
	}
	m.appendMessage(r, lead.RoleAssistant, text)
	return true
}

// CaptureLead merges update into the lead. Empty fields keep their values.
// An ended conversation is not changed.
func (m *Machine) CaptureLead(update lead.Data) {
	m.updateLead(func(cur lead.Data) lead.Data { return cur.Merge(update) })
}

// ScheduleCallback records a callback request: the preferred time is merged
// and the request note is appended to the existing notes.
func (m *Machine) ScheduleCallback(update lead.Data) {
	m.updateLead(func(cur lead.Data) lead.Data {
		note := update.Notes
		update.Notes = ""
		return cur.Merge(update).AppendNote(note)
	})
}

func (m *Machine) updateLead(fn func(lead.Data) lead.Data) {
	m.update(func(r *Record) bool {
		if r.State == StateEnded {
			return false
		}
		cur := lead.Data{}
		if r.Lead != nil {
			cur = *r.Lead
		}
		merged := fn(cur)
		r.Lead = &merged
		return true
	})
}

// SetSummary stores the model's summary. A later summary replaces an
// earlier one. An ended conversation is not changed.
func (m *Machine) SetSummary(s lead.Summary) {
	m.update(func(r *Record) bool {
		if r.State == StateEnded {
			return false
		}
		r.Summary = s.Clone()
		return true
	})
}

// End finalizes the conversation and returns the final record. Gaps in the
// lead and summary are filled from the transcript, then the duration and
// message count are set from local measurement. End finalizes a connecting
// or active conversation, and one that reported an error after going live;
// otherwise it does nothing.
func (m *Machine) End() Record {
	var out Record
	m.update(func(r *Record) bool {
		if !m.endable() {
			out = r.clone()
			return false
		}
		m.live = false
		m.commitTranscript(r)
		m.commitResponse(r, "")
		finalize(r, m.now())
		r.State = StateEnded
		r.Activity = ActivityIdle
		out = r.clone()
		return true
	})
	return out
}

func finalize(r *Record, now time.Time) {
	if r.Lead == nil || needsFallback(*r.Lead) {
		found := extract.Lead(r.Messages)
		cur := lead.Data{}
		if r.Lead != nil {
			cur = *r.Lead
		}
		merged := found.Merge(cur)
		if !merged.IsEmpty() {
			r.Lead = &merged
		}
	}

	s := lead.Summary{}
	if r.Summary != nil {
		s = *r.Summary.Clone()
	}
	if summaryIncomplete(s) {
		local := extract.Summary(r.Messages)
		if len(s.TopicsDiscussed) == 0 {
			s.TopicsDiscussed = local.TopicsDiscussed
		}
		if len(s.KeyQuestions) == 0 {
			s.KeyQuestions = local.KeyQuestions
		}
		if len(s.FollowUpActions) == 0 {
			s.FollowUpActions = local.FollowUpActions
		}
		if s.Sentiment == "" {
			s.Sentiment = local.Sentiment
		}
	}
	d := now.Sub(r.StartedAt)
	if d < 0 {
		d = 0
	}
	s.Duration = int(d / time.Second)
	s.MessageCount = len(r.Messages)
	r.Summary = &s
}

func needsFallback(d lead.Data) bool {
	return d.Name == "" || !d.HasContact()
}

func summaryIncomplete(s lead.Summary) bool {
	return len(s.TopicsDiscussed) == 0 || len(s.FollowUpActions) == 0 || s.Sentiment == ""
}

// Fail records an error. Idle conversations stay idle.
func (m *Machine) Fail(message string) {
	m.update(func(r *Record) bool {
		if r.State == StateIdle {
			return false
		}
		r.State = StateError
		r.Activity = ActivityIdle
		r.Error = message
		return true
	})
}

// Dismiss acknowledges an error and returns to idle. The dismiss hook runs
// afterwards so the session is torn down as well.
func (m *Machine) Dismiss() {
	dismissed := false
	m.update(func(r *Record) bool {
		if r.State != StateError {
			return false
		}
		r.State = StateIdle
		r.Activity = ActivityIdle
		r.Error = ""
		dismissed = true
		return true
	})
	if dismissed && m.onDismiss != nil {
		m.onDismiss()
	}
}

// Reset clears the conversation back to an empty idle record.
func (m *Machine) Reset() {
	m.update(func(r *Record) bool {
		*r = Record{State: StateIdle, Activity: ActivityIdle}
		m.live = false
		return true
	})
}
