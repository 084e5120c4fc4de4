package realtime

import (
	"github.com/haivivi/voiceagent/pkg/lead"
	"github.com/haivivi/voiceagent/pkg/tools"
)

// Handlers receives session callbacks. Nil fields are skipped.
//
// OnConnecting and OnConnected run on the goroutine calling Connect.
// OnAudioLevel runs on its own ticker goroutine. Everything else runs on the
// session's event goroutine in the order the events arrived.
type Handlers struct {
	OnConnecting   func()
	OnConnected    func()
	OnDisconnected func()
	OnError        func(message string)

	OnSpeechStarted func()
	OnSpeechEnded   func()

	// OnTranscript receives caller text: partial text with final=false,
	// and the finished transcript with final=true.
	OnTranscript func(text string, final bool)

	OnResponseStarted func()

	// OnResponseText receives response deltas with final=false, then the
	// complete text with final=true.
	OnResponseText func(text string, final bool)

	OnResponseEnded func()

	// OnLeadCaptured receives lead fields from capture_lead. Absent fields
	// are empty.
	OnLeadCaptured func(update lead.Data)

	// OnCallbackScheduled receives a schedule_callback request as lead
	// fields: Notes holds the request note, PreferredTime the cleaned time.
	// When nil, the request goes to OnLeadCaptured.
	OnCallbackScheduled func(update lead.Data)

	OnSummaryGenerated func(summary lead.Summary)

	// OnAudioLevel receives the input level in [0, 1] about 20 times a second.
	OnAudioLevel func(level float64)

	// OnToolCall observes every distinct tool call with its outcome.
	OnToolCall func(call tools.Call, result tools.Result)
}

func (h *Handlers) connecting() {
	if h.OnConnecting != nil {
		h.OnConnecting()
	}
}

func (h *Handlers) connected() {
	if h.OnConnected != nil {
		h.OnConnected()
	}
}

func (h *Handlers) disconnected() {
	if h.OnDisconnected != nil {
		h.OnDisconnected()
	}
}

func (h *Handlers) error(msg string) {
	if h.OnError != nil {
		h.OnError(msg)
	}
}

func (h *Handlers) speechStarted() {
	if h.OnSpeechStarted != nil {
		h.OnSpeechStarted()
	}
}

func (h *Handlers) speechEnded() {
	if h.OnSpeechEnded != nil {
		h.OnSpeechEnded()
	}
}

func (h *Handlers) transcript(text string, final bool) {
	if h.OnTranscript != nil {
		h.OnTranscript(text, final)
	}
}

func (h *Handlers) responseStarted() {
	if h.OnResponseStarted != nil {
		h.OnResponseStarted()
	}
}

func (h *Handlers) responseText(text string, final bool) {
	if h.OnResponseText != nil {
		h.OnResponseText(text, final)
	}
}

func (h *Handlers) responseEnded() {
	if h.OnResponseEnded != nil {
		h.OnResponseEnded()
	}
}

func (h *Handlers) leadCaptured(d lead.Data) {
	if h.OnLeadCaptured != nil {
		h.OnLeadCaptured(d)
	}
}

func (h *Handlers) callbackScheduled(d lead.Data) {
	if h.OnCallbackScheduled != nil {
		h.OnCallbackScheduled(d)
		return
	}
	h.leadCaptured(d)
}

func (h *Handlers) summaryGenerated(s lead.Summary) {
	if h.OnSummaryGenerated != nil {
		h.OnSummaryGenerated(s)
	}
}

func (h *Handlers) audioLevel(level float64) {
	if h.OnAudioLevel != nil {
		h.OnAudioLevel(level)
	}
}

func (h *Handlers) toolCall(call tools.Call, r tools.Result) {
	if h.OnToolCall != nil {
		h.OnToolCall(call, r)
	}
}
