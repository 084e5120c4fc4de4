package realtime

import (
	openairealtime "github.com/haivivi/voiceagent/pkg/openai-realtime"
	"github.com/haivivi/voiceagent/pkg/tools"
)

// Event is a classified server event. The concrete types are:
//
//	*SessionAck, *SpeechStarted, *SpeechStopped, *TranscriptDelta,
//	*TranscriptCompleted, *ResponseStarted, *ResponseTextDelta,
//	*ResponseTextDone, *ResponseDone, *ToolInvoked, *ServerError,
//	*Ignored, *Unknown, *Malformed
//
// Type switches over Event must have a default case; the server may add
// event types at any time.
type Event interface {
	// Type returns the wire discriminator, or "" for *Malformed.
	Type() string
}

type base struct{ typ string }

func (b base) Type() string { return b.typ }

// SessionAck is session.created or session.updated.
type SessionAck struct {
	base
	Session *openairealtime.SessionResource
}

// SpeechStarted is the start of caller speech.
type SpeechStarted struct {
	base
	ItemID       string
	AudioStartMs int
}

// SpeechStopped is the end of caller speech.
type SpeechStopped struct {
	base
	ItemID     string
	AudioEndMs int
}

// TranscriptDelta is partial caller transcription.
type TranscriptDelta struct {
	base
	ItemID string
	Delta  string
}

// TranscriptCompleted is finalized caller text.
type TranscriptCompleted struct {
	base
	ItemID string
	Text   string
}

// ResponseStarted is the start of a model response.
type ResponseStarted struct {
	base
	ResponseID string
}

// ResponseTextDelta is streamed response text or audio transcript.
type ResponseTextDelta struct {
	base
	ResponseID string
	Delta      string
}

// ResponseTextDone is the complete text of one response part.
type ResponseTextDone struct {
	base
	ResponseID string
	Text       string
}

// ResponseDone is the end of a model response.
type ResponseDone struct {
	base
	ResponseID string
	Status     string
}

// ToolInvoked is a completed function call. It is produced by several event
// shapes; the client delivers each CallID once.
type ToolInvoked struct {
	base
	Call tools.Call
}

// ServerError is an error reported by the model service.
type ServerError struct {
	base
	Err *openairealtime.Error
}

// Ignored is a known event that needs no handling.
type Ignored struct{ base }

// Unknown is an event type this client does not recognize.
type Unknown struct{ base }

// Malformed is a message that could not be decoded.
type Malformed struct {
	base
	Err error
}

// Decode parses and classifies one control-channel message. It never fails;
// undecodable input yields *Malformed.
func Decode(data []byte) Event {
	ev, err := openairealtime.ParseServerEvent(data)
	if err != nil {
		return &Malformed{Err: err}
	}
	return Classify(ev)
}

// Classify maps a server event onto the Event set.
func Classify(ev *openairealtime.ServerEvent) Event {
	b := base{ev.Type}
	switch ev.Type {
	case openairealtime.EventTypeSessionCreated, openairealtime.EventTypeSessionUpdated:
		return &SessionAck{base: b, Session: ev.Session}

	case openairealtime.EventTypeInputAudioBufferSpeechStarted:
		return &SpeechStarted{base: b, ItemID: ev.ItemID, AudioStartMs: ev.AudioStartMs}
	case openairealtime.EventTypeInputAudioBufferSpeechStopped:
		return &SpeechStopped{base: b, ItemID: ev.ItemID, AudioEndMs: ev.AudioEndMs}

	case openairealtime.EventTypeConversationItemInputAudioTranscriptionDelta:
		return &TranscriptDelta{base: b, ItemID: ev.ItemID, Delta: ev.Delta}
	case openairealtime.EventTypeConversationItemInputAudioTranscriptionCompleted:
		return &TranscriptCompleted{base: b, ItemID: ev.ItemID, Text: ev.Transcript}

	case openairealtime.EventTypeResponseCreated:
		return &ResponseStarted{base: b, ResponseID: responseID(ev)}

	case openairealtime.EventTypeResponseOutputTextDelta,
		openairealtime.EventTypeResponseOutputAudioTranscriptDelta,
		openairealtime.EventTypeResponseTextDelta,
		openairealtime.EventTypeResponseAudioTranscriptDelta:
		return &ResponseTextDelta{base: b, ResponseID: ev.ResponseID, Delta: ev.Delta}

	case openairealtime.EventTypeResponseOutputTextDone, openairealtime.EventTypeResponseTextDone:
		return &ResponseTextDone{base: b, ResponseID: ev.ResponseID, Text: ev.Text}
	case openairealtime.EventTypeResponseOutputAudioTranscriptDone, openairealtime.EventTypeResponseAudioTranscriptDone:
		return &ResponseTextDone{base: b, ResponseID: ev.ResponseID, Text: ev.Transcript}

	case openairealtime.EventTypeResponseDone:
		done := &ResponseDone{base: b, ResponseID: responseID(ev)}
		if ev.Response != nil {
			done.Status = ev.Response.Status
		}
		return done

	case openairealtime.EventTypeResponseFunctionCallArgumentsDone:
		return &ToolInvoked{base: b, Call: tools.Call{Name: ev.Name, CallID: ev.CallID, Arguments: ev.Arguments}}

	case openairealtime.EventTypeResponseOutputItemDone,
		openairealtime.EventTypeConversationItemCreated,
		openairealtime.EventTypeConversationItemAdded,
		openairealtime.EventTypeConversationItemDone:
		final := ev.Type == openairealtime.EventTypeResponseOutputItemDone || ev.Type == openairealtime.EventTypeConversationItemDone
		if call, ok := completedCall(ev.Item, final); ok {
			return &ToolInvoked{base: b, Call: call}
		}
		return &Ignored{base: b}

	case openairealtime.EventTypeError:
		e := ev.Error
		if e == nil {
			e = &openairealtime.Error{Message: "unknown error"}
		}
		return &ServerError{base: b, Err: e}

	case openairealtime.EventTypeConversationItemInputAudioTranscriptionFailed,
		openairealtime.EventTypeInputAudioBufferCommitted,
		openairealtime.EventTypeInputAudioBufferCleared,
		openairealtime.EventTypeResponseOutputItemAdded,
		openairealtime.EventTypeResponseContentPartAdded,
		openairealtime.EventTypeResponseContentPartDone,
		openairealtime.EventTypeResponseOutputAudioDelta,
		openairealtime.EventTypeResponseOutputAudioDone,
		openairealtime.EventTypeResponseFunctionCallArgumentsDelta,
		openairealtime.EventTypeRateLimitsUpdated:
		return &Ignored{base: b}
	}
	return &Unknown{base: b}
}

func responseID(ev *openairealtime.ServerEvent) string {
	if ev.Response != nil && ev.Response.ID != "" {
		return ev.Response.ID
	}
	return ev.ResponseID
}

// completedCall extracts a finished function call from an item. Calls still
// streaming their arguments are not complete. Items of a done event are
// complete unless their status says otherwise; other items without a status
// count only when they already carry arguments.
func completedCall(item *openairealtime.ConversationItem, final bool) (tools.Call, bool) {
	if item == nil || item.Type != openairealtime.ItemTypeFunctionCall || item.CallID == "" {
		return tools.Call{}, false
	}
	switch item.Status {
	case "completed":
	case "":
		if !final && item.Arguments == "" {
			return tools.Call{}, false
		}
	default:
		return tools.Call{}, false
	}
	return tools.Call{Name: item.Name, CallID: item.CallID, Arguments: item.Arguments}, true
}
