package openairealtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
)

// Client event types (sent from client to server).
const (
	EventTypeSessionUpdate = "session.update"

	EventTypeInputAudioBufferAppend = "input_audio_buffer.append"
	EventTypeInputAudioBufferCommit = "input_audio_buffer.commit"
	EventTypeInputAudioBufferClear  = "input_audio_buffer.clear"

	EventTypeConversationItemCreate = "conversation.item.create"
	EventTypeConversationItemDelete = "conversation.item.delete"

	EventTypeResponseCreate = "response.create"
	EventTypeResponseCancel = "response.cancel"
)

// Server event types (sent from server to client).
const (
	EventTypeError = "error"

	EventTypeSessionCreated = "session.created"
	EventTypeSessionUpdated = "session.updated"

	EventTypeConversationItemCreated                          = "conversation.item.created"
	EventTypeConversationItemAdded                            = "conversation.item.added"
	EventTypeConversationItemDone                             = "conversation.item.done"
	EventTypeConversationItemInputAudioTranscriptionDelta     = "conversation.item.input_audio_transcription.delta"
	EventTypeConversationItemInputAudioTranscriptionCompleted = "conversation.item.input_audio_transcription.completed"
	EventTypeConversationItemInputAudioTranscriptionFailed    = "conversation.item.input_audio_transcription.failed"

	EventTypeInputAudioBufferCommitted     = "input_audio_buffer.committed"
	EventTypeInputAudioBufferCleared       = "input_audio_buffer.cleared"
	EventTypeInputAudioBufferSpeechStarted = "input_audio_buffer.speech_started"
	EventTypeInputAudioBufferSpeechStopped = "input_audio_buffer.speech_stopped"

	EventTypeResponseCreated          = "response.created"
	EventTypeResponseDone             = "response.done"
	EventTypeResponseOutputItemAdded  = "response.output_item.added"
	EventTypeResponseOutputItemDone   = "response.output_item.done"
	EventTypeResponseContentPartAdded = "response.content_part.added"
	EventTypeResponseContentPartDone  = "response.content_part.done"

	EventTypeResponseOutputTextDelta = "response.output_text.delta"
	EventTypeResponseOutputTextDone  = "response.output_text.done"

	EventTypeResponseOutputAudioDelta           = "response.output_audio.delta"
	EventTypeResponseOutputAudioDone            = "response.output_audio.done"
	EventTypeResponseOutputAudioTranscriptDelta = "response.output_audio_transcript.delta"
	EventTypeResponseOutputAudioTranscriptDone  = "response.output_audio_transcript.done"

	EventTypeResponseFunctionCallArgumentsDelta = "response.function_call_arguments.delta"
	EventTypeResponseFunctionCallArgumentsDone  = "response.function_call_arguments.done"

	EventTypeRateLimitsUpdated = "rate_limits.updated"
)

// Beta-era names some deployments still emit for the same events.
const (
	EventTypeResponseTextDelta            = "response.text.delta"
	EventTypeResponseTextDone             = "response.text.done"
	EventTypeResponseAudioTranscriptDelta = "response.audio_transcript.delta"
	EventTypeResponseAudioTranscriptDone  = "response.audio_transcript.done"
)

// ServerEvent is a server event received over the control channel.
// Only the fields relevant to Type are populated.
type ServerEvent struct {
	Type    string `json:"type"`
	EventID string `json:"event_id,omitzero"`

	// Session is set for session.created and session.updated.
	Session *SessionResource `json:"session,omitzero"`

	// Item is set for conversation.item.* and response.output_item.* events.
	Item *ConversationItem `json:"item,omitzero"`

	ItemID         string `json:"item_id,omitzero"`
	PreviousItemID string `json:"previous_item_id,omitzero"`
	AudioStartMs   int    `json:"audio_start_ms,omitzero"`
	AudioEndMs     int    `json:"audio_end_ms,omitzero"`

	// Transcript is the input transcription or the audio transcript (done events).
	Transcript string `json:"transcript,omitzero"`

	// Text is the complete text of response.output_text.done.
	Text string `json:"text,omitzero"`

	// Delta carries incremental text or function arguments.
	Delta string `json:"delta,omitzero"`

	Response     *ResponseResource `json:"response,omitzero"`
	ResponseID   string            `json:"response_id,omitzero"`
	OutputIndex  int               `json:"output_index,omitzero"`
	ContentIndex int               `json:"content_index,omitzero"`

	// Function call fields of response.function_call_arguments.done.
	CallID    string `json:"call_id,omitzero"`
	Name      string `json:"name,omitzero"`
	Arguments string `json:"arguments,omitzero"`

	// Error is set for error and transcription-failed events.
	Error *Error `json:"error,omitzero"`

	RateLimits []RateLimit `json:"rate_limits,omitzero"`

	// Raw contains the original JSON message.
	Raw []byte `json:"-"`
}

// RateLimit represents rate limit information.
type RateLimit struct {
	Name         string  `json:"name"`
	Limit        int     `json:"limit"`
	Remaining    int     `json:"remaining"`
	ResetSeconds float64 `json:"reset_seconds"`
}

// ParseServerEvent decodes one control-channel message. A message without a
// type discriminator is an error.
func ParseServerEvent(message []byte) (*ServerEvent, error) {
	if slog.Default().Enabled(context.Background(), slog.LevelDebug) {
		slog.Debug("received message", "len", len(message), "content", truncate(string(message), 1000))
	}

	var event ServerEvent
	if err := json.Unmarshal(message, &event); err != nil {
		return nil, fmt.Errorf("openai-realtime: parse event: %w", err)
	}
	if event.Type == "" {
		return nil, fmt.Errorf("openai-realtime: parse event: missing type")
	}
	event.Raw = message
	return &event, nil
}

// MarshalClientEvent encodes a client event, filling in event_id when absent.
func MarshalClientEvent(event map[string]any) ([]byte, error) {
	if _, ok := event["event_id"]; !ok {
		event["event_id"] = NewEventID()
	}
	data, err := json.Marshal(event)
	if err != nil {
		return nil, err
	}
	if slog.Default().Enabled(context.Background(), slog.LevelDebug) {
		slog.Debug("sending event", "type", event["type"], "content", truncate(string(data), 500))
	}
	return data, nil
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n] + "..."
	}
	return s
}
