package openairealtime

import "github.com/google/jsonschema-go/jsonschema"

// Models supported by the Realtime API.
const (
	ModelGPTRealtime          = "gpt-realtime"
	ModelGPTRealtimeMini      = "gpt-realtime-mini"
	ModelGPT4oRealtimePreview = "gpt-4o-realtime-preview"
)

// Audio format types.
const (
	AudioFormatPCM  = "audio/pcm"
	AudioFormatPCMU = "audio/pcmu"
	AudioFormatPCMA = "audio/pcma"

	// DefaultSampleRate is the only PCM rate the API accepts.
	DefaultSampleRate = 24000
)

// Voice options for audio output.
const (
	VoiceAlloy   = "alloy"
	VoiceAsh     = "ash"
	VoiceBallad  = "ballad"
	VoiceCoral   = "coral"
	VoiceEcho    = "echo"
	VoiceSage    = "sage"
	VoiceShimmer = "shimmer"
	VoiceVerse   = "verse"
)

// VAD modes for turn detection.
const (
	VADServerVAD   = "server_vad"
	VADSemanticVAD = "semantic_vad"
)

// Modality types.
const (
	ModalityText  = "text"
	ModalityAudio = "audio"
)

// Tool choice options.
const (
	ToolChoiceAuto     = "auto"
	ToolChoiceNone     = "none"
	ToolChoiceRequired = "required"
)

// Conversation item types.
const (
	ItemTypeMessage            = "message"
	ItemTypeFunctionCall       = "function_call"
	ItemTypeFunctionCallOutput = "function_call_output"
)

// SessionType is the session.type value for speech-to-speech sessions.
const SessionType = "realtime"

// SessionConfig is the payload of a session.update event.
type SessionConfig struct {
	// Type is always "realtime" for voice sessions.
	Type string `json:"type"`

	Model string `json:"model,omitzero"`

	// Instructions is the system prompt.
	Instructions string `json:"instructions,omitzero"`

	// OutputModalities is ["audio"] or ["text"].
	OutputModalities []string `json:"output_modalities,omitzero"`

	Audio *AudioConfig `json:"audio,omitzero"`

	Tools []Tool `json:"tools,omitzero"`

	// ToolChoice is "auto", "none", "required" or a function selector object.
	ToolChoice any `json:"tool_choice,omitzero"`

	MaxOutputTokens any `json:"max_output_tokens,omitzero"`
}

// AudioConfig groups the input and output audio settings.
type AudioConfig struct {
	Input  *AudioInput  `json:"input,omitzero"`
	Output *AudioOutput `json:"output,omitzero"`
}

// AudioInput configures caller audio handling.
type AudioInput struct {
	Format         *AudioFormat         `json:"format,omitzero"`
	Transcription  *TranscriptionConfig `json:"transcription,omitzero"`
	TurnDetection  *TurnDetection       `json:"turn_detection,omitzero"`
	NoiseReduction *NoiseReduction      `json:"noise_reduction,omitzero"`
}

// AudioOutput configures model audio.
type AudioOutput struct {
	Format *AudioFormat `json:"format,omitzero"`
	Voice  string       `json:"voice,omitzero"`
	Speed  float64      `json:"speed,omitzero"`
}

// AudioFormat describes a PCM or G.711 stream.
type AudioFormat struct {
	Type string `json:"type"`
	Rate int    `json:"rate,omitzero"`
}

// NoiseReduction selects server-side input noise reduction.
// Type is "near_field" or "far_field".
type NoiseReduction struct {
	Type string `json:"type"`
}

// TranscriptionConfig configures input audio transcription.
type TranscriptionConfig struct {
	// Model is the transcription model, e.g. "whisper-1".
	Model    string `json:"model,omitzero"`
	Language string `json:"language,omitzero"`
	Prompt   string `json:"prompt,omitzero"`
}

// TurnDetection configures voice activity detection.
type TurnDetection struct {
	// Type is the VAD mode: "server_vad" or "semantic_vad".
	Type string `json:"type,omitzero"`

	// Threshold is the VAD activation threshold (0.0-1.0). Server default 0.5.
	Threshold float64 `json:"threshold,omitzero"`

	// PrefixPaddingMs is audio kept before detected speech. Server default 300.
	PrefixPaddingMs int `json:"prefix_padding_ms,omitzero"`

	// SilenceDurationMs is the silence that ends a turn. Server default 500.
	SilenceDurationMs int `json:"silence_duration_ms,omitzero"`

	// CreateResponse makes the server respond when a turn ends. Default true.
	CreateResponse *bool `json:"create_response,omitzero"`

	// InterruptResponse cancels the model when the caller speaks. Default true.
	InterruptResponse *bool `json:"interrupt_response,omitzero"`

	// Eagerness is "low", "medium" or "high" (semantic_vad only).
	Eagerness string `json:"eagerness,omitzero"`
}

// Tool defines a function tool available to the model.
type Tool struct {
	// Type is always "function".
	Type string `json:"type"`

	Name        string `json:"name"`
	Description string `json:"description,omitzero"`

	// Parameters is the JSON Schema for the function arguments.
	Parameters *jsonschema.Schema `json:"parameters,omitzero"`
}

// ResponseCreateOptions is the optional body of a response.create event.
type ResponseCreateOptions struct {
	// OutputModalities overrides the session modalities for this response.
	OutputModalities []string `json:"output_modalities,omitzero"`

	// Instructions overrides the session instructions for this response.
	Instructions string `json:"instructions,omitzero"`

	// ToolChoice overrides the tool choice for this response.
	ToolChoice any `json:"tool_choice,omitzero"`

	// Conversation is "auto" (default) or "none".
	Conversation string `json:"conversation,omitzero"`

	MaxOutputTokens any `json:"max_output_tokens,omitzero"`
}

// SessionResource represents the session state returned by the server.
type SessionResource struct {
	ID               string   `json:"id,omitzero"`
	Object           string   `json:"object,omitzero"`
	Type             string   `json:"type,omitzero"`
	Model            string   `json:"model,omitzero"`
	ExpiresAt        int64    `json:"expires_at,omitzero"`
	OutputModalities []string `json:"output_modalities,omitzero"`
	Instructions     string   `json:"instructions,omitzero"`
}

// ConversationItem represents an item in the conversation.
type ConversationItem struct {
	ID        string        `json:"id,omitzero"`
	Object    string        `json:"object,omitzero"`
	Type      string        `json:"type,omitzero"` // "message", "function_call", "function_call_output"
	Status    string        `json:"status,omitzero"`
	Role      string        `json:"role,omitzero"` // "user", "assistant", "system"
	Content   []ContentPart `json:"content,omitzero"`
	CallID    string        `json:"call_id,omitzero"`
	Name      string        `json:"name,omitzero"`
	Arguments string        `json:"arguments,omitzero"`
	Output    string        `json:"output,omitzero"`
}

// ContentPart represents a part of message content.
type ContentPart struct {
	Type       string `json:"type,omitzero"` // "input_text", "input_audio", "output_text", "output_audio"
	Text       string `json:"text,omitzero"`
	Transcript string `json:"transcript,omitzero"`
}

// ResponseResource represents a response from the model.
type ResponseResource struct {
	ID     string             `json:"id,omitzero"`
	Object string             `json:"object,omitzero"`
	Status string             `json:"status,omitzero"` // "in_progress", "completed", "cancelled", "incomplete", "failed"
	Output []ConversationItem `json:"output,omitzero"`
}
