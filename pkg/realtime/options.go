package realtime

import (
	"fmt"
	"slices"
	"time"

	"github.com/haivivi/voiceagent/pkg/media"
	openairealtime "github.com/haivivi/voiceagent/pkg/openai-realtime"
)

// Timing defaults.
const (
	// ICEGatherTimeout bounds the wait for ICE gathering. The offer is sent
	// with whatever candidates exist when it expires.
	ICEGatherTimeout = 5 * time.Second

	// ConfigPollInterval is how often configuration retries while the
	// control channel is not open yet.
	ConfigPollInterval = 100 * time.Millisecond

	// GreetingDelay is the wait between configuration and the greeting.
	GreetingDelay = 500 * time.Millisecond

	// FinalSummaryGrace is how long RequestFinalSummary waits for tool calls.
	FinalSummaryGrace = 3 * time.Second

	// AudioLevelInterval is the input level sampling period.
	AudioLevelInterval = 50 * time.Millisecond
)

// Voices are the voices a session may use.
var Voices = []string{
	openairealtime.VoiceAlloy,
	openairealtime.VoiceAsh,
	openairealtime.VoiceCoral,
	openairealtime.VoiceEcho,
	openairealtime.VoiceSage,
	openairealtime.VoiceShimmer,
}

// ValidVoice reports whether voice is one of Voices.
func ValidVoice(voice string) bool {
	return slices.Contains(Voices, voice)
}

// Option configures a Client.
type Option func(*Client)

// WithAPI sets the provider client used for call setup and WebSocket
// sessions.
func WithAPI(api *openairealtime.Client) Option {
	return func(c *Client) { c.api = api }
}

// WithMicrophone sets the audio input. Defaults to silence.
func WithMicrophone(m media.Microphone) Option {
	return func(c *Client) { c.mic = m }
}

// WithPlayer sets the remote audio sink. Defaults to discarding audio.
func WithPlayer(p media.Player) Option {
	return func(c *Client) { c.player = p }
}

// WithPeerFactory replaces the pion WebRTC peer.
func WithPeerFactory(f PeerFactory) Option {
	return func(c *Client) { c.peers = f }
}

// WithHandlers sets the session callbacks.
func WithHandlers(h Handlers) Option {
	return func(c *Client) { c.handlers = h }
}

// WithModel sets the model. Defaults to gpt-realtime.
func WithModel(model string) Option {
	return func(c *Client) { c.model = model }
}

// WithVoice sets the initial voice. Invalid voices are ignored.
func WithVoice(voice string) Option {
	return func(c *Client) {
		if ValidVoice(voice) {
			c.voice = voice
		}
	}
}

// WithInstructions sets the system prompt sent in the session configuration.
func WithInstructions(instructions string) Option {
	return func(c *Client) { c.instructions = instructions }
}

// WithTools replaces the tool definitions.
func WithTools(t []openairealtime.Tool) Option {
	return func(c *Client) { c.tools = t }
}

// WithICEServers sets the STUN/TURN server URLs.
func WithICEServers(urls ...string) Option {
	return func(c *Client) { c.iceServers = urls }
}

// WithICEGatherTimeout overrides ICEGatherTimeout.
func WithICEGatherTimeout(d time.Duration) Option {
	return func(c *Client) { c.iceTimeout = d }
}

// WithGreetingDelay overrides GreetingDelay.
func WithGreetingDelay(d time.Duration) Option {
	return func(c *Client) { c.greetingDelay = d }
}

// WithConfigPollInterval overrides ConfigPollInterval.
func WithConfigPollInterval(d time.Duration) Option {
	return func(c *Client) { c.configPoll = d }
}

// WithFinalSummaryGrace overrides FinalSummaryGrace.
func WithFinalSummaryGrace(d time.Duration) Option {
	return func(c *Client) { c.summaryGrace = d }
}

// SetVoice selects the voice for the next session.
func (c *Client) SetVoice(voice string) error {
	if !ValidVoice(voice) {
		return fmt.Errorf("realtime: unknown voice %q", voice)
	}
	c.mu.Lock()
	c.voice = voice
	c.mu.Unlock()
	return nil
}

// Voice returns the selected voice.
func (c *Client) Voice() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.voice
}
