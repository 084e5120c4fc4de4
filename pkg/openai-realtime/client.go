package openairealtime

import (
	"net/http"
	"time"
)

const (
	// DefaultWebSocketURL is the default WebSocket endpoint.
	DefaultWebSocketURL = "wss://api.openai.com/v1/realtime"

	// DefaultHTTPURL is the default HTTP base for session creation and call setup.
	DefaultHTTPURL = "https://api.openai.com/v1/realtime"
)

// Client talks to the provider's HTTP and WebSocket endpoints.
//
// The API key is only needed for CreateSession. Call setup and WebSocket
// connections authenticate with the ephemeral secret passed by the caller.
type Client struct {
	config *clientConfig
}

type clientConfig struct {
	apiKey       string
	organization string
	project      string
	wsURL        string
	httpURL      string
	httpClient   *http.Client
}

// Option configures the Client.
type Option func(*clientConfig)

// NewClient creates a new client. apiKey may be empty when the client is only
// used with ephemeral credentials.
func NewClient(apiKey string, opts ...Option) *Client {
	cfg := &clientConfig{
		apiKey:     apiKey,
		wsURL:      DefaultWebSocketURL,
		httpURL:    DefaultHTTPURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return &Client{config: cfg}
}

// WithOrganization sets the organization ID for API requests.
func WithOrganization(orgID string) Option {
	return func(c *clientConfig) {
		c.organization = orgID
	}
}

// WithProject sets the project ID for API requests.
func WithProject(projectID string) Option {
	return func(c *clientConfig) {
		c.project = projectID
	}
}

// WithWebSocketURL sets the WebSocket URL.
func WithWebSocketURL(url string) Option {
	return func(c *clientConfig) {
		c.wsURL = url
	}
}

// WithHTTPURL sets the HTTP base URL.
func WithHTTPURL(url string) Option {
	return func(c *clientConfig) {
		c.httpURL = url
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *clientConfig) {
		c.httpClient = client
	}
}

func (c *Client) setAccountHeaders(h http.Header) {
	if c.config.organization != "" {
		h.Set("OpenAI-Organization", c.config.organization)
	}
	if c.config.project != "" {
		h.Set("OpenAI-Project", c.config.project)
	}
}
