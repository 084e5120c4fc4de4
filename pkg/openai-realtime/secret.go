package openairealtime

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/itchyny/gojq"
)

// SessionRequest is the body of a session-creation request.
type SessionRequest struct {
	Model string `json:"model"`
	Voice string `json:"voice,omitzero"`
}

// ClientSecret is an ephemeral credential for one realtime session.
type ClientSecret struct {
	Value     string
	ExpiresAt time.Time
}

// The provider has shipped two payload shapes: the session object with a
// nested client_secret, and the bare client secret object.
var (
	secretValueQuery   = mustCompile(`.client_secret.value // .value`)
	secretExpiresQuery = mustCompile(`.client_secret.expires_at // .expires_at // 0`)
)

func mustCompile(expr string) *gojq.Code {
	q, err := gojq.Parse(expr)
	if err != nil {
		panic(err)
	}
	code, err := gojq.Compile(q)
	if err != nil {
		panic(err)
	}
	return code
}

// CreateSession creates a realtime session with the long-lived API key and
// returns its ephemeral client secret. Browsers and other untrusted clients
// should get the secret from a token endpoint instead.
func (c *Client) CreateSession(ctx context.Context, req *SessionRequest) (*ClientSecret, error) {
	if c.config.apiKey == "" {
		return nil, &Error{Code: "missing_api_key", Message: "API key is required to create a session"}
	}
	if req == nil || req.Model == "" {
		req = &SessionRequest{Model: ModelGPTRealtime, Voice: VoiceAlloy}
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.httpURL+"/sessions", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.config.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")
	c.setAccountHeaders(httpReq.Header)

	resp, err := c.config.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, responseError(resp.StatusCode, "session_creation_failed", data)
	}
	return parseClientSecret(data)
}

func parseClientSecret(data []byte) (*ClientSecret, error) {
	var payload any
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("openai-realtime: decode session: %w", err)
	}

	value, err := runQuery(secretValueQuery, payload)
	if err != nil {
		return nil, err
	}
	s, ok := value.(string)
	if !ok || s == "" {
		return nil, &Error{Code: "missing_client_secret", Message: "session response has no client secret"}
	}
	secret := &ClientSecret{Value: s}

	if exp, err := runQuery(secretExpiresQuery, payload); err == nil {
		if f, ok := exp.(float64); ok && f > 0 {
			secret.ExpiresAt = time.Unix(int64(f), 0)
		}
	}
	return secret, nil
}

func runQuery(code *gojq.Code, input any) (any, error) {
	v, ok := code.Run(input).Next()
	if !ok {
		return nil, errors.New("openai-realtime: query produced no value")
	}
	if err, ok := v.(error); ok {
		return nil, err
	}
	return v, nil
}

// responseError builds an *Error from a non-success HTTP response, using the
// provider's error envelope when the body carries one.
func responseError(status int, code string, body []byte) *Error {
	var env errorBody
	if json.Unmarshal(body, &env) == nil && env.Error != nil && env.Error.Message != "" {
		env.Error.HTTPStatus = status
		if env.Error.Code == "" {
			env.Error.Code = code
		}
		return env.Error
	}
	return &Error{
		Code:       code,
		Message:    fmt.Sprintf("HTTP %d: %s", status, truncate(string(bytes.TrimSpace(body)), 200)),
		HTTPStatus: status,
	}
}
