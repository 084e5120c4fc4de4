package token

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Endpoint fetches tokens from a token backend with GET.
type Endpoint struct {
	URL string

	// HTTPClient defaults to a client with a 15 second timeout.
	HTTPClient *http.Client
}

var defaultHTTPClient = &http.Client{Timeout: 15 * time.Second}

// Token implements Source. Transport failures and 404 wrap ErrUnreachable.
func (e *Endpoint) Token(ctx context.Context) (*Token, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("token: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	client := e.HTTPClient
	if client == nil {
		client = defaultHTTPClient
	}
	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("token: read response: %w", err)
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s returned 404", ErrUnreachable, e.URL)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, decodeError(resp.StatusCode, body)
	}

	var r response
	if err := json.Unmarshal(body, &r); err != nil {
		return nil, fmt.Errorf("token: decode response: %w", err)
	}
	if r.Token == "" {
		return nil, fmt.Errorf("token: response has no token")
	}
	slog.Debug("token issued", "url", e.URL, "expires_at", r.ExpiresAt.Time())
	return &Token{Value: r.Token, ExpiresAt: r.ExpiresAt.Time()}, nil
}

func decodeError(status int, body []byte) *Error {
	var er errorResponse
	if json.Unmarshal(body, &er) == nil && er.Error != "" {
		return &Error{Status: status, Message: er.Error, Details: er.Details}
	}
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		msg = http.StatusText(status)
	}
	if len(msg) > 200 {
		msg = msg[:200] + "..."
	}
	return &Error{Status: status, Message: msg}
}
