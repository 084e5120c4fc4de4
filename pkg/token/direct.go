package token

import (
	"context"
	"fmt"
	"time"

	openairealtime "github.com/haivivi/voiceagent/pkg/openai-realtime"
)

// Direct creates sessions at the provider with a long-lived key. Use it only
// for local development; the key never leaves this process but should not
// be shipped to untrusted clients.
type Direct struct {
	API   *openairealtime.Client
	Model string
	Voice string
}

// Token implements Source.
func (d *Direct) Token(ctx context.Context) (*Token, error) {
	secret, err := d.API.CreateSession(ctx, &openairealtime.SessionRequest{
		Model: d.Model,
		Voice: d.Voice,
	})
	if err != nil {
		return nil, fmt.Errorf("token: direct session: %w", err)
	}
	exp := secret.ExpiresAt
	if exp.IsZero() {
		exp = time.Now().Add(time.Minute)
	}
	return &Token{Value: secret.Value, ExpiresAt: exp}, nil
}
