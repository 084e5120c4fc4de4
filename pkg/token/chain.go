package token

import (
	"context"
	"errors"
	"log/slog"
)

// Chain asks Primary for a token and falls back to Fallback only when
// Primary reports ErrUnreachable. Any other Primary error is returned as is.
type Chain struct {
	Primary  Source
	Fallback Source
}

// Token implements Source.
func (c *Chain) Token(ctx context.Context) (*Token, error) {
	tok, err := c.Primary.Token(ctx)
	if err == nil {
		return tok, nil
	}
	if c.Fallback == nil || !errors.Is(err, ErrUnreachable) {
		return nil, err
	}
	slog.Warn("token endpoint unreachable, using direct session", "error", err)
	return c.Fallback.Token(ctx)
}
