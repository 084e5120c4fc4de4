// Package token obtains ephemeral session credentials.
//
// The normal path is an Endpoint: a small backend that holds the provider
// key and hands out short-lived secrets. Direct calls the provider with a
// key from local configuration and exists for development only. Chain tries
// the endpoint first and uses Direct only when the endpoint cannot be
// reached at all.
package token

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/haivivi/voiceagent/pkg/jsontime"
)

// Token is an ephemeral credential for one session.
type Token struct {
	Value     string
	ExpiresAt time.Time
}

// Source issues tokens.
type Source interface {
	Token(ctx context.Context) (*Token, error)
}

// ErrUnreachable reports that a token endpoint could not be reached or does
// not exist. It is the only error that lets Chain fall back.
var ErrUnreachable = errors.New("token: endpoint unreachable")

// Error is a failure response from a token endpoint.
type Error struct {
	Status  int
	Message string
	Details string
}

func (e *Error) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("token: HTTP %d: %s: %s", e.Status, e.Message, e.Details)
	}
	return fmt.Sprintf("token: HTTP %d: %s", e.Status, e.Message)
}

// StatusCode returns the endpoint's HTTP status.
func (e *Error) StatusCode() int { return e.Status }

// response is the token endpoint body.
type response struct {
	Token     string         `json:"token"`
	ExpiresAt jsontime.Milli `json:"expiresAt"`
}

// errorResponse is the token endpoint body on failure.
type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
