package token

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/haivivi/voiceagent/pkg/jsontime"
)

// Handler serves GET requests with a fresh token from Source.
type Handler struct {
	// Source is usually a *Direct holding the provider key. A nil Source
	// means the server has no key configured.
	Source Source

	// TTL is the lifetime reported to clients. Defaults to one minute.
	TTL time.Duration

	now func() time.Time
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "Method not allowed"})
		return
	}
	if h.Source == nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "OpenAI API key not configured"})
		return
	}

	tok, err := h.Source.Token(r.Context())
	if err != nil {
		status := http.StatusInternalServerError
		var pe providerStatus
		if errors.As(err, &pe) && pe.StatusCode() >= 400 {
			status = pe.StatusCode()
		}
		slog.Warn("token request failed", "status", status, "error", err)
		writeJSON(w, status, errorResponse{Error: "Failed to get ephemeral token", Details: err.Error()})
		return
	}

	ttl := h.TTL
	if ttl <= 0 {
		ttl = time.Minute
	}
	now := time.Now
	if h.now != nil {
		now = h.now
	}
	writeJSON(w, http.StatusOK, response{Token: tok.Value, ExpiresAt: jsontime.Milli(now().Add(ttl))})
}

// providerStatus is implemented by errors that carry an upstream HTTP status.
type providerStatus interface {
	StatusCode() int
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("write token response", "error", err)
	}
}
