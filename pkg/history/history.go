// Package history persists the last conversation and an archive of ended
// ones. The current conversation is kept as one JSON blob under
// CurrentKey, shaped as {"state":{"messages","leadData","summary"},"version"}.
//
// A blob that cannot be decoded loads as an empty snapshot.
package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/haivivi/voiceagent/pkg/lead"
)

// CurrentKey holds the most recent conversation.
var CurrentKey = Key{"voice-agent-conversation"}

// archivePrefix holds ended conversations keyed by start time.
var archivePrefix = Key{"conversations"}

const blobVersion = 0

// Snapshot is the persisted part of a conversation.
type Snapshot struct {
	Messages []lead.Message
	Lead     *lead.Data
	Summary  *lead.Summary
}

// IsEmpty reports whether nothing was recorded.
func (s Snapshot) IsEmpty() bool {
	return len(s.Messages) == 0 && s.Lead == nil && s.Summary == nil
}

// Archived is an ended conversation from the archive.
type Archived struct {
	ID string
	Snapshot
}

type blob struct {
	State   blobState `json:"state"`
	Version int       `json:"version"`
}

type blobState struct {
	Messages []blobMessage `json:"messages"`
	LeadData *lead.Data    `json:"leadData"`
	Summary  *lead.Summary `json:"summary"`
}

// blobMessage keeps the timestamp as text so a missing or malformed value
// does not fail the whole blob.
type blobMessage struct {
	ID        string    `json:"id"`
	Role      lead.Role `json:"role"`
	Content   string    `json:"content"`
	Timestamp string    `json:"timestamp,omitempty"`
}

// History reads and writes snapshots in a Store.
type History struct {
	store Store
	now   func() time.Time
}

// New returns a History over store.
func New(store Store) *History {
	return &History{store: store, now: time.Now}
}

// Load returns the current snapshot. A missing or corrupt blob yields an
// empty snapshot and no error.
func (h *History) Load(ctx context.Context) (Snapshot, error) {
	data, err := h.store.Get(ctx, CurrentKey)
	if errors.Is(err, ErrNotFound) {
		return Snapshot{}, nil
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("history: load: %w", err)
	}
	s, err := h.decode(data)
	if err != nil {
		slog.Warn("history: discarding unreadable conversation", "error", err)
		return Snapshot{}, nil
	}
	return s, nil
}

// Save replaces the current snapshot.
func (h *History) Save(ctx context.Context, s Snapshot) error {
	data, err := encode(s)
	if err != nil {
		return err
	}
	if err := h.store.Set(ctx, CurrentKey, data); err != nil {
		return fmt.Errorf("history: save: %w", err)
	}
	return nil
}

// Clear removes the current snapshot.
func (h *History) Clear(ctx context.Context) error {
	return h.store.Delete(ctx, CurrentKey)
}

// Archive stores s as an ended conversation and returns its ID. IDs sort by
// startedAt.
func (h *History) Archive(ctx context.Context, s Snapshot, startedAt time.Time) (string, error) {
	if startedAt.IsZero() {
		startedAt = h.now()
	}
	id := startedAt.UTC().Format("20060102T150405Z") + "-" + uuid.NewString()[:8]
	data, err := encode(s)
	if err != nil {
		return "", err
	}
	if err := h.store.Set(ctx, Key{archivePrefix[0], id}, data); err != nil {
		return "", fmt.Errorf("history: archive: %w", err)
	}
	return id, nil
}

// Archived lists archived conversations, oldest first. Unreadable entries
// are skipped.
func (h *History) Archived(ctx context.Context) ([]Archived, error) {
	var out []Archived
	for e, err := range h.store.List(ctx, archivePrefix) {
		if err != nil {
			return nil, fmt.Errorf("history: list: %w", err)
		}
		s, err := h.decode(e.Value)
		if err != nil {
			slog.Warn("history: skipping unreadable archive entry", "key", e.Key.String(), "error", err)
			continue
		}
		out = append(out, Archived{ID: e.Key[len(e.Key)-1], Snapshot: s})
	}
	return out, nil
}

// Purge removes the current snapshot and the whole archive.
func (h *History) Purge(ctx context.Context) error {
	keys := []Key{CurrentKey}
	for e, err := range h.store.List(ctx, archivePrefix) {
		if err != nil {
			return fmt.Errorf("history: list: %w", err)
		}
		keys = append(keys, e.Key)
	}
	return h.store.BatchDelete(ctx, keys)
}

func encode(s Snapshot) ([]byte, error) {
	b := blob{
		Version: blobVersion,
		State: blobState{
			Messages: make([]blobMessage, len(s.Messages)),
			LeadData: s.Lead,
			Summary:  s.Summary,
		},
	}
	for i, m := range s.Messages {
		b.State.Messages[i] = blobMessage{
			ID:        m.ID,
			Role:      m.Role,
			Content:   m.Content,
			Timestamp: m.Timestamp.UTC().Format(time.RFC3339Nano),
		}
	}
	data, err := json.Marshal(b)
	if err != nil {
		return nil, fmt.Errorf("history: encode: %w", err)
	}
	return data, nil
}

// decode restores a snapshot. Messages whose timestamp is missing or not
// RFC 3339 get the current time.
func (h *History) decode(data []byte) (Snapshot, error) {
	var b blob
	if err := json.Unmarshal(data, &b); err != nil {
		return Snapshot{}, err
	}
	s := Snapshot{Lead: b.State.LeadData, Summary: b.State.Summary}
	for _, m := range b.State.Messages {
		ts, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(m.Timestamp))
		if err != nil {
			ts = h.now()
		}
		s.Messages = append(s.Messages, lead.Message{
			ID:        m.ID,
			Role:      m.Role,
			Content:   m.Content,
			Timestamp: ts,
		})
	}
	return s, nil
}
