package history

import (
	"context"
	"errors"
	"iter"
	"strings"
)

// ErrNotFound is returned when a key does not exist in the store.
var ErrNotFound = errors.New("history: not found")

// Key is a hierarchical path such as Key{"conversation", "<id>"}. Segments
// must not contain the separator ':'.
type Key []string

func (k Key) String() string {
	return strings.Join(k, string(separator))
}

const separator byte = ':'

func (k Key) encode() []byte {
	return []byte(k.String())
}

// prefix returns the encoded key followed by the separator, so that
// Key{"a","b"} does not match "a:bc". An empty key scans everything.
func (k Key) prefix() []byte {
	if len(k) == 0 {
		return nil
	}
	return append(k.encode(), separator)
}

func decodeKey(b []byte) Key {
	return Key(strings.Split(string(b), string(separator)))
}

// Entry is a key-value pair returned by List.
type Entry struct {
	Key   Key
	Value []byte
}

// Store is the key-value storage the history is kept in.
type Store interface {
	// Get returns ErrNotFound if the key is not present.
	Get(ctx context.Context, key Key) ([]byte, error)

	// Set overwrites any existing value.
	Set(ctx context.Context, key Key, value []byte) error

	// Delete removes a key. Missing keys are not an error.
	Delete(ctx context.Context, key Key) error

	// List iterates the entries under prefix in lexicographic key order.
	List(ctx context.Context, prefix Key) iter.Seq2[Entry, error]

	// BatchDelete atomically removes keys.
	BatchDelete(ctx context.Context, keys []Key) error

	Close() error
}
