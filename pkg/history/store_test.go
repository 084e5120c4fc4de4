package history

import (
	"context"
	"errors"
	"slices"
	"testing"
)

func stores(t *testing.T) map[string]Store {
	t.Helper()
	b, err := OpenBadger(BadgerOptions{InMemory: true})
	if err != nil {
		t.Fatalf("OpenBadger: %v", err)
	}
	t.Cleanup(func() { b.Close() })
	return map[string]Store{"memory": NewMemory(), "badger": b}
}

func TestStore(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			key := Key{"conversations", "a"}
			if _, err := s.Get(ctx, key); !errors.Is(err, ErrNotFound) {
				t.Fatalf("Get missing = %v, want ErrNotFound", err)
			}
			if err := s.Set(ctx, key, []byte("one")); err != nil {
				t.Fatal(err)
			}
			if err := s.Set(ctx, key, []byte("two")); err != nil {
				t.Fatal(err)
			}
			got, err := s.Get(ctx, key)
			if err != nil || string(got) != "two" {
				t.Fatalf("Get = %q, %v", got, err)
			}
			if err := s.Delete(ctx, key); err != nil {
				t.Fatal(err)
			}
			if _, err := s.Get(ctx, key); !errors.Is(err, ErrNotFound) {
				t.Fatalf("Get deleted = %v", err)
			}
			if err := s.Delete(ctx, Key{"no", "such"}); err != nil {
				t.Fatalf("Delete missing = %v", err)
			}
		})
	}
}

func TestStoreList(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			for _, k := range []Key{
				{"conversations", "b"},
				{"conversations", "a"},
				{"conversationsx", "c"},
				{"voice-agent-conversation"},
			} {
				if err := s.Set(ctx, k, []byte(k.String())); err != nil {
					t.Fatal(err)
				}
			}

			var keys []string
			for e, err := range s.List(ctx, Key{"conversations"}) {
				if err != nil {
					t.Fatal(err)
				}
				keys = append(keys, e.Key.String())
				if string(e.Value) != e.Key.String() {
					t.Errorf("value for %s = %q", e.Key, e.Value)
				}
			}
			want := []string{"conversations:a", "conversations:b"}
			if !slices.Equal(keys, want) {
				t.Errorf("List = %v, want %v", keys, want)
			}

			if err := s.BatchDelete(ctx, []Key{{"conversations", "a"}, {"voice-agent-conversation"}}); err != nil {
				t.Fatal(err)
			}
			n := 0
			for _, err := range s.List(ctx, nil) {
				if err != nil {
					t.Fatal(err)
				}
				n++
			}
			if n != 2 {
				t.Errorf("entries after BatchDelete = %d, want 2", n)
			}
		})
	}
}

func TestMemoryCopies(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	val := []byte("abc")
	m.Set(ctx, Key{"k"}, val)
	val[0] = 'x'
	got, _ := m.Get(ctx, Key{"k"})
	got[1] = 'y'
	again, _ := m.Get(ctx, Key{"k"})
	if string(again) != "abc" {
		t.Errorf("stored value mutated: %q", again)
	}
}

func TestOpenBadgerRequiresDir(t *testing.T) {
	if _, err := OpenBadger(BadgerOptions{}); err == nil {
		t.Fatal("OpenBadger without Dir succeeded")
	}
}
