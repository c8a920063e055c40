// Package journal keeps an audit trail of the mutating actions issued from
// the dashboard. Trading state itself stays with the brokerage.
package journal

import (
	"context"
	"sync"
	"time"

	"paperdash/internal/id"
	"paperdash/internal/types"
)

type Entry struct {
	ID      string       `json:"id"`
	At      time.Time    `json:"at"`
	Action  types.Action `json:"action"`
	Symbol  string       `json:"symbol,omitempty"`
	OrderID string       `json:"order_id,omitempty"`
	Side    string       `json:"side,omitempty"`
	Qty     string       `json:"qty,omitempty"`
	Message string       `json:"message"`
	Failed  bool         `json:"failed"`
}

type Store interface {
	Record(ctx context.Context, e Entry) error
	Recent(ctx context.Context, limit int) ([]Entry, error)
}

// stamp fills the ID and time of a fresh entry.
func stamp(e Entry) Entry {
	if e.ID == "" {
		e.ID = id.New()
	}
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	return e
}

const DefaultCapacity = 200

// MemoryStore is a bounded in-process journal; the oldest entries are dropped.
type MemoryStore struct {
	mu      sync.Mutex
	entries []Entry
	next    int
	full    bool
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore(capacity int) *MemoryStore {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &MemoryStore{entries: make([]Entry, capacity)}
}

func (s *MemoryStore) Record(ctx context.Context, e Entry) error {
	e = stamp(e)
	s.mu.Lock()
	s.entries[s.next] = e
	s.next = (s.next + 1) % len(s.entries)
	if s.next == 0 {
		s.full = true
	}
	s.mu.Unlock()
	return nil
}

// Recent returns up to limit entries, newest first.
func (s *MemoryStore) Recent(ctx context.Context, limit int) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	size := s.next
	if s.full {
		size = len(s.entries)
	}
	if limit <= 0 || limit > size {
		limit = size
	}
	out := make([]Entry, 0, limit)
	for i := 1; i <= limit; i++ {
		idx := (s.next - i + len(s.entries)) % len(s.entries)
		out = append(out, s.entries[idx])
	}
	return out, nil
}
