package snooze

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// A Store persists schedules.
type Store interface {
	Put(ctx context.Context, s *Schedule) error
	Get(ctx context.Context, id string) (*Schedule, error)
	List(ctx context.Context) ([]Schedule, error)
	Delete(ctx context.Context, id string) error
}

// Memory is an in-memory store.
// Its primary purpose is testing and file-driven use of the CLI.
// For durable storage, use Pgx.
type Memory struct {
	mu        sync.Mutex
	schedules map[string]Schedule
}

func NewMemory() *Memory {
	return &Memory{schedules: make(map[string]Schedule)}
}

// Put inserts or replaces s, assigning an ID if it has none.
func (m *Memory) Put(_ context.Context, s *Schedule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stamp(s, m.schedules[s.ID].CreatedAt)
	m.schedules[s.ID] = clone(*s)
	return nil
}

func (m *Memory) Get(_ context.Context, id string) (*Schedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.schedules[id]
	if !ok {
		return nil, ErrNotFound
	}
	s = clone(s)
	return &s, nil
}

// List returns schedules ordered by creation time, then name.
func (m *Memory) List(context.Context) ([]Schedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Schedule, 0, len(m.schedules))
	for _, s := range m.schedules {
		out = append(out, clone(s))
	}
	slices.SortFunc(out, func(a, b Schedule) int {
		return cmp.Or(
			a.CreatedAt.Compare(b.CreatedAt),
			cmp.Compare(a.Name, b.Name),
		)
	})
	return out, nil
}

func (m *Memory) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.schedules[id]; !ok {
		return ErrNotFound
	}
	delete(m.schedules, id)
	return nil
}

// stamp assigns a missing ID and sets the timestamps of s.
// A zero created keeps s.CreatedAt, or now if that is zero too.
func stamp(s *Schedule, created time.Time) {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	now := timeNow().UTC()
	s.CreatedAt = cmp.Or(created, s.CreatedAt, now)
	s.UpdatedAt = now
}

// clone returns a copy of s sharing no selectors or matchers with it.
func clone(s Schedule) Schedule {
	if s.Selectors == nil {
		return s
	}
	sel := make([]Selector, len(s.Selectors))
	for i := range s.Selectors {
		sel[i] = s.Selectors[i].clone()
	}
	s.Selectors = sel
	return s
}
