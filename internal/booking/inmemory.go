package booking

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryStore is an in-process booking store for local/dev use.
type InMemoryStore struct {
	mu     sync.RWMutex
	byID   map[string]Booking
	order  []string
	now    func() time.Time
	nextID func() string
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		byID:   make(map[string]Booking),
		now:    func() time.Time { return time.Now().UTC() },
		nextID: uuid.NewString,
	}
}

func (s *InMemoryStore) Create(_ context.Context, draft Draft) (Booking, error) {
	draft = draft.Normalize()
	if err := draft.Validate(); err != nil {
		return Booking{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID()
	for {
		if _, taken := s.byID[id]; !taken {
			break
		}
		id = s.nextID()
	}
	record := newBooking(id, draft, s.now())
	s.byID[id] = record
	s.order = append(s.order, id)
	return record, nil
}

func (s *InMemoryStore) List(_ context.Context) ([]Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Booking, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.byID[id])
	}
	return out, nil
}

func (s *InMemoryStore) Get(_ context.Context, id string) (Booking, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.byID[id]
	return record, ok, nil
}

func (s *InMemoryStore) UpdateStatus(_ context.Context, id string, status Status) (Booking, bool, error) {
	if !status.Valid() {
		return Booking{}, false, &ValidationError{Fields: []FieldError{{Field: "status", Rule: "oneof"}}}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.byID[id]
	if !ok {
		return Booking{}, false, nil
	}
	record.Status = status
	s.byID[id] = record
	return record, true, nil
}

func (s *InMemoryStore) Close() error { return nil }
