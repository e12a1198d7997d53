package outbox

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
)

// memStore is an in-memory stand-in for the Postgres repository.
type memStore struct {
	mu     sync.Mutex
	order  []uuid.UUID
	events map[uuid.UUID]OutboxEvent
	sent   map[uuid.UUID]bool
}

func newMemStore() *memStore {
	return &memStore{
		events: make(map[uuid.UUID]OutboxEvent),
		sent:   make(map[uuid.UUID]bool),
	}
}

func (s *memStore) InsertOutbox(_ context.Context, event OutboxEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.events[event.ID]; ok {
		return errors.New("duplicate id")
	}
	s.order = append(s.order, event.ID)
	s.events[event.ID] = event
	return nil
}

func (s *memStore) DeliverByID(ctx context.Context, id uuid.UUID, deliver DeliverFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	event, ok := s.events[id]
	if !ok || s.sent[id] {
		return ErrNotPending
	}
	if err := deliver(ctx, event); err != nil {
		return err
	}
	s.sent[id] = true
	return nil
}

func (s *memStore) DeliverUnsent(ctx context.Context, limit int, deliver DeliverFunc) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, id := range s.order {
		if n >= limit {
			break
		}
		if s.sent[id] {
			continue
		}
		if err := deliver(ctx, s.events[id]); err != nil {
			continue
		}
		s.sent[id] = true
		n++
	}
	return n, nil
}

func (s *memStore) CountPending(context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.order) - len(s.sent), nil
}

func (s *memStore) all() []OutboxEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]OutboxEvent, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.events[id])
	}
	return out
}

func (s *memStore) isSent(id uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sent[id]
}

// flakyPublisher fails the first failures publishes.
type flakyPublisher struct {
	mu        sync.Mutex
	failures  int
	attempts  int
	published []OutboxEvent
}

func (p *flakyPublisher) Publish(_ context.Context, event OutboxEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.attempts++
	if p.failures > 0 {
		p.failures--
		return errors.New("nats unavailable")
	}
	p.published = append(p.published, event)
	return nil
}

func (p *flakyPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.published)
}

func (p *flakyPublisher) Connected() bool { return true }
