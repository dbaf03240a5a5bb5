package audit

import (
	"context"
	"sort"
	"sync"
)

type MemoryStore struct {
	mu     sync.RWMutex
	events []Event
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Insert(_ context.Context, evt Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, evt)
	return nil
}

func (s *MemoryStore) Count(ctx context.Context, filter Filter) (int, error) {
	return len(s.matching(filter)), nil
}

func (s *MemoryStore) List(_ context.Context, filter Filter, includeDetails bool, limit, offset int) ([]Event, error) {
	matched := s.matching(filter)
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	if offset >= len(matched) {
		return nil, nil
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	out := append([]Event(nil), matched[offset:end]...)
	if !includeDetails {
		for i := range out {
			out[i].Before = nil
			out[i].After = nil
		}
	}
	return out, nil
}

func (s *MemoryStore) matching(filter Filter) []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Event
	for _, evt := range s.events {
		if filter.Action != "" && evt.Action != filter.Action {
			continue
		}
		if filter.EntityType != "" && evt.EntityType != filter.EntityType {
			continue
		}
		if filter.EntityID != "" && evt.EntityID != filter.EntityID {
			continue
		}
		if filter.ActorUser != "" && evt.ActorID != filter.ActorUser {
			continue
		}
		out = append(out, evt)
	}
	return out
}
