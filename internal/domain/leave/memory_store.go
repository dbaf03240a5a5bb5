package leave

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore keeps leave requests in process. It backs STORE_DRIVER=memory
// and the service tests.
type MemoryStore struct {
	mu       sync.RWMutex
	requests map[string]LeaveRequest
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{requests: map[string]LeaveRequest{}}
}

func clone(req LeaveRequest) LeaveRequest {
	req.Comments = append([]Comment{}, req.Comments...)
	return req
}

func (s *MemoryStore) CreateRequest(_ context.Context, req LeaveRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests[req.ID] = clone(req)
	return nil
}

func (s *MemoryStore) GetRequest(_ context.Context, id string) (LeaveRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	req, ok := s.requests[id]
	if !ok {
		return LeaveRequest{}, ErrNotFound
	}
	return clone(req), nil
}

func (s *MemoryStore) UpdateRequest(_ context.Context, req LeaveRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.requests[req.ID]
	if !ok {
		return ErrNotFound
	}
	req.OwnerID = current.OwnerID
	req.CreatedAt = current.CreatedAt
	req.Comments = current.Comments
	s.requests[req.ID] = clone(req)
	return nil
}

func (s *MemoryStore) DeleteRequest(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.requests[id]; !ok {
		return ErrNotFound
	}
	delete(s.requests, id)
	return nil
}

func (s *MemoryStore) ListByOwner(_ context.Context, ownerID string) ([]LeaveRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []LeaveRequest
	for _, req := range s.requests {
		if req.OwnerID == ownerID {
			req.Comments = nil
			out = append(out, req)
		}
	}
	return out, nil
}

func (s *MemoryStore) ListRequests(_ context.Context, filter ListFilter) (RequestListResult, error) {
	owners := map[string]bool{}
	for _, id := range filter.OwnerIDs {
		owners[id] = true
	}

	s.mu.RLock()
	var matched []LeaveRequest
	for _, req := range s.requests {
		if len(owners) > 0 && !owners[req.OwnerID] {
			continue
		}
		if filter.Status != "" && req.Status != filter.Status {
			continue
		}
		if filter.Type != "" && req.Type != filter.Type {
			continue
		}
		matched = append(matched, clone(req))
	}
	s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID < matched[j].ID
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	out := RequestListResult{Total: len(matched)}
	if filter.Offset >= len(matched) {
		return out, nil
	}
	end := len(matched)
	if filter.Limit > 0 && filter.Offset+filter.Limit < end {
		end = filter.Offset + filter.Limit
	}
	out.Requests = matched[filter.Offset:end]
	return out, nil
}

func (s *MemoryStore) AddComment(_ context.Context, requestID string, comment Comment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.requests[requestID]
	if !ok {
		return ErrNotFound
	}
	req.Comments = append(req.Comments, comment)
	s.requests[requestID] = req
	return nil
}
