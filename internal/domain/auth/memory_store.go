package auth

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"leavetrack/internal/domain/policy"
)

// MemoryStore keeps users in process. It backs STORE_DRIVER=memory and tests.
type MemoryStore struct {
	mu    sync.RWMutex
	users map[string]User
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{users: map[string]User{}}
}

func (s *MemoryStore) CreateUser(_ context.Context, user User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user.Email = strings.ToLower(user.Email)
	for _, u := range s.users {
		if u.Email == user.Email {
			return ErrEmailTaken
		}
	}
	s.users[user.ID] = user
	return nil
}

func (s *MemoryStore) UserByID(_ context.Context, id string) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return u, nil
}

func (s *MemoryStore) UserByEmail(_ context.Context, email string) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	email = strings.ToLower(email)
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return User{}, ErrNotFound
}

func (s *MemoryStore) ListUsers(_ context.Context, limit, offset int) (UserListResult, error) {
	s.mu.RLock()
	all := make([]User, 0, len(s.users))
	for _, u := range s.users {
		all = append(all, u)
	}
	s.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].Email < all[j].Email
		}
		return all[i].CreatedAt.Before(all[j].CreatedAt)
	})
	out := UserListResult{Total: len(all)}
	if offset >= len(all) {
		return out, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	out.Users = all[offset:end]
	return out, nil
}

func (s *MemoryStore) UpdateProfile(_ context.Context, id string, update ProfileUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return ErrNotFound
	}
	u.Name = update.Name
	u.Department = update.Department
	u.UpdatedAt = time.Now().UTC()
	s.users[id] = u
	return nil
}

func (s *MemoryStore) UpdateAllocation(_ context.Context, id string, allocation policy.Allocation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return ErrNotFound
	}
	u.Allocation = allocation
	u.UpdatedAt = time.Now().UTC()
	s.users[id] = u
	return nil
}

func (s *MemoryStore) UpdateRole(_ context.Context, id, role string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return ErrNotFound
	}
	u.Role = role
	u.UpdatedAt = time.Now().UTC()
	s.users[id] = u
	return nil
}

func (s *MemoryStore) UserIDsByDepartment(_ context.Context, department string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ids []string
	for _, u := range s.users {
		if u.Department == department {
			ids = append(ids, u.ID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}
