package user

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"coachai/internal/gateway/entity"
)

type MemoryStore struct {
	mu       sync.RWMutex
	profiles map[int64]entity.CoachUser
	accounts map[int64]entity.Account
	nextID   int64
	now      func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		profiles: make(map[int64]entity.CoachUser),
		accounts: make(map[int64]entity.Account),
		now:      time.Now,
	}
}

func (s *MemoryStore) CreateProfile(_ context.Context, u entity.CoachUser) (*entity.CoachUser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.profileNameTaken(u.Username, 0) {
		return nil, ErrUsernameTaken
	}
	s.nextID++
	u.ID = s.nextID
	u.CreatedAt = nowMillis(s.now)
	u.UpdatedAt = u.CreatedAt
	s.profiles[u.ID] = u
	return &u, nil
}

func (s *MemoryStore) Profile(_ context.Context, id int64) (*entity.CoachUser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.profiles[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (s *MemoryStore) ProfileByUsername(_ context.Context, username string) (*entity.CoachUser, error) {
	username = strings.TrimSpace(username)
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.profiles {
		if u.Username == username {
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) ListProfiles(_ context.Context, f ProfileFilter) ([]entity.CoachUser, error) {
	s.mu.RLock()
	out := make([]entity.CoachUser, 0, len(s.profiles))
	for _, u := range s.profiles {
		if f.matches(u) {
			out = append(out, u)
		}
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) UpdateProfile(_ context.Context, u entity.CoachUser) (*entity.CoachUser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.profiles[u.ID]
	if !ok {
		return nil, ErrNotFound
	}
	if s.profileNameTaken(u.Username, u.ID) {
		return nil, ErrUsernameTaken
	}
	u.CreatedAt = cur.CreatedAt
	u.UpdatedAt = nowMillis(s.now)
	s.profiles[u.ID] = u
	return &u, nil
}

func (s *MemoryStore) DeleteProfile(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.profiles[id]; !ok {
		return ErrNotFound
	}
	delete(s.profiles, id)
	return nil
}

func (s *MemoryStore) CreateAccount(_ context.Context, a entity.Account) (*entity.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.accountConflict(a, 0); err != nil {
		return nil, err
	}
	s.nextID++
	a.ID = s.nextID
	a.CreatedAt = nowMillis(s.now)
	a.UpdatedAt = a.CreatedAt
	s.accounts[a.ID] = a
	return &a, nil
}

func (s *MemoryStore) Account(_ context.Context, id int64) (*entity.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.accounts[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &a, nil
}

func (s *MemoryStore) AccountByUsername(_ context.Context, username string) (*entity.Account, error) {
	username = strings.TrimSpace(username)
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.accounts {
		if a.Username == username {
			return &a, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) ListAccounts(_ context.Context) ([]entity.Account, error) {
	s.mu.RLock()
	out := make([]entity.Account, 0, len(s.accounts))
	for _, a := range s.accounts {
		out = append(out, a)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) UpdateAccount(_ context.Context, a entity.Account) (*entity.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.accounts[a.ID]
	if !ok {
		return nil, ErrNotFound
	}
	if err := s.accountConflict(a, a.ID); err != nil {
		return nil, err
	}
	a.CreatedAt = cur.CreatedAt
	a.UpdatedAt = nowMillis(s.now)
	s.accounts[a.ID] = a
	return &a, nil
}

func (s *MemoryStore) DeleteAccount(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[id]; !ok {
		return ErrNotFound
	}
	delete(s.accounts, id)
	return nil
}

func (s *MemoryStore) Close() error { return nil }

// profileNameTaken reports whether another profile than self uses name.
// Callers hold mu.
func (s *MemoryStore) profileNameTaken(name string, self int64) bool {
	for id, u := range s.profiles {
		if id != self && u.Username == name {
			return true
		}
	}
	return false
}

func (s *MemoryStore) accountConflict(a entity.Account, self int64) error {
	for id, cur := range s.accounts {
		if id == self {
			continue
		}
		if cur.Username == a.Username {
			return ErrUsernameTaken
		}
		if strings.EqualFold(cur.Email, a.Email) {
			return ErrEmailTaken
		}
	}
	return nil
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(strings.TrimSpace(sub)))
}
