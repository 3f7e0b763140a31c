package inmemory

import (
	"context"
	"sort"

	"todoReminder/internal/models/user"
	repo "todoReminder/internal/repository"
)

func (s *Storage) CreateUser(ctx context.Context, userToCreate *user.User) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	for _, existing := range s.users {
		if existing.Username == userToCreate.Username {
			return repo.ErrConflict
		}
	}

	s.lastUserID++
	userToCreate.ID = s.lastUserID
	stored := *userToCreate
	s.users[stored.ID] = &stored
	return nil
}

func (s *Storage) GetUser(ctx context.Context, id int64) (*user.User, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	res := *u
	return &res, nil
}

func (s *Storage) GetUserByUsername(ctx context.Context, username string) (*user.User, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	for _, u := range s.users {
		if u.Username == username {
			res := *u
			return &res, nil
		}
	}
	return nil, repo.ErrNotFound
}

func (s *Storage) ListUsers(ctx context.Context) ([]*user.User, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	res := make([]*user.User, 0, len(s.users))
	for _, u := range s.users {
		c := *u
		res = append(res, &c)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res, nil
}

func (s *Storage) DeleteUser(ctx context.Context, id int64) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if _, ok := s.users[id]; !ok {
		return repo.ErrNotFound
	}
	delete(s.users, id)
	return nil
}
