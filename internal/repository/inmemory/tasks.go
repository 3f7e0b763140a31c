package inmemory

import (
	"context"
	"sort"

	"todoReminder/internal/models/task"
	repo "todoReminder/internal/repository"
)

func (s *Storage) CreateTask(ctx context.Context, taskToCreate *task.Task) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if _, ok := s.users[taskToCreate.OwnerID]; !ok {
		return repo.ErrNotFound
	}
	for _, existing := range s.tasks {
		if existing.OwnerID == taskToCreate.OwnerID && existing.Title == taskToCreate.Title {
			return repo.ErrConflict
		}
	}

	s.lastTaskID++
	taskToCreate.ID = s.lastTaskID
	taskToCreate.Notified = false
	s.tasks[taskToCreate.ID] = taskToCreate.Clone()
	return nil
}

func (s *Storage) GetTask(ctx context.Context, id int64) (*task.Task, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	taskToGet, ok := s.tasks[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return taskToGet.Clone(), nil
}

func (s *Storage) ListTasksByOwner(ctx context.Context, ownerID int64) ([]*task.Task, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	res := []*task.Task{}
	for _, t := range s.tasks {
		if t.OwnerID == ownerID {
			res = append(res, t.Clone())
		}
	}
	sortTasks(res)
	return res, nil
}

// UpdateTask writes every mutable field except notified, which only the reminder
// scanner may change. The stored notified value is copied back into taskToUpdate.
func (s *Storage) UpdateTask(ctx context.Context, taskToUpdate *task.Task) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	existing, ok := s.tasks[taskToUpdate.ID]
	if !ok {
		return repo.ErrNotFound
	}

	updated := taskToUpdate.Clone()
	updated.OwnerID = existing.OwnerID
	updated.CreatedAt = existing.CreatedAt
	updated.Notified = existing.Notified
	s.tasks[updated.ID] = updated

	taskToUpdate.Notified = existing.Notified
	return nil
}

func (s *Storage) DeleteTask(ctx context.Context, id int64) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if _, ok := s.tasks[id]; !ok {
		return repo.ErrNotFound
	}
	delete(s.tasks, id)
	return nil
}

func (s *Storage) DeleteTasksByOwner(ctx context.Context, ownerID int64) (int64, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	var deleted int64
	for id, t := range s.tasks {
		if t.OwnerID == ownerID {
			delete(s.tasks, id)
			deleted++
		}
	}
	return deleted, nil
}

func sortTasks(tasks []*task.Task) {
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].ID < tasks[j].ID })
}
