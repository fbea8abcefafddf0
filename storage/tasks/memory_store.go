package tasks

import (
	"context"
	"sort"
	"sync"

	"turks-backend/core"
)

// MemoryStore keeps tasks in process. The payment index and the task map are
// updated under one lock so consumption and creation cannot be split.
type MemoryStore struct {
	mu       sync.RWMutex
	tasks    map[string]core.Task
	payments map[string]string // payment signature -> task id
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tasks:    make(map[string]core.Task),
		payments: make(map[string]string),
	}
}

func (s *MemoryStore) CreateTask(ctx context.Context, task core.Task) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.payments[task.PaymentSignature]; ok {
		return ErrPaymentConsumed
	}
	if _, ok := s.tasks[task.ID]; ok {
		return ErrDuplicateTaskID
	}
	s.tasks[task.ID] = cloneTask(task)
	s.payments[task.PaymentSignature] = task.ID
	return nil
}

func (s *MemoryStore) IsPaymentConsumed(ctx context.Context, signature string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.payments[signature]
	return ok, nil
}

func (s *MemoryStore) GetTask(ctx context.Context, id string) (core.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	task, ok := s.tasks[id]
	if !ok {
		return core.Task{}, ErrTaskNotFound
	}
	return cloneTask(task), nil
}

func (s *MemoryStore) ListTasks(ctx context.Context, filter Filter) ([]core.Task, error) {
	s.mu.RLock()
	out := make([]core.Task, 0, len(s.tasks))
	for _, task := range s.tasks {
		if filter.Creator != "" && task.Creator != filter.Creator {
			continue
		}
		out = append(out, cloneTask(task))
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return page(out, filter), nil
}

func (s *MemoryStore) CountTasks(ctx context.Context, filter Filter) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if filter.Creator == "" {
		return len(s.tasks), nil
	}
	n := 0
	for _, task := range s.tasks {
		if task.Creator == filter.Creator {
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) Ping(ctx context.Context) error { return ctx.Err() }

func (s *MemoryStore) Close() error { return nil }

func cloneTask(t core.Task) core.Task {
	t.Options = append([]core.TaskOption(nil), t.Options...)
	return t
}
