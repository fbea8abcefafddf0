package tasks

import (
	"context"
	"fmt"

	"turks-backend/core"
)

// Err is a simple string error helper.
type Err string

func (e Err) Error() string { return string(e) }

var (
	ErrTaskNotFound    = Err("task not found")
	ErrPaymentConsumed = Err("payment signature already consumed")
	ErrDuplicateTaskID = Err("task id already exists")
)

// Filter narrows ListTasks. CountTasks ignores Limit and Offset.
type Filter struct {
	Creator string
	Limit   int
	Offset  int
}

// Store persists tasks. CreateTask records the task and consumes its payment
// signature in one step: a signature can back at most one task.
type Store interface {
	CreateTask(ctx context.Context, task core.Task) error
	IsPaymentConsumed(ctx context.Context, signature string) (bool, error)
	GetTask(ctx context.Context, id string) (core.Task, error)
	ListTasks(ctx context.Context, filter Filter) ([]core.Task, error)
	CountTasks(ctx context.Context, filter Filter) (int, error)
	Ping(ctx context.Context) error
	Close() error
}

// Options selects and configures a Store.
type Options struct {
	Driver     string
	DSN        string
	SQLitePath string
}

// Open builds the Store named by opts.Driver and ensures its schema.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Driver {
	case "", "memory":
		return NewMemoryStore(), nil
	case "sqlite":
		return OpenSQLiteStore(ctx, opts.SQLitePath)
	case "postgres":
		return OpenPGStore(ctx, opts.DSN)
	default:
		return nil, fmt.Errorf("unknown task store driver %q", opts.Driver)
	}
}

func page(out []core.Task, filter Filter) []core.Task {
	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			return nil
		}
		out = out[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(out) {
		out = out[:filter.Limit]
	}
	return out
}
