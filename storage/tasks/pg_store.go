package tasks

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"turks-backend/core"
)

const pgUniqueViolation = "23505"

// PGStore persists tasks in Postgres.
type PGStore struct {
	pool *pgxpool.Pool
}

// OpenPGStore connects to dsn and initializes the schema.
func OpenPGStore(ctx context.Context, dsn string) (*PGStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := NewSchemaManager(pool).Initialize(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return NewPGStore(pool), nil
}

// NewPGStore wraps an existing pool. The schema must already exist.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

func (s *PGStore) CreateTask(ctx context.Context, task core.Task) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
INSERT INTO tasks (task_id, title, creator, payment_signature, amount_lamports, created_at)
VALUES ($1, $2, $3, $4, $5, $6)
`, task.ID, task.Title, task.Creator, task.PaymentSignature, int64(task.AmountLamports), task.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			if pgErr.ConstraintName == "tasks_pkey" {
				return ErrDuplicateTaskID
			}
			return ErrPaymentConsumed
		}
		return err
	}

	batch := &pgx.Batch{}
	for _, opt := range task.Options {
		batch.Queue(`INSERT INTO task_options (task_id, position, image_url) VALUES ($1, $2, $3)`,
			task.ID, opt.Position, opt.ImageURL)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *PGStore) IsPaymentConsumed(ctx context.Context, signature string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM tasks WHERE payment_signature=$1)`, signature).Scan(&exists)
	return exists, err
}

func (s *PGStore) GetTask(ctx context.Context, id string) (core.Task, error) {
	var (
		task   core.Task
		amount int64
	)
	err := s.pool.QueryRow(ctx, `
SELECT task_id, title, creator, payment_signature, amount_lamports, created_at
FROM tasks WHERE task_id=$1
`, id).Scan(&task.ID, &task.Title, &task.Creator, &task.PaymentSignature, &amount, &task.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.Task{}, ErrTaskNotFound
	}
	if err != nil {
		return core.Task{}, err
	}
	task.AmountLamports = uint64(amount)
	task.CreatedAt = task.CreatedAt.UTC()

	opts, err := s.options(ctx, []string{id})
	if err != nil {
		return core.Task{}, err
	}
	task.Options = opts[id]
	return task, nil
}

func (s *PGStore) ListTasks(ctx context.Context, filter Filter) ([]core.Task, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 1000
	}
	rows, err := s.pool.Query(ctx, `
SELECT task_id, title, creator, payment_signature, amount_lamports, created_at
FROM tasks
WHERE ($1 = '' OR creator = $1)
ORDER BY created_at DESC, task_id
LIMIT $2 OFFSET $3
`, filter.Creator, limit, filter.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var (
		out []core.Task
		ids []string
	)
	for rows.Next() {
		var (
			task   core.Task
			amount int64
		)
		if err := rows.Scan(&task.ID, &task.Title, &task.Creator, &task.PaymentSignature, &amount, &task.CreatedAt); err != nil {
			return nil, err
		}
		task.AmountLamports = uint64(amount)
		task.CreatedAt = task.CreatedAt.UTC()
		out = append(out, task)
		ids = append(ids, task.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return out, nil
	}

	opts, err := s.options(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Options = opts[out[i].ID]
	}
	return out, nil
}

func (s *PGStore) CountTasks(ctx context.Context, filter Filter) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM tasks WHERE ($1 = '' OR creator = $1)`, filter.Creator).Scan(&n)
	return n, err
}

func (s *PGStore) options(ctx context.Context, ids []string) (map[string][]core.TaskOption, error) {
	rows, err := s.pool.Query(ctx, `
SELECT task_id, position, image_url FROM task_options
WHERE task_id = ANY($1)
ORDER BY task_id, position
`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string][]core.TaskOption, len(ids))
	for rows.Next() {
		var (
			id  string
			opt core.TaskOption
		)
		if err := rows.Scan(&id, &opt.Position, &opt.ImageURL); err != nil {
			return nil, err
		}
		out[id] = append(out[id], opt)
	}
	return out, rows.Err()
}

func (s *PGStore) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

func (s *PGStore) Close() error {
	s.pool.Close()
	return nil
}
