package tasks

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"turks-backend/core"
)

// SQLiteStore persists tasks in an embedded SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLiteStore opens (or creates) the database at path.
func OpenSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, errors.New("sqlite path is empty")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1) // SQLite is single-writer
	db.SetConnMaxLifetime(0)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteSchema = `
PRAGMA foreign_keys = ON;

CREATE TABLE IF NOT EXISTS tasks (
  task_id TEXT PRIMARY KEY,
  title TEXT NOT NULL,
  creator TEXT NOT NULL,
  payment_signature TEXT NOT NULL UNIQUE,
  amount_lamports INTEGER NOT NULL,
  created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS task_options (
  task_id TEXT NOT NULL REFERENCES tasks(task_id) ON DELETE CASCADE,
  position INTEGER NOT NULL,
  image_url TEXT NOT NULL,
  PRIMARY KEY (task_id, position)
);

CREATE INDEX IF NOT EXISTS idx_tasks_creator_created ON tasks(creator, created_at DESC);`

func (s *SQLiteStore) CreateTask(ctx context.Context, task core.Task) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
INSERT INTO tasks (task_id, title, creator, payment_signature, amount_lamports, created_at)
VALUES (?, ?, ?, ?, ?, ?)`,
		task.ID, task.Title, task.Creator, task.PaymentSignature, int64(task.AmountLamports), task.CreatedAt.UnixNano())
	if err != nil {
		msg := err.Error()
		if strings.Contains(msg, "UNIQUE constraint failed") {
			if strings.Contains(msg, "tasks.payment_signature") {
				return ErrPaymentConsumed
			}
			return ErrDuplicateTaskID
		}
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO task_options (task_id, position, image_url) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, opt := range task.Options {
		if _, err := stmt.ExecContext(ctx, task.ID, opt.Position, opt.ImageURL); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) IsPaymentConsumed(ctx context.Context, signature string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM tasks WHERE payment_signature = ?`, signature).Scan(&n)
	return n > 0, err
}

func (s *SQLiteStore) GetTask(ctx context.Context, id string) (core.Task, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT task_id, title, creator, payment_signature, amount_lamports, created_at
FROM tasks WHERE task_id = ?`, id)
	task, err := scanSQLiteTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Task{}, ErrTaskNotFound
	}
	if err != nil {
		return core.Task{}, err
	}
	if err := s.loadOptions(ctx, &task); err != nil {
		return core.Task{}, err
	}
	return task, nil
}

func (s *SQLiteStore) ListTasks(ctx context.Context, filter Filter) ([]core.Task, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT task_id, title, creator, payment_signature, amount_lamports, created_at
FROM tasks
WHERE (? = '' OR creator = ?)
ORDER BY created_at DESC, task_id
LIMIT ? OFFSET ?`, filter.Creator, filter.Creator, limit, filter.Offset)
	if err != nil {
		return nil, err
	}
	var out []core.Task
	for rows.Next() {
		task, err := scanSQLiteTask(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, task)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	// options are read after the cursor closes; the pool has one connection
	for i := range out {
		if err := s.loadOptions(ctx, &out[i]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *SQLiteStore) CountTasks(ctx context.Context, filter Filter) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM tasks WHERE (? = '' OR creator = ?)`, filter.Creator, filter.Creator).Scan(&n)
	return n, err
}

func (s *SQLiteStore) loadOptions(ctx context.Context, task *core.Task) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT position, image_url FROM task_options WHERE task_id = ? ORDER BY position`, task.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var opt core.TaskOption
		if err := rows.Scan(&opt.Position, &opt.ImageURL); err != nil {
			return err
		}
		task.Options = append(task.Options, opt)
	}
	return rows.Err()
}

func (s *SQLiteStore) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *SQLiteStore) Close() error { return s.db.Close() }

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteTask(row rowScanner) (core.Task, error) {
	var (
		task    core.Task
		amount  int64
		created int64
	)
	if err := row.Scan(&task.ID, &task.Title, &task.Creator, &task.PaymentSignature, &amount, &created); err != nil {
		return core.Task{}, err
	}
	task.AmountLamports = uint64(amount)
	task.CreatedAt = time.Unix(0, created).UTC()
	return task, nil
}
