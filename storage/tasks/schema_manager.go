package tasks

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// SchemaManager handles database schema migrations
type SchemaManager struct {
	pool *pgxpool.Pool
}

// NewSchemaManager creates a new schema manager
func NewSchemaManager(pool *pgxpool.Pool) *SchemaManager {
	return &SchemaManager{pool: pool}
}

// Initialize creates the database schema
func (m *SchemaManager) Initialize(ctx context.Context) error {
	_, err := m.pool.Exec(ctx, pgSchema)
	return err
}

const pgSchema = `
-- Tasks table. payment_signature is the consumption record for a payment.
CREATE TABLE IF NOT EXISTS tasks (
  task_id TEXT PRIMARY KEY,
  title TEXT NOT NULL,
  creator TEXT NOT NULL,
  payment_signature TEXT NOT NULL,
  amount_lamports BIGINT NOT NULL,
  created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
  CONSTRAINT tasks_payment_signature_key UNIQUE (payment_signature)
);

-- Options table
CREATE TABLE IF NOT EXISTS task_options (
  task_id TEXT NOT NULL REFERENCES tasks(task_id) ON DELETE CASCADE,
  position INT NOT NULL,
  image_url TEXT NOT NULL,
  PRIMARY KEY (task_id, position)
);

-- Indexes for performance
CREATE INDEX IF NOT EXISTS idx_tasks_creator_created ON tasks(creator, created_at DESC);
`
