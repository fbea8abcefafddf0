package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"turks-backend/core"
)

// DefaultSubject carries TaskCreated events.
const DefaultSubject = "tasks.created"

// TaskCreated is published once a paid task is persisted.
type TaskCreated struct {
	TaskID           string    `json:"task_id"`
	Creator          string    `json:"creator"`
	Title            string    `json:"title"`
	OptionCount      int       `json:"option_count"`
	AmountLamports   uint64    `json:"amount_lamports"`
	PaymentSignature string    `json:"payment_signature"`
	CreatedAt        time.Time `json:"created_at"`
}

// NewTaskCreated builds the event for task.
func NewTaskCreated(task core.Task) TaskCreated {
	return TaskCreated{
		TaskID:           task.ID,
		Creator:          task.Creator,
		Title:            task.Title,
		OptionCount:      len(task.Options),
		AmountLamports:   task.AmountLamports,
		PaymentSignature: task.PaymentSignature,
		CreatedAt:        task.CreatedAt,
	}
}

// Publisher announces domain events.
type Publisher interface {
	PublishTaskCreated(ctx context.Context, task core.Task) error
	Close()
}

// Noop drops every event.
type Noop struct{}

func (Noop) PublishTaskCreated(context.Context, core.Task) error { return nil }
func (Noop) Close() {}

// NATSPublisher publishes JSON events on a NATS subject.
type NATSPublisher struct {
	conn    *nats.Conn
	subject string
	logger  *zap.Logger
}

// Connect dials url. An empty url yields a Noop publisher.
func Connect(url, subject string, logger *zap.Logger) (Publisher, error) {
	if url == "" {
		return Noop{}, nil
	}
	if subject == "" {
		subject = DefaultSubject
	}
	conn, err := nats.Connect(url,
		nats.Name("turks-backend"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("nats reconnected", zap.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &NATSPublisher{conn: conn, subject: subject, logger: logger}, nil
}

func (p *NATSPublisher) PublishTaskCreated(ctx context.Context, task core.Task) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b, err := json.Marshal(NewTaskCreated(task))
	if err != nil {
		return err
	}
	if err := p.conn.Publish(p.subject, b); err != nil {
		return fmt.Errorf("publish %s: %w", p.subject, err)
	}
	return nil
}

// Close flushes pending messages and closes the connection.
func (p *NATSPublisher) Close() {
	if err := p.conn.FlushTimeout(2 * time.Second); err != nil {
		p.logger.Warn("nats flush failed", zap.Error(err))
	}
	p.conn.Close()
}
