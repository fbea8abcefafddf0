package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"turks-backend/core"
	"turks-backend/events"
	"turks-backend/logging"
	"turks-backend/metrics"
	"turks-backend/storage/tasks"
)

// Attestor verifies a payment signature for a payer.
type Attestor interface {
	AttestPayment(ctx context.Context, payer, txSignature string) (core.PaymentProof, error)
	Treasury() string
	Price() uint64
}

// TaskService runs the paid task-creation handshake.
type TaskService struct {
	attestor Attestor
	store    tasks.Store
	events   events.Publisher
	logger   *zap.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
	newID    func() string
}

// NewTaskService wires the handshake. A nil publisher drops events.
func NewTaskService(attestor Attestor, store tasks.Store, publisher events.Publisher, logger *zap.Logger, m *metrics.Metrics) *TaskService {
	if publisher == nil {
		publisher = events.Noop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TaskService{
		attestor: attestor,
		store:    store,
		events:   publisher,
		logger:   logger,
		metrics:  m,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// ValidateDraft checks everything about a task request that needs neither
// the ledger nor the store.
func (s *TaskService) ValidateDraft(identity core.Identity, title string, imageURLs []string) (string, []core.TaskOption, error) {
	if identity.Role != core.RoleUser {
		return "", nil, core.NewTaskError(core.TaskUnauthorizedRole, "only users can create tasks")
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return "", nil, core.NewTaskError(core.TaskInvalidTitle, "title must not be empty")
	}
	if len(imageURLs) < core.MinTaskOptions {
		return "", nil, core.NewTaskError(core.TaskInsufficientOptions,
			fmt.Sprintf("a task needs at least %d options", core.MinTaskOptions))
	}
	options := make([]core.TaskOption, 0, len(imageURLs))
	for i, raw := range imageURLs {
		u := strings.TrimSpace(raw)
		if u == "" {
			return "", nil, core.NewTaskError(core.TaskInvalidOption, fmt.Sprintf("option %d has no image url", i))
		}
		options = append(options, core.TaskOption{Position: i, ImageURL: u})
	}
	return title, options, nil
}

// CreateTask persists a task backed by proof. The payment is consumed in the
// same write, so retrying with the same proof yields ALREADY_CONSUMED.
func (s *TaskService) CreateTask(ctx context.Context, identity core.Identity, title string, imageURLs []string, proof core.PaymentProof) (string, error) {
	title, options, err := s.ValidateDraft(identity, title, imageURLs)
	if err != nil {
		return "", err
	}
	if err := s.checkProof(identity, proof); err != nil {
		return "", err
	}

	task := core.Task{
		ID:               s.newID(),
		Title:            title,
		Options:          options,
		Creator:          identity.PublicAddress,
		PaymentSignature: proof.TransactionSignature,
		AmountLamports:   proof.AmountLamports,
		CreatedAt:        s.now().UTC().Truncate(time.Microsecond),
	}
	if err := s.store.CreateTask(ctx, task); err != nil {
		if errors.Is(err, tasks.ErrPaymentConsumed) {
			return "", core.NewPaymentError(core.PaymentAlreadyConsumed, "payment has already been used for a task", err)
		}
		return "", fmt.Errorf("store task: %w", err)
	}

	s.metrics.TaskCreated()
	s.logger.Info("task created",
		zap.String("task_id", task.ID),
		logging.Wallet(task.Creator),
		zap.Int("options", len(task.Options)))

	if err := s.events.PublishTaskCreated(ctx, task); err != nil {
		s.logger.Warn("publish task created failed", zap.String("task_id", task.ID), zap.Error(err))
	}
	return task.ID, nil
}

// SubmitTask validates the draft, attests the payment and creates the task.
// Malformed drafts never reach the ledger.
func (s *TaskService) SubmitTask(ctx context.Context, identity core.Identity, title string, imageURLs []string, txSignature string) (string, error) {
	if _, _, err := s.ValidateDraft(identity, title, imageURLs); err != nil {
		return "", err
	}
	proof, err := s.attestor.AttestPayment(ctx, identity.PublicAddress, txSignature)
	if err != nil {
		return "", err
	}
	return s.CreateTask(ctx, identity, title, imageURLs, proof)
}

func (s *TaskService) checkProof(identity core.Identity, proof core.PaymentProof) error {
	if strings.TrimSpace(proof.TransactionSignature) == "" {
		return core.NewPaymentError(core.PaymentMissingSignature, "payment signature is required", nil)
	}
	if proof.Payer != identity.PublicAddress {
		return core.NewPaymentError(core.PaymentPayerMismatch, "payment was made by another wallet", nil)
	}
	if proof.Treasury != s.attestor.Treasury() {
		return core.NewPaymentError(core.PaymentRecipientMismatch, "payment does not go to the treasury", nil)
	}
	if proof.AmountLamports != s.attestor.Price() {
		return core.NewPaymentError(core.PaymentAmountMismatch,
			fmt.Sprintf("payment is %d lamports, expected %d", proof.AmountLamports, s.attestor.Price()), nil)
	}
	return nil
}

// GetTask returns a task. Users only see their own tasks; workers see any.
func (s *TaskService) GetTask(ctx context.Context, identity core.Identity, id string) (core.Task, error) {
	task, err := s.store.GetTask(ctx, strings.TrimSpace(id))
	if errors.Is(err, tasks.ErrTaskNotFound) {
		return core.Task{}, core.NewTaskError(core.TaskNotFound, "task not found")
	}
	if err != nil {
		return core.Task{}, fmt.Errorf("load task: %w", err)
	}
	if identity.Role == core.RoleUser && task.Creator != identity.PublicAddress {
		return core.Task{}, core.NewTaskError(core.TaskNotFound, "task not found")
	}
	return task, nil
}

// ListTasks returns one page of the caller's tasks for users and of every
// task for workers, newest first, with the total across all pages.
func (s *TaskService) ListTasks(ctx context.Context, identity core.Identity, limit, offset int) ([]core.Task, int, error) {
	filter := tasks.Filter{Limit: limit, Offset: offset}
	if identity.Role == core.RoleUser {
		filter.Creator = identity.PublicAddress
	}
	out, err := s.store.ListTasks(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("list tasks: %w", err)
	}
	total, err := s.store.CountTasks(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count tasks: %w", err)
	}
	if out == nil {
		out = []core.Task{}
	}
	return out, total, nil
}
