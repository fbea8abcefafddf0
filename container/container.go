package container

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"turks-backend/config"
	"turks-backend/core"
	"turks-backend/events"
	"turks-backend/handlers"
	"turks-backend/ledger"
	"turks-backend/metrics"
	"turks-backend/services"
	"turks-backend/session"
	auth "turks-backend/storage/auth"
	"turks-backend/storage/tasks"
	"turks-backend/upload"
)

// Container holds all application dependencies
type Container struct {
	Config  config.Config
	Logger  *zap.Logger
	Metrics *metrics.Metrics

	// Infrastructure
	Store      tasks.Store
	Ledger     ledger.Reader
	Events     events.Publisher
	Challenges *auth.ChallengeStore

	// Sessions
	UserIssuer      *session.Issuer
	WorkerIssuer    *session.Issuer
	UserValidator   *session.Validator
	WorkerValidator *session.Validator

	// Services
	Attestor       *services.PaymentAttestor
	TaskService    *services.TaskService
	UploadService  *upload.Service
	PaymentService *services.PaymentRequestService
	HealthService  *services.HealthService

	// Handlers
	UserAuthHandler   *handlers.AuthHandler
	WorkerAuthHandler *handlers.AuthHandler
	TaskHandler       *handlers.TaskHandler
	UploadHandler     *handlers.UploadHandler
	PaymentHandler    *handlers.PaymentHandler
	HealthHandler     *handlers.HealthHandler
}

// NewContainer creates a new dependency container. cfg must already be
// validated.
func NewContainer(ctx context.Context, cfg config.Config, logger *zap.Logger) (*Container, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Container{Config: cfg, Logger: logger}
	if cfg.Metrics.Enabled {
		c.Metrics = metrics.New()
	}

	store, err := tasks.Open(ctx, tasks.Options{
		Driver:     cfg.Storage.Driver,
		DSN:        cfg.Storage.DSN,
		SQLitePath: cfg.Storage.SQLitePath,
	})
	if err != nil {
		return nil, fmt.Errorf("open task store: %w", err)
	}
	c.Store = store

	c.Ledger = ledger.NewReader(cfg.Ledger.Driver, ledger.Options{
		URL:          cfg.Ledger.RPCURL,
		Commitment:   cfg.Ledger.Commitment,
		Timeout:      cfg.Ledger.Timeout,
		RetryCount:   cfg.Ledger.RetryCount,
		RetryWait:    cfg.Ledger.RetryWait,
		RetryMaxWait: cfg.Ledger.RetryMaxWait,
	})

	publisher, err := events.Connect(cfg.Events.NATSURL, cfg.Events.Subject, logger.Named("events"))
	if err != nil {
		// Events are best effort; the API works without them.
		logger.Warn("task events disabled", zap.Error(err))
		publisher = events.Noop{}
	}
	c.Events = publisher

	if err := c.initSessions(); err != nil {
		c.Close()
		return nil, err
	}

	c.Attestor = services.NewPaymentAttestor(c.Ledger, store, cfg.Payment.Treasury, cfg.Payment.PriceLamports,
		logger.Named("payments"), c.Metrics)
	c.TaskService = services.NewTaskService(c.Attestor, store, publisher, logger.Named("tasks"), c.Metrics)
	c.PaymentService = services.NewPaymentRequestService(cfg.Payment.Treasury, cfg.Payment.PriceLamports,
		cfg.Payment.Label, services.NewQRCodeService())
	c.HealthService = services.NewHealthService(map[string]services.Pinger{"store": store})

	presigner, err := newPresigner(ctx, cfg.Upload)
	if err != nil {
		c.Close()
		return nil, err
	}
	c.UploadService = upload.NewService(presigner, cfg.Upload.PublicBaseURL)

	c.UserAuthHandler = handlers.NewAuthHandler(c.UserIssuer, logger, c.Metrics)
	c.WorkerAuthHandler = handlers.NewAuthHandler(c.WorkerIssuer, logger, c.Metrics)
	c.TaskHandler = handlers.NewTaskHandler(c.TaskService, logger)
	c.UploadHandler = handlers.NewUploadHandler(c.UploadService, logger)
	c.PaymentHandler = handlers.NewPaymentHandler(c.PaymentService, logger)
	c.HealthHandler = handlers.NewHealthHandler(c.HealthService, logger)
	return c, nil
}

func (c *Container) initSessions() error {
	a := c.Config.Auth
	if a.RequireNonce {
		c.Challenges = auth.NewChallengeStore(a.NonceTTL)
	}

	var err error
	if c.UserIssuer, err = session.NewIssuer(session.IssuerConfig{
		Role: core.RoleUser, Secret: a.UserSecret, TTL: a.UserTTL, Message: a.UserMessage, Challenges: c.Challenges,
	}); err != nil {
		return fmt.Errorf("user issuer: %w", err)
	}
	if c.WorkerIssuer, err = session.NewIssuer(session.IssuerConfig{
		Role: core.RoleWorker, Secret: a.WorkerSecret, TTL: a.WorkerTTL, Message: a.WorkerMessage, Challenges: c.Challenges,
	}); err != nil {
		return fmt.Errorf("worker issuer: %w", err)
	}
	if c.UserValidator, err = session.NewValidator(core.RoleUser, a.UserSecret); err != nil {
		return fmt.Errorf("user validator: %w", err)
	}
	if c.WorkerValidator, err = session.NewValidator(core.RoleWorker, a.WorkerSecret); err != nil {
		return fmt.Errorf("worker validator: %w", err)
	}
	return nil
}

func newPresigner(ctx context.Context, cfg config.UploadConfig) (upload.Presigner, error) {
	if cfg.Bucket == "" {
		return upload.Disabled{}, nil
	}
	p, err := upload.NewS3Presigner(ctx, upload.S3Options{
		Bucket:    cfg.Bucket,
		Region:    cfg.Region,
		Endpoint:  cfg.Endpoint,
		AccessKey: cfg.AccessKey,
		SecretKey: cfg.SecretKey,
		Expiry:    cfg.Expiry,
	})
	if err != nil {
		return nil, fmt.Errorf("upload presigner: %w", err)
	}
	return p, nil
}

// Close releases the store and event connection.
func (c *Container) Close() error {
	if c.Events != nil {
		c.Events.Close()
	}
	if c.Store != nil {
		return c.Store.Close()
	}
	return nil
}
