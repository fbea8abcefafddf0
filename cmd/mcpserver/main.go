package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"turks-backend/config"
	"turks-backend/core"
	"turks-backend/logging"
	"turks-backend/mcp"
	"turks-backend/services"
	"turks-backend/session"
	"turks-backend/storage/tasks"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	// Stdout carries the MCP stream; zap writes to stderr.
	logger, err := logging.New(cfg.Logging.Level, false)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	if cfg.Auth.WorkerSecret == "" {
		return errors.New("auth.worker_secret is required")
	}
	validator, err := session.NewValidator(core.RoleWorker, cfg.Auth.WorkerSecret)
	if err != nil {
		return err
	}

	ctx := context.Background()
	store, err := tasks.Open(ctx, tasks.Options{
		Driver:     cfg.Storage.Driver,
		DSN:        cfg.Storage.DSN,
		SQLitePath: cfg.Storage.SQLitePath,
	})
	if err != nil {
		return fmt.Errorf("open task store: %w", err)
	}
	defer store.Close()

	svc := services.NewTaskService(nil, store, nil, logger.Named("tasks"), nil)
	mcpServer := mcp.NewMCPServer(svc, validator, logger.Named("mcp"))

	logger.Info("worker MCP server starting", zap.String("store", cfg.Storage.Driver))
	return server.ServeStdio(mcpServer.GetMCPServer())
}
