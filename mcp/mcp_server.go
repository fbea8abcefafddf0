package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"turks-backend/core"
	"turks-backend/services"
	"turks-backend/session"
)

// TokenValidator checks a raw worker session token.
type TokenValidator interface {
	ValidateToken(token string) (core.Identity, error)
}

// MCPServer exposes the worker task surface to agents over MCP.
type MCPServer struct {
	mcpServer *server.MCPServer
	tasks     *services.TaskService
	validator TokenValidator
	logger    *zap.Logger
}

// NewMCPServer builds the server and registers its tools. validator should
// accept worker tokens only.
func NewMCPServer(tasks *services.TaskService, validator *session.Validator, logger *zap.Logger) *MCPServer {
	if logger == nil {
		logger = zap.NewNop()
	}
	mcpServer := server.NewMCPServer(
		"Mechanical Turks Worker",
		"1.0.0",
		server.WithToolCapabilities(true),
	)

	s := &MCPServer{
		mcpServer: mcpServer,
		tasks:     tasks,
		validator: validator,
		logger:    logger,
	}
	s.registerTools()
	return s
}

// GetMCPServer returns the underlying MCP server for transport setup
func (s *MCPServer) GetMCPServer() *server.MCPServer {
	return s.mcpServer
}

func (s *MCPServer) registerTools() {
	tokenArg := mcp.WithString("token", mcp.Required(), mcp.Description("Worker session token from /v1/worker/signin"))

	s.mcpServer.AddTool(mcp.NewTool("whoami",
		mcp.WithDescription("Show the worker wallet a session token belongs to"),
		tokenArg,
	), s.handleWhoAmI)

	s.mcpServer.AddTool(mcp.NewTool("get_task",
		mcp.WithDescription("Get a task with its image options"),
		tokenArg,
		mcp.WithString("task_id", mcp.Required(), mcp.Description("ID of task to retrieve")),
	), s.handleGetTask)

	s.mcpServer.AddTool(mcp.NewTool("list_tasks",
		mcp.WithDescription("List tasks, newest first"),
		tokenArg,
		mcp.WithNumber("limit", mcp.Description("Maximum tasks to return (default 20)")),
		mcp.WithNumber("offset", mcp.Description("Tasks to skip")),
	), s.handleListTasks)
}

// authenticate resolves the token argument. The returned result is non-nil
// when the call must stop with a tool error.
func (s *MCPServer) authenticate(request mcp.CallToolRequest) (core.Identity, *mcp.CallToolResult) {
	token, err := request.RequireString("token")
	if err != nil {
		return core.Identity{}, mcp.NewToolResultError(err.Error())
	}
	id, err := s.validator.ValidateToken(token)
	if err != nil {
		s.logger.Debug("mcp token rejected", zap.String("kind", core.KindOf(err)))
		return core.Identity{}, mcp.NewToolResultError(fmt.Sprintf("%s: worker session required", core.KindOf(err)))
	}
	return id, nil
}

func (s *MCPServer) handleWhoAmI(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, denied := s.authenticate(request)
	if denied != nil {
		return denied, nil
	}
	return jsonResult(map[string]string{"userId": id.PublicAddress, "role": string(id.Role)})
}

func (s *MCPServer) handleGetTask(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, denied := s.authenticate(request)
	if denied != nil {
		return denied, nil
	}
	taskID, err := request.RequireString("task_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	task, err := s.tasks.GetTask(ctx, id, taskID)
	if err != nil {
		if kind := core.KindOf(err); kind != "" {
			return mcp.NewToolResultError(fmt.Sprintf("%s: %s", kind, taskID)), nil
		}
		return nil, err
	}
	return jsonResult(task)
}

func (s *MCPServer) handleListTasks(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, denied := s.authenticate(request)
	if denied != nil {
		return denied, nil
	}
	limit := request.GetInt("limit", 20)
	offset := request.GetInt("offset", 0)

	list, total, err := s.tasks.ListTasks(ctx, id, limit, offset)
	if err != nil {
		return nil, err
	}
	return jsonResult(map[string]interface{}{
		"tasks":       list,
		"total_count": total,
	})
}

func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode tool result: %w", err)
	}
	return mcp.NewToolResultText(string(raw)), nil
}
