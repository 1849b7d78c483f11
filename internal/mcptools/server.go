// Package mcptools exposes the daemon's reminders to assistants as Model
// Context Protocol tools.
package mcptools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/brettz9/sundriven/internal/reminder"
	"github.com/brettz9/sundriven/internal/scheduler"
	"github.com/brettz9/sundriven/internal/timemath"
)

const serverName = "sundriven"

// Daemon is the part of *sundcli.Client the tools call.
type Daemon interface {
	List(ctx context.Context) ([]reminder.Reminder, error)
	Save(ctx context.Context, r reminder.Reminder, originalName string) (*reminder.Reminder, error)
	Delete(ctx context.Context, name string) error
	SetEnabled(ctx context.Context, name string, enabled bool) (*reminder.Reminder, error)
	Status(ctx context.Context) ([]scheduler.Status, error)
}

// Server is the MCP server for reminder management.
type Server struct {
	mcpServer *server.MCPServer
	daemon    Daemon
}

func NewServer(daemon Daemon, version string) *Server {
	s := &Server{daemon: daemon}
	s.mcpServer = server.NewMCPServer(
		serverName,
		version,
		server.WithToolCapabilities(false),
	)
	s.registerTools()
	return s
}

// MCPServer returns the underlying MCP server for serving.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio serves the tools on stdin/stdout until EOF.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(
		mcp.NewTool("list_reminders",
			mcp.WithDescription("List every stored reminder with its schedule rule"),
		),
		s.handleList,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("save_reminder",
			mcp.WithDescription("Create a reminder, or replace or rename an existing one. Omitted fields take the defaults of a new reminder (daily, 60 minutes after now, enabled)."),
			mcp.WithString("name", mcp.Required(), mcp.Description("Unique reminder name")),
			mcp.WithString("original_name", mcp.Description("Existing name to replace; set to rename")),
			mcp.WithString("frequency", mcp.Description("daily or one-time")),
			mcp.WithString("relative_event", mcp.Description("now, sunrise, sunset, solarNoon, civilDawn, civilDusk, nauticalDawn, nauticalDusk, astronomicalDawn or astronomicalDusk")),
			mcp.WithString("minutes", mcp.Description("Offset in minutes from the event, e.g. 15 or 2.5")),
			mcp.WithString("relative_position", mcp.Description("before or after the event")),
			mcp.WithBoolean("enabled", mcp.Description("Whether the reminder is armed (default: true)")),
		),
		s.handleSave,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("delete_reminder",
			mcp.WithDescription("Delete a reminder permanently"),
			mcp.WithString("name", mcp.Required(), mcp.Description("Reminder name")),
		),
		s.handleDelete,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("set_reminder_enabled",
			mcp.WithDescription("Enable or disable a reminder without changing its rule"),
			mcp.WithString("name", mcp.Required(), mcp.Description("Reminder name")),
			mcp.WithBoolean("enabled", mcp.Required(), mcp.Description("true to enable, false to disable")),
		),
		s.handleSetEnabled,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("next_reminders",
			mcp.WithDescription("List the reminders the daemon has scheduled, soonest first"),
			mcp.WithNumber("limit", mcp.Description("Maximum number of entries (default: all)")),
		),
		s.handleNext,
	)
}

func (s *Server) handleList(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	list, err := s.daemon.List(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list reminders: %v", err)), nil
	}
	if len(list) == 0 {
		return mcp.NewToolResultText("No reminders found."), nil
	}
	return jsonResult(list), nil
}

func (s *Server) handleSave(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := req.GetString("name", "")
	if name == "" {
		return mcp.NewToolResultError("name is required"), nil
	}

	r := reminder.Default()
	r.Name = name
	r.Frequency = reminder.Frequency(req.GetString("frequency", string(r.Frequency)))
	r.RelativeEvent = req.GetString("relative_event", r.RelativeEvent)
	r.Minutes = req.GetString("minutes", r.Minutes)
	r.RelativePosition = timemath.Position(req.GetString("relative_position", string(r.RelativePosition)))
	r.Enabled = req.GetBool("enabled", r.Enabled)

	saved, err := s.daemon.Save(ctx, r, req.GetString("original_name", ""))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to save reminder: %v", err)), nil
	}
	return jsonResult(saved), nil
}

func (s *Server) handleDelete(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := req.GetString("name", "")
	if name == "" {
		return mcp.NewToolResultError("name is required"), nil
	}
	if err := s.daemon.Delete(ctx, name); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to delete reminder: %v", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Reminder %q deleted.", name)), nil
}

func (s *Server) handleSetEnabled(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := req.GetString("name", "")
	if name == "" {
		return mcp.NewToolResultError("name is required"), nil
	}
	updated, err := s.daemon.SetEnabled(ctx, name, req.GetBool("enabled", true))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to update reminder: %v", err)), nil
	}
	return jsonResult(updated), nil
}

func (s *Server) handleNext(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	status, err := s.daemon.Status(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to read schedule: %v", err)), nil
	}
	if limit := int(req.GetFloat("limit", 0)); limit > 0 && limit < len(status) {
		status = status[:limit]
	}
	if len(status) == 0 {
		return mcp.NewToolResultText("Nothing is scheduled."), nil
	}
	return jsonResult(status), nil
}

func jsonResult(v any) *mcp.CallToolResult {
	output, _ := json.MarshalIndent(v, "", "  ")
	return mcp.NewToolResultText(string(output))
}
