// Package mcp exposes the workflow tracker's read-only reporting tools over
// the Model Context Protocol.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/Formentera-Operations/workflow-tracker/internal/metrics"
	"github.com/Formentera-Operations/workflow-tracker/pkg/models"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// WorkflowService is the part of services.WorkflowService the tools use.
type WorkflowService interface {
	List(ctx context.Context, c metrics.Criteria) ([]*models.Workflow, error)
	Stats(ctx context.Context) (metrics.Summary, error)
	HourlyRate(ctx context.Context) float64
}

type Server struct {
	mcpServer *server.MCPServer
	service   WorkflowService
}

func NewServer(service WorkflowService, version string) *Server {
	s := &Server{
		mcpServer: server.NewMCPServer(
			"Workflow Tracker",
			version,
			server.WithToolCapabilities(true),
		),
		service: service,
	}

	s.registerTools()
	return s
}

func (s *Server) GetMCPServer() *server.MCPServer {
	return s.mcpServer
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(
		mcp.NewTool(
			"list_workflows",
			mcp.WithDescription("List workflow automation proposals, optionally filtered and sorted"),
			mcp.WithString("search", mcp.Description("Case-insensitive match on process name or description")),
			mcp.WithString("department", mcp.Description("Department name, or All")),
			mcp.WithString("status", mcp.Description("Status, or All")),
			mcp.WithString("priority", mcp.Description("Priority, or All")),
			mcp.WithString("sort",
				mcp.Description("Sort order"),
				mcp.Enum(string(metrics.SortDateDesc), string(metrics.SortDateAsc), string(metrics.SortTimeSaved), string(metrics.SortPriority)),
			),
		),
		s.handleListWorkflows,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"workflow_stats",
			mcp.WithDescription("Aggregate time and cost savings across every workflow"),
		),
		s.handleWorkflowStats,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"compute_savings",
			mcp.WithDescription("Compute the savings of a single process at the given or stored hourly rate"),
			mcp.WithNumber("current", mcp.Required(), mcp.Description("Minutes per occurrence today")),
			mcp.WithNumber("automated", mcp.Required(), mcp.Description("Minutes per occurrence once automated")),
			mcp.WithString("frequency",
				mcp.Required(),
				mcp.Description("How often the process runs"),
				mcp.Enum(string(models.FrequencyDaily), string(models.FrequencyWeekly), string(models.FrequencyMonthly), string(models.FrequencyQuarterly)),
			),
			mcp.WithNumber("rate", mcp.Description("Hourly rate; defaults to the stored rate")),
		),
		s.handleComputeSavings,
	)
}

func arguments(request mcp.CallToolRequest) (map[string]interface{}, bool) {
	if request.Params.Arguments == nil {
		return map[string]interface{}{}, true
	}
	args, ok := request.Params.Arguments.(map[string]interface{})
	return args, ok
}

func stringArg(args map[string]interface{}, key string) string {
	v, _ := args[key].(string)
	return v
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	jsonBytes, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

func (s *Server) handleListWorkflows(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := arguments(request)
	if !ok {
		return mcp.NewToolResultError("Invalid arguments type"), nil
	}

	sortKey, err := metrics.ParseSortKey(stringArg(args, "sort"))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	workflows, err := s.service.List(ctx, metrics.Criteria{
		Search:     stringArg(args, "search"),
		Department: stringArg(args, "department"),
		Status:     stringArg(args, "status"),
		Priority:   stringArg(args, "priority"),
		Sort:       sortKey,
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to list workflows: %v", err)), nil
	}

	return jsonResult(workflows)
}

func (s *Server) handleWorkflowStats(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	summary, err := s.service.Stats(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to compute statistics: %v", err)), nil
	}
	return jsonResult(summary)
}

func (s *Server) handleComputeSavings(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := arguments(request)
	if !ok {
		return mcp.NewToolResultError("Invalid arguments type"), nil
	}

	current, ok := args["current"].(float64)
	if !ok {
		return mcp.NewToolResultError("Missing required parameter: current"), nil
	}
	automated, ok := args["automated"].(float64)
	if !ok {
		return mcp.NewToolResultError("Missing required parameter: automated"), nil
	}
	frequency := models.Frequency(stringArg(args, "frequency"))
	if frequency == "" {
		return mcp.NewToolResultError("Missing required parameter: frequency"), nil
	}

	rate, ok := args["rate"].(float64)
	if !ok {
		rate = s.service.HourlyRate(ctx)
	}

	w := &models.Workflow{
		CurrentTime:                  int(current),
		EstimatedTimeAfterAutomation: int(automated),
		Frequency:                    frequency,
	}
	return jsonResult(metrics.Compute(w, rate))
}

// MountHTTPHandlers serves the MCP SSE transport under /mcp.
func MountHTTPHandlers(mux *http.ServeMux, mcpServer *server.MCPServer) {
	sseServer := server.NewSSEServer(mcpServer, server.WithStaticBasePath("/mcp"))

	mux.HandleFunc("/mcp", func(w http.ResponseWriter, r *http.Request) {
		// Direct POST for tool calls
		if r.Method == http.MethodPost {
			sseServer.ServeHTTP(w, r)
			return
		}
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	})

	// SSE endpoints
	mux.HandleFunc("/mcp/sse", sseServer.ServeHTTP)
	mux.HandleFunc("/mcp/message", sseServer.ServeHTTP)
}
