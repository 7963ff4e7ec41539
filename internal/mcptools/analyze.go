package mcptools

import (
	"context"
	"errors"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/nutrimind/nutrimind/internal/healthdb"
	"github.com/nutrimind/nutrimind/internal/orchestrator"
)

// AnalyzeTool handles the analyze_meal MCP tool.
type AnalyzeTool struct {
	orch *orchestrator.Orchestrator
}

// NewAnalyzeTool creates an AnalyzeTool.
func NewAnalyzeTool(orch *orchestrator.Orchestrator) *AnalyzeTool {
	return &AnalyzeTool{orch: orch}
}

// Definition returns the MCP tool definition for analyze_meal.
func (t *AnalyzeTool) Definition() mcp.Tool {
	return mcp.NewTool("analyze_meal",
		mcp.WithDescription(
			"Analyze a meal for a user with their memory context: allergies and restrictions "+
				"are passed to the analyzer, and the result is placed against today's energy budget.",
		),
		mcp.WithNumber("user_id",
			mcp.Required(),
			mcp.Description("User whose meal is being analyzed"),
		),
		mcp.WithString("description",
			mcp.Required(),
			mcp.Description("Free-text description of the meal"),
		),
		mcp.WithString("meal_type",
			mcp.Description("breakfast, lunch, dinner, snack, or late-night snack"),
		),
	)
}

// Handle processes the analyze_meal tool call.
func (t *AnalyzeTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	userID := userIDArg(req)
	if userID == 0 {
		return mcp.NewToolResultError("'user_id' is required"), nil
	}
	description := req.GetString("description", "")
	if description == "" {
		return mcp.NewToolResultError("'description' is required"), nil
	}

	result := t.orch.AnalyzeWithContext(ctx, orchestrator.AnalysisInput{
		UserID:      userID,
		MealType:    req.GetString("meal_type", ""),
		Description: description,
	})
	return jsonResult(result), nil
}

// DailyStatusTool handles the daily_status MCP tool.
type DailyStatusTool struct {
	orch *orchestrator.Orchestrator
}

// NewDailyStatusTool creates a DailyStatusTool.
func NewDailyStatusTool(orch *orchestrator.Orchestrator) *DailyStatusTool {
	return &DailyStatusTool{orch: orch}
}

// Definition returns the MCP tool definition for daily_status.
func (t *DailyStatusTool) Definition() mcp.Tool {
	return mcp.NewTool("daily_status",
		mcp.WithDescription(
			"Report today's energy budget for a user: targets, consumed, remaining, and goal progress.",
		),
		mcp.WithNumber("user_id",
			mcp.Required(),
			mcp.Description("User to report on"),
		),
	)
}

// Handle processes the daily_status tool call.
func (t *DailyStatusTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	userID := userIDArg(req)
	if userID == 0 {
		return mcp.NewToolResultError("'user_id' is required"), nil
	}

	status, err := t.orch.GetDailyStatus(userID)
	if err != nil {
		if errors.Is(err, healthdb.ErrNoProfile) {
			return mcp.NewToolResultError("user has no profile yet"), nil
		}
		return mcp.NewToolResultError("getting daily status: " + err.Error()), nil
	}
	return jsonResult(status), nil
}
