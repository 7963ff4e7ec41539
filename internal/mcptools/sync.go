package mcptools

import (
	"context"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/nutrimind/nutrimind/internal/healthdb"
	"github.com/nutrimind/nutrimind/internal/projection"
	"github.com/nutrimind/nutrimind/internal/scheduler"
	"github.com/nutrimind/nutrimind/internal/workspace"
)

// SyncTool handles the sync_user MCP tool.
type SyncTool struct {
	proj *projection.Service
}

// NewSyncTool creates a SyncTool.
func NewSyncTool(proj *projection.Service) *SyncTool {
	return &SyncTool{proj: proj}
}

// Definition returns the MCP tool definition for sync_user.
func (t *SyncTool) Definition() mcp.Tool {
	return mcp.NewTool("sync_user",
		mcp.WithDescription(
			"Rebuild a user's workspace documents from the health database. "+
				"Syncs one workspace or all four.",
		),
		mcp.WithNumber("user_id",
			mcp.Required(),
			mcp.Description("User to sync"),
		),
		mcp.WithString("kind",
			mcp.Description("Workspace kind to sync, or all (default all)"),
		),
	)
}

// Handle processes the sync_user tool call.
func (t *SyncTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	userID := userIDArg(req)
	if userID == 0 {
		return mcp.NewToolResultError("'user_id' is required"), nil
	}
	kind := workspace.Kind(req.GetString("kind", string(workspace.KindAll)))

	var err error
	switch kind {
	case workspace.KindAll:
		err = t.proj.ProjectAll(userID)
	case workspace.KindShared:
		err = t.proj.ProjectShared(userID)
	case workspace.KindGoalTracking:
		err = t.proj.ProjectGoalTracking(userID)
	case workspace.KindNutrition:
		err = t.proj.ProjectNutrition(userID)
	case workspace.KindChat:
		err = t.proj.ProjectChat(userID)
	default:
		return mcp.NewToolResultError(fmt.Sprintf("unknown workspace kind %q", kind)), nil
	}
	if err != nil {
		if errors.Is(err, healthdb.ErrNoProfile) {
			return mcp.NewToolResultError("user has no profile yet"), nil
		}
		return mcp.NewToolResultError("syncing: " + err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Synced %s workspace(s) for user %d.", kind, userID)), nil
}

// RunTaskTool handles the run_task MCP tool.
type RunTaskTool struct {
	sched *scheduler.Scheduler
}

// NewRunTaskTool creates a RunTaskTool.
func NewRunTaskTool(sched *scheduler.Scheduler) *RunTaskTool {
	return &RunTaskTool{sched: sched}
}

// Definition returns the MCP tool definition for run_task.
func (t *RunTaskTool) Definition() mcp.Tool {
	return mcp.NewTool("run_task",
		mcp.WithDescription(
			"Run one scheduled maintenance task immediately instead of waiting for its cadence.",
		),
		mcp.WithString("task",
			mcp.Required(),
			mcp.Description("Task name: shared_memory, goal_tracking, nutrition, or chat"),
		),
	)
}

// Handle processes the run_task tool call.
func (t *RunTaskTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	task := req.GetString("task", "")
	if task == "" {
		return mcp.NewToolResultError("'task' is required"), nil
	}
	if err := t.sched.RunNow(task); err != nil {
		return mcp.NewToolResultError("running task: " + err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Task %q completed.", task)), nil
}
