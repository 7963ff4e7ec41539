package mcptools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/nutrimind/nutrimind/internal/workspace"
)

// ReadTool handles the workspace_read MCP tool.
type ReadTool struct {
	store *workspace.FileStore
}

// NewReadTool creates a ReadTool.
func NewReadTool(store *workspace.FileStore) *ReadTool {
	return &ReadTool{store: store}
}

// Definition returns the MCP tool definition for workspace_read.
func (t *ReadTool) Definition() mcp.Tool {
	return mcp.NewTool("workspace_read",
		mcp.WithDescription("Read one workspace document (shared, goal_tracking, nutrition, or chat) for a user."),
		mcp.WithNumber("user_id",
			mcp.Required(),
			mcp.Description("Owner of the workspace"),
		),
		mcp.WithString("kind",
			mcp.Required(),
			mcp.Description("Workspace kind: shared, goal_tracking, nutrition, chat"),
		),
	)
}

// Handle processes the workspace_read tool call.
func (t *ReadTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	userID := userIDArg(req)
	if userID == 0 {
		return mcp.NewToolResultError("'user_id' is required"), nil
	}
	kind := workspace.Kind(req.GetString("kind", ""))
	if !kind.Valid() {
		return mcp.NewToolResultError(fmt.Sprintf("unknown workspace kind %q", kind)), nil
	}

	doc, err := t.store.Read(userID, kind)
	if err != nil {
		return mcp.NewToolResultError("reading workspace: " + err.Error()), nil
	}
	if doc == nil {
		return mcp.NewToolResultError(fmt.Sprintf("no %s workspace for user %d yet", kind, userID)), nil
	}
	return mcp.NewToolResultText(doc.Raw), nil
}

// UpdateTool handles the workspace_update MCP tool.
type UpdateTool struct {
	store *workspace.FileStore
}

// NewUpdateTool creates an UpdateTool.
func NewUpdateTool(store *workspace.FileStore) *UpdateTool {
	return &UpdateTool{store: store}
}

// Definition returns the MCP tool definition for workspace_update.
func (t *UpdateTool) Definition() mcp.Tool {
	return mcp.NewTool("workspace_update",
		mcp.WithDescription(
			"Update one section of a workspace document. Replaces the section body by default; "+
				"set append to add to it. A missing document or section is created.",
		),
		mcp.WithNumber("user_id",
			mcp.Required(),
			mcp.Description("Owner of the workspace"),
		),
		mcp.WithString("kind",
			mcp.Required(),
			mcp.Description("Workspace kind: shared, goal_tracking, nutrition, chat"),
		),
		mcp.WithString("section",
			mcp.Required(),
			mcp.Description("Exact section title (without the ## prefix)"),
		),
		mcp.WithString("content",
			mcp.Required(),
			mcp.Description("New section body in markdown"),
		),
		mcp.WithBoolean("append",
			mcp.Description("Append to the existing body instead of replacing it (default false)"),
		),
	)
}

// Handle processes the workspace_update tool call.
func (t *UpdateTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	userID := userIDArg(req)
	if userID == 0 {
		return mcp.NewToolResultError("'user_id' is required"), nil
	}
	kind := workspace.Kind(req.GetString("kind", ""))
	if !kind.Valid() {
		return mcp.NewToolResultError(fmt.Sprintf("unknown workspace kind %q", kind)), nil
	}
	section := req.GetString("section", "")
	if section == "" {
		return mcp.NewToolResultError("'section' is required"), nil
	}
	content := req.GetString("content", "")
	replace := !boolArg(req, "append", false)

	if err := t.store.UpdateSection(userID, kind, section, content, replace); err != nil {
		return mcp.NewToolResultError("updating section: " + err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Updated section %q of %s workspace for user %d.", section, kind, userID)), nil
}

// ContextTool handles the memory_context MCP tool.
type ContextTool struct {
	store *workspace.FileStore
}

// NewContextTool creates a ContextTool.
func NewContextTool(store *workspace.FileStore) *ContextTool {
	return &ContextTool{store: store}
}

// Definition returns the MCP tool definition for memory_context.
func (t *ContextTool) Definition() mcp.Tool {
	return mcp.NewTool("memory_context",
		mcp.WithDescription(
			"Assemble the memory context an agent should see for a user: the shared workspace "+
				"plus the agent's own workspace, concatenated with banners.",
		),
		mcp.WithNumber("user_id",
			mcp.Required(),
			mcp.Description("User whose memory to load"),
		),
		mcp.WithString("agent",
			mcp.Description("Agent kind: goal_tracking, nutrition, chat, or all (default all)"),
		),
	)
}

// Handle processes the memory_context tool call.
func (t *ContextTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	userID := userIDArg(req)
	if userID == 0 {
		return mcp.NewToolResultError("'user_id' is required"), nil
	}

	out, err := t.store.ContextForAgent(userID, req.GetString("agent", "all"))
	if err != nil {
		return mcp.NewToolResultError("loading context: " + err.Error()), nil
	}
	if out == "" {
		return mcp.NewToolResultText("No memory recorded for this user yet."), nil
	}
	return mcp.NewToolResultText(out), nil
}

// ArchiveTool handles the archive_workspace MCP tool.
type ArchiveTool struct {
	store *workspace.FileStore
}

// NewArchiveTool creates an ArchiveTool.
func NewArchiveTool(store *workspace.FileStore) *ArchiveTool {
	return &ArchiveTool{store: store}
}

// Definition returns the MCP tool definition for archive_workspace.
func (t *ArchiveTool) Definition() mcp.Tool {
	return mcp.NewTool("archive_workspace",
		mcp.WithDescription("Snapshot workspace documents into the user's history directory."),
		mcp.WithNumber("user_id",
			mcp.Required(),
			mcp.Description("Owner of the workspace"),
		),
		mcp.WithString("kind",
			mcp.Description("Workspace kind to snapshot, or all (default all)"),
		),
	)
}

// Handle processes the archive_workspace tool call.
func (t *ArchiveTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	userID := userIDArg(req)
	if userID == 0 {
		return mcp.NewToolResultError("'user_id' is required"), nil
	}
	kind := workspace.Kind(req.GetString("kind", string(workspace.KindAll)))

	if err := t.store.Archive(userID, kind); err != nil {
		return mcp.NewToolResultError("archiving: " + err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Archived %s workspace(s) for user %d.", kind, userID)), nil
}
