package mcptools

import (
	"context"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/rs/zerolog"

	"github.com/nutrimind/nutrimind/internal/workspace"
)

// makeReq builds a mcp.CallToolRequest with the given arguments.
func makeReq(args map[string]interface{}) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

// resultText extracts the text content from a tool result.
func resultText(r *mcp.CallToolResult) string {
	if r == nil || len(r.Content) == 0 {
		return ""
	}
	for _, c := range r.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func newTestStore(t *testing.T) *workspace.FileStore {
	t.Helper()
	return workspace.NewFileStore(t.TempDir(), zerolog.Nop())
}

func TestUpdateAndReadTools(t *testing.T) {
	store := newTestStore(t)
	update := NewUpdateTool(store)
	read := NewReadTool(store)

	res, err := update.Handle(context.Background(), makeReq(map[string]interface{}{
		"user_id": float64(5),
		"kind":    "nutrition",
		"section": "Recent Analyses",
		"content": "- oatmeal: 350 kcal",
	}))
	if err != nil {
		t.Fatalf("update Handle: %v", err)
	}
	if res.IsError {
		t.Fatalf("update failed: %s", resultText(res))
	}

	res, err = read.Handle(context.Background(), makeReq(map[string]interface{}{
		"user_id": float64(5),
		"kind":    "nutrition",
	}))
	if err != nil {
		t.Fatalf("read Handle: %v", err)
	}
	if !strings.Contains(resultText(res), "- oatmeal: 350 kcal") {
		t.Errorf("read result:\n%s", resultText(res))
	}
}

func TestUpdateToolAppend(t *testing.T) {
	store := newTestStore(t)
	update := NewUpdateTool(store)

	for _, content := range []string{"- first", "- second"} {
		res, _ := update.Handle(context.Background(), makeReq(map[string]interface{}{
			"user_id": float64(5),
			"kind":    "chat",
			"section": "Recent Interactions",
			"content": content,
			"append":  true,
		}))
		if res.IsError {
			t.Fatalf("update failed: %s", resultText(res))
		}
	}

	doc, _ := store.Read(5, workspace.KindChat)
	body, _ := doc.Section("Recent Interactions")
	if body != "- first\n- second" {
		t.Errorf("body = %q", body)
	}
}

func TestReadToolMissingDocument(t *testing.T) {
	read := NewReadTool(newTestStore(t))
	res, err := read.Handle(context.Background(), makeReq(map[string]interface{}{
		"user_id": float64(1),
		"kind":    "shared",
	}))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if !res.IsError {
		t.Error("missing document must be a tool error")
	}
}

func TestToolsRejectBadArguments(t *testing.T) {
	store := newTestStore(t)

	cases := []struct {
		name string
		run  func() (*mcp.CallToolResult, error)
	}{
		{"read without user_id", func() (*mcp.CallToolResult, error) {
			return NewReadTool(store).Handle(context.Background(), makeReq(map[string]interface{}{"kind": "shared"}))
		}},
		{"read with bad kind", func() (*mcp.CallToolResult, error) {
			return NewReadTool(store).Handle(context.Background(), makeReq(map[string]interface{}{"user_id": float64(1), "kind": "diary"}))
		}},
		{"update without section", func() (*mcp.CallToolResult, error) {
			return NewUpdateTool(store).Handle(context.Background(), makeReq(map[string]interface{}{"user_id": float64(1), "kind": "shared"}))
		}},
		{"context with bad agent", func() (*mcp.CallToolResult, error) {
			return NewContextTool(store).Handle(context.Background(), makeReq(map[string]interface{}{"user_id": float64(1), "agent": "mystery"}))
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res, err := tc.run()
			if err != nil {
				t.Fatalf("Handle: %v", err)
			}
			if !res.IsError {
				t.Error("expected a tool error result")
			}
		})
	}
}

func TestContextTool(t *testing.T) {
	store := newTestStore(t)
	store.UpdateSection(3, workspace.KindShared, "Basic Info", "- Age: 30", true)

	res, err := NewContextTool(store).Handle(context.Background(), makeReq(map[string]interface{}{
		"user_id": float64(3),
	}))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if !strings.Contains(resultText(res), "=== SHARED WORKSPACE ===") {
		t.Errorf("context:\n%s", resultText(res))
	}
}

func TestArchiveTool(t *testing.T) {
	store := newTestStore(t)
	store.UpdateSection(4, workspace.KindShared, "Basic Info", "- Age: 30", true)

	res, err := NewArchiveTool(store).Handle(context.Background(), makeReq(map[string]interface{}{
		"user_id": float64(4),
	}))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if res.IsError {
		t.Fatalf("archive failed: %s", resultText(res))
	}
}
