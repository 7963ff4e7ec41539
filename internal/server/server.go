// Package server wires all components and creates the MCP server.
//
// This is the composition root: it creates concrete implementations and
// injects them into the tools and services that depend on abstractions.
// No business logic lives here — only wiring.
package server

import (
	"fmt"

	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"

	"github.com/nutrimind/nutrimind/internal/analyzer"
	"github.com/nutrimind/nutrimind/internal/config"
	"github.com/nutrimind/nutrimind/internal/events"
	"github.com/nutrimind/nutrimind/internal/healthdb"
	"github.com/nutrimind/nutrimind/internal/mcptools"
	"github.com/nutrimind/nutrimind/internal/orchestrator"
	"github.com/nutrimind/nutrimind/internal/projection"
	"github.com/nutrimind/nutrimind/internal/scheduler"
	"github.com/nutrimind/nutrimind/internal/worker"
	"github.com/nutrimind/nutrimind/internal/workspace"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Server bundles the MCP surface with the background scheduler so the
// command can run both.
type Server struct {
	MCP       *server.MCPServer
	Scheduler *scheduler.Scheduler
}

// analysisRecorder adapts the event handler to the orchestrator's
// persistence contract.
type analysisRecorder struct {
	events *events.Handler
}

func (r analysisRecorder) RecordAnalysis(userID int64, mealType string, a *orchestrator.Analysis) {
	r.events.AnalysisRecorded(userID, events.MealAnalysis{
		MealType:    mealType,
		Foods:       a.Foods,
		Calories:    a.Nutrition.Calories,
		HealthGrade: a.HealthGrade,
	})
}

// New creates the fully wired server. The returned cleanup function
// drains the worker pool and closes the database; it is always non-nil
// and must be called on shutdown.
func New(cfg config.Config, log zerolog.Logger) (*Server, func(), error) {
	db, err := healthdb.New(cfg.DBPath)
	if err != nil {
		return nil, func() {}, fmt.Errorf("server: open health database: %w", err)
	}

	ws := workspace.NewFileStore(cfg.DataDir, log)
	proj := projection.New(db, ws, log)
	ev := events.New(ws, proj, log)
	pool := worker.New(cfg.Workers, cfg.QueueSize, log)
	orch := orchestrator.New(db, ws, analyzer.NewClient(cfg.AnalyzerURL), pool, analysisRecorder{ev}, proj, log)
	sched := scheduler.New(db, proj, log)

	cleanup := func() {
		pool.Close()
		if err := db.Close(); err != nil {
			log.Error().Err(err).Msg("closing health database")
		}
	}

	s := server.NewMCPServer(
		"nutrimind",
		Version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(
			"Per-user workspace memory for nutrition coaching. Use analyze_meal and "+
				"daily_status for user-facing answers, memory_context to load an agent's "+
				"memory, and the workspace/sync tools for maintenance.",
		),
	)

	analyzeTool := mcptools.NewAnalyzeTool(orch)
	s.AddTool(analyzeTool.Definition(), analyzeTool.Handle)

	statusTool := mcptools.NewDailyStatusTool(orch)
	s.AddTool(statusTool.Definition(), statusTool.Handle)

	contextTool := mcptools.NewContextTool(ws)
	s.AddTool(contextTool.Definition(), contextTool.Handle)

	readTool := mcptools.NewReadTool(ws)
	s.AddTool(readTool.Definition(), readTool.Handle)

	updateTool := mcptools.NewUpdateTool(ws)
	s.AddTool(updateTool.Definition(), updateTool.Handle)

	syncTool := mcptools.NewSyncTool(proj)
	s.AddTool(syncTool.Definition(), syncTool.Handle)

	runTaskTool := mcptools.NewRunTaskTool(sched)
	s.AddTool(runTaskTool.Definition(), runTaskTool.Handle)

	archiveTool := mcptools.NewArchiveTool(ws)
	s.AddTool(archiveTool.Definition(), archiveTool.Handle)

	return &Server{MCP: s, Scheduler: sched}, cleanup, nil
}
