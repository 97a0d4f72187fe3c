// ABOUTME: MCP resource implementations for recent workouts and stats.
// ABOUTME: Provides fitsync://workouts/recent and fitsync://stats resources.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	uriRecentWorkouts = "fitsync://workouts/recent"
	uriStats          = "fitsync://stats"
)

func (s *Server) registerResources() {
	// fitsync://workouts/recent - Last 10 completed workouts plus any active session
	s.mcpServer.AddResource(&mcp.Resource{
		URI:         uriRecentWorkouts,
		Name:        "Recent Workouts",
		Description: "Last 10 completed workouts and the active session",
		MIMEType:    "application/json",
	}, s.handleRecentResource)

	// fitsync://stats - Level, XP, streaks, completed achievements and sync state
	s.mcpServer.AddResource(&mcp.Resource{
		URI:         uriStats,
		Name:        "Training Stats",
		Description: "Level, XP, streaks, completed achievements and sync status",
		MIMEType:    "application/json",
	}, s.handleStatsResource)
}

func jsonResource(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

func (s *Server) handleRecentResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	userID, err := s.app.UserID()
	if err != nil {
		return nil, err
	}
	recent, err := s.app.Workouts.Recent(ctx, userID, 10)
	if err != nil {
		return nil, fmt.Errorf("failed to list workouts: %w", err)
	}

	result := map[string]any{
		"workouts": toWorkoutViews(recent),
	}
	if active, err := s.app.Workouts.ActiveSession(ctx, userID); err == nil {
		result["active"] = toWorkoutView(active)
	}
	return jsonResource(uriRecentWorkouts, result)
}

func (s *Server) handleStatsResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	userID, err := s.app.UserID()
	if err != nil {
		return nil, err
	}
	stats, err := s.app.Users.StatsFor(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load stats: %w", err)
	}
	progress, err := s.app.Achievements.ListProgress(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list progress: %w", err)
	}
	var completed []string
	for _, p := range progress {
		if p.IsCompleted {
			completed = append(completed, p.AchievementID)
		}
	}
	status, err := s.app.Sync.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read sync status: %w", err)
	}

	return jsonResource(uriStats, map[string]any{
		"generated_at": time.Now().Format(time.RFC3339),
		"stats":        toStatsView(stats),
		"achievements": completed,
		"sync":         status,
	})
}
