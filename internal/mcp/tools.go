// ABOUTME: MCP tool implementations for workouts, categories, achievements and sync.
// ABOUTME: Every tool acts on the signed-in user.
package mcp

import (
	"context"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/harperreed/fitsync/internal/models"
)

func (s *Server) registerTools() {
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "start_workout",
		Description: "Start a workout session, optionally from a template",
	}, s.handleStartWorkout)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "finish_workout",
		Description: "Finish the in-progress workout, recording exercises and sets",
	}, s.handleFinishWorkout)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "log_workout",
		Description: "Record an already completed workout in one step",
	}, s.handleLogWorkout)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "list_workouts",
		Description: "List recent completed workouts, optionally filtered by category",
	}, s.handleListWorkouts)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "get_workout",
		Description: "Get a workout with its exercises and sets",
	}, s.handleGetWorkout)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "delete_workout",
		Description: "Delete a workout by ID or ID prefix",
	}, s.handleDeleteWorkout)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "add_category",
		Description: "Create a workout category",
	}, s.handleAddCategory)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "list_categories",
		Description: "List workout categories, seeding the defaults if missing",
	}, s.handleListCategories)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "list_achievements",
		Description: "List active achievements with the user's progress",
	}, s.handleListAchievements)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "get_stats",
		Description: "Get level, XP, streaks and per-exercise stats",
	}, s.handleGetStats)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "sync_now",
		Description: "Run a sync pass with the remote store now",
	}, s.handleSyncNow)
}

// Tool input/output types

type startWorkoutInput struct {
	Name       string `json:"name,omitempty" jsonschema:"Workout name; defaults to the template name"`
	TemplateID string `json:"template_id,omitempty" jsonschema:"Template ID to copy the exercise plan from"`
}

type finishWorkoutInput struct {
	WorkoutID string         `json:"workout_id,omitempty" jsonschema:"Workout ID or prefix; defaults to the active session"`
	Exercises []exerciseView `json:"exercises,omitempty" jsonschema:"Performed exercises; omit to keep the plan"`
	EndedAt   string         `json:"ended_at,omitempty" jsonschema:"End time (RFC 3339), defaults to now"`
}

type logWorkoutInput struct {
	Name            string         `json:"name" jsonschema:"Workout name"`
	DurationMinutes int            `json:"duration_minutes" jsonschema:"Duration in minutes"`
	StartedAt       string         `json:"started_at,omitempty" jsonschema:"Start time (RFC 3339), defaults to duration before now"`
	CategoryID      string         `json:"category_id,omitempty" jsonschema:"Category ID"`
	Exercises       []exerciseView `json:"exercises,omitempty" jsonschema:"Performed exercises"`
}

type completedOutput struct {
	Workout  workoutView    `json:"workout"`
	XP       int64          `json:"xp"`
	Level    int            `json:"level"`
	Unlocked []unlockedView `json:"unlocked"`
	Message  string         `json:"message"`
}

type workoutOutput struct {
	Workout workoutView `json:"workout"`
	Message string      `json:"message"`
}

type listWorkoutsInput struct {
	CategoryID string `json:"category_id,omitempty" jsonschema:"Filter by category ID"`
	Limit      int    `json:"limit,omitempty" jsonschema:"Max results (default 20)"`
}

type listWorkoutsOutput struct {
	Workouts []workoutView `json:"workouts"`
}

type idInput struct {
	ID string `json:"id" jsonschema:"ID or ID prefix"`
}

type simpleOutput struct {
	Message string `json:"message"`
}

type addCategoryInput struct {
	Name  string `json:"name" jsonschema:"Category name"`
	Color string `json:"color,omitempty" jsonschema:"Hex color such as #00ACC1"`
}

type categoryOutput struct {
	Category categoryView `json:"category"`
	Message  string       `json:"message"`
}

type listCategoriesOutput struct {
	Categories []categoryView `json:"categories"`
}

type listAchievementsOutput struct {
	Achievements []achievementView `json:"achievements"`
}

type syncOutput struct {
	Pushed  int    `json:"pushed"`
	Failed  int    `json:"failed"`
	Pulled  int    `json:"pulled"`
	Skipped int    `json:"skipped"`
	Message string `json:"message"`
}

type emptyInput struct{}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func parseTime(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		t, err = time.ParseInLocation("2006-01-02 15:04", v, time.Local)
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q", v)
	}
	return t, nil
}

// Tool handlers

func (s *Server) handleStartWorkout(ctx context.Context, req *mcp.CallToolRequest, input startWorkoutInput) (*mcp.CallToolResult, workoutOutput, error) {
	userID, err := s.app.UserID()
	if err != nil {
		return nil, workoutOutput{}, err
	}
	templateID := input.TemplateID
	if templateID != "" {
		tpl, err := s.app.Templates.Resolve(ctx, userID, templateID)
		if err != nil {
			return nil, workoutOutput{}, fmt.Errorf("template not found: %s", input.TemplateID)
		}
		templateID = tpl.ID
	}
	w, err := s.app.Tracker.StartWorkout(ctx, userID, input.Name, templateID)
	if err != nil {
		return nil, workoutOutput{}, fmt.Errorf("failed to start workout: %w", err)
	}
	return nil, workoutOutput{
		Workout: toWorkoutView(w),
		Message: fmt.Sprintf("Started %s (ID: %s)", w.Name, shortID(w.ID)),
	}, nil
}

func (s *Server) handleFinishWorkout(ctx context.Context, req *mcp.CallToolRequest, input finishWorkoutInput) (*mcp.CallToolResult, completedOutput, error) {
	userID, err := s.app.UserID()
	if err != nil {
		return nil, completedOutput{}, err
	}
	end, err := parseTime(input.EndedAt)
	if err != nil {
		return nil, completedOutput{}, err
	}

	var w *models.CompletedWorkout
	if input.WorkoutID == "" {
		w, err = s.app.Workouts.ActiveSession(ctx, userID)
	} else {
		w, err = s.app.Workouts.Resolve(ctx, userID, input.WorkoutID)
	}
	if err != nil {
		return nil, completedOutput{}, fmt.Errorf("no workout to finish: %w", err)
	}

	res, err := s.app.Tracker.FinishWorkout(ctx, w.ID, fromExerciseInputs(input.Exercises), end)
	if err != nil {
		return nil, completedOutput{}, fmt.Errorf("failed to finish workout: %w", err)
	}
	return nil, completedOutput{
		Workout:  toWorkoutView(res.Workout),
		XP:       res.XP,
		Level:    res.Stats.Level,
		Unlocked: toUnlockedViews(res.Unlocked),
		Message:  fmt.Sprintf("Finished %s: +%d XP, %d achievement(s) unlocked", res.Workout.Name, res.XP, len(res.Unlocked)),
	}, nil
}

func (s *Server) handleLogWorkout(ctx context.Context, req *mcp.CallToolRequest, input logWorkoutInput) (*mcp.CallToolResult, completedOutput, error) {
	userID, err := s.app.UserID()
	if err != nil {
		return nil, completedOutput{}, err
	}
	if input.DurationMinutes <= 0 {
		return nil, completedOutput{}, fmt.Errorf("duration_minutes must be positive")
	}
	start, err := parseTime(input.StartedAt)
	if err != nil {
		return nil, completedOutput{}, err
	}
	dur := time.Duration(input.DurationMinutes) * time.Minute
	if start.IsZero() {
		start = time.Now().Add(-dur)
	}

	res, err := s.app.Tracker.LogWorkout(ctx, &models.CompletedWorkout{
		UserID:     userID,
		Name:       input.Name,
		CategoryID: input.CategoryID,
		StartTime:  start,
		Duration:   int64(dur / time.Second),
		Exercises:  fromExerciseInputs(input.Exercises),
	})
	if err != nil {
		return nil, completedOutput{}, fmt.Errorf("failed to log workout: %w", err)
	}
	return nil, completedOutput{
		Workout:  toWorkoutView(res.Workout),
		XP:       res.XP,
		Level:    res.Stats.Level,
		Unlocked: toUnlockedViews(res.Unlocked),
		Message:  fmt.Sprintf("Logged %s (ID: %s): +%d XP", res.Workout.Name, shortID(res.Workout.ID), res.XP),
	}, nil
}

func (s *Server) handleListWorkouts(ctx context.Context, req *mcp.CallToolRequest, input listWorkoutsInput) (*mcp.CallToolResult, listWorkoutsOutput, error) {
	userID, err := s.app.UserID()
	if err != nil {
		return nil, listWorkoutsOutput{}, err
	}
	if input.Limit <= 0 {
		input.Limit = 20
	}
	done, err := s.app.Workouts.ListCompleted(ctx, userID)
	if err != nil {
		return nil, listWorkoutsOutput{}, fmt.Errorf("failed to list workouts: %w", err)
	}
	var out []*models.CompletedWorkout
	for _, w := range done {
		if input.CategoryID != "" && w.CategoryID != input.CategoryID {
			continue
		}
		out = append(out, w)
		if len(out) == input.Limit {
			break
		}
	}
	return nil, listWorkoutsOutput{Workouts: toWorkoutViews(out)}, nil
}

func (s *Server) handleGetWorkout(ctx context.Context, req *mcp.CallToolRequest, input idInput) (*mcp.CallToolResult, workoutOutput, error) {
	userID, err := s.app.UserID()
	if err != nil {
		return nil, workoutOutput{}, err
	}
	w, err := s.app.Workouts.Resolve(ctx, userID, input.ID)
	if err != nil {
		return nil, workoutOutput{}, fmt.Errorf("workout not found: %s", input.ID)
	}
	return nil, workoutOutput{Workout: toWorkoutView(w), Message: w.Name}, nil
}

func (s *Server) handleDeleteWorkout(ctx context.Context, req *mcp.CallToolRequest, input idInput) (*mcp.CallToolResult, simpleOutput, error) {
	userID, err := s.app.UserID()
	if err != nil {
		return nil, simpleOutput{}, err
	}
	w, err := s.app.Workouts.Resolve(ctx, userID, input.ID)
	if err != nil {
		return nil, simpleOutput{}, fmt.Errorf("workout not found: %s", input.ID)
	}
	if err := s.app.Workouts.Delete(ctx, w.ID); err != nil {
		return nil, simpleOutput{}, fmt.Errorf("failed to delete workout: %w", err)
	}
	if _, err := s.app.Tracker.RecomputeStats(ctx, userID); err != nil {
		return nil, simpleOutput{}, fmt.Errorf("failed to update stats: %w", err)
	}
	return nil, simpleOutput{Message: fmt.Sprintf("Deleted workout: %s", shortID(w.ID))}, nil
}

func (s *Server) handleAddCategory(ctx context.Context, req *mcp.CallToolRequest, input addCategoryInput) (*mcp.CallToolResult, categoryOutput, error) {
	userID, err := s.app.UserID()
	if err != nil {
		return nil, categoryOutput{}, err
	}
	if input.Name == "" {
		return nil, categoryOutput{}, fmt.Errorf("name is required")
	}
	color := input.Color
	if color == "" {
		color = "#757575"
	}
	c, err := s.app.Categories.Create(ctx, models.NewWorkoutCategory(userID, input.Name, color))
	if err != nil {
		return nil, categoryOutput{}, fmt.Errorf("failed to create category: %w", err)
	}
	return nil, categoryOutput{
		Category: toCategoryView(c),
		Message:  fmt.Sprintf("Added category %s (ID: %s)", c.Name, shortID(c.ID)),
	}, nil
}

func (s *Server) handleListCategories(ctx context.Context, req *mcp.CallToolRequest, input emptyInput) (*mcp.CallToolResult, listCategoriesOutput, error) {
	userID, err := s.app.UserID()
	if err != nil {
		return nil, listCategoriesOutput{}, err
	}
	cats, err := s.app.Categories.EnsureDefaults(ctx, userID)
	if err != nil {
		return nil, listCategoriesOutput{}, fmt.Errorf("failed to list categories: %w", err)
	}
	out := listCategoriesOutput{Categories: make([]categoryView, 0, len(cats))}
	for _, c := range cats {
		out.Categories = append(out.Categories, toCategoryView(c))
	}
	return nil, out, nil
}

func (s *Server) handleListAchievements(ctx context.Context, req *mcp.CallToolRequest, input emptyInput) (*mcp.CallToolResult, listAchievementsOutput, error) {
	userID, err := s.app.UserID()
	if err != nil {
		return nil, listAchievementsOutput{}, err
	}
	defs, err := s.app.Achievements.ListActive(ctx)
	if err != nil {
		return nil, listAchievementsOutput{}, fmt.Errorf("failed to list achievements: %w", err)
	}
	progress, err := s.app.Achievements.ListProgress(ctx, userID)
	if err != nil {
		return nil, listAchievementsOutput{}, fmt.Errorf("failed to list progress: %w", err)
	}
	byDef := make(map[string]*models.AchievementProgress, len(progress))
	for _, p := range progress {
		byDef[p.AchievementID] = p
	}

	out := listAchievementsOutput{Achievements: make([]achievementView, 0, len(defs))}
	for _, d := range defs {
		v := achievementView{
			ID:          d.ID,
			Title:       d.Title,
			Description: d.Description,
			Type:        string(d.Type),
			Target:      d.Target,
			XPReward:    d.XPReward,
		}
		if p := byDef[d.ID]; p != nil {
			v.Progress = p.CurrentValue
			v.Completed = p.IsCompleted
			if p.CompletedAt != nil {
				v.CompletedAt = p.CompletedAt.Format(time.RFC3339)
			}
		}
		out.Achievements = append(out.Achievements, v)
	}
	return nil, out, nil
}

func (s *Server) handleGetStats(ctx context.Context, req *mcp.CallToolRequest, input emptyInput) (*mcp.CallToolResult, statsView, error) {
	userID, err := s.app.UserID()
	if err != nil {
		return nil, statsView{}, err
	}
	stats, err := s.app.Users.StatsFor(ctx, userID)
	if err != nil {
		return nil, statsView{}, fmt.Errorf("failed to load stats: %w", err)
	}
	return nil, toStatsView(stats), nil
}

func (s *Server) handleSyncNow(ctx context.Context, req *mcp.CallToolRequest, input emptyInput) (*mcp.CallToolResult, syncOutput, error) {
	rep, err := s.app.Sync.SyncNow(ctx)
	if rep == nil {
		return nil, syncOutput{}, fmt.Errorf("sync failed: %w", err)
	}
	t := rep.Totals()
	out := syncOutput{Pushed: t.Pushed, Failed: t.Failed, Pulled: t.Pulled, Skipped: t.Skipped}
	if err != nil {
		out.Message = fmt.Sprintf("Sync finished with errors: %v", err)
	} else {
		out.Message = fmt.Sprintf("Synced: %d pushed, %d pulled", t.Pushed, t.Pulled)
	}
	return nil, out, nil
}
