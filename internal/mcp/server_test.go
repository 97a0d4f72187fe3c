// ABOUTME: Tests for MCP server, tools, and resources.
// ABOUTME: Covers NewServer, tool handlers, and resource handlers.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/harperreed/fitsync/internal/app"
	"github.com/harperreed/fitsync/internal/config"
	"github.com/harperreed/fitsync/internal/connectivity"
	"github.com/harperreed/fitsync/internal/models"
	"github.com/harperreed/fitsync/internal/remote"
)

// setupTestServer creates a server over a temp store with a signed-in user.
func setupTestServer(t *testing.T, online bool) (*Server, *remote.Memory) {
	t.Helper()

	mem := remote.NewMemory()
	log, _ := test.NewNullLogger()
	cfg := &config.Config{DataDir: t.TempDir(), Backend: config.BackendNone, Timezone: "UTC"}
	a, err := app.New(context.Background(), cfg, log, app.Options{
		Remote: mem,
		Prober: connectivity.ProberFunc(func(context.Context) bool { return online }),
	})
	if err != nil {
		t.Fatalf("app.New failed: %v", err)
	}
	t.Cleanup(func() { _ = a.Close() })

	u, err := a.Users.EnsureUser(context.Background(), "lifter@example.com", models.ProviderEmail, "Lifter")
	if err != nil {
		t.Fatalf("EnsureUser failed: %v", err)
	}
	a.Sync.SetUser(u.ID)

	server, err := NewServer(a, "test")
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}
	return server, mem
}

func TestNewServer(t *testing.T) {
	server, _ := setupTestServer(t, false)
	if server.mcpServer == nil {
		t.Error("Expected non-nil mcpServer")
	}
	if server.app == nil {
		t.Error("Expected non-nil app")
	}
}

func TestStartAndFinishWorkout(t *testing.T) {
	server, _ := setupTestServer(t, false)
	ctx := context.Background()

	_, started, err := server.handleStartWorkout(ctx, &mcp.CallToolRequest{}, startWorkoutInput{Name: "Push"})
	if err != nil {
		t.Fatalf("start_workout failed: %v", err)
	}
	if !started.Workout.InProgress {
		t.Error("Expected in-progress workout")
	}

	if _, _, err := server.handleStartWorkout(ctx, &mcp.CallToolRequest{}, startWorkoutInput{Name: "Again"}); err == nil {
		t.Error("Expected error starting a second session")
	}

	end := time.Now().Add(2 * time.Hour).UTC().Format(time.RFC3339)
	_, done, err := server.handleFinishWorkout(ctx, &mcp.CallToolRequest{}, finishWorkoutInput{
		Exercises: []exerciseView{{ExerciseID: "bench_press", Name: "Bench", Sets: []setView{{Type: "normal", Weight: 100, Reps: 3}}}},
		EndedAt:   end,
	})
	if err != nil {
		t.Fatalf("finish_workout failed: %v", err)
	}
	if done.Workout.InProgress {
		t.Error("Expected finished workout")
	}
	if done.XP <= 0 {
		t.Errorf("XP = %d, want positive", done.XP)
	}
	got := map[string]bool{}
	for _, u := range done.Unlocked {
		got[u.ID] = true
	}
	for _, want := range []string{"first_workout", "workout_hour", "bench_100"} {
		if !got[want] {
			t.Errorf("expected %s unlocked, got %+v", want, done.Unlocked)
		}
	}
}

func TestFinishWithoutActiveSession(t *testing.T) {
	server, _ := setupTestServer(t, false)
	_, _, err := server.handleFinishWorkout(context.Background(), &mcp.CallToolRequest{}, finishWorkoutInput{})
	if err == nil {
		t.Error("Expected error with no active session")
	}
}

func TestLogListGetDeleteWorkout(t *testing.T) {
	server, _ := setupTestServer(t, false)
	ctx := context.Background()

	tests := []struct {
		name    string
		input   logWorkoutInput
		wantErr bool
	}{
		{"valid", logWorkoutInput{Name: "Run", DurationMinutes: 30}, false},
		{"with start", logWorkoutInput{Name: "Swim", DurationMinutes: 45, StartedAt: "2026-03-01T07:00:00Z"}, false},
		{"zero duration", logWorkoutInput{Name: "Nap"}, true},
		{"bad time", logWorkoutInput{Name: "Row", DurationMinutes: 10, StartedAt: "yesterday"}, true},
	}
	var ids []string
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, out, err := server.handleLogWorkout(ctx, &mcp.CallToolRequest{}, tt.input)
			if tt.wantErr {
				if err == nil {
					t.Error("Expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("log_workout failed: %v", err)
			}
			ids = append(ids, out.Workout.ID)
		})
	}

	_, list, err := server.handleListWorkouts(ctx, &mcp.CallToolRequest{}, listWorkoutsInput{Limit: 1})
	if err != nil {
		t.Fatalf("list_workouts failed: %v", err)
	}
	if len(list.Workouts) != 1 {
		t.Fatalf("len = %d, want 1", len(list.Workouts))
	}

	_, got, err := server.handleGetWorkout(ctx, &mcp.CallToolRequest{}, idInput{ID: ids[0][:8]})
	if err != nil {
		t.Fatalf("get_workout by prefix failed: %v", err)
	}
	if got.Workout.ID != ids[0] {
		t.Errorf("got %s, want %s", got.Workout.ID, ids[0])
	}

	if _, _, err := server.handleDeleteWorkout(ctx, &mcp.CallToolRequest{}, idInput{ID: ids[0]}); err != nil {
		t.Fatalf("delete_workout failed: %v", err)
	}
	if _, _, err := server.handleGetWorkout(ctx, &mcp.CallToolRequest{}, idInput{ID: ids[0]}); err == nil {
		t.Error("Expected deleted workout to be gone")
	}

	_, stats, err := server.handleGetStats(ctx, &mcp.CallToolRequest{}, emptyInput{})
	if err != nil {
		t.Fatalf("get_stats failed: %v", err)
	}
	if stats.TotalWorkouts != 1 {
		t.Errorf("TotalWorkouts = %d, want 1", stats.TotalWorkouts)
	}
}

func TestCategories(t *testing.T) {
	server, _ := setupTestServer(t, false)
	ctx := context.Background()

	if _, _, err := server.handleAddCategory(ctx, &mcp.CallToolRequest{}, addCategoryInput{}); err == nil {
		t.Error("Expected error for empty name")
	}
	_, added, err := server.handleAddCategory(ctx, &mcp.CallToolRequest{}, addCategoryInput{Name: "Climbing"})
	if err != nil {
		t.Fatalf("add_category failed: %v", err)
	}
	if added.Category.Color == "" {
		t.Error("Expected default color")
	}

	_, list, err := server.handleListCategories(ctx, &mcp.CallToolRequest{}, emptyInput{})
	if err != nil {
		t.Fatalf("list_categories failed: %v", err)
	}
	if len(list.Categories) != len(models.DefaultCategories)+1 {
		t.Errorf("len = %d, want %d", len(list.Categories), len(models.DefaultCategories)+1)
	}
}

func TestListAchievementsShowsProgress(t *testing.T) {
	server, _ := setupTestServer(t, false)
	ctx := context.Background()

	if _, _, err := server.handleLogWorkout(ctx, &mcp.CallToolRequest{}, logWorkoutInput{Name: "Run", DurationMinutes: 20}); err != nil {
		t.Fatalf("log_workout failed: %v", err)
	}
	_, out, err := server.handleListAchievements(ctx, &mcp.CallToolRequest{}, emptyInput{})
	if err != nil {
		t.Fatalf("list_achievements failed: %v", err)
	}
	if len(out.Achievements) != len(models.DefaultAchievements()) {
		t.Errorf("len = %d, want %d", len(out.Achievements), len(models.DefaultAchievements()))
	}
	for _, a := range out.Achievements {
		if a.ID == "first_workout" && !a.Completed {
			t.Error("Expected first_workout completed")
		}
	}
}

func TestSyncNow(t *testing.T) {
	server, mem := setupTestServer(t, true)
	ctx := context.Background()

	_, out, err := server.handleSyncNow(ctx, &mcp.CallToolRequest{}, emptyInput{})
	if err != nil {
		t.Fatalf("sync_now failed: %v", err)
	}
	if out.Pushed == 0 {
		t.Error("Expected the new user graph to be pushed")
	}
	if mem.Len(remote.CollectionUsers) != 1 {
		t.Errorf("remote users = %d, want 1", mem.Len(remote.CollectionUsers))
	}
}

func TestSyncNowOffline(t *testing.T) {
	server, _ := setupTestServer(t, false)
	_, _, err := server.handleSyncNow(context.Background(), &mcp.CallToolRequest{}, emptyInput{})
	if !errors.Is(err, remote.ErrOffline) {
		t.Errorf("err = %v, want ErrOffline", err)
	}
}

func TestHandleRecentResource(t *testing.T) {
	server, _ := setupTestServer(t, false)
	ctx := context.Background()

	if _, _, err := server.handleLogWorkout(ctx, &mcp.CallToolRequest{}, logWorkoutInput{Name: "Deadlifts", DurationMinutes: 40}); err != nil {
		t.Fatalf("log_workout failed: %v", err)
	}
	if _, _, err := server.handleStartWorkout(ctx, &mcp.CallToolRequest{}, startWorkoutInput{Name: "Evening"}); err != nil {
		t.Fatalf("start_workout failed: %v", err)
	}

	result, err := server.handleRecentResource(ctx, &mcp.ReadResourceRequest{})
	if err != nil {
		t.Fatalf("handleRecentResource failed: %v", err)
	}
	if len(result.Contents) != 1 || result.Contents[0].URI != uriRecentWorkouts {
		t.Fatalf("unexpected contents: %+v", result.Contents)
	}

	var body struct {
		Workouts []workoutView `json:"workouts"`
		Active   *workoutView  `json:"active"`
	}
	if err := json.Unmarshal([]byte(result.Contents[0].Text), &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(body.Workouts) != 1 || body.Workouts[0].Name != "Deadlifts" {
		t.Errorf("workouts = %+v", body.Workouts)
	}
	if body.Active == nil || body.Active.Name != "Evening" {
		t.Errorf("active = %+v", body.Active)
	}
}

func TestHandleStatsResource(t *testing.T) {
	server, _ := setupTestServer(t, false)
	ctx := context.Background()

	if _, _, err := server.handleLogWorkout(ctx, &mcp.CallToolRequest{}, logWorkoutInput{Name: "Run", DurationMinutes: 20}); err != nil {
		t.Fatalf("log_workout failed: %v", err)
	}
	result, err := server.handleStatsResource(ctx, &mcp.ReadResourceRequest{})
	if err != nil {
		t.Fatalf("handleStatsResource failed: %v", err)
	}
	text := result.Contents[0].Text
	for _, want := range []string{`"experience_points"`, `"first_workout"`, `"dirty_rows"`} {
		if !strings.Contains(text, want) {
			t.Errorf("expected %s in %s", want, text)
		}
	}
}

func TestToolsRequireSignedInUser(t *testing.T) {
	server, _ := setupTestServer(t, false)
	server.app.Sync.SetUser("")

	_, _, err := server.handleListWorkouts(context.Background(), &mcp.CallToolRequest{}, listWorkoutsInput{})
	if !errors.Is(err, app.ErrSignedOut) {
		t.Errorf("err = %v, want ErrSignedOut", err)
	}
}
