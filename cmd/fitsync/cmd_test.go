// ABOUTME: Tests for CLI helper functions and command execution.
// ABOUTME: Tests parseTime, parseSets, formatting helpers, and end-to-end command runs.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"

	"github.com/harperreed/fitsync/internal/app"
	"github.com/harperreed/fitsync/internal/config"
	"github.com/harperreed/fitsync/internal/models"
)

func TestParseTime(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{name: "date and time with space", input: "2026-01-31 08:30"},
		{name: "date and time with T", input: "2026-01-31T08:30"},
		{name: "date only", input: "2026-01-31"},
		{name: "RFC3339", input: "2026-01-31T08:30:00Z"},
		{name: "RFC3339 with offset", input: "2026-01-31T08:30:00+05:00"},
		{name: "natural language", input: "yesterday 7am"},
		{name: "invalid punctuation", input: "??", wantErr: true},
		{name: "invalid random string", input: "zzzz", wantErr: true},
		{name: "empty string", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := parseTime(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("parseTime(%q) expected error, got nil", tt.input)
				}
				return
			}
			if err != nil {
				t.Errorf("parseTime(%q) unexpected error: %v", tt.input, err)
				return
			}
			if result.IsZero() {
				t.Errorf("parseTime(%q) returned zero time", tt.input)
			}
		})
	}
}

func TestParseTimeUsesLocalZone(t *testing.T) {
	result, err := parseTime("2026-06-15 07:45")
	if err != nil {
		t.Fatalf("parseTime failed: %v", err)
	}
	if result.Location() != time.Local || result.Hour() != 7 || result.Minute() != 45 {
		t.Errorf("parseTime returned %v", result)
	}
}

func TestParseSets(t *testing.T) {
	got, err := parseSets([]string{
		"bench_press:60x10:warmup",
		"squat:120x5",
		"bench_press:100X5",
		"bench_press:102.5x3:failure",
	})
	if err != nil {
		t.Fatalf("parseSets failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].ExerciseID != "bench_press" || got[1].ExerciseID != "squat" {
		t.Errorf("order = %s, %s", got[0].ExerciseID, got[1].ExerciseID)
	}
	bench := got[0].Sets
	if len(bench) != 3 {
		t.Fatalf("bench sets = %d, want 3", len(bench))
	}
	if bench[0].Type != models.SetWarmup || bench[1].Type != models.SetNormal || bench[2].Type != models.SetFailure {
		t.Errorf("types = %v %v %v", bench[0].Type, bench[1].Type, bench[2].Type)
	}
	if bench[2].Weight != 102.5 || bench[2].Reps != 3 {
		t.Errorf("last set = %+v", bench[2])
	}

	none, err := parseSets(nil)
	if err != nil || none != nil {
		t.Errorf("parseSets(nil) = %v, %v", none, err)
	}

	for _, bad := range []string{"bench", "bench:100", ":100x5", "bench:x5", "bench:100x", "bench:-5x5", "a:1x1:b:c"} {
		if _, err := parseSets([]string{bad}); err == nil {
			t.Errorf("parseSets(%q) expected error", bad)
		}
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		input  string
		maxLen int
		want   string
	}{
		{"hello", 10, "hello"},
		{"hello", 5, "hello"},
		{"hello world this is a long string", 10, "hello w..."},
		{"", 10, ""},
		{"hello", 3, "..."},
	}
	for _, tt := range tests {
		if got := truncate(tt.input, tt.maxLen); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.input, tt.maxLen, got, tt.want)
		}
	}
}

func TestPadRightAndShortID(t *testing.T) {
	if got := padRight("hi", 5); got != "hi   " {
		t.Errorf("padRight = %q", got)
	}
	if got := padRight("hello world", 5); got != "hello world" {
		t.Errorf("padRight = %q", got)
	}
	if got := shortID("0123456789abcdef"); got != "01234567" {
		t.Errorf("shortID = %q", got)
	}
	if got := shortID("abc"); got != "abc" {
		t.Errorf("shortID = %q", got)
	}
}

func TestFormatDuration(t *testing.T) {
	tests := map[int64]string{
		0:    "0m",
		59:   "0m",
		1800: "30m",
		3900: "1h05m",
		7200: "2h00m",
	}
	for in, want := range tests {
		if got := formatDuration(in); got != want {
			t.Errorf("formatDuration(%d) = %q, want %q", in, got, want)
		}
	}
}

func TestWorkoutCmdSubcommands(t *testing.T) {
	cmdNames := make(map[string]bool)
	for _, cmd := range workoutCmd.Commands() {
		cmdNames[cmd.Name()] = true
	}
	for _, expected := range []string{"start", "finish", "log", "list", "show", "active", "delete"} {
		if !cmdNames[expected] {
			t.Errorf("Expected workout subcommand %q", expected)
		}
	}
}

func TestSyncCmdSubcommands(t *testing.T) {
	cmdNames := make(map[string]bool)
	for _, cmd := range syncCmd.Commands() {
		cmdNames[cmd.Name()] = true
	}
	for _, expected := range []string{"now", "status", "resync", "daemon"} {
		if !cmdNames[expected] {
			t.Errorf("Expected sync subcommand %q", expected)
		}
	}
}

func TestNeedsApp(t *testing.T) {
	if needsApp(installSkillCmd) {
		t.Error("install-skill should not open the store")
	}
	if needsApp(workoutCmd) {
		t.Error("group commands should not open the store")
	}
	if !needsApp(workoutLogCmd) {
		t.Error("workout log should open the store")
	}
}

// runCLI executes the root command against a temp data dir and config.
func runCLI(t *testing.T, dataDir string, args ...string) error {
	t.Helper()
	rootCmd.SetArgs(append([]string{"--data-dir", dataDir, "--backend", "none"}, args...))
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	return rootCmd.ExecuteContext(context.Background())
}

// openApp reopens the data dir to inspect what the CLI wrote.
func openApp(t *testing.T, dataDir string) *app.App {
	t.Helper()
	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("config.Load failed: %v", err)
	}
	cfg.DataDir = dataDir
	cfg.Backend = config.BackendNone
	log, _ := test.NewNullLogger()
	a, err := app.New(context.Background(), cfg, log, app.Options{})
	if err != nil {
		t.Fatalf("app.New failed: %v", err)
	}
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func TestCommandsRequireSignIn(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	dataDir := t.TempDir()

	err := runCLI(t, dataDir, "stats")
	if err == nil || !strings.Contains(err.Error(), "no signed-in user") {
		t.Errorf("err = %v, want signed-out error", err)
	}
}

func TestEndToEndWorkoutFlow(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	dataDir := t.TempDir()

	if err := runCLI(t, dataDir, "user", "init", "cli@example.com", "--name", "CLI"); err != nil {
		t.Fatalf("user init failed: %v", err)
	}
	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("config.Load failed: %v", err)
	}
	if cfg.UserID == "" {
		t.Fatal("Expected user id saved to config")
	}

	start := time.Now().Add(-2 * time.Hour).Format("2006-01-02 15:04")
	if err := runCLI(t, dataDir, "workout", "log", "Heavy day", "-d", "70", "--at", start, "--set", "bench_press:100x5"); err != nil {
		t.Fatalf("workout log failed: %v", err)
	}
	if err := runCLI(t, dataDir, "workout", "log", "No duration", "-d", "0"); err == nil {
		t.Error("Expected error for zero duration")
	}

	a := openApp(t, dataDir)
	ctx := context.Background()
	done, err := a.Workouts.Recent(ctx, cfg.UserID, 0)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(done) != 1 || done[0].Name != "Heavy day" {
		t.Fatalf("workouts = %+v", done)
	}
	if ex, ok := done[0].Exercise("bench_press"); !ok || ex.MaxWeight() != 100 {
		t.Errorf("bench_press = %+v, %v", ex, ok)
	}

	stats, err := a.Users.StatsFor(ctx, cfg.UserID)
	if err != nil {
		t.Fatalf("StatsFor failed: %v", err)
	}
	if stats.TotalWorkouts != 1 {
		t.Errorf("TotalWorkouts = %d, want 1", stats.TotalWorkouts)
	}
	p, err := a.Achievements.Progress(ctx, cfg.UserID, "bench_100")
	if err != nil || !p.IsCompleted {
		t.Errorf("bench_100 progress = %+v, %v", p, err)
	}
	cats, err := a.Categories.ListForUser(ctx, cfg.UserID)
	if err != nil || len(cats) != len(models.DefaultCategories) {
		t.Errorf("categories = %d, %v", len(cats), err)
	}
	_ = a.Close()

	exportPath := filepath.Join(t.TempDir(), "backup.json")
	if err := runCLI(t, dataDir, "export", "json", "-o", exportPath); err != nil {
		t.Fatalf("export failed: %v", err)
	}
	data, err := os.ReadFile(exportPath)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	var b exportBundle
	if err := json.Unmarshal(data, &b); err != nil {
		t.Fatalf("invalid export JSON: %v", err)
	}
	if b.UserID != cfg.UserID || len(b.Workouts) != 1 {
		t.Errorf("bundle user=%s workouts=%d", b.UserID, len(b.Workouts))
	}

	if err := runCLI(t, dataDir, "user", "signout"); err != nil {
		t.Fatalf("signout failed: %v", err)
	}
	cfg, err = config.Load()
	if err != nil {
		t.Fatalf("config.Load failed: %v", err)
	}
	if cfg.UserID != "" {
		t.Errorf("UserID = %q after signout", cfg.UserID)
	}
}

func TestRenderMarkdown(t *testing.T) {
	end := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	b := &exportBundle{
		Stats: &models.UserStats{Level: 2, ExperiencePoints: 600, TotalWorkouts: 1, LongestStreak: 1},
		Workouts: []*models.CompletedWorkout{{
			Name:      "Push | Pull",
			StartTime: end.Add(-time.Hour),
			EndTime:   &end,
			Duration:  3600,
			Exercises: []models.CompletedExercise{{ExerciseID: "bench_press", Sets: make([]models.WorkoutSet, 3)}},
		}},
	}
	md := renderMarkdown(b)
	for _, want := range []string{"Level 2, 600 XP", `Push \| Pull`, "| 1h00m | 1 | 3 |"} {
		if !strings.Contains(md, want) {
			t.Errorf("expected %q in:\n%s", want, md)
		}
	}

	if md := renderMarkdown(&exportBundle{}); !strings.Contains(md, "No workouts found.") {
		t.Errorf("empty export = %q", md)
	}
}
