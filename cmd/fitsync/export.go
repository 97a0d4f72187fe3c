// ABOUTME: CLI commands for exporting and importing workout data.
// ABOUTME: Supports JSON, YAML, and Markdown export formats.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/harperreed/fitsync/internal/models"
)

var (
	exportOutput string
	exportSince  string
)

// exportBundle is everything owned by one user.
type exportBundle struct {
	ExportedAt time.Time                     `json:"exported_at" yaml:"exported_at"`
	UserID     string                        `json:"user_id" yaml:"user_id"`
	Profile    *models.UserProfile           `json:"profile,omitempty" yaml:"profile,omitempty"`
	Stats      *models.UserStats             `json:"stats,omitempty" yaml:"stats,omitempty"`
	Categories []*models.WorkoutCategory     `json:"categories" yaml:"categories"`
	Templates  []*models.WorkoutTemplate     `json:"templates" yaml:"templates"`
	Workouts   []*models.CompletedWorkout    `json:"workouts" yaml:"workouts"`
	Progress   []*models.AchievementProgress `json:"progress" yaml:"progress"`
}

var exportCmd = &cobra.Command{
	Use:   "export <format>",
	Short: "Export workout data",
	Long: `Export the signed-in user's data.

FORMATS:

  json       Full JSON export (suitable for backup/restore)
  yaml       YAML export (human-readable)
  markdown   Markdown table of completed workouts

OPTIONS:

  --output, -o   Write to file instead of stdout
  --since        Only include workouts since this date (YYYY-MM-DD)

EXAMPLES:

  fitsync export json -o backup.json
  fitsync export yaml
  fitsync export markdown --since 2026-01-01`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"json", "yaml", "markdown"},
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, err := currentUser()
		if err != nil {
			return err
		}
		var since time.Time
		if exportSince != "" {
			since, err = time.ParseInLocation("2006-01-02", exportSince, time.Local)
			if err != nil {
				return fmt.Errorf("invalid date format: %s (use YYYY-MM-DD)", exportSince)
			}
		}

		b, err := collectBundle(cmd, userID, since)
		if err != nil {
			return fmt.Errorf("export failed: %w", err)
		}

		var data []byte
		switch args[0] {
		case "json":
			data, err = json.MarshalIndent(b, "", "  ")
		case "yaml":
			data, err = yaml.Marshal(b)
		case "markdown":
			data = []byte(renderMarkdown(b))
		default:
			return fmt.Errorf("unknown format: %s (use json, yaml, or markdown)", args[0])
		}
		if err != nil {
			return fmt.Errorf("export failed: %w", err)
		}

		if exportOutput != "" {
			if err := os.WriteFile(exportOutput, data, 0600); err != nil {
				return fmt.Errorf("failed to write file: %w", err)
			}
			color.Green("✓ Exported to %s", exportOutput)
		} else {
			fmt.Println(string(data))
		}
		return nil
	},
}

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import workout data from JSON",
	Long: `Import categories, templates and workouts from a JSON export into the
signed-in user. Records keep their ids, so importing the same file twice
updates rather than duplicates. Stats are recomputed afterwards.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, err := currentUser()
		if err != nil {
			return err
		}
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read file: %w", err)
		}
		var b exportBundle
		if err := json.Unmarshal(data, &b); err != nil {
			return fmt.Errorf("failed to parse %s: %w", args[0], err)
		}

		ctx := cmd.Context()
		for _, c := range b.Categories {
			c.UserID = userID
			if _, err := fitApp.Categories.Save(ctx, c); err != nil {
				return fmt.Errorf("import category %s: %w", c.ID, err)
			}
		}
		for _, t := range b.Templates {
			t.UserID = userID
			if _, err := fitApp.Templates.Save(ctx, t); err != nil {
				return fmt.Errorf("import template %s: %w", t.ID, err)
			}
		}
		imported := 0
		for _, w := range b.Workouts {
			if w.InProgress() {
				continue
			}
			w.UserID = userID
			if _, err := fitApp.Workouts.Save(ctx, w); err != nil {
				return fmt.Errorf("import workout %s: %w", w.ID, err)
			}
			imported++
		}
		if _, err := fitApp.Tracker.RecomputeStats(ctx, userID); err != nil {
			return fmt.Errorf("failed to update stats: %w", err)
		}

		color.Green("✓ Imported from %s", args[0])
		fmt.Printf("  Categories: %d, templates: %d, workouts: %d\n", len(b.Categories), len(b.Templates), imported)
		return nil
	},
}

func collectBundle(cmd *cobra.Command, userID string, since time.Time) (*exportBundle, error) {
	ctx := cmd.Context()
	b := &exportBundle{ExportedAt: time.Now().UTC(), UserID: userID}

	var err error
	if b.Profile, err = fitApp.Users.ProfileFor(ctx, userID); err != nil {
		return nil, err
	}
	if b.Stats, err = fitApp.Users.StatsFor(ctx, userID); err != nil {
		return nil, err
	}
	if b.Categories, err = fitApp.Categories.ListForUser(ctx, userID); err != nil {
		return nil, err
	}
	if b.Templates, err = fitApp.Templates.ListForUser(ctx, userID); err != nil {
		return nil, err
	}
	done, err := fitApp.Workouts.ListCompleted(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, w := range done {
		if !since.IsZero() && w.StartTime.Before(since) {
			continue
		}
		b.Workouts = append(b.Workouts, w)
	}
	if b.Progress, err = fitApp.Achievements.ListProgress(ctx, userID); err != nil {
		return nil, err
	}
	return b, nil
}

func renderMarkdown(b *exportBundle) string {
	var sb strings.Builder
	sb.WriteString("# Workouts\n\n")
	if b.Stats != nil {
		fmt.Fprintf(&sb, "Level %d, %d XP, %d workouts, longest streak %d day(s).\n\n",
			b.Stats.Level, b.Stats.ExperiencePoints, b.Stats.TotalWorkouts, b.Stats.LongestStreak)
	}
	if len(b.Workouts) == 0 {
		sb.WriteString("No workouts found.\n")
		return sb.String()
	}
	sb.WriteString("| Date | Name | Duration | Exercises | Sets |\n")
	sb.WriteString("|------|------|----------|-----------|------|\n")
	for _, w := range b.Workouts {
		sets := 0
		for _, e := range w.Exercises {
			sets += len(e.Sets)
		}
		fmt.Fprintf(&sb, "| %s | %s | %s | %d | %d |\n",
			w.StartTime.Format("2006-01-02 15:04"),
			strings.ReplaceAll(w.Name, "|", "\\|"),
			formatDuration(w.Duration),
			len(w.Exercises),
			sets)
	}
	return sb.String()
}

func init() {
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "output file (default: stdout)")
	exportCmd.Flags().StringVar(&exportSince, "since", "", "only include workouts since date (YYYY-MM-DD)")

	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
}
