// ABOUTME: CLI commands for achievements and stats.
// ABOUTME: Lists progress, awards first-time achievements and prints the stats summary.
package main

import (
	"fmt"
	"sort"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/harperreed/fitsync/internal/models"
)

var achievementsCmd = &cobra.Command{
	Use:     "achievements",
	Aliases: []string{"ach"},
	Short:   "Show achievement progress",
}

var achievementsListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List active achievements with progress",
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, err := currentUser()
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		defs, err := fitApp.Achievements.ListActive(ctx)
		if err != nil {
			return fmt.Errorf("failed to list achievements: %w", err)
		}
		progress, err := fitApp.Achievements.ListProgress(ctx, userID)
		if err != nil {
			return fmt.Errorf("failed to list progress: %w", err)
		}
		byDef := make(map[string]*models.AchievementProgress, len(progress))
		for _, p := range progress {
			byDef[p.AchievementID] = p
		}

		faint := color.New(color.Faint)
		for _, d := range defs {
			p := byDef[d.ID]
			mark := faint.Sprint("·")
			value := 0.0
			if p != nil {
				value = p.CurrentValue
				if p.IsCompleted {
					mark = color.GreenString("✓")
				}
			}
			fmt.Printf("%s %s %s %s\n",
				mark,
				padRight(d.Title, 22),
				faint.Sprintf("%g/%g", value, d.Target),
				faint.Sprintf("+%d XP  %s", d.XPReward, d.ID))
		}
		return nil
	},
}

var achievementsAwardCmd = &cobra.Command{
	Use:   "award <achievement-id>",
	Short: "Complete a first-time achievement",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, err := currentUser()
		if err != nil {
			return err
		}
		u, awarded, err := fitApp.Evaluator.Award(cmd.Context(), userID, args[0])
		if err != nil {
			return fmt.Errorf("failed to award %s: %w", args[0], err)
		}
		if !awarded {
			fmt.Println("Already completed.")
			return nil
		}
		color.Cyan("🏆 %s (+%d XP)", u.Definition.Title, u.XP)
		return nil
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show level, XP, streaks and exercise bests",
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, err := currentUser()
		if err != nil {
			return err
		}
		stats, err := fitApp.Users.StatsFor(cmd.Context(), userID)
		if err != nil {
			return fmt.Errorf("failed to load stats: %w", err)
		}

		fmt.Printf("Level: %d (%d XP)\n", stats.Level, stats.ExperiencePoints)
		fmt.Printf("Workouts: %d (%s total)\n", stats.TotalWorkouts, formatDuration(stats.TotalWorkoutTime))
		fmt.Printf("Streak: %d day(s), longest %d\n", stats.CurrentStreak, stats.LongestStreak)
		if stats.LastWorkoutDate != nil {
			fmt.Printf("Last workout: %s\n", stats.LastWorkoutDate.Format("2006-01-02 15:04"))
		}

		if len(stats.Exercises) > 0 {
			ids := make([]string, 0, len(stats.Exercises))
			for id := range stats.Exercises {
				ids = append(ids, id)
			}
			sort.Strings(ids)
			fmt.Println("\nExercises:")
			for _, id := range ids {
				e := stats.Exercises[id]
				fmt.Printf("  %s best %.1f, %d session(s), %.1f sets x %.1f reps\n",
					padRight(id, 18), e.BestWeight, e.Sessions, e.AverageSets, e.AverageReps)
			}
		}
		return nil
	},
}

func init() {
	achievementsCmd.AddCommand(achievementsListCmd)
	achievementsCmd.AddCommand(achievementsAwardCmd)
	rootCmd.AddCommand(achievementsCmd)
	rootCmd.AddCommand(statsCmd)
}
