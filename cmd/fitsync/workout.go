// ABOUTME: CLI commands for workout sessions.
// ABOUTME: Supports start, finish, log, list, show, active and delete subcommands.
package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/harperreed/fitsync/internal/models"
	"github.com/harperreed/fitsync/internal/tracker"
)

var (
	workoutTemplate string
	workoutCategory string
	workoutSets     []string
	workoutAt       string
	workoutDuration int
	workoutLimit    int
)

var workoutCmd = &cobra.Command{
	Use:     "workout",
	Aliases: []string{"w"},
	Short:   "Track workout sessions",
	Long: `Track workout sessions with exercises and sets.

WORKFLOW:

  1. Start a session:    fitsync workout start "Leg day" --template abc123
  2. Finish it:          fitsync workout finish --set squat:120x5 --set squat:120x5
  3. View it:            fitsync workout show abc123

  Or record a finished workout in one step:

  fitsync workout log "Run" --duration 30 --category def456

SETS:

  --set takes EXERCISE:WEIGHTxREPS with an optional :TYPE suffix, where TYPE
  is normal, warmup, drop or failure. Repeat it once per set.

  --set bench_press:60x10:warmup --set bench_press:100x5

Finishing a workout updates streaks and stats, grants XP and evaluates
achievements. Only one session can be in progress at a time.`,
}

var workoutStartCmd = &cobra.Command{
	Use:   "start [name]",
	Short: "Start a workout session",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, err := currentUser()
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		name := ""
		if len(args) == 1 {
			name = args[0]
		}

		templateID := ""
		if workoutTemplate != "" {
			tpl, err := fitApp.Templates.Resolve(ctx, userID, workoutTemplate)
			if err != nil {
				return fmt.Errorf("template not found: %s", workoutTemplate)
			}
			templateID = tpl.ID
		}

		w, err := fitApp.Tracker.StartWorkout(ctx, userID, name, templateID)
		if err != nil {
			return fmt.Errorf("failed to start workout: %w", err)
		}

		color.Green("✓ Started %s", w.Name)
		fmt.Printf("  ID: %s\n", shortID(w.ID))
		if len(w.Exercises) > 0 {
			fmt.Printf("  Planned exercises: %d\n", len(w.Exercises))
		}
		return nil
	},
}

var workoutFinishCmd = &cobra.Command{
	Use:   "finish [id]",
	Short: "Finish the in-progress workout",
	Long: `Finish a workout session. Without an id the active session is finished.
Sets given with --set replace the planned exercises.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, err := currentUser()
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		var w *models.CompletedWorkout
		if len(args) == 1 {
			w, err = fitApp.Workouts.Resolve(ctx, userID, args[0])
		} else {
			w, err = fitApp.Workouts.ActiveSession(ctx, userID)
		}
		if err != nil {
			return fmt.Errorf("no workout to finish: %w", err)
		}

		exercises, err := parseSets(workoutSets)
		if err != nil {
			return err
		}
		var end time.Time
		if workoutAt != "" {
			if end, err = parseTime(workoutAt); err != nil {
				return fmt.Errorf("invalid timestamp: %s", workoutAt)
			}
		}

		res, err := fitApp.Tracker.FinishWorkout(ctx, w.ID, exercises, end)
		if err != nil {
			return fmt.Errorf("failed to finish workout: %w", err)
		}
		printResult("Finished", res)
		return nil
	},
}

var workoutLogCmd = &cobra.Command{
	Use:   "log <name>",
	Short: "Record a completed workout",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, err := currentUser()
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		if workoutDuration <= 0 {
			return fmt.Errorf("--duration is required")
		}

		exercises, err := parseSets(workoutSets)
		if err != nil {
			return err
		}
		dur := time.Duration(workoutDuration) * time.Minute
		start := time.Now().Add(-dur)
		if workoutAt != "" {
			if start, err = parseTime(workoutAt); err != nil {
				return fmt.Errorf("invalid timestamp: %s", workoutAt)
			}
		}
		categoryID := ""
		if workoutCategory != "" {
			c, err := fitApp.Categories.Resolve(ctx, userID, workoutCategory)
			if err != nil {
				return fmt.Errorf("category not found: %s", workoutCategory)
			}
			categoryID = c.ID
		}

		res, err := fitApp.Tracker.LogWorkout(ctx, &models.CompletedWorkout{
			UserID:     userID,
			Name:       args[0],
			CategoryID: categoryID,
			StartTime:  start,
			Duration:   int64(dur / time.Second),
			Exercises:  exercises,
		})
		if err != nil {
			return fmt.Errorf("failed to log workout: %w", err)
		}
		printResult("Logged", res)
		return nil
	},
}

var workoutListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List completed workouts",
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, err := currentUser()
		if err != nil {
			return err
		}
		workouts, err := fitApp.Workouts.Recent(cmd.Context(), userID, workoutLimit)
		if err != nil {
			return fmt.Errorf("failed to list workouts: %w", err)
		}

		if len(workouts) == 0 {
			fmt.Println("No workouts found.")
			return nil
		}

		faint := color.New(color.Faint)
		for _, w := range workouts {
			fmt.Printf("%s %s %s %s\n",
				faint.Sprint(shortID(w.ID)),
				faint.Sprint(w.StartTime.Format("2006-01-02 15:04")),
				padRight(truncate(w.Name, 24), 24),
				formatDuration(w.Duration))
		}
		return nil
	},
}

var workoutShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show workout details",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, err := currentUser()
		if err != nil {
			return err
		}
		w, err := fitApp.Workouts.Resolve(cmd.Context(), userID, args[0])
		if err != nil {
			return fmt.Errorf("workout not found: %s", args[0])
		}
		printWorkout(w)
		return nil
	},
}

var workoutActiveCmd = &cobra.Command{
	Use:   "active",
	Short: "Show the in-progress session",
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, err := currentUser()
		if err != nil {
			return err
		}
		w, err := fitApp.Workouts.ActiveSession(cmd.Context(), userID)
		if err != nil {
			fmt.Println("No workout in progress.")
			return nil
		}
		printWorkout(w)
		return nil
	},
}

var workoutDeleteCmd = &cobra.Command{
	Use:     "delete <id>",
	Aliases: []string{"del", "rm"},
	Short:   "Delete a workout",
	Long: `Delete a workout by its ID or ID prefix. Stats are recomputed from the
remaining workouts. Achievement progress already earned is kept.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, err := currentUser()
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		w, err := fitApp.Workouts.Resolve(ctx, userID, args[0])
		if err != nil {
			return fmt.Errorf("workout not found: %s", args[0])
		}
		if err := fitApp.Workouts.Delete(ctx, w.ID); err != nil {
			return fmt.Errorf("failed to delete workout: %w", err)
		}
		if _, err := fitApp.Tracker.RecomputeStats(ctx, userID); err != nil {
			return fmt.Errorf("failed to update stats: %w", err)
		}

		color.Yellow("✗ Deleted %s", w.Name)
		fmt.Printf("  %s\n", color.New(color.Faint).Sprint(shortID(w.ID)))
		return nil
	},
}

func printResult(verb string, res *tracker.Result) {
	color.Green("✓ %s %s", verb, res.Workout.Name)
	fmt.Printf("  ID: %s\n", shortID(res.Workout.ID))
	fmt.Printf("  Duration: %s\n", formatDuration(res.Workout.Duration))
	fmt.Printf("  +%d XP (level %d)\n", res.XP, res.Stats.Level)
	for _, u := range res.Unlocked {
		color.Cyan("  🏆 %s (+%d XP)", u.Definition.Title, u.XP)
	}
}

func printWorkout(w *models.CompletedWorkout) {
	fmt.Printf("Workout: %s\n", shortID(w.ID))
	fmt.Printf("Name: %s\n", w.Name)
	fmt.Printf("Started: %s\n", w.StartTime.Format("2006-01-02 15:04"))
	if w.InProgress() {
		color.Yellow("In progress")
	} else {
		fmt.Printf("Duration: %s\n", formatDuration(w.Duration))
	}

	if len(w.Exercises) > 0 {
		fmt.Println("\nExercises:")
		for _, e := range w.Exercises {
			name := e.Name
			if name == "" {
				name = e.ExerciseID
			}
			fmt.Printf("  %s\n", name)
			for _, s := range e.Sets {
				fmt.Printf("    %.1f x %d %s\n", s.Weight, s.Reps, color.New(color.Faint).Sprint(s.Type))
			}
		}
	}
}

// parseSets turns EXERCISE:WEIGHTxREPS[:TYPE] flags into exercises,
// grouping sets by exercise in first-seen order.
func parseSets(specs []string) ([]models.CompletedExercise, error) {
	if len(specs) == 0 {
		return nil, nil
	}
	var out []models.CompletedExercise
	index := map[string]int{}
	for _, spec := range specs {
		parts := strings.Split(spec, ":")
		if len(parts) < 2 || len(parts) > 3 || parts[0] == "" {
			return nil, fmt.Errorf("invalid set %q (use EXERCISE:WEIGHTxREPS[:TYPE])", spec)
		}
		weightStr, repsStr, ok := strings.Cut(strings.ToLower(parts[1]), "x")
		if !ok {
			return nil, fmt.Errorf("invalid set %q (use EXERCISE:WEIGHTxREPS[:TYPE])", spec)
		}
		weight, err := strconv.ParseFloat(weightStr, 64)
		if err != nil || weight < 0 {
			return nil, fmt.Errorf("invalid weight in %q", spec)
		}
		reps, err := strconv.Atoi(repsStr)
		if err != nil || reps < 0 {
			return nil, fmt.Errorf("invalid reps in %q", spec)
		}
		set := models.WorkoutSet{Type: models.SetNormal, Weight: weight, Reps: reps}
		if len(parts) == 3 {
			set.Type = models.ParseSetType(parts[2])
		}

		i, seen := index[parts[0]]
		if !seen {
			i = len(out)
			index[parts[0]] = i
			out = append(out, models.CompletedExercise{ExerciseID: parts[0]})
		}
		out[i].Sets = append(out[i].Sets, set)
	}
	return out, nil
}

func init() {
	workoutStartCmd.Flags().StringVarP(&workoutTemplate, "template", "T", "", "template ID or prefix")

	workoutFinishCmd.Flags().StringArrayVarP(&workoutSets, "set", "s", nil, "set as EXERCISE:WEIGHTxREPS[:TYPE] (repeatable)")
	workoutFinishCmd.Flags().StringVar(&workoutAt, "at", "", "end time (YYYY-MM-DD HH:MM or e.g. \"today 6pm\")")

	workoutLogCmd.Flags().IntVarP(&workoutDuration, "duration", "d", 0, "duration in minutes")
	workoutLogCmd.Flags().StringVarP(&workoutCategory, "category", "c", "", "category ID or prefix")
	workoutLogCmd.Flags().StringArrayVarP(&workoutSets, "set", "s", nil, "set as EXERCISE:WEIGHTxREPS[:TYPE] (repeatable)")
	workoutLogCmd.Flags().StringVar(&workoutAt, "at", "", "start time (YYYY-MM-DD HH:MM or e.g. \"yesterday 7am\")")

	workoutListCmd.Flags().IntVarP(&workoutLimit, "limit", "n", 20, "max number of results")

	workoutCmd.AddCommand(workoutStartCmd)
	workoutCmd.AddCommand(workoutFinishCmd)
	workoutCmd.AddCommand(workoutLogCmd)
	workoutCmd.AddCommand(workoutListCmd)
	workoutCmd.AddCommand(workoutShowCmd)
	workoutCmd.AddCommand(workoutActiveCmd)
	workoutCmd.AddCommand(workoutDeleteCmd)
	rootCmd.AddCommand(workoutCmd)
}
