// ABOUTME: CLI commands for workout categories and templates.
// ABOUTME: Categories group templates and workouts; templates seed new sessions.
package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/harperreed/fitsync/internal/models"
)

var (
	categoryColor    string
	templateCategory string
	templateDesc     string
	templateSets     []string
)

var categoryCmd = &cobra.Command{
	Use:     "category",
	Aliases: []string{"cat"},
	Short:   "Manage workout categories",
}

var categoryAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add a category",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, err := currentUser()
		if err != nil {
			return err
		}
		c, err := fitApp.Categories.Create(cmd.Context(), models.NewWorkoutCategory(userID, args[0], categoryColor))
		if err != nil {
			return fmt.Errorf("failed to create category: %w", err)
		}
		color.Green("✓ Added category %s", c.Name)
		fmt.Printf("  ID: %s\n", shortID(c.ID))
		return nil
	},
}

var categoryListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List categories",
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, err := currentUser()
		if err != nil {
			return err
		}
		cats, err := fitApp.Categories.EnsureDefaults(cmd.Context(), userID)
		if err != nil {
			return fmt.Errorf("failed to list categories: %w", err)
		}
		faint := color.New(color.Faint)
		for _, c := range cats {
			tag := ""
			if c.IsDefault {
				tag = faint.Sprint(" (default)")
			}
			fmt.Printf("%s %s %s%s\n", faint.Sprint(shortID(c.ID)), padRight(c.Name, 16), c.Color, tag)
		}
		return nil
	},
}

var categoryDeleteCmd = &cobra.Command{
	Use:     "delete <id>",
	Aliases: []string{"rm"},
	Short:   "Delete a user-created category",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, err := currentUser()
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		c, err := fitApp.Categories.Resolve(ctx, userID, args[0])
		if err != nil {
			return fmt.Errorf("category not found: %s", args[0])
		}
		if err := fitApp.Categories.Delete(ctx, c.ID); err != nil {
			return fmt.Errorf("failed to delete category: %w", err)
		}
		color.Yellow("✗ Deleted category %s", c.Name)
		return nil
	},
}

var templateCmd = &cobra.Command{
	Use:     "template",
	Aliases: []string{"tpl"},
	Short:   "Manage workout templates",
}

var templateAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add a template with planned sets",
	Long: `Add a workout template. Planned sets use the same format as
'fitsync workout finish --set'.

Example:
  fitsync template add "Push" --category abc123 --set bench_press:80x8 --set bench_press:80x8`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, err := currentUser()
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		exercises, err := parseSets(templateSets)
		if err != nil {
			return err
		}
		tpl := &models.WorkoutTemplate{UserID: userID, Name: args[0], Description: templateDesc}
		if templateCategory != "" {
			c, err := fitApp.Categories.Resolve(ctx, userID, templateCategory)
			if err != nil {
				return fmt.Errorf("category not found: %s", templateCategory)
			}
			tpl.CategoryID = c.ID
		}
		for _, e := range exercises {
			tpl.Exercises = append(tpl.Exercises, models.TemplateExercise{ExerciseID: e.ExerciseID, Name: e.Name, Sets: e.Sets})
		}

		tpl, err = fitApp.Templates.Create(ctx, tpl)
		if err != nil {
			return fmt.Errorf("failed to create template: %w", err)
		}
		color.Green("✓ Added template %s", tpl.Name)
		fmt.Printf("  ID: %s\n", shortID(tpl.ID))
		fmt.Printf("  Exercises: %d\n", len(tpl.Exercises))
		return nil
	},
}

var templateListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List templates",
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, err := currentUser()
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		var tpls []*models.WorkoutTemplate
		if templateCategory != "" {
			c, err := fitApp.Categories.Resolve(ctx, userID, templateCategory)
			if err != nil {
				return fmt.Errorf("category not found: %s", templateCategory)
			}
			tpls, err = fitApp.Templates.ListByCategory(ctx, userID, c.ID)
			if err != nil {
				return fmt.Errorf("failed to list templates: %w", err)
			}
		} else {
			tpls, err = fitApp.Templates.ListForUser(ctx, userID)
			if err != nil {
				return fmt.Errorf("failed to list templates: %w", err)
			}
		}

		if len(tpls) == 0 {
			fmt.Println("No templates found.")
			return nil
		}
		faint := color.New(color.Faint)
		for _, t := range tpls {
			fmt.Printf("%s %s %d exercise(s)\n", faint.Sprint(shortID(t.ID)), padRight(truncate(t.Name, 24), 24), len(t.Exercises))
		}
		return nil
	},
}

func init() {
	categoryAddCmd.Flags().StringVar(&categoryColor, "color", "#757575", "hex color")
	categoryCmd.AddCommand(categoryAddCmd)
	categoryCmd.AddCommand(categoryListCmd)
	categoryCmd.AddCommand(categoryDeleteCmd)
	rootCmd.AddCommand(categoryCmd)

	templateAddCmd.Flags().StringVarP(&templateCategory, "category", "c", "", "category ID or prefix")
	templateAddCmd.Flags().StringVar(&templateDesc, "description", "", "template description")
	templateAddCmd.Flags().StringArrayVarP(&templateSets, "set", "s", nil, "planned set as EXERCISE:WEIGHTxREPS[:TYPE] (repeatable)")
	templateListCmd.Flags().StringVarP(&templateCategory, "category", "c", "", "filter by category ID or prefix")
	templateCmd.AddCommand(templateAddCmd)
	templateCmd.AddCommand(templateListCmd)
	rootCmd.AddCommand(templateCmd)
}
