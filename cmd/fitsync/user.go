// ABOUTME: CLI commands for signing in and out.
// ABOUTME: Supports init, show and signout subcommands.
package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/harperreed/fitsync/internal/models"
)

var (
	userName     string
	userProvider string
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage the signed-in user",
	Long: `Sign in, inspect the signed-in user, or sign out.

Signing in with an email address that has never been seen creates the user,
auth record, profile and stats. Signing in again on another device finds the
same user once its records have synced.`,
}

var userInitCmd = &cobra.Command{
	Use:   "init <email>",
	Short: "Sign in, creating the user on first use",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		u, err := fitApp.Users.EnsureUser(ctx, args[0], models.ParseAuthProvider(userProvider), userName)
		if err != nil {
			return fmt.Errorf("failed to sign in: %w", err)
		}
		if _, err := fitApp.Users.RecordLogin(ctx, u.ID); err != nil {
			return fmt.Errorf("failed to record login: %w", err)
		}
		if _, err := fitApp.Categories.EnsureDefaults(ctx, u.ID); err != nil {
			return fmt.Errorf("failed to seed categories: %w", err)
		}
		if err := fitApp.SignIn(u.ID); err != nil {
			return fmt.Errorf("failed to save config: %w", err)
		}

		color.Green("✓ Signed in")
		fmt.Printf("  User: %s\n", u.ID)
		return nil
	},
}

var userShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the signed-in user",
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, err := currentUser()
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		profile, err := fitApp.Users.ProfileFor(ctx, userID)
		if err != nil {
			return fmt.Errorf("failed to load profile: %w", err)
		}
		stats, err := fitApp.Users.StatsFor(ctx, userID)
		if err != nil {
			return fmt.Errorf("failed to load stats: %w", err)
		}

		fmt.Printf("User: %s\n", userID)
		if profile.DisplayName != "" {
			fmt.Printf("Name: %s\n", profile.DisplayName)
		}
		fmt.Printf("Level: %d (%d XP)\n", stats.Level, stats.ExperiencePoints)
		return nil
	},
}

var userSignOutCmd = &cobra.Command{
	Use:   "signout",
	Short: "Sync, clear cached progress and sign out",
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := currentUser(); err != nil {
			return err
		}
		if err := fitApp.SignOut(cmd.Context()); err != nil {
			return fmt.Errorf("failed to sign out: %w", err)
		}
		color.Green("✓ Signed out")
		return nil
	},
}

func init() {
	userInitCmd.Flags().StringVar(&userName, "name", "", "display name")
	userInitCmd.Flags().StringVar(&userProvider, "provider", "email", "auth provider: email, google or apple")

	userCmd.AddCommand(userInitCmd)
	userCmd.AddCommand(userShowCmd)
	userCmd.AddCommand(userSignOutCmd)
	rootCmd.AddCommand(userCmd)
}
