// ABOUTME: CLI command for starting MCP server.
// ABOUTME: Runs stdio-based MCP server with the sync loop in the background.
package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/harperreed/fitsync/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP server",
	Long: `Start the Model Context Protocol (MCP) server for AI assistant integration.

The server communicates via stdin/stdout and syncs in the background while
it runs. Logs go to stderr or the configured log file.

CLAUDE DESKTOP CONFIGURATION:

  {
    "mcpServers": {
      "fitsync": {
        "command": "fitsync",
        "args": ["mcp"]
      }
    }
  }

AVAILABLE TOOLS:

  start_workout       Start a session, optionally from a template
  finish_workout      Finish the active session with exercises and sets
  log_workout         Record a completed workout in one step
  list_workouts       List recent completed workouts
  get_workout         Get a workout with its sets
  delete_workout      Delete a workout
  add_category        Create a workout category
  list_categories     List workout categories
  list_achievements   Achievements with progress
  get_stats           Level, XP, streaks and exercise stats
  sync_now            Run a sync pass

AVAILABLE RESOURCES:

  fitsync://workouts/recent    Recent workouts and the active session
  fitsync://stats              Stats, achievements and sync status`,
	RunE: func(cmd *cobra.Command, args []string) error {
		server, err := mcp.NewServer(fitApp, version)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		fitApp.Start(ctx)
		if err := fitApp.WatchConfig(ctx); err != nil {
			fitApp.Log.WithError(err).Warn("sign-in changes will not be picked up")
		}
		return server.Serve(ctx)
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
