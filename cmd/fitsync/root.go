// ABOUTME: Root Cobra command for fitsync CLI.
// ABOUTME: Builds the app in PersistentPreRunE and flushes and closes it in PersistentPostRunE.
package main

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/harperreed/fitsync/internal/app"
	"github.com/harperreed/fitsync/internal/config"
	"github.com/harperreed/fitsync/internal/logging"
)

var version = "dev"

var (
	fitApp    *app.App
	logCloser io.Closer

	flagDataDir string
	flagBackend string
	flagVerbose bool
)

var rootCmd = &cobra.Command{
	Use:     "fitsync",
	Short:   "Offline-first workout tracker with cloud sync",
	Version: version,
	Long: `Fitsync tracks workout sessions, streaks and achievements on this device
and syncs them to a remote store when the network is available.

QUICK START:

  $ fitsync user init you@example.com        # Sign in (creates your profile)
  $ fitsync workout start "Push day"         # Start a session
  $ fitsync workout finish --set bench_press:100x5
  $ fitsync workout log "Run" -d 30          # Record a finished workout
  $ fitsync stats                            # Level, XP and streaks
  $ fitsync achievements list                # Progress toward achievements

OFFLINE FIRST:

  Every write lands in the local SQLite store first and is pushed to the
  remote store when online. Rows that fail to push stay queued and are
  retried on the next pass.

  $ fitsync sync status      # Pending rows and last pass
  $ fitsync sync now         # Push and pull now
  $ fitsync sync daemon      # Keep syncing in the background

MCP INTEGRATION:

  Run 'fitsync mcp' to start the Model Context Protocol server:

  {
    "mcpServers": {
      "fitsync": { "command": "fitsync", "args": ["mcp"] }
    }
  }

CONFIGURATION:

  Settings live in ~/.config/fitsync/config.json. The local database is
  stored at ~/.local/share/fitsync/fitsync.db by default.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if !needsApp(cmd) {
			return nil
		}

		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if flagDataDir != "" {
			cfg.DataDir = flagDataDir
		}
		if flagBackend != "" {
			cfg.Backend = flagBackend
		}

		log := logrus.New()
		level := cfg.LogLevel
		switch {
		case flagVerbose:
			level = "debug"
		case level == "" && cmd.Name() != "daemon":
			level = "warn"
		}
		logCloser = logging.Setup(log, logging.Params{
			File:    cfg.GetLogFile(),
			Level:   level,
			JSON:    cfg.LogJSON,
			Console: true,
		})

		fitApp, err = app.New(cmd.Context(), cfg, log, app.Options{})
		if err != nil {
			return fmt.Errorf("failed to initialize fitsync: %w", err)
		}
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return shutdown(cmd)
	},
}

// needsApp reports whether cmd touches the store.
func needsApp(cmd *cobra.Command) bool {
	switch cmd.Name() {
	case "help", "version", "completion", "install-skill":
		return false
	}
	return cmd.Runnable()
}

func shutdown(cmd *cobra.Command) error {
	var err error
	if fitApp != nil {
		fitApp.Flush(cmd.Context())
		err = fitApp.Close()
		fitApp = nil
	}
	if logCloser != nil {
		_ = logCloser.Close()
		logCloser = nil
	}
	return err
}

// currentUser returns the signed-in user id.
func currentUser() (string, error) {
	return fitApp.UserID()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagDataDir, "data-dir", "", "directory holding fitsync.db")
	rootCmd.PersistentFlags().StringVar(&flagBackend, "backend", "", "remote backend: charm, mongo or none")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "debug logging to stderr")
}
