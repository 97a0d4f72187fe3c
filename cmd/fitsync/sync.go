// ABOUTME: CLI commands for syncing with the remote store.
// ABOUTME: Supports now, status, resync and daemon operations.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	syncer "github.com/harperreed/fitsync/internal/sync"
)

var resyncYes bool

var syncCmd = &cobra.Command{
	Use:     "sync",
	Aliases: []string{"s"},
	Short:   "Sync workout data with the remote store",
	Long: `Sync local changes to the remote store and pull changes made on other devices.

Commands that write data push their changes when the network is available.
Anything that could not be pushed stays queued locally and is retried on the
next pass.

COMMANDS:

  now         Push pending rows and pull remote changes
  status      Show connectivity, pending rows and the last pass
  resync      Pull everything, letting remote copies overwrite clean local rows
  daemon      Keep syncing in the background and serve /metrics

BACKENDS:

  Set "backend" in ~/.config/fitsync/config.json to "charm" (default),
  "mongo" (with "mongo_uri") or "none" for local-only use.`,
}

var syncNowCmd = &cobra.Command{
	Use:   "now",
	Short: "Run a sync pass now",
	RunE: func(cmd *cobra.Command, args []string) error {
		rep, err := fitApp.Sync.SyncNow(cmd.Context())
		if rep == nil {
			return fmt.Errorf("sync failed: %w", err)
		}
		printReport(rep)
		if err != nil {
			return fmt.Errorf("sync finished with errors: %w", err)
		}
		return nil
	},
}

var syncStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show sync status",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := fitApp.Sync.Status(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to read sync status: %w", err)
		}

		fmt.Println("Backend:", fitApp.Config.GetBackend())
		if st.UserID != "" {
			fmt.Println("User:", st.UserID)
		} else {
			color.Yellow("Signed out")
		}
		if st.Online {
			color.Green("✓ Online")
		} else {
			color.Yellow("⚠ Offline")
		}
		fmt.Printf("  State: %s\n", st.StateName)
		fmt.Printf("  Pending rows: %d\n", st.DirtyRows)
		if !st.LastSuccess.IsZero() {
			fmt.Printf("  Last success: %s\n", st.LastSuccess.Local().Format("2006-01-02 15:04:05"))
		}
		if st.LastError != "" {
			color.Red("  Last error: %s", st.LastError)
		}
		return nil
	},
}

var syncResyncCmd = &cobra.Command{
	Use:   "resync",
	Short: "Pull all remote data for the signed-in user",
	Long: `Pull every family from the remote store. Remote copies overwrite local
rows that have no unsynced changes. Local changes are not pushed by this
command; run 'fitsync sync now' afterwards.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !resyncYes {
			fmt.Print("Overwrite clean local rows with remote copies? [y/N]: ")
			var confirm string
			_, _ = fmt.Scanln(&confirm)
			if confirm != "y" && confirm != "Y" {
				fmt.Println("Canceled.")
				return nil
			}
		}

		rep, err := fitApp.Sync.FullResync(cmd.Context())
		if rep == nil {
			return fmt.Errorf("resync failed: %w", err)
		}
		printReport(rep)
		if err != nil {
			return fmt.Errorf("resync finished with errors: %w", err)
		}
		return nil
	},
}

var syncDaemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Sync in the background until interrupted",
	Long: `Run the connectivity monitor and the periodic sync loop in the foreground.
A pass runs on connectivity changes and every sync_interval while online.
Prometheus metrics are served at http://<metrics_addr>/metrics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(fitApp.Registry, promhttp.HandlerOpts{}))
		srv := &http.Server{
			Addr:              fitApp.Config.GetMetricsAddr(),
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		errc := make(chan error, 1)
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errc <- err
			}
			close(errc)
		}()

		fitApp.Start(ctx)
		if err := fitApp.WatchConfig(ctx); err != nil {
			fitApp.Log.WithError(err).Warn("sign-in changes will not be picked up")
		}
		fitApp.Sync.Request()
		fitApp.Log.WithField("metrics", srv.Addr).Info("sync daemon started")

		var serveErr error
		select {
		case <-ctx.Done():
		case serveErr = <-errc:
			stop()
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		if serveErr != nil {
			return fmt.Errorf("metrics server: %w", serveErr)
		}
		return nil
	},
}

func printReport(rep *syncer.Report) {
	faint := color.New(color.Faint)
	for _, f := range rep.Families {
		line := fmt.Sprintf("  %s pushed %d, pulled %d", padRight(f.Family, 22), f.Pushed, f.Pulled)
		if f.Failed > 0 || f.Skipped > 0 {
			line += faint.Sprintf(" (failed %d, skipped %d)", f.Failed, f.Skipped)
		}
		if f.Error != "" {
			color.Red("%s: %s", line, f.Error)
			continue
		}
		fmt.Println(line)
	}
	t := rep.Totals()
	color.Green("✓ Synced: %d pushed, %d pulled", t.Pushed, t.Pulled)
}

func init() {
	syncResyncCmd.Flags().BoolVarP(&resyncYes, "yes", "y", false, "skip confirmation")

	syncCmd.AddCommand(syncNowCmd)
	syncCmd.AddCommand(syncStatusCmd)
	syncCmd.AddCommand(syncResyncCmd)
	syncCmd.AddCommand(syncDaemonCmd)
	rootCmd.AddCommand(syncCmd)
}
