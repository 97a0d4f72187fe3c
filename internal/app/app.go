// ABOUTME: Explicit construction and teardown of every fitsync service.
// ABOUTME: One App per process; commands and the MCP server share it.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	gosync "sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"

	"github.com/harperreed/fitsync/internal/achievements"
	"github.com/harperreed/fitsync/internal/charm"
	"github.com/harperreed/fitsync/internal/config"
	"github.com/harperreed/fitsync/internal/connectivity"
	"github.com/harperreed/fitsync/internal/metrics"
	"github.com/harperreed/fitsync/internal/models"
	"github.com/harperreed/fitsync/internal/mongostore"
	"github.com/harperreed/fitsync/internal/remote"
	"github.com/harperreed/fitsync/internal/repository"
	"github.com/harperreed/fitsync/internal/storage"
	syncer "github.com/harperreed/fitsync/internal/sync"
	"github.com/harperreed/fitsync/internal/tracker"
)

// ErrSignedOut is returned by operations that need a signed-in user.
var ErrSignedOut = errors.New("no signed-in user; run 'fitsync user init'")

const connectTimeout = 10 * time.Second

// Options override collaborators, mainly for tests.
type Options struct {
	// Remote replaces the configured backend.
	Remote remote.Store
	// Prober replaces the TCP dial prober.
	Prober connectivity.Prober
	Now    func() time.Time
}

// App holds every service of one fitsync process.
type App struct {
	Config   *config.Config
	Log      logrus.FieldLogger
	Store    *storage.Store
	Remote   remote.Store
	Monitor  *connectivity.Monitor
	Registry *prometheus.Registry
	Metrics  *metrics.Manager
	Sync     *syncer.Coordinator

	Users        *repository.UserRepository
	Workouts     *repository.WorkoutRepository
	Categories   *repository.CategoryRepository
	Templates    *repository.TemplateRepository
	Achievements *repository.AchievementRepository
	Evaluator    *achievements.Evaluator
	Tracker      *tracker.Tracker

	prober  connectivity.Prober
	closers []func() error
	wg      gosync.WaitGroup
}

// New opens the local store and remote backend and wires every service.
// A remote backend that cannot be reached leaves the app local-only.
func New(ctx context.Context, cfg *config.Config, log logrus.FieldLogger, opts Options) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	store, err := cfg.OpenStore()
	if err != nil {
		return nil, fmt.Errorf("open local store: %w", err)
	}
	a := &App{Config: cfg, Log: log, Store: store}
	a.closers = append(a.closers, store.Close)

	a.Remote = opts.Remote
	if a.Remote == nil {
		a.Remote = a.openRemote(ctx)
	}
	a.prober = opts.Prober
	if a.prober == nil {
		a.prober = connectivity.DialProber{Address: cfg.GetProbeAddress()}
	}
	if _, offline := a.Remote.(remote.Offline); offline {
		a.prober = connectivity.ProberFunc(func(context.Context) bool { return false })
	}
	a.Monitor = connectivity.NewMonitor(a.prober.Probe(ctx), log)

	a.Registry = metrics.NewRegistry()
	a.Metrics = metrics.NewManager(metrics.Namespace, metrics.Subsystem, a.Registry)
	a.Sync = syncer.New(syncer.Options{
		Store:    store,
		Remote:   a.Remote,
		Online:   a.Monitor,
		Metrics:  a.Metrics,
		Log:      log,
		Interval: cfg.GetSyncInterval(),
		UserID:   cfg.UserID,
		Now:      opts.Now,
	})

	deps := repository.Deps{
		Store:  store,
		Remote: a.Remote,
		Online: a.Monitor,
		Pusher: a.Sync,
		Log:    log,
		Now:    opts.Now,
	}
	a.Users = repository.NewUserRepository(deps)
	a.Workouts = repository.NewWorkoutRepository(deps)
	a.Categories = repository.NewCategoryRepository(deps)
	a.Templates = repository.NewTemplateRepository(deps)
	a.Achievements = repository.NewAchievementRepository(deps)
	a.Evaluator = achievements.New(achievements.Options{
		Achievements: a.Achievements,
		Workouts:     a.Workouts,
		Users:        a.Users,
		Location:     cfg.GetLocation(),
		Log:          log,
		Now:          opts.Now,
	})
	a.Tracker = tracker.New(tracker.Options{
		Workouts:  a.Workouts,
		Templates: a.Templates,
		Users:     a.Users,
		Evaluator: a.Evaluator,
		Location:  cfg.GetLocation(),
		Log:       log,
		Now:       opts.Now,
	})

	if _, err := a.Achievements.SeedDefinitions(ctx, models.DefaultAchievements()); err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("seed achievements: %w", err)
	}
	return a, nil
}

func (a *App) openRemote(ctx context.Context) remote.Store {
	log := a.Log.WithField("backend", a.Config.GetBackend())
	switch a.Config.GetBackend() {
	case config.BackendMongo:
		cctx, cancel := context.WithTimeout(ctx, connectTimeout)
		defer cancel()
		s, err := mongostore.Connect(cctx, a.Config.MongoURI, a.Config.GetMongoDatabase())
		if err != nil {
			log.WithError(err).Warn("remote store unavailable; running local-only")
			return remote.Offline{}
		}
		a.closers = append(a.closers, s.Close)
		return s
	case config.BackendCharm:
		s, err := charm.Open(charm.Options{DBName: a.Config.GetCharmDB(), Host: a.Config.CharmHost})
		if err != nil {
			log.WithError(err).Warn("remote store unavailable; running local-only")
			return remote.Offline{}
		}
		a.closers = append(a.closers, s.Close)
		return s
	default:
		return remote.Offline{}
	}
}

// Start runs the connectivity prober and the sync loop until ctx ends.
// Close waits for both.
func (a *App) Start(ctx context.Context) {
	a.wg.Add(2)
	go func() {
		defer a.wg.Done()
		a.Monitor.Run(ctx, a.prober, a.Config.GetProbeInterval())
	}()
	go func() {
		defer a.wg.Done()
		_ = a.Sync.Run(ctx)
	}()
}

// WatchConfig follows sign-in and sign-out done by other fitsync processes
// until ctx ends. Close waits for the watcher.
func (a *App) WatchConfig(ctx context.Context) error {
	path := config.GetConfigPath()
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	if err := w.Add(dir); err != nil {
		_ = w.Close()
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		defer w.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != path || !(ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create)) {
					continue
				}
				a.reloadUser()
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				a.Log.WithError(err).Warn("config watcher error")
			}
		}
	}()
	return nil
}

func (a *App) reloadUser() {
	cfg, err := config.Load()
	if err != nil {
		a.Log.WithError(err).Warn("failed to reload config")
		return
	}
	if cfg.UserID == a.Sync.User() {
		return
	}
	a.Sync.SetUser(cfg.UserID)
	a.Log.WithField("user", cfg.UserID).Info("signed-in user changed")
	if cfg.UserID != "" {
		a.Sync.Request()
	}
}

// UserID returns the signed-in user or ErrSignedOut.
func (a *App) UserID() (string, error) {
	if id := a.Sync.User(); id != "" {
		return id, nil
	}
	return "", ErrSignedOut
}

// SignIn makes userID the current user and persists it.
func (a *App) SignIn(userID string) error {
	a.Sync.SetUser(userID)
	a.Config.UserID = userID
	return a.Config.Save()
}

// SignOut syncs what it can, clears cached progress and forgets the user.
func (a *App) SignOut(ctx context.Context) error {
	if err := a.Sync.SignOut(ctx); err != nil {
		return err
	}
	a.Config.UserID = ""
	return a.Config.Save()
}

// Flush runs one best-effort pass when online. Pass errors are logged:
// unsynced rows stay dirty for the next run.
func (a *App) Flush(ctx context.Context) {
	if !a.Monitor.IsInternetAvailable() {
		return
	}
	if _, err := a.Sync.SyncNow(ctx); err != nil {
		a.Log.WithError(err).Warn("sync after command failed")
	}
}

// Close releases the remote backend and the local store. Callers cancel
// the Start context first.
func (a *App) Close() error {
	a.wg.Wait()
	var errs error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = multierr.Append(errs, a.closers[i]())
	}
	a.closers = nil
	return errs
}
