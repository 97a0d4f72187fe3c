// ABOUTME: Sync coordinator reconciling the local store with the remote store.
// ABOUTME: Runs push-then-pull passes on connectivity, timer, request and queued pushes.
package sync

import (
	"context"
	"errors"
	"fmt"
	gosync "sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"

	"github.com/harperreed/fitsync/internal/mapper"
	"github.com/harperreed/fitsync/internal/metrics"
	"github.com/harperreed/fitsync/internal/remote"
	"github.com/harperreed/fitsync/internal/storage"
)

var (
	// ErrSyncInProgress is returned when a pass is already running.
	ErrSyncInProgress = errors.New("sync already in progress")
	// ErrNoUser is returned by operations that need a signed-in user.
	ErrNoUser = errors.New("no signed-in user")
)

const (
	// DefaultInterval is the periodic pass interval.
	DefaultInterval = 15 * time.Minute
	// DefaultQueueSize bounds pending single-row pushes.
	DefaultQueueSize = 256
)

// State is the coordinator's position in Idle → Syncing → {Success, Error} → Idle.
type State int

const (
	StateIdle State = iota
	StateSyncing
	StateSuccess
	StateError
)

func (s State) String() string {
	switch s {
	case StateSyncing:
		return "syncing"
	case StateSuccess:
		return "success"
	case StateError:
		return "error"
	default:
		return "idle"
	}
}

// Connectivity gates remote calls and reports transitions.
type Connectivity interface {
	IsInternetAvailable() bool
	Subscribe() (<-chan bool, func())
}

// FamilyReport counts what one pass did to one family.
type FamilyReport struct {
	Family  string `json:"family"`
	Pushed  int    `json:"pushed"`
	Failed  int    `json:"failed"`
	Pulled  int    `json:"pulled"`
	Skipped int    `json:"skipped"`
	Error   string `json:"error,omitempty"`
}

// Report summarizes one pass.
type Report struct {
	Full     bool           `json:"full"`
	Started  time.Time      `json:"started"`
	Finished time.Time      `json:"finished"`
	Families []FamilyReport `json:"families"`
}

// Totals sums the per-family counts.
func (r *Report) Totals() FamilyReport {
	var t FamilyReport
	for _, f := range r.Families {
		t.Pushed += f.Pushed
		t.Failed += f.Failed
		t.Pulled += f.Pulled
		t.Skipped += f.Skipped
	}
	return t
}

// Status is a point-in-time view of the coordinator.
type Status struct {
	State       State     `json:"-"`
	StateName   string    `json:"state"`
	UserID      string    `json:"user_id,omitempty"`
	Online      bool      `json:"online"`
	LastReport  *Report   `json:"last_report,omitempty"`
	LastError   string    `json:"last_error,omitempty"`
	LastSuccess time.Time `json:"last_success,omitempty"`
	DirtyRows   int       `json:"dirty_rows"`
}

// Options configure a Coordinator. Store, Remote and Online are required.
type Options struct {
	Store     *storage.Store
	Remote    remote.Store
	Online    Connectivity
	Metrics   *metrics.Manager
	Log       logrus.FieldLogger
	Interval  time.Duration
	QueueSize int
	UserID    string
	Now       func() time.Time
}

type pushTask struct {
	family string
	id     string
}

// Coordinator owns every sync pass. Construct with New.
type Coordinator struct {
	store    *storage.Store
	remote   remote.Store
	online   Connectivity
	metrics  *metrics.Manager
	log      logrus.FieldLogger
	interval time.Duration
	now      func() time.Time

	families []family
	byName   map[string]family

	running  atomic.Bool
	requests chan struct{}
	queue    chan pushTask

	mu          gosync.Mutex
	userID      string
	state       State
	last        *Report
	lastErr     error
	lastSuccess time.Time
}

// New applies defaults for every optional field of opts.
func New(opts Options) *Coordinator {
	if opts.Metrics == nil {
		opts.Metrics = metrics.NewTestManager()
	}
	if opts.Log == nil {
		opts.Log = logrus.StandardLogger()
	}
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = DefaultQueueSize
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	s := opts.Store
	c := &Coordinator{
		store:    s,
		remote:   opts.Remote,
		online:   opts.Online,
		metrics:  opts.Metrics,
		log:      opts.Log.WithField("component", "sync"),
		interval: opts.Interval,
		now:      opts.Now,
		requests: make(chan struct{}, 1),
		queue:    make(chan pushTask, opts.QueueSize),
		userID:   opts.UserID,
		// Fixed pass order.
		families: []family{
			newFamily(s.Users, mapper.Users),
			newFamily(s.Auth, mapper.Auth),
			newFamily(s.Profiles, mapper.Profiles),
			newFamily(s.Stats, mapper.Stats),
			newFamily(s.Achievements, mapper.Achievements),
			newFamily(s.Progress, mapper.Progress),
			newFamily(s.Templates, mapper.Templates),
			newFamily(s.Workouts, mapper.Workouts),
			newFamily(s.Categories, mapper.Categories),
		},
	}
	c.byName = make(map[string]family, len(c.families))
	for _, f := range c.families {
		c.byName[f.Name()] = f
	}
	c.metrics.GaugeState.Set(float64(StateIdle))
	return c
}

// SetUser changes the user whose records are pulled.
func (c *Coordinator) SetUser(userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.userID = userID
}

// User returns the signed-in user id.
func (c *Coordinator) User() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.userID
}

// Schedule queues a best-effort single-row push. A full queue drops the
// task; the row's dirty flag keeps it for the next pass.
func (c *Coordinator) Schedule(family, id string) {
	select {
	case c.queue <- pushTask{family: family, id: id}:
	default:
		c.metrics.CounterDroppedPushes.Inc()
		c.log.WithFields(logrus.Fields{"family": family, "id": id}).Debug("push queue full; dropped")
	}
}

// Request asks the run loop for a pass. Requests coalesce.
func (c *Coordinator) Request() {
	select {
	case c.requests <- struct{}{}:
	default:
	}
}

// Run drives passes until ctx ends: on connectivity regained, on every tick
// while online, on Request, and single-row pushes from Schedule.
func (c *Coordinator) Run(ctx context.Context) error {
	changes, cancel := c.online.Subscribe()
	defer cancel()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.log.WithField("interval", c.interval).Info("sync loop started")
	for {
		select {
		case <-ctx.Done():
			c.log.Info("sync loop stopped")
			return nil
		case online := <-changes:
			if online {
				c.trigger(ctx, "connectivity")
			}
		case <-ticker.C:
			if c.online.IsInternetAvailable() {
				c.trigger(ctx, "periodic")
			}
		case <-c.requests:
			c.trigger(ctx, "request")
		case task := <-c.queue:
			c.pushQueued(ctx, task)
		}
	}
}

func (c *Coordinator) trigger(ctx context.Context, reason string) {
	log := c.log.WithField("trigger", reason)
	if _, err := c.SyncNow(ctx); err != nil {
		switch {
		case errors.Is(err, ErrSyncInProgress), errors.Is(err, remote.ErrOffline):
			log.WithError(err).Debug("sync skipped")
		default:
			log.WithError(err).Warn("sync pass failed")
		}
	}
}

func (c *Coordinator) pushQueued(ctx context.Context, task pushTask) {
	if !c.online.IsInternetAvailable() {
		return
	}
	f, ok := c.byName[task.family]
	if !ok {
		c.log.WithField("family", task.family).Warn("push for unknown family")
		return
	}
	if !c.running.CompareAndSwap(false, true) {
		return
	}
	defer c.running.Store(false)
	if err := f.pushOne(ctx, c, task.id); err != nil {
		c.log.WithError(err).WithFields(logrus.Fields{"family": task.family, "id": task.id}).Debug("queued push failed")
	}
}

// SyncNow runs one incremental pass: for each family in order, push dirty
// rows then pull the signed-in user's remote records.
func (c *Coordinator) SyncNow(ctx context.Context) (*Report, error) {
	if !c.online.IsInternetAvailable() {
		return nil, remote.ErrOffline
	}
	if !c.running.CompareAndSwap(false, true) {
		return nil, ErrSyncInProgress
	}
	defer c.running.Store(false)
	return c.pass(ctx, false)
}

// FullResync pulls every remote record of the signed-in user and all
// definitions, overwriting local copies regardless of dirty flags.
func (c *Coordinator) FullResync(ctx context.Context) (*Report, error) {
	if c.User() == "" {
		return nil, ErrNoUser
	}
	if !c.online.IsInternetAvailable() {
		return nil, remote.ErrOffline
	}
	if !c.running.CompareAndSwap(false, true) {
		return nil, ErrSyncInProgress
	}
	defer c.running.Store(false)
	return c.pass(ctx, true)
}

// SignOut runs a best-effort pass, clears the user's cached progress and
// forgets the user.
func (c *Coordinator) SignOut(ctx context.Context) error {
	userID := c.User()
	if userID == "" {
		return ErrNoUser
	}
	if _, err := c.SyncNow(ctx); err != nil {
		c.log.WithError(err).Warn("sync before sign-out failed; unsynced changes stay local")
	}
	removed, err := c.store.Progress.DeleteByUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("clear progress: %w", err)
	}
	c.log.WithFields(logrus.Fields{"user": userID, "progress_rows": removed}).Info("signed out")
	c.SetUser("")
	return nil
}

func (c *Coordinator) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
	c.metrics.GaugeState.Set(float64(s))
}

func (c *Coordinator) pass(ctx context.Context, full bool) (*Report, error) {
	userID := c.User()
	rep := &Report{Full: full, Started: c.now()}
	c.setState(StateSyncing)
	timer := time.Now()

	var errs error
	if r, ok := c.remote.(remote.Refresher); ok {
		if err := r.Refresh(ctx); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("refresh: %w", err))
		}
	}

	for _, f := range c.families {
		fr := FamilyReport{Family: f.Name()}
		err := c.runFamily(ctx, f, userID, full, &fr)
		if err != nil {
			fr.Error = err.Error()
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", f.Name(), err))
			c.log.WithError(err).WithField("family", f.Name()).Warn("family sync failed")
		}
		rep.Families = append(rep.Families, fr)
		if ctx.Err() != nil {
			errs = multierr.Append(errs, ctx.Err())
			break
		}
	}
	rep.Finished = c.now()

	c.metrics.HistPassDuration.Observe(time.Since(timer).Seconds())
	if dirty, err := c.store.DirtyCount(ctx); err == nil {
		c.metrics.GaugeDirtyRows.Set(float64(dirty))
	}

	c.mu.Lock()
	c.last = rep
	c.lastErr = errs
	if errs == nil {
		c.lastSuccess = rep.Finished
	}
	c.mu.Unlock()

	totals := rep.Totals()
	log := c.log.WithFields(logrus.Fields{
		"full":    full,
		"pushed":  totals.Pushed,
		"failed":  totals.Failed,
		"pulled":  totals.Pulled,
		"skipped": totals.Skipped,
	})
	if errs != nil {
		c.setState(StateError)
		c.metrics.CounterPasses.WithLabelValues("error").Inc()
		log.Warn("sync pass finished with errors")
	} else {
		c.setState(StateSuccess)
		c.metrics.CounterPasses.WithLabelValues("success").Inc()
		log.Info("sync pass finished")
	}
	c.setState(StateIdle)
	return rep, errs
}

func (c *Coordinator) runFamily(ctx context.Context, f family, userID string, full bool, fr *FamilyReport) error {
	var errs error
	if !full {
		errs = f.push(ctx, c, fr)
	}
	if userID == "" && !f.global() {
		return errs
	}
	if err := f.pull(ctx, c, userID, full, fr); err != nil {
		errs = multierr.Append(errs, err)
	}
	return errs
}

// Status returns the current state and the last pass's outcome.
func (c *Coordinator) Status(ctx context.Context) (Status, error) {
	dirty, err := c.store.DirtyCount(ctx)
	if err != nil {
		return Status{}, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	st := Status{
		State:       c.state,
		StateName:   c.state.String(),
		UserID:      c.userID,
		Online:      c.online.IsInternetAvailable(),
		LastReport:  c.last,
		LastSuccess: c.lastSuccess,
		DirtyRows:   dirty,
	}
	if c.lastErr != nil {
		st.LastError = c.lastErr.Error()
	}
	return st, nil
}
