// ABOUTME: Tests for service wiring.
// ABOUTME: Drives a full workout through the app against the in-memory remote.
package app

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/harperreed/fitsync/internal/config"
	"github.com/harperreed/fitsync/internal/connectivity"
	"github.com/harperreed/fitsync/internal/models"
	"github.com/harperreed/fitsync/internal/remote"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestApp(t *testing.T, online bool) (*App, *remote.Memory) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	mem := remote.NewMemory()
	log, _ := test.NewNullLogger()

	cfg := &config.Config{DataDir: t.TempDir(), Backend: config.BackendNone, Timezone: "UTC", ProbeInterval: "10ms"}
	a, err := New(context.Background(), cfg, log, Options{
		Remote: mem,
		Prober: connectivity.ProberFunc(func(context.Context) bool { return online }),
	})
	require.NoError(t, err)
	return a, mem
}

func TestNewSeedsAchievements(t *testing.T) {
	a, _ := newTestApp(t, false)
	defer a.Close()

	defs, err := a.Achievements.Definitions(context.Background())
	require.NoError(t, err)
	assert.Len(t, defs, len(models.DefaultAchievements()))

	_, err = a.UserID()
	assert.ErrorIs(t, err, ErrSignedOut)
}

func TestWorkoutFlowSyncsOnFlush(t *testing.T) {
	a, mem := newTestApp(t, true)
	defer a.Close()
	ctx := context.Background()

	u, err := a.Users.EnsureUser(ctx, "runner@example.com", models.ProviderEmail, "Runner")
	require.NoError(t, err)
	require.NoError(t, a.SignIn(u.ID))

	loaded, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, u.ID, loaded.UserID)

	res, err := a.Tracker.LogWorkout(ctx, &models.CompletedWorkout{
		UserID: u.ID, Name: "Row", StartTime: time.Now().Add(-time.Hour), Duration: 3600,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Unlocked)

	a.Flush(ctx)
	assert.Equal(t, 1, mem.Len(remote.CollectionWorkouts))
	assert.Equal(t, 1, mem.Len(remote.CollectionUsers))
	assert.Equal(t, 1, mem.Len(remote.CollectionStats))

	st, err := a.Sync.Status(ctx)
	require.NoError(t, err)
	assert.Zero(t, st.DirtyRows)

	require.NoError(t, a.SignOut(ctx))
	_, err = a.UserID()
	assert.ErrorIs(t, err, ErrSignedOut)
}

func TestStartAndCloseLeaveNoGoroutines(t *testing.T) {
	a, _ := newTestApp(t, true)
	ctx, cancel := context.WithCancel(context.Background())
	a.Start(ctx)
	time.Sleep(30 * time.Millisecond)
	cancel()
	require.NoError(t, a.Close())
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	log, _ := test.NewNullLogger()
	_, err := New(context.Background(), &config.Config{Backend: "dropbox", DataDir: t.TempDir()}, log, Options{})
	assert.Error(t, err)
}

func TestWatchConfigFollowsSignIn(t *testing.T) {
	a, _ := newTestApp(t, false)
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, a.WatchConfig(ctx))

	other := &config.Config{UserID: "user-from-cli"}
	require.NoError(t, other.Save())

	assert.Eventually(t, func() bool {
		return a.Sync.User() == "user-from-cli"
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, a.Close())
}
