// ABOUTME: Tests for the sync metrics manager and the daemon registry.
// ABOUTME: Uses prometheus testutil to read collector values.
package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManagerRegistersOnDaemonRegistry(t *testing.T) {
	reg := NewRegistry()
	m := NewManager(Namespace, Subsystem, reg)

	m.CounterPasses.WithLabelValues("success").Inc()
	m.CounterRowsPushed.WithLabelValues("workouts").Add(3)
	m.GaugeDirtyRows.Set(2)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.CounterPasses.WithLabelValues("success")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.CounterRowsPushed.WithLabelValues("workouts")))

	families, err := reg.Gather()
	require.NoError(t, err)
	names := map[string]bool{}
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["fitsync_sync_passes_total"])
	assert.True(t, names["fitsync_sync_dirty_rows"])
	assert.True(t, names["go_goroutines"])
}

func TestTestManagersAreIsolated(t *testing.T) {
	a, regA := NewTestManagerAndRegistry()
	b := NewTestManager()

	a.CounterDroppedPushes.Inc()
	assert.Equal(t, 1.0, testutil.ToFloat64(a.CounterDroppedPushes))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.CounterDroppedPushes))

	n, err := testutil.GatherAndCount(regA, "fitsync_test_dropped_pushes_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
