package biasstore

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/fieldcam/cameracore/internal/config"
	"github.com/fieldcam/cameracore/internal/orientation"
	"github.com/fieldcam/cameracore/internal/testutil"
	"github.com/fieldcam/cameracore/internal/timeutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "bias.db")
	cfg := config.EmptyBiasStoreConfig()
	dbPathCopy := dbPath
	cfg.DBPath = &dbPathCopy

	s, err := Open(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpenAppliesEmbeddedMigrations(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)

	var name string
	err := s.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name='bias_state'`).Scan(&name)
	require.NoError(t, err)
	assert.Equal(t, "bias_state", name)
}

func TestLoadWithoutSaveReturnsErrNoBias(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)

	_, _, _, err := s.Load(0, time.Now())
	assert.True(t, errors.Is(err, ErrNoBias))
}

func TestSaveThenLoadRoundTrips(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)

	gyroBias := r3.Vec{X: 0.01, Y: -0.02, Z: 0.003}
	magBias := r3.Vec{X: 1.5, Y: -0.5, Z: 0.25}
	convergedAt := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	require.NoError(t, s.Save(gyroBias, magBias, convergedAt))

	gotGyro, gotMag, gotConverged, err := s.Load(0, convergedAt)
	require.NoError(t, err)
	testutil.AssertVecApproxEqual(t, gotGyro, gyroBias, 1e-12)
	testutil.AssertVecApproxEqual(t, gotMag, magBias, 1e-12)
	assert.True(t, convergedAt.Equal(gotConverged))
}

func TestSaveOverwritesPriorRow(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)

	first := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	second := first.Add(time.Hour)
	require.NoError(t, s.Save(r3.Vec{X: 1}, r3.Vec{X: 1}, first))
	require.NoError(t, s.Save(r3.Vec{X: 2}, r3.Vec{X: 2}, second))

	var count int
	require.NoError(t, s.QueryRow(`SELECT COUNT(*) FROM bias_state`).Scan(&count))
	assert.Equal(t, 1, count)

	gyroBias, _, convergedAt, err := s.Load(0, second)
	require.NoError(t, err)
	assert.Equal(t, 2.0, gyroBias.X)
	assert.True(t, second.Equal(convergedAt))
}

func TestLoadRejectsStaleBias(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)

	convergedAt := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.Save(r3.Vec{X: 1}, r3.Vec{X: 1}, convergedAt))

	now := convergedAt.Add(2 * time.Hour)
	_, _, _, err := s.Load(time.Hour, now)
	assert.True(t, errors.Is(err, ErrNoBias))

	// Within the age window, the same row loads fine.
	_, _, _, err = s.Load(3*time.Hour, now)
	require.NoError(t, err)
}

func TestSaveFilterBiasAndRestoreFilterBiasRoundTripThroughFilter(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)

	f := orientation.NewOrientationFilter(nil)
	f.SetGyroBias(r3.Vec{X: 0.1, Y: 0.2, Z: 0.3})
	f.SetMagBias(r3.Vec{X: 1, Y: 2, Z: 3})

	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, s.SaveFilterBias(f, now))

	restored := orientation.NewOrientationFilter(nil)
	require.NoError(t, s.RestoreFilterBias(restored, 0, now))

	assert.Equal(t, f.GyroBias(), restored.GyroBias())
	assert.Equal(t, f.MagBias(), restored.MagBias())
}

func TestRestoreFilterBiasLeavesFilterUntouchedOnErrNoBias(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)

	f := orientation.NewOrientationFilter(nil)
	before := f.GyroBias()

	err := s.RestoreFilterBias(f, 0, time.Now())
	assert.True(t, errors.Is(err, ErrNoBias))
	assert.Equal(t, before, f.GyroBias())
}

func TestFlushLoopPersistsOnEachTick(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)

	f := orientation.NewOrientationFilter(nil)
	f.SetGyroBias(r3.Vec{X: 9})

	clock := timeutil.NewMockClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		s.FlushLoop(ctx, f, time.Second, clock)
		close(done)
	}()

	// Give the goroutine a moment to register its ticker before advancing.
	deadline := time.Now().Add(2 * time.Second)
	for {
		clock.Advance(time.Second)
		_, _, _, err := s.Load(0, clock.Now())
		if err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("flush loop never persisted a bias within the deadline")
		}
		time.Sleep(time.Millisecond)
	}

	cancel()
	<-done

	gotGyro, _, _, err := s.Load(0, clock.Now())
	require.NoError(t, err)
	assert.Equal(t, 9.0, gotGyro.X)
}
