package biasstore

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/fieldcam/cameracore/internal/monitoring"
	"github.com/fieldcam/cameracore/internal/orientation"
	"github.com/fieldcam/cameracore/internal/timeutil"
	"gonum.org/v1/gonum/spatial/r3"
)

// ErrNoBias is returned by Load when no bias has ever been saved, or the
// saved bias is older than the caller's max age.
var ErrNoBias = errors.New("biasstore: no usable bias on record")

// Save persists gyroBias and magBias as the current bias state, replacing
// whatever was previously stored. There is only ever one row: a capture
// session has one converged bias estimate at a time, not a history of them.
func (s *Store) Save(gyroBias, magBias r3.Vec, convergedAt time.Time) error {
	_, err := s.Exec(`
		INSERT INTO bias_state (id, gyro_bias_x, gyro_bias_y, gyro_bias_z, mag_bias_x, mag_bias_y, mag_bias_z, converged_at)
		VALUES (1, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			gyro_bias_x = excluded.gyro_bias_x,
			gyro_bias_y = excluded.gyro_bias_y,
			gyro_bias_z = excluded.gyro_bias_z,
			mag_bias_x = excluded.mag_bias_x,
			mag_bias_y = excluded.mag_bias_y,
			mag_bias_z = excluded.mag_bias_z,
			converged_at = excluded.converged_at
	`, gyroBias.X, gyroBias.Y, gyroBias.Z, magBias.X, magBias.Y, magBias.Z,
		convergedAt.UTC().Format(time.RFC3339Nano))
	return err
}

// Load returns the stored bias, or ErrNoBias if nothing has ever been saved
// or the stored value is older than maxAge (measured against now). A
// non-positive maxAge disables the age check.
func (s *Store) Load(maxAge time.Duration, now time.Time) (gyroBias, magBias r3.Vec, convergedAt time.Time, err error) {
	row := s.QueryRow(`
		SELECT gyro_bias_x, gyro_bias_y, gyro_bias_z, mag_bias_x, mag_bias_y, mag_bias_z, converged_at
		FROM bias_state WHERE id = 1
	`)

	var convergedAtStr string
	if scanErr := row.Scan(&gyroBias.X, &gyroBias.Y, &gyroBias.Z, &magBias.X, &magBias.Y, &magBias.Z, &convergedAtStr); scanErr != nil {
		if errors.Is(scanErr, sql.ErrNoRows) {
			return r3.Vec{}, r3.Vec{}, time.Time{}, ErrNoBias
		}
		return r3.Vec{}, r3.Vec{}, time.Time{}, scanErr
	}

	convergedAt, err = time.Parse(time.RFC3339Nano, convergedAtStr)
	if err != nil {
		return r3.Vec{}, r3.Vec{}, time.Time{}, err
	}
	if maxAge > 0 && now.Sub(convergedAt) > maxAge {
		return r3.Vec{}, r3.Vec{}, time.Time{}, ErrNoBias
	}
	return gyroBias, magBias, convergedAt, nil
}

// SaveFilterBias persists f's current gyro/mag bias estimate as of now.
func (s *Store) SaveFilterBias(f *orientation.OrientationFilter, now time.Time) error {
	return s.Save(f.GyroBias(), f.MagBias(), now)
}

// RestoreFilterBias loads a still-fresh bias (per maxAge) and applies it to
// f via SetGyroBias/SetMagBias. f is left untouched if ErrNoBias (or any
// other error) is returned.
func (s *Store) RestoreFilterBias(f *orientation.OrientationFilter, maxAge time.Duration, now time.Time) error {
	gyroBias, magBias, _, err := s.Load(maxAge, now)
	if err != nil {
		return err
	}
	f.SetGyroBias(gyroBias)
	f.SetMagBias(magBias)
	return nil
}

// FlushLoop calls SaveFilterBias on f every interval, using clock's ticker
// so tests can drive it without real wall-clock waits, until ctx is
// cancelled. Save errors are logged and the loop continues, matching the
// sensor path's log-and-continue discipline rather than tearing down a live
// capture session over a persistence hiccup.
func (s *Store) FlushLoop(ctx context.Context, f *orientation.OrientationFilter, interval time.Duration, clock timeutil.Clock) {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	ticker := clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case t := <-ticker.C():
			if err := s.SaveFilterBias(f, t); err != nil {
				monitoring.Logf("biasstore: periodic flush failed: %v", err)
			}
		}
	}
}
