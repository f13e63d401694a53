package orientation

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// DefaultConfigPath is the relative path MustLoadDefaultFilterConfig looks
// for. No file is checked in at this path; the estimator's default gains
// are the values the Get* accessors return for nil fields.
const DefaultConfigPath = "config/orientation.defaults.json"

// FilterConfig holds the tunable gains and thresholds for OrientationFilter
// and StationaryDetector. Every field is a pointer so a partial JSON
// override file only needs to name the fields it changes; the Get*
// accessors supply the production defaults for anything left nil.
type FilterConfig struct {
	// Rate-correction gains (rad/s), steady state and during the init period.
	AccelGainNormal *float64 `json:"accel_gain_normal,omitempty"`
	AccelGainInit   *float64 `json:"accel_gain_init,omitempty"`
	MagGainNormal   *float64 `json:"mag_gain_normal,omitempty"`
	MagGainInit     *float64 `json:"mag_gain_init,omitempty"`

	// InitPeriodSecs is the duration after construction during which the
	// filter uses its relaxed init-period gains and stability requirements.
	InitPeriodSecs *float64 `json:"init_period_secs,omitempty"`

	// AccelAngleGuardDegrees is the maximum angle (degrees) between a new
	// accel sample and the previous accepted one before the new sample is
	// rejected as non-gravitational.
	AccelAngleGuardDegrees *float64 `json:"accel_angle_guard_degrees,omitempty"`

	// GyroMinDtSecs/GyroMaxDtSecs bound the accepted interval between
	// successive gyro samples; samples outside this window are dropped.
	GyroMinDtSecs *float64 `json:"gyro_min_dt_secs,omitempty"`
	GyroMaxDtSecs *float64 `json:"gyro_max_dt_secs,omitempty"`

	// MagMaxStalenessSecs bounds how old a magnetometer sample may be,
	// relative to the propagation step consuming it, before it is ignored.
	MagMaxStalenessSecs *float64 `json:"mag_max_staleness_secs,omitempty"`

	// NumMagForInitialization is the number of good mag samples required
	// before the mag-yaw Gauss-Newton alignment first runs.
	NumMagForInitialization *int `json:"num_mag_for_initialization,omitempty"`

	// MagGaussNewtonMaxIterations, MagGaussNewtonConvergenceRad and
	// MagGaussNewtonMinHessian bound the Gauss-Newton yaw solve.
	MagGaussNewtonMaxIterations  *int     `json:"mag_gauss_newton_max_iterations,omitempty"`
	MagGaussNewtonConvergenceRad *float64 `json:"mag_gauss_newton_convergence_rad,omitempty"`
	MagGaussNewtonMinHessian     *float64 `json:"mag_gauss_newton_min_hessian,omitempty"`

	// BadMagThresholdDegrees/BadMagConsecutiveSamples define when
	// persistent mag disagreement triggers the bad-mag callback.
	BadMagThresholdDegrees  *float64 `json:"bad_mag_threshold_degrees,omitempty"`
	BadMagConsecutiveSamples *int    `json:"bad_mag_consecutive_samples,omitempty"`

	// MagLowPassCutoffHz smooths raw magnetometer samples before use.
	MagLowPassCutoffHz *float64 `json:"mag_low_pass_cutoff_hz,omitempty"`

	// Integrator selects the quaternion-propagation scheme: "euler", "rk2"
	// or "rk4".
	Integrator *string `json:"integrator,omitempty"`

	// StationaryInitPeriodSecs is StationaryDetector's own init period,
	// independent of the orientation filter's.
	StationaryInitPeriodSecs *float64 `json:"stationary_init_period_secs,omitempty"`
}

func ptrFloat64(v float64) *float64 { return &v }
func ptrInt(v int) *int             { return &v }
func ptrString(v string) *string    { return &v }

// EmptyFilterConfig returns a FilterConfig with every field nil. Use
// LoadFilterConfigJSON to load overrides from a file.
func EmptyFilterConfig() *FilterConfig {
	return &FilterConfig{}
}

// LoadFilterConfigJSON loads a FilterConfig from a JSON file. The file must
// have a .json extension and be under 1MB. Fields omitted from the JSON
// retain their production defaults via the Get* accessors.
func LoadFilterConfigJSON(path string) (*FilterConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyFilterConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// MustLoadDefaultFilterConfig loads the canonical defaults from
// DefaultConfigPath, searching the current directory and a few parent
// directories. Panics if the file cannot be found; intended for test setup.
func MustLoadDefaultFilterConfig() *FilterConfig {
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,
		"../../../" + DefaultConfigPath,
		"../../../../" + DefaultConfigPath,
	}
	for _, path := range candidates {
		if cfg, err := LoadFilterConfigJSON(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that any set fields hold sane values.
func (c *FilterConfig) Validate() error {
	if c.Integrator != nil {
		switch *c.Integrator {
		case "euler", "rk2", "rk4":
		default:
			return fmt.Errorf("integrator must be one of euler|rk2|rk4, got %q", *c.Integrator)
		}
	}
	if c.GyroMinDtSecs != nil && c.GyroMaxDtSecs != nil && *c.GyroMinDtSecs >= *c.GyroMaxDtSecs {
		return fmt.Errorf("gyro_min_dt_secs (%f) must be less than gyro_max_dt_secs (%f)", *c.GyroMinDtSecs, *c.GyroMaxDtSecs)
	}
	if c.NumMagForInitialization != nil && *c.NumMagForInitialization < 1 {
		return fmt.Errorf("num_mag_for_initialization must be positive, got %d", *c.NumMagForInitialization)
	}
	return nil
}

func (c *FilterConfig) GetAccelGainNormal() float64 { return orDefault(c.AccelGainNormal, 0.3) }
func (c *FilterConfig) GetAccelGainInit() float64    { return orDefault(c.AccelGainInit, 0.1) }
func (c *FilterConfig) GetMagGainNormal() float64    { return orDefault(c.MagGainNormal, 0.1) }
func (c *FilterConfig) GetMagGainInit() float64      { return orDefault(c.MagGainInit, 0.04) }
func (c *FilterConfig) GetInitPeriodSecs() float64   { return orDefault(c.InitPeriodSecs, 7.0) }

func (c *FilterConfig) GetAccelAngleGuardDegrees() float64 {
	return orDefault(c.AccelAngleGuardDegrees, 44.0)
}

func (c *FilterConfig) GetGyroMinDtSecs() float64 { return orDefault(c.GyroMinDtSecs, 0.001) }
func (c *FilterConfig) GetGyroMaxDtSecs() float64 { return orDefault(c.GyroMaxDtSecs, 1.0) }

func (c *FilterConfig) GetMagMaxStalenessSecs() float64 {
	return orDefault(c.MagMaxStalenessSecs, 0.003)
}

func (c *FilterConfig) GetNumMagForInitialization() int {
	return orDefaultInt(c.NumMagForInitialization, 25)
}

func (c *FilterConfig) GetMagGaussNewtonMaxIterations() int {
	return orDefaultInt(c.MagGaussNewtonMaxIterations, 25)
}

func (c *FilterConfig) GetMagGaussNewtonConvergenceRad() float64 {
	return orDefault(c.MagGaussNewtonConvergenceRad, 1e-5)
}

func (c *FilterConfig) GetMagGaussNewtonMinHessian() float64 {
	return orDefault(c.MagGaussNewtonMinHessian, 1e-6)
}

func (c *FilterConfig) GetBadMagThresholdDegrees() float64 {
	return orDefault(c.BadMagThresholdDegrees, 5.0)
}

func (c *FilterConfig) GetBadMagConsecutiveSamples() int {
	return orDefaultInt(c.BadMagConsecutiveSamples, 10)
}

func (c *FilterConfig) GetMagLowPassCutoffHz() float64 {
	return orDefault(c.MagLowPassCutoffHz, 2.0)
}

func (c *FilterConfig) GetIntegrator() string {
	if c.Integrator == nil {
		return "rk4"
	}
	return *c.Integrator
}

func (c *FilterConfig) GetStationaryInitPeriodSecs() float64 {
	return orDefault(c.StationaryInitPeriodSecs, 7.0)
}

func orDefault(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}

func orDefaultInt(v *int, def int) int {
	if v == nil {
		return def
	}
	return *v
}
