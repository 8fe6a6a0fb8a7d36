package config

import (
	"errors"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is wrapped by every configuration validation failure.
var ErrInvalidConfig = errors.New("invalid detection configuration")

// Config holds the detection parameters for a single engine invocation.
// It is passed by value everywhere; there is no mutable global state.
type Config struct {
	// ValueRoundDecimals is the number of decimal places setpoint values
	// are rounded to before any pattern search.
	ValueRoundDecimals int `yaml:"value_round_decimals"`

	// DurationGridMinutes is the grid emitted component durations snap to.
	DurationGridMinutes int `yaml:"duration_grid_minutes"`

	// MinDurationMinutes is the floor for emitted component durations.
	// Detected runs shorter than this are noise, not standalone components.
	MinDurationMinutes int `yaml:"min_duration_minutes"`

	// ConstantVarianceTol is the max deviation from a constant run's first
	// value. 0 means exact equality after rounding.
	ConstantVarianceTol float64 `yaml:"constant_variance_tol"`

	// RampSlopeTol bounds how far any member slope may sit from a ramp
	// run's average slope, in value units per sample step.
	RampSlopeTol float64 `yaml:"ramp_slope_tol"`

	// PIDMinRun is the minimum number of short constant runs that form a
	// PID hunting signature.
	PIDMinRun int `yaml:"pid_min_run"`

	// WindowEndMinutes bounds the profile's valid time window. 0 means
	// unbounded; samples and emitted durations past it are cut.
	WindowEndMinutes float64 `yaml:"window_end_minutes,omitempty"`
}

// Default returns the process-wide default configuration.
func Default() Config {
	return Config{
		ValueRoundDecimals:  1,
		DurationGridMinutes: 5,
		MinDurationMinutes:  10,
		ConstantVarianceTol: 0,
		RampSlopeTol:        1,
		PIDMinRun:           3,
	}
}

// Load reads a YAML config file. Unset fields fall back to defaults;
// ConstantVarianceTol cannot be distinguished from an explicit zero, which
// is fine because zero is its default.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	def := Default()
	if cfg.ValueRoundDecimals == 0 {
		cfg.ValueRoundDecimals = def.ValueRoundDecimals
	}
	if cfg.DurationGridMinutes == 0 {
		cfg.DurationGridMinutes = def.DurationGridMinutes
	}
	if cfg.MinDurationMinutes == 0 {
		cfg.MinDurationMinutes = def.MinDurationMinutes
	}
	if cfg.RampSlopeTol == 0 {
		cfg.RampSlopeTol = def.RampSlopeTol
	}
	if cfg.PIDMinRun == 0 {
		cfg.PIDMinRun = def.PIDMinRun
	}
	return cfg, nil
}

// Validate fails fast on non-positive grid/threshold values, before any
// scanning happens.
func (c Config) Validate() error {
	if c.DurationGridMinutes <= 0 {
		return fmt.Errorf("%w: duration_grid_minutes must be positive, got %d", ErrInvalidConfig, c.DurationGridMinutes)
	}
	if c.MinDurationMinutes <= 0 {
		return fmt.Errorf("%w: min_duration_minutes must be positive, got %d", ErrInvalidConfig, c.MinDurationMinutes)
	}
	if c.RampSlopeTol <= 0 {
		return fmt.Errorf("%w: ramp_slope_tol must be positive, got %g", ErrInvalidConfig, c.RampSlopeTol)
	}
	if c.PIDMinRun <= 0 {
		return fmt.Errorf("%w: pid_min_run must be positive, got %d", ErrInvalidConfig, c.PIDMinRun)
	}
	if c.ValueRoundDecimals < 0 {
		return fmt.Errorf("%w: value_round_decimals must be non-negative, got %d", ErrInvalidConfig, c.ValueRoundDecimals)
	}
	if c.ConstantVarianceTol < 0 {
		return fmt.Errorf("%w: constant_variance_tol must be non-negative, got %g", ErrInvalidConfig, c.ConstantVarianceTol)
	}
	if c.WindowEndMinutes < 0 {
		return fmt.Errorf("%w: window_end_minutes must be non-negative, got %g", ErrInvalidConfig, c.WindowEndMinutes)
	}
	return nil
}

// RoundValue rounds v to ValueRoundDecimals decimal places.
func (c Config) RoundValue(v float64) float64 {
	p := math.Pow10(c.ValueRoundDecimals)
	return math.Round(v*p) / p
}

// RoundUnit is the smallest distinguishable value difference after
// rounding (e.g. 0.1 for one decimal place).
func (c Config) RoundUnit() float64 {
	return 1 / math.Pow10(c.ValueRoundDecimals)
}
