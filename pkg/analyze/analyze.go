// Package analyze derives a minimal typed component profile from a
// time-stamped setpoint series: constant holds, linear ramps, externally
// detected PWM patterns, and PID-controller segments.
//
// The pipeline is Preprocess -> {constant, ramp} detectors -> PID detector
// (over their rejects) -> resolver -> emitter. One call, one complete
// series in, one component list out; no I/O, no caches, no shared state
// across invocations.
package analyze

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/TYPOWERS/ferm-process-version-json-builder/pkg/config"
	"github.com/TYPOWERS/ferm-process-version-json-builder/pkg/profile"
	"github.com/TYPOWERS/ferm-process-version-json-builder/pkg/series"
)

// Analyzer runs the detection pipeline for one configuration. Safe for
// concurrent use: every invocation works on its own candidate lists.
type Analyzer struct {
	cfg     config.Config
	log     *zap.Logger
	presets []Segment
}

type Option func(*Analyzer)

// WithLogger attaches a structured logger for detector diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(a *Analyzer) { a.log = l }
}

// WithPresetSegments injects externally detected segments (PWM patterns
// from the upstream collaborator). They take top precedence in the
// resolver and their parameters pass through unchanged.
func WithPresetSegments(segs []Segment) Option {
	return func(a *Analyzer) { a.presets = segs }
}

func New(cfg config.Config, opts ...Option) *Analyzer {
	a := &Analyzer{cfg: cfg, log: zap.NewNop()}
	for _, o := range opts {
		o(a)
	}
	return a
}

// BuildProfile is the package-level convenience form of
// Analyzer.BuildProfile.
func BuildProfile(cleaned series.Series, cfg config.Config) ([]profile.Component, error) {
	return New(cfg).BuildProfile(cleaned)
}

// BuildProfile classifies a cleaned series into an ordered component list.
// It either fully succeeds or fails atomically; no partial profiles.
func (a *Analyzer) BuildProfile(cleaned series.Series) ([]profile.Component, error) {
	if err := a.cfg.Validate(); err != nil {
		return nil, err
	}
	if len(cleaned) < 2 {
		return nil, fmt.Errorf("%w: got %d cleaned samples", ErrEmptySeries, len(cleaned))
	}
	if err := cleaned.Validate(); err != nil {
		return nil, err
	}

	// Constant and ramp scans are independent read-only passes over the
	// immutable series: fan out, join, then let the PID detector consume
	// the constant rejects.
	var (
		wg          sync.WaitGroup
		consts      []Segment
		rejects     []constantRun
		ramps       []Segment
		oscillating int
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		consts, rejects = detectConstants(cleaned, a.cfg)
	}()
	go func() {
		defer wg.Done()
		ramps, oscillating = detectRamps(cleaned, a.cfg)
	}()
	wg.Wait()

	pids := detectPIDs(rejects, a.cfg)

	a.log.Debug("candidate segments",
		zap.Int("constants", len(consts)),
		zap.Int("constant_rejects", len(rejects)),
		zap.Int("ramps", len(ramps)),
		zap.Int("oscillating_ramps", oscillating),
		zap.Int("pids", len(pids)),
		zap.Int("presets", len(a.presets)))

	resolved, err := resolve(cleaned, a.presets, pids, ramps, consts, a.cfg)
	if err != nil {
		return nil, err
	}

	components := emit(resolved, cleaned, a.cfg)
	a.log.Info("profile built",
		zap.Int("samples", len(cleaned)),
		zap.Int("segments", len(resolved)),
		zap.Int("components", len(components)))
	return components, nil
}

// Run preprocesses a raw series and builds its profile in one call.
func (a *Analyzer) Run(raw series.Series) ([]profile.Component, error) {
	cleaned, err := a.Preprocess(raw)
	if err != nil {
		return nil, err
	}
	return a.BuildProfile(cleaned)
}
