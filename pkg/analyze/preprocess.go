package analyze

import (
	"fmt"

	hdrhistogram "github.com/HdrHistogram/hdrhistogram-go"
	"go.uber.org/zap"

	"github.com/TYPOWERS/ferm-process-version-json-builder/pkg/config"
	"github.com/TYPOWERS/ferm-process-version-json-builder/pkg/series"
)

// minResampleStepMinutes floors the resample grid so a pathologically dense
// logger cannot explode the cleaned series.
const minResampleStepMinutes = 0.1

// Preprocess cleans a raw series: drops samples outside the profile's valid
// time window, rounds values, and resamples onto a fixed step grid no
// coarser than the duration grid. Pure transform; the input is never
// mutated.
func Preprocess(s series.Series, cfg config.Config) (series.Series, error) {
	return New(cfg).Preprocess(s)
}

func (a *Analyzer) Preprocess(s series.Series) (series.Series, error) {
	if err := a.cfg.Validate(); err != nil {
		return nil, err
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}

	// Window filter: process time starts at zero; an optional end bound
	// cuts trailing samples.
	filtered := make(series.Series, 0, len(s))
	for _, smp := range s {
		if smp.T < 0 {
			continue
		}
		if a.cfg.WindowEndMinutes > 0 && smp.T > a.cfg.WindowEndMinutes {
			continue
		}
		filtered = append(filtered, smp)
	}
	if len(filtered) < 2 {
		return nil, fmt.Errorf("%w: %d of %d samples inside the time window", ErrEmptySeries, len(filtered), len(s))
	}

	step := a.resampleStep(filtered)

	first, last := filtered[0].T, filtered[len(filtered)-1].T
	steps := int((last-first)/step + 1e-9)
	out := make(series.Series, 0, steps+1)
	for i := 0; i <= steps; i++ {
		t := first + float64(i)*step
		out = append(out, series.Sample{T: t, V: a.cfg.RoundValue(filtered.ValueAt(t))})
	}
	if len(out) < 2 {
		return nil, fmt.Errorf("%w: series span %.3f min shorter than resample step %.3f", ErrEmptySeries, last-first, step)
	}

	a.log.Debug("preprocessed series",
		zap.Int("raw_samples", len(s)),
		zap.Int("clean_samples", len(out)),
		zap.Float64("step_minutes", step))
	return out, nil
}

// resampleStep picks the grid step from the distribution of raw
// inter-sample gaps: the median gap, clamped between a fixed floor and the
// duration grid. Dense loggers keep their resolution, sparse ones are
// stepped at their own cadence.
func (a *Analyzer) resampleStep(s series.Series) float64 {
	hist := hdrhistogram.New(1, 86_400_000, 3) // gaps in ms, up to a day
	for i := 1; i < len(s); i++ {
		gapMs := int64((s[i].T - s[i-1].T) * 60_000)
		if gapMs < 1 {
			gapMs = 1
		}
		if err := hist.RecordValue(gapMs); err != nil {
			continue // beyond trackable range; clamp handles it below
		}
	}
	step := float64(hist.ValueAtQuantile(50)) / 60_000
	grid := float64(a.cfg.DurationGridMinutes)
	if step > grid {
		step = grid
	}
	if step < minResampleStepMinutes {
		step = minResampleStepMinutes
	}
	a.log.Debug("sampling cadence",
		zap.Float64("median_gap_min", float64(hist.ValueAtQuantile(50))/60_000),
		zap.Float64("p99_gap_min", float64(hist.ValueAtQuantile(99))/60_000),
		zap.Float64("max_gap_min", float64(hist.Max())/60_000))
	return step
}
