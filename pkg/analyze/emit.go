package analyze

import (
	"math"

	"github.com/TYPOWERS/ferm-process-version-json-builder/pkg/config"
	"github.com/TYPOWERS/ferm-process-version-json-builder/pkg/profile"
	"github.com/TYPOWERS/ferm-process-version-json-builder/pkg/series"
)

// emit converts resolved segments into profile components with quantized
// durations and rounded values. The sum of emitted durations may drift
// from the raw series span by up to one grid step per component; that
// drift is accepted, not corrected.
func emit(segs []Segment, s series.Series, cfg config.Config) []profile.Component {
	out := make([]profile.Component, 0, len(segs))
	for _, seg := range segs {
		raw := s[seg.End].T - s[seg.Start].T
		dur := quantizeUp(raw, cfg)
		switch seg.Kind {
		case profile.KindConstant:
			out = append(out, profile.NewConstant(dur, cfg.RoundValue(seg.Value)))
		case profile.KindRamp:
			out = append(out, profile.NewRamp(dur, cfg.RoundValue(seg.StartValue), cfg.RoundValue(seg.EndValue)))
		case profile.KindPID:
			out = append(out, profile.NewPID(dur,
				cfg.RoundValue(seg.Setpoint), cfg.RoundValue(seg.MinAllowed), cfg.RoundValue(seg.MaxAllowed)))
		case profile.KindPWM:
			// Detected upstream; parameters pass through unchanged.
			out = append(out, profile.NewPWM(dur, seg.HighValue, seg.LowValue, seg.PulsePercent))
		}
	}
	if cfg.WindowEndMinutes > 0 {
		out = truncateToWindow(out, cfg)
	}
	return out
}

// quantizeUp rounds a duration up to the next grid multiple, floored at
// the minimum component duration.
func quantizeUp(rawMinutes float64, cfg config.Config) int {
	grid := cfg.DurationGridMinutes
	steps := int(math.Ceil(rawMinutes/float64(grid) - 1e-9))
	dur := steps * grid
	if dur < cfg.MinDurationMinutes {
		dur = int(math.Ceil(float64(cfg.MinDurationMinutes)/float64(grid)-1e-9)) * grid
	}
	return dur
}

// truncateToWindow cuts the component list at the profile's end-of-run
// bound: components starting past it are dropped and the overflowing one
// is shortened, interpolating a ramp's end value pro rata before the
// duration snaps back to the grid.
func truncateToWindow(comps []profile.Component, cfg config.Config) []profile.Component {
	window := cfg.WindowEndMinutes
	out := make([]profile.Component, 0, len(comps))
	cum := 0.0
	for _, c := range comps {
		dur := float64(c.DurationMinutes)
		if cum >= window {
			break
		}
		if cum+dur > window {
			remaining := window - cum
			if c.Kind == profile.KindRamp && dur > 0 {
				progress := remaining / dur
				c.Ramp = &profile.RampParams{
					StartValue: c.Ramp.StartValue,
					EndValue:   cfg.RoundValue(c.Ramp.StartValue + (c.Ramp.EndValue-c.Ramp.StartValue)*progress),
				}
			}
			grid := float64(cfg.DurationGridMinutes)
			dur = math.Round(remaining/grid) * grid
			if dur < float64(cfg.MinDurationMinutes) {
				dur = float64(quantizeUp(dur, cfg))
			}
			c.DurationMinutes = int(dur)
			out = append(out, c)
			break
		}
		out = append(out, c)
		cum += dur
	}
	return out
}
