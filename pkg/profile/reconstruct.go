package profile

import (
	"github.com/TYPOWERS/ferm-process-version-json-builder/pkg/series"
)

// Reconstruct regenerates a sample series from an emitted profile at a
// fixed sampling step. Feeding the result back through the engine at the
// same grid should reproduce the component list; the profile editor's
// graph view renders exactly this signal.
func Reconstruct(components []Component, stepMinutes float64) series.Series {
	if stepMinutes <= 0 || len(components) == 0 {
		return nil
	}
	var out series.Series
	t := 0.0
	for _, c := range components {
		dur := float64(c.DurationMinutes)
		n := int(dur/stepMinutes + 0.5)
		if n < 1 {
			n = 1
		}
		for i := 0; i < n; i++ {
			off := float64(i) * stepMinutes
			out = append(out, series.Sample{T: t + off, V: valueAt(c, off, dur)})
		}
		t += dur
	}
	// Closing sample so the final component's full span is covered.
	last := components[len(components)-1]
	out = append(out, series.Sample{T: t, V: valueAt(last, float64(last.DurationMinutes), float64(last.DurationMinutes))})
	return out
}

// valueAt evaluates one component's signal at offset minutes into it.
func valueAt(c Component, off, dur float64) float64 {
	switch c.Kind {
	case KindConstant:
		return c.Constant.Value
	case KindRamp:
		if dur <= 0 {
			return c.Ramp.EndValue
		}
		frac := off / dur
		if frac > 1 {
			frac = 1
		}
		return c.Ramp.StartValue + (c.Ramp.EndValue-c.Ramp.StartValue)*frac
	case KindPWM:
		// Square wave over a fixed 20-minute period, high for
		// pulse_percent of it.
		const period = 20.0
		phase := off - float64(int(off/period))*period
		if phase < period*c.PWM.PulsePercent/100 {
			return c.PWM.HighValue
		}
		return c.PWM.LowValue
	case KindPID:
		// Hunting pattern: short dwells cycling min, mid, max, mid.
		// The mid level is chosen so the cycle mean equals the setpoint.
		p := c.PID
		mid := 2*p.Setpoint - (p.MinAllowed+p.MaxAllowed)/2
		if mid < p.MinAllowed {
			mid = p.MinAllowed
		}
		if mid > p.MaxAllowed {
			mid = p.MaxAllowed
		}
		cycle := []float64{p.MinAllowed, mid, p.MaxAllowed, mid}
		const dwell = 3.0
		idx := int(off/dwell) % len(cycle)
		return cycle[idx]
	}
	return 0
}
