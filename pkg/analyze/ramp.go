package analyze

import (
	"github.com/TYPOWERS/ferm-process-version-json-builder/pkg/config"
	"github.com/TYPOWERS/ferm-process-version-json-builder/pkg/profile"
	"github.com/TYPOWERS/ferm-process-version-json-builder/pkg/series"
)

// detectRamps grows runs over the first differences of the cleaned series.
// A slope joins the current run only if the updated average slope stays
// within RampSlopeTol of every member slope; single pass, greedy, no
// backtracking once a run closes. Params are the run's raw endpoint values,
// not a least-squares fit; switching to a regression would alter output for
// existing profiles.
//
// Runs with zero net value change after rounding are not emitted: a ramp
// that goes nowhere is a constant's claim, and emitting it would let the
// resolver's ramp-over-constant precedence shadow every true constant.
func detectRamps(s series.Series, cfg config.Config) (cands []Segment, oscillating int) {
	if len(s) < 2 {
		return nil, 0
	}
	slopes := make([]float64, len(s)-1)
	for i := range slopes {
		slopes[i] = s[i+1].V - s[i].V
	}

	tol := cfg.RampSlopeTol
	a := 0
	for a < len(slopes) {
		sum := slopes[a]
		minS, maxS := slopes[a], slopes[a]
		n := 1
		b := a
		for b+1 < len(slopes) {
			next := slopes[b+1]
			newAvg := (sum + next) / float64(n+1)
			lo, hi := minS, maxS
			if next < lo {
				lo = next
			}
			if next > hi {
				hi = next
			}
			if newAvg-lo > tol || hi-newAvg > tol {
				break
			}
			sum += next
			minS, maxS = lo, hi
			n++
			b++
		}

		start, end := a, b+1 // sample indices covered by slopes [a, b]
		span := s[end].T - s[start].T
		netChange := s[end].V - s[start].V
		if netChange < 0 {
			netChange = -netChange
		}
		if span >= float64(cfg.MinDurationMinutes) && netChange >= cfg.RoundUnit()-1e-12 {
			cands = append(cands, Segment{
				Kind:       profile.KindRamp,
				Start:      start,
				End:        end,
				StartValue: s[start].V,
				EndValue:   s[end].V,
			})
			if slopeSignChanges(slopes[a:b+1]) >= 2 {
				// Controller hunting disguised as a ramp; the PID
				// detector claims these spans via the constant rejects
				// and wins arbitration.
				oscillating++
			}
		}
		a = b + 1
	}
	return cands, oscillating
}

// slopeSignChanges counts sign flips among the nonzero slopes.
func slopeSignChanges(slopes []float64) int {
	changes := 0
	prev := 0.0
	for _, d := range slopes {
		if d == 0 {
			continue
		}
		if prev != 0 && (d > 0) != (prev > 0) {
			changes++
		}
		prev = d
	}
	return changes
}
