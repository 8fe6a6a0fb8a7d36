package analyze

import (
	"math"

	"github.com/TYPOWERS/ferm-process-version-json-builder/pkg/config"
	"github.com/TYPOWERS/ferm-process-version-json-builder/pkg/profile"
)

// detectPIDs looks for a controller hunting around a setpoint: a sequence
// of small constant steps of roughly similar magnitude whose direction
// flips. It consumes the constant detector's sub-minimum rejects (it never
// rescans raw samples) and groups index-adjacent rejects while every
// pairwise value delta stays within RampSlopeTol of the group's average
// delta. A group qualifies when it spans at least PIDMinRun runs and its
// deltas change sign at least once; monotone staircases are the ramp
// detector's territory.
func detectPIDs(rejects []constantRun, cfg config.Config) []Segment {
	var out []Segment

	var group []constantRun
	var deltas []float64

	flush := func() {
		if len(group) >= cfg.PIDMinRun && deltaSignChanges(deltas) >= 1 {
			out = append(out, pidSegment(group))
		}
		group = group[:0]
		deltas = deltas[:0]
	}

	for _, r := range rejects {
		if len(group) == 0 {
			group = append(group, r)
			continue
		}
		prev := group[len(group)-1]
		d := r.value - prev.value
		if r.start != prev.end+1 || !deltasWithinTol(append(append([]float64{}, deltas...), d), cfg.RampSlopeTol) {
			flush()
			group = append(group, r)
			continue
		}
		group = append(group, r)
		deltas = append(deltas, d)
	}
	flush()
	return out
}

func pidSegment(group []constantRun) Segment {
	sum := 0.0
	minV, maxV := group[0].value, group[0].value
	for _, r := range group {
		sum += r.value
		if r.value < minV {
			minV = r.value
		}
		if r.value > maxV {
			maxV = r.value
		}
	}
	return Segment{
		Kind:       profile.KindPID,
		Start:      group[0].start,
		End:        group[len(group)-1].end,
		Setpoint:   sum / float64(len(group)),
		MinAllowed: minV,
		MaxAllowed: maxV,
	}
}

// deltasWithinTol reports whether every delta sits within tol of the mean.
func deltasWithinTol(deltas []float64, tol float64) bool {
	if len(deltas) == 0 {
		return true
	}
	sum := 0.0
	for _, d := range deltas {
		sum += d
	}
	avg := sum / float64(len(deltas))
	for _, d := range deltas {
		if math.Abs(d-avg) > tol+1e-12 {
			return false
		}
	}
	return true
}

func deltaSignChanges(deltas []float64) int {
	changes := 0
	prev := 0.0
	for _, d := range deltas {
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
