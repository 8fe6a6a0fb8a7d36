package analyze

import (
	"math"
	"sort"

	"github.com/TYPOWERS/ferm-process-version-json-builder/pkg/config"
	"github.com/TYPOWERS/ferm-process-version-json-builder/pkg/profile"
	"github.com/TYPOWERS/ferm-process-version-json-builder/pkg/series"
)

// resolve reduces the competing candidate lists into one ordered,
// non-overlapping segment list that partitions [0, len(s)-1] exactly.
//
// Arbitration, left to right over the index range:
//  1. precedence pwm (external pass-through) > pid > ramp > constant;
//  2. adjacent same-kind segments with parameters equal within tolerance
//     merge into one;
//  3. spans claimed by no detector are absorbed into the preceding
//     segment (a leading gap merges forward into the first);
//  4. segments still below the minimum duration after merging are folded
//     forward into their successor (backward for the last one).
func resolve(s series.Series, presets, pids, ramps, consts []Segment, cfg config.Config) ([]Segment, error) {
	n := len(s)
	lists := [][]Segment{presets, pids, ramps, consts}
	for _, l := range lists {
		sort.Slice(l, func(i, j int) bool { return l[i].Start < l[j].Start })
	}

	out := claim(n, s, lists)
	out = consolidate(out, cfg)
	out = enforceFloor(out, s, cfg)
	refreshRampEndpoints(out, s)

	if err := checkPartition(out, n); err != nil {
		return nil, err
	}
	return out, nil
}

// claim arbitrates ownership per sample index: the winner at each index is
// the highest-precedence candidate covering it, so a pid signature carves
// its span out of the middle of a wider ramp claim. Consecutive indices
// with the same winner form one segment; unclaimed spans are absorbed into
// the preceding segment (a leading gap waits for the first winner).
func claim(n int, s series.Series, lists [][]Segment) []Segment {
	// Flatten in precedence order; lower id wins.
	var flat []Segment
	for _, l := range lists {
		flat = append(flat, l...)
	}

	winner := make([]int, n)
	for i := range winner {
		winner[i] = -1
	}
	for id := len(flat) - 1; id >= 0; id-- {
		for i := flat[id].Start; i <= flat[id].End && i < n; i++ {
			winner[i] = id
		}
	}

	var out []Segment
	pend := -1 // start of an unclaimed leading gap
	i := 0
	for i < n {
		id := winner[i]
		if id < 0 {
			j := i
			for j < n && winner[j] < 0 {
				j++
			}
			if len(out) > 0 {
				out[len(out)-1].End = j - 1
			} else if pend < 0 {
				pend = i
			}
			i = j
			continue
		}
		j := i
		for j+1 < n && winner[j+1] == id {
			j++
		}
		seg := flat[id]
		seg.Start = i
		if pend >= 0 {
			seg.Start = pend
			pend = -1
		}
		seg.End = j
		out = append(out, seg)
		i = j + 1
	}

	if len(out) == 0 && n > 0 {
		// Nothing claimed anything (every run too short for every
		// detector). The engine never returns "unclassified": hold the
		// first value across the whole span.
		out = append(out, Segment{Kind: profile.KindConstant, Start: 0, End: n - 1, Value: s[0].V})
	}
	return out
}

// consolidate merges adjacent same-kind segments whose parameters agree
// within tolerance. This is the pass that minimizes component count.
func consolidate(segs []Segment, cfg config.Config) []Segment {
	if len(segs) < 2 {
		return segs
	}
	out := segs[:1]
	for _, c := range segs[1:] {
		last := &out[len(out)-1]
		if merged, ok := tryMerge(*last, c, cfg); ok {
			*last = merged
			continue
		}
		out = append(out, c)
	}
	return out
}

func tryMerge(a, b Segment, cfg config.Config) (Segment, bool) {
	if a.Kind != b.Kind || b.Start != a.End+1 {
		return Segment{}, false
	}
	switch a.Kind {
	case profile.KindConstant:
		if math.Abs(a.Value-b.Value) <= cfg.ConstantVarianceTol+1e-12 {
			a.End = b.End
			return a, true
		}
	case profile.KindRamp:
		if math.Abs(indexSlope(a)-indexSlope(b)) <= cfg.RampSlopeTol+1e-12 {
			a.End = b.End
			a.EndValue = b.EndValue
			return a, true
		}
	case profile.KindPID:
		if a.MinAllowed <= b.MaxAllowed && b.MinAllowed <= a.MaxAllowed {
			a.End = b.End
			a.Setpoint = (a.Setpoint + b.Setpoint) / 2
			a.MinAllowed = math.Min(a.MinAllowed, b.MinAllowed)
			a.MaxAllowed = math.Max(a.MaxAllowed, b.MaxAllowed)
			return a, true
		}
	case profile.KindPWM:
		if a.HighValue == b.HighValue && a.LowValue == b.LowValue && a.PulsePercent == b.PulsePercent {
			a.End = b.End
			return a, true
		}
	}
	return Segment{}, false
}

// indexSlope is the segment's value change per sample step.
func indexSlope(seg Segment) float64 {
	steps := seg.End - seg.Start
	if steps <= 0 {
		return 0
	}
	return (seg.EndValue - seg.StartValue) / float64(steps)
}

// enforceFloor folds segments still shorter than the minimum duration into
// their successor (the last one into its predecessor), then re-runs
// consolidation in case the fold created mergeable neighbors. A single
// surviving segment is kept regardless; the emitter floors its duration.
func enforceFloor(segs []Segment, s series.Series, cfg config.Config) []Segment {
	minDur := float64(cfg.MinDurationMinutes)
	for len(segs) > 1 {
		short := -1
		for k := range segs {
			if s[segs[k].End].T-s[segs[k].Start].T < minDur {
				short = k
				break
			}
		}
		if short < 0 {
			return segs
		}
		if short < len(segs)-1 {
			segs[short+1].Start = segs[short].Start
			segs = append(segs[:short], segs[short+1:]...)
		} else {
			segs[short-1].End = segs[short].End
			segs = segs[:short]
		}
		segs = consolidate(segs, cfg)
	}
	return segs
}

// refreshRampEndpoints re-reads ramp params from the samples at the final
// segment bounds, so clips, absorptions and merges all agree with the
// endpoint-fit rule.
func refreshRampEndpoints(segs []Segment, s series.Series) {
	for k := range segs {
		if segs[k].Kind == profile.KindRamp {
			segs[k].StartValue = s[segs[k].Start].V
			segs[k].EndValue = s[segs[k].End].V
		}
	}
}

func checkPartition(segs []Segment, n int) error {
	if len(segs) == 0 {
		return &UnresolvedCoverageError{Index: 0, Reason: "no segments resolved"}
	}
	if segs[0].Start != 0 {
		return &UnresolvedCoverageError{Index: 0, Reason: "first segment does not start at index 0"}
	}
	for k := 1; k < len(segs); k++ {
		if segs[k].Start != segs[k-1].End+1 {
			return &UnresolvedCoverageError{Index: segs[k].Start, Reason: "gap or overlap between segments"}
		}
	}
	if last := segs[len(segs)-1].End; last != n-1 {
		return &UnresolvedCoverageError{Index: last, Reason: "final segment does not reach the series end"}
	}
	return nil
}
