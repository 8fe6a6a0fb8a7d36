package analyze

import (
	"math"

	"github.com/TYPOWERS/ferm-process-version-json-builder/pkg/config"
	"github.com/TYPOWERS/ferm-process-version-json-builder/pkg/profile"
	"github.com/TYPOWERS/ferm-process-version-json-builder/pkg/series"
)

// detectConstants scans left to right growing runs of samples whose value
// stays within ConstantVarianceTol of the run's first value. Runs spanning
// at least MinDurationMinutes become candidates; shorter runs are returned
// as rejects for the PID detector rather than emitted as noise constants.
func detectConstants(s series.Series, cfg config.Config) (cands []Segment, rejects []constantRun) {
	tol := cfg.ConstantVarianceTol
	i := 0
	for i < len(s) {
		j := i + 1
		for j < len(s) && math.Abs(s[j].V-s[i].V) <= tol+1e-12 {
			j++
		}
		run := constantRun{start: i, end: j - 1, value: s[i].V}
		if s[run.end].T-s[run.start].T >= float64(cfg.MinDurationMinutes) {
			cands = append(cands, Segment{
				Kind:  profile.KindConstant,
				Start: run.start,
				End:   run.end,
				Value: run.value,
			})
		} else {
			rejects = append(rejects, run)
		}
		i = j
	}
	return mergeEqualConstants(cands, tol), rejects
}

// mergeEqualConstants folds contiguous candidates with equal value into
// one. Local optimization only; cross-detector consolidation belongs to
// the resolver.
func mergeEqualConstants(cands []Segment, tol float64) []Segment {
	if len(cands) < 2 {
		return cands
	}
	out := cands[:1]
	for _, c := range cands[1:] {
		last := &out[len(out)-1]
		if c.Start == last.End+1 && math.Abs(c.Value-last.Value) <= tol+1e-12 {
			last.End = c.End
			continue
		}
		out = append(out, c)
	}
	return out
}
