package scenes

import (
	"slices"
	"time"
)

// Range is a half-open [Start, End) span of the source timeline
type Range struct {
	Start time.Duration
	End   time.Duration
}

// BuildRanges turns scene-cut timestamps into ordered ranges covering
// [0, total). Cuts outside the video are ignored and ranges shorter than
// minLen are folded into a neighbour.
func BuildRanges(cuts []time.Duration, total, minLen time.Duration) []Range {
	if total <= 0 {
		return nil
	}

	points := make([]time.Duration, 0, len(cuts))
	for _, c := range cuts {
		if c > 0 && c < total {
			points = append(points, c)
		}
	}
	slices.Sort(points)
	points = slices.Compact(points)

	var ranges []Range
	start := time.Duration(0)
	for _, p := range points {
		ranges = append(ranges, Range{Start: start, End: p})
		start = p
	}
	ranges = append(ranges, Range{Start: start, End: total})

	if minLen <= 0 {
		return ranges
	}

	merged := make([]Range, 0, len(ranges))
	for _, r := range ranges {
		if len(merged) > 0 && r.End-r.Start < minLen {
			merged[len(merged)-1].End = r.End
			continue
		}
		if len(merged) > 0 && merged[len(merged)-1].End-merged[len(merged)-1].Start < minLen {
			// a short leading range absorbs its successor
			merged[len(merged)-1].End = r.End
			continue
		}
		merged = append(merged, r)
	}
	return merged
}
