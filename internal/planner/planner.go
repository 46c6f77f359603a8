// Package planner implements C4: mapping a RewrittenTimeline's
// provenance back to source time intervals and emitting a CutPlan an
// editor can execute directly. Grounded on the reference backend's
// ingestion normalization helpers (segment dedup-by-key, whitespace
// normalization) reused here for the text-similarity fallback matcher.
package planner

import (
	"fmt"
	"sort"
	"strings"

	"github.com/reelforge/viralcut/internal/domain"
	"github.com/reelforge/viralcut/internal/errs"
)

const maxAlignmentErrorMS = 500 // 0.5s, spec.md 4.4 quality gate
const similarityAcceptThreshold = 0.2

// Plan builds a CutPlan from tl (for original segment timing lookup)
// and rt (the rewritten, provenance-carrying timeline).
func Plan(tl domain.Timeline, rt domain.RewrittenTimeline) (domain.CutPlan, error) {
	byIndex := make(map[int]domain.Segment, len(tl.Segments))
	for _, s := range tl.Segments {
		byIndex[s.Index] = s
	}

	cuts, err := buildCuts(rt, byIndex)
	if err != nil {
		return domain.CutPlan{}, err
	}

	if len(cuts) == 0 {
		return domain.CutPlan{Cuts: nil, TotalDurationMS: 0}, nil
	}

	if alignmentErr := meanAlignmentErrorMS(cuts, byIndex); alignmentErr > maxAlignmentErrorMS {
		cuts, err = reflowWithSimilarityMatcher(rt, tl)
		if err != nil {
			return domain.CutPlan{}, errs.Internal(errs.CodePlannerError, "",
				fmt.Errorf("alignment error %.1fms exceeds 500ms and similarity fallback failed: %w", alignmentErr, err))
		}
	}

	layOutputIntervals(cuts)

	var mediaDurationMS int64
	if n := len(tl.Segments); n > 0 {
		mediaDurationMS = tl.Segments[n-1].EndMS
	}
	if err := checkSourceBounds(cuts, mediaDurationMS); err != nil {
		return domain.CutPlan{}, err
	}

	total := int64(0)
	if n := len(cuts); n > 0 {
		total = cuts[n-1].OutEndMS
	}
	return domain.CutPlan{Cuts: cuts, TotalDurationMS: total}, nil
}

// buildCuts emits one Cut per maximal contiguous run of each rewritten
// segment's source set, and re-attaches pure-insertion segments (empty
// SourceIndexes — e.g. a hook-only prepend) to the neighboring cut's
// text without consuming source media (spec.md 4.4).
func buildCuts(rt domain.RewrittenTimeline, byIndex map[int]domain.Segment) ([]domain.Cut, error) {
	var cuts []domain.Cut
	var pendingPrefix []string

	for _, rs := range rt.Segments {
		runs := contiguousRuns(rs.SourceIndexes)
		if len(runs) == 0 {
			// Pure insertion: attach to the previous cut if one exists,
			// else hold it to prepend onto the next cut produced.
			if len(cuts) > 0 {
				cuts[len(cuts)-1].Text = strings.TrimSpace(cuts[len(cuts)-1].Text + " " + rs.Text)
			} else {
				pendingPrefix = append(pendingPrefix, rs.Text)
			}
			continue
		}

		for ri, run := range runs {
			startMS, endMS, ok := unionHull(run, byIndex)
			if !ok {
				return nil, errs.Internal(errs.CodePlannerError, fmt.Sprintf("segment %d", rs.Index),
					fmt.Errorf("provenance references unknown source index"))
			}
			text := rs.Text
			if ri > 0 {
				// Subsequent runs of a split segment carry no duplicate
				// display text — the text rides with the first run.
				text = ""
			}
			if len(pendingPrefix) > 0 {
				text = strings.TrimSpace(strings.Join(pendingPrefix, " ") + " " + text)
				pendingPrefix = nil
			}
			cuts = append(cuts, domain.Cut{
				SrcStartMS:    startMS,
				SrcEndMS:      endMS,
				Text:          text,
				ProvenanceIDs: run,
			})
		}
	}

	if len(pendingPrefix) > 0 && len(cuts) > 0 {
		cuts[len(cuts)-1].Text = strings.TrimSpace(cuts[len(cuts)-1].Text + " " + strings.Join(pendingPrefix, " "))
	}
	return cuts, nil
}

// contiguousRuns groups indices into maximal runs of consecutive
// integers, returned in ascending order of each run's start.
func contiguousRuns(indices []int) [][]int {
	if len(indices) == 0 {
		return nil
	}
	sorted := append([]int(nil), indices...)
	sort.Ints(sorted)
	var runs [][]int
	cur := []int{sorted[0]}
	for i := 1; i < len(sorted); i++ {
		if sorted[i] == sorted[i-1]+1 {
			cur = append(cur, sorted[i])
			continue
		}
		runs = append(runs, cur)
		cur = []int{sorted[i]}
	}
	runs = append(runs, cur)
	return runs
}

func unionHull(run []int, byIndex map[int]domain.Segment) (startMS, endMS int64, ok bool) {
	first := true
	for _, idx := range run {
		seg, found := byIndex[idx]
		if !found {
			return 0, 0, false
		}
		if first {
			startMS, endMS = seg.StartMS, seg.EndMS
			first = false
			continue
		}
		if seg.StartMS < startMS {
			startMS = seg.StartMS
		}
		if seg.EndMS > endMS {
			endMS = seg.EndMS
		}
	}
	return startMS, endMS, !first
}

// meanAlignmentErrorMS measures, for each cut, the distance between its
// source interval start and the original segment start of its first
// provenance id — for cuts built directly from provenance this is 0 by
// construction.
func meanAlignmentErrorMS(cuts []domain.Cut, byIndex map[int]domain.Segment) float64 {
	if len(cuts) == 0 {
		return 0
	}
	var sum float64
	for _, c := range cuts {
		if len(c.ProvenanceIDs) == 0 {
			continue
		}
		seg, ok := byIndex[c.ProvenanceIDs[0]]
		if !ok {
			continue
		}
		d := c.SrcStartMS - seg.StartMS
		if d < 0 {
			d = -d
		}
		sum += float64(d)
	}
	return sum / float64(len(cuts))
}

// layOutputIntervals assigns output intervals by laying source
// intervals end-to-end in emission order, zero gap, zero overlap
// (spec.md 4.4).
func layOutputIntervals(cuts []domain.Cut) {
	var cursor int64
	for i := range cuts {
		dur := cuts[i].SrcEndMS - cuts[i].SrcStartMS
		cuts[i].OutStartMS = cursor
		cuts[i].OutEndMS = cursor + dur
		cursor += dur
	}
}

func checkSourceBounds(cuts []domain.Cut, mediaDurationMS int64) error {
	if mediaDurationMS <= 0 {
		return nil
	}
	var sum int64
	for _, c := range cuts {
		if c.SrcStartMS < 0 || c.SrcEndMS > mediaDurationMS {
			return errs.Internal(errs.CodeInvariantViolation, "",
				fmt.Errorf("source interval [%d,%d] exceeds media duration %d", c.SrcStartMS, c.SrcEndMS, mediaDurationMS))
		}
		sum += c.SrcEndMS - c.SrcStartMS
	}
	if sum > mediaDurationMS {
		return errs.Internal(errs.CodeInvariantViolation, "",
			fmt.Errorf("sum of source intervals %d exceeds media duration %d", sum, mediaDurationMS))
	}
	return nil
}

// reflowWithSimilarityMatcher rebuilds cuts using the text-similarity
// fallback matcher when direct provenance yields unacceptable alignment
// error (spec.md 4.4): each rewritten segment is matched to its closest
// unclaimed source segment, weighting character-set overlap 30%,
// word-set overlap 40%, length ratio 20%, and 3-gram substring score
// 10%, accepting matches scoring >= 0.2.
func reflowWithSimilarityMatcher(rt domain.RewrittenTimeline, tl domain.Timeline) ([]domain.Cut, error) {
	claimed := map[int]bool{}
	var cuts []domain.Cut
	for _, rs := range rt.Segments {
		bestIdx := -1
		bestScore := -1.0
		for _, seg := range tl.Segments {
			if claimed[seg.Index] {
				continue
			}
			score := similarity(rs.Text, seg.Text)
			if score > bestScore {
				bestScore = score
				bestIdx = seg.Index
			}
		}
		if bestIdx < 0 || bestScore < similarityAcceptThreshold {
			return nil, fmt.Errorf("no acceptable match for segment %d (best score %.3f)", rs.Index, bestScore)
		}
		claimed[bestIdx] = true
		var seg domain.Segment
		for _, s := range tl.Segments {
			if s.Index == bestIdx {
				seg = s
				break
			}
		}
		cuts = append(cuts, domain.Cut{
			SrcStartMS:    seg.StartMS,
			SrcEndMS:      seg.EndMS,
			Text:          rs.Text,
			ProvenanceIDs: []int{bestIdx},
		})
	}
	return cuts, nil
}

func similarity(a, b string) float64 {
	charScore := charSetOverlap(a, b)
	wordScore := wordSetOverlap(a, b)
	lengthScore := lengthRatio(a, b)
	ngramScore := trigramSubstringScore(a, b)
	return 0.3*charScore + 0.4*wordScore + 0.2*lengthScore + 0.1*ngramScore
}

func charSetOverlap(a, b string) float64 {
	as, bs := runeSet(a), runeSet(b)
	return jaccard(as, bs)
}

func runeSet(s string) map[rune]bool {
	out := map[rune]bool{}
	for _, r := range s {
		out[r] = true
	}
	return out
}

func jaccard[T comparable](a, b map[T]bool) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	inter := 0
	for k := range a {
		if b[k] {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

func wordSetOverlap(a, b string) float64 {
	aw := wordSet(a)
	bw := wordSet(b)
	return jaccard(aw, bw)
}

func wordSet(s string) map[string]bool {
	out := map[string]bool{}
	for _, w := range strings.Fields(strings.ToLower(s)) {
		out[w] = true
	}
	return out
}

func lengthRatio(a, b string) float64 {
	la, lb := len(a), len(b)
	if la == 0 && lb == 0 {
		return 1
	}
	if la == 0 || lb == 0 {
		return 0
	}
	if la > lb {
		la, lb = lb, la
	}
	return float64(la) / float64(lb)
}

func trigramSubstringScore(a, b string) float64 {
	ag := trigrams(a)
	bg := trigrams(b)
	return jaccard(ag, bg)
}

func trigrams(s string) map[string]bool {
	s = strings.ToLower(s)
	out := map[string]bool{}
	r := []rune(s)
	for i := 0; i+3 <= len(r); i++ {
		out[string(r[i:i+3])] = true
	}
	return out
}
