package reconstruct

import (
	"sort"
	"strings"

	"github.com/reelforge/viralcut/internal/domain"
)

// working is the mutable staging area the T1-T6 pipeline operates on,
// kept separate from domain.RewrittenTimeline until the pipeline
// completes (Timeline/RewrittenTimeline/CutPlan are immutable once
// emitted by their stage, per spec.md section 3).
type working struct {
	segs  []domain.RewrittenSegment
	lang  string
	style string
}

func newWorking(tl domain.Timeline, lang, style string) *working {
	segs := make([]domain.RewrittenSegment, len(tl.Segments))
	for i, s := range tl.Segments {
		segs[i] = domain.RewrittenSegment{Segment: s, SourceIndexes: []int{s.Index}}
	}
	return &working{segs: segs, lang: lang, style: style}
}

func dominantCategory(dominant string) string {
	switch dominant {
	case "positive":
		return "positive"
	case "negative", "conflict":
		return "negative"
	case "intense":
		return "intense"
	default:
		return "neutral"
	}
}

// t1HookPrepend chooses a category from the dominant emotion, picks a
// matching-intensity phrase, and prepends it to the first retained
// segment — unless that would duplicate an existing opener of the same
// category (spec.md 4.3 tie-break), in which case T1 is skipped.
func t1HookPrepend(w *working, f Features) {
	if len(w.segs) == 0 {
		return
	}
	category := dominantCategory(f.Dominant)
	phrase := pick(hookPhrases, w.lang, category, 0)
	if phrase == "" {
		return
	}
	first := &w.segs[0]
	if strings.HasPrefix(strings.TrimSpace(first.Text), strings.TrimSpace(phrase)) {
		return // would duplicate an existing opener of the same category
	}
	first.Text = phrase + " " + first.Text
	first.Transform = domain.TransformHook
}

// intensityOf returns a rough 0..1 intensity for segment i, used by T2
// to decide whether amplification is warranted.
func intensityOf(f Features, i int) float64 {
	if i < 0 || i >= len(f.PerSegment) {
		return 0
	}
	a := f.PerSegment[i]
	v := a.Intense + a.Conflict
	if v > 1 {
		v = 1
	}
	return v
}

// clauseBoundaryInsert splices phrase in at the first clause boundary
// (comma) if one exists, else appends it — "transformations only
// prepend, append, or splice at clause boundaries" (spec.md 4.3).
func clauseBoundaryInsert(text, phrase string) string {
	if idx := strings.Index(text, ","); idx >= 0 && idx < len(text)-1 {
		return text[:idx+1] + " " + phrase + "," + text[idx+1:]
	}
	return strings.TrimRight(text, ".!?") + ", " + phrase
}

// t2MultiLayerAmplification inserts one amplifier per sufficiently
// intense retained segment, picking {high, medium, contextual} by
// intensity band.
func t2MultiLayerAmplification(w *working, f Features) {
	const threshold = 0.2
	for i := range w.segs {
		src := w.segs[i].SourceIndexes
		if len(src) == 0 {
			continue // pure insertion, e.g. a hook-only segment: nothing to amplify
		}
		origIdx := src[0] - 1 // Segment.Index is 1-based
		intensity := intensityOf(f, origIdx)
		if intensity < threshold {
			continue
		}
		category := "contextual"
		switch {
		case intensity >= 0.7:
			category = "high"
		case intensity >= 0.4:
			category = "medium"
		}
		phrase := pick(amplifierPhrases, w.lang, category, i)
		if phrase == "" {
			continue
		}
		w.segs[i].Text = clauseBoundaryInsert(w.segs[i].Text, phrase)
		if w.segs[i].Transform == domain.TransformNone {
			w.segs[i].Transform = domain.TransformAmplifier
		}
	}
}

// t3PrecisionSuspenseInsertion inserts suspense connectors at computed
// fractional positions (1/3, 2/3 by default), scaled by turning-point
// density. Skipped when input has <3 segments.
func t3PrecisionSuspenseInsertion(w *working, f Features) {
	n := len(w.segs)
	if n < 3 {
		return
	}
	density := float64(len(f.TurningPoints)) / float64(n)
	positions := []float64{1.0 / 3.0, 2.0 / 3.0}
	for _, base := range positions {
		frac := base * (1 + density)
		if frac >= 1 {
			frac = 0.9
		}
		idx := int(frac * float64(n))
		if idx <= 0 || idx >= n {
			continue
		}
		tension := "medium"
		switch {
		case density >= 0.5:
			tension = "high"
		case density < 0.15:
			tension = "low"
		}
		phrase := pick(suspenseConnectors, w.lang, tension, idx)
		if phrase == "" {
			continue
		}
		w.segs[idx].Text = strings.TrimRight(w.segs[idx].Text, ".!?") + " " + phrase
		if w.segs[idx].Transform == domain.TransformNone {
			w.segs[idx].Transform = domain.TransformSuspense
		}
	}
}

// t4DynamicClimaxIntensifier appends one intensifier to the
// strongest-arc segment (highest turning-point score; ties prefer the
// earlier segment).
func t4DynamicClimaxIntensifier(w *working, f Features) {
	if len(f.TurningPoints) == 0 || len(w.segs) == 0 {
		return
	}
	best := f.TurningPoints[0]
	for _, tp := range f.TurningPoints[1:] {
		if tp.Score > best.Score {
			best = tp
		}
		// equal score: keep the earlier one already held in best since
		// TurningPoints is produced in segment order.
	}
	pos := findSegmentBySource(w, best.SegmentIndex)
	if pos < 0 {
		return
	}
	category := "dramatic"
	switch {
	case f.Dominant == "positive" || f.Dominant == "resolution":
		category = "emotional"
	case best.Density > 0.4:
		category = "suspenseful"
	}
	phrase := pick(climaxIntensifiers, w.lang, category, pos)
	if phrase == "" {
		return
	}
	w.segs[pos].Text = strings.TrimRight(w.segs[pos].Text, ".!?") + phrase
	w.segs[pos].Transform = domain.TransformClimax
}

func findSegmentBySource(w *working, origIndex int) int {
	for i, s := range w.segs {
		for _, si := range s.SourceIndexes {
			if si == origIndex {
				return i
			}
		}
	}
	return -1
}

// engagementScore is the weighted sum named in spec.md 4.3, resolved
// per the Open Question to the 0.4/0.3/0.2/0.1 weighting spec.md
// specifies as authoritative: emotional intensity, turning-point count,
// arc strength, relational complexity.
func engagementScore(f Features) float64 {
	intensity := f.DominantScore
	tpCount := clamp01(float64(len(f.TurningPoints)) / 5.0)
	arc := f.ArcCompleteness
	relational := clamp01(float64(len(f.Relations)) / 5.0)
	return 0.4*intensity + 0.3*tpCount + 0.2*arc + 0.1*relational
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// t5EngagementTriggerAppend appends a viewer-facing trigger to the last
// retained segment when engagement potential exceeds 0.6.
func t5EngagementTriggerAppend(w *working, f Features) {
	if len(w.segs) == 0 {
		return
	}
	if engagementScore(f) <= 0.6 {
		return
	}
	last := &w.segs[len(w.segs)-1]
	phrase := pick(engagementTriggers, w.lang, "default", len(w.segs))
	if phrase == "" {
		return
	}
	last.Text = strings.TrimRight(last.Text, ".!?") + ". " + phrase
	if last.Transform == domain.TransformNone {
		last.Transform = domain.TransformTrigger
	}
}

// t6TimelineReallocation compresses low-density regions while holding
// the top-K most important segments verbatim, targeting an output/input
// duration ratio in [0.1, 0.8] (preferred band [0.2, 0.6]). Skipped
// when input has <3 segments.
func t6TimelineReallocation(w *working, f Features, inputDurationMS int64) {
	n := len(w.segs)
	if n < 3 || inputDurationMS <= 0 {
		return
	}

	type scored struct {
		idx   int
		score float64
	}
	importance := make([]scored, n)
	for i := range w.segs {
		src := w.segs[i].SourceIndexes
		imp := 0.0
		if len(src) > 0 {
			imp = intensityOf(f, src[0]-1)
		}
		if w.segs[i].Transform != domain.TransformNone {
			imp += 0.5 // transformed segments already carry viral payload
		}
		if isTurningPoint(f, i) {
			imp += 0.5
		}
		importance[i] = scored{idx: i, score: imp}
	}
	ranked := append([]scored(nil), importance...)
	sort.SliceStable(ranked, func(a, b int) bool { return ranked[a].score > ranked[b].score })

	const preferredLow, preferredHigh = 0.2, 0.6
	const minRatio, maxRatio = 0.1, 0.8

	keep := map[int]bool{}
	var keptDurationMS int64
	targetMS := int64(float64(inputDurationMS) * preferredHigh)
	for _, s := range ranked {
		dur := w.segs[s.idx].EndMS - w.segs[s.idx].StartMS
		if keptDurationMS+dur > targetMS && len(keep) > 0 {
			continue
		}
		keep[s.idx] = true
		keptDurationMS += dur
	}
	// Guarantee the preferred-low floor: keep adding by importance order
	// until at least the low band is reached or nothing is left to add.
	for _, s := range ranked {
		if float64(keptDurationMS) >= float64(inputDurationMS)*preferredLow {
			break
		}
		if keep[s.idx] {
			continue
		}
		keep[s.idx] = true
		keptDurationMS += w.segs[s.idx].EndMS - w.segs[s.idx].StartMS
	}

	ratio := float64(keptDurationMS) / float64(inputDurationMS)
	if ratio < minRatio || ratio > maxRatio {
		// Leave the working set untouched; Reconstruct attaches a
		// quality warning when the final ratio is outside the band.
		return
	}

	out := make([]domain.RewrittenSegment, 0, len(keep))
	for i, s := range w.segs {
		if keep[i] {
			out = append(out, s)
		}
	}
	if len(out) > 0 {
		w.segs = out
	}
}

func isTurningPoint(f Features, workingIdx int) bool {
	for _, tp := range f.TurningPoints {
		if tp.SegmentIndex == workingIdx+1 {
			return true
		}
	}
	return false
}
