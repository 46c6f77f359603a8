package reconstruct

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/reelforge/viralcut/internal/backend"
	"github.com/reelforge/viralcut/internal/domain"
)

// Params parameterizes a single Reconstruct call.
type Params struct {
	Style string // viral|formal|... ; passed through to backend.Rewrite prompts
	Lang  string // resolved effective language ("zh"/"en")
}

const maxRepairIterations = 3
const acceptScore = 8.0
const minAcceptableScore = 6.0

// Reconstruct runs P1-P6 then the T1-T6 pipeline with a self-scoring
// optimization loop (spec.md 4.3), returning a RewrittenTimeline. be may
// be nil, in which case P1 uses the lexicon-only path; when non-nil,
// Analyze additionally blends in backend.Analyze's SemanticSignals for
// higher-quality scoring.
func Reconstruct(ctx context.Context, tl domain.Timeline, params Params, be backend.Backend) (domain.RewrittenTimeline, error) {
	f := Analyze(tl)
	if be != nil {
		blendBackendSignals(ctx, tl, &f, be)
	}

	if len(tl.Segments) == 1 {
		return fallbackWrap(tl, params, "single-segment input: fallback wrap applied per spec.md 4.3 edge case"), nil
	}

	w := newWorking(tl, params.Lang, params.Style)
	runPipeline(w, f, tl)

	best := w
	bestScore := scoreCandidate(best, f, len(tl.Segments)).Total()

	for i := 0; i < maxRepairIterations && bestScore < acceptScore; i++ {
		if !repair(best, f) {
			break
		}
		bestScore = scoreCandidate(best, f, len(tl.Segments)).Total()
	}

	if bestScore < minAcceptableScore {
		return fallbackWrap(tl, params, fmt.Sprintf("self-score %.2f below minimum 6.0 after repairs", bestScore)), nil
	}

	rt := domain.RewrittenTimeline{
		Segments: best.segs,
		Language: tl.Language,
		Score:    bestScore,
	}
	if n := len(tl.Segments); n > 0 {
		inputMS := tl.Segments[n-1].EndMS - tl.Segments[0].StartMS
		var outputMS int64
		for _, s := range rt.Segments {
			outputMS += s.EndMS - s.StartMS
		}
		if ratio := float64(outputMS) / float64(inputMS); inputMS > 0 && (ratio < 0.1 || ratio > 0.8) {
			rt.QualityWarn = fmt.Sprintf("output/input duration ratio %.2f outside [0.1, 0.8]", ratio)
		}
	}
	rt.Fingerprint = rewrittenFingerprint(rt)
	return rt, nil
}

// runPipeline applies T1-T6 in their fixed order, honoring the <3
// segment skip for T3/T6 (spec.md 4.3 edge case — each transform
// function enforces its own skip condition internally).
func runPipeline(w *working, f Features, tl domain.Timeline) {
	t1HookPrepend(w, f)
	t2MultiLayerAmplification(w, f)
	t3PrecisionSuspenseInsertion(w, f)
	t4DynamicClimaxIntensifier(w, f)
	t5EngagementTriggerAppend(w, f)

	var inputDurationMS int64
	if n := len(tl.Segments); n > 0 {
		inputDurationMS = tl.Segments[n-1].EndMS - tl.Segments[0].StartMS
	}
	t6TimelineReallocation(w, f, inputDurationMS)
}

// blendBackendSignals overwrites P1's lexicon scores with
// backend.Analyze's SemanticSignals where the backend call succeeds,
// leaving the lexicon score as a fallback on a per-segment failure —
// this pipeline never lets a single backend hiccup abort reconstruction.
func blendBackendSignals(ctx context.Context, tl domain.Timeline, f *Features, be backend.Backend) {
	for i, s := range tl.Segments {
		sig, err := be.Analyze(ctx, s.Text, string(tl.Language))
		if err != nil {
			continue
		}
		f.PerSegment[i] = EmotionAxes{
			Positive:   sig.Positive,
			Negative:   sig.Negative,
			Intense:    sig.Intense,
			Conflict:   sig.Conflict,
			Resolution: sig.Resolution,
		}
	}
	f.Dominant, f.DominantScore = aggregateDominant(f.PerSegment)
	f.EmotionCurve = p5EmotionCurve(f.PerSegment)
}

// fallbackWrap implements FallbackRewritten: a minimal wrap of hook +
// original + trigger, marked with a quality warning, applied whenever
// the rewriter cannot reach the minimum acceptable score or when the
// input is too short to run the full pipeline (spec.md 4.3, P11).
func fallbackWrap(tl domain.Timeline, params Params, reason string) domain.RewrittenTimeline {
	segs := make([]domain.RewrittenSegment, len(tl.Segments))
	for i, s := range tl.Segments {
		segs[i] = domain.RewrittenSegment{Segment: s, SourceIndexes: []int{s.Index}}
	}
	if len(segs) > 0 {
		hook := pick(hookPhrases, params.Lang, "neutral", 0)
		if hook != "" {
			segs[0].Text = hook + " " + segs[0].Text
			segs[0].Transform = domain.TransformHook
		}
		last := len(segs) - 1
		trigger := pick(engagementTriggers, params.Lang, "default", 0)
		if trigger != "" {
			segs[last].Text += ". " + trigger
			if segs[last].Transform == domain.TransformNone {
				segs[last].Transform = domain.TransformTrigger
			}
		}
	}
	rt := domain.RewrittenTimeline{
		Segments:    segs,
		Language:    tl.Language,
		Score:       minAcceptableScore,
		Fallback:    true,
		QualityWarn: reason,
	}
	rt.Fingerprint = rewrittenFingerprint(rt)
	return rt
}

func rewrittenFingerprint(rt domain.RewrittenTimeline) string {
	h := sha256.New()
	for _, s := range rt.Segments {
		fmt.Fprintf(h, "%d|%d|%d|%s|%v\n", s.Index, s.StartMS, s.EndMS, s.Text, s.SourceIndexes)
	}
	return hex.EncodeToString(h.Sum(nil))
}
