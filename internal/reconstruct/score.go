package reconstruct

import (
	"github.com/reelforge/viralcut/internal/domain"
)

// scoreDimensions are the five weighted self-scoring dimensions of
// spec.md 4.3, each on a 0-10 scale before weighting.
type scoreDimensions struct {
	LengthGrowth           float64
	ViralFeatureDensity    float64
	EmotionalAmplification float64
	StructuralCompleteness float64
	OriginalityRetention   float64
}

const (
	weightLengthGrowth           = 0.20
	weightViralFeatureDensity    = 0.30
	weightEmotionalAmplification = 0.25
	weightStructuralCompleteness = 0.15
	weightOriginalityRetention   = 0.10
)

func (d scoreDimensions) Total() float64 {
	return weightLengthGrowth*d.LengthGrowth +
		weightViralFeatureDensity*d.ViralFeatureDensity +
		weightEmotionalAmplification*d.EmotionalAmplification +
		weightStructuralCompleteness*d.StructuralCompleteness +
		weightOriginalityRetention*d.OriginalityRetention
}

// scoreCandidate evaluates a working RewrittenTimeline candidate along
// the five dimensions, each expressed on a 0-10 scale.
func scoreCandidate(w *working, f Features, inputSegCount int) scoreDimensions {
	transformed := 0
	for _, s := range w.segs {
		if s.Transform != domain.TransformNone {
			transformed++
		}
	}
	n := len(w.segs)
	density := 0.0
	if n > 0 {
		density = float64(transformed) / float64(n)
	}

	categories := map[domain.TransformTag]bool{}
	for _, s := range w.segs {
		if s.Transform != domain.TransformNone {
			categories[s.Transform] = true
		}
	}

	growth := 10.0
	if inputSegCount > 0 {
		ratio := float64(n) / float64(inputSegCount)
		// Reward staying within [0.2, 0.6] (T6's preferred band);
		// penalize drifting toward the [0.1, 0.8] edges.
		switch {
		case ratio >= 0.2 && ratio <= 0.6:
			growth = 10.0
		case ratio >= 0.1 && ratio <= 0.8:
			growth = 6.0
		default:
			growth = 3.0
		}
	}

	originality := 10.0
	for _, s := range w.segs {
		if len(s.Text) == 0 {
			continue
		}
		// Original text must remain a verbatim substring; the transform
		// functions guarantee this structurally, so originality only
		// dips when a segment carries no source provenance at all
		// (pure insertion) diluting retention.
		if len(s.SourceIndexes) == 0 {
			originality -= 1.0
		}
	}
	if originality < 0 {
		originality = 0
	}

	return scoreDimensions{
		LengthGrowth:           growth,
		ViralFeatureDensity:    density * 10.0,
		EmotionalAmplification: clamp01(f.DominantScore) * 10.0,
		StructuralCompleteness: f.ArcCompleteness * 10.0,
		OriginalityRetention:   originality,
	}
}

// repair re-runs the transform for the first category not yet present
// in the working set, in the fixed order hook, amplifier, suspense,
// climax, trigger. Returns false only when every category is present;
// a true result does not mean the chosen transform changed anything.
func repair(w *working, f Features) bool {
	have := map[domain.TransformTag]bool{}
	for _, s := range w.segs {
		have[s.Transform] = true
	}
	switch {
	case !have[domain.TransformHook]:
		t1HookPrepend(w, f)
		return true
	case !have[domain.TransformAmplifier]:
		t2MultiLayerAmplification(w, f)
		return true
	case !have[domain.TransformSuspense]:
		t3PrecisionSuspenseInsertion(w, f)
		return true
	case !have[domain.TransformClimax]:
		t4DynamicClimaxIntensifier(w, f)
		return true
	case !have[domain.TransformTrigger]:
		t5EngagementTriggerAppend(w, f)
		return true
	default:
		return false
	}
}
