// Package reconstruct implements C3, the screenplay reconstruction
// engine: six deterministic analysis passes (P1-P6) feeding a fixed,
// ordered six-stage rewrite pipeline (T1-T6), gated by a self-scoring
// optimization loop. Grounded on the reference backend's multi-pass
// learning/validation style (named, independently-inspectable checks —
// see internal/validators, itself grounded the same way) and on its
// inference engine abstraction for the optional backend-delegated
// scoring path.
package reconstruct

import (
	"strings"

	"github.com/reelforge/viralcut/internal/domain"
)

// EmotionAxes are the fixed scoring axes of P1 (spec.md 4.3).
type EmotionAxes struct {
	Positive   float64
	Negative   float64
	Intense    float64
	Conflict   float64
	Resolution float64
}

// Dominant returns the axis name with the highest score and that score.
func (e EmotionAxes) Dominant() (string, float64) {
	best, bestName := e.Positive, "positive"
	if e.Negative > best {
		best, bestName = e.Negative, "negative"
	}
	if e.Intense > best {
		best, bestName = e.Intense, "intense"
	}
	if e.Conflict > best {
		best, bestName = e.Conflict, "conflict"
	}
	if e.Resolution > best {
		best, bestName = e.Resolution, "resolution"
	}
	return bestName, best
}

// StructuralMarker is P2's per-segment tag.
type StructuralMarker string

const (
	MarkerBeginning   StructuralMarker = "beginning"
	MarkerDevelopment StructuralMarker = "development"
	MarkerClimax      StructuralMarker = "climax"
	MarkerResolution  StructuralMarker = "resolution"
	MarkerNone        StructuralMarker = "none"
)

// RelationKind is a P3 pairwise character relation.
type RelationKind string

const (
	RelationFamily        RelationKind = "family"
	RelationInterpersonal RelationKind = "interpersonal"
	RelationAntagonistic  RelationKind = "antagonistic"
	RelationSupportive    RelationKind = "supportive"
)

// Relation is one inferred pairwise relation between two characters.
type Relation struct {
	A, B RelationKind
	Kind RelationKind
}

// CharacterRef is a deduplicated character mention.
type CharacterRef struct {
	Name     string
	Mentions []int // segment indexes
}

// TurningPoint is a P4 finding.
type TurningPoint struct {
	SegmentIndex int
	Intensity    float64
	Density      float64
	Score        float64 // Intensity * Density
}

// Features is the aggregate output of P1-P6, consumed by the T1-T6
// rewrite pipeline and by the self-scoring loop.
type Features struct {
	PerSegment      []EmotionAxes
	Dominant        string
	DominantScore   float64
	Markers         []StructuralMarker
	ArcCompleteness float64
	PacingSPM       float64 // sentences per minute
	Characters      []CharacterRef
	Relations       []Relation
	TurningPoints   []TurningPoint
	EmotionCurve    []float64 // per-segment signed score in [-1,1]
	HasBeginning    bool
	HasResolution   bool
	PlotIntegrityOK bool
}

// Analyze runs P1-P6 in order over tl. Deterministic given the same
// input (the lexicon path never consults wall-clock time or randomness).
func Analyze(tl domain.Timeline) Features {
	var f Features
	f.PerSegment = p1Semantic(tl)
	f.Dominant, f.DominantScore = aggregateDominant(f.PerSegment)
	f.Markers, f.ArcCompleteness, f.PacingSPM = p2Structure(tl)
	f.Characters, f.Relations = p3Characters(tl)
	f.TurningPoints = p4TurningPoints(tl, f.PerSegment)
	f.EmotionCurve = p5EmotionCurve(f.PerSegment)
	f.HasBeginning, f.HasResolution, f.PlotIntegrityOK = p6PlotIntegrity(f.Markers)
	return f
}

func aggregateDominant(per []EmotionAxes) (string, float64) {
	var sum EmotionAxes
	for _, a := range per {
		sum.Positive += a.Positive
		sum.Negative += a.Negative
		sum.Intense += a.Intense
		sum.Conflict += a.Conflict
		sum.Resolution += a.Resolution
	}
	n := float64(len(per))
	if n == 0 {
		return "neutral", 0
	}
	sum.Positive /= n
	sum.Negative /= n
	sum.Intense /= n
	sum.Conflict /= n
	sum.Resolution /= n
	return sum.Dominant()
}

// lexicon-based keyword weights for P1, shared by zh/en by substring
// match (deliberately coarse — higher quality is backend.Analyze's job).
var positiveWords = []string{"happy", "great", "wonderful", "joy", "愉快", "高兴", "开心", "好"}
var negativeWords = []string{"sad", "terrible", "afraid", "angry", "难过", "生气", "害怕"}
var intenseWords = []string{"suddenly", "explode", "scream", "突然", "爆发", "尖叫"}
var conflictWords = []string{"fight", "argue", "betray", "争吵", "背叛", "冲突"}
var resolutionWords = []string{"finally", "resolved", "peace", "终于", "解决", "平静"}

func p1Semantic(tl domain.Timeline) []EmotionAxes {
	out := make([]EmotionAxes, len(tl.Segments))
	for i, s := range tl.Segments {
		lower := strings.ToLower(s.Text)
		out[i] = EmotionAxes{
			Positive:   keywordScore(lower, positiveWords),
			Negative:   keywordScore(lower, negativeWords),
			Intense:    keywordScore(lower, intenseWords),
			Conflict:   keywordScore(lower, conflictWords),
			Resolution: keywordScore(lower, resolutionWords),
		}
	}
	return out
}

func keywordScore(text string, words []string) float64 {
	hits := 0
	for _, w := range words {
		if strings.Contains(text, w) {
			hits++
		}
	}
	if hits == 0 {
		return 0
	}
	score := float64(hits) * 0.3
	if score > 1 {
		score = 1
	}
	return score
}

// p2Structure tags each segment with a structural marker by position in
// the timeline (beginning/development/climax/resolution), and computes
// arc completeness (fraction of the four markers present) and pacing
// (sentences per minute over total duration).
func p2Structure(tl domain.Timeline) ([]StructuralMarker, float64, float64) {
	n := len(tl.Segments)
	markers := make([]StructuralMarker, n)
	if n == 0 {
		return markers, 0, 0
	}

	seen := map[StructuralMarker]bool{}
	for i := range tl.Segments {
		frac := float64(i) / float64(n)
		var m StructuralMarker
		switch {
		case frac < 0.15:
			m = MarkerBeginning
		case frac < 0.70:
			m = MarkerDevelopment
		case frac < 0.90:
			m = MarkerClimax
		default:
			m = MarkerResolution
		}
		markers[i] = m
		seen[m] = true
	}
	present := 0
	for _, m := range []StructuralMarker{MarkerBeginning, MarkerDevelopment, MarkerClimax, MarkerResolution} {
		if seen[m] {
			present++
		}
	}
	arcCompleteness := float64(present) / 4.0

	totalMS := tl.Segments[n-1].EndMS - tl.Segments[0].StartMS
	pacing := 0.0
	if totalMS > 0 {
		minutes := float64(totalMS) / 60000.0
		pacing = float64(n) / minutes
	}
	return markers, arcCompleteness, pacing
}

// p3Characters does a coarse named/pronominal reference extraction:
// capitalized-word runs are treated as names (English) or the empty set
// (zh, where capitalization carries no signal) — good enough for the
// co-mention-window relation inference this pipeline needs, without
// pulling in a full NLP model.
func p3Characters(tl domain.Timeline) ([]CharacterRef, []Relation) {
	mentions := map[string][]int{}
	order := []string{}
	for _, s := range tl.Segments {
		for _, name := range extractNames(s.Text) {
			if _, ok := mentions[name]; !ok {
				order = append(order, name)
			}
			mentions[name] = append(mentions[name], s.Index)
		}
	}
	refs := make([]CharacterRef, 0, len(order))
	for _, name := range order {
		refs = append(refs, CharacterRef{Name: name, Mentions: mentions[name]})
	}

	// Co-mention window: two characters mentioned within the same or
	// adjacent segments are inferred to be in a relation; kind is a
	// coarse default (interpersonal) absent stronger signal — a real
	// backend.Analyze call can refine this via SemanticSignals.
	var relations []Relation
	for i := 0; i < len(refs); i++ {
		for j := i + 1; j < len(refs); j++ {
			if coMentioned(refs[i].Mentions, refs[j].Mentions, 1) {
				relations = append(relations, Relation{A: RelationKind(refs[i].Name), B: RelationKind(refs[j].Name), Kind: RelationInterpersonal})
			}
		}
	}
	return refs, relations
}

func extractNames(text string) []string {
	var out []string
	fields := strings.Fields(text)
	for _, w := range fields {
		w = strings.Trim(w, ".,!?;:\"'")
		if len(w) < 2 {
			continue
		}
		if w[0] >= 'A' && w[0] <= 'Z' && strings.ToLower(w) != w {
			out = append(out, w)
		}
	}
	return out
}

func coMentioned(a, b []int, window int) bool {
	for _, ai := range a {
		for _, bi := range b {
			d := ai - bi
			if d < 0 {
				d = -d
			}
			if d <= window {
				return true
			}
		}
	}
	return false
}

// p4TurningPoints locates segments whose emotion delta from the prior
// segment exceeds a threshold, scored by intensity * local density
// (count of turning points within a local window / window size). Ties
// on intensity prefer the earlier segment (spec.md 4.3 tie-break).
func p4TurningPoints(tl domain.Timeline, per []EmotionAxes) []TurningPoint {
	const threshold = 0.25
	const windowSegs = 3

	var candidates []int
	for i := 1; i < len(per); i++ {
		delta := emotionDelta(per[i-1], per[i])
		if delta >= threshold {
			candidates = append(candidates, i)
		}
	}

	out := make([]TurningPoint, 0, len(candidates))
	for _, idx := range candidates {
		intensity := per[idx].Intense
		if intensity == 0 {
			intensity = emotionDelta(per[idx-1], per[idx])
		}
		density := localDensity(candidates, idx, windowSegs)
		out = append(out, TurningPoint{
			SegmentIndex: tl.Segments[idx].Index,
			Intensity:    intensity,
			Density:      density,
			Score:        intensity * density,
		})
	}
	return out
}

func emotionDelta(a, b EmotionAxes) float64 {
	d := func(x, y float64) float64 {
		if x > y {
			return x - y
		}
		return y - x
	}
	return (d(a.Positive, b.Positive) + d(a.Negative, b.Negative) + d(a.Intense, b.Intense) +
		d(a.Conflict, b.Conflict) + d(a.Resolution, b.Resolution)) / 5.0
}

func localDensity(candidates []int, idx, window int) float64 {
	count := 0
	for _, c := range candidates {
		if abs(c-idx) <= window {
			count++
		}
	}
	return float64(count) / float64(window*2+1)
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// p5EmotionCurve derives a per-segment signed score in [-1,1] from
// positive/negative axes, used by T3 to pick suspense insertion points.
func p5EmotionCurve(per []EmotionAxes) []float64 {
	out := make([]float64, len(per))
	for i, a := range per {
		out[i] = a.Positive - a.Negative
	}
	return out
}

// p6PlotIntegrity verifies at least one beginning and one resolution
// marker survive.
func p6PlotIntegrity(markers []StructuralMarker) (hasBeginning, hasResolution, ok bool) {
	for _, m := range markers {
		if m == MarkerBeginning {
			hasBeginning = true
		}
		if m == MarkerResolution {
			hasResolution = true
		}
	}
	return hasBeginning, hasResolution, hasBeginning && hasResolution
}
