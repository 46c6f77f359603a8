package validators

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/reelforge/viralcut/internal/domain"
)

func sampleInput() Input {
	rt := domain.RewrittenTimeline{
		Language: domain.LanguageEN,
		Segments: []domain.RewrittenSegment{
			{Segment: domain.Segment{Index: 1, StartMS: 0, EndMS: 3000, Text: "Hook! The weather was great today"}, SourceIndexes: []int{1}},
			{Segment: domain.Segment{Index: 2, StartMS: 3000, EndMS: 6000, Text: "Suddenly everything changed"}, SourceIndexes: []int{2}},
			{Segment: domain.Segment{Index: 3, StartMS: 6000, EndMS: 9000, Text: "We finally resolved our argument"}, SourceIndexes: []int{3}},
		},
	}
	plan := domain.CutPlan{
		Cuts: []domain.Cut{
			{SrcStartMS: 0, SrcEndMS: 3000, OutStartMS: 0, OutEndMS: 3000, Text: rt.Segments[0].Text},
			{SrcStartMS: 3000, SrcEndMS: 6000, OutStartMS: 3000, OutEndMS: 6000, Text: rt.Segments[1].Text},
			{SrcStartMS: 6000, SrcEndMS: 9000, OutStartMS: 6000, OutEndMS: 9000, Text: rt.Segments[2].Text},
		},
		TotalDurationMS: 9000,
	}
	scenes := []domain.SceneAnnotation{
		{SegmentIndex: 1, Era: 2015, Region: "usa", Location: "park"},
		{SegmentIndex: 2, Era: 2015, Region: "usa", Location: "park"},
		{SegmentIndex: 3, Era: 2015, Region: "usa", Location: "park"},
	}
	return Input{Plan: plan, Rewritten: rt, Scenes: scenes}
}

func TestRunAll_CleanInputHasNoCriticalIssues(t *testing.T) {
	reg := NewRegistry()
	report, err := reg.RunAll(context.Background(), sampleInput(), 0)
	require.NoError(t, err)
	require.True(t, report.Accepted())
}

// S5: causality paradox. Event B declares cause=A but A's scene index
// is after B. Expected: V2 reports temporal_paradox with severity=high.
func TestCausality_TemporalParadoxSeedScenarioS5(t *testing.T) {
	in := sampleInput()
	in.Events = []domain.Event{
		{Index: 1, SegmentIndex: 3, Kind: domain.EventProblem, Characters: []string{"A"}},
		{Index: 2, SegmentIndex: 1, Kind: domain.EventResolution, Characters: []string{"A"}, CauseIndexes: []int{1}},
	}

	report := Causality{}.Validate(context.Background(), in)

	var found *domain.ValidationIssue
	for i, iss := range report.Issues {
		if iss.Kind == "temporal_paradox" {
			found = &report.Issues[i]
			break
		}
	}
	require.NotNil(t, found)
	require.Equal(t, domain.SeverityHigh, found.Severity)

	// severity=high alone does not gate acceptance — only critical does
	// (spec.md seed scenario S5: "CLI exit 1 iff any critical issue exists").
	full := domain.ValidationReport{Reports: []domain.ValidatorReport{report}}
	require.True(t, full.Accepted())
}

func hasIssueKind(r domain.ValidatorReport, kind string) bool {
	for _, iss := range r.Issues {
		if iss.Kind == kind {
			return true
		}
	}
	return false
}

func TestSpatiotemporal_OverlapIsCritical(t *testing.T) {
	in := sampleInput()
	segs := in.Rewritten.Segments
	segs[1].StartMS = segs[0].EndMS - 500 // overlaps segment 0 by 500ms
	in.Rewritten = domain.RewrittenTimeline{Segments: segs}

	report := Spatiotemporal{}.Validate(context.Background(), in)
	require.True(t, report.HasCritical())
}

func TestConflictResolution_IncompatibleMethodFlagged(t *testing.T) {
	in := sampleInput()
	in.Conflicts = []domain.Conflict{
		{SegmentIndex: 2, Type: "internal", Intensity: domain.ConflictLow, ResolutionMethod: "confrontation"},
	}
	report := ConflictResolution{}.Validate(context.Background(), in)
	require.True(t, hasIssueKind(report, "incompatible_resolution_method"))
}

func TestSandbox_DetectionRateAcrossAllDefects(t *testing.T) {
	in := sampleInput()
	scenes := append([]domain.SceneAnnotation(nil), in.Scenes...)
	scenes[0].Era = 1990 // predates "smartphone" (2007) so DefectDialogueMismatch is detectable
	in.Scenes = scenes
	in.Events = []domain.Event{
		{Index: 1, SegmentIndex: 1, Kind: domain.EventProblem, Characters: []string{"A"}},
		{Index: 2, SegmentIndex: 3, Kind: domain.EventResolution, Characters: []string{"A"}, CauseIndexes: []int{1}},
	}
	in.EmotionTags = []domain.EmotionTag{
		{SegmentIndex: 1, Character: "A", Category: "positive"},
		{SegmentIndex: 3, Character: "A", Category: "positive"},
	}
	in.Threads = []domain.Thread{
		{ID: "t1", SegmentIndexes: []int{1, 2}, Concluded: true},
		{ID: "t2", SegmentIndexes: []int{3}, Concluded: true},
	}

	reg := NewRegistry()
	kinds := []DefectKind{
		DefectTimeJump,
		DefectPropTeleport,
		DefectCausalityBreak,
		DefectDialogueMismatch,
		DefectEmotionFlip,
	}
	rate, results, err := DetectionRate(context.Background(), reg, in, kinds)
	require.NoError(t, err)
	require.GreaterOrEqual(t, rate, 0.6, "results: %+v", results)
}
