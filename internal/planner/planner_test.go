package planner

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/reelforge/viralcut/internal/domain"
)

func sampleTimeline() domain.Timeline {
	return domain.Timeline{
		Language: domain.LanguageZH,
		Segments: []domain.Segment{
			{Index: 1, StartMS: 0, EndMS: 3000, Text: "今天天气很好"},
			{Index: 2, StartMS: 3000, EndMS: 6000, Text: "我去了公园散步"},
			{Index: 3, StartMS: 6000, EndMS: 9000, Text: "心情变得很愉快"},
		},
	}
}

func TestPlan_OutputIntervalsContiguousAndNonOverlapping(t *testing.T) {
	tl := sampleTimeline()
	rt := domain.RewrittenTimeline{
		Segments: []domain.RewrittenSegment{
			{Segment: domain.Segment{Index: 1, Text: "今天天气很好"}, SourceIndexes: []int{1}},
			{Segment: domain.Segment{Index: 2, Text: "我去了公园散步"}, SourceIndexes: []int{2}},
			{Segment: domain.Segment{Index: 3, Text: "心情变得很愉快"}, SourceIndexes: []int{3}},
		},
	}

	plan, err := Plan(tl, rt)
	require.NoError(t, err)
	require.Len(t, plan.Cuts, 3)

	var cursor int64
	for _, c := range plan.Cuts {
		require.Equal(t, cursor, c.OutStartMS)
		cursor = c.OutEndMS
	}
	require.Equal(t, plan.TotalDurationMS, cursor)
	require.Equal(t, int64(9000), plan.TotalDurationMS)
}

func TestPlan_SourceIntervalsUnionEqualsNineSeconds(t *testing.T) {
	tl := sampleTimeline()
	rt := domain.RewrittenTimeline{
		Segments: []domain.RewrittenSegment{
			{Segment: domain.Segment{Index: 1, Text: "今天天气很好"}, SourceIndexes: []int{1}},
			{Segment: domain.Segment{Index: 2, Text: "我去了公园散步"}, SourceIndexes: []int{2}},
			{Segment: domain.Segment{Index: 3, Text: "心情变得很愉快"}, SourceIndexes: []int{3}},
		},
	}
	plan, err := Plan(tl, rt)
	require.NoError(t, err)
	require.Equal(t, int64(0), plan.Cuts[0].SrcStartMS)
	require.Equal(t, int64(9000), plan.Cuts[len(plan.Cuts)-1].SrcEndMS)
}

func TestPlan_PureInsertionAttachesWithoutConsumingMedia(t *testing.T) {
	tl := sampleTimeline()
	rt := domain.RewrittenTimeline{
		Segments: []domain.RewrittenSegment{
			{Segment: domain.Segment{Index: 0, Text: "Hook!"}, SourceIndexes: nil},
			{Segment: domain.Segment{Index: 1, Text: "今天天气很好"}, SourceIndexes: []int{1}},
		},
	}
	plan, err := Plan(tl, rt)
	require.NoError(t, err)
	require.Len(t, plan.Cuts, 1)
	require.Contains(t, plan.Cuts[0].Text, "Hook!")
}

func TestPlan_ContiguousRunSplitsIntoMultipleCuts(t *testing.T) {
	tl := domain.Timeline{
		Segments: []domain.Segment{
			{Index: 1, StartMS: 0, EndMS: 1000, Text: "a"},
			{Index: 2, StartMS: 1000, EndMS: 2000, Text: "b"},
			{Index: 3, StartMS: 2000, EndMS: 3000, Text: "c"},
			{Index: 4, StartMS: 3000, EndMS: 4000, Text: "d"},
		},
	}
	rt := domain.RewrittenTimeline{
		Segments: []domain.RewrittenSegment{
			{Segment: domain.Segment{Index: 1, Text: "merged"}, SourceIndexes: []int{1, 2, 4}},
		},
	}
	plan, err := Plan(tl, rt)
	require.NoError(t, err)
	require.Len(t, plan.Cuts, 2) // [1,2] contiguous, [4] separate
}
