package reconstruct

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/reelforge/viralcut/internal/domain"
)

func sampleTimeline() domain.Timeline {
	return domain.Timeline{
		Language: domain.LanguageEN,
		Segments: []domain.Segment{
			{Index: 1, StartMS: 0, EndMS: 3000, Text: "The weather was great today"},
			{Index: 2, StartMS: 3000, EndMS: 6000, Text: "Suddenly everything changed"},
			{Index: 3, StartMS: 6000, EndMS: 9000, Text: "We finally resolved our argument"},
		},
	}
}

func TestReconstruct_Deterministic(t *testing.T) {
	tl := sampleTimeline()
	params := Params{Style: "viral", Lang: "en"}

	rt1, err := Reconstruct(context.Background(), tl, params, nil)
	require.NoError(t, err)
	rt2, err := Reconstruct(context.Background(), tl, params, nil)
	require.NoError(t, err)

	require.Equal(t, rt1.Fingerprint, rt2.Fingerprint)
	require.Equal(t, rt1.Score, rt2.Score)
}

func TestReconstruct_SingleSegmentUsesFallback(t *testing.T) {
	tl := domain.Timeline{
		Language: domain.LanguageEN,
		Segments: []domain.Segment{{Index: 1, StartMS: 0, EndMS: 3000, Text: "Only one line here"}},
	}
	rt, err := Reconstruct(context.Background(), tl, Params{Style: "viral", Lang: "en"}, nil)
	require.NoError(t, err)
	require.True(t, rt.Fallback)
	require.NotEmpty(t, rt.Segments)
}

func TestReconstruct_OriginalTextRetainedVerbatim(t *testing.T) {
	tl := sampleTimeline()
	rt, err := Reconstruct(context.Background(), tl, Params{Style: "viral", Lang: "en"}, nil)
	require.NoError(t, err)

	originals := map[int]string{}
	for _, s := range tl.Segments {
		originals[s.Index] = s.Text
	}
	for _, rs := range rt.Segments {
		for _, srcIdx := range rs.SourceIndexes {
			orig, ok := originals[srcIdx]
			if !ok {
				continue
			}
			require.Contains(t, rs.Text, orig)
		}
	}
}

func TestAnalyze_PlotIntegrityFlagsMissingResolution(t *testing.T) {
	tl := domain.Timeline{
		Segments: []domain.Segment{
			{Index: 1, StartMS: 0, EndMS: 1000, Text: "start"},
		},
	}
	f := Analyze(tl)
	require.True(t, f.HasBeginning)
	require.False(t, f.HasResolution)
	require.False(t, f.PlotIntegrityOK)
}

func TestEngagementScore_WeightsSumToOne(t *testing.T) {
	require.InDelta(t, 1.0, weightLengthGrowth+weightViralFeatureDensity+weightEmotionalAmplification+weightStructuralCompleteness+weightOriginalityRetention, 0.0001)
}
