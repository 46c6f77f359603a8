package sceneintel

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/reelforge/viralcut/internal/domain"
)

func TestSyntheticProvider_FlagsGapAsTransportCue(t *testing.T) {
	tl := domain.Timeline{Segments: []domain.Segment{
		{Index: 1, StartMS: 0, EndMS: 1000, Text: "a"},
		{Index: 2, StartMS: 1200, EndMS: 2000, Text: "b"},
		{Index: 3, StartMS: 40000, EndMS: 41000, Text: "c"}, // > sceneGapMS after seg 2
	}}

	anns, err := NewSyntheticProvider().Annotate(context.Background(), tl)
	require.NoError(t, err)
	require.Len(t, anns, 3)

	require.False(t, anns[0].TransportCue)
	require.False(t, anns[1].TransportCue)
	require.True(t, anns[2].TransportCue)
	require.Equal(t, anns[0].Location, anns[1].Location)
	require.NotEqual(t, anns[1].Location, anns[2].Location)
}

func TestSyntheticProvider_EmptyTimeline(t *testing.T) {
	anns, err := NewSyntheticProvider().Annotate(context.Background(), domain.Timeline{})
	require.NoError(t, err)
	require.Empty(t, anns)
}
