package parser

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/reelforge/viralcut/internal/domain"
)

func TestParse_ZHMinimal(t *testing.T) {
	src := "1\n00:00:00,000 --> 00:00:03,000\n今天天气很好\n\n" +
		"2\n00:00:03,000 --> 00:00:06,000\n我去了公园散步\n\n" +
		"3\n00:00:06,000 --> 00:00:09,000\n心情变得很愉快\n"

	tl, err := Parse([]byte(src))
	require.NoError(t, err)
	require.Equal(t, domain.LanguageZH, tl.Language)
	require.Len(t, tl.Segments, 3)
	require.Equal(t, 1, tl.Segments[0].Index)
	require.Equal(t, int64(0), tl.Segments[0].StartMS)
	require.Equal(t, int64(9000), tl.Segments[2].EndMS)
}

func TestParse_ENMinimal(t *testing.T) {
	src := "1\n00:00:00,000 --> 00:00:03,000\nThe weather is great today\n\n" +
		"2\n00:00:03,000 --> 00:00:06,000\nI went for a walk in the park\n\n" +
		"3\n00:00:06,000 --> 00:00:09,000\nI feel very happy\n"

	tl, err := Parse([]byte(src))
	require.NoError(t, err)
	require.Equal(t, domain.LanguageEN, tl.Language)
	require.Len(t, tl.Segments, 3)
}

func TestParse_EmptyInputIsNotAnError(t *testing.T) {
	tl, err := Parse([]byte(""))
	require.NoError(t, err)
	require.Empty(t, tl.Segments)
	require.Equal(t, domain.LanguageUnknown, tl.Language)
}

func TestParse_MissingIndexAndCRLFTolerated(t *testing.T) {
	src := "00:00:00,000 --> 00:00:02,500\r\nHello world\r\n\r\n" +
		"00:00:02,500 --> 00:00:05,000\r\nSecond line\r\n"
	tl, err := Parse([]byte(src))
	require.NoError(t, err)
	require.Len(t, tl.Segments, 2)
	require.Equal(t, 1, tl.Segments[0].Index)
	require.Equal(t, 2, tl.Segments[1].Index)
}

func TestParse_DuplicateConsecutiveSegmentsMerge(t *testing.T) {
	src := "1\n00:00:00,000 --> 00:00:02,000\nSame text\n\n" +
		"2\n00:00:02,000 --> 00:00:04,000\nSame text\n\n" +
		"3\n00:00:04,000 --> 00:00:06,000\nDifferent\n"
	tl, err := Parse([]byte(src))
	require.NoError(t, err)
	require.Len(t, tl.Segments, 2)
	require.Equal(t, int64(4000), tl.Segments[0].EndMS)
}

func TestParse_EmptyTextAfterTrimDropped(t *testing.T) {
	src := "1\n00:00:00,000 --> 00:00:02,000\n   \n\n" +
		"2\n00:00:02,000 --> 00:00:04,000\nKept\n"
	tl, err := Parse([]byte(src))
	require.NoError(t, err)
	require.Len(t, tl.Segments, 1)
	require.Equal(t, "Kept", tl.Segments[0].Text)
}

func TestParse_MalformedTimestampIsFatal(t *testing.T) {
	src := "1\nnot-a-timestamp\nHello\n"
	_, err := Parse([]byte(src))
	require.Error(t, err)
}

func TestParse_EndBeforeStartIsFatal(t *testing.T) {
	src := "1\n00:00:05,000 --> 00:00:02,000\nHello\n"
	_, err := Parse([]byte(src))
	require.Error(t, err)
}

func TestParse_DotMillisecondSeparatorAccepted(t *testing.T) {
	src := "1\n00:00:00.000 --> 00:00:02.000\nHello\n"
	tl, err := Parse([]byte(src))
	require.NoError(t, err)
	require.Len(t, tl.Segments, 1)
}

func TestFingerprint_Deterministic(t *testing.T) {
	src := "1\n00:00:00,000 --> 00:00:02,000\nHello\n"
	tl1, err := Parse([]byte(src))
	require.NoError(t, err)
	tl2, err := Parse([]byte(src))
	require.NoError(t, err)
	require.Equal(t, tl1.Fingerprint, tl2.Fingerprint)
}
