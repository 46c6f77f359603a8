package validators

import (
	"context"
	"fmt"

	"github.com/reelforge/viralcut/internal/domain"
)

const defaultLocationGapMS = 30_000 // spec.md 4.5 V1 default
const emotionFlipWindowMS = 10_000

// Spatiotemporal is V1: adjacent scenes must not overlap in time beyond
// zero; a location change with an inter-scene gap below threshold and
// no transport cue is an error; an emotion flip to an opposite category
// within the flip window by the same character is an error.
type Spatiotemporal struct{}

func (Spatiotemporal) Name() string { return "V1_spatiotemporal" }

func (Spatiotemporal) Validate(_ context.Context, in Input) domain.ValidatorReport {
	var issues []domain.ValidationIssue
	segTiming := segmentTiming(in.Rewritten)
	scenes := in.SceneByIndex()

	ordered := orderedSegmentIndexes(in.Rewritten)
	for i := 1; i < len(ordered); i++ {
		prevIdx, curIdx := ordered[i-1], ordered[i]
		prevT, okP := segTiming[prevIdx]
		curT, okC := segTiming[curIdx]
		if !okP || !okC {
			continue
		}
		if curT.start < prevT.end {
			issues = append(issues, domain.ValidationIssue{
				Kind:       "scene_overlap",
				Severity:   domain.SeverityCritical,
				Confidence: 1,
				Location:   fmt.Sprintf("segment %d", curIdx),
				Message:    fmt.Sprintf("segment %d starts at %dms before segment %d ends at %dms", curIdx, curT.start, prevIdx, prevT.end),
			})
		}

		prevScene, hasPrev := scenes[prevIdx]
		curScene, hasCur := scenes[curIdx]
		if hasPrev && hasCur && prevScene.Location != "" && curScene.Location != "" && prevScene.Location != curScene.Location {
			gap := curT.start - prevT.end
			if gap < defaultLocationGapMS && !curScene.TransportCue {
				issues = append(issues, domain.ValidationIssue{
					Kind:         "location_change_without_transport_cue",
					Severity:     domain.SeverityHigh,
					Confidence:   0.9,
					Location:     fmt.Sprintf("segment %d", curIdx),
					Message:      fmt.Sprintf("location changed from %q to %q with gap %dms < %dms and no transport cue", prevScene.Location, curScene.Location, gap, defaultLocationGapMS),
					SuggestedFix: "add a transport cue or widen the inter-scene gap",
				})
			}
		}
	}

	issues = append(issues, emotionFlipIssues(in, emotionFlipWindowMS, "V1")...)

	return domain.ValidatorReport{Validator: "V1_spatiotemporal", Issues: issues}
}

type segTime struct{ start, end int64 }

// segmentTiming derives per-segment start/end ms from RewrittenTimeline
// segments, which carry tentative timing pending C4 — sufficient for
// V1's relative-ordering checks.
func segmentTiming(rt domain.RewrittenTimeline) map[int]segTime {
	out := make(map[int]segTime, len(rt.Segments))
	for _, s := range rt.Segments {
		out[s.Index] = segTime{start: s.StartMS, end: s.EndMS}
	}
	return out
}

func orderedSegmentIndexes(rt domain.RewrittenTimeline) []int {
	out := make([]int, 0, len(rt.Segments))
	for _, s := range rt.Segments {
		out = append(out, s.Index)
	}
	return out
}

// emotionFlipIssues flags, per character, a flip to an opposite-pair
// emotion category occurring within windowMS of the character's prior
// tag. Used by V1; V5 runs its own window-free sequence check.
func emotionFlipIssues(in Input, windowMS int64, validatorTag string) []domain.ValidationIssue {
	if len(in.EmotionTags) == 0 {
		return nil
	}
	segTiming := segmentTiming(in.Rewritten)
	byChar := map[string][]domain.EmotionTag{}
	for _, tag := range in.EmotionTags {
		byChar[tag.Character] = append(byChar[tag.Character], tag)
	}

	var issues []domain.ValidationIssue
	for char, tags := range byChar {
		for i := 1; i < len(tags); i++ {
			prev, cur := tags[i-1], tags[i]
			if !isOpposite(prev.Category, cur.Category) {
				continue
			}
			pt, okP := segTiming[prev.SegmentIndex]
			ct, okC := segTiming[cur.SegmentIndex]
			if !okP || !okC {
				continue
			}
			delta := ct.start - pt.end
			if delta < 0 {
				delta = -delta
			}
			if delta <= windowMS {
				issues = append(issues, domain.ValidationIssue{
					Kind:       "emotion_flip",
					Severity:   domain.SeverityHigh,
					Confidence: 0.8,
					Location:   fmt.Sprintf("character %s, segment %d", char, cur.SegmentIndex),
					Message:    fmt.Sprintf("[%s] %s flips from %q to %q within %dms", validatorTag, char, prev.Category, cur.Category, delta),
				})
			}
		}
	}
	return issues
}
