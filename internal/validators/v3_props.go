package validators

import (
	"context"
	"fmt"

	"github.com/reelforge/viralcut/internal/domain"
)

// PropContinuity is V3: tracks named props across scenes in
// segment-index order, flagging unexplained origin and disappearance
// from the preceding scene, except inside scenes tagged
// flashback/dream/montage (spec.md 4.5 V3). Which character carries or
// holds a prop is not tracked or checked.
type PropContinuity struct{}

func (PropContinuity) Name() string { return "V3_prop_continuity" }

func (PropContinuity) Validate(_ context.Context, in Input) domain.ValidatorReport {
	ordered := orderedScenesByIndex(in.Scenes)
	if len(ordered) == 0 {
		return domain.ValidatorReport{Validator: "V3_prop_continuity"}
	}

	var issues []domain.ValidationIssue
	// lastSeenAt: prop name -> segment index where last present.
	lastSeenAt := map[string]int{}

	for i, scene := range ordered {
		exempt := hasAnyTag(scene.Tags, "flashback", "dream", "montage")
		present := map[string]bool{}
		for _, p := range scene.Props {
			present[p] = true
		}

		for p := range present {
			if _, seenBefore := lastSeenAt[p]; !seenBefore && i > 0 && !exempt {
				issues = append(issues, domain.ValidationIssue{
					Kind:       "unexplained_prop_origin",
					Severity:   domain.SeverityMedium,
					Confidence: 0.6,
					Location:   fmt.Sprintf("segment %d", scene.SegmentIndex),
					Message:    fmt.Sprintf("prop %q appears with no prior introduction", p),
				})
			}
			lastSeenAt[p] = scene.SegmentIndex
		}

		// Disappearance: a prop present in the immediately preceding
		// scene but absent from this non-exempt one. Character changes
		// between the two scenes are not consulted.
		if i > 0 {
			prev := ordered[i-1]
			if !exempt {
				for _, p := range prev.Props {
					if present[p] {
						continue
					}
					if lastSeenAt[p] == prev.SegmentIndex {
						issues = append(issues, domain.ValidationIssue{
							Kind:       "unexplained_prop_disappearance",
							Severity:   domain.SeverityLow,
							Confidence: 0.5,
							Location:   fmt.Sprintf("segment %d", scene.SegmentIndex),
							Message:    fmt.Sprintf("prop %q present in segment %d vanishes by segment %d", p, prev.SegmentIndex, scene.SegmentIndex),
						})
					}
				}
			}
		}
	}

	return domain.ValidatorReport{Validator: "V3_prop_continuity", Issues: issues}
}

func orderedScenesByIndex(scenes []domain.SceneAnnotation) []domain.SceneAnnotation {
	out := append([]domain.SceneAnnotation(nil), scenes...)
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].SegmentIndex < out[j-1].SegmentIndex; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

func hasAnyTag(tags []string, want ...string) bool {
	set := map[string]bool{}
	for _, t := range tags {
		set[t] = true
	}
	for _, w := range want {
		if set[w] {
			return true
		}
	}
	return false
}
