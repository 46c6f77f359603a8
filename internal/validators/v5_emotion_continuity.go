package validators

import (
	"context"
	"fmt"

	"github.com/reelforge/viralcut/internal/domain"
)

// EmotionContinuity is V5: per character, consecutive emotion tags must
// not lie in the declared opposite-pair set without an intervening
// transition tag (spec.md 4.5 V5). Unlike V1's time-windowed flip
// check, V5 applies to every consecutive pair regardless of elapsed
// time — it is a pure sequence check over each character's tag stream.
type EmotionContinuity struct{}

func (EmotionContinuity) Name() string { return "V5_emotion_continuity" }

func (EmotionContinuity) Validate(_ context.Context, in Input) domain.ValidatorReport {
	if len(in.EmotionTags) == 0 {
		return domain.ValidatorReport{Validator: "V5_emotion_continuity"}
	}

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
			issues = append(issues, domain.ValidationIssue{
				Kind:         "emotion_continuity_break",
				Severity:     domain.SeverityMedium,
				Confidence:   0.7,
				Location:     fmt.Sprintf("character %s, segment %d", char, cur.SegmentIndex),
				Message:      fmt.Sprintf("%s jumps from %q directly to %q with no intervening transition", char, prev.Category, cur.Category),
				SuggestedFix: "insert a transitional beat or soften the adjacent category",
			})
		}
	}

	return domain.ValidatorReport{Validator: "V5_emotion_continuity", Issues: issues}
}
