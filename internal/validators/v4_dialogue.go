package validators

import (
	"context"
	"fmt"
	"math"
	"strings"
	"unicode"

	"github.com/reelforge/viralcut/internal/domain"
)

// anachronisticReferents maps a lowercase referent keyword to the year
// it first became plausible in casual dialogue. Deliberately small and
// illustrative rather than exhaustive.
var anachronisticReferents = map[string]int{
	"smartphone":   2007,
	"iphone":       2007,
	"internet":     1995,
	"email":        1993,
	"text message": 1995,
	"selfie":       2010,
	"streaming":    2007,
	"wifi":         1999,
	"bitcoin":      2009,
}

const maxEmotionSwitchesPerSpeakerPerScene = 1

// DialogueLogic is V4: flags referents newer than the scene's declared era,
// vocabulary-complexity outliers, and more than one opposite-polarity
// emotion switch per speaker within a scene (spec.md 4.5 V4).
type DialogueLogic struct{}

func (DialogueLogic) Name() string { return "V4_dialogue_logic" }

func (DialogueLogic) Validate(_ context.Context, in Input) domain.ValidatorReport {
	var issues []domain.ValidationIssue
	scenes := in.SceneByIndex()

	for _, s := range in.Rewritten.Segments {
		scene, ok := scenes[s.Index]
		if !ok || scene.Era == 0 {
			continue
		}
		lower := strings.ToLower(s.Text)
		for referent, year := range anachronisticReferents {
			if strings.Contains(lower, referent) && scene.Era < year {
				issues = append(issues, domain.ValidationIssue{
					Kind:       "anachronistic_referent",
					Severity:   domain.SeverityHigh,
					Confidence: 0.85,
					Location:   fmt.Sprintf("segment %d", s.Index),
					Message:    fmt.Sprintf("referent %q implies >= %d but scene era is %d", referent, year, scene.Era),
				})
			}
		}
	}

	issues = append(issues, vocabularyOutlierIssues(in.Rewritten)...)
	issues = append(issues, perSceneEmotionSwitchIssues(in)...)

	return domain.ValidatorReport{Validator: "V4_dialogue_logic", Issues: issues}
}

// vocabularyOutlierIssues flags segments whose mean word length deviates
// from the corpus mean by more than two standard deviations — a coarse
// proxy for "vocabulary complexity inconsistent with the rest of the
// piece" absent a real readability model.
func vocabularyOutlierIssues(rt domain.RewrittenTimeline) []domain.ValidationIssue {
	if len(rt.Segments) < 3 {
		return nil
	}
	lengths := make([]float64, len(rt.Segments))
	var sum float64
	for i, s := range rt.Segments {
		lengths[i] = meanWordLength(s.Text)
		sum += lengths[i]
	}
	mean := sum / float64(len(lengths))
	var variance float64
	for _, l := range lengths {
		d := l - mean
		variance += d * d
	}
	variance /= float64(len(lengths))
	stddev := math.Sqrt(variance)
	if stddev == 0 {
		return nil
	}

	var issues []domain.ValidationIssue
	for i, s := range rt.Segments {
		d := lengths[i] - mean
		if d < 0 {
			d = -d
		}
		if d > 2*stddev {
			issues = append(issues, domain.ValidationIssue{
				Kind:       "vocabulary_complexity_outlier",
				Severity:   domain.SeverityLow,
				Confidence: 0.4,
				Location:   fmt.Sprintf("segment %d", s.Index),
				Message:    fmt.Sprintf("mean word length %.2f deviates from corpus mean %.2f by > 2 stddev", lengths[i], mean),
			})
		}
	}
	return issues
}

func meanWordLength(s string) float64 {
	words := strings.FieldsFunc(s, func(r rune) bool { return unicode.IsSpace(r) || unicode.IsPunct(r) })
	if len(words) == 0 {
		return 0
	}
	var total int
	for _, w := range words {
		total += len([]rune(w))
	}
	return float64(total) / float64(len(words))
}

// perSceneEmotionSwitchIssues flags a speaker with more than one
// opposite-polarity emotion switch within the same scene (grouped by
// SceneAnnotation.Location as the scene boundary, falling back to
// segment index when no scenes are supplied).
func perSceneEmotionSwitchIssues(in Input) []domain.ValidationIssue {
	if len(in.EmotionTags) == 0 {
		return nil
	}
	scenes := in.SceneByIndex()
	type key struct{ scene, char string }
	switches := map[key]int{}
	lastCategory := map[string]string{}
	lastScene := map[string]string{}

	for _, tag := range in.EmotionTags {
		sceneKey := scenes[tag.SegmentIndex].Location
		if sceneKey == "" {
			sceneKey = fmt.Sprintf("seg-%d", tag.SegmentIndex)
		}
		if lastScene[tag.Character] == sceneKey && isOpposite(lastCategory[tag.Character], tag.Category) {
			switches[key{sceneKey, tag.Character}]++
		}
		lastCategory[tag.Character] = tag.Category
		lastScene[tag.Character] = sceneKey
	}

	var issues []domain.ValidationIssue
	for k, count := range switches {
		if count > maxEmotionSwitchesPerSpeakerPerScene {
			issues = append(issues, domain.ValidationIssue{
				Kind:       "excess_emotion_switches",
				Severity:   domain.SeverityMedium,
				Confidence: 0.6,
				Location:   fmt.Sprintf("scene %s, speaker %s", k.scene, k.char),
				Message:    fmt.Sprintf("%d opposite-polarity emotion switches exceeds max %d per scene", count, maxEmotionSwitchesPerSpeakerPerScene),
			})
		}
	}
	return issues
}
