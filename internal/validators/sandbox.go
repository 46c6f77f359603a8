package validators

import (
	"context"
	"fmt"

	"github.com/reelforge/viralcut/internal/domain"
)

// DefectKind enumerates the sandbox defect injector's mutation types
// (spec.md 4.5's ninth facility: "part of the test harness rather than
// the production path").
type DefectKind string

const (
	DefectTimeJump         DefectKind = "time_jump"
	DefectPropTeleport     DefectKind = "prop_teleport"
	DefectCharacterClone   DefectKind = "character_clone"
	DefectCausalityBreak   DefectKind = "causality_break"
	DefectDialogueMismatch DefectKind = "dialogue_mismatch"
	DefectEmotionFlip      DefectKind = "emotion_flip"
)

// InjectDefect returns a mutated copy of in with the named defect
// applied, plus the validator name expected to catch it. Callers run
// the registry against the mutated Input and assert that validator's
// report contains a medium-or-higher severity issue.
func InjectDefect(in Input, kind DefectKind) (Input, string) {
	out := in // shallow copy; mutate only the slice the defect targets

	switch kind {
	case DefectTimeJump:
		segs := append([]domain.RewrittenSegment(nil), in.Rewritten.Segments...)
		if len(segs) >= 2 {
			segs[1].StartMS = segs[0].StartMS - 1 // forces overlap with segment 0
			segs[1].EndMS = segs[1].StartMS + 1000
		}
		out.Rewritten = domain.RewrittenTimeline{Segments: segs, Language: in.Rewritten.Language}
		return out, "V1_spatiotemporal"

	case DefectPropTeleport:
		scenes := append([]domain.SceneAnnotation(nil), in.Scenes...)
		if len(scenes) >= 2 {
			scenes[1].Props = append(append([]string(nil), scenes[1].Props...), "teleported_prop_never_introduced")
		}
		out.Scenes = scenes
		return out, "V3_prop_continuity"

	case DefectCharacterClone:
		threads := append([]domain.Thread(nil), in.Threads...)
		scenes := append([]domain.SceneAnnotation(nil), in.Scenes...)
		out.Scenes = scenes
		out.Threads = threads
		if len(threads) >= 2 && len(scenes) >= 2 {
			shared := "clone_subject"
			scenes[0].Characters = appendUniqueStr(scenes[0].Characters, shared)
			scenes[1].Characters = appendUniqueStr(scenes[1].Characters, shared)
			scenes[0].Location = "location_a"
			scenes[1].Location = "location_b"
		}
		out.Scenes = scenes
		return out, "V7_multithread"

	case DefectCausalityBreak:
		events := append([]domain.Event(nil), in.Events...)
		if len(events) >= 2 {
			// declares the later event as the cause of the earlier one
			events[0].CauseIndexes = appendUnique(events[0].CauseIndexes, events[len(events)-1].Index)
		}
		out.Events = events
		return out, "V2_causality"

	case DefectDialogueMismatch:
		segs := append([]domain.RewrittenSegment(nil), in.Rewritten.Segments...)
		if len(segs) > 0 {
			segs[0].Text += " he pulled out his smartphone to check"
		}
		out.Rewritten = domain.RewrittenTimeline{Segments: segs, Language: in.Rewritten.Language}
		return out, "V4_dialogue_logic"

	case DefectEmotionFlip:
		tags := append([]domain.EmotionTag(nil), in.EmotionTags...)
		if len(tags) > 0 {
			flipped := "negative"
			if tags[0].Category == "negative" {
				flipped = "positive"
			}
			tags = append(tags, domain.EmotionTag{SegmentIndex: tags[0].SegmentIndex, Character: tags[0].Character, Category: flipped})
		}
		out.EmotionTags = tags
		return out, "V5_emotion_continuity"
	}

	return out, ""
}

func appendUniqueStr(s []string, v string) []string {
	for _, x := range s {
		if x == v {
			return s
		}
	}
	return append(s, v)
}

// DetectionRate runs reg against in for each kind in kinds, injecting
// the named defect and checking whether the expected validator fired a
// medium-or-higher severity issue. It returns the fraction detected,
// for the test harness to compare against a configured minimum
// (spec.md 4.5: "verifies detectors fire at expected rates").
func DetectionRate(ctx context.Context, reg *Registry, in Input, kinds []DefectKind) (float64, map[DefectKind]bool, error) {
	results := make(map[DefectKind]bool, len(kinds))
	var hits int
	for _, k := range kinds {
		mutated, expectValidator := InjectDefect(in, k)
		report, err := reg.RunAll(ctx, mutated, 0)
		if err != nil {
			return 0, nil, fmt.Errorf("defect %s: %w", k, err)
		}
		detected := false
		for _, sub := range report.Reports {
			if sub.Validator != expectValidator {
				continue
			}
			for _, iss := range sub.Issues {
				if iss.Severity == domain.SeverityMedium || iss.Severity == domain.SeverityHigh || iss.Severity == domain.SeverityCritical {
					detected = true
				}
			}
		}
		results[k] = detected
		if detected {
			hits++
		}
	}
	if len(kinds) == 0 {
		return 1, results, nil
	}
	return float64(hits) / float64(len(kinds)), results, nil
}
