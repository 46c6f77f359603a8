package validators

import (
	"context"
	"fmt"

	"github.com/reelforge/viralcut/internal/domain"
)

const isolatedImportanceThreshold = 0.7 // spec.md 4.5 V2 "isolated high-importance events"

// Causality is V2: builds an event graph from declared cause/effect
// links plus inferred problem->resolution edges between same-character
// events, and flags unresolved problems, dangling clues, temporal
// paradoxes, and isolated high-importance events.
type Causality struct{}

func (Causality) Name() string { return "V2_causality" }

func (Causality) Validate(_ context.Context, in Input) domain.ValidatorReport {
	if len(in.Events) == 0 {
		return domain.ValidatorReport{Validator: "V2_causality"}
	}
	byIndex := make(map[int]domain.Event, len(in.Events))
	for _, e := range in.Events {
		byIndex[e.Index] = e
	}

	children := map[int][]int{} // cause -> effects
	for _, e := range in.Events {
		for _, c := range e.CauseIndexes {
			children[c] = append(children[c], e.Index)
		}
	}
	inferCausalityEdges(in.Events, byIndex, children)

	var issues []domain.ValidationIssue

	for _, e := range in.Events {
		if e.Kind == domain.EventProblem && len(children[e.Index]) == 0 {
			issues = append(issues, domain.ValidationIssue{
				Kind:       "unresolved_problem",
				Severity:   domain.SeverityMedium,
				Confidence: 0.7,
				Location:   fmt.Sprintf("event %d (segment %d)", e.Index, e.SegmentIndex),
				Message:    "problem event has no resolution descendant",
			})
		}
		if e.Kind == domain.EventClue && len(children[e.Index]) == 0 {
			issues = append(issues, domain.ValidationIssue{
				Kind:       "dangling_clue",
				Severity:   domain.SeverityLow,
				Confidence: 0.6,
				Location:   fmt.Sprintf("event %d (segment %d)", e.Index, e.SegmentIndex),
				Message:    "clue event has no descendant that pays it off",
			})
		}
		for _, causeIdx := range e.CauseIndexes {
			cause, ok := byIndex[causeIdx]
			if !ok {
				continue
			}
			if cause.SegmentIndex > e.SegmentIndex {
				issues = append(issues, domain.ValidationIssue{
					Kind:       "temporal_paradox",
					Severity:   domain.SeverityHigh,
					Confidence: 0.95,
					Location:   fmt.Sprintf("event %d (segment %d)", e.Index, e.SegmentIndex),
					Message:    fmt.Sprintf("effect at segment %d declares cause=event %d but cause occurs later at segment %d", e.SegmentIndex, causeIdx, cause.SegmentIndex),
				})
			}
		}
		if e.Importance >= isolatedImportanceThreshold && len(e.CauseIndexes) == 0 && len(children[e.Index]) == 0 {
			issues = append(issues, domain.ValidationIssue{
				Kind:       "isolated_high_importance_event",
				Severity:   domain.SeverityMedium,
				Confidence: 0.65,
				Location:   fmt.Sprintf("event %d (segment %d)", e.Index, e.SegmentIndex),
				Message:    fmt.Sprintf("high-importance event (%.2f) has no cause and no effect", e.Importance),
			})
		}
	}

	return domain.ValidatorReport{Validator: "V2_causality", Issues: issues}
}

// inferCausalityEdges adds problem->resolution edges between
// same-character events with no explicit link, per spec.md 4.5 V2.
func inferCausalityEdges(events []domain.Event, byIndex map[int]domain.Event, children map[int][]int) {
	for _, problem := range events {
		if problem.Kind != domain.EventProblem {
			continue
		}
		for _, res := range events {
			if res.Kind != domain.EventResolution || res.SegmentIndex < problem.SegmentIndex {
				continue
			}
			if !sharesCharacter(problem.Characters, res.Characters) {
				continue
			}
			if containsInt(res.CauseIndexes, problem.Index) {
				continue // already explicit
			}
			children[problem.Index] = appendUnique(children[problem.Index], res.Index)
			break // link to the nearest qualifying resolution only
		}
	}
	_ = byIndex
}

func sharesCharacter(a, b []string) bool {
	set := map[string]bool{}
	for _, c := range a {
		set[c] = true
	}
	for _, c := range b {
		if set[c] {
			return true
		}
	}
	return false
}

func containsInt(s []int, v int) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}

func appendUnique(s []int, v int) []int {
	if containsInt(s, v) {
		return s
	}
	return append(s, v)
}
