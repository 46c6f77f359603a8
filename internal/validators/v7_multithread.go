package validators

import (
	"context"
	"fmt"

	"github.com/reelforge/viralcut/internal/domain"
)

const threadImbalanceRatio = 0.3 // segment count < 30% of the mean across threads

// MultiThreadCoordinator is V7: over multiple parallel narrative
// threads, flags time paradoxes (same character in two locations at
// overlapping times), unresolved crossover events, thread imbalance
// (by segment count only; duration is not compared), and thread
// abandonment (spec.md 4.5 V7). Character-state contradictions are
// not checked.
type MultiThreadCoordinator struct{}

func (MultiThreadCoordinator) Name() string { return "V7_multithread" }

func (MultiThreadCoordinator) Validate(_ context.Context, in Input) domain.ValidatorReport {
	if len(in.Threads) == 0 {
		return domain.ValidatorReport{Validator: "V7_multithread"}
	}

	var issues []domain.ValidationIssue
	segTiming := segmentTiming(in.Rewritten)
	scenes := in.SceneByIndex()

	issues = append(issues, timeParadoxIssues(in.Threads, segTiming, scenes)...)
	issues = append(issues, crossoverIssues(in.Events, in.Threads)...)
	issues = append(issues, threadBalanceIssues(in.Threads)...)

	for _, t := range in.Threads {
		if !t.Concluded && !t.Convergent {
			issues = append(issues, domain.ValidationIssue{
				Kind:       "thread_abandonment",
				Severity:   domain.SeverityMedium,
				Confidence: 0.7,
				Location:   fmt.Sprintf("thread %s", t.ID),
				Message:    "thread has no conclusion and is not marked convergent",
			})
		}
	}

	return domain.ValidatorReport{Validator: "V7_multithread", Issues: issues}
}

// timeParadoxIssues flags a character appearing in two threads'
// overlapping-time scenes at different locations simultaneously.
func timeParadoxIssues(threads []domain.Thread, segTiming map[int]segTime, scenes map[int]domain.SceneAnnotation) []domain.ValidationIssue {
	type occurrence struct {
		thread   string
		start    int64
		end      int64
		location string
	}
	byChar := map[string][]occurrence{}
	for _, t := range threads {
		for _, segIdx := range t.SegmentIndexes {
			scene, ok := scenes[segIdx]
			if !ok {
				continue
			}
			timing, ok := segTiming[segIdx]
			if !ok {
				continue
			}
			for _, c := range scene.Characters {
				byChar[c] = append(byChar[c], occurrence{thread: t.ID, start: timing.start, end: timing.end, location: scene.Location})
			}
		}
	}

	var issues []domain.ValidationIssue
	for char, occs := range byChar {
		for i := 0; i < len(occs); i++ {
			for j := i + 1; j < len(occs); j++ {
				a, b := occs[i], occs[j]
				if a.thread == b.thread || a.location == b.location || a.location == "" || b.location == "" {
					continue
				}
				if a.start < b.end && b.start < a.end {
					issues = append(issues, domain.ValidationIssue{
						Kind:       "time_paradox",
						Severity:   domain.SeverityCritical,
						Confidence: 0.9,
						Location:   fmt.Sprintf("character %s, threads %s/%s", char, a.thread, b.thread),
						Message:    fmt.Sprintf("%s appears in %q and %q at overlapping times", char, a.location, b.location),
					})
				}
			}
		}
	}
	return issues
}

// crossoverIssues flags events whose characters span more than one
// thread but which are never marked resolved by a later same-characters
// event in either thread.
func crossoverIssues(events []domain.Event, threads []domain.Thread) []domain.ValidationIssue {
	if len(events) == 0 {
		return nil
	}
	threadOf := map[int]string{}
	for _, t := range threads {
		for _, segIdx := range t.SegmentIndexes {
			threadOf[segIdx] = t.ID
		}
	}

	var issues []domain.ValidationIssue
	for _, e := range events {
		if len(e.Characters) < 2 {
			continue
		}
		threadsSeen := map[string]bool{threadOf[e.SegmentIndex]: true}
		resolved := false
		for _, other := range events {
			if other.Kind != domain.EventResolution || other.SegmentIndex < e.SegmentIndex {
				continue
			}
			if sharesCharacter(e.Characters, other.Characters) {
				resolved = true
			}
			threadsSeen[threadOf[other.SegmentIndex]] = true
		}
		if len(threadsSeen) > 1 && e.Kind != domain.EventResolution && !resolved {
			issues = append(issues, domain.ValidationIssue{
				Kind:       "unresolved_crossover",
				Severity:   domain.SeverityMedium,
				Confidence: 0.6,
				Location:   fmt.Sprintf("event %d (segment %d)", e.Index, e.SegmentIndex),
				Message:    "crossover event involving multiple threads has no resolution",
			})
		}
	}
	return issues
}

func threadBalanceIssues(threads []domain.Thread) []domain.ValidationIssue {
	if len(threads) < 2 {
		return nil
	}
	var sum int
	for _, t := range threads {
		sum += len(t.SegmentIndexes)
	}
	mean := float64(sum) / float64(len(threads))
	if mean == 0 {
		return nil
	}

	var issues []domain.ValidationIssue
	for _, t := range threads {
		if float64(len(t.SegmentIndexes)) < threadImbalanceRatio*mean {
			issues = append(issues, domain.ValidationIssue{
				Kind:       "thread_imbalance",
				Severity:   domain.SeverityLow,
				Confidence: 0.5,
				Location:   fmt.Sprintf("thread %s", t.ID),
				Message:    fmt.Sprintf("thread has %d events, below 30%% of the %.1f mean", len(t.SegmentIndexes), mean),
			})
		}
	}
	return issues
}
