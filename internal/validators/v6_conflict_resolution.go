package validators

import (
	"context"
	"fmt"

	"github.com/reelforge/viralcut/internal/domain"
)

// compatibleResolutions maps conflict type -> intensity -> the set of
// resolution methods acceptable at that intensity. A method outside the
// set for its (type, intensity) pair is flagged.
var compatibleResolutions = map[string]map[domain.ConflictIntensity][]string{
	"interpersonal": {
		domain.ConflictLow:    {"compromise", "avoidance", "mediation", "confrontation"},
		domain.ConflictMedium: {"compromise", "mediation", "confrontation"},
		domain.ConflictHigh:   {"mediation", "confrontation"},
	},
	"internal": {
		domain.ConflictLow:    {"compromise", "avoidance"},
		domain.ConflictMedium: {"compromise", "confrontation"},
		domain.ConflictHigh:   {"confrontation"},
	},
	"societal": {
		domain.ConflictLow:    {"compromise", "mediation"},
		domain.ConflictMedium: {"mediation", "confrontation"},
		domain.ConflictHigh:   {"mediation", "confrontation"},
	},
}

// mediatedMethods are resolution methods requiring a third party
// carrying the declared mediator/arbitrator skill tag.
var mediatedMethods = map[string]bool{"mediation": true, "arbitration": true}

// ConflictResolution is V6: for each declared conflict, the resolution
// method must lie in the compatibility set for its type at its
// intensity; mediator/arbitrator resolutions require a matching skill
// tag (spec.md 4.5 V6).
type ConflictResolution struct{}

func (ConflictResolution) Name() string { return "V6_conflict_resolution" }

func (ConflictResolution) Validate(_ context.Context, in Input) domain.ValidatorReport {
	var issues []domain.ValidationIssue
	for _, c := range in.Conflicts {
		allowed, known := compatibleResolutions[c.Type]
		if !known {
			continue // unmodeled conflict type: no finding, not a violation
		}
		methods := allowed[c.Intensity]
		if !containsStr(methods, c.ResolutionMethod) {
			issues = append(issues, domain.ValidationIssue{
				Kind:       "incompatible_resolution_method",
				Severity:   domain.SeverityHigh,
				Confidence: 0.8,
				Location:   fmt.Sprintf("segment %d", c.SegmentIndex),
				Message:    fmt.Sprintf("resolution %q incompatible with %s conflict at %s intensity", c.ResolutionMethod, c.Type, c.Intensity),
			})
		}
		if mediatedMethods[c.ResolutionMethod] && c.MediatorSkillTag == "" {
			issues = append(issues, domain.ValidationIssue{
				Kind:       "missing_mediator_skill_tag",
				Severity:   domain.SeverityMedium,
				Confidence: 0.75,
				Location:   fmt.Sprintf("segment %d", c.SegmentIndex),
				Message:    fmt.Sprintf("%s resolution requires a mediator/arbitrator skill tag", c.ResolutionMethod),
			})
		}
	}
	return domain.ValidatorReport{Validator: "V6_conflict_resolution", Issues: issues}
}

func containsStr(s []string, v string) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}
