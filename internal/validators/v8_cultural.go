package validators

import (
	"context"
	"fmt"
	"strings"

	"github.com/reelforge/viralcut/internal/domain"
)

// culturalRule indexes a region by forbidden/required elements and
// stereotype keywords, a small illustrative rules table rather than an
// exhaustive one.
type culturalRule struct {
	forbidden  []string
	required   []string
	stereotype []string
}

var culturalRules = map[string]culturalRule{
	"japan": {
		stereotype: []string{"exotic", "mystical orient", "geisha girl"},
	},
	"usa-south": {
		stereotype: []string{"hillbilly", "redneck stereotype"},
	},
}

// CulturalContext is V8: rules are looked up by the scene's declared
// region (the scene's era is not consulted); flags forbidden-element
// presence, required-element absence, and stereotype keywords /
// possible appropriation (spec.md 4.5 V8).
type CulturalContext struct{}

func (CulturalContext) Name() string { return "V8_cultural_context" }

func (CulturalContext) Validate(_ context.Context, in Input) domain.ValidatorReport {
	var issues []domain.ValidationIssue
	scenes := in.SceneByIndex()

	for _, s := range in.Rewritten.Segments {
		scene, ok := scenes[s.Index]
		if !ok || scene.Region == "" {
			continue
		}
		rule, known := culturalRules[strings.ToLower(scene.Region)]
		if !known {
			continue
		}
		lower := strings.ToLower(s.Text)

		for _, forbidden := range rule.forbidden {
			if strings.Contains(lower, forbidden) {
				issues = append(issues, domain.ValidationIssue{
					Kind:       "forbidden_element_present",
					Severity:   domain.SeverityHigh,
					Confidence: 0.7,
					Location:   fmt.Sprintf("segment %d", s.Index),
					Message:    fmt.Sprintf("forbidden element %q present for region %s", forbidden, scene.Region),
				})
			}
		}
		for _, required := range rule.required {
			if !strings.Contains(lower, required) {
				issues = append(issues, domain.ValidationIssue{
					Kind:       "required_element_absent",
					Severity:   domain.SeverityLow,
					Confidence: 0.4,
					Location:   fmt.Sprintf("segment %d", s.Index),
					Message:    fmt.Sprintf("required element %q absent for region %s", required, scene.Region),
				})
			}
		}
		for _, kw := range rule.stereotype {
			if strings.Contains(lower, kw) {
				issues = append(issues, domain.ValidationIssue{
					Kind:       "stereotype_keyword",
					Severity:   domain.SeverityMedium,
					Confidence: 0.55,
					Location:   fmt.Sprintf("segment %d", s.Index),
					Message:    fmt.Sprintf("possible stereotype/appropriation keyword %q for region %s", kw, scene.Region),
				})
			}
		}
	}

	return domain.ValidatorReport{Validator: "V8_cultural_context", Issues: issues}
}
