package governor

import (
	"context"

	"github.com/reelforge/viralcut/internal/domain"
)

// Router is C2's language router: it resolves a Timeline's language (or
// an explicit override) to a Lease, without any knowledge of which
// backend variant actually services that language. Per spec.md 9's
// "auto everything" redesign flag, auto-detection is only ever the
// default — callers may always override with an explicit lang.
type Router struct {
	gov *Governor
}

// NewRouter wraps a Governor as a Router.
func NewRouter(gov *Governor) *Router {
	return &Router{gov: gov}
}

// Resolve picks the effective language: override if non-empty and not
// "auto", else the Timeline's detected language.
func (r *Router) Resolve(tl domain.Timeline, override string) string {
	if override != "" && override != "auto" {
		return override
	}
	switch tl.Language {
	case domain.LanguageZH:
		return "zh"
	case domain.LanguageEN:
		return "en"
	default:
		return "en" // stub/full backends default to English prompting for unknown input
	}
}

// Route acquires a Lease for the resolved language.
func (r *Router) Route(ctx context.Context, tl domain.Timeline, override string) (*Lease, error) {
	lang := r.Resolve(tl, override)
	return r.gov.Acquire(ctx, lang)
}
