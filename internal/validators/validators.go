// Package validators implements C5: eight pure-function logic
// validators (V1-V8) plus the sandbox defect injector test harness.
// Grounded on the reference backend's structural-invariant checker
// (named, independently-inspectable InvariantCheck/InvariantReport
// records rather than exception-driven control flow — spec.md 9's
// redesign flag for validators) and on its errgroup-bounded fan-out
// step for running the eight validators concurrently and joining
// before snapshot (spec.md section 5).
package validators

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/reelforge/viralcut/internal/domain"
)

// Input is the read-only bundle every validator receives. Validators
// never mutate their input (spec.md section 3 ownership rule). Events,
// Conflicts, EmotionTags and Threads are the declared-graph data V2,
// V5, V6 and V7 check; callers populate them from upstream annotation
// tooling (e.g. internal/sceneintel) or from a production pipeline's
// screenwriting metadata. Any left nil simply yields no findings from
// the validators that read them.
type Input struct {
	Plan        domain.CutPlan
	Rewritten   domain.RewrittenTimeline
	Scenes      []domain.SceneAnnotation
	Events      []domain.Event
	Conflicts   []domain.Conflict
	EmotionTags []domain.EmotionTag
	Threads     []domain.Thread
}

// SceneByIndex indexes Scenes by RewrittenSegment index for O(1) lookup.
func (in Input) SceneByIndex() map[int]domain.SceneAnnotation {
	out := make(map[int]domain.SceneAnnotation, len(in.Scenes))
	for _, s := range in.Scenes {
		out[s.SegmentIndex] = s
	}
	return out
}

// Validator is the capability set every V1-V8 check implements: a pure
// function from Input to a ValidatorReport.
type Validator interface {
	Name() string
	Validate(ctx context.Context, in Input) domain.ValidatorReport
}

// Registry holds the registered validators dispatched by RunAll,
// mirroring the reference backend's job-handler registry shape (a
// concurrency-safe lookup table, one-to-one by name, fatal on
// duplicate registration) — narrowed here to a simple ordered slice
// since validators have no job_type dispatch concern, only
// registration-time dedup.
type Registry struct {
	byName map[string]Validator
	order  []string
}

// NewRegistry returns a Registry pre-populated with V1-V8 in spec order.
func NewRegistry() *Registry {
	r := &Registry{byName: map[string]Validator{}}
	for _, v := range []Validator{
		Spatiotemporal{},
		Causality{},
		PropContinuity{},
		DialogueLogic{},
		EmotionContinuity{},
		ConflictResolution{},
		MultiThreadCoordinator{},
		CulturalContext{},
	} {
		r.Register(v)
	}
	return r
}

// Register adds a validator; duplicate names panic at wiring time
// (a configuration error, not a runtime condition to recover from).
func (r *Registry) Register(v Validator) {
	if _, exists := r.byName[v.Name()]; exists {
		panic("validators: duplicate registration for " + v.Name())
	}
	r.byName[v.Name()] = v
	r.order = append(r.order, v.Name())
}

// RunAll fans the registered validators out over a bounded errgroup and
// joins before returning, per spec.md section 5's "validators run as a
// fan-out/fan-in within a single job". On cancellation, partial results
// are discarded and the context error is returned.
func (r *Registry) RunAll(ctx context.Context, in Input, maxConcurrency int) (domain.ValidationReport, error) {
	reports := make([]domain.ValidatorReport, len(r.order))
	g, gctx := errgroup.WithContext(ctx)
	if maxConcurrency > 0 {
		g.SetLimit(maxConcurrency)
	}
	for i, name := range r.order {
		i, name := i, name
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			reports[i] = r.byName[name].Validate(gctx, in)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return domain.ValidationReport{}, err
	}
	if err := ctx.Err(); err != nil {
		return domain.ValidationReport{}, err
	}
	return domain.ValidationReport{Reports: reports}, nil
}
