// Package governor implements C2's memory governor: Acquire/Release
// lease semantics over a set of resident GenerationBackends, honoring a
// hard memory ceiling with LRU eviction among non-leased backends.
// Grounded on the reference backend's jobs/worker pool style
// (env-driven sizing, explicit ownership, no global singleton state —
// spec.md 9's "re-architect global process state as an explicitly-owned
// governor with Acquire/Release lease semantics") and on its
// orchestrator engine's backoff-with-jitter retry helper for
// InsufficientMemory callers.
package governor

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/reelforge/viralcut/internal/backend"
	"github.com/reelforge/viralcut/internal/errs"
)

// Factory constructs a backend.Backend for a given language on demand.
// Swapped in by the caller so the governor never hard-codes which
// variant backs a language.
type Factory func(lang string) (backend.Backend, error)

type resident struct {
	b           backend.Backend
	lang        string
	refCount    int
	lastUsedAt  time.Time
	residentMiB int
	rssEMA      float64 // exponential moving average of sampled RSS, MiB
}

// Governor owns the set of resident backends and enforces
// MaxResidentMiB across all of them.
type Governor struct {
	mu   sync.Mutex
	cond *sync.Cond

	maxResidentMiB int
	factory        Factory
	residents      map[string]*resident // keyed by language

	emaAlpha float64
}

// New constructs a Governor with the given hard ceiling (MiB) and
// backend factory.
func New(maxResidentMiB int, factory Factory) *Governor {
	g := &Governor{
		maxResidentMiB: maxResidentMiB,
		factory:        factory,
		residents:      map[string]*resident{},
		emaAlpha:       0.3,
	}
	g.cond = sync.NewCond(&g.mu)
	return g
}

// Lease is a scoped handle over a resident backend. Release must be
// called on every exit path; it decrements the reference count
// atomically and is idempotent.
type Lease struct {
	g        *Governor
	lang     string
	released bool
}

// Backend returns the leased backend. Valid only before Release.
func (l *Lease) Backend() backend.Backend {
	l.g.mu.Lock()
	defer l.g.mu.Unlock()
	r := l.g.residents[l.lang]
	if r == nil {
		return nil
	}
	return r.b
}

// Release decrements the backend's reference count and wakes any
// Acquire callers waiting for eviction headroom.
func (l *Lease) Release() {
	l.g.mu.Lock()
	defer l.g.mu.Unlock()
	if l.released {
		return
	}
	l.released = true
	if r := l.g.residents[l.lang]; r != nil {
		r.refCount--
		r.lastUsedAt = time.Now()
	}
	l.g.cond.Broadcast()
}

// Acquire blocks until a backend matching lang is resident (loading one
// if needed and memory allows) or ctx is canceled. Concurrent Acquires
// for the same language share the resident instance via reference
// counting. Returns errs.KindResource / CodeInsufficientMemory
// (retriable) or CodeBackendLoadFailed (terminal) on failure.
func (g *Governor) Acquire(ctx context.Context, lang string) (*Lease, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if r, ok := g.residents[lang]; ok {
			r.refCount++
			r.lastUsedAt = time.Now()
			return &Lease{g: g, lang: lang}, nil
		}

		need, err := g.declaredSize(lang)
		if err != nil {
			return nil, errs.Resource(errs.CodeBackendLoadFailed, lang, err)
		}
		if need > g.maxResidentMiB {
			return nil, errs.Resource(errs.CodeInsufficientMemory, lang,
				fmt.Errorf("need %d MiB, ceiling %d MiB", need, g.maxResidentMiB))
		}

		if g.residentTotal()+need <= g.maxResidentMiB {
			b, err := g.factory(lang)
			if err != nil {
				return nil, errs.Resource(errs.CodeBackendLoadFailed, lang, err)
			}
			r := &resident{b: b, lang: lang, refCount: 1, lastUsedAt: time.Now(), residentMiB: b.ResidentMiB()}
			r.rssEMA = float64(r.residentMiB)
			g.residents[lang] = r
			return &Lease{g: g, lang: lang}, nil
		}

		if g.evictOne(need) {
			continue // retry the size check with freed headroom
		}

		// No eviction possible: nothing unleased, or nothing frees
		// enough. Block for either a Release or ctx cancellation,
		// whichever comes first.
		done := make(chan struct{})
		go func() {
			select {
			case <-ctx.Done():
				g.mu.Lock()
				g.cond.Broadcast()
				g.mu.Unlock()
			case <-done:
			}
		}()
		g.cond.Wait()
		close(done)

		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !g.canEventuallyFit(need) {
			return nil, errs.Resource(errs.CodeInsufficientMemory, lang,
				fmt.Errorf("need %d MiB, ceiling %d MiB", need, g.maxResidentMiB))
		}
	}
}

// declaredSize probes the factory's declared working-set size without
// committing to residency, by constructing then immediately discarding
// an instance. Cheap for stub/http backends (no weights to load); real
// weight-bearing backends would instead carry a static size table, but
// that table is itself supplied via the Factory closure in practice.
func (g *Governor) declaredSize(lang string) (int, error) {
	b, err := g.factory(lang)
	if err != nil {
		return 0, err
	}
	return b.ResidentMiB(), nil
}

func (g *Governor) residentTotal() int {
	total := 0
	for _, r := range g.residents {
		total += r.residentMiB
	}
	return total
}

// canEventuallyFit reports whether evicting every currently-unleased
// resident would free enough room for need, i.e. whether blocking
// further is meaningful versus reporting InsufficientMemory now.
func (g *Governor) canEventuallyFit(need int) bool {
	freeable := 0
	for _, r := range g.residents {
		if r.refCount == 0 {
			freeable += r.residentMiB
		}
	}
	return g.residentTotal()-freeable+need <= g.maxResidentMiB || len(g.residents) == 0
}

// evictOne evicts the least-recently-used non-leased resident backend.
// Never evicts a leased backend (refCount > 0). Returns true if an
// eviction happened.
func (g *Governor) evictOne(need int) bool {
	type cand struct {
		lang       string
		lastUsedAt time.Time
	}
	var cands []cand
	for lang, r := range g.residents {
		if r.refCount == 0 {
			cands = append(cands, cand{lang, r.lastUsedAt})
		}
	}
	if len(cands) == 0 {
		return false
	}
	sort.Slice(cands, func(i, j int) bool { return cands[i].lastUsedAt.Before(cands[j].lastUsedAt) })
	delete(g.residents, cands[0].lang)
	return true
}

// ObserveRSS feeds a sampled resident-set-size reading (MiB) for lang
// into the backend's EMA, per spec.md 4.2's "actual RSS is sampled and
// fed back into an EMA used to throttle future loads".
func (g *Governor) ObserveRSS(lang string, sampledMiB int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	r, ok := g.residents[lang]
	if !ok {
		return
	}
	r.rssEMA = g.emaAlpha*float64(sampledMiB) + (1-g.emaAlpha)*r.rssEMA
}

// RSSEMA returns the current EMA estimate for lang, or 0 if not resident.
func (g *Governor) RSSEMA(lang string) float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	if r, ok := g.residents[lang]; ok {
		return r.rssEMA
	}
	return 0
}

// ResidentLanguages returns the languages currently resident, for
// diagnostics/tests.
func (g *Governor) ResidentLanguages() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]string, 0, len(g.residents))
	for lang := range g.residents {
		out = append(out, lang)
	}
	sort.Strings(out)
	return out
}
