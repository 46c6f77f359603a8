// Package backend defines the GenerationBackend capability set C3 and C6
// consume, directly grounded on the reference backend's inference/engine
// Engine interface (Embed/GenerateText/StreamText) — narrowed to the
// three verbs this pipeline actually calls: analyze, rewrite, embed.
package backend

import "context"

// SemanticSignals is P1's per-segment output when delegated to a
// backend instead of the lexicon-based default (spec.md 4.3, P1).
type SemanticSignals struct {
	Positive   float64 `json:"positive"`
	Negative   float64 `json:"negative"`
	Intense    float64 `json:"intense"`
	Conflict   float64 `json:"conflict"`
	Resolution float64 `json:"resolution"`
}

// RewriteParams parameterizes a single backend.rewrite call: the style
// requested on the CLI (viral|formal|...) and the transform stage that
// is asking (so a real backend can prompt differently per stage).
type RewriteParams struct {
	Style string
	Stage string
}

// Variant names the four backend variants of spec.md 4.2. The router
// (C2) never inspects which variant is loaded; it only asks the
// governor for one tagged with the requested language.
type Variant string

const (
	VariantStub        Variant = "stub"
	VariantQuantizedZH Variant = "quantized-zh"
	VariantQuantizedEN Variant = "quantized-en"
	VariantFull        Variant = "full"
)

// Backend is the capability set a GenerationBackend exposes to the
// pipeline. Implementations must be internally thread-safe for
// concurrent read-only calls per spec.md section 5.
type Backend interface {
	// Variant reports which of the four variants this instance is, for
	// governor bookkeeping and logging.
	Variant() Variant

	// Language reports the language this instance serves (zh or en);
	// VariantStub serves both.
	Language() string

	// ResidentMiB is the backend's declared working-set size, used by
	// the governor's advisory memory accounting (spec.md 4.2).
	ResidentMiB() int

	Analyze(ctx context.Context, text, lang string) (SemanticSignals, error)
	Rewrite(ctx context.Context, text string, params RewriteParams, lang string) (string, error)
	Embed(ctx context.Context, texts []string) ([][]float64, error)
}
