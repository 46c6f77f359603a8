// Package stub implements a deterministic, network-free backend.Backend,
// grounded on the reference backend's inference/engine/mock Engine: a
// SHA-256-hash-derived embedding and a content-addressed, reproducible
// text transform instead of real model inference. This is what spec.md
// 4.2's VariantStub names, and it is what P8 (reconstruction is
// deterministic for fixed input+params+seed) ultimately rests on.
package stub

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/reelforge/viralcut/internal/backend"
)

// Backend is a deterministic, hash-derived GenerationBackend.
type Backend struct {
	lang string
	dims int
}

// New constructs a stub backend serving the given language ("zh", "en",
// or "" to serve both, mirroring VariantStub's behavior in spec.md 4.2).
func New(lang string) *Backend {
	return &Backend{lang: lang, dims: 16}
}

func (b *Backend) Variant() backend.Variant { return backend.VariantStub }
func (b *Backend) Language() string         { return b.lang }
func (b *Backend) ResidentMiB() int         { return 32 }

func (b *Backend) Analyze(ctx context.Context, text, lang string) (backend.SemanticSignals, error) {
	if err := ctx.Err(); err != nil {
		return backend.SemanticSignals{}, err
	}
	h := sha256.Sum256([]byte(lang + "\x00" + text))
	f := func(off int) float64 {
		u := binary.LittleEndian.Uint32(h[off%len(h):])
		return float64(u%10_000) / 10_000.0
	}
	return backend.SemanticSignals{
		Positive:   f(0),
		Negative:   f(4),
		Intense:    f(8),
		Conflict:   f(12),
		Resolution: f(16),
	}, nil
}

func (b *Backend) Rewrite(ctx context.Context, text string, params backend.RewriteParams, lang string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	// Deterministic, content-preserving: the stub never invents prose,
	// it only decorates — the real invariant (original text retained
	// verbatim as a substring) is enforced by the caller regardless.
	return fmt.Sprintf("[%s/%s] %s", strings.ToLower(params.Stage), strings.ToLower(params.Style), text), nil
}

func (b *Backend) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([][]float64, len(texts))
	for i, s := range texts {
		h := sha256.Sum256([]byte(s))
		vec := make([]float64, b.dims)
		for j := 0; j < b.dims; j++ {
			u := binary.LittleEndian.Uint32(h[(j*4)%len(h):])
			vec[j] = float64(u%10_000)/10_000.0 - 0.5
		}
		out[i] = vec
	}
	return out, nil
}
