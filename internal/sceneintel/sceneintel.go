// Package sceneintel supplies the "scene annotations" spec.md 4.5 says
// V1/V3/V4/V8 consume alongside a CutPlan/RewrittenTimeline: per-segment
// facts about the dramatized world (era, location, characters, props)
// that the text alone cannot carry. Grounded on the reference backend's
// mode-selected-backend-behind-one-interface pattern (same shape as
// versioning's local/GCS Store split): a real provider backed by Cloud
// Video Intelligence's shot-change detection when a source video is
// available, and a synthetic provider derived purely from segment
// timing when it isn't, behind one Provider interface so callers never
// branch on which is wired.
package sceneintel

import (
	"context"
	"strconv"

	"github.com/reelforge/viralcut/internal/domain"
)

// Provider produces one SceneAnnotation per Timeline segment.
type Provider interface {
	Annotate(ctx context.Context, tl domain.Timeline) ([]domain.SceneAnnotation, error)
}

// sceneGapMS is the minimum silence between two segments' timestamps
// that SyntheticProvider treats as a scene break — the same threshold
// V1's spatiotemporal validator uses for "location changed without a
// transport cue," so the synthetic provider and the validator agree on
// what counts as a cut.
const sceneGapMS = 30_000

// SyntheticProvider derives scene boundaries purely from segment
// timing, with no video or external service: a gap of at least
// sceneGapMS between two consecutive segments starts a new scene and
// is tagged with TransportCue so V1 doesn't flag it as an unexplained
// location jump. This is the default when no real video is configured
// (spec.md's original design never assumed a video track was
// available at all; the Video Intelligence path is additive).
type SyntheticProvider struct{}

func NewSyntheticProvider() *SyntheticProvider { return &SyntheticProvider{} }

func (p *SyntheticProvider) Annotate(ctx context.Context, tl domain.Timeline) ([]domain.SceneAnnotation, error) {
	out := make([]domain.SceneAnnotation, 0, len(tl.Segments))
	sceneID := 0
	var prevEnd int64 = -1
	for _, seg := range tl.Segments {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		transport := false
		if prevEnd >= 0 && seg.StartMS-prevEnd >= sceneGapMS {
			sceneID++
			transport = true
		}
		out = append(out, domain.SceneAnnotation{
			SegmentIndex: seg.Index,
			Location:     sceneLabel(sceneID),
			TransportCue: transport,
		})
		prevEnd = seg.EndMS
	}
	return out, nil
}

func sceneLabel(id int) string {
	const letters = "abcdefghijklmnopqrstuvwxyz"
	if id < len(letters) {
		return "scene-" + string(letters[id])
	}
	return "scene-" + string(rune('a'+id%26)) + strconv.Itoa(id/26)
}
