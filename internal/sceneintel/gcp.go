package sceneintel

import (
	"context"
	"fmt"
	"sort"

	videointelligence "cloud.google.com/go/videointelligence/apiv1"
	"cloud.google.com/go/videointelligence/apiv1/videointelligencepb"

	"github.com/reelforge/viralcut/internal/domain"
	"github.com/reelforge/viralcut/internal/errs"
)

// GCPProvider annotates scenes from Cloud Video Intelligence's
// shot-change-detection results against a source video, grounded on
// the reference backend's bucket-service bootstrap
// (internal/app/storage_provider.go): one already-authenticated client
// wrapped behind the package's own Provider interface, typed bootstrap
// errors on construction.
type GCPProvider struct {
	client   *videointelligence.Client
	videoURI string // gs://bucket/object, the video this provider annotates
}

// NewGCPProvider wraps an already-authenticated client. videoURI names
// a GCS object (gs://bucket/object); the underlying source footage for
// the subtitle track being reconstructed.
func NewGCPProvider(client *videointelligence.Client, videoURI string) *GCPProvider {
	return &GCPProvider{client: client, videoURI: videoURI}
}

// Annotate requests shot-change detection for the configured video and
// maps each shot boundary onto the segments it spans: a segment
// starting inside a new shot relative to the previous segment gets
// TransportCue set and a new Location label, mirroring
// SyntheticProvider's scene-id convention so V1 doesn't need to know
// which provider ran.
func (p *GCPProvider) Annotate(ctx context.Context, tl domain.Timeline) ([]domain.SceneAnnotation, error) {
	op, err := p.client.AnnotateVideo(ctx, &videointelligencepb.AnnotateVideoRequest{
		InputUri: p.videoURI,
		Features: []videointelligencepb.Feature{videointelligencepb.Feature_SHOT_CHANGE_DETECTION},
	})
	if err != nil {
		return nil, errs.Resource(errs.CodeBackendLoadFailed, p.videoURI, fmt.Errorf("annotate video: %w", err))
	}
	resp, err := op.Wait(ctx)
	if err != nil {
		return nil, errs.Resource(errs.CodeBackendLoadFailed, p.videoURI, fmt.Errorf("await video annotation: %w", err))
	}

	shotStartsMS := shotBoundaries(resp)
	out := make([]domain.SceneAnnotation, 0, len(tl.Segments))
	sceneID := -1
	for _, seg := range tl.Segments {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		idx := shotIndexFor(shotStartsMS, seg.StartMS)
		transport := idx != sceneID && sceneID != -1
		sceneID = idx
		out = append(out, domain.SceneAnnotation{
			SegmentIndex: seg.Index,
			Location:     sceneLabel(idx),
			TransportCue: transport,
		})
	}
	return out, nil
}

func (p *GCPProvider) Close() error { return p.client.Close() }

// shotBoundaries extracts every shot's start time, in milliseconds,
// sorted ascending, from an AnnotateVideoResponse.
func shotBoundaries(resp *videointelligencepb.AnnotateVideoResponse) []int64 {
	var starts []int64
	for _, result := range resp.GetAnnotationResults() {
		for _, shot := range result.GetShotAnnotations() {
			off := shot.GetStartTimeOffset()
			starts = append(starts, off.AsDuration().Milliseconds())
		}
	}
	sort.Slice(starts, func(i, j int) bool { return starts[i] < starts[j] })
	return starts
}

// shotIndexFor returns the zero-based index of the last shot boundary
// at or before tMS — the shot a timestamp falls within (0 when none is).
func shotIndexFor(starts []int64, tMS int64) int {
	idx := 0
	for _, s := range starts {
		if s <= tMS {
			idx++
			continue
		}
		break
	}
	if idx == 0 {
		return 0
	}
	return idx - 1
}
