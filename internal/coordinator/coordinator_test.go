package coordinator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/reelforge/viralcut/internal/backend"
	"github.com/reelforge/viralcut/internal/backend/stub"
	"github.com/reelforge/viralcut/internal/domain"
	"github.com/reelforge/viralcut/internal/errs"
	"github.com/reelforge/viralcut/internal/governor"
	"github.com/reelforge/viralcut/internal/validators"
	"github.com/reelforge/viralcut/internal/versioning"
)

const sampleSRT = `1
00:00:00,000 --> 00:00:03,000
The weather was great today

2
00:00:03,000 --> 00:00:06,000
Suddenly everything changed

3
00:00:06,000 --> 00:00:09,000
We finally resolved our argument
`

func newTestCoordinator(t *testing.T) *Coordinator {
	t.Helper()
	gov := governor.New(3800, func(lang string) (backend.Backend, error) {
		return stub.New(lang), nil
	})
	router := governor.NewRouter(gov)
	reg := validators.NewRegistry()

	dir := t.TempDir()
	store, err := versioning.NewLocalStore(dir+"/blobs", dir+"/anchors")
	require.NoError(t, err)
	tree, err := versioning.NewTree(context.Background(), store, nil, nil)
	require.NoError(t, err)

	c := New(router, reg, tree, 2, nil)
	c.Start(context.Background())
	t.Cleanup(c.Stop)
	return c
}

// S1: zh/en minimal seed scenario (english variant here). Expected:
// CutPlan contains exactly three cuts whose source intervals union is
// [0,9000]ms; no validator reports critical; a version node is returned.
func TestSubmit_EndToEndProducesThreeCutsAndSnapshot(t *testing.T) {
	c := newTestCoordinator(t)

	res, err := c.Submit(context.Background(), Job{SRT: []byte(sampleSRT), Style: "viral", LangOverride: "en"})
	require.NoError(t, err)
	require.Len(t, res.Plan.Cuts, 3)
	require.Equal(t, int64(0), res.Plan.Cuts[0].SrcStartMS)
	require.Equal(t, int64(9000), res.Plan.Cuts[len(res.Plan.Cuts)-1].SrcEndMS)
	require.True(t, res.Validation.Accepted())
	require.NotEmpty(t, res.VersionNode.ID)
}

func TestSubmit_MalformedSRTIsInputError(t *testing.T) {
	c := newTestCoordinator(t)
	_, err := c.Submit(context.Background(), Job{SRT: []byte("not an srt file at all"), Style: "viral"})
	require.Error(t, err)
	var e *errs.Error
	require.ErrorAs(t, err, &e)
	require.Equal(t, errs.KindInput, e.Kind)
}

type stubSceneProvider struct {
	calls int
	anns  []domain.SceneAnnotation
}

func (s *stubSceneProvider) Annotate(ctx context.Context, tl domain.Timeline) ([]domain.SceneAnnotation, error) {
	s.calls++
	return s.anns, nil
}

// A job that supplies no Scenes falls back to the coordinator's
// configured provider; one that does supply Scenes bypasses it.
func TestSubmit_FallsBackToSceneProviderOnlyWhenJobOmitsScenes(t *testing.T) {
	c := newTestCoordinator(t)
	prov := &stubSceneProvider{anns: []domain.SceneAnnotation{{SegmentIndex: 1, Location: "scene-a"}}}
	c.WithSceneProvider(prov)

	_, err := c.Submit(context.Background(), Job{SRT: []byte(sampleSRT), Style: "viral", LangOverride: "en"})
	require.NoError(t, err)
	require.Equal(t, 1, prov.calls)

	_, err = c.Submit(context.Background(), Job{
		SRT: []byte(sampleSRT), Style: "viral", LangOverride: "en",
		Scenes: []domain.SceneAnnotation{{SegmentIndex: 1, Location: "scene-z"}},
	})
	require.NoError(t, err)
	require.Equal(t, 1, prov.calls)
}
