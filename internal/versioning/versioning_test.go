package versioning

import (
	"context"
	"encoding/json"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/reelforge/viralcut/internal/domain"
)

func newTestTree(t *testing.T, secretKey []byte, diversity DiversityChecker) (*Tree, *LocalStore) {
	t.Helper()
	dir := t.TempDir()
	store, err := NewLocalStore(dir+"/blobs", dir+"/anchors")
	require.NoError(t, err)
	tree, err := NewTree(context.Background(), store, secretKey, diversity)
	require.NoError(t, err)
	return tree, store
}

func sampleRewritten(text string) domain.RewrittenTimeline {
	return domain.RewrittenTimeline{
		Language: domain.LanguageEN,
		Segments: []domain.RewrittenSegment{
			{Segment: domain.Segment{Index: 1, StartMS: 0, EndMS: 1000, Text: text}},
		},
	}
}

func TestTake_Restore_RoundTrip(t *testing.T) {
	tree, _ := newTestTree(t, nil, nil)
	ctx := context.Background()

	node, err := tree.Take(ctx, sampleRewritten("hello world"), "reconstruct", domain.VersionLinear, domain.BlobRewrittenTimeline, "first take", nil, "")
	require.NoError(t, err)
	require.NotEmpty(t, node.ID)
	require.NotEmpty(t, node.ContentHash)

	raw, err := tree.Restore(ctx, node.ID)
	require.NoError(t, err)

	var rt domain.RewrittenTimeline
	require.NoError(t, json.Unmarshal(raw, &rt))
	require.Equal(t, "hello world", rt.Segments[0].Text)
}

func TestAudit_DetectsTamperedByteFlip(t *testing.T) {
	tree, store := newTestTree(t, nil, nil)
	ctx := context.Background()

	node, err := tree.Take(ctx, sampleRewritten("untampered content"), "reconstruct", domain.VersionLinear, domain.BlobRewrittenTimeline, "", nil, "")
	require.NoError(t, err)

	path := store.blobPath(node.ID)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	flipped := append([]byte(nil), data...)
	// flip a byte inside the JSON content payload
	i := strings.Index(string(flipped), "untampered")
	require.GreaterOrEqual(t, i, 0)
	flipped[i] = 'X'
	require.NoError(t, os.WriteFile(path, flipped, 0o644))

	report, err := tree.Audit(ctx)
	require.NoError(t, err)
	require.False(t, report.Accepted())
	require.Contains(t, report.TamperedFiles, node.ID)
}

func TestDelete_RefusesCurrentCursor(t *testing.T) {
	tree, _ := newTestTree(t, nil, nil)
	ctx := context.Background()
	node, err := tree.Take(ctx, sampleRewritten("x"), "op", domain.VersionLinear, domain.BlobRewrittenTimeline, "", nil, "")
	require.NoError(t, err)

	err = tree.Delete(ctx, node.ID, false)
	require.Error(t, err)
}

func TestHistory_RootToNodePath(t *testing.T) {
	tree, _ := newTestTree(t, nil, nil)
	ctx := context.Background()
	n1, err := tree.Take(ctx, sampleRewritten("a"), "op1", domain.VersionLinear, domain.BlobRewrittenTimeline, "", nil, "")
	require.NoError(t, err)
	n2, err := tree.Take(ctx, sampleRewritten("b"), "op2", domain.VersionLinear, domain.BlobRewrittenTimeline, "", nil, n1.ID)
	require.NoError(t, err)

	path, err := tree.History(n2.ID)
	require.NoError(t, err)
	require.Len(t, path, 2)
	require.Equal(t, n1.ID, path[0].ID)
	require.Equal(t, n2.ID, path[1].ID)
}

func TestAnchors_ConsistencyCheckSurfacesOrphans(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStore(dir+"/blobs", dir+"/anchors")
	require.NoError(t, err)
	ctx := context.Background()
	tree, err := NewTree(ctx, store, nil, nil)
	require.NoError(t, err)
	anchors := NewAnchors(store, tree)

	node, err := tree.Take(ctx, sampleRewritten("a"), "op", domain.VersionLinear, domain.BlobRewrittenTimeline, "", nil, "")
	require.NoError(t, err)
	_, err = anchors.Pin(ctx, node.ID, domain.AnchorMilestone, 5, nil)
	require.NoError(t, err)

	require.NoError(t, tree.store.DeleteBlob(ctx, node.ID))
	delete(tree.nodes, node.ID)

	report, err := anchors.CheckConsistency(ctx)
	require.NoError(t, err)
	require.Len(t, report.OrphanAnchors, 1)
}

// S6: diversity rejection. Re-snapshotting identical content is either
// rejected or tagged near_duplicate.
func TestTake_DiversityGateTagsNearDuplicate(t *testing.T) {
	leafText := map[string]string{}
	diversity := NewEmbeddingDiversity(nil, 0.65, leafText)
	tree, _ := newTestTree(t, nil, diversity)
	ctx := context.Background()

	n1, err := tree.Take(ctx, sampleRewritten("identical phrase over and over"), "reconstruct", domain.VersionLinear, domain.BlobRewrittenTimeline, "", nil, "")
	require.NoError(t, err)
	leafText[n1.ID] = "identical phrase over and over"

	n2, err := tree.Take(ctx, sampleRewritten("identical phrase over and over"), "reconstruct", domain.VersionLinear, domain.BlobRewrittenTimeline, "", nil, n1.ID)
	require.NoError(t, err)
	require.True(t, n2.NearDup)
	require.Contains(t, n2.Tags, "near_duplicate")
}

func TestSign_TamperedSignatureDetected(t *testing.T) {
	tree, store := newTestTree(t, []byte("secret"), nil)
	ctx := context.Background()
	node, err := tree.Take(ctx, sampleRewritten("signed content"), "op", domain.VersionLinear, domain.BlobRewrittenTimeline, "", nil, "")
	require.NoError(t, err)
	require.NotEmpty(t, node.Signature)

	b, err := store.ReadBlob(ctx, node.ID)
	require.NoError(t, err)
	b.Content = json.RawMessage(`{"language":"en","segments":[{"index":1,"start_ms":0,"end_ms":1000,"text":"tampered"}]}`)
	// keep the on-disk hash consistent so only the signature disagrees
	b.Node.ContentHash = contentHash(b.Content)
	require.NoError(t, store.WriteBlob(ctx, b))

	_, err = tree.Restore(ctx, node.ID)
	require.Error(t, err)

	report, err := tree.Audit(ctx)
	require.NoError(t, err)
	require.Contains(t, report.TamperedFiles, node.ID)
}
