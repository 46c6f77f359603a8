package main

import (
	"context"
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/reelforge/viralcut/internal/domain"
	"github.com/reelforge/viralcut/internal/versioning"
)

// captureStdout runs fn with os.Stdout redirected to a pipe and
// returns everything written to it.
func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	r, w, err := os.Pipe()
	require.NoError(t, err)
	orig := os.Stdout
	os.Stdout = w
	defer func() { os.Stdout = orig }()

	fn()

	require.NoError(t, w.Close())
	out, err := io.ReadAll(r)
	require.NoError(t, err)
	return string(out)
}

func TestVerifyCmd_CleanStoreExitsQuietly(t *testing.T) {
	dir := t.TempDir()
	store, err := versioning.NewLocalStore(dir, dir+"/.anchors")
	require.NoError(t, err)
	tree, err := versioning.NewTree(context.Background(), store, nil, nil)
	require.NoError(t, err)

	_, err = tree.Take(context.Background(), domain.RewrittenTimeline{Language: domain.LanguageEN},
		"op", domain.VersionLinear, domain.BlobRewrittenTimeline, "", nil, "")
	require.NoError(t, err)

	cmd := newVerifyCmd()
	cmd.SetArgs([]string{dir})

	out := captureStdout(t, func() {
		require.NoError(t, cmd.Execute())
	})
	require.Contains(t, out, "tampered_files")
}

func TestSnapshotListCmd_TabularOutput(t *testing.T) {
	dirBlobs := t.TempDir()
	t.Setenv("SNAPSHOT_DIR", dirBlobs)
	t.Setenv("ANCHOR_DIR", t.TempDir())

	store, err := versioning.NewLocalStore(dirBlobs, dirBlobs+"/.anchors")
	require.NoError(t, err)
	tree, err := versioning.NewTree(context.Background(), store, nil, nil)
	require.NoError(t, err)
	node, err := tree.Take(context.Background(), domain.RewrittenTimeline{Language: domain.LanguageEN},
		"op", domain.VersionLinear, domain.BlobRewrittenTimeline, "", nil, "")
	require.NoError(t, err)

	cmd := newSnapshotListCmd()
	cmd.SetArgs([]string{})
	out := captureStdout(t, func() {
		require.NoError(t, cmd.Execute())
	})
	require.Contains(t, out, node.ID)
}
