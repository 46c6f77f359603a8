package main

import (
	"context"
	"fmt"
	"strings"

	"cloud.google.com/go/storage"
	videointelligence "cloud.google.com/go/videointelligence/apiv1"

	"github.com/reelforge/viralcut/internal/backend"
	"github.com/reelforge/viralcut/internal/backend/httpbackend"
	"github.com/reelforge/viralcut/internal/backend/stub"
	"github.com/reelforge/viralcut/internal/config"
	"github.com/reelforge/viralcut/internal/coordinator"
	"github.com/reelforge/viralcut/internal/governor"
	"github.com/reelforge/viralcut/internal/platform/logger"
	"github.com/reelforge/viralcut/internal/sceneintel"
	"github.com/reelforge/viralcut/internal/validators"
	"github.com/reelforge/viralcut/internal/versioning"
)

// app bundles every long-lived collaborator the CLI's subcommands
// share, wired explicitly at startup — the same composition-root idiom
// the reference backend's app package uses, narrowed to this CLI's
// needs (no HTTP server, no auth, no billing).
type app struct {
	cfg         *config.Config
	log         *logger.Logger
	store       versioning.Store
	tree        *versioning.Tree
	coord       *coordinator.Coordinator
	closeScenes func()
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	store, err := openStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open snapshot store: %w", err)
	}

	// No diversity checker wired at the CLI composition root: a real
	// EmbeddingDiversity needs a resolved GenerationBackend and a
	// running per-leaf text index, neither of which exist until a
	// reconstruct job picks a language; Take() degrades to
	// "never rejects, never tags near_duplicate" without one.
	var diversity versioning.DiversityChecker
	tree, err := versioning.NewTree(ctx, store, secretKeyBytes(cfg), diversity)
	if err != nil {
		return nil, fmt.Errorf("load version tree: %w", err)
	}

	gov := governor.New(cfg.MaxResidentMemoryMiB, backendFactory(cfg))
	router := governor.NewRouter(gov)
	reg := validators.NewRegistry()

	coord := coordinator.New(router, reg, tree, cfg.JobWorkers, log)

	scenes, closeScenes, err := sceneProvider(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("init scene provider: %w", err)
	}
	coord.WithSceneProvider(scenes)
	coord.Start(ctx)

	return &app{cfg: cfg, log: log, store: store, tree: tree, coord: coord, closeScenes: closeScenes}, nil
}

func (a *app) Close() {
	a.coord.Stop()
	if a.closeScenes != nil {
		a.closeScenes()
	}
	a.log.Sync()
}

// sceneProvider picks the scene-annotation provider per cfg.VideoURI:
// GCPProvider against real source footage when configured, otherwise
// the synthetic fallback. The returned close func tears down the GCP
// client, if one was created; nil otherwise.
func sceneProvider(ctx context.Context, cfg *config.Config) (sceneintel.Provider, func(), error) {
	if cfg.VideoURI == "" {
		return sceneintel.NewSyntheticProvider(), nil, nil
	}
	client, err := videointelligence.NewClient(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("init video intelligence client: %w", err)
	}
	p := sceneintel.NewGCPProvider(client, cfg.VideoURI)
	return p, func() { _ = p.Close() }, nil
}

// treeApp is the lighter composition used by verify/snapshot/audit,
// which only ever touch the version store and tree — spinning up the
// governor and worker pool for them would acquire resources no code
// path in those commands releases.
type treeApp struct {
	cfg  *config.Config
	tree *versioning.Tree
}

func newTreeApp(ctx context.Context) (*treeApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	store, err := openStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open snapshot store: %w", err)
	}
	tree, err := versioning.NewTree(ctx, store, secretKeyBytes(cfg), nil)
	if err != nil {
		return nil, fmt.Errorf("load version tree: %w", err)
	}
	return &treeApp{cfg: cfg, tree: tree}, nil
}

// openTreeAt builds a standalone store+tree rooted at an arbitrary
// directory, for `verify <path>` which names its own path rather than
// the configured SNAPSHOT_DIR/ANCHOR_DIR.
func openTreeAt(ctx context.Context, path string, secretKey []byte) (*versioning.Tree, error) {
	store, err := versioning.NewLocalStore(path, path+"/.anchors")
	if err != nil {
		return nil, fmt.Errorf("open store at %s: %w", path, err)
	}
	return versioning.NewTree(ctx, store, secretKey, nil)
}

// openStore routes to the GCS-backed store when SnapshotDir names a
// "gs://bucket/prefix" location, otherwise a local-disk store rooted at
// SnapshotDir/AnchorDir.
func openStore(ctx context.Context, cfg *config.Config) (versioning.Store, error) {
	if strings.HasPrefix(cfg.SnapshotDir, "gs://") {
		bucket, prefix, err := parseGCSURI(cfg.SnapshotDir)
		if err != nil {
			return nil, err
		}
		client, err := storage.NewClient(ctx)
		if err != nil {
			return nil, err
		}
		anchorPrefix := prefix + "/anchors"
		blobPrefix := prefix + "/blobs"
		return versioning.NewGCSStore(client, bucket, blobPrefix, anchorPrefix), nil
	}
	return versioning.NewLocalStore(cfg.SnapshotDir, cfg.AnchorDir)
}

func parseGCSURI(uri string) (bucket, prefix string, err error) {
	rest := strings.TrimPrefix(uri, "gs://")
	parts := strings.SplitN(rest, "/", 2)
	if parts[0] == "" {
		return "", "", fmt.Errorf("invalid gs:// uri %q: missing bucket", uri)
	}
	bucket = parts[0]
	if len(parts) == 2 {
		prefix = strings.TrimSuffix(parts[1], "/")
	}
	if prefix == "" {
		prefix = "viralcut"
	}
	return bucket, prefix, nil
}

func secretKeyBytes(cfg *config.Config) []byte {
	if cfg.SecretKey == "" {
		return nil
	}
	return []byte(cfg.SecretKey)
}

// backendFactory resolves a language to a GenerationBackend: an HTTP
// backend when BACKEND_BASE_URL is configured, otherwise the
// deterministic stub (spec.md 4.2's VariantStub/VariantFull split).
func backendFactory(cfg *config.Config) governor.Factory {
	return func(lang string) (backend.Backend, error) {
		if cfg.BackendBaseURL == "" {
			return stub.New(lang), nil
		}
		return httpbackend.New(httpbackend.Config{
			BaseURL: cfg.BackendBaseURL,
			APIKey:  cfg.BackendAPIKey,
			Model:   cfg.BackendModel,
			Lang:    lang,
		})
	}
}
