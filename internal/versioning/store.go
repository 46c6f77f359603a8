// Package versioning implements C6: a content-addressed version tree
// with a diversity gate, tamper detection, and an out-of-tree anchor
// store. Grounded on the reference backend's object-storage bootstrap
// pattern (internal/app/storage_provider.go: a typed bootstrap error,
// mode-selected backend) generalized here to a local-disk store with
// an optional GCS-backed implementation behind the same interface.
package versioning

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/google/renameio/v2"

	"github.com/reelforge/viralcut/internal/domain"
	"github.com/reelforge/viralcut/internal/errs"
)

// Blob is a stored node: its content bytes alongside the VersionNode
// metadata record.
type Blob struct {
	Node    domain.VersionNode `json:"node"`
	Content json.RawMessage    `json:"content"`
}

// Store persists blobs and anchors. LocalStore is the default
// implementation; GCSStore (gcs.go) satisfies the same interface for
// deployments that snapshot to a bucket instead of local disk.
type Store interface {
	WriteBlob(ctx context.Context, b Blob) error
	ReadBlob(ctx context.Context, id string) (Blob, error)
	DeleteBlob(ctx context.Context, id string) error
	ListBlobIDs(ctx context.Context) ([]string, error)

	WriteAnchor(ctx context.Context, a domain.VersionAnchor) error
	ListAnchors(ctx context.Context) ([]domain.VersionAnchor, error)
	DeleteAnchor(ctx context.Context, id string) error
}

// LocalStore persists blobs and anchors as one JSON file per record
// under dir, using renameio for atomic, torn-write-free replacement —
// the reference backend reaches for the same atomic-rename pattern in
// its config snapshotting. Safe for concurrent use.
type LocalStore struct {
	mu        sync.RWMutex
	blobDir   string
	anchorDir string
}

// NewLocalStore creates the blob and anchor directories under blobDir
// and anchorDir if absent.
func NewLocalStore(blobDir, anchorDir string) (*LocalStore, error) {
	if err := os.MkdirAll(blobDir, 0o755); err != nil {
		return nil, errs.Resource(errs.CodeDiskFull, blobDir, err)
	}
	if err := os.MkdirAll(anchorDir, 0o755); err != nil {
		return nil, errs.Resource(errs.CodeDiskFull, anchorDir, err)
	}
	return &LocalStore{blobDir: blobDir, anchorDir: anchorDir}, nil
}

func (s *LocalStore) blobPath(id string) string {
	return filepath.Join(s.blobDir, id+".json")
}

func (s *LocalStore) anchorPath(id string) string {
	return filepath.Join(s.anchorDir, id+".json")
}

func (s *LocalStore) WriteBlob(_ context.Context, b Blob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return errs.Internal(errs.CodePlannerError, b.Node.ID, err)
	}
	if err := renameio.WriteFile(s.blobPath(b.Node.ID), data, 0o644); err != nil {
		return errs.Resource(errs.CodeDiskFull, b.Node.ID, err)
	}
	return nil
}

func (s *LocalStore) ReadBlob(_ context.Context, id string) (Blob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, err := os.ReadFile(s.blobPath(id))
	if err != nil {
		return Blob{}, errs.Resource(errs.CodeDiskFull, id, err)
	}
	var b Blob
	if err := json.Unmarshal(data, &b); err != nil {
		return Blob{}, errs.Integrity(errs.CodeContentHashMismatch, id, fmt.Errorf("corrupt blob record: %w", err))
	}
	return b, nil
}

func (s *LocalStore) DeleteBlob(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(s.blobPath(id)); err != nil && !os.IsNotExist(err) {
		return errs.Resource(errs.CodeDiskFull, id, err)
	}
	return nil
}

func (s *LocalStore) ListBlobIDs(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries, err := os.ReadDir(s.blobDir)
	if err != nil {
		return nil, errs.Resource(errs.CodeDiskFull, s.blobDir, err)
	}
	var ids []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(e.Name(), ".json"))
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *LocalStore) WriteAnchor(_ context.Context, a domain.VersionAnchor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return errs.Internal(errs.CodePlannerError, a.ID, err)
	}
	if err := renameio.WriteFile(s.anchorPath(a.ID), data, 0o644); err != nil {
		return errs.Resource(errs.CodeDiskFull, a.ID, err)
	}
	return nil
}

func (s *LocalStore) ListAnchors(_ context.Context) ([]domain.VersionAnchor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries, err := os.ReadDir(s.anchorDir)
	if err != nil {
		return nil, errs.Resource(errs.CodeDiskFull, s.anchorDir, err)
	}
	var out []domain.VersionAnchor
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.anchorDir, e.Name()))
		if err != nil {
			return nil, errs.Resource(errs.CodeDiskFull, e.Name(), err)
		}
		var a domain.VersionAnchor
		if err := json.Unmarshal(data, &a); err != nil {
			return nil, errs.Integrity(errs.CodeContentHashMismatch, e.Name(), err)
		}
		out = append(out, a)
	}
	return out, nil
}

func (s *LocalStore) DeleteAnchor(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(s.anchorPath(id)); err != nil && !os.IsNotExist(err) {
		return errs.Resource(errs.CodeDiskFull, id, err)
	}
	return nil
}

func contentHash(content []byte) string {
	h := sha256.Sum256(content)
	return hex.EncodeToString(h[:])
}
