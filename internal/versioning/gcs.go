package versioning

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"

	"github.com/reelforge/viralcut/internal/domain"
	"github.com/reelforge/viralcut/internal/errs"
)

// GCSStore satisfies Store against a Cloud Storage bucket, for
// deployments that want snapshots durable outside the local disk.
// Grounded on the reference backend's bucket-service bootstrap
// (internal/app/storage_provider.go, internal/platform/gcp/storage_mode.go):
// mode-selected backend behind one interface, typed bootstrap errors.
type GCSStore struct {
	client       *storage.Client
	bucket       string
	blobPrefix   string
	anchorPrefix string
}

// NewGCSStore wraps an already-authenticated *storage.Client. Callers
// typically obtain client via storage.NewClient(ctx) with application
// default credentials.
func NewGCSStore(client *storage.Client, bucket, blobPrefix, anchorPrefix string) *GCSStore {
	return &GCSStore{client: client, bucket: bucket, blobPrefix: strings.TrimSuffix(blobPrefix, "/"), anchorPrefix: strings.TrimSuffix(anchorPrefix, "/")}
}

func (g *GCSStore) object(name string) *storage.ObjectHandle {
	return g.client.Bucket(g.bucket).Object(name)
}

func (g *GCSStore) WriteBlob(ctx context.Context, b Blob) error {
	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return errs.Internal(errs.CodePlannerError, b.Node.ID, err)
	}
	return g.writeObject(ctx, fmt.Sprintf("%s/%s.json", g.blobPrefix, b.Node.ID), data)
}

func (g *GCSStore) ReadBlob(ctx context.Context, id string) (Blob, error) {
	data, err := g.readObject(ctx, fmt.Sprintf("%s/%s.json", g.blobPrefix, id))
	if err != nil {
		return Blob{}, err
	}
	var b Blob
	if err := json.Unmarshal(data, &b); err != nil {
		return Blob{}, errs.Integrity(errs.CodeContentHashMismatch, id, fmt.Errorf("corrupt blob object: %w", err))
	}
	return b, nil
}

func (g *GCSStore) DeleteBlob(ctx context.Context, id string) error {
	if err := g.object(fmt.Sprintf("%s/%s.json", g.blobPrefix, id)).Delete(ctx); err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return errs.Resource(errs.CodeDiskFull, id, err)
	}
	return nil
}

func (g *GCSStore) ListBlobIDs(ctx context.Context) ([]string, error) {
	return g.listIDs(ctx, g.blobPrefix)
}

func (g *GCSStore) WriteAnchor(ctx context.Context, a domain.VersionAnchor) error {
	data, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return errs.Internal(errs.CodePlannerError, a.ID, err)
	}
	return g.writeObject(ctx, fmt.Sprintf("%s/%s.json", g.anchorPrefix, a.ID), data)
}

func (g *GCSStore) ListAnchors(ctx context.Context) ([]domain.VersionAnchor, error) {
	ids, err := g.listIDs(ctx, g.anchorPrefix)
	if err != nil {
		return nil, err
	}
	var out []domain.VersionAnchor
	for _, id := range ids {
		data, err := g.readObject(ctx, fmt.Sprintf("%s/%s.json", g.anchorPrefix, id))
		if err != nil {
			return nil, err
		}
		var a domain.VersionAnchor
		if err := json.Unmarshal(data, &a); err != nil {
			return nil, errs.Integrity(errs.CodeContentHashMismatch, id, err)
		}
		out = append(out, a)
	}
	return out, nil
}

func (g *GCSStore) DeleteAnchor(ctx context.Context, id string) error {
	if err := g.object(fmt.Sprintf("%s/%s.json", g.anchorPrefix, id)).Delete(ctx); err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return errs.Resource(errs.CodeDiskFull, id, err)
	}
	return nil
}

func (g *GCSStore) writeObject(ctx context.Context, name string, data []byte) error {
	w := g.object(name).NewWriter(ctx)
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return errs.Resource(errs.CodeDiskFull, name, err)
	}
	if err := w.Close(); err != nil {
		return errs.Resource(errs.CodeDiskFull, name, err)
	}
	return nil
}

func (g *GCSStore) readObject(ctx context.Context, name string) ([]byte, error) {
	r, err := g.object(name).NewReader(ctx)
	if err != nil {
		return nil, errs.Resource(errs.CodeDiskFull, name, err)
	}
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errs.Resource(errs.CodeDiskFull, name, err)
	}
	return data, nil
}

func (g *GCSStore) listIDs(ctx context.Context, prefix string) ([]string, error) {
	it := g.client.Bucket(g.bucket).Objects(ctx, &storage.Query{Prefix: prefix + "/"})
	var ids []string
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, errs.Resource(errs.CodeDiskFull, prefix, err)
		}
		name := strings.TrimPrefix(attrs.Name, prefix+"/")
		name = strings.TrimSuffix(name, ".json")
		if name != "" {
			ids = append(ids, name)
		}
	}
	return ids, nil
}
