package versioning

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/reelforge/viralcut/internal/domain"
	"github.com/reelforge/viralcut/internal/errs"
)

// Anchors manages the out-of-tree metadata marker namespace (spec.md
// 4.6 "Metadata anchors"): pinned to a node id, queryable by kind,
// fingerprint prefix, or ancestry, and kept in a store separate from
// the blob tree so a tree rebuild never loses anchor history.
type Anchors struct {
	store Store
	tree  *Tree
}

func NewAnchors(store Store, tree *Tree) *Anchors {
	return &Anchors{store: store, tree: tree}
}

// Pin creates an anchor on nodeID.
func (a *Anchors) Pin(ctx context.Context, nodeID string, kind domain.AnchorKind, importance int, data map[string]any) (domain.VersionAnchor, error) {
	if err := a.errIfMissing(ctx, nodeID); err != nil {
		return domain.VersionAnchor{}, err
	}
	anchor := domain.VersionAnchor{
		ID:         uuid.NewString(),
		NodeID:     nodeID,
		Kind:       kind,
		Importance: importance,
		Data:       data,
		CreatedAt:  timeNow(),
	}
	if err := a.store.WriteAnchor(ctx, anchor); err != nil {
		return domain.VersionAnchor{}, err
	}
	return anchor, nil
}

// ByKind lists anchors of the given kind.
func (a *Anchors) ByKind(ctx context.Context, kind domain.AnchorKind) ([]domain.VersionAnchor, error) {
	all, err := a.store.ListAnchors(ctx)
	if err != nil {
		return nil, err
	}
	var out []domain.VersionAnchor
	for _, anc := range all {
		if anc.Kind == kind {
			out = append(out, anc)
		}
	}
	return out, nil
}

// ByFingerprintPrefix lists anchors whose pinned node's content hash
// starts with prefix.
func (a *Anchors) ByFingerprintPrefix(ctx context.Context, prefix string) ([]domain.VersionAnchor, error) {
	all, err := a.store.ListAnchors(ctx)
	if err != nil {
		return nil, err
	}
	var out []domain.VersionAnchor
	for _, anc := range all {
		a.tree.mu.RLock()
		node, ok := a.tree.nodes[anc.NodeID]
		a.tree.mu.RUnlock()
		if ok && strings.HasPrefix(node.ContentHash, prefix) {
			out = append(out, anc)
		}
	}
	return out, nil
}

// ByAncestry lists anchors pinned to any ancestor of nodeID, including
// nodeID itself.
func (a *Anchors) ByAncestry(ctx context.Context, nodeID string) ([]domain.VersionAnchor, error) {
	path, err := a.tree.History(nodeID)
	if err != nil {
		return nil, err
	}
	ancestors := map[string]bool{}
	for _, n := range path {
		ancestors[n.ID] = true
	}
	all, err := a.store.ListAnchors(ctx)
	if err != nil {
		return nil, err
	}
	var out []domain.VersionAnchor
	for _, anc := range all {
		if ancestors[anc.NodeID] {
			out = append(out, anc)
		}
	}
	return out, nil
}

// ConsistencyReport lists anchors whose NodeID no longer resolves in
// the tree — orphan anchors, surfaced rather than silently deleted
// (spec.md 4.6).
type ConsistencyReport struct {
	OrphanAnchors []domain.VersionAnchor
}

func (a *Anchors) CheckConsistency(ctx context.Context) (ConsistencyReport, error) {
	all, err := a.store.ListAnchors(ctx)
	if err != nil {
		return ConsistencyReport{}, err
	}
	var report ConsistencyReport
	a.tree.mu.RLock()
	defer a.tree.mu.RUnlock()
	for _, anc := range all {
		if _, ok := a.tree.nodes[anc.NodeID]; !ok {
			report.OrphanAnchors = append(report.OrphanAnchors, anc)
		}
	}
	return report, nil
}

func (a *Anchors) errIfMissing(ctx context.Context, nodeID string) error {
	a.tree.mu.RLock()
	_, ok := a.tree.nodes[nodeID]
	a.tree.mu.RUnlock()
	if !ok {
		return errs.Integrity(errs.CodeOrphanAnchor, nodeID, fmt.Errorf("anchor target does not exist in tree"))
	}
	return nil
}
