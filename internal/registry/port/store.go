package port

import (
	"context"

	"github.com/haintp/go-node-registry/internal/registry/domain"
)

//go:generate mockgen -destination=../service/mocks/store_mock.go -package=mocks -source=store.go

// SnapshotStore persists the registry snapshot in durable storage.
type SnapshotStore interface {
	// Save writes the full snapshot, replacing any previous one.
	Save(ctx context.Context, nodes []domain.SnapshotNode) error

	// Load returns the persisted snapshot, or (nil, nil) when none exists.
	Load(ctx context.Context) ([]domain.SnapshotNode, error)
}
