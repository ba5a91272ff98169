// Package redisstore keeps the registry snapshot in a Redis key, for
// deployments without durable local disk.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/haintp/go-node-registry/internal/registry/domain"
	"github.com/haintp/go-node-registry/internal/registry/port"
)

// document mirrors the filestore snapshot shape so backends stay
// interchangeable.
type document struct {
	Nodes []domain.SnapshotNode `json:"nodes"`
}

type Store struct {
	client *redis.Client
	key    string
}

var _ port.SnapshotStore = (*Store)(nil)

func New(client *redis.Client, key string) *Store {
	return &Store{client: client, key: key}
}

func (s *Store) Save(ctx context.Context, nodes []domain.SnapshotNode) error {
	data, err := json.Marshal(document{Nodes: nodes})
	if err != nil {
		return fmt.Errorf("failed to encode node table: %w", err)
	}
	if err := s.client.Set(ctx, s.key, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to store node table at %q: %w", s.key, err)
	}
	return nil
}

func (s *Store) Load(ctx context.Context) ([]domain.SnapshotNode, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch node table from %q: %w", s.key, err)
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse node table at %q: %w", s.key, err)
	}
	if doc.Nodes == nil {
		return []domain.SnapshotNode{}, nil
	}
	return doc.Nodes, nil
}
