// Package filestore persists the registry snapshot as a nodes.json file.
package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/haintp/go-node-registry/internal/registry/domain"
	"github.com/haintp/go-node-registry/internal/registry/port"
)

const nodesFile = "nodes.json"

// document is the on-disk snapshot shape.
type document struct {
	Nodes []domain.SnapshotNode `json:"nodes"`
}

// Store writes the snapshot to <dir>/nodes.json, creating dir on demand.
type Store struct {
	dir string
}

var _ port.SnapshotStore = (*Store)(nil)

func New(dir string) *Store {
	return &Store{dir: dir}
}

// Save replaces the snapshot file with the given records.
func (s *Store) Save(ctx context.Context, nodes []domain.SnapshotNode) error {
	if err := os.MkdirAll(s.dir, 0750); err != nil {
		return fmt.Errorf("failed to create node table directory: %w", err)
	}

	data, err := json.MarshalIndent(document{Nodes: nodes}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode node table: %w", err)
	}
	if err := os.WriteFile(filepath.Join(s.dir, nodesFile), data, 0644); err != nil {
		return fmt.Errorf("failed to write node table file: %w", err)
	}
	return nil
}

// Load returns the persisted records, (nil, nil) when no file exists, and an
// error when the file exists but cannot be read or parsed.
func (s *Store) Load(ctx context.Context) ([]domain.SnapshotNode, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, nodesFile))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read node table file: %w", err)
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse node table file: %w", err)
	}
	if doc.Nodes == nil {
		return []domain.SnapshotNode{}, nil
	}
	return doc.Nodes, nil
}
