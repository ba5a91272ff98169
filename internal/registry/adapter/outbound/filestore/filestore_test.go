package filestore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haintp/go-node-registry/internal/registry/domain"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	store := New(t.TempDir())

	nodes := []domain.SnapshotNode{
		{URL: "enode://aa@22.99.55.44:7770", Attempts: 3, Failures: 1},
		{URL: "enode://bb@10.0.0.1:30303", Attempts: 0, Failures: 0},
	}
	require.NoError(t, store.Save(context.Background(), nodes))

	loaded, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, nodes, loaded)
}

func TestSaveCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "nodes")
	store := New(dir)

	require.NoError(t, store.Save(context.Background(), []domain.SnapshotNode{}))

	_, err := os.Stat(filepath.Join(dir, "nodes.json"))
	assert.NoError(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	store := New(t.TempDir())

	loaded, err := store.Load(context.Background())
	assert.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestLoadCorruptFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "nodes.json"), []byte("{\"nodes\": oops"), 0644))

	_, err := New(dir).Load(context.Background())
	assert.Error(t, err)
}

func TestLoadEmptyDocument(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "nodes.json"), []byte("{}"), 0644))

	loaded, err := New(dir).Load(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, loaded)
	assert.Empty(t, loaded)
}
