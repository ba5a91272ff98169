package service

import (
	"context"
	"sort"
	"sync"

	"github.com/anthanhphan/gosdk/logger"

	"github.com/haintp/go-node-registry/internal/registry/domain"
	"github.com/haintp/go-node-registry/internal/registry/port"
	"github.com/haintp/go-node-registry/pkg/ipfilter"
)

// maxSnapshotNodes caps how many records a snapshot keeps; only the top
// ranked entries survive a save.
const maxSnapshotNodes = 1024

// TableService tracks known peers, ranks them by observed reliability and
// persists them through the snapshot store. A nil store makes the table
// memory-only.
type TableService struct {
	mu      sync.RWMutex
	nodes   map[domain.NodeID]*domain.Node
	useless map[domain.NodeID]struct{}
	store   port.SnapshotStore
}

var _ port.Registry = (*TableService)(nil)

// NewTableService creates the table and loads any persisted snapshot. A
// missing or corrupt snapshot yields an empty table, never an error.
func NewTableService(ctx context.Context, store port.SnapshotStore) *TableService {
	t := &TableService{
		nodes:   make(map[domain.NodeID]*domain.Node),
		useless: make(map[domain.NodeID]struct{}),
		store:   store,
	}
	t.load(ctx)
	return t
}

func (t *TableService) load(ctx context.Context) {
	if t.store == nil {
		return
	}
	records, err := t.store.Load(ctx)
	if err != nil {
		logger.Warnw("Failed to load node snapshot, starting empty", "error", err.Error())
		return
	}
	if records == nil {
		logger.Debugw("No node snapshot found, starting empty")
		return
	}
	for _, record := range records {
		node, err := domain.ParseNode(ctx, record.URL)
		if err != nil {
			logger.Debugw("Skipping unparsable node record", "url", record.URL, "error", err.Error())
			continue
		}
		node.Attempts = record.Attempts
		node.Failures = record.Failures
		t.nodes[node.ID] = &node
	}
	logger.Infow("Loaded node snapshot", "nodes", len(t.nodes))
}

// Add inserts or replaces a record by id, carrying the previous counters into
// the replacement.
func (t *TableService) Add(node domain.Node) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if prev, ok := t.nodes[node.ID]; ok {
		node.Attempts = prev.Attempts
		node.Failures = prev.Failures
	}
	t.nodes[node.ID] = &node
}

// orderedLocked returns all non-useless records ranked ascending by failure
// percentage, then absolute failures, then attempts descending (a peer proven
// over many tries outranks one that merely hasn't failed yet).
func (t *TableService) orderedLocked() []*domain.Node {
	refs := make([]*domain.Node, 0, len(t.nodes))
	for id, node := range t.nodes {
		if _, excluded := t.useless[id]; !excluded {
			refs = append(refs, node)
		}
	}

	sort.SliceStable(refs, func(i, j int) bool {
		pi, pj := refs[i].FailurePercentage(), refs[j].FailurePercentage()
		if pi != pj {
			return pi < pj
		}
		if refs[i].Failures != refs[j].Failures {
			return refs[i].Failures < refs[j].Failures
		}
		return refs[i].Attempts > refs[j].Attempts
	})
	return refs
}

// NodeIDs returns ranked node ids whose endpoints pass the filter.
func (t *TableService) NodeIDs(filter ipfilter.Filter) []domain.NodeID {
	t.mu.RLock()
	defer t.mu.RUnlock()

	ordered := t.orderedLocked()
	ids := make([]domain.NodeID, 0, len(ordered))
	for _, node := range ordered {
		if filter.Allowed(node.Endpoint.IP) {
			ids = append(ids, node.ID)
		}
	}
	return ids
}

// Entries returns all non-useless entries in ranked order.
func (t *TableService) Entries() []domain.NodeEntry {
	t.mu.RLock()
	defer t.mu.RUnlock()

	ordered := t.orderedLocked()
	entries := make([]domain.NodeEntry, 0, len(ordered))
	for _, node := range ordered {
		entries = append(entries, domain.NodeEntry{ID: node.ID, Endpoint: node.Endpoint})
	}
	return entries
}

// Get returns a copy of the record for id.
func (t *TableService) Get(id domain.NodeID) (domain.Node, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	node, ok := t.nodes[id]
	if !ok {
		return domain.Node{}, false
	}
	return *node, true
}

// UpdateNode mutates the record for id under the table lock.
func (t *TableService) UpdateNode(id domain.NodeID, fn func(*domain.Node)) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	node, ok := t.nodes[id]
	if !ok {
		return false
	}
	fn(node)
	return true
}

// Contains reports membership.
func (t *TableService) Contains(id domain.NodeID) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	_, ok := t.nodes[id]
	return ok
}

// Apply applies discovery updates: added entries upsert the endpoint while
// preserving counters, removed ids are deleted unless reserved.
func (t *TableService) Apply(updates domain.TableUpdates, reserved map[domain.NodeID]struct{}) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, entry := range updates.Added {
		if node, ok := t.nodes[entry.ID]; ok {
			node.Endpoint = entry.Endpoint
			continue
		}
		node := domain.NewNode(entry.ID, entry.Endpoint)
		t.nodes[entry.ID] = &node
	}
	for _, id := range updates.Removed {
		if _, ok := reserved[id]; ok {
			continue
		}
		delete(t.nodes, id)
	}
}

// NoteAttempt increments the attempt counter for id if present. A report
// racing with removal is expected and harmless.
func (t *TableService) NoteAttempt(id domain.NodeID) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if node, ok := t.nodes[id]; ok {
		node.Attempts++
	}
}

// NoteFailure increments the failure counter for id if present.
func (t *TableService) NoteFailure(id domain.NodeID) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if node, ok := t.nodes[id]; ok {
		node.Failures++
	}
}

// MarkUseless excludes id from ranked output until ClearUseless. The record
// stays in the table with its counters intact.
func (t *TableService) MarkUseless(id domain.NodeID) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.useless[id] = struct{}{}
}

// ClearUseless empties the exclusion set so excluded peers are dialed again.
func (t *TableService) ClearUseless() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.useless = make(map[domain.NodeID]struct{})
}

// Save writes the ranked top entries through the store. Storage failures are
// logged and the table keeps operating in memory.
func (t *TableService) Save(ctx context.Context) {
	if t.store == nil {
		return
	}

	t.mu.RLock()
	ordered := t.orderedLocked()
	if len(ordered) > maxSnapshotNodes {
		ordered = ordered[:maxSnapshotNodes]
	}
	records := make([]domain.SnapshotNode, 0, len(ordered))
	for _, node := range ordered {
		records = append(records, domain.SnapshotNode{
			URL:      node.URL(),
			Attempts: node.Attempts,
			Failures: node.Failures,
		})
	}
	t.mu.RUnlock()

	if err := t.store.Save(ctx, records); err != nil {
		logger.Warnw("Failed to save node snapshot", "error", err.Error())
	}
}

// Close performs the final save. Callers invoke it on shutdown; it is a
// convenience, not the only durability point.
func (t *TableService) Close(ctx context.Context) {
	t.Save(ctx)
}
