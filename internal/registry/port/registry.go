package port

import (
	"context"

	"github.com/haintp/go-node-registry/internal/registry/domain"
	"github.com/haintp/go-node-registry/pkg/ipfilter"
)

// Registry is the node table: the sole owner of the peer record set, keyed by
// node id. It is safe for concurrent use.
type Registry interface {
	// Add inserts or replaces a record by id. Replacing preserves the
	// existing attempt/failure counters so re-adding a peer never resets
	// its history.
	Add(node domain.Node)

	// NodeIDs returns node ids in ranked order, excluding useless peers
	// and peers rejected by the filter.
	NodeIDs(filter ipfilter.Filter) []domain.NodeID

	// Entries returns all non-useless entries in ranked order.
	Entries() []domain.NodeEntry

	// Get returns a copy of the record for id.
	Get(id domain.NodeID) (domain.Node, bool)

	// UpdateNode mutates the record for id in place under the table lock.
	// It reports whether the id was present.
	UpdateNode(id domain.NodeID, fn func(*domain.Node)) bool

	// Contains reports membership.
	Contains(id domain.NodeID) bool

	// Apply applies one batch of discovery updates. Added entries upsert
	// the endpoint and preserve counters; removed ids are deleted unless
	// reserved.
	Apply(updates domain.TableUpdates, reserved map[domain.NodeID]struct{})

	// NoteAttempt increments the attempt counter for id; no-op if absent.
	NoteAttempt(id domain.NodeID)

	// NoteFailure increments the failure counter for id; no-op if absent.
	NoteFailure(id domain.NodeID)

	// MarkUseless excludes id from ranked output until ClearUseless.
	MarkUseless(id domain.NodeID)

	// ClearUseless empties the exclusion set.
	ClearUseless()

	// Save writes the current snapshot through the store, if one is
	// configured. Storage failures are logged, never fatal.
	Save(ctx context.Context)

	// Close performs the final save.
	Close(ctx context.Context)
}
