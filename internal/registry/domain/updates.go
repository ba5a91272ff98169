package domain

// NodeEntry is the id/endpoint pair exchanged with the discovery layer.
type NodeEntry struct {
	ID       NodeID
	Endpoint NodeEndpoint
}

// TableUpdates is one batch of discovery results pushed at the node table:
// peers seen alive and peers reported gone.
type TableUpdates struct {
	Added   []NodeEntry
	Removed []NodeID
}

// SnapshotNode is one persisted registry record.
type SnapshotNode struct {
	URL      string `json:"url"`
	Attempts uint32 `json:"attempts"`
	Failures uint32 `json:"failures"`
}
