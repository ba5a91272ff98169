package service

import (
	"context"
	"time"

	"github.com/anthanhphan/gosdk/logger"

	"github.com/haintp/go-node-registry/internal/registry/domain"
	"github.com/haintp/go-node-registry/internal/registry/port"
)

// resolveTimeout bounds host resolution for peer announcements.
const resolveTimeout = 5 * time.Second

// DiscoveryService translates gossip membership events into table updates.
// Reserved ids are immune to discovery-driven removal.
type DiscoveryService struct {
	table    port.Registry
	reserved map[domain.NodeID]struct{}
}

func NewDiscoveryService(table port.Registry, reserved []domain.NodeID) *DiscoveryService {
	set := make(map[domain.NodeID]struct{}, len(reserved))
	for _, id := range reserved {
		set[id] = struct{}{}
	}
	return &DiscoveryService{table: table, reserved: set}
}

// PeerJoined upserts the announced peer. The announcement carries the peer's
// enode URL; the gossip node name doubles as the id when the URL omits one.
func (d *DiscoveryService) PeerJoined(name, enodeURL string) {
	ctx, cancel := context.WithTimeout(context.Background(), resolveTimeout)
	defer cancel()

	node, err := domain.ParseNode(ctx, enodeURL)
	if err != nil {
		logger.Warnw("Ignoring malformed peer announcement", "peer", name, "url", enodeURL, "error", err.Error())
		return
	}
	if node.ID.IsZero() {
		id, err := domain.ParseNodeID(name)
		if err != nil {
			logger.Warnw("Ignoring peer announcement without identity", "peer", name, "url", enodeURL)
			return
		}
		node.ID = id
	}

	d.table.Apply(domain.TableUpdates{
		Added: []domain.NodeEntry{{ID: node.ID, Endpoint: node.Endpoint}},
	}, d.reserved)
	logger.Debugw("Peer discovered", "id", node.ID.String(), "addr", node.Endpoint.TCPAddr().String())
}

// PeerLeft removes the peer unless it is reserved.
func (d *DiscoveryService) PeerLeft(name string) {
	id, err := domain.ParseNodeID(name)
	if err != nil {
		logger.Debugw("Ignoring departure of unidentified peer", "peer", name)
		return
	}

	d.table.Apply(domain.TableUpdates{Removed: []domain.NodeID{id}}, d.reserved)
	logger.Debugw("Peer removed by discovery", "id", id.String())
}
