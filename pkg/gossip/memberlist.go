// Package gossip announces the local node over memberlist and feeds peer
// join/leave events into a sink.
package gossip

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/anthanhphan/gosdk/logger"
	"github.com/hashicorp/memberlist"
)

// Sink receives membership events. The name is the remote's gossip name (the
// peer's hex node id); the URL is its announced enode address.
type Sink interface {
	PeerJoined(name, enodeURL string)
	PeerLeft(name string)
}

// Adapter wraps memberlist: the gossip name carries the node id, the node
// meta carries the enode URL.
type Adapter struct {
	list *memberlist.Memberlist
	conf *memberlist.Config
	sink Sink

	nodeID   string
	enodeURL string
}

// Ensure Adapter implements the memberlist delegates.
var _ memberlist.Delegate = (*Adapter)(nil)
var _ memberlist.EventDelegate = (*Adapter)(nil)

func NewAdapter(nodeID, bindAddr string, bindPort int, enodeURL string, sink Sink) (*Adapter, error) {
	config := memberlist.DefaultLANConfig()
	config.Name = nodeID
	config.BindAddr = bindAddr
	config.BindPort = bindPort
	config.AdvertisePort = bindPort

	// Disable memberlist's own logging.
	config.LogOutput = io.Discard

	adapter := &Adapter{
		conf:     config,
		sink:     sink,
		nodeID:   nodeID,
		enodeURL: enodeURL,
	}

	config.Events = adapter   // Handle join/leave events
	config.Delegate = adapter // Handle metadata exchange

	list, err := memberlist.Create(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create memberlist: %w", err)
	}
	adapter.list = list

	return adapter, nil
}

// Join joins the cluster using seed nodes.
func (a *Adapter) Join(seeds []string) error {
	if len(seeds) > 0 {
		if _, err := a.list.Join(seeds); err != nil {
			return fmt.Errorf("failed to join cluster: %w", err)
		}
	}
	return nil
}

// Leave gracefully leaves the cluster.
func (a *Adapter) Leave() error {
	if err := a.list.Leave(5 * time.Second); err != nil {
		return err
	}
	return a.list.Shutdown()
}

type peerMeta struct {
	EnodeURL string `json:"enode_url"`
}

// NodeMeta returns the local node metadata.
func (a *Adapter) NodeMeta(limit int) []byte {
	data, err := json.Marshal(peerMeta{EnodeURL: a.enodeURL})
	if err != nil {
		logger.Warnw("failed to marshal gossip node meta", "error", err.Error())
		return nil
	}
	if len(data) > limit {
		logger.Warnw("gossip node meta exceeds limit", "size", len(data), "limit", limit)
		return nil
	}
	return data
}

// NotifyMsg, GetBroadcasts, LocalState, MergeRemoteState are not used here
// but required by Delegate.
func (a *Adapter) NotifyMsg([]byte)                           {}
func (a *Adapter) GetBroadcasts(overhead, limit int) [][]byte { return nil }
func (a *Adapter) LocalState(join bool) []byte                { return nil }
func (a *Adapter) MergeRemoteState(buf []byte, join bool)     {}

// Members returns the enode URLs currently announced in the cluster,
// excluding the local node.
func (a *Adapter) Members() []string {
	members := a.list.Members()
	urls := make([]string, 0, len(members))
	for _, m := range members {
		if m.Name == a.nodeID {
			continue
		}
		if url := decodeMeta(m.Meta); url != "" {
			urls = append(urls, url)
		}
	}
	return urls
}

// NotifyJoin is invoked when a node joins.
func (a *Adapter) NotifyJoin(node *memberlist.Node) {
	if node.Name == a.nodeID {
		return
	}
	url := decodeMeta(node.Meta)
	if url == "" {
		logger.Debugw("Peer joined without announcement meta", "peer", node.Name)
		return
	}
	a.sink.PeerJoined(node.Name, url)
}

// NotifyLeave is invoked when a node leaves.
func (a *Adapter) NotifyLeave(node *memberlist.Node) {
	if node.Name == a.nodeID {
		return
	}
	a.sink.PeerLeft(node.Name)
}

// NotifyUpdate is invoked when a node's metadata changes.
func (a *Adapter) NotifyUpdate(node *memberlist.Node) {
	a.NotifyJoin(node)
}

func decodeMeta(meta []byte) string {
	if len(meta) == 0 {
		return ""
	}
	var m peerMeta
	if err := json.Unmarshal(meta, &m); err != nil {
		logger.Warnw("failed to decode peer metadata", "error", err.Error())
		return ""
	}
	return m.EnodeURL
}
