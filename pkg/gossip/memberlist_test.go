package gossip

import (
	"encoding/json"
	"testing"

	"github.com/hashicorp/memberlist"
)

type recordingSink struct {
	joined map[string]string
	left   []string
}

func newRecordingSink() *recordingSink {
	return &recordingSink{joined: make(map[string]string)}
}

func (s *recordingSink) PeerJoined(name, enodeURL string) { s.joined[name] = enodeURL }
func (s *recordingSink) PeerLeft(name string)             { s.left = append(s.left, name) }

func TestDecodeMeta(t *testing.T) {
	data, _ := json.Marshal(peerMeta{EnodeURL: "enode://aa@1.2.3.4:30303"})

	if url := decodeMeta(data); url != "enode://aa@1.2.3.4:30303" {
		t.Errorf("expected announced url, got %q", url)
	}
	if url := decodeMeta(nil); url != "" {
		t.Errorf("expected empty url for empty meta, got %q", url)
	}
	if url := decodeMeta([]byte("not json")); url != "" {
		t.Errorf("expected empty url for garbage meta, got %q", url)
	}
}

func TestAdapter_NodeMeta(t *testing.T) {
	a := &Adapter{
		nodeID:   "self",
		enodeURL: "enode://bb@10.0.0.1:30303",
	}

	data := a.NodeMeta(memberlist.MetaMaxSize)
	var m peerMeta
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatal(err)
	}
	if m.EnodeURL != a.enodeURL {
		t.Errorf("expected %q, got %q", a.enodeURL, m.EnodeURL)
	}

	if data := a.NodeMeta(4); data != nil {
		t.Errorf("expected nil meta over the size limit, got %d bytes", len(data))
	}
}

func TestAdapter_NotifyJoinLeave(t *testing.T) {
	sink := newRecordingSink()
	a := &Adapter{nodeID: "self", sink: sink}

	meta, _ := json.Marshal(peerMeta{EnodeURL: "enode://cc@10.0.0.2:30303"})
	a.NotifyJoin(&memberlist.Node{Name: "peer-1", Meta: meta})

	if sink.joined["peer-1"] != "enode://cc@10.0.0.2:30303" {
		t.Errorf("expected join for peer-1, got %v", sink.joined)
	}

	// Self and meta-less nodes never reach the sink.
	a.NotifyJoin(&memberlist.Node{Name: "self", Meta: meta})
	a.NotifyJoin(&memberlist.Node{Name: "peer-2"})
	if len(sink.joined) != 1 {
		t.Errorf("expected a single join, got %v", sink.joined)
	}

	a.NotifyLeave(&memberlist.Node{Name: "peer-1"})
	a.NotifyLeave(&memberlist.Node{Name: "self"})
	if len(sink.left) != 1 || sink.left[0] != "peer-1" {
		t.Errorf("expected leave for peer-1 only, got %v", sink.left)
	}
}

func TestAdapter_NotifyUpdate(t *testing.T) {
	sink := newRecordingSink()
	a := &Adapter{nodeID: "self", sink: sink}

	meta, _ := json.Marshal(peerMeta{EnodeURL: "enode://dd@10.0.0.3:30303"})
	a.NotifyUpdate(&memberlist.Node{Name: "peer-3", Meta: meta})

	if sink.joined["peer-3"] != "enode://dd@10.0.0.3:30303" {
		t.Errorf("expected update to re-announce peer-3, got %v", sink.joined)
	}
}
