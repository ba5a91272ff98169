// Package healthdial probes peers with a gRPC health check against their TCP
// endpoint.
package healthdial

import (
	"context"
	"fmt"
	"sync"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health/grpc_health_v1"

	"github.com/haintp/go-node-registry/internal/registry/domain"
	"github.com/haintp/go-node-registry/internal/registry/port"
)

// Prober implements port.Dialer. Connections are cached per target; gRPC
// reconnects them under the hood between probes.
type Prober struct {
	mu    sync.RWMutex
	conns map[string]*grpc.ClientConn
}

var _ port.Dialer = (*Prober)(nil)

func New() *Prober {
	return &Prober{conns: make(map[string]*grpc.ClientConn)}
}

func (p *Prober) getConn(target string) (*grpc.ClientConn, error) {
	p.mu.RLock()
	conn, ok := p.conns[target]
	p.mu.RUnlock()
	if ok {
		return conn, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	// Double check
	if conn, ok := p.conns[target]; ok {
		return conn, nil
	}

	// Probes run in the clear; peers only answer the health service.
	conn, err := grpc.NewClient(target, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", target, err)
	}
	p.conns[target] = conn
	return conn, nil
}

// Dial checks the peer's health service and fails unless it reports SERVING.
func (p *Prober) Dial(ctx context.Context, endpoint domain.NodeEndpoint) error {
	target := endpoint.TCPAddr().String()
	conn, err := p.getConn(target)
	if err != nil {
		return err
	}

	resp, err := grpc_health_v1.NewHealthClient(conn).Check(ctx, &grpc_health_v1.HealthCheckRequest{})
	if err != nil {
		return fmt.Errorf("health check failed for %s: %w", target, err)
	}
	if resp.GetStatus() != grpc_health_v1.HealthCheckResponse_SERVING {
		return fmt.Errorf("peer %s is not serving: %s", target, resp.GetStatus())
	}
	return nil
}

// Close tears down all cached connections.
func (p *Prober) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var firstErr error
	for target, conn := range p.conns {
		if err := conn.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(p.conns, target)
	}
	return firstErr
}
