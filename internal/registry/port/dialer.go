package port

import (
	"context"

	"github.com/haintp/go-node-registry/internal/registry/domain"
)

//go:generate mockgen -destination=../service/mocks/dialer_mock.go -package=mocks -source=dialer.go

// Dialer probes a peer endpoint. A nil return means the peer answered.
type Dialer interface {
	Dial(ctx context.Context, endpoint domain.NodeEndpoint) error
}
