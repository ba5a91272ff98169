package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/anthanhphan/gosdk/logger"

	"github.com/haintp/go-node-registry/internal/registry/domain"
	"github.com/haintp/go-node-registry/internal/registry/port"
	"github.com/haintp/go-node-registry/pkg/ipfilter"
	"github.com/haintp/go-node-registry/pkg/resilience"
)

// DialConfig tunes the dial scheduler.
type DialConfig struct {
	// Interval between sweeps over the ranked candidate list.
	Interval time.Duration
	// Timeout for a single dial.
	Timeout time.Duration
	// Workers bounds concurrent dials.
	Workers int
	// MaxDials caps how many candidates one sweep takes from the ranking.
	MaxDials int
	// UselessAfter marks a peer useless after this many failed dials in a
	// row.
	UselessAfter int
	// RetryUselessEvery clears the useless set every N sweeps so excluded
	// peers get another chance.
	RetryUselessEvery int
}

func (c DialConfig) withDefaults() DialConfig {
	if c.Interval <= 0 {
		c.Interval = 30 * time.Second
	}
	if c.Timeout <= 0 {
		c.Timeout = 5 * time.Second
	}
	if c.Workers <= 0 {
		c.Workers = 4
	}
	if c.MaxDials <= 0 {
		c.MaxDials = 16
	}
	if c.UselessAfter <= 0 {
		c.UselessAfter = 3
	}
	if c.RetryUselessEvery <= 0 {
		c.RetryUselessEvery = 10
	}
	return c
}

// DialScheduler periodically takes the best ranked, policy-allowed peers from
// the table and probes them through the dialer, feeding attempt and failure
// outcomes back into the table.
type DialScheduler struct {
	table   port.Registry
	dialer  port.Dialer
	filter  ipfilter.Filter
	cfg     DialConfig
	pool    *resilience.WorkerPool
	breaker *resilience.CircuitBreaker

	mu      sync.Mutex
	strikes map[domain.NodeID]int
}

func NewDialScheduler(table port.Registry, dialer port.Dialer, filter ipfilter.Filter, cfg DialConfig) *DialScheduler {
	cfg = cfg.withDefaults()
	return &DialScheduler{
		table:   table,
		dialer:  dialer,
		filter:  filter,
		cfg:     cfg,
		pool:    resilience.NewWorkerPool(cfg.Workers, cfg.MaxDials),
		breaker: resilience.NewCircuitBreaker("dial", cfg.MaxDials, cfg.Interval),
		strikes: make(map[domain.NodeID]int),
	}
}

// Run sweeps until ctx is canceled.
func (s *DialScheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()
	defer s.pool.Close()

	sweeps := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		sweeps++
		if sweeps%s.cfg.RetryUselessEvery == 0 {
			s.table.ClearUseless()
			s.mu.Lock()
			s.strikes = make(map[domain.NodeID]int)
			s.mu.Unlock()
			logger.Debugw("Cleared useless peer set", "sweep", sweeps)
		}
		s.Sweep(ctx)
	}
}

// Sweep dials the current best candidates once and waits for the outcomes.
func (s *DialScheduler) Sweep(ctx context.Context) {
	ids := s.table.NodeIDs(s.filter)
	if len(ids) > s.cfg.MaxDials {
		ids = ids[:s.cfg.MaxDials]
	}

	var wg sync.WaitGroup
	dialed := 0
	for _, id := range ids {
		node, ok := s.table.Get(id)
		if !ok || !node.Endpoint.IsValid() {
			continue
		}

		id, endpoint := id, node.Endpoint
		wg.Add(1)
		err := s.pool.Submit(ctx, func() {
			defer wg.Done()
			s.dialOne(ctx, id, endpoint)
		})
		if err != nil {
			wg.Done()
			break
		}
		dialed++
	}
	wg.Wait()

	if dialed > 0 {
		logger.Debugw("Dial sweep finished", "candidates", len(ids), "dialed", dialed)
	}
}

func (s *DialScheduler) dialOne(ctx context.Context, id domain.NodeID, endpoint domain.NodeEndpoint) {
	err := s.breaker.Execute(ctx, func(ctx context.Context) error {
		dialCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()

		s.table.NoteAttempt(id)
		return s.dialer.Dial(dialCtx, endpoint)
	})
	if err == nil {
		s.mu.Lock()
		delete(s.strikes, id)
		s.mu.Unlock()
		return
	}
	if errors.Is(err, resilience.ErrCircuitOpen) || errors.Is(err, context.Canceled) {
		return
	}

	s.table.NoteFailure(id)
	logger.Debugw("Peer dial failed", "id", id.String(), "addr", endpoint.TCPAddr().String(), "error", err.Error())

	s.mu.Lock()
	s.strikes[id]++
	exclude := s.strikes[id] >= s.cfg.UselessAfter
	if exclude {
		delete(s.strikes, id)
	}
	s.mu.Unlock()

	if exclude {
		s.table.MarkUseless(id)
		logger.Infow("Peer marked useless", "id", id.String(), "addr", endpoint.TCPAddr().String())
	}
}
