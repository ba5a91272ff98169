package app

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/anthanhphan/gosdk/logger"
	"github.com/redis/go-redis/v9"

	http_handler "github.com/haintp/go-node-registry/internal/registry/adapter/inbound/http"
	"github.com/haintp/go-node-registry/internal/registry/adapter/outbound/filestore"
	"github.com/haintp/go-node-registry/internal/registry/adapter/outbound/healthdial"
	"github.com/haintp/go-node-registry/internal/registry/adapter/outbound/redisstore"
	"github.com/haintp/go-node-registry/internal/registry/config"
	"github.com/haintp/go-node-registry/internal/registry/domain"
	"github.com/haintp/go-node-registry/internal/registry/port"
	"github.com/haintp/go-node-registry/internal/registry/service"
	"github.com/haintp/go-node-registry/pkg/gossip"
	"github.com/haintp/go-node-registry/pkg/ipfilter"
)

type App struct {
	cfg           *config.Config
	table         *service.TableService
	scheduler     *service.DialScheduler
	gossip        *gossip.Adapter
	server        *http_handler.Server
	prober        *healthdial.Prober
	redisClient   *redis.Client
	schedulerStop context.CancelFunc
}

func New(configPath string) (*App, error) {
	// 1. Load Config
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// 2. Initialize Logger
	logger.InitLogger(&cfg.Logger)

	// 3. IP Policy
	filter, err := ipfilter.New(cfg.Netrestrict.Predefined, cfg.Netrestrict.Allow, cfg.Netrestrict.Block)
	if err != nil {
		return nil, fmt.Errorf("invalid netrestrict config: %w", err)
	}

	// 4. Snapshot Store
	var redisClient *redis.Client
	var store port.SnapshotStore
	switch cfg.Table.Backend {
	case "file":
		store = filestore.New(cfg.Table.DataDir)
	case "redis":
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		store = redisstore.New(redisClient, cfg.Table.RedisKey)
	case "none":
		store = nil
	default:
		return nil, fmt.Errorf("unknown table backend %q", cfg.Table.Backend)
	}

	// bootCtx bounds the host resolution done while loading the snapshot
	// and parsing bootnodes, so a hostname record cannot stall startup.
	bootCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// 5. Node Table (loads the snapshot)
	table := service.NewTableService(bootCtx, store)

	// 6. Bootnodes are added up front and protected from discovery removal.
	reserved := make([]domain.NodeID, 0, len(cfg.Table.Bootnodes))
	for _, url := range cfg.Table.Bootnodes {
		node, err := domain.ParseNode(bootCtx, url)
		if err != nil {
			return nil, fmt.Errorf("invalid bootnode %q: %w", url, err)
		}
		table.Add(node)
		reserved = append(reserved, node.ID)
	}

	// 7. Local identity and announcement
	nodeID := domain.RandomNodeID()
	if cfg.Server.NodeID != "" {
		nodeID, err = domain.ParseNodeID(cfg.Server.NodeID)
		if err != nil {
			return nil, fmt.Errorf("invalid server node_id: %w", err)
		}
	}
	selfEndpoint, err := domain.ResolveEndpoint(bootCtx, net.JoinHostPort(cfg.Server.Hostname, strconv.Itoa(cfg.Server.Port)))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve local endpoint: %w", err)
	}
	selfEndpoint.UDPPort = uint16(cfg.Gossip.Port)
	self := domain.NewNode(nodeID, selfEndpoint)

	// 8. Gossip discovery
	disc := service.NewDiscoveryService(table, reserved)
	gossipAdapter, err := gossip.NewAdapter(nodeID.String(), cfg.Server.Hostname, cfg.Gossip.Port, self.URL(), disc)
	if err != nil {
		return nil, fmt.Errorf("failed to init gossip: %w", err)
	}

	// 9. Dial scheduler
	prober := healthdial.New()
	scheduler := service.NewDialScheduler(table, prober, filter, service.DialConfig{
		Interval:          time.Duration(cfg.Dial.IntervalMS) * time.Millisecond,
		Timeout:           time.Duration(cfg.Dial.TimeoutMS) * time.Millisecond,
		Workers:           cfg.Dial.Workers,
		MaxDials:          cfg.Dial.MaxDials,
		UselessAfter:      cfg.Dial.UselessAfter,
		RetryUselessEvery: cfg.Dial.RetryUselessEvery,
	})

	// 10. Admin API
	server := http_handler.NewServer(cfg.Server.AdminAddr, table, filter)

	return &App{
		cfg:         cfg,
		table:       table,
		scheduler:   scheduler,
		gossip:      gossipAdapter,
		server:      server,
		prober:      prober,
		redisClient: redisClient,
	}, nil
}

func (a *App) Run() error {
	// Join the gossip cluster, skipping our own seed entry.
	seeds := make([]string, 0, len(a.cfg.Gossip.Seeds))
	selfSeedSuffix := fmt.Sprintf(":%d", a.cfg.Gossip.Port)
	for _, seed := range a.cfg.Gossip.Seeds {
		if seed == "" {
			continue
		}
		if strings.HasSuffix(seed, selfSeedSuffix) && strings.Contains(seed, a.cfg.Server.Hostname) {
			continue
		}
		seeds = append(seeds, seed)
	}

	if len(seeds) > 0 {
		var joinErr error
		for i := 0; i < 5; i++ {
			joinErr = a.gossip.Join(seeds)
			if joinErr == nil {
				break
			}
			logger.Warnw("Failed to join cluster, retrying...", "attempt", i+1, "error", joinErr.Error())
			time.Sleep(2 * time.Second)
		}
		if joinErr != nil {
			logger.Errorw("Failed to join cluster after retries", "error", joinErr.Error())
		}
	}

	logger.Infow("Node registry starting",
		"admin", a.cfg.Server.AdminAddr,
		"gossip", a.cfg.Gossip.Port,
		"backend", a.cfg.Table.Backend)

	// Dial scheduler
	schedCtx, cancel := context.WithCancel(context.Background())
	a.schedulerStop = cancel
	go a.scheduler.Run(schedCtx)

	// Admin API
	serverErrCh := make(chan error, 1)
	go func() {
		if err := a.server.Start(); err != nil {
			serverErrCh <- err
		}
	}()

	// Wait for shutdown signal
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	var runErr error
	select {
	case sig := <-stop:
		logger.Infow("Shutdown signal received", "signal", sig.String())
	case err := <-serverErrCh:
		runErr = fmt.Errorf("admin server failed: %w", err)
		logger.Errorw("Admin server exited unexpectedly", "error", err.Error())
	}

	logger.Info("Shutting down registry")
	if a.schedulerStop != nil {
		a.schedulerStop()
	}
	if err := a.gossip.Leave(); err != nil {
		logger.Warnw("Gossip leave failed", "error", err.Error())
	}
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := a.server.Stop(shutdownCtx); err != nil {
		logger.Warnw("Admin server shutdown failed", "error", err.Error())
	}
	if err := a.prober.Close(); err != nil {
		logger.Warnw("Prober close failed", "error", err.Error())
	}

	// Final snapshot before exit.
	a.table.Close(shutdownCtx)

	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			logger.Warnw("Redis close failed", "error", err.Error())
		}
	}
	return runErr
}
