package service

import (
	"context"

	"github.com/agent-diff/internal/adapter"
	"github.com/agent-diff/internal/analyzer"
	"github.com/agent-diff/internal/config"
	"github.com/agent-diff/internal/logging"
	"github.com/agent-diff/internal/storage"
)

// Bootstrap wires the diff pipeline from configuration, shared by the CLI
// and the API server. The returned cleanup closes every opened connection
// in reverse order.
func Bootstrap(cfg *config.Config, logger *logging.Logger) (*DiffService, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	provider, err := adapter.NewRPCProvider(cfg.Chain.RPCPrimary, cfg.Chain.RPCSecondary)
	if err != nil {
		return nil, cleanup, err
	}

	chainClient, err := adapter.NewChainClient(&adapter.ChainClientConfig{
		Provider:          provider,
		RequestsPerSecond: cfg.Chain.RequestsPerSecond,
		RequestTimeout:    cfg.Chain.RequestTimeout,
		Logger:            logger,
	})
	if err != nil {
		return nil, cleanup, err
	}
	closers = append(closers, chainClient.Close)

	var checker analyzer.ContractChecker = chainClient
	if cfg.Redis.Enabled {
		cache, err := storage.NewRedisCache(&cfg.Redis)
		if err != nil {
			return nil, cleanup, err
		}
		closers = append(closers, func() { _ = cache.Close() })
		checker = adapter.NewCachedContractChecker(chainClient, cache.Client(), cfg.Redis.TTL, logger)
	}

	var store storage.BaselineStore
	switch cfg.Baseline.Backend {
	case config.BaselineBackendPostgres:
		db, err := storage.NewPostgresDB(&cfg.Postgres)
		if err != nil {
			return nil, cleanup, err
		}
		closers = append(closers, db.Close)
		store = storage.NewPostgresStore(db)
	default:
		fileStore, err := storage.NewFileStore(cfg.Baseline.Dir)
		if err != nil {
			return nil, cleanup, err
		}
		store = fileStore
	}

	var archiver SnapshotArchiver
	if cfg.ClickHouse.Enabled {
		archive, err := storage.NewSnapshotArchive(&cfg.ClickHouse)
		if err != nil {
			return nil, cleanup, err
		}
		closers = append(closers, func() { _ = archive.Close() })

		if err := archive.EnsureSchema(context.Background()); err != nil {
			return nil, cleanup, err
		}
		archiver = archive
	}

	return New(&Config{
		Source:   chainClient,
		Checker:  checker,
		Store:    store,
		Archiver: archiver,
		Logger:   logger,
	}), cleanup, nil
}
