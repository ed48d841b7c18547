// Package service orchestrates the diff pipeline: fetch, analyze, snapshot,
// baseline persistence, and diff generation.
package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/agent-diff/internal/analyzer"
	"github.com/agent-diff/internal/diff"
	apperrors "github.com/agent-diff/internal/errors"
	"github.com/agent-diff/internal/logging"
	"github.com/agent-diff/internal/snapshot"
	"github.com/agent-diff/internal/storage"
	"github.com/agent-diff/internal/types"
)

// ChainSource fetches raw transaction activity for an address.
type ChainSource interface {
	FetchTransactions(ctx context.Context, address string, lookback types.Lookback) ([]types.RawTransaction, error)
}

// SnapshotArchiver records generated snapshots for offline analysis.
// Archiving is best-effort and never fails a run.
type SnapshotArchiver interface {
	Archive(ctx context.Context, snapshot *types.Snapshot) error
}

// DiffService runs the full pipeline for one address per call. The first run
// for an address persists its snapshot as the baseline and diffs the
// snapshot against itself, yielding a no-changes report.
type DiffService struct {
	source    ChainSource
	analyzer  *analyzer.Analyzer
	generator *snapshot.Generator
	engine    *diff.Engine
	store     storage.BaselineStore
	archiver  SnapshotArchiver
	lookback  types.Lookback
	logger    *logging.Logger
}

// Config holds the collaborators of a DiffService.
type Config struct {
	Source    ChainSource
	Checker   analyzer.ContractChecker
	Generator *snapshot.Generator
	Engine    *diff.Engine
	Store     storage.BaselineStore

	// Archiver is optional; nil disables snapshot archiving.
	Archiver SnapshotArchiver

	// Lookback overrides the default 30-day/1000-transaction window.
	Lookback *types.Lookback

	Logger *logging.Logger
}

// New wires a DiffService from its collaborators.
func New(cfg *Config) *DiffService {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}

	lookback := types.DefaultLookback()
	if cfg.Lookback != nil {
		lookback = *cfg.Lookback
	}

	generator := cfg.Generator
	if generator == nil {
		generator = snapshot.NewGenerator()
	}
	engine := cfg.Engine
	if engine == nil {
		engine = diff.NewEngine()
	}

	return &DiffService{
		source:    cfg.Source,
		analyzer:  analyzer.New(cfg.Checker),
		generator: generator,
		engine:    engine,
		store:     cfg.Store,
		archiver:  cfg.Archiver,
		lookback:  lookback,
		logger:    logger,
	}
}

// Check generates the behavior diff for the address.
func (s *DiffService) Check(ctx context.Context, address string) (*types.Diff, error) {
	logger := s.logger.WithFields(map[string]interface{}{
		"run_id":  uuid.New().String(),
		"address": address,
	})

	transactions, err := s.source.FetchTransactions(ctx, address, s.lookback)
	if err != nil {
		return nil, err
	}
	logger.WithField("count", len(transactions)).Debug("Fetched raw transactions")

	analyzed, err := s.analyzer.Analyze(ctx, transactions)
	if err != nil {
		return nil, err
	}

	current, err := s.generator.Generate(address, analyzed)
	if err != nil {
		return nil, err
	}
	logger.WithField("transaction_count", current.LookbackWindow.TransactionCount).Debug("Generated snapshot")

	if s.archiver != nil {
		if err := s.archiver.Archive(ctx, current); err != nil {
			logger.WithError(err).Warn("Snapshot archive write failed")
		}
	}

	baseline, err := s.store.Get(ctx, address)
	if err != nil {
		return nil, err
	}
	if baseline == nil {
		if err := s.store.Save(ctx, address, current); err != nil {
			return nil, err
		}
		logger.Info("Created baseline for address")

		baseline, err = s.store.Get(ctx, address)
		if err != nil {
			return nil, err
		}
	}
	if baseline == nil {
		return nil, apperrors.NewInternalError("unable to generate diff", nil)
	}

	result := s.engine.Generate(baseline, current)
	logger.WithField("status", string(result.Status)).Info("Generated diff")
	return result, nil
}
