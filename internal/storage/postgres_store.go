package storage

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"

	apperrors "github.com/agent-diff/internal/errors"
	"github.com/agent-diff/internal/types"
)

// PostgresStore is the Postgres baseline backend: one JSONB payload row per
// lowercased address in the baselines table.
type PostgresStore struct {
	db *PostgresDB
}

// NewPostgresStore wraps an open connection pool.
func NewPostgresStore(db *PostgresDB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Get loads the baseline payload for the address. Absence is not an error.
func (s *PostgresStore) Get(ctx context.Context, address string) (*types.Baseline, error) {
	var payload []byte
	err := s.db.Pool().QueryRow(ctx,
		`SELECT payload FROM baselines WHERE address = $1`,
		strings.ToLower(address),
	).Scan(&payload)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, apperrors.NewStorageError("read", err)
	}

	var serialized serializedBaseline
	if err := json.Unmarshal(payload, &serialized); err != nil {
		return nil, apperrors.NewStorageError("decode", err)
	}

	baseline, err := deserializeBaseline(&serialized)
	if err != nil {
		return nil, apperrors.NewStorageError("decode", err)
	}
	return baseline, nil
}

// Save inserts the baseline row. The conflict target makes the insert a
// no-op when a baseline already exists, which surfaces as the same
// baseline-exists error the file backend reports.
func (s *PostgresStore) Save(ctx context.Context, address string, snapshot *types.Snapshot) error {
	baseline := newBaseline(address, snapshot)

	payload, err := json.Marshal(serializeBaseline(baseline))
	if err != nil {
		return apperrors.NewStorageError("encode", err)
	}

	tag, err := s.db.Pool().Exec(ctx,
		`INSERT INTO baselines (address, created_at, payload)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (address) DO NOTHING`,
		strings.ToLower(address),
		baseline.CreatedAt,
		payload,
	)
	if err != nil {
		return apperrors.NewStorageError("write", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NewBaselineExistsError(address)
	}
	return nil
}
