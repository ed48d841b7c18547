package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	apperrors "github.com/agent-diff/internal/errors"
	"github.com/agent-diff/internal/types"
)

// FileStore is the default baseline backend: one JSON file per lowercased
// address under a data directory.
type FileStore struct {
	dir string
}

// NewFileStore creates the data directory if needed and returns the store.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, apperrors.NewStorageError("init", fmt.Errorf("baseline directory cannot be empty"))
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, apperrors.NewStorageError("init", err)
	}
	return &FileStore{dir: dir}, nil
}

// Get reads the baseline file for the address. Absence is not an error.
func (s *FileStore) Get(ctx context.Context, address string) (*types.Baseline, error) {
	data, err := os.ReadFile(s.path(address))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, apperrors.NewStorageError("read", err)
	}

	var serialized serializedBaseline
	if err := json.Unmarshal(data, &serialized); err != nil {
		return nil, apperrors.NewStorageError("decode", err)
	}

	baseline, err := deserializeBaseline(&serialized)
	if err != nil {
		return nil, apperrors.NewStorageError("decode", err)
	}
	return baseline, nil
}

// Save writes the baseline file. An existing file is never overwritten.
func (s *FileStore) Save(ctx context.Context, address string, snapshot *types.Snapshot) error {
	path := s.path(address)

	if _, err := os.Stat(path); err == nil {
		return apperrors.NewBaselineExistsError(address)
	} else if !os.IsNotExist(err) {
		return apperrors.NewStorageError("stat", err)
	}

	data, err := json.MarshalIndent(serializeBaseline(newBaseline(address, snapshot)), "", "  ")
	if err != nil {
		return apperrors.NewStorageError("encode", err)
	}

	if err := os.WriteFile(path, data, 0o640); err != nil {
		return apperrors.NewStorageError("write", err)
	}
	return nil
}

func (s *FileStore) path(address string) string {
	return filepath.Join(s.dir, strings.ToLower(address)+".json")
}
