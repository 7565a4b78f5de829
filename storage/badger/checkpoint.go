package badger

import (
	"context"
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/probeworks/threadscout/core"
	"github.com/probeworks/threadscout/storage"
)

// CheckpointRepository implements storage.CheckpointRepository for BadgerDB.
type CheckpointRepository struct {
	backend *Backend
}

var _ storage.CheckpointRepository = (*CheckpointRepository)(nil)

// NewCheckpointRepository creates a new CheckpointRepository.
func NewCheckpointRepository(backend *Backend) *CheckpointRepository {
	return &CheckpointRepository{backend: backend}
}

// Close releases repository resources.
func (r *CheckpointRepository) Close() error {
	return nil
}

// GetCheckpoint retrieves the checkpoint for a (channel, timeframe) key.
func (r *CheckpointRepository) GetCheckpoint(ctx context.Context, channel string, timeframe core.Timeframe) (*core.Checkpoint, error) {
	var checkpoint *core.Checkpoint

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeCheckpointKey(channel, timeframe))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return storage.ErrNotFound
			}
			return err
		}
		return item.Value(func(val []byte) error {
			var err error
			checkpoint, err = storage.UnmarshalCheckpoint(val)
			return err
		})
	}, false)
	if err != nil {
		return nil, err
	}
	return checkpoint, nil
}

// UpsertCheckpoint inserts or replaces the checkpoint for its key.
// At most one live checkpoint exists per (channel, timeframe).
func (r *CheckpointRepository) UpsertCheckpoint(ctx context.Context, checkpoint *core.Checkpoint) error {
	if checkpoint.Channel == "" {
		return core.ErrEmptyChannel
	}
	if _, err := core.ParseTimeframe(checkpoint.Timeframe); err != nil {
		return err
	}

	checkpoint.UpdatedAt = time.Now().UTC()
	key := makeCheckpointKey(checkpoint.Channel, core.Timeframe(checkpoint.Timeframe))

	return r.backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Set(key, storage.MarshalCheckpoint(checkpoint)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}
