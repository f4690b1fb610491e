package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// CheckpointRepository stores the durable cursor of each event consumer.
// The aggregator advances its checkpoint inside the same transaction as the
// aggregate writes (see StatsRepository.ApplyBatch), so a crash can never
// leave a batch half counted.
type CheckpointRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewCheckpointRepository(sqlDB *sql.DB, logger zerolog.Logger) *CheckpointRepository {
	return &CheckpointRepository{
		db:     sqlDB,
		logger: logger,
	}
}

// Get returns the last processed event id for a consumer, 0 if the consumer
// has never checkpointed.
func (r *CheckpointRepository) Get(ctx context.Context, consumer string) (int64, error) {
	var id int64
	err := r.db.QueryRowContext(ctx, `
		SELECT last_event_id FROM consumer_checkpoints WHERE consumer = ?`, consumer).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to load checkpoint for %s: %w", consumer, storageErr(err))
	}
	return id, nil
}

// Save writes a checkpoint in its own transaction. The aggregator must not
// use this; its checkpoint moves inside the aggregate batch transaction.
func (r *CheckpointRepository) Save(ctx context.Context, consumer string, lastEventID int64) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO consumer_checkpoints (consumer, last_event_id, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT (consumer) DO UPDATE SET
			last_event_id = excluded.last_event_id,
			updated_at = excluded.updated_at`,
		consumer, lastEventID, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to save checkpoint for %s: %w", consumer, storageErr(err))
	}
	return nil
}

func saveCheckpointInTx(ctx context.Context, tx *sql.Tx, consumer string, lastEventID int64) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO consumer_checkpoints (consumer, last_event_id, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT (consumer) DO UPDATE SET
			last_event_id = excluded.last_event_id,
			updated_at = excluded.updated_at`,
		consumer, lastEventID, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to save checkpoint for %s: %w", consumer, storageErr(err))
	}
	return nil
}
