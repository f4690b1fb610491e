package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"
	"wc3stats/internal/constants"
	"wc3stats/internal/domain"

	"github.com/rs/zerolog"
)

// EventRepository is the append-only match event log. Identifiers are
// assigned by sqlite AUTOINCREMENT, so they are strictly increasing and
// never reused, even across deletes.
type EventRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewEventRepository(sqlDB *sql.DB, logger zerolog.Logger) *EventRepository {
	return &EventRepository{
		db:     sqlDB,
		logger: logger,
	}
}

// InsertBatch appends all events in the given order within one transaction
// and returns the identifier of the last inserted event. An empty batch
// inserts nothing and returns the store's current maximum identifier.
func (r *EventRepository) InsertBatch(ctx context.Context, events []domain.MatchEvent) (int64, error) {
	if len(events) == 0 {
		return r.LastID(ctx)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", storageErr(err))
	}
	defer tx.Rollback()

	var lastID int64
	now := time.Now().UTC()
	for _, ev := range events {
		payload, err := encodeEvent(ev)
		if err != nil {
			return 0, err
		}

		res, err := tx.ExecContext(ctx, `
			INSERT INTO match_events (kind, occurred_at, was_from_sync, was_fake, schema_version, payload, inserted_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			int(ev.Kind), ev.OccurredAt.UTC(), ev.WasFromSync, ev.WasFakeEvent, eventSchemaVersion, string(payload), now,
		)
		if err != nil {
			return 0, fmt.Errorf("failed to insert match event: %w", storageErr(err))
		}

		lastID, err = res.LastInsertId()
		if err != nil {
			return 0, fmt.Errorf("failed to read inserted event id: %w", storageErr(err))
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit event batch: %w", storageErr(err))
	}

	r.logger.Debug().Int("count", len(events)).Int64("last_id", lastID).Msg("event batch inserted")
	return lastID, nil
}

// LoadAfter returns events with identifier strictly greater than sinceID in
// ascending identifier order, capped at limit. A sinceID at or past the
// current maximum yields an empty slice, never an error. The call is
// read-only and safe to repeat with the same cursor.
func (r *EventRepository) LoadAfter(ctx context.Context, sinceID int64, limit int) ([]domain.MatchEvent, error) {
	if limit <= 0 {
		limit = constants.DefaultLoadLimit
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, kind, occurred_at, was_from_sync, was_fake, schema_version, payload
		FROM match_events
		WHERE id > ?
		ORDER BY id ASC
		LIMIT ?`, sinceID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load events after %d: %w", sinceID, storageErr(err))
	}
	defer rows.Close()

	var events []domain.MatchEvent
	for rows.Next() {
		var (
			ev      domain.MatchEvent
			kind    int
			version int
			payload string
		)
		if err := rows.Scan(&ev.ID, &kind, &ev.OccurredAt, &ev.WasFromSync, &ev.WasFakeEvent, &version, &payload); err != nil {
			return nil, fmt.Errorf("failed to scan event row: %w", storageErr(err))
		}
		ev.Kind = domain.EventKind(kind)
		if err := decodeEvent(version, []byte(payload), &ev); err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate event rows: %w", storageErr(err))
	}

	return events, nil
}

// LastID returns the highest identifier ever assigned, or 0 for an empty
// store. Deleted rows still count because AUTOINCREMENT tracks the sequence.
func (r *EventRepository) LastID(ctx context.Context) (int64, error) {
	var id sql.NullInt64
	err := r.db.QueryRowContext(ctx, `
		SELECT seq FROM sqlite_sequence WHERE name = 'match_events'`).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read last event id: %w", storageErr(err))
	}
	return id.Int64, nil
}
