// ABOUTME: Activity and session database operations
// ABOUTME: Records client interactions and browsing sessions and aggregates session time
package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/harperreed/dealpulse/models"
)

// GetActivities returns a deal's activity history in the order it happened.
func (s *Store) GetActivities(ctx context.Context, dealID uuid.UUID) ([]models.ActivityRecord, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, deal_id, action, metadata, occurred_at
		FROM activities
		WHERE deal_id = ?
		ORDER BY occurred_at, id
	`, dealID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var activities []models.ActivityRecord
	for rows.Next() {
		var record models.ActivityRecord
		var metadata sql.NullString

		if err := rows.Scan(&record.ID, &record.DealID, &record.Action, &metadata, &record.OccurredAt); err != nil {
			return nil, err
		}
		if err := decodeJSON(metadata, &record.Metadata); err != nil {
			return nil, fmt.Errorf("failed to decode metadata for activity %s: %w", record.ID, err)
		}

		activities = append(activities, record)
	}

	return activities, rows.Err()
}

// RecordActivity appends an activity. A nil ID is assigned.
func (s *Store) RecordActivity(ctx context.Context, record *models.ActivityRecord) error {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}

	metadata, err := encodeJSON(record.Metadata)
	if err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}

	_, err = s.q.ExecContext(ctx, `
		INSERT INTO activities (id, deal_id, action, metadata, occurred_at)
		VALUES (?, ?, ?, ?, ?)
	`, record.ID.String(), record.DealID.String(), string(record.Action), metadata, record.OccurredAt.UTC())

	return err
}

// DeleteActivity removes one activity from a deal's history.
func (s *Store) DeleteActivity(ctx context.Context, dealID, activityID uuid.UUID) (bool, error) {
	result, err := s.q.ExecContext(ctx, `
		DELETE FROM activities WHERE id = ? AND deal_id = ?
	`, activityID.String(), dealID.String())
	if err != nil {
		return false, err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

// RecordSession stores one browsing session. A nil ID is assigned.
func (s *Store) RecordSession(ctx context.Context, session *models.SessionRecord) error {
	if session.ID == uuid.Nil {
		session.ID = uuid.New()
	}

	_, err := s.q.ExecContext(ctx, `
		INSERT INTO sessions (id, deal_id, duration_seconds, started_at)
		VALUES (?, ?, ?, ?)
	`, session.ID.String(), session.DealID.String(), session.DurationSeconds, session.StartedAt.UTC())

	return err
}

// GetSessionAggregate totals every session recorded for a deal.
func (s *Store) GetSessionAggregate(ctx context.Context, dealID uuid.UUID) (models.SessionAggregate, error) {
	var agg models.SessionAggregate

	err := s.q.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(duration_seconds), 0)
		FROM sessions
		WHERE deal_id = ?
	`, dealID.String()).Scan(&agg.SessionCount, &agg.TotalTimeSpent)

	return agg, err
}
