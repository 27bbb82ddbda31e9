// ABOUTME: Deal database operations
// ABOUTME: Handles deal upserts, lookups and filtered listing
package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/harperreed/dealpulse/models"
)

const dealColumns = `id, link_id, agent_id, title, status, stage, value, property_count,
	client_id, client_name, client_email, client_phone,
	engagement_score, client_temperature, session_count, total_time_spent,
	last_activity_at, next_follow_up, tags, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanDeal(row rowScanner) (*models.Deal, error) {
	deal := &models.Deal{}
	var clientID, clientName, clientEmail, clientPhone, tags sql.NullString
	var lastActivity, nextFollowUp sql.NullTime

	err := row.Scan(
		&deal.ID,
		&deal.LinkID,
		&deal.AgentID,
		&deal.Title,
		&deal.Status,
		&deal.Stage,
		&deal.Value,
		&deal.PropertyCount,
		&clientID,
		&clientName,
		&clientEmail,
		&clientPhone,
		&deal.EngagementScore,
		&deal.ClientTemperature,
		&deal.SessionCount,
		&deal.TotalTimeSpent,
		&lastActivity,
		&nextFollowUp,
		&tags,
		&deal.CreatedAt,
		&deal.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	deal.ClientID = stringPtr(clientID)
	deal.ClientName = stringPtr(clientName)
	deal.ClientEmail = stringPtr(clientEmail)
	deal.ClientPhone = stringPtr(clientPhone)
	deal.LastActivityAt = timePtr(lastActivity)
	deal.NextFollowUp = timePtr(nextFollowUp)
	if err := decodeJSON(tags, &deal.Tags); err != nil {
		return nil, fmt.Errorf("failed to decode tags for deal %s: %w", deal.ID, err)
	}

	return deal, nil
}

// GetDeal returns the deal or (nil, nil) when it does not exist.
func (s *Store) GetDeal(ctx context.Context, id uuid.UUID) (*models.Deal, error) {
	row := s.q.QueryRowContext(ctx, `SELECT `+dealColumns+` FROM deals WHERE id = ?`, id.String())

	deal, err := scanDeal(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return deal, nil
}

// UpsertDeal inserts the deal or replaces every mutable column.
func (s *Store) UpsertDeal(ctx context.Context, deal *models.Deal) error {
	if deal.ID == uuid.Nil {
		return &models.ValidationError{Field: "id", Message: "is required"}
	}

	tags, err := encodeJSON(deal.Tags)
	if err != nil {
		return fmt.Errorf("failed to encode tags: %w", err)
	}

	_, err = s.q.ExecContext(ctx, `
		INSERT INTO deals (`+dealColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			link_id = excluded.link_id,
			agent_id = excluded.agent_id,
			title = excluded.title,
			status = excluded.status,
			stage = excluded.stage,
			value = excluded.value,
			property_count = excluded.property_count,
			client_id = excluded.client_id,
			client_name = excluded.client_name,
			client_email = excluded.client_email,
			client_phone = excluded.client_phone,
			engagement_score = excluded.engagement_score,
			client_temperature = excluded.client_temperature,
			session_count = excluded.session_count,
			total_time_spent = excluded.total_time_spent,
			last_activity_at = excluded.last_activity_at,
			next_follow_up = excluded.next_follow_up,
			tags = excluded.tags,
			updated_at = excluded.updated_at
	`,
		deal.ID.String(),
		deal.LinkID.String(),
		deal.AgentID.String(),
		deal.Title,
		string(deal.Status),
		string(deal.Stage),
		deal.Value,
		deal.PropertyCount,
		deal.ClientID,
		deal.ClientName,
		deal.ClientEmail,
		deal.ClientPhone,
		deal.EngagementScore,
		string(deal.ClientTemperature),
		deal.SessionCount,
		deal.TotalTimeSpent,
		nullTime(deal.LastActivityAt),
		nullTime(deal.NextFollowUp),
		tags,
		deal.CreatedAt.UTC(),
		deal.UpdatedAt.UTC(),
	)
	return err
}

// ListDeals returns deals matching the filter, most recently active first.
// A non-positive limit returns every match.
func (s *Store) ListDeals(ctx context.Context, filter models.DealFilter) ([]models.Deal, error) {
	var conditions []string
	var args []interface{}

	if filter.AgentID != uuid.Nil {
		conditions = append(conditions, "agent_id = ?")
		args = append(args, filter.AgentID.String())
	}
	if filter.Stage != "" {
		conditions = append(conditions, "stage = ?")
		args = append(args, string(filter.Stage))
	}
	if filter.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, string(filter.Status))
	}

	query := `SELECT ` + dealColumns + ` FROM deals`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY COALESCE(last_activity_at, created_at) DESC, id"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var deals []models.Deal
	for rows.Next() {
		deal, err := scanDeal(rows)
		if err != nil {
			return nil, err
		}
		deals = append(deals, *deal)
	}

	return deals, rows.Err()
}
