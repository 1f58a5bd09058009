package repositories

import (
	"context"
	"fmt"

	"github.com/BradenHooton/giftgate/internal/database"
	"github.com/BradenHooton/giftgate/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// rowScanner is satisfied by pgx.Row and pgx.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

// SecurityEventRepository persists security events for the audit sink
type SecurityEventRepository struct {
	pool *pgxpool.Pool
}

// NewSecurityEventRepository creates a new SecurityEventRepository
func NewSecurityEventRepository(db *database.DB) *SecurityEventRepository {
	return &SecurityEventRepository{pool: db.Pool}
}

// Create inserts one event. Events are immutable; there is no update path.
func (r *SecurityEventRepository) Create(ctx context.Context, event *models.SecurityEvent) error {
	query := `
		INSERT INTO security_events (id, occurred_at, action, status, user_id, user_agent, url, details)
		VALUES ($1, $2, $3, $4, NULLIF($5::text, ''), NULLIF($6::text, ''), NULLIF($7::text, ''), $8)
	`

	details := event.Details
	if details == nil {
		details = map[string]any{}
	}

	_, err := r.pool.Exec(ctx, query,
		event.ID, event.Timestamp, event.Action, string(event.Status),
		event.UserID, event.UserAgent, event.URL, details,
	)
	if err != nil {
		return fmt.Errorf("failed to create security event: %w", database.MapPostgresError(err))
	}

	return nil
}

// ListRecent returns the newest events first, optionally filtered by action
func (r *SecurityEventRepository) ListRecent(ctx context.Context, action string, limit int) ([]*models.SecurityEvent, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}

	query := `
		SELECT id, occurred_at, action, status, COALESCE(user_id, ''),
		       COALESCE(user_agent, ''), COALESCE(url, ''), details
		FROM security_events
		WHERE ($1::text = '' OR action = $1::text)
		ORDER BY occurred_at DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, action, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list security events: %w", err)
	}

	return scanSecurityEventRows(rows)
}

func scanSecurityEventRow(row rowScanner) (*models.SecurityEvent, error) {
	var (
		event  models.SecurityEvent
		status string
	)

	err := row.Scan(
		&event.ID, &event.Timestamp, &event.Action, &status,
		&event.UserID, &event.UserAgent, &event.URL, &event.Details,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	event.Status = models.EventStatus(status)
	return &event, nil
}

func scanSecurityEventRows(rows pgx.Rows) ([]*models.SecurityEvent, error) {
	defer rows.Close()

	events := make([]*models.SecurityEvent, 0)
	for rows.Next() {
		event, err := scanSecurityEventRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan security event: %w", err)
		}
		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating security event rows: %w", err)
	}

	return events, nil
}
