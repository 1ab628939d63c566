package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	id "faceguard/pkg/domain"
	audit "faceguard/pkg/platform/audit"
	txcontext "faceguard/pkg/platform/tx"
)

// Store persists audit events in the audit_events table. When a transaction is
// carried on the context the insert joins it, so an audit row commits or rolls
// back together with the state change it describes.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Store) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

const eventColumns = `id, category, timestamp, user_id, resource_id, action, decision, reason, request_id, actor_id`

// Append inserts an event. Idempotent on the event ID.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	category := event.Category
	if category == "" {
		category = audit.AuditEvent(event.Action).Category()
	}

	var userID *uuid.UUID
	if !event.UserID.IsNil() {
		uid := uuid.UUID(event.UserID)
		userID = &uid
	}

	query := `
		INSERT INTO audit_events (` + eventColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO NOTHING
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		event.ID,
		string(category),
		event.Timestamp,
		userID,
		event.ResourceID,
		event.Action,
		event.Decision,
		event.Reason,
		event.RequestID,
		event.ActorID,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

func (s *Store) ListByUser(ctx context.Context, userID id.UserID) ([]audit.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM audit_events WHERE user_id = $1 ORDER BY timestamp ASC`
	rows, err := s.db.QueryContext(ctx, query, uuid.UUID(userID))
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

// ExpiredEvents returns up to limit events recorded before cutoff, oldest first.
func (s *Store) ExpiredEvents(ctx context.Context, cutoff time.Time, limit int) ([]audit.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM audit_events WHERE timestamp < $1 ORDER BY timestamp ASC LIMIT $2`
	rows, err := s.db.QueryContext(ctx, query, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("query expired audit events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

func (s *Store) DeleteEvent(ctx context.Context, eventID uuid.UUID) error {
	if _, err := s.execer(ctx).ExecContext(ctx, `DELETE FROM audit_events WHERE id = $1`, eventID); err != nil {
		return fmt.Errorf("delete audit event: %w", err)
	}
	return nil
}

func scanEvents(rows *sql.Rows) ([]audit.Event, error) {
	var events []audit.Event
	for rows.Next() {
		var (
			category string
			event    audit.Event
			userID   *uuid.UUID
		)
		if err := rows.Scan(
			&event.ID,
			&category,
			&event.Timestamp,
			&userID,
			&event.ResourceID,
			&event.Action,
			&event.Decision,
			&event.Reason,
			&event.RequestID,
			&event.ActorID,
		); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		event.Category = audit.EventCategory(category)
		if userID != nil {
			event.UserID = id.UserID(*userID)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return events, nil
}
