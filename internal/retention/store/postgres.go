package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"faceguard/internal/retention/models"
	id "faceguard/pkg/domain"
	"faceguard/pkg/platform/sentinel"
	txcontext "faceguard/pkg/platform/tx"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbConn interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) conn(ctx context.Context) dbConn {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *PostgresStore) Set(ctx context.Context, hold models.LegalHold) error {
	_, err := s.conn(ctx).ExecContext(ctx, `
		INSERT INTO legal_holds (user_id, reason, set_by, set_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO UPDATE
		SET reason = EXCLUDED.reason, set_by = EXCLUDED.set_by, set_at = EXCLUDED.set_at
	`, uuid.UUID(hold.UserID), hold.Reason, hold.SetBy, hold.SetAt)
	if err != nil {
		return fmt.Errorf("set legal hold: %w", err)
	}
	return nil
}

func (s *PostgresStore) Clear(ctx context.Context, userID id.UserID) error {
	res, err := s.conn(ctx).ExecContext(ctx, `DELETE FROM legal_holds WHERE user_id = $1`, uuid.UUID(userID))
	if err != nil {
		return fmt.Errorf("clear legal hold: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("clear legal hold: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Find(ctx context.Context, userID id.UserID) (*models.LegalHold, error) {
	var (
		h   models.LegalHold
		uid uuid.UUID
	)
	err := s.conn(ctx).QueryRowContext(ctx,
		`SELECT user_id, reason, set_by, set_at FROM legal_holds WHERE user_id = $1`, uuid.UUID(userID)).
		Scan(&uid, &h.Reason, &h.SetBy, &h.SetAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find legal hold: %w", err)
	}
	h.UserID = id.UserID(uid)
	return &h, nil
}

func (s *PostgresStore) List(ctx context.Context) ([]models.LegalHold, error) {
	rows, err := s.conn(ctx).QueryContext(ctx,
		`SELECT user_id, reason, set_by, set_at FROM legal_holds ORDER BY set_at`)
	if err != nil {
		return nil, fmt.Errorf("list legal holds: %w", err)
	}
	defer rows.Close()

	var out []models.LegalHold
	for rows.Next() {
		var (
			h   models.LegalHold
			uid uuid.UUID
		)
		if err := rows.Scan(&uid, &h.Reason, &h.SetBy, &h.SetAt); err != nil {
			return nil, fmt.Errorf("scan legal hold: %w", err)
		}
		h.UserID = id.UserID(uid)
		out = append(out, h)
	}
	return out, rows.Err()
}
