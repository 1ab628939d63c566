package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"faceguard/internal/biometric/evaluator"
	"faceguard/internal/platform/postgres"
	"faceguard/internal/review/models"
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

const entryColumns = `id, user_id, attempt_id, status, flag_reasons, priority, scores, candidate,
	reviewed_by, review_notes, created_at, reviewed_at`

func (s *PostgresStore) Create(ctx context.Context, e *models.Entry) error {
	scores, err := json.Marshal(e.Scores)
	if err != nil {
		return fmt.Errorf("marshal scores: %w", err)
	}
	var candidate []byte
	if e.Candidate != nil {
		if candidate, err = json.Marshal(e.Candidate); err != nil {
			return fmt.Errorf("marshal candidate: %w", err)
		}
	}
	flags := make([]string, len(e.FlagReasons))
	for i, f := range e.FlagReasons {
		flags[i] = string(f)
	}

	_, err = s.conn(ctx).ExecContext(ctx, `
		INSERT INTO review_entries (`+entryColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`,
		uuid.UUID(e.ID), uuid.UUID(e.UserID), uuid.UUID(e.AttemptID), string(e.Status),
		pq.Array(flags), e.Priority, scores, candidate, e.ReviewedBy, e.ReviewNotes,
		e.CreatedAt, e.ReviewedAt,
	)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert review entry: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, entryID id.ReviewEntryID) (*models.Entry, error) {
	e, err := scanEntry(s.conn(ctx).QueryRowContext(ctx,
		`SELECT `+entryColumns+` FROM review_entries WHERE id = $1`, uuid.UUID(entryID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find review entry: %w", err)
	}
	return e, nil
}

func (s *PostgresStore) ListPending(ctx context.Context, limit int) ([]*models.Entry, error) {
	return s.query(ctx, `SELECT `+entryColumns+` FROM review_entries
		WHERE status = $1 ORDER BY priority DESC, created_at ASC LIMIT $2`,
		string(models.StatusPending), limit)
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID id.UserID) ([]*models.Entry, error) {
	return s.query(ctx, `SELECT `+entryColumns+` FROM review_entries
		WHERE user_id = $1 ORDER BY created_at`, uuid.UUID(userID))
}

// Claim is a conditional update: only a pending entry can be decided.
func (s *PostgresStore) Claim(ctx context.Context, d models.Decision) (*models.Entry, error) {
	e, err := scanEntry(s.conn(ctx).QueryRowContext(ctx, `
		UPDATE review_entries
		SET status = $2, reviewed_by = $3, review_notes = $4, reviewed_at = $5
		WHERE id = $1 AND status = $6
		RETURNING `+entryColumns,
		uuid.UUID(d.EntryID), string(d.Status), d.ReviewerID, d.Notes, d.At, string(models.StatusPending)))
	if err == nil {
		return e, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("claim review entry: %w", err)
	}
	if _, findErr := s.FindByID(ctx, d.EntryID); findErr != nil {
		return nil, findErr
	}
	return nil, sentinel.ErrAlreadyUsed
}

func (s *PostgresStore) Unclaim(ctx context.Context, entryID id.ReviewEntryID, claimed models.Status) error {
	_, err := s.conn(ctx).ExecContext(ctx, `
		UPDATE review_entries
		SET status = $3, reviewed_by = '', review_notes = '', reviewed_at = NULL
		WHERE id = $1 AND status = $2
	`, uuid.UUID(entryID), string(claimed), string(models.StatusPending))
	if err != nil {
		return fmt.Errorf("unclaim review entry: %w", err)
	}
	return nil
}

func (s *PostgresStore) ClearCandidate(ctx context.Context, entryID id.ReviewEntryID) error {
	if _, err := s.conn(ctx).ExecContext(ctx,
		`UPDATE review_entries SET candidate = NULL WHERE id = $1`, uuid.UUID(entryID)); err != nil {
		return fmt.Errorf("clear review candidate: %w", err)
	}
	return nil
}

func (s *PostgresStore) ExpiredTerminal(ctx context.Context, cutoff time.Time, limit int) ([]*models.Entry, error) {
	return s.query(ctx, `SELECT `+entryColumns+` FROM review_entries
		WHERE status <> $1 AND reviewed_at < $2 ORDER BY reviewed_at LIMIT $3`,
		string(models.StatusPending), cutoff, limit)
}

func (s *PostgresStore) Delete(ctx context.Context, entryID id.ReviewEntryID) error {
	if _, err := s.conn(ctx).ExecContext(ctx, `DELETE FROM review_entries WHERE id = $1`, uuid.UUID(entryID)); err != nil {
		return fmt.Errorf("delete review entry: %w", err)
	}
	return nil
}

func (s *PostgresStore) query(ctx context.Context, query string, args ...any) ([]*models.Entry, error) {
	rows, err := s.conn(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query review entries: %w", err)
	}
	defer rows.Close()
	var out []*models.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan review entry: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*models.Entry, error) {
	var (
		e                 models.Entry
		eid, uid, aid     uuid.UUID
		status            string
		flags             pq.StringArray
		scores, candidate []byte
		reviewedAt        sql.NullTime
	)
	if err := row.Scan(&eid, &uid, &aid, &status, &flags, &e.Priority, &scores, &candidate,
		&e.ReviewedBy, &e.ReviewNotes, &e.CreatedAt, &reviewedAt); err != nil {
		return nil, err
	}
	e.ID = id.ReviewEntryID(eid)
	e.UserID = id.UserID(uid)
	e.AttemptID = id.AttemptID(aid)
	e.Status = models.Status(status)
	for _, f := range flags {
		e.FlagReasons = append(e.FlagReasons, evaluator.FlagReason(f))
	}
	if err := json.Unmarshal(scores, &e.Scores); err != nil {
		return nil, fmt.Errorf("decode scores: %w", err)
	}
	if len(candidate) > 0 {
		var c models.Candidate
		if err := json.Unmarshal(candidate, &c); err != nil {
			return nil, fmt.Errorf("decode candidate: %w", err)
		}
		e.Candidate = &c
	}
	if reviewedAt.Valid {
		at := reviewedAt.Time
		e.ReviewedAt = &at
	}
	return &e, nil
}
