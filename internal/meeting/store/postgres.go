package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"faceguard/internal/meeting/models"
	"faceguard/internal/platform/postgres"
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

const recordColumns = `meeting_id, user_id, state, verified, similarity, denial_reason,
	transaction_id, started_at, checked_at`

const decisionColumns = `id, meeting_id, user_id, transaction_id, reason, instructions,
	created_at, dispatched_at`

func (s *PostgresStore) Claim(ctx context.Context, rec *models.Record, staleBefore time.Time) (*models.Record, error) {
	claimed, err := scanRecord(s.conn(ctx).QueryRowContext(ctx, `
		INSERT INTO meeting_records (meeting_id, user_id, state, transaction_id, started_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (meeting_id, user_id) DO UPDATE
		SET started_at = EXCLUDED.started_at, transaction_id = EXCLUDED.transaction_id
		WHERE meeting_records.state = $3 AND meeting_records.started_at < $6
		RETURNING `+recordColumns,
		uuid.UUID(rec.MeetingID), uuid.UUID(rec.UserID), string(models.StateChecking),
		rec.TransactionID, rec.StartedAt, staleBefore))
	if err == nil {
		return claimed, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("claim meeting record: %w", err)
	}

	existing, err := s.Find(ctx, rec.MeetingID, rec.UserID)
	if err != nil {
		return nil, err
	}
	if existing.State.IsFinal() {
		return existing, sentinel.ErrAlreadyUsed
	}
	return nil, sentinel.ErrConflict
}

func (s *PostgresStore) Finalize(ctx context.Context, rec *models.Record, decision *models.DenialDecision) error {
	return txcontext.RunInTx(ctx, s.db, func(ctx context.Context) error {
		res, err := s.conn(ctx).ExecContext(ctx, `
			UPDATE meeting_records
			SET state = $3, verified = $4, similarity = $5, denial_reason = $6, checked_at = $7
			WHERE meeting_id = $1 AND user_id = $2 AND state = $8 AND started_at = $9
		`,
			uuid.UUID(rec.MeetingID), uuid.UUID(rec.UserID), string(rec.State), rec.Verified,
			rec.Similarity, string(rec.DenialReason), rec.CheckedAt,
			string(models.StateChecking), rec.StartedAt,
		)
		if err != nil {
			return fmt.Errorf("finalize meeting record: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("finalize meeting record: %w", err)
		}
		if n == 0 {
			return sentinel.ErrInvalidState
		}
		if decision == nil {
			return nil
		}

		instructions := make([]string, len(decision.Instructions))
		for i, in := range decision.Instructions {
			instructions[i] = string(in)
		}
		_, err = s.conn(ctx).ExecContext(ctx, `
			INSERT INTO denial_decisions (`+decisionColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`,
			uuid.UUID(decision.ID), uuid.UUID(decision.MeetingID), uuid.UUID(decision.UserID),
			decision.TransactionID, string(decision.Reason), pq.Array(instructions),
			decision.CreatedAt, decision.DispatchedAt,
		)
		if err != nil {
			if postgres.IsUniqueViolation(err) {
				return sentinel.ErrConflict
			}
			return fmt.Errorf("insert denial decision: %w", err)
		}
		return nil
	})
}

func (s *PostgresStore) Find(ctx context.Context, meetingID id.MeetingID, userID id.UserID) (*models.Record, error) {
	r, err := scanRecord(s.conn(ctx).QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM meeting_records WHERE meeting_id = $1 AND user_id = $2`,
		uuid.UUID(meetingID), uuid.UUID(userID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find meeting record: %w", err)
	}
	return r, nil
}

func (s *PostgresStore) FindDecision(ctx context.Context, meetingID id.MeetingID, userID id.UserID) (*models.DenialDecision, error) {
	d, err := scanDecision(s.conn(ctx).QueryRowContext(ctx,
		`SELECT `+decisionColumns+` FROM denial_decisions WHERE meeting_id = $1 AND user_id = $2`,
		uuid.UUID(meetingID), uuid.UUID(userID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find denial decision: %w", err)
	}
	return d, nil
}

func (s *PostgresStore) PendingDecisions(ctx context.Context, limit int) ([]*models.DenialDecision, error) {
	rows, err := s.conn(ctx).QueryContext(ctx, `SELECT `+decisionColumns+` FROM denial_decisions
		WHERE dispatched_at IS NULL ORDER BY created_at LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending decisions: %w", err)
	}
	defer rows.Close()

	var out []*models.DenialDecision
	for rows.Next() {
		d, err := scanDecision(rows)
		if err != nil {
			return nil, fmt.Errorf("scan denial decision: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *PostgresStore) MarkDispatched(ctx context.Context, decisionID id.DecisionID, at time.Time) error {
	res, err := s.conn(ctx).ExecContext(ctx, `
		UPDATE denial_decisions SET dispatched_at = COALESCE(dispatched_at, $2) WHERE id = $1
	`, uuid.UUID(decisionID), at)
	if err != nil {
		return fmt.Errorf("mark decision dispatched: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ExpiredRecords(ctx context.Context, cutoff time.Time, limit int) ([]*models.Record, error) {
	rows, err := s.conn(ctx).QueryContext(ctx, `SELECT `+recordColumns+` FROM meeting_records
		WHERE state IN ($1, $2) AND checked_at < $3 ORDER BY checked_at LIMIT $4`,
		string(models.StateAdmitted), string(models.StateDenied), cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("list expired meeting records: %w", err)
	}
	defer rows.Close()

	var out []*models.Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan meeting record: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *PostgresStore) DeleteRecord(ctx context.Context, meetingID id.MeetingID, userID id.UserID) error {
	return txcontext.RunInTx(ctx, s.db, func(ctx context.Context) error {
		if _, err := s.conn(ctx).ExecContext(ctx,
			`DELETE FROM meeting_records WHERE meeting_id = $1 AND user_id = $2`,
			uuid.UUID(meetingID), uuid.UUID(userID)); err != nil {
			return fmt.Errorf("delete meeting record: %w", err)
		}
		if _, err := s.conn(ctx).ExecContext(ctx,
			`DELETE FROM denial_decisions WHERE meeting_id = $1 AND user_id = $2 AND dispatched_at IS NOT NULL`,
			uuid.UUID(meetingID), uuid.UUID(userID)); err != nil {
			return fmt.Errorf("delete denial decision: %w", err)
		}
		return nil
	})
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*models.Record, error) {
	var (
		meetingID, userID   uuid.UUID
		state, denialReason string
		checkedAt           sql.NullTime
		r                   models.Record
	)
	if err := row.Scan(&meetingID, &userID, &state, &r.Verified, &r.Similarity, &denialReason,
		&r.TransactionID, &r.StartedAt, &checkedAt); err != nil {
		return nil, err
	}
	r.MeetingID = id.MeetingID(meetingID)
	r.UserID = id.UserID(userID)
	r.State = models.State(state)
	r.DenialReason = models.DenialReason(denialReason)
	if checkedAt.Valid {
		t := checkedAt.Time
		r.CheckedAt = &t
	}
	return &r, nil
}

func scanDecision(row rowScanner) (*models.DenialDecision, error) {
	var (
		decisionID, meetingID, userID uuid.UUID
		reason                        string
		instructions                  []string
		dispatchedAt                  sql.NullTime
		d                             models.DenialDecision
	)
	if err := row.Scan(&decisionID, &meetingID, &userID, &d.TransactionID, &reason,
		pq.Array(&instructions), &d.CreatedAt, &dispatchedAt); err != nil {
		return nil, err
	}
	d.ID = id.DecisionID(decisionID)
	d.MeetingID = id.MeetingID(meetingID)
	d.UserID = id.UserID(userID)
	d.Reason = models.DenialReason(reason)
	for _, in := range instructions {
		d.Instructions = append(d.Instructions, models.Instruction(in))
	}
	if dispatchedAt.Valid {
		t := dispatchedAt.Time
		d.DispatchedAt = &t
	}
	return &d, nil
}
