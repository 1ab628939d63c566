package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"faceguard/internal/platform/postgres"
	"faceguard/internal/verification/models"
	id "faceguard/pkg/domain"
	"faceguard/pkg/platform/sentinel"
	txcontext "faceguard/pkg/platform/tx"
)

// PostgresStore persists verification state. It is pure I/O: every transition
// rule lives in the models and the service.
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

const statusColumns = `user_id, status, age_verified, min_age_confirmed, attempts_today, attempts_total,
	last_attempt_at, reason_failed, admin_override, window_attempts, banned_until,
	in_flight_attempt_id, in_flight_started_at, awaiting_review_attempt_id, reference_embedding_id,
	version, created_at, updated_at`

const attemptColumns = `id, user_id, attempt_number, attempted_at, result, liveness_score, age_estimate,
	photo_match_scores, failure_reason, human_reviewed, reviewed_by, review_entry_id, client_platform, media_digest`

const embeddingColumns = `id, user_id, attempt_id, kind, vector, confidence, liveness_score, age_estimate,
	current, created_at, superseded_at`

func (s *PostgresStore) FindStatus(ctx context.Context, userID id.UserID) (*models.VerificationStatus, error) {
	query := `SELECT ` + statusColumns + ` FROM verification_status WHERE user_id = $1`
	st, err := scanStatus(s.conn(ctx).QueryRowContext(ctx, query, uuid.UUID(userID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find verification status: %w", err)
	}
	return st, nil
}

// Commit writes the status with a version check and appends the attempt and
// embedding in the same transaction. A lost CAS returns sentinel.ErrConflict.
func (s *PostgresStore) Commit(ctx context.Context, c Commit) error {
	if c.Status == nil {
		return sentinel.ErrInvalidState
	}
	err := txcontext.RunInTx(ctx, s.db, func(ctx context.Context) error {
		if err := s.writeStatus(ctx, c.Status, c.ExpectedVersion); err != nil {
			return err
		}
		if c.Attempt != nil {
			if err := s.insertAttempt(ctx, c.Attempt); err != nil {
				return err
			}
		}
		if c.Embedding != nil {
			if err := s.insertEmbedding(ctx, c.Embedding); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return fmt.Errorf("commit verification: %w", sentinel.ErrConflict)
		}
		return err
	}
	c.Status.Version = c.ExpectedVersion + 1
	return nil
}

func (s *PostgresStore) writeStatus(ctx context.Context, st *models.VerificationStatus, expected int64) error {
	args := []any{
		uuid.UUID(st.UserID), string(st.Status), st.AgeVerified, st.MinAgeConfirmed,
		st.AttemptsToday, st.AttemptsTotal, st.LastAttemptAt, st.ReasonFailed, st.AdminOverride,
		pq.Array(windowMicros(st.WindowAttempts)), st.BannedUntil, nullAttemptID(st.InFlightAttemptID),
		st.InFlightStartedAt, nullAttemptID(st.AwaitingReviewAttemptID), nullEmbeddingID(st.ReferenceEmbeddingID),
		expected + 1, st.CreatedAt, st.UpdatedAt,
	}
	if expected == 0 {
		_, err := s.conn(ctx).ExecContext(ctx, `
			INSERT INTO verification_status (`+statusColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		`, args...)
		if err != nil {
			if postgres.IsUniqueViolation(err) {
				return sentinel.ErrConflict
			}
			return fmt.Errorf("insert verification status: %w", err)
		}
		return nil
	}

	res, err := s.conn(ctx).ExecContext(ctx, `
		UPDATE verification_status SET
			status = $2, age_verified = $3, min_age_confirmed = $4, attempts_today = $5,
			attempts_total = $6, last_attempt_at = $7, reason_failed = $8, admin_override = $9,
			window_attempts = $10, banned_until = $11, in_flight_attempt_id = $12,
			in_flight_started_at = $13, awaiting_review_attempt_id = $14, reference_embedding_id = $15,
			version = $16, updated_at = $17
		WHERE user_id = $1 AND version = $18
	`, append(args[:16:16], st.UpdatedAt, expected)...)
	if err != nil {
		return fmt.Errorf("update verification status: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update verification status rows affected: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrConflict
	}
	return nil
}

func (s *PostgresStore) insertAttempt(ctx context.Context, a *models.Attempt) error {
	var reviewEntry uuid.NullUUID
	if a.ReviewEntryID != nil {
		reviewEntry = uuid.NullUUID{UUID: uuid.UUID(*a.ReviewEntryID), Valid: true}
	}
	_, err := s.conn(ctx).ExecContext(ctx, `
		INSERT INTO verification_attempts (`+attemptColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`,
		uuid.UUID(a.ID), uuid.UUID(a.UserID), a.AttemptNumber, a.AttemptedAt, string(a.Result),
		a.LivenessScore, a.AgeEstimate, pq.Array(nonNil(a.PhotoMatchScores)), a.FailureReason,
		a.HumanReviewed, a.ReviewedBy, reviewEntry, a.ClientPlatform, a.MediaDigest,
	)
	if err != nil {
		return fmt.Errorf("insert attempt: %w", err)
	}
	return nil
}

// insertEmbedding appends the row first and only then moves the current flag,
// so a reader never sees a user with two current embeddings.
func (s *PostgresStore) insertEmbedding(ctx context.Context, e *models.FaceEmbedding) error {
	_, err := s.conn(ctx).ExecContext(ctx, `
		INSERT INTO face_embeddings (`+embeddingColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, FALSE, $9, NULL)
	`,
		uuid.UUID(e.ID), uuid.UUID(e.UserID), uuid.UUID(e.AttemptID), string(e.Kind),
		pq.Array(e.Vector), e.Confidence, e.LivenessScore, e.AgeEstimate, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert embedding: %w", err)
	}
	if e.Kind != models.EmbeddingIdentity {
		return nil
	}
	if _, err := s.conn(ctx).ExecContext(ctx, `
		UPDATE face_embeddings SET current = FALSE, superseded_at = $2
		WHERE user_id = $1 AND current
	`, uuid.UUID(e.UserID), e.CreatedAt); err != nil {
		return fmt.Errorf("supersede embedding: %w", err)
	}
	if _, err := s.conn(ctx).ExecContext(ctx, `
		UPDATE face_embeddings SET current = TRUE WHERE id = $1
	`, uuid.UUID(e.ID)); err != nil {
		return fmt.Errorf("mark embedding current: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindAttempt(ctx context.Context, attemptID id.AttemptID) (*models.Attempt, error) {
	query := `SELECT ` + attemptColumns + ` FROM verification_attempts WHERE id = $1`
	a, err := scanAttempt(s.conn(ctx).QueryRowContext(ctx, query, uuid.UUID(attemptID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find attempt: %w", err)
	}
	return a, nil
}

func (s *PostgresStore) ListAttempts(ctx context.Context, userID id.UserID) ([]*models.Attempt, error) {
	query := `SELECT ` + attemptColumns + ` FROM verification_attempts WHERE user_id = $1 ORDER BY attempt_number`
	return s.queryAttempts(ctx, query, uuid.UUID(userID))
}

func (s *PostgresStore) FindAttemptByDigest(ctx context.Context, digest string) (*models.Attempt, error) {
	query := `SELECT ` + attemptColumns + ` FROM verification_attempts
		WHERE media_digest = $1 AND media_digest <> '' ORDER BY attempted_at LIMIT 1`
	a, err := scanAttempt(s.conn(ctx).QueryRowContext(ctx, query, digest))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find attempt by digest: %w", err)
	}
	return a, nil
}

func (s *PostgresStore) ExpiredAttempts(ctx context.Context, cutoff time.Time, limit int) ([]*models.Attempt, error) {
	query := `SELECT ` + attemptColumns + ` FROM verification_attempts
		WHERE attempted_at < $1 ORDER BY attempted_at LIMIT $2`
	return s.queryAttempts(ctx, query, cutoff, limit)
}

func (s *PostgresStore) DeleteAttempt(ctx context.Context, attemptID id.AttemptID) error {
	if _, err := s.conn(ctx).ExecContext(ctx, `DELETE FROM verification_attempts WHERE id = $1`, uuid.UUID(attemptID)); err != nil {
		return fmt.Errorf("delete attempt: %w", err)
	}
	return nil
}

func (s *PostgresStore) queryAttempts(ctx context.Context, query string, args ...any) ([]*models.Attempt, error) {
	rows, err := s.conn(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query attempts: %w", err)
	}
	defer rows.Close()
	var out []*models.Attempt
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *PostgresStore) CurrentEmbedding(ctx context.Context, userID id.UserID) (*models.FaceEmbedding, error) {
	query := `SELECT ` + embeddingColumns + ` FROM face_embeddings WHERE user_id = $1 AND current`
	e, err := scanEmbedding(s.conn(ctx).QueryRowContext(ctx, query, uuid.UUID(userID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find current embedding: %w", err)
	}
	return e, nil
}

func (s *PostgresStore) BanReferences(ctx context.Context) ([]*models.FaceEmbedding, error) {
	query := `SELECT ` + embeddingColumns + ` FROM face_embeddings WHERE kind = $1`
	return s.queryEmbeddings(ctx, query, string(models.EmbeddingBanReference))
}

// LatestEmbedding returns the user's newest embedding of any kind.
func (s *PostgresStore) LatestEmbedding(ctx context.Context, userID id.UserID) (*models.FaceEmbedding, error) {
	query := `SELECT ` + embeddingColumns + ` FROM face_embeddings
		WHERE user_id = $1 ORDER BY created_at DESC LIMIT 1`
	e, err := scanEmbedding(s.conn(ctx).QueryRowContext(ctx, query, uuid.UUID(userID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find latest embedding: %w", err)
	}
	return e, nil
}

// ExpiredEmbeddings never returns the current embedding or a ban reference.
func (s *PostgresStore) ExpiredEmbeddings(ctx context.Context, cutoff time.Time, limit int) ([]*models.FaceEmbedding, error) {
	query := `SELECT ` + embeddingColumns + ` FROM face_embeddings
		WHERE NOT current AND kind <> $3 AND COALESCE(superseded_at, created_at) < $1
		ORDER BY COALESCE(superseded_at, created_at) LIMIT $2`
	return s.queryEmbeddings(ctx, query, cutoff, limit, string(models.EmbeddingBanReference))
}

func (s *PostgresStore) DeleteEmbedding(ctx context.Context, embeddingID id.EmbeddingID) error {
	if _, err := s.conn(ctx).ExecContext(ctx, `DELETE FROM face_embeddings WHERE id = $1 AND NOT current AND kind <> $2`,
		uuid.UUID(embeddingID), string(models.EmbeddingBanReference)); err != nil {
		return fmt.Errorf("delete embedding: %w", err)
	}
	return nil
}

func (s *PostgresStore) queryEmbeddings(ctx context.Context, query string, args ...any) ([]*models.FaceEmbedding, error) {
	rows, err := s.conn(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query embeddings: %w", err)
	}
	defer rows.Close()
	var out []*models.FaceEmbedding
	for rows.Next() {
		e, err := scanEmbedding(rows)
		if err != nil {
			return nil, fmt.Errorf("scan embedding: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *PostgresStore) ListStaleInFlight(ctx context.Context, before time.Time, limit int) ([]id.UserID, error) {
	rows, err := s.conn(ctx).QueryContext(ctx, `
		SELECT user_id FROM verification_status
		WHERE in_flight_attempt_id IS NOT NULL AND in_flight_started_at < $1
		ORDER BY in_flight_started_at
		LIMIT $2
	`, before, limit)
	if err != nil {
		return nil, fmt.Errorf("list stale in-flight: %w", err)
	}
	defer rows.Close()
	var out []id.UserID
	for rows.Next() {
		var uid uuid.UUID
		if err := rows.Scan(&uid); err != nil {
			return nil, fmt.Errorf("scan user id: %w", err)
		}
		out = append(out, id.UserID(uid))
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStatus(row rowScanner) (*models.VerificationStatus, error) {
	var (
		st                 models.VerificationStatus
		userID             uuid.UUID
		status             string
		lastAttempt        sql.NullTime
		window             pq.Int64Array
		bannedUntil        sql.NullTime
		inFlight, awaiting uuid.NullUUID
		inFlightStarted    sql.NullTime
		reference          uuid.NullUUID
	)
	if err := row.Scan(&userID, &status, &st.AgeVerified, &st.MinAgeConfirmed, &st.AttemptsToday,
		&st.AttemptsTotal, &lastAttempt, &st.ReasonFailed, &st.AdminOverride, &window,
		&bannedUntil, &inFlight, &inFlightStarted, &awaiting, &reference,
		&st.Version, &st.CreatedAt, &st.UpdatedAt); err != nil {
		return nil, err
	}
	st.UserID = id.UserID(userID)
	st.Status = models.Status(status)
	st.LastAttemptAt = nullTime(lastAttempt)
	st.WindowAttempts = windowTimes(window)
	st.BannedUntil = nullTime(bannedUntil)
	st.InFlightStartedAt = nullTime(inFlightStarted)
	st.InFlightAttemptID = attemptIDPtr(inFlight)
	st.AwaitingReviewAttemptID = attemptIDPtr(awaiting)
	if reference.Valid {
		v := id.EmbeddingID(reference.UUID)
		st.ReferenceEmbeddingID = &v
	}
	return &st, nil
}

func scanAttempt(row rowScanner) (*models.Attempt, error) {
	var (
		a           models.Attempt
		aid, uid    uuid.UUID
		result      string
		scores      pq.Float64Array
		reviewEntry uuid.NullUUID
	)
	if err := row.Scan(&aid, &uid, &a.AttemptNumber, &a.AttemptedAt, &result, &a.LivenessScore,
		&a.AgeEstimate, &scores, &a.FailureReason, &a.HumanReviewed, &a.ReviewedBy, &reviewEntry,
		&a.ClientPlatform, &a.MediaDigest); err != nil {
		return nil, err
	}
	a.ID = id.AttemptID(aid)
	a.UserID = id.UserID(uid)
	a.Result = models.Result(result)
	a.PhotoMatchScores = []float64(scores)
	if reviewEntry.Valid {
		v := id.ReviewEntryID(reviewEntry.UUID)
		a.ReviewEntryID = &v
	}
	return &a, nil
}

func scanEmbedding(row rowScanner) (*models.FaceEmbedding, error) {
	var (
		e             models.FaceEmbedding
		eid, uid, aid uuid.UUID
		kind          string
		vector        pq.Float64Array
		superseded    sql.NullTime
	)
	if err := row.Scan(&eid, &uid, &aid, &kind, &vector, &e.Confidence, &e.LivenessScore,
		&e.AgeEstimate, &e.Current, &e.CreatedAt, &superseded); err != nil {
		return nil, err
	}
	e.ID = id.EmbeddingID(eid)
	e.UserID = id.UserID(uid)
	e.AttemptID = id.AttemptID(aid)
	e.Kind = models.EmbeddingKind(kind)
	e.Vector = []float64(vector)
	e.SupersededAt = nullTime(superseded)
	return &e, nil
}

func nullTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func nullAttemptID(a *id.AttemptID) uuid.NullUUID {
	if a == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: uuid.UUID(*a), Valid: true}
}

func attemptIDPtr(n uuid.NullUUID) *id.AttemptID {
	if !n.Valid {
		return nil
	}
	v := id.AttemptID(n.UUID)
	return &v
}

func nullEmbeddingID(e *id.EmbeddingID) uuid.NullUUID {
	if e == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: uuid.UUID(*e), Valid: true}
}

// window attempts are stored as unix microseconds, the resolution of timestamptz
func windowMicros(ts []time.Time) []int64 {
	out := make([]int64, len(ts))
	for i, t := range ts {
		out[i] = t.UnixMicro()
	}
	return out
}

func windowTimes(us pq.Int64Array) []time.Time {
	if len(us) == 0 {
		return nil
	}
	out := make([]time.Time, len(us))
	for i, v := range us {
		out[i] = time.UnixMicro(v).UTC()
	}
	return out
}

func nonNil(v []float64) []float64 {
	if v == nil {
		return []float64{}
	}
	return v
}
