package media

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	id "faceguard/pkg/domain"
)

// PostgresIndex records stored objects in media_objects.
type PostgresIndex struct {
	db *sql.DB
}

func NewPostgresIndex(db *sql.DB) *PostgresIndex {
	return &PostgresIndex{db: db}
}

func (i *PostgresIndex) Record(ctx context.Context, info Info) error {
	_, err := i.db.ExecContext(ctx, `
		INSERT INTO media_objects (key, class, user_id, size_bytes, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (key) DO UPDATE SET
			size_bytes = EXCLUDED.size_bytes,
			created_at = EXCLUDED.created_at
	`, info.Key, string(info.Class), uuid.UUID(info.UserID), info.SizeBytes, info.CreatedAt)
	if err != nil {
		return fmt.Errorf("record media object: %w", err)
	}
	return nil
}

func (i *PostgresIndex) Expired(ctx context.Context, class Class, cutoff time.Time, limit int) ([]Info, error) {
	rows, err := i.db.QueryContext(ctx, `
		SELECT key, class, user_id, size_bytes, created_at
		FROM media_objects
		WHERE class = $1 AND created_at < $2
		ORDER BY created_at
		LIMIT $3
	`, string(class), cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("query expired media: %w", err)
	}
	defer rows.Close()

	var out []Info
	for rows.Next() {
		var (
			info  Info
			cls   string
			owner uuid.UUID
		)
		if err := rows.Scan(&info.Key, &cls, &owner, &info.SizeBytes, &info.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan media object: %w", err)
		}
		info.Class = Class(cls)
		info.UserID = id.UserID(owner)
		out = append(out, info)
	}
	return out, rows.Err()
}

func (i *PostgresIndex) Remove(ctx context.Context, key string) error {
	if _, err := i.db.ExecContext(ctx, `DELETE FROM media_objects WHERE key = $1`, key); err != nil {
		return fmt.Errorf("remove media object: %w", err)
	}
	return nil
}
