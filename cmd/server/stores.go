package main

import (
	"context"
	"database/sql"
	"log/slog"

	"faceguard/internal/media"
	meetingservice "faceguard/internal/meeting/service"
	meetingstore "faceguard/internal/meeting/store"
	"faceguard/internal/platform/config"
	"faceguard/internal/platform/postgres"
	retentionservice "faceguard/internal/retention/service"
	retentionstore "faceguard/internal/retention/store"
	reviewservice "faceguard/internal/review/service"
	reviewstore "faceguard/internal/review/store"
	verificationservice "faceguard/internal/verification/service"
	verificationstore "faceguard/internal/verification/store"
	"faceguard/pkg/platform/audit"
	auditmemory "faceguard/pkg/platform/audit/store/memory"
	auditpostgres "faceguard/pkg/platform/audit/store/postgres"
	"faceguard/pkg/platform/tx"
)

type txRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// stores groups every persistence port. With no DATABASE_URL everything is
// in memory, which is only suitable for local development.
type stores struct {
	db           *sql.DB
	tx           txRunner
	verification interface {
		verificationservice.Store
		retentionservice.AttemptStore
		retentionservice.EmbeddingStore
	}
	review interface {
		reviewservice.Store
		retentionservice.ReviewStore
	}
	meeting interface {
		meetingservice.Store
		retentionservice.MeetingStore
	}
	holds  retentionservice.HoldStore
	audits interface {
		audit.Store
		retentionservice.AuditStore
	}
	mediaIndex media.Index
}

func openStores(ctx context.Context, cfg config.Database, log *slog.Logger) (*stores, error) {
	if cfg.URL == "" {
		log.Warn("DATABASE_URL not set, using in-memory stores")
		return &stores{
			verification: verificationstore.NewInMemory(),
			review:       reviewstore.NewInMemory(),
			meeting:      meetingstore.NewInMemory(),
			holds:        retentionstore.NewInMemory(),
			audits:       auditmemory.NewInMemoryStore(),
			mediaIndex:   media.NewInMemoryIndex(),
		}, nil
	}

	db, err := postgres.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := postgres.Migrate(ctx, db, log); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &stores{
		db:           db,
		tx:           tx.NewRunner(db),
		verification: verificationstore.NewPostgres(db),
		review:       reviewstore.NewPostgres(db),
		meeting:      meetingstore.NewPostgres(db),
		holds:        retentionstore.NewPostgres(db),
		audits:       auditpostgres.New(db),
		mediaIndex:   media.NewPostgresIndex(db),
	}, nil
}

func (s *stores) health(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	return s.db.PingContext(ctx)
}

func (s *stores) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
