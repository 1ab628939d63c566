// Package service implements the retention manager: per-class expiry sweeps,
// legal holds, and export of held users' artifacts to the archive.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"faceguard/internal/retention/models"
	id "faceguard/pkg/domain"
	"faceguard/pkg/platform/audit"
)

const (
	defaultBatchSize = 500
	// maxBatches bounds one class's work per sweep; the rest waits for the next run.
	maxBatches = 100
)

type HoldStore interface {
	Set(ctx context.Context, hold models.LegalHold) error
	Clear(ctx context.Context, userID id.UserID) error
	Find(ctx context.Context, userID id.UserID) (*models.LegalHold, error)
	List(ctx context.Context) ([]models.LegalHold, error)
}

// ArchiveStore receives exported artifacts. Satisfied by media.S3Blobs on the
// archive bucket.
type ArchiveStore interface {
	Put(ctx context.Context, key, contentType string, data []byte) error
}

type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type Manager struct {
	holds      HoldStore
	archive    ArchiveStore
	sources    map[models.Class]Source
	tx         TxRunner
	auditor    audit.Emitter
	compliance audit.ComplianceEmitter
	logger     *slog.Logger
	metrics    *Metrics

	policy    models.Policy
	batchSize int
}

type Option func(*Manager)

func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

func WithArchive(a ArchiveStore) Option {
	return func(m *Manager) {
		m.archive = a
	}
}

// WithSource registers the sweeper for class. Classes without a source are
// skipped.
func WithSource(class models.Class, src Source) Option {
	return func(m *Manager) {
		m.sources[class] = src
	}
}

func WithTxRunner(tx TxRunner) Option {
	return func(m *Manager) {
		m.tx = tx
	}
}

func WithAuditPublisher(p audit.Emitter) Option {
	return func(m *Manager) {
		m.auditor = p
	}
}

func WithCompliancePublisher(p audit.ComplianceEmitter) Option {
	return func(m *Manager) {
		m.compliance = p
	}
}

func WithMetrics(metrics *Metrics) Option {
	return func(m *Manager) {
		m.metrics = metrics
	}
}

// WithPolicy overrides TTLs per class. Zero durations keep the default.
func WithPolicy(p models.Policy) Option {
	return func(m *Manager) {
		for class, ttl := range p {
			if ttl > 0 {
				m.policy[class] = ttl
			}
		}
	}
}

func WithBatchSize(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.batchSize = n
		}
	}
}

func New(holds HoldStore, opts ...Option) (*Manager, error) {
	if holds == nil {
		return nil, errors.New("legal hold store is required")
	}
	m := &Manager{
		holds:     holds,
		sources:   make(map[models.Class]Source),
		logger:    slog.Default(),
		policy:    models.DefaultPolicy(),
		batchSize: defaultBatchSize,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

func (m *Manager) TTL(class models.Class) time.Duration {
	return m.policy[class]
}

func (m *Manager) runInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if m.tx == nil {
		return fn(ctx)
	}
	return m.tx.RunInTx(ctx, fn)
}
