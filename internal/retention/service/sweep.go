package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"faceguard/internal/retention/models"
	id "faceguard/pkg/domain"
	dErrors "faceguard/pkg/domain-errors"
	"faceguard/pkg/platform/audit"
	"faceguard/pkg/platform/sentinel"
	"faceguard/pkg/requestcontext"
)

// Sweep runs every registered class once. A failing class does not stop the
// others; all failures are joined into the returned error.
func (m *Manager) Sweep(ctx context.Context) (*models.SweepReport, error) {
	now := requestcontext.Now(ctx)
	report := &models.SweepReport{StartedAt: now}
	holds := newHoldCache(m.holds)

	var errs []error
	for _, class := range models.Classes() {
		src, ok := m.sources[class]
		if !ok {
			continue
		}
		rep, err := m.sweepClass(ctx, class, src, now.Add(-m.policy[class]), holds)
		report.Classes = append(report.Classes, rep)
		if err != nil {
			errs = append(errs, fmt.Errorf("sweep %s: %w", class, err))
		}
	}
	report.FinishedAt = requestcontext.Now(ctx)

	totals := report.Totals()
	audit.LogAudit(ctx, m.logger, m.auditor, audit.Event{
		Action:     string(audit.EventRetentionSweep),
		ResourceID: "retention",
		Decision:   fmt.Sprintf("deleted=%d archived=%d failed=%d", totals.Deleted, totals.Archived, totals.Failed),
		Timestamp:  now,
	})
	return report, errors.Join(errs...)
}

func (m *Manager) sweepClass(ctx context.Context, class models.Class, src Source, cutoff time.Time, holds *holdCache) (models.ClassReport, error) {
	rep := models.ClassReport{Class: class}
	for range maxBatches {
		batch, err := src.Expired(ctx, cutoff, m.batchSize)
		if err != nil {
			return rep, err
		}
		progressed := 0
		for _, a := range batch {
			if err := ctx.Err(); err != nil {
				return rep, err
			}
			archived, err := m.expire(ctx, class, src, a, holds)
			if archived {
				rep.Archived++
			}
			if err != nil {
				rep.Failed++
				m.metrics.IncArtifact(string(class), "failed")
				m.logger.WarnContext(ctx, "retention could not expire artifact",
					"class", string(class),
					"artifact_id", a.ID,
					"error", err,
				)
				continue
			}
			rep.Deleted++
			progressed++
			m.metrics.IncArtifact(string(class), "deleted")
		}
		if len(batch) < m.batchSize || progressed == 0 {
			break
		}
	}
	if rep.Deleted > 0 || rep.Failed > 0 {
		m.logger.InfoContext(ctx, "retention class swept",
			"class", string(class),
			"deleted", rep.Deleted,
			"archived", rep.Archived,
			"failed", rep.Failed,
		)
	}
	return rep, nil
}

// expire archives a held user's artifact, then deletes the hot copy. An
// artifact whose archive step fails is kept.
func (m *Manager) expire(ctx context.Context, class models.Class, src Source, a models.Artifact, holds *holdCache) (bool, error) {
	held, err := holds.held(ctx, a.UserID)
	if err != nil {
		return false, fmt.Errorf("legal hold lookup: %w", err)
	}
	archived := false
	if held {
		if err := m.export(ctx, class, src, a); err != nil {
			return false, err
		}
		archived = true
		m.metrics.IncArtifact(string(class), "archived")
	}
	return archived, src.Delete(ctx, a)
}

func (m *Manager) export(ctx context.Context, class models.Class, src Source, a models.Artifact) error {
	if m.archive == nil {
		return errors.New("no archive configured for held artifact")
	}
	doc, err := src.Export(ctx, a)
	if err != nil {
		return fmt.Errorf("export artifact: %w", err)
	}
	key := models.ArchiveKey(class, a)
	if err := m.archive.Put(ctx, key, "application/json", doc); err != nil {
		return fmt.Errorf("archive artifact: %w", err)
	}
	if m.compliance != nil {
		if err := m.compliance.Emit(ctx, audit.ComplianceEvent{
			Timestamp:  requestcontext.Now(ctx),
			UserID:     a.UserID,
			ResourceID: key,
			Action:     audit.EventArtifactArchived,
			Decision:   string(class),
			Reason:     "legal hold",
			RequestID:  requestcontext.RequestID(ctx),
		}); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "archive audit could not be persisted")
		}
	}
	return nil
}

// holdCache memoizes hold lookups for one sweep.
type holdCache struct {
	store HoldStore
	seen  map[id.UserID]bool
}

func newHoldCache(store HoldStore) *holdCache {
	return &holdCache{store: store, seen: make(map[id.UserID]bool)}
}

func (c *holdCache) held(ctx context.Context, userID id.UserID) (bool, error) {
	if userID.IsNil() {
		return false, nil
	}
	if h, ok := c.seen[userID]; ok {
		return h, nil
	}
	_, err := c.store.Find(ctx, userID)
	switch {
	case err == nil:
		c.seen[userID] = true
	case errors.Is(err, sentinel.ErrNotFound):
		c.seen[userID] = false
	default:
		return false, err
	}
	return c.seen[userID], nil
}
