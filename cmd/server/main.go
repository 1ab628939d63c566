package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"faceguard/internal/biometric/evaluator"
	"faceguard/internal/biometric/provider"
	"faceguard/internal/biometric/provider/httpprovider"
	"faceguard/internal/media"
	"faceguard/internal/meeting/cache"
	meetinghandler "faceguard/internal/meeting/handler"
	meetingservice "faceguard/internal/meeting/service"
	"faceguard/internal/platform/aws"
	"faceguard/internal/platform/config"
	"faceguard/internal/platform/httpserver"
	"faceguard/internal/platform/logger"
	"faceguard/internal/platform/metrics"
	platformredis "faceguard/internal/platform/redis"
	"faceguard/internal/platform/scheduler"
	"faceguard/internal/platform/token"
	retentionhandler "faceguard/internal/retention/handler"
	retentionmodels "faceguard/internal/retention/models"
	retentionservice "faceguard/internal/retention/service"
	reviewhandler "faceguard/internal/review/handler"
	reviewservice "faceguard/internal/review/service"
	httptransport "faceguard/internal/transport/http"
	verificationhandler "faceguard/internal/verification/handler"
	verificationmodels "faceguard/internal/verification/models"
	verificationservice "faceguard/internal/verification/service"
	"faceguard/pkg/platform/audit/publisher"
	"faceguard/pkg/platform/audit/publishers/compliance"
	"faceguard/pkg/platform/circuit"
)

const (
	providerID          = "primary"
	shutdownTimeout     = 15 * time.Second
	jobTimeout          = 30 * time.Minute
	meetingUploadBytes  = 8 << 20
	auditAsyncBufferLen = 1024
)

func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.Server.LogLevel)
	slog.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("faceguard exited", "error", err)
		os.Exit(1)
	}
}

// run wires dependencies, serves HTTP and runs the background jobs until a
// termination signal arrives.
func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, cfg.Database, log)
	if err != nil {
		return err
	}
	defer st.Close()

	var clients *aws.Clients
	if cfg.AWS.MediaBucket != "" || cfg.AWS.ArchiveBucket != "" || cfg.Meeting.Sink == "sns" {
		if clients, err = aws.Load(ctx, cfg.AWS); err != nil {
			return err
		}
	}
	mediaStore := media.NewStore(blobStore(clients, cfg.AWS.MediaBucket, "media", log), st.mediaIndex)
	archive := blobStore(clients, cfg.AWS.ArchiveBucket, "archive", log)

	auditor := publisher.NewPublisher(st.audits,
		publisher.WithLogger(log),
		publisher.WithAsyncBuffer(auditAsyncBufferLen),
	)
	defer auditor.Close()
	complianceAuditor := compliance.New(st.audits,
		compliance.WithLogger(log),
		compliance.WithMetrics(compliance.NewMetrics()),
	)

	policy := evaluatorPolicy(cfg.Policy)
	analyzer := provider.NewGuard(
		httpprovider.New(providerID, cfg.Provider.URL, cfg.Provider.APIKey, cfg.Provider.Timeout),
		providerID,
		provider.WithTimeout(cfg.Provider.Timeout),
		provider.WithEmbeddingDim(cfg.Provider.EmbeddingDim),
		provider.WithBreaker(circuit.New("biometric-"+providerID,
			circuit.WithFailureThreshold(cfg.Provider.FailureThreshold),
			circuit.WithCooldown(cfg.Provider.Cooldown),
		)),
		provider.WithMetrics(provider.NewMetrics()),
		provider.WithLogger(log),
	)

	verificationOpts := []verificationservice.Option{
		verificationservice.WithLogger(log),
		verificationservice.WithAnalyzer(analyzer),
		verificationservice.WithMediaStore(mediaStore),
		verificationservice.WithAuditPublisher(auditor),
		verificationservice.WithCompliancePublisher(complianceAuditor),
		verificationservice.WithMetrics(verificationservice.NewMetrics()),
		verificationservice.WithLimits(verificationLimits(cfg.Limits)),
		verificationservice.WithPolicy(policy),
		verificationservice.WithMaxPhotos(cfg.Limits.MaxPhotos),
	}
	reviewOpts := []reviewservice.Option{
		reviewservice.WithLogger(log),
		reviewservice.WithAuditPublisher(auditor),
		reviewservice.WithCompliancePublisher(complianceAuditor),
		reviewservice.WithMetrics(reviewservice.NewMetrics()),
		reviewservice.WithPolicy(policy),
	}
	meetingOpts := []meetingservice.Option{
		meetingservice.WithLogger(log),
		meetingservice.WithAnalyzer(analyzer),
		meetingservice.WithMediaStore(mediaStore),
		meetingservice.WithAuditPublisher(auditor),
		meetingservice.WithCompliancePublisher(complianceAuditor),
		meetingservice.WithMetrics(meetingservice.NewMetrics()),
		meetingservice.WithTimeout(cfg.Meeting.Timeout),
		meetingservice.WithSimilarityThreshold(cfg.Meeting.SimilarityThreshold),
		meetingservice.WithPolicy(policy),
	}
	retentionOpts := []retentionservice.Option{
		retentionservice.WithLogger(log),
		retentionservice.WithArchive(archive),
		retentionservice.WithAuditPublisher(auditor),
		retentionservice.WithCompliancePublisher(complianceAuditor),
		retentionservice.WithMetrics(retentionservice.NewMetrics()),
		retentionservice.WithPolicy(retentionPolicy(cfg.Retention)),
		retentionservice.WithBatchSize(cfg.Retention.BatchSize),
		retentionservice.WithSource(retentionmodels.ClassRawMedia, retentionservice.MediaSource(mediaStore, media.ClassRaw)),
		retentionservice.WithSource(retentionmodels.ClassMeetingMedia, retentionservice.MediaSource(mediaStore, media.ClassMeeting)),
		retentionservice.WithSource(retentionmodels.ClassEmbedding, retentionservice.EmbeddingSource(st.verification)),
		retentionservice.WithSource(retentionmodels.ClassReviewEntry, retentionservice.ReviewSource(st.review)),
		retentionservice.WithSource(retentionmodels.ClassAttempt, retentionservice.AttemptSource(st.verification)),
		retentionservice.WithSource(retentionmodels.ClassMeetingRecord, retentionservice.MeetingSource(st.meeting)),
		retentionservice.WithSource(retentionmodels.ClassAuditEvent, retentionservice.AuditSource(st.audits)),
	}
	if st.tx != nil {
		verificationOpts = append(verificationOpts, verificationservice.WithTxRunner(st.tx))
		reviewOpts = append(reviewOpts, reviewservice.WithTxRunner(st.tx))
		meetingOpts = append(meetingOpts, meetingservice.WithTxRunner(st.tx))
		retentionOpts = append(retentionOpts, retentionservice.WithTxRunner(st.tx))
	}

	health := map[string]httptransport.HealthCheck{"database": st.health}

	redisClient, err := platformredis.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
		references := cache.NewRedis(redisClient.Client, cache.WithTTL(cfg.Redis.EmbeddingCacheTTL))
		verificationOpts = append(verificationOpts, verificationservice.WithReferenceCache(references))
		meetingOpts = append(meetingOpts, meetingservice.WithEmbeddingCache(references))
		health["redis"] = redisClient.Health
	}

	verificationSvc, err := verificationservice.New(st.verification, verificationOpts...)
	if err != nil {
		return err
	}
	reviewSvc, err := reviewservice.New(st.review, verificationSvc, reviewOpts...)
	if err != nil {
		return err
	}
	verificationSvc.SetReviewQueue(reviewSvc)

	decisions, closeSink, err := newDecisionSink(ctx, cfg, clients, log)
	if err != nil {
		return err
	}
	defer closeSink()
	meetingOpts = append(meetingOpts,
		meetingservice.WithVerificationReader(verificationSvc),
		meetingservice.WithInstructionSink(decisions),
	)
	gate, err := meetingservice.New(st.meeting, meetingOpts...)
	if err != nil {
		return err
	}

	retention, err := retentionservice.New(st.holds, retentionOpts...)
	if err != nil {
		return err
	}

	jobs := scheduler.New(scheduler.WithLogger(log), scheduler.WithJobTimeout(jobTimeout))
	if err := jobs.Add("retention-sweep", cfg.Retention.SweepSchedule, func(ctx context.Context) error {
		_, err := retention.Sweep(ctx)
		return err
	}); err != nil {
		return err
	}
	if err := jobs.Add("abandoned-attempts", cfg.Retention.AbandonSchedule, func(ctx context.Context) error {
		_, err := verificationSvc.ExpireAbandoned(ctx)
		return err
	}); err != nil {
		return err
	}
	if err := jobs.Add("decision-dispatch", cfg.Retention.DispatchSchedule, func(ctx context.Context) error {
		_, err := gate.DispatchPending(ctx)
		return err
	}); err != nil {
		return err
	}

	verificationHTTP := verificationhandler.New(verificationSvc, log, cfg.Limits.MaxUploadBytes)
	meetingHTTP := meetinghandler.New(gate, log, meetingUploadBytes)
	router := httptransport.NewRouter(httptransport.Deps{
		Logger:  log,
		Metrics: metrics.New(),
		Tokens:  token.NewJWTService(cfg.Auth.JWTSigningKey, cfg.Auth.Issuer, cfg.Auth.Audience),
		User: []httptransport.Registrar{
			verificationHTTP.Register,
			meetingHTTP.Register,
		},
		Admin: []httptransport.Registrar{
			verificationHTTP.RegisterAdmin,
			reviewhandler.New(reviewSvc, log).Register,
			retentionhandler.New(retention, log).RegisterAdmin,
		},
		Health: health,
	})

	srv := httpserver.New(cfg.Server.Addr, router)
	serveErr := make(chan error, 1)
	go func() {
		log.Info("starting faceguard", "addr", cfg.Server.Addr, "env", cfg.Server.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()
	jobs.Start()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-serveErr:
		if err != nil {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
	if err := jobs.Stop(shutdownCtx); err != nil {
		log.Error("background jobs did not stop in time", "error", err)
	}
	return nil
}

func blobStore(clients *aws.Clients, bucket, name string, log *slog.Logger) media.BlobStore {
	if bucket == "" || clients == nil {
		log.Warn("no bucket configured, keeping objects in memory", "store", name)
		return media.NewInMemoryBlobs()
	}
	return media.NewS3Blobs(clients.S3, bucket)
}

func evaluatorPolicy(p config.Policy) evaluator.Policy {
	return evaluator.Policy{
		LivenessThreshold:  p.LivenessThreshold,
		MinAge:             p.MinAge,
		MatchLow:           p.MatchLow,
		MatchHigh:          p.MatchHigh,
		AIBound:            p.AIBound,
		AIPolicy:           evaluator.AIPolicy(p.AIPolicy),
		MaxAgeSpread:       p.MaxAgeSpread,
		PairwiseFloor:      p.PairwiseFloor,
		MinConfidence:      p.MinConfidence,
		EvasionThreshold:   p.EvasionThreshold,
		DuplicateThreshold: p.DuplicateThreshold,
	}
}

func verificationLimits(l config.Limits) verificationmodels.Limits {
	return verificationmodels.Limits{
		MaxAttemptsPerWindow: l.MaxAttemptsPerWindow,
		MaxAttemptsTotal:     l.MaxAttemptsTotal,
		AttemptWindow:        l.AttemptWindow,
		BanCooldown:          l.BanCooldown,
		RetryCooldown:        l.RetryCooldown,
		AbandonWindow:        l.AbandonWindow,
	}
}

func retentionPolicy(r config.Retention) retentionmodels.Policy {
	return retentionmodels.Policy{
		retentionmodels.ClassRawMedia:      r.RawMedia,
		retentionmodels.ClassMeetingMedia:  r.MeetingMedia,
		retentionmodels.ClassEmbedding:     r.Embedding,
		retentionmodels.ClassReviewEntry:   r.ReviewEntry,
		retentionmodels.ClassAttempt:       r.Attempt,
		retentionmodels.ClassMeetingRecord: r.MeetingRecord,
		retentionmodels.ClassAuditEvent:    r.AuditEvent,
	}
}
