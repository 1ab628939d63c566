package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	strutil "faceguard/pkg/platform/strings"
)

// Config is the complete runtime configuration, built once in main.
type Config struct {
	Server    Server
	Auth      Auth
	Database  Database
	Redis     RedisConfig
	Kafka     Kafka
	AWS       AWS
	Provider  Provider
	Policy    Policy
	Limits    Limits
	Meeting   Meeting
	Retention Retention
	Stripe    Stripe
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr     string
	Env      string
	LogLevel string
}

type Auth struct {
	JWTSigningKey string
	Issuer        string
	Audience      string
}

type Database struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// RedisConfig configures the embedding cache. An empty URL disables Redis.
type RedisConfig struct {
	URL               string
	PoolSize          int
	MinIdleConns      int
	DialTimeout       time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	EmbeddingCacheTTL time.Duration
}

type Kafka struct {
	Brokers           []string
	DecisionTopic     string
	ConsumerGroup     string
	Partitions        int32
	ReplicationFactor int16
}

type AWS struct {
	Region        string
	Endpoint      string
	MediaBucket   string
	ArchiveBucket string
	SNSTopicARN   string
}

// Provider configures the external biometric capability.
type Provider struct {
	URL              string
	APIKey           string
	Timeout          time.Duration
	EmbeddingDim     int
	FailureThreshold int
	Cooldown         time.Duration
}

// Policy holds the evaluator thresholds.
type Policy struct {
	LivenessThreshold  float64
	MinAge             float64
	MatchLow           float64
	MatchHigh          float64
	AIBound            float64
	AIPolicy           string
	MaxAgeSpread       float64
	PairwiseFloor      float64
	MinConfidence      float64
	EvasionThreshold   float64
	DuplicateThreshold float64
}

// Limits holds the retry and ban policy.
type Limits struct {
	MaxAttemptsPerWindow int
	MaxAttemptsTotal     int
	AttemptWindow        time.Duration
	BanCooldown          time.Duration
	RetryCooldown        time.Duration
	AbandonWindow        time.Duration
	MaxPhotos            int
	MaxUploadBytes       int64
}

type Meeting struct {
	Timeout             time.Duration
	SimilarityThreshold float64
	Sink                string
}

type Retention struct {
	RawMedia         time.Duration
	MeetingMedia     time.Duration
	Embedding        time.Duration
	ReviewEntry      time.Duration
	Attempt          time.Duration
	MeetingRecord    time.Duration
	AuditEvent       time.Duration
	BatchSize        int
	SweepSchedule    string
	AbandonSchedule  string
	DispatchSchedule string
}

type Stripe struct {
	SecretKey string
}

const day = 24 * time.Hour

// FromEnv builds the config from environment variables so main stays lean.
// A .env file in the working directory is loaded first when present.
func FromEnv() Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to load .env file", "error", err)
	}

	return Config{
		Server: Server{
			Addr:     getEnv("FACEGUARD_ADDR", ":8080"),
			Env:      getEnv("ENV", "development"),
			LogLevel: getEnv("LOG_LEVEL", "info"),
		},
		Auth: Auth{
			// Use a default for development - should be overridden in production
			JWTSigningKey: getEnv("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
			Issuer:        getEnv("JWT_ISSUER", "faceguard"),
			Audience:      getEnv("JWT_AUDIENCE", "faceguard-api"),
		},
		Database: Database{
			URL:             getEnv("DATABASE_URL", ""),
			MaxOpenConns:    getInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getDuration("DATABASE_CONN_MAX_LIFETIME", 30*time.Minute),
		},
		Redis: RedisConfig{
			URL:               getEnv("REDIS_URL", ""),
			PoolSize:          getInt("REDIS_POOL_SIZE", 10),
			MinIdleConns:      getInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:       getDuration("REDIS_DIAL_TIMEOUT", 2*time.Second),
			ReadTimeout:       getDuration("REDIS_READ_TIMEOUT", 500*time.Millisecond),
			WriteTimeout:      getDuration("REDIS_WRITE_TIMEOUT", 500*time.Millisecond),
			EmbeddingCacheTTL: getDuration("REDIS_EMBEDDING_CACHE_TTL", 10*time.Minute),
		},
		Kafka: Kafka{
			Brokers:           getList("KAFKA_BROKERS"),
			DecisionTopic:     getEnv("KAFKA_DECISION_TOPIC", "meeting.denial-decisions"),
			ConsumerGroup:     getEnv("KAFKA_CONSUMER_GROUP", "faceguard-refund-relay"),
			Partitions:        int32(getInt("KAFKA_TOPIC_PARTITIONS", 3)),
			ReplicationFactor: int16(getInt("KAFKA_TOPIC_REPLICATION", 1)),
		},
		AWS: AWS{
			Region:        getEnv("AWS_REGION", "us-east-1"),
			Endpoint:      getEnv("AWS_ENDPOINT_URL", ""),
			MediaBucket:   getEnv("MEDIA_BUCKET", ""),
			ArchiveBucket: getEnv("ARCHIVE_BUCKET", ""),
			SNSTopicARN:   getEnv("SNS_DECISION_TOPIC_ARN", ""),
		},
		Provider: Provider{
			URL:              getEnv("BIOMETRIC_PROVIDER_URL", "http://localhost:8082"),
			APIKey:           getEnv("BIOMETRIC_PROVIDER_API_KEY", ""),
			Timeout:          getDuration("BIOMETRIC_PROVIDER_TIMEOUT", 20*time.Second),
			EmbeddingDim:     getInt("BIOMETRIC_EMBEDDING_DIM", 128),
			FailureThreshold: getInt("BIOMETRIC_BREAKER_FAILURES", 5),
			Cooldown:         getDuration("BIOMETRIC_BREAKER_COOLDOWN", 30*time.Second),
		},
		Policy: Policy{
			LivenessThreshold:  getFloat("POLICY_LIVENESS_THRESHOLD", 0.85),
			MinAge:             getFloat("POLICY_MIN_AGE", 18.0),
			MatchLow:           getFloat("POLICY_MATCH_LOW", 0.75),
			MatchHigh:          getFloat("POLICY_MATCH_HIGH", 0.90),
			AIBound:            getFloat("POLICY_AI_BOUND", 0.5),
			AIPolicy:           getEnv("POLICY_AI_ACTION", "review"),
			MaxAgeSpread:       getFloat("POLICY_MAX_AGE_SPREAD", 15),
			PairwiseFloor:      getFloat("POLICY_PAIRWISE_FLOOR", 0.5),
			MinConfidence:      getFloat("POLICY_MIN_CONFIDENCE", 0.6),
			EvasionThreshold:   getFloat("POLICY_EVASION_THRESHOLD", 0.92),
			DuplicateThreshold: getFloat("POLICY_DUPLICATE_THRESHOLD", 0.995),
		},
		Limits: Limits{
			MaxAttemptsPerWindow: getInt("LIMIT_ATTEMPTS_PER_WINDOW", 3),
			MaxAttemptsTotal:     getInt("LIMIT_ATTEMPTS_TOTAL", 7),
			AttemptWindow:        getDuration("LIMIT_ATTEMPT_WINDOW", day),
			BanCooldown:          getDuration("LIMIT_BAN_COOLDOWN", 2*day),
			RetryCooldown:        getDuration("LIMIT_RETRY_COOLDOWN", 30*time.Second),
			AbandonWindow:        getDuration("LIMIT_ABANDON_WINDOW", 10*time.Minute),
			MaxPhotos:            getInt("LIMIT_MAX_PHOTOS", 6),
			MaxUploadBytes:       int64(getInt("LIMIT_MAX_UPLOAD_BYTES", 32<<20)),
		},
		Meeting: Meeting{
			Timeout:             getDuration("MEETING_CHECK_TIMEOUT", 3*time.Second),
			SimilarityThreshold: getFloat("MEETING_SIMILARITY_THRESHOLD", 0.70),
			Sink:                getEnv("MEETING_DECISION_SINK", "kafka"),
		},
		Retention: Retention{
			RawMedia:         getDuration("RETENTION_RAW_MEDIA", 30*day),
			MeetingMedia:     getDuration("RETENTION_MEETING_MEDIA", 7*day),
			Embedding:        getDuration("RETENTION_EMBEDDING", 365*day),
			ReviewEntry:      getDuration("RETENTION_REVIEW_ENTRY", 730*day),
			Attempt:          getDuration("RETENTION_ATTEMPT", 2555*day),
			MeetingRecord:    getDuration("RETENTION_MEETING_RECORD", 2555*day),
			AuditEvent:       getDuration("RETENTION_AUDIT_EVENT", 2555*day),
			BatchSize:        getInt("RETENTION_BATCH_SIZE", 500),
			SweepSchedule:    getEnv("RETENTION_SWEEP_SCHEDULE", "0 3 * * *"),
			AbandonSchedule:  getEnv("ABANDON_SWEEP_SCHEDULE", "@every 1m"),
			DispatchSchedule: getEnv("DECISION_DISPATCH_SCHEDULE", "@every 15s"),
		},
		Stripe: Stripe{
			SecretKey: getEnv("STRIPE_SECRET_KEY", ""),
		},
	}
}

// IsProduction reports whether the service runs in production mode.
func (c Config) IsProduction() bool {
	return c.Server.Env == "production"
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		return val
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return fallback
}

func getFloat(key string, fallback float64) float64 {
	if val, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return fallback
}

// getDuration accepts Go duration syntax ("90s", "48h").
func getDuration(key string, fallback time.Duration) time.Duration {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return fallback
}

func getList(key string) []string {
	return strutil.SplitList(getEnv(key, ""))
}
