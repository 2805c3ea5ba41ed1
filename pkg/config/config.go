package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	NATS       NATSConfig
	S3         S3Config
	Dynamo     DynamoConfig
	CloudWatch CloudWatchConfig
	Security   SecurityConfig
	Engine     EngineConfig
	Runner     RunnerConfig
}

type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

type DatabaseConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	Database        string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

type RedisConfig struct {
	Enabled      bool
	Host         string
	Port         string
	Password     string
	DB           int
	TTL          time.Duration
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type NATSConfig struct {
	Enabled bool
	URL     string
	Stream  string
	Subject string
}

type S3Config struct {
	Enabled         bool
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
	KeyPrefix       string
	URLMode         string
	PresignedTTL    time.Duration
}

type DynamoConfig struct {
	Enabled          bool
	TableReportIndex string
	Region           string
	Endpoint         string
	AccessKeyID      string
	SecretAccessKey  string
	StrongReads      bool
	TTLDays          int
}

type CloudWatchConfig struct {
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string

	MetricsEnabled           bool
	MetricsNamespace         string
	MetricsDimensions        map[string]string
	MetricsBufferSize        int
	MetricsFlushInterval     time.Duration
	MetricsStorageResolution int32

	LogsEnabled       bool
	LogGroupName      string
	LogStreamName     string
	LogsBufferSize    int
	LogsFlushInterval time.Duration
}

type SecurityConfig struct {
	AllowedOrigins     []string
	AuthEnabled        bool
	AuthToken          string
	RateLimitPerMinute int
}

type EngineConfig struct {
	ConfigPath    string
	ChecklistPath string
	Workers       int
	Cadence       string
	PowerMSID     string
}

type RunnerConfig struct {
	Enabled   bool
	Interval  time.Duration
	WeekStart time.Weekday
	Timeout   time.Duration
}

func Load() (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	redisTTL, err := parseDuration(getEnv("REDIS_TTL", "1h"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_TTL: %w", err)
	}

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	presignedTTL, err := parseDuration(getEnv("S3_PRESIGNED_TTL", "15m"))
	if err != nil {
		return nil, fmt.Errorf("invalid S3_PRESIGNED_TTL: %w", err)
	}

	dynamoTTLDays, err := strconv.Atoi(getEnv("DYNAMO_TTL_DAYS", "365"))
	if err != nil {
		return nil, fmt.Errorf("invalid DYNAMO_TTL_DAYS: %w", err)
	}

	metricsFlush, err := parseDuration(getEnv("CLOUDWATCH_METRICS_FLUSH_INTERVAL", "30s"))
	if err != nil {
		return nil, fmt.Errorf("invalid CLOUDWATCH_METRICS_FLUSH_INTERVAL: %w", err)
	}

	logsFlush, err := parseDuration(getEnv("CLOUDWATCH_LOGS_FLUSH_INTERVAL", "5s"))
	if err != nil {
		return nil, fmt.Errorf("invalid CLOUDWATCH_LOGS_FLUSH_INTERVAL: %w", err)
	}

	rateLimit, err := strconv.Atoi(getEnv("RATE_LIMIT_PER_MINUTE", "30"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_PER_MINUTE: %w", err)
	}

	workers, err := strconv.Atoi(getEnv("ENGINE_WORKERS", "4"))
	if err != nil || workers < 1 {
		return nil, fmt.Errorf("invalid ENGINE_WORKERS: must be a positive integer")
	}

	runnerInterval, err := parseDuration(getEnv("RUNNER_INTERVAL", "1h"))
	if err != nil {
		return nil, fmt.Errorf("invalid RUNNER_INTERVAL: %w", err)
	}

	runnerTimeout, err := parseDuration(getEnv("RUNNER_TIMEOUT", "30m"))
	if err != nil {
		return nil, fmt.Errorf("invalid RUNNER_TIMEOUT: %w", err)
	}

	weekStart, err := parseWeekday(getEnv("RUNNER_WEEK_START", "thursday"))
	if err != nil {
		return nil, fmt.Errorf("invalid RUNNER_WEEK_START: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnv("SERVER_PORT", "8080"),
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    5 * time.Minute,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", "postgres"),
			Database:        getEnv("DB_NAME", "telemetry"),
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
			ConnMaxIdleTime: 10 * time.Minute,
		},
		Redis: RedisConfig{
			Enabled:      getEnvBool("REDIS_ENABLED", false),
			Host:         getEnv("REDIS_HOST", "localhost"),
			Port:         getEnv("REDIS_PORT", "6379"),
			Password:     getEnv("REDIS_PASSWORD", ""),
			DB:           redisDB,
			TTL:          redisTTL,
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		NATS: NATSConfig{
			Enabled: getEnvBool("NATS_ENABLED", false),
			URL:     getEnv("NATS_URL", "nats://localhost:4222"),
			Stream:  getEnv("NATS_STREAM", "LIMITMON"),
			Subject: getEnv("NATS_REPORT_SUBJECT", "limitmon.report.generated"),
		},
		S3: S3Config{
			Enabled:         getEnvBool("S3_ENABLED", false),
			Bucket:          getEnv("S3_BUCKET", ""),
			Region:          getEnv("S3_REGION", "ru-central1"),
			Endpoint:        getEnv("S3_ENDPOINT", "https://storage.yandexcloud.net"),
			AccessKeyID:     getEnv("S3_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("S3_SECRET_ACCESS_KEY", ""),
			UsePathStyle:    getEnvBool("S3_USE_PATH_STYLE", true),
			KeyPrefix:       getEnv("S3_KEY_PREFIX", "reports"),
			URLMode:         getEnv("S3_URL_MODE", "presigned"),
			PresignedTTL:    presignedTTL,
		},
		Dynamo: DynamoConfig{
			Enabled:          getEnvBool("DYNAMO_ENABLED", false),
			TableReportIndex: getEnv("DYNAMO_TABLE_REPORT_INDEX", "limitmon_report_index"),
			Region:           getEnv("DYNAMO_REGION", getEnv("AWS_REGION", "us-east-1")),
			Endpoint:         getEnv("DYNAMO_ENDPOINT", ""),
			AccessKeyID:      getEnv("DYNAMO_ACCESS_KEY_ID", getEnv("AWS_ACCESS_KEY_ID", "")),
			SecretAccessKey:  getEnv("DYNAMO_SECRET_ACCESS_KEY", getEnv("AWS_SECRET_ACCESS_KEY", "")),
			StrongReads:      getEnvBool("DYNAMO_STRONG_READS", false),
			TTLDays:          dynamoTTLDays,
		},
		CloudWatch: CloudWatchConfig{
			Region:                   getEnv("CLOUDWATCH_REGION", getEnv("AWS_REGION", "us-east-1")),
			Endpoint:                 getEnv("CLOUDWATCH_ENDPOINT", ""),
			AccessKeyID:              getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey:          getEnv("AWS_SECRET_ACCESS_KEY", ""),
			MetricsEnabled:           getEnvBool("CLOUDWATCH_METRICS_ENABLED", false),
			MetricsNamespace:         getEnv("CLOUDWATCH_METRICS_NAMESPACE", "LimitMonitor"),
			MetricsDimensions:        parseDimensions(getEnv("CLOUDWATCH_METRICS_DIMENSIONS", "Service=limit-monitor")),
			MetricsBufferSize:        getEnvInt("CLOUDWATCH_METRICS_BUFFER_SIZE", 100),
			MetricsFlushInterval:     metricsFlush,
			MetricsStorageResolution: int32(getEnvInt("CLOUDWATCH_METRICS_STORAGE_RESOLUTION", 60)),
			LogsEnabled:              getEnvBool("CLOUDWATCH_LOGS_ENABLED", false),
			LogGroupName:             getEnv("CLOUDWATCH_LOG_GROUP", "/limit-monitor/api"),
			LogStreamName:            getEnv("CLOUDWATCH_LOG_STREAM", hostnameOr("limit-monitor")),
			LogsBufferSize:           getEnvInt("CLOUDWATCH_LOGS_BUFFER_SIZE", 500),
			LogsFlushInterval:        logsFlush,
		},
		Security: SecurityConfig{
			AllowedOrigins:     splitCSV(getEnv("ALLOWED_ORIGINS", "http://localhost:8080,http://127.0.0.1:8080")),
			AuthEnabled:        getEnvBool("AUTH_ENABLED", false),
			AuthToken:          getEnv("AUTH_BEARER_TOKEN", ""),
			RateLimitPerMinute: rateLimit,
		},
		Engine: EngineConfig{
			ConfigPath:    getEnv("ENGINE_CONFIG_PATH", "config/engine.yaml"),
			ChecklistPath: getEnv("CHECKLIST_PATH", "config/checklist.yaml"),
			Workers:       workers,
			Cadence:       getEnv("ARCHIVE_CADENCE", "full"),
			PowerMSID:     strings.ToLower(getEnv("POWER_MSID", "dp_ptotal")),
		},
		Runner: RunnerConfig{
			Enabled:   getEnvBool("RUNNER_ENABLED", true),
			Interval:  runnerInterval,
			WeekStart: weekStart,
			Timeout:   runnerTimeout,
		},
	}

	if cfg.Security.AuthEnabled && cfg.Security.AuthToken == "" {
		return nil, fmt.Errorf("AUTH_BEARER_TOKEN is required when AUTH_ENABLED=true")
	}

	if cfg.S3.Enabled && cfg.S3.Bucket == "" {
		return nil, fmt.Errorf("S3_BUCKET is required when S3_ENABLED=true")
	}

	return cfg, nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.Host, c.Port, c.User, c.Password, c.Database)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}

	return parsed
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	parsed, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return parsed
}

func splitCSV(raw string) []string {
	items := make([]string, 0)
	current := ""

	for _, r := range raw {
		if r == ',' {
			if current != "" {
				items = append(items, current)
				current = ""
			}
			continue
		}
		if r != ' ' && r != '\t' && r != '\n' && r != '\r' {
			current += string(r)
		}
	}

	if current != "" {
		items = append(items, current)
	}

	return items
}

// parseDimensions parses "Key=Value,Key2=Value2".
func parseDimensions(raw string) map[string]string {
	dims := make(map[string]string)
	for _, item := range splitCSV(raw) {
		key, value, ok := strings.Cut(item, "=")
		if !ok || key == "" {
			continue
		}
		dims[key] = value
	}
	return dims
}

func parseWeekday(raw string) (time.Weekday, error) {
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.EqualFold(d.String(), strings.TrimSpace(raw)) {
			return d, nil
		}
	}
	return time.Sunday, fmt.Errorf("unknown weekday %q", raw)
}

func hostnameOr(fallback string) string {
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return fallback
}

func parseDuration(s string) (time.Duration, error) {
	return time.ParseDuration(s)
}
