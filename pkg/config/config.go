package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Journal      JournalConfig
	CORS         CORSConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.DB.validateDriver(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"JOURNAL_APP_ENV" required:"true"`
	Port         string `envconfig:"JOURNAL_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"JOURNAL_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"JOURNAL_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"JOURNAL_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"JOURNAL_DB_DSN"`
	Driver string `envconfig:"JOURNAL_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"JOURNAL_DB_HOST"`
	LegacyPort     int    `envconfig:"JOURNAL_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"JOURNAL_DB_USER"`
	LegacyPassword string `envconfig:"JOURNAL_DB_PASSWORD"`
	LegacyName     string `envconfig:"JOURNAL_DB_NAME"`
	LegacySSLMode  string `envconfig:"JOURNAL_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"JOURNAL_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"JOURNAL_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"JOURNAL_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"JOURNAL_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	SlowQueryThreshold time.Duration `envconfig:"JOURNAL_DB_SLOW_QUERY_THRESHOLD" default:"250ms"`
}

// IsSQLite reports whether the sqlite dialector was selected.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(db.Driver, DBDriverSQLite)
}

type RedisConfig struct {
	URL          string        `envconfig:"JOURNAL_REDIS_URL"`
	Address      string        `envconfig:"JOURNAL_REDIS_ADDR"`
	Password     string        `envconfig:"JOURNAL_REDIS_PASSWORD"`
	DB           int           `envconfig:"JOURNAL_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"JOURNAL_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"JOURNAL_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"JOURNAL_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"JOURNAL_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"JOURNAL_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// Enabled reports whether any redis endpoint is configured.
func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.URL) != "" || strings.TrimSpace(r.Address) != ""
}

type JWTConfig struct {
	Secret string `envconfig:"JOURNAL_JWT_SECRET" required:"true"`
	Issuer string `envconfig:"JOURNAL_JWT_ISSUER" required:"true"`
}

type FeatureFlagsConfig struct {
	AutoMigrate    bool `envconfig:"JOURNAL_AUTO_MIGRATE" default:"false"`
	Idempotency    bool `envconfig:"JOURNAL_FEATURE_IDEMPOTENCY" default:"true"`
	ActivityOutbox bool `envconfig:"JOURNAL_FEATURE_ACTIVITY_OUTBOX" default:"true"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"JOURNAL_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"JOURNAL_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"JOURNAL_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	ActivityTopic string `envconfig:"JOURNAL_PUBSUB_ACTIVITY_TOPIC" default:"journal-activity-events"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"JOURNAL_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"JOURNAL_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"JOURNAL_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

// JournalConfig tunes the decision and stage event write paths.
type JournalConfig struct {
	MaxWriteRetries    int           `envconfig:"JOURNAL_MAX_WRITE_RETRIES" default:"3"`
	RetryBaseDelay     time.Duration `envconfig:"JOURNAL_RETRY_BASE_DELAY" default:"25ms"`
	HistoryPageSize    int           `envconfig:"JOURNAL_HISTORY_PAGE_SIZE" default:"25"`
	HistoryMaxPageSize int           `envconfig:"JOURNAL_HISTORY_MAX_PAGE_SIZE" default:"100"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"JOURNAL_CORS_ALLOWED_ORIGINS" default:"*"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}

func (db *DBConfig) validateDriver() error {
	switch strings.ToLower(strings.TrimSpace(db.Driver)) {
	case DBDriverPostgres, DBDriverSQLite:
		return nil
	default:
		return fmt.Errorf("%s must be %q or %q, got %q", EnvDBDriver, DBDriverPostgres, DBDriverSQLite, db.Driver)
	}
}
