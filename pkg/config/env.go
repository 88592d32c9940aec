package config

const EnvPrefix = "JOURNAL"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"
)

const (
	EnvAppEnv   = "JOURNAL_APP_ENV"
	EnvPort     = "JOURNAL_APP_PORT"
	EnvLogLevel = "JOURNAL_LOG_LEVEL"

	EnvDBDSN    = "JOURNAL_DB_DSN"
	EnvDBDriver = "JOURNAL_DB_DRIVER"
	EnvDBHost   = "JOURNAL_DB_HOST"
	EnvDBUser   = "JOURNAL_DB_USER"
	EnvDBName   = "JOURNAL_DB_NAME"

	EnvRedisURL = "JOURNAL_REDIS_URL"

	EnvJWTSecret = "JOURNAL_JWT_SECRET"
	EnvJWTIssuer = "JOURNAL_JWT_ISSUER"

	EnvGCPProjectID        = "JOURNAL_GCP_PROJECT_ID"
	EnvPubSubActivityTopic = "JOURNAL_PUBSUB_ACTIVITY_TOPIC"

	EnvMaxWriteRetries = "JOURNAL_MAX_WRITE_RETRIES"
	EnvHistoryPageSize = "JOURNAL_HISTORY_PAGE_SIZE"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
