package config

const (
	EnvPrefix = "ONAUC"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	defaultSQLiteDSN = "file:onauc.db?_busy_timeout=5000"
)

const (
	EnvAppEnv    = "ONAUC_APP_ENV"
	EnvPort      = "ONAUC_APP_PORT"
	EnvLogLevel  = "ONAUC_LOG_LEVEL"
	EnvLogFormat = "ONAUC_LOG_FORMAT"

	EnvDBDSN  = "ONAUC_DB_DSN"
	EnvDBHost = "ONAUC_DB_HOST"
	EnvDBPort = "ONAUC_DB_PORT"
	EnvDBUser = "ONAUC_DB_USER"
	EnvDBName = "ONAUC_DB_NAME"

	EnvUseSQLite = "ONAUC_USE_SQLITE"

	EnvRedisURL = "ONAUC_REDIS_URL"

	EnvJWTSecret  = "ONAUC_JWT_SECRET"
	EnvJWTIssuer  = "ONAUC_JWT_ISSUER"
	EnvJWTExpMins = "ONAUC_JWT_EXPIRATION_MINUTES"

	EnvBidMaxAttempts     = "ONAUC_BID_MAX_ATTEMPTS"
	EnvSettlementInterval = "ONAUC_SETTLEMENT_INTERVAL"
	EnvGCPProjectID       = "ONAUC_GCP_PROJECT_ID"
	EnvPubSubAuctionTopic = "ONAUC_PUBSUB_AUCTION_TOPIC"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
