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
	Bidding      BiddingConfig
	Settlement   SettlementConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.App.IsProd() && cfg.FeatureFlags.UseSQLite {
		return nil, fmt.Errorf("%s cannot be enabled in %s", EnvUseSQLite, cfg.App.Env)
	}
	if err := cfg.DB.ensureDSN(cfg.FeatureFlags.UseSQLite); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"ONAUC_APP_ENV" required:"true"`
	Port         string `envconfig:"ONAUC_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"ONAUC_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"ONAUC_LOG_WARN_STACK" default:"false"`
	LogFormat    string `envconfig:"ONAUC_LOG_FORMAT" default:"json"`

	CORSAllowedOrigins []string `envconfig:"ONAUC_CORS_ALLOWED_ORIGINS"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd) || strings.EqualFold(a.Env, "production")
}

type ServiceConfig struct {
	Kind string `envconfig:"ONAUC_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"ONAUC_DB_DSN"`
	Driver string `envconfig:"ONAUC_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"ONAUC_DB_HOST"`
	LegacyPort     int    `envconfig:"ONAUC_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"ONAUC_DB_USER"`
	LegacyPassword string `envconfig:"ONAUC_DB_PASSWORD"`
	LegacyName     string `envconfig:"ONAUC_DB_NAME"`
	LegacySSLMode  string `envconfig:"ONAUC_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"ONAUC_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"ONAUC_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"ONAUC_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"ONAUC_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// IsSQLite reports whether the configured driver targets sqlite.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(strings.TrimSpace(db.Driver), DriverSQLite)
}

type RedisConfig struct {
	URL          string        `envconfig:"ONAUC_REDIS_URL"`
	Address      string        `envconfig:"ONAUC_REDIS_ADDR"`
	Password     string        `envconfig:"ONAUC_REDIS_PASSWORD"`
	DB           int           `envconfig:"ONAUC_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"ONAUC_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"ONAUC_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"ONAUC_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"ONAUC_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"ONAUC_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// Configured reports whether either a URL or an address was supplied.
func (r RedisConfig) Configured() bool {
	return strings.TrimSpace(r.URL) != "" || strings.TrimSpace(r.Address) != ""
}

type JWTConfig struct {
	Secret            string `envconfig:"ONAUC_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"ONAUC_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"ONAUC_JWT_EXPIRATION_MINUTES" default:"60"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"ONAUC_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"ONAUC_AUTO_MIGRATE" default:"false"`
}

type BiddingConfig struct {
	MaxAttempts      int           `envconfig:"ONAUC_BID_MAX_ATTEMPTS" default:"5"`
	RetryBaseDelay   time.Duration `envconfig:"ONAUC_BID_RETRY_BASE_DELAY" default:"20ms"`
	RateLimitWindow  time.Duration `envconfig:"ONAUC_BID_RATE_LIMIT_WINDOW" default:"10s"`
	RateLimitPerUser int           `envconfig:"ONAUC_BID_RATE_LIMIT_PER_USER" default:"20"`
}

type SettlementConfig struct {
	Interval  time.Duration `envconfig:"ONAUC_SETTLEMENT_INTERVAL" default:"60s"`
	BatchSize int           `envconfig:"ONAUC_SETTLEMENT_BATCH_SIZE" default:"500"`
	LockTTL   time.Duration `envconfig:"ONAUC_SETTLEMENT_LOCK_TTL" default:"5m"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"ONAUC_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	AuctionTopic string `envconfig:"ONAUC_PUBSUB_AUCTION_TOPIC" default:"onauc-auction-events"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"ONAUC_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"ONAUC_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"ONAUC_OUTBOX_MAX_ATTEMPTS" default:"10"`
	RetentionDays  int `envconfig:"ONAUC_OUTBOX_RETENTION_DAYS" default:"30"`
}

func (db *DBConfig) ensureDSN(useSQLite bool) error {
	if useSQLite {
		db.Driver = DriverSQLite
		if db.DSN == "" {
			db.DSN = defaultSQLiteDSN
		}
		return nil
	}
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
