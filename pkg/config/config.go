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
	FeatureFlags FeatureFlagsConfig
	GCP          GCPConfig
	GCS          GCSConfig
	PubSub       PubSubConfig
	Marketplace  MarketplaceConfig
	Commission   CommissionConfig
	Intake       IntakeConfig
	Batch        BatchConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"BRIGHTSTOCK_APP_ENV" required:"true"`
	Port         string `envconfig:"BRIGHTSTOCK_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"BRIGHTSTOCK_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"BRIGHTSTOCK_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"BRIGHTSTOCK_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"BRIGHTSTOCK_DB_DSN"`
	Driver string `envconfig:"BRIGHTSTOCK_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"BRIGHTSTOCK_DB_HOST"`
	LegacyPort     int    `envconfig:"BRIGHTSTOCK_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"BRIGHTSTOCK_DB_USER"`
	LegacyPassword string `envconfig:"BRIGHTSTOCK_DB_PASSWORD"`
	LegacyName     string `envconfig:"BRIGHTSTOCK_DB_NAME"`
	LegacySSLMode  string `envconfig:"BRIGHTSTOCK_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"BRIGHTSTOCK_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"BRIGHTSTOCK_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"BRIGHTSTOCK_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"BRIGHTSTOCK_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"BRIGHTSTOCK_REDIS_URL" required:"true"`
	Address      string        `envconfig:"BRIGHTSTOCK_REDIS_ADDR"`
	Password     string        `envconfig:"BRIGHTSTOCK_REDIS_PASSWORD"`
	DB           int           `envconfig:"BRIGHTSTOCK_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"BRIGHTSTOCK_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"BRIGHTSTOCK_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"BRIGHTSTOCK_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"BRIGHTSTOCK_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"BRIGHTSTOCK_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"BRIGHTSTOCK_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"BRIGHTSTOCK_AUTO_MIGRATE" default:"false"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"BRIGHTSTOCK_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"BRIGHTSTOCK_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"BRIGHTSTOCK_GOOGLE_APPLICATION_CREDENTIALS"`
}

type GCSConfig struct {
	BucketName        string        `envconfig:"BRIGHTSTOCK_GCS_BUCKET_NAME" required:"true"`
	UploadURLExpiry   time.Duration `envconfig:"BRIGHTSTOCK_GCS_UPLOAD_URL_EXPIRY" default:"15m"`
	DownloadURLExpiry time.Duration `envconfig:"BRIGHTSTOCK_GCS_DOWNLOAD_URL_EXPIRY" default:"15m"`
}

type PubSubConfig struct {
	IntakeTopic        string `envconfig:"BRIGHTSTOCK_PUBSUB_INTAKE_TOPIC" required:"true"`
	IntakeSubscription string `envconfig:"BRIGHTSTOCK_PUBSUB_INTAKE_SUBSCRIPTION" required:"true"`
}

// MarketplaceConfig points at the hosted marketplace API that owns
// listings, users and transactions.
type MarketplaceConfig struct {
	BaseURL      string        `envconfig:"BRIGHTSTOCK_MARKETPLACE_BASE_URL" required:"true"`
	ClientID     string        `envconfig:"BRIGHTSTOCK_MARKETPLACE_CLIENT_ID" required:"true"`
	ClientSecret string        `envconfig:"BRIGHTSTOCK_MARKETPLACE_CLIENT_SECRET"`
	Currency     string        `envconfig:"BRIGHTSTOCK_MARKETPLACE_CURRENCY" default:"USD"`
	Timeout      time.Duration `envconfig:"BRIGHTSTOCK_MARKETPLACE_TIMEOUT" default:"15s"`
}

type CommissionConfig struct {
	AssetName string        `envconfig:"BRIGHTSTOCK_COMMISSION_ASSET" default:"transaction-commission"`
	CacheTTL  time.Duration `envconfig:"BRIGHTSTOCK_COMMISSION_CACHE_TTL" default:"5m"`
}

type IntakeConfig struct {
	MaxUploadMB int `envconfig:"BRIGHTSTOCK_INTAKE_MAX_UPLOAD_MB" default:"200"`
}

type BatchConfig struct {
	SessionTTL time.Duration `envconfig:"BRIGHTSTOCK_BATCH_SESSION_TTL" default:"24h"`
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
