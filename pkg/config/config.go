package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "plateiq"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "PLATEIQ_DB_DSN"
	EnvDBHost = "PLATEIQ_DB_HOST"
	EnvDBUser = "PLATEIQ_DB_USER"
	EnvDBName = "PLATEIQ_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	Inventory    InventoryConfig
	FeatureFlags FeatureFlagsConfig
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
	Env          string `envconfig:"PLATEIQ_APP_ENV" required:"true"`
	Port         string `envconfig:"PLATEIQ_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"PLATEIQ_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"PLATEIQ_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"PLATEIQ_DB_DSN"`
	Driver string `envconfig:"PLATEIQ_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"PLATEIQ_DB_HOST"`
	LegacyPort     int    `envconfig:"PLATEIQ_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"PLATEIQ_DB_USER"`
	LegacyPassword string `envconfig:"PLATEIQ_DB_PASSWORD"`
	LegacyName     string `envconfig:"PLATEIQ_DB_NAME"`
	LegacySSLMode  string `envconfig:"PLATEIQ_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"PLATEIQ_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"PLATEIQ_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"PLATEIQ_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"PLATEIQ_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"PLATEIQ_REDIS_URL"`
	Address      string        `envconfig:"PLATEIQ_REDIS_ADDR"`
	Password     string        `envconfig:"PLATEIQ_REDIS_PASSWORD"`
	DB           int           `envconfig:"PLATEIQ_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"PLATEIQ_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"PLATEIQ_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"PLATEIQ_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"PLATEIQ_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"PLATEIQ_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// InventoryConfig tunes the ledger and propagation paths.
type InventoryConfig struct {
	// HistoryMaxPageSize caps transaction history reads.
	HistoryMaxPageSize int `envconfig:"PLATEIQ_INVENTORY_HISTORY_MAX_PAGE_SIZE" default:"250"`
	// LockStripes sizes the keyed mutex table serializing connected
	// components of linked items.
	LockStripes int `envconfig:"PLATEIQ_INVENTORY_LOCK_STRIPES" default:"256"`
	// IdempotencyTTL bounds how long adjustment/deduction replays are
	// recognized.
	IdempotencyTTL time.Duration `envconfig:"PLATEIQ_INVENTORY_IDEMPOTENCY_TTL" default:"24h"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"PLATEIQ_AUTO_MIGRATE" default:"false"`
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
