package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const EnvPrefix = "ijazah"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

// Backend names accepted by StateStoreConfig.
const (
	StateBackendMemory = "memory"
	StateBackendGorm   = "gorm"
	StateBackendRedis  = "redis"
)

type Config struct {
	App        AppConfig
	StateStore StateStoreConfig
	DB         DBConfig
	Redis      RedisConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.StateStore.validate(); err != nil {
		return nil, err
	}
	if cfg.StateStore.Backend == StateBackendGorm {
		if err := cfg.DB.ensureDSN(); err != nil {
			return nil, err
		}
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"IJAZAH_APP_ENV" default:"dev"`
	LogLevel     string `envconfig:"IJAZAH_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"IJAZAH_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// StateStoreConfig selects which world-state backend the contract runs on.
type StateStoreConfig struct {
	Backend string `envconfig:"IJAZAH_STATE_BACKEND" default:"memory"`
}

func (s StateStoreConfig) validate() error {
	switch strings.ToLower(strings.TrimSpace(s.Backend)) {
	case StateBackendMemory, StateBackendGorm, StateBackendRedis:
		return nil
	}
	return fmt.Errorf("invalid state backend %q (expected memory|gorm|redis)", s.Backend)
}

type DBConfig struct {
	DSN    string `envconfig:"IJAZAH_DB_DSN"`
	Driver string `envconfig:"IJAZAH_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"IJAZAH_DB_HOST"`
	Port     int    `envconfig:"IJAZAH_DB_PORT" default:"5432"`
	User     string `envconfig:"IJAZAH_DB_USER"`
	Password string `envconfig:"IJAZAH_DB_PASSWORD"`
	Name     string `envconfig:"IJAZAH_DB_NAME"`
	SSLMode  string `envconfig:"IJAZAH_DB_SSLMODE" default:"disable"`

	UseSQLite  bool   `envconfig:"IJAZAH_DB_USE_SQLITE" default:"false"`
	SQLitePath string `envconfig:"IJAZAH_DB_SQLITE_PATH" default:"ijazah.db"`

	MaxOpenConns    int           `envconfig:"IJAZAH_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"IJAZAH_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"IJAZAH_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"IJAZAH_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"IJAZAH_REDIS_URL"`
	Address      string        `envconfig:"IJAZAH_REDIS_ADDR"`
	Password     string        `envconfig:"IJAZAH_REDIS_PASSWORD"`
	DB           int           `envconfig:"IJAZAH_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"IJAZAH_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"IJAZAH_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"IJAZAH_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"IJAZAH_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"IJAZAH_REDIS_WRITE_TIMEOUT" default:"5s"`
}

func (db *DBConfig) ensureDSN() error {
	if db.UseSQLite || db.DSN != "" {
		return nil
	}

	missing := []string{}
	required := map[string]string{
		"IJAZAH_DB_HOST": db.Host,
		"IJAZAH_DB_USER": db.User,
		"IJAZAH_DB_NAME": db.Name,
	}
	for _, envName := range []string{"IJAZAH_DB_HOST", "IJAZAH_DB_USER", "IJAZAH_DB_NAME"} {
		if required[envName] == "" {
			missing = append(missing, envName)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("either IJAZAH_DB_DSN or %s are required", strings.Join(missing, ", "))
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}
	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
