package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "PRICEDESK"

	AppEnvDev  = "development"
	AppEnvProd = "production"

	EnvAppEnv     = "PRICEDESK_APP_ENV"
	EnvPort       = "PRICEDESK_APP_PORT"
	EnvDBDSN      = "PRICEDESK_DB_DSN"
	EnvDBHost     = "PRICEDESK_DB_HOST"
	EnvDBUser     = "PRICEDESK_DB_USER"
	EnvDBName     = "PRICEDESK_DB_NAME"
	EnvRedisURL   = "PRICEDESK_REDIS_URL"
	EnvJWTSecret  = "PRICEDESK_JWT_SECRET"
	EnvJWTIssuer  = "PRICEDESK_JWT_ISSUER"
	EnvJWTExpMins = "PRICEDESK_JWT_EXPIRATION_MINUTES"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Policy        PolicyConfig
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
	Env          string `envconfig:"PRICEDESK_APP_ENV" required:"true"`
	Port         string `envconfig:"PRICEDESK_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"PRICEDESK_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"PRICEDESK_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"PRICEDESK_DB_DSN"`
	Driver string `envconfig:"PRICEDESK_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"PRICEDESK_DB_HOST"`
	LegacyPort     int    `envconfig:"PRICEDESK_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"PRICEDESK_DB_USER"`
	LegacyPassword string `envconfig:"PRICEDESK_DB_PASSWORD"`
	LegacyName     string `envconfig:"PRICEDESK_DB_NAME"`
	LegacySSLMode  string `envconfig:"PRICEDESK_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"PRICEDESK_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"PRICEDESK_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"PRICEDESK_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"PRICEDESK_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"PRICEDESK_REDIS_URL" required:"true"`
	PoolSize     int           `envconfig:"PRICEDESK_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"PRICEDESK_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"PRICEDESK_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"PRICEDESK_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"PRICEDESK_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"PRICEDESK_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"PRICEDESK_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"PRICEDESK_JWT_EXPIRATION_MINUTES" required:"true"`
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"PRICEDESK_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"PRICEDESK_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"PRICEDESK_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"PRICEDESK_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"PRICEDESK_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow    time.Duration `envconfig:"PRICEDESK_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginUserLimit int           `envconfig:"PRICEDESK_AUTH_RATE_LIMIT_LOGIN_USER_LIMIT" default:"5"`
	LoginIPLimit   int           `envconfig:"PRICEDESK_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"PRICEDESK_AUTO_MIGRATE" default:"false"`
}

// PolicyConfig carries tunables for the decision engine's guardrails.
type PolicyConfig struct {
	MinJustificationLen int `envconfig:"PRICEDESK_POLICY_MIN_JUSTIFICATION_LEN" default:"10"`
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
