package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = ""

	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Code          CodeConfig
	Handoff       HandoffConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	GCP           GCPConfig
	PubSub        PubSubConfig
	Outbox        OutboxConfig
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
	Env          string `envconfig:"UNIMARKET_APP_ENV" required:"true"`
	Port         string `envconfig:"UNIMARKET_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"UNIMARKET_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"UNIMARKET_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"UNIMARKET_DB_DSN"`
	Driver string `envconfig:"UNIMARKET_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"UNIMARKET_DB_HOST"`
	Port     int    `envconfig:"UNIMARKET_DB_PORT" default:"5432"`
	User     string `envconfig:"UNIMARKET_DB_USER"`
	Password string `envconfig:"UNIMARKET_DB_PASSWORD"`
	Name     string `envconfig:"UNIMARKET_DB_NAME"`
	SSLMode  string `envconfig:"UNIMARKET_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"UNIMARKET_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"UNIMARKET_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"UNIMARKET_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"UNIMARKET_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"UNIMARKET_REDIS_URL"`
	Address      string        `envconfig:"UNIMARKET_REDIS_ADDR"`
	Password     string        `envconfig:"UNIMARKET_REDIS_PASSWORD"`
	DB           int           `envconfig:"UNIMARKET_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"UNIMARKET_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"UNIMARKET_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"UNIMARKET_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"UNIMARKET_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"UNIMARKET_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"UNIMARKET_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"UNIMARKET_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"UNIMARKET_JWT_EXPIRATION_MINUTES" default:"60"`
}

// CodeConfig carries the Argon2id parameters embedded into each
// confirmation-code hash.
type CodeConfig struct {
	ArgonMemoryKB    int `envconfig:"UNIMARKET_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"UNIMARKET_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"UNIMARKET_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"UNIMARKET_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"UNIMARKET_ARGON_KEY_LEN" default:"32"`
}

// HandoffConfig bounds confirmation-code validity.
type HandoffConfig struct {
	CodeTTL     time.Duration `envconfig:"UNIMARKET_HANDOFF_CODE_TTL" default:"24h"`
	MaxAttempts int           `envconfig:"UNIMARKET_HANDOFF_MAX_ATTEMPTS" default:"3"`
	CodeLength  int           `envconfig:"UNIMARKET_HANDOFF_CODE_LENGTH" default:"6"`
}

type AuthRateLimitConfig struct {
	Window   time.Duration `envconfig:"UNIMARKET_AUTH_RATE_LIMIT_WINDOW" default:"1m"`
	IPLimit  int           `envconfig:"UNIMARKET_AUTH_RATE_LIMIT_IP_LIMIT" default:"60"`
	KeyLimit int           `envconfig:"UNIMARKET_AUTH_RATE_LIMIT_KEY_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"UNIMARKET_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"UNIMARKET_AUTO_MIGRATE" default:"false"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"UNIMARKET_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	OrdersTopic              string `envconfig:"UNIMARKET_PUBSUB_ORDERS_TOPIC" default:"um-order-events"`
	OrdersSubscription       string `envconfig:"UNIMARKET_PUBSUB_ORDERS_SUBSCRIPTION"`
	NotificationTopic        string `envconfig:"UNIMARKET_PUBSUB_NOTIFICATION_TOPIC" default:"um-notification-events"`
	NotificationSubscription string `envconfig:"UNIMARKET_PUBSUB_NOTIFICATION_SUBSCRIPTION"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"UNIMARKET_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"UNIMARKET_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"UNIMARKET_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	required := map[string]string{
		"UNIMARKET_DB_HOST": db.Host,
		"UNIMARKET_DB_USER": db.User,
		"UNIMARKET_DB_NAME": db.Name,
	}
	for _, key := range []string{"UNIMARKET_DB_HOST", "UNIMARKET_DB_USER", "UNIMARKET_DB_NAME"} {
		if required[key] == "" {
			missing = append(missing, key)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either UNIMARKET_DB_DSN or %s are required", strings.Join(missing, ", "))
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
