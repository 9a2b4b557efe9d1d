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
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Password     PasswordConfig
	RateLimit    RateLimitConfig
	FeatureFlags FeatureFlagsConfig
	Checkout     CheckoutConfig
	Sweeper      SweeperConfig
	Outbox       OutboxConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Square       SquareConfig
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
	Env          string `envconfig:"THRIFTLINE_APP_ENV" required:"true"`
	Port         string `envconfig:"THRIFTLINE_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"THRIFTLINE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"THRIFTLINE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"THRIFTLINE_DB_DSN"`
	Driver string `envconfig:"THRIFTLINE_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"THRIFTLINE_DB_HOST"`
	Port     int    `envconfig:"THRIFTLINE_DB_PORT" default:"5432"`
	User     string `envconfig:"THRIFTLINE_DB_USER"`
	Password string `envconfig:"THRIFTLINE_DB_PASSWORD"`
	Name     string `envconfig:"THRIFTLINE_DB_NAME"`
	SSLMode  string `envconfig:"THRIFTLINE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"THRIFTLINE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"THRIFTLINE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"THRIFTLINE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"THRIFTLINE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"THRIFTLINE_REDIS_URL" required:"true"`
	Address      string        `envconfig:"THRIFTLINE_REDIS_ADDR"`
	Password     string        `envconfig:"THRIFTLINE_REDIS_PASSWORD"`
	DB           int           `envconfig:"THRIFTLINE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"THRIFTLINE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"THRIFTLINE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"THRIFTLINE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"THRIFTLINE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"THRIFTLINE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"THRIFTLINE_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"THRIFTLINE_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"THRIFTLINE_JWT_EXPIRATION_MINUTES" required:"true"`
	SessionTTLMinutes int    `envconfig:"THRIFTLINE_SESSION_TTL_MINUTES" default:"43200"`
}

// SessionTTL returns the redis session TTL configured in minutes.
func (j JWTConfig) SessionTTL() time.Duration {
	if j.SessionTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.SessionTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"THRIFTLINE_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"THRIFTLINE_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"THRIFTLINE_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"THRIFTLINE_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"THRIFTLINE_ARGON_KEY_LEN" default:"32"`
}

type RateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"THRIFTLINE_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"THRIFTLINE_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"THRIFTLINE_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"THRIFTLINE_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"THRIFTLINE_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"THRIFTLINE_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
	PrivateWindow      time.Duration `envconfig:"THRIFTLINE_RATE_LIMIT_PRIVATE_WINDOW" default:"1m"`
	PrivateLimit       int           `envconfig:"THRIFTLINE_RATE_LIMIT_PRIVATE_LIMIT" default:"120"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"THRIFTLINE_AUTO_MIGRATE" default:"false"`
}

type CheckoutConfig struct {
	SelectionTTL time.Duration `envconfig:"THRIFTLINE_CHECKOUT_SELECTION_TTL" default:"30m"`
}

type SweeperConfig struct {
	Interval         time.Duration `envconfig:"THRIFTLINE_SWEEPER_INTERVAL" default:"10m"`
	MaxBackoff       time.Duration `envconfig:"THRIFTLINE_SWEEPER_MAX_BACKOFF" default:"1h"`
	RefundWindowDays int           `envconfig:"THRIFTLINE_SWEEPER_REFUND_WINDOW_DAYS" default:"7"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"THRIFTLINE_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"THRIFTLINE_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"THRIFTLINE_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"THRIFTLINE_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	DomainTopic        string `envconfig:"THRIFTLINE_PUBSUB_DOMAIN_TOPIC" default:"tl-domain-events"`
	DomainSubscription string `envconfig:"THRIFTLINE_PUBSUB_DOMAIN_SUBSCRIPTION"`
}

type SquareConfig struct {
	AccessToken string `envconfig:"THRIFTLINE_SQUARE_ACCESS_TOKEN"`
	Env         string `envconfig:"THRIFTLINE_SQUARE_ENV" default:"sandbox"`
	LocationID  string `envconfig:"THRIFTLINE_SQUARE_LOCATION_ID"`
}

// Environment returns the normalized Square environment (sandbox/production).
func (s SquareConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "sandbox"
	}
	return env
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	values := map[string]string{
		EnvDBHost: db.Host,
		EnvDBUser: db.User,
		EnvDBName: db.Name,
	}
	for _, env := range requiredDBEnvVars {
		if values[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
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
