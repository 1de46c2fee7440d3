package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App    AppConfig
	DB     DBConfig
	JWT    JWTConfig
	Ledger LedgerConfig
	Notify NotifyConfig
	Log    LogConfig
}

type AppConfig struct {
	Name string `envconfig:"APP_NAME" default:"POS Ledger"`
	Port string `envconfig:"PORT" default:"3000"`
}

// DBConfig accepts either a full DATABASE_URL or the discrete DB_* parts.
type DBConfig struct {
	URL          string        `envconfig:"DATABASE_URL"`
	Host         string        `envconfig:"DB_HOST" default:"localhost"`
	Port         string        `envconfig:"DB_PORT" default:"5432"`
	User         string        `envconfig:"DB_USER" default:"postgres"`
	Password     string        `envconfig:"DB_PASSWORD"`
	Name         string        `envconfig:"DB_NAME" default:"pos_ledger"`
	SSLMode      string        `envconfig:"DB_SSLMODE" default:"disable"`
	MaxIdleConns int           `envconfig:"DB_MAX_IDLE_CONNS" default:"10"`
	MaxOpenConns int           `envconfig:"DB_MAX_OPEN_CONNS" default:"100"`
	ConnLifetime time.Duration `envconfig:"DB_CONN_MAX_LIFETIME" default:"1h"`
	SimpleProto  bool          `envconfig:"DB_PREFER_SIMPLE_PROTOCOL" default:"true"`
}

func (c DBConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		c.Host, c.User, c.Password, c.Name, c.Port, c.SSLMode)
}

type JWTConfig struct {
	Secret string        `envconfig:"JWT_SECRET" default:"change-me-in-production"`
	TTL    time.Duration `envconfig:"JWT_TTL" default:"24h"`
	Issuer string        `envconfig:"JWT_ISSUER" default:"pos-ledger"`
}

type LedgerConfig struct {
	ReferencePrefix   string `envconfig:"LEDGER_REFERENCE_PREFIX" default:"TXN"`
	MaxCommitAttempts int    `envconfig:"LEDGER_MAX_COMMIT_ATTEMPTS" default:"5"`
	// Isolation is one of "", "read_committed", "repeatable_read", "serializable".
	Isolation string `envconfig:"LEDGER_ISOLATION" default:"read_committed"`
}

type NotifyConfig struct {
	QueueSize    int           `envconfig:"NOTIFY_QUEUE_SIZE" default:"256"`
	Workers      int           `envconfig:"NOTIFY_WORKERS" default:"2"`
	MaxRetries   int           `envconfig:"NOTIFY_MAX_RETRIES" default:"3"`
	RetryBackoff time.Duration `envconfig:"NOTIFY_RETRY_BACKOFF" default:"200ms"`
}

type LogConfig struct {
	Level  string `envconfig:"LOG_LEVEL" default:"info"`
	Pretty bool   `envconfig:"LOG_PRETTY" default:"true"`
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.Ledger.MaxCommitAttempts < 1 {
		cfg.Ledger.MaxCommitAttempts = 1
	}
	return &cfg, nil
}
