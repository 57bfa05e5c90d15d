package config

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

// Store drivers accepted by STORE_DRIVER.
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config captures all runtime configuration derived from environment variables.
type Config struct {
	Port             string `env:"PORT" default:"8080"`
	StoreDriver      string `env:"STORE_DRIVER" default:"postgres"`
	DBURL            string `env:"DB_URL"`
	ReadTimeoutSecs  int    `env:"SERVER_READ_TIMEOUT" default:"15"`
	WriteTimeoutSecs int    `env:"SERVER_WRITE_TIMEOUT" default:"15"`
	IdleTimeoutSecs  int    `env:"SERVER_IDLE_TIMEOUT" default:"60"`

	DBMaxConns        int  `env:"DB_MAX_CONNS" default:"20"`
	DBMinConns        int  `env:"DB_MIN_CONNS" default:"2"`
	DBMaxIdleSecs     int  `env:"DB_MAX_CONN_IDLE_SECS" default:"300"`
	DBMaxLifeSecs     int  `env:"DB_MAX_CONN_LIFETIME_SECS" default:"3600"`
	DBConnTimeoutSecs int  `env:"DB_CONN_TIMEOUT_SECS" default:"10"`
	DBStatementCache  int  `env:"DB_STATEMENT_CACHE_CAPACITY" default:"256"`
	DBAutoMigrate     bool `env:"DB_AUTO_MIGRATE" default:"true"`

	LogLevel  string `env:"LOG_LEVEL" default:"info"`
	LogFormat string `env:"LOG_FORMAT" default:"text"`

	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" default:"*"`

	WSSendBuffer   int           `env:"WS_SEND_BUFFER" default:"16"`
	WSWriteTimeout time.Duration `env:"WS_WRITE_TIMEOUT" default:"5s"`
	WSPingInterval time.Duration `env:"WS_PING_INTERVAL" default:"30s"`
	WSPongTimeout  time.Duration `env:"WS_PONG_TIMEOUT" default:"60s"`

	SeedMemoryStore bool `env:"SEED_MEMORY_STORE" default:"true"`
}

// Load reads configuration from an optional .env file and environment
// variables, applying defaults and validation.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("config: no .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, &env.Options{SliceSep: ","}); err != nil {
		return Config{}, fmt.Errorf("load environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints that struct tags cannot express.
func (cfg Config) Validate() error {
	switch cfg.StoreDriver {
	case DriverPostgres:
		if cfg.DBURL == "" {
			return errors.New("DB_URL is required when STORE_DRIVER=postgres")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("STORE_DRIVER must be %q or %q, got %q", DriverPostgres, DriverMemory, cfg.StoreDriver)
	}
	if cfg.DBMaxConns <= 0 {
		return errors.New("DB_MAX_CONNS must be positive")
	}
	if cfg.DBMinConns < 0 {
		return errors.New("DB_MIN_CONNS must be non-negative")
	}
	if cfg.DBMinConns > cfg.DBMaxConns {
		return errors.New("DB_MIN_CONNS cannot exceed DB_MAX_CONNS")
	}
	if cfg.DBStatementCache < 0 {
		return errors.New("DB_STATEMENT_CACHE_CAPACITY must be non-negative")
	}
	if len(cfg.CORSAllowedOrigins) == 0 {
		return errors.New("CORS_ALLOWED_ORIGINS must list at least one origin")
	}
	if cfg.WSSendBuffer <= 0 {
		return errors.New("WS_SEND_BUFFER must be positive")
	}
	if cfg.WSWriteTimeout <= 0 {
		return errors.New("WS_WRITE_TIMEOUT must be positive")
	}
	if cfg.WSPingInterval <= 0 || cfg.WSPongTimeout <= cfg.WSPingInterval {
		return errors.New("WS_PONG_TIMEOUT must exceed a positive WS_PING_INTERVAL")
	}
	return nil
}
