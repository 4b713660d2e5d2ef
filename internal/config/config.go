package config

import (
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	AppPort         string        `env:"APP_PORT" envDefault:"8080"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`

	DBDriver     string `env:"DB_DRIVER" envDefault:"mysql"` // mysql | sqlite
	DBLogLevel   string `env:"DB_LOG_LEVEL" envDefault:"warn"`
	MySQLHost    string `env:"MYSQL_HOST" envDefault:"mysql"`
	MySQLPort    string `env:"MYSQL_PORT" envDefault:"3306"`
	MySQLDB      string `env:"MYSQL_DB" envDefault:"credit"`
	MySQLUser    string `env:"MYSQL_USER" envDefault:"credit"`
	MySQLPass    string `env:"MYSQL_PASS" envDefault:"credit"`
	SQLitePath   string `env:"SQLITE_PATH" envDefault:"credit.db"`
	MaxOpenConns int    `env:"DB_MAX_OPEN_CONNS" envDefault:"30"`
	MaxIdleConns int    `env:"DB_MAX_IDLE_CONNS" envDefault:"10"`

	RedisEnabled bool   `env:"REDIS_ENABLED" envDefault:"true"`
	RedisAddr    string `env:"REDIS_ADDR" envDefault:"redis:6379"`
	RedisDB      int    `env:"REDIS_DB" envDefault:"0"`

	IdempTTLSecs int    `env:"IDEMPOTENCY_TTL_SECONDS" envDefault:"300"`
	LockBackend  string `env:"LOCK_BACKEND" envDefault:"local"` // local | redis

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`
	LogDev    bool   `env:"LOG_DEV" envDefault:"false"`

	MetricsEnabled bool `env:"METRICS_ENABLED" envDefault:"true"`

	Valuation ValuationConfig `envPrefix:"VALUATION_"`
	Risk      RiskConfig      `envPrefix:"RISK_"`
	Tokens    TokenConfig     `envPrefix:"TOKEN_"`

	RateLimitPerSec float64 `env:"RATE_LIMIT_PER_SEC" envDefault:"50"`
}

type ValuationConfig struct {
	// Empty URL selects the deterministic stub provider.
	URL             string        `env:"URL"`
	APIKey          string        `env:"API_KEY"`
	Timeout         time.Duration `env:"TIMEOUT" envDefault:"5s"`
	Retries         int           `env:"RETRIES" envDefault:"3"`
	BaseBackoff     time.Duration `env:"BASE_BACKOFF" envDefault:"200ms"`
	BreakerFailures uint32        `env:"BREAKER_FAILURES" envDefault:"5"`
	BreakerCooldown time.Duration `env:"BREAKER_COOLDOWN" envDefault:"30s"`
	CacheTTL        time.Duration `env:"CACHE_TTL" envDefault:"1h"`
}

type RiskConfig struct {
	WeightCredit     float64 `env:"WEIGHT_CREDIT" envDefault:"0.40"`
	WeightDTI        float64 `env:"WEIGHT_DTI" envDefault:"0.25"`
	WeightIncome     float64 `env:"WEIGHT_INCOME" envDefault:"0.20"`
	WeightEmployment float64 `env:"WEIGHT_EMPLOYMENT" envDefault:"0.15"`
	ApproveScore     int     `env:"APPROVE_SCORE" envDefault:"700"`
	ReviewScore      int     `env:"REVIEW_SCORE" envDefault:"650"`
	Haircut          float64 `env:"HAIRCUT" envDefault:"0.90"`
	BaseRate         float64 `env:"BASE_RATE" envDefault:"0.045"`
	MaxRiskPremium   float64 `env:"MAX_RISK_PREMIUM" envDefault:"0.06"`
	AutoDecide       bool    `env:"AUTO_DECIDE" envDefault:"false"`
}

type TokenConfig struct {
	DefaultSupply int64         `env:"DEFAULT_SUPPLY" envDefault:"1000000"`
	DefaultPrice  float64       `env:"DEFAULT_PRICE" envDefault:"1.0"`
	ListingTTL    time.Duration `env:"LISTING_TTL" envDefault:"720h"`
	SweepInterval time.Duration `env:"SWEEP_INTERVAL" envDefault:"1m"`
}

func Load() (*Config, error) {
	c := &Config{}
	if err := env.Parse(c); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return c, nil
}

func (c *Config) Validate() error {
	if c.AppPort == "" {
		return errors.New("missing APP_PORT")
	}
	switch c.DBDriver {
	case "mysql":
		if c.MySQLHost == "" || c.MySQLPort == "" || c.MySQLDB == "" || c.MySQLUser == "" {
			return errors.New("missing MySQL config (MYSQL_HOST/PORT/DB/USER)")
		}
		// ensure port is valid
		if _, err := net.LookupPort("tcp", c.MySQLPort); err != nil {
			return fmt.Errorf("invalid MYSQL_PORT %q: %w", c.MySQLPort, err)
		}
	case "sqlite":
		if c.SQLitePath == "" {
			return errors.New("missing SQLITE_PATH")
		}
	default:
		return fmt.Errorf("unknown DB_DRIVER %q (want mysql or sqlite)", c.DBDriver)
	}
	if c.LockBackend != "local" && c.LockBackend != "redis" {
		return fmt.Errorf("unknown LOCK_BACKEND %q (want local or redis)", c.LockBackend)
	}
	if c.LockBackend == "redis" && !c.RedisEnabled {
		return errors.New("LOCK_BACKEND=redis requires REDIS_ENABLED")
	}
	if c.Risk.Haircut <= 0 || c.Risk.Haircut > 1 {
		return fmt.Errorf("RISK_HAIRCUT must be in (0,1], got %v", c.Risk.Haircut)
	}
	if c.Risk.ReviewScore > c.Risk.ApproveScore {
		return errors.New("RISK_REVIEW_SCORE must not exceed RISK_APPROVE_SCORE")
	}
	if c.Valuation.Timeout <= 0 {
		return errors.New("VALUATION_TIMEOUT must be positive")
	}
	if c.Valuation.Retries < 0 {
		return errors.New("VALUATION_RETRIES must not be negative")
	}
	if c.Tokens.DefaultSupply <= 0 || c.Tokens.DefaultPrice <= 0 {
		return errors.New("TOKEN_DEFAULT_SUPPLY and TOKEN_DEFAULT_PRICE must be positive")
	}
	return nil
}

func (c *Config) mysqlAddr() string { return net.JoinHostPort(c.MySQLHost, c.MySQLPort) }

func (c *Config) MySQLDSN() string {
	// parseTime needed for DATETIME
	return fmt.Sprintf("%s:%s@tcp(%s)/%s?parseTime=true&loc=UTC&charset=utf8mb4,utf8",
		c.MySQLUser, c.MySQLPass, c.mysqlAddr(), c.MySQLDB)
}
