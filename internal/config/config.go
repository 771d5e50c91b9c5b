package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"famledger/internal/logger"
)

const devJWTSecret = "fallback-secret-key-for-dev-only"

// Config holds application configuration. It is built once at startup and
// passed by value; nothing mutates it afterwards.
type Config struct {
	// Server
	Env             string
	Port            string
	ShutdownTimeout time.Duration

	// Database
	DBDriver         string
	DBHost           string
	DBPort           string
	DBUser           string
	DBPassword       string
	DBName           string
	DBSSLMode        string
	SQLitePath       string
	StatementTimeout time.Duration

	// JWT
	JWTSecret        string
	JWTExpirationDur time.Duration

	// Ledger rules
	AllowNegativeBalanceOnNonCredit bool
	BcryptPasswordMaxBytes          int

	// Scheduler
	SchedulerEnabled        bool
	RecurrenceInterval      time.Duration
	OverdueSweepInterval    time.Duration
	PendingTransferInterval time.Duration

	// Events
	AMQPURL      string
	AMQPExchange string
}

// Load reads configuration from the environment, loading a .env file first
// when one is present.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Get().Debug(".env file not found, using process environment")
	}

	var errs []error
	intEnv := func(key string, def int) int {
		v, err := getInt(key, def)
		if err != nil {
			errs = append(errs, err)
		}
		return v
	}
	boolEnv := func(key string, def bool) bool {
		v, err := getBool(key, def)
		if err != nil {
			errs = append(errs, err)
		}
		return v
	}

	cfg := Config{
		Env:             getEnv("ENV", "development"),
		Port:            getEnv("PORT", "8080"),
		ShutdownTimeout: time.Duration(intEnv("SHUTDOWN_TIMEOUT_SECONDS", 15)) * time.Second,

		DBDriver:         getEnv("DB_DRIVER", "postgres"),
		DBHost:           getEnv("DB_HOST", "localhost"),
		DBPort:           getEnv("DB_PORT", "5432"),
		DBUser:           getEnv("DB_USER", "famledger"),
		DBPassword:       getEnv("DB_PASSWORD", "famledger"),
		DBName:           getEnv("DB_NAME", "famledger"),
		DBSSLMode:        getEnv("DB_SSLMODE", "disable"),
		SQLitePath:       getEnv("SQLITE_PATH", ""),
		StatementTimeout: time.Duration(intEnv("DB_STATEMENT_TIMEOUT_MS", 10000)) * time.Millisecond,

		JWTSecret: getEnv("JWT_SECRET", devJWTSecret),

		AllowNegativeBalanceOnNonCredit: boolEnv("ALLOW_NEGATIVE_BALANCE_ON_NON_CREDIT", false),
		BcryptPasswordMaxBytes:          intEnv("BCRYPT_PASSWORD_MAX_BYTES", 72),

		SchedulerEnabled:     boolEnv("SCHEDULER_ENABLED", true),
		RecurrenceInterval:   time.Duration(intEnv("RECURRENCE_DRIVER_INTERVAL_SECONDS", 60)) * time.Second,
		OverdueSweepInterval: time.Duration(intEnv("OVERDUE_SWEEP_INTERVAL_SECONDS", 3600)) * time.Second,

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "ledger.events"),
	}
	cfg.PendingTransferInterval = time.Duration(intEnv("PENDING_TRANSFER_INTERVAL_SECONDS", int(cfg.RecurrenceInterval/time.Second))) * time.Second

	expStr := getEnv("JWT_EXPIRES_IN", "24h")
	expDur, err := time.ParseDuration(expStr)
	if err != nil {
		errs = append(errs, fmt.Errorf("JWT_EXPIRES_IN: invalid duration %q", expStr))
	}
	cfg.JWTExpirationDur = expDur

	if err := errors.Join(errs...); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects invalid combinations of settings.
func (c Config) Validate() error {
	var errs []error
	positive := map[string]time.Duration{
		"SHUTDOWN_TIMEOUT_SECONDS":           c.ShutdownTimeout,
		"DB_STATEMENT_TIMEOUT_MS":            c.StatementTimeout,
		"JWT_EXPIRES_IN":                     c.JWTExpirationDur,
		"RECURRENCE_DRIVER_INTERVAL_SECONDS": c.RecurrenceInterval,
		"OVERDUE_SWEEP_INTERVAL_SECONDS":     c.OverdueSweepInterval,
		"PENDING_TRANSFER_INTERVAL_SECONDS":  c.PendingTransferInterval,
	}
	for key, d := range positive {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive", key))
		}
	}
	if c.BcryptPasswordMaxBytes < 1 || c.BcryptPasswordMaxBytes > 72 {
		errs = append(errs, fmt.Errorf("BCRYPT_PASSWORD_MAX_BYTES must be within 1..72"))
	}
	switch c.DBDriver {
	case "postgres":
	case "sqlite":
		if c.SQLitePath == "" {
			errs = append(errs, fmt.Errorf("SQLITE_PATH is required when DB_DRIVER=sqlite"))
		}
	default:
		errs = append(errs, fmt.Errorf("DB_DRIVER %q is not supported", c.DBDriver))
	}
	if c.Env == "production" && c.JWTSecret == devJWTSecret {
		errs = append(errs, fmt.Errorf("JWT_SECRET must be set in production"))
	}
	if c.AMQPURL != "" && c.AMQPExchange == "" {
		errs = append(errs, fmt.Errorf("AMQP_EXCHANGE is required when AMQP_URL is set"))
	}
	return errors.Join(errs...)
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return defaultValue, fmt.Errorf("%s: invalid integer %q", key, raw)
	}
	return v, nil
}

func getBool(key string, defaultValue bool) (bool, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return defaultValue, fmt.Errorf("%s: invalid boolean %q", key, raw)
	}
	return v, nil
}
