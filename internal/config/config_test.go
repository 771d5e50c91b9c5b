package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.AllowNegativeBalanceOnNonCredit {
		t.Error("negative balances must be forbidden by default")
	}
	if cfg.RecurrenceInterval != 60*time.Second {
		t.Errorf("expected 60s recurrence interval, got %s", cfg.RecurrenceInterval)
	}
	if cfg.OverdueSweepInterval != time.Hour {
		t.Errorf("expected 1h overdue sweep, got %s", cfg.OverdueSweepInterval)
	}
	if cfg.PendingTransferInterval != cfg.RecurrenceInterval {
		t.Errorf("expected pending transfer interval to follow recurrence interval, got %s", cfg.PendingTransferInterval)
	}
	if cfg.StatementTimeout != 10*time.Second {
		t.Errorf("expected 10s statement timeout, got %s", cfg.StatementTimeout)
	}
	if cfg.BcryptPasswordMaxBytes != 72 {
		t.Errorf("expected 72 bcrypt bytes, got %d", cfg.BcryptPasswordMaxBytes)
	}
	if !cfg.SchedulerEnabled {
		t.Error("scheduler should be enabled by default")
	}
	if cfg.AMQPExchange != "ledger.events" {
		t.Errorf("unexpected exchange %q", cfg.AMQPExchange)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("ALLOW_NEGATIVE_BALANCE_ON_NON_CREDIT", "true")
	t.Setenv("RECURRENCE_DRIVER_INTERVAL_SECONDS", "5")
	t.Setenv("DB_STATEMENT_TIMEOUT_MS", "2500")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("SQLITE_PATH", "ledger.db")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !cfg.AllowNegativeBalanceOnNonCredit {
		t.Error("expected negative balances to be allowed")
	}
	if cfg.RecurrenceInterval != 5*time.Second || cfg.PendingTransferInterval != 5*time.Second {
		t.Errorf("unexpected intervals %s / %s", cfg.RecurrenceInterval, cfg.PendingTransferInterval)
	}
	if cfg.StatementTimeout != 2500*time.Millisecond {
		t.Errorf("unexpected statement timeout %s", cfg.StatementTimeout)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("unexpected validation error: %v", err)
	}
}

func TestLoadRejectsMalformedValues(t *testing.T) {
	t.Setenv("OVERDUE_SWEEP_INTERVAL_SECONDS", "hourly")
	t.Setenv("SCHEDULER_ENABLED", "maybe")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error for malformed values")
	}
	for _, key := range []string{"OVERDUE_SWEEP_INTERVAL_SECONDS", "SCHEDULER_ENABLED"} {
		if !strings.Contains(err.Error(), key) {
			t.Errorf("expected error to mention %s, got %v", key, err)
		}
	}
}

func TestValidate(t *testing.T) {
	base, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"zero_interval", func(c *Config) { c.RecurrenceInterval = 0 }, "RECURRENCE_DRIVER_INTERVAL_SECONDS"},
		{"bcrypt_limit", func(c *Config) { c.BcryptPasswordMaxBytes = 100 }, "BCRYPT_PASSWORD_MAX_BYTES"},
		{"unknown_driver", func(c *Config) { c.DBDriver = "mysql" }, "DB_DRIVER"},
		{"sqlite_without_path", func(c *Config) { c.DBDriver = "sqlite"; c.SQLitePath = "" }, "SQLITE_PATH"},
		{"production_dev_secret", func(c *Config) { c.Env = "production" }, "JWT_SECRET"},
		{"amqp_without_exchange", func(c *Config) { c.AMQPURL = "amqp://localhost"; c.AMQPExchange = "" }, "AMQP_EXCHANGE"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error mentioning %s, got %v", tt.want, err)
			}
		})
	}
}
