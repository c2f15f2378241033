package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JUDGE_CONCURRENCY", "")
	t.Setenv("JUDGE_POLL_INTERVAL", "")
	cfg := Load()

	if cfg.DBDriver != "postgres" {
		t.Errorf("driver = %q", cfg.DBDriver)
	}
	if cfg.JudgePollInterval != 800*time.Millisecond || cfg.JudgeTimeout != 35*time.Second {
		t.Errorf("judge timings = %v / %v", cfg.JudgePollInterval, cfg.JudgeTimeout)
	}
	if cfg.JudgeConcurrency != 4 {
		t.Errorf("concurrency = %d", cfg.JudgeConcurrency)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("JWT_ACCESS_EXPIRY", "soon")
	t.Setenv("JUDGE_CONCURRENCY", "-2")
	t.Setenv("DB_DRIVER", "sqlite")
	cfg := Load()

	if cfg.JWTAccessExpiry != 15*time.Minute {
		t.Errorf("access expiry = %v", cfg.JWTAccessExpiry)
	}
	if cfg.JudgeConcurrency != 4 {
		t.Errorf("concurrency = %d", cfg.JudgeConcurrency)
	}
	if cfg.DBDriver != "sqlite" {
		t.Errorf("driver = %q", cfg.DBDriver)
	}
}
