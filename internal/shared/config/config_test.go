package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ENV", "")
	t.Setenv("CFDI_MAX_ATTEMPTS", "")
	t.Setenv("QUEUE_BACKEND", "")
	t.Setenv("OBJECT_STORE", "")
	t.Setenv("QUOTE_TOKEN_TTL", "")

	cfg := Load()
	if cfg.Env != "dev" {
		t.Fatalf("expected env dev, got %q", cfg.Env)
	}
	if cfg.CFDIMaxAttempts != 5 {
		t.Fatalf("expected 5 max attempts, got %d", cfg.CFDIMaxAttempts)
	}
	if cfg.QueueBackend != "memory" {
		t.Fatalf("expected memory queue, got %q", cfg.QueueBackend)
	}
	if cfg.ObjectStoreType != "local" {
		t.Fatalf("expected local store, got %q", cfg.ObjectStoreType)
	}
	if cfg.QuoteTokenTTL != 7*24*time.Hour {
		t.Fatalf("expected 7d token ttl, got %s", cfg.QuoteTokenTTL)
	}
	if !cfg.IsDevLike() {
		t.Fatalf("expected dev-like config")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("ENV", "prod")
	t.Setenv("CFDI_MAX_ATTEMPTS", "2")
	t.Setenv("QUEUE_BACKEND", "AMQP")
	t.Setenv("OBJECT_STORE", "minio")
	t.Setenv("CFDI_ATTEMPT_TIMEOUT", "5s")

	cfg := Load()
	if cfg.Env != "production" {
		t.Fatalf("expected production, got %q", cfg.Env)
	}
	if cfg.CFDIMaxAttempts != 2 {
		t.Fatalf("expected 2 max attempts, got %d", cfg.CFDIMaxAttempts)
	}
	if cfg.QueueBackend != "rabbitmq" {
		t.Fatalf("expected rabbitmq, got %q", cfg.QueueBackend)
	}
	if cfg.ObjectStoreType != "minio" {
		t.Fatalf("expected minio, got %q", cfg.ObjectStoreType)
	}
	if cfg.CFDIAttemptTimeout != 5*time.Second {
		t.Fatalf("expected 5s attempt timeout, got %s", cfg.CFDIAttemptTimeout)
	}
	if cfg.IsDevLike() {
		t.Fatalf("production must not be dev-like")
	}
}

func TestLoadInvalidIntFallsBack(t *testing.T) {
	t.Setenv("CFDI_MAX_ATTEMPTS", "zero")
	cfg := Load()
	if cfg.CFDIMaxAttempts != 5 {
		t.Fatalf("expected fallback 5, got %d", cfg.CFDIMaxAttempts)
	}
}
