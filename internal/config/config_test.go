package config

import (
	"errors"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.GRPCAddr() != "0.0.0.0:50051" {
		t.Fatalf("GRPCAddr = %q", cfg.GRPCAddr())
	}
	if cfg.LockTimeout != 3*time.Second || cfg.GRPCRequestTimeout != 10*time.Second {
		t.Fatalf("timeouts = %v / %v", cfg.LockTimeout, cfg.GRPCRequestTimeout)
	}
	if cfg.OutboxBatchSize != 100 || cfg.KafkaBrokers != "" {
		t.Fatalf("outbox = %d %q", cfg.OutboxBatchSize, cfg.KafkaBrokers)
	}
	if cfg.JWTSecret != "" || cfg.TrustHeaders {
		t.Fatalf("auth = %q trust=%v, want no secret and no header trust", cfg.JWTSecret, cfg.TrustHeaders)
	}
	loc, err := cfg.Location()
	if err != nil || loc != time.UTC {
		t.Fatalf("Location = %v, %v", loc, err)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("RESERVO_GRPC_ADDR", "127.0.0.1:6000")
	t.Setenv("RESERVO_DATABASE_LOCK_TIMEOUT", "750ms")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("RESERVO_TIMEZONE", "Europe/Berlin")
	t.Setenv("RESERVO_OTEL_ENABLED", "true")
	t.Setenv("RESERVO_AUTH_TRUST_HEADERS", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.GRPCHost != "127.0.0.1" || cfg.GRPCPort != 6000 {
		t.Fatalf("grpc = %s:%d", cfg.GRPCHost, cfg.GRPCPort)
	}
	if cfg.LockTimeout != 750*time.Millisecond {
		t.Fatalf("LockTimeout = %v", cfg.LockTimeout)
	}
	if cfg.KafkaBrokers != "k1:9092,k2:9092" {
		t.Fatalf("KafkaBrokers = %q", cfg.KafkaBrokers)
	}
	if !cfg.OTelEnabled {
		t.Fatalf("OTelEnabled = false, want true")
	}
	if !cfg.TrustHeaders {
		t.Fatalf("TrustHeaders = false, want true")
	}
	if loc, err := cfg.Location(); err != nil || loc.String() != "Europe/Berlin" {
		t.Fatalf("Location = %v, %v", loc, err)
	}
}

func TestLoad_RejectsBadValues(t *testing.T) {
	t.Setenv("RESERVO_REDIS_POLICY_TTL", "soon")

	_, err := Load()
	var kErr *KeyError
	if !errors.As(err, &kErr) || kErr.Key != "redis.policy_ttl" {
		t.Fatalf("err = %v, want KeyError for redis.policy_ttl", err)
	}
}

func TestLoad_RejectsUnknownTimezone(t *testing.T) {
	t.Setenv("RESERVO_TIMEZONE", "Mars/Olympus")

	_, err := Load()
	var kErr *KeyError
	if !errors.As(err, &kErr) || kErr.Key != "timezone" {
		t.Fatalf("err = %v, want KeyError for timezone", err)
	}
}
