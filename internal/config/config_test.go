package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.HTTPPort != 8000 {
		t.Fatalf("expected port 8000, got %d", cfg.HTTPPort)
	}
	if cfg.StorageType != StorageLocal {
		t.Fatalf("expected local storage, got %q", cfg.StorageType)
	}
	if !cfg.AllowImplicitSessions {
		t.Fatalf("implicit sessions should be allowed by default")
	}
	if cfg.WorkerPoolSize != 4 {
		t.Fatalf("expected worker pool size 4, got %d", cfg.WorkerPoolSize)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("HTTP_PORT", "9100")
	t.Setenv("STORAGE_TYPE", "S3")
	t.Setenv("ALLOW_IMPLICIT_SESSIONS", "false")
	t.Setenv("ENGINE_HTTP_TIMEOUT_MS", "1500")
	t.Setenv("WORKER_POOL_SIZE", "not-a-number")

	cfg := Load()

	if cfg.HTTPPort != 9100 {
		t.Fatalf("expected port 9100, got %d", cfg.HTTPPort)
	}
	if cfg.StorageType != StorageS3 {
		t.Fatalf("expected s3 storage, got %q", cfg.StorageType)
	}
	if cfg.AllowImplicitSessions {
		t.Fatalf("expected implicit sessions disabled")
	}
	if cfg.EngineHTTPTimeout != 1500*time.Millisecond {
		t.Fatalf("unexpected engine timeout: %v", cfg.EngineHTTPTimeout)
	}
	if cfg.WorkerPoolSize != 4 {
		t.Fatalf("invalid int should fall back to default, got %d", cfg.WorkerPoolSize)
	}
}
