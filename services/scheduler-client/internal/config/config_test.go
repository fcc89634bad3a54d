package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.API.BaseURL != "http://localhost:8000/api" {
		t.Fatalf("unexpected base url %q", cfg.API.BaseURL)
	}
	if cfg.API.Timeout != 15*time.Second || cfg.Session.Backend != BackendFile {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.Watch.Schedule != "@every 1m" || cfg.Otel.ServiceName != ServiceName || cfg.Otel.Enabled {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if len(cfg.Events.Brokers) != 0 {
		t.Fatalf("expected no brokers, got %v", cfg.Events.Brokers)
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "scheduler.yaml")
	body := "api:\n  baseurl: https://sched.example.com/api\n  timeout: 3s\nsession:\n  backend: redis\nredis:\n  ttl: 12h\n"
	if err := os.WriteFile(file, []byte(body), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("SCHEDULER_EVENTS_BROKERS", "k1:9092,k2:9092")
	t.Setenv("SCHEDULER_LOG_LEVEL", "debug")

	cfg, err := Load(file)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.API.BaseURL != "https://sched.example.com/api" || cfg.API.Timeout != 3*time.Second {
		t.Fatalf("file values not applied: %+v", cfg.API)
	}
	if cfg.Session.Backend != BackendRedis || cfg.Redis.TTL != 12*time.Hour {
		t.Fatalf("unexpected session config %+v %+v", cfg.Session, cfg.Redis)
	}
	if cfg.Log.Level != "debug" {
		t.Fatalf("env override not applied: %q", cfg.Log.Level)
	}
	if len(cfg.Events.Brokers) != 2 || cfg.Events.Brokers[1] != "k2:9092" {
		t.Fatalf("unexpected brokers %v", cfg.Events.Brokers)
	}
}

func TestValidate(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("SCHEDULER_SESSION_BACKEND", "sqlite")
	if _, err := Load(""); err == nil {
		t.Fatal("expected invalid backend to fail")
	}
}
