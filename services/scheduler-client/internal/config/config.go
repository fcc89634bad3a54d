// Package config holds the scheduler client settings. Values come from
// scheduler.yaml, then SCHEDULER_* environment variables, then defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	libconfig "github.com/md-rashed-zaman/slotscheduler/libs/config"
	otelx "github.com/md-rashed-zaman/slotscheduler/libs/otel"
)

const (
	ServiceName = "scheduler-client"
	EnvPrefix   = "SCHEDULER"

	BackendFile   = "file"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

type API struct {
	BaseURL        string        `mapstructure:"baseurl"`
	Timeout        time.Duration `mapstructure:"timeout"`
	RateLimit      float64       `mapstructure:"ratelimit"`
	RateLimitBurst int           `mapstructure:"ratelimitburst"`
	// SharedQuota caps requests per QuotaWindow across every process using
	// the same Redis prefix. Zero disables it.
	SharedQuota   int           `mapstructure:"sharedquota"`
	QuotaWindow   time.Duration `mapstructure:"quotawindow"`
	QuotaFailOpen bool          `mapstructure:"quotafailopen"`
}

type Session struct {
	Backend    string `mapstructure:"backend"`
	Path       string `mapstructure:"path"`
	Passphrase string `mapstructure:"passphrase"`
}

type Redis struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Prefix   string        `mapstructure:"prefix"`
	TTL      time.Duration `mapstructure:"ttl"`
}

type Events struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type Watch struct {
	Schedule    string `mapstructure:"schedule"`
	MetricsAddr string `mapstructure:"metricsaddr"`
}

type Log struct {
	Level string `mapstructure:"level"`
}

type Config struct {
	Environment string       `mapstructure:"environment"`
	API         API          `mapstructure:"api"`
	Session     Session      `mapstructure:"session"`
	Redis       Redis        `mapstructure:"redis"`
	Events      Events       `mapstructure:"events"`
	Watch       Watch        `mapstructure:"watch"`
	Otel        otelx.Config `mapstructure:"otel"`
	Log         Log          `mapstructure:"log"`
}

func Defaults() map[string]any {
	return map[string]any{
		"environment":        "development",
		"api.baseurl":        "http://localhost:8000/api",
		"api.timeout":        "15s",
		"api.ratelimit":      0.0,
		"api.ratelimitburst": 5,
		"api.sharedquota":    0,
		"api.quotawindow":    "1m",
		"api.quotafailopen":  true,
		"session.backend":    BackendFile,
		"session.path":       "",
		"session.passphrase": "",
		"redis.addr":         "localhost:6379",
		"redis.password":     "",
		"redis.db":           0,
		"redis.prefix":       "slotscheduler",
		"redis.ttl":          "0s",
		"events.brokers":     []string{},
		"events.topic":       "scheduler.activity",
		"watch.schedule":     "@every 1m",
		"watch.metricsaddr":  ":9464",
		"otel.enabled":       false,
		"otel.servicename":   ServiceName,
		"otel.endpoint":      "localhost:4317",
		"otel.sampleratio":   1.0,
		"log.level":          "info",
	}
}

// Load reads file when given, otherwise looks for scheduler.yaml in the
// working directory and the user config dir.
func Load(file string) (Config, error) {
	paths := []string{"."}
	if dir, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(dir, "slotscheduler"))
	}

	var cfg Config
	err := libconfig.Load(libconfig.Source{
		Name:      "scheduler",
		Paths:     paths,
		EnvPrefix: EnvPrefix,
		File:      file,
		Defaults:  Defaults(),
	}, &cfg)
	if err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.API.BaseURL) == "" {
		return fmt.Errorf("api.baseurl is required")
	}
	switch c.Session.Backend {
	case BackendFile, BackendRedis, BackendMemory:
	default:
		return fmt.Errorf("session.backend must be one of file, redis, memory; got %q", c.Session.Backend)
	}
	if c.API.Timeout < 0 {
		return fmt.Errorf("api.timeout must not be negative")
	}
	if c.API.RateLimit < 0 {
		return fmt.Errorf("api.ratelimit must not be negative")
	}
	return nil
}
