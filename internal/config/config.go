// Package config carries the yaml-tagged configuration surface for
// cmd/schedctl, adapted from the teacher's cmd/*/config/config.go shape.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/aetherflow/mpsched/internal/telemetry"
)

// Config is the top-level configuration for the schedctl control plane.
type Config struct {
	Server    ServerConfig            `yaml:"Server"`
	Scheduler SchedulerConfig         `yaml:"Scheduler"`
	Metrics   MetricsConfig           `yaml:"Metrics"`
	Log       telemetry.LogConfig     `yaml:"Log"`
	Tracing   telemetry.TracingConfig `yaml:"Tracing"`
	Etcd      EtcdConfig              `yaml:"Etcd"`
	PrefStore PrefStoreConfig         `yaml:"PrefStore"`
	Auth      AuthConfig              `yaml:"Auth"`
}

// ServerConfig is the admin HTTP surface's bind address.
type ServerConfig struct {
	Host string `yaml:"Host"`
	Port int    `yaml:"Port"`
}

// SchedulerConfig names the build-time default scheduler (spec §6's
// DEFAULT_SCHED_NAME).
type SchedulerConfig struct {
	DefaultSchedulerName string `yaml:"DefaultSchedulerName"`
}

// MetricsConfig names the Prometheus namespace/subsystem the registry's
// metrics are published under.
type MetricsConfig struct {
	Namespace string `yaml:"Namespace"`
	Subsystem string `yaml:"Subsystem"`
}

// EtcdConfig configures cluster-wide default-scheduler propagation.
// Endpoints empty disables clusterconfig entirely.
type EtcdConfig struct {
	Endpoints   []string      `yaml:"Endpoints"`
	DialTimeout time.Duration `yaml:"DialTimeout"`
	Username    string        `yaml:"Username"`
	Password    string        `yaml:"Password"`
}

// PrefStoreConfig selects the per-connection scheduler preference backend.
type PrefStoreConfig struct {
	Type  string      `yaml:"Type"` // memory, redis
	Redis RedisConfig `yaml:"Redis,omitempty"`
}

// RedisConfig configures the redis-backed preference store.
type RedisConfig struct {
	Addr         string        `yaml:"Addr"`
	Password     string        `yaml:"Password"`
	DB           int           `yaml:"DB"`
	PoolSize     int           `yaml:"PoolSize"`
	DialTimeout  time.Duration `yaml:"DialTimeout"`
	ReadTimeout  time.Duration `yaml:"ReadTimeout"`
	WriteTimeout time.Duration `yaml:"WriteTimeout"`
}

// AuthConfig configures the JWT capability manager gating privileged
// registry operations.
type AuthConfig struct {
	Secret     string        `yaml:"Secret"`
	Issuer     string        `yaml:"Issuer"`
	Expiration time.Duration `yaml:"Expiration"`
}

// DefaultConfig returns the configuration schedctl falls back to when no
// config file is present.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Scheduler: SchedulerConfig{
			DefaultSchedulerName: "lowest-rtt",
		},
		Metrics: MetricsConfig{
			Namespace: "mpsched",
			Subsystem: "registry",
		},
		Log: telemetry.LogConfig{
			Level:  "info",
			Format: "json",
		},
		Tracing: telemetry.TracingConfig{
			Enable:       false,
			ServiceName:  "schedctl",
			Endpoint:     "http://localhost:14268/api/traces",
			Exporter:     "jaeger",
			SampleRate:   1.0,
			Environment:  "development",
			BatchTimeout: 5,
			MaxQueueSize: 2048,
		},
		PrefStore: PrefStoreConfig{
			Type: "memory",
			Redis: RedisConfig{
				Addr:         "localhost:6379",
				PoolSize:     10,
				DialTimeout:  5 * time.Second,
				ReadTimeout:  3 * time.Second,
				WriteTimeout: 3 * time.Second,
			},
		},
		Auth: AuthConfig{
			Secret:     "change-me",
			Issuer:     "schedctl",
			Expiration: time.Hour,
		},
	}
}

// Load reads filename as YAML over DefaultConfig(); a missing file is not
// an error and yields the defaults, matching the teacher's loadConfig.
func Load(filename string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("config: failed to read %s: %w", filename, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse %s: %w", filename, err)
	}
	return cfg, nil
}
