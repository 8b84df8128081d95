package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"imgsource/internal/resolver"
)

type Config struct {
	Port            int           `env:"PORT" envDefault:"8080"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	ResolverConfig  string        `env:"RESOLVER_CONFIG" envDefault:"/etc/imgsource/resolver.yaml"`
	AllowedOrigin   string        `env:"ALLOWED_ORIGIN"`
	PrewarmFile     string        `env:"PREWARM_FILE"`
	PrewarmWorkers  int           `env:"PREWARM_WORKERS" envDefault:"4"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"5s"`

	Resolver resolver.Config
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	data, err := os.ReadFile(cfg.ResolverConfig)
	if err != nil {
		return nil, fmt.Errorf("read resolver config %s: %w", cfg.ResolverConfig, err)
	}
	if err := yaml.Unmarshal(data, &cfg.Resolver); err != nil {
		return nil, fmt.Errorf("parse resolver config %s: %w", cfg.ResolverConfig, err)
	}

	return cfg, nil
}
