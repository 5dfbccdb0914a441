package main

import (
	"fmt"
	"os"
	"time"

	"coderace/internal/game"
	"coderace/internal/sandbox"
	"coderace/pkg/utils/logger"

	"gopkg.in/yaml.v3"
)

const (
	defaultHTTPAddr        = "0.0.0.0:8080"
	defaultReadTimeout     = 5 * time.Second
	defaultWriteTimeout    = 10 * time.Second
	defaultIdleTimeout     = 60 * time.Second
	defaultShutdownTimeout = 10 * time.Second
	defaultProblemDir      = "problems"
)

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr         string        `yaml:"addr"`
	ReadTimeout  time.Duration `yaml:"readTimeout"`
	WriteTimeout time.Duration `yaml:"writeTimeout"`
	IdleTimeout  time.Duration `yaml:"idleTimeout"`
}

// ProblemsConfig holds problem bank settings.
type ProblemsConfig struct {
	Dir         string   `yaml:"dir"`
	ExcludeTags []string `yaml:"excludeTags"`
}

// GameConfig holds round pacing settings.
type GameConfig struct {
	RoundTick     time.Duration `yaml:"roundTick"`
	BreakDuration time.Duration `yaml:"breakDuration"`
	BreakTick     time.Duration `yaml:"breakTick"`
}

// AppConfig holds the server configuration.
type AppConfig struct {
	Server   ServerConfig        `yaml:"server"`
	Logger   logger.Config       `yaml:"logger"`
	Problems ProblemsConfig      `yaml:"problems"`
	Game     GameConfig          `yaml:"game"`
	Registry game.RegistryConfig `yaml:"registry"`
	Sandbox  sandbox.Config      `yaml:"sandbox"`
}

func loadYAML(path string, out interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file failed: %w", err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse config file failed: %w", err)
	}
	return nil
}

func loadAppConfig(path string) (*AppConfig, error) {
	var cfg AppConfig
	if err := loadYAML(path, &cfg); err != nil {
		return nil, err
	}
	if cfg.Sandbox.RunnerCommand == "" {
		return nil, fmt.Errorf("sandbox runner command is required")
	}

	if cfg.Server.Addr == "" {
		cfg.Server.Addr = defaultHTTPAddr
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = defaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = defaultWriteTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = defaultIdleTimeout
	}

	if cfg.Problems.Dir == "" {
		cfg.Problems.Dir = defaultProblemDir
	}

	return &cfg, nil
}

// pacing converts game settings to the room cadence, filling defaults for
// anything unset.
func (c GameConfig) pacing() game.Pacing {
	p := game.DefaultPacing()
	if c.RoundTick > 0 {
		p.RoundTick = c.RoundTick
	}
	if c.BreakDuration > 0 {
		p.BreakDuration = c.BreakDuration
	}
	if c.BreakTick > 0 {
		p.BreakTick = c.BreakTick
	}
	return p
}
