// Package config loads the engine configuration from an HCL file. A missing
// file yields the defaults, so the zero-setup path just works.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/lox/bluffbots/internal/personality"
)

// Config represents the complete engine configuration
type Config struct {
	AI       *AISettings       `hcl:"ai,block"`
	Cache    *CacheSettings    `hcl:"cache,block"`
	Recovery *RecoverySettings `hcl:"recovery,block"`
	Storage  *StorageSettings  `hcl:"storage,block"`
}

// AISettings tunes the decision engine
type AISettings struct {
	Personality       string  `hcl:"personality,optional"`
	ExploitWeaknesses bool    `hcl:"exploit_weaknesses,optional"`
	Epsilon           float64 `hcl:"epsilon,optional"`
	Alpha             float64 `hcl:"alpha,optional"`
	Gamma             float64 `hcl:"gamma,optional"`
}

// CacheSettings tunes the decision and prediction caches
type CacheSettings struct {
	MaxEntries           int `hcl:"max_entries,optional"`
	DecisionTTLSeconds   int `hcl:"decision_ttl_seconds,optional"`
	PredictionTTLSeconds int `hcl:"prediction_ttl_seconds,optional"`
	SweepSeconds         int `hcl:"sweep_seconds,optional"`
}

// RecoverySettings tunes retries and circuit breakers
type RecoverySettings struct {
	MaxAttempts            int `hcl:"max_attempts,optional"`
	BackoffMillis          int `hcl:"backoff_millis,optional"`
	FailureThreshold       int `hcl:"failure_threshold,optional"`
	RecoveryTimeoutSeconds int `hcl:"recovery_timeout_seconds,optional"`
}

// StorageSettings points at the persistence directory
type StorageSettings struct {
	Dir string `hcl:"dir,optional"`
}

// Default returns the default engine configuration
func Default() *Config {
	return &Config{
		AI: &AISettings{
			Personality:       string(personality.Balanced),
			ExploitWeaknesses: true,
			Epsilon:           0.2,
			Alpha:             0.1,
			Gamma:             0.9,
		},
		Cache: &CacheSettings{
			MaxEntries:           1000,
			DecisionTTLSeconds:   30,
			PredictionTTLSeconds: 120,
			SweepSeconds:         60,
		},
		Recovery: &RecoverySettings{
			MaxAttempts:            3,
			BackoffMillis:          1000,
			FailureThreshold:       5,
			RecoveryTimeoutSeconds: 30,
		},
		Storage: &StorageSettings{
			Dir: "bluffbots-state",
		},
	}
}

// Load loads configuration from an HCL file, falling back to defaults when
// the file does not exist.
func Load(filename string) (*Config, error) {
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return Default(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var cfg Config
	diags = gohcl.DecodeBody(file.Body, nil, &cfg)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	def := Default()

	if cfg.AI == nil {
		cfg.AI = def.AI
	} else {
		if cfg.AI.Personality == "" {
			cfg.AI.Personality = def.AI.Personality
		}
		if cfg.AI.Epsilon == 0 {
			cfg.AI.Epsilon = def.AI.Epsilon
		}
		if cfg.AI.Alpha == 0 {
			cfg.AI.Alpha = def.AI.Alpha
		}
		if cfg.AI.Gamma == 0 {
			cfg.AI.Gamma = def.AI.Gamma
		}
	}

	if cfg.Cache == nil {
		cfg.Cache = def.Cache
	} else {
		if cfg.Cache.MaxEntries == 0 {
			cfg.Cache.MaxEntries = def.Cache.MaxEntries
		}
		if cfg.Cache.DecisionTTLSeconds == 0 {
			cfg.Cache.DecisionTTLSeconds = def.Cache.DecisionTTLSeconds
		}
		if cfg.Cache.PredictionTTLSeconds == 0 {
			cfg.Cache.PredictionTTLSeconds = def.Cache.PredictionTTLSeconds
		}
		if cfg.Cache.SweepSeconds == 0 {
			cfg.Cache.SweepSeconds = def.Cache.SweepSeconds
		}
	}

	if cfg.Recovery == nil {
		cfg.Recovery = def.Recovery
	} else {
		if cfg.Recovery.MaxAttempts == 0 {
			cfg.Recovery.MaxAttempts = def.Recovery.MaxAttempts
		}
		if cfg.Recovery.BackoffMillis == 0 {
			cfg.Recovery.BackoffMillis = def.Recovery.BackoffMillis
		}
		if cfg.Recovery.FailureThreshold == 0 {
			cfg.Recovery.FailureThreshold = def.Recovery.FailureThreshold
		}
		if cfg.Recovery.RecoveryTimeoutSeconds == 0 {
			cfg.Recovery.RecoveryTimeoutSeconds = def.Recovery.RecoveryTimeoutSeconds
		}
	}

	if cfg.Storage == nil {
		cfg.Storage = def.Storage
	} else if cfg.Storage.Dir == "" {
		cfg.Storage.Dir = def.Storage.Dir
	}
}

// Validate bounds-checks the configuration
func (c *Config) Validate() error {
	if _, err := personality.ParsePreset(c.AI.Personality); err != nil {
		return fmt.Errorf("ai block: %w", err)
	}
	if c.AI.Epsilon < 0 || c.AI.Epsilon > 1 {
		return fmt.Errorf("ai block: epsilon must be in [0,1], got %v", c.AI.Epsilon)
	}
	if c.AI.Alpha <= 0 || c.AI.Alpha > 1 {
		return fmt.Errorf("ai block: alpha must be in (0,1], got %v", c.AI.Alpha)
	}
	if c.AI.Gamma < 0 || c.AI.Gamma > 1 {
		return fmt.Errorf("ai block: gamma must be in [0,1], got %v", c.AI.Gamma)
	}
	if c.Cache.MaxEntries < 1 {
		return fmt.Errorf("cache block: max_entries must be positive, got %d", c.Cache.MaxEntries)
	}
	if c.Recovery.MaxAttempts < 1 {
		return fmt.Errorf("recovery block: max_attempts must be positive, got %d", c.Recovery.MaxAttempts)
	}
	if c.Recovery.FailureThreshold < 1 {
		return fmt.Errorf("recovery block: failure_threshold must be positive, got %d", c.Recovery.FailureThreshold)
	}
	return nil
}

// DecisionTTL returns the configured decision cache TTL
func (c *CacheSettings) DecisionTTL() time.Duration {
	return time.Duration(c.DecisionTTLSeconds) * time.Second
}

// PredictionTTL returns the configured prediction cache TTL
func (c *CacheSettings) PredictionTTL() time.Duration {
	return time.Duration(c.PredictionTTLSeconds) * time.Second
}

// SweepInterval returns the configured cache sweep interval
func (c *CacheSettings) SweepInterval() time.Duration {
	return time.Duration(c.SweepSeconds) * time.Second
}

// Backoff returns the configured retry backoff base
func (c *RecoverySettings) Backoff() time.Duration {
	return time.Duration(c.BackoffMillis) * time.Millisecond
}

// RecoveryTimeout returns the configured breaker recovery window
func (c *RecoverySettings) RecoveryTimeout() time.Duration {
	return time.Duration(c.RecoveryTimeoutSeconds) * time.Second
}
