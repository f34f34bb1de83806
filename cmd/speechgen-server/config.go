package main

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// serverConfig holds all configuration for the demo server. Model
// credentials are not listed here: those are discovered from the
// environment by the registry.
type serverConfig struct {
	Port string `envconfig:"PORT" default:"8080"`

	// Realtime session behavior
	DialTimeout    time.Duration `envconfig:"DIAL_TIMEOUT" default:"10s"`
	ReceiveTimeout time.Duration `envconfig:"RECEIVE_TIMEOUT" default:"0s"` // 0 disables the per-message deadline
	DialRetries    int           `envconfig:"DIAL_RETRIES" default:"2"`

	// Circuit breaker on the per-model dial path
	BreakerFailureThreshold int           `envconfig:"BREAKER_FAILURE_THRESHOLD" default:"3"`
	BreakerRecoveryTimeout  time.Duration `envconfig:"BREAKER_RECOVERY_TIMEOUT" default:"30s"`

	// Observability
	LogLevel       string `envconfig:"LOG_LEVEL" default:"info"`
	LogPretty      bool   `envconfig:"LOG_PRETTY" default:"false"`
	MetricsEnabled bool   `envconfig:"METRICS_ENABLED" default:"true"`
}

// loadConfig reads configuration from the environment, first merging in a
// .env file when one exists.
func loadConfig() (*serverConfig, error) {
	_ = godotenv.Load()

	var cfg serverConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}
