package config

import (
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/codex-k8s/kvexec/internal/dsl"
)

// Config stores environment-driven settings for the gateway.
type Config struct {
	// ConfigPath is the path to the YAML cluster configuration file.
	ConfigPath string `env:"KVEXEC_CONFIG" envDefault:"config.yaml"`
	// LogLevel sets the logger level.
	LogLevel string `env:"KVEXEC_LOG_LEVEL" envDefault:"info"`
	// ShutdownTimeout controls graceful shutdown duration.
	ShutdownTimeout time.Duration `env:"KVEXEC_SHUTDOWN_TIMEOUT" envDefault:"10s"`
	// Target overrides the default node endpoint.
	Target string `env:"KVEXEC_TARGET"`
	// TimeoutMs overrides the per-call timeout in milliseconds.
	TimeoutMs int `env:"KVEXEC_TIMEOUT_MS"`
}

// Load parses environment variables into Config.
func Load() (Config, error) {
	return env.ParseAs[Config]()
}

// ApplyOverrides replaces the default node target and the call timeout when set.
func (c Config) ApplyOverrides(cluster *dsl.ClusterConfig) {
	if cluster == nil {
		return
	}
	if c.Target != "" {
		for i := range cluster.Nodes {
			if cluster.Nodes[i].ID == cluster.DefaultNode {
				cluster.Nodes[i].Target = c.Target
			}
		}
	}
	if c.TimeoutMs > 0 {
		cluster.Timeout = (time.Duration(c.TimeoutMs) * time.Millisecond).String()
	}
}
