package dsl

import (
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/codex-k8s/kvexec/internal/constants"
)

// Validate applies defaults and verifies required fields.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	if err := validateServer(&cfg.Server); err != nil {
		return err
	}
	return validateCluster(&cfg.Cluster)
}

func validateServer(server *ServerConfig) error {
	if server.Name == "" {
		server.Name = "kvexec"
	}
	if server.Version == "" {
		server.Version = "dev"
	}
	server.Transport = strings.ToLower(strings.TrimSpace(server.Transport))
	if server.Transport == "" {
		server.Transport = constants.TransportStdio
	}
	switch server.Transport {
	case constants.TransportStdio, constants.TransportHTTP:
	default:
		return fmt.Errorf("server.transport must be stdio or http")
	}
	if server.ShutdownTimeout != "" {
		if _, err := time.ParseDuration(server.ShutdownTimeout); err != nil {
			return fmt.Errorf("server.shutdown_timeout is invalid: %w", err)
		}
	}
	if server.Transport == constants.TransportHTTP {
		if strings.TrimSpace(server.HTTP.Listen) == "" {
			server.HTTP.Listen = ":8080"
		}
		if _, _, err := net.SplitHostPort(server.HTTP.Listen); err != nil {
			return fmt.Errorf("server.http.listen is invalid: %w", err)
		}
		if server.HTTP.Path == "" {
			server.HTTP.Path = "/mcp"
		}
		if !strings.HasPrefix(server.HTTP.Path, "/") {
			return fmt.Errorf("server.http.path must start with /")
		}
	}
	return nil
}

func validateCluster(cluster *ClusterConfig) error {
	cluster.Channel = strings.ToLower(strings.TrimSpace(cluster.Channel))
	if cluster.Channel == "" {
		cluster.Channel = constants.ChannelHTTP
	}
	switch cluster.Channel {
	case constants.ChannelHTTP, constants.ChannelSocket:
	default:
		return fmt.Errorf("cluster.channel must be http or socket")
	}

	if cluster.Timeout == "" {
		cluster.Timeout = "5s"
	}
	timeout, err := time.ParseDuration(cluster.Timeout)
	if err != nil {
		return fmt.Errorf("cluster.timeout is invalid: %w", err)
	}
	if timeout < time.Millisecond {
		return fmt.Errorf("cluster.timeout must be at least 1ms")
	}
	if cluster.DialTimeout != "" {
		if _, err := time.ParseDuration(cluster.DialTimeout); err != nil {
			return fmt.Errorf("cluster.dial_timeout is invalid: %w", err)
		}
	}
	if cluster.PoolSize < 0 {
		return fmt.Errorf("cluster.pool_size must be >= 0")
	}
	if cluster.Throttle.RatePerSecond < 0 {
		return fmt.Errorf("cluster.throttle.rate_per_second must be >= 0")
	}
	if cluster.Throttle.Burst < 0 {
		return fmt.Errorf("cluster.throttle.burst must be >= 0")
	}
	if cluster.RequestIDs.TTL == "" {
		cluster.RequestIDs.TTL = "1m"
	}
	if _, err := time.ParseDuration(cluster.RequestIDs.TTL); err != nil {
		return fmt.Errorf("cluster.request_ids.ttl is invalid: %w", err)
	}
	if cluster.RequestIDs.MaxEntries < 0 {
		return fmt.Errorf("cluster.request_ids.max_entries must be >= 0")
	}

	if len(cluster.Nodes) == 0 {
		return fmt.Errorf("cluster.nodes must list at least one node")
	}
	ids := map[uint64]struct{}{}
	for i, node := range cluster.Nodes {
		if strings.TrimSpace(node.Target) == "" {
			return fmt.Errorf("cluster.nodes[%d].target is required", i)
		}
		if _, exists := ids[node.ID]; exists {
			return fmt.Errorf("duplicate node id: %d", node.ID)
		}
		ids[node.ID] = struct{}{}
	}
	if _, ok := ids[cluster.DefaultNode]; !ok {
		if cluster.DefaultNode != 0 {
			return fmt.Errorf("cluster.default_node %d is not listed in cluster.nodes", cluster.DefaultNode)
		}
		cluster.DefaultNode = cluster.Nodes[0].ID
	}
	return nil
}

// TimeoutDuration returns the parsed cluster timeout. Call after Validate.
func (c ClusterConfig) TimeoutDuration() time.Duration {
	return ParseDurationOrDefault(c.Timeout, 5*time.Second)
}

// ParseDurationOrDefault parses duration and returns def on empty or invalid value.
func ParseDurationOrDefault(value string, def time.Duration) time.Duration {
	if strings.TrimSpace(value) == "" {
		return def
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return def
	}
	return parsed
}
