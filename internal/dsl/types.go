package dsl

// Config is the top-level YAML configuration.
type Config struct {
	// Server describes the MCP gateway settings.
	Server ServerConfig `yaml:"server"`
	// Cluster describes the key-value cluster and how to reach it.
	Cluster ClusterConfig `yaml:"cluster"`
}

// ServerConfig defines MCP server settings.
type ServerConfig struct {
	// Name is the MCP server name.
	Name string `yaml:"name"`
	// Version is the MCP server version.
	Version string `yaml:"version"`
	// Transport selects the server transport ("http" or "stdio").
	Transport string `yaml:"transport"`
	// ShutdownTimeout overrides graceful shutdown duration.
	ShutdownTimeout string `yaml:"shutdown_timeout"`
	// HTTP configures HTTP transport.
	HTTP HTTPConfig `yaml:"http"`
}

// HTTPConfig configures the HTTP transport.
type HTTPConfig struct {
	// Listen is the HTTP listen address.
	Listen string `yaml:"listen"`
	// Path is the MCP HTTP endpoint path.
	Path string `yaml:"path"`
	// ReadTimeout limits request read time.
	ReadTimeout string `yaml:"read_timeout"`
	// WriteTimeout limits response write time.
	WriteTimeout string `yaml:"write_timeout"`
	// IdleTimeout controls idle connections.
	IdleTimeout string `yaml:"idle_timeout"`
	// Stateless disables session tracking.
	Stateless bool `yaml:"stateless"`
}

// ClusterConfig describes the nodes and the client channel settings.
type ClusterConfig struct {
	// Channel selects the node transport ("http" or "socket").
	Channel string `yaml:"channel"`
	// Timeout bounds each execute call.
	Timeout string `yaml:"timeout"`
	// DefaultNode is used when a call does not name a node.
	DefaultNode uint64 `yaml:"default_node"`
	// PoolSize caps idle socket connections per node.
	PoolSize int `yaml:"pool_size"`
	// DialTimeout bounds socket connection setup.
	DialTimeout string `yaml:"dial_timeout"`
	// Headers adds HTTP headers for the http channel.
	Headers map[string]string `yaml:"headers"`
	// Throttle limits the client request rate per node.
	Throttle ThrottleConfig `yaml:"throttle"`
	// RequestIDs configures the recent request id window.
	RequestIDs RequestIDConfig `yaml:"request_ids"`
	// Nodes lists cluster members.
	Nodes []NodeConfig `yaml:"nodes"`
}

// ThrottleConfig configures client-side rate limiting.
type ThrottleConfig struct {
	// RatePerSecond is the steady request rate; zero disables throttling.
	RatePerSecond float64 `yaml:"rate_per_second"`
	// Burst is the number of requests allowed at once.
	Burst int `yaml:"burst"`
}

// RequestIDConfig configures how long issued ids stay reserved.
type RequestIDConfig struct {
	// TTL is how long an id is kept out of circulation.
	TTL string `yaml:"ttl"`
	// MaxEntries limits the number of remembered ids.
	MaxEntries int `yaml:"max_entries"`
}

// NodeConfig declares a cluster node.
type NodeConfig struct {
	// ID is the node id used in redirect and leadership hints.
	ID uint64 `yaml:"id"`
	// Target is the node endpoint (host:port or URL).
	Target string `yaml:"target"`
}
