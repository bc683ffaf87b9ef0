package dsl

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
server:
  name: kv-gateway
  version: 1.0.0
  transport: http
  http:
    listen: 127.0.0.1:9090
cluster:
  channel: socket
  timeout: 750ms
  default_node: 2
  throttle:
    rate_per_second: 50
    burst: 5
  nodes:
    - id: 1
      target: 10.0.0.1:7000
    - id: 2
      target: 10.0.0.2:7000
`

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load([]byte(sample))
	require.NoError(t, err)

	assert.Equal(t, "kv-gateway", cfg.Server.Name)
	assert.Equal(t, "/mcp", cfg.Server.HTTP.Path)
	assert.Equal(t, "socket", cfg.Cluster.Channel)
	assert.Equal(t, 750*time.Millisecond, cfg.Cluster.TimeoutDuration())
	assert.Equal(t, uint64(2), cfg.Cluster.DefaultNode)
	assert.Equal(t, "1m", cfg.Cluster.RequestIDs.TTL)
	assert.Equal(t, 50.0, cfg.Cluster.Throttle.RatePerSecond)
	require.Len(t, cfg.Cluster.Nodes, 2)
}

func TestLoadMinimal(t *testing.T) {
	cfg, err := Load([]byte("cluster:\n  nodes:\n    - id: 4\n      target: kv:7000\n"))
	require.NoError(t, err)

	assert.Equal(t, "stdio", cfg.Server.Transport)
	assert.Equal(t, "http", cfg.Cluster.Channel)
	assert.Equal(t, 5*time.Second, cfg.Cluster.TimeoutDuration())
	assert.Equal(t, uint64(4), cfg.Cluster.DefaultNode)
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	_, err := Load([]byte("cluster:\n  retries: 3\n  nodes:\n    - id: 1\n      target: a:1\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse yaml")
}

func TestValidateErrors(t *testing.T) {
	cases := []struct {
		name string
		yaml string
		want string
	}{
		{"no nodes", "cluster: {}", "at least one node"},
		{"duplicate ids", "cluster:\n  nodes:\n    - {id: 1, target: 'a:1'}\n    - {id: 1, target: 'b:1'}\n", "duplicate node id: 1"},
		{"missing target", "cluster:\n  nodes:\n    - {id: 1}\n", "target is required"},
		{"unknown default", "cluster:\n  default_node: 9\n  nodes:\n    - {id: 1, target: 'a:1'}\n", "default_node 9"},
		{"bad channel", "cluster:\n  channel: grpc\n  nodes:\n    - {id: 1, target: 'a:1'}\n", "cluster.channel"},
		{"bad timeout", "cluster:\n  timeout: soon\n  nodes:\n    - {id: 1, target: 'a:1'}\n", "cluster.timeout"},
		{"bad transport", "server:\n  transport: ws\ncluster:\n  nodes:\n    - {id: 1, target: 'a:1'}\n", "server.transport"},
		{"negative burst", "cluster:\n  throttle: {burst: -1}\n  nodes:\n    - {id: 1, target: 'a:1'}\n", "burst"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load([]byte(tc.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestRenderExpandsEnv(t *testing.T) {
	t.Setenv("KV_NODE_ONE", "10.1.0.1:7000")

	out, err := Render("cfg", []byte(`target: {{ env "KV_NODE_ONE" }} other: {{ envOr "KV_UNSET_FOR_TEST" "fallback:1" }}`))
	require.NoError(t, err)
	assert.Equal(t, "target: 10.1.0.1:7000 other: fallback:1", string(out))
}

func TestRenderReportsMissingEnv(t *testing.T) {
	_, err := Render("", []byte(`{{ env "KV_MISSING_B" }} {{ env "KV_MISSING_A" }}`))
	require.Error(t, err)
	assert.Equal(t, "missing env vars: KV_MISSING_A, KV_MISSING_B", err.Error())
}

func TestRenderFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o600))

	out, err := RenderFile(path)
	require.NoError(t, err)
	_, err = Load(out)
	require.NoError(t, err)

	_, err = RenderFile(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestParseDurationOrDefault(t *testing.T) {
	assert.Equal(t, time.Second, ParseDurationOrDefault("", time.Second))
	assert.Equal(t, time.Second, ParseDurationOrDefault("nope", time.Second))
	assert.Equal(t, 3*time.Millisecond, ParseDurationOrDefault("3ms", time.Second))
}
