package runtime

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/codex-k8s/kvexec/internal/channel"
	"github.com/codex-k8s/kvexec/internal/channel/httpchan"
	"github.com/codex-k8s/kvexec/internal/channel/socket"
	"github.com/codex-k8s/kvexec/internal/constants"
	"github.com/codex-k8s/kvexec/internal/dsl"
	"github.com/codex-k8s/kvexec/internal/idgen"
	"github.com/codex-k8s/kvexec/internal/protocol"
	"github.com/codex-k8s/kvexec/internal/runtime/executor"
)

// ChannelFactory opens the channel for one node.
type ChannelFactory func(node dsl.NodeConfig) (channel.Channel, error)

// Node is a configured cluster member with its executor.
type Node struct {
	// ID is the node id used in hints.
	ID uint64
	// Target is the node endpoint.
	Target string
	// Executor runs queries against the node.
	Executor *executor.Executor

	channel channel.Channel
}

// Cluster holds one executor per configured node. Executors share a request id generator.
type Cluster struct {
	nodes       map[uint64]*Node
	defaultNode uint64
}

// NewCluster opens channels for every node in cfg. A nil factory selects the
// channel named by cfg.Channel.
func NewCluster(cfg dsl.ClusterConfig, factory ChannelFactory, logger *slog.Logger) (*Cluster, error) {
	if len(cfg.Nodes) == 0 {
		return nil, errors.New("cluster has no nodes")
	}
	if factory == nil {
		factory = DefaultChannelFactory(cfg)
	}

	ids := idgen.NewRandom(idgen.NewWindow(
		dsl.ParseDurationOrDefault(cfg.RequestIDs.TTL, time.Minute),
		cfg.RequestIDs.MaxEntries,
	))
	timeout := cfg.TimeoutDuration()

	cluster := &Cluster{nodes: make(map[uint64]*Node, len(cfg.Nodes)), defaultNode: cfg.DefaultNode}
	for _, nodeCfg := range cfg.Nodes {
		ch, err := factory(nodeCfg)
		if err != nil {
			_ = cluster.Close()
			return nil, fmt.Errorf("node %d: %w", nodeCfg.ID, err)
		}
		ch = channel.NewThrottled(ch, cfg.Throttle.RatePerSecond, cfg.Throttle.Burst)

		var nodeLogger *slog.Logger
		if logger != nil {
			nodeLogger = logger.With("node", nodeCfg.ID)
		}
		exec, err := executor.New(ch, ids, timeout, nodeLogger)
		if err != nil {
			_ = cluster.Close()
			return nil, fmt.Errorf("node %d: %w", nodeCfg.ID, err)
		}
		cluster.nodes[nodeCfg.ID] = &Node{ID: nodeCfg.ID, Target: nodeCfg.Target, Executor: exec, channel: ch}
	}
	if _, ok := cluster.nodes[cluster.defaultNode]; !ok {
		_ = cluster.Close()
		return nil, fmt.Errorf("default node %d is not configured", cluster.defaultNode)
	}
	return cluster, nil
}

// DefaultChannelFactory builds http or socket channels as configured.
func DefaultChannelFactory(cfg dsl.ClusterConfig) ChannelFactory {
	return func(node dsl.NodeConfig) (channel.Channel, error) {
		switch cfg.Channel {
		case constants.ChannelSocket:
			return socket.New(node.Target, socket.Options{
				PoolSize:    cfg.PoolSize,
				DialTimeout: dsl.ParseDurationOrDefault(cfg.DialTimeout, 0),
			})
		case constants.ChannelHTTP, "":
			return httpchan.New(node.Target, httpchan.Options{Headers: cfg.Headers})
		default:
			return nil, fmt.Errorf("unknown channel type: %s", cfg.Channel)
		}
	}
}

// Node returns the node with the given id, or the default node when id is nil.
func (c *Cluster) Node(id *uint64) (*Node, error) {
	want := c.defaultNode
	if id != nil {
		want = *id
	}
	node, ok := c.nodes[want]
	if !ok {
		return nil, fmt.Errorf("unknown node %d", want)
	}
	return node, nil
}

// Target returns the endpoint of node id.
func (c *Cluster) Target(id uint64) (string, bool) {
	node, ok := c.nodes[id]
	if !ok {
		return "", false
	}
	return node.Target, true
}

// Len returns the number of nodes.
func (c *Cluster) Len() int {
	return len(c.nodes)
}

// Nodes describes the configured nodes ordered by id.
func (c *Cluster) Nodes() []protocol.NodeInfo {
	out := make([]protocol.NodeInfo, 0, len(c.nodes))
	for _, node := range c.nodes {
		out = append(out, protocol.NodeInfo{ID: node.ID, Target: node.Target, Default: node.ID == c.defaultNode})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Close releases every node channel.
func (c *Cluster) Close() error {
	var errs []error
	for _, node := range c.nodes {
		if closer, ok := node.channel.(channel.Closer); ok {
			if err := closer.Close(); err != nil {
				errs = append(errs, fmt.Errorf("node %d: %w", node.ID, err))
			}
		}
	}
	return errors.Join(errs...)
}
