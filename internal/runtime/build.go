package runtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/codex-k8s/kvexec/internal/audit"
	"github.com/codex-k8s/kvexec/internal/constants"
	"github.com/codex-k8s/kvexec/internal/dsl"
	"github.com/codex-k8s/kvexec/internal/outcome"
	"github.com/codex-k8s/kvexec/internal/protocol"
)

// ExecuteInput is the argument of the kv_execute tool.
type ExecuteInput struct {
	// Body is the opaque query text.
	Body string `json:"body" jsonschema:"query body sent to the node"`
	// Node selects the node; the default node is used when omitted.
	Node *uint64 `json:"node,omitempty" jsonschema:"node id to send the query to"`
}

// Builder constructs an MCP server that forwards queries to a cluster.
type Builder struct {
	// Logger is used for structured logging.
	Logger *slog.Logger
	// Audit records execute outcomes.
	Audit audit.Logger
	// Cluster holds the node executors.
	Cluster *Cluster
}

// Build creates an MCP server with the execute tool and the nodes resource.
func (b Builder) Build(cfg dsl.ServerConfig) (*mcp.Server, error) {
	if b.Cluster == nil {
		return nil, errors.New("cluster is nil")
	}
	server := mcp.NewServer(&mcp.Implementation{
		Name:    cfg.Name,
		Version: cfg.Version,
	}, nil)

	server.AddResource(&mcp.Resource{
		Name:        "cluster-nodes",
		URI:         constants.ResourceNodesURI,
		Description: "Configured key-value nodes and the default node.",
		MIMEType:    "application/json",
	}, func(_ context.Context, _ *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		data, err := json.Marshal(b.Cluster.Nodes())
		if err != nil {
			return nil, fmt.Errorf("encode nodes: %w", err)
		}
		return &mcp.ReadResourceResult{
			Contents: []*mcp.ResourceContents{
				{URI: constants.ResourceNodesURI, MIMEType: "application/json", Text: string(data)},
			},
		}, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        constants.ToolExecute,
		Title:       "Execute key-value query",
		Description: "Sends one query to a cluster node and reports the classified outcome. The call is never retried.",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input ExecuteInput) (*mcp.CallToolResult, protocol.ExecuteResponse, error) {
		resp, err := b.Execute(ctx, input)
		if err != nil {
			return nil, protocol.ExecuteResponse{}, err
		}
		return nil, resp, nil
	})

	return server, nil
}

// Execute runs one query on the selected node. Classified failures are reported in
// the response; only invalid input is returned as an error.
func (b Builder) Execute(ctx context.Context, input ExecuteInput) (protocol.ExecuteResponse, error) {
	if strings.TrimSpace(input.Body) == "" {
		return protocol.ExecuteResponse{}, errors.New("body is required")
	}
	node, err := b.Cluster.Node(input.Node)
	if err != nil {
		return protocol.ExecuteResponse{}, err
	}

	if b.Logger != nil {
		b.Logger.Info("execute", "node", node.ID, "target", node.Target)
	}
	values, execErr := node.Executor.Execute(ctx, input.Body)
	resp := b.describe(node, values, execErr)

	if b.Logger != nil && execErr != nil {
		b.Logger.Info("execute failed", "node", node.ID, "kind", resp.Kind, "retry", resp.Retry, "error", execErr)
	}
	if b.Audit != nil {
		eventType := "execute_ok"
		if execErr != nil {
			eventType = "execute_failed"
		}
		b.Audit.Record(ctx, audit.Event{Type: eventType, Node: node.ID, Kind: resp.Kind, Retry: resp.Retry, Reason: resp.Message})
	}
	return resp, nil
}

func (b Builder) describe(node *Node, values map[string]string, err error) protocol.ExecuteResponse {
	resp := protocol.ExecuteResponse{
		Status:        protocol.StatusSuccess,
		Node:          node.ID,
		RequestTarget: node.Target,
	}
	if err == nil {
		resp.Values = values
		resp.Retry = string(outcome.ActionNone)
		return resp
	}

	resp.Status = protocol.StatusFailure
	resp.Message = err.Error()
	if kind, ok := outcome.KindOf(err); ok {
		resp.Kind = string(kind)
	}
	resp.PossiblyApplied = errors.Is(err, outcome.ErrPossiblyApplied)

	advice := outcome.Advise(err)
	resp.Retry = string(advice.Action)

	var hint outcome.NodeHint
	var redirect *outcome.RedirectError
	var lost *outcome.LostLeadershipError
	switch {
	case errors.As(err, &redirect):
		hint = redirect.To
	case errors.As(err, &lost):
		hint = lost.To
		couldHandle := lost.CouldHandle
		resp.CouldHandle = &couldHandle
	}
	if id, ok := hint.Get(); ok {
		resp.HintNode = &id
		resp.HintTarget, _ = b.Cluster.Target(id)
	}
	return resp
}
