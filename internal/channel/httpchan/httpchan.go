// Package httpchan delivers execute requests to a node over HTTP with JSON bodies.
package httpchan

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"

	"github.com/codex-k8s/kvexec/internal/channel"
	"github.com/codex-k8s/kvexec/internal/protocol"
)

// ExecutePath is the node endpoint that accepts execute requests.
const ExecutePath = "/execute"

const maxResponseBytes = 16 << 20

// Channel posts requests to a single node.
type Channel struct {
	url     string
	headers map[string]string
	client  *http.Client
	closed  atomic.Bool
}

// Options configures a Channel.
type Options struct {
	// Headers adds HTTP headers to every request.
	Headers map[string]string
	// Client overrides the HTTP client.
	Client *http.Client
}

// New creates a channel for target, which may be host:port or a full URL.
func New(target string, opts Options) (*Channel, error) {
	url, err := executeURL(target)
	if err != nil {
		return nil, err
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{Transport: http.DefaultTransport.(*http.Transport).Clone()}
	}
	return &Channel{url: url, headers: opts.Headers, client: client}, nil
}

// URL returns the execute endpoint.
func (c *Channel) URL() string {
	return c.url
}

// Send posts req and decodes the node response. The deadline comes from ctx.
func (c *Channel) Send(ctx context.Context, req protocol.Request) (protocol.Response, error) {
	if c.closed.Load() {
		return protocol.Response{}, channel.ErrClosed
	}

	body, err := json.Marshal(req)
	if err != nil {
		return protocol.Response{}, fmt.Errorf("failed to encode request: %w", err)
	}
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return protocol.Response{}, fmt.Errorf("failed to build request: %w", err)
	}
	request.Header.Set("Content-Type", "application/json")
	for key, value := range c.headers {
		request.Header.Set(key, value)
	}

	resp, err := c.client.Do(request)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
			return protocol.Response{}, fmt.Errorf("node request failed: %w: %v", ctxErr, err)
		}
		return protocol.Response{}, fmt.Errorf("node request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return protocol.Response{}, fmt.Errorf("read node response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return protocol.Response{}, fmt.Errorf("node status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var parsed protocol.Response
	if err := json.Unmarshal(data, &parsed); err != nil {
		return protocol.Response{}, fmt.Errorf("decode node response: %w", err)
	}
	return parsed, nil
}

// Close drops idle connections and rejects later sends.
func (c *Channel) Close() error {
	c.closed.Store(true)
	c.client.CloseIdleConnections()
	return nil
}

func executeURL(target string) (string, error) {
	target = strings.TrimSpace(target)
	if target == "" {
		return "", errors.New("node target is empty")
	}
	if !strings.Contains(target, "://") {
		target = "http://" + target
	}
	return strings.TrimSuffix(target, "/") + ExecutePath, nil
}

// Handler serves execute requests with fn. It lets a process host a node endpoint.
func Handler(fn channel.Func) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		var req protocol.Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		resp, err := fn(r.Context(), req)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	})
}
