package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/codex-k8s/kvexec/internal/channel"
	"github.com/codex-k8s/kvexec/internal/idgen"
	"github.com/codex-k8s/kvexec/internal/outcome"
	"github.com/codex-k8s/kvexec/internal/protocol"
)

// Executor sends one query per call to a node and classifies the result.
// It keeps no state between calls and is safe for concurrent use when its
// channel and id generator are.
type Executor struct {
	channel channel.Channel
	ids     idgen.Generator
	timeout time.Duration
	logger  *slog.Logger
}

// New creates an executor. timeout bounds every call and is sent to the node.
func New(ch channel.Channel, ids idgen.Generator, timeout time.Duration, logger *slog.Logger) (*Executor, error) {
	if ch == nil {
		return nil, errors.New("executor channel is nil")
	}
	if ids == nil {
		return nil, errors.New("executor id generator is nil")
	}
	if timeout <= 0 {
		return nil, fmt.Errorf("executor timeout must be positive, got %s", timeout)
	}
	return &Executor{channel: ch, ids: ids, timeout: timeout, logger: logger}, nil
}

// Timeout returns the per-call deadline.
func (e *Executor) Timeout() time.Duration {
	return e.timeout
}

// Execute runs body on the node. On success it returns the read values;
// otherwise the error is exactly one outcome.Failure.
func (e *Executor) Execute(ctx context.Context, body string) (map[string]string, error) {
	req := protocol.Request{
		ID:        e.ids.Next(),
		TimeoutMs: e.timeout.Milliseconds(),
		Body:      body,
	}

	ctxCall, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	if e.logger != nil {
		e.logger.Debug("execute request", "request_id", req.ID, "timeout_ms", req.TimeoutMs)
	}

	resp, err := e.channel.Send(ctxCall, req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			if e.logger != nil {
				e.logger.Debug("execute timed out before response", "request_id", req.ID)
			}
			return nil, &outcome.ExternalTimeoutError{Err: err}
		}
		if e.logger != nil {
			e.logger.Debug("execute transport fault", "request_id", req.ID, "error", err)
		}
		return nil, &outcome.TransportError{Err: err}
	}

	values, err := outcome.Classify(resp)
	if err != nil {
		if kind, _ := outcome.KindOf(err); kind == outcome.KindProtocolViolation && e.logger != nil {
			e.logger.Warn("result not set", "request_id", req.ID, "error", err)
		} else if e.logger != nil {
			e.logger.Debug("execute failed", "request_id", req.ID, "kind", kind, "error", err)
		}
		return nil, err
	}
	return values, nil
}
