// Package channel defines the transport used to deliver one request to a
// cluster node and receive one response.
package channel

import (
	"context"
	"errors"

	"github.com/codex-k8s/kvexec/internal/protocol"
)

// ErrClosed is returned by a channel after Close.
var ErrClosed = errors.New("channel closed")

// Channel sends a request and waits for the node's response.
//
// When the context deadline elapses before a response arrives the returned
// error must match context.DeadlineExceeded.
type Channel interface {
	// Send delivers req and returns the structured response.
	Send(ctx context.Context, req protocol.Request) (protocol.Response, error)
}

// Closer is a Channel that owns releasable resources.
type Closer interface {
	Channel
	// Close releases the channel. Outstanding sends fail.
	Close() error
}

// Func adapts a function to Channel.
type Func func(ctx context.Context, req protocol.Request) (protocol.Response, error)

// Send calls f.
func (f Func) Send(ctx context.Context, req protocol.Request) (protocol.Response, error) {
	return f(ctx, req)
}
