// Package socket delivers execute requests over pooled TCP connections
// framed with msgpack.
package socket

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	"github.com/ugorji/go/codec"

	"github.com/codex-k8s/kvexec/internal/channel"
	"github.com/codex-k8s/kvexec/internal/protocol"
)

// DefaultPoolSize is the number of idle connections kept when Options leaves it unset.
const DefaultPoolSize = 4

var aLongTimeAgo = time.Unix(1, 0)

// Options configures a Channel.
type Options struct {
	// PoolSize caps idle connections kept for reuse.
	PoolSize int
	// DialTimeout bounds connection setup when the request context has no deadline.
	DialTimeout time.Duration
}

// Channel sends requests to one node, one request per connection at a time.
type Channel struct {
	target   string
	poolSize int
	dialer   net.Dialer

	mu     sync.Mutex
	idle   []*conn
	active map[*conn]struct{}
	closed bool
}

type conn struct {
	net.Conn
	writer  *bufio.Writer
	encoder *codec.Encoder
	decoder *codec.Decoder
}

func newConn(nc net.Conn) *conn {
	c := &conn{Conn: nc, writer: bufio.NewWriter(nc)}
	c.encoder = codec.NewEncoder(c.writer, &codec.MsgpackHandle{})
	c.decoder = codec.NewDecoder(bufio.NewReader(nc), &codec.MsgpackHandle{})
	return c
}

// New creates a pooled channel for target (host:port).
func New(target string, opts Options) (*Channel, error) {
	if _, _, err := net.SplitHostPort(target); err != nil {
		return nil, fmt.Errorf("invalid node target %q: %w", target, err)
	}
	poolSize := opts.PoolSize
	if poolSize <= 0 {
		poolSize = DefaultPoolSize
	}
	return &Channel{
		target:   target,
		poolSize: poolSize,
		dialer:   net.Dialer{Timeout: opts.DialTimeout},
		active:   make(map[*conn]struct{}),
	}, nil
}

// Send writes req on a pooled connection and waits for the response.
func (c *Channel) Send(ctx context.Context, req protocol.Request) (protocol.Response, error) {
	cn, err := c.acquire(ctx)
	if err != nil {
		return protocol.Response{}, c.wrapErr(ctx, err)
	}
	resp, err := cn.call(ctx, req)
	c.release(cn, err)
	if err != nil {
		return protocol.Response{}, c.wrapErr(ctx, err)
	}
	return resp, nil
}

// Close closes idle and in-flight connections. Outstanding sends fail.
func (c *Channel) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	conns := make([]*conn, 0, len(c.idle)+len(c.active))
	conns = append(conns, c.idle...)
	for cn := range c.active {
		conns = append(conns, cn)
	}
	c.idle = nil
	c.mu.Unlock()

	var errs []error
	for _, cn := range conns {
		if err := cn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Idle returns the number of pooled idle connections.
func (c *Channel) Idle() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.idle)
}

func (c *Channel) acquire(ctx context.Context) (*conn, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, channel.ErrClosed
	}
	if n := len(c.idle); n > 0 {
		cn := c.idle[n-1]
		c.idle = c.idle[:n-1]
		c.active[cn] = struct{}{}
		c.mu.Unlock()
		return cn, nil
	}
	c.mu.Unlock()

	nc, err := c.dialer.DialContext(ctx, "tcp", c.target)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", c.target, err)
	}
	cn := newConn(nc)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		_ = cn.Close()
		return nil, channel.ErrClosed
	}
	c.active[cn] = struct{}{}
	return cn, nil
}

func (c *Channel) release(cn *conn, callErr error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.active, cn)
	if callErr != nil || c.closed || len(c.idle) >= c.poolSize {
		_ = cn.Close()
		return
	}
	c.idle = append(c.idle, cn)
}

func (c *Channel) wrapErr(ctx context.Context, err error) error {
	if errors.Is(err, channel.ErrClosed) {
		return err
	}
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return fmt.Errorf("%w: %v", channel.ErrClosed, err)
	}
	if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
		return fmt.Errorf("%w: %v", ctxErr, err)
	}
	if errors.Is(err, os.ErrDeadlineExceeded) && !errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", context.DeadlineExceeded, err)
	}
	return err
}

func (cn *conn) call(ctx context.Context, req protocol.Request) (protocol.Response, error) {
	deadline, hasDeadline := ctx.Deadline()
	if err := cn.SetDeadline(deadline); err != nil {
		return protocol.Response{}, err
	}
	stop := context.AfterFunc(ctx, func() {
		_ = cn.SetDeadline(aLongTimeAgo)
	})
	defer stop()

	resp, err := cn.roundTrip(req)
	if err != nil && hasDeadline && !time.Now().Before(deadline) && !errors.Is(err, context.DeadlineExceeded) {
		return protocol.Response{}, fmt.Errorf("%w: %v", context.DeadlineExceeded, err)
	}
	return resp, err
}

func (cn *conn) roundTrip(req protocol.Request) (protocol.Response, error) {
	if err := cn.encoder.Encode(&req); err != nil {
		return protocol.Response{}, fmt.Errorf("write request: %w", err)
	}
	if err := cn.writer.Flush(); err != nil {
		return protocol.Response{}, fmt.Errorf("write request: %w", err)
	}
	var resp protocol.Response
	if err := cn.decoder.Decode(&resp); err != nil {
		return protocol.Response{}, fmt.Errorf("read response: %w", err)
	}
	return resp, nil
}
