package socket

import (
	"context"
	"errors"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codex-k8s/kvexec/internal/channel"
	"github.com/codex-k8s/kvexec/internal/protocol"
)

type countingListener struct {
	net.Listener
	accepted atomic.Int32
}

func (l *countingListener) Accept() (net.Conn, error) {
	nc, err := l.Listener.Accept()
	if err == nil {
		l.accepted.Add(1)
	}
	return nc, err
}

func startNode(t *testing.T, fn channel.Func) (string, *countingListener) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	counting := &countingListener{Listener: ln}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Serve(ctx, counting, fn, nil) }()
	t.Cleanup(func() {
		cancel()
		require.NoError(t, <-done)
	})
	return ln.Addr().String(), counting
}

func newChannel(t *testing.T, target string) *Channel {
	t.Helper()
	ch, err := New(target, Options{PoolSize: 2})
	require.NoError(t, err)
	t.Cleanup(func() { _ = ch.Close() })
	return ch
}

func TestSendEncodesEveryCase(t *testing.T) {
	responses := map[string]protocol.Response{
		"read":     protocol.ReadResponse(map[string]string{"x": "1", "y": ""}),
		"redirect": protocol.RedirectResponse(protocol.NodeID(0)),
		"no-hint":  protocol.RedirectResponse(nil),
		"unreach":  {NodesUnreachable: &protocol.Empty{}},
		"lost":     protocol.LostLeadershipResponse(protocol.NodeID(3), true),
		"closing":  {Closing: &protocol.Empty{}},
		"timeout":  {Timeout: &protocol.Empty{}},
		"busy":     {TooManyRequests: &protocol.Empty{}},
		"compile":  protocol.CompileErrorResponse("line 1: unknown verb"),
		"unset":    {},
	}
	target, _ := startNode(t, func(_ context.Context, req protocol.Request) (protocol.Response, error) {
		return responses[req.Body], nil
	})
	ch := newChannel(t, target)

	for body, want := range responses {
		t.Run(body, func(t *testing.T) {
			got, err := ch.Send(context.Background(), protocol.Request{ID: 9, TimeoutMs: 100, Body: body})
			require.NoError(t, err)

			wantCase, err := want.Case()
			require.NoError(t, err)
			gotCase, err := got.Case()
			require.NoError(t, err)
			assert.Equal(t, wantCase, gotCase)

			switch wantCase {
			case protocol.CaseRead:
				assert.Equal(t, want.Read.Value, got.Read.Value)
			case protocol.CaseRedirectTo:
				assert.Equal(t, want.RedirectTo.ID, got.RedirectTo.ID)
			case protocol.CaseLostLeadership:
				assert.Equal(t, *want.LostLeadership, *got.LostLeadership)
			case protocol.CaseCompileError:
				assert.Equal(t, *want.CompileError, *got.CompileError)
			}
		})
	}
}

func TestSendReusesConnections(t *testing.T) {
	target, ln := startNode(t, func(context.Context, protocol.Request) (protocol.Response, error) {
		return protocol.ReadResponse(nil), nil
	})
	ch := newChannel(t, target)

	for i := 0; i < 5; i++ {
		_, err := ch.Send(context.Background(), protocol.Request{ID: uint64(i)})
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), ln.accepted.Load())
	assert.Equal(t, 1, ch.Idle())
}

func TestSendDeadlineExceeded(t *testing.T) {
	release := make(chan struct{})
	target, _ := startNode(t, func(ctx context.Context, _ protocol.Request) (protocol.Response, error) {
		select {
		case <-release:
		case <-ctx.Done():
		}
		return protocol.Response{Closing: &protocol.Empty{}}, nil
	})
	defer close(release)
	ch := newChannel(t, target)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := ch.Send(ctx, protocol.Request{ID: 1})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded), "got %v", err)
	assert.Zero(t, ch.Idle())
}

func TestCloseFailsOutstandingSend(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	target, _ := startNode(t, func(ctx context.Context, _ protocol.Request) (protocol.Response, error) {
		close(entered)
		select {
		case <-release:
		case <-ctx.Done():
		}
		return protocol.ReadResponse(nil), nil
	})
	defer close(release)
	ch := newChannel(t, target)

	errCh := make(chan error, 1)
	go func() {
		_, err := ch.Send(context.Background(), protocol.Request{ID: 1})
		errCh <- err
	}()

	<-entered
	require.NoError(t, ch.Close())

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, channel.ErrClosed)
	case <-time.After(5 * time.Second):
		t.Fatal("send did not return after close")
	}

	_, err := ch.Send(context.Background(), protocol.Request{ID: 2})
	assert.ErrorIs(t, err, channel.ErrClosed)
}

func TestHandlerFailureIsTransportFault(t *testing.T) {
	target, _ := startNode(t, func(context.Context, protocol.Request) (protocol.Response, error) {
		return protocol.Response{}, errors.New("storage offline")
	})
	ch := newChannel(t, target)

	_, err := ch.Send(context.Background(), protocol.Request{ID: 1})
	require.Error(t, err)
	assert.False(t, errors.Is(err, context.DeadlineExceeded))
	assert.Zero(t, ch.Idle())
}

func TestDialFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	target := ln.Addr().String()
	require.NoError(t, ln.Close())

	ch := newChannel(t, target)
	_, err = ch.Send(context.Background(), protocol.Request{ID: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dial")
}

func TestNewRejectsBadTarget(t *testing.T) {
	_, err := New("no-port", Options{})
	assert.Error(t, err)
}
