package channel

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/codex-k8s/kvexec/internal/protocol"
)

func echo(calls *int) Func {
	return func(_ context.Context, req protocol.Request) (protocol.Response, error) {
		*calls++
		return protocol.ReadResponse(map[string]string{"body": req.Body}), nil
	}
}

func TestFuncForwards(t *testing.T) {
	calls := 0
	resp, err := echo(&calls).Send(context.Background(), protocol.Request{Body: "GET x"})
	require.NoError(t, err)
	assert.Equal(t, "GET x", resp.Read.Value["body"])
	assert.Equal(t, 1, calls)
}

func TestThrottledPassesThroughWithinBurst(t *testing.T) {
	calls := 0
	ch := NewThrottled(echo(&calls), 1, 2)

	for i := 0; i < 2; i++ {
		_, err := ch.Send(context.Background(), protocol.Request{})
		require.NoError(t, err)
	}
	assert.Equal(t, 2, calls)
}

func TestThrottledRejectsWhenDeadlineTooShort(t *testing.T) {
	calls := 0
	ch := &Throttled{Inner: echo(&calls), Limiter: rate.NewLimiter(rate.Every(time.Hour), 1)}

	_, err := ch.Send(context.Background(), protocol.Request{})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = ch.Send(ctx, protocol.Request{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "client throttle")
	assert.Equal(t, 1, calls)
}

func TestThrottledReportsExpiredContext(t *testing.T) {
	calls := 0
	ch := NewThrottled(echo(&calls), 1, 1)

	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()
	_, err := ch.Send(ctx, protocol.Request{})
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Zero(t, calls)
}

func TestThrottledDisabled(t *testing.T) {
	calls := 0
	ch := NewThrottled(echo(&calls), 0, 0)
	assert.Nil(t, ch.Limiter)
	for i := 0; i < 10; i++ {
		_, err := ch.Send(context.Background(), protocol.Request{})
		require.NoError(t, err)
	}
	assert.NoError(t, ch.Close())
}

type closingChannel struct {
	Func
	closed bool
}

func (c *closingChannel) Close() error {
	c.closed = true
	return nil
}

func TestThrottledClosesInner(t *testing.T) {
	inner := &closingChannel{}
	require.NoError(t, NewThrottled(inner, 1, 1).Close())
	assert.True(t, inner.closed)
}
