package channel

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/codex-k8s/kvexec/internal/protocol"
)

// Throttled limits the rate at which requests leave the client.
type Throttled struct {
	// Inner is the wrapped channel.
	Inner Channel
	// Limiter paces sends; nil disables throttling.
	Limiter *rate.Limiter
}

// NewThrottled wraps inner with a limiter allowing perSecond requests and the given burst.
func NewThrottled(inner Channel, perSecond float64, burst int) *Throttled {
	if perSecond <= 0 {
		return &Throttled{Inner: inner}
	}
	if burst <= 0 {
		burst = 1
	}
	return &Throttled{Inner: inner, Limiter: rate.NewLimiter(rate.Limit(perSecond), burst)}
}

// Send waits for a token and forwards the request.
func (t *Throttled) Send(ctx context.Context, req protocol.Request) (protocol.Response, error) {
	if t.Limiter != nil {
		if err := t.Limiter.Wait(ctx); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return protocol.Response{}, ctxErr
			}
			return protocol.Response{}, fmt.Errorf("client throttle: %w", err)
		}
	}
	return t.Inner.Send(ctx, req)
}

// Close closes the inner channel when it owns resources.
func (t *Throttled) Close() error {
	if closer, ok := t.Inner.(Closer); ok {
		return closer.Close()
	}
	return nil
}
