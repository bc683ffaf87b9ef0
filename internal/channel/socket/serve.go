package socket

import (
	"bufio"
	"context"
	"errors"
	"log/slog"
	"net"
	"sync"

	"github.com/ugorji/go/codec"

	"github.com/codex-k8s/kvexec/internal/channel"
	"github.com/codex-k8s/kvexec/internal/protocol"
)

// Serve answers requests arriving on ln with fn until ctx is done. A handler
// error closes the offending connection.
func Serve(ctx context.Context, ln net.Listener, fn channel.Func, logger *slog.Logger) error {
	stop := context.AfterFunc(ctx, func() { _ = ln.Close() })
	defer stop()

	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		nc, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			serveConn(ctx, nc, fn, logger)
		}()
	}
}

func serveConn(ctx context.Context, nc net.Conn, fn channel.Func, logger *slog.Logger) {
	stop := context.AfterFunc(ctx, func() { _ = nc.Close() })
	defer stop()
	defer nc.Close()

	writer := bufio.NewWriter(nc)
	encoder := codec.NewEncoder(writer, &codec.MsgpackHandle{})
	decoder := codec.NewDecoder(bufio.NewReader(nc), &codec.MsgpackHandle{})

	for {
		var req protocol.Request
		if err := decoder.Decode(&req); err != nil {
			return
		}
		resp, err := fn(ctx, req)
		if err != nil {
			if logger != nil {
				logger.Warn("execute handler failed", "request_id", req.ID, "error", err)
			}
			return
		}
		if err := encoder.Encode(&resp); err != nil {
			return
		}
		if err := writer.Flush(); err != nil {
			return
		}
	}
}
