package audit

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecordWritesFields(t *testing.T) {
	var buf bytes.Buffer
	logger := New(slog.New(slog.NewJSONHandler(&buf, nil)))

	logger.Record(context.Background(), Event{Type: "execute_failed", Node: 3, Kind: "closing", Retry: "other_node"})

	out := buf.String()
	assert.Contains(t, out, `"type":"execute_failed"`)
	assert.Contains(t, out, `"node":3`)
	assert.Contains(t, out, `"kind":"closing"`)
	assert.Contains(t, out, `"retry":"other_node"`)
}

func TestRecordNilSafe(t *testing.T) {
	var logger *StdLogger
	logger.Record(context.Background(), Event{Type: "x"})
	New(nil).Record(context.Background(), Event{Type: "x"})
}
