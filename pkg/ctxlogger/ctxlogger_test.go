package ctxlogger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContextHandler(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(ContextHandler{Handler: slog.NewJSONHandler(&buf, nil)})

	ctx := AppendCtx(context.Background(), slog.String("request_id", "r1"))
	child := AppendCtx(ctx, slog.String("room_code", "AAAA"))
	sibling := AppendCtx(ctx, slog.String("room_code", "BBBB"))

	logger.With("component", "test").InfoContext(child, "hello")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "r1", line["request_id"])
	assert.Equal(t, "AAAA", line["room_code"])
	assert.Equal(t, "test", line["component"])

	buf.Reset()
	logger.InfoContext(sibling, "hello")
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "BBBB", line["room_code"], "sibling contexts do not share attributes")
}
