package services

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(t *testing.T, r io.Reader, logger *slog.Logger) (string, string, int) {
	t.Helper()
	out := make(chan StreamChunk, 64)
	require.NoError(t, DecodeStream(context.Background(), r, out, logger))
	close(out)

	var content, reasoning strings.Builder
	dones := 0
	for c := range out {
		content.WriteString(c.Content)
		reasoning.WriteString(c.Reasoning)
		if c.Done {
			dones++
		}
	}
	return content.String(), reasoning.String(), dones
}

const sampleStream = "data: {\"choices\":[{\"delta\":{\"reasoning_content\":\"a\"}}]}\r\n" +
	": keep-alive\n" +
	"data: {\"choices\":[{\"delta\":{\"content\":\"Hello, \"}}]}\n" +
	"data: {\"choices\":[{\"delta\":{\"content\":\"world\"}}]}\n" +
	"data: [DONE]\n" +
	"data: {\"choices\":[{\"delta\":{\"content\":\"ignored\"}}]}\n"

func TestDecodeStream(t *testing.T) {
	content, reasoning, dones := collect(t, strings.NewReader(sampleStream), testLogger())
	assert.Equal(t, "Hello, world", content)
	assert.Equal(t, "a", reasoning)
	assert.Equal(t, 1, dones)
}

func TestDecodeStream_SplitReads(t *testing.T) {
	// One byte per read splits every record across chunk boundaries.
	content, _, dones := collect(t, iotest.OneByteReader(strings.NewReader(sampleStream)), testLogger())
	assert.Equal(t, "Hello, world", content)
	assert.Equal(t, 1, dones)
}

func TestDecodeStream_MalformedRecordSkipped(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	in := "data: {\"choices\":[{\"delta\":{\"content\":\"one \"}}]}\n" +
		"data: {broken\n" +
		"data: {\"choices\":[]}\n" +
		"data: {\"choices\":[{\"delta\":{\"content\":\"two\"}}]}\n" +
		"data: [DONE]\n"

	content, _, _ := collect(t, strings.NewReader(in), logger)
	assert.Equal(t, "one two", content)
	assert.Contains(t, logs.String(), "Skipping malformed stream record")
}

func TestDecodeStream_NoSentinel(t *testing.T) {
	in := "data: {\"choices\":[{\"delta\":{\"content\":\"cut off\"}}]}"
	content, _, dones := collect(t, strings.NewReader(in), testLogger())
	assert.Equal(t, "cut off", content)
	assert.Equal(t, 1, dones)
}

func TestDecodeStream_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	out := make(chan StreamChunk)
	err := DecodeStream(ctx, strings.NewReader(sampleStream), out, testLogger())
	assert.ErrorIs(t, err, context.Canceled)
}
