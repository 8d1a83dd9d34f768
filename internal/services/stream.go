package services

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

const (
	streamDataPrefix = "data: "
	streamSentinel   = "[DONE]"

	maxStreamLine = 1 << 20
)

type streamRecord struct {
	Choices []struct {
		Delta struct {
			Content          string `json:"content"`
			ReasoningContent string `json:"reasoning_content"`
		} `json:"delta"`
	} `json:"choices"`
}

// DecodeStream reads server-sent completion records from r and sends one
// chunk per decoded delta, then a final chunk with Done set. Records split
// across reads are reassembled by the line scanner. Blank lines, comments
// and other fields are ignored; malformed records are logged as
// StreamDecodeError and skipped. A stream that ends without the sentinel
// still finishes with Done.
func DecodeStream(ctx context.Context, r io.Reader, out chan<- StreamChunk, logger *slog.Logger) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxStreamLine)

	send := func(c StreamChunk) error {
		select {
		case out <- c:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if !strings.HasPrefix(line, streamDataPrefix) {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, streamDataPrefix))
		if payload == streamSentinel {
			return send(StreamChunk{Done: true})
		}

		var rec streamRecord
		if err := json.Unmarshal([]byte(payload), &rec); err != nil {
			logger.Warn("Skipping malformed stream record", "error", &StreamDecodeError{Line: payload, Err: err})
			continue
		}
		if len(rec.Choices) == 0 {
			continue
		}
		delta := rec.Choices[0].Delta
		if delta.Content == "" && delta.ReasoningContent == "" {
			continue
		}
		if err := send(StreamChunk{Content: delta.Content, Reasoning: delta.ReasoningContent}); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read stream: %w", err)
	}
	return send(StreamChunk{Done: true})
}
