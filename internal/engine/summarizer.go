package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/jwebster45206/pale-notes/internal/services"
	"github.com/jwebster45206/pale-notes/pkg/chat"
	"github.com/jwebster45206/pale-notes/pkg/prompts"
)

// summaryJob is a detached copy of what the summarizer needs. The game id
// keeps a late result from landing in a different game.
type summaryJob struct {
	gameID   uuid.UUID
	history  []chat.ChatMessage
	previous string
}

// Summarizer folds old history into the rolling summary in the background.
// Jobs arrive over a one-way channel and are never awaited by the turn.
// A result is written whenever it arrives, so it may land before or after
// a concurrent turn's history append, and a snapshot restore can revert it.
type Summarizer struct {
	llm        services.LLMService
	apply      func(gameID uuid.UUID, summary string)
	logger     *slog.Logger
	minHistory int
	keep       int

	jobs chan summaryJob
	errs chan error
	wg   sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// NewSummarizer creates a summarizer. apply is called with each new summary.
func NewSummarizer(llm services.LLMService, apply func(uuid.UUID, string), logger *slog.Logger, minHistory, keep int) *Summarizer {
	return &Summarizer{
		llm:        llm,
		apply:      apply,
		logger:     logger,
		minHistory: minHistory,
		keep:       keep,
		jobs:       make(chan summaryJob, 1),
		errs:       make(chan error, 8),
	}
}

// Start runs the worker until ctx is done or Close is called.
func (s *Summarizer) Start(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case job, ok := <-s.jobs:
				if !ok {
					return
				}
				if err := s.run(ctx, job); err != nil {
					s.logger.Warn("Summarization failed", "error", err)
					s.report(err)
				}
			}
		}
	}()
}

// Submit queues a job without blocking. A job still waiting for the worker
// is replaced, so the newest history is always summarized. It reports false
// once the summarizer is closed.
func (s *Summarizer) Submit(job summaryJob) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	select {
	case <-s.jobs:
		s.logger.Debug("Replacing pending summarization")
	default:
	}
	// Submit is the only sender and holds mu, so the slot is free here.
	s.jobs <- job
	return true
}

// Errors is the error sink. Errors are dropped when nobody drains it.
func (s *Summarizer) Errors() <-chan error {
	return s.errs
}

// Close stops accepting jobs and waits for the worker to exit.
func (s *Summarizer) Close() {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.jobs)
	}
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *Summarizer) run(ctx context.Context, job summaryJob) error {
	messages, ok := prompts.SummaryMessages(job.history, job.previous, s.minHistory, s.keep)
	if !ok {
		s.logger.Debug("Not enough history to summarize", "history", len(job.history))
		return nil
	}

	resp, err := s.llm.Chat(ctx, messages)
	if err != nil {
		return fmt.Errorf("failed to summarize history: %w", err)
	}
	summary := strings.TrimSpace(resp.Message)
	if summary == "" {
		return fmt.Errorf("summarizer returned empty text")
	}

	s.apply(job.gameID, summary)
	s.logger.Info("Summary updated", "game_id", job.gameID, "length", len(summary))
	return nil
}

func (s *Summarizer) report(err error) {
	select {
	case s.errs <- err:
	default:
	}
}
