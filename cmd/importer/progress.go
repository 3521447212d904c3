package main

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	domain "github.com/mohammadpnp/profile-import/internal/domain/profile"
)

// consoleProgress prints batch progress and forwards it to next, if any.
type consoleProgress struct {
	out  io.Writer
	next domain.ProgressPublisher

	mu        sync.Mutex
	lastBatch int
}

func newConsoleProgress(out io.Writer, next domain.ProgressPublisher) *consoleProgress {
	return &consoleProgress{out: out, next: next}
}

func (p *consoleProgress) Publish(ctx context.Context, sessionID string, progress domain.BatchProgress) error {
	p.mu.Lock()
	if progress.CurrentBatch != p.lastBatch || progress.Processed == progress.Total {
		p.lastBatch = progress.CurrentBatch
		fmt.Fprintln(p.out, formatBatchProgress(progress))
	}
	p.mu.Unlock()

	if p.next != nil {
		return p.next.Publish(ctx, sessionID, progress)
	}
	return nil
}

func (p *consoleProgress) Expire(ctx context.Context, sessionID string, after time.Duration) error {
	if p.next != nil {
		return p.next.Expire(ctx, sessionID, after)
	}
	return nil
}

func formatBatchProgress(p domain.BatchProgress) string {
	line := fmt.Sprintf("batch %d/%d: %d/%d rows", p.CurrentBatch, p.TotalBatches, p.Processed, p.Total)
	if len(p.Errors) > 0 {
		line += fmt.Sprintf(", %d errors", len(p.Errors))
	}
	if p.EstimatedTimeRemaining > 0 {
		line += ", about " + p.EstimatedTimeRemaining.Round(time.Second).String() + " left"
	}
	return line
}

func formatParseProgress(p domain.ParseProgress) string {
	if p.TotalRows > 0 {
		return fmt.Sprintf("%s: %s (%.0f%%)", p.Stage, p.Message, p.Percentage)
	}
	return fmt.Sprintf("%s: %s", p.Stage, p.Message)
}
