// Package worker mirrors ledger rows from SQLite to the spreadsheet.
package worker

import (
	"context"
	"fmt"
	"time"

	"tally/internal/amqp"
	"tally/internal/core"
	"tally/internal/log"
	"tally/internal/sheets"
	"tally/internal/storage"

	"golang.org/x/sync/errgroup"
)

// EventConsumer delivers export events. amqp.Client implements it.
type EventConsumer interface {
	ConsumeExportEvents(ctx context.Context, handler func(*amqp.ExportEventMessage) error) error
}

// ExportWorker consumes export events and appends the referenced rows to
// the spreadsheet. A periodic scan over unexported rows backs up the
// event path, so a lost message delays an export instead of losing it.
type ExportWorker struct {
	repo      *storage.Repository
	appender  sheets.TransactionAppender
	consumer  EventConsumer
	batchSize int
	interval  time.Duration
	logger    *log.Logger
}

func NewExportWorker(repo *storage.Repository, appender sheets.TransactionAppender, consumer EventConsumer, batchSize int, interval time.Duration) *ExportWorker {
	return &ExportWorker{
		repo:      repo,
		appender:  appender,
		consumer:  consumer,
		batchSize: batchSize,
		interval:  interval,
		logger:    log.New(log.ComponentWorker),
	}
}

// HandleEvent exports the single row named by an event. Returning an
// error makes the consumer nack and requeue the message.
func (w *ExportWorker) HandleEvent(ctx context.Context, msg *amqp.ExportEventMessage) error {
	t, err := w.repo.GetTransaction(ctx, msg.Kind, msg.ID)
	if err != nil {
		return fmt.Errorf("load %s %d: %w", msg.Kind, msg.ID, err)
	}
	return w.export(ctx, msg.Kind, t)
}

// ProcessPending exports up to the batch size of unexported rows from
// each ledger, oldest first.
func (w *ExportWorker) ProcessPending(ctx context.Context) error {
	for _, kind := range []core.Kind{core.Income, core.Expense} {
		pending, err := w.repo.PendingExport(ctx, kind, w.batchSize)
		if err != nil {
			return fmt.Errorf("pending %ss: %w", kind, err)
		}
		if len(pending) == 0 {
			continue
		}
		w.logger.InfoContext(ctx, "processing pending exports", "kind", kind, "count", len(pending))
		for _, t := range pending {
			if err := w.export(ctx, kind, t); err != nil {
				w.logger.ErrorContext(ctx, "export failed",
					"kind", kind, "id", t.ID, log.FieldError, err)
			}
		}
	}
	return nil
}

func (w *ExportWorker) export(ctx context.Context, kind core.Kind, t core.Transaction) error {
	ref, err := w.appender.Append(ctx, kind, t)
	if err != nil {
		return fmt.Errorf("append to sheet: %w", err)
	}
	if err := w.repo.MarkExported(ctx, kind, t.ID); err != nil {
		// The row made it to the sheet; the pending scan will retry the
		// flag and may produce a duplicate row, which we accept.
		w.logger.ErrorContext(ctx, "failed to mark row exported",
			"kind", kind, "id", t.ID, log.FieldError, err)
		return nil
	}
	w.logger.InfoContext(ctx, "exported transaction", "kind", kind, "id", t.ID, "ref", ref)
	return nil
}

// Run drains any backlog, then consumes events and scans for pending
// rows until ctx is cancelled.
func (w *ExportWorker) Run(ctx context.Context) error {
	if err := w.ProcessPending(ctx); err != nil {
		w.logger.ErrorContext(ctx, "startup backlog scan failed", log.FieldError, err)
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := w.consumer.ConsumeExportEvents(ctx, func(msg *amqp.ExportEventMessage) error {
			return w.HandleEvent(ctx, msg)
		})
		if err != nil && ctx.Err() == nil {
			return fmt.Errorf("consume events: %w", err)
		}
		return ctx.Err()
	})

	g.Go(func() error {
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				if err := w.ProcessPending(ctx); err != nil {
					w.logger.ErrorContext(ctx, "periodic scan failed", log.FieldError, err)
				}
			}
		}
	})

	return g.Wait()
}
