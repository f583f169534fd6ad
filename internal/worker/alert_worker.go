// Package worker evaluates alerts for persisted sessions, both when a change
// message arrives and on a cron schedule.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"trackit/internal/alerts"
	"trackit/internal/amqp"
	"trackit/internal/cache"
	"trackit/internal/snapshot"
	"trackit/internal/state"
)

// DefaultRepeatAfter is how long an identical alert stays muted.
const DefaultRepeatAfter = 24 * time.Hour

// AlertWorker reads snapshots from the backend, so it never shares memory
// with the API process.
type AlertWorker struct {
	source    snapshot.Store
	evaluator *alerts.Evaluator
	notifier  alerts.Notifier
	sent      *cache.LRUCache[time.Time]
	now       func() time.Time

	// checkMu serializes check so a sweep and a change message cannot both
	// send the same alert.
	checkMu sync.Mutex

	cron *cron.Cron
}

func NewAlertWorker(source snapshot.Store, evaluator *alerts.Evaluator, notifier alerts.Notifier, repeatAfter time.Duration) *AlertWorker {
	if repeatAfter <= 0 {
		repeatAfter = DefaultRepeatAfter
	}
	return &AlertWorker{
		source:    source,
		evaluator: evaluator,
		notifier:  notifier,
		sent:      cache.NewLRUCache[time.Time](10000, repeatAfter),
		now:       time.Now,
	}
}

// SentCache exposes the de-duplication cache for periodic cleanup.
func (w *AlertWorker) SentCache() *cache.LRUCache[time.Time] {
	return w.sent
}

// HandleChange processes one change message from AMQP.
func (w *AlertWorker) HandleChange(ctx context.Context, msg *amqp.ChangeMessage) error {
	slog.DebugContext(ctx, "Processing change message",
		"session_id", msg.SessionID,
		"kind", msg.Kind,
		"version", msg.Version)

	st, found, err := w.source.Load(ctx, msg.SessionID)
	if err != nil {
		return fmt.Errorf("load session %s: %w", msg.SessionID, err)
	}
	if !found {
		// Destroyed after the message was published
		slog.DebugContext(ctx, "Session no longer exists, skipping", "session_id", msg.SessionID)
		return nil
	}
	if st.Version < msg.Version {
		slog.WarnContext(ctx, "Snapshot older than change message",
			"session_id", msg.SessionID,
			"snapshot_version", st.Version,
			"message_version", msg.Version)
	}
	_, err = w.check(ctx, msg.SessionID, st)
	return err
}

// Sweep evaluates every persisted session once. It keeps going past
// individual failures and returns them joined.
func (w *AlertWorker) Sweep(ctx context.Context) error {
	ids, err := w.source.List(ctx)
	if err != nil {
		return fmt.Errorf("list sessions: %w", err)
	}

	start := w.now()
	var errs []error
	notified := 0
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return err
		}
		st, found, err := w.source.Load(ctx, id)
		if err != nil {
			errs = append(errs, fmt.Errorf("load session %s: %w", id, err))
			continue
		}
		if !found {
			continue
		}
		n, err := w.check(ctx, id, st)
		if err != nil {
			errs = append(errs, err)
		}
		notified += n
	}

	slog.InfoContext(ctx, "Alert sweep completed",
		"sessions", len(ids),
		"alerts_sent", notified,
		"failures", len(errs),
		"duration", w.now().Sub(start))
	return errors.Join(errs...)
}

// check notifies the alerts of one session that were not sent recently and
// returns how many were delivered.
func (w *AlertWorker) check(ctx context.Context, sessionID string, st state.State) (int, error) {
	w.checkMu.Lock()
	defer w.checkMu.Unlock()

	now := w.now()
	var fresh []alerts.Alert
	for _, a := range w.evaluator.Evaluate(st, now) {
		if _, seen := w.sent.Get(a.Key(sessionID)); !seen {
			fresh = append(fresh, a)
		}
	}
	if len(fresh) == 0 {
		return 0, nil
	}

	if err := w.notifier.Notify(ctx, sessionID, fresh); err != nil {
		return 0, fmt.Errorf("notify session %s: %w", sessionID, err)
	}
	for _, a := range fresh {
		w.sent.Set(a.Key(sessionID), now)
	}
	return len(fresh), nil
}

// StartSchedule runs Sweep on the given cron schedule until Stop.
func (w *AlertWorker) StartSchedule(ctx context.Context, schedule string) error {
	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		if err := w.Sweep(ctx); err != nil {
			slog.ErrorContext(ctx, "Alert sweep failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid alert schedule %q: %w", schedule, err)
	}
	w.cron = c
	c.Start()
	slog.InfoContext(ctx, "Alert sweep scheduled", "schedule", schedule)
	return nil
}

// Stop halts the schedule and waits for a running sweep to finish.
func (w *AlertWorker) Stop() {
	if w.cron == nil {
		return
	}
	<-w.cron.Stop().Done()
}
