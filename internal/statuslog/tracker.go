// Package statuslog records work item status transitions and accumulates the
// time spent in each status.
package statuslog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"pulseline/internal/domain"
	"pulseline/internal/events"
	"pulseline/internal/logging"
	"pulseline/internal/metrics"
)

type Store interface {
	CreateStatusStats(ctx context.Context, workItemID string) error
	GetStatusStats(ctx context.Context, workItemID string) (domain.WorkItemStatusStats, error)
	SaveStatusStats(ctx context.Context, stats domain.WorkItemStatusStats) error
	InsertStatusLog(ctx context.Context, l domain.WorkItemStatusLog) (int64, error)
	LatestStatusLog(ctx context.Context, workItemID string) (domain.WorkItemStatusLog, error)
	ListStatusLogs(ctx context.Context, workItemID string) ([]domain.WorkItemStatusLog, error)
	DeleteStatusTracking(ctx context.Context, workItemID string) error
}

type Tracker struct {
	Store    Store
	Log      *slog.Logger
	Observer metrics.Observer
}

func New(store Store, log *slog.Logger, obs metrics.Observer) *Tracker {
	if obs == nil {
		obs = metrics.Nop()
	}
	return &Tracker{Store: store, Log: logging.OrDiscard(log).With("component", "statuslog"), Observer: obs}
}

// Subscribe registers the tracker's handlers on bus.
func (t *Tracker) Subscribe(bus *events.Bus) {
	events.On(bus, events.WorkItemCreated, t.OnWorkItemCreated)
	events.On(bus, events.WorkItemUpdated, t.OnWorkItemUpdated)
	events.On(bus, events.WorkItemDeleted, t.OnWorkItemDeleted)
}

// OnWorkItemCreated starts tracking with a zeroed stats row and the initial
// status entry.
func (t *Tracker) OnWorkItemCreated(ctx context.Context, item domain.WorkItem) error {
	if err := t.Store.CreateStatusStats(ctx, item.ID); err != nil {
		return fmt.Errorf("create status stats: %w", err)
	}
	if _, err := t.Store.InsertStatusLog(ctx, domain.WorkItemStatusLog{WorkItemID: item.ID, Status: item.Status, Timestamp: item.CreatedAt}); err != nil {
		return fmt.Errorf("insert status log: %w", err)
	}
	return nil
}

// OnWorkItemUpdated appends the current status and credits the time since the
// previous entry to the previous status. Negative intervals count as zero.
func (t *Tracker) OnWorkItemUpdated(ctx context.Context, c events.Change[domain.WorkItem]) error {
	item := c.Current
	prior, err := t.Store.LatestStatusLog(ctx, item.ID)
	hasPrior := err == nil
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("latest status log: %w", err)
	}
	if _, err := t.Store.InsertStatusLog(ctx, domain.WorkItemStatusLog{WorkItemID: item.ID, Status: item.Status, Timestamp: item.UpdatedAt}); err != nil {
		return fmt.Errorf("insert status log: %w", err)
	}
	if !hasPrior {
		t.Log.DebugContext(ctx, "no prior status entry, skipping accumulation", "work_item", item.ID)
		return nil
	}

	elapsed := item.UpdatedAt.Sub(prior.Timestamp)
	if elapsed < 0 {
		t.Log.WarnContext(ctx, "status timestamp before previous entry, clamping", "work_item", item.ID, "elapsed", elapsed)
		elapsed = 0
	}
	stats, err := t.Store.GetStatusStats(ctx, item.ID)
	if errors.Is(err, domain.ErrNotFound) {
		stats = domain.WorkItemStatusStats{WorkItemID: item.ID}
	} else if err != nil {
		return fmt.Errorf("load status stats: %w", err)
	}
	if err := stats.Add(prior.Status, elapsed.Milliseconds()); err != nil {
		return err
	}
	if err := t.Store.SaveStatusStats(ctx, stats); err != nil {
		return fmt.Errorf("save status stats: %w", err)
	}
	t.Observer.StatusTransition(string(prior.Status), elapsed)
	return nil
}

func (t *Tracker) OnWorkItemDeleted(ctx context.Context, item domain.WorkItem) error {
	if err := t.Store.DeleteStatusTracking(ctx, item.ID); err != nil {
		return fmt.Errorf("delete status tracking: %w", err)
	}
	return nil
}

// Stats returns the accumulated durations of a work item.
func (t *Tracker) Stats(ctx context.Context, workItemID string) (domain.WorkItemStatusStats, error) {
	return t.Store.GetStatusStats(ctx, workItemID)
}

// History returns the transitions of a work item, oldest first.
func (t *Tracker) History(ctx context.Context, workItemID string) ([]domain.WorkItemStatusLog, error) {
	return t.Store.ListStatusLogs(ctx, workItemID)
}

// Durations converts stats into per-status durations, omitting zero entries.
func Durations(stats domain.WorkItemStatusStats) map[domain.WorkItemStatus]time.Duration {
	out := make(map[domain.WorkItemStatus]time.Duration)
	for _, st := range domain.WorkItemStatuses {
		if ms := stats.Get(st); ms > 0 {
			out[st] = time.Duration(ms) * time.Millisecond
		}
	}
	return out
}
