// Package progress keeps goal and initiative progress consistent with their
// children and owns the explicit cascade deletes of the hierarchy.
package progress

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"pulseline/internal/domain"
	"pulseline/internal/events"
	"pulseline/internal/logging"
	"pulseline/internal/metrics"
)

// Store is the persistence the aggregator reads children from and writes
// derived values to.
type Store interface {
	GetGoal(ctx context.Context, id string) (domain.Goal, error)
	ListSubGoals(ctx context.Context, goalID string) ([]domain.SubGoal, error)
	SetGoalProgress(ctx context.Context, id string, progress float64) error
	GetSubGoal(ctx context.Context, id string) (domain.SubGoal, error)
	GetInitiative(ctx context.Context, id string) (domain.Initiative, error)
	ListWorkItemsByInitiative(ctx context.Context, initiativeID string) ([]domain.WorkItem, error)
	SetInitiativeProgress(ctx context.Context, id string, workItemsCount int, progress float64) error

	UnlinkInitiatives(ctx context.Context, subGoalID string) (int64, error)
	UnlinkWorkItems(ctx context.Context, initiativeID string) (int64, error)
	DeleteSubGoal(ctx context.Context, id string) error
	DeleteSubGoals(ctx context.Context, goalID string) (int64, error)
	DeleteGoal(ctx context.Context, id string) error
	DeleteInitiative(ctx context.Context, id string) error
}

type Aggregator struct {
	Store    Store
	Bus      *events.Bus
	Log      *slog.Logger
	Observer metrics.Observer
}

func New(store Store, bus *events.Bus, log *slog.Logger, obs metrics.Observer) *Aggregator {
	if obs == nil {
		obs = metrics.Nop()
	}
	return &Aggregator{Store: store, Bus: bus, Log: logging.OrDiscard(log).With("component", "progress"), Observer: obs}
}

// Subscribe registers the aggregator's handlers on bus.
func (a *Aggregator) Subscribe(bus *events.Bus) {
	for _, name := range []string{events.SubGoalCreated, events.SubGoalDeleted} {
		events.On(bus, name, a.OnSubGoalChanged)
	}
	events.On(bus, events.SubGoalUpdated, func(ctx context.Context, c events.Change[domain.SubGoal]) error {
		if err := a.OnSubGoalChanged(ctx, c.Current); err != nil {
			return err
		}
		if c.Previous.GoalID != "" && c.Previous.GoalID != c.Current.GoalID {
			return a.RecomputeGoal(ctx, c.Previous.GoalID)
		}
		return nil
	})
	events.On(bus, events.WorkItemCreated, func(ctx context.Context, w domain.WorkItem) error {
		return a.onMember(ctx, w.InitiativeID)
	})
	events.On(bus, events.WorkItemDeleted, func(ctx context.Context, w domain.WorkItem) error {
		return a.onMember(ctx, w.InitiativeID)
	})
	events.On(bus, events.WorkItemUpdated, a.OnWorkItemUpdated)
}

// OnSubGoalChanged recomputes the goal owning subGoal.
func (a *Aggregator) OnSubGoalChanged(ctx context.Context, subGoal domain.SubGoal) error {
	if subGoal.GoalID == "" {
		return nil
	}
	return a.RecomputeGoal(ctx, subGoal.GoalID)
}

// OnWorkItemUpdated recomputes the initiatives whose membership or completion
// ratio the update can have changed. A re-link recomputes both sides.
func (a *Aggregator) OnWorkItemUpdated(ctx context.Context, c events.Change[domain.WorkItem]) error {
	prev, cur := deref(c.Previous.InitiativeID), deref(c.Current.InitiativeID)
	if prev == cur && c.Previous.Status == c.Current.Status {
		return nil
	}
	if prev != "" && prev != cur {
		if err := a.OnInitiativeMembershipChanged(ctx, prev); err != nil {
			return err
		}
	}
	return a.onMember(ctx, c.Current.InitiativeID)
}

func (a *Aggregator) onMember(ctx context.Context, initiativeID *string) error {
	if id := deref(initiativeID); id != "" {
		return a.OnInitiativeMembershipChanged(ctx, id)
	}
	return nil
}

// RecomputeGoal sets goal progress to the mean of its sub-goals, 0 if none.
// A goal that no longer exists is skipped.
func (a *Aggregator) RecomputeGoal(ctx context.Context, goalID string) error {
	if _, err := a.Store.GetGoal(ctx, goalID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.skipped(ctx, "goal", goalID)
			return nil
		}
		return fmt.Errorf("load goal %s: %w", goalID, err)
	}
	subGoals, err := a.Store.ListSubGoals(ctx, goalID)
	if err != nil {
		return fmt.Errorf("list sub-goals of %s: %w", goalID, err)
	}
	var sum float64
	for _, s := range subGoals {
		sum += s.Progress
	}
	progress := 0.0
	if len(subGoals) > 0 {
		progress = sum / float64(len(subGoals))
	}
	if err := a.Store.SetGoalProgress(ctx, goalID, progress); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.skipped(ctx, "goal", goalID)
			return nil
		}
		return fmt.Errorf("store goal progress: %w", err)
	}
	a.Observer.Recomputed("goal", false)
	return nil
}

// OnInitiativeMembershipChanged recomputes work item count and completion
// percentage of an initiative from its current members.
func (a *Aggregator) OnInitiativeMembershipChanged(ctx context.Context, initiativeID string) error {
	if _, err := a.Store.GetInitiative(ctx, initiativeID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.skipped(ctx, "initiative", initiativeID)
			return nil
		}
		return fmt.Errorf("load initiative %s: %w", initiativeID, err)
	}
	items, err := a.Store.ListWorkItemsByInitiative(ctx, initiativeID)
	if err != nil {
		return fmt.Errorf("list work items of %s: %w", initiativeID, err)
	}
	completed := 0
	for _, w := range items {
		if w.Status.IsCompleted() {
			completed++
		}
	}
	progress := 0.0
	if len(items) > 0 {
		progress = 100 * float64(completed) / float64(len(items))
	}
	if err := a.Store.SetInitiativeProgress(ctx, initiativeID, len(items), progress); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.skipped(ctx, "initiative", initiativeID)
			return nil
		}
		return fmt.Errorf("store initiative progress: %w", err)
	}
	a.Observer.Recomputed("initiative", false)
	return nil
}

func (a *Aggregator) skipped(ctx context.Context, aggregate, id string) {
	a.Log.DebugContext(ctx, "recompute skipped, parent gone", "aggregate", aggregate, "id", id)
	a.Observer.Recomputed(aggregate, true)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
