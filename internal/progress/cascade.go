package progress

import (
	"context"
	"fmt"

	"pulseline/internal/events"
)

// DeleteSubGoal unlinks the sub-goal's initiatives, deletes it and publishes
// subgoal.deleted so the owning goal is recomputed.
func (a *Aggregator) DeleteSubGoal(ctx context.Context, id string) error {
	subGoal, err := a.Store.GetSubGoal(ctx, id)
	if err != nil {
		return err
	}
	if _, err := a.Store.UnlinkInitiatives(ctx, id); err != nil {
		return fmt.Errorf("unlink initiatives of %s: %w", id, err)
	}
	if err := a.Store.DeleteSubGoal(ctx, id); err != nil {
		return fmt.Errorf("delete sub-goal %s: %w", id, err)
	}
	return a.Bus.Publish(ctx, events.SubGoalDeleted, subGoal)
}

// DeleteGoal removes a goal together with its sub-goals. Each sub-goal is
// unlinked and announced before any row is deleted.
func (a *Aggregator) DeleteGoal(ctx context.Context, id string) error {
	goal, err := a.Store.GetGoal(ctx, id)
	if err != nil {
		return err
	}
	subGoals, err := a.Store.ListSubGoals(ctx, id)
	if err != nil {
		return fmt.Errorf("list sub-goals of %s: %w", id, err)
	}
	for _, s := range subGoals {
		if _, err := a.Store.UnlinkInitiatives(ctx, s.ID); err != nil {
			return fmt.Errorf("unlink initiatives of %s: %w", s.ID, err)
		}
		if err := a.Bus.Publish(ctx, events.SubGoalDeleted, s); err != nil {
			return err
		}
	}
	if _, err := a.Store.DeleteSubGoals(ctx, id); err != nil {
		return err
	}
	if err := a.Store.DeleteGoal(ctx, id); err != nil {
		return fmt.Errorf("delete goal %s: %w", id, err)
	}
	return a.Bus.Publish(ctx, events.GoalDeleted, goal)
}

// DeleteInitiative unlinks the initiative's work items, deletes it and
// publishes initiative.deleted.
func (a *Aggregator) DeleteInitiative(ctx context.Context, id string) error {
	initiative, err := a.Store.GetInitiative(ctx, id)
	if err != nil {
		return err
	}
	if _, err := a.Store.UnlinkWorkItems(ctx, id); err != nil {
		return fmt.Errorf("unlink work items of %s: %w", id, err)
	}
	if err := a.Store.DeleteInitiative(ctx, id); err != nil {
		return fmt.Errorf("delete initiative %s: %w", id, err)
	}
	return a.Bus.Publish(ctx, events.InitiativeDeleted, initiative)
}
