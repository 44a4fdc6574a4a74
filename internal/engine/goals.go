package engine

import (
	"context"
	"fmt"

	"pulseline/internal/domain"
	"pulseline/internal/events"
	"pulseline/internal/repo"
)

// GoalCreateOptions are parameters for creating a goal.
type GoalCreateOptions struct {
	ID          string
	OrgID       string
	ProjectID   string
	Reference   string
	Title       string
	Description string
	Status      string
	Level       string
	Mentions    []domain.User
	ActorID     string
}

func (e Engine) CreateGoal(ctx context.Context, opts GoalCreateOptions) (domain.Goal, error) {
	if err := required("org_id", opts.OrgID); err != nil {
		return domain.Goal{}, err
	}
	if err := required("title", opts.Title); err != nil {
		return domain.Goal{}, err
	}
	status := domain.GoalDraft
	if opts.Status != "" {
		s, err := domain.ParseGoalStatus(opts.Status)
		if err != nil {
			return domain.Goal{}, invalid("status", "%v", err)
		}
		status = s
	}
	level := domain.GoalLevelOrganization
	if opts.ProjectID != "" {
		level = domain.GoalLevelProject
	}
	if opts.Level != "" {
		l, err := domain.ParseGoalLevel(opts.Level)
		if err != nil {
			return domain.Goal{}, invalid("level", "%v", err)
		}
		level = l
	}
	if level == domain.GoalLevelProject && opts.ProjectID == "" {
		return domain.Goal{}, invalid("project_id", "is required for project goals")
	}
	now := e.now()
	g := domain.Goal{
		ID:          newID(opts.ID),
		OrgID:       opts.OrgID,
		ProjectID:   optionalID(&opts.ProjectID),
		Reference:   opts.Reference,
		Title:       opts.Title,
		Description: opts.Description,
		Status:      status,
		Level:       level,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := e.Repo.InsertGoal(ctx, g); err != nil {
		return domain.Goal{}, fmt.Errorf("insert goal: %w", err)
	}
	if err := e.publish(ctx, events.GoalCreated, g); err != nil {
		return g, err
	}
	return g, e.mention(ctx, domain.ActionCreate, domain.EntityGoalDescription, g.ID, g.OrgID, deref(g.ProjectID), opts.ActorID, opts.Mentions)
}

// GoalUpdateOptions carries the fields to change; nil fields are kept.
type GoalUpdateOptions struct {
	ID          string
	Title       *string
	Description *string
	Status      *string
	Mentions    []domain.User
	ActorID     string
}

func (e Engine) UpdateGoal(ctx context.Context, opts GoalUpdateOptions) (domain.Goal, error) {
	prev, err := e.Repo.GetGoal(ctx, opts.ID)
	if err != nil {
		return domain.Goal{}, err
	}
	cur := prev
	if opts.Title != nil {
		if err := required("title", *opts.Title); err != nil {
			return domain.Goal{}, err
		}
		cur.Title = *opts.Title
	}
	if opts.Description != nil {
		cur.Description = *opts.Description
	}
	if opts.Status != nil {
		s, err := domain.ParseGoalStatus(*opts.Status)
		if err != nil {
			return domain.Goal{}, invalid("status", "%v", err)
		}
		cur.Status = s
	}
	cur.UpdatedAt = e.now()
	if err := e.Repo.UpdateGoal(ctx, cur); err != nil {
		return domain.Goal{}, fmt.Errorf("update goal: %w", err)
	}
	if err := e.publish(ctx, events.GoalUpdated, events.Change[domain.Goal]{Previous: prev, Current: cur}); err != nil {
		return cur, err
	}
	return cur, e.mention(ctx, domain.ActionUpdate, domain.EntityGoalDescription, cur.ID, cur.OrgID, deref(cur.ProjectID), opts.ActorID, opts.Mentions)
}

// GetGoal returns a goal with its ordered sub-goals.
func (e Engine) GetGoal(ctx context.Context, id string) (domain.Goal, []domain.SubGoal, error) {
	g, err := e.Repo.GetGoal(ctx, id)
	if err != nil {
		return domain.Goal{}, nil, err
	}
	subGoals, err := e.Repo.ListSubGoals(ctx, id)
	if err != nil {
		return domain.Goal{}, nil, err
	}
	return g, subGoals, nil
}

func (e Engine) ListGoals(ctx context.Context, orgID, projectID string) ([]domain.Goal, error) {
	return e.Repo.ListGoals(ctx, repo.GoalFilters{OrgID: orgID, ProjectID: projectID})
}

// DeleteGoal deletes a goal and its sub-goals, unlinking their initiatives.
func (e Engine) DeleteGoal(ctx context.Context, id string) error {
	return e.Progress.DeleteGoal(ctx, id)
}

// SubGoalCreateOptions are parameters for adding a sub-goal to a goal.
type SubGoalCreateOptions struct {
	ID        string
	GoalID    string
	Reference string
	Title     string
	Status    string
	Progress  float64
}

func validProgress(p float64) error {
	if p < 0 || p > 1 {
		return invalid("progress", "must be between 0 and 1, got %v", p)
	}
	return nil
}

func (e Engine) CreateSubGoal(ctx context.Context, opts SubGoalCreateOptions) (domain.SubGoal, error) {
	if err := required("title", opts.Title); err != nil {
		return domain.SubGoal{}, err
	}
	if err := validProgress(opts.Progress); err != nil {
		return domain.SubGoal{}, err
	}
	status := domain.GoalNotStarted
	if opts.Status != "" {
		s, err := domain.ParseGoalStatus(opts.Status)
		if err != nil {
			return domain.SubGoal{}, invalid("status", "%v", err)
		}
		status = s
	}
	var s domain.SubGoal
	err := e.Repo.InTx(ctx, func(tx repo.Repo) error {
		goal, err := tx.GetGoal(ctx, opts.GoalID)
		if err != nil {
			return err
		}
		pos, err := tx.NextSubGoalPosition(ctx, goal.ID)
		if err != nil {
			return err
		}
		now := e.now()
		s = domain.SubGoal{
			ID:        newID(opts.ID),
			GoalID:    goal.ID,
			OrgID:     goal.OrgID,
			ProjectID: goal.ProjectID,
			Reference: opts.Reference,
			Title:     opts.Title,
			Status:    status,
			Progress:  opts.Progress,
			Position:  pos,
			CreatedAt: now,
			UpdatedAt: now,
		}
		return tx.InsertSubGoal(ctx, s)
	})
	if err != nil {
		return domain.SubGoal{}, err
	}
	return s, e.publish(ctx, events.SubGoalCreated, s)
}

type SubGoalUpdateOptions struct {
	ID       string
	Title    *string
	Status   *string
	Progress *float64
	Position *int
}

func (e Engine) UpdateSubGoal(ctx context.Context, opts SubGoalUpdateOptions) (domain.SubGoal, error) {
	prev, err := e.Repo.GetSubGoal(ctx, opts.ID)
	if err != nil {
		return domain.SubGoal{}, err
	}
	cur := prev
	if opts.Title != nil {
		if err := required("title", *opts.Title); err != nil {
			return domain.SubGoal{}, err
		}
		cur.Title = *opts.Title
	}
	if opts.Status != nil {
		s, err := domain.ParseGoalStatus(*opts.Status)
		if err != nil {
			return domain.SubGoal{}, invalid("status", "%v", err)
		}
		cur.Status = s
	}
	if opts.Progress != nil {
		if err := validProgress(*opts.Progress); err != nil {
			return domain.SubGoal{}, err
		}
		cur.Progress = *opts.Progress
	}
	if opts.Position != nil {
		if *opts.Position < 0 {
			return domain.SubGoal{}, invalid("position", "must not be negative")
		}
		cur.Position = *opts.Position
	}
	cur.UpdatedAt = e.now()
	if err := e.Repo.UpdateSubGoal(ctx, cur); err != nil {
		return domain.SubGoal{}, fmt.Errorf("update sub-goal: %w", err)
	}
	return cur, e.publish(ctx, events.SubGoalUpdated, events.Change[domain.SubGoal]{Previous: prev, Current: cur})
}

// DeleteSubGoal deletes a sub-goal after unlinking its initiatives.
func (e Engine) DeleteSubGoal(ctx context.Context, id string) error {
	return e.Progress.DeleteSubGoal(ctx, id)
}
