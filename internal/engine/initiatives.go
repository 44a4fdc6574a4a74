package engine

import (
	"context"
	"fmt"

	"pulseline/internal/domain"
	"pulseline/internal/events"
)

type InitiativeCreateOptions struct {
	ID          string
	OrgID       string
	ProjectID   string
	Reference   string
	Title       string
	Description string
	Status      string
	Priority    string
	SubGoalID   string
	Mentions    []domain.User
	ActorID     string
}

func (e Engine) CreateInitiative(ctx context.Context, opts InitiativeCreateOptions) (domain.Initiative, error) {
	if err := required("org_id", opts.OrgID); err != nil {
		return domain.Initiative{}, err
	}
	if err := required("project_id", opts.ProjectID); err != nil {
		return domain.Initiative{}, err
	}
	if err := required("title", opts.Title); err != nil {
		return domain.Initiative{}, err
	}
	status := domain.InitiativeBacklog
	if opts.Status != "" {
		s, err := domain.ParseInitiativeStatus(opts.Status)
		if err != nil {
			return domain.Initiative{}, invalid("status", "%v", err)
		}
		status = s
	}
	priority, err := parsePriority(opts.Priority)
	if err != nil {
		return domain.Initiative{}, err
	}
	if opts.SubGoalID != "" {
		if _, err := e.Repo.GetSubGoal(ctx, opts.SubGoalID); err != nil {
			return domain.Initiative{}, fmt.Errorf("sub-goal %s: %w", opts.SubGoalID, err)
		}
	}
	now := e.now()
	in := domain.Initiative{
		ID:          newID(opts.ID),
		OrgID:       opts.OrgID,
		ProjectID:   opts.ProjectID,
		Reference:   opts.Reference,
		Title:       opts.Title,
		Description: opts.Description,
		Status:      status,
		Priority:    priority,
		SubGoalID:   optionalID(&opts.SubGoalID),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := e.Repo.InsertInitiative(ctx, in); err != nil {
		return domain.Initiative{}, fmt.Errorf("insert initiative: %w", err)
	}
	if err := e.publish(ctx, events.InitiativeCreated, in); err != nil {
		return in, err
	}
	return in, e.mention(ctx, domain.ActionCreate, domain.EntityInitiativeDescription, in.ID, in.OrgID, in.ProjectID, opts.ActorID, opts.Mentions)
}

func parsePriority(raw string) (domain.Priority, error) {
	if raw == "" {
		return domain.PriorityMedium, nil
	}
	p, err := domain.ParsePriority(raw)
	if err != nil {
		return "", invalid("priority", "%v", err)
	}
	return p, nil
}

// InitiativeUpdateOptions carries the fields to change. An empty SubGoalID
// unlinks the initiative from its sub-goal.
type InitiativeUpdateOptions struct {
	ID          string
	Title       *string
	Description *string
	Status      *string
	Priority    *string
	SubGoalID   *string
	Mentions    []domain.User
	ActorID     string
}

func (e Engine) UpdateInitiative(ctx context.Context, opts InitiativeUpdateOptions) (domain.Initiative, error) {
	prev, err := e.Repo.GetInitiative(ctx, opts.ID)
	if err != nil {
		return domain.Initiative{}, err
	}
	cur := prev
	if opts.Title != nil {
		if err := required("title", *opts.Title); err != nil {
			return domain.Initiative{}, err
		}
		cur.Title = *opts.Title
	}
	if opts.Description != nil {
		cur.Description = *opts.Description
	}
	if opts.Status != nil {
		s, err := domain.ParseInitiativeStatus(*opts.Status)
		if err != nil {
			return domain.Initiative{}, invalid("status", "%v", err)
		}
		cur.Status = s
	}
	if opts.Priority != nil {
		p, err := parsePriority(*opts.Priority)
		if err != nil {
			return domain.Initiative{}, err
		}
		cur.Priority = p
	}
	if opts.SubGoalID != nil {
		cur.SubGoalID = optionalID(opts.SubGoalID)
		if cur.SubGoalID != nil {
			if _, err := e.Repo.GetSubGoal(ctx, *cur.SubGoalID); err != nil {
				return domain.Initiative{}, fmt.Errorf("sub-goal %s: %w", *cur.SubGoalID, err)
			}
		}
	}
	cur.UpdatedAt = e.now()
	if err := e.Repo.UpdateInitiative(ctx, cur); err != nil {
		return domain.Initiative{}, fmt.Errorf("update initiative: %w", err)
	}
	if err := e.publish(ctx, events.InitiativeUpdated, events.Change[domain.Initiative]{Previous: prev, Current: cur}); err != nil {
		return cur, err
	}
	return cur, e.mention(ctx, domain.ActionUpdate, domain.EntityInitiativeDescription, cur.ID, cur.OrgID, cur.ProjectID, opts.ActorID, opts.Mentions)
}

func (e Engine) GetInitiative(ctx context.Context, id string) (domain.Initiative, error) {
	return e.Repo.GetInitiative(ctx, id)
}

// DeleteInitiative deletes an initiative after unlinking its work items.
func (e Engine) DeleteInitiative(ctx context.Context, id string) error {
	return e.Progress.DeleteInitiative(ctx, id)
}
