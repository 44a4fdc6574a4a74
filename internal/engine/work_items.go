package engine

import (
	"context"
	"fmt"
	"time"

	"pulseline/internal/domain"
	"pulseline/internal/events"
)

type WorkItemCreateOptions struct {
	ID           string
	OrgID        string
	ProjectID    string
	Reference    string
	Title        string
	Description  string
	Status       string
	Priority     string
	InitiativeID string
	Mentions     []domain.User
	ActorID      string
}

func (e Engine) CreateWorkItem(ctx context.Context, opts WorkItemCreateOptions) (domain.WorkItem, error) {
	if err := required("org_id", opts.OrgID); err != nil {
		return domain.WorkItem{}, err
	}
	if err := required("project_id", opts.ProjectID); err != nil {
		return domain.WorkItem{}, err
	}
	if err := required("title", opts.Title); err != nil {
		return domain.WorkItem{}, err
	}
	status := domain.StatusPlanned
	if opts.Status != "" {
		s, err := domain.ParseWorkItemStatus(opts.Status)
		if err != nil {
			return domain.WorkItem{}, invalid("status", "%v", err)
		}
		status = s
	}
	priority, err := parsePriority(opts.Priority)
	if err != nil {
		return domain.WorkItem{}, err
	}
	if err := e.checkInitiative(ctx, opts.InitiativeID, opts.ProjectID); err != nil {
		return domain.WorkItem{}, err
	}
	now := e.now()
	w := domain.WorkItem{
		ID:           newID(opts.ID),
		OrgID:        opts.OrgID,
		ProjectID:    opts.ProjectID,
		Reference:    opts.Reference,
		Title:        opts.Title,
		Description:  opts.Description,
		Status:       status,
		Priority:     priority,
		InitiativeID: optionalID(&opts.InitiativeID),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	syncCompletedAt(&w, now)
	if err := e.Repo.InsertWorkItem(ctx, w); err != nil {
		return domain.WorkItem{}, fmt.Errorf("insert work item: %w", err)
	}
	if err := e.publish(ctx, events.WorkItemCreated, w); err != nil {
		return w, err
	}
	return w, e.mention(ctx, domain.ActionCreate, domain.EntityWorkItemDescription, w.ID, w.OrgID, w.ProjectID, opts.ActorID, opts.Mentions)
}

func (e Engine) checkInitiative(ctx context.Context, initiativeID, projectID string) error {
	if initiativeID == "" {
		return nil
	}
	in, err := e.Repo.GetInitiative(ctx, initiativeID)
	if err != nil {
		return fmt.Errorf("initiative %s: %w", initiativeID, err)
	}
	if in.ProjectID != projectID {
		return invalid("initiative_id", "initiative %s is not in project %s", initiativeID, projectID)
	}
	return nil
}

// syncCompletedAt keeps CompletedAt set exactly while the status is done or closed.
func syncCompletedAt(w *domain.WorkItem, now time.Time) {
	switch {
	case w.Status.IsCompleted() && w.CompletedAt == nil:
		t := now
		w.CompletedAt = &t
	case !w.Status.IsCompleted():
		w.CompletedAt = nil
	}
}

// WorkItemUpdateOptions carries the fields to change. An empty InitiativeID
// removes the work item from its initiative.
type WorkItemUpdateOptions struct {
	ID           string
	Title        *string
	Description  *string
	Status       *string
	Priority     *string
	InitiativeID *string
	Mentions     []domain.User
	ActorID      string
}

func (e Engine) UpdateWorkItem(ctx context.Context, opts WorkItemUpdateOptions) (domain.WorkItem, error) {
	prev, err := e.Repo.GetWorkItem(ctx, opts.ID)
	if err != nil {
		return domain.WorkItem{}, err
	}
	cur := prev
	if opts.Title != nil {
		if err := required("title", *opts.Title); err != nil {
			return domain.WorkItem{}, err
		}
		cur.Title = *opts.Title
	}
	if opts.Description != nil {
		cur.Description = *opts.Description
	}
	if opts.Status != nil {
		s, err := domain.ParseWorkItemStatus(*opts.Status)
		if err != nil {
			return domain.WorkItem{}, invalid("status", "%v", err)
		}
		cur.Status = s
	}
	if opts.Priority != nil {
		p, err := parsePriority(*opts.Priority)
		if err != nil {
			return domain.WorkItem{}, err
		}
		cur.Priority = p
	}
	if opts.InitiativeID != nil {
		cur.InitiativeID = optionalID(opts.InitiativeID)
		if err := e.checkInitiative(ctx, deref(cur.InitiativeID), cur.ProjectID); err != nil {
			return domain.WorkItem{}, err
		}
	}
	now := e.now()
	cur.UpdatedAt = now
	syncCompletedAt(&cur, now)
	if err := e.Repo.UpdateWorkItem(ctx, cur); err != nil {
		return domain.WorkItem{}, fmt.Errorf("update work item: %w", err)
	}
	if err := e.publish(ctx, events.WorkItemUpdated, events.Change[domain.WorkItem]{Previous: prev, Current: cur}); err != nil {
		return cur, err
	}
	return cur, e.mention(ctx, domain.ActionUpdate, domain.EntityWorkItemDescription, cur.ID, cur.OrgID, cur.ProjectID, opts.ActorID, opts.Mentions)
}

func (e Engine) GetWorkItem(ctx context.Context, id string) (domain.WorkItem, error) {
	return e.Repo.GetWorkItem(ctx, id)
}

func (e Engine) DeleteWorkItem(ctx context.Context, id string) error {
	w, err := e.Repo.GetWorkItem(ctx, id)
	if err != nil {
		return err
	}
	if err := e.Repo.DeleteWorkItem(ctx, id); err != nil {
		return fmt.Errorf("delete work item: %w", err)
	}
	return e.publish(ctx, events.WorkItemDeleted, w)
}
