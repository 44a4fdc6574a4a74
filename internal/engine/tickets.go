package engine

import (
	"context"
	"fmt"

	"pulseline/internal/domain"
	"pulseline/internal/events"
)

type TicketCreateOptions struct {
	ID        string
	OrgID     string
	ProjectID string
	Reference string
	Title     string
	Status    string
}

func (e Engine) newTicket(opts TicketCreateOptions) (domain.Ticket, error) {
	if err := required("org_id", opts.OrgID); err != nil {
		return domain.Ticket{}, err
	}
	if err := required("project_id", opts.ProjectID); err != nil {
		return domain.Ticket{}, err
	}
	if err := required("title", opts.Title); err != nil {
		return domain.Ticket{}, err
	}
	status := opts.Status
	if status == "" {
		status = "open"
	}
	now := e.now()
	return domain.Ticket{
		ID:        newID(opts.ID),
		OrgID:     opts.OrgID,
		ProjectID: opts.ProjectID,
		Reference: opts.Reference,
		Title:     opts.Title,
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (e Engine) CreateIssue(ctx context.Context, opts TicketCreateOptions) (domain.Issue, error) {
	t, err := e.newTicket(opts)
	if err != nil {
		return domain.Issue{}, err
	}
	is := domain.Issue(t)
	if err := e.Repo.InsertIssue(ctx, is); err != nil {
		return domain.Issue{}, fmt.Errorf("insert issue: %w", err)
	}
	return is, e.publish(ctx, events.IssueCreated, is)
}

func (e Engine) DeleteIssue(ctx context.Context, id string) error {
	is, err := e.Repo.GetIssue(ctx, id)
	if err != nil {
		return err
	}
	if err := e.Repo.DeleteIssue(ctx, id); err != nil {
		return fmt.Errorf("delete issue: %w", err)
	}
	return e.publish(ctx, events.IssueDeleted, is)
}

func (e Engine) CreateFeatureRequest(ctx context.Context, opts TicketCreateOptions) (domain.FeatureRequest, error) {
	t, err := e.newTicket(opts)
	if err != nil {
		return domain.FeatureRequest{}, err
	}
	fr := domain.FeatureRequest(t)
	if err := e.Repo.InsertFeatureRequest(ctx, fr); err != nil {
		return domain.FeatureRequest{}, fmt.Errorf("insert feature request: %w", err)
	}
	return fr, e.publish(ctx, events.FeatureRequestCreated, fr)
}

func (e Engine) DeleteFeatureRequest(ctx context.Context, id string) error {
	fr, err := e.Repo.GetFeatureRequest(ctx, id)
	if err != nil {
		return err
	}
	if err := e.Repo.DeleteFeatureRequest(ctx, id); err != nil {
		return fmt.Errorf("delete feature request: %w", err)
	}
	return e.publish(ctx, events.FeatureRequestDeleted, fr)
}
