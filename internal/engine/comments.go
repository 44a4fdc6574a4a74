package engine

import (
	"context"
	"fmt"

	"pulseline/internal/domain"
	"pulseline/internal/events"
)

type CommentCreateOptions struct {
	ID         string
	ParentKind string
	ParentID   string
	AuthorID   string
	Content    string
	Mentions   []domain.User
}

// parentScope returns the org and project of a comment's parent entity.
func (e Engine) parentScope(ctx context.Context, kind domain.CommentParent, id string) (string, string, error) {
	switch kind {
	case domain.CommentOnGoal:
		g, err := e.Repo.GetGoal(ctx, id)
		return g.OrgID, deref(g.ProjectID), err
	case domain.CommentOnSubGoal:
		s, err := e.Repo.GetSubGoal(ctx, id)
		return s.OrgID, deref(s.ProjectID), err
	case domain.CommentOnInitiative:
		in, err := e.Repo.GetInitiative(ctx, id)
		return in.OrgID, in.ProjectID, err
	case domain.CommentOnWorkItem:
		w, err := e.Repo.GetWorkItem(ctx, id)
		return w.OrgID, w.ProjectID, err
	case domain.CommentOnIssue:
		is, err := e.Repo.GetIssue(ctx, id)
		return is.OrgID, is.ProjectID, err
	case domain.CommentOnFeatureRequest:
		fr, err := e.Repo.GetFeatureRequest(ctx, id)
		return fr.OrgID, fr.ProjectID, err
	}
	return "", "", invalid("parent_kind", "unknown parent kind %q", kind)
}

// AddComment stores a comment and notifies the mentioned users. Mention
// notifications point at the comment itself.
func (e Engine) AddComment(ctx context.Context, opts CommentCreateOptions) (domain.Comment, error) {
	if err := required("author_id", opts.AuthorID); err != nil {
		return domain.Comment{}, err
	}
	if err := required("content", opts.Content); err != nil {
		return domain.Comment{}, err
	}
	kind := domain.CommentParent(opts.ParentKind)
	entityType, err := domain.CommentEntityType(kind)
	if err != nil {
		return domain.Comment{}, invalid("parent_kind", "%v", err)
	}
	orgID, projectID, err := e.parentScope(ctx, kind, opts.ParentID)
	if err != nil {
		return domain.Comment{}, err
	}
	now := e.now()
	c := domain.Comment{
		ID:         newID(opts.ID),
		OrgID:      orgID,
		ProjectID:  projectID,
		ParentKind: kind,
		ParentID:   opts.ParentID,
		AuthorID:   opts.AuthorID,
		Content:    opts.Content,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := e.Repo.InsertComment(ctx, c); err != nil {
		return domain.Comment{}, fmt.Errorf("insert comment: %w", err)
	}
	if err := e.publish(ctx, events.CommentCreated, c); err != nil {
		return c, err
	}
	return c, e.mention(ctx, domain.ActionCreate, entityType, c.ID, c.OrgID, c.ProjectID, c.AuthorID, opts.Mentions)
}

func (e Engine) UpdateComment(ctx context.Context, id, content, actorID string, mentions []domain.User) (domain.Comment, error) {
	if err := required("content", content); err != nil {
		return domain.Comment{}, err
	}
	prev, err := e.Repo.GetComment(ctx, id)
	if err != nil {
		return domain.Comment{}, err
	}
	entityType, err := domain.CommentEntityType(prev.ParentKind)
	if err != nil {
		return domain.Comment{}, err
	}
	cur := prev
	cur.Content = content
	cur.UpdatedAt = e.now()
	if err := e.Repo.UpdateComment(ctx, cur); err != nil {
		return domain.Comment{}, fmt.Errorf("update comment: %w", err)
	}
	if err := e.publish(ctx, events.CommentUpdated, events.Change[domain.Comment]{Previous: prev, Current: cur}); err != nil {
		return cur, err
	}
	return cur, e.mention(ctx, domain.ActionUpdate, entityType, cur.ID, cur.OrgID, cur.ProjectID, actorID, mentions)
}

func (e Engine) DeleteComment(ctx context.Context, id string) error {
	c, err := e.Repo.GetComment(ctx, id)
	if err != nil {
		return err
	}
	if err := e.Repo.DeleteComment(ctx, id); err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}
	return e.publish(ctx, events.CommentDeleted, c)
}
