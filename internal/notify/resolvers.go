package notify

import (
	"context"
	"fmt"
	"net/url"

	"pulseline/internal/domain"
)

// Sources reads the entities notifications point at.
type Sources interface {
	GetGoal(ctx context.Context, id string) (domain.Goal, error)
	GetSubGoal(ctx context.Context, id string) (domain.SubGoal, error)
	GetInitiative(ctx context.Context, id string) (domain.Initiative, error)
	GetWorkItem(ctx context.Context, id string) (domain.WorkItem, error)
	GetIssue(ctx context.Context, id string) (domain.Issue, error)
	GetFeatureRequest(ctx context.Context, id string) (domain.FeatureRequest, error)
	GetComment(ctx context.Context, id string) (domain.Comment, error)
}

// locator resolves an entity of one kind to its label and path.
type locator func(ctx context.Context, src Sources, id string) (Target, error)

var locators = map[domain.CommentParent]locator{
	domain.CommentOnGoal: func(ctx context.Context, src Sources, id string) (Target, error) {
		g, err := src.GetGoal(ctx, id)
		if err != nil {
			return Target{}, err
		}
		return Target{Display: label(g.Reference, g.Title), Path: "/goals/" + url.PathEscape(g.ID)}, nil
	},
	domain.CommentOnSubGoal: func(ctx context.Context, src Sources, id string) (Target, error) {
		s, err := src.GetSubGoal(ctx, id)
		if err != nil {
			return Target{}, err
		}
		return Target{Display: label(s.Reference, s.Title), Path: "/goals/" + url.PathEscape(s.GoalID) + "/sub-goals/" + url.PathEscape(s.ID)}, nil
	},
	domain.CommentOnInitiative: func(ctx context.Context, src Sources, id string) (Target, error) {
		in, err := src.GetInitiative(ctx, id)
		if err != nil {
			return Target{}, err
		}
		return Target{Display: label(in.Reference, in.Title), Path: projectPath(in.ProjectID, "initiatives", in.ID)}, nil
	},
	domain.CommentOnWorkItem: func(ctx context.Context, src Sources, id string) (Target, error) {
		w, err := src.GetWorkItem(ctx, id)
		if err != nil {
			return Target{}, err
		}
		return Target{Display: label(w.Reference, w.Title), Path: projectPath(w.ProjectID, "work-items", w.ID)}, nil
	},
	domain.CommentOnFeatureRequest: func(ctx context.Context, src Sources, id string) (Target, error) {
		fr, err := src.GetFeatureRequest(ctx, id)
		if err != nil {
			return Target{}, err
		}
		return Target{Display: label(fr.Reference, fr.Title), Path: projectPath(fr.ProjectID, "feature-requests", fr.ID)}, nil
	},
	domain.CommentOnIssue: func(ctx context.Context, src Sources, id string) (Target, error) {
		is, err := src.GetIssue(ctx, id)
		if err != nil {
			return Target{}, err
		}
		return Target{Display: label(is.Reference, is.Title), Path: projectPath(is.ProjectID, "issues", is.ID)}, nil
	},
}

func label(reference, title string) string {
	if reference == "" {
		return title
	}
	return reference + ": " + title
}

func projectPath(projectID, collection, id string) string {
	return "/projects/" + url.PathEscape(projectID) + "/" + collection + "/" + url.PathEscape(id)
}

// DescriptionResolver resolves notifications whose entity id is the entity
// itself, as for mentions in descriptions.
func DescriptionResolver(src Sources, kind domain.CommentParent) Resolver {
	loc := locators[kind]
	return func(ctx context.Context, n domain.Notification) (Target, error) {
		return loc(ctx, src, n.EntityID)
	}
}

// CommentResolver resolves notifications whose entity id is a comment on an
// entity of the given kind. The path carries the comment id as a query.
func CommentResolver(src Sources, kind domain.CommentParent) Resolver {
	loc := locators[kind]
	return func(ctx context.Context, n domain.Notification) (Target, error) {
		c, err := src.GetComment(ctx, n.EntityID)
		if err != nil {
			return Target{}, err
		}
		if c.ParentKind != kind {
			return Target{}, fmt.Errorf("comment %s is on a %s: %w", c.ID, c.ParentKind, domain.ErrNotFound)
		}
		t, err := loc(ctx, src, c.ParentID)
		if err != nil {
			return Target{}, err
		}
		t.Path += "?comment=" + url.QueryEscape(c.ID)
		return t, nil
	}
}

// RegisterDefaults installs resolvers for every built-in entity type.
func (s *Service) RegisterDefaults(src Sources) {
	s.RegisterResolver(domain.EntityGoalDescription, DescriptionResolver(src, domain.CommentOnGoal))
	s.RegisterResolver(domain.EntityInitiativeDescription, DescriptionResolver(src, domain.CommentOnInitiative))
	s.RegisterResolver(domain.EntityWorkItemDescription, DescriptionResolver(src, domain.CommentOnWorkItem))
	for parent := range locators {
		entityType, err := domain.CommentEntityType(parent)
		if err != nil {
			continue
		}
		s.RegisterResolver(entityType, CommentResolver(src, parent))
	}
}
