package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"pulseline/internal/domain"
	"pulseline/internal/engine"
)

func registerComments(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-comment",
		Method:        http.MethodPost,
		Path:          "/comments",
		Summary:       "Comment on an entity",
		Description:   "Mentioned users are notified with a link to the comment.",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusUnauthorized, http.StatusNotFound, http.StatusInternalServerError},
	}, func(ctx context.Context, input *struct {
		Body CreateCommentRequest
	}) (*output[domain.Comment], error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		c, err := e.AddComment(ctx, engine.CommentCreateOptions{
			ID:         input.Body.ID,
			ParentKind: input.Body.ParentKind,
			ParentID:   input.Body.ParentID,
			AuthorID:   actorID,
			Content:    input.Body.Content,
			Mentions:   users(input.Body.Mentions),
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &output[domain.Comment]{Body: c}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-comment",
		Method:      http.MethodPatch,
		Path:        "/comments/{id}",
		Summary:     "Edit a comment",
		Errors:      []int{http.StatusBadRequest, http.StatusUnauthorized, http.StatusNotFound, http.StatusInternalServerError},
	}, func(ctx context.Context, input *struct {
		ID   string `path:"id"`
		Body UpdateCommentRequest
	}) (*output[domain.Comment], error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		c, err := e.UpdateComment(ctx, input.ID, input.Body.Content, actorID, users(input.Body.Mentions))
		if err != nil {
			return nil, handleError(err)
		}
		return &output[domain.Comment]{Body: c}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-comment",
		Method:        http.MethodDelete,
		Path:          "/comments/{id}",
		Summary:       "Delete a comment",
		DefaultStatus: http.StatusNoContent,
		Errors:        []int{http.StatusUnauthorized, http.StatusNotFound, http.StatusInternalServerError},
	}, func(ctx context.Context, input *idPath) (*struct{}, error) {
		if err := e.DeleteComment(ctx, input.ID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}

func registerTickets(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-issue",
		Method:        http.MethodPost,
		Path:          "/issues",
		Summary:       "Create issue",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusUnauthorized, http.StatusInternalServerError},
	}, func(ctx context.Context, input *struct {
		Body CreateTicketRequest
	}) (*output[domain.Issue], error) {
		is, err := e.CreateIssue(ctx, ticketOptions(input.Body))
		if err != nil {
			return nil, handleError(err)
		}
		return &output[domain.Issue]{Body: is}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-issue",
		Method:        http.MethodDelete,
		Path:          "/issues/{id}",
		Summary:       "Delete issue",
		DefaultStatus: http.StatusNoContent,
		Errors:        []int{http.StatusUnauthorized, http.StatusNotFound, http.StatusInternalServerError},
	}, func(ctx context.Context, input *idPath) (*struct{}, error) {
		if err := e.DeleteIssue(ctx, input.ID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-feature-request",
		Method:        http.MethodPost,
		Path:          "/feature-requests",
		Summary:       "Create feature request",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusUnauthorized, http.StatusInternalServerError},
	}, func(ctx context.Context, input *struct {
		Body CreateTicketRequest
	}) (*output[domain.FeatureRequest], error) {
		fr, err := e.CreateFeatureRequest(ctx, ticketOptions(input.Body))
		if err != nil {
			return nil, handleError(err)
		}
		return &output[domain.FeatureRequest]{Body: fr}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-feature-request",
		Method:        http.MethodDelete,
		Path:          "/feature-requests/{id}",
		Summary:       "Delete feature request",
		DefaultStatus: http.StatusNoContent,
		Errors:        []int{http.StatusUnauthorized, http.StatusNotFound, http.StatusInternalServerError},
	}, func(ctx context.Context, input *idPath) (*struct{}, error) {
		if err := e.DeleteFeatureRequest(ctx, input.ID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}

func ticketOptions(req CreateTicketRequest) engine.TicketCreateOptions {
	return engine.TicketCreateOptions{
		ID:        req.ID,
		OrgID:     req.OrgID,
		ProjectID: req.ProjectID,
		Reference: req.Reference,
		Title:     req.Title,
		Status:    req.Status,
	}
}
