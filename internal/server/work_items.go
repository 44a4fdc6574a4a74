package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"pulseline/internal/app"
	"pulseline/internal/domain"
	"pulseline/internal/engine"
)

func registerWorkItems(api huma.API, a *app.Context) {
	e := a.Engine

	huma.Register(api, huma.Operation{
		OperationID:   "create-work-item",
		Method:        http.MethodPost,
		Path:          "/work-items",
		Summary:       "Create work item",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusUnauthorized, http.StatusNotFound, http.StatusInternalServerError},
	}, func(ctx context.Context, input *struct {
		Body CreateWorkItemRequest
	}) (*output[domain.WorkItem], error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		w, err := e.CreateWorkItem(ctx, engine.WorkItemCreateOptions{
			ID:           input.Body.ID,
			OrgID:        input.Body.OrgID,
			ProjectID:    input.Body.ProjectID,
			Reference:    input.Body.Reference,
			Title:        input.Body.Title,
			Description:  input.Body.Description,
			Status:       input.Body.Status,
			Priority:     input.Body.Priority,
			InitiativeID: input.Body.InitiativeID,
			Mentions:     users(input.Body.Mentions),
			ActorID:      actorID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &output[domain.WorkItem]{Body: w}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-work-item",
		Method:      http.MethodGet,
		Path:        "/work-items/{id}",
		Summary:     "Get work item",
		Errors:      []int{http.StatusUnauthorized, http.StatusNotFound, http.StatusInternalServerError},
	}, func(ctx context.Context, input *idPath) (*output[domain.WorkItem], error) {
		w, err := e.GetWorkItem(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &output[domain.WorkItem]{Body: w}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-work-item",
		Method:      http.MethodPatch,
		Path:        "/work-items/{id}",
		Summary:     "Update work item",
		Description: "Status changes are logged and accumulated into the status durations.",
		Errors:      []int{http.StatusBadRequest, http.StatusUnauthorized, http.StatusNotFound, http.StatusInternalServerError},
	}, func(ctx context.Context, input *struct {
		ID   string `path:"id"`
		Body UpdateWorkItemRequest
	}) (*output[domain.WorkItem], error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		w, err := e.UpdateWorkItem(ctx, engine.WorkItemUpdateOptions{
			ID:           input.ID,
			Title:        input.Body.Title,
			Description:  input.Body.Description,
			Status:       input.Body.Status,
			Priority:     input.Body.Priority,
			InitiativeID: clearedByNull(ctx, "initiative_id", input.Body.InitiativeID),
			Mentions:     users(input.Body.Mentions),
			ActorID:      actorID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &output[domain.WorkItem]{Body: w}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-work-item",
		Method:        http.MethodDelete,
		Path:          "/work-items/{id}",
		Summary:       "Delete work item",
		DefaultStatus: http.StatusNoContent,
		Errors:        []int{http.StatusUnauthorized, http.StatusNotFound, http.StatusInternalServerError},
	}, func(ctx context.Context, input *idPath) (*struct{}, error) {
		if err := e.DeleteWorkItem(ctx, input.ID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-work-item-status-stats",
		Method:      http.MethodGet,
		Path:        "/work-items/{id}/status-stats",
		Summary:     "Milliseconds spent in each status",
		Errors:      []int{http.StatusUnauthorized, http.StatusNotFound, http.StatusInternalServerError},
	}, func(ctx context.Context, input *idPath) (*output[StatusStatsResponse], error) {
		stats, err := a.Status.Stats(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &output[StatusStatsResponse]{Body: StatusStatsResponse{WorkItemStatusStats: stats, Total: stats.Total()}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-work-item-status-log",
		Method:      http.MethodGet,
		Path:        "/work-items/{id}/status-log",
		Summary:     "Status transitions, oldest first",
		Errors:      []int{http.StatusUnauthorized, http.StatusNotFound, http.StatusInternalServerError},
	}, func(ctx context.Context, input *idPath) (*output[StatusLogResponse], error) {
		if _, err := e.GetWorkItem(ctx, input.ID); err != nil {
			return nil, handleError(err)
		}
		logs, err := a.Status.History(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		if logs == nil {
			logs = []domain.WorkItemStatusLog{}
		}
		return &output[StatusLogResponse]{Body: StatusLogResponse{Items: logs}}, nil
	})
}
