package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"pulseline/internal/engine"
)

func registerInitiatives(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-initiative",
		Method:        http.MethodPost,
		Path:          "/initiatives",
		Summary:       "Create initiative",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusUnauthorized, http.StatusNotFound, http.StatusInternalServerError},
	}, func(ctx context.Context, input *struct {
		Body CreateInitiativeRequest
	}) (*output[InitiativeResponse], error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		in, err := e.CreateInitiative(ctx, engine.InitiativeCreateOptions{
			ID:          input.Body.ID,
			OrgID:       input.Body.OrgID,
			ProjectID:   input.Body.ProjectID,
			Reference:   input.Body.Reference,
			Title:       input.Body.Title,
			Description: input.Body.Description,
			Status:      input.Body.Status,
			Priority:    input.Body.Priority,
			SubGoalID:   input.Body.SubGoalID,
			Mentions:    users(input.Body.Mentions),
			ActorID:     actorID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &output[InitiativeResponse]{Body: initiativeResponse(in)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-initiative",
		Method:      http.MethodGet,
		Path:        "/initiatives/{id}",
		Summary:     "Get initiative with its derived progress",
		Errors:      []int{http.StatusUnauthorized, http.StatusNotFound, http.StatusInternalServerError},
	}, func(ctx context.Context, input *idPath) (*output[InitiativeResponse], error) {
		in, err := e.GetInitiative(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &output[InitiativeResponse]{Body: initiativeResponse(in)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-initiative",
		Method:      http.MethodPatch,
		Path:        "/initiatives/{id}",
		Summary:     "Update initiative",
		Description: "sub_goal_id set to null or an empty string unlinks the initiative.",
		Errors:      []int{http.StatusBadRequest, http.StatusUnauthorized, http.StatusNotFound, http.StatusInternalServerError},
	}, func(ctx context.Context, input *struct {
		ID   string `path:"id"`
		Body UpdateInitiativeRequest
	}) (*output[InitiativeResponse], error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		in, err := e.UpdateInitiative(ctx, engine.InitiativeUpdateOptions{
			ID:          input.ID,
			Title:       input.Body.Title,
			Description: input.Body.Description,
			Status:      input.Body.Status,
			Priority:    input.Body.Priority,
			SubGoalID:   clearedByNull(ctx, "sub_goal_id", input.Body.SubGoalID),
			Mentions:    users(input.Body.Mentions),
			ActorID:     actorID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &output[InitiativeResponse]{Body: initiativeResponse(in)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-initiative",
		Method:        http.MethodDelete,
		Path:          "/initiatives/{id}",
		Summary:       "Delete initiative",
		Description:   "Work items of the initiative are kept and unlinked.",
		DefaultStatus: http.StatusNoContent,
		Errors:        []int{http.StatusUnauthorized, http.StatusNotFound, http.StatusInternalServerError},
	}, func(ctx context.Context, input *idPath) (*struct{}, error) {
		if err := e.DeleteInitiative(ctx, input.ID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}
