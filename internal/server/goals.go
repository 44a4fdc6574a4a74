package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"pulseline/internal/engine"
)

type idPath struct {
	ID string `path:"id"`
}

func registerGoals(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-goal",
		Method:        http.MethodPost,
		Path:          "/goals",
		Summary:       "Create goal",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusUnauthorized, http.StatusInternalServerError},
	}, func(ctx context.Context, input *struct {
		Body CreateGoalRequest
	}) (*output[GoalResponse], error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		g, err := e.CreateGoal(ctx, engine.GoalCreateOptions{
			ID:          input.Body.ID,
			OrgID:       input.Body.OrgID,
			ProjectID:   input.Body.ProjectID,
			Reference:   input.Body.Reference,
			Title:       input.Body.Title,
			Description: input.Body.Description,
			Status:      input.Body.Status,
			Level:       input.Body.Level,
			Mentions:    users(input.Body.Mentions),
			ActorID:     actorID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &output[GoalResponse]{Body: goalResponse(g, nil)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-goals",
		Method:      http.MethodGet,
		Path:        "/goals",
		Summary:     "List goals",
		Errors:      []int{http.StatusUnauthorized, http.StatusInternalServerError},
	}, func(ctx context.Context, input *struct {
		OrgID     string `query:"org_id"`
		ProjectID string `query:"project_id"`
	}) (*output[[]GoalResponse], error) {
		goals, err := e.ListGoals(ctx, input.OrgID, input.ProjectID)
		if err != nil {
			return nil, handleError(err)
		}
		out := make([]GoalResponse, 0, len(goals))
		for _, g := range goals {
			out = append(out, goalResponse(g, nil))
		}
		return &output[[]GoalResponse]{Body: out}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-goal",
		Method:      http.MethodGet,
		Path:        "/goals/{id}",
		Summary:     "Get goal with its sub-goals",
		Errors:      []int{http.StatusUnauthorized, http.StatusNotFound, http.StatusInternalServerError},
	}, func(ctx context.Context, input *idPath) (*output[GoalResponse], error) {
		g, subGoals, err := e.GetGoal(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &output[GoalResponse]{Body: goalResponse(g, subGoals)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-goal",
		Method:      http.MethodPatch,
		Path:        "/goals/{id}",
		Summary:     "Update goal",
		Errors:      []int{http.StatusBadRequest, http.StatusUnauthorized, http.StatusNotFound, http.StatusInternalServerError},
	}, func(ctx context.Context, input *struct {
		ID   string `path:"id"`
		Body UpdateGoalRequest
	}) (*output[GoalResponse], error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		g, err := e.UpdateGoal(ctx, engine.GoalUpdateOptions{
			ID:          input.ID,
			Title:       input.Body.Title,
			Description: input.Body.Description,
			Status:      input.Body.Status,
			Mentions:    users(input.Body.Mentions),
			ActorID:     actorID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &output[GoalResponse]{Body: goalResponse(g, nil)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-goal",
		Method:        http.MethodDelete,
		Path:          "/goals/{id}",
		Summary:       "Delete goal and its sub-goals",
		Description:   "Initiatives linked to the sub-goals are kept and unlinked.",
		DefaultStatus: http.StatusNoContent,
		Errors:        []int{http.StatusUnauthorized, http.StatusNotFound, http.StatusInternalServerError},
	}, func(ctx context.Context, input *idPath) (*struct{}, error) {
		if err := e.DeleteGoal(ctx, input.ID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-sub-goal",
		Method:        http.MethodPost,
		Path:          "/goals/{id}/sub-goals",
		Summary:       "Add a sub-goal",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusUnauthorized, http.StatusNotFound, http.StatusInternalServerError},
	}, func(ctx context.Context, input *struct {
		ID   string `path:"id"`
		Body CreateSubGoalRequest
	}) (*output[SubGoalResponse], error) {
		s, err := e.CreateSubGoal(ctx, engine.SubGoalCreateOptions{
			ID:        input.Body.ID,
			GoalID:    input.ID,
			Reference: input.Body.Reference,
			Title:     input.Body.Title,
			Status:    input.Body.Status,
			Progress:  input.Body.Progress,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &output[SubGoalResponse]{Body: subGoalResponse(s)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-sub-goal",
		Method:      http.MethodPatch,
		Path:        "/sub-goals/{id}",
		Summary:     "Update sub-goal",
		Description: "Changing progress recomputes the parent goal.",
		Errors:      []int{http.StatusBadRequest, http.StatusUnauthorized, http.StatusNotFound, http.StatusInternalServerError},
	}, func(ctx context.Context, input *struct {
		ID   string `path:"id"`
		Body UpdateSubGoalRequest
	}) (*output[SubGoalResponse], error) {
		s, err := e.UpdateSubGoal(ctx, engine.SubGoalUpdateOptions{
			ID:       input.ID,
			Title:    input.Body.Title,
			Status:   input.Body.Status,
			Progress: input.Body.Progress,
			Position: input.Body.Position,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &output[SubGoalResponse]{Body: subGoalResponse(s)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-sub-goal",
		Method:        http.MethodDelete,
		Path:          "/sub-goals/{id}",
		Summary:       "Delete sub-goal",
		DefaultStatus: http.StatusNoContent,
		Errors:        []int{http.StatusUnauthorized, http.StatusNotFound, http.StatusInternalServerError},
	}, func(ctx context.Context, input *idPath) (*struct{}, error) {
		if err := e.DeleteSubGoal(ctx, input.ID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}
