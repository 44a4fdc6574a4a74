package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"pulseline/internal/app"
)

func registerNotifications(api huma.API, a *app.Context) {
	svc := a.Notify

	huma.Register(api, huma.Operation{
		OperationID: "list-notifications",
		Method:      http.MethodGet,
		Path:        "/notifications",
		Summary:     "List the caller's notifications, newest first",
		Description: "Notifications whose entity no longer exists are removed while listing.",
		Errors:      []int{http.StatusUnauthorized, http.StatusInternalServerError},
	}, func(ctx context.Context, _ *struct{}) (*output[NotificationList], error) {
		userID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		items, err := svc.ListForUser(ctx, userID)
		if err != nil {
			return nil, handleError(err)
		}
		list := NotificationList{Items: make([]NotificationResponse, 0, len(items))}
		for _, it := range items {
			list.Items = append(list.Items, notificationResponse(it))
		}
		return &output[NotificationList]{Body: list}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "count-unread-notifications",
		Method:      http.MethodGet,
		Path:        "/notifications/unread-count",
		Summary:     "Count unread notifications",
		Errors:      []int{http.StatusUnauthorized, http.StatusInternalServerError},
	}, func(ctx context.Context, _ *struct{}) (*output[CountResponse], error) {
		userID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		n, err := svc.CountUnread(ctx, userID)
		if err != nil {
			return nil, handleError(err)
		}
		return &output[CountResponse]{Body: CountResponse{Count: n}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "mark-notifications-read",
		Method:      http.MethodPost,
		Path:        "/notifications/read",
		Summary:     "Mark notifications as read",
		Errors:      []int{http.StatusBadRequest, http.StatusUnauthorized, http.StatusInternalServerError},
	}, func(ctx context.Context, input *struct {
		Body MarkReadRequest
	}) (*output[CountResponse], error) {
		userID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		n, err := svc.MarkAsRead(ctx, userID, input.Body.IDs)
		if err != nil {
			return nil, handleError(err)
		}
		return &output[CountResponse]{Body: CountResponse{Count: n}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-notification",
		Method:        http.MethodDelete,
		Path:          "/notifications/{id}",
		Summary:       "Delete one notification",
		DefaultStatus: http.StatusNoContent,
		Errors:        []int{http.StatusUnauthorized, http.StatusNotFound, http.StatusInternalServerError},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct{}, error) {
		userID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := svc.DeleteOne(ctx, userID, input.ID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-notifications",
		Method:      http.MethodDelete,
		Path:        "/notifications",
		Summary:     "Delete all of the caller's notifications",
		Errors:      []int{http.StatusUnauthorized, http.StatusInternalServerError},
	}, func(ctx context.Context, _ *struct{}) (*output[CountResponse], error) {
		userID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		n, err := svc.DeleteAll(ctx, userID)
		if err != nil {
			return nil, handleError(err)
		}
		return &output[CountResponse]{Body: CountResponse{Count: n}}, nil
	})
}
