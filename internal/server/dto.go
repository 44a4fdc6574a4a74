package server

import (
	"time"

	"pulseline/internal/domain"
	"pulseline/internal/notify"
)

// Request payloads

type CreateGoalRequest struct {
	ID          string   `json:"id,omitempty"`
	OrgID       string   `json:"org_id"`
	ProjectID   string   `json:"project_id,omitempty"`
	Reference   string   `json:"reference,omitempty"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Status      string   `json:"status,omitempty"`
	Level       string   `json:"level,omitempty" enum:"project,organization"`
	Mentions    []string `json:"mentions,omitempty" doc:"User ids mentioned in the description"`
}

type UpdateGoalRequest struct {
	Title       *string  `json:"title,omitempty"`
	Description *string  `json:"description,omitempty"`
	Status      *string  `json:"status,omitempty"`
	Mentions    []string `json:"mentions,omitempty"`
}

type CreateSubGoalRequest struct {
	ID        string  `json:"id,omitempty"`
	Reference string  `json:"reference,omitempty"`
	Title     string  `json:"title"`
	Status    string  `json:"status,omitempty"`
	Progress  float64 `json:"progress,omitempty" minimum:"0" maximum:"1"`
}

type UpdateSubGoalRequest struct {
	Title    *string  `json:"title,omitempty"`
	Status   *string  `json:"status,omitempty"`
	Progress *float64 `json:"progress,omitempty" minimum:"0" maximum:"1"`
	Position *int     `json:"position,omitempty"`
}

type CreateInitiativeRequest struct {
	ID          string   `json:"id,omitempty"`
	OrgID       string   `json:"org_id"`
	ProjectID   string   `json:"project_id"`
	Reference   string   `json:"reference,omitempty"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Status      string   `json:"status,omitempty"`
	Priority    string   `json:"priority,omitempty"`
	SubGoalID   string   `json:"sub_goal_id,omitempty"`
	Mentions    []string `json:"mentions,omitempty"`
}

type UpdateInitiativeRequest struct {
	Title       *string  `json:"title,omitempty"`
	Description *string  `json:"description,omitempty"`
	Status      *string  `json:"status,omitempty"`
	Priority    *string  `json:"priority,omitempty"`
	SubGoalID   *string  `json:"sub_goal_id,omitempty" doc:"Empty string unlinks the initiative"`
	Mentions    []string `json:"mentions,omitempty"`
}

type CreateWorkItemRequest struct {
	ID           string   `json:"id,omitempty"`
	OrgID        string   `json:"org_id"`
	ProjectID    string   `json:"project_id"`
	Reference    string   `json:"reference,omitempty"`
	Title        string   `json:"title"`
	Description  string   `json:"description,omitempty"`
	Status       string   `json:"status,omitempty"`
	Priority     string   `json:"priority,omitempty"`
	InitiativeID string   `json:"initiative_id,omitempty"`
	Mentions     []string `json:"mentions,omitempty"`
}

type UpdateWorkItemRequest struct {
	Title        *string  `json:"title,omitempty"`
	Description  *string  `json:"description,omitempty"`
	Status       *string  `json:"status,omitempty"`
	Priority     *string  `json:"priority,omitempty"`
	InitiativeID *string  `json:"initiative_id,omitempty" doc:"Empty string removes the work item from its initiative"`
	Mentions     []string `json:"mentions,omitempty"`
}

type CreateTicketRequest struct {
	ID        string `json:"id,omitempty"`
	OrgID     string `json:"org_id"`
	ProjectID string `json:"project_id"`
	Reference string `json:"reference,omitempty"`
	Title     string `json:"title"`
	Status    string `json:"status,omitempty"`
}

type CreateCommentRequest struct {
	ID         string   `json:"id,omitempty"`
	ParentKind string   `json:"parent_kind" enum:"goal,sub-goal,initiative,work-item,feature-request,issue"`
	ParentID   string   `json:"parent_id"`
	Content    string   `json:"content"`
	Mentions   []string `json:"mentions,omitempty"`
}

type UpdateCommentRequest struct {
	Content  string   `json:"content"`
	Mentions []string `json:"mentions,omitempty"`
}

type MarkReadRequest struct {
	IDs []string `json:"ids"`
}

// Response payloads

type GoalResponse struct {
	ID          string            `json:"id"`
	OrgID       string            `json:"org_id"`
	ProjectID   *string           `json:"project_id,omitempty"`
	Reference   string            `json:"reference,omitempty"`
	Title       string            `json:"title"`
	Description string            `json:"description,omitempty"`
	Status      string            `json:"status"`
	Level       string            `json:"level"`
	Progress    float64           `json:"progress"`
	SubGoals    []SubGoalResponse `json:"sub_goals,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

type SubGoalResponse struct {
	ID        string    `json:"id"`
	GoalID    string    `json:"goal_id"`
	Reference string    `json:"reference,omitempty"`
	Title     string    `json:"title"`
	Status    string    `json:"status"`
	Progress  float64   `json:"progress"`
	Position  int       `json:"position"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type InitiativeResponse struct {
	ID             string    `json:"id"`
	OrgID          string    `json:"org_id"`
	ProjectID      string    `json:"project_id"`
	Reference      string    `json:"reference,omitempty"`
	Title          string    `json:"title"`
	Description    string    `json:"description,omitempty"`
	Status         string    `json:"status"`
	Priority       string    `json:"priority"`
	Progress       float64   `json:"progress"`
	WorkItemsCount int       `json:"work_items_count"`
	SubGoalID      *string   `json:"sub_goal_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type NotificationResponse struct {
	ID         string    `json:"id"`
	EntityType string    `json:"entity_type"`
	Action     string    `json:"action"`
	Status     string    `json:"status"`
	EntityID   string    `json:"entity_id"`
	CreatedBy  string    `json:"created_by"`
	OrgID      string    `json:"org_id"`
	ProjectID  string    `json:"project_id,omitempty"`
	Display    string    `json:"display"`
	Path       string    `json:"path"`
	CreatedAt  time.Time `json:"created_at"`
}

type NotificationList struct {
	Items []NotificationResponse `json:"items"`
}

type CountResponse struct {
	Count int `json:"count"`
}

type StatusLogResponse struct {
	Items []domain.WorkItemStatusLog `json:"items"`
}

func goalResponse(g domain.Goal, subGoals []domain.SubGoal) GoalResponse {
	resp := GoalResponse{
		ID:          g.ID,
		OrgID:       g.OrgID,
		ProjectID:   g.ProjectID,
		Reference:   g.Reference,
		Title:       g.Title,
		Description: g.Description,
		Status:      string(g.Status),
		Level:       string(g.Level),
		Progress:    domain.RoundProgress(g.Progress),
		CreatedAt:   g.CreatedAt,
		UpdatedAt:   g.UpdatedAt,
	}
	for _, s := range subGoals {
		resp.SubGoals = append(resp.SubGoals, subGoalResponse(s))
	}
	return resp
}

func subGoalResponse(s domain.SubGoal) SubGoalResponse {
	return SubGoalResponse{
		ID:        s.ID,
		GoalID:    s.GoalID,
		Reference: s.Reference,
		Title:     s.Title,
		Status:    string(s.Status),
		Progress:  domain.RoundProgress(s.Progress),
		Position:  s.Position,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}

func initiativeResponse(in domain.Initiative) InitiativeResponse {
	return InitiativeResponse{
		ID:             in.ID,
		OrgID:          in.OrgID,
		ProjectID:      in.ProjectID,
		Reference:      in.Reference,
		Title:          in.Title,
		Description:    in.Description,
		Status:         string(in.Status),
		Priority:       string(in.Priority),
		Progress:       domain.RoundProgress(in.Progress),
		WorkItemsCount: in.WorkItemsCount,
		SubGoalID:      in.SubGoalID,
		CreatedAt:      in.CreatedAt,
		UpdatedAt:      in.UpdatedAt,
	}
}

func notificationResponse(it notify.Item) NotificationResponse {
	return NotificationResponse{
		ID:         it.ID,
		EntityType: string(it.EntityType),
		Action:     string(it.Action),
		Status:     string(it.Status),
		EntityID:   it.EntityID,
		CreatedBy:  it.CreatedBy,
		OrgID:      it.OrgID,
		ProjectID:  it.ProjectID,
		Display:    it.Display,
		Path:       it.Path,
		CreatedAt:  it.CreatedAt,
	}
}

func users(ids []string) []domain.User {
	var out []domain.User
	for _, id := range ids {
		if id != "" {
			out = append(out, domain.User{ID: id})
		}
	}
	return out
}

type StatusStatsResponse struct {
	domain.WorkItemStatusStats
	Total int64 `json:"total"`
}
