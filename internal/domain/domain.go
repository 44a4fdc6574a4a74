package domain

import (
	"errors"
	"math"
	"time"
)

// ErrNotFound is returned by stores when a referenced entity does not exist.
var ErrNotFound = errors.New("not found")

type GoalLevel string

const (
	GoalLevelProject      GoalLevel = "project"
	GoalLevelOrganization GoalLevel = "organization"
)

type Goal struct {
	ID          string     `json:"id"`
	OrgID       string     `json:"org_id"`
	ProjectID   *string    `json:"project_id,omitempty"`
	Reference   string     `json:"reference,omitempty"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Status      GoalStatus `json:"status"`
	Level       GoalLevel  `json:"level" enum:"project,organization"`
	Progress    float64    `json:"progress"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// SubGoal is a key result of a Goal. Its progress is set by users.
type SubGoal struct {
	ID        string     `json:"id"`
	GoalID    string     `json:"goal_id"`
	OrgID     string     `json:"org_id"`
	ProjectID *string    `json:"project_id,omitempty"`
	Reference string     `json:"reference,omitempty"`
	Title     string     `json:"title"`
	Status    GoalStatus `json:"status"`
	Progress  float64    `json:"progress"`
	Position  int        `json:"position"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Initiative groups work items; its progress is the completion ratio in percent.
type Initiative struct {
	ID             string           `json:"id"`
	OrgID          string           `json:"org_id"`
	ProjectID      string           `json:"project_id"`
	Reference      string           `json:"reference,omitempty"`
	Title          string           `json:"title"`
	Description    string           `json:"description,omitempty"`
	Status         InitiativeStatus `json:"status"`
	Priority       Priority         `json:"priority"`
	Progress       float64          `json:"progress"`
	WorkItemsCount int              `json:"work_items_count"`
	SubGoalID      *string          `json:"sub_goal_id,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

type WorkItem struct {
	ID           string         `json:"id"`
	OrgID        string         `json:"org_id"`
	ProjectID    string         `json:"project_id"`
	Reference    string         `json:"reference,omitempty"`
	Title        string         `json:"title"`
	Description  string         `json:"description,omitempty"`
	Status       WorkItemStatus `json:"status"`
	Priority     Priority       `json:"priority"`
	InitiativeID *string        `json:"initiative_id,omitempty"`
	CompletedAt  *time.Time     `json:"completed_at,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// Ticket is the shared shape of issues and feature requests.
type Ticket struct {
	ID        string    `json:"id"`
	OrgID     string    `json:"org_id"`
	ProjectID string    `json:"project_id"`
	Reference string    `json:"reference,omitempty"`
	Title     string    `json:"title"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Issue Ticket

type FeatureRequest Ticket

// CommentParent names the kind of entity a comment is attached to.
type CommentParent string

const (
	CommentOnGoal           CommentParent = "goal"
	CommentOnSubGoal        CommentParent = "sub-goal"
	CommentOnInitiative     CommentParent = "initiative"
	CommentOnWorkItem       CommentParent = "work-item"
	CommentOnFeatureRequest CommentParent = "feature-request"
	CommentOnIssue          CommentParent = "issue"
)

type Comment struct {
	ID         string        `json:"id"`
	OrgID      string        `json:"org_id"`
	ProjectID  string        `json:"project_id,omitempty"`
	ParentKind CommentParent `json:"parent_kind"`
	ParentID   string        `json:"parent_id"`
	AuthorID   string        `json:"author_id"`
	Content    string        `json:"content"`
	CreatedAt  time.Time     `json:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at"`
}

type WorkItemStatusLog struct {
	ID         int64          `json:"id"`
	WorkItemID string         `json:"work_item_id"`
	Status     WorkItemStatus `json:"status"`
	Timestamp  time.Time      `json:"timestamp"`
}

type User struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

type Notification struct {
	ID         string             `json:"id"`
	EntityType EntityType         `json:"entity_type"`
	Action     NotificationAction `json:"action" enum:"create,update,delete"`
	Status     NotificationStatus `json:"status" enum:"unread,read"`
	EntityID   string             `json:"entity_id"`
	UserID     string             `json:"user_id"`
	CreatedBy  string             `json:"created_by"`
	OrgID      string             `json:"org_id"`
	ProjectID  string             `json:"project_id,omitempty"`
	CreatedAt  time.Time          `json:"created_at"`
}

// MentionEvent is published when mentionable content is created or changed.
// It is never persisted.
type MentionEvent struct {
	Mentions   []User
	CreatedBy  string
	OrgID      string
	ProjectID  string
	Action     NotificationAction
	EntityType EntityType
	EntityID   string
	Status     NotificationStatus
}

// RoundProgress rounds a progress value to two decimals for presentation.
func RoundProgress(v float64) float64 {
	return math.Round(v*100) / 100
}
