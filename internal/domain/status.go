package domain

import (
	"fmt"
	"strings"
)

type GoalStatus string

const (
	GoalDraft      GoalStatus = "draft"
	GoalNotStarted GoalStatus = "not-started"
	GoalInProgress GoalStatus = "in-progress"
	GoalOnTrack    GoalStatus = "on-track"
	GoalAtRisk     GoalStatus = "at-risk"
	GoalOffTrack   GoalStatus = "off-track"
	GoalOnHold     GoalStatus = "on-hold"
	GoalBlocked    GoalStatus = "blocked"
	GoalCompleted  GoalStatus = "completed"
	GoalCanceled   GoalStatus = "canceled"
)

var goalStatuses = []GoalStatus{
	GoalDraft, GoalNotStarted, GoalInProgress, GoalOnTrack, GoalAtRisk,
	GoalOffTrack, GoalOnHold, GoalBlocked, GoalCompleted, GoalCanceled,
}

type InitiativeStatus string

const (
	InitiativeBacklog    InitiativeStatus = "backlog"
	InitiativePlanned    InitiativeStatus = "planned"
	InitiativeInProgress InitiativeStatus = "in-progress"
	InitiativeCompleted  InitiativeStatus = "completed"
	InitiativeCanceled   InitiativeStatus = "canceled"
)

var initiativeStatuses = []InitiativeStatus{
	InitiativeBacklog, InitiativePlanned, InitiativeInProgress, InitiativeCompleted, InitiativeCanceled,
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

var priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent}

type WorkItemStatus string

const (
	StatusPlanned            WorkItemStatus = "planned"
	StatusReadyToStart       WorkItemStatus = "ready-to-start"
	StatusInProgress         WorkItemStatus = "in-progress"
	StatusBlocked            WorkItemStatus = "blocked"
	StatusCodeReview         WorkItemStatus = "code-review"
	StatusTesting            WorkItemStatus = "testing"
	StatusRevisions          WorkItemStatus = "revisions"
	StatusReadyForDeployment WorkItemStatus = "ready-for-deployment"
	StatusDeployed           WorkItemStatus = "deployed"
	StatusDone               WorkItemStatus = "done"
	StatusClosed             WorkItemStatus = "closed"
)

// WorkItemStatuses lists every work item status in lifecycle order.
var WorkItemStatuses = []WorkItemStatus{
	StatusPlanned, StatusReadyToStart, StatusInProgress, StatusBlocked, StatusCodeReview,
	StatusTesting, StatusRevisions, StatusReadyForDeployment, StatusDeployed, StatusDone, StatusClosed,
}

// IsCompleted reports whether the status counts towards initiative completion.
func (s WorkItemStatus) IsCompleted() bool {
	return s == StatusDone || s == StatusClosed
}

func normalizeEnum(raw string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(raw)), "_", "-")
}

// ParseWorkItemStatus accepts kebab-case or upper snake case ("IN_PROGRESS").
func ParseWorkItemStatus(raw string) (WorkItemStatus, error) {
	s := WorkItemStatus(normalizeEnum(raw))
	for _, known := range WorkItemStatuses {
		if s == known {
			return s, nil
		}
	}
	return "", fmt.Errorf("invalid work item status %q", raw)
}

func ParseGoalStatus(raw string) (GoalStatus, error) {
	s := GoalStatus(normalizeEnum(raw))
	for _, known := range goalStatuses {
		if s == known {
			return s, nil
		}
	}
	return "", fmt.Errorf("invalid goal status %q", raw)
}

func ParseInitiativeStatus(raw string) (InitiativeStatus, error) {
	s := InitiativeStatus(normalizeEnum(raw))
	for _, known := range initiativeStatuses {
		if s == known {
			return s, nil
		}
	}
	return "", fmt.Errorf("invalid initiative status %q", raw)
}

func ParsePriority(raw string) (Priority, error) {
	p := Priority(normalizeEnum(raw))
	for _, known := range priorities {
		if p == known {
			return p, nil
		}
	}
	return "", fmt.Errorf("invalid priority %q", raw)
}

func ParseGoalLevel(raw string) (GoalLevel, error) {
	switch l := GoalLevel(normalizeEnum(raw)); l {
	case GoalLevelProject, GoalLevelOrganization:
		return l, nil
	}
	return "", fmt.Errorf("invalid goal level %q", raw)
}

// EntityType identifies what a notification points at.
type EntityType string

const (
	EntityGoalComment           EntityType = "goal-comment"
	EntityGoalDescription       EntityType = "goal-description"
	EntitySubGoalComment        EntityType = "sub-goal-comment"
	EntityInitiativeComment     EntityType = "initiative-comment"
	EntityInitiativeDescription EntityType = "initiative-description"
	EntityWorkItemComment       EntityType = "work-item-comment"
	EntityWorkItemDescription   EntityType = "work-item-description"
	EntityFeatureRequestComment EntityType = "feature-request-comment"
	EntityIssueComment          EntityType = "issue-comment"
)

// CommentEntityType maps a comment parent to the notification entity type of
// mentions made inside such a comment.
func CommentEntityType(parent CommentParent) (EntityType, error) {
	switch parent {
	case CommentOnGoal:
		return EntityGoalComment, nil
	case CommentOnSubGoal:
		return EntitySubGoalComment, nil
	case CommentOnInitiative:
		return EntityInitiativeComment, nil
	case CommentOnWorkItem:
		return EntityWorkItemComment, nil
	case CommentOnFeatureRequest:
		return EntityFeatureRequestComment, nil
	case CommentOnIssue:
		return EntityIssueComment, nil
	}
	return "", fmt.Errorf("invalid comment parent %q", parent)
}

type NotificationAction string

const (
	ActionCreate NotificationAction = "create"
	ActionUpdate NotificationAction = "update"
	ActionDelete NotificationAction = "delete"
)

type NotificationStatus string

const (
	NotificationUnread NotificationStatus = "unread"
	NotificationRead   NotificationStatus = "read"
)

// WorkItemStatusStats accumulates milliseconds spent in each status.
type WorkItemStatusStats struct {
	WorkItemID         string `json:"work_item_id"`
	Planned            int64  `json:"planned"`
	ReadyToStart       int64  `json:"ready_to_start"`
	InProgress         int64  `json:"in_progress"`
	Blocked            int64  `json:"blocked"`
	CodeReview         int64  `json:"code_review"`
	Testing            int64  `json:"testing"`
	Revisions          int64  `json:"revisions"`
	ReadyForDeployment int64  `json:"ready_for_deployment"`
	Deployed           int64  `json:"deployed"`
	Done               int64  `json:"done"`
	Closed             int64  `json:"closed"`
}

var statusAccumulators = map[WorkItemStatus]func(*WorkItemStatusStats) *int64{
	StatusPlanned:            func(s *WorkItemStatusStats) *int64 { return &s.Planned },
	StatusReadyToStart:       func(s *WorkItemStatusStats) *int64 { return &s.ReadyToStart },
	StatusInProgress:         func(s *WorkItemStatusStats) *int64 { return &s.InProgress },
	StatusBlocked:            func(s *WorkItemStatusStats) *int64 { return &s.Blocked },
	StatusCodeReview:         func(s *WorkItemStatusStats) *int64 { return &s.CodeReview },
	StatusTesting:            func(s *WorkItemStatusStats) *int64 { return &s.Testing },
	StatusRevisions:          func(s *WorkItemStatusStats) *int64 { return &s.Revisions },
	StatusReadyForDeployment: func(s *WorkItemStatusStats) *int64 { return &s.ReadyForDeployment },
	StatusDeployed:           func(s *WorkItemStatusStats) *int64 { return &s.Deployed },
	StatusDone:               func(s *WorkItemStatusStats) *int64 { return &s.Done },
	StatusClosed:             func(s *WorkItemStatusStats) *int64 { return &s.Closed },
}

// Add increments the accumulator of status by ms.
func (s *WorkItemStatusStats) Add(status WorkItemStatus, ms int64) error {
	field, ok := statusAccumulators[status]
	if !ok {
		return fmt.Errorf("no accumulator for status %q", status)
	}
	*field(s) += ms
	return nil
}

// Get returns the accumulated milliseconds for status, 0 for unknown statuses.
func (s WorkItemStatusStats) Get(status WorkItemStatus) int64 {
	field, ok := statusAccumulators[status]
	if !ok {
		return 0
	}
	return *field(&s)
}

// Total sums every accumulator.
func (s WorkItemStatusStats) Total() int64 {
	var total int64
	for _, st := range WorkItemStatuses {
		total += s.Get(st)
	}
	return total
}
