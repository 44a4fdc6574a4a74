package pulselinesdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a minimal Pulseline HTTP API client.
type Client struct {
	BaseURL     string
	BasePath    string
	BearerToken string
	// ActorID is sent as X-Actor-Id when no bearer token is set. Servers
	// accept it only when legacy actor headers are enabled.
	ActorID    string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL:  baseURL,
		BasePath: "/v1",
		Timeout:  10 * time.Second,
	}
}

// Notification is a mention notification with its resolved target.
type Notification struct {
	ID         string `json:"id"`
	EntityType string `json:"entity_type"`
	Action     string `json:"action"`
	Status     string `json:"status"`
	EntityID   string `json:"entity_id"`
	CreatedBy  string `json:"created_by"`
	OrgID      string `json:"org_id"`
	ProjectID  string `json:"project_id,omitempty"`
	Display    string `json:"display"`
	Path       string `json:"path"`
	CreatedAt  string `json:"created_at"`
}

// Goal represents the API goal model (partial).
type Goal struct {
	ID       string    `json:"id"`
	OrgID    string    `json:"org_id"`
	Title    string    `json:"title"`
	Status   string    `json:"status"`
	Progress float64   `json:"progress"`
	SubGoals []SubGoal `json:"sub_goals,omitempty"`
}

type SubGoal struct {
	ID       string  `json:"id"`
	GoalID   string  `json:"goal_id"`
	Title    string  `json:"title"`
	Progress float64 `json:"progress"`
	Position int     `json:"position"`
}

// Initiative represents the API initiative model (partial).
type Initiative struct {
	ID             string  `json:"id"`
	ProjectID      string  `json:"project_id"`
	Title          string  `json:"title"`
	Status         string  `json:"status"`
	Progress       float64 `json:"progress"`
	WorkItemsCount int     `json:"work_items_count"`
}

// StatusStats holds milliseconds spent per work item status.
type StatusStats struct {
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
	Total              int64  `json:"total"`
}

// Comment represents a comment on an entity.
type Comment struct {
	ID         string `json:"id"`
	ParentKind string `json:"parent_kind"`
	ParentID   string `json:"parent_id"`
	AuthorID   string `json:"author_id"`
	Content    string `json:"content"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Body       string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api error: status=%d code=%s message=%s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

type count struct {
	Count int `json:"count"`
}

// Notifications lists the caller's notifications, newest first.
func (c *Client) Notifications(ctx context.Context) ([]Notification, error) {
	var resp struct {
		Items []Notification `json:"items"`
	}
	err := c.do(ctx, http.MethodGet, "notifications", nil, &resp)
	return resp.Items, err
}

// UnreadCount returns the number of unread notifications.
func (c *Client) UnreadCount(ctx context.Context) (int, error) {
	var resp count
	err := c.do(ctx, http.MethodGet, "notifications/unread-count", nil, &resp)
	return resp.Count, err
}

// MarkRead marks notifications as read and returns how many changed.
func (c *Client) MarkRead(ctx context.Context, ids ...string) (int, error) {
	var resp count
	err := c.do(ctx, http.MethodPost, "notifications/read", map[string]any{"ids": ids}, &resp)
	return resp.Count, err
}

// DeleteNotification deletes one of the caller's notifications.
func (c *Client) DeleteNotification(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "notifications/"+url.PathEscape(id), nil, nil)
}

// ClearNotifications deletes all of the caller's notifications.
func (c *Client) ClearNotifications(ctx context.Context) (int, error) {
	var resp count
	err := c.do(ctx, http.MethodDelete, "notifications", nil, &resp)
	return resp.Count, err
}

// Goal fetches a goal with its sub-goals.
func (c *Client) Goal(ctx context.Context, id string) (Goal, error) {
	var resp Goal
	err := c.do(ctx, http.MethodGet, "goals/"+url.PathEscape(id), nil, &resp)
	return resp, err
}

// SetSubGoalProgress updates the progress (0..1) of a sub-goal.
func (c *Client) SetSubGoalProgress(ctx context.Context, id string, progress float64) (SubGoal, error) {
	var resp SubGoal
	err := c.do(ctx, http.MethodPatch, "sub-goals/"+url.PathEscape(id), map[string]any{"progress": progress}, &resp)
	return resp, err
}

// Initiative fetches an initiative with its derived progress.
func (c *Client) Initiative(ctx context.Context, id string) (Initiative, error) {
	var resp Initiative
	err := c.do(ctx, http.MethodGet, "initiatives/"+url.PathEscape(id), nil, &resp)
	return resp, err
}

// StatusStats returns the time a work item spent in each status.
func (c *Client) StatusStats(ctx context.Context, workItemID string) (StatusStats, error) {
	var resp StatusStats
	err := c.do(ctx, http.MethodGet, "work-items/"+url.PathEscape(workItemID)+"/status-stats", nil, &resp)
	return resp, err
}

// AddComment comments on an entity and notifies the mentioned users.
func (c *Client) AddComment(ctx context.Context, parentKind, parentID, content string, mentions ...string) (Comment, error) {
	body := map[string]any{
		"parent_kind": parentKind,
		"parent_id":   parentID,
		"content":     content,
		"mentions":    mentions,
	}
	var resp Comment
	err := c.do(ctx, http.MethodPost, "comments", body, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	url := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	switch {
	case c.BearerToken != "":
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	case c.ActorID != "":
		req.Header.Set("X-Actor-Id", c.ActorID)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		apiErr := &APIError{StatusCode: resp.StatusCode, Body: string(b)}
		var env struct {
			Error struct {
				Code    string `json:"code"`
				Message string `json:"message"`
			} `json:"error"`
		}
		if json.Unmarshal(b, &env) == nil {
			apiErr.Code = env.Error.Code
			apiErr.Message = env.Error.Message
		}
		return apiErr
	}
	if out != nil && resp.StatusCode != http.StatusNoContent {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) base() string {
	base := strings.TrimRight(c.BaseURL, "/")
	if p := strings.Trim(c.BasePath, "/"); p != "" {
		base += "/" + p
	}
	return base
}
