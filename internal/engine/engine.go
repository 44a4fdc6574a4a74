// Package engine writes entities of the work graph and publishes the domain
// events that keep derived state up to date. Each write commits before its
// event is published; handler failures are returned after the write stuck.
package engine

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"pulseline/internal/domain"
	"pulseline/internal/events"
	"pulseline/internal/progress"
	"pulseline/internal/repo"
)

type Engine struct {
	DB       *sql.DB
	Repo     repo.Repo
	Bus      *events.Bus
	Progress *progress.Aggregator
	Now      func() time.Time
}

func New(db *sql.DB, bus *events.Bus, agg *progress.Aggregator) Engine {
	return Engine{
		DB:       db,
		Repo:     repo.Repo{DB: db},
		Bus:      bus,
		Progress: agg,
		Now:      time.Now,
	}
}

func (e Engine) now() time.Time {
	now := time.Now
	if e.Now != nil {
		now = e.Now
	}
	return now().UTC().Truncate(time.Millisecond)
}

// ValidationError reports a malformed mutation request.
type ValidationError struct {
	Field  string
	Reason string
}

func (v ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Reason)
}

func invalid(field, format string, args ...any) error {
	return ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

func required(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return invalid(field, "is required")
	}
	return nil
}

func newID(id string) string {
	if id != "" {
		return id
	}
	return uuid.NewString()
}

func (e Engine) publish(ctx context.Context, name string, payload any) error {
	if e.Bus == nil {
		return nil
	}
	return e.Bus.Publish(ctx, name, payload)
}

// mention publishes a mention.created event when users are mentioned.
func (e Engine) mention(ctx context.Context, action domain.NotificationAction, entityType domain.EntityType, entityID, orgID, projectID, actorID string, users []domain.User) error {
	if len(users) == 0 {
		return nil
	}
	return e.publish(ctx, events.MentionCreated, domain.MentionEvent{
		Mentions:   users,
		CreatedBy:  actorID,
		OrgID:      orgID,
		ProjectID:  projectID,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Status:     domain.NotificationUnread,
	})
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// optionalID turns an empty link into nil.
func optionalID(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	v := *s
	return &v
}
