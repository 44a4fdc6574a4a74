// Package notify fans mention events out into per-user notifications and
// resolves them lazily against the live entity graph.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"pulseline/internal/domain"
	"pulseline/internal/events"
	"pulseline/internal/logging"
	"pulseline/internal/metrics"
)

// ErrUnsupportedEntity is returned when no resolver is registered for a
// notification's entity type.
var ErrUnsupportedEntity = errors.New("unsupported entity type")

type Store interface {
	InsertNotification(ctx context.Context, n domain.Notification) (bool, error)
	ListNotifications(ctx context.Context, userID string) ([]domain.Notification, error)
	CountUnreadNotifications(ctx context.Context, userID string) (int, error)
	MarkNotificationsRead(ctx context.Context, userID string, ids []string) (int64, error)
	DeleteNotification(ctx context.Context, userID, id string) error
	DeleteNotifications(ctx context.Context, userID string) (int64, error)
}

// Target is where a notification points: a display label and a navigation path.
type Target struct {
	Display string `json:"display"`
	Path    string `json:"path"`
}

// Resolver locates the live entity behind a notification.
type Resolver func(ctx context.Context, n domain.Notification) (Target, error)

// Item is a resolved notification.
type Item struct {
	domain.Notification
	Target
}

type Service struct {
	Store    Store
	Log      *slog.Logger
	Observer metrics.Observer
	Now      func() time.Time

	mu        sync.RWMutex
	resolvers map[domain.EntityType]Resolver
}

func New(store Store, log *slog.Logger, obs metrics.Observer) *Service {
	if obs == nil {
		obs = metrics.Nop()
	}
	return &Service{
		Store:     store,
		Log:       logging.OrDiscard(log).With("component", "notify"),
		Observer:  obs,
		Now:       time.Now,
		resolvers: make(map[domain.EntityType]Resolver),
	}
}

// RegisterResolver installs r for entityType, replacing any previous one.
func (s *Service) RegisterResolver(entityType domain.EntityType, r Resolver) {
	s.mu.Lock()
	s.resolvers[entityType] = r
	s.mu.Unlock()
}

func (s *Service) resolver(entityType domain.EntityType) (Resolver, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.resolvers[entityType]
	return r, ok
}

func (s *Service) Subscribe(bus *events.Bus) {
	events.On(bus, events.MentionCreated, s.OnMentionEvent)
}

// OnMentionEvent creates one unread notification per distinct mentioned user.
// A user already notified about the entity is left untouched.
func (s *Service) OnMentionEvent(ctx context.Context, ev domain.MentionEvent) error {
	if ev.EntityID == "" || ev.EntityType == "" {
		return fmt.Errorf("mention event needs entity id and type")
	}
	status := ev.Status
	if status == "" {
		status = domain.NotificationUnread
	}
	action := ev.Action
	if action == "" {
		action = domain.ActionCreate
	}
	now := s.Now().UTC().Truncate(time.Millisecond)
	seen := make(map[string]bool, len(ev.Mentions))
	created := 0
	for _, u := range ev.Mentions {
		if u.ID == "" || seen[u.ID] {
			continue
		}
		seen[u.ID] = true
		inserted, err := s.Store.InsertNotification(ctx, domain.Notification{
			ID:         uuid.NewString(),
			EntityType: ev.EntityType,
			Action:     action,
			Status:     status,
			EntityID:   ev.EntityID,
			UserID:     u.ID,
			CreatedBy:  ev.CreatedBy,
			OrgID:      ev.OrgID,
			ProjectID:  ev.ProjectID,
			CreatedAt:  now,
		})
		if err != nil {
			return fmt.Errorf("insert notification for %s: %w", u.ID, err)
		}
		if inserted {
			created++
		}
	}
	s.Observer.NotificationsCreated(string(ev.EntityType), created)
	return nil
}

// ListForUser returns the user's notifications, newest first, each resolved
// to its live entity. Notifications whose entity is gone are deleted and left
// out. Other resolution failures leave the row in place but out of the result.
func (s *Service) ListForUser(ctx context.Context, userID string) ([]Item, error) {
	notifications, err := s.Store.ListNotifications(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	items := make([]Item, 0, len(notifications))
	for _, n := range notifications {
		target, err := s.resolve(ctx, n)
		switch {
		case err == nil:
			items = append(items, Item{Notification: n, Target: target})
		case errors.Is(err, domain.ErrNotFound), errors.Is(err, ErrUnsupportedEntity):
			s.heal(ctx, n, err)
		default:
			s.Log.WarnContext(ctx, "notification resolution failed", "id", n.ID, "entity_type", n.EntityType, "err", err)
		}
	}
	return items, nil
}

func (s *Service) resolve(ctx context.Context, n domain.Notification) (Target, error) {
	r, ok := s.resolver(n.EntityType)
	if !ok {
		return Target{}, fmt.Errorf("%w: %s", ErrUnsupportedEntity, n.EntityType)
	}
	return r(ctx, n)
}

func (s *Service) heal(ctx context.Context, n domain.Notification, cause error) {
	err := s.Store.DeleteNotification(ctx, n.UserID, n.ID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		s.Log.WarnContext(ctx, "delete orphaned notification failed", "id", n.ID, "err", err)
		return
	}
	s.Log.InfoContext(ctx, "deleted orphaned notification", "id", n.ID, "entity_type", n.EntityType, "entity_id", n.EntityID, "cause", cause)
	s.Observer.NotificationsHealed(string(n.EntityType), 1)
}

// MarkAsRead marks the user's notifications among ids as read and returns how
// many were updated. Ids belonging to other users are ignored.
func (s *Service) MarkAsRead(ctx context.Context, userID string, ids []string) (int, error) {
	n, err := s.Store.MarkNotificationsRead(ctx, userID, ids)
	return int(n), err
}

func (s *Service) CountUnread(ctx context.Context, userID string) (int, error) {
	return s.Store.CountUnreadNotifications(ctx, userID)
}

// DeleteOne deletes a single notification owned by userID.
func (s *Service) DeleteOne(ctx context.Context, userID, id string) error {
	return s.Store.DeleteNotification(ctx, userID, id)
}

// DeleteAll deletes every notification of userID.
func (s *Service) DeleteAll(ctx context.Context, userID string) (int, error) {
	n, err := s.Store.DeleteNotifications(ctx, userID)
	return int(n), err
}
