package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pulseline/internal/domain"
	"pulseline/internal/metrics"
	"pulseline/internal/repo"
	"pulseline/internal/testutil"
)

var epoch = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

type countingObserver struct {
	metrics.Observer
	created, healed int
}

func (o *countingObserver) NotificationsCreated(_ string, n int) { o.created += n }

func (o *countingObserver) NotificationsHealed(_ string, n int) { o.healed += n }

type fixture struct {
	ctx   context.Context
	r     repo.Repo
	svc   *Service
	clock *testutil.Clock
}

func newFixture(t *testing.T, obs metrics.Observer) fixture {
	t.Helper()
	r := repo.Repo{DB: testutil.OpenDB(t)}
	svc := New(r, nil, obs)
	svc.RegisterDefaults(r)
	clock := testutil.NewClock(epoch)
	svc.Now = clock.Now
	return fixture{ctx: context.Background(), r: r, svc: svc, clock: clock}
}

func (f fixture) workItemComment(t *testing.T) (domain.WorkItem, domain.Comment) {
	t.Helper()
	w := domain.WorkItem{ID: "w-1", OrgID: "org", ProjectID: "p-1", Reference: "WI-7", Title: "Fix login", Status: domain.StatusPlanned,
		Priority: domain.PriorityHigh, CreatedAt: epoch, UpdatedAt: epoch}
	require.NoError(t, f.r.InsertWorkItem(f.ctx, w))
	c := domain.Comment{ID: "c-1", OrgID: "org", ProjectID: "p-1", ParentKind: domain.CommentOnWorkItem, ParentID: w.ID,
		AuthorID: "carol", Content: "@alice @bob please look", CreatedAt: epoch, UpdatedAt: epoch}
	require.NoError(t, f.r.InsertComment(f.ctx, c))
	return w, c
}

func mention(entityType domain.EntityType, entityID string, users ...string) domain.MentionEvent {
	ev := domain.MentionEvent{CreatedBy: "carol", OrgID: "org", ProjectID: "p-1", Action: domain.ActionCreate, EntityType: entityType, EntityID: entityID}
	for _, u := range users {
		ev.Mentions = append(ev.Mentions, domain.User{ID: u})
	}
	return ev
}

func TestMentionScenario(t *testing.T) {
	f := newFixture(t, nil)
	_, c := f.workItemComment(t)
	require.NoError(t, f.svc.OnMentionEvent(f.ctx, mention(domain.EntityWorkItemComment, c.ID, "alice", "bob")))

	alice, err := f.svc.ListForUser(f.ctx, "alice")
	require.NoError(t, err)
	require.Len(t, alice, 1)
	assert.Equal(t, domain.NotificationUnread, alice[0].Status)
	assert.Equal(t, "WI-7: Fix login", alice[0].Display)
	assert.Equal(t, "/projects/p-1/work-items/w-1?comment=c-1", alice[0].Path)

	bob, err := f.svc.ListForUser(f.ctx, "bob")
	require.NoError(t, err)
	require.Len(t, bob, 1)
	assert.Equal(t, domain.NotificationUnread, bob[0].Status)

	n, err := f.svc.MarkAsRead(f.ctx, "alice", []string{alice[0].ID})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	unread, err := f.svc.CountUnread(f.ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 0, unread)
	unread, err = f.svc.CountUnread(f.ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, 1, unread)
}

func TestMentionIsUniquePerEntityAndUser(t *testing.T) {
	obs := &countingObserver{}
	f := newFixture(t, obs)
	_, c := f.workItemComment(t)

	require.NoError(t, f.svc.OnMentionEvent(f.ctx, mention(domain.EntityWorkItemComment, c.ID, "alice", "alice")))
	require.NoError(t, f.svc.OnMentionEvent(f.ctx, mention(domain.EntityWorkItemComment, c.ID, "alice")))

	rows, err := f.r.ListNotifications(f.ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, rows, 1)
	assert.Equal(t, 1, obs.created)
}

func TestRementionDoesNotResetReadStatus(t *testing.T) {
	f := newFixture(t, nil)
	_, c := f.workItemComment(t)
	require.NoError(t, f.svc.OnMentionEvent(f.ctx, mention(domain.EntityWorkItemComment, c.ID, "alice")))
	rows, err := f.r.ListNotifications(f.ctx, "alice")
	require.NoError(t, err)
	_, err = f.svc.MarkAsRead(f.ctx, "alice", []string{rows[0].ID})
	require.NoError(t, err)

	require.NoError(t, f.svc.OnMentionEvent(f.ctx, mention(domain.EntityWorkItemComment, c.ID, "alice")))
	unread, err := f.svc.CountUnread(f.ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 0, unread)
}

func TestListOrdersNewestFirst(t *testing.T) {
	f := newFixture(t, nil)
	g := domain.Goal{ID: "g-1", OrgID: "org", Reference: "G-1", Title: "Retention", Status: domain.GoalOnTrack, Level: domain.GoalLevelOrganization, CreatedAt: epoch, UpdatedAt: epoch}
	require.NoError(t, f.r.InsertGoal(f.ctx, g))
	_, c := f.workItemComment(t)

	require.NoError(t, f.svc.OnMentionEvent(f.ctx, mention(domain.EntityGoalDescription, g.ID, "alice")))
	f.clock.Advance(time.Minute)
	require.NoError(t, f.svc.OnMentionEvent(f.ctx, mention(domain.EntityWorkItemComment, c.ID, "alice")))

	items, err := f.svc.ListForUser(f.ctx, "alice")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, domain.EntityWorkItemComment, items[0].EntityType)
	assert.Equal(t, "G-1: Retention", items[1].Display)
	assert.Equal(t, "/goals/g-1", items[1].Path)
}

func TestSelfHealingIsIdempotent(t *testing.T) {
	obs := &countingObserver{}
	f := newFixture(t, obs)
	_, c := f.workItemComment(t)
	require.NoError(t, f.svc.OnMentionEvent(f.ctx, mention(domain.EntityWorkItemComment, c.ID, "alice")))
	require.NoError(t, f.r.DeleteComment(f.ctx, c.ID))

	items, err := f.svc.ListForUser(f.ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, items)
	rows, err := f.r.ListNotifications(f.ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, rows, "orphan deleted by first list")

	items, err = f.svc.ListForUser(f.ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Equal(t, 1, obs.healed)
}

func TestSelfHealWhenParentGone(t *testing.T) {
	f := newFixture(t, nil)
	w, c := f.workItemComment(t)
	require.NoError(t, f.svc.OnMentionEvent(f.ctx, mention(domain.EntityWorkItemComment, c.ID, "alice")))
	require.NoError(t, f.svc.OnMentionEvent(f.ctx, mention(domain.EntityWorkItemDescription, w.ID, "alice")))
	require.NoError(t, f.r.DeleteWorkItem(f.ctx, w.ID))

	items, err := f.svc.ListForUser(f.ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, items)
	unread, err := f.svc.CountUnread(f.ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 0, unread)
}

func TestUnknownEntityTypeIsHealed(t *testing.T) {
	f := newFixture(t, nil)
	require.NoError(t, f.svc.OnMentionEvent(f.ctx, mention("wiki-page", "page-1", "alice")))

	items, err := f.svc.ListForUser(f.ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, items)
	rows, err := f.r.ListNotifications(f.ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestRegisteredResolverExtendsTypes(t *testing.T) {
	f := newFixture(t, nil)
	f.svc.RegisterResolver("wiki-page", func(ctx context.Context, n domain.Notification) (Target, error) {
		return Target{Display: "Wiki: " + n.EntityID, Path: "/wiki/" + n.EntityID}, nil
	})
	require.NoError(t, f.svc.OnMentionEvent(f.ctx, mention("wiki-page", "home", "alice")))

	items, err := f.svc.ListForUser(f.ctx, "alice")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "/wiki/home", items[0].Path)
}

func TestTransientResolutionErrorKeepsRow(t *testing.T) {
	f := newFixture(t, nil)
	f.svc.RegisterResolver("flaky", func(ctx context.Context, n domain.Notification) (Target, error) {
		return Target{}, errors.New("database is locked")
	})
	require.NoError(t, f.svc.OnMentionEvent(f.ctx, mention("flaky", "x", "alice")))

	items, err := f.svc.ListForUser(f.ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, items)
	rows, err := f.r.ListNotifications(f.ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestEveryBuiltinEntityTypeResolves(t *testing.T) {
	f := newFixture(t, nil)
	ctx := f.ctx
	project := "p-1"
	g := domain.Goal{ID: "g", OrgID: "org", Reference: "G-1", Title: "Goal", Status: domain.GoalDraft, Level: domain.GoalLevelProject, ProjectID: &project, CreatedAt: epoch, UpdatedAt: epoch}
	require.NoError(t, f.r.InsertGoal(ctx, g))
	s := domain.SubGoal{ID: "s", GoalID: "g", OrgID: "org", Reference: "KR-1", Title: "KR", Status: domain.GoalDraft, CreatedAt: epoch, UpdatedAt: epoch}
	require.NoError(t, f.r.InsertSubGoal(ctx, s))
	in := domain.Initiative{ID: "i", OrgID: "org", ProjectID: project, Reference: "IN-1", Title: "Init", Status: domain.InitiativePlanned, Priority: domain.PriorityLow, CreatedAt: epoch, UpdatedAt: epoch}
	require.NoError(t, f.r.InsertInitiative(ctx, in))
	w := domain.WorkItem{ID: "w", OrgID: "org", ProjectID: project, Reference: "WI-1", Title: "Item", Status: domain.StatusPlanned, Priority: domain.PriorityLow, CreatedAt: epoch, UpdatedAt: epoch}
	require.NoError(t, f.r.InsertWorkItem(ctx, w))
	require.NoError(t, f.r.InsertIssue(ctx, domain.Issue{ID: "is", OrgID: "org", ProjectID: project, Reference: "IS-1", Title: "Bug", Status: "open", CreatedAt: epoch, UpdatedAt: epoch}))
	require.NoError(t, f.r.InsertFeatureRequest(ctx, domain.FeatureRequest{ID: "fr", OrgID: "org", ProjectID: project, Reference: "FR-1", Title: "Ask", Status: "open", CreatedAt: epoch, UpdatedAt: epoch}))

	parents := map[domain.CommentParent]string{
		domain.CommentOnGoal: "g", domain.CommentOnSubGoal: "s", domain.CommentOnInitiative: "i",
		domain.CommentOnWorkItem: "w", domain.CommentOnIssue: "is", domain.CommentOnFeatureRequest: "fr",
	}
	for kind, parentID := range parents {
		c := domain.Comment{ID: "c-" + string(kind), OrgID: "org", ParentKind: kind, ParentID: parentID, AuthorID: "carol", Content: "@alice", CreatedAt: epoch, UpdatedAt: epoch}
		require.NoError(t, f.r.InsertComment(ctx, c))
		et, err := domain.CommentEntityType(kind)
		require.NoError(t, err)
		require.NoError(t, f.svc.OnMentionEvent(ctx, mention(et, c.ID, "alice")))
	}
	require.NoError(t, f.svc.OnMentionEvent(ctx, mention(domain.EntityGoalDescription, "g", "alice")))
	require.NoError(t, f.svc.OnMentionEvent(ctx, mention(domain.EntityInitiativeDescription, "i", "alice")))
	require.NoError(t, f.svc.OnMentionEvent(ctx, mention(domain.EntityWorkItemDescription, "w", "alice")))

	items, err := f.svc.ListForUser(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, items, 9)
	for _, it := range items {
		assert.NotEmpty(t, it.Display, it.EntityType)
		assert.NotEmpty(t, it.Path, it.EntityType)
	}
}

func TestDeleteScopedByUser(t *testing.T) {
	f := newFixture(t, nil)
	_, c := f.workItemComment(t)
	require.NoError(t, f.svc.OnMentionEvent(f.ctx, mention(domain.EntityWorkItemComment, c.ID, "alice", "bob")))
	bobRows, err := f.r.ListNotifications(f.ctx, "bob")
	require.NoError(t, err)

	assert.ErrorIs(t, f.svc.DeleteOne(f.ctx, "alice", bobRows[0].ID), domain.ErrNotFound)
	require.NoError(t, f.svc.DeleteOne(f.ctx, "bob", bobRows[0].ID))

	n, err := f.svc.DeleteAll(f.ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestMentionEventRequiresEntity(t *testing.T) {
	f := newFixture(t, nil)
	assert.Error(t, f.svc.OnMentionEvent(f.ctx, domain.MentionEvent{Mentions: []domain.User{{ID: "alice"}}}))
}
