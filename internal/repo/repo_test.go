package repo

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pulseline/internal/domain"
	"pulseline/internal/testutil"
)

var epoch = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func seedInitiative(t *testing.T, r Repo) domain.Initiative {
	t.Helper()
	in := domain.Initiative{ID: "in-1", OrgID: "org", ProjectID: "p", Reference: "INI-1", Title: "Checkout",
		Status: domain.InitiativePlanned, Priority: domain.PriorityHigh, CreatedAt: epoch, UpdatedAt: epoch}
	require.NoError(t, r.InsertInitiative(context.Background(), in))
	return in
}

func TestWorkItemRoundTrip(t *testing.T) {
	ctx := context.Background()
	r := Repo{DB: testutil.OpenDB(t)}
	in := seedInitiative(t, r)

	done := epoch.Add(time.Hour)
	w := domain.WorkItem{ID: "w-1", OrgID: "org", ProjectID: "p", Reference: "WI-1", Title: "Pay", Status: domain.StatusDone,
		Priority: domain.PriorityLow, InitiativeID: &in.ID, CompletedAt: &done, CreatedAt: epoch, UpdatedAt: done}
	require.NoError(t, r.InsertWorkItem(ctx, w))

	got, err := r.GetWorkItem(ctx, "w-1")
	require.NoError(t, err)
	assert.Equal(t, w, got)

	members, err := r.ListWorkItemsByInitiative(ctx, in.ID)
	require.NoError(t, err)
	require.Len(t, members, 1)

	n, err := r.UnlinkWorkItems(ctx, in.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	got, err = r.GetWorkItem(ctx, "w-1")
	require.NoError(t, err)
	assert.Nil(t, got.InitiativeID)

	_, err = r.GetWorkItem(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, r.DeleteWorkItem(ctx, "missing"), ErrNotFound)
}

func TestSubGoalForeignKey(t *testing.T) {
	ctx := context.Background()
	r := Repo{DB: testutil.OpenDB(t)}
	err := r.InsertSubGoal(ctx, domain.SubGoal{ID: "s", GoalID: "nope", OrgID: "org", Title: "KR", Status: domain.GoalDraft, CreatedAt: epoch, UpdatedAt: epoch})
	assert.Error(t, err)
}

func TestLatestStatusLogTieBreak(t *testing.T) {
	ctx := context.Background()
	r := Repo{DB: testutil.OpenDB(t)}

	_, err := r.LatestStatusLog(ctx, "w")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = r.InsertStatusLog(ctx, domain.WorkItemStatusLog{WorkItemID: "w", Status: domain.StatusPlanned, Timestamp: epoch})
	require.NoError(t, err)
	_, err = r.InsertStatusLog(ctx, domain.WorkItemStatusLog{WorkItemID: "w", Status: domain.StatusTesting, Timestamp: epoch})
	require.NoError(t, err)

	latest, err := r.LatestStatusLog(ctx, "w")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusTesting, latest.Status)
	assert.True(t, latest.Timestamp.Equal(epoch))

	require.NoError(t, r.DeleteStatusTracking(ctx, "w"))
	logs, err := r.ListStatusLogs(ctx, "w")
	require.NoError(t, err)
	assert.Empty(t, logs)
}

func TestNotificationScoping(t *testing.T) {
	ctx := context.Background()
	r := Repo{DB: testutil.OpenDB(t)}
	base := domain.Notification{EntityType: domain.EntityIssueComment, Action: domain.ActionCreate, Status: domain.NotificationUnread,
		EntityID: "c-1", CreatedBy: "author", OrgID: "org", CreatedAt: epoch}

	a := base
	a.ID, a.UserID = "n-a", "alice"
	inserted, err := r.InsertNotification(ctx, a)
	require.NoError(t, err)
	assert.True(t, inserted)

	dup := a
	dup.ID = "n-a2"
	inserted, err = r.InsertNotification(ctx, dup)
	require.NoError(t, err)
	assert.False(t, inserted)

	b := base
	b.ID, b.UserID = "n-b", "bob"
	_, err = r.InsertNotification(ctx, b)
	require.NoError(t, err)

	n, err := r.MarkNotificationsRead(ctx, "alice", []string{"n-a", "n-b"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	unread, err := r.CountUnreadNotifications(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, 1, unread)

	assert.ErrorIs(t, r.DeleteNotification(ctx, "alice", "n-b"), ErrNotFound)
	deleted, err := r.DeleteNotifications(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
}

func TestInTxRollsBack(t *testing.T) {
	ctx := context.Background()
	r := Repo{DB: testutil.OpenDB(t)}
	err := r.InTx(ctx, func(tx Repo) error {
		if err := tx.InsertGoal(ctx, domain.Goal{ID: "g", OrgID: "org", Title: "G", Status: domain.GoalDraft, Level: domain.GoalLevelOrganization, CreatedAt: epoch, UpdatedAt: epoch}); err != nil {
			return err
		}
		return assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)
	_, err = r.GetGoal(ctx, "g")
	assert.ErrorIs(t, err, ErrNotFound)
}
