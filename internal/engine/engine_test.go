package engine_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pulseline/internal/app"
	"pulseline/internal/domain"
	"pulseline/internal/engine"
	"pulseline/internal/events"
	"pulseline/internal/testutil"
)

type testEnv struct {
	App   *app.Context
	Clock *testutil.Clock
	Ctx   context.Context
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	clock := testutil.NewClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	a := app.Wire(testutil.OpenDB(t), app.Options{Now: clock.Now})
	return testEnv{App: a, Clock: clock, Ctx: context.Background()}
}

func (env testEnv) initiative(t *testing.T) domain.Initiative {
	t.Helper()
	in, err := env.App.Engine.CreateInitiative(env.Ctx, engine.InitiativeCreateOptions{OrgID: "org", ProjectID: "p", Reference: "IN-1", Title: "Checkout"})
	require.NoError(t, err)
	return in
}

func ptr[T any](v T) *T { return &v }

func TestWorkItemLifecycleDrivesInitiativeAndStats(t *testing.T) {
	env := newTestEnv(t)
	eng := env.App.Engine
	in := env.initiative(t)

	w, err := eng.CreateWorkItem(env.Ctx, engine.WorkItemCreateOptions{OrgID: "org", ProjectID: "p", Title: "Pay", InitiativeID: in.ID})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPlanned, w.Status)
	assert.Nil(t, w.CompletedAt)

	got, err := eng.GetInitiative(env.Ctx, in.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.WorkItemsCount)
	assert.Equal(t, 0.0, got.Progress)

	env.Clock.Advance(time.Second)
	w, err = eng.UpdateWorkItem(env.Ctx, engine.WorkItemUpdateOptions{ID: w.ID, Status: ptr("IN_PROGRESS")})
	require.NoError(t, err)
	env.Clock.Advance(2 * time.Second)
	w, err = eng.UpdateWorkItem(env.Ctx, engine.WorkItemUpdateOptions{ID: w.ID, Status: ptr("done")})
	require.NoError(t, err)
	require.NotNil(t, w.CompletedAt)

	got, err = eng.GetInitiative(env.Ctx, in.ID)
	require.NoError(t, err)
	assert.Equal(t, 100.0, got.Progress)

	stats, err := env.App.Status.Stats(env.Ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), stats.Planned)
	assert.Equal(t, int64(2000), stats.InProgress)
	assert.Equal(t, int64(0), stats.Done)

	w, err = eng.UpdateWorkItem(env.Ctx, engine.WorkItemUpdateOptions{ID: w.ID, Status: ptr("revisions")})
	require.NoError(t, err)
	assert.Nil(t, w.CompletedAt)

	require.NoError(t, eng.DeleteWorkItem(env.Ctx, w.ID))
	got, err = eng.GetInitiative(env.Ctx, in.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.WorkItemsCount)
	assert.Equal(t, 0.0, got.Progress)
	_, err = env.App.Status.Stats(env.Ctx, w.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGoalRollupThroughEngine(t *testing.T) {
	env := newTestEnv(t)
	eng := env.App.Engine
	g, err := eng.CreateGoal(env.Ctx, engine.GoalCreateOptions{OrgID: "org", Title: "Grow"})
	require.NoError(t, err)
	assert.Equal(t, domain.GoalLevelOrganization, g.Level)

	a, err := eng.CreateSubGoal(env.Ctx, engine.SubGoalCreateOptions{GoalID: g.ID, Title: "A", Progress: 0.5})
	require.NoError(t, err)
	b, err := eng.CreateSubGoal(env.Ctx, engine.SubGoalCreateOptions{GoalID: g.ID, Title: "B"})
	require.NoError(t, err)
	assert.Equal(t, 0, a.Position)
	assert.Equal(t, 1, b.Position)

	_, err = eng.UpdateSubGoal(env.Ctx, engine.SubGoalUpdateOptions{ID: b.ID, Progress: ptr(1.0)})
	require.NoError(t, err)

	g, subGoals, err := eng.GetGoal(env.Ctx, g.ID)
	require.NoError(t, err)
	assert.Len(t, subGoals, 2)
	assert.InDelta(t, 0.75, g.Progress, 1e-9)

	_, err = eng.UpdateSubGoal(env.Ctx, engine.SubGoalUpdateOptions{ID: b.ID, Progress: ptr(1.5)})
	var verr engine.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "progress", verr.Field)

	in, err := eng.CreateInitiative(env.Ctx, engine.InitiativeCreateOptions{OrgID: "org", ProjectID: "p", Title: "I", SubGoalID: a.ID})
	require.NoError(t, err)
	require.NoError(t, eng.DeleteGoal(env.Ctx, g.ID))

	got, err := eng.GetInitiative(env.Ctx, in.ID)
	require.NoError(t, err)
	assert.Nil(t, got.SubGoalID)
	assert.ErrorIs(t, eng.DeleteGoal(env.Ctx, g.ID), domain.ErrNotFound)
}

func TestCommentMentionsNotifyUsers(t *testing.T) {
	env := newTestEnv(t)
	eng := env.App.Engine
	w, err := eng.CreateWorkItem(env.Ctx, engine.WorkItemCreateOptions{OrgID: "org", ProjectID: "p", Reference: "WI-1", Title: "Login"})
	require.NoError(t, err)

	c, err := eng.AddComment(env.Ctx, engine.CommentCreateOptions{
		ParentKind: string(domain.CommentOnWorkItem), ParentID: w.ID, AuthorID: "carol", Content: "@alice @bob",
		Mentions: []domain.User{{ID: "alice"}, {ID: "bob"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "p", c.ProjectID)

	items, err := env.App.Notify.ListForUser(env.Ctx, "alice")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, domain.EntityWorkItemComment, items[0].EntityType)
	assert.Equal(t, c.ID, items[0].EntityID)
	assert.Equal(t, "carol", items[0].CreatedBy)

	require.NoError(t, eng.DeleteComment(env.Ctx, c.ID))
	items, err = env.App.Notify.ListForUser(env.Ctx, "bob")
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestDescriptionMentions(t *testing.T) {
	env := newTestEnv(t)
	eng := env.App.Engine
	in, err := eng.CreateInitiative(env.Ctx, engine.InitiativeCreateOptions{OrgID: "org", ProjectID: "p", Reference: "IN-9", Title: "Search",
		Mentions: []domain.User{{ID: "dave"}}, ActorID: "carol"})
	require.NoError(t, err)
	_, err = eng.UpdateInitiative(env.Ctx, engine.InitiativeUpdateOptions{ID: in.ID, Description: ptr("cc @erin"), Mentions: []domain.User{{ID: "erin"}, {ID: "dave"}}})
	require.NoError(t, err)

	for _, user := range []string{"dave", "erin"} {
		items, err := env.App.Notify.ListForUser(env.Ctx, user)
		require.NoError(t, err)
		require.Len(t, items, 1, user)
		assert.Equal(t, "IN-9: Search", items[0].Display)
	}
}

func TestValidation(t *testing.T) {
	env := newTestEnv(t)
	eng := env.App.Engine
	cases := map[string]func() error{
		"missing title": func() error {
			_, err := eng.CreateWorkItem(env.Ctx, engine.WorkItemCreateOptions{OrgID: "org", ProjectID: "p"})
			return err
		},
		"bad status": func() error {
			_, err := eng.CreateWorkItem(env.Ctx, engine.WorkItemCreateOptions{OrgID: "org", ProjectID: "p", Title: "x", Status: "shipped"})
			return err
		},
		"bad priority": func() error {
			_, err := eng.CreateInitiative(env.Ctx, engine.InitiativeCreateOptions{OrgID: "org", ProjectID: "p", Title: "x", Priority: "asap"})
			return err
		},
		"bad parent kind": func() error {
			_, err := eng.AddComment(env.Ctx, engine.CommentCreateOptions{ParentKind: "wiki", ParentID: "x", AuthorID: "a", Content: "hi"})
			return err
		},
		"project goal without project": func() error {
			_, err := eng.CreateGoal(env.Ctx, engine.GoalCreateOptions{OrgID: "org", Title: "x", Level: "project"})
			return err
		},
	}
	for name, fn := range cases {
		t.Run(name, func(t *testing.T) {
			var verr engine.ValidationError
			assert.True(t, errors.As(fn(), &verr))
		})
	}
}

func TestCrossProjectInitiativeRejected(t *testing.T) {
	env := newTestEnv(t)
	in := env.initiative(t)
	_, err := env.App.Engine.CreateWorkItem(env.Ctx, engine.WorkItemCreateOptions{OrgID: "org", ProjectID: "other", Title: "x", InitiativeID: in.ID})
	var verr engine.ValidationError
	assert.True(t, errors.As(err, &verr))
}

func TestHandlerErrorSurfacesAfterCommit(t *testing.T) {
	env := newTestEnv(t)
	boom := errors.New("downstream failed")
	env.App.Bus.Subscribe(events.IssueCreated, func(ctx context.Context, payload any) error { return boom })

	is, err := env.App.Engine.CreateIssue(env.Ctx, engine.TicketCreateOptions{OrgID: "org", ProjectID: "p", Title: "Crash"})
	require.ErrorIs(t, err, boom)
	_, err = env.App.Repo.GetIssue(env.Ctx, is.ID)
	assert.NoError(t, err, "the write is not rolled back")
}
