package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEveryStatusHasAccumulator(t *testing.T) {
	var stats WorkItemStatusStats
	for i, st := range WorkItemStatuses {
		require.NoError(t, stats.Add(st, int64(i+1)), st)
		assert.Equal(t, int64(i+1), stats.Get(st), st)
	}
	assert.Equal(t, int64(66), stats.Total())
}

func TestAddUnknownStatus(t *testing.T) {
	var stats WorkItemStatusStats
	assert.Error(t, stats.Add("archived", 10))
	assert.Zero(t, stats.Total())
}

func TestParseWorkItemStatus(t *testing.T) {
	st, err := ParseWorkItemStatus("READY_FOR_DEPLOYMENT")
	require.NoError(t, err)
	assert.Equal(t, StatusReadyForDeployment, st)

	st, err = ParseWorkItemStatus("code-review")
	require.NoError(t, err)
	assert.Equal(t, StatusCodeReview, st)

	_, err = ParseWorkItemStatus("shipped")
	assert.Error(t, err)
}

func TestCompletedStatuses(t *testing.T) {
	for _, st := range WorkItemStatuses {
		want := st == StatusDone || st == StatusClosed
		assert.Equal(t, want, st.IsCompleted(), st)
	}
}

func TestCommentEntityType(t *testing.T) {
	et, err := CommentEntityType(CommentOnWorkItem)
	require.NoError(t, err)
	assert.Equal(t, EntityWorkItemComment, et)

	_, err = CommentEntityType("wiki")
	assert.Error(t, err)
}
