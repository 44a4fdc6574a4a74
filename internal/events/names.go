package events

const (
	GoalCreated = "goal.created"
	GoalUpdated = "goal.updated"
	GoalDeleted = "goal.deleted"

	SubGoalCreated = "subgoal.created"
	SubGoalUpdated = "subgoal.updated"
	SubGoalDeleted = "subgoal.deleted"

	InitiativeCreated = "initiative.created"
	InitiativeUpdated = "initiative.updated"
	InitiativeDeleted = "initiative.deleted"

	WorkItemCreated = "workitem.created"
	WorkItemUpdated = "workitem.updated"
	WorkItemDeleted = "workitem.deleted"

	CommentCreated = "comment.created"
	CommentUpdated = "comment.updated"
	CommentDeleted = "comment.deleted"

	IssueCreated = "issue.created"
	IssueDeleted = "issue.deleted"

	FeatureRequestCreated = "featurerequest.created"
	FeatureRequestDeleted = "featurerequest.deleted"

	MentionCreated = "mention.created"
)

// Change is the payload of *.updated events.
type Change[T any] struct {
	Previous T
	Current  T
}
