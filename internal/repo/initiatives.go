package repo

import (
	"context"
	"database/sql"

	"pulseline/internal/domain"
)

const initiativeColumns = `id,org_id,project_id,reference,title,COALESCE(description,''),status,priority,progress,work_items_count,sub_goal_id,created_at,updated_at`

func scanInitiative(row rowScanner) (domain.Initiative, error) {
	var in domain.Initiative
	var subGoal sql.NullString
	var created, updated int64
	if err := row.Scan(&in.ID, &in.OrgID, &in.ProjectID, &in.Reference, &in.Title, &in.Description, &in.Status, &in.Priority,
		&in.Progress, &in.WorkItemsCount, &subGoal, &created, &updated); err != nil {
		return in, noRows(err)
	}
	in.SubGoalID = stringPtr(subGoal)
	in.CreatedAt = fromMS(created)
	in.UpdatedAt = fromMS(updated)
	return in, nil
}

func (r Repo) InsertInitiative(ctx context.Context, in domain.Initiative) error {
	_, err := r.q().ExecContext(ctx, `INSERT INTO initiatives(id,org_id,project_id,reference,title,description,status,priority,progress,work_items_count,sub_goal_id,created_at,updated_at) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		in.ID, in.OrgID, in.ProjectID, in.Reference, in.Title, nullable(in.Description), in.Status, in.Priority, in.Progress, in.WorkItemsCount,
		nullableStringPtr(in.SubGoalID), toMS(in.CreatedAt), toMS(in.UpdatedAt))
	return err
}

func (r Repo) GetInitiative(ctx context.Context, id string) (domain.Initiative, error) {
	return scanInitiative(r.q().QueryRowContext(ctx, `SELECT `+initiativeColumns+` FROM initiatives WHERE id=?`, id))
}

// ListInitiativesBySubGoal returns the initiatives linked to a sub-goal.
func (r Repo) ListInitiativesBySubGoal(ctx context.Context, subGoalID string) ([]domain.Initiative, error) {
	rows, err := r.q().QueryContext(ctx, `SELECT `+initiativeColumns+` FROM initiatives WHERE sub_goal_id=? ORDER BY created_at, id`, subGoalID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Initiative
	for rows.Next() {
		in, err := scanInitiative(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, in)
	}
	return res, rows.Err()
}

// UpdateInitiative writes the user-editable initiative fields. Derived
// progress and work item count are left to SetInitiativeProgress.
func (r Repo) UpdateInitiative(ctx context.Context, in domain.Initiative) error {
	res, err := r.q().ExecContext(ctx, `UPDATE initiatives SET title=?,description=?,status=?,priority=?,sub_goal_id=?,updated_at=? WHERE id=?`,
		in.Title, nullable(in.Description), in.Status, in.Priority, nullableStringPtr(in.SubGoalID), toMS(in.UpdatedAt), in.ID)
	return affectedOrNotFound(res, err)
}

func (r Repo) SetInitiativeProgress(ctx context.Context, id string, workItemsCount int, progress float64) error {
	res, err := r.q().ExecContext(ctx, `UPDATE initiatives SET work_items_count=?,progress=? WHERE id=?`, workItemsCount, progress, id)
	return affectedOrNotFound(res, err)
}

// UnlinkInitiatives clears sub_goal_id on every initiative of subGoalID.
func (r Repo) UnlinkInitiatives(ctx context.Context, subGoalID string) (int64, error) {
	res, err := r.q().ExecContext(ctx, `UPDATE initiatives SET sub_goal_id=NULL WHERE sub_goal_id=?`, subGoalID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r Repo) DeleteInitiative(ctx context.Context, id string) error {
	res, err := r.q().ExecContext(ctx, `DELETE FROM initiatives WHERE id=?`, id)
	return affectedOrNotFound(res, err)
}
