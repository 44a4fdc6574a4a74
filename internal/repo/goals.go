package repo

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"pulseline/internal/domain"
)

const goalColumns = `id,org_id,project_id,reference,title,COALESCE(description,''),status,level,progress,created_at,updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGoal(row rowScanner) (domain.Goal, error) {
	var g domain.Goal
	var project sql.NullString
	var created, updated int64
	if err := row.Scan(&g.ID, &g.OrgID, &project, &g.Reference, &g.Title, &g.Description, &g.Status, &g.Level, &g.Progress, &created, &updated); err != nil {
		return g, noRows(err)
	}
	g.ProjectID = stringPtr(project)
	g.CreatedAt = fromMS(created)
	g.UpdatedAt = fromMS(updated)
	return g, nil
}

func (r Repo) InsertGoal(ctx context.Context, g domain.Goal) error {
	_, err := r.q().ExecContext(ctx, `INSERT INTO goals(id,org_id,project_id,reference,title,description,status,level,progress,created_at,updated_at) VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		g.ID, g.OrgID, nullableStringPtr(g.ProjectID), g.Reference, g.Title, nullable(g.Description), g.Status, g.Level, g.Progress, toMS(g.CreatedAt), toMS(g.UpdatedAt))
	return err
}

func (r Repo) GetGoal(ctx context.Context, id string) (domain.Goal, error) {
	return scanGoal(r.q().QueryRowContext(ctx, `SELECT `+goalColumns+` FROM goals WHERE id=?`, id))
}

type GoalFilters struct {
	OrgID     string
	ProjectID string
}

func (r Repo) ListGoals(ctx context.Context, f GoalFilters) ([]domain.Goal, error) {
	var (
		clauses []string
		args    []any
	)
	if f.OrgID != "" {
		clauses = append(clauses, "org_id=?")
		args = append(args, f.OrgID)
	}
	if f.ProjectID != "" {
		clauses = append(clauses, "project_id=?")
		args = append(args, f.ProjectID)
	}
	query := `SELECT ` + goalColumns + ` FROM goals`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC"
	rows, err := r.q().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Goal
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, g)
	}
	return res, rows.Err()
}

// UpdateGoal writes the user-editable goal fields.
func (r Repo) UpdateGoal(ctx context.Context, g domain.Goal) error {
	res, err := r.q().ExecContext(ctx, `UPDATE goals SET title=?,description=?,status=?,level=?,updated_at=? WHERE id=?`,
		g.Title, nullable(g.Description), g.Status, g.Level, toMS(g.UpdatedAt), g.ID)
	return affectedOrNotFound(res, err)
}

// SetGoalProgress stores a derived progress value without touching updated_at.
func (r Repo) SetGoalProgress(ctx context.Context, id string, progress float64) error {
	res, err := r.q().ExecContext(ctx, `UPDATE goals SET progress=? WHERE id=?`, progress, id)
	return affectedOrNotFound(res, err)
}

func (r Repo) DeleteGoal(ctx context.Context, id string) error {
	res, err := r.q().ExecContext(ctx, `DELETE FROM goals WHERE id=?`, id)
	return affectedOrNotFound(res, err)
}

const subGoalColumns = `id,goal_id,org_id,project_id,reference,title,status,progress,position,created_at,updated_at`

func scanSubGoal(row rowScanner) (domain.SubGoal, error) {
	var s domain.SubGoal
	var project sql.NullString
	var created, updated int64
	if err := row.Scan(&s.ID, &s.GoalID, &s.OrgID, &project, &s.Reference, &s.Title, &s.Status, &s.Progress, &s.Position, &created, &updated); err != nil {
		return s, noRows(err)
	}
	s.ProjectID = stringPtr(project)
	s.CreatedAt = fromMS(created)
	s.UpdatedAt = fromMS(updated)
	return s, nil
}

func (r Repo) InsertSubGoal(ctx context.Context, s domain.SubGoal) error {
	_, err := r.q().ExecContext(ctx, `INSERT INTO sub_goals(id,goal_id,org_id,project_id,reference,title,status,progress,position,created_at,updated_at) VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		s.ID, s.GoalID, s.OrgID, nullableStringPtr(s.ProjectID), s.Reference, s.Title, s.Status, s.Progress, s.Position, toMS(s.CreatedAt), toMS(s.UpdatedAt))
	return err
}

func (r Repo) GetSubGoal(ctx context.Context, id string) (domain.SubGoal, error) {
	return scanSubGoal(r.q().QueryRowContext(ctx, `SELECT `+subGoalColumns+` FROM sub_goals WHERE id=?`, id))
}

// ListSubGoals returns the sub-goals of a goal ordered by position.
func (r Repo) ListSubGoals(ctx context.Context, goalID string) ([]domain.SubGoal, error) {
	rows, err := r.q().QueryContext(ctx, `SELECT `+subGoalColumns+` FROM sub_goals WHERE goal_id=? ORDER BY position, created_at, id`, goalID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.SubGoal
	for rows.Next() {
		s, err := scanSubGoal(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, s)
	}
	return res, rows.Err()
}

// NextSubGoalPosition returns the position after the last sub-goal of goalID.
func (r Repo) NextSubGoalPosition(ctx context.Context, goalID string) (int, error) {
	var pos sql.NullInt64
	if err := r.q().QueryRowContext(ctx, `SELECT MAX(position) FROM sub_goals WHERE goal_id=?`, goalID).Scan(&pos); err != nil {
		return 0, err
	}
	if !pos.Valid {
		return 0, nil
	}
	return int(pos.Int64) + 1, nil
}

func (r Repo) UpdateSubGoal(ctx context.Context, s domain.SubGoal) error {
	res, err := r.q().ExecContext(ctx, `UPDATE sub_goals SET title=?,status=?,progress=?,position=?,updated_at=? WHERE id=?`,
		s.Title, s.Status, s.Progress, s.Position, toMS(s.UpdatedAt), s.ID)
	return affectedOrNotFound(res, err)
}

func (r Repo) DeleteSubGoal(ctx context.Context, id string) error {
	res, err := r.q().ExecContext(ctx, `DELETE FROM sub_goals WHERE id=?`, id)
	return affectedOrNotFound(res, err)
}

// DeleteSubGoals removes every sub-goal of goalID and returns how many were deleted.
func (r Repo) DeleteSubGoals(ctx context.Context, goalID string) (int64, error) {
	res, err := r.q().ExecContext(ctx, `DELETE FROM sub_goals WHERE goal_id=?`, goalID)
	if err != nil {
		return 0, fmt.Errorf("delete sub-goals of %s: %w", goalID, err)
	}
	return res.RowsAffected()
}
