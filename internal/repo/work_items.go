package repo

import (
	"context"
	"database/sql"
	"strings"

	"pulseline/internal/domain"
)

const workItemColumns = `id,org_id,project_id,reference,title,COALESCE(description,''),status,priority,initiative_id,completed_at,created_at,updated_at`

func scanWorkItem(row rowScanner) (domain.WorkItem, error) {
	var w domain.WorkItem
	var initiative sql.NullString
	var completed sql.NullInt64
	var created, updated int64
	if err := row.Scan(&w.ID, &w.OrgID, &w.ProjectID, &w.Reference, &w.Title, &w.Description, &w.Status, &w.Priority,
		&initiative, &completed, &created, &updated); err != nil {
		return w, noRows(err)
	}
	w.InitiativeID = stringPtr(initiative)
	w.CompletedAt = timePtr(completed)
	w.CreatedAt = fromMS(created)
	w.UpdatedAt = fromMS(updated)
	return w, nil
}

func (r Repo) InsertWorkItem(ctx context.Context, w domain.WorkItem) error {
	_, err := r.q().ExecContext(ctx, `INSERT INTO work_items(id,org_id,project_id,reference,title,description,status,priority,initiative_id,completed_at,created_at,updated_at) VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		w.ID, w.OrgID, w.ProjectID, w.Reference, w.Title, nullable(w.Description), w.Status, w.Priority,
		nullableStringPtr(w.InitiativeID), nullableTime(w.CompletedAt), toMS(w.CreatedAt), toMS(w.UpdatedAt))
	return err
}

func (r Repo) GetWorkItem(ctx context.Context, id string) (domain.WorkItem, error) {
	return scanWorkItem(r.q().QueryRowContext(ctx, `SELECT `+workItemColumns+` FROM work_items WHERE id=?`, id))
}

type WorkItemFilters struct {
	ProjectID    string
	InitiativeID string
	Status       domain.WorkItemStatus
}

func (r Repo) ListWorkItems(ctx context.Context, f WorkItemFilters) ([]domain.WorkItem, error) {
	var (
		clauses []string
		args    []any
	)
	if f.ProjectID != "" {
		clauses = append(clauses, "project_id=?")
		args = append(args, f.ProjectID)
	}
	if f.InitiativeID != "" {
		clauses = append(clauses, "initiative_id=?")
		args = append(args, f.InitiativeID)
	}
	if f.Status != "" {
		clauses = append(clauses, "status=?")
		args = append(args, f.Status)
	}
	query := `SELECT ` + workItemColumns + ` FROM work_items`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY created_at, id"
	rows, err := r.q().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.WorkItem
	for rows.Next() {
		w, err := scanWorkItem(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, w)
	}
	return res, rows.Err()
}

// ListWorkItemsByInitiative returns the current members of an initiative.
func (r Repo) ListWorkItemsByInitiative(ctx context.Context, initiativeID string) ([]domain.WorkItem, error) {
	return r.ListWorkItems(ctx, WorkItemFilters{InitiativeID: initiativeID})
}

func (r Repo) UpdateWorkItem(ctx context.Context, w domain.WorkItem) error {
	res, err := r.q().ExecContext(ctx, `UPDATE work_items SET title=?,description=?,status=?,priority=?,initiative_id=?,completed_at=?,updated_at=? WHERE id=?`,
		w.Title, nullable(w.Description), w.Status, w.Priority, nullableStringPtr(w.InitiativeID), nullableTime(w.CompletedAt), toMS(w.UpdatedAt), w.ID)
	return affectedOrNotFound(res, err)
}

// UnlinkWorkItems clears initiative_id on every member of initiativeID.
func (r Repo) UnlinkWorkItems(ctx context.Context, initiativeID string) (int64, error) {
	res, err := r.q().ExecContext(ctx, `UPDATE work_items SET initiative_id=NULL WHERE initiative_id=?`, initiativeID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r Repo) DeleteWorkItem(ctx context.Context, id string) error {
	res, err := r.q().ExecContext(ctx, `DELETE FROM work_items WHERE id=?`, id)
	return affectedOrNotFound(res, err)
}
