package repo

import (
	"context"

	"pulseline/internal/domain"
)

// Issues and feature requests share one row shape in two tables.

func scanTicket(row rowScanner) (domain.Ticket, error) {
	var t domain.Ticket
	var created, updated int64
	if err := row.Scan(&t.ID, &t.OrgID, &t.ProjectID, &t.Reference, &t.Title, &t.Status, &created, &updated); err != nil {
		return t, noRows(err)
	}
	t.CreatedAt = fromMS(created)
	t.UpdatedAt = fromMS(updated)
	return t, nil
}

func (r Repo) insertTicket(ctx context.Context, table string, t domain.Ticket) error {
	_, err := r.q().ExecContext(ctx, `INSERT INTO `+table+`(id,org_id,project_id,reference,title,status,created_at,updated_at) VALUES (?,?,?,?,?,?,?,?)`,
		t.ID, t.OrgID, t.ProjectID, t.Reference, t.Title, t.Status, toMS(t.CreatedAt), toMS(t.UpdatedAt))
	return err
}

func (r Repo) getTicket(ctx context.Context, table, id string) (domain.Ticket, error) {
	return scanTicket(r.q().QueryRowContext(ctx, `SELECT id,org_id,project_id,reference,title,status,created_at,updated_at FROM `+table+` WHERE id=?`, id))
}

func (r Repo) deleteTicket(ctx context.Context, table, id string) error {
	res, err := r.q().ExecContext(ctx, `DELETE FROM `+table+` WHERE id=?`, id)
	return affectedOrNotFound(res, err)
}

func (r Repo) InsertIssue(ctx context.Context, is domain.Issue) error {
	return r.insertTicket(ctx, "issues", domain.Ticket(is))
}

func (r Repo) GetIssue(ctx context.Context, id string) (domain.Issue, error) {
	t, err := r.getTicket(ctx, "issues", id)
	return domain.Issue(t), err
}

func (r Repo) DeleteIssue(ctx context.Context, id string) error {
	return r.deleteTicket(ctx, "issues", id)
}

func (r Repo) InsertFeatureRequest(ctx context.Context, fr domain.FeatureRequest) error {
	return r.insertTicket(ctx, "feature_requests", domain.Ticket(fr))
}

func (r Repo) GetFeatureRequest(ctx context.Context, id string) (domain.FeatureRequest, error) {
	t, err := r.getTicket(ctx, "feature_requests", id)
	return domain.FeatureRequest(t), err
}

func (r Repo) DeleteFeatureRequest(ctx context.Context, id string) error {
	return r.deleteTicket(ctx, "feature_requests", id)
}
