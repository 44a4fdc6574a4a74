package repo

import (
	"context"
	"database/sql"

	"pulseline/internal/domain"
)

const commentColumns = `id,org_id,project_id,parent_kind,parent_id,author_id,content,created_at,updated_at`

func scanComment(row rowScanner) (domain.Comment, error) {
	var c domain.Comment
	var project sql.NullString
	var created, updated int64
	if err := row.Scan(&c.ID, &c.OrgID, &project, &c.ParentKind, &c.ParentID, &c.AuthorID, &c.Content, &created, &updated); err != nil {
		return c, noRows(err)
	}
	c.ProjectID = project.String
	c.CreatedAt = fromMS(created)
	c.UpdatedAt = fromMS(updated)
	return c, nil
}

func (r Repo) InsertComment(ctx context.Context, c domain.Comment) error {
	_, err := r.q().ExecContext(ctx, `INSERT INTO comments(id,org_id,project_id,parent_kind,parent_id,author_id,content,created_at,updated_at) VALUES (?,?,?,?,?,?,?,?,?)`,
		c.ID, c.OrgID, nullable(c.ProjectID), c.ParentKind, c.ParentID, c.AuthorID, c.Content, toMS(c.CreatedAt), toMS(c.UpdatedAt))
	return err
}

func (r Repo) GetComment(ctx context.Context, id string) (domain.Comment, error) {
	return scanComment(r.q().QueryRowContext(ctx, `SELECT `+commentColumns+` FROM comments WHERE id=?`, id))
}

func (r Repo) ListComments(ctx context.Context, kind domain.CommentParent, parentID string) ([]domain.Comment, error) {
	rows, err := r.q().QueryContext(ctx, `SELECT `+commentColumns+` FROM comments WHERE parent_kind=? AND parent_id=? ORDER BY created_at, id`, kind, parentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Comment
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, c)
	}
	return res, rows.Err()
}

func (r Repo) UpdateComment(ctx context.Context, c domain.Comment) error {
	res, err := r.q().ExecContext(ctx, `UPDATE comments SET content=?,updated_at=? WHERE id=?`, c.Content, toMS(c.UpdatedAt), c.ID)
	return affectedOrNotFound(res, err)
}

func (r Repo) DeleteComment(ctx context.Context, id string) error {
	res, err := r.q().ExecContext(ctx, `DELETE FROM comments WHERE id=?`, id)
	return affectedOrNotFound(res, err)
}
