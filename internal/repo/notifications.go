package repo

import (
	"context"
	"database/sql"
	"strings"

	"pulseline/internal/domain"
)

const notificationColumns = `id,entity_type,action,status,entity_id,user_id,created_by,org_id,project_id,created_at`

// InsertNotification stores n unless the user already has a notification for
// the same entity. It reports whether a row was inserted.
func (r Repo) InsertNotification(ctx context.Context, n domain.Notification) (bool, error) {
	res, err := r.q().ExecContext(ctx, `INSERT INTO notifications(`+notificationColumns+`) VALUES (?,?,?,?,?,?,?,?,?,?)
ON CONFLICT(entity_id,user_id) DO NOTHING`,
		n.ID, n.EntityType, n.Action, n.Status, n.EntityID, n.UserID, n.CreatedBy, n.OrgID, nullable(n.ProjectID), toMS(n.CreatedAt))
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	return affected > 0, err
}

// ListNotifications returns a user's notifications, newest first.
func (r Repo) ListNotifications(ctx context.Context, userID string) ([]domain.Notification, error) {
	rows, err := r.q().QueryContext(ctx, `SELECT `+notificationColumns+` FROM notifications WHERE user_id=? ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Notification
	for rows.Next() {
		var n domain.Notification
		var project sql.NullString
		var created int64
		if err := rows.Scan(&n.ID, &n.EntityType, &n.Action, &n.Status, &n.EntityID, &n.UserID, &n.CreatedBy, &n.OrgID, &project, &created); err != nil {
			return nil, err
		}
		n.ProjectID = project.String
		n.CreatedAt = fromMS(created)
		res = append(res, n)
	}
	return res, rows.Err()
}

func (r Repo) CountUnreadNotifications(ctx context.Context, userID string) (int, error) {
	var n int
	err := r.q().QueryRowContext(ctx, `SELECT COUNT(*) FROM notifications WHERE user_id=? AND status=?`, userID, domain.NotificationUnread).Scan(&n)
	return n, err
}

// MarkNotificationsRead marks the given ids read. Ids owned by other users
// are ignored.
func (r Repo) MarkNotificationsRead(ctx context.Context, userID string, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	args := []any{domain.NotificationRead, userID}
	for _, id := range ids {
		args = append(args, id)
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	res, err := r.q().ExecContext(ctx, `UPDATE notifications SET status=? WHERE user_id=? AND id IN (`+placeholders+`)`, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r Repo) DeleteNotification(ctx context.Context, userID, id string) error {
	res, err := r.q().ExecContext(ctx, `DELETE FROM notifications WHERE user_id=? AND id=?`, userID, id)
	return affectedOrNotFound(res, err)
}

func (r Repo) DeleteNotifications(ctx context.Context, userID string) (int64, error) {
	res, err := r.q().ExecContext(ctx, `DELETE FROM notifications WHERE user_id=?`, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
