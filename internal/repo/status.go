package repo

import (
	"context"

	"pulseline/internal/domain"
)

const statsColumns = `work_item_id,planned_ms,ready_to_start_ms,in_progress_ms,blocked_ms,code_review_ms,testing_ms,revisions_ms,ready_for_deployment_ms,deployed_ms,done_ms,closed_ms`

func statsFields(s *domain.WorkItemStatusStats) []any {
	return []any{&s.WorkItemID, &s.Planned, &s.ReadyToStart, &s.InProgress, &s.Blocked, &s.CodeReview, &s.Testing,
		&s.Revisions, &s.ReadyForDeployment, &s.Deployed, &s.Done, &s.Closed}
}

// CreateStatusStats inserts a zeroed stats row; an existing row is kept.
func (r Repo) CreateStatusStats(ctx context.Context, workItemID string) error {
	_, err := r.q().ExecContext(ctx, `INSERT INTO work_item_status_stats(work_item_id) VALUES (?) ON CONFLICT(work_item_id) DO NOTHING`, workItemID)
	return err
}

func (r Repo) GetStatusStats(ctx context.Context, workItemID string) (domain.WorkItemStatusStats, error) {
	var s domain.WorkItemStatusStats
	err := r.q().QueryRowContext(ctx, `SELECT `+statsColumns+` FROM work_item_status_stats WHERE work_item_id=?`, workItemID).Scan(statsFields(&s)...)
	return s, noRows(err)
}

// SaveStatusStats inserts or overwrites the full stats row.
func (r Repo) SaveStatusStats(ctx context.Context, s domain.WorkItemStatusStats) error {
	_, err := r.q().ExecContext(ctx, `INSERT INTO work_item_status_stats(`+statsColumns+`) VALUES (?,?,?,?,?,?,?,?,?,?,?,?)
ON CONFLICT(work_item_id) DO UPDATE SET planned_ms=excluded.planned_ms, ready_to_start_ms=excluded.ready_to_start_ms,
in_progress_ms=excluded.in_progress_ms, blocked_ms=excluded.blocked_ms, code_review_ms=excluded.code_review_ms,
testing_ms=excluded.testing_ms, revisions_ms=excluded.revisions_ms, ready_for_deployment_ms=excluded.ready_for_deployment_ms,
deployed_ms=excluded.deployed_ms, done_ms=excluded.done_ms, closed_ms=excluded.closed_ms`,
		s.WorkItemID, s.Planned, s.ReadyToStart, s.InProgress, s.Blocked, s.CodeReview, s.Testing,
		s.Revisions, s.ReadyForDeployment, s.Deployed, s.Done, s.Closed)
	return err
}

func (r Repo) InsertStatusLog(ctx context.Context, l domain.WorkItemStatusLog) (int64, error) {
	res, err := r.q().ExecContext(ctx, `INSERT INTO work_item_status_logs(work_item_id,status,timestamp) VALUES (?,?,?)`,
		l.WorkItemID, l.Status, toMS(l.Timestamp))
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// LatestStatusLog returns the most recent transition, ties broken by id.
func (r Repo) LatestStatusLog(ctx context.Context, workItemID string) (domain.WorkItemStatusLog, error) {
	var l domain.WorkItemStatusLog
	var ts int64
	err := r.q().QueryRowContext(ctx, `SELECT id,work_item_id,status,timestamp FROM work_item_status_logs WHERE work_item_id=? ORDER BY timestamp DESC, id DESC LIMIT 1`, workItemID).
		Scan(&l.ID, &l.WorkItemID, &l.Status, &ts)
	if err != nil {
		return l, noRows(err)
	}
	l.Timestamp = fromMS(ts)
	return l, nil
}

// ListStatusLogs returns every transition of a work item, oldest first.
func (r Repo) ListStatusLogs(ctx context.Context, workItemID string) ([]domain.WorkItemStatusLog, error) {
	rows, err := r.q().QueryContext(ctx, `SELECT id,work_item_id,status,timestamp FROM work_item_status_logs WHERE work_item_id=? ORDER BY timestamp, id`, workItemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.WorkItemStatusLog
	for rows.Next() {
		var l domain.WorkItemStatusLog
		var ts int64
		if err := rows.Scan(&l.ID, &l.WorkItemID, &l.Status, &ts); err != nil {
			return nil, err
		}
		l.Timestamp = fromMS(ts)
		res = append(res, l)
	}
	return res, rows.Err()
}

// DeleteStatusTracking removes the stats row and every log row of a work item.
func (r Repo) DeleteStatusTracking(ctx context.Context, workItemID string) error {
	return r.InTx(ctx, func(tx Repo) error {
		if _, err := tx.q().ExecContext(ctx, `DELETE FROM work_item_status_stats WHERE work_item_id=?`, workItemID); err != nil {
			return err
		}
		_, err := tx.q().ExecContext(ctx, `DELETE FROM work_item_status_logs WHERE work_item_id=?`, workItemID)
		return err
	})
}
