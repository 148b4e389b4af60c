package postgres

import (
	"context"
	"strings"
	"time"

	"github.com/frahmantamala/archival-system/internal"
	"github.com/frahmantamala/archival-system/internal/report"
	"github.com/jmoiron/sqlx"
)

// StatsReader answers report aggregation queries with hand-written SQL over
// the tasks table. Queries use ? placeholders rebound for the driver.
type StatsReader struct {
	db      *sqlx.DB
	timeout time.Duration
}

func NewStatsReader(db *sqlx.DB, timeout time.Duration) *StatsReader {
	return &StatsReader{db: db, timeout: timeout}
}

var _ report.StatsReader = (*StatsReader)(nil)

const summarySelect = `SELECT id, title, status, priority, department, assigned_to, created_by, created_at, updated_at FROM tasks`

func (s *StatsReader) TaskSummary(ctx context.Context, q report.SummaryQuery) ([]report.SummaryRow, error) {
	ctx, cancel := internal.WithTimeout(ctx, s.timeout)
	defer cancel()

	var (
		where []string
		args  []interface{}
	)
	if q.Department != "" {
		where = append(where, "department = ?")
		args = append(args, q.Department)
	}
	if q.Status != "" {
		where = append(where, "status = ?")
		args = append(args, q.Status)
	}
	if q.Priority != "" {
		where = append(where, "priority = ?")
		args = append(args, q.Priority)
	}
	if q.From != nil {
		where = append(where, "created_at >= ?")
		args = append(args, q.From.UTC())
	}
	if q.To != nil {
		where = append(where, "created_at <= ?")
		args = append(args, q.To.UTC())
	}

	query := summarySelect
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, id ASC"

	rows := []report.SummaryRow{}
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), args...); err != nil {
		return nil, internal.NewStoreUnavailableError("task summary", err)
	}
	return rows, nil
}

type groupCount struct {
	Key   string `db:"k"`
	Count int    `db:"n"`
}

type approvalSpan struct {
	CreatedAt  time.Time `db:"created_at"`
	ApprovedAt time.Time `db:"approved_at"`
}

func (s *StatsReader) DepartmentPerformance(ctx context.Context, department string, from, to time.Time) (*report.PerformanceStats, error) {
	ctx, cancel := internal.WithTimeout(ctx, s.timeout)
	defer cancel()

	const scope = ` FROM tasks WHERE department = ? AND created_at >= ? AND created_at <= ?`
	args := []interface{}{department, from.UTC(), to.UTC()}

	stats := &report.PerformanceStats{
		ByStatus:   map[string]int{},
		ByPriority: map[string]int{},
	}

	var byStatus []groupCount
	if err := s.db.SelectContext(ctx, &byStatus, s.db.Rebind(`SELECT status AS k, COUNT(*) AS n`+scope+` GROUP BY status`), args...); err != nil {
		return nil, internal.NewStoreUnavailableError("count tasks by status", err)
	}
	for _, g := range byStatus {
		stats.ByStatus[g.Key] = g.Count
	}

	var byPriority []groupCount
	if err := s.db.SelectContext(ctx, &byPriority, s.db.Rebind(`SELECT priority AS k, COUNT(*) AS n`+scope+` GROUP BY priority`), args...); err != nil {
		return nil, internal.NewStoreUnavailableError("count tasks by priority", err)
	}
	for _, g := range byPriority {
		stats.ByPriority[g.Key] = g.Count
	}

	var spans []approvalSpan
	if err := s.db.SelectContext(ctx, &spans, s.db.Rebind(`SELECT created_at, approved_at`+scope+` AND approved_at IS NOT NULL`), args...); err != nil {
		return nil, internal.NewStoreUnavailableError("read approval times", err)
	}
	for _, sp := range spans {
		stats.ApprovalDurations = append(stats.ApprovalDurations, sp.ApprovedAt.Sub(sp.CreatedAt))
	}
	return stats, nil
}
