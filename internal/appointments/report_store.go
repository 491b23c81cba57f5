package appointments

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lib/pq"
)

// ReportStore serves the admin listing and stats reads over database/sql.
type ReportStore struct {
	db *sql.DB
}

// NewReportStore wraps a database/sql handle opened with the lib/pq driver.
func NewReportStore(db *sql.DB) *ReportStore {
	if db == nil {
		panic("appointments: sql db required")
	}
	return &ReportStore{db: db}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// whereClause renders the filter as a WHERE clause with positional args.
func whereClause(f Filter, withStatusAndSearch bool) (string, []any) {
	var (
		conds []string
		args  []any
	)
	next := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if withStatusAndSearch && len(f.Statuses) > 0 {
		statuses := make([]string, len(f.Statuses))
		for i, s := range f.Statuses {
			statuses[i] = string(s)
		}
		conds = append(conds, "status = ANY("+next(pq.Array(statuses))+")")
	}
	if f.DateFrom != nil {
		conds = append(conds, "appointment_date >= "+next(f.DateFrom.Time))
	}
	if f.DateTo != nil {
		conds = append(conds, "appointment_date <= "+next(f.DateTo.Time))
	}
	if search := strings.TrimSpace(f.Search); withStatusAndSearch && search != "" {
		p := next("%" + likeEscaper.Replace(search) + "%")
		conds = append(conds, "(name ILIKE "+p+" OR email ILIKE "+p+" OR phone ILIKE "+p+")")
	}
	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// Query returns one page ordered by date then time, plus the unpaged total.
func (s *ReportStore) Query(ctx context.Context, filter Filter, page PageRequest) ([]Appointment, int, error) {
	page = page.Normalize()
	where, args := whereClause(filter, true)

	var total int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM appointments"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("appointments: count failed: %w", err)
	}
	if total == 0 {
		return []Appointment{}, 0, nil
	}

	limitArgs := append(args, page.PageSize, page.Offset())
	query := fmt.Sprintf(`SELECT %s FROM appointments%s ORDER BY appointment_date, time_minute, created_at, id LIMIT $%d OFFSET $%d`,
		appointmentColumns, where, len(args)+1, len(args)+2)

	rows, err := s.db.QueryContext(ctx, query, limitArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("appointments: list failed: %w", err)
	}
	defer rows.Close()

	out := []Appointment{}
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("appointments: scan failed: %w", err)
		}
		out = append(out, *appt)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("appointments: list rows: %w", err)
	}
	return out, total, nil
}

// Stats counts appointments by status. Only the date range of filter applies.
func (s *ReportStore) Stats(ctx context.Context, filter Filter) (*Stats, error) {
	where, args := whereClause(filter, false)
	rows, err := s.db.QueryContext(ctx, "SELECT status, COUNT(*) FROM appointments"+where+" GROUP BY status", args...)
	if err != nil {
		return nil, fmt.Errorf("appointments: stats failed: %w", err)
	}
	defer rows.Close()

	stats := &Stats{}
	for rows.Next() {
		var (
			status string
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("appointments: stats scan: %w", err)
		}
		stats.add(Status(status), count)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("appointments: stats rows: %w", err)
	}
	return stats, nil
}
