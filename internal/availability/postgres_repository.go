package availability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wolfman30/clinic-scheduler/internal/timeslot"
)

// ruleDB is the subset of pgxpool.Pool the repository needs.
type ruleDB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// querier is satisfied by both the pool and a transaction.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostgresRepository stores rules in four tables, one per rule family, plus a
// single-row rule_versions counter bumped inside every mutating transaction.
type PostgresRepository struct {
	db ruleDB
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("availability: pgx pool required")
	}
	return &PostgresRepository{db: pool}
}

// NewPostgresRepositoryWithDB allows injecting a mock database for testing.
func NewPostgresRepositoryWithDB(db ruleDB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const bumpVersionSQL = `UPDATE rule_versions SET version = version + 1 WHERE id = 1`

func (r *PostgresRepository) InsertAvailability(ctx context.Context, a *Availability) error {
	var (
		query string
		args  []any
	)
	if a.IsRecurring {
		query = `
			INSERT INTO recurring_availability (id, day_of_week, start_minute, end_minute, slot_duration_minutes, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)`
		args = []any{a.ID, a.DayOfWeek, int(a.StartTime), int(a.EndTime), a.SlotDurationMinutes, a.CreatedAt}
	} else {
		query = `
			INSERT INTO date_availability (id, specific_date, start_minute, end_minute, slot_duration_minutes, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)`
		args = []any{a.ID, a.Date.Time, int(a.StartTime), int(a.EndTime), a.SlotDurationMinutes, a.CreatedAt}
	}
	return r.mutate(ctx, "insert availability", func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, query, args...)
		return err
	})
}

func (r *PostgresRepository) InsertBlock(ctx context.Context, b *Block) error {
	var (
		query string
		args  []any
	)
	if b.IsRecurring {
		query = `
			INSERT INTO recurring_blocks (id, day_of_week, start_minute, end_minute, reason, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)`
		args = []any{b.ID, b.DayOfWeek, int(b.StartTime), int(b.EndTime), b.Reason, b.CreatedAt}
	} else {
		query = `
			INSERT INTO date_blocks (id, specific_date, start_minute, end_minute, reason, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)`
		args = []any{b.ID, b.Date.Time, int(b.StartTime), int(b.EndTime), b.Reason, b.CreatedAt}
	}
	return r.mutate(ctx, "insert block", func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, query, args...)
		return err
	})
}

func (r *PostgresRepository) DeleteAvailability(ctx context.Context, id string) error {
	return r.deleteFrom(ctx, id, "recurring_availability", "date_availability")
}

func (r *PostgresRepository) DeleteBlock(ctx context.Context, id string) error {
	return r.deleteFrom(ctx, id, "recurring_blocks", "date_blocks")
}

func (r *PostgresRepository) deleteFrom(ctx context.Context, id string, tables ...string) error {
	return r.mutate(ctx, "delete rule", func(tx pgx.Tx) error {
		for _, table := range tables {
			tag, err := tx.Exec(ctx, `DELETE FROM `+table+` WHERE id = $1`, id)
			if err != nil {
				return err
			}
			if tag.RowsAffected() > 0 {
				return nil
			}
		}
		return ErrRuleNotFound
	})
}

// mutate runs fn and the version bump in one transaction.
func (r *PostgresRepository) mutate(ctx context.Context, op string, fn func(tx pgx.Tx) error) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("availability: %s: begin: %w", op, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(tx); err != nil {
		if errors.Is(err, ErrRuleNotFound) {
			return err
		}
		return fmt.Errorf("availability: %s: %w", op, err)
	}
	if _, err := tx.Exec(ctx, bumpVersionSQL); err != nil {
		return fmt.Errorf("availability: %s: bump version: %w", op, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("availability: %s: commit: %w", op, err)
	}
	return nil
}

const (
	selectRecurringAvailability = `
		SELECT id::text, day_of_week, start_minute, end_minute, slot_duration_minutes, created_at
		FROM recurring_availability`
	selectDateAvailability = `
		SELECT id::text, specific_date, start_minute, end_minute, slot_duration_minutes, created_at
		FROM date_availability`
	selectRecurringBlocks = `
		SELECT id::text, day_of_week, start_minute, end_minute, reason, created_at
		FROM recurring_blocks`
	selectDateBlocks = `
		SELECT id::text, specific_date, start_minute, end_minute, reason, created_at
		FROM date_blocks`
)

func (r *PostgresRepository) ListAvailability(ctx context.Context) ([]Availability, error) {
	recurring, err := queryRecurringAvailability(ctx, r.db, selectRecurringAvailability+` ORDER BY day_of_week, start_minute, id`)
	if err != nil {
		return nil, err
	}
	dated, err := queryDateAvailability(ctx, r.db, selectDateAvailability+` ORDER BY specific_date, start_minute, id`)
	if err != nil {
		return nil, err
	}
	return append(recurring, dated...), nil
}

func (r *PostgresRepository) ListBlocks(ctx context.Context) ([]Block, error) {
	recurring, err := queryRecurringBlocks(ctx, r.db, selectRecurringBlocks+` ORDER BY day_of_week, start_minute, id`)
	if err != nil {
		return nil, err
	}
	dated, err := queryDateBlocks(ctx, r.db, selectDateBlocks+` ORDER BY specific_date, start_minute, id`)
	if err != nil {
		return nil, err
	}
	return append(recurring, dated...), nil
}

// SnapshotForDate reads the version and all candidate rules in one
// repeatable-read transaction so the result matches a single rule-set version.
func (r *PostgresRepository) SnapshotForDate(ctx context.Context, date timeslot.Date) (*Snapshot, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		return nil, fmt.Errorf("availability: snapshot: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	snap := &Snapshot{}
	if err := tx.QueryRow(ctx, `SELECT version FROM rule_versions WHERE id = 1`).Scan(&snap.Version); err != nil {
		return nil, fmt.Errorf("availability: snapshot: version: %w", err)
	}

	weekday := date.ISOWeekday()
	if snap.RecurringAvailability, err = queryRecurringAvailability(ctx, tx,
		selectRecurringAvailability+` WHERE day_of_week = $1 ORDER BY start_minute, id`, weekday); err != nil {
		return nil, err
	}
	if snap.DateAvailability, err = queryDateAvailability(ctx, tx,
		selectDateAvailability+` WHERE specific_date = $1 ORDER BY start_minute, id`, date.Time); err != nil {
		return nil, err
	}
	recurringBlocks, err := queryRecurringBlocks(ctx, tx,
		selectRecurringBlocks+` WHERE day_of_week = $1 ORDER BY start_minute, id`, weekday)
	if err != nil {
		return nil, err
	}
	dateBlocks, err := queryDateBlocks(ctx, tx,
		selectDateBlocks+` WHERE specific_date = $1 ORDER BY start_minute, id`, date.Time)
	if err != nil {
		return nil, err
	}
	snap.Blocks = append(recurringBlocks, dateBlocks...)
	sortBlocks(snap.Blocks)

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("availability: snapshot: commit: %w", err)
	}
	return snap, nil
}

func (r *PostgresRepository) Version(ctx context.Context) (int64, error) {
	var version int64
	if err := r.db.QueryRow(ctx, `SELECT version FROM rule_versions WHERE id = 1`).Scan(&version); err != nil {
		return 0, fmt.Errorf("availability: version: %w", err)
	}
	return version, nil
}

func queryRecurringAvailability(ctx context.Context, q querier, sql string, args ...any) ([]Availability, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("availability: query recurring availability: %w", err)
	}
	defer rows.Close()

	out := []Availability{}
	for rows.Next() {
		var (
			a          = Availability{IsRecurring: true}
			start, end int
		)
		if err := rows.Scan(&a.ID, &a.DayOfWeek, &start, &end, &a.SlotDurationMinutes, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("availability: scan recurring availability: %w", err)
		}
		a.StartTime, a.EndTime = timeslot.TimeOfDay(start), timeslot.TimeOfDay(end)
		out = append(out, a)
	}
	return out, rows.Err()
}

func queryDateAvailability(ctx context.Context, q querier, sql string, args ...any) ([]Availability, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("availability: query date availability: %w", err)
	}
	defer rows.Close()

	out := []Availability{}
	for rows.Next() {
		var (
			a          Availability
			date       time.Time
			start, end int
		)
		if err := rows.Scan(&a.ID, &date, &start, &end, &a.SlotDurationMinutes, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("availability: scan date availability: %w", err)
		}
		d := timeslot.NewDate(date)
		a.Date = &d
		a.StartTime, a.EndTime = timeslot.TimeOfDay(start), timeslot.TimeOfDay(end)
		out = append(out, a)
	}
	return out, rows.Err()
}

func queryRecurringBlocks(ctx context.Context, q querier, sql string, args ...any) ([]Block, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("availability: query recurring blocks: %w", err)
	}
	defer rows.Close()

	out := []Block{}
	for rows.Next() {
		var (
			b          = Block{IsRecurring: true}
			start, end int
		)
		if err := rows.Scan(&b.ID, &b.DayOfWeek, &start, &end, &b.Reason, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("availability: scan recurring block: %w", err)
		}
		b.StartTime, b.EndTime = timeslot.TimeOfDay(start), timeslot.TimeOfDay(end)
		out = append(out, b)
	}
	return out, rows.Err()
}

func queryDateBlocks(ctx context.Context, q querier, sql string, args ...any) ([]Block, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("availability: query date blocks: %w", err)
	}
	defer rows.Close()

	out := []Block{}
	for rows.Next() {
		var (
			b          Block
			date       time.Time
			start, end int
		)
		if err := rows.Scan(&b.ID, &date, &start, &end, &b.Reason, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("availability: scan date block: %w", err)
		}
		d := timeslot.NewDate(date)
		b.Date = &d
		b.StartTime, b.EndTime = timeslot.TimeOfDay(start), timeslot.TimeOfDay(end)
		out = append(out, b)
	}
	return out, rows.Err()
}
