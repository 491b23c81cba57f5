package appointments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wolfman30/clinic-scheduler/internal/timeslot"
)

const (
	uniqueViolation      = "23505"
	activeSlotConstraint = "appointments_active_slot_idx"
)

// appointmentsDB is the subset of pgxpool.Pool the repository needs.
type appointmentsDB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository stores appointments in Postgres. A partial unique index on
// (appointment_date, time_minute) WHERE status <> 'cancelled' serializes bookings.
type PostgresRepository struct {
	db appointmentsDB
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("appointments: pgx pool required")
	}
	return &PostgresRepository{db: pool}
}

// NewPostgresRepositoryWithDB allows injecting a mock database for testing.
func NewPostgresRepositoryWithDB(db appointmentsDB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const appointmentColumns = `id::text, name, email, phone, appointment_date, time_minute, message, status, created_at, updated_at`

func (r *PostgresRepository) Insert(ctx context.Context, appt *Appointment) error {
	query := `
		INSERT INTO appointments (id, name, email, phone, appointment_date, time_minute, message, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.db.Exec(ctx, query,
		appt.ID,
		appt.Name,
		appt.Email,
		appt.Phone,
		appt.Date.Time,
		int(appt.Time),
		appt.Message,
		string(appt.Status),
		appt.CreatedAt,
		appt.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation && pgErr.ConstraintName == activeSlotConstraint {
			return ErrSlotTaken
		}
		return fmt.Errorf("appointments: insert failed: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*Appointment, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrAppointmentNotFound
	}
	row := r.db.QueryRow(ctx, `SELECT `+appointmentColumns+` FROM appointments WHERE id = $1`, id)
	appt, err := scanAppointment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, fmt.Errorf("appointments: select failed: %w", err)
	}
	return appt, nil
}

func (r *PostgresRepository) CompareAndSetStatus(ctx context.Context, id string, from, to Status, updatedAt time.Time) (*Appointment, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrAppointmentNotFound
	}
	query := `
		UPDATE appointments
		SET status = $3, updated_at = $4
		WHERE id = $1 AND status = $2
		RETURNING ` + appointmentColumns
	appt, err := scanAppointment(r.db.QueryRow(ctx, query, id, string(from), string(to), updatedAt))
	if err == nil {
		return appt, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("appointments: update status failed: %w", err)
	}
	// No row matched: either the id is unknown or another writer moved the status.
	if _, getErr := r.Get(ctx, id); getErr != nil {
		return nil, getErr
	}
	return nil, errStatusChanged
}

func (r *PostgresRepository) ActiveOn(ctx context.Context, date timeslot.Date) ([]Appointment, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE appointment_date = $1 AND status <> 'cancelled'
		ORDER BY time_minute
	`, date.Time)
	if err != nil {
		return nil, fmt.Errorf("appointments: active on: %w", err)
	}
	defer rows.Close()

	out := []Appointment{}
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("appointments: scan: %w", err)
		}
		out = append(out, *appt)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAppointment(row rowScanner) (*Appointment, error) {
	var (
		appt   Appointment
		date   time.Time
		minute int
		status string
	)
	if err := row.Scan(
		&appt.ID,
		&appt.Name,
		&appt.Email,
		&appt.Phone,
		&date,
		&minute,
		&appt.Message,
		&status,
		&appt.CreatedAt,
		&appt.UpdatedAt,
	); err != nil {
		return nil, err
	}
	appt.Date = timeslot.NewDate(date)
	appt.Time = timeslot.TimeOfDay(minute)
	appt.Status = Status(status)
	return &appt, nil
}
