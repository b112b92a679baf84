package booking

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrations embed.FS

const (
	bookingColumns = `id, guest_name, phone_number, email, service, notes,
		start_time, start_zone, start_offset_seconds, duration_minutes, status, created_at`

	uniqueViolation = "23505"
	maxIDAttempts   = 3
)

// PostgresStore persists bookings in PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, strings.TrimSpace(databaseURL))
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return &PostgresStore{pool: pool}, nil
}

func migrate(ctx context.Context, pool *pgxpool.Pool) error {
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	// goose works on *sql.DB; closing it leaves the pool open.
	db := stdlib.OpenDBFromPool(pool)
	defer func() { _ = db.Close() }()
	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("apply booking migrations: %w", err)
	}
	return nil
}

func (s *PostgresStore) Create(ctx context.Context, draft Draft) (Booking, error) {
	draft = draft.Normalize()
	if err := draft.Validate(); err != nil {
		return Booking{}, err
	}

	zone := draft.StartTime.Location().String()
	_, offset := draft.StartTime.Zone()
	for attempt := 0; attempt < maxIDAttempts; attempt++ {
		row := s.pool.QueryRow(ctx,
			`INSERT INTO bookings (
				id, guest_name, phone_number, email, service, notes,
				start_time, start_zone, start_offset_seconds, duration_minutes, status, created_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
			RETURNING `+bookingColumns,
			uuid.NewString(),
			draft.GuestName,
			draft.PhoneNumber,
			draft.Email,
			draft.Service,
			draft.Notes,
			draft.StartTime.UTC(),
			zone,
			offset,
			draft.DurationMinutes,
			string(StatusPending),
			time.Now().UTC(),
		)
		record, err := scanBooking(row)
		if err == nil {
			return record, nil
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			continue
		}
		return Booking{}, fmt.Errorf("insert booking: %w", err)
	}
	return Booking{}, fmt.Errorf("insert booking: no free id after %d attempts", maxIDAttempts)
}

func (s *PostgresStore) List(ctx context.Context) ([]Booking, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+bookingColumns+` FROM bookings ORDER BY seq ASC`)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	defer rows.Close()

	out := make([]Booking, 0, 16)
	for rows.Next() {
		record, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		out = append(out, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bookings: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (Booking, bool, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id=$1`, id)
	record, err := scanBooking(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Booking{}, false, nil
		}
		return Booking{}, false, fmt.Errorf("get booking: %w", err)
	}
	return record, true, nil
}

func (s *PostgresStore) UpdateStatus(ctx context.Context, id string, status Status) (Booking, bool, error) {
	if !status.Valid() {
		return Booking{}, false, &ValidationError{Fields: []FieldError{{Field: "status", Rule: "oneof"}}}
	}
	row := s.pool.QueryRow(ctx,
		`UPDATE bookings SET status=$2 WHERE id=$1 RETURNING `+bookingColumns,
		id, string(status),
	)
	record, err := scanBooking(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Booking{}, false, nil
		}
		return Booking{}, false, fmt.Errorf("update booking status: %w", err)
	}
	return record, true, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func scanBooking(row pgx.Row) (Booking, error) {
	var (
		record Booking
		status string
		zone   string
		offset int
	)
	err := row.Scan(
		&record.ID,
		&record.GuestName,
		&record.PhoneNumber,
		&record.Email,
		&record.Service,
		&record.Notes,
		&record.StartTime,
		&zone,
		&offset,
		&record.DurationMinutes,
		&status,
		&record.CreatedAt,
	)
	if err != nil {
		return Booking{}, err
	}
	record.Status = Status(status)
	record.StartTime = restoreZone(record.StartTime, zone, offset)
	record.CreatedAt = record.CreatedAt.UTC()
	return record, nil
}

// restoreZone puts t back into the location it was created in. A named zone
// is used only when it still yields the stored offset at t.
func restoreZone(t time.Time, zone string, offset int) time.Time {
	if loc, err := time.LoadLocation(zone); err == nil {
		if _, got := t.In(loc).Zone(); got == offset {
			return t.In(loc)
		}
	}
	return t.In(time.FixedZone(zone, offset))
}
