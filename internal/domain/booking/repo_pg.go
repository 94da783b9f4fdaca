package booking

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ehr/booking/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type bookingRepoPG struct {
	pool *pgxpool.Pool
	loc  *time.Location
}

// NewRepoPG returns a PostgreSQL repository. loc is the zone calendar-day and
// time-of-day filters are evaluated in.
func NewRepoPG(pool *pgxpool.Pool, loc *time.Location) Repository {
	if loc == nil {
		loc = time.UTC
	}
	return &bookingRepoPG{pool: pool, loc: loc}
}

func (r *bookingRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const bookingCols = `id, subject_id, resource_id, location_id, start_time, duration_minutes,
	booking_type, status, notes, reason, created_at, updated_at`

// activeStatusFilter excludes bookings that no longer hold their slot.
const activeStatusFilter = `status NOT IN ('CANCELLED', 'NO_SHOW')`

func (r *bookingRepoPG) scanBooking(row pgx.Row) (*Booking, error) {
	var b Booking
	err := row.Scan(&b.ID, &b.SubjectID, &b.ResourceID, &b.LocationID, &b.StartTime, &b.DurationMinutes,
		&b.BookingType, &b.Status, &b.Notes, &b.Reason, &b.CreatedAt, &b.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *bookingRepoPG) collect(rows pgx.Rows) ([]*Booking, error) {
	defer rows.Close()
	var items []*Booking
	for rows.Next() {
		b, err := r.scanBooking(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, b)
	}
	return items, rows.Err()
}

func (r *bookingRepoPG) Create(ctx context.Context, b *Booking) error {
	b.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO booking (id, subject_id, resource_id, location_id, start_time, duration_minutes,
			booking_type, status, notes, reason)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		RETURNING created_at, updated_at`,
		b.ID, b.SubjectID, b.ResourceID, b.LocationID, b.StartTime, b.DurationMinutes,
		b.BookingType, b.Status, b.Notes, b.Reason).Scan(&b.CreatedAt, &b.UpdatedAt)
}

func (r *bookingRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Booking, error) {
	return r.scanBooking(r.conn(ctx).QueryRow(ctx, `SELECT `+bookingCols+` FROM booking WHERE id = $1`, id))
}

func (r *bookingRepoPG) Update(ctx context.Context, b *Booking, status Status) error {
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE booking SET start_time=$2, duration_minutes=$3, booking_type=$4, notes=$5, reason=$6,
			updated_at=NOW()
		WHERE id = $1 AND status = $7
		RETURNING updated_at`,
		b.ID, b.StartTime, b.DurationMinutes, b.BookingType, b.Notes, b.Reason, status).Scan(&b.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return r.missOrChanged(ctx, b.ID)
	}
	return err
}

// missOrChanged explains a guarded write that matched no row.
func (r *bookingRepoPG) missOrChanged(ctx context.Context, id uuid.UUID) error {
	var current Status
	err := r.conn(ctx).QueryRow(ctx, `SELECT status FROM booking WHERE id = $1`, id).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return ErrStatusChanged
}

func (r *bookingRepoPG) UpdateStatus(ctx context.Context, b *Booking, from Status) error {
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE booking SET status=$2, start_time=$3, duration_minutes=$4, notes=$5, updated_at=NOW()
		WHERE id = $1 AND status = $6
		RETURNING updated_at`,
		b.ID, b.Status, b.StartTime, b.DurationMinutes, b.Notes, from).Scan(&b.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrStatusChanged
	}
	return err
}

func (r *bookingRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM booking WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *bookingRepoPG) list(ctx context.Context, where string, arg interface{}, limit, offset int) ([]*Booking, int, error) {
	countQuery := `SELECT COUNT(*) FROM booking`
	query := `SELECT ` + bookingCols + ` FROM booking`
	var args []interface{}
	if where != "" {
		countQuery += ` WHERE ` + where
		query += ` WHERE ` + where
		args = append(args, arg)
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += fmt.Sprintf(` ORDER BY start_time DESC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	rows, err := r.conn(ctx).Query(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	items, err := r.collect(rows)
	return items, total, err
}

func (r *bookingRepoPG) List(ctx context.Context, limit, offset int) ([]*Booking, int, error) {
	return r.list(ctx, "", nil, limit, offset)
}

func (r *bookingRepoPG) ListBySubject(ctx context.Context, subjectID uuid.UUID, limit, offset int) ([]*Booking, int, error) {
	return r.list(ctx, `subject_id = $1`, subjectID, limit, offset)
}

func (r *bookingRepoPG) ListByResource(ctx context.Context, resourceID uuid.UUID, limit, offset int) ([]*Booking, int, error) {
	return r.list(ctx, `resource_id = $1`, resourceID, limit, offset)
}

func (r *bookingRepoPG) ListUpcomingBySubject(ctx context.Context, subjectID uuid.UUID, after time.Time, statuses []Status) ([]*Booking, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+bookingCols+` FROM booking
		WHERE subject_id = $1 AND start_time > $2 AND status = ANY($3)
		ORDER BY start_time ASC`, subjectID, after, statusStrings(statuses))
	if err != nil {
		return nil, err
	}
	return r.collect(rows)
}

func (r *bookingRepoPG) ListByResourceBetween(ctx context.Context, resourceID uuid.UUID, from, to time.Time) ([]*Booking, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+bookingCols+` FROM booking
		WHERE resource_id = $1 AND start_time >= $2 AND start_time < $3
		ORDER BY start_time ASC`, resourceID, from, to)
	if err != nil {
		return nil, err
	}
	return r.collect(rows)
}

func (r *bookingRepoPG) FindOverlapping(ctx context.Context, resourceID uuid.UUID, start, end time.Time) ([]*Booking, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+bookingCols+` FROM booking
		WHERE resource_id = $1 AND `+activeStatusFilter+`
		  AND start_time < $3
		  AND start_time + make_interval(mins => duration_minutes) > $2
		ORDER BY start_time ASC`, resourceID, start, end)
	if err != nil {
		return nil, err
	}
	return r.collect(rows)
}

func (r *bookingRepoPG) Search(ctx context.Context, c SearchCriteria, limit, offset int) ([]*Booking, int, error) {
	where, args := buildSearchWhere(c, r.loc)

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM booking WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	idx := len(args) + 1
	query := `SELECT ` + bookingCols + ` FROM booking WHERE ` + where +
		fmt.Sprintf(` ORDER BY start_time ASC LIMIT $%d OFFSET $%d`, idx, idx+1)
	rows, err := r.conn(ctx).Query(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	items, err := r.collect(rows)
	return items, total, err
}

func (r *bookingRepoPG) CountByStatus(ctx context.Context, c SearchCriteria) (map[Status]int, error) {
	where, args := buildSearchWhere(c, r.loc)
	rows, err := r.conn(ctx).Query(ctx, `SELECT status, COUNT(*) FROM booking WHERE `+where+` GROUP BY status`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	counts := make(map[Status]int)
	for rows.Next() {
		var (
			st Status
			n  int
		)
		if err := rows.Scan(&st, &n); err != nil {
			return nil, err
		}
		counts[st] = n
	}
	return counts, rows.Err()
}

// buildSearchWhere turns criteria into an AND-ed WHERE clause and its
// positional arguments.
func buildSearchWhere(c SearchCriteria, loc *time.Location) (string, []interface{}) {
	where := `1=1`
	var args []interface{}
	add := func(cond string, arg interface{}) {
		args = append(args, arg)
		where += fmt.Sprintf(" AND "+cond, len(args))
	}

	if c.SubjectID != nil {
		add(`subject_id = $%d`, *c.SubjectID)
	}
	if c.ResourceID != nil {
		add(`resource_id = $%d`, *c.ResourceID)
	}
	if c.LocationID != nil {
		add(`location_id = $%d`, *c.LocationID)
	}
	if len(c.Statuses) > 0 {
		add(`status = ANY($%d)`, statusStrings(c.Statuses))
	}
	if c.BookingType != nil {
		add(`booking_type = $%d`, string(*c.BookingType))
	}
	p := Policy{Location: loc}
	if c.DateFrom != nil {
		add(`start_time >= $%d`, p.StartOfDay(*c.DateFrom))
	}
	if c.DateTo != nil {
		add(`start_time < $%d`, p.StartOfDay(*c.DateTo).AddDate(0, 0, 1))
	}
	if c.TimeFrom != nil || c.TimeTo != nil {
		args = append(args, loc.String())
		local := `(start_time AT TIME ZONE $` + strconv.Itoa(len(args)) + `)::time`
		if c.TimeFrom != nil {
			add(local+` >= $%d::time`, *c.TimeFrom)
		}
		if c.TimeTo != nil {
			add(local+` <= $%d::time`, *c.TimeTo)
		}
	}
	return where, args
}

func statusStrings(statuses []Status) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

// WithResourceLock serializes writers for one resource with a transaction
// scoped advisory lock, so the overlap check and the write commit together.
func (r *bookingRepoPG) WithResourceLock(ctx context.Context, resourceID uuid.UUID, fn func(ctx context.Context) error) error {
	tx, err := r.begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, resourceID.String()); err != nil {
		return fmt.Errorf("lock resource %s: %w", resourceID, err)
	}
	if err := fn(db.ContextWithTx(ctx, tx)); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *bookingRepoPG) begin(ctx context.Context) (pgx.Tx, error) {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx.Begin(ctx)
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c.Begin(ctx)
	}
	return r.pool.Begin(ctx)
}
