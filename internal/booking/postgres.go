package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DB is the subset of pgxpool.Pool the store depends on. pgxmock satisfies
// it for tests.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore persists bookings in Postgres. The conditional update runs
// the status patch and the history append in one transaction.
type PostgresStore struct {
	db DB
}

// NewPostgresStore creates a store backed by a pgx pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	if pool == nil {
		panic("booking: pgx pool required")
	}
	return &PostgresStore{db: pool}
}

// NewPostgresStoreWithDB allows injecting pgxmock in tests.
func NewPostgresStoreWithDB(db DB) *PostgresStore {
	if db == nil {
		panic("booking: db required")
	}
	return &PostgresStore{db: db}
}

const bookingColumns = `id, reference_number, booking_type, status, patient, details, scheduled_at, total_paise, notes, created_at, updated_at`

// Create inserts a new booking and its initial history entry.
func (s *PostgresStore) Create(ctx context.Context, b *Booking) error {
	patient, err := json.Marshal(b.Patient)
	if err != nil {
		return fmt.Errorf("booking: encode patient: %w", err)
	}
	details, err := EncodeDetails(b.Details)
	if err != nil {
		return err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("booking: begin create: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO bookings (id, reference_number, booking_type, status, patient, details, scheduled_at, total_paise, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, b.ID, b.ReferenceNumber, b.Type, b.Status, patient, details, b.ScheduledAt, b.TotalPaise, b.Notes)
	if err != nil {
		return fmt.Errorf("booking: insert: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO booking_status_history (booking_id, status, actor_id, reason)
		VALUES ($1, $2, $3, $4)
	`, b.ID, b.Status, "system", "")
	if err != nil {
		return fmt.Errorf("booking: insert initial history: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("booking: commit create: %w", err)
	}
	return nil
}

// Get loads a booking and its full status history.
func (s *PostgresStore) Get(ctx context.Context, id uuid.UUID) (*Booking, error) {
	row := s.db.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id)
	b, err := scanBooking(row)
	if err != nil {
		return nil, err
	}
	if b.History, err = s.loadHistory(ctx, s.db, id); err != nil {
		return nil, err
	}
	return b, nil
}

// GetByReference loads a booking by its reference number.
func (s *PostgresStore) GetByReference(ctx context.Context, ref string) (*Booking, error) {
	row := s.db.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE reference_number = $1`, ref)
	b, err := scanBooking(row)
	if err != nil {
		return nil, err
	}
	if b.History, err = s.loadHistory(ctx, s.db, b.ID); err != nil {
		return nil, err
	}
	return b, nil
}

// List returns bookings matching the filter, newest first. History is not
// loaded for list reads; the queue view does not need it.
func (s *PostgresStore) List(ctx context.Context, filter Filter) ([]*Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings`
	var args []any
	where := ""
	if filter.Type != "" {
		args = append(args, filter.Type)
		where = fmt.Sprintf(" WHERE booking_type = $%d", len(args))
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, st := range filter.Statuses {
			statuses[i] = string(st)
		}
		args = append(args, statuses)
		clause := fmt.Sprintf("status = ANY($%d)", len(args))
		if where == "" {
			where = " WHERE " + clause
		} else {
			where += " AND " + clause
		}
	}
	query += where + " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("booking: list: %w", err)
	}
	defer rows.Close()

	var out []*Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// ConditionalUpdate applies the patch only if the stored status still equals
// expected. The compare-and-set and the history append commit together; a
// losing racer observes *ConflictError carrying the winner's status.
func (s *PostgresStore) ConditionalUpdate(ctx context.Context, id uuid.UUID, expected Status, patch StatusPatch) (*Booking, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("booking: begin update: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE bookings
		SET status = $1, scheduled_at = COALESCE($2, scheduled_at), updated_at = now()
		WHERE id = $3 AND status = $4
	`, patch.Target, patch.ScheduledAt, id, expected)
	if err != nil {
		return nil, fmt.Errorf("booking: conditional update: %w", err)
	}

	if tag.RowsAffected() == 0 {
		var actual Status
		err := tx.QueryRow(ctx, `SELECT status FROM bookings WHERE id = $1`, id).Scan(&actual)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		if err != nil {
			return nil, fmt.Errorf("booking: read actual status: %w", err)
		}
		return nil, &ConflictError{BookingID: id.String(), Expected: expected, Actual: actual}
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO booking_status_history (booking_id, status, actor_id, reason)
		VALUES ($1, $2, $3, $4)
	`, id, patch.Target, patch.ActorID, patch.Reason)
	if err != nil {
		return nil, fmt.Errorf("booking: append history: %w", err)
	}

	// Read the updated row back inside the transaction. A re-read after
	// commit could observe a later racing transition and hand the caller
	// the racer's status and history instead of its own.
	row := tx.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id)
	b, err := scanBooking(row)
	if err != nil {
		return nil, err
	}
	if b.History, err = s.loadHistory(ctx, tx, id); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("booking: commit update: %w", err)
	}
	return b, nil
}

// queryer is satisfied by both the pool and an open transaction.
type queryer interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func (s *PostgresStore) loadHistory(ctx context.Context, q queryer, id uuid.UUID) ([]HistoryEntry, error) {
	rows, err := q.Query(ctx, `
		SELECT status, actor_id, reason, created_at
		FROM booking_status_history
		WHERE booking_id = $1
		ORDER BY id
	`, id)
	if err != nil {
		return nil, fmt.Errorf("booking: load history: %w", err)
	}
	defer rows.Close()

	var history []HistoryEntry
	for rows.Next() {
		var h HistoryEntry
		if err := rows.Scan(&h.Status, &h.ActorID, &h.Reason, &h.Timestamp); err != nil {
			return nil, fmt.Errorf("booking: scan history: %w", err)
		}
		history = append(history, h)
	}
	return history, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBooking(row rowScanner) (*Booking, error) {
	var (
		b           Booking
		patient     []byte
		details     []byte
		scheduledAt *time.Time
		totalPaise  *int64
	)
	err := row.Scan(&b.ID, &b.ReferenceNumber, &b.Type, &b.Status, &patient, &details, &scheduledAt, &totalPaise, &b.Notes, &b.CreatedAt, &b.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("booking: scan: %w", err)
	}
	if len(patient) > 0 {
		if err := json.Unmarshal(patient, &b.Patient); err != nil {
			return nil, fmt.Errorf("booking: decode patient: %w", err)
		}
	}
	if b.Details, err = DecodeDetails(b.Type, details); err != nil {
		return nil, err
	}
	b.ScheduledAt = scheduledAt
	b.TotalPaise = totalPaise
	return &b, nil
}

var _ Store = (*PostgresStore)(nil)
