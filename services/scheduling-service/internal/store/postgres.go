package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/tiep1406/appointment--system/libs/db"
	"github.com/tiep1406/appointment--system/services/scheduling-service/internal/interval"
	"github.com/tiep1406/appointment--system/services/scheduling-service/internal/outbox"
	"github.com/tiep1406/appointment--system/services/scheduling-service/internal/schedule"
)

// Postgres stores reservations in the reservations table. The conflict
// scan and the write run in one transaction serialized per (resource,
// date) by an advisory lock; an exclusion constraint on the active slot
// range backstops the scan (pg error 23P01 maps to the conflict error).
//
// When an outbox repository is configured, reservation events are written
// in the same transaction as the change.
type Postgres struct {
	pool   *db.Pool
	outbox *outbox.Repository
}

func NewPostgres(pool *db.Pool, outboxRepo *outbox.Repository) *Postgres {
	return &Postgres{pool: pool, outbox: outboxRepo}
}

const reservationColumns = `
	id, resource_id, requester_name, requester_email, requester_phone, title, notes,
	date, start_minute, end_minute, status,
	COALESCE(cancelled_by, ''), cancelled_at, COALESCE(cancel_reason, ''),
	created_at, updated_at`

func (p *Postgres) Create(ctx context.Context, r *schedule.Reservation) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := lockDay(ctx, tx, r.ResourceID, r.Date); err != nil {
		return err
	}
	if err := p.scanConflict(ctx, tx, r, ""); err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO reservations
			(id, resource_id, requester_name, requester_email, requester_phone, title, notes,
			 date, start_minute, end_minute, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, r.ID, r.ResourceID, r.Requester.Name, r.Requester.Email, r.Requester.Phone,
		r.Requester.Title, r.Requester.Notes, r.Date, r.Slot.Start, r.Slot.End,
		string(r.Status), r.CreatedAt, r.UpdatedAt)
	if err != nil {
		if isExclusionViolation(err) {
			return &schedule.ConflictError{}
		}
		return err
	}

	if err := p.emit(ctx, tx, outbox.EventReservationCreated, r); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (p *Postgres) Update(ctx context.Context, r *schedule.Reservation) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// Lock the row and re-check its state inside the transaction: the
	// caller validated transitions against a snapshot, and a cancel that
	// committed since must not be overwritten.
	var storedStatus string
	err = tx.QueryRow(ctx, `SELECT status FROM reservations WHERE id = $1 FOR UPDATE`, r.ID).
		Scan(&storedStatus)
	if errors.Is(err, pgx.ErrNoRows) {
		return schedule.ErrNotFound
	}
	if err != nil {
		return err
	}
	if schedule.Status(storedStatus).Terminal() {
		return fmt.Errorf("%w: reservation is %s", schedule.ErrInvalidStateTransition, storedStatus)
	}

	// Serialize on the day being written to; a reschedule that moves the
	// reservation only contends on its target day.
	if err := lockDay(ctx, tx, r.ResourceID, r.Date); err != nil {
		return err
	}
	if r.Status.Active() {
		if err := p.scanConflict(ctx, tx, r, r.ID); err != nil {
			return err
		}
	}

	tag, err := tx.Exec(ctx, `
		UPDATE reservations
		SET requester_name = $2,
			requester_email = $3,
			requester_phone = $4,
			title = $5,
			notes = $6,
			date = $7,
			start_minute = $8,
			end_minute = $9,
			status = $10,
			cancelled_by = NULLIF($11, ''),
			cancelled_at = $12,
			cancel_reason = NULLIF($13, ''),
			updated_at = $14
		WHERE id = $1
	`, r.ID, r.Requester.Name, r.Requester.Email, r.Requester.Phone,
		r.Requester.Title, r.Requester.Notes, r.Date, r.Slot.Start, r.Slot.End,
		string(r.Status), r.CancelledBy, r.CancelledAt, r.CancelReason, r.UpdatedAt)
	if err != nil {
		if isExclusionViolation(err) {
			return &schedule.ConflictError{}
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return schedule.ErrNotFound
	}

	eventType := outbox.EventReservationUpdated
	if r.Status == schedule.StatusCancelled {
		eventType = outbox.EventReservationCancelled
	}
	if err := p.emit(ctx, tx, eventType, r); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (p *Postgres) Delete(ctx context.Context, id string) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	r, err := scanReservation(tx.QueryRow(ctx, `
		SELECT `+reservationColumns+`
		FROM reservations
		WHERE id = $1
		FOR UPDATE
	`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return schedule.ErrNotFound
	}
	if err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, `DELETE FROM reservations WHERE id = $1`, id); err != nil {
		return err
	}
	if err := p.emit(ctx, tx, outbox.EventReservationDeleted, r); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (p *Postgres) Get(ctx context.Context, id string) (*schedule.Reservation, error) {
	r, err := scanReservation(p.pool.QueryRow(ctx, `
		SELECT `+reservationColumns+`
		FROM reservations
		WHERE id = $1
	`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, schedule.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (p *Postgres) ListByDate(ctx context.Context, resourceID, date string) ([]*schedule.Reservation, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT `+reservationColumns+`
		FROM reservations
		WHERE date = $1
			AND ($2 = '' OR resource_id = $2)
		ORDER BY date ASC, start_minute ASC
	`, date, resourceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectReservations(rows)
}

func (p *Postgres) ListActive(ctx context.Context, resourceID, date string) ([]*schedule.Reservation, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT `+reservationColumns+`
		FROM reservations
		WHERE resource_id = $1
			AND date = $2
			AND status IN ('pending', 'confirmed')
		ORDER BY start_minute ASC
	`, resourceID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectReservations(rows)
}

// lockDay serializes all writers for one resource and calendar day.
func lockDay(ctx context.Context, tx pgx.Tx, resourceID, date string) error {
	_, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, resourceID+"|"+date)
	return err
}

// scanConflict is the pre-insert overlap check. It uses the same half-open
// predicate as schedule.FindConflict: existing.start < candidate.end AND
// existing.end > candidate.start.
func (p *Postgres) scanConflict(ctx context.Context, tx pgx.Tx, r *schedule.Reservation, excludeID string) error {
	blocking, err := scanReservation(tx.QueryRow(ctx, `
		SELECT `+reservationColumns+`
		FROM reservations
		WHERE resource_id = $1
			AND date = $2
			AND status IN ('pending', 'confirmed')
			AND start_minute < $3
			AND end_minute > $4
			AND id <> $5
		ORDER BY start_minute ASC
		LIMIT 1
	`, r.ResourceID, r.Date, r.Slot.End, r.Slot.Start, excludeID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil
	}
	if err != nil {
		return err
	}
	return &schedule.ConflictError{Blocking: blocking}
}

func (p *Postgres) emit(ctx context.Context, tx pgx.Tx, eventType string, r *schedule.Reservation) error {
	if p.outbox == nil {
		return nil
	}
	payload, err := json.Marshal(map[string]any{
		"reservation_id": r.ID,
		"resource_id":    r.ResourceID,
		"date":           r.Date,
		"start_time":     interval.Format(r.Slot.Start),
		"end_time":       interval.Format(r.Slot.End),
		"status":         string(r.Status),
		"cancelled_by":   r.CancelledBy,
		"cancel_reason":  r.CancelReason,
	})
	if err != nil {
		return err
	}
	return p.outbox.Insert(ctx, tx, outbox.Event{
		AggregateType: "reservation",
		AggregateID:   r.ID,
		EventType:     eventType,
		Payload:       payload,
	})
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReservation(row rowScanner) (*schedule.Reservation, error) {
	var r schedule.Reservation
	var day time.Time
	var cancelledAt *time.Time
	var status string
	err := row.Scan(
		&r.ID,
		&r.ResourceID,
		&r.Requester.Name,
		&r.Requester.Email,
		&r.Requester.Phone,
		&r.Requester.Title,
		&r.Requester.Notes,
		&day,
		&r.Slot.Start,
		&r.Slot.End,
		&status,
		&r.CancelledBy,
		&cancelledAt,
		&r.CancelReason,
		&r.CreatedAt,
		&r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	r.Date = formatDay(day)
	r.Status = schedule.Status(status)
	r.CancelledAt = cancelledAt
	return &r, nil
}

func collectReservations(rows pgx.Rows) ([]*schedule.Reservation, error) {
	var out []*schedule.Reservation
	for rows.Next() {
		r, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

func formatDay(day time.Time) string {
	return day.Format("2006-01-02")
}

func isExclusionViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23P01"
}
