package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"crewcall/internal/domain"
)

const eventColumns = `event_id, event_type, name, description, location, start_date, end_date,
		is_private, is_tentative, is_cancelled, host, external_project_id, recurring_series_id,
		created_by, created_at, updated_by, updated_at, deleted_by, deleted_at`

type eventRepository struct {
	DB *sql.DB
}

func NewEventRepository(db *sql.DB) domain.EventRepository {
	return &eventRepository{
		DB: db,
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (*domain.Event, error) {
	e := &domain.Event{}
	var projectNull, seriesNull, deletedByNull sql.NullString
	var deletedAtNull sql.NullTime
	err := row.Scan(
		&e.ID, &e.Type, &e.Name, &e.Description, &e.Location, &e.StartDate, &e.EndDate,
		&e.IsPrivate, &e.IsTentative, &e.IsCancelled, &e.Host, &projectNull, &seriesNull,
		&e.CreatedBy, &e.CreatedAt, &e.UpdatedBy, &e.UpdatedAt, &deletedByNull, &deletedAtNull,
	)
	if err != nil {
		return nil, err
	}
	if projectNull.Valid {
		e.ExternalProjectID = &projectNull.String
	}
	if seriesNull.Valid {
		e.RecurringSeriesID = &seriesNull.String
	}
	if deletedByNull.Valid {
		e.DeletedBy = &deletedByNull.String
	}
	if deletedAtNull.Valid {
		e.DeletedAt = &deletedAtNull.Time
	}
	return e, nil
}

func (r *eventRepository) Create(ctx context.Context, e *domain.Event) error {
	query := `
		INSERT INTO events (event_type, name, description, location, start_date, end_date,
			is_private, is_tentative, is_cancelled, host, external_project_id, recurring_series_id,
			created_by, created_at, updated_by, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING event_id
	`
	err := conn(ctx, r.DB).QueryRowContext(ctx, query,
		e.Type, e.Name, e.Description, e.Location, e.StartDate, e.EndDate,
		e.IsPrivate, e.IsTentative, e.IsCancelled, e.Host, e.ExternalProjectID, e.RecurringSeriesID,
		e.CreatedBy, e.CreatedAt, e.UpdatedBy, e.UpdatedAt,
	).Scan(&e.ID)
	if err != nil {
		return mapPQError(err)
	}
	return nil
}

func (r *eventRepository) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	query := `SELECT ` + eventColumns + `
		FROM events
		WHERE event_id = $1 AND deleted_at IS NULL
	`
	return r.getOne(ctx, query, id)
}

func (r *eventRepository) GetByIDForUpdate(ctx context.Context, id string) (*domain.Event, error) {
	query := `SELECT ` + eventColumns + `
		FROM events
		WHERE event_id = $1 AND deleted_at IS NULL
		FOR UPDATE
	`
	return r.getOne(ctx, query, id)
}

func (r *eventRepository) getOne(ctx context.Context, query string, args ...any) (*domain.Event, error) {
	e, err := scanEvent(conn(ctx, r.DB).QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return e, nil
}

func (r *eventRepository) List(ctx context.Context, filter domain.EventFilter) ([]*domain.Event, error) {
	where := []string{"deleted_at IS NULL"}
	args := []any{}
	if !filter.StartFrom.IsZero() {
		args = append(args, filter.StartFrom)
		where = append(where, fmt.Sprintf("start_date >= $%d", len(args)))
	}
	if !filter.StartTo.IsZero() {
		args = append(args, filter.StartTo)
		where = append(where, fmt.Sprintf("start_date < $%d", len(args)))
	}
	query := `SELECT ` + eventColumns + `
		FROM events
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY start_date ASC
	`
	return r.list(ctx, query, args...)
}

func (r *eventRepository) ListByIDs(ctx context.Context, ids []string) ([]*domain.Event, error) {
	if len(ids) == 0 {
		return []*domain.Event{}, nil
	}
	query := `SELECT ` + eventColumns + `
		FROM events
		WHERE event_id = ANY($1) AND deleted_at IS NULL
		ORDER BY start_date ASC
	`
	return r.list(ctx, query, pq.Array(ids))
}

func (r *eventRepository) ListBySeriesID(ctx context.Context, seriesID string) ([]*domain.Event, error) {
	query := `SELECT ` + eventColumns + `
		FROM events
		WHERE recurring_series_id = $1 AND deleted_at IS NULL
		ORDER BY start_date ASC
	`
	return r.list(ctx, query, seriesID)
}

func (r *eventRepository) ListForUser(ctx context.Context, userID string) ([]*domain.Event, error) {
	query := `SELECT ` + eventColumns + `
		FROM events e
		WHERE e.deleted_at IS NULL
		  AND (
			EXISTS (SELECT 1 FROM attendees a WHERE a.event_id = e.event_id AND a.user_id = $1)
			OR EXISTS (
				SELECT 1 FROM recurring_attendees ra
				WHERE ra.recurring_series_id = e.recurring_series_id AND ra.user_id = $1
			)
			OR EXISTS (
				SELECT 1 FROM signup_sheets s
				INNER JOIN crews c ON c.signup_id = s.signup_id
				WHERE s.event_id = e.event_id AND c.user_id = $1
			)
		  )
		ORDER BY e.start_date ASC
	`
	return r.list(ctx, query, userID)
}

func (r *eventRepository) list(ctx context.Context, query string, args ...any) ([]*domain.Event, error) {
	rows, err := conn(ctx, r.DB).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	events := make([]*domain.Event, 0)
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func (r *eventRepository) Update(ctx context.Context, id string, upd domain.EventUpdate, actorID string) (*domain.Event, error) {
	setClauses := []string{"updated_at = NOW()"}
	args := []any{}
	set := func(column string, value any) {
		args = append(args, value)
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if upd.Type != nil {
		set("event_type", *upd.Type)
	}
	if upd.Name != nil {
		set("name", *upd.Name)
	}
	if upd.Description != nil {
		set("description", *upd.Description)
	}
	if upd.Location != nil {
		set("location", *upd.Location)
	}
	if upd.StartDate != nil {
		set("start_date", *upd.StartDate)
	}
	if upd.EndDate != nil {
		set("end_date", *upd.EndDate)
	}
	if upd.IsPrivate != nil {
		set("is_private", *upd.IsPrivate)
	}
	if upd.IsTentative != nil {
		set("is_tentative", *upd.IsTentative)
	}
	if upd.Host != nil {
		set("host", *upd.Host)
	}
	if upd.ExternalProjectID != nil {
		// An empty id unlinks the event from the resource-booking system.
		if *upd.ExternalProjectID == "" {
			set("external_project_id", nil)
		} else {
			set("external_project_id", *upd.ExternalProjectID)
		}
	}
	set("updated_by", actorID)
	args = append(args, id)
	query := fmt.Sprintf(`
		UPDATE events SET %s
		WHERE event_id = $%d AND deleted_at IS NULL
		RETURNING %s
	`, strings.Join(setClauses, ", "), len(args), eventColumns)
	e, err := scanEvent(conn(ctx, r.DB).QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, mapPQError(err)
	}
	return e, nil
}

func (r *eventRepository) SetCancelled(ctx context.Context, id string, cancelled bool, actorID string) error {
	query := `
		UPDATE events SET is_cancelled = $1, updated_by = $2, updated_at = NOW()
		WHERE event_id = $3 AND deleted_at IS NULL
	`
	res, err := conn(ctx, r.DB).ExecContext(ctx, query, cancelled, actorID, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *eventRepository) SoftDelete(ctx context.Context, id, actorID string, at time.Time) error {
	query := `
		UPDATE events SET deleted_at = $1, deleted_by = $2
		WHERE event_id = $3 AND deleted_at IS NULL
	`
	res, err := conn(ctx, r.DB).ExecContext(ctx, query, at, actorID, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}
