package postgres

import (
	"context"
	"database/sql"

	"crewcall/internal/domain"
)

type attendeeRepository struct {
	DB *sql.DB
}

func NewAttendeeRepository(db *sql.DB) domain.AttendeeRepository {
	return &attendeeRepository{DB: db}
}

func (r *attendeeRepository) Upsert(ctx context.Context, eventID, userID string, status domain.AttendStatus) error {
	if status == domain.AttendStatusUnknown {
		_, err := conn(ctx, r.DB).ExecContext(ctx, `DELETE FROM attendees WHERE event_id = $1 AND user_id = $2`, eventID, userID)
		return err
	}
	query := `
		INSERT INTO attendees (event_id, user_id, attend_status)
		VALUES ($1, $2, $3)
		ON CONFLICT (event_id, user_id) DO UPDATE SET attend_status = EXCLUDED.attend_status
	`
	_, err := conn(ctx, r.DB).ExecContext(ctx, query, eventID, userID, status)
	return mapPQError(err)
}

func (r *attendeeRepository) ListByEventID(ctx context.Context, eventID string) ([]*domain.Attendee, error) {
	query := `
		SELECT event_id, user_id, attend_status
		FROM attendees
		WHERE event_id = $1
		ORDER BY user_id
	`
	return r.list(ctx, query, eventID)
}

func (r *attendeeRepository) ListByUserID(ctx context.Context, userID string) ([]*domain.Attendee, error) {
	query := `
		SELECT a.event_id, a.user_id, a.attend_status
		FROM attendees a
		INNER JOIN events e ON e.event_id = a.event_id
		WHERE a.user_id = $1 AND e.deleted_at IS NULL
	`
	return r.list(ctx, query, userID)
}

func (r *attendeeRepository) list(ctx context.Context, query string, arg string) ([]*domain.Attendee, error) {
	rows, err := conn(ctx, r.DB).QueryContext(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]*domain.Attendee, 0)
	for rows.Next() {
		a := &domain.Attendee{}
		if err := rows.Scan(&a.EventID, &a.UserID, &a.Status); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
