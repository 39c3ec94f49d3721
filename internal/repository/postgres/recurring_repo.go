package postgres

import (
	"context"
	"database/sql"

	"crewcall/internal/domain"
)

type recurringSeriesRepository struct {
	DB *sql.DB
}

func NewRecurringSeriesRepository(db *sql.DB) domain.RecurringSeriesRepository {
	return &recurringSeriesRepository{DB: db}
}

func (r *recurringSeriesRepository) Create(ctx context.Context) (string, error) {
	var id string
	err := conn(ctx, r.DB).QueryRowContext(ctx, `INSERT INTO recurring_series DEFAULT VALUES RETURNING recurring_series_id`).Scan(&id)
	return id, err
}

func (r *recurringSeriesRepository) Exists(ctx context.Context, seriesID string) (bool, error) {
	var exists bool
	err := conn(ctx, r.DB).QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM recurring_series WHERE recurring_series_id = $1)`, seriesID,
	).Scan(&exists)
	return exists, err
}

func (r *recurringSeriesRepository) UpsertAttendee(ctx context.Context, seriesID, userID string, status domain.AttendStatus) error {
	if status == domain.AttendStatusUnknown {
		_, err := conn(ctx, r.DB).ExecContext(ctx,
			`DELETE FROM recurring_attendees WHERE recurring_series_id = $1 AND user_id = $2`, seriesID, userID)
		return err
	}
	query := `
		INSERT INTO recurring_attendees (recurring_series_id, user_id, attend_status)
		VALUES ($1, $2, $3)
		ON CONFLICT (recurring_series_id, user_id) DO UPDATE SET attend_status = EXCLUDED.attend_status
	`
	_, err := conn(ctx, r.DB).ExecContext(ctx, query, seriesID, userID, status)
	return mapPQError(err)
}

func (r *recurringSeriesRepository) ListAttendees(ctx context.Context, seriesID string) ([]*domain.RecurringAttendee, error) {
	query := `
		SELECT recurring_series_id, user_id, attend_status
		FROM recurring_attendees
		WHERE recurring_series_id = $1
		ORDER BY user_id
	`
	rows, err := conn(ctx, r.DB).QueryContext(ctx, query, seriesID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]*domain.RecurringAttendee, 0)
	for rows.Next() {
		a := &domain.RecurringAttendee{}
		if err := rows.Scan(&a.SeriesID, &a.UserID, &a.Status); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
