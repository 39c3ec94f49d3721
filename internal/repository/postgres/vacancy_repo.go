package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"crewcall/internal/domain"
)

type vacancyRepository struct {
	DB *sql.DB
}

func NewVacancyRepository(db *sql.DB) domain.VacancyRepository {
	return &vacancyRepository{DB: db}
}

// ListVacantSheets composes the visibility rules of all three levels in one query:
// the event is live, the sheet has passed its unlock date, and the slot is unassigned and unlocked.
func (r *vacancyRepository) ListVacantSheets(ctx context.Context, q domain.VacancyQuery) ([]*domain.SignupSheet, error) {
	query := `SELECT ` + sheetColumns + `, ` + crewColumns + `
		FROM signup_sheets s
		INNER JOIN events e ON e.event_id = s.event_id
		INNER JOIN crews c ON c.signup_id = s.signup_id
		LEFT JOIN positions p ON p.position_id = c.position_id
		WHERE e.deleted_at IS NULL
		  AND e.is_cancelled = false
		  AND e.start_date >= $1
		  AND (s.unlock_date IS NULL OR s.unlock_date <= $2)
		  AND c.user_id IS NULL
		  AND c.custom_crew_member_name IS NULL
		  AND c.locked = false`
	args := []any{q.StartFrom, q.Now}
	if !q.StartTo.IsZero() {
		args = append(args, q.StartTo)
		query += fmt.Sprintf(`
		  AND e.start_date < $%d`, len(args))
	}
	if q.PositionID != nil {
		args = append(args, *q.PositionID)
		query += fmt.Sprintf(`
		  AND c.position_id = $%d`, len(args))
	}
	query += `
		ORDER BY e.start_date ASC, s.start_time ASC, s.signup_id, c.ordering ASC`

	rows, err := conn(ctx, r.DB).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sheets := make([]*domain.SignupSheet, 0)
	var current *domain.SignupSheet
	for rows.Next() {
		s := &domain.SignupSheet{}
		c := &domain.CrewSlot{}
		var unlockNull sql.NullTime
		var positionNull, userNull, customNull sql.NullString
		if err := rows.Scan(
			&s.ID, &s.EventID, &s.Title, &s.Description, &s.ArrivalTime, &s.StartTime, &s.EndTime, &unlockNull,
			&c.ID, &c.SignupID, &positionNull, &c.PositionName, &c.Locked, &userNull, &customNull, &c.Ordering,
		); err != nil {
			return nil, err
		}
		if positionNull.Valid {
			c.PositionID = &positionNull.String
		}
		if current == nil || current.ID != s.ID {
			if unlockNull.Valid {
				s.UnlockDate = &unlockNull.Time
			}
			s.Crews = []*domain.CrewSlot{}
			sheets = append(sheets, s)
			current = s
		}
		current.Crews = append(current.Crews, c)
	}
	return sheets, rows.Err()
}

func (r *vacancyRepository) ListAttendeeEvents(ctx context.Context, q domain.VacancyQuery) ([]*domain.Event, error) {
	query := `SELECT ` + eventColumns + `
		FROM events
		WHERE deleted_at IS NULL
		  AND is_cancelled = false
		  AND event_type <> 'show'
		  AND start_date >= $1`
	args := []any{q.StartFrom}
	if !q.StartTo.IsZero() {
		args = append(args, q.StartTo)
		query += fmt.Sprintf(`
		  AND start_date < $%d`, len(args))
	}
	query += `
		ORDER BY start_date ASC`

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
