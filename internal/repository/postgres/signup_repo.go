package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"crewcall/internal/domain"
)

const sheetColumns = `s.signup_id, s.event_id, s.title, s.description, s.arrival_time, s.start_time, s.end_time, s.unlock_date`

const crewColumns = `c.crew_id, c.signup_id, c.position_id, COALESCE(p.name, ''), c.locked, c.user_id, c.custom_crew_member_name, c.ordering`

type signupSheetRepository struct {
	DB *sql.DB
}

func NewSignupSheetRepository(db *sql.DB) domain.SignupSheetRepository {
	return &signupSheetRepository{DB: db}
}

func scanSheet(row rowScanner) (*domain.SignupSheet, error) {
	s := &domain.SignupSheet{Crews: []*domain.CrewSlot{}}
	var unlockNull sql.NullTime
	if err := row.Scan(&s.ID, &s.EventID, &s.Title, &s.Description, &s.ArrivalTime, &s.StartTime, &s.EndTime, &unlockNull); err != nil {
		return nil, err
	}
	if unlockNull.Valid {
		s.UnlockDate = &unlockNull.Time
	}
	return s, nil
}

func scanCrew(row rowScanner) (*domain.CrewSlot, error) {
	c := &domain.CrewSlot{}
	var positionNull, userNull, customNull sql.NullString
	if err := row.Scan(&c.ID, &c.SignupID, &positionNull, &c.PositionName, &c.Locked, &userNull, &customNull, &c.Ordering); err != nil {
		return nil, err
	}
	if positionNull.Valid {
		c.PositionID = &positionNull.String
	}
	if userNull.Valid {
		c.UserID = &userNull.String
	}
	if customNull.Valid {
		c.CustomCrewMemberName = &customNull.String
	}
	return c, nil
}

func (r *signupSheetRepository) CreateSheet(ctx context.Context, s *domain.SignupSheet) error {
	query := `
		INSERT INTO signup_sheets (event_id, title, description, arrival_time, start_time, end_time, unlock_date)
		SELECT e.event_id, $2, $3, $4, $5, $6, $7
		FROM events e
		WHERE e.event_id = $1 AND e.deleted_at IS NULL
		RETURNING signup_id
	`
	err := conn(ctx, r.DB).QueryRowContext(ctx, query,
		s.EventID, s.Title, s.Description, s.ArrivalTime, s.StartTime, s.EndTime, s.UnlockDate,
	).Scan(&s.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrNotFound
		}
		return mapPQError(err)
	}
	return nil
}

func (r *signupSheetRepository) GetSheet(ctx context.Context, sheetID string) (*domain.SignupSheet, error) {
	query := `SELECT ` + sheetColumns + `
		FROM signup_sheets s
		INNER JOIN events e ON e.event_id = s.event_id
		WHERE s.signup_id = $1 AND e.deleted_at IS NULL
	`
	s, err := scanSheet(conn(ctx, r.DB).QueryRowContext(ctx, query, sheetID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if err := r.attachCrews(ctx, []*domain.SignupSheet{s}, ""); err != nil {
		return nil, err
	}
	return s, nil
}

func (r *signupSheetRepository) ListByEventID(ctx context.Context, eventID string) ([]*domain.SignupSheet, error) {
	query := `SELECT ` + sheetColumns + `
		FROM signup_sheets s
		INNER JOIN events e ON e.event_id = s.event_id
		WHERE s.event_id = $1 AND e.deleted_at IS NULL
		ORDER BY s.start_time ASC
	`
	sheets, err := r.listSheets(ctx, query, eventID)
	if err != nil {
		return nil, err
	}
	if err := r.attachCrews(ctx, sheets, ""); err != nil {
		return nil, err
	}
	return sheets, nil
}

func (r *signupSheetRepository) ListForUser(ctx context.Context, userID string) ([]*domain.SignupSheet, error) {
	query := `SELECT ` + sheetColumns + `
		FROM signup_sheets s
		INNER JOIN events e ON e.event_id = s.event_id
		WHERE e.deleted_at IS NULL
		  AND EXISTS (SELECT 1 FROM crews c WHERE c.signup_id = s.signup_id AND c.user_id = $1)
		ORDER BY s.start_time ASC
	`
	sheets, err := r.listSheets(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	if err := r.attachCrews(ctx, sheets, userID); err != nil {
		return nil, err
	}
	return sheets, nil
}

func (r *signupSheetRepository) listSheets(ctx context.Context, query string, args ...any) ([]*domain.SignupSheet, error) {
	rows, err := conn(ctx, r.DB).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	sheets := make([]*domain.SignupSheet, 0)
	for rows.Next() {
		s, err := scanSheet(rows)
		if err != nil {
			return nil, err
		}
		sheets = append(sheets, s)
	}
	return sheets, rows.Err()
}

// attachCrews loads the ordered crews of sheets. A non-empty onlyUserID keeps just that member's slots.
func (r *signupSheetRepository) attachCrews(ctx context.Context, sheets []*domain.SignupSheet, onlyUserID string) error {
	if len(sheets) == 0 {
		return nil
	}
	ids := make([]string, len(sheets))
	byID := make(map[string]*domain.SignupSheet, len(sheets))
	for i, s := range sheets {
		ids[i] = s.ID
		byID[s.ID] = s
	}
	query := `SELECT ` + crewColumns + `
		FROM crews c
		LEFT JOIN positions p ON p.position_id = c.position_id
		WHERE c.signup_id = ANY($1)`
	args := []any{pq.Array(ids)}
	if onlyUserID != "" {
		query += ` AND c.user_id = $2`
		args = append(args, onlyUserID)
	}
	query += `
		ORDER BY c.signup_id, c.ordering ASC`

	rows, err := conn(ctx, r.DB).QueryContext(ctx, query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		c, err := scanCrew(rows)
		if err != nil {
			return err
		}
		if s, ok := byID[c.SignupID]; ok {
			s.Crews = append(s.Crews, c)
		}
	}
	return rows.Err()
}

func (r *signupSheetRepository) UpdateSheet(ctx context.Context, s *domain.SignupSheet) error {
	query := `
		UPDATE signup_sheets
		SET title = $1, description = $2, arrival_time = $3, start_time = $4, end_time = $5, unlock_date = $6
		WHERE signup_id = $7
	`
	res, err := conn(ctx, r.DB).ExecContext(ctx, query,
		s.Title, s.Description, s.ArrivalTime, s.StartTime, s.EndTime, s.UnlockDate, s.ID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *signupSheetRepository) DeleteSheet(ctx context.Context, sheetID string) error {
	res, err := conn(ctx, r.DB).ExecContext(ctx, `DELETE FROM signup_sheets WHERE signup_id = $1`, sheetID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *signupSheetRepository) CreateCrew(ctx context.Context, c *domain.CrewSlot) error {
	query := `
		INSERT INTO crews (signup_id, position_id, locked, user_id, custom_crew_member_name, ordering)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING crew_id
	`
	err := conn(ctx, r.DB).QueryRowContext(ctx, query,
		c.SignupID, c.PositionID, c.Locked, c.UserID, c.CustomCrewMemberName, c.Ordering,
	).Scan(&c.ID)
	return mapPQError(err)
}

func (r *signupSheetRepository) UpdateCrew(ctx context.Context, c *domain.CrewSlot) error {
	query := `
		UPDATE crews
		SET position_id = $1, locked = $2, user_id = $3, custom_crew_member_name = $4, ordering = $5
		WHERE crew_id = $6 AND signup_id = $7
	`
	res, err := conn(ctx, r.DB).ExecContext(ctx, query,
		c.PositionID, c.Locked, c.UserID, c.CustomCrewMemberName, c.Ordering, c.ID, c.SignupID)
	if err != nil {
		return mapPQError(err)
	}
	return requireRow(res)
}

func (r *signupSheetRepository) DeleteCrewsExcept(ctx context.Context, sheetID string, keep []string) error {
	query := `DELETE FROM crews WHERE signup_id = $1 AND NOT (crew_id = ANY($2::uuid[]))`
	_, err := conn(ctx, r.DB).ExecContext(ctx, query, sheetID, pq.Array(keep))
	return err
}

func (r *signupSheetRepository) ClaimCrew(ctx context.Context, sheetID, crewID, userID string) (bool, error) {
	query := `
		UPDATE crews SET user_id = $1
		WHERE crew_id = $2 AND signup_id = $3
		  AND user_id IS NULL AND custom_crew_member_name IS NULL AND locked = false
	`
	res, err := conn(ctx, r.DB).ExecContext(ctx, query, userID, crewID, sheetID)
	if err != nil {
		return false, mapPQError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *signupSheetRepository) ReleaseCrew(ctx context.Context, sheetID, crewID, userID string) (bool, error) {
	query := `
		UPDATE crews SET user_id = NULL
		WHERE crew_id = $1 AND signup_id = $2 AND user_id = $3
	`
	res, err := conn(ctx, r.DB).ExecContext(ctx, query, crewID, sheetID, userID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
