package domain

import (
	"context"
	"time"
)

// SignupSheet is a crew call attached to one event.
// swagger:model SignupSheet
type SignupSheet struct {
	ID          string      `json:"signup_id"`
	EventID     string      `json:"event_id"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	ArrivalTime time.Time   `json:"arrival_time"`
	StartTime   time.Time   `json:"start_time"`
	EndTime     time.Time   `json:"end_time"`
	UnlockDate  *time.Time  `json:"unlock_date"`
	Crews       []*CrewSlot `json:"crews"`
}

// IsLockedAt reports whether claim and release are still gated at now.
func (s *SignupSheet) IsLockedAt(now time.Time) bool {
	return s.UnlockDate != nil && now.Before(*s.UnlockDate)
}

// Crew returns the slot with the given id, or nil.
func (s *SignupSheet) Crew(crewID string) *CrewSlot {
	for _, c := range s.Crews {
		if c.ID == crewID {
			return c
		}
	}
	return nil
}

// CrewSlot is one named role on a sign-up sheet. At most one of UserID and CustomCrewMemberName is set.
// swagger:model CrewSlot
type CrewSlot struct {
	ID                   string  `json:"crew_id"`
	SignupID             string  `json:"signup_id"`
	PositionID           *string `json:"position_id"`
	PositionName         string  `json:"position_name,omitempty"`
	Locked               bool    `json:"locked"`
	UserID               *string `json:"user_id"`
	CustomCrewMemberName *string `json:"custom_crew_member_name"`
	Ordering             int     `json:"ordering"`
}

// IsAssigned reports whether a member or a custom name occupies the slot.
func (c *CrewSlot) IsAssigned() bool {
	return c.UserID != nil || c.CustomCrewMemberName != nil
}

// HeldBy reports whether userID is the assigned member.
func (c *CrewSlot) HeldBy(userID string) bool {
	return c.UserID != nil && *c.UserID == userID
}

// CrewSlotInput describes one slot in a create or edit payload. An empty ID means a new slot.
type CrewSlotInput struct {
	ID                   string
	PositionID           *string
	Locked               bool
	UserID               *string
	CustomCrewMemberName *string
	Ordering             int
}

// SignupSheetInput is the payload for creating or editing a sheet.
type SignupSheetInput struct {
	Title       string
	Description string
	ArrivalTime time.Time
	StartTime   time.Time
	EndTime     time.Time
	UnlockDate  *time.Time
	Crews       []CrewSlotInput
}

// CrewSlotUpdate is a manager's direct edit of one slot. Nil fields are left unchanged;
// ClearAssignment empties both assignment fields before UserID/CustomCrewMemberName are applied.
type CrewSlotUpdate struct {
	PositionID           *string
	Locked               *bool
	UserID               *string
	CustomCrewMemberName *string
	ClearAssignment      bool
}

// SignupSheetRepository defines storage for sheets and their crew slots.
// Reads exclude sheets whose event is soft-deleted.
type SignupSheetRepository interface {
	CreateSheet(ctx context.Context, sheet *SignupSheet) error
	GetSheet(ctx context.Context, sheetID string) (*SignupSheet, error)
	ListByEventID(ctx context.Context, eventID string) ([]*SignupSheet, error)
	// ListForUser returns sheets holding at least one of the user's slots, with only those slots attached.
	ListForUser(ctx context.Context, userID string) ([]*SignupSheet, error)
	UpdateSheet(ctx context.Context, sheet *SignupSheet) error
	DeleteSheet(ctx context.Context, sheetID string) error

	CreateCrew(ctx context.Context, crew *CrewSlot) error
	UpdateCrew(ctx context.Context, crew *CrewSlot) error
	// DeleteCrewsExcept removes every slot of the sheet whose id is not in keep.
	DeleteCrewsExcept(ctx context.Context, sheetID string, keep []string) error

	// ClaimCrew assigns userID only if the slot is unassigned and unlocked. It reports whether a row changed.
	ClaimCrew(ctx context.Context, sheetID, crewID, userID string) (bool, error)
	// ReleaseCrew clears the assignment only if userID still holds the slot. It reports whether a row changed.
	ReleaseCrew(ctx context.Context, sheetID, crewID, userID string) (bool, error)
}

// SignupSheetService manages sheets and their slots on behalf of event managers.
type SignupSheetService interface {
	CreateSignUpSheet(ctx context.Context, eventID string, in SignupSheetInput, actorID string) (*SignupSheet, error)
	EditSignUpSheet(ctx context.Context, sheetID string, in SignupSheetInput, actorID string) (*SignupSheet, error)
	DeleteSignUpSheet(ctx context.Context, sheetID, actorID string) error
	UpdateCrewSlot(ctx context.Context, sheetID, crewID string, upd CrewSlotUpdate, actorID string) (*CrewSlot, error)
}

// SignupService is the member-facing claim/release protocol.
type SignupService interface {
	SignUpToRole(ctx context.Context, sheetID, crewID, userID string) error
	RemoveSelfFromRole(ctx context.Context, sheetID, crewID, userID string) error
}
