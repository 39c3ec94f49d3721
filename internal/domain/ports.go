package domain

import (
	"context"
	"time"
)

// Capabilities is the permission oracle consulted before management operations.
type Capabilities interface {
	CanCreate(ctx context.Context, eventType EventType, userID string) (bool, error)
	CanManage(ctx context.Context, event *Event, userID string) (bool, error)
	CanManageSignUpSheet(ctx context.Context, event *Event, sheet *SignupSheet, userID string) (bool, error)
}

// ReserveResult is the resource-booking system's answer to a tentative move.
type ReserveResult struct {
	// Changed is false when the move would overlap another reservation.
	Changed bool
}

// ConflictGateway talks to the external resource-booking system.
type ConflictGateway interface {
	// CheckAndReserve tries to move the project's delivery window to the new dates.
	CheckAndReserve(ctx context.Context, projectID string, start, end time.Time) (ReserveResult, error)
	// Commit writes the project's display dates once the delivery window move has succeeded.
	Commit(ctx context.Context, projectID string, start, end time.Time) error
}

// Notifier delivers a best-effort message to a member.
type Notifier interface {
	Notify(ctx context.Context, userID, message string) error
}
