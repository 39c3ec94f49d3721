package domain

import (
	"context"
	"time"
)

// User is a member as far as scheduling needs to know about them.
// swagger:model User
type User struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	LastName string `json:"last_name"`
}

// DisplayName returns the member's full name, falling back to the email address.
func (u *User) DisplayName() string {
	name := u.Name
	if u.LastName != "" {
		if name != "" {
			name += " "
		}
		name += u.LastName
	}
	if name == "" {
		return u.Email
	}
	return name
}

// Role represents an application role (e.g. admin, calendar.show.admin)
type Role struct {
	ID   string `json:"id"`
	Code string `json:"code"`
}

// TokenIssuer issues tokens (e.g. JWT) for an authenticated user.
type TokenIssuer interface {
	Issue(userID, email string, roles []string, expiry time.Duration) (string, error)
}

// TokenVerifier verifies a token and returns the authenticated user ID.
type TokenVerifier interface {
	Verify(token string) (userID string, err error)
}

// UserRepository defines read access to members.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*User, error)
}

// RoleRepository defines the interface for role storage
type RoleRepository interface {
	ListByUserID(ctx context.Context, userID string) ([]*Role, error)
}

// CalendarFeed renders a member's events as an iCalendar document.
type CalendarFeed interface {
	Render(userID string, events []*EventObject) string
}
