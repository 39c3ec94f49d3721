package permissions

import (
	"context"
	"fmt"

	"crewcall/internal/domain"
)

// Role codes understood by the oracle. Per-type codes are built with CreatorRole and AdminRole.
const (
	RoleAdmin     = "admin"
	RoleCrewAdmin = "calendar.crew.admin"
)

// CreatorRole is the role that may create events of type t.
func CreatorRole(t domain.EventType) string { return "calendar." + string(t) + ".creator" }

// AdminRole is the role that may manage every event of type t.
func AdminRole(t domain.EventType) string { return "calendar." + string(t) + ".admin" }

type roleCapabilities struct {
	roleRepo domain.RoleRepository
}

// NewRoleCapabilities returns a Capabilities oracle backed by the member's assigned roles.
func NewRoleCapabilities(roleRepo domain.RoleRepository) domain.Capabilities {
	return &roleCapabilities{roleRepo: roleRepo}
}

func (c *roleCapabilities) roles(ctx context.Context, userID string) (map[string]bool, error) {
	list, err := c.roleRepo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	set := make(map[string]bool, len(list))
	for _, r := range list {
		set[r.Code] = true
	}
	return set, nil
}

func (c *roleCapabilities) CanCreate(ctx context.Context, eventType domain.EventType, userID string) (bool, error) {
	roles, err := c.roles(ctx, userID)
	if err != nil {
		return false, err
	}
	return roles[RoleAdmin] || roles[CreatorRole(eventType)] || roles[AdminRole(eventType)], nil
}

func (c *roleCapabilities) CanManage(ctx context.Context, event *domain.Event, userID string) (bool, error) {
	if event.Host == userID || event.CreatedBy == userID {
		return true, nil
	}
	roles, err := c.roles(ctx, userID)
	if err != nil {
		return false, err
	}
	return roles[RoleAdmin] || roles[AdminRole(event.Type)], nil
}

func (c *roleCapabilities) CanManageSignUpSheet(ctx context.Context, event *domain.Event, sheet *domain.SignupSheet, userID string) (bool, error) {
	if event.Host == userID || event.CreatedBy == userID {
		return true, nil
	}
	roles, err := c.roles(ctx, userID)
	if err != nil {
		return false, err
	}
	return roles[RoleAdmin] || roles[AdminRole(event.Type)] || roles[RoleCrewAdmin], nil
}
