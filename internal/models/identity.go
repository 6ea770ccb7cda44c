package models

import (
	"time"

	"github.com/google/uuid"
)

// Role is a member's role inside an organization
type Role string

const (
	RoleOwner   Role = "owner"
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleUser    Role = "user"
	RoleViewer  Role = "viewer"
)

// ValidRole reports whether r is a known membership role.
func ValidRole(r Role) bool {
	switch r {
	case RoleOwner, RoleAdmin, RoleManager, RoleUser, RoleViewer:
		return true
	}
	return false
}

// Organization is the tenant. ExternalID is the identity provider's
// organization id; ID is the internal key every tenant-owned row is
// scoped by.
type Organization struct {
	Audited
	ExternalID     string `json:"external_id" gorm:"uniqueIndex;not null"`
	Name           string `json:"name" gorm:"not null"`
	Slug           string `json:"slug" gorm:"index"`
	Email          string `json:"email"`
	Phone          string `json:"phone"`
	Address        string `json:"address"`
	City           string `json:"city"`
	Country        string `json:"country"`
	Industry       string `json:"industry"`
	IsActive       bool   `json:"is_active" gorm:"default:true"`
	SetupCompleted bool   `json:"setup_completed" gorm:"default:false"`
}

// AppUser is a person known to the identity provider. Users are global;
// membership in organizations is modeled by OrganizationUser.
type AppUser struct {
	Audited
	ExternalID            string     `json:"external_id" gorm:"uniqueIndex;not null"`
	Email                 string     `json:"email" gorm:"index"`
	FirstName             string     `json:"first_name"`
	LastName              string     `json:"last_name"`
	ImageURL              string     `json:"image_url"`
	CurrentOrganizationID *uuid.UUID `json:"current_organization_id" gorm:"type:uuid"`
}

// OrganizationUser links a user to an organization with a role.
type OrganizationUser struct {
	Audited
	OrganizationID uuid.UUID `json:"organization_id" gorm:"type:uuid;index;not null;uniqueIndex:idx_org_user"`
	UserID         uuid.UUID `json:"user_id" gorm:"type:uuid;index;not null;uniqueIndex:idx_org_user"`
	Role           Role      `json:"role" gorm:"not null;default:'user'"`
	IsActive       bool      `json:"is_active" gorm:"default:true"`
	JoinedAt       time.Time `json:"joined_at"`

	User *AppUser `json:"user,omitempty" gorm:"foreignKey:UserID"`
}
