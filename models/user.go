package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Well-known role names
const (
	RoleAdmin    = "Admin"
	RoleManager  = "Manager"
	RoleEngineer = "Engineer"
	RoleViewer   = "Viewer"
)

// DefaultRoles are created by the seed procedure
var DefaultRoles = []string{RoleAdmin, RoleManager, RoleEngineer, RoleViewer}

// User represents an account that can sign in
type User struct {
	ID                 string    `json:"id" gorm:"primaryKey;size:36"`
	UserName           string    `json:"userName" gorm:"size:256;not null"`
	NormalizedUserName string    `json:"-" gorm:"size:256;uniqueIndex;not null"`
	Email              string    `json:"email" gorm:"size:256;not null"`
	NormalizedEmail    string    `json:"-" gorm:"size:256;uniqueIndex;not null"`
	PasswordHash       string    `json:"-" gorm:"not null"`
	CreatedAt          time.Time `json:"createdAt"`

	// Relations
	Roles []Role `json:"roles,omitempty" gorm:"many2many:user_roles;constraint:OnDelete:CASCADE"`
}

// TableName sets the table name for User model
func (User) TableName() string {
	return "users"
}

// BeforeCreate assigns an id and fills the normalized columns
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	u.Normalize()
	return nil
}

// Normalize refreshes the upper-cased lookup columns
func (u *User) Normalize() {
	u.NormalizedUserName = NormalizeName(u.UserName)
	u.NormalizedEmail = NormalizeName(u.Email)
}

// RoleNames returns the names of the loaded roles
func (u User) RoleNames() []string {
	names := make([]string, 0, len(u.Roles))
	for _, r := range u.Roles {
		names = append(names, r.Name)
	}
	return names
}

// Role represents a named permission group
type Role struct {
	ID             string `json:"id" gorm:"primaryKey;size:36"`
	Name           string `json:"name" gorm:"size:256;not null"`
	NormalizedName string `json:"-" gorm:"size:256;uniqueIndex;not null"`
}

// TableName sets the table name for Role model
func (Role) TableName() string {
	return "roles"
}

// BeforeCreate assigns an id and fills the normalized name
func (r *Role) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	r.NormalizedName = NormalizeName(r.Name)
	return nil
}

// NormalizeName produces the case-insensitive lookup key for names and emails
func NormalizeName(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
