// Package models defines the domain entities of the job board.
// The structs double as GORM models and as the JSON shapes returned by the API.
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Role is the account type chosen at registration.
type Role string

const (
	// RoleUser is an applicant account.
	RoleUser      Role = "user"
	RoleRecruiter Role = "recruiter"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleRecruiter
}

// User is a registered account.
type User struct {
	// ID is the unique identifier for the user.
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	// Name is the display name.
	Name string `gorm:"size:120;not null" json:"name"`
	// Email is the login identifier, stored lowercased.
	Email string `gorm:"size:320;uniqueIndex;not null" json:"email"`
	// PasswordHash is the bcrypt hash. It is never serialized.
	PasswordHash string `gorm:"size:255;not null" json:"-"`
	// PhoneNumber is kept as text so leading zeros and "+" survive.
	PhoneNumber string `gorm:"size:32;not null" json:"phoneNumber"`
	// Role is fixed after registration.
	Role      Role      `gorm:"size:16;not null" json:"role"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// BeforeCreate assigns an ID when the caller did not.
func (u *User) BeforeCreate(_ *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}
