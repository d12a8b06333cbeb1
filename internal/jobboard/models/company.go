package models

import (
	"io"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Company is a recruiter-owned company profile.
type Company struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name        string    `gorm:"size:120;uniqueIndex;not null" json:"name"`
	Description string    `gorm:"size:3000" json:"description"`
	Website     string    `gorm:"size:500" json:"website"`
	Location    string    `gorm:"size:200" json:"location"`
	// Logo is a relative reference such as "/uploads/logo-<id>.png",
	// resolved by clients against the API base URL.
	Logo        string    `gorm:"size:500" json:"logo"`
	OwnerUserID uuid.UUID `gorm:"type:uuid;index;not null" json:"userId"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// BeforeCreate assigns an ID when the caller did not.
func (c *Company) BeforeCreate(_ *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// CompanyUpdate carries the detail fields of the second registration phase.
// Description, Website and Location replace the stored values wholesale.
type CompanyUpdate struct {
	ID          uuid.UUID
	Name        string
	Description string
	Website     string
	Location    string
	// Logo is optional; when set, its stored reference replaces the previous one.
	Logo *LogoUpload
}

// LogoUpload is an image supplied with a company update.
type LogoUpload struct {
	Filename    string
	ContentType string
	Content     io.Reader
}
