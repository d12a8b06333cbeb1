package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// Job is a posting owned by a recruiter and tied to one of their companies.
type Job struct {
	ID              uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Title           string         `gorm:"size:200;not null" json:"title"`
	Description     string         `gorm:"size:5000;not null" json:"description"`
	Requirements    pq.StringArray `gorm:"type:text[]" json:"requirements"`
	Salary          float64        `gorm:"not null" json:"salary"`
	ExperienceLevel int            `gorm:"not null" json:"experienceLevel"`
	Location        string         `gorm:"size:200;not null" json:"location"`
	JobType         string         `gorm:"size:100;not null" json:"jobType"`
	Position        int            `gorm:"not null" json:"position"`
	CompanyID       uuid.UUID      `gorm:"type:uuid;index;not null" json:"companyId"`
	OwnerUserID     uuid.UUID      `gorm:"type:uuid;index;not null" json:"createdBy"`
	CreatedAt       time.Time      `json:"createdAt"`
	UpdatedAt       time.Time      `json:"updatedAt"`

	// Company and Owner are populated by read-time joins only.
	Company *Company `gorm:"foreignKey:CompanyID" json:"company,omitempty"`
	Owner   *User    `gorm:"foreignKey:OwnerUserID" json:"owner,omitempty"`
}

// BeforeCreate assigns an ID when the caller did not.
func (j *Job) BeforeCreate(_ *gorm.DB) error {
	if j.ID == uuid.Nil {
		j.ID = uuid.New()
	}
	return nil
}

// JobDraft is the unvalidated input of a job posting. Numeric fields arrive
// as text and are coerced by the job service.
type JobDraft struct {
	Title       string
	Description string
	// Requirements is set when the client sent a list; RequirementsText when
	// it sent a single comma-separated string.
	Requirements     []string
	RequirementsText string
	Salary           string
	ExperienceLevel  string
	Location         string
	JobType          string
	Position         string
	CompanyID        uuid.UUID
}

// RecruiterJob is a job annotated with its live application count.
type RecruiterJob struct {
	Job
	ApplicationCount int64 `json:"applicationCount"`
}
