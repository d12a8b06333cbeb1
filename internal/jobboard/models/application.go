package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ApplicationStatus is the recruiter's decision on an application.
type ApplicationStatus string

const (
	StatusPending  ApplicationStatus = "pending"
	StatusAccepted ApplicationStatus = "accepted"
	StatusRejected ApplicationStatus = "rejected"
)

// ParseApplicationStatus validates a client-supplied status.
func ParseApplicationStatus(s string) (ApplicationStatus, bool) {
	switch st := ApplicationStatus(s); st {
	case StatusPending, StatusAccepted, StatusRejected:
		return st, true
	default:
		return "", false
	}
}

// CanTransition reports whether an application may move from s to next.
// Applications start pending, may be accepted or rejected, and may flip
// between accepted and rejected; none return to pending. Rewriting the
// current decision is allowed and changes nothing.
func (s ApplicationStatus) CanTransition(next ApplicationStatus) bool {
	switch next {
	case StatusAccepted, StatusRejected:
		return s == StatusPending || s == StatusAccepted || s == StatusRejected
	default:
		return false
	}
}

// Application is one applicant's application to one job.
// The (JobID, ApplicantUserID) pair is unique.
type Application struct {
	ID              uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	JobID           uuid.UUID         `gorm:"type:uuid;not null;uniqueIndex:idx_applications_job_applicant" json:"jobId"`
	ApplicantUserID uuid.UUID         `gorm:"type:uuid;not null;uniqueIndex:idx_applications_job_applicant;index" json:"applicantId"`
	Status          ApplicationStatus `gorm:"size:16;not null;default:pending" json:"status"`
	CreatedAt       time.Time         `json:"createdAt"`
	UpdatedAt       time.Time         `json:"updatedAt"`

	Job       *Job  `gorm:"foreignKey:JobID" json:"job,omitempty"`
	Applicant *User `gorm:"foreignKey:ApplicantUserID" json:"applicant,omitempty"`
}

// BeforeCreate assigns an ID when the caller did not.
func (a *Application) BeforeCreate(_ *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// StatusChange is the payload of an application status event.
type StatusChange struct {
	ApplicationID   uuid.UUID         `json:"applicationId"`
	JobID           uuid.UUID         `json:"jobId"`
	ApplicantUserID uuid.UUID         `json:"applicantId"`
	From            ApplicationStatus `json:"from"`
	To              ApplicationStatus `json:"to"`
}
