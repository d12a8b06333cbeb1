package db

import (
	"context"

	e "github.com/gartstein/jobboard/internal/jobboard/errors"
	"github.com/gartstein/jobboard/internal/jobboard/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// applicantColumns limits the joined applicant to contact fields.
func applicantColumns(db *gorm.DB) *gorm.DB {
	return db.Select("id", "name", "email", "phone_number")
}

func (r *Repository) CreateApplication(ctx context.Context, application *models.Application) error {
	if err := r.db.WithContext(ctx).Create(application).Error; err != nil {
		return duplicate(err, e.ErrDuplicateApplication)
	}
	return nil
}

func (r *Repository) ApplicationExists(ctx context.Context, jobID, applicant uuid.UUID) (bool, error) {
	var count int64
	result := r.db.WithContext(ctx).Model(&models.Application{}).
		Where("job_id = ? AND applicant_user_id = ?", jobID, applicant).
		Limit(1).
		Count(&count)
	return count > 0, result.Error
}

// GetApplication returns the application with its job loaded.
func (r *Repository) GetApplication(ctx context.Context, id uuid.UUID) (*models.Application, error) {
	var application models.Application
	err := r.db.WithContext(ctx).
		Preload("Job").
		First(&application, "id = ?", id).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &application, nil
}

func (r *Repository) ListApplicationsByApplicant(ctx context.Context, applicant uuid.UUID) ([]models.Application, error) {
	applications := []models.Application{}
	err := r.db.WithContext(ctx).
		Preload("Job").
		Preload("Job.Company").
		Where("applicant_user_id = ?", applicant).
		Order("created_at DESC").
		Find(&applications).Error
	return applications, err
}

func (r *Repository) ListApplicationsByJob(ctx context.Context, jobID uuid.UUID) ([]models.Application, error) {
	applications := []models.Application{}
	err := r.db.WithContext(ctx).
		Preload("Applicant", applicantColumns).
		Where("job_id = ?", jobID).
		Order("created_at DESC").
		Find(&applications).Error
	return applications, err
}

// UpdateApplicationStatus moves an application from one status to another.
// The write only applies while the stored status still equals from.
func (r *Repository) UpdateApplicationStatus(ctx context.Context, id uuid.UUID, from, to models.ApplicationStatus) error {
	result := r.db.WithContext(ctx).Model(&models.Application{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return e.ErrInvalidTransition
	}
	return nil
}
