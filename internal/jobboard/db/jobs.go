package db

import (
	"context"

	e "github.com/gartstein/jobboard/internal/jobboard/errors"
	"github.com/gartstein/jobboard/internal/jobboard/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// posterColumns limits the joined poster to public fields.
func posterColumns(db *gorm.DB) *gorm.DB {
	return db.Select("id", "name", "email")
}

func (r *Repository) CreateJob(ctx context.Context, job *models.Job) error {
	return r.db.WithContext(ctx).Create(job).Error
}

func (r *Repository) GetJob(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	var job models.Job
	err := r.db.WithContext(ctx).
		Preload("Company").
		First(&job, "id = ?", id).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &job, nil
}

// GetOwnedJob returns the job only when owner posted it.
func (r *Repository) GetOwnedJob(ctx context.Context, id, owner uuid.UUID) (*models.Job, error) {
	var job models.Job
	err := r.db.WithContext(ctx).
		First(&job, "id = ? AND owner_user_id = ?", id, owner).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &job, nil
}

// ListJobs returns every job newest-first with company and poster joined.
func (r *Repository) ListJobs(ctx context.Context) ([]models.Job, error) {
	jobs := []models.Job{}
	err := r.db.WithContext(ctx).
		Preload("Company").
		Preload("Owner", posterColumns).
		Order("created_at DESC").
		Find(&jobs).Error
	return jobs, err
}

// ListJobsByOwner returns the owner's jobs newest-first, each with the
// current number of applications.
func (r *Repository) ListJobsByOwner(ctx context.Context, owner uuid.UUID) ([]models.RecruiterJob, error) {
	var jobs []models.Job
	err := r.db.WithContext(ctx).
		Preload("Company").
		Preload("Owner", posterColumns).
		Where("owner_user_id = ?", owner).
		Order("created_at DESC").
		Find(&jobs).Error
	if err != nil {
		return nil, err
	}

	out := make([]models.RecruiterJob, 0, len(jobs))
	if len(jobs) == 0 {
		return out, nil
	}

	ids := make([]uuid.UUID, len(jobs))
	for i := range jobs {
		ids[i] = jobs[i].ID
	}
	counts, err := r.countApplications(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, job := range jobs {
		out = append(out, models.RecruiterJob{Job: job, ApplicationCount: counts[job.ID]})
	}
	return out, nil
}

type jobApplicationCount struct {
	JobID uuid.UUID
	Total int64
}

func (r *Repository) countApplications(ctx context.Context, jobIDs []uuid.UUID) (map[uuid.UUID]int64, error) {
	var rows []jobApplicationCount
	err := r.db.WithContext(ctx).Model(&models.Application{}).
		Select("job_id, COUNT(*) AS total").
		Where("job_id IN ?", jobIDs).
		Group("job_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[uuid.UUID]int64, len(rows))
	for _, row := range rows {
		counts[row.JobID] = row.Total
	}
	return counts, nil
}

// DeleteJob removes an owned job and its applications.
func (r *Repository) DeleteJob(ctx context.Context, id, owner uuid.UUID) (*models.Job, error) {
	var job models.Job
	err := r.WithTransaction(ctx, func(tx *Repository) error {
		if err := tx.db.First(&job, "id = ? AND owner_user_id = ?", id, owner).Error; err != nil {
			return notFound(err)
		}
		return tx.deleteJobs(id)
	})
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// deleteJobs removes jobs and every application to them. It must run
// inside a transaction.
func (r *Repository) deleteJobs(ids ...uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	if err := r.db.Where("job_id IN ?", ids).Delete(&models.Application{}).Error; err != nil {
		return err
	}
	result := r.db.Where("id IN ?", ids).Delete(&models.Job{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return e.ErrNotFound
	}
	return nil
}
