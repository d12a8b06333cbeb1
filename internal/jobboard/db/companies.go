package db

import (
	"context"

	e "github.com/gartstein/jobboard/internal/jobboard/errors"
	"github.com/gartstein/jobboard/internal/jobboard/models"
	"github.com/google/uuid"
)

func (r *Repository) CreateCompany(ctx context.Context, company *models.Company) error {
	if err := r.db.WithContext(ctx).Create(company).Error; err != nil {
		return duplicate(err, e.ErrDuplicateName)
	}
	return nil
}

func (r *Repository) GetCompany(ctx context.Context, id uuid.UUID) (*models.Company, error) {
	var company models.Company
	if err := r.db.WithContext(ctx).First(&company, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &company, nil
}

// GetOwnedCompany returns the company only when owner owns it.
func (r *Repository) GetOwnedCompany(ctx context.Context, id, owner uuid.UUID) (*models.Company, error) {
	var company models.Company
	err := r.db.WithContext(ctx).
		First(&company, "id = ? AND owner_user_id = ?", id, owner).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &company, nil
}

func (r *Repository) ListCompaniesByOwner(ctx context.Context, owner uuid.UUID) ([]models.Company, error) {
	companies := []models.Company{}
	err := r.db.WithContext(ctx).
		Where("owner_user_id = ?", owner).
		Order("created_at DESC").
		Find(&companies).Error
	return companies, err
}

func (r *Repository) CompanyExistsByName(ctx context.Context, name string) (bool, error) {
	var count int64
	result := r.db.WithContext(ctx).Model(&models.Company{}).
		Select("name").
		Where("name = ?", name).
		Limit(1).
		Count(&count)
	return count > 0, result.Error
}

// UpdateCompany writes name, detail fields and logo wholesale, empty
// strings included.
func (r *Repository) UpdateCompany(ctx context.Context, company *models.Company) error {
	result := r.db.WithContext(ctx).Model(&models.Company{}).
		Where("id = ?", company.ID).
		Updates(map[string]interface{}{
			"name":        company.Name,
			"description": company.Description,
			"website":     company.Website,
			"location":    company.Location,
			"logo":        company.Logo,
		})

	if result.Error != nil {
		return duplicate(result.Error, e.ErrDuplicateName)
	}
	if result.RowsAffected == 0 {
		return e.ErrNotFound
	}
	return nil
}

// DeleteCompany removes an owned company together with its jobs and their
// applications. It returns the removed company and the ids of removed jobs.
func (r *Repository) DeleteCompany(ctx context.Context, id, owner uuid.UUID) (*models.Company, []uuid.UUID, error) {
	var company models.Company
	var jobIDs []uuid.UUID

	err := r.WithTransaction(ctx, func(tx *Repository) error {
		if err := tx.db.First(&company, "id = ? AND owner_user_id = ?", id, owner).Error; err != nil {
			return notFound(err)
		}
		if err := tx.db.Model(&models.Job{}).Where("company_id = ?", id).Pluck("id", &jobIDs).Error; err != nil {
			return err
		}
		if err := tx.deleteJobs(jobIDs...); err != nil {
			return err
		}
		return tx.db.Delete(&models.Company{}, "id = ?", id).Error
	})
	if err != nil {
		return nil, nil, err
	}
	return &company, jobIDs, nil
}
