package controller

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gartstein/jobboard/internal/jobboard/cache"
	e "github.com/gartstein/jobboard/internal/jobboard/errors"
	"github.com/gartstein/jobboard/internal/jobboard/events"
	"github.com/gartstein/jobboard/internal/jobboard/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const maxCompanyNameLength = 120

// CompanyRepository defines the storage interface for Company objects.
type CompanyRepository interface {
	CreateCompany(ctx context.Context, company *models.Company) error
	GetCompany(ctx context.Context, id uuid.UUID) (*models.Company, error)
	ListCompaniesByOwner(ctx context.Context, owner uuid.UUID) ([]models.Company, error)
	CompanyExistsByName(ctx context.Context, name string) (bool, error)
	UpdateCompany(ctx context.Context, company *models.Company) error
	DeleteCompany(ctx context.Context, id, owner uuid.UUID) (*models.Company, []uuid.UUID, error)
}

// CompanyService manages recruiter-owned companies and their logos.
type CompanyService struct {
	repo     CompanyRepository
	producer EventProducer
	cache    Cache
	assets   AssetStore
	logger   *zap.Logger
}

// NewCompanyService constructs a CompanyService.
func NewCompanyService(repo CompanyRepository, producer EventProducer, c Cache, assets AssetStore, logger *zap.Logger) *CompanyService {
	return &CompanyService{
		repo:     repo,
		producer: producer,
		cache:    c,
		assets:   assets,
		logger:   logger.Named("company_service"),
	}
}

func validCompanyName(name string) error {
	if blank(name) {
		return fmt.Errorf("%w: company name is required", e.ErrInvalidInput)
	}
	if len(name) > maxCompanyNameLength {
		return fmt.Errorf("%w: company name too long", e.ErrInvalidInput)
	}
	return nil
}

// Register creates a company named name owned by owner. Only recruiters
// may own companies and names are unique across all owners.
func (s *CompanyService) Register(ctx context.Context, name string, owner *models.User) (*models.Company, error) {
	name = strings.TrimSpace(name)
	if err := validCompanyName(name); err != nil {
		return nil, err
	}
	if owner.Role != models.RoleRecruiter {
		return nil, fmt.Errorf("%w: only recruiters can register companies", e.ErrForbidden)
	}

	exists, err := s.repo.CompanyExistsByName(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to check name existence: %w", err)
	}
	if exists {
		return nil, fmt.Errorf("%w: you can't register same company", e.ErrDuplicateName)
	}

	company := &models.Company{Name: name, OwnerUserID: owner.ID}
	if err := s.repo.CreateCompany(ctx, company); err != nil {
		if errors.Is(err, e.ErrConflict) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create company: %w", err)
	}
	s.producer.Produce(events.CompanyRegistered, company.ID.String(), company)
	return company, nil
}

// ListMine returns every company owned by owner.
func (s *CompanyService) ListMine(ctx context.Context, owner uuid.UUID) ([]models.Company, error) {
	companies, err := s.repo.ListCompaniesByOwner(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to list companies: %w", err)
	}
	return companies, nil
}

// Get retrieves a Company by ID, returning an error if not found.
func (s *CompanyService) Get(ctx context.Context, id uuid.UUID) (*models.Company, error) {
	return cachedLookup(ctx, s.cache, s.logger, cache.CompanyKey(id), "company", func() (*models.Company, error) {
		company, err := s.repo.GetCompany(ctx, id)
		if err != nil {
			if errors.Is(err, e.ErrNotFound) {
				return nil, fmt.Errorf("%w: company not found", e.ErrNotFound)
			}
			return nil, fmt.Errorf("failed to get company: %w", err)
		}
		return company, nil
	})
}

// Update replaces the name and detail fields of an owned company and, when
// a logo is supplied, stores it and points the company at it.
func (s *CompanyService) Update(ctx context.Context, owner uuid.UUID, update *models.CompanyUpdate) (*models.Company, error) {
	if update.ID == uuid.Nil {
		return nil, fmt.Errorf("%w: invalid company ID", e.ErrInvalidInput)
	}
	name := strings.TrimSpace(update.Name)
	if err := validCompanyName(name); err != nil {
		return nil, err
	}

	company, err := s.owned(ctx, update.ID, owner)
	if err != nil {
		return nil, err
	}

	company.Name = name
	company.Description = update.Description
	company.Website = update.Website
	company.Location = update.Location
	return s.save(ctx, company, update.Logo)
}

// UploadLogo stores a new logo for an owned company.
func (s *CompanyService) UploadLogo(ctx context.Context, id, owner uuid.UUID, logo *models.LogoUpload) (*models.Company, error) {
	if logo == nil || logo.Content == nil {
		return nil, fmt.Errorf("%w: logo file is required", e.ErrInvalidInput)
	}
	company, err := s.owned(ctx, id, owner)
	if err != nil {
		return nil, err
	}
	return s.save(ctx, company, logo)
}

// Delete removes an owned company together with its jobs and their
// applications, then drops its logo.
func (s *CompanyService) Delete(ctx context.Context, id, owner uuid.UUID) error {
	company, jobIDs, err := s.repo.DeleteCompany(ctx, id, owner)
	if err != nil {
		if errors.Is(err, e.ErrNotFound) {
			return fmt.Errorf("%w: company not found", e.ErrNotFound)
		}
		return fmt.Errorf("failed to delete company: %w", err)
	}

	if company.Logo != "" {
		if err := s.assets.Delete(ctx, company.Logo); err != nil {
			s.logger.Warn("failed to delete logo",
				zap.String("company_id", company.ID.String()),
				zap.String("logo", company.Logo),
				zap.Error(err),
			)
		}
	}

	keys := []string{cache.CompanyKey(id)}
	for _, jobID := range jobIDs {
		keys = append(keys, cache.JobKey(jobID))
	}
	bury(ctx, s.cache, s.logger, keys...)

	s.producer.Produce(events.CompanyDeleted, company.ID.String(), company)
	return nil
}

// owned loads a company and checks that owner owns it.
func (s *CompanyService) owned(ctx context.Context, id, owner uuid.UUID) (*models.Company, error) {
	company, err := s.repo.GetCompany(ctx, id)
	if err != nil {
		if errors.Is(err, e.ErrNotFound) {
			return nil, fmt.Errorf("%w: company not found", e.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get company: %w", err)
	}
	if company.OwnerUserID != owner {
		return nil, fmt.Errorf("%w: company belongs to another recruiter", e.ErrForbidden)
	}
	return company, nil
}

// save stores logo when given, writes company and removes the new asset
// again if the write fails. The previous logo is left in place.
func (s *CompanyService) save(ctx context.Context, company *models.Company, logo *models.LogoUpload) (*models.Company, error) {
	var stored string
	if logo != nil {
		ref, err := s.assets.Save(ctx, logo)
		if err != nil {
			if errors.Is(err, e.ErrInvalidInput) {
				return nil, err
			}
			return nil, fmt.Errorf("failed to store logo: %w", err)
		}
		stored = ref
		company.Logo = ref
	}

	if err := s.repo.UpdateCompany(ctx, company); err != nil {
		if stored != "" {
			if derr := s.assets.Delete(ctx, stored); derr != nil {
				s.logger.Warn("failed to remove orphaned logo", zap.String("logo", stored), zap.Error(derr))
			}
		}
		if errors.Is(err, e.ErrNotFound) || errors.Is(err, e.ErrConflict) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update company: %w", err)
	}

	refresh(ctx, s.cache, s.logger, cache.CompanyKey(company.ID), company)
	s.producer.Produce(events.CompanyUpdated, company.ID.String(), company)
	return company, nil
}
