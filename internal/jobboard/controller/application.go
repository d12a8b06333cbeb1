package controller

import (
	"context"
	"errors"
	"fmt"

	e "github.com/gartstein/jobboard/internal/jobboard/errors"
	"github.com/gartstein/jobboard/internal/jobboard/events"
	"github.com/gartstein/jobboard/internal/jobboard/metrics"
	"github.com/gartstein/jobboard/internal/jobboard/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ApplicationRepository is the storage the application ledger needs.
type ApplicationRepository interface {
	GetJob(ctx context.Context, id uuid.UUID) (*models.Job, error)
	GetOwnedJob(ctx context.Context, id, owner uuid.UUID) (*models.Job, error)
	ApplicationExists(ctx context.Context, jobID, applicant uuid.UUID) (bool, error)
	CreateApplication(ctx context.Context, application *models.Application) error
	GetApplication(ctx context.Context, id uuid.UUID) (*models.Application, error)
	ListApplicationsByApplicant(ctx context.Context, applicant uuid.UUID) ([]models.Application, error)
	ListApplicationsByJob(ctx context.Context, jobID uuid.UUID) ([]models.Application, error)
	UpdateApplicationStatus(ctx context.Context, id uuid.UUID, from, to models.ApplicationStatus) error
}

// ApplicationService records applications and recruiter decisions.
type ApplicationService struct {
	repo     ApplicationRepository
	producer EventProducer
	logger   *zap.Logger
}

// NewApplicationService constructs an ApplicationService.
func NewApplicationService(repo ApplicationRepository, producer EventProducer, logger *zap.Logger) *ApplicationService {
	return &ApplicationService{
		repo:     repo,
		producer: producer,
		logger:   logger.Named("application_service"),
	}
}

// Apply files a pending application of applicant to a job. Each applicant
// may apply to a job once.
func (s *ApplicationService) Apply(ctx context.Context, jobID uuid.UUID, applicant *models.User) (*models.Application, error) {
	if applicant.Role != models.RoleUser {
		return nil, fmt.Errorf("%w: only applicants can apply for jobs", e.ErrForbidden)
	}

	if _, err := s.repo.GetJob(ctx, jobID); err != nil {
		if errors.Is(err, e.ErrNotFound) {
			return nil, fmt.Errorf("%w: job not found", e.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}

	exists, err := s.repo.ApplicationExists(ctx, jobID, applicant.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing application: %w", err)
	}
	if exists {
		return nil, e.ErrDuplicateApplication
	}

	application := &models.Application{
		JobID:           jobID,
		ApplicantUserID: applicant.ID,
		Status:          models.StatusPending,
	}
	if err := s.repo.CreateApplication(ctx, application); err != nil {
		if errors.Is(err, e.ErrConflict) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create application: %w", err)
	}
	s.producer.Produce(events.ApplicationSubmitted, application.ID.String(), application)
	return application, nil
}

// ListForApplicant returns applicant's applications with job and company.
func (s *ApplicationService) ListForApplicant(ctx context.Context, applicant uuid.UUID) ([]models.Application, error) {
	applications, err := s.repo.ListApplicationsByApplicant(ctx, applicant)
	if err != nil {
		return nil, fmt.Errorf("failed to list applications: %w", err)
	}
	return applications, nil
}

// ListForJob returns the applicants of a job owned by caller.
func (s *ApplicationService) ListForJob(ctx context.Context, jobID, caller uuid.UUID) (*models.Job, []models.Application, error) {
	job, err := s.repo.GetOwnedJob(ctx, jobID, caller)
	if err != nil {
		if errors.Is(err, e.ErrNotFound) {
			return nil, nil, fmt.Errorf("%w: job does not belong to you", e.ErrForbidden)
		}
		return nil, nil, fmt.Errorf("failed to get job: %w", err)
	}

	applications, err := s.repo.ListApplicationsByJob(ctx, jobID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list applicants: %w", err)
	}
	return job, applications, nil
}

// SetStatus records the decision of the job's owner on an application.
func (s *ApplicationService) SetStatus(ctx context.Context, id uuid.UUID, status string, caller uuid.UUID) (*models.Application, error) {
	next, ok := models.ParseApplicationStatus(status)
	if !ok {
		return nil, fmt.Errorf("%w: invalid status %q", e.ErrInvalidInput, status)
	}

	application, err := s.repo.GetApplication(ctx, id)
	if err != nil {
		if errors.Is(err, e.ErrNotFound) {
			return nil, fmt.Errorf("%w: application not found", e.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get application: %w", err)
	}
	if application.Job == nil || application.Job.OwnerUserID != caller {
		return nil, fmt.Errorf("%w: job does not belong to you", e.ErrForbidden)
	}

	current := application.Status
	if !current.CanTransition(next) {
		return nil, fmt.Errorf("%w: %s to %s", e.ErrInvalidTransition, current, next)
	}
	if current == next {
		return application, nil
	}

	if err := s.repo.UpdateApplicationStatus(ctx, id, current, next); err != nil {
		if errors.Is(err, e.ErrConflict) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update status: %w", err)
	}
	application.Status = next
	metrics.ApplicationStatusChanges.WithLabelValues(string(next)).Inc()

	s.producer.Produce(events.ApplicationStatusChanged, application.ID.String(), models.StatusChange{
		ApplicationID:   application.ID,
		JobID:           application.JobID,
		ApplicantUserID: application.ApplicantUserID,
		From:            current,
		To:              next,
	})
	return application, nil
}
