package controller

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/gartstein/jobboard/internal/jobboard/cache"
	e "github.com/gartstein/jobboard/internal/jobboard/errors"
	"github.com/gartstein/jobboard/internal/jobboard/events"
	"github.com/gartstein/jobboard/internal/jobboard/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// JobRepository is the storage the job registry needs.
type JobRepository interface {
	GetOwnedCompany(ctx context.Context, id, owner uuid.UUID) (*models.Company, error)
	CreateJob(ctx context.Context, job *models.Job) error
	GetJob(ctx context.Context, id uuid.UUID) (*models.Job, error)
	ListJobs(ctx context.Context) ([]models.Job, error)
	ListJobsByOwner(ctx context.Context, owner uuid.UUID) ([]models.RecruiterJob, error)
	DeleteJob(ctx context.Context, id, owner uuid.UUID) (*models.Job, error)
}

// JobService manages job postings.
type JobService struct {
	repo     JobRepository
	producer EventProducer
	cache    Cache
	logger   *zap.Logger
}

// NewJobService constructs a JobService.
func NewJobService(repo JobRepository, producer EventProducer, c Cache, logger *zap.Logger) *JobService {
	return &JobService{
		repo:     repo,
		producer: producer,
		cache:    c,
		logger:   logger.Named("job_service"),
	}
}

// Post validates draft and creates a job under one of owner's companies.
func (s *JobService) Post(ctx context.Context, owner uuid.UUID, draft *models.JobDraft) (*models.Job, error) {
	job, err := buildJob(draft)
	if err != nil {
		return nil, err
	}

	if _, err := s.repo.GetOwnedCompany(ctx, draft.CompanyID, owner); err != nil {
		if errors.Is(err, e.ErrNotFound) {
			return nil, fmt.Errorf("%w: company does not belong to you", e.ErrForbidden)
		}
		return nil, fmt.Errorf("failed to get company: %w", err)
	}

	job.OwnerUserID = owner
	if err := s.repo.CreateJob(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}
	s.producer.Produce(events.JobPosted, job.ID.String(), job)
	return job, nil
}

// ListAll returns every job, newest first, with company and poster.
func (s *JobService) ListAll(ctx context.Context) ([]models.Job, error) {
	jobs, err := s.repo.ListJobs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	return jobs, nil
}

// ListByRecruiter returns owner's jobs with their application counts.
func (s *JobService) ListByRecruiter(ctx context.Context, owner uuid.UUID) ([]models.RecruiterJob, error) {
	jobs, err := s.repo.ListJobsByOwner(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	return jobs, nil
}

// Get returns one job with its company.
func (s *JobService) Get(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	return cachedLookup(ctx, s.cache, s.logger, cache.JobKey(id), "job", func() (*models.Job, error) {
		job, err := s.repo.GetJob(ctx, id)
		if err != nil {
			if errors.Is(err, e.ErrNotFound) {
				return nil, fmt.Errorf("%w: job not found", e.ErrNotFound)
			}
			return nil, fmt.Errorf("failed to get job: %w", err)
		}
		return job, nil
	})
}

// Delete removes an owned job and its applications.
func (s *JobService) Delete(ctx context.Context, id, owner uuid.UUID) error {
	job, err := s.repo.DeleteJob(ctx, id, owner)
	if err != nil {
		if errors.Is(err, e.ErrNotFound) {
			return fmt.Errorf("%w: job not found", e.ErrNotFound)
		}
		return fmt.Errorf("failed to delete job: %w", err)
	}
	bury(ctx, s.cache, s.logger, cache.JobKey(id))
	s.producer.Produce(events.JobDeleted, job.ID.String(), job)
	return nil
}

func buildJob(draft *models.JobDraft) (*models.Job, error) {
	if blank(draft.Title) || blank(draft.Description) || blank(draft.Location) ||
		blank(draft.JobType) || draft.CompanyID == uuid.Nil {
		return nil, fmt.Errorf("%w: something is missing", e.ErrInvalidInput)
	}

	salary, err := parseAmount("salary", draft.Salary)
	if err != nil {
		return nil, err
	}
	experience, err := parseCount("experienceLevel", draft.ExperienceLevel, 0)
	if err != nil {
		return nil, err
	}
	position, err := parseCount("position", draft.Position, 1)
	if err != nil {
		return nil, err
	}

	reqs := draft.Requirements
	if reqs == nil {
		reqs = strings.Split(draft.RequirementsText, ",")
	}

	return &models.Job{
		Title:           strings.TrimSpace(draft.Title),
		Description:     strings.TrimSpace(draft.Description),
		Requirements:    splitRequirements(reqs),
		Salary:          salary,
		ExperienceLevel: experience,
		Location:        strings.TrimSpace(draft.Location),
		JobType:         strings.TrimSpace(draft.JobType),
		Position:        position,
		CompanyID:       draft.CompanyID,
	}, nil
}

// splitRequirements trims entries and drops blank ones, keeping order.
func splitRequirements(raw []string) []string {
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		if r = strings.TrimSpace(r); r != "" {
			out = append(out, r)
		}
	}
	return out
}

func parseAmount(field, raw string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %s must be a number", e.ErrInvalidInput, field)
	}
	if v < 0 {
		return 0, fmt.Errorf("%w: %s must not be negative", e.ErrInvalidInput, field)
	}
	return v, nil
}

func parseCount(field, raw string, least int) (int, error) {
	v, err := parseAmount(field, raw)
	if err != nil {
		return 0, err
	}
	if v != math.Trunc(v) || v > math.MaxInt32 {
		return 0, fmt.Errorf("%w: %s must be a whole number", e.ErrInvalidInput, field)
	}
	if int(v) < least {
		return 0, fmt.Errorf("%w: %s must be at least %d", e.ErrInvalidInput, field, least)
	}
	return int(v), nil
}
