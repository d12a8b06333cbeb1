package controller

import (
	"context"
	"testing"

	e "github.com/gartstein/jobboard/internal/jobboard/errors"
	"github.com/gartstein/jobboard/internal/jobboard/events"
	"github.com/gartstein/jobboard/internal/jobboard/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestApplicationService_Apply(t *testing.T) {
	jobID := uuid.New()
	applicant := &models.User{ID: uuid.New(), Role: models.RoleUser}
	recruiter := &models.User{ID: uuid.New(), Role: models.RoleRecruiter}

	tests := []struct {
		name          string
		jobID         uuid.UUID
		user          *models.User
		exists        bool
		expectedError error
	}{
		{name: "successful application", jobID: jobID, user: applicant},
		{name: "recruiters cannot apply", jobID: jobID, user: recruiter, expectedError: e.ErrForbidden},
		{name: "missing job", jobID: uuid.New(), user: applicant, expectedError: e.ErrNotFound},
		{name: "second application", jobID: jobID, user: applicant, exists: true, expectedError: e.ErrConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &MockRepository{
				getJob: func(_ context.Context, id uuid.UUID) (*models.Job, error) {
					if id == jobID {
						return &models.Job{ID: id}, nil
					}
					return nil, e.ErrNotFound
				},
				applicationExists: func(context.Context, uuid.UUID, uuid.UUID) (bool, error) {
					return tt.exists, nil
				},
			}
			producer := &MockProducer{}
			svc := NewApplicationService(repo, producer, zaptest.NewLogger(t))

			application, err := svc.Apply(context.Background(), tt.jobID, tt.user)
			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
				assert.Empty(t, producer.types())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, models.StatusPending, application.Status)
			assert.Equal(t, applicant.ID, application.ApplicantUserID)
			assert.Equal(t, []events.EventType{events.ApplicationSubmitted}, producer.types())
		})
	}
}

func TestApplicationService_ListForJob(t *testing.T) {
	owner := uuid.New()
	jobID := uuid.New()
	repo := &MockRepository{
		getOwnedJob: func(_ context.Context, id, o uuid.UUID) (*models.Job, error) {
			if id == jobID && o == owner {
				return &models.Job{ID: id}, nil
			}
			return nil, e.ErrNotFound
		},
		listApplicationsByJob: func(context.Context, uuid.UUID) ([]models.Application, error) {
			return []models.Application{{JobID: jobID}}, nil
		},
	}
	svc := NewApplicationService(repo, &MockProducer{}, zaptest.NewLogger(t))

	job, applications, err := svc.ListForJob(context.Background(), jobID, owner)
	require.NoError(t, err)
	assert.Equal(t, jobID, job.ID)
	assert.Len(t, applications, 1)

	_, _, err = svc.ListForJob(context.Background(), jobID, uuid.New())
	assert.ErrorIs(t, err, e.ErrForbidden)
}

func TestApplicationService_SetStatus(t *testing.T) {
	owner := uuid.New()
	appID := uuid.New()

	tests := []struct {
		name          string
		current       models.ApplicationStatus
		status        string
		caller        uuid.UUID
		expectedError error
		expectWrite   bool
	}{
		{name: "accept pending", current: models.StatusPending, status: "accepted", caller: owner, expectWrite: true},
		{name: "reject pending", current: models.StatusPending, status: "rejected", caller: owner, expectWrite: true},
		{name: "flip accepted to rejected", current: models.StatusAccepted, status: "rejected", caller: owner, expectWrite: true},
		{name: "same terminal status is a no-op", current: models.StatusRejected, status: "rejected", caller: owner},
		{name: "back to pending", current: models.StatusAccepted, status: "pending", caller: owner, expectedError: e.ErrInvalidTransition},
		{name: "pending to pending", current: models.StatusPending, status: "pending", caller: owner, expectedError: e.ErrInvalidTransition},
		{name: "unknown status", current: models.StatusPending, status: "hired", caller: owner, expectedError: e.ErrInvalidInput},
		{name: "not the job owner", current: models.StatusPending, status: "accepted", caller: uuid.New(), expectedError: e.ErrForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrote := false
			repo := &MockRepository{
				getApplication: func(context.Context, uuid.UUID) (*models.Application, error) {
					return &models.Application{
						ID:     appID,
						Status: tt.current,
						Job:    &models.Job{OwnerUserID: owner},
					}, nil
				},
				updateApplicationStatus: func(_ context.Context, id uuid.UUID, from, to models.ApplicationStatus) error {
					wrote = true
					assert.Equal(t, appID, id)
					assert.Equal(t, tt.current, from)
					assert.EqualValues(t, tt.status, to)
					return nil
				},
			}
			producer := &MockProducer{}
			svc := NewApplicationService(repo, producer, zaptest.NewLogger(t))

			application, err := svc.SetStatus(context.Background(), appID, tt.status, tt.caller)
			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
				assert.False(t, wrote)
				return
			}
			require.NoError(t, err)
			assert.EqualValues(t, tt.status, application.Status)
			assert.Equal(t, tt.expectWrite, wrote)
			if tt.expectWrite {
				require.Len(t, producer.producedEvents, 1)
				change, ok := producer.producedEvents[0].Payload.(models.StatusChange)
				require.True(t, ok)
				assert.Equal(t, tt.current, change.From)
			} else {
				assert.Empty(t, producer.types())
			}
		})
	}
}

func TestApplicationService_SetStatusMissing(t *testing.T) {
	svc := NewApplicationService(&MockRepository{}, &MockProducer{}, zaptest.NewLogger(t))
	_, err := svc.SetStatus(context.Background(), uuid.New(), "accepted", uuid.New())
	assert.ErrorIs(t, err, e.ErrNotFound)
}

func TestApplicationService_SetStatusLostRace(t *testing.T) {
	owner := uuid.New()
	repo := &MockRepository{
		getApplication: func(context.Context, uuid.UUID) (*models.Application, error) {
			return &models.Application{Status: models.StatusPending, Job: &models.Job{OwnerUserID: owner}}, nil
		},
		updateApplicationStatus: func(context.Context, uuid.UUID, models.ApplicationStatus, models.ApplicationStatus) error {
			return e.ErrInvalidTransition
		},
	}
	producer := &MockProducer{}
	svc := NewApplicationService(repo, producer, zaptest.NewLogger(t))

	_, err := svc.SetStatus(context.Background(), uuid.New(), "accepted", owner)
	assert.ErrorIs(t, err, e.ErrInvalidTransition)
	assert.Empty(t, producer.types())
}
