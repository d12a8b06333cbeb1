package controller

import (
	"context"
	"encoding/json"
	"io"
	"sync"

	"github.com/gartstein/jobboard/internal/jobboard/cache"
	e "github.com/gartstein/jobboard/internal/jobboard/errors"
	"github.com/gartstein/jobboard/internal/jobboard/events"
	"github.com/gartstein/jobboard/internal/jobboard/models"
	"github.com/google/uuid"
)

// MockRepository implements every repository interface of the package.
// Unset functions fail the call with ErrNotFound.
type MockRepository struct {
	createUser        func(context.Context, *models.User) error
	getUser           func(context.Context, uuid.UUID) (*models.User, error)
	getUserByEmail    func(context.Context, string) (*models.User, error)
	userExistsByEmail func(context.Context, string) (bool, error)

	createCompany        func(context.Context, *models.Company) error
	getCompany           func(context.Context, uuid.UUID) (*models.Company, error)
	getOwnedCompany      func(context.Context, uuid.UUID, uuid.UUID) (*models.Company, error)
	listCompaniesByOwner func(context.Context, uuid.UUID) ([]models.Company, error)
	companyExistsByName  func(context.Context, string) (bool, error)
	updateCompany        func(context.Context, *models.Company) error
	deleteCompany        func(context.Context, uuid.UUID, uuid.UUID) (*models.Company, []uuid.UUID, error)

	createJob       func(context.Context, *models.Job) error
	getJob          func(context.Context, uuid.UUID) (*models.Job, error)
	getOwnedJob     func(context.Context, uuid.UUID, uuid.UUID) (*models.Job, error)
	listJobs        func(context.Context) ([]models.Job, error)
	listJobsByOwner func(context.Context, uuid.UUID) ([]models.RecruiterJob, error)
	deleteJob       func(context.Context, uuid.UUID, uuid.UUID) (*models.Job, error)

	applicationExists           func(context.Context, uuid.UUID, uuid.UUID) (bool, error)
	createApplication           func(context.Context, *models.Application) error
	getApplication              func(context.Context, uuid.UUID) (*models.Application, error)
	listApplicationsByApplicant func(context.Context, uuid.UUID) ([]models.Application, error)
	listApplicationsByJob       func(context.Context, uuid.UUID) ([]models.Application, error)
	updateApplicationStatus     func(context.Context, uuid.UUID, models.ApplicationStatus, models.ApplicationStatus) error
}

func (m *MockRepository) CreateUser(ctx context.Context, u *models.User) error {
	if m.createUser == nil {
		u.ID = uuid.New()
		return nil
	}
	return m.createUser(ctx, u)
}

func (m *MockRepository) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if m.getUser == nil {
		return nil, e.ErrNotFound
	}
	return m.getUser(ctx, id)
}

func (m *MockRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.getUserByEmail == nil {
		return nil, e.ErrNotFound
	}
	return m.getUserByEmail(ctx, email)
}

func (m *MockRepository) UserExistsByEmail(ctx context.Context, email string) (bool, error) {
	if m.userExistsByEmail == nil {
		return false, nil
	}
	return m.userExistsByEmail(ctx, email)
}

func (m *MockRepository) CreateCompany(ctx context.Context, c *models.Company) error {
	if m.createCompany == nil {
		c.ID = uuid.New()
		return nil
	}
	return m.createCompany(ctx, c)
}

func (m *MockRepository) GetCompany(ctx context.Context, id uuid.UUID) (*models.Company, error) {
	if m.getCompany == nil {
		return nil, e.ErrNotFound
	}
	return m.getCompany(ctx, id)
}

func (m *MockRepository) GetOwnedCompany(ctx context.Context, id, owner uuid.UUID) (*models.Company, error) {
	if m.getOwnedCompany == nil {
		return nil, e.ErrNotFound
	}
	return m.getOwnedCompany(ctx, id, owner)
}

func (m *MockRepository) ListCompaniesByOwner(ctx context.Context, owner uuid.UUID) ([]models.Company, error) {
	return m.listCompaniesByOwner(ctx, owner)
}

func (m *MockRepository) CompanyExistsByName(ctx context.Context, name string) (bool, error) {
	if m.companyExistsByName == nil {
		return false, nil
	}
	return m.companyExistsByName(ctx, name)
}

func (m *MockRepository) UpdateCompany(ctx context.Context, c *models.Company) error {
	if m.updateCompany == nil {
		return nil
	}
	return m.updateCompany(ctx, c)
}

func (m *MockRepository) DeleteCompany(ctx context.Context, id, owner uuid.UUID) (*models.Company, []uuid.UUID, error) {
	if m.deleteCompany == nil {
		return nil, nil, e.ErrNotFound
	}
	return m.deleteCompany(ctx, id, owner)
}

func (m *MockRepository) CreateJob(ctx context.Context, j *models.Job) error {
	if m.createJob == nil {
		j.ID = uuid.New()
		return nil
	}
	return m.createJob(ctx, j)
}

func (m *MockRepository) GetJob(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	if m.getJob == nil {
		return nil, e.ErrNotFound
	}
	return m.getJob(ctx, id)
}

func (m *MockRepository) GetOwnedJob(ctx context.Context, id, owner uuid.UUID) (*models.Job, error) {
	if m.getOwnedJob == nil {
		return nil, e.ErrNotFound
	}
	return m.getOwnedJob(ctx, id, owner)
}

func (m *MockRepository) ListJobs(ctx context.Context) ([]models.Job, error) {
	return m.listJobs(ctx)
}

func (m *MockRepository) ListJobsByOwner(ctx context.Context, owner uuid.UUID) ([]models.RecruiterJob, error) {
	return m.listJobsByOwner(ctx, owner)
}

func (m *MockRepository) DeleteJob(ctx context.Context, id, owner uuid.UUID) (*models.Job, error) {
	if m.deleteJob == nil {
		return nil, e.ErrNotFound
	}
	return m.deleteJob(ctx, id, owner)
}

func (m *MockRepository) ApplicationExists(ctx context.Context, jobID, applicant uuid.UUID) (bool, error) {
	if m.applicationExists == nil {
		return false, nil
	}
	return m.applicationExists(ctx, jobID, applicant)
}

func (m *MockRepository) CreateApplication(ctx context.Context, a *models.Application) error {
	if m.createApplication == nil {
		a.ID = uuid.New()
		return nil
	}
	return m.createApplication(ctx, a)
}

func (m *MockRepository) GetApplication(ctx context.Context, id uuid.UUID) (*models.Application, error) {
	if m.getApplication == nil {
		return nil, e.ErrNotFound
	}
	return m.getApplication(ctx, id)
}

func (m *MockRepository) ListApplicationsByApplicant(ctx context.Context, applicant uuid.UUID) ([]models.Application, error) {
	return m.listApplicationsByApplicant(ctx, applicant)
}

func (m *MockRepository) ListApplicationsByJob(ctx context.Context, jobID uuid.UUID) ([]models.Application, error) {
	return m.listApplicationsByJob(ctx, jobID)
}

func (m *MockRepository) UpdateApplicationStatus(ctx context.Context, id uuid.UUID, from, to models.ApplicationStatus) error {
	if m.updateApplicationStatus == nil {
		return nil
	}
	return m.updateApplicationStatus(ctx, id, from, to)
}

// producedEvent is one recorded Produce call.
type producedEvent struct {
	Type    events.EventType
	Key     string
	Payload interface{}
}

// MockProducer is a test double for the Kafka producer.
type MockProducer struct {
	mu             sync.Mutex
	producedEvents []producedEvent
}

// Produce records the event.
func (m *MockProducer) Produce(eventType events.EventType, key string, payload interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.producedEvents = append(m.producedEvents, producedEvent{eventType, key, payload})
}

func (m *MockProducer) types() []events.EventType {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]events.EventType, 0, len(m.producedEvents))
	for _, ev := range m.producedEvents {
		out = append(out, ev.Type)
	}
	return out
}

// mapCache is an in-process Cache storing JSON like the Redis cache does.
type mapCache struct {
	entries map[string][]byte
	gone    map[string]bool
	buried  []string
	getErr  error
}

func newMapCache() *mapCache {
	return &mapCache{entries: map[string][]byte{}, gone: map[string]bool{}}
}

func (c *mapCache) Get(_ context.Context, key string, dst interface{}) (bool, error) {
	if c.getErr != nil {
		return false, c.getErr
	}
	if c.gone[key] {
		return false, cache.ErrGone
	}
	raw, ok := c.entries[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dst)
}

func (c *mapCache) Set(_ context.Context, key string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	delete(c.gone, key)
	c.entries[key] = raw
	return nil
}

func (c *mapCache) Fill(ctx context.Context, key string, value interface{}) error {
	if _, ok := c.entries[key]; ok || c.gone[key] {
		return nil
	}
	return c.Set(ctx, key, value)
}

func (c *mapCache) Tombstone(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(c.entries, k)
		c.gone[k] = true
	}
	c.buried = append(c.buried, keys...)
	return nil
}

// mockAssets records saved and deleted logo references.
type mockAssets struct {
	saveErr   error
	deleteErr error
	saved     []string
	deleted   []string
}

func (m *mockAssets) Save(_ context.Context, logo *models.LogoUpload) (string, error) {
	if m.saveErr != nil {
		return "", m.saveErr
	}
	if _, err := io.ReadAll(logo.Content); err != nil {
		return "", err
	}
	ref := "/uploads/logo-" + uuid.NewString() + ".png"
	m.saved = append(m.saved, ref)
	return ref, nil
}

func (m *mockAssets) Delete(_ context.Context, ref string) error {
	m.deleted = append(m.deleted, ref)
	return m.deleteErr
}
