package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/felixge/httpsnoop"
	"github.com/gartstein/jobboard/internal/jobboard/auth"
	"github.com/gartstein/jobboard/internal/jobboard/controller"
	e "github.com/gartstein/jobboard/internal/jobboard/errors"
	"github.com/gartstein/jobboard/internal/jobboard/metrics"
	"github.com/gartstein/jobboard/internal/jobboard/models"
	"github.com/google/uuid"
	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"go.uber.org/zap"
)

// DefaultMaxBodyBytes caps JSON bodies when no limit is configured.
const DefaultMaxBodyBytes = 1 << 20

// UserController is the credential store as seen by the handlers.
type UserController interface {
	Register(ctx context.Context, in controller.Registration) (*models.User, *controller.Session, error)
	Login(ctx context.Context, email, password, role string) (*models.User, *controller.Session, error)
	Profile(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// CompanyController defines the business logic interface for companies.
type CompanyController interface {
	Register(ctx context.Context, name string, owner *models.User) (*models.Company, error)
	ListMine(ctx context.Context, owner uuid.UUID) ([]models.Company, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Company, error)
	Update(ctx context.Context, owner uuid.UUID, update *models.CompanyUpdate) (*models.Company, error)
	UploadLogo(ctx context.Context, id, owner uuid.UUID, logo *models.LogoUpload) (*models.Company, error)
	Delete(ctx context.Context, id, owner uuid.UUID) error
}

// JobController defines the business logic interface for jobs.
type JobController interface {
	Post(ctx context.Context, owner uuid.UUID, draft *models.JobDraft) (*models.Job, error)
	ListAll(ctx context.Context) ([]models.Job, error)
	ListByRecruiter(ctx context.Context, owner uuid.UUID) ([]models.RecruiterJob, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Job, error)
	Delete(ctx context.Context, id, owner uuid.UUID) error
}

// ApplicationController defines the business logic interface for applications.
type ApplicationController interface {
	Apply(ctx context.Context, jobID uuid.UUID, applicant *models.User) (*models.Application, error)
	ListForApplicant(ctx context.Context, applicant uuid.UUID) ([]models.Application, error)
	ListForJob(ctx context.Context, jobID, caller uuid.UUID) (*models.Job, []models.Application, error)
	SetStatus(ctx context.Context, id uuid.UUID, status string, caller uuid.UUID) (*models.Application, error)
}

// Authenticator resolves the caller of a request.
type Authenticator interface {
	Authenticate(r *http.Request) (*models.User, error)
}

// Validator checks a JSON body against a named schema.
type Validator interface {
	Validate(name string, body []byte) error
}

// APIConfig holds the transport settings of the REST API.
type APIConfig struct {
	CookieSecure bool
	MaxBodyBytes int64
	// MaxUploadBytes caps multipart bodies carrying a logo.
	MaxUploadBytes int64
}

// API serves the REST routes of the job board.
type API struct {
	users        UserController
	companies    CompanyController
	jobs         JobController
	applications ApplicationController
	gate         Authenticator
	validator    Validator
	logger       *zap.Logger

	cookieSecure   bool
	maxBodyBytes   int64
	maxUploadBytes int64
}

// NewAPI wires the controllers behind the REST routes.
func NewAPI(
	users UserController,
	companies CompanyController,
	jobs JobController,
	applications ApplicationController,
	gate Authenticator,
	validator Validator,
	cfg APIConfig,
	logger *zap.Logger,
) *API {
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 6 << 20
	}
	return &API{
		users:          users,
		companies:      companies,
		jobs:           jobs,
		applications:   applications,
		gate:           gate,
		validator:      validator,
		logger:         logger.Named("http_handler"),
		cookieSecure:   cfg.CookieSecure,
		maxBodyBytes:   cfg.MaxBodyBytes,
		maxUploadBytes: cfg.MaxUploadBytes,
	}
}

type route struct {
	method    string
	pattern   string
	protected bool
	handler   runtime.HandlerFunc
}

func (a *API) routes() []route {
	return []route{
		{http.MethodPost, "/api/user/register", false, a.register},
		{http.MethodPost, "/api/user/login", false, a.login},
		{http.MethodGet, "/api/user/logout", false, a.logout},
		{http.MethodGet, "/api/user/profile", true, a.profile},

		{http.MethodPost, "/api/company/register", true, a.registerCompany},
		{http.MethodGet, "/api/company/get", true, a.listCompanies},
		{http.MethodGet, "/api/company/get/{id}", false, a.getCompany},
		{http.MethodPut, "/api/company/update/{id}", true, a.updateCompany},
		{http.MethodPost, "/api/company/upload-logo/{id}", true, a.uploadLogo},
		{http.MethodDelete, "/api/company/delete/{id}", true, a.deleteCompany},

		{http.MethodPost, "/api/job/post", true, a.postJob},
		{http.MethodGet, "/api/job/get", false, a.listJobs},
		{http.MethodGet, "/api/job/recruiter", true, a.listRecruiterJobs},
		{http.MethodGet, "/api/job/get/{id}", false, a.getJob},
		{http.MethodDelete, "/api/job/delete/{id}", true, a.deleteJob},

		{http.MethodPost, "/api/application/apply/{id}", true, a.apply},
		{http.MethodGet, "/api/application/my-applications", true, a.myApplications},
		{http.MethodGet, "/api/application/job/{jobId}", true, a.jobApplications},
		{http.MethodPut, "/api/application/status/{id}", true, a.setStatus},
	}
}

// Register adds every REST route to mux.
func (a *API) Register(mux *runtime.ServeMux) error {
	for _, rt := range a.routes() {
		h := rt.handler
		if rt.protected {
			h = a.protect(h)
		}
		if err := mux.HandlePath(rt.method, rt.pattern, instrument(rt.method, rt.pattern, h)); err != nil {
			return fmt.Errorf("register %s %s: %w", rt.method, rt.pattern, err)
		}
	}
	return nil
}

// protect rejects requests without a valid session and attaches the caller
// to the request context.
func (a *API) protect(next runtime.HandlerFunc) runtime.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request, params map[string]string) {
		user, err := a.gate.Authenticate(r)
		if err != nil {
			a.writeError(w, r, err)
			return
		}
		next(w, r.WithContext(auth.WithUser(r.Context(), user)), params)
	}
}

// instrument records request count and latency per route pattern.
func instrument(method, pattern string, next runtime.HandlerFunc) runtime.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request, params map[string]string) {
		m := httpsnoop.CaptureMetrics(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next(w, r, params)
		}), w, r)
		metrics.HTTPRequests.WithLabelValues(method, pattern, strconv.Itoa(m.Code)).Inc()
		metrics.HTTPDuration.WithLabelValues(method, pattern).Observe(m.Duration.Seconds())
	}
}

// caller returns the user attached by protect.
func caller(r *http.Request) *models.User {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		// protect always attaches a user; reaching here is a wiring bug.
		panic("handlers: protected route without user")
	}
	return user
}

func pathID(params map[string]string, name, what string) (uuid.UUID, error) {
	id, err := uuid.Parse(params[name])
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid %s ID", e.ErrInvalidInput, what)
	}
	return id, nil
}
