package controller

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gartstein/jobboard/internal/jobboard/auth"
	e "github.com/gartstein/jobboard/internal/jobboard/errors"
	"github.com/gartstein/jobboard/internal/jobboard/events"
	"github.com/gartstein/jobboard/internal/jobboard/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// UserRepository is the storage the credential store needs.
type UserRepository interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	UserExistsByEmail(ctx context.Context, email string) (bool, error)
}

// Registration is the input of UserService.Register.
type Registration struct {
	Name        string
	Email       string
	Password    string
	PhoneNumber string
	Role        string
}

// Session is an issued session token.
type Session struct {
	Token     string
	ExpiresAt time.Time
}

// UserService registers accounts and issues session tokens.
type UserService struct {
	repo       UserRepository
	producer   EventProducer
	logger     *zap.Logger
	jwtSecret  string
	bcryptCost int
	now        func() time.Time
}

// NewUserService constructs a UserService hashing passwords at bcryptCost
// and signing tokens with jwtSecret.
func NewUserService(repo UserRepository, producer EventProducer, jwtSecret string, bcryptCost int, logger *zap.Logger) *UserService {
	return &UserService{
		repo:       repo,
		producer:   producer,
		logger:     logger.Named("user_service"),
		jwtSecret:  jwtSecret,
		bcryptCost: bcryptCost,
		now:        time.Now,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates an account and signs the user in.
func (s *UserService) Register(ctx context.Context, in Registration) (*models.User, *Session, error) {
	if blank(in.Name) || blank(in.Email) || in.Password == "" || blank(in.PhoneNumber) || in.Role == "" {
		return nil, nil, fmt.Errorf("%w: something is missing", e.ErrInvalidInput)
	}
	role := models.Role(in.Role)
	if !role.Valid() {
		return nil, nil, fmt.Errorf("%w: unknown role %q", e.ErrInvalidInput, in.Role)
	}

	email := normalizeEmail(in.Email)
	exists, err := s.repo.UserExistsByEmail(ctx, email)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to check email existence: %w", err)
	}
	if exists {
		return nil, nil, e.ErrDuplicateEmail
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.bcryptCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return nil, nil, fmt.Errorf("%w: password too long", e.ErrInvalidInput)
		}
		return nil, nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Name:         strings.TrimSpace(in.Name),
		Email:        email,
		PasswordHash: string(hash),
		PhoneNumber:  strings.TrimSpace(in.PhoneNumber),
		Role:         role,
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, e.ErrConflict) {
			return nil, nil, err
		}
		return nil, nil, fmt.Errorf("failed to create user: %w", err)
	}

	session, err := s.issue(user)
	if err != nil {
		return nil, nil, err
	}
	s.producer.Produce(events.UserRegistered, user.ID.String(), user)
	return user, session, nil
}

// Login verifies credentials and the role the client signs in as.
func (s *UserService) Login(ctx context.Context, email, password, role string) (*models.User, *Session, error) {
	if blank(email) || password == "" || role == "" {
		return nil, nil, fmt.Errorf("%w: something is missing", e.ErrInvalidInput)
	}

	user, err := s.repo.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, e.ErrNotFound) {
			return nil, nil, fmt.Errorf("%w: no account with this email", e.ErrNotFound)
		}
		return nil, nil, fmt.Errorf("failed to get user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, nil, e.ErrInvalidCredentials
	}
	if user.Role != models.Role(role) {
		return nil, nil, e.ErrRoleMismatch
	}

	session, err := s.issue(user)
	if err != nil {
		return nil, nil, err
	}
	s.logger.Debug("user signed in", zap.String("user_id", user.ID.String()))
	return user, session, nil
}

// Profile returns the account with the given id.
func (s *UserService) Profile(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := s.repo.GetUser(ctx, id)
	if err != nil {
		if errors.Is(err, e.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

func (s *UserService) issue(user *models.User) (*Session, error) {
	token, expiresAt, err := auth.GenerateToken(user.ID, user.Role, s.jwtSecret, s.now())
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}
	return &Session{Token: token, ExpiresAt: expiresAt}, nil
}
