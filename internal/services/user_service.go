package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"gorm.io/gorm"

	"github.com/avencore/datahaven/internal/models"
	"github.com/avencore/datahaven/pkg/crypto"
	apperrors "github.com/avencore/datahaven/pkg/errors"
	"github.com/avencore/datahaven/pkg/metrics"
)

// ErrUserNotFound indicates the requested user does not exist.
var ErrUserNotFound = apperrors.New("USER_NOT_FOUND", "User not found", http.StatusNotFound)

// CreateUserInput describes the fields accepted when creating a user.
type CreateUserInput struct {
	Username string
	Email    string
	Password string
	IsAdmin  bool
}

// UserService manages account lifecycle and credential verification.
type UserService struct {
	db *gorm.DB
}

// NewUserService constructs a UserService instance.
func NewUserService(db *gorm.DB) (*UserService, error) {
	if db == nil {
		return nil, errors.New("user service: db is required")
	}
	return &UserService{db: db}, nil
}

// Create provisions a new user with a hashed password.
func (s *UserService) Create(ctx context.Context, input CreateUserInput) (*models.User, error) {
	ctx = ensureContext(ctx)

	username := strings.TrimSpace(input.Username)
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if username == "" {
		return nil, apperrors.NewBadRequest("username is required")
	}
	if email == "" {
		return nil, apperrors.NewBadRequest("email is required")
	}
	if strings.TrimSpace(input.Password) == "" {
		return nil, apperrors.NewBadRequest("password is required")
	}

	hashed, err := crypto.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("user service: hash password: %w", err)
	}

	user := &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: hashed,
		IsAdmin:      input.IsAdmin,
	}

	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, fmt.Errorf("user service: create user: %w", err)
	}

	return user, nil
}

// GetByID fetches a user by primary key.
func (s *UserService) GetByID(ctx context.Context, id uint) (*models.User, error) {
	ctx = ensureContext(ctx)

	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("user service: get user: %w", err)
	}
	return &user, nil
}

// List returns all users ordered by username.
func (s *UserService) List(ctx context.Context) ([]models.User, error) {
	ctx = ensureContext(ctx)

	var users []models.User
	if err := s.db.WithContext(ctx).Order("username").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("user service: list users: %w", err)
	}
	return users, nil
}

// Authenticate verifies the supplied credentials and returns the matched user.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	ctx = ensureContext(ctx)

	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		metrics.AuthAttempts.WithLabelValues("failure").Inc()
		return nil, apperrors.ErrInvalidCredentials
	}

	var user models.User
	err := s.db.WithContext(ctx).Where("username = ?", username).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			metrics.AuthAttempts.WithLabelValues("failure").Inc()
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("user service: lookup user: %w", err)
	}

	if !crypto.VerifyPassword(user.PasswordHash, password) {
		metrics.AuthAttempts.WithLabelValues("failure").Inc()
		return nil, apperrors.ErrInvalidCredentials
	}

	metrics.AuthAttempts.WithLabelValues("success").Inc()
	return &user, nil
}

// EnsureAdmin creates the bootstrap administrator account when it does not
// exist yet. A blank password skips seeding entirely.
func (s *UserService) EnsureAdmin(ctx context.Context, username, email, password string) error {
	ctx = ensureContext(ctx)

	if strings.TrimSpace(password) == "" {
		return nil
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).
		Where("username = ?", strings.TrimSpace(username)).
		Count(&count).Error; err != nil {
		return fmt.Errorf("user service: check admin: %w", err)
	}
	if count > 0 {
		return nil
	}

	_, err := s.Create(ctx, CreateUserInput{
		Username: username,
		Email:    email,
		Password: password,
		IsAdmin:  true,
	})
	return err
}
