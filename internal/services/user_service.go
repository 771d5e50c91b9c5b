package services

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"famledger/internal/calendar"
	apperrors "famledger/internal/errors"
	"famledger/internal/models"
	"famledger/internal/store"
)

// userService handles user-related business logic.
type userService struct {
	uow              store.UnitOfWork
	passwordMaxBytes int
}

// NewUserService creates a new UserServicer. Passwords longer than
// passwordMaxBytes are rejected rather than silently truncated by bcrypt.
func NewUserService(uow store.UnitOfWork, passwordMaxBytes int) UserServicer {
	return &userService{uow: uow, passwordMaxBytes: passwordMaxBytes}
}

// CreateUser registers a new user
func (s *userService) CreateUser(ctx context.Context, email, password, firstName, lastName string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "email and password are required")
	}
	if len(password) > s.passwordMaxBytes {
		return nil, apperrors.ErrPasswordLength
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	user := &models.User{
		Email:     email,
		Password:  string(hashedPassword),
		FirstName: firstName,
		LastName:  lastName,
		IsActive:  true,
	}
	err = s.uow.Do(ctx, func(r *store.Repos) error {
		return r.Users.Create(user)
	})
	if errors.Is(err, store.ErrDuplicate) {
		return nil, apperrors.ErrDuplicateEmail
	}
	if err != nil {
		return nil, internalErr(err)
	}
	return user, nil
}

// GetUserByID retrieves a user by ID
func (s *userService) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	var user *models.User
	err := s.uow.View(ctx, func(r *store.Repos) error {
		var err error
		user, err = r.Users.Get(id)
		return lookupErr(err, apperrors.ErrUserNotFound)
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// AttemptLogin checks the credentials of an active user and stamps the
// login time. Unknown emails and wrong passwords fail alike.
func (s *userService) AttemptLogin(ctx context.Context, email, password string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var user *models.User
	err := s.uow.Do(ctx, func(r *store.Repos) error {
		var err error
		user, err = r.Users.GetByEmail(email)
		if errors.Is(err, store.ErrNotFound) {
			return apperrors.ErrInvalidCredentials
		}
		if err != nil {
			return internalErr(err)
		}
		if !user.IsActive {
			return apperrors.ErrInvalidCredentials
		}
		if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
			return apperrors.ErrInvalidCredentials
		}
		now := calendar.Now()
		user.LastLoginAt = &now
		return internalErr(r.Users.Update(user))
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}
