package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/prefvista/fiscal-api/internal/auth"
	"github.com/prefvista/fiscal-api/internal/domain"
	"github.com/prefvista/fiscal-api/internal/mapper"
	"github.com/prefvista/fiscal-api/internal/repository"
)

// UserService handles authentication and portal user management
type UserService struct {
	userRepo *repository.UserRepository
	issuer   *auth.TokenIssuer
	logger   *zap.Logger
}

// NewUserService creates a new user service instance
func NewUserService(userRepo *repository.UserRepository, issuer *auth.TokenIssuer, logger *zap.Logger) *UserService {
	return &UserService{
		userRepo: userRepo,
		issuer:   issuer,
		logger:   logger,
	}
}

// Login verifies credentials and issues a signed token. The error is the
// same for an unknown email and a wrong password so the endpoint does not
// leak which accounts exist.
func (s *UserService) Login(ctx context.Context, req *domain.LoginRequest) (*domain.LoginResponse, error) {
	user, err := s.userRepo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	if !user.IsActive {
		return nil, ErrUserInactive
	}

	token, expiresAt, err := s.issuer.Issue(user, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	now := time.Now().UTC()
	user.LastLoginAt = &now
	if err := s.userRepo.Update(ctx, user); err != nil {
		s.logger.Warn("failed to record last login", zap.Error(err))
	}

	s.logger.Info("user logged in",
		zap.String("user_id", user.ID.String()),
		zap.String("role", string(user.Role)),
	)

	return &domain.LoginResponse{
		Token:     token,
		ExpiresAt: expiresAt.UTC().Format(time.RFC3339),
		User:      mapper.UserToDTO(user),
	}, nil
}

// GetCurrent returns the profile of the authenticated user
func (s *UserService) GetCurrent(ctx context.Context) (*domain.UserDTO, error) {
	userCtx, ok := auth.FromContext(ctx)
	if !ok {
		return nil, ErrUnauthorized
	}

	user, err := s.userRepo.GetByID(ctx, userCtx.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	dto := mapper.UserToDTO(user)
	return &dto, nil
}

// EnsureBootstrapAdmin creates the initial administrator account when the
// user table is empty, so a fresh install is reachable.
func (s *UserService) EnsureBootstrapAdmin(ctx context.Context, email, password, displayName string) error {
	if email == "" || password == "" {
		return nil
	}

	users, err := s.userRepo.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list users: %w", err)
	}
	if len(users) > 0 {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	admin := &domain.User{
		Email:        strings.ToLower(email),
		DisplayName:  displayName,
		PasswordHash: string(hash),
		Role:         domain.RoleAdmin,
		IsActive:     true,
	}
	if err := s.userRepo.Create(ctx, admin); err != nil {
		return fmt.Errorf("failed to create bootstrap admin: %w", err)
	}

	s.logger.Info("bootstrap admin created", zap.String("email", admin.Email))
	return nil
}
