package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/taskforge/task-manager/internal/auth"
	"github.com/taskforge/task-manager/internal/domain"
	"github.com/taskforge/task-manager/internal/repository"
	apperrors "github.com/taskforge/task-manager/pkg/util"
)

// AuthService coordinates the login flow.
type AuthService struct {
	users      repository.UserRepository
	tokens     *auth.TokenService
	bcryptCost int
	logger     *zap.Logger
}

// LoginResult is what a successful login hands back.
type LoginResult struct {
	AccessToken string
	ExpiresAt   time.Time
	User        *domain.User
}

// NewAuthService builds the service.
// bcryptCost must be the cost user passwords are hashed with.
func NewAuthService(users repository.UserRepository, tokens *auth.TokenService, bcryptCost int, logger *zap.Logger) *AuthService {
	return &AuthService{users: users, tokens: tokens, bcryptCost: bcryptCost, logger: logger}
}

// Login checks credentials against the user store and issues an access
// token. Unknown emails and wrong passwords fail identically.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, apperrors.NewUnauthorized("invalid credentials")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			auth.CompareDecoy(password, s.bcryptCost)
			return nil, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, storeError(err, "user")
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, apperrors.NewUnauthorized("invalid credentials")
	}

	token, expiresAt, err := s.tokens.Issue(auth.PrincipalClaims{SubjectID: user.ID, Role: user.Role})
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	s.logger.Info("user logged in", zap.Int64("user_id", user.ID), zap.String("role", string(user.Role)))
	return &LoginResult{AccessToken: token, ExpiresAt: expiresAt, User: user}, nil
}

// Tokens exposes the token service for the authentication gate.
func (s *AuthService) Tokens() *auth.TokenService {
	return s.tokens
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
