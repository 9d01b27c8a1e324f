package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cmcs-claims/internal/adapters/persistence/models"
	"cmcs-claims/internal/adapters/persistence/repositories"
	"cmcs-claims/internal/config"
	"cmcs-claims/internal/core/domain"
	"cmcs-claims/internal/pkg/jwt"
	"cmcs-claims/internal/pkg/password"
	"cmcs-claims/internal/pkg/validation"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Auth errors
var (
	ErrInvalidCredentials = fmt.Errorf("%w: invalid email or password", domain.ErrUnauthorized)
	ErrUserInactive       = fmt.Errorf("%w: user account is inactive", domain.ErrUnauthorized)
	ErrSessionInvalid     = fmt.Errorf("%w: session is invalid", domain.ErrUnauthorized)
	ErrSessionExpired     = fmt.Errorf("%w: session has expired", domain.ErrUnauthorized)
)

// AuthService handles authentication business logic
type AuthService struct {
	userRepo repositories.UserRepository
	sessions SessionStore
	cfg      *config.Config
	validate *validation.Validator
	log      *logrus.Entry
	now      func() time.Time
}

// NewAuthService creates a new auth service
func NewAuthService(
	userRepo repositories.UserRepository,
	sessions SessionStore,
	cfg *config.Config,
	log *logrus.Entry,
) *AuthService {
	return &AuthService{
		userRepo: userRepo,
		sessions: sessions,
		cfg:      cfg,
		validate: validation.New(),
		log:      log.WithField("component", "auth-service"),
		now:      time.Now,
	}
}

// LoginInput represents login input
type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResult is returned on a successful login
type LoginResult struct {
	User      *models.UserResponse `json:"user"`
	Token     string               `json:"token"`
	ExpiresAt time.Time            `json:"expires_at"`
}

// Login authenticates a user and opens a session
func (s *AuthService) Login(ctx context.Context, input *LoginInput) (*LoginResult, error) {
	input.Email = normalizeEmail(input.Email)
	if fields := s.validate.Struct(input); len(fields) > 0 {
		return nil, &domain.ValidationError{Fields: fields, Input: LoginInput{Email: input.Email}}
	}

	// 1. Find user by email
	user, err := s.userRepo.GetByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, domain.NewPersistenceError("load user", err)
	}

	// 2. Verify password before revealing account state
	if !password.Verify(input.Password, user.PasswordHash) {
		s.log.WithField("email", input.Email).Warn("Failed login")
		return nil, ErrInvalidCredentials
	}

	// 3. Check if user is active
	if !user.IsActive {
		return nil, ErrUserInactive
	}

	// 4. Open the session
	session := &domain.Session{
		ID:         uuid.NewString(),
		UserID:     user.ID,
		Role:       user.Role,
		Name:       user.FullName(),
		LecturerID: user.LecturerID,
		CreatedAt:  s.now(),
	}
	if err := s.sessions.Create(ctx, session, s.cfg.SessionIdleTTL()); err != nil {
		return nil, domain.NewPersistenceError("create session", err)
	}

	// 5. Sign the token carrying the session id
	ttl := s.cfg.TokenTTL()
	token, err := jwt.GenerateSessionToken(session.ID, user.ID, s.cfg.JWT.Secret, ttl)
	if err != nil {
		_ = s.sessions.Delete(ctx, session.ID)
		return nil, fmt.Errorf("sign session token: %w", err)
	}

	s.log.WithFields(logrus.Fields{"user_id": user.ID, "role": user.Role}).Info("User logged in")

	return &LoginResult{
		User:      user.ToResponse(),
		Token:     token,
		ExpiresAt: session.CreatedAt.Add(ttl),
	}, nil
}

// Logout ends the session behind token. Unknown tokens are ignored.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	claims, err := jwt.ValidateSessionToken(token, s.cfg.JWT.Secret)
	if err != nil {
		return nil
	}
	if err := s.sessions.Delete(ctx, claims.SessionID); err != nil {
		return domain.NewPersistenceError("delete session", err)
	}
	return nil
}

// Resolve maps a session token to its live user, extending the idle timeout.
// Sessions of users that were deactivated or removed are closed.
func (s *AuthService) Resolve(ctx context.Context, token string) (*models.User, *domain.Session, error) {
	claims, err := jwt.ValidateSessionToken(token, s.cfg.JWT.Secret)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, nil, ErrSessionExpired
		}
		return nil, nil, ErrSessionInvalid
	}

	session, err := s.sessions.Get(ctx, claims.SessionID)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return nil, nil, ErrSessionExpired
		}
		return nil, nil, domain.NewPersistenceError("load session", err)
	}
	if session.UserID != claims.UserID {
		return nil, nil, ErrSessionInvalid
	}

	user, err := s.userRepo.GetByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			_ = s.sessions.Delete(ctx, session.ID)
			return nil, nil, ErrSessionInvalid
		}
		return nil, nil, domain.NewPersistenceError("load user", err)
	}
	if !user.IsActive {
		_ = s.sessions.Delete(ctx, session.ID)
		return nil, nil, ErrUserInactive
	}

	if err := s.sessions.Touch(ctx, session.ID, s.cfg.SessionIdleTTL()); err != nil {
		s.log.WithError(err).Warn("Failed to extend session")
	}

	// Role and identity follow the current user record
	session.Role = user.Role
	session.Name = user.FullName()
	session.LecturerID = user.LecturerID

	return user, session, nil
}
