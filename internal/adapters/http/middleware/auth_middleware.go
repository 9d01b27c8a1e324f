package middleware

import (
	"context"
	"errors"
	"strings"

	"cmcs-claims/internal/adapters/persistence/models"
	"cmcs-claims/internal/config"
	"cmcs-claims/internal/core/domain"
	"cmcs-claims/internal/core/services"
	"cmcs-claims/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// LoginPath is returned with every 401 so clients know where to sign in
const LoginPath = "/api/v1/auth/login"

// SessionResolver maps a session token to its live user
type SessionResolver interface {
	Resolve(ctx context.Context, token string) (*models.User, *domain.Session, error)
}

// TokenFromRequest reads the session token from the cookie, falling back
// to the Authorization header
func TokenFromRequest(c *fiber.Ctx, cookieName string) string {
	if token := c.Cookies(cookieName); token != "" {
		return token
	}
	authHeader := c.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	}
	return ""
}

// LoginRequired sends a 401 that points at the login endpoint
func LoginRequired(c *fiber.Ctx, message string) error {
	return response.ErrorWithData(c, fiber.StatusUnauthorized, message, fiber.Map{
		"login": LoginPath,
	})
}

// AuthMiddleware creates authentication middleware
func AuthMiddleware(resolver SessionResolver, cfg *config.Config, log *logrus.Entry) fiber.Handler {
	return func(c *fiber.Ctx) error {
		// 1. Find the token
		token := TokenFromRequest(c, cfg.Cookie.Name)
		if token == "" {
			return LoginRequired(c, "Login required")
		}

		// 2. Resolve token -> session -> user
		user, session, err := resolver.Resolve(c.UserContext(), token)
		if err != nil {
			switch {
			case errors.Is(err, services.ErrSessionExpired):
				return LoginRequired(c, "Session expired, please log in again")
			case errors.Is(err, services.ErrUserInactive):
				return LoginRequired(c, "User account is inactive")
			case errors.Is(err, domain.ErrUnauthorized):
				return LoginRequired(c, "Login required")
			default:
				log.WithError(err).Error("Session lookup failed")
				return response.InternalServerError(c, "Failed to verify session")
			}
		}

		// 3. Set user info in context
		c.Locals("user", user)
		c.Locals("session", session)
		c.Locals("userID", user.ID)
		c.Locals("role", session.Role)

		return c.Next()
	}
}

// RoleMiddleware creates role-based authorization middleware
func RoleMiddleware(allowedRoles ...domain.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		role, ok := c.Locals("role").(domain.Role)
		if !ok {
			return LoginRequired(c, "Login required")
		}

		for _, allowedRole := range allowedRoles {
			if role == allowedRole {
				return c.Next()
			}
		}

		return response.Forbidden(c, "Access denied")
	}
}

// HROnly allows only the HR role
func HROnly() fiber.Handler {
	return RoleMiddleware(domain.RoleHR)
}

// LecturerOnly allows only lecturers
func LecturerOnly() fiber.Handler {
	return RoleMiddleware(domain.RoleLecturer)
}

// CoordinatorOrHR guards the first review stage
func CoordinatorOrHR() fiber.Handler {
	return RoleMiddleware(domain.RoleCoordinator, domain.RoleHR)
}

// ManagerOrHR guards the second review stage
func ManagerOrHR() fiber.Handler {
	return RoleMiddleware(domain.RoleManager, domain.RoleHR)
}
