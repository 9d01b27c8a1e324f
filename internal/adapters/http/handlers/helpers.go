package handlers

import (
	"errors"
	"strconv"
	"strings"

	"cmcs-claims/internal/core/domain"
	"cmcs-claims/internal/core/services"
	"cmcs-claims/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// getClientIP returns the client IP, honouring proxy headers
func getClientIP(c *fiber.Ctx) string {
	ip := c.Get("X-Real-IP")
	if ip == "" {
		ip = strings.TrimSpace(strings.Split(c.Get("X-Forwarded-For"), ",")[0])
	}
	if ip == "" {
		ip = c.IP()
	}
	return ip
}

// currentActor builds the acting user from the session set by AuthMiddleware
func currentActor(c *fiber.Ctx) (services.Actor, bool) {
	session, ok := c.Locals("session").(*domain.Session)
	if !ok || session == nil {
		return services.Actor{}, false
	}
	return services.Actor{
		UserID:     session.UserID,
		Name:       session.Name,
		Role:       session.Role,
		LecturerID: session.LecturerID,
		IPAddress:  getClientIP(c),
	}, true
}

func parseID(c *fiber.Ctx) (uint, bool) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// handleError maps service errors onto the response envelope. fallback is
// the message sent for unexpected failures, whose details are only logged.
func handleError(c *fiber.Ctx, log *logrus.Entry, err error, fallback string) error {
	var (
		verr *domain.ValidationError
		pv   *domain.PolicyViolation
		nf   *domain.NotFoundError
		perr *domain.PersistenceError
	)

	switch {
	case errors.As(err, &verr):
		return response.ValidationFailed(c, "Validation failed", verr)
	case errors.As(err, &pv):
		return response.Conflict(c, capitalize(pv.Reason))
	case errors.As(err, &nf):
		return response.NotFound(c, capitalize(nf.Error()))
	case errors.Is(err, services.ErrInvalidCredentials):
		return response.Unauthorized(c, "Invalid email or password")
	case errors.Is(err, services.ErrUserInactive):
		return response.Unauthorized(c, "User account is inactive")
	case errors.Is(err, domain.ErrUnauthorized):
		return response.Unauthorized(c, "Login required")
	case errors.Is(err, domain.ErrForbidden):
		return response.Forbidden(c, "Access denied")
	case errors.Is(err, services.ErrEmailAlreadyExists):
		return response.Conflict(c, "Email already exists")
	case errors.Is(err, domain.ErrDuplicateEntry):
		return response.Conflict(c, "Record already exists")
	case errors.Is(err, services.ErrCannotDeactivateSelf):
		return response.BadRequest(c, "Cannot deactivate your own account")
	case errors.Is(err, services.ErrIdentifierExhausted):
		return response.Error(c, fiber.StatusServiceUnavailable, "Could not generate a unique identifier, please retry")
	case errors.As(err, &perr):
		log.WithError(perr.Err).WithFields(logrus.Fields{
			"op":   perr.Op,
			"path": c.Path(),
		}).Error("Persistence failure")
		return response.InternalServerError(c, fallback)
	default:
		log.WithError(err).WithField("path", c.Path()).Error("Request failed")
		return response.InternalServerError(c, fallback)
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
