package handlers

import (
	"cmcs-claims/internal/adapters/persistence/models"
	"cmcs-claims/internal/core/services"
	"cmcs-claims/internal/pkg/pagination"
	"cmcs-claims/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// UserHandler handles HR user management endpoints
type UserHandler struct {
	userService *services.UserService
	log         *logrus.Entry
}

// NewUserHandler creates a new user handler
func NewUserHandler(userService *services.UserService, log *logrus.Entry) *UserHandler {
	return &UserHandler{
		userService: userService,
		log:         log.WithField("component", "user-handler"),
	}
}

// ListUsers handles listing all users
// @Summary List all users
// @Description Get a paginated list of all users (HR only)
// @Tags Users
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Items per page" default(25)
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /hr/users [get]
func (h *UserHandler) ListUsers(c *fiber.Ctx) error {
	params := pagination.GetParams(c)

	users, total, err := h.userService.List(c.UserContext(), params)
	if err != nil {
		return handleError(c, h.log, err, "Failed to list users")
	}

	out := make([]*models.UserResponse, 0, len(users))
	for _, u := range users {
		out = append(out, u.ToResponse())
	}

	return response.Success(c, "Users retrieved successfully", fiber.Map{
		"users":      out,
		"pagination": pagination.GetMeta(params, total),
	})
}

// CreateUser handles user registration by HR
// @Summary Create user
// @Description Register a user. The lecturer identifier is generated.
// @Tags Users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body services.CreateUserInput true "User data"
// @Success 201 {object} response.Response
// @Failure 409 {object} response.Response
// @Failure 422 {object} response.Response
// @Failure 503 {object} response.Response
// @Router /hr/users [post]
func (h *UserHandler) CreateUser(c *fiber.Ctx) error {
	var input services.CreateUserInput
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	user, err := h.userService.Create(c.UserContext(), &input)
	if err != nil {
		return handleError(c, h.log, err, "Failed to create user")
	}

	return response.Created(c, "User created successfully", fiber.Map{
		"user": user.ToResponse(),
	})
}

// GetUser handles getting a user by ID
// @Summary Get user by ID
// @Tags Users
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /hr/users/{id} [get]
func (h *UserHandler) GetUser(c *fiber.Ctx) error {
	id, ok := parseID(c)
	if !ok {
		return response.BadRequest(c, "Invalid user ID")
	}

	user, err := h.userService.Get(c.UserContext(), id)
	if err != nil {
		return handleError(c, h.log, err, "Failed to get user")
	}

	return response.Success(c, "User retrieved successfully", fiber.Map{
		"user": user.ToResponse(),
	})
}

// UpdateUser handles updating a user
// @Summary Update user
// @Tags Users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Param body body services.UpdateUserInput true "User data"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 409 {object} response.Response
// @Failure 422 {object} response.Response
// @Router /hr/users/{id} [put]
func (h *UserHandler) UpdateUser(c *fiber.Ctx) error {
	id, ok := parseID(c)
	if !ok {
		return response.BadRequest(c, "Invalid user ID")
	}

	var input services.UpdateUserInput
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	user, err := h.userService.Update(c.UserContext(), id, &input)
	if err != nil {
		return handleError(c, h.log, err, "Failed to update user")
	}

	return response.Success(c, "User updated successfully", fiber.Map{
		"user": user.ToResponse(),
	})
}

// DeactivateUser handles deactivating a user
// @Summary Deactivate user
// @Description Deactivate a user. Their sessions stop resolving immediately.
// @Tags Users
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /hr/users/{id}/deactivate [put]
func (h *UserHandler) DeactivateUser(c *fiber.Ctx) error {
	return h.setActive(c, false)
}

// ActivateUser handles re-activating a user
// @Summary Activate user
// @Tags Users
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /hr/users/{id}/activate [put]
func (h *UserHandler) ActivateUser(c *fiber.Ctx) error {
	return h.setActive(c, true)
}

func (h *UserHandler) setActive(c *fiber.Ctx, active bool) error {
	id, ok := parseID(c)
	if !ok {
		return response.BadRequest(c, "Invalid user ID")
	}
	actorID, ok := c.Locals("userID").(uint)
	if !ok {
		return response.Unauthorized(c, "Login required")
	}

	user, err := h.userService.SetActive(c.UserContext(), actorID, id, active)
	if err != nil {
		return handleError(c, h.log, err, "Failed to update user status")
	}

	message := "User deactivated successfully"
	if active {
		message = "User activated successfully"
	}

	return response.Success(c, message, fiber.Map{
		"user": user.ToResponse(),
	})
}
