package handlers

import (
	"cmcs-claims/internal/core/domain"
	"cmcs-claims/internal/core/services"
	"cmcs-claims/internal/pkg/pagination"
	"cmcs-claims/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// ReviewHandler handles the coordinator and manager review queues
type ReviewHandler struct {
	claimService *services.ClaimService
	log          *logrus.Entry
}

// NewReviewHandler creates a new review handler
func NewReviewHandler(claimService *services.ClaimService, log *logrus.Entry) *ReviewHandler {
	return &ReviewHandler{
		claimService: claimService,
		log:          log.WithField("component", "review-handler"),
	}
}

// Queue returns the claims waiting at the given review stage
// @Summary List review queue
// @Description Coordinators see Pending claims, managers see claims approved by a coordinator
// @Tags Review
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number"
// @Param limit query int false "Items per page"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /coordinator/claims [get]
// @Router /manager/claims [get]
func (h *ReviewHandler) Queue(stage domain.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		params := pagination.GetParams(c)
		claims, total, err := h.claimService.Queue(c.UserContext(), stage, params)
		if err != nil {
			return handleError(c, h.log, err, "Failed to load review queue")
		}

		return response.Success(c, "Review queue retrieved successfully", fiber.Map{
			"stage":      stage,
			"claims":     toClaimResponses(claims),
			"pagination": pagination.GetMeta(params, total),
		})
	}
}

// Approve approves a claim at its current review stage
// @Summary Approve claim
// @Tags Review
// @Produce json
// @Security BearerAuth
// @Param id path int true "Claim ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /coordinator/claims/{id}/approve [put]
// @Router /manager/claims/{id}/approve [put]
func (h *ReviewHandler) Approve(c *fiber.Ctx) error {
	return h.decide(c, domain.ActionApprove)
}

// Reject rejects a claim at its current review stage
// @Summary Reject claim
// @Tags Review
// @Produce json
// @Security BearerAuth
// @Param id path int true "Claim ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /coordinator/claims/{id}/reject [put]
// @Router /manager/claims/{id}/reject [put]
func (h *ReviewHandler) Reject(c *fiber.Ctx) error {
	return h.decide(c, domain.ActionReject)
}

func (h *ReviewHandler) decide(c *fiber.Ctx, action domain.Action) error {
	actor, ok := currentActor(c)
	if !ok {
		return response.Unauthorized(c, "Login required")
	}
	id, ok := parseID(c)
	if !ok {
		return response.BadRequest(c, "Invalid claim ID")
	}

	review := h.claimService.Approve
	message := "Claim approved successfully"
	if action == domain.ActionReject {
		review = h.claimService.Reject
		message = "Claim rejected successfully"
	}

	claim, err := review(c.UserContext(), actor, id)
	if err != nil {
		return handleError(c, h.log, err, "Failed to update claim status")
	}

	return response.Success(c, message, fiber.Map{
		"claim": claim.ToResponse(),
	})
}
