package handlers

import (
	"strings"

	"cmcs-claims/internal/adapters/persistence/models"
	"cmcs-claims/internal/config"
	"cmcs-claims/internal/core/domain"
	"cmcs-claims/internal/core/services"
	"cmcs-claims/internal/pkg/pagination"
	"cmcs-claims/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// ClaimHandler handles claim endpoints shared by every role
type ClaimHandler struct {
	claimService *services.ClaimService
	cfg          *config.Config
	log          *logrus.Entry
}

// NewClaimHandler creates a new claim handler
func NewClaimHandler(claimService *services.ClaimService, cfg *config.Config, log *logrus.Entry) *ClaimHandler {
	return &ClaimHandler{
		claimService: claimService,
		cfg:          cfg,
		log:          log.WithField("component", "claim-handler"),
	}
}

// SubmitClaimForm is the multipart form of a claim submission
type SubmitClaimForm struct {
	Month       string `json:"month" form:"month"`
	HoursWorked string `json:"hours_worked" form:"hours_worked"`
	Notes       string `json:"notes" form:"notes"`
}

// Submit files a new claim
// @Summary Submit claim
// @Description Submit a monthly claim with an optional supporting document
// @Tags Claims
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param month formData string true "Claim month (YYYY-MM)"
// @Param hours_worked formData number true "Hours worked"
// @Param notes formData string false "Notes"
// @Param document formData file false "Supporting document"
// @Success 201 {object} response.Response
// @Failure 409 {object} response.Response
// @Failure 422 {object} response.Response
// @Router /claims [post]
func (h *ClaimHandler) Submit(c *fiber.Ctx) error {
	actor, ok := currentActor(c)
	if !ok {
		return response.Unauthorized(c, "Login required")
	}

	var form SubmitClaimForm
	if err := c.BodyParser(&form); err != nil {
		return response.BadRequest(c, "Invalid form data")
	}

	input := &services.SubmitClaimInput{
		Month: form.Month,
		Notes: form.Notes,
	}

	verr := &domain.ValidationError{Input: form}
	hours, err := decimal.NewFromString(strings.TrimSpace(form.HoursWorked))
	if err != nil {
		verr.Add("hours_worked", "Hours worked must be a number")
	}
	input.HoursWorked = hours

	if mf, err := c.MultipartForm(); err == nil && len(mf.File["document"]) > 0 {
		fh := mf.File["document"][0]
		if fh.Size > h.cfg.MaxUploadBytes() {
			verr.Add("document", "Document is too large")
		} else if fh.Size > 0 {
			file, err := fh.Open()
			if err != nil {
				return response.BadRequest(c, "Failed to read uploaded document")
			}
			defer file.Close()
			input.Document = &services.DocumentUpload{
				Name:    fh.Filename,
				Size:    fh.Size,
				Content: file,
			}
		}
	}

	if verr.HasErrors() {
		return response.ValidationFailed(c, "Validation failed", verr)
	}

	claim, err := h.claimService.Submit(c.UserContext(), actor, input)
	if err != nil {
		return handleError(c, h.log, err, "Failed to submit claim")
	}

	return response.Created(c, "Claim submitted successfully", fiber.Map{
		"claim": claim.ToResponse(),
	})
}

// List returns claims visible to the current user
// @Summary List claims
// @Description HR sees every claim, other users see their own
// @Tags Claims
// @Produce json
// @Security BearerAuth
// @Param month query string false "Claim month (YYYY-MM)"
// @Param status query string false "Claim status"
// @Param page query int false "Page number"
// @Param limit query int false "Items per page"
// @Success 200 {object} response.Response
// @Router /claims [get]
func (h *ClaimHandler) List(c *fiber.Ctx) error {
	actor, ok := currentActor(c)
	if !ok {
		return response.Unauthorized(c, "Login required")
	}

	status := domain.ClaimStatus(c.Query("status"))
	if status != "" && !isKnownStatus(status) {
		return response.BadRequest(c, "Invalid claim status")
	}

	params := pagination.GetParams(c)
	claims, total, err := h.claimService.List(c.UserContext(), actor, &services.ListClaimsInput{
		Month:  strings.TrimSpace(c.Query("month")),
		Status: status,
		Page:   params,
	})
	if err != nil {
		return handleError(c, h.log, err, "Failed to list claims")
	}

	return response.Success(c, "Claims retrieved successfully", fiber.Map{
		"claims":     toClaimResponses(claims),
		"pagination": pagination.GetMeta(params, total),
	})
}

// Get returns a single claim
// @Summary Get claim
// @Tags Claims
// @Produce json
// @Security BearerAuth
// @Param id path int true "Claim ID"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /claims/{id} [get]
func (h *ClaimHandler) Get(c *fiber.Ctx) error {
	actor, ok := currentActor(c)
	if !ok {
		return response.Unauthorized(c, "Login required")
	}
	id, ok := parseID(c)
	if !ok {
		return response.BadRequest(c, "Invalid claim ID")
	}

	claim, err := h.claimService.Get(c.UserContext(), actor, id)
	if err != nil {
		return handleError(c, h.log, err, "Failed to get claim")
	}

	return response.Success(c, "Claim retrieved successfully", fiber.Map{
		"claim": claim.ToResponse(),
	})
}

// History returns the transition log of a claim
// @Summary Get claim history
// @Tags Claims
// @Produce json
// @Security BearerAuth
// @Param id path int true "Claim ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /claims/{id}/history [get]
func (h *ClaimHandler) History(c *fiber.Ctx) error {
	actor, ok := currentActor(c)
	if !ok {
		return response.Unauthorized(c, "Login required")
	}
	id, ok := parseID(c)
	if !ok {
		return response.BadRequest(c, "Invalid claim ID")
	}

	events, err := h.claimService.History(c.UserContext(), actor, id)
	if err != nil {
		return handleError(c, h.log, err, "Failed to get claim history")
	}

	return response.Success(c, "Claim history retrieved successfully", fiber.Map{
		"events": events,
	})
}

// Document downloads the supporting document of a claim
// @Summary Download claim document
// @Tags Claims
// @Produce octet-stream
// @Security BearerAuth
// @Param id path int true "Claim ID"
// @Success 200 {file} file
// @Failure 404 {object} response.Response
// @Router /claims/{id}/document [get]
func (h *ClaimHandler) Document(c *fiber.Ctx) error {
	actor, ok := currentActor(c)
	if !ok {
		return response.Unauthorized(c, "Login required")
	}
	id, ok := parseID(c)
	if !ok {
		return response.BadRequest(c, "Invalid claim ID")
	}

	rc, name, err := h.claimService.OpenDocument(c.UserContext(), actor, id)
	if err != nil {
		return handleError(c, h.log, err, "Failed to open document")
	}

	// fasthttp closes the stream once the body is written
	c.Attachment(name)
	return c.SendStream(rc)
}

// Delete removes a pending claim
// @Summary Delete claim
// @Description Delete a pending claim. Lecturers may delete their own, HR any.
// @Tags Claims
// @Produce json
// @Security BearerAuth
// @Param id path int true "Claim ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /claims/{id} [delete]
func (h *ClaimHandler) Delete(c *fiber.Ctx) error {
	actor, ok := currentActor(c)
	if !ok {
		return response.Unauthorized(c, "Login required")
	}
	id, ok := parseID(c)
	if !ok {
		return response.BadRequest(c, "Invalid claim ID")
	}

	if err := h.claimService.Delete(c.UserContext(), actor, id); err != nil {
		return handleError(c, h.log, err, "Failed to delete claim")
	}

	return response.Success(c, "Claim deleted successfully", nil)
}

func toClaimResponses(claims []*models.Claim) []*models.ClaimResponse {
	out := make([]*models.ClaimResponse, 0, len(claims))
	for _, claim := range claims {
		out = append(out, claim.ToResponse())
	}
	return out
}

func isKnownStatus(s domain.ClaimStatus) bool {
	switch s {
	case domain.StatusPending,
		domain.StatusApprovedByCoordinator,
		domain.StatusApprovedByManager,
		domain.StatusRejectedByCoordinator,
		domain.StatusRejectedByManager:
		return true
	}
	return false
}
