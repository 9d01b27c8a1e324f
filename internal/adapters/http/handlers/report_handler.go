package handlers

import (
	"bytes"
	"fmt"

	"cmcs-claims/internal/core/services"
	"cmcs-claims/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// ReportHandler handles HR reporting endpoints
type ReportHandler struct {
	reportService *services.ReportService
	cronService   *services.CronService
	renderers     map[string]services.ReportRenderer
	log           *logrus.Entry
}

// NewReportHandler creates a new report handler. Renderers are keyed by
// their file extension.
func NewReportHandler(
	reportService *services.ReportService,
	cronService *services.CronService,
	log *logrus.Entry,
	renderers ...services.ReportRenderer,
) *ReportHandler {
	byExt := make(map[string]services.ReportRenderer, len(renderers))
	for _, r := range renderers {
		byExt[r.Extension()] = r
	}
	return &ReportHandler{
		reportService: reportService,
		cronService:   cronService,
		renderers:     byExt,
		log:           log.WithField("component", "report-handler"),
	}
}

// Overview returns the HR dashboard figures
// @Summary HR overview
// @Tags Reports
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Router /hr/reports/overview [get]
func (h *ReportHandler) Overview(c *fiber.Ctx) error {
	overview, err := h.reportService.Overview(c.UserContext())
	if err != nil {
		return handleError(c, h.log, err, "Failed to build overview")
	}

	return response.Success(c, "Overview retrieved successfully", overview)
}

// Summaries returns the per-month claim aggregation
// @Summary Monthly summaries
// @Description Claims grouped by month, newest first
// @Tags Reports
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Router /hr/reports/summary [get]
func (h *ReportHandler) Summaries(c *fiber.Ctx) error {
	months, err := h.reportService.Summaries(c.UserContext())
	if err != nil {
		return handleError(c, h.log, err, "Failed to build monthly summaries")
	}

	return response.Success(c, "Monthly summaries retrieved successfully", fiber.Map{
		"months": months,
	})
}

// MonthClaims returns the claims of one month
// @Summary Claims for a month
// @Tags Reports
// @Produce json
// @Security BearerAuth
// @Param month path string true "Month (YYYY-MM)"
// @Success 200 {object} response.Response
// @Failure 422 {object} response.Response
// @Router /hr/reports/{month}/claims [get]
func (h *ReportHandler) MonthClaims(c *fiber.Ctx) error {
	claims, err := h.reportService.ClaimsForMonth(c.UserContext(), c.Params("month"))
	if err != nil {
		return handleError(c, h.log, err, "Failed to list claims")
	}

	return response.Success(c, "Claims retrieved successfully", fiber.Map{
		"month":  c.Params("month"),
		"claims": toClaimResponses(claims),
	})
}

// Invoice exports the monthly invoice in the format named by ext
// @Summary Export monthly invoice
// @Description Download the invoice report for a month as PDF or XLSX
// @Tags Reports
// @Produce application/pdf
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security BearerAuth
// @Param month path string true "Month (YYYY-MM)"
// @Success 200 {file} file
// @Failure 422 {object} response.Response
// @Router /hr/reports/{month}/invoice.pdf [get]
// @Router /hr/reports/{month}/invoice.xlsx [get]
func (h *ReportHandler) Invoice(ext string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		renderer, ok := h.renderers[ext]
		if !ok {
			return response.NotFound(c, "Report format not supported")
		}

		month := c.Params("month")
		var buf bytes.Buffer
		if err := h.reportService.Export(c.UserContext(), month, renderer, &buf); err != nil {
			return handleError(c, h.log, err, "Failed to generate report")
		}

		c.Set(fiber.HeaderContentType, renderer.ContentType())
		c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="invoice-%s.%s"`, month, renderer.Extension()))
		return c.Send(buf.Bytes())
	}
}

// SweepDocuments runs the orphaned document sweep now
// @Summary Sweep orphaned documents
// @Description Report, and remove when configured, stored documents no claim references
// @Tags Maintenance
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Failure 429 {object} response.Response
// @Router /hr/maintenance/document-sweep [post]
func (h *ReportHandler) SweepDocuments(c *fiber.Ctx) error {
	result, err := h.cronService.SweepDocuments(c.UserContext())
	if err != nil {
		return handleError(c, h.log, err, "Failed to sweep documents")
	}

	return response.Success(c, "Document sweep completed", result)
}
