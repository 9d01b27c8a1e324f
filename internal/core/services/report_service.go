package services

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"cmcs-claims/internal/adapters/persistence/models"
	"cmcs-claims/internal/adapters/persistence/repositories"
	"cmcs-claims/internal/core/domain"
	"cmcs-claims/internal/pkg/validation"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

func invalidMonth(month string) error {
	e := &domain.ValidationError{Input: map[string]string{"month": month}}
	e.Add("month", "Month must be in YYYY-MM format")
	return e
}

// MonthSummary aggregates the claims of one month
type MonthSummary struct {
	Month          string          `json:"month"`
	TotalClaims    int             `json:"total_claims"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	ApprovedClaims int             `json:"approved_claims"`
	PendingClaims  int             `json:"pending_claims"`
}

// AggregateByMonth groups claims by month, newest month first. A claim
// counts as approved once either review stage approved it.
func AggregateByMonth(claims []*models.Claim) []MonthSummary {
	byMonth := make(map[string]*MonthSummary)
	for _, c := range claims {
		sum, ok := byMonth[c.Month]
		if !ok {
			sum = &MonthSummary{Month: c.Month, TotalAmount: decimal.Zero}
			byMonth[c.Month] = sum
		}
		sum.TotalClaims++
		sum.TotalAmount = sum.TotalAmount.Add(c.ComputeTotal())
		if strings.Contains(string(c.Status), "Approved") {
			sum.ApprovedClaims++
		}
		if c.Status == domain.StatusPending {
			sum.PendingClaims++
		}
	}

	out := make([]MonthSummary, 0, len(byMonth))
	for _, sum := range byMonth {
		out = append(out, *sum)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Month > out[j].Month
	})
	return out
}

// Overview is the HR dashboard
type Overview struct {
	TotalUsers    int64           `json:"total_users"`
	TotalClaims   int             `json:"total_claims"`
	PendingClaims int             `json:"pending_claims"`
	TotalValue    decimal.Decimal `json:"total_value"`
	Months        []MonthSummary  `json:"months"`
}

// InvoiceReport is the data behind an exported monthly invoice
type InvoiceReport struct {
	Month       string
	GeneratedAt time.Time
	Summary     MonthSummary
	Claims      []*models.Claim
}

// ReportService handles HR reporting
type ReportService struct {
	claimRepo repositories.ClaimRepository
	userRepo  repositories.UserRepository
	log       *logrus.Entry
	now       func() time.Time
}

// NewReportService creates a new report service
func NewReportService(
	claimRepo repositories.ClaimRepository,
	userRepo repositories.UserRepository,
	log *logrus.Entry,
) *ReportService {
	return &ReportService{
		claimRepo: claimRepo,
		userRepo:  userRepo,
		log:       log.WithField("component", "report-service"),
		now:       time.Now,
	}
}

// Summaries returns the per-month aggregation of every claim
func (s *ReportService) Summaries(ctx context.Context) ([]MonthSummary, error) {
	claims, _, err := s.claimRepo.List(ctx, repositories.ClaimFilter{}, nil)
	if err != nil {
		return nil, domain.NewPersistenceError("list claims", err)
	}
	return AggregateByMonth(claims), nil
}

// Overview returns the HR dashboard figures
func (s *ReportService) Overview(ctx context.Context) (*Overview, error) {
	users, err := s.userRepo.Count(ctx)
	if err != nil {
		return nil, domain.NewPersistenceError("count users", err)
	}

	months, err := s.Summaries(ctx)
	if err != nil {
		return nil, err
	}

	ov := &Overview{TotalUsers: users, TotalValue: decimal.Zero, Months: months}
	for _, m := range months {
		ov.TotalClaims += m.TotalClaims
		ov.PendingClaims += m.PendingClaims
		ov.TotalValue = ov.TotalValue.Add(m.TotalAmount)
	}
	return ov, nil
}

// ClaimsForMonth returns the claims filed under month exactly
func (s *ReportService) ClaimsForMonth(ctx context.Context, month string) ([]*models.Claim, error) {
	if !validation.IsYearMonth(month) {
		return nil, invalidMonth(month)
	}
	claims, _, err := s.claimRepo.List(ctx, repositories.ClaimFilter{Month: month}, nil)
	if err != nil {
		return nil, domain.NewPersistenceError("list claims", err)
	}
	return claims, nil
}

// Invoice builds the monthly invoice report
func (s *ReportService) Invoice(ctx context.Context, month string) (*InvoiceReport, error) {
	claims, err := s.ClaimsForMonth(ctx, month)
	if err != nil {
		return nil, err
	}

	report := &InvoiceReport{
		Month:       month,
		GeneratedAt: s.now(),
		Summary:     MonthSummary{Month: month, TotalAmount: decimal.Zero},
		Claims:      claims,
	}
	if sums := AggregateByMonth(claims); len(sums) == 1 {
		report.Summary = sums[0]
	}
	return report, nil
}

// Export renders the monthly invoice with renderer into w
func (s *ReportService) Export(ctx context.Context, month string, renderer ReportRenderer, w io.Writer) error {
	report, err := s.Invoice(ctx, month)
	if err != nil {
		return err
	}
	if err := renderer.Render(w, report); err != nil {
		s.log.WithError(err).WithField("month", month).Error("Report rendering failed")
		return fmt.Errorf("render %s report: %w", renderer.Extension(), err)
	}

	s.log.WithFields(logrus.Fields{
		"month":  month,
		"claims": len(report.Claims),
		"format": renderer.Extension(),
	}).Info("Invoice report exported")
	return nil
}
