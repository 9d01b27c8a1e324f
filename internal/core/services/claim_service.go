package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"cmcs-claims/internal/adapters/persistence/models"
	"cmcs-claims/internal/adapters/persistence/repositories"
	"cmcs-claims/internal/core/domain"
	"cmcs-claims/internal/pkg/pagination"
	"cmcs-claims/internal/pkg/validation"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Claim service errors
var (
	ErrClaimNotFound    error = &domain.NotFoundError{Resource: "claim"}
	ErrDocumentNotFound error = &domain.NotFoundError{Resource: "document"}
)

// Actor is the authenticated user performing an operation
type Actor struct {
	UserID     uint
	Name       string
	Role       domain.Role
	LecturerID string
	IPAddress  string
}

// Owns reports whether the claim was submitted by the actor
func (a Actor) Owns(claim *models.Claim) bool {
	return a.LecturerID != "" && claim.LecturerID == a.LecturerID
}

// ClaimService handles claim submission and the approval workflow
type ClaimService struct {
	claimRepo       repositories.ClaimRepository
	eventRepo       repositories.ClaimEventRepository
	userRepo        repositories.UserRepository
	docs            DocumentStore
	validate        *validation.Validator
	maxMonthlyHours decimal.Decimal
	log             *logrus.Entry
	now             func() time.Time
}

// NewClaimService creates a new claim service
func NewClaimService(
	claimRepo repositories.ClaimRepository,
	eventRepo repositories.ClaimEventRepository,
	userRepo repositories.UserRepository,
	docs DocumentStore,
	maxMonthlyHours decimal.Decimal,
	log *logrus.Entry,
) *ClaimService {
	return &ClaimService{
		claimRepo:       claimRepo,
		eventRepo:       eventRepo,
		userRepo:        userRepo,
		docs:            docs,
		validate:        validation.New(),
		maxMonthlyHours: maxMonthlyHours,
		log:             log.WithField("component", "claim-service"),
		now:             time.Now,
	}
}

// DocumentUpload is an optional file attached to a submission
type DocumentUpload struct {
	Name    string
	Size    int64
	Content io.Reader
}

// SubmitClaimInput represents submit claim input
type SubmitClaimInput struct {
	Month       string          `json:"month" validate:"required,yearmonth"`
	HoursWorked decimal.Decimal `json:"hours_worked" validate:"required,gte=0.1,lte=1000,decimals=2"`
	Notes       string          `json:"notes" validate:"max=500"`
	Document    *DocumentUpload `json:"-"`
}

// ListClaimsInput represents list claims input
type ListClaimsInput struct {
	Month  string
	Status domain.ClaimStatus
	Page   *pagination.Params
}

// Submit files a new Pending claim for the acting lecturer
func (s *ClaimService) Submit(ctx context.Context, actor Actor, input *SubmitClaimInput) (*models.Claim, error) {
	if actor.Role != domain.RoleLecturer {
		return nil, &domain.PolicyViolation{
			Action: domain.ActionSubmit,
			Role:   actor.Role,
			Reason: "only lecturers can submit claims",
		}
	}

	input.Month = strings.TrimSpace(input.Month)
	input.Notes = strings.TrimSpace(input.Notes)

	// 1. Field and business validation
	verr := &domain.ValidationError{Fields: s.validate.Struct(input), Input: input}
	if input.HoursWorked.GreaterThan(s.maxMonthlyHours) && !hasField(verr, "hours_worked") {
		verr.Add("hours_worked", fmt.Sprintf("Hours worked cannot exceed %s hours per month", s.maxMonthlyHours))
	}
	if verr.HasErrors() {
		return nil, verr
	}

	// 2. Identity and rate come from the store, never from the form
	lecturer, err := s.userRepo.GetByID(ctx, actor.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, domain.NewPersistenceError("load lecturer", err)
	}
	if !lecturer.IsActive {
		return nil, ErrUserInactive
	}

	// 3. Store the document, if any
	documentRef := ""
	if doc := input.Document; doc != nil && doc.Size > 0 && doc.Content != nil {
		documentRef, err = s.docs.Save(ctx, doc.Name, doc.Content)
		if err != nil {
			return nil, domain.NewPersistenceError("store document", err)
		}
	}

	claim := &models.Claim{
		LecturerID:   lecturer.LecturerID,
		LecturerName: lecturer.FullName(),
		Month:        input.Month,
		HoursWorked:  input.HoursWorked,
		HourlyRate:   lecturer.HourlyRate,
		Notes:        input.Notes,
		DocumentPath: documentRef,
		Status:       domain.StatusPending,
		SubmittedAt:  s.now(),
	}
	claim.Total = claim.ComputeTotal()

	event := s.newEvent(actor, domain.ActionSubmit, "", domain.StatusPending, map[string]interface{}{
		"month":        claim.Month,
		"hours_worked": claim.HoursWorked.String(),
		"hourly_rate":  claim.HourlyRate.String(),
		"has_document": documentRef != "",
	})

	// 4. Persist; an orphaned upload is removed on failure
	if err := s.claimRepo.Create(ctx, claim, event); err != nil {
		if documentRef != "" {
			if rmErr := s.docs.Remove(documentRef); rmErr != nil {
				s.log.WithError(rmErr).WithField("document", documentRef).Warn("Failed to remove document after claim insert failure")
			}
		}
		s.log.WithError(err).WithField("lecturer_id", claim.LecturerID).Error("Claim insert failed")
		return nil, domain.NewPersistenceError("create claim", err)
	}

	s.log.WithFields(logrus.Fields{
		"claim_id":    claim.ID,
		"lecturer_id": claim.LecturerID,
		"month":       claim.Month,
	}).Info("Claim submitted")

	return claim, nil
}

// Approve advances the claim through the review stage it is in
func (s *ClaimService) Approve(ctx context.Context, actor Actor, id uint) (*models.Claim, error) {
	return s.review(ctx, actor, id, domain.ActionApprove)
}

// Reject ends the claim at the review stage it is in
func (s *ClaimService) Reject(ctx context.Context, actor Actor, id uint) (*models.Claim, error) {
	return s.review(ctx, actor, id, domain.ActionReject)
}

func (s *ClaimService) review(ctx context.Context, actor Actor, id uint, action domain.Action) (*models.Claim, error) {
	claim, err := s.getClaim(ctx, id)
	if err != nil {
		return nil, err
	}

	tr, err := domain.Next(claim.Status, action, actor.Role, actor.Owns(claim))
	if err != nil {
		return nil, err
	}

	now := s.now()
	event := s.newEvent(actor, action, tr.From, tr.To, map[string]interface{}{
		"stage": string(tr.Stage),
	})

	err = s.claimRepo.Transition(ctx, claim.ID, tr.From, tr.To, string(tr.Stage), now, event)
	if err != nil {
		return nil, s.writeError(err, action, tr.From, actor.Role, "update claim status")
	}

	claim.Status = tr.To
	claim.ActionBy = string(tr.Stage)
	claim.ActionDate = &now

	s.log.WithFields(logrus.Fields{
		"claim_id": claim.ID,
		"action":   action,
		"from":     tr.From,
		"to":       tr.To,
		"actor_id": actor.UserID,
	}).Info("Claim reviewed")

	return claim, nil
}

// Delete removes a Pending claim. The stored document is left for the
// orphan sweep.
func (s *ClaimService) Delete(ctx context.Context, actor Actor, id uint) error {
	claim, err := s.getClaim(ctx, id)
	if err != nil {
		return err
	}

	tr, err := domain.Next(claim.Status, domain.ActionDelete, actor.Role, actor.Owns(claim))
	if err != nil {
		return err
	}

	event := s.newEvent(actor, domain.ActionDelete, tr.From, "", map[string]interface{}{
		"lecturer_id": claim.LecturerID,
		"month":       claim.Month,
		"document":    claim.DocumentPath,
	})

	if err := s.claimRepo.DeleteInStatus(ctx, claim.ID, tr.From, event); err != nil {
		return s.writeError(err, domain.ActionDelete, tr.From, actor.Role, "delete claim")
	}

	s.log.WithFields(logrus.Fields{
		"claim_id": claim.ID,
		"actor_id": actor.UserID,
	}).Info("Claim deleted")

	return nil
}

// Get returns a claim the actor may see
func (s *ClaimService) Get(ctx context.Context, actor Actor, id uint) (*models.Claim, error) {
	claim, err := s.getClaim(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canView(actor, claim) {
		return nil, domain.ErrForbidden
	}
	return claim, nil
}

// List returns every claim for HR and the actor's own claims otherwise
func (s *ClaimService) List(ctx context.Context, actor Actor, input *ListClaimsInput) ([]*models.Claim, int64, error) {
	filter := repositories.ClaimFilter{Month: input.Month}
	if input.Status != "" {
		filter.Statuses = []domain.ClaimStatus{input.Status}
	}
	if actor.Role != domain.RoleHR {
		filter.LecturerID = actor.LecturerID
	}

	claims, total, err := s.claimRepo.List(ctx, filter, input.Page)
	if err != nil {
		return nil, 0, domain.NewPersistenceError("list claims", err)
	}
	return claims, total, nil
}

// Queue returns the claims waiting at a review stage
func (s *ClaimService) Queue(ctx context.Context, stage domain.Role, page *pagination.Params) ([]*models.Claim, int64, error) {
	status, ok := domain.ReviewQueue(stage)
	if !ok {
		return nil, 0, fmt.Errorf("no review queue for role %s", stage)
	}

	claims, total, err := s.claimRepo.List(ctx, repositories.ClaimFilter{
		Statuses: []domain.ClaimStatus{status},
	}, page)
	if err != nil {
		return nil, 0, domain.NewPersistenceError("list review queue", err)
	}
	return claims, total, nil
}

// History returns the transition log of a claim. HR may read the history
// of deleted claims.
func (s *ClaimService) History(ctx context.Context, actor Actor, id uint) ([]*models.ClaimEvent, error) {
	if actor.Role != domain.RoleHR {
		if _, err := s.Get(ctx, actor, id); err != nil {
			return nil, err
		}
	}

	events, err := s.eventRepo.ListByClaimID(ctx, id)
	if err != nil {
		return nil, domain.NewPersistenceError("list claim history", err)
	}
	if len(events) == 0 {
		return nil, ErrClaimNotFound
	}
	return events, nil
}

// OpenDocument opens the supporting document of a claim. The returned
// name is the original upload name.
func (s *ClaimService) OpenDocument(ctx context.Context, actor Actor, id uint) (io.ReadCloser, string, error) {
	claim, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, "", err
	}
	if claim.DocumentPath == "" {
		return nil, "", ErrDocumentNotFound
	}

	rc, err := s.docs.Open(claim.DocumentPath)
	if err != nil {
		s.log.WithError(err).WithField("document", claim.DocumentPath).Warn("Stored document unreadable")
		return nil, "", ErrDocumentNotFound
	}
	return rc, OriginalDocumentName(claim.DocumentPath), nil
}

// OriginalDocumentName strips the unique prefix from a document ref
func OriginalDocumentName(ref string) string {
	if i := strings.IndexByte(ref, '_'); i >= 0 && i < len(ref)-1 {
		return ref[i+1:]
	}
	return ref
}

func (s *ClaimService) getClaim(ctx context.Context, id uint) (*models.Claim, error) {
	claim, err := s.claimRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrClaimNotFound
		}
		return nil, domain.NewPersistenceError("load claim", err)
	}
	return claim, nil
}

// writeError maps a conditional write failure. Losing a race to another
// reviewer is a policy violation, not a silent overwrite.
func (s *ClaimService) writeError(err error, action domain.Action, from domain.ClaimStatus, role domain.Role, op string) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrClaimNotFound
	case errors.Is(err, repositories.ErrStatusChanged):
		return &domain.PolicyViolation{
			Action: action,
			Status: from,
			Role:   role,
			Reason: "the claim was changed by someone else; reload it and try again",
		}
	default:
		s.log.WithError(err).WithField("op", op).Error("Claim write failed")
		return domain.NewPersistenceError(op, err)
	}
}

func (s *ClaimService) newEvent(actor Actor, action domain.Action, from, to domain.ClaimStatus, meta map[string]interface{}) *models.ClaimEvent {
	event := &models.ClaimEvent{
		Action:     action,
		FromStatus: from,
		ToStatus:   to,
		ActorID:    actor.UserID,
		ActorName:  actor.Name,
		ActorRole:  actor.Role,
		IPAddress:  actor.IPAddress,
	}
	if raw, err := json.Marshal(meta); err == nil {
		event.Metadata = datatypes.JSON(raw)
	}
	return event
}

func canView(actor Actor, claim *models.Claim) bool {
	switch actor.Role {
	case domain.RoleHR, domain.RoleCoordinator, domain.RoleManager:
		return true
	default:
		return actor.Owns(claim)
	}
}

func hasField(verr *domain.ValidationError, field string) bool {
	for _, f := range verr.Fields {
		if f.Field == field {
			return true
		}
	}
	return false
}
