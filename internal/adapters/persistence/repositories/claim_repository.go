package repositories

import (
	"context"
	"time"

	"cmcs-claims/internal/adapters/persistence/models"
	"cmcs-claims/internal/core/domain"
	"cmcs-claims/internal/pkg/pagination"

	"gorm.io/gorm"
)

// claimRepository implements ClaimRepository interface
type claimRepository struct {
	db *gorm.DB
}

// NewClaimRepository creates a new claim repository
func NewClaimRepository(db *gorm.DB) ClaimRepository {
	return &claimRepository{db: db}
}

// Create inserts the claim and its submit event
func (r *claimRepository) Create(ctx context.Context, claim *models.Claim, event *models.ClaimEvent) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Lecturer").Create(claim).Error; err != nil {
			return err
		}
		event.ClaimID = claim.ID
		return tx.Create(event).Error
	})
}

// GetByID gets a claim by ID
func (r *claimRepository) GetByID(ctx context.Context, id uint) (*models.Claim, error) {
	var claim models.Claim
	err := r.db.WithContext(ctx).First(&claim, id).Error
	if err != nil {
		return nil, err
	}
	return &claim, nil
}

// List lists claims newest first. A nil page returns every match.
func (r *claimRepository) List(ctx context.Context, filter ClaimFilter, page *pagination.Params) ([]*models.Claim, int64, error) {
	var claims []*models.Claim
	var total int64

	filtered := func() *gorm.DB {
		query := r.db.WithContext(ctx).Model(&models.Claim{})
		if filter.LecturerID != "" {
			query = query.Where("lecturer_id = ?", filter.LecturerID)
		}
		if filter.Month != "" {
			query = query.Where("month = ?", filter.Month)
		}
		if len(filter.Statuses) > 0 {
			query = query.Where("status IN ?", filter.Statuses)
		}
		return query
	}

	if err := filtered().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := filtered().
		Scopes(page.Scope).
		Order("submitted_at DESC").
		Order("id DESC").
		Find(&claims).Error
	if err != nil {
		return nil, 0, err
	}

	return claims, total, nil
}

// Transition performs a compare-and-set status update with its event
func (r *claimRepository) Transition(ctx context.Context, id uint, from, to domain.ClaimStatus, actionBy string, at time.Time, event *models.ClaimEvent) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.Claim{}).
			Where("id = ? AND status = ?", id, from).
			Updates(map[string]interface{}{
				"status":      to,
				"action_by":   actionBy,
				"action_date": at,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return missingOrChanged(tx, id)
		}

		event.ClaimID = id
		return tx.Create(event).Error
	})
}

// DeleteInStatus removes the claim while it is still in status
func (r *claimRepository) DeleteInStatus(ctx context.Context, id uint, status domain.ClaimStatus, event *models.ClaimEvent) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("id = ? AND status = ?", id, status).Delete(&models.Claim{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return missingOrChanged(tx, id)
		}

		event.ClaimID = id
		return tx.Create(event).Error
	})
}

// ListDocumentPaths returns every stored document reference
func (r *claimRepository) ListDocumentPaths(ctx context.Context) ([]string, error) {
	var paths []string
	err := r.db.WithContext(ctx).
		Model(&models.Claim{}).
		Where("document_path <> ''").
		Pluck("document_path", &paths).Error
	return paths, err
}

func missingOrChanged(tx *gorm.DB, id uint) error {
	var count int64
	if err := tx.Model(&models.Claim{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return gorm.ErrRecordNotFound
	}
	return ErrStatusChanged
}

// claimEventRepository implements ClaimEventRepository interface
type claimEventRepository struct {
	db *gorm.DB
}

// NewClaimEventRepository creates a new claim event repository
func NewClaimEventRepository(db *gorm.DB) ClaimEventRepository {
	return &claimEventRepository{db: db}
}

// ListByClaimID gets the history of a claim, oldest first
func (r *claimEventRepository) ListByClaimID(ctx context.Context, claimID uint) ([]*models.ClaimEvent, error) {
	var events []*models.ClaimEvent
	err := r.db.WithContext(ctx).
		Where("claim_id = ?", claimID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&events).Error
	return events, err
}
