package repositories

import (
	"context"
	"errors"
	"time"

	"cmcs-claims/internal/adapters/persistence/models"
	"cmcs-claims/internal/core/domain"
	"cmcs-claims/internal/pkg/pagination"
)

// ErrStatusChanged is returned when a conditional status write finds the
// claim in a different status than expected
var ErrStatusChanged = errors.New("claim status changed")

// UserRepository defines user repository interface
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	List(ctx context.Context, offset, limit int) ([]*models.User, int64, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	ExistsByLecturerID(ctx context.Context, lecturerID string) (bool, error)
	Count(ctx context.Context) (int64, error)
}

// ClaimFilter narrows claim listings. Zero fields are ignored.
type ClaimFilter struct {
	LecturerID string
	Month      string
	Statuses   []domain.ClaimStatus
}

// ClaimRepository defines claim repository interface. Every write records
// its ClaimEvent in the same transaction.
type ClaimRepository interface {
	Create(ctx context.Context, claim *models.Claim, event *models.ClaimEvent) error
	GetByID(ctx context.Context, id uint) (*models.Claim, error)
	List(ctx context.Context, filter ClaimFilter, page *pagination.Params) ([]*models.Claim, int64, error)
	// Transition moves the claim from one status to another. It returns
	// gorm.ErrRecordNotFound for a missing claim and ErrStatusChanged when
	// the claim is no longer in from.
	Transition(ctx context.Context, id uint, from, to domain.ClaimStatus, actionBy string, at time.Time, event *models.ClaimEvent) error
	// DeleteInStatus removes the claim only while it is still in status
	DeleteInStatus(ctx context.Context, id uint, status domain.ClaimStatus, event *models.ClaimEvent) error
	ListDocumentPaths(ctx context.Context) ([]string, error)
}

// ClaimEventRepository reads claim history
type ClaimEventRepository interface {
	ListByClaimID(ctx context.Context, claimID uint) ([]*models.ClaimEvent, error)
}
