package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"

	"cmcs-claims/internal/adapters/persistence/models"
	"cmcs-claims/internal/adapters/persistence/repositories"
	"cmcs-claims/internal/core/domain"
	"cmcs-claims/internal/pkg/pagination"
	"cmcs-claims/internal/pkg/password"
	"cmcs-claims/internal/pkg/validation"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// maxIdentifierAttempts bounds identifier regeneration on collision
const maxIdentifierAttempts = 5

// User service errors
var (
	ErrUserNotFound         error = &domain.NotFoundError{Resource: "user"}
	ErrEmailAlreadyExists         = fmt.Errorf("%w: email already exists", domain.ErrDuplicateEntry)
	ErrIdentifierExhausted        = errors.New("could not generate a unique identifier")
	ErrCannotDeactivateSelf       = errors.New("cannot deactivate your own account")
)

// sharedRand draws from the package-level source, which is safe for
// concurrent use
type sharedRand struct{}

func (sharedRand) Intn(n int) int {
	return rand.Intn(n)
}

// UserService handles HR user administration
type UserService struct {
	userRepo repositories.UserRepository
	rng      domain.RandomSource
	hash     func(string) (string, error)
	validate *validation.Validator
	log      *logrus.Entry
}

// NewUserService creates a new user service. A nil rng uses the shared
// math/rand source.
func NewUserService(userRepo repositories.UserRepository, rng domain.RandomSource, log *logrus.Entry) *UserService {
	if rng == nil {
		rng = sharedRand{}
	}
	return &UserService{
		userRepo: userRepo,
		rng:      rng,
		hash:     password.Hash,
		validate: validation.New(),
		log:      log.WithField("component", "user-service"),
	}
}

// CreateUserInput represents create user input
type CreateUserInput struct {
	FirstName  string          `json:"first_name" validate:"required,max=50"`
	LastName   string          `json:"last_name" validate:"required,max=50"`
	Email      string          `json:"email" validate:"required,email,max=100"`
	Password   string          `json:"password" validate:"required,min=8,max=72"`
	Role       domain.Role     `json:"role" validate:"required,oneof=Lecturer HR Coordinator Manager"`
	HourlyRate decimal.Decimal `json:"hourly_rate" validate:"gte=0,lte=99999999,decimals=2"`
}

// UpdateUserInput represents update user input. Every field is replaced.
type UpdateUserInput struct {
	FirstName  string          `json:"first_name" validate:"required,max=50"`
	LastName   string          `json:"last_name" validate:"required,max=50"`
	Email      string          `json:"email" validate:"required,email,max=100"`
	Role       domain.Role     `json:"role" validate:"required,oneof=Lecturer HR Coordinator Manager"`
	HourlyRate decimal.Decimal `json:"hourly_rate" validate:"gte=0,lte=99999999,decimals=2"`
}

// Create registers a user with a generated business identifier
func (s *UserService) Create(ctx context.Context, input *CreateUserInput) (*models.User, error) {
	input.FirstName = strings.TrimSpace(input.FirstName)
	input.LastName = strings.TrimSpace(input.LastName)
	input.Email = normalizeEmail(input.Email)

	if fields := s.validate.Struct(input); len(fields) > 0 {
		redacted := *input
		redacted.Password = ""
		return nil, &domain.ValidationError{Fields: fields, Input: redacted}
	}

	exists, err := s.userRepo.ExistsByEmail(ctx, input.Email)
	if err != nil {
		return nil, domain.NewPersistenceError("check email", err)
	}
	if exists {
		return nil, ErrEmailAlreadyExists
	}

	hashed, err := s.hash(input.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		Email:        input.Email,
		PasswordHash: hashed,
		Role:         input.Role,
		HourlyRate:   rateFor(input.Role, input.HourlyRate),
		IsActive:     true,
	}

	for attempt := 1; attempt <= maxIdentifierAttempts; attempt++ {
		id := domain.GenerateIdentifier(s.rng, user.Role, user.FirstName, user.LastName)

		taken, err := s.userRepo.ExistsByLecturerID(ctx, id)
		if err != nil {
			return nil, domain.NewPersistenceError("check identifier", err)
		}
		if taken {
			s.log.WithFields(logrus.Fields{"identifier": id, "attempt": attempt}).Debug("Identifier collision")
			continue
		}

		user.LecturerID = id
		err = s.userRepo.Create(ctx, user)
		if err == nil {
			s.log.WithFields(logrus.Fields{
				"user_id":     user.ID,
				"lecturer_id": user.LecturerID,
				"role":        user.Role,
			}).Info("User created")
			return user, nil
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, domain.NewPersistenceError("create user", err)
		}

		// A unique key raced us: either the email or the identifier
		if emailTaken, _ := s.userRepo.ExistsByEmail(ctx, user.Email); emailTaken {
			return nil, ErrEmailAlreadyExists
		}
	}

	s.log.WithField("name", user.FullName()).Error("Identifier generation exhausted")
	return nil, ErrIdentifierExhausted
}

// Update replaces a user's profile. The business identifier never changes.
func (s *UserService) Update(ctx context.Context, id uint, input *UpdateUserInput) (*models.User, error) {
	input.FirstName = strings.TrimSpace(input.FirstName)
	input.LastName = strings.TrimSpace(input.LastName)
	input.Email = normalizeEmail(input.Email)

	if fields := s.validate.Struct(input); len(fields) > 0 {
		return nil, &domain.ValidationError{Fields: fields, Input: input}
	}

	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Email != user.Email {
		exists, err := s.userRepo.ExistsByEmail(ctx, input.Email)
		if err != nil {
			return nil, domain.NewPersistenceError("check email", err)
		}
		if exists {
			return nil, ErrEmailAlreadyExists
		}
	}

	user.FirstName = input.FirstName
	user.LastName = input.LastName
	user.Email = input.Email
	user.Role = input.Role
	user.HourlyRate = rateFor(input.Role, input.HourlyRate)

	if err := s.userRepo.Update(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrEmailAlreadyExists
		}
		return nil, domain.NewPersistenceError("update user", err)
	}

	return user, nil
}

// SetActive activates or deactivates a user. Users are never deleted.
func (s *UserService) SetActive(ctx context.Context, actorID, id uint, active bool) (*models.User, error) {
	if !active && actorID == id {
		return nil, ErrCannotDeactivateSelf
	}

	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if user.IsActive == active {
		return user, nil
	}

	user.IsActive = active
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, domain.NewPersistenceError("update user", err)
	}

	s.log.WithFields(logrus.Fields{"user_id": id, "active": active}).Info("User activation changed")
	return user, nil
}

// Get gets a user by ID
func (s *UserService) Get(ctx context.Context, id uint) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, domain.NewPersistenceError("load user", err)
	}
	return user, nil
}

// List lists users ordered by role then last name
func (s *UserService) List(ctx context.Context, page *pagination.Params) ([]*models.User, int64, error) {
	users, total, err := s.userRepo.List(ctx, page.Offset, page.Limit)
	if err != nil {
		return nil, 0, domain.NewPersistenceError("list users", err)
	}
	return users, total, nil
}

// rateFor forces the rate to zero for roles that are not paid by the hour
func rateFor(role domain.Role, rate decimal.Decimal) decimal.Decimal {
	if !role.EarnsHourlyRate() {
		return decimal.Zero
	}
	return rate.Round(2)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
