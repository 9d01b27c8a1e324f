package config

import (
	"fmt"
	"strings"

	"cmcs-claims/internal/adapters/persistence/models"
	"cmcs-claims/internal/core/domain"
	"cmcs-claims/internal/pkg/password"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// devHRPassword is only used when SEED_HR_PASSWORD is unset in dev mode
const devHRPassword = "hr-admin-1234"

// Seeder handles database seeding
type Seeder struct {
	db  *gorm.DB
	cfg *Config
	log *logrus.Entry
}

// NewSeeder creates a new seeder instance
func NewSeeder(db *gorm.DB, cfg *Config, log *logrus.Entry) *Seeder {
	return &Seeder{db: db, cfg: cfg, log: log}
}

// Run executes all seeders
func (s *Seeder) Run() error {
	s.log.Info("Running database seeders")

	if err := s.seedHRUser(); err != nil {
		s.log.WithError(err).Warn("HR seeder skipped")
	}

	return nil
}

// seedHRUser creates the first HR account so users can be administered.
// Nothing happens once any HR user exists.
func (s *Seeder) seedHRUser() error {
	var count int64
	if err := s.db.Model(&models.User{}).Where("role = ?", domain.RoleHR).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	plain := s.cfg.Seed.HRPassword
	if plain == "" {
		if s.cfg.IsProd() {
			s.log.Warn("No HR user exists and SEED_HR_PASSWORD is unset; create one manually")
			return nil
		}
		plain = devHRPassword
		s.log.Warnf("Seeding HR user with the development password %q", devHRPassword)
	}

	if !password.ValidatePassword(plain) {
		return fmt.Errorf("SEED_HR_PASSWORD must be at least %d characters", password.MinLength)
	}

	hashed, err := password.Hash(plain)
	if err != nil {
		return err
	}

	hr := &models.User{
		FirstName:    "HR",
		LastName:     "Administrator",
		Email:        strings.ToLower(s.cfg.Seed.HREmail),
		PasswordHash: hashed,
		Role:         domain.RoleHR,
		HourlyRate:   decimal.Zero,
		LecturerID:   "HR001",
		IsActive:     true,
	}

	if err := s.db.Create(hr).Error; err != nil {
		return err
	}

	s.log.WithField("email", hr.Email).Info("HR user created")
	return nil
}
