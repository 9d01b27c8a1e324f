package models

import (
	"time"

	"cmcs-claims/internal/core/domain"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ============================================================
// Identity
// ============================================================

// User represents users table. Rows are deactivated, never deleted.
type User struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	FirstName    string          `gorm:"size:50;not null" json:"first_name"`
	LastName     string          `gorm:"size:50;not null" json:"last_name"`
	Email        string          `gorm:"uniqueIndex;size:100;not null" json:"email"`
	PasswordHash string          `gorm:"size:255;not null" json:"-"`
	Role         domain.Role     `gorm:"size:20;not null;index" json:"role"`
	HourlyRate   decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0" json:"hourly_rate"`
	LecturerID   string          `gorm:"uniqueIndex;size:20;not null" json:"lecturer_id"`
	IsActive     bool            `gorm:"not null;default:true" json:"is_active"`
	CreatedAt    time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

// FullName returns "First Last"
func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}

// UserResponse DTO
type UserResponse struct {
	ID         uint            `json:"id"`
	FirstName  string          `json:"first_name"`
	LastName   string          `json:"last_name"`
	FullName   string          `json:"full_name"`
	Email      string          `json:"email"`
	Role       domain.Role     `json:"role"`
	HourlyRate decimal.Decimal `json:"hourly_rate"`
	LecturerID string          `json:"lecturer_id"`
	IsActive   bool            `json:"is_active"`
	CreatedAt  time.Time       `json:"created_at"`
}

func (u *User) ToResponse() *UserResponse {
	return &UserResponse{
		ID:         u.ID,
		FirstName:  u.FirstName,
		LastName:   u.LastName,
		FullName:   u.FullName(),
		Email:      u.Email,
		Role:       u.Role,
		HourlyRate: u.HourlyRate,
		LecturerID: u.LecturerID,
		IsActive:   u.IsActive,
		CreatedAt:  u.CreatedAt,
	}
}

// ============================================================
// Claims
// ============================================================

// Claim represents claims table. Total is computed by the database from
// hours_worked and hourly_rate and is never written by the application.
type Claim struct {
	ID           uint               `gorm:"primaryKey" json:"id"`
	LecturerID   string             `gorm:"size:20;not null;index" json:"lecturer_id"`
	LecturerName string             `gorm:"size:100;not null" json:"lecturer_name"`
	Month        string             `gorm:"size:7;not null;index" json:"month"`
	HoursWorked  decimal.Decimal    `gorm:"type:decimal(10,2);not null" json:"hours_worked"`
	HourlyRate   decimal.Decimal    `gorm:"type:decimal(10,2);not null" json:"hourly_rate"`
	Total        decimal.Decimal    `gorm:"->;type:decimal(12,2) GENERATED ALWAYS AS (hours_worked * hourly_rate) STORED" json:"total"`
	Notes        string             `gorm:"size:500;not null;default:''" json:"notes"`
	DocumentPath string             `gorm:"size:255;not null;default:''" json:"document_path"`
	Status       domain.ClaimStatus `gorm:"size:30;not null;index" json:"status"`
	SubmittedAt  time.Time          `gorm:"not null" json:"submitted_at"`
	ActionBy     string             `gorm:"size:100;not null;default:''" json:"action_by"`
	ActionDate   *time.Time         `json:"action_date"`

	// Relations
	Lecturer *User `gorm:"foreignKey:LecturerID;references:LecturerID" json:"-"`
}

func (Claim) TableName() string {
	return "claims"
}

// ComputeTotal returns hours x rate rounded to cents
func (c *Claim) ComputeTotal() decimal.Decimal {
	return c.HoursWorked.Mul(c.HourlyRate).Round(2)
}

// ClaimResponse DTO
type ClaimResponse struct {
	ID           uint               `json:"id"`
	LecturerID   string             `json:"lecturer_id"`
	LecturerName string             `json:"lecturer_name"`
	Month        string             `json:"month"`
	HoursWorked  decimal.Decimal    `json:"hours_worked"`
	HourlyRate   decimal.Decimal    `json:"hourly_rate"`
	Total        decimal.Decimal    `json:"total"`
	Notes        string             `json:"notes"`
	HasDocument  bool               `json:"has_document"`
	Status       domain.ClaimStatus `json:"status"`
	StatusLabel  string             `json:"status_label"`
	SubmittedAt  time.Time          `json:"submitted_at"`
	ActionBy     string             `json:"action_by"`
	ActionDate   *time.Time         `json:"action_date"`
}

func (c *Claim) ToResponse() *ClaimResponse {
	return &ClaimResponse{
		ID:           c.ID,
		LecturerID:   c.LecturerID,
		LecturerName: c.LecturerName,
		Month:        c.Month,
		HoursWorked:  c.HoursWorked,
		HourlyRate:   c.HourlyRate,
		Total:        c.ComputeTotal(),
		Notes:        c.Notes,
		HasDocument:  c.DocumentPath != "",
		Status:       c.Status,
		StatusLabel:  c.Status.Label(),
		SubmittedAt:  c.SubmittedAt,
		ActionBy:     c.ActionBy,
		ActionDate:   c.ActionDate,
	}
}

// ClaimEvent is the append-only history of a claim. It has no foreign
// key so entries outlive deleted claims.
type ClaimEvent struct {
	ID         uint               `gorm:"primaryKey" json:"id"`
	ClaimID    uint               `gorm:"not null;index" json:"claim_id"`
	Action     domain.Action      `gorm:"size:20;not null" json:"action"`
	FromStatus domain.ClaimStatus `gorm:"size:30;not null;default:''" json:"from_status"`
	ToStatus   domain.ClaimStatus `gorm:"size:30;not null;default:''" json:"to_status"`
	ActorID    uint               `gorm:"not null;index" json:"actor_id"`
	ActorName  string             `gorm:"size:100;not null" json:"actor_name"`
	ActorRole  domain.Role        `gorm:"size:20;not null" json:"actor_role"`
	IPAddress  string             `gorm:"size:50" json:"ip_address"`
	Metadata   datatypes.JSON     `gorm:"type:json" json:"metadata,omitempty"`
	CreatedAt  time.Time          `gorm:"autoCreateTime" json:"created_at"`
}

func (ClaimEvent) TableName() string {
	return "claim_events"
}

// ============================================================
// Auto Migration
// ============================================================

// AutoMigrate creates or updates the schema
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&User{},
		&Claim{},
		&ClaimEvent{},
	)
}
