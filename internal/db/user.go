package db

import (
	"time"

	"gorm.io/gorm"
)

// User represents a dashboard account. It owns widgets, reviews and a
// rotatable API key used for programmatic access.
type User struct {
	ID string `gorm:"primaryKey;size:36" json:"id"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	Email        string `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Name         string `gorm:"not null" json:"name"`
	CompanyName  string `json:"companyName"`
	PasswordHash string `gorm:"size:255;not null" json:"-"`

	// APIKey is a UUID credential accepted in the X-API-Key header.
	APIKey string `gorm:"uniqueIndex;size:36;not null" json:"apiKey"`

	IsActive           bool `gorm:"not null" json:"isActive"`
	AutoApproveReviews bool `gorm:"not null" json:"autoApproveReviews"`

	// DataRetentionDays is how long this user's usage logs are kept.
	DataRetentionDays int `gorm:"not null;default:90" json:"dataRetentionDays"`

	HasAcceptedTerms bool       `gorm:"not null" json:"hasAcceptedTerms"`
	TermsAcceptedAt  *time.Time `json:"termsAcceptedAt,omitempty"`
}

func (u *User) BeforeCreate(*gorm.DB) error {
	ensureID(&u.ID)
	return nil
}
