package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/vanelang/review-flow/internal/auth"
	dbpkg "github.com/vanelang/review-flow/internal/db"
)

// NormalizeEmail lower-cases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// CreateUser inserts an active user with a fresh API key.
func CreateUser(ctx context.Context, db *gorm.DB, email, name, passwordHash string) (*dbpkg.User, error) {
	email = NormalizeEmail(email)
	now := time.Now().UTC()
	u := &dbpkg.User{
		Email:             email,
		Name:              strings.TrimSpace(name),
		PasswordHash:      passwordHash,
		APIKey:            auth.NewAPIKey(),
		IsActive:          true,
		DataRetentionDays: 90,
		HasAcceptedTerms:  true,
		TermsAcceptedAt:   &now,
	}
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&dbpkg.User{}).Where("email = ?", email).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return ErrEmailTaken
		}
		return emailTaken(tx.Create(u).Error)
	})
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

func GetUserByID(ctx context.Context, db *gorm.DB, id string) (*dbpkg.User, error) {
	var u dbpkg.User
	if err := db.WithContext(ctx).Where("id = ?", id).First(&u).Error; err != nil {
		return nil, fmt.Errorf("get user: %w", notFound(err))
	}
	return &u, nil
}

func GetUserByEmail(ctx context.Context, db *gorm.DB, email string) (*dbpkg.User, error) {
	var u dbpkg.User
	if err := db.WithContext(ctx).Where("email = ?", NormalizeEmail(email)).First(&u).Error; err != nil {
		return nil, fmt.Errorf("get user by email: %w", notFound(err))
	}
	return &u, nil
}

func GetUserByAPIKey(ctx context.Context, db *gorm.DB, key string) (*dbpkg.User, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, ErrNotFound
	}
	var u dbpkg.User
	if err := db.WithContext(ctx).Where("api_key = ?", key).First(&u).Error; err != nil {
		return nil, fmt.Errorf("get user by api key: %w", notFound(err))
	}
	return &u, nil
}

// ProfilePatch holds the profile fields a user may change. Nil means unchanged.
type ProfilePatch struct {
	Name               *string
	Email              *string
	CompanyName        *string
	AutoApproveReviews *bool
}

// UpdateProfile applies p to the user's row and returns the updated user.
func UpdateProfile(ctx context.Context, db *gorm.DB, userID string, p ProfilePatch) (*dbpkg.User, error) {
	updates := map[string]any{}
	if p.Name != nil {
		updates["name"] = strings.TrimSpace(*p.Name)
	}
	if p.CompanyName != nil {
		updates["company_name"] = strings.TrimSpace(*p.CompanyName)
	}
	if p.AutoApproveReviews != nil {
		updates["auto_approve_reviews"] = *p.AutoApproveReviews
	}

	var out dbpkg.User
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if p.Email != nil {
			email := NormalizeEmail(*p.Email)
			var n int64
			if err := tx.Model(&dbpkg.User{}).Where("email = ? AND id <> ?", email, userID).Count(&n).Error; err != nil {
				return err
			}
			if n > 0 {
				return ErrEmailTaken
			}
			updates["email"] = email
		}
		if len(updates) > 0 {
			res := tx.Model(&dbpkg.User{}).Where("id = ?", userID).Updates(updates)
			if res.Error != nil {
				return emailTaken(res.Error)
			}
			if res.RowsAffected == 0 {
				return ErrNotFound
			}
		}
		return notFound(tx.Where("id = ?", userID).First(&out).Error)
	})
	if err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return &out, nil
}

// RotateAPIKey replaces the user's API key. The previous key stops working
// as soon as the transaction commits.
func RotateAPIKey(ctx context.Context, db *gorm.DB, userID string, meta Meta) (string, error) {
	key := auth.NewAPIKey()
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&dbpkg.User{}).Where("id = ?", userID).Update("api_key", key)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return writeAudit(tx, userID, "user.api_key_rotated", "user", userID, nil, meta)
	})
	if err != nil {
		return "", fmt.Errorf("rotate api key: %w", err)
	}
	return key, nil
}

// UpdatePassword stores a new password hash for the user.
func UpdatePassword(ctx context.Context, db *gorm.DB, userID, hash string, meta Meta) error {
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&dbpkg.User{}).Where("id = ?", userID).Update("password_hash", hash)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return writeAudit(tx, userID, "user.password_changed", "user", userID, nil, meta)
	})
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}
