package store

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	dbpkg "github.com/vanelang/review-flow/internal/db"
)

// RecordAPIUsage appends one api_usage row.
func RecordAPIUsage(ctx context.Context, db *gorm.DB, u *dbpkg.APIUsage) error {
	if err := db.WithContext(ctx).Create(u).Error; err != nil {
		return fmt.Errorf("record api usage: %w", err)
	}
	return nil
}
