package store

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	dbpkg "github.com/vanelang/review-flow/internal/db"
)

// RecordAudit appends an audit row outside of any other mutation.
func RecordAudit(ctx context.Context, db *gorm.DB, userID, action, entityType, entityID string, changes any, meta Meta) error {
	if err := writeAudit(db.WithContext(ctx), userID, action, entityType, entityID, changes, meta); err != nil {
		return fmt.Errorf("record audit: %w", err)
	}
	return nil
}

// ListAudit returns one page of the caller's audit rows of entityType, newest first.
func ListAudit(ctx context.Context, db *gorm.DB, userID, entityType string, page, limit int) ([]dbpkg.AuditLog, int64, error) {
	page, limit = Page(page, limit)
	q := db.WithContext(ctx).Model(&dbpkg.AuditLog{}).Where("user_id = ? AND entity_type = ?", userID, entityType)

	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count audit: %w", err)
	}
	rows := []dbpkg.AuditLog{}
	err := q.Order("created_at DESC").Order("id DESC").Offset((page - 1) * limit).Limit(limit).Find(&rows).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list audit: %w", err)
	}
	return rows, total, nil
}
