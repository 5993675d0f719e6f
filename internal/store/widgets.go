package store

import (
	"context"
	"fmt"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	dbpkg "github.com/vanelang/review-flow/internal/db"
)

func ListWidgets(ctx context.Context, db *gorm.DB, userID string) ([]dbpkg.Widget, error) {
	widgets := []dbpkg.Widget{}
	if err := db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at ASC").Find(&widgets).Error; err != nil {
		return nil, fmt.Errorf("list widgets: %w", err)
	}
	return widgets, nil
}

// GetWidget returns the widget only if it belongs to userID.
func GetWidget(ctx context.Context, db *gorm.DB, userID, id string) (*dbpkg.Widget, error) {
	var w dbpkg.Widget
	if err := db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&w).Error; err != nil {
		return nil, fmt.Errorf("get widget: %w", notFound(err))
	}
	return &w, nil
}

// GetActiveWidget looks a widget up by id alone, for embedded submissions.
func GetActiveWidget(ctx context.Context, db *gorm.DB, id string) (*dbpkg.Widget, error) {
	var w dbpkg.Widget
	if err := db.WithContext(ctx).Where("id = ? AND is_active = ?", id, true).First(&w).Error; err != nil {
		return nil, fmt.Errorf("get active widget: %w", notFound(err))
	}
	return &w, nil
}

func CreateWidget(ctx context.Context, db *gorm.DB, w *dbpkg.Widget, meta Meta) error {
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(w).Error; err != nil {
			return err
		}
		return writeAudit(tx, w.UserID, "widget.created", "widget", w.ID, map[string]any{
			"name": w.Name, "type": w.Type, "domains": w.Domains, "isActive": w.IsActive,
		}, meta)
	})
	if err != nil {
		return fmt.Errorf("create widget: %w", err)
	}
	return nil
}

// WidgetPatch holds the widget fields to change. Nil means unchanged.
type WidgetPatch struct {
	Name     *string
	Type     *string
	Config   map[string]any
	Styles   map[string]any
	Domains  []string
	IsActive *bool
}

func (p WidgetPatch) updates() map[string]any {
	m := map[string]any{}
	if p.Name != nil {
		m["name"] = *p.Name
	}
	if p.Type != nil {
		m["type"] = *p.Type
	}
	if p.Config != nil {
		m["config"] = datatypes.JSONMap(p.Config)
	}
	if p.Styles != nil {
		m["styles"] = datatypes.JSONMap(p.Styles)
	}
	if p.Domains != nil {
		m["allowed_domains"] = datatypes.JSONSlice[string](p.Domains)
	}
	if p.IsActive != nil {
		m["is_active"] = *p.IsActive
	}
	return m
}

// UpdateWidget applies p to the caller's widget. A widget owned by someone
// else is reported as ErrNotFound and left unchanged.
func UpdateWidget(ctx context.Context, db *gorm.DB, userID, id string, p WidgetPatch, meta Meta) (*dbpkg.Widget, error) {
	var out dbpkg.Widget
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ? AND user_id = ?", id, userID).First(&out).Error; err != nil {
			return notFound(err)
		}
		updates := p.updates()
		if len(updates) == 0 {
			return nil
		}
		if err := tx.Model(&out).Updates(updates).Error; err != nil {
			return err
		}
		if err := tx.Where("id = ?", id).First(&out).Error; err != nil {
			return err
		}
		return writeAudit(tx, userID, "widget.updated", "widget", id, updates, meta)
	})
	if err != nil {
		return nil, fmt.Errorf("update widget: %w", err)
	}
	return &out, nil
}

// DeleteWidget removes the caller's widget together with its reviews.
func DeleteWidget(ctx context.Context, db *gorm.DB, userID, id string, meta Meta) error {
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var w dbpkg.Widget
		if err := tx.Where("id = ? AND user_id = ?", id, userID).First(&w).Error; err != nil {
			return notFound(err)
		}
		res := tx.Where("widget_id = ? AND user_id = ?", id, userID).Delete(&dbpkg.Review{})
		if res.Error != nil {
			return res.Error
		}
		if err := tx.Delete(&w).Error; err != nil {
			return err
		}
		return writeAudit(tx, userID, "widget.deleted", "widget", id, map[string]any{
			"name": w.Name, "reviewsDeleted": res.RowsAffected,
		}, meta)
	})
	if err != nil {
		return fmt.Errorf("delete widget: %w", err)
	}
	return nil
}

// WidgetCounts returns the caller's total and active widget counts.
func WidgetCounts(ctx context.Context, db *gorm.DB, userID string) (total, active int64, err error) {
	var row struct {
		Total  int64
		Active int64
	}
	err = db.WithContext(ctx).Model(&dbpkg.Widget{}).
		Select("COUNT(*) AS total, COUNT(CASE WHEN is_active THEN 1 END) AS active").
		Where("user_id = ?", userID).
		Scan(&row).Error
	if err != nil {
		return 0, 0, fmt.Errorf("widget counts: %w", err)
	}
	return row.Total, row.Active, nil
}
