package store

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	dbpkg "github.com/vanelang/review-flow/internal/db"
)

// NewReview is the validated input of a review submission.
type NewReview struct {
	WidgetID      string
	Rating        int
	Title         *string
	Content       string
	AuthorName    string
	AuthorEmail   *string
	AuthorConsent bool
	Source        string
	Metadata      map[string]any
	IPAddress     string
}

// CreateReview inserts a review for one of userID's widgets. The ownership
// check and the insert run in one transaction; the initial status follows the
// owner's auto-approve setting.
func CreateReview(ctx context.Context, db *gorm.DB, userID string, in NewReview, meta Meta) (*dbpkg.Review, error) {
	var r dbpkg.Review
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var w dbpkg.Widget
		if err := tx.Select("id").Where("id = ? AND user_id = ?", in.WidgetID, userID).First(&w).Error; err != nil {
			return notFound(err)
		}
		var owner dbpkg.User
		if err := tx.Select("id", "auto_approve_reviews").Where("id = ?", userID).First(&owner).Error; err != nil {
			return notFound(err)
		}

		status := dbpkg.ReviewStatusPending
		if owner.AutoApproveReviews {
			status = dbpkg.ReviewStatusApproved
		}
		source := in.Source
		if source == "" {
			source = dbpkg.ReviewSourceAPI
		}

		r = dbpkg.Review{
			UserID:        userID,
			WidgetID:      in.WidgetID,
			Rating:        in.Rating,
			Title:         in.Title,
			Content:       in.Content,
			AuthorName:    in.AuthorName,
			AuthorEmail:   in.AuthorEmail,
			AuthorConsent: in.AuthorConsent,
			Status:        status,
			Source:        source,
			IPAddress:     in.IPAddress,
		}
		if in.Metadata != nil {
			r.Metadata = datatypes.JSONMap(in.Metadata)
		}
		if err := tx.Create(&r).Error; err != nil {
			return err
		}
		return writeAudit(tx, userID, "review.created", "review", r.ID, map[string]any{
			"widgetId": r.WidgetID, "rating": r.Rating, "status": r.Status, "source": r.Source,
		}, meta)
	})
	if err != nil {
		return nil, fmt.Errorf("create review: %w", err)
	}
	return &r, nil
}

// ReviewFilter narrows ListReviews. Empty strings are ignored.
type ReviewFilter struct {
	Status   string
	Source   string
	WidgetID string
	Search   string
	Page     int
	Limit    int
}

// likeEscaper makes LIKE wildcards in a search term match literally.
var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// ListReviews returns one page of the caller's reviews, newest first, and the total match count.
func ListReviews(ctx context.Context, db *gorm.DB, userID string, f ReviewFilter) ([]dbpkg.Review, int64, error) {
	page, limit := Page(f.Page, f.Limit)

	q := db.WithContext(ctx).Model(&dbpkg.Review{}).Where("user_id = ?", userID)
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Source != "" {
		q = q.Where("source = ?", f.Source)
	}
	if f.WidgetID != "" {
		q = q.Where("widget_id = ?", f.WidgetID)
	}
	if s := strings.ToLower(strings.TrimSpace(f.Search)); s != "" {
		like := "%" + likeEscaper.Replace(s) + "%"
		q = q.Where(`(LOWER(author_name) LIKE ? ESCAPE '\' OR LOWER(content) LIKE ? ESCAPE '\')`, like, like)
	}

	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count reviews: %w", err)
	}

	reviews := []dbpkg.Review{}
	err := q.Order("created_at DESC").Order("id DESC").
		Offset((page - 1) * limit).Limit(limit).
		Find(&reviews).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list reviews: %w", err)
	}
	return reviews, total, nil
}

func GetReview(ctx context.Context, db *gorm.DB, userID, id string) (*dbpkg.Review, error) {
	var r dbpkg.Review
	if err := db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&r).Error; err != nil {
		return nil, fmt.Errorf("get review: %w", notFound(err))
	}
	return &r, nil
}

// RecentReviews returns the caller's n latest reviews.
func RecentReviews(ctx context.Context, db *gorm.DB, userID string, n int) ([]dbpkg.Review, error) {
	reviews := []dbpkg.Review{}
	err := db.WithContext(ctx).Where("user_id = ?", userID).
		Order("created_at DESC").Order("id DESC").Limit(n).
		Find(&reviews).Error
	if err != nil {
		return nil, fmt.Errorf("recent reviews: %w", err)
	}
	return reviews, nil
}

// UpdateReviewStatus moderates one of the caller's reviews. metadata replaces
// the stored metadata when non-nil.
func UpdateReviewStatus(ctx context.Context, db *gorm.DB, userID, id, status string, metadata map[string]any, meta Meta) (*dbpkg.Review, error) {
	var out dbpkg.Review
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ? AND user_id = ?", id, userID).First(&out).Error; err != nil {
			return notFound(err)
		}
		prev := out.Status
		updates := map[string]any{"status": status}
		if metadata != nil {
			updates["metadata"] = datatypes.JSONMap(metadata)
		}
		if err := tx.Model(&out).Updates(updates).Error; err != nil {
			return err
		}
		if err := tx.Where("id = ?", id).First(&out).Error; err != nil {
			return err
		}
		return writeAudit(tx, userID, "review.updated", "review", id, map[string]any{
			"status": map[string]string{"from": prev, "to": status},
		}, meta)
	})
	if err != nil {
		return nil, fmt.Errorf("update review: %w", err)
	}
	return &out, nil
}
