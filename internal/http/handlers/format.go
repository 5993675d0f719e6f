package handlers

import (
	"math"
	"time"

	dbpkg "github.com/vanelang/review-flow/internal/db"
)

type userView struct {
	ID                 string `json:"id"`
	Name               string `json:"name"`
	Email              string `json:"email"`
	CompanyName        string `json:"companyName"`
	APIKey             string `json:"apiKey"`
	IsActive           bool   `json:"isActive"`
	AutoApproveReviews bool   `json:"autoApproveReviews"`
}

func newUserView(u *dbpkg.User) userView {
	return userView{
		ID:                 u.ID,
		Name:               u.Name,
		Email:              u.Email,
		CompanyName:        u.CompanyName,
		APIKey:             u.APIKey,
		IsActive:           u.IsActive,
		AutoApproveReviews: u.AutoApproveReviews,
	}
}

// sessionUser is the user summary returned with a session token.
type sessionUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

type pagination struct {
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Pages int   `json:"pages"`
}

func newPagination(total int64, page, limit int) pagination {
	return pagination{
		Total: total,
		Page:  page,
		Limit: limit,
		Pages: int(math.Ceil(float64(total) / float64(limit))),
	}
}

type recentReview struct {
	ID         string    `json:"id"`
	AuthorName string    `json:"authorName"`
	Rating     int       `json:"rating"`
	Content    string    `json:"content"`
	Source     string    `json:"source"`
	CreatedAt  time.Time `json:"createdAt"`
}

func newRecentReviews(rs []dbpkg.Review) []recentReview {
	out := make([]recentReview, 0, len(rs))
	for _, r := range rs {
		out = append(out, recentReview{
			ID:         r.ID,
			AuthorName: r.AuthorName,
			Rating:     r.Rating,
			Content:    r.Content,
			Source:     r.Source,
			CreatedAt:  r.CreatedAt,
		})
	}
	return out
}
