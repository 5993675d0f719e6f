package db

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	WidgetTypeReviewForm  = "review-form"
	WidgetTypeTestimonial = "testimonial"
	WidgetTypeRating      = "rating"
)

const (
	ReviewStatusPending  = "pending"
	ReviewStatusApproved = "approved"
	ReviewStatusRejected = "rejected"
)

const (
	ReviewSourceDirect = "direct"
	ReviewSourceAPI    = "api"
	ReviewSourceWidget = "widget"
)

// Widget represents an embeddable, owner-configured UI unit (review form,
// testimonial display or rating badge) with an allow-list of hosting domains.
type Widget struct {
	ID string `gorm:"primaryKey;size:36" json:"id"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	// UserID is the owner. Every read and mutation is scoped by it.
	UserID string `gorm:"index;size:36;not null" json:"userId"`

	Name string `gorm:"not null" json:"name"`
	Type string `gorm:"size:32;not null" json:"type"`

	// Config is opaque to the server except for review-form fields,
	// which the form builder validates on write.
	Config datatypes.JSONMap `gorm:"not null" json:"config"`
	Styles datatypes.JSONMap `json:"styles"`

	Domains datatypes.JSONSlice[string] `gorm:"column:allowed_domains;not null" json:"domains"`

	IsActive bool `gorm:"not null" json:"isActive"`
}

func (w *Widget) BeforeCreate(*gorm.DB) error {
	ensureID(&w.ID)
	return nil
}

// Review is a single customer rating + text tied to a widget.
// UserID is the owner of the widget, not the reviewer.
type Review struct {
	ID string `gorm:"primaryKey;size:36" json:"id"`

	CreatedAt time.Time `gorm:"index" json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	UserID   string  `gorm:"index;size:36;not null" json:"userId"`
	WidgetID string  `gorm:"index;size:36;not null" json:"widgetId"`
	Widget   *Widget `gorm:"foreignKey:WidgetID;constraint:OnDelete:CASCADE" json:"-"`

	Rating        int     `gorm:"not null;check:rating >= 1 AND rating <= 5" json:"rating"`
	Title         *string `json:"title"`
	Content       string  `gorm:"not null" json:"content"`
	AuthorName    string  `gorm:"not null" json:"authorName"`
	AuthorEmail   *string `gorm:"size:255" json:"authorEmail"`
	AuthorConsent bool    `gorm:"not null" json:"authorConsent"`

	Status string `gorm:"size:16;index;not null" json:"status"`
	Source string `gorm:"size:16;index;not null" json:"source"`

	Metadata  datatypes.JSONMap `json:"metadata"`
	IPAddress string            `gorm:"size:45" json:"ipAddress,omitempty"`

	// ScheduledForDeletion marks the review for removal by the retention worker.
	ScheduledForDeletion *time.Time `gorm:"index" json:"scheduledForDeletion,omitempty"`
}

func (r *Review) BeforeCreate(*gorm.DB) error {
	ensureID(&r.ID)
	return nil
}

// APIUsage is an append-only row per API-key authenticated call.
type APIUsage struct {
	ID string `gorm:"primaryKey;size:36" json:"id"`

	UserID     string `gorm:"index;size:36;not null" json:"userId"`
	Endpoint   string `gorm:"not null" json:"endpoint"`
	Method     string `gorm:"size:8;not null" json:"method"`
	StatusCode int    `gorm:"not null" json:"statusCode"`

	ResponseTimeMs int64  `gorm:"column:response_time" json:"responseTime"`
	IPAddress      string `gorm:"size:45" json:"ipAddress,omitempty"`
	UserAgent      string `json:"userAgent,omitempty"`

	RequestedAt time.Time `gorm:"index;not null" json:"timestamp"`
}

func (APIUsage) TableName() string { return "api_usage" }

func (u *APIUsage) BeforeCreate(*gorm.DB) error {
	ensureID(&u.ID)
	return nil
}

// AuditLog is an append-only record of a user mutation.
type AuditLog struct {
	ID string `gorm:"primaryKey;size:36" json:"id"`

	CreatedAt time.Time `gorm:"index" json:"timestamp"`

	UserID     string         `gorm:"index;size:36;not null" json:"userId"`
	Action     string         `gorm:"size:64;not null" json:"action"` // "review.created", "widget.deleted", ...
	EntityType string         `gorm:"size:32;index;not null" json:"entityType"`
	EntityID   string         `gorm:"size:36;not null" json:"entityId"`
	Changes    datatypes.JSON `json:"changes"`
	IPAddress  string         `gorm:"size:45" json:"ipAddress,omitempty"`
	UserAgent  string         `json:"userAgent,omitempty"`
}

func (AuditLog) TableName() string { return "audit_log" }

func (a *AuditLog) BeforeCreate(*gorm.DB) error {
	ensureID(&a.ID)
	return nil
}

// Plan and Subscription carry billing metadata. No route reads them yet.
type Plan struct {
	ID string `gorm:"primaryKey;size:36" json:"id"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	Name          string         `gorm:"uniqueIndex;not null" json:"name"`
	Price         int            `gorm:"not null" json:"price"`
	BillingPeriod string         `gorm:"size:16;not null" json:"billingPeriod"` // monthly | yearly
	Limits        datatypes.JSON `gorm:"not null" json:"limits"`
	Features      datatypes.JSON `gorm:"not null" json:"features"`
	IsActive      bool           `gorm:"not null" json:"isActive"`
}

func (p *Plan) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}

type Subscription struct {
	ID string `gorm:"primaryKey;size:36" json:"id"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	UserID string `gorm:"index;size:36;not null" json:"userId"`
	PlanID string `gorm:"index;size:36;not null" json:"planId"`
	Status string `gorm:"size:16;not null" json:"status"` // active | cancelled | past_due

	CurrentPeriodStart time.Time  `gorm:"not null" json:"currentPeriodStart"`
	CurrentPeriodEnd   time.Time  `gorm:"not null" json:"currentPeriodEnd"`
	CancelAt           *time.Time `json:"cancelAt"`
	CanceledAt         *time.Time `json:"canceledAt"`
}

func (s *Subscription) BeforeCreate(*gorm.DB) error {
	ensureID(&s.ID)
	return nil
}

// UsageLimit holds per-user monthly counters, filled by the roll-up worker.
type UsageLimit struct {
	ID string `gorm:"primaryKey;size:36" json:"id"`

	UserID      string    `gorm:"uniqueIndex:idx_usage_limit_period,priority:1;size:36;not null" json:"userId"`
	PeriodStart time.Time `gorm:"uniqueIndex:idx_usage_limit_period,priority:2;not null" json:"periodStart"` // first instant of the month (UTC)
	PeriodEnd   time.Time `gorm:"not null" json:"periodEnd"`

	ReviewsCount  int64 `gorm:"not null" json:"reviewsCount"`
	APICallsCount int64 `gorm:"not null" json:"apiCallsCount"`
	WidgetsCount  int64 `gorm:"not null" json:"widgetsCount"`

	LastUpdated time.Time `gorm:"not null" json:"lastUpdated"`
}

func (u *UsageLimit) BeforeCreate(*gorm.DB) error {
	ensureID(&u.ID)
	return nil
}

func ensureID(id *string) {
	if *id == "" {
		*id = uuid.NewString()
	}
}
