package store_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/vanelang/review-flow/internal/analytics"
	dbpkg "github.com/vanelang/review-flow/internal/db"
	"github.com/vanelang/review-flow/internal/store"
	"github.com/vanelang/review-flow/internal/testkit"
)

var meta = store.Meta{IP: "127.0.0.1", UserAgent: "go-test"}

func mustUser(t *testing.T, db *gorm.DB, email string) *dbpkg.User {
	t.Helper()
	u, err := store.CreateUser(context.Background(), db, email, "Owner", "hash")
	require.NoError(t, err)
	return u
}

func mustWidget(t *testing.T, db *gorm.DB, userID string) *dbpkg.Widget {
	t.Helper()
	w := &dbpkg.Widget{
		UserID:   userID,
		Name:     "Main form",
		Type:     dbpkg.WidgetTypeReviewForm,
		Config:   datatypes.JSONMap{"fields": []any{}},
		Domains:  datatypes.JSONSlice[string]{"x.com"},
		IsActive: true,
	}
	require.NoError(t, store.CreateWidget(context.Background(), db, w, meta))
	return w
}

func mustReview(t *testing.T, db *gorm.DB, userID, widgetID string, rating int) *dbpkg.Review {
	t.Helper()
	r, err := store.CreateReview(context.Background(), db, userID, store.NewReview{
		WidgetID:      widgetID,
		Rating:        rating,
		Content:       "Great service",
		AuthorName:    "Jane",
		AuthorConsent: true,
	}, meta)
	require.NoError(t, err)
	return r
}

func TestCreateUser_EmailTaken(t *testing.T) {
	db := testkit.OpenTestDB(t)
	ctx := context.Background()

	u := mustUser(t, db, "Owner@Example.com ")
	assert.Equal(t, "owner@example.com", u.Email)
	assert.True(t, u.IsActive)
	assert.Len(t, u.APIKey, 36)

	_, err := store.CreateUser(ctx, db, "owner@example.com", "Other", "hash")
	assert.ErrorIs(t, err, store.ErrEmailTaken)

	got, err := store.GetUserByAPIKey(ctx, db, u.APIKey)
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = store.GetUserByEmail(ctx, db, "nobody@example.com")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

// insertBeforeWrite registers a callback that inserts a user with email just
// before the next write to users, after the store's own duplicate check ran.
func insertBeforeWrite(t *testing.T, db *gorm.DB, email string) {
	t.Helper()
	done := false
	race := func(tx *gorm.DB) {
		if done || tx.Statement.Table != "users" {
			return
		}
		done = true
		other := &dbpkg.User{Email: email, Name: "Racer", PasswordHash: "hash", APIKey: uuid.NewString(), IsActive: true}
		require.NoError(t, tx.Session(&gorm.Session{NewDB: true}).Create(other).Error)
	}
	require.NoError(t, db.Callback().Create().Before("gorm:create").Register("test:concurrent_signup", race))
	require.NoError(t, db.Callback().Update().Before("gorm:update").Register("test:concurrent_update", race))
}

func TestCreateUser_ConcurrentSignupIsEmailTaken(t *testing.T) {
	db := testkit.OpenTestDB(t)
	insertBeforeWrite(t, db, "race@example.com")

	_, err := store.CreateUser(context.Background(), db, "race@example.com", "Owner", "hash")
	assert.ErrorIs(t, err, store.ErrEmailTaken)
}

func TestUpdateProfile_ConcurrentEmailChangeIsEmailTaken(t *testing.T) {
	db := testkit.OpenTestDB(t)
	a := mustUser(t, db, "a@example.com")
	insertBeforeWrite(t, db, "race@example.com")

	email := "race@example.com"
	_, err := store.UpdateProfile(context.Background(), db, a.ID, store.ProfilePatch{Email: &email})
	assert.ErrorIs(t, err, store.ErrEmailTaken)
}

func TestDuplicateKeyIsTranslated(t *testing.T) {
	db := testkit.OpenTestDB(t)
	u := mustUser(t, db, "a@example.com")

	dup := &dbpkg.User{Email: u.Email, Name: "Dup", PasswordHash: "hash", APIKey: uuid.NewString()}
	assert.ErrorIs(t, db.Create(dup).Error, gorm.ErrDuplicatedKey)
}

func TestUpdateProfile(t *testing.T) {
	db := testkit.OpenTestDB(t)
	ctx := context.Background()
	a := mustUser(t, db, "a@example.com")
	mustUser(t, db, "b@example.com")

	name, auto := "Alice", true
	u, err := store.UpdateProfile(ctx, db, a.ID, store.ProfilePatch{Name: &name, AutoApproveReviews: &auto})
	require.NoError(t, err)
	assert.Equal(t, "Alice", u.Name)
	assert.True(t, u.AutoApproveReviews)

	taken := "B@example.com"
	_, err = store.UpdateProfile(ctx, db, a.ID, store.ProfilePatch{Email: &taken})
	assert.ErrorIs(t, err, store.ErrEmailTaken)
}

func TestRotateAPIKey(t *testing.T) {
	db := testkit.OpenTestDB(t)
	ctx := context.Background()
	u := mustUser(t, db, "a@example.com")

	key, err := store.RotateAPIKey(ctx, db, u.ID, meta)
	require.NoError(t, err)
	assert.NotEqual(t, u.APIKey, key)

	_, err = store.GetUserByAPIKey(ctx, db, u.APIKey)
	assert.ErrorIs(t, err, store.ErrNotFound)

	rows, total, err := store.ListAudit(ctx, db, u.ID, "user", 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, "user.api_key_rotated", rows[0].Action)
}

func TestCreateReview_ScopedToOwner(t *testing.T) {
	db := testkit.OpenTestDB(t)
	ctx := context.Background()
	a := mustUser(t, db, "a@example.com")
	b := mustUser(t, db, "b@example.com")
	w := mustWidget(t, db, a.ID)

	r := mustReview(t, db, a.ID, w.ID, 5)
	assert.Equal(t, a.ID, r.UserID)
	assert.Equal(t, dbpkg.ReviewStatusPending, r.Status)
	assert.Equal(t, dbpkg.ReviewSourceAPI, r.Source)

	_, err := store.CreateReview(ctx, db, b.ID, store.NewReview{WidgetID: w.ID, Rating: 4, Content: "x", AuthorName: "y", AuthorConsent: true}, meta)
	assert.ErrorIs(t, err, store.ErrNotFound)

	var n int64
	require.NoError(t, db.Model(&dbpkg.Review{}).Count(&n).Error)
	assert.EqualValues(t, 1, n)
}

func TestCreateReview_AutoApprove(t *testing.T) {
	db := testkit.OpenTestDB(t)
	ctx := context.Background()
	a := mustUser(t, db, "a@example.com")
	auto := true
	_, err := store.UpdateProfile(ctx, db, a.ID, store.ProfilePatch{AutoApproveReviews: &auto})
	require.NoError(t, err)
	w := mustWidget(t, db, a.ID)

	r := mustReview(t, db, a.ID, w.ID, 3)
	assert.Equal(t, dbpkg.ReviewStatusApproved, r.Status)
}

func TestListReviews_Pagination(t *testing.T) {
	db := testkit.OpenTestDB(t)
	ctx := context.Background()
	a := mustUser(t, db, "a@example.com")
	w := mustWidget(t, db, a.ID)
	for i := 0; i < 25; i++ {
		mustReview(t, db, a.ID, w.ID, 1+i%5)
	}

	page2, total, err := store.ListReviews(ctx, db, a.ID, store.ReviewFilter{Page: 2, Limit: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 25, total)
	assert.Len(t, page2, 10)

	page3, _, err := store.ListReviews(ctx, db, a.ID, store.ReviewFilter{Page: 3, Limit: 10})
	require.NoError(t, err)
	assert.Len(t, page3, 5)
}

func TestListReviews_FiltersAndSearch(t *testing.T) {
	db := testkit.OpenTestDB(t)
	ctx := context.Background()
	a := mustUser(t, db, "a@example.com")
	b := mustUser(t, db, "b@example.com")
	wa := mustWidget(t, db, a.ID)
	wb := mustWidget(t, db, b.ID)

	r1 := mustReview(t, db, a.ID, wa.ID, 5)
	_, err := store.CreateReview(ctx, db, a.ID, store.NewReview{
		WidgetID: wa.ID, Rating: 2, Content: "Slow DELIVERY", AuthorName: "Bob", AuthorConsent: true, Source: dbpkg.ReviewSourceDirect,
	}, meta)
	require.NoError(t, err)
	mustReview(t, db, b.ID, wb.ID, 4)

	got, total, err := store.ListReviews(ctx, db, a.ID, store.ReviewFilter{Search: "delivery"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, "Bob", got[0].AuthorName)

	got, _, err = store.ListReviews(ctx, db, a.ID, store.ReviewFilter{Source: dbpkg.ReviewSourceAPI, Status: dbpkg.ReviewStatusPending})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, r1.ID, got[0].ID)

	all, total, err := store.ListReviews(ctx, db, a.ID, store.ReviewFilter{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	for _, r := range all {
		assert.Equal(t, a.ID, r.UserID)
	}
}

func TestListReviews_SearchWildcardsAreLiteral(t *testing.T) {
	db := testkit.OpenTestDB(t)
	ctx := context.Background()
	a := mustUser(t, db, "a@example.com")
	w := mustWidget(t, db, a.ID)

	mustReview(t, db, a.ID, w.ID, 5)
	for _, content := range []string{"100% satisfied", `dir C:\temp worked`, "snake_case fan"} {
		_, err := store.CreateReview(ctx, db, a.ID, store.NewReview{
			WidgetID: w.ID, Rating: 4, Content: content, AuthorName: "Ann", AuthorConsent: true,
		}, meta)
		require.NoError(t, err)
	}

	cases := map[string]string{
		"%":    "100% satisfied",
		"0% s": "100% satisfied",
		"_":    "snake_case fan",
		`\`:    `dir C:\temp worked`,
	}
	for term, want := range cases {
		got, total, err := store.ListReviews(ctx, db, a.ID, store.ReviewFilter{Search: term})
		require.NoError(t, err, term)
		require.EqualValues(t, 1, total, term)
		assert.Equal(t, want, got[0].Content, term)
	}
}

func TestUpdateReviewStatus_NotOwned(t *testing.T) {
	db := testkit.OpenTestDB(t)
	ctx := context.Background()
	a := mustUser(t, db, "a@example.com")
	b := mustUser(t, db, "b@example.com")
	w := mustWidget(t, db, a.ID)
	r := mustReview(t, db, a.ID, w.ID, 5)

	_, err := store.UpdateReviewStatus(ctx, db, b.ID, r.ID, dbpkg.ReviewStatusRejected, nil, meta)
	assert.ErrorIs(t, err, store.ErrNotFound)

	got, err := store.UpdateReviewStatus(ctx, db, a.ID, r.ID, dbpkg.ReviewStatusApproved, map[string]any{"note": "ok"}, meta)
	require.NoError(t, err)
	assert.Equal(t, dbpkg.ReviewStatusApproved, got.Status)
	assert.Equal(t, "ok", got.Metadata["note"])
}

func TestUpdateWidget_NotOwnedUnchanged(t *testing.T) {
	db := testkit.OpenTestDB(t)
	ctx := context.Background()
	a := mustUser(t, db, "a@example.com")
	b := mustUser(t, db, "b@example.com")
	w := mustWidget(t, db, a.ID)

	name := "Hijacked"
	_, err := store.UpdateWidget(ctx, db, b.ID, w.ID, store.WidgetPatch{Name: &name}, meta)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.ErrorIs(t, store.DeleteWidget(ctx, db, b.ID, w.ID, meta), store.ErrNotFound)

	got, err := store.GetWidget(ctx, db, a.ID, w.ID)
	require.NoError(t, err)
	assert.Equal(t, "Main form", got.Name)

	off := false
	got, err = store.UpdateWidget(ctx, db, a.ID, w.ID, store.WidgetPatch{IsActive: &off, Domains: []string{"y.com"}}, meta)
	require.NoError(t, err)
	assert.False(t, got.IsActive)
	assert.Equal(t, []string{"y.com"}, []string(got.Domains))

	total, active, err := store.WidgetCounts(ctx, db, a.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.EqualValues(t, 0, active)
}

func TestDeleteWidget_CascadesReviews(t *testing.T) {
	db := testkit.OpenTestDB(t)
	ctx := context.Background()
	a := mustUser(t, db, "a@example.com")
	w1 := mustWidget(t, db, a.ID)
	w2 := mustWidget(t, db, a.ID)
	mustReview(t, db, a.ID, w1.ID, 5)
	mustReview(t, db, a.ID, w1.ID, 4)
	keep := mustReview(t, db, a.ID, w2.ID, 3)

	require.NoError(t, store.DeleteWidget(ctx, db, a.ID, w1.ID, meta))

	_, err := store.GetWidget(ctx, db, a.ID, w1.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	all, total, err := store.ListReviews(ctx, db, a.ID, store.ReviewFilter{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, keep.ID, all[0].ID)
}

func TestSummaries(t *testing.T) {
	db := testkit.OpenTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC()
	a := mustUser(t, db, "a@example.com")
	w := mustWidget(t, db, a.ID)

	empty, err := store.SummarizeReviews(ctx, db, a.ID, now)
	require.NoError(t, err)
	assert.Equal(t, store.ReviewSummary{}, empty)

	mustReview(t, db, a.ID, w.ID, 5)
	mustReview(t, db, a.ID, w.ID, 4)
	old := mustReview(t, db, a.ID, w.ID, 3)
	require.NoError(t, db.Model(&dbpkg.Review{}).Where("id = ?", old.ID).
		Update("created_at", now.AddDate(0, 0, -45)).Error)

	s, err := store.SummarizeReviews(ctx, db, a.ID, now)
	require.NoError(t, err)
	assert.EqualValues(t, 3, s.Total)
	assert.EqualValues(t, 2, s.Recent)
	assert.EqualValues(t, 1, s.Previous)
	assert.InDelta(t, 4.0, s.AvgRating, 0.001)

	bySource, err := store.ReviewsBySource(ctx, db, a.ID)
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"api": 3, "widget": 0, "direct": 0}, bySource)
}

func TestBucketsAndUsage(t *testing.T) {
	db := testkit.OpenTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC()
	a := mustUser(t, db, "a@example.com")
	w := mustWidget(t, db, a.ID)

	r1 := mustReview(t, db, a.ID, w.ID, 5)
	r2 := mustReview(t, db, a.ID, w.ID, 4)
	twoDaysAgo := now.AddDate(0, 0, -2)
	require.NoError(t, db.Model(&dbpkg.Review{}).Where("id = ?", r2.ID).Update("created_at", twoDaysAgo).Error)

	for i, status := range []int{200, 201, 500} {
		require.NoError(t, store.RecordAPIUsage(ctx, db, &dbpkg.APIUsage{
			UserID: a.ID, Endpoint: "/api/reviews", Method: "GET", StatusCode: status,
			RequestedAt: now.Add(-time.Duration(i) * time.Minute),
		}))
	}

	since, unit := analytics.Window(analytics.Daily, now)
	reviews, err := store.ReviewBuckets(ctx, db, a.ID, since, unit)
	require.NoError(t, err)
	require.Len(t, reviews, 2)
	assert.Equal(t, twoDaysAgo.Format(time.DateOnly), reviews[0].Key)
	assert.Equal(t, r1.CreatedAt.UTC().Format(time.DateOnly), reviews[1].Key)

	calls, err := store.APICallBuckets(ctx, db, a.ID, since, unit)
	require.NoError(t, err)

	merged := analytics.MergeTrends(reviews, calls)
	require.Len(t, merged, 2)
	assert.EqualValues(t, 0, merged[0].APICalls)

	total, success, err := store.APIUsageSummary(ctx, db, a.ID, now.AddDate(0, 0, -30))
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.EqualValues(t, 2, success)

	since, unit = analytics.Window(analytics.Monthly, now)
	months, err := store.ReviewBuckets(ctx, db, a.ID, since, unit)
	require.NoError(t, err)
	for _, m := range months {
		assert.Equal(t, "01", m.Key[8:], fmt.Sprintf("monthly bucket %s starts on the first", m.Key))
	}
}
