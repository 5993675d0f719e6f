package db_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	dbpkg "github.com/vanelang/review-flow/internal/db"
	"github.com/vanelang/review-flow/internal/testkit"
)

func seedOwner(t *testing.T, db *gorm.DB, email string, retentionDays int) (dbpkg.User, dbpkg.Widget) {
	t.Helper()
	u := dbpkg.User{Email: email, Name: "Owner", PasswordHash: "x", APIKey: email, IsActive: true, DataRetentionDays: retentionDays}
	require.NoError(t, db.Create(&u).Error)
	w := dbpkg.Widget{UserID: u.ID, Name: "W", Type: dbpkg.WidgetTypeRating, Config: datatypes.JSONMap{}, Domains: datatypes.JSONSlice[string]{"x.com"}, IsActive: true}
	require.NoError(t, db.Create(&w).Error)
	return u, w
}

func usage(userID string, at time.Time) *dbpkg.APIUsage {
	return &dbpkg.APIUsage{UserID: userID, Endpoint: "/api/reviews", Method: "GET", StatusCode: 200, RequestedAt: at}
}

func TestRunRetentionOnce(t *testing.T) {
	db := testkit.OpenTestDB(t)
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	long, w := seedOwner(t, db, "long@example.com", 90)
	short, _ := seedOwner(t, db, "short@example.com", 7)

	require.NoError(t, db.Create(usage(long.ID, now.AddDate(0, 0, -100))).Error)
	require.NoError(t, db.Create(usage(long.ID, now.AddDate(0, 0, -10))).Error)
	require.NoError(t, db.Create(usage(short.ID, now.AddDate(0, 0, -10))).Error)
	require.NoError(t, db.Create(usage(short.ID, now.AddDate(0, 0, -1))).Error)

	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)
	for _, when := range []*time.Time{&past, &future, nil} {
		require.NoError(t, db.Create(&dbpkg.Review{
			UserID: long.ID, WidgetID: w.ID, Rating: 5, Content: "c", AuthorName: "a", AuthorConsent: true,
			Status: dbpkg.ReviewStatusPending, Source: dbpkg.ReviewSourceAPI, ScheduledForDeletion: when,
		}).Error)
	}

	res, err := dbpkg.RunRetentionOnce(ctx, db, 90, now)
	require.NoError(t, err)
	assert.EqualValues(t, 2, res.UsageRows)
	assert.EqualValues(t, 1, res.ReviewsRows)

	var left int64
	require.NoError(t, db.Model(&dbpkg.APIUsage{}).Count(&left).Error)
	assert.EqualValues(t, 2, left)
	require.NoError(t, db.Model(&dbpkg.Review{}).Count(&left).Error)
	assert.EqualValues(t, 2, left)
}

func TestRunUsageRollupOnce_Upserts(t *testing.T) {
	db := testkit.OpenTestDB(t)
	ctx := context.Background()
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	u, w := seedOwner(t, db, "a@example.com", 90)
	idle, _ := seedOwner(t, db, "idle@example.com", 90)
	require.NoError(t, db.Create(usage(u.ID, now.Add(-time.Hour))).Error)
	require.NoError(t, db.Create(usage(u.ID, now.AddDate(0, -1, 0))).Error)
	require.NoError(t, db.Create(&dbpkg.Review{
		UserID: u.ID, WidgetID: w.ID, Rating: 4, Content: "c", AuthorName: "a", AuthorConsent: true,
		Status: dbpkg.ReviewStatusPending, Source: dbpkg.ReviewSourceAPI, CreatedAt: now.Add(-time.Hour),
	}).Error)

	n, err := dbpkg.RunUsageRollupOnce(ctx, db, now)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	start, end := dbpkg.MonthBounds(now)
	var row dbpkg.UsageLimit
	require.NoError(t, db.Where("user_id = ? AND period_start = ?", u.ID, start).First(&row).Error)
	assert.EqualValues(t, 1, row.ReviewsCount)
	assert.EqualValues(t, 1, row.APICallsCount)
	assert.EqualValues(t, 1, row.WidgetsCount)
	assert.True(t, row.PeriodEnd.Equal(end))

	require.NoError(t, db.Create(usage(u.ID, now.Add(-time.Minute))).Error)
	_, err = dbpkg.RunUsageRollupOnce(ctx, db, now)
	require.NoError(t, err)

	var rows []dbpkg.UsageLimit
	require.NoError(t, db.Where("user_id = ?", u.ID).Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.EqualValues(t, 2, rows[0].APICallsCount)

	var idleRow dbpkg.UsageLimit
	require.NoError(t, db.Where("user_id = ?", idle.ID).First(&idleRow).Error)
	assert.Zero(t, idleRow.ReviewsCount)
}

func TestMonthBounds(t *testing.T) {
	start, end := dbpkg.MonthBounds(time.Date(2024, 12, 31, 23, 0, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), end)
}
