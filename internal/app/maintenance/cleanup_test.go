package maintenance

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/authzd/internal/cache"
	testutil "github.com/charlesng35/authzd/internal/database/testutil"
	"github.com/charlesng35/authzd/internal/models"
	"github.com/charlesng35/authzd/internal/services"
)

func TestCleanerRunOnce(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	ctx := context.Background()

	require.NoError(t, db.Create(&models.AuditLog{
		Action:    "old.action",
		Result:    "success",
		CreatedAt: time.Now().AddDate(0, 0, -40),
	}).Error)
	require.NoError(t, db.Create(&models.AuditLog{
		Action: "recent.action",
		Result: "success",
	}).Error)

	store := cache.NewDatabaseStore(db)
	require.NoError(t, store.Set(ctx, "stale", []byte("x"), time.Nanosecond))
	require.NoError(t, store.Set(ctx, "fresh", []byte("y"), time.Hour))
	time.Sleep(5 * time.Millisecond)

	audit, err := services.NewAuditService(db)
	require.NoError(t, err)

	cleaner := NewCleaner(audit, WithAuditRetentionDays(30), WithCacheStore(store))
	_, ran := cleaner.LastRun()
	require.False(t, ran)

	report, err := cleaner.RunOnce(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), report.AuditLogs)
	require.Equal(t, int64(1), report.CacheEntries)

	var remaining int64
	require.NoError(t, db.Model(&models.AuditLog{}).Count(&remaining).Error)
	require.Equal(t, int64(1), remaining)

	last, ran := cleaner.LastRun()
	require.True(t, ran)
	require.NoError(t, last.Err)
	require.Equal(t, report, last.Report)

	_, ok, err := store.Get(ctx, "fresh")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestCleanerSkipsMissingDependencies(t *testing.T) {
	report, err := NewCleaner(nil).RunOnce(context.Background())
	require.NoError(t, err)
	require.Zero(t, report.AuditLogs)
	require.Zero(t, report.CacheEntries)
}
