package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ArtificalManny/sharesync/internal/database/testutil"
	"github.com/ArtificalManny/sharesync/internal/models"
)

func TestPointsServiceAddPointsAccumulates(t *testing.T) {
	db := testutil.MustOpenTestDB(t)

	svc, err := NewPointsService(db)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, svc.AddPoints(ctx, "alice", 5, "create_post"))
	require.NoError(t, svc.AddPoints(ctx, "alice", 1, "like_post"))

	total, err := svc.TotalFor(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, 6, total)

	// The ledger keeps one row per award; nothing is collapsed.
	var events int64
	require.NoError(t, db.Model(&models.PointEvent{}).Where("user_id = ?", "alice").Count(&events).Error)
	require.EqualValues(t, 2, events)
}

func TestPointsServiceAddPointsRejectsInvalidInput(t *testing.T) {
	db := testutil.MustOpenTestDB(t)

	svc, err := NewPointsService(db)
	require.NoError(t, err)

	ctx := context.Background()
	require.Error(t, svc.AddPoints(ctx, "", 5, "create_post"))
	require.Error(t, svc.AddPoints(ctx, "alice", 5, ""))
	require.Error(t, svc.AddPoints(ctx, "alice", 0, "create_post"))
	require.Error(t, svc.AddPoints(ctx, "alice", -3, "create_post"))

	total, err := svc.TotalFor(ctx, "alice")
	require.NoError(t, err)
	require.Zero(t, total)
}

func TestPointsServiceRepeatedAwardsAllCount(t *testing.T) {
	db := testutil.MustOpenTestDB(t)

	svc, err := NewPointsService(db)
	require.NoError(t, err)

	// Idempotence of likes is the caller's policy; the ledger records every
	// event it is handed.
	ctx := context.Background()
	require.NoError(t, svc.AddPoints(ctx, "alice", 1, "like_post"))
	require.NoError(t, svc.AddPoints(ctx, "alice", 1, "like_post"))

	total, err := svc.TotalFor(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, 2, total)
}

func TestPointsServiceLeaderboardOrdering(t *testing.T) {
	db := testutil.MustOpenTestDB(t)

	svc, err := NewPointsService(db)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, svc.AddPoints(ctx, "carol", 10, "complete_task"))
	require.NoError(t, svc.AddPoints(ctx, "alice", 5, "create_post"))
	require.NoError(t, svc.AddPoints(ctx, "bob", 5, "create_post"))
	require.NoError(t, svc.AddPoints(ctx, "dave", 1, "like_post"))

	entries, err := svc.Leaderboard(ctx, 3)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	require.Equal(t, LeaderboardEntry{Rank: 1, UserID: "carol", Total: 10}, entries[0])
	// alice and bob are tied on 5; alice reached the total first.
	require.Equal(t, LeaderboardEntry{Rank: 2, UserID: "alice", Total: 5}, entries[1])
	require.Equal(t, LeaderboardEntry{Rank: 3, UserID: "bob", Total: 5}, entries[2])
}

func TestPointsServiceLeaderboardTieBreaksOnUserID(t *testing.T) {
	db := testutil.MustOpenTestDB(t)

	svc, err := NewPointsService(db)
	require.NoError(t, err)

	// Force identical totals and timestamps so only the user id ordering is left.
	now := time.Now().UTC().Truncate(time.Second)
	for _, userID := range []string{"zoe", "amy"} {
		require.NoError(t, db.Create(&models.PointTotal{
			UserID:     userID,
			Total:      5,
			AchievedAt: now,
		}).Error)
	}

	entries, err := svc.Leaderboard(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, "amy", entries[0].UserID)
	require.Equal(t, "zoe", entries[1].UserID)
}

func TestPointsServiceReconcileDetectsDrift(t *testing.T) {
	db := testutil.MustOpenTestDB(t)

	svc, err := NewPointsService(db)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, svc.AddPoints(ctx, "alice", 5, "create_post"))
	require.NoError(t, svc.AddPoints(ctx, "bob", 10, "complete_task"))

	stats, err := svc.Reconcile(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 2, stats.Users)
	require.Zero(t, stats.Mismatches)

	// Corrupt the read model behind the service's back.
	require.NoError(t, db.Model(&models.PointTotal{}).
		Where("user_id = ?", "alice").
		Update("total", 999).Error)

	stats, err = svc.Reconcile(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, stats.Mismatches)
}

func TestPointsServiceRebuildRestoresTotalsFromLedger(t *testing.T) {
	db := testutil.MustOpenTestDB(t)

	svc, err := NewPointsService(db)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, svc.AddPoints(ctx, "alice", 5, "create_post"))
	require.NoError(t, svc.AddPoints(ctx, "alice", 1, "like_post"))

	require.NoError(t, db.Model(&models.PointTotal{}).
		Where("user_id = ?", "alice").
		Update("total", 0).Error)

	require.NoError(t, svc.Rebuild(ctx))

	entries, err := svc.Leaderboard(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, 6, entries[0].Total)

	// The rebuilt row carries the timestamp of the latest ledger entry so
	// leaderboard tie-breaks survive a rebuild.
	var lastEvent models.PointEvent
	require.NoError(t, db.Where("user_id = ?", "alice").
		Order("created_at DESC").
		Take(&lastEvent).Error)

	var rebuilt models.PointTotal
	require.NoError(t, db.Where("user_id = ?", "alice").Take(&rebuilt).Error)
	require.Equal(t, 6, rebuilt.Total)
	require.WithinDuration(t, lastEvent.CreatedAt, rebuilt.AchievedAt, time.Second)

	stats, err := svc.Reconcile(ctx)
	require.NoError(t, err)
	require.Zero(t, stats.Mismatches)
}
