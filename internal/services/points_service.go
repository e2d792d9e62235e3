package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/ArtificalManny/sharesync/internal/models"
	apperrors "github.com/ArtificalManny/sharesync/pkg/errors"
	"github.com/ArtificalManny/sharesync/pkg/metrics"
)

const defaultLeaderboardLimit = 10

// LeaderboardEntry is one row of the derived leaderboard projection.
type LeaderboardEntry struct {
	Rank   int    `json:"rank"`
	UserID string `json:"user_id"`
	Total  int    `json:"total"`
}

// ReconcileStats summarises a reconciliation pass over the point totals.
type ReconcileStats struct {
	Users      int64
	Mismatches int64
}

// PointsService owns the append-only points ledger and the denormalized
// per-user totals derived from it. The ledger is the source of truth; the
// totals table is a read model that is never written ahead of the ledger.
type PointsService struct {
	db *gorm.DB
}

// NewPointsService constructs a PointsService.
func NewPointsService(db *gorm.DB) (*PointsService, error) {
	if db == nil {
		return nil, errors.New("points service: db is required")
	}
	return &PointsService{db: db}, nil
}

// AddPoints appends one ledger entry and bumps the user's running total in
// the same transaction, so the cached total can never be observed ahead of
// the ledger entry that justifies it.
func (s *PointsService) AddPoints(ctx context.Context, userID string, amount int, action string) error {
	ctx = ensureContext(ctx)
	userID = strings.TrimSpace(userID)
	action = strings.TrimSpace(action)

	switch {
	case userID == "":
		return errors.New("points service: user id is required")
	case action == "":
		return errors.New("points service: action is required")
	case amount <= 0:
		return fmt.Errorf("points service: amount must be positive, got %d", amount)
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		event := models.PointEvent{
			UserID: userID,
			Amount: amount,
			Action: action,
		}
		if err := tx.Create(&event).Error; err != nil {
			return fmt.Errorf("append ledger entry: %w", err)
		}

		var total models.PointTotal
		switch err := tx.Where("user_id = ?", userID).First(&total).Error; {
		case errors.Is(err, gorm.ErrRecordNotFound):
			total = models.PointTotal{
				UserID:     userID,
				Total:      amount,
				AchievedAt: event.CreatedAt,
			}
			if err := tx.Create(&total).Error; err != nil {
				return fmt.Errorf("create running total: %w", err)
			}
		case err != nil:
			return fmt.Errorf("load running total: %w", err)
		default:
			updates := map[string]any{
				"total":       total.Total + amount,
				"achieved_at": event.CreatedAt,
			}
			if err := tx.Model(&models.PointTotal{}).
				Where("user_id = ?", userID).
				Updates(updates).Error; err != nil {
				return fmt.Errorf("update running total: %w", err)
			}
		}

		return nil
	})
	if err != nil {
		return apperrors.ErrPersistence.WithInternal(
			fmt.Errorf("points service: add points: %w", err))
	}

	metrics.PointsAwarded.WithLabelValues(action).Inc()
	return nil
}

// TotalFor re-sums the ledger for one user. This is the authoritative total
// regardless of the cached point_totals row.
func (s *PointsService) TotalFor(ctx context.Context, userID string) (int, error) {
	ctx = ensureContext(ctx)
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return 0, errors.New("points service: user id is required")
	}

	var total int
	if err := s.db.WithContext(ctx).
		Model(&models.PointEvent{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("user_id = ?", userID).
		Scan(&total).Error; err != nil {
		return 0, fmt.Errorf("points service: sum ledger: %w", err)
	}
	return total, nil
}

// Leaderboard returns the top users ordered by total points descending.
// Ties are broken by whoever reached the current total first, then by user
// id so repeated calls are deterministic.
func (s *PointsService) Leaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	ctx = ensureContext(ctx)
	if limit <= 0 || limit > 100 {
		limit = defaultLeaderboardLimit
	}

	var totals []models.PointTotal
	if err := s.db.WithContext(ctx).
		Order("total DESC, achieved_at ASC, user_id ASC").
		Limit(limit).
		Find(&totals).Error; err != nil {
		return nil, fmt.Errorf("points service: load leaderboard: %w", err)
	}

	entries := make([]LeaderboardEntry, 0, len(totals))
	for i, row := range totals {
		entries = append(entries, LeaderboardEntry{
			Rank:   i + 1,
			UserID: row.UserID,
			Total:  row.Total,
		})
	}
	return entries, nil
}

// Reconcile compares every cached total against the ledger sum and reports
// how many rows disagreed without fixing them.
func (s *PointsService) Reconcile(ctx context.Context) (ReconcileStats, error) {
	ctx = ensureContext(ctx)

	sums, err := s.ledgerSums(ctx)
	if err != nil {
		return ReconcileStats{}, err
	}

	var totals []models.PointTotal
	if err := s.db.WithContext(ctx).Find(&totals).Error; err != nil {
		return ReconcileStats{}, fmt.Errorf("points service: load totals: %w", err)
	}

	stats := ReconcileStats{Users: int64(len(sums))}
	seen := make(map[string]struct{}, len(totals))
	for _, row := range totals {
		seen[row.UserID] = struct{}{}
		if sums[row.UserID] != row.Total {
			stats.Mismatches++
		}
	}
	for userID := range sums {
		if _, ok := seen[userID]; !ok {
			stats.Mismatches++
		}
	}

	return stats, nil
}

// Rebuild re-derives the point_totals read model from the ledger. Safe to run
// at any time; the ledger is never touched.
func (s *PointsService) Rebuild(ctx context.Context) error {
	ctx = ensureContext(ctx)

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		type sumRow struct {
			UserID string
			Total  int
		}

		var rows []sumRow
		if err := tx.Model(&models.PointEvent{}).
			Select("user_id, SUM(amount) AS total").
			Group("user_id").
			Scan(&rows).Error; err != nil {
			return fmt.Errorf("points service: sum ledger: %w", err)
		}

		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).
			Delete(&models.PointTotal{}).Error; err != nil {
			return fmt.Errorf("points service: clear totals: %w", err)
		}

		for _, row := range rows {
			// MAX(created_at) comes back from SQLite as a string, so load the
			// latest ledger entry through a typed column scan instead.
			var last models.PointEvent
			if err := tx.Where("user_id = ?", row.UserID).
				Order("created_at DESC").
				Take(&last).Error; err != nil {
				return fmt.Errorf("points service: load last event for %s: %w", row.UserID, err)
			}

			total := models.PointTotal{
				UserID:     row.UserID,
				Total:      row.Total,
				AchievedAt: last.CreatedAt,
			}
			if err := tx.Create(&total).Error; err != nil {
				return fmt.Errorf("points service: rebuild total for %s: %w", row.UserID, err)
			}
		}

		return nil
	})
}

func (s *PointsService) ledgerSums(ctx context.Context) (map[string]int, error) {
	type sumRow struct {
		UserID string
		Total  int
	}

	var rows []sumRow
	if err := s.db.WithContext(ctx).
		Model(&models.PointEvent{}).
		Select("user_id, SUM(amount) AS total").
		Group("user_id").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("points service: sum ledger: %w", err)
	}

	sums := make(map[string]int, len(rows))
	for _, row := range rows {
		sums[row.UserID] = row.Total
	}
	return sums, nil
}
