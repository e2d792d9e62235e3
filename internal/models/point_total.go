package models

import "time"

// PointTotal is the denormalized per-user running total derived from the
// points ledger. It is written in the same transaction as the ledger append
// and can always be rebuilt by re-summing point_events.
//
// AchievedAt records when the current total was reached and breaks
// leaderboard ties in favour of the user who got there first.
type PointTotal struct {
	UserID     string    `gorm:"primaryKey;type:uuid" json:"user_id"`
	Total      int       `gorm:"not null;index" json:"total"`
	AchievedAt time.Time `gorm:"not null" json:"achieved_at"`
}

// TableName keeps the derived read model clearly separated from the ledger.
func (PointTotal) TableName() string {
	return "point_totals"
}
