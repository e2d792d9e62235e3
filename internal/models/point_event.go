package models

// PointEvent is one append-only entry in the points ledger. Entries are never
// updated or deleted; a user's true total is always the sum of their entries.
type PointEvent struct {
	BaseModel

	UserID string `gorm:"type:uuid;index;not null" json:"user_id"`
	Amount int    `gorm:"not null" json:"amount"`
	Action string `gorm:"type:varchar(64);not null;index" json:"action"`
}
