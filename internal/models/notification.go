package models

import (
	"time"

	"gorm.io/datatypes"
)

// Notification represents a persisted in-app notification for a single
// recipient. Broadcasts to many users are stored as one row per recipient.
// Rows are immutable after creation except for the read flag.
type Notification struct {
	BaseModel

	UserID    string         `gorm:"type:uuid;index;not null" json:"user_id"`
	Type      string         `gorm:"type:varchar(64);not null;index" json:"type"`
	Message   string         `gorm:"type:text" json:"message"`
	RelatedID string         `gorm:"type:varchar(64);index" json:"related_id,omitempty"`
	Metadata  datatypes.JSON `json:"metadata,omitempty"`

	IsRead bool       `gorm:"default:false;index" json:"is_read"`
	ReadAt *time.Time `json:"read_at,omitempty"`
}
