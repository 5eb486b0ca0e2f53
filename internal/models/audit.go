package models

import (
	"time"

	"gorm.io/datatypes"
)

// AuditLog records admin-sensitive actions. Append-only: nothing in the
// codebase updates or deletes these rows.
type AuditLog struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	UserID      *uint          `json:"user_id"`
	Action      string         `gorm:"not null;index" json:"action"` // e.g. "tenant.delete", "backup.restore"
	Description string         `json:"description"`
	IP          string         `json:"ip"`
	Metadata    datatypes.JSON `json:"metadata"`
	CreatedAt   time.Time      `json:"created_at"`
}

// SystemSetting is a platform-level key/value pair, read through a small
// in-process cache (see services.SettingService).
type SystemSetting struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Key       string    `gorm:"uniqueIndex;not null" json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}
