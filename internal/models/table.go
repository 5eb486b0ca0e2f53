package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Table is a physical table. QRToken enables unauthenticated self-service
// ordering scoped to the table; it is generated once and never regenerated.
type Table struct {
	ID        uint        `gorm:"primaryKey" json:"id"`
	TenantID  uint        `gorm:"index;not null" json:"tenant_id"`
	Number    string      `gorm:"not null" json:"number"`
	Seats     int         `json:"seats"`
	Status    TableStatus `gorm:"not null;default:'available'" json:"status"`
	QRToken   string      `gorm:"uniqueIndex;not null" json:"qr_token"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

func (t *Table) BeforeCreate(tx *gorm.DB) error {
	if t.QRToken == "" {
		t.QRToken = uuid.NewString()
	}
	if t.Status == "" {
		t.Status = TableAvailable
	}
	return nil
}
