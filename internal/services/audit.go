package services

import (
	"encoding/json"

	log "github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/kedaiku/pos/internal/models"
)

// AuditService appends admin-sensitive actions to the audit log. Failures
// are logged, never surfaced: auditing must not break the audited operation.
type AuditService struct {
	DB *gorm.DB
}

func NewAuditService(db *gorm.DB) *AuditService { return &AuditService{DB: db} }

func (s *AuditService) Record(actorID *uint, action, description, ip string, metadata map[string]interface{}) {
	entry := models.AuditLog{UserID: actorID, Action: action, Description: description, IP: ip}
	if metadata != nil {
		if raw, err := json.Marshal(metadata); err == nil {
			entry.Metadata = datatypes.JSON(raw)
		}
	}
	if err := s.DB.Create(&entry).Error; err != nil {
		log.Errorf("audit log write failed for %s: %v", action, err)
	}
}
