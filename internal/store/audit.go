package store

import (
	"famledger/internal/models"

	"gorm.io/gorm"
)

// AuditRepository stores audit log rows.
type AuditRepository interface {
	Create(l *models.AuditLog) error
	ListByUser(userID string, limit int) ([]models.AuditLog, error)
}

type auditRepo struct {
	db *gorm.DB
}

func (r *auditRepo) Create(l *models.AuditLog) error {
	return translate("create audit log", r.db.Create(l).Error)
}

func (r *auditRepo) ListByUser(userID string, limit int) ([]models.AuditLog, error) {
	var logs []models.AuditLog
	if err := r.db.Where("user_id = ?", userID).Order("created_at DESC").Limit(limit).Find(&logs).Error; err != nil {
		return nil, translate("list audit logs", err)
	}
	return logs, nil
}
