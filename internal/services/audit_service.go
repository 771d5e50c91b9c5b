package services

import (
	"context"
	"encoding/json"

	"famledger/internal/logger"
	"famledger/internal/models"
	"famledger/internal/store"
)

// auditService handles audit log recording.
type auditService struct {
	uow store.UnitOfWork
}

// NewAuditService creates a new AuditServicer.
func NewAuditService(uow store.UnitOfWork) AuditServicer {
	return &auditService{uow: uow}
}

// Log records an audit event. Errors are logged and never reach the caller.
func (s *auditService) Log(ctx context.Context, userID, action, resourceType, resourceID, ipAddress string, changes map[string]any) {
	var changesJSON string
	if changes != nil {
		data, err := json.Marshal(changes)
		if err != nil {
			logger.Get().Errorw("failed to marshal audit log changes", "error", err, "action", action)
			changesJSON = "{}"
		} else {
			changesJSON = string(data)
		}
	}

	entry := &models.AuditLog{
		UserID:       userID,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   nonEmpty(&resourceID),
		IPAddress:    ipAddress,
		Changes:      changesJSON,
	}

	err := s.uow.Do(context.WithoutCancel(ctx), func(r *store.Repos) error {
		return r.Audit.Create(entry)
	})
	if err != nil {
		logger.Get().Errorw("failed to create audit log entry",
			"error", err,
			"user_id", userID,
			"action", action,
			"resource_type", resourceType,
			"resource_id", resourceID,
		)
	}
}
