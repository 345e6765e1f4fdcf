package service

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/noah-isme/academy-api/internal/models"
)

type auditRecorder interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// recordAudit persists an audit row on a best-effort basis; failures are logged only.
func recordAudit(ctx context.Context, recorder auditRecorder, logger *zap.Logger, principal *models.Principal, action, resource, resourceID string, newValues interface{}) {
	if recorder == nil {
		return
	}
	entry := &models.AuditLog{Action: action, Resource: resource}
	if principal != nil {
		userID := principal.UserID
		entry.UserID = &userID
		if principal.AcademyID != "" {
			academyID := principal.AcademyID
			entry.AcademyID = &academyID
		}
	}
	if resourceID != "" {
		entry.ResourceID = &resourceID
	}
	if newValues != nil {
		payload, err := json.Marshal(newValues)
		if err == nil {
			entry.NewValues = payload
		}
	}
	if err := recorder.CreateAuditLog(ctx, entry); err != nil {
		logger.Warn("failed to record audit log", zap.String("action", action), zap.Error(err))
	}
}
