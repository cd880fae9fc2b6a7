package service

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/noah-isme/kanvas-api/internal/models"
)

type auditWriter interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// auditTrail writes audit rows on a best effort basis. A failed write is
// logged and never fails the caller's operation.
type auditTrail struct {
	writer auditWriter
	logger *zap.Logger
}

func (a auditTrail) record(ctx context.Context, actor models.Actor, action, resource, resourceID string, payload interface{}) {
	if a.writer == nil {
		return
	}
	body, err := json.Marshal(payload)
	if err != nil {
		a.logger.Warn("audit payload not encodable", zap.String("action", action), zap.Error(err))
		body = nil
	}
	info := models.ClientInfoFrom(ctx)
	userID := actor.ID
	entry := &models.AuditLog{
		UserID:     &userID,
		Action:     action,
		Resource:   resource,
		ResourceID: &resourceID,
		NewValues:  body,
		IPAddress:  info.IPAddress,
		UserAgent:  info.UserAgent,
	}
	if err := a.writer.CreateAuditLog(ctx, entry); err != nil {
		a.logger.Warn("audit log write failed", zap.String("action", action), zap.String("resource_id", resourceID), zap.Error(err))
	}
}
