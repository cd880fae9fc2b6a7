package models

import (
	"context"
	"time"
)

// Audit actions recorded for enrollment and grading changes.
const (
	AuditActionWaitlistRequest = "ENROLLMENT_WAITLIST"
	AuditActionWaitlistCancel  = "ENROLLMENT_CANCEL"
	AuditActionApprove         = "ENROLLMENT_APPROVE"
	AuditActionDeny            = "ENROLLMENT_DENY"
	AuditActionDrop            = "ENROLLMENT_DROP"
	AuditActionComplete        = "ENROLLMENT_COMPLETE"
	AuditActionFinalGrade      = "FINAL_GRADE_UPDATE"
	AuditActionPasswordChange  = "PASSWORD_CHANGE"
	AuditActionPasswordReset   = "PASSWORD_RESET"
)

// AuditLog represents an audit trail record.
type AuditLog struct {
	ID         int64     `db:"id" json:"id"`
	UserID     *int64    `db:"user_id" json:"user_id,omitempty"`
	Action     string    `db:"action" json:"action"`
	Resource   string    `db:"resource" json:"resource"`
	ResourceID *string   `db:"resource_id" json:"resource_id,omitempty"`
	NewValues  []byte    `db:"new_values" json:"new_values,omitempty"`
	IPAddress  string    `db:"ip_address" json:"ip_address"`
	UserAgent  string    `db:"user_agent" json:"user_agent"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// ClientInfo identifies the caller's network origin for audit rows.
type ClientInfo struct {
	IPAddress string
	UserAgent string
}

type clientInfoKey struct{}

// WithClientInfo stores info on ctx.
func WithClientInfo(ctx context.Context, info ClientInfo) context.Context {
	return context.WithValue(ctx, clientInfoKey{}, info)
}

// ClientInfoFrom returns the info stored by WithClientInfo, if any.
func ClientInfoFrom(ctx context.Context) ClientInfo {
	info, _ := ctx.Value(clientInfoKey{}).(ClientInfo)
	return info
}
