package models

import "time"

// Audit actions recorded for security-relevant and billing events.
const (
	AuditActionLogin            = "LOGIN"
	AuditActionLogout           = "LOGOUT"
	AuditActionPasswordChange   = "PASSWORD_CHANGE"
	AuditActionRegister         = "REGISTER"
	AuditActionPermissionChange = "PERMISSION_CHANGE"
	AuditActionCodeIssued       = "VERIFICATION_CODE_ISSUED"
	AuditActionPaymentRecorded  = "PAYMENT_RECORDED"
	AuditActionBillingChange    = "BILLING_CHANGE"
	AuditActionAccountStatus    = "ACCOUNT_STATUS"
	AuditActionExportRequested  = "EXPORT_REQUESTED"
	AuditActionExportDownloaded = "EXPORT_DOWNLOADED"
)

// AuditLog represents an audit trail record.
type AuditLog struct {
	ID         string    `db:"id" json:"id"`
	UserID     *string   `db:"user_id" json:"user_id,omitempty"`
	AcademyID  *string   `db:"academy_id" json:"academy_id,omitempty"`
	Action     string    `db:"action" json:"action"`
	Resource   string    `db:"resource" json:"resource"`
	ResourceID *string   `db:"resource_id" json:"resource_id,omitempty"`
	OldValues  []byte    `db:"old_values" json:"old_values,omitempty"`
	NewValues  []byte    `db:"new_values" json:"new_values,omitempty"`
	IPAddress  string    `db:"ip_address" json:"ip_address"`
	UserAgent  string    `db:"user_agent" json:"user_agent"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
