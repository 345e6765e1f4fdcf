package models

import "time"

// VerificationCode is a director-issued onboarding code for teachers. Only
// reissue invalidates a code; there is no expiry timer.
type VerificationCode struct {
	ID         string     `db:"id" json:"id"`
	DirectorID string     `db:"director_id" json:"director_id"`
	Code       string     `db:"code" json:"code"`
	Active     bool       `db:"active" json:"active"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	RevokedAt  *time.Time `db:"revoked_at" json:"revoked_at,omitempty"`
}
