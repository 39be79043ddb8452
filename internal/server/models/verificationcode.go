package models

import "time"

// VerificationType distinguishes the flows a code can belong to.
type VerificationType string

const (
	VerificationEmail         VerificationType = "EMAIL"
	VerificationPasswordReset VerificationType = "PASSWORD_RESET"
)

// VerificationCode is a short-lived numeric code mailed to a user. At most
// one active code exists per user and type; issuing a new one replaces the
// previous row.
type VerificationCode struct {
	ID        string
	UserID    int64
	Code      string
	Type      VerificationType
	ExpiresAt time.Time
	CreatedAt time.Time
}

func (v *VerificationCode) Expired(now time.Time) bool {
	return now.After(v.ExpiresAt)
}
