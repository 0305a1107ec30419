package db_models

import "time"

type OtpPurpose string

const (
	OtpPurposeEmailVerification OtpPurpose = "email_verification"
	OtpPurposeLogin             OtpPurpose = "login"
)

// OneTimeCode stores only a keyed hash of the code sent to the user.
type OneTimeCode struct {
	BaseModel
	Email      string     `gorm:"index:idx_otp_email_purpose,priority:1;not null"`
	Purpose    OtpPurpose `gorm:"type:varchar(32);index:idx_otp_email_purpose,priority:2;not null"`
	CodeHash   string     `gorm:"not null"`
	ExpiresAt  time.Time  `gorm:"not null"`
	ConsumedAt *time.Time
	Attempts   int `gorm:"not null;default:0"`
}

func (o *OneTimeCode) IsUsable(now time.Time, maxAttempts int) bool {
	if o.ConsumedAt != nil {
		return false
	}
	if !o.ExpiresAt.After(now) {
		return false
	}
	return maxAttempts <= 0 || o.Attempts < maxAttempts
}
