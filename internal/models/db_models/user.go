package db_models

import "time"

type User struct {
	BaseModel
	Email           string `gorm:"uniqueIndex;not null"`
	PasswordHash    string `gorm:"not null"`
	FirstName       string
	LastName        string
	Phone           string
	EmailVerifiedAt *time.Time
	// OtpSecret keys the derivation and hashing of one-time codes.
	OtpSecret string `gorm:"not null"`

	Subscription *Subscription `gorm:"foreignKey:UserID"`
}

func (u *User) IsEmailVerified() bool {
	return u.EmailVerifiedAt != nil
}

func (u *User) FullName() string {
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	default:
		return u.LastName
	}
}
