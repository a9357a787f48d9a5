package models

import "time"

// OtpVerification is one issued phone code. Code holds a bcrypt hash, never
// the digits themselves.
type OtpVerification struct {
	ID         string    `json:"id" gorm:"primaryKey;size:64"`
	Phone      string    `json:"phone" gorm:"index;size:20;not null"`
	Code       string    `json:"-" gorm:"not null"`
	IsVerified bool      `json:"isVerified" gorm:"not null;default:false"`
	Attempts   int       `json:"attempts" gorm:"not null;default:0"`
	ExpiresAt  time.Time `json:"expiresAt" gorm:"not null"`
	CreatedAt  time.Time `json:"createdAt" gorm:"index;autoCreateTime:false"`
}
