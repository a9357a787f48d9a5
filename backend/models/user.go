package models

import "time"

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

type User struct {
	ID           string    `json:"id" gorm:"primaryKey;size:64"`
	Name         *string   `json:"name"`
	Email        *string   `json:"email" gorm:"uniqueIndex;size:320"`
	Phone        *string   `json:"phone" gorm:"index;size:20"`
	LoginMethod  *string   `json:"loginMethod" gorm:"size:64"`
	Role         Role      `json:"role" gorm:"size:16;not null;default:'user'"`
	CreatedAt    time.Time `json:"createdAt" gorm:"autoCreateTime:false"`
	LastSignedIn time.Time `json:"lastSignedIn"`
}

func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}
