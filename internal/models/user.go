package models

import (
	"time"

	"gorm.io/gorm"
)

// User roles
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type User struct {
	gorm.Model
	Username            string     `gorm:"uniqueIndex;not null" json:"username"`
	Password            string     `gorm:"not null" json:"-"`
	DisplayName         string     `json:"display_name"`
	Role                string     `gorm:"default:'user'" json:"role"`
	FailedLoginAttempts int        `gorm:"default:0" json:"-"`
	AccountLockoutUntil *time.Time `json:"-"`
	Wallet              *Wallet    `gorm:"foreignKey:UserID" json:"wallet,omitempty"`
}

// Locked reports whether the account is locked out at the given instant.
func (u *User) Locked(now time.Time) bool {
	return u.AccountLockoutUntil != nil && now.Before(*u.AccountLockoutUntil)
}
