package models

import (
	"gridx-backend/utils"
	"strings"
	"time"

	"gorm.io/gorm"
)

type User struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	Email       string     `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Password    string     `gorm:"column:password_hash;type:varchar(255);not null" json:"-"`
	FullName    string     `gorm:"type:varchar(255);not null" json:"fullName"`
	Phone       string     `gorm:"type:varchar(32)" json:"phone,omitempty"`
	IsInstaller bool       `gorm:"not null;default:false" json:"isInstaller"`
	LastLogin   *time.Time `json:"lastLogin,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// Normalise the email and hash the password before insert
func (u *User) BeforeCreate(tx *gorm.DB) (err error) {
	u.Email = NormalizeEmail(u.Email)
	hashed, err := utils.HashPassword(u.Password)
	if err != nil {
		return err
	}
	u.Password = hashed
	return
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
