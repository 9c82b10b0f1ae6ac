package models

import "time"

// One row per user for each of the profile sections below.

type AccountInformation struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex" json:"userId"`
	Email     string    `gorm:"type:varchar(255);not null" json:"email"`
	Username  string    `gorm:"type:varchar(100)" json:"username"`
	Phone     string    `gorm:"type:varchar(32)" json:"phone"`
	Country   string    `gorm:"type:varchar(100)" json:"country"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (AccountInformation) TableName() string {
	return "account_information"
}

type LinkedAccount struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex" json:"userId"`
	Google    string    `gorm:"type:varchar(255)" json:"google"`
	Facebook  string    `gorm:"type:varchar(255)" json:"facebook"`
	Twitter   string    `gorm:"type:varchar(255)" json:"twitter"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type ProfileBio struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex" json:"userId"`
	Bio       string    `gorm:"type:text" json:"bio"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// SavedPaymentMethod keeps only what is needed to show a card back to its
// owner. Full card numbers and CVVs are never persisted.
type SavedPaymentMethod struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserID      uint      `gorm:"not null;index" json:"userId"`
	CardHolder  string    `gorm:"type:varchar(255);not null" json:"cardHolder"`
	Brand       string    `gorm:"type:varchar(20)" json:"brand"`
	Last4       string    `gorm:"column:last4;type:varchar(4);not null" json:"last4"`
	ExpiryMonth int       `gorm:"type:smallint;not null" json:"expiryMonth"`
	ExpiryYear  int       `gorm:"type:smallint;not null" json:"expiryYear"`
	IsDefault   bool      `gorm:"not null;default:false" json:"isDefault"`
	CreatedAt   time.Time `json:"createdAt"`
}
