// models/reminder_log.go
package models

import "time"

const (
	ReminderStatusSent   = "sent"
	ReminderStatusFailed = "failed"
)

type ReminderLog struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	ContractID   uint      `gorm:"not null;index" json:"contractId"`
	UserID       uint      `gorm:"not null;index" json:"userId"`
	Channel      string    `gorm:"type:varchar(20);not null" json:"channel"` // whatsapp, sms
	Message      string    `gorm:"type:text;not null" json:"message"`
	Status       string    `gorm:"type:varchar(20);not null" json:"status"`
	ErrorMessage string    `gorm:"type:text" json:"errorMessage,omitempty"`
	SentAt       time.Time `gorm:"not null" json:"sentAt"`
}
