package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type SolarSystem struct {
	ID               uint            `gorm:"primaryKey" json:"id"`
	InstallerID      uint            `gorm:"not null;index" json:"installerId"`
	CapacityKW       decimal.Decimal `gorm:"column:capacity_kw;type:decimal(5,2);not null" json:"capacityKw"`
	Components       string          `gorm:"type:text" json:"components"`
	InstallationDate *time.Time      `gorm:"type:date" json:"installationDate,omitempty"`
	CreatedAt        time.Time       `json:"createdAt"`
	UpdatedAt        time.Time       `json:"updatedAt"`

	Installer *User `gorm:"foreignKey:InstallerID" json:"-"`
}

// SolarContract is a financing agreement for one system. PaymentsMade is the
// running sum of the contract's payments and only moves through the ledger
// service.
type SolarContract struct {
	ID             uint            `gorm:"primaryKey" json:"id"`
	UserID         uint            `gorm:"not null;index" json:"userId"`
	SystemID       uint            `gorm:"not null;index" json:"systemId"`
	MonthlyPayment decimal.Decimal `gorm:"type:decimal(10,2);not null;check:valid_payment,monthly_payment > 0 AND total_cost > monthly_payment" json:"monthlyPayment"`
	TotalCost      decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"totalCost"`
	PaymentsMade   decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0;check:payments_within_total,payments_made >= 0 AND payments_made <= total_cost" json:"paymentsMade"`
	StartDate      time.Time       `gorm:"type:date;not null" json:"startDate"`
	EndDate        *time.Time      `gorm:"type:date" json:"endDate,omitempty"`
	IsActive       bool            `gorm:"not null;default:true" json:"isActive"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`

	User   *User        `gorm:"foreignKey:UserID" json:"-"`
	System *SolarSystem `gorm:"foreignKey:SystemID" json:"system,omitempty"`
}

func (c SolarContract) Remaining() decimal.Decimal {
	return c.TotalCost.Sub(c.PaymentsMade)
}

// Payment rows are append-only.
type Payment struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	ContractID    uint            `gorm:"not null;index" json:"contractId"`
	Amount        decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"amount"`
	PaymentDate   time.Time       `gorm:"not null" json:"paymentDate"`
	PaymentMethod string          `gorm:"type:varchar(50);not null" json:"paymentMethod"`
	Reference     uuid.UUID       `gorm:"type:uuid;uniqueIndex;not null" json:"reference"`

	Contract *SolarContract `gorm:"foreignKey:ContractID" json:"-"`
}
