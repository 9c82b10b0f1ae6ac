package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gridx-backend/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrInvalidAmount    = errors.New("payment amount must be positive")
	ErrInvalidMethod    = errors.New("payment method is required")
	ErrContractNotFound = errors.New("contract not found")
	ErrContractInactive = errors.New("contract is not active")
	ErrOverpayment      = errors.New("payment exceeds remaining balance")
	ErrNotContractOwner = errors.New("contract belongs to another user")
	ErrDuplicatePayment = errors.New("payment reference already recorded")
	ErrInvalidContract  = errors.New("invalid contract terms")
	ErrSystemNotFound   = errors.New("solar system not found")
	ErrInvalidSystem    = errors.New("invalid solar system")
	ErrNotInstaller     = errors.New("only installers can perform this action")
	ErrUserNotFound     = errors.New("user not found")
)

const maxPaymentMethodSize = 50

type LedgerService struct {
	db *gorm.DB
}

func NewLedgerService(db *gorm.DB) *LedgerService {
	return &LedgerService{db: db}
}

type CreateSystemParams struct {
	InstallerID      uint
	CapacityKW       decimal.Decimal
	Components       string
	InstallationDate *time.Time
}

func (s *LedgerService) CreateSystem(ctx context.Context, params CreateSystemParams) (*models.SolarSystem, error) {
	db := s.db.WithContext(ctx)

	var installer models.User
	if err := db.First(&installer, params.InstallerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("load installer: %w", err)
	}
	if !installer.IsInstaller {
		return nil, ErrNotInstaller
	}
	if !params.CapacityKW.IsPositive() {
		return nil, fmt.Errorf("%w: capacity must be positive", ErrInvalidSystem)
	}
	if params.CapacityKW.GreaterThanOrEqual(decimal.NewFromInt(1000)) {
		return nil, fmt.Errorf("%w: capacity must be below 1000 kW", ErrInvalidSystem)
	}

	system := models.SolarSystem{
		InstallerID:      params.InstallerID,
		CapacityKW:       params.CapacityKW.Round(2),
		Components:       strings.TrimSpace(params.Components),
		InstallationDate: params.InstallationDate,
	}
	if err := db.Create(&system).Error; err != nil {
		return nil, fmt.Errorf("create solar system: %w", err)
	}

	zap.L().Info("Solar system registered",
		zap.Uint("system_id", system.ID),
		zap.Uint("installer_id", system.InstallerID),
		zap.String("capacity_kw", system.CapacityKW.String()))
	return &system, nil
}

func (s *LedgerService) ListSystems(ctx context.Context, installerID uint) ([]models.SolarSystem, error) {
	var systems []models.SolarSystem
	err := s.db.WithContext(ctx).
		Where("installer_id = ?", installerID).
		Order("id").
		Find(&systems).Error
	if err != nil {
		return nil, fmt.Errorf("list solar systems: %w", err)
	}
	return systems, nil
}

func (s *LedgerService) GetSystem(ctx context.Context, systemID uint) (*models.SolarSystem, error) {
	var system models.SolarSystem
	if err := s.db.WithContext(ctx).First(&system, systemID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSystemNotFound
		}
		return nil, fmt.Errorf("load solar system: %w", err)
	}
	return &system, nil
}

type CreateContractParams struct {
	UserID         uint
	SystemID       uint
	MonthlyPayment decimal.Decimal
	TotalCost      decimal.Decimal
	StartDate      time.Time
	EndDate        *time.Time
}

func (p CreateContractParams) validate() error {
	if !p.MonthlyPayment.IsPositive() {
		return fmt.Errorf("%w: monthly payment must be positive", ErrInvalidContract)
	}
	if !p.TotalCost.GreaterThan(p.MonthlyPayment) {
		return fmt.Errorf("%w: total cost must exceed monthly payment", ErrInvalidContract)
	}
	if p.StartDate.IsZero() {
		return fmt.Errorf("%w: start date is required", ErrInvalidContract)
	}
	if p.EndDate != nil && !p.EndDate.After(p.StartDate) {
		return fmt.Errorf("%w: end date must be after start date", ErrInvalidContract)
	}
	return nil
}

// CreateContract opens a contract with no payments made.
func (s *LedgerService) CreateContract(ctx context.Context, params CreateContractParams) (*models.SolarContract, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}
	db := s.db.WithContext(ctx)

	var userCount int64
	if err := db.Model(&models.User{}).Where("id = ?", params.UserID).Count(&userCount).Error; err != nil {
		return nil, fmt.Errorf("check contract user: %w", err)
	}
	if userCount == 0 {
		return nil, ErrUserNotFound
	}
	if _, err := s.GetSystem(ctx, params.SystemID); err != nil {
		return nil, err
	}

	contract := models.SolarContract{
		UserID:         params.UserID,
		SystemID:       params.SystemID,
		MonthlyPayment: params.MonthlyPayment.Round(2),
		TotalCost:      params.TotalCost.Round(2),
		PaymentsMade:   decimal.Zero,
		StartDate:      params.StartDate,
		EndDate:        params.EndDate,
		IsActive:       true,
	}
	if err := db.Create(&contract).Error; err != nil {
		return nil, fmt.Errorf("create contract: %w", err)
	}

	zap.L().Info("Contract created",
		zap.Uint("contract_id", contract.ID),
		zap.Uint("user_id", contract.UserID),
		zap.Uint("system_id", contract.SystemID),
		zap.String("total_cost", contract.TotalCost.String()))
	return &contract, nil
}

// ContractView is a contract joined with the specs of its system.
type ContractView struct {
	ID             uint            `json:"id"`
	UserID         uint            `json:"userId"`
	SystemID       uint            `json:"systemId"`
	MonthlyPayment decimal.Decimal `json:"monthlyPayment"`
	TotalCost      decimal.Decimal `json:"totalCost"`
	PaymentsMade   decimal.Decimal `json:"paymentsMade"`
	Remaining      decimal.Decimal `gorm:"-" json:"remaining"`
	StartDate      time.Time       `json:"startDate"`
	EndDate        *time.Time      `json:"endDate,omitempty"`
	IsActive       bool            `json:"isActive"`
	CapacityKW     decimal.Decimal `gorm:"column:capacity_kw" json:"capacityKw"`
	Components     string          `json:"components"`
}

func (s *LedgerService) GetUserContracts(ctx context.Context, userID uint) ([]ContractView, error) {
	var views []ContractView
	err := s.db.WithContext(ctx).
		Table("solar_contracts AS sc").
		Select(`sc.id, sc.user_id, sc.system_id, sc.monthly_payment, sc.total_cost,
			sc.payments_made, sc.start_date, sc.end_date, sc.is_active,
			ss.capacity_kw, ss.components`).
		Joins("JOIN solar_systems ss ON sc.system_id = ss.id").
		Where("sc.user_id = ?", userID).
		Order("sc.id").
		Scan(&views).Error
	if err != nil {
		return nil, fmt.Errorf("query user contracts: %w", err)
	}
	for i := range views {
		views[i].Remaining = views[i].TotalCost.Sub(views[i].PaymentsMade)
	}
	return views, nil
}

// GetContract loads a contract with its system. userID 0 skips the owner check.
func (s *LedgerService) GetContract(ctx context.Context, contractID, userID uint) (*models.SolarContract, error) {
	var contract models.SolarContract
	if err := s.db.WithContext(ctx).Preload("System").First(&contract, contractID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrContractNotFound
		}
		return nil, fmt.Errorf("load contract: %w", err)
	}
	if userID != 0 && contract.UserID != userID {
		return nil, ErrNotContractOwner
	}
	return &contract, nil
}

type RecordPaymentParams struct {
	ContractID uint
	// UserID, when set, must own the contract.
	UserID    uint
	Amount    decimal.Decimal
	Method    string
	Reference uuid.UUID
}

type PaymentReceipt struct {
	Payment  models.Payment       `json:"payment"`
	Contract models.SolarContract `json:"contract"`
	Settled  bool                 `json:"settled"`
}

// RecordPayment appends a payment and adds its amount to the contract's
// payments_made in one transaction. Either both writes land or neither does.
func (s *LedgerService) RecordPayment(ctx context.Context, params RecordPaymentParams) (*PaymentReceipt, error) {
	if !params.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	method := strings.ToLower(strings.TrimSpace(params.Method))
	if method == "" {
		return nil, ErrInvalidMethod
	}
	if len(method) > maxPaymentMethodSize {
		return nil, fmt.Errorf("%w: at most %d characters", ErrInvalidMethod, maxPaymentMethodSize)
	}
	amount := params.Amount.Round(2)
	if !amount.Equal(params.Amount) {
		return nil, fmt.Errorf("%w: at most two decimal places", ErrInvalidAmount)
	}
	reference := params.Reference
	if reference == uuid.Nil {
		reference = uuid.New()
	}

	logger := zap.L().With(
		zap.Uint("contract_id", params.ContractID),
		zap.String("amount", amount.String()),
		zap.String("reference", reference.String()))
	logger.Debug("Recording payment")

	tx := s.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, fmt.Errorf("begin payment transaction: %w", tx.Error)
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	var contract models.SolarContract
	if err := tx.First(&contract, params.ContractID).Error; err != nil {
		tx.Rollback()
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrContractNotFound
		}
		return nil, fmt.Errorf("load contract: %w", err)
	}
	if params.UserID != 0 && contract.UserID != params.UserID {
		tx.Rollback()
		return nil, ErrNotContractOwner
	}

	payment := models.Payment{
		ContractID:    contract.ID,
		Amount:        amount,
		PaymentDate:   time.Now().UTC(),
		PaymentMethod: method,
		Reference:     reference,
	}
	// The unique index on reference decides between concurrent submissions.
	if err := tx.Create(&payment).Error; err != nil {
		tx.Rollback()
		if errors.Is(err, gorm.ErrDuplicatedKey) || isUniqueViolation(err) {
			return nil, ErrDuplicatePayment
		}
		logger.Error("Failed to insert payment", zap.Error(err))
		return nil, fmt.Errorf("insert payment: %w", err)
	}

	// The guard in WHERE is evaluated under the row lock, so concurrent
	// payments can't push the aggregate past total_cost.
	result := tx.Model(&models.SolarContract{}).
		Where("id = ? AND is_active = ? AND payments_made + ? <= total_cost", contract.ID, true, amount).
		Updates(map[string]interface{}{
			"payments_made": gorm.Expr("payments_made + ?", amount),
			"updated_at":    time.Now().UTC(),
		})
	if result.Error != nil {
		tx.Rollback()
		logger.Error("Failed to update contract aggregate", zap.Error(result.Error))
		return nil, fmt.Errorf("update payments made: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		tx.Rollback()
		if !contract.IsActive {
			return nil, ErrContractInactive
		}
		return nil, ErrOverpayment
	}

	if err := tx.First(&contract, contract.ID).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("reload contract: %w", err)
	}

	settled := contract.PaymentsMade.GreaterThanOrEqual(contract.TotalCost)
	if settled {
		if err := tx.Model(&contract).Update("is_active", false).Error; err != nil {
			tx.Rollback()
			return nil, fmt.Errorf("settle contract: %w", err)
		}
		contract.IsActive = false
	}

	if err := tx.Commit().Error; err != nil {
		logger.Error("Failed to commit payment", zap.Error(err))
		return nil, fmt.Errorf("commit payment: %w", err)
	}

	logger.Info("Payment recorded",
		zap.Uint("payment_id", payment.ID),
		zap.String("payments_made", contract.PaymentsMade.String()),
		zap.Bool("settled", settled))
	return &PaymentReceipt{Payment: payment, Contract: contract, Settled: settled}, nil
}

// GetPaymentHistory returns the contract's payments, newest first.
func (s *LedgerService) GetPaymentHistory(ctx context.Context, contractID, userID uint) ([]models.Payment, error) {
	if _, err := s.GetContract(ctx, contractID, userID); err != nil {
		return nil, err
	}
	var payments []models.Payment
	err := s.db.WithContext(ctx).
		Where("contract_id = ?", contractID).
		Order("payment_date DESC").
		Order("id DESC").
		Find(&payments).Error
	if err != nil {
		return nil, fmt.Errorf("query payment history: %w", err)
	}
	return payments, nil
}

type AggregateCheck struct {
	ContractID uint            `json:"contractId"`
	Stored     decimal.Decimal `json:"stored"`
	Computed   decimal.Decimal `json:"computed"`
	Consistent bool            `json:"consistent"`
}

// VerifyAggregate compares payments_made with the sum of the payment rows.
func (s *LedgerService) VerifyAggregate(ctx context.Context, contractID uint) (*AggregateCheck, error) {
	db := s.db.WithContext(ctx)

	var contract models.SolarContract
	if err := db.Select("id", "payments_made").First(&contract, contractID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrContractNotFound
		}
		return nil, fmt.Errorf("load contract: %w", err)
	}

	var sum decimal.NullDecimal
	err := db.Model(&models.Payment{}).
		Select("SUM(amount)").
		Where("contract_id = ?", contractID).
		Row().Scan(&sum)
	if err != nil {
		return nil, fmt.Errorf("sum payments: %w", err)
	}
	computed := decimal.Zero
	if sum.Valid {
		computed = sum.Decimal
	}

	return &AggregateCheck{
		ContractID: contractID,
		Stored:     contract.PaymentsMade,
		Computed:   computed,
		Consistent: contract.PaymentsMade.Equal(computed),
	}, nil
}
