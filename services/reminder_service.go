// services/reminder_service.go
package services

import (
	"context"
	"fmt"
	"time"

	"gridx-backend/config"
	"gridx-backend/models"
	"gridx-backend/utils"

	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// MessageSender is the slice of the Twilio API the reminders need.
type MessageSender interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

type ReminderService struct {
	db       *gorm.DB
	ledger   *LedgerService
	sender   MessageSender
	from     string
	leadDays int
	cron     *cron.Cron
	now      func() time.Time
}

// NewReminderService wires Twilio when credentials are configured; without
// them payment reminders are skipped and only the sweep runs.
func NewReminderService(db *gorm.DB, cfg config.TwilioConfig) *ReminderService {
	var sender MessageSender
	if cfg.Enabled() {
		client := twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: cfg.AccountSID,
			Password: cfg.AuthToken,
		})
		sender = client.Api
	}
	return NewReminderServiceWithSender(db, sender, cfg.FromNumber, cfg.ReminderLeadDays)
}

func NewReminderServiceWithSender(db *gorm.DB, sender MessageSender, from string, leadDays int) *ReminderService {
	if leadDays < 0 {
		leadDays = 0
	}
	return &ReminderService{
		db:       db,
		ledger:   NewLedgerService(db),
		sender:   sender,
		from:     from,
		leadDays: leadDays,
		now:      time.Now,
	}
}

func (s *ReminderService) StartScheduler(reminderSpec, sweepSpec string) error {
	c := cron.New()

	if s.sender != nil {
		if _, err := c.AddFunc(reminderSpec, func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
			defer cancel()
			if _, err := s.SendPaymentReminders(ctx); err != nil {
				zap.L().Error("Payment reminder run failed", zap.Error(err))
			}
		}); err != nil {
			return fmt.Errorf("schedule payment reminders %q: %w", reminderSpec, err)
		}
	} else {
		zap.L().Warn("Twilio not configured, payment reminders disabled")
	}

	if _, err := c.AddFunc(sweepSpec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()
		if err := s.RunSweep(ctx); err != nil {
			zap.L().Error("Contract sweep failed", zap.Error(err))
		}
	}); err != nil {
		return fmt.Errorf("schedule contract sweep %q: %w", sweepSpec, err)
	}

	c.Start()
	s.cron = c
	zap.L().Info("Reminder scheduler started",
		zap.String("reminders", reminderSpec),
		zap.String("sweep", sweepSpec))
	return nil
}

// Stop waits for running jobs to finish.
func (s *ReminderService) Stop() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
}

type reminderCandidate struct {
	ContractID     uint
	UserID         uint
	MonthlyPayment decimal.Decimal
	TotalCost      decimal.Decimal
	PaymentsMade   decimal.Decimal
	StartDate      time.Time
	FullName       string
	Phone          string
}

// SendPaymentReminders texts every owner whose monthly due date is leadDays
// away. Each contract gets at most one successful reminder per day.
func (s *ReminderService) SendPaymentReminders(ctx context.Context) (int, error) {
	if s.sender == nil {
		return 0, nil
	}
	today := utils.BeginningOfDay(s.now().UTC())
	target := today.AddDate(0, 0, s.leadDays)

	zap.L().Info("Starting payment reminder processing", zap.Time("due_date", target))

	var candidates []reminderCandidate
	err := s.db.WithContext(ctx).
		Table("solar_contracts AS sc").
		Select(`sc.id AS contract_id, sc.user_id, sc.monthly_payment, sc.total_cost,
			sc.payments_made, sc.start_date, u.full_name, u.phone`).
		Joins("JOIN users u ON u.id = sc.user_id").
		Where("sc.is_active = ? AND u.phone IS NOT NULL AND u.phone <> '' AND sc.start_date <= ?", true, target).
		Order("sc.id").
		Scan(&candidates).Error
	if err != nil {
		return 0, fmt.Errorf("load reminder candidates: %w", err)
	}

	sent := 0
	for _, candidate := range candidates {
		due := utils.DueDateIn(target.Year(), target.Month(), candidate.StartDate.Day(), time.UTC)
		if !due.Equal(target) {
			continue
		}
		already, err := s.remindedSince(ctx, candidate.ContractID, today)
		if err != nil {
			zap.L().Error("Failed to check reminder log", zap.Uint("contract_id", candidate.ContractID), zap.Error(err))
			continue
		}
		if already {
			continue
		}
		if s.sendReminder(ctx, candidate, due) {
			sent++
		}
	}

	zap.L().Info("Payment reminder processing completed", zap.Int("sent", sent), zap.Int("candidates", len(candidates)))
	return sent, nil
}

func (s *ReminderService) remindedSince(ctx context.Context, contractID uint, since time.Time) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.ReminderLog{}).
		Where("contract_id = ? AND status = ? AND sent_at >= ?", contractID, models.ReminderStatusSent, since).
		Count(&count).Error
	return count > 0, err
}

func (s *ReminderService) sendReminder(ctx context.Context, c reminderCandidate, due time.Time) bool {
	remaining := c.TotalCost.Sub(c.PaymentsMade)
	amount := decimal.Min(c.MonthlyPayment, remaining)
	message := fmt.Sprintf("Hi %s, your solar payment of %s for contract #%d is due on %s. Remaining balance: %s.",
		c.FullName, amount.StringFixed(2), c.ContractID, due.Format(utils.DateLayout), remaining.StringFixed(2))

	params := &twilioApi.CreateMessageParams{}
	params.SetTo(c.Phone)
	params.SetFrom(s.from)
	params.SetBody(message)

	resp, err := s.sender.CreateMessage(params)
	status := models.ReminderStatusSent
	errorMsg := ""
	if err != nil {
		zap.L().Error("Failed to send reminder", zap.Uint("contract_id", c.ContractID), zap.Error(err))
		status = models.ReminderStatusFailed
		errorMsg = err.Error()
	} else if resp != nil && resp.Sid != nil {
		zap.L().Info("Reminder sent", zap.Uint("contract_id", c.ContractID), zap.String("sid", *resp.Sid))
	}

	reminderLog := models.ReminderLog{
		ContractID:   c.ContractID,
		UserID:       c.UserID,
		Channel:      "sms",
		Message:      message,
		Status:       status,
		ErrorMessage: errorMsg,
		SentAt:       s.now().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&reminderLog).Error; err != nil {
		zap.L().Error("Failed to log reminder", zap.Uint("contract_id", c.ContractID), zap.Error(err))
	}
	return status == models.ReminderStatusSent
}

// RunSweep closes contracts past their end date and checks that every
// active contract's payments_made still matches its payment rows.
func (s *ReminderService) RunSweep(ctx context.Context) error {
	expired, err := s.ExpireContracts(ctx)
	if err != nil {
		return err
	}
	mismatched, err := s.VerifyActiveAggregates(ctx)
	if err != nil {
		return err
	}
	zap.L().Info("Contract sweep completed", zap.Int64("expired", expired), zap.Int("mismatched", mismatched))
	return nil
}

func (s *ReminderService) ExpireContracts(ctx context.Context) (int64, error) {
	today := utils.BeginningOfDay(s.now().UTC())
	result := s.db.WithContext(ctx).Model(&models.SolarContract{}).
		Where("is_active = ? AND end_date IS NOT NULL AND end_date < ?", true, today).
		Update("is_active", false)
	if result.Error != nil {
		return 0, fmt.Errorf("expire contracts: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func (s *ReminderService) VerifyActiveAggregates(ctx context.Context) (int, error) {
	var ids []uint
	if err := s.db.WithContext(ctx).Model(&models.SolarContract{}).
		Where("is_active = ?", true).
		Pluck("id", &ids).Error; err != nil {
		return 0, fmt.Errorf("list active contracts: %w", err)
	}

	mismatched := 0
	for _, id := range ids {
		check, err := s.ledger.VerifyAggregate(ctx, id)
		if err != nil {
			zap.L().Error("Failed to verify contract aggregate", zap.Uint("contract_id", id), zap.Error(err))
			continue
		}
		if !check.Consistent {
			mismatched++
			zap.L().Error("Contract aggregate mismatch",
				zap.Uint("contract_id", id),
				zap.String("stored", check.Stored.String()),
				zap.String("computed", check.Computed.String()))
		}
	}
	return mismatched, nil
}
