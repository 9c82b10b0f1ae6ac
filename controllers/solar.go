package controllers

import (
	"fmt"
	"net/http"
	"time"

	"gridx-backend/services"
	"gridx-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type SolarController struct {
	ledger   *services.LedgerService
	accounts *services.AccountService
}

func NewSolarController(ledger *services.LedgerService, accounts *services.AccountService) *SolarController {
	return &SolarController{ledger: ledger, accounts: accounts}
}

type CreateSystemInput struct {
	CapacityKW       decimal.Decimal `json:"capacityKw"`
	Components       string          `json:"components" binding:"required,max=2000"`
	InstallationDate string          `json:"installationDate"`
}

type CreateContractInput struct {
	// UserID defaults to the caller. Installers may open contracts for customers.
	UserID         uint            `json:"userId"`
	SystemID       uint            `json:"systemId" binding:"required"`
	MonthlyPayment decimal.Decimal `json:"monthlyPayment"`
	TotalCost      decimal.Decimal `json:"totalCost"`
	StartDate      string          `json:"startDate" binding:"required"`
	EndDate        string          `json:"endDate"`
}

type RecordPaymentInput struct {
	ContractID    uint            `json:"contractId" binding:"required"`
	Amount        decimal.Decimal `json:"amount"`
	PaymentMethod string          `json:"paymentMethod" binding:"required,paymentmethod"`
	Reference     string          `json:"reference" binding:"omitempty,uuid"`
}

func optionalDate(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := utils.ParseDate(value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (sc *SolarController) CreateSystem(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var input CreateSystemInput
	if !bindJSON(c, &input) {
		return
	}
	installed, err := optionalDate(input.InstallationDate)
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, err.Error())
		return
	}

	system, err := sc.ledger.CreateSystem(c.Request.Context(), services.CreateSystemParams{
		InstallerID:      userID,
		CapacityKW:       input.CapacityKW,
		Components:       input.Components,
		InstallationDate: installed,
	})
	if err != nil {
		respondServiceError(c, err, "Failed to create solar system")
		return
	}
	c.JSON(http.StatusCreated, system)
}

func (sc *SolarController) ListSystems(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	systems, err := sc.ledger.ListSystems(c.Request.Context(), userID)
	if err != nil {
		respondServiceError(c, err, "Failed to fetch solar systems")
		return
	}
	c.JSON(http.StatusOK, gin.H{"systems": systems})
}

func (sc *SolarController) GetSystem(c *gin.Context) {
	if _, ok := currentUser(c); !ok {
		return
	}
	systemID, ok := idParam(c, "id")
	if !ok {
		return
	}
	system, err := sc.ledger.GetSystem(c.Request.Context(), systemID)
	if err != nil {
		respondServiceError(c, err, "Failed to fetch solar system")
		return
	}
	c.JSON(http.StatusOK, system)
}

func (sc *SolarController) CreateContract(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var input CreateContractInput
	if !bindJSON(c, &input) {
		return
	}

	start, err := utils.ParseDate(input.StartDate)
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, err.Error())
		return
	}
	end, err := optionalDate(input.EndDate)
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, err.Error())
		return
	}

	ctx := c.Request.Context()
	customerID := input.UserID
	if customerID == 0 {
		customerID = userID
	}
	if customerID != userID {
		// Only the installer of the system may open a contract for someone else.
		system, err := sc.ledger.GetSystem(ctx, input.SystemID)
		if err != nil {
			respondServiceError(c, err, "Failed to create contract")
			return
		}
		if system.InstallerID != userID {
			respondServiceError(c, services.ErrNotInstaller, "Failed to create contract")
			return
		}
		if _, err := sc.accounts.GetUser(ctx, customerID); err != nil {
			respondServiceError(c, err, "Failed to create contract")
			return
		}
	}

	contract, err := sc.ledger.CreateContract(ctx, services.CreateContractParams{
		UserID:         customerID,
		SystemID:       input.SystemID,
		MonthlyPayment: input.MonthlyPayment,
		TotalCost:      input.TotalCost,
		StartDate:      start,
		EndDate:        end,
	})
	if err != nil {
		respondServiceError(c, err, "Failed to create contract")
		return
	}
	c.JSON(http.StatusCreated, contract)
}

func (sc *SolarController) ListContracts(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	contracts, err := sc.ledger.GetUserContracts(c.Request.Context(), userID)
	if err != nil {
		respondServiceError(c, err, "Failed to fetch contracts")
		return
	}
	if contracts == nil {
		contracts = []services.ContractView{}
	}
	c.JSON(http.StatusOK, gin.H{"contracts": contracts})
}

func (sc *SolarController) GetContract(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	contractID, ok := idParam(c, "id")
	if !ok {
		return
	}
	contract, err := sc.ledger.GetContract(c.Request.Context(), contractID, userID)
	if err != nil {
		respondServiceError(c, err, "Failed to fetch contract")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"contract":  contract,
		"remaining": contract.Remaining(),
	})
}

func (sc *SolarController) PaymentHistory(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	contractID, ok := idParam(c, "id")
	if !ok {
		return
	}
	payments, err := sc.ledger.GetPaymentHistory(c.Request.Context(), contractID, userID)
	if err != nil {
		respondServiceError(c, err, "Failed to fetch payments")
		return
	}
	c.JSON(http.StatusOK, gin.H{"payments": payments})
}

func (sc *SolarController) RecordPayment(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var input RecordPaymentInput
	if !bindJSON(c, &input) {
		return
	}

	var reference uuid.UUID
	if input.Reference != "" {
		reference = uuid.MustParse(input.Reference) // validated by binding
	}

	receipt, err := sc.ledger.RecordPayment(c.Request.Context(), services.RecordPaymentParams{
		ContractID: input.ContractID,
		UserID:     userID,
		Amount:     input.Amount,
		Method:     input.PaymentMethod,
		Reference:  reference,
	})
	if err != nil {
		respondServiceError(c, err, "Failed to record payment")
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message":   "Payment recorded",
		"payment":   receipt.Payment,
		"contract":  receipt.Contract,
		"remaining": receipt.Contract.Remaining(),
		"settled":   receipt.Settled,
	})
}

func (sc *SolarController) Statement(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	contractID, ok := idParam(c, "id")
	if !ok {
		return
	}

	ctx := c.Request.Context()
	contract, err := sc.ledger.GetContract(ctx, contractID, userID)
	if err != nil {
		respondServiceError(c, err, "Failed to build statement")
		return
	}
	payments, err := sc.ledger.GetPaymentHistory(ctx, contractID, userID)
	if err != nil {
		respondServiceError(c, err, "Failed to build statement")
		return
	}

	book, err := services.BuildStatement(contract, payments, time.Now().UTC())
	if err != nil {
		respondServiceError(c, err, "Failed to build statement")
		return
	}
	defer book.Close()

	c.Header("Content-Type", services.StatementContentType)
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="contract-%d-statement.xlsx"`, contract.ID))
	c.Status(http.StatusOK)
	if err := book.Write(c.Writer); err != nil {
		zap.L().Error("Failed to write statement", zap.Uint("contract_id", contract.ID), zap.Error(err))
	}
}
