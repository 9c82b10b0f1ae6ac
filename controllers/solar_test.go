package controllers_test

import (
	"bytes"
	"fmt"
	"net/http"
	"testing"

	"gridx-backend/models"
	"gridx-backend/services"
	"gridx-backend/testutil"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

type ledgerSetup struct {
	*harness
	installer      *models.User
	installerToken string
	owner          *models.User
	ownerToken     string
	system         *models.SolarSystem
	contract       *models.SolarContract
}

func newLedgerSetup(t *testing.T) *ledgerSetup {
	h := newHarness(t)
	installer, installerToken := h.user("installer@example.com", true)
	owner, ownerToken := h.user("owner@example.com", false)
	system := testutil.CreateSystem(t, h.db, installer.ID)
	contract := testutil.CreateContract(t, h.db, owner.ID, system.ID, "150", "1000")
	return &ledgerSetup{
		harness:        h,
		installer:      installer,
		installerToken: installerToken,
		owner:          owner,
		ownerToken:     ownerToken,
		system:         system,
		contract:       contract,
	}
}

func (s *ledgerSetup) paymentsMade(t *testing.T) decimal.Decimal {
	t.Helper()
	var contract models.SolarContract
	require.NoError(t, s.db.First(&contract, s.contract.ID).Error)
	return contract.PaymentsMade
}

func TestCreateSystem(t *testing.T) {
	s := newLedgerSetup(t)

	w := s.do(http.MethodPost, "/api/solar/systems", gin.H{
		"capacityKw":       "8.25",
		"components":       "16x 550W panels, 8kW inverter",
		"installationDate": "2025-02-01",
	}, s.installerToken)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, "8.25", body["capacityKw"])

	w = s.do(http.MethodPost, "/api/solar/systems", gin.H{
		"capacityKw": 3, "components": "panels",
	}, s.ownerToken)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(http.MethodPost, "/api/solar/systems", gin.H{
		"capacityKw": 0, "components": "panels",
	}, s.installerToken)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodGet, "/api/solar/systems", nil, s.installerToken)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["systems"], 2)

	w = s.do(http.MethodGet, fmt.Sprintf("/api/solar/systems/%d", s.system.ID), nil, s.ownerToken)
	assert.Equal(t, http.StatusOK, w.Code)
	w = s.do(http.MethodGet, "/api/solar/systems/9999", nil, s.ownerToken)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = s.do(http.MethodGet, "/api/solar/systems/abc", nil, s.ownerToken)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateContract(t *testing.T) {
	s := newLedgerSetup(t)

	w := s.do(http.MethodPost, "/api/contracts", gin.H{
		"systemId":       s.system.ID,
		"monthlyPayment": "200",
		"totalCost":      "4800",
		"startDate":      "2025-03-01",
		"endDate":        "2027-03-01",
	}, s.ownerToken)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, "0", body["paymentsMade"])
	assert.Equal(t, true, body["isActive"])
	assert.Equal(t, float64(s.owner.ID), body["userId"])

	// total_cost must exceed monthly_payment
	w = s.do(http.MethodPost, "/api/contracts", gin.H{
		"systemId": s.system.ID, "monthlyPayment": "500", "totalCost": "500", "startDate": "2025-03-01",
	}, s.ownerToken)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, "/api/contracts", gin.H{
		"systemId": s.system.ID, "monthlyPayment": "100", "totalCost": "500", "startDate": "soon",
	}, s.ownerToken)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, "/api/contracts", gin.H{
		"systemId": 9999, "monthlyPayment": "100", "totalCost": "500", "startDate": "2025-03-01",
	}, s.ownerToken)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// Only the system's installer may open a contract for another user.
	other, otherToken := s.user("other@example.com", false)
	w = s.do(http.MethodPost, "/api/contracts", gin.H{
		"userId": s.owner.ID, "systemId": s.system.ID, "monthlyPayment": "100", "totalCost": "500", "startDate": "2025-03-01",
	}, otherToken)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(http.MethodPost, "/api/contracts", gin.H{
		"userId": other.ID, "systemId": s.system.ID, "monthlyPayment": "100", "totalCost": "500", "startDate": "2025-03-01",
	}, s.installerToken)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, float64(other.ID), decode(t, w)["userId"])

	w = s.do(http.MethodPost, "/api/contracts", gin.H{
		"userId": 9999, "systemId": s.system.ID, "monthlyPayment": "100", "totalCost": "500", "startDate": "2025-03-01",
	}, s.installerToken)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, services.ErrUserNotFound.Error(), decode(t, w)["error"])
}

func TestSelfRegisteredUserCannotActAsInstaller(t *testing.T) {
	s := newLedgerSetup(t)

	w := s.do(http.MethodPost, "/api/support", gin.H{
		"name": "Victim", "email": "victim@example.com", "message": "my account number is 123",
	}, "")
	require.Equal(t, http.StatusCreated, w.Code)

	w = s.do(http.MethodPost, "/api/auth/register", gin.H{
		"email": "mallory@example.com", "password": "password123", "name": "Mallory", "isInstaller": true,
	}, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, false, body["user"].(map[string]interface{})["isInstaller"])
	token := body["token"].(string)

	var stored models.User
	require.NoError(t, s.db.Where("email = ?", "mallory@example.com").First(&stored).Error)
	assert.False(t, stored.IsInstaller)

	w = s.do(http.MethodGet, "/api/support", nil, token)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.NotContains(t, w.Body.String(), "victim@example.com")

	w = s.do(http.MethodPost, "/api/solar/systems", gin.H{"capacityKw": "5", "components": "panels"}, token)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(http.MethodPost, "/api/contracts", gin.H{
		"userId": s.owner.ID, "systemId": s.system.ID, "monthlyPayment": "100", "totalCost": "99999", "startDate": "2025-03-01",
	}, token)
	assert.Equal(t, http.StatusForbidden, w.Code)

	var contracts int64
	require.NoError(t, s.db.Model(&models.SolarContract{}).Where("user_id = ?", s.owner.ID).Count(&contracts).Error)
	assert.Equal(t, int64(1), contracts)
}

func TestListContractsJoinsSystem(t *testing.T) {
	s := newLedgerSetup(t)

	w := s.do(http.MethodGet, "/api/contracts", nil, s.ownerToken)
	require.Equal(t, http.StatusOK, w.Code)
	contracts := decode(t, w)["contracts"].([]interface{})
	require.Len(t, contracts, 1)
	view := contracts[0].(map[string]interface{})
	assert.Equal(t, "5.5", view["capacityKw"])
	assert.Equal(t, "10x 550W panels, 5kW hybrid inverter, 10kWh battery", view["components"])
	assert.Equal(t, "1000", view["remaining"])

	w = s.do(http.MethodGet, "/api/contracts", nil, s.installerToken)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode(t, w)["contracts"])

	w = s.do(http.MethodGet, fmt.Sprintf("/api/contracts/%d", s.contract.ID), nil, s.ownerToken)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "1000", decode(t, w)["remaining"])

	w = s.do(http.MethodGet, fmt.Sprintf("/api/contracts/%d", s.contract.ID), nil, s.installerToken)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRecordPayment(t *testing.T) {
	s := newLedgerSetup(t)
	pay := func(body gin.H, token string) (int, map[string]interface{}) {
		w := s.do(http.MethodPost, "/api/payments", body, token)
		return w.Code, decode(t, w)
	}

	code, body := pay(gin.H{"contractId": s.contract.ID, "amount": 150, "paymentMethod": "card"}, s.ownerToken)
	require.Equal(t, http.StatusCreated, code, body)
	assert.Equal(t, "850", body["remaining"])
	assert.Equal(t, false, body["settled"])

	code, _ = pay(gin.H{"contractId": s.contract.ID, "amount": "150.00", "paymentMethod": "EFT"}, s.ownerToken)
	require.Equal(t, http.StatusCreated, code)
	assert.True(t, s.paymentsMade(t).Equal(decimal.NewFromInt(300)))

	cases := []struct {
		name string
		body gin.H
		want int
	}{
		{"negative amount", gin.H{"contractId": s.contract.ID, "amount": -5, "paymentMethod": "card"}, http.StatusBadRequest},
		{"zero amount", gin.H{"contractId": s.contract.ID, "amount": 0, "paymentMethod": "card"}, http.StatusBadRequest},
		{"sub-cent amount", gin.H{"contractId": s.contract.ID, "amount": "10.005", "paymentMethod": "card"}, http.StatusBadRequest},
		{"unknown method", gin.H{"contractId": s.contract.ID, "amount": 10, "paymentMethod": "cheque"}, http.StatusBadRequest},
		{"bad reference", gin.H{"contractId": s.contract.ID, "amount": 10, "paymentMethod": "card", "reference": "r-1"}, http.StatusBadRequest},
		{"unknown contract", gin.H{"contractId": 9999, "amount": 10, "paymentMethod": "card"}, http.StatusNotFound},
		{"overpayment", gin.H{"contractId": s.contract.ID, "amount": "700.01", "paymentMethod": "card"}, http.StatusUnprocessableEntity},
	}
	for _, tc := range cases {
		code, body := pay(tc.body, s.ownerToken)
		assert.Equal(t, tc.want, code, "%s: %v", tc.name, body)
	}

	code, _ = pay(gin.H{"contractId": s.contract.ID, "amount": 10, "paymentMethod": "card"}, s.installerToken)
	assert.Equal(t, http.StatusForbidden, code)

	assert.True(t, s.paymentsMade(t).Equal(decimal.NewFromInt(300)), "rejected payments must not move the aggregate")
}

func TestRecordPaymentIdempotentReference(t *testing.T) {
	s := newLedgerSetup(t)
	reference := uuid.NewString()
	body := gin.H{"contractId": s.contract.ID, "amount": 100, "paymentMethod": "cash", "reference": reference}

	w := s.do(http.MethodPost, "/api/payments", body, s.ownerToken)
	require.Equal(t, http.StatusCreated, w.Code)
	payment := decode(t, w)["payment"].(map[string]interface{})
	assert.Equal(t, reference, payment["reference"])

	w = s.do(http.MethodPost, "/api/payments", body, s.ownerToken)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.True(t, s.paymentsMade(t).Equal(decimal.NewFromInt(100)))
}

func TestSettledContractRejectsPayments(t *testing.T) {
	s := newLedgerSetup(t)

	w := s.do(http.MethodPost, "/api/payments", gin.H{"contractId": s.contract.ID, "amount": 1000, "paymentMethod": "eft"}, s.ownerToken)
	require.Equal(t, http.StatusCreated, w.Code)
	body := decode(t, w)
	assert.Equal(t, true, body["settled"])
	assert.Equal(t, "0", body["remaining"])

	w = s.do(http.MethodPost, "/api/payments", gin.H{"contractId": s.contract.ID, "amount": 1, "paymentMethod": "eft"}, s.ownerToken)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, services.ErrContractInactive.Error(), decode(t, w)["error"])
}

func TestPaymentHistoryAndStatement(t *testing.T) {
	s := newLedgerSetup(t)
	for _, amount := range []string{"100", "200"} {
		w := s.do(http.MethodPost, "/api/payments", gin.H{"contractId": s.contract.ID, "amount": amount, "paymentMethod": "card"}, s.ownerToken)
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w := s.do(http.MethodGet, fmt.Sprintf("/api/contracts/%d/payments", s.contract.ID), nil, s.ownerToken)
	require.Equal(t, http.StatusOK, w.Code)
	payments := decode(t, w)["payments"].([]interface{})
	require.Len(t, payments, 2)
	assert.Equal(t, "200", payments[0].(map[string]interface{})["amount"])

	w = s.do(http.MethodGet, fmt.Sprintf("/api/contracts/%d/payments", s.contract.ID), nil, s.installerToken)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(http.MethodGet, fmt.Sprintf("/api/contracts/%d/statement.xlsx", s.contract.ID), nil, s.ownerToken)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, services.StatementContentType, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "statement.xlsx")

	book, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	defer book.Close()
	value, err := book.GetCellValue(services.StatementSheet, "B4")
	require.NoError(t, err)
	assert.Equal(t, "300", value)
}
