package controllers_test

import (
	"net/http"
	"testing"
	"time"

	"gridx-backend/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccountInformationUpsert(t *testing.T) {
	h := newHarness(t)
	user, token := h.user("profile@example.com", false)

	w := h.do(http.MethodPut, "/api/profile/account", gin.H{"email": "profile@example.com", "username": "lerato", "country": "ZA"}, token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = h.do(http.MethodPut, "/api/profile/account", gin.H{"email": "new@example.com", "username": "lerato_k", "phone": "+27115550000"}, token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	account := decode(t, w)["account"].(map[string]interface{})
	assert.Equal(t, "lerato_k", account["username"])
	assert.Equal(t, "", account["country"])

	var rows []models.AccountInformation
	require.NoError(t, h.db.Where("user_id = ?", user.ID).Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, "new@example.com", rows[0].Email)

	w = h.do(http.MethodPut, "/api/profile/account", gin.H{"username": "no-email"}, token)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLinkedAccountsAndBio(t *testing.T) {
	h := newHarness(t)
	_, token := h.user("bio@example.com", false)

	w := h.do(http.MethodPut, "/api/profile/linked-accounts", gin.H{"google": "bio@gmail.com"}, token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = h.do(http.MethodPut, "/api/profile/linked-accounts", gin.H{"google": "bio@gmail.com", "twitter": "@bio"}, token)
	require.Equal(t, http.StatusOK, w.Code)
	linked := decode(t, w)["linkedAccounts"].(map[string]interface{})
	assert.Equal(t, "@bio", linked["twitter"])

	w = h.do(http.MethodGet, "/api/profile/bio", nil, token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "", decode(t, w)["bio"])

	for _, bio := range []string{"Off-grid since 2021", "Off-grid since 2020"} {
		w = h.do(http.MethodPut, "/api/profile/bio", gin.H{"bio": bio}, token)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}

	w = h.do(http.MethodGet, "/api/profile/bio", nil, token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Off-grid since 2020", decode(t, w)["bio"])
}

func TestPaymentMethods(t *testing.T) {
	h := newHarness(t)
	user, token := h.user("cards@example.com", false)
	year := time.Now().Year() + 2

	w := h.do(http.MethodPost, "/api/profile/payment-methods", gin.H{
		"cardHolder": "N Dlamini", "cardNumber": "4242 4242 4242 4241", "expiryMonth": 5, "expiryYear": year,
	}, token)
	assert.Equal(t, http.StatusBadRequest, w.Code, "Luhn check must fail")

	w = h.do(http.MethodPost, "/api/profile/payment-methods", gin.H{
		"cardHolder": "N Dlamini", "cardNumber": "4242424242424242", "expiryMonth": 1, "expiryYear": 2020,
	}, token)
	assert.Equal(t, http.StatusBadRequest, w.Code, "expired card")

	w = h.do(http.MethodPost, "/api/profile/payment-methods", gin.H{
		"cardHolder": "N Dlamini", "cardNumber": "4242 4242 4242 4242", "expiryMonth": 5, "expiryYear": year,
	}, token)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	first := decode(t, w)
	assert.Equal(t, "4242", first["last4"])
	assert.Equal(t, "visa", first["brand"])
	assert.Equal(t, true, first["isDefault"], "first card becomes the default")
	assert.NotContains(t, first, "cardNumber")

	w = h.do(http.MethodPost, "/api/profile/payment-methods", gin.H{
		"cardHolder": "N Dlamini", "cardNumber": "5555555555554444", "expiryMonth": 12, "expiryYear": year, "isDefault": true,
	}, token)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "mastercard", decode(t, w)["brand"])

	w = h.do(http.MethodGet, "/api/profile/payment-methods", nil, token)
	require.Equal(t, http.StatusOK, w.Code)
	methods := decode(t, w)["paymentMethods"].([]interface{})
	require.Len(t, methods, 2)
	assert.Equal(t, "4444", methods[0].(map[string]interface{})["last4"])
	assert.Equal(t, false, methods[1].(map[string]interface{})["isDefault"])

	var defaults int64
	require.NoError(t, h.db.Model(&models.SavedPaymentMethod{}).
		Where("user_id = ? AND is_default = ?", user.ID, true).Count(&defaults).Error)
	assert.Equal(t, int64(1), defaults)
}
