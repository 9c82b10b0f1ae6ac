package utils

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestTokenRoundTrip(t *testing.T) {
	ConfigureAuth("unit-secret", time.Hour, bcrypt.MinCost)

	token, err := GenerateToken(42, "user@example.com")
	require.NoError(t, err)
	id, err := ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, uint(42), id)

	_, err = ParseToken(token + "x")
	assert.ErrorIs(t, err, ErrInvalidToken)

	ConfigureAuth("other-secret", time.Hour, bcrypt.MinCost)
	_, err = ParseToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestPasswordHash(t *testing.T) {
	ConfigureAuth("unit-secret", time.Hour, bcrypt.MinCost)
	hash, err := HashPassword("correct horse")
	require.NoError(t, err)
	assert.True(t, CheckPasswordHash("correct horse", hash))
	assert.False(t, CheckPasswordHash("wrong horse", hash))
}

func TestAuthMiddleware(t *testing.T) {
	ConfigureAuth("unit-secret", time.Hour, bcrypt.MinCost)
	token, err := GenerateToken(7, "user@example.com")
	require.NoError(t, err)

	r := gin.New()
	r.GET("/me", AuthMiddleware(), func(c *gin.Context) {
		id, ok := CurrentUserID(c)
		require.True(t, ok)
		c.JSON(http.StatusOK, gin.H{"id": id})
	})

	tests := []struct {
		name   string
		setup  func(*http.Request)
		status int
	}{
		{"missing", func(*http.Request) {}, http.StatusUnauthorized},
		{"garbage", func(r *http.Request) { r.Header.Set("Authorization", "Bearer nope") }, http.StatusUnauthorized},
		{"bearer", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }, http.StatusOK},
		{"lowercase scheme", func(r *http.Request) { r.Header.Set("Authorization", "bearer "+token) }, http.StatusOK},
		{"cookie", func(r *http.Request) { r.AddCookie(&http.Cookie{Name: TokenCookieName, Value: token}) }, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			tt.setup(req)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestCardNumbers(t *testing.T) {
	assert.True(t, ValidCardNumber("4242424242424242"))
	assert.True(t, ValidCardNumber("378282246310005"))
	assert.False(t, ValidCardNumber("4242424242424241"))
	assert.False(t, ValidCardNumber("4242-4242-4242-4242"))
	assert.False(t, ValidCardNumber("42424242"))

	assert.Equal(t, "visa", CardBrand("4242424242424242"))
	assert.Equal(t, "amex", CardBrand("378282246310005"))
	assert.Equal(t, "mastercard", CardBrand("5555555555554444"))
	assert.Equal(t, "mastercard", CardBrand("2223003122003222"))
	assert.Equal(t, "card", CardBrand("6011111111111117"))
}

func TestPhoneAndPaymentMethod(t *testing.T) {
	assert.True(t, ValidatePhone("+27 82 123 4567"))
	assert.True(t, ValidatePhone("(27) 11-555-0000"))
	assert.False(t, ValidatePhone("011 555 0000"))
	assert.False(t, ValidatePhone("+0123"))
	assert.False(t, ValidatePhone("phone"))

	assert.True(t, ValidPaymentMethod(" EFT "))
	assert.True(t, ValidPaymentMethod("mobile_money"))
	assert.False(t, ValidPaymentMethod("bitcoin"))
}

func TestDates(t *testing.T) {
	d, err := ParseDate("2024-02-29")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), d)

	d, err = ParseDate("2024-03-01T15:04:05+02:00")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), d)

	_, err = ParseDate("01/03/2024")
	assert.Error(t, err)

	assert.Equal(t, time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC), DueDateIn(2025, time.February, 31, time.UTC))
	assert.Equal(t, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), DueDateIn(2024, time.February, 30, time.UTC))
	assert.Equal(t, time.Date(2025, 4, 15, 0, 0, 0, 0, time.UTC), DueDateIn(2025, time.April, 15, time.UTC))
}
