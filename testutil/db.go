// Package testutil provides an isolated in-memory database and fixtures for
// package tests.
package testutil

import (
	"fmt"
	"testing"
	"time"

	"gridx-backend/models"
	"gridx-backend/utils"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const JWTSecret = "test-secret"

// NewDB opens a private SQLite memory database with the full schema. The
// pool is pinned to one connection so transactions serialise like row locks.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()
	utils.ConfigureAuth(JWTSecret, time.Hour, bcrypt.MinCost)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models.All()...))
	return db
}

func CreateUser(t testing.TB, db *gorm.DB, email string, installer bool) *models.User {
	t.Helper()
	user := models.User{
		Email:       email,
		Password:    "password123",
		FullName:    "Test " + email,
		Phone:       "+27821234567",
		IsInstaller: installer,
	}
	require.NoError(t, db.Create(&user).Error)
	return &user
}

func CreateSystem(t testing.TB, db *gorm.DB, installerID uint) *models.SolarSystem {
	t.Helper()
	system := models.SolarSystem{
		InstallerID: installerID,
		CapacityKW:  decimal.RequireFromString("5.5"),
		Components:  "10x 550W panels, 5kW hybrid inverter, 10kWh battery",
	}
	require.NoError(t, db.Create(&system).Error)
	return &system
}

func CreateContract(t testing.TB, db *gorm.DB, userID, systemID uint, monthly, total string) *models.SolarContract {
	t.Helper()
	contract := models.SolarContract{
		UserID:         userID,
		SystemID:       systemID,
		MonthlyPayment: decimal.RequireFromString(monthly),
		TotalCost:      decimal.RequireFromString(total),
		PaymentsMade:   decimal.Zero,
		StartDate:      time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		IsActive:       true,
	}
	require.NoError(t, db.Create(&contract).Error)
	return &contract
}

func Token(t testing.TB, user *models.User) string {
	t.Helper()
	token, err := utils.GenerateToken(user.ID, user.Email)
	require.NoError(t, err)
	return token
}
