package controllers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"gridx-backend/models"
	"gridx-backend/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProfileController struct {
	db  *gorm.DB
	now func() time.Time
}

func NewProfileController(db *gorm.DB) *ProfileController {
	return &ProfileController{db: db, now: time.Now}
}

type AccountInput struct {
	Email    string `json:"email" binding:"required,email,max=255"`
	Username string `json:"username" binding:"max=100"`
	Phone    string `json:"phone" binding:"omitempty,phone"`
	Country  string `json:"country" binding:"max=100"`
}

type LinkedAccountsInput struct {
	Google   string `json:"google" binding:"max=255"`
	Facebook string `json:"facebook" binding:"max=255"`
	Twitter  string `json:"twitter" binding:"max=255"`
}

type BioInput struct {
	Bio string `json:"bio" binding:"max=5000"`
}

type PaymentMethodInput struct {
	CardHolder  string `json:"cardHolder" binding:"required,max=255"`
	CardNumber  string `json:"cardNumber" binding:"required"`
	ExpiryMonth int    `json:"expiryMonth" binding:"required,min=1,max=12"`
	ExpiryYear  int    `json:"expiryYear" binding:"required,min=2000,max=2100"`
	IsDefault   bool   `json:"isDefault"`
}

// upsertByUser inserts row or overwrites columns of the user's existing row.
func upsertByUser(db *gorm.DB, row interface{}, columns ...string) error {
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns(columns),
	}).Create(row).Error
}

func (pc *ProfileController) UpdateAccount(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var input AccountInput
	if !bindJSON(c, &input) {
		return
	}

	db := pc.db.WithContext(c.Request.Context())
	info := models.AccountInformation{
		UserID:    userID,
		Email:     models.NormalizeEmail(input.Email),
		Username:  strings.TrimSpace(input.Username),
		Phone:     strings.TrimSpace(input.Phone),
		Country:   strings.TrimSpace(input.Country),
		UpdatedAt: pc.now().UTC(),
	}
	if err := upsertByUser(db, &info, "email", "username", "phone", "country", "updated_at"); err != nil {
		zap.L().Error("Failed to save account information", zap.Uint("user_id", userID), zap.Error(err))
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to update account information")
		return
	}
	if err := db.Where("user_id = ?", userID).First(&info).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to update account information")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Account information updated", "account": info})
}

func (pc *ProfileController) UpdateLinkedAccounts(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var input LinkedAccountsInput
	if !bindJSON(c, &input) {
		return
	}

	db := pc.db.WithContext(c.Request.Context())
	linked := models.LinkedAccount{
		UserID:    userID,
		Google:    strings.TrimSpace(input.Google),
		Facebook:  strings.TrimSpace(input.Facebook),
		Twitter:   strings.TrimSpace(input.Twitter),
		UpdatedAt: pc.now().UTC(),
	}
	if err := upsertByUser(db, &linked, "google", "facebook", "twitter", "updated_at"); err != nil {
		zap.L().Error("Failed to save linked accounts", zap.Uint("user_id", userID), zap.Error(err))
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to update linked accounts")
		return
	}
	if err := db.Where("user_id = ?", userID).First(&linked).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to update linked accounts")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Linked accounts updated", "linkedAccounts": linked})
}

func (pc *ProfileController) GetBio(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var bio models.ProfileBio
	err := pc.db.WithContext(c.Request.Context()).Where("user_id = ?", userID).First(&bio).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusOK, gin.H{"bio": ""})
		return
	}
	if err != nil {
		zap.L().Error("Failed to load bio", zap.Uint("user_id", userID), zap.Error(err))
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to fetch bio")
		return
	}
	c.JSON(http.StatusOK, gin.H{"bio": bio.Bio, "updatedAt": bio.UpdatedAt})
}

func (pc *ProfileController) UpdateBio(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var input BioInput
	if !bindJSON(c, &input) {
		return
	}

	bio := models.ProfileBio{UserID: userID, Bio: strings.TrimSpace(input.Bio), UpdatedAt: pc.now().UTC()}
	if err := upsertByUser(pc.db.WithContext(c.Request.Context()), &bio, "bio", "updated_at"); err != nil {
		zap.L().Error("Failed to save bio", zap.Uint("user_id", userID), zap.Error(err))
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to update bio")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Bio updated", "bio": bio.Bio})
}

func (pc *ProfileController) AddPaymentMethod(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var input PaymentMethodInput
	if !bindJSON(c, &input) {
		return
	}

	number := strings.NewReplacer(" ", "", "-", "").Replace(input.CardNumber)
	if !utils.ValidCardNumber(number) {
		utils.RespondWithError(c, http.StatusBadRequest, "cardNumber is invalid")
		return
	}
	now := pc.now().UTC()
	if input.ExpiryYear < now.Year() || (input.ExpiryYear == now.Year() && time.Month(input.ExpiryMonth) < now.Month()) {
		utils.RespondWithError(c, http.StatusBadRequest, "Card has expired")
		return
	}

	method := models.SavedPaymentMethod{
		UserID:      userID,
		CardHolder:  strings.TrimSpace(input.CardHolder),
		Brand:       utils.CardBrand(number),
		Last4:       number[len(number)-4:],
		ExpiryMonth: input.ExpiryMonth,
		ExpiryYear:  input.ExpiryYear,
		IsDefault:   input.IsDefault,
	}

	err := pc.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		var existing int64
		if err := tx.Model(&models.SavedPaymentMethod{}).Where("user_id = ?", userID).Count(&existing).Error; err != nil {
			return err
		}
		if existing == 0 {
			method.IsDefault = true
		}
		if method.IsDefault {
			if err := tx.Model(&models.SavedPaymentMethod{}).
				Where("user_id = ? AND is_default = ?", userID, true).
				Update("is_default", false).Error; err != nil {
				return err
			}
		}
		return tx.Create(&method).Error
	})
	if err != nil {
		zap.L().Error("Failed to save payment method", zap.Uint("user_id", userID), zap.Error(err))
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to save payment method")
		return
	}
	c.JSON(http.StatusCreated, method)
}

// ListPaymentMethods returns the default card first.
func (pc *ProfileController) ListPaymentMethods(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var methods []models.SavedPaymentMethod
	err := pc.db.WithContext(c.Request.Context()).
		Where("user_id = ?", userID).
		Order("is_default DESC").
		Order("created_at DESC").
		Order("id DESC").
		Find(&methods).Error
	if err != nil {
		zap.L().Error("Failed to list payment methods", zap.Uint("user_id", userID), zap.Error(err))
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to fetch payment methods")
		return
	}
	c.JSON(http.StatusOK, gin.H{"paymentMethods": methods})
}
