package controllers

import (
	"net/http"

	"gridx-backend/models"
	"gridx-backend/services"
	"gridx-backend/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type AuthController struct {
	accounts      *services.AccountService
	secureCookies bool
}

func NewAuthController(accounts *services.AccountService, secureCookies bool) *AuthController {
	return &AuthController{accounts: accounts, secureCookies: secureCookies}
}

// RegisterInput always creates a customer. Installers are granted with
// cmd/installer.
type RegisterInput struct {
	Email    string `json:"email" binding:"required,email,max=255"`
	Password string `json:"password" binding:"required,min=8,max=72"`
	Name     string `json:"name" binding:"required,max=255"`
	Phone    string `json:"phone" binding:"omitempty,phone"`
}

type LoginInput struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func userResponse(user *models.User) gin.H {
	return gin.H{
		"id":          user.ID,
		"email":       user.Email,
		"name":        user.FullName,
		"phone":       user.Phone,
		"isInstaller": user.IsInstaller,
	}
}

func (ac *AuthController) Register(c *gin.Context) {
	var input RegisterInput
	if !bindJSON(c, &input) {
		return
	}

	user, err := ac.accounts.Register(c.Request.Context(), services.RegisterParams{
		Email:    input.Email,
		Password: input.Password,
		FullName: input.Name,
		Phone:    input.Phone,
	})
	if err != nil {
		respondServiceError(c, err, "Failed to create user")
		return
	}

	token, err := utils.GenerateToken(user.ID, user.Email)
	if err != nil {
		zap.L().Error("Failed to sign token", zap.Uint("user_id", user.ID), zap.Error(err))
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to generate token")
		return
	}
	utils.SetTokenCookie(c, token, ac.secureCookies)

	c.JSON(http.StatusCreated, gin.H{
		"message": "Registration successful",
		"token":   token,
		"user":    userResponse(user),
	})
}

func (ac *AuthController) Login(c *gin.Context) {
	var input LoginInput
	if !bindJSON(c, &input) {
		return
	}

	user, err := ac.accounts.Authenticate(c.Request.Context(), input.Email, input.Password)
	if err != nil {
		respondServiceError(c, err, "Login failed")
		return
	}

	token, err := utils.GenerateToken(user.ID, user.Email)
	if err != nil {
		zap.L().Error("Failed to sign token", zap.Uint("user_id", user.ID), zap.Error(err))
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to generate token")
		return
	}
	utils.SetTokenCookie(c, token, ac.secureCookies)

	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"user":  userResponse(user),
	})
}

func (ac *AuthController) Logout(c *gin.Context) {
	utils.ClearTokenCookie(c, ac.secureCookies)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

func (ac *AuthController) Me(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	user, err := ac.accounts.GetUser(c.Request.Context(), userID)
	if err != nil {
		respondServiceError(c, err, "Failed to load user")
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": userResponse(user)})
}
