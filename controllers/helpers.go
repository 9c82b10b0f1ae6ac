package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"gridx-backend/services"
	"gridx-backend/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// respondServiceError maps service sentinels to status codes. Anything
// unrecognised is logged and reported as fallback with a 500.
func respondServiceError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, services.ErrInvalidAmount),
		errors.Is(err, services.ErrInvalidMethod),
		errors.Is(err, services.ErrInvalidContract),
		errors.Is(err, services.ErrInvalidSystem),
		errors.Is(err, services.ErrInvalidOAuthAction):
		utils.RespondWithError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrInvalidCredentials):
		utils.RespondWithError(c, http.StatusUnauthorized, "Invalid credentials")
	case errors.Is(err, services.ErrNotContractOwner),
		errors.Is(err, services.ErrNotInstaller):
		utils.RespondWithError(c, http.StatusForbidden, err.Error())
	case errors.Is(err, services.ErrContractNotFound),
		errors.Is(err, services.ErrSystemNotFound),
		errors.Is(err, services.ErrUserNotFound):
		utils.RespondWithError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, services.ErrDuplicatePayment),
		errors.Is(err, services.ErrEmailTaken):
		utils.RespondWithError(c, http.StatusConflict, err.Error())
	case errors.Is(err, services.ErrContractInactive),
		errors.Is(err, services.ErrOverpayment):
		utils.RespondWithError(c, http.StatusUnprocessableEntity, err.Error())
	default:
		zap.L().Error(fallback,
			zap.String("path", c.FullPath()),
			zap.String("request_id", c.GetString("requestId")),
			zap.Error(err))
		utils.RespondWithError(c, http.StatusInternalServerError, fallback)
	}
}

// currentUser reads the authenticated user id, answering 401 when missing.
func currentUser(c *gin.Context) (uint, bool) {
	userID, ok := utils.CurrentUserID(c)
	if !ok {
		utils.RespondWithError(c, http.StatusUnauthorized, "User ID not found in context")
		return 0, false
	}
	return userID, true
}

func idParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid "+name)
		return 0, false
	}
	return uint(id), true
}

func bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, utils.ValidationMessage(err))
		return false
	}
	return true
}
