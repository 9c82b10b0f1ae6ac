package controllers

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Version is overridden at build time with -ldflags "-X gridx-backend/controllers.Version=...".
var Version = "dev"

type HealthController struct {
	db      *gorm.DB
	started time.Time
}

func NewHealthController(db *gorm.DB) *HealthController {
	return &HealthController{db: db, started: time.Now()}
}

func (hc *HealthController) Health(c *gin.Context) {
	status := "ok"
	database := "ok"

	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	sqlDB, err := hc.db.DB()
	if err != nil || sqlDB.PingContext(ctx) != nil {
		status = "degraded"
		database = "unavailable"
	}

	code := http.StatusOK
	if status != "ok" {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{"status": status, "database": database})
}

func (hc *HealthController) Version(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"version":   Version,
		"goVersion": runtime.Version(),
		"uptime":    time.Since(hc.started).Round(time.Second).String(),
	})
}
