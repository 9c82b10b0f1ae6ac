package controllers

import (
	"errors"
	"net/http"
	"os"

	"gridx-backend/integrations"
	"gridx-backend/predict"
	"gridx-backend/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type EnergyController struct {
	eskom       *integrations.Eskom
	tomorrow    *integrations.Tomorrow
	devices     *predict.DeviceClassifier
	usageCSV    string
	defaultArea string
	location    string
}

type EnergyOptions struct {
	UsageCSV    string
	DefaultArea string
	Location    string
}

func NewEnergyController(eskom *integrations.Eskom, tomorrow *integrations.Tomorrow, devices *predict.DeviceClassifier, opts EnergyOptions) *EnergyController {
	return &EnergyController{
		eskom:       eskom,
		tomorrow:    tomorrow,
		devices:     devices,
		usageCSV:    opts.UsageCSV,
		defaultArea: opts.DefaultArea,
		location:    opts.Location,
	}
}

type UsageInput struct {
	Readings []predict.Reading `json:"readings" binding:"required,min=1,dive"`
}

type SolarOutputInput struct {
	Weather []predict.WeatherDay `json:"weather" binding:"required,min=1,max=366,dive"`
	Panel   *predict.PanelSpecs  `json:"panel"`
}

type DeviceInput struct {
	Sequence []float64 `json:"sequence" binding:"required"`
}

func respondIntegrationError(c *gin.Context, service string, err error) {
	var apiErr *integrations.APIError
	switch {
	case errors.Is(err, integrations.ErrNotConfigured):
		utils.RespondWithError(c, http.StatusServiceUnavailable, service+" is not configured")
	case errors.As(err, &apiErr):
		zap.L().Warn("Upstream error", zap.String("service", apiErr.Service), zap.Int("status", apiErr.StatusCode))
		utils.RespondWithError(c, http.StatusBadGateway, service+" request failed")
	default:
		zap.L().Error("Integration call failed", zap.String("service", service), zap.Error(err))
		utils.RespondWithError(c, http.StatusBadGateway, service+" request failed")
	}
}

// UsageFromFile analyses the configured usage CSV.
func (ec *EnergyController) UsageFromFile(c *gin.Context) {
	file, err := os.Open(ec.usageCSV)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			utils.RespondWithError(c, http.StatusNotFound, "No usage data available")
			return
		}
		zap.L().Error("Failed to open usage data", zap.String("path", ec.usageCSV), zap.Error(err))
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to read usage data")
		return
	}
	defer file.Close()

	readings, err := predict.ReadUsageCSV(file)
	if err != nil {
		zap.L().Error("Invalid usage data", zap.String("path", ec.usageCSV), zap.Error(err))
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to read usage data")
		return
	}
	ec.respondUsage(c, readings)
}

func (ec *EnergyController) AnalyzeUsage(c *gin.Context) {
	var input UsageInput
	if !bindJSON(c, &input) {
		return
	}
	ec.respondUsage(c, input.Readings)
}

func (ec *EnergyController) respondUsage(c *gin.Context, readings []predict.Reading) {
	analysis, err := predict.AnalyzeUsage(readings)
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, err.Error())
		return
	}
	c.JSON(http.StatusOK, analysis)
}

func (ec *EnergyController) SampleSolarOutput(c *gin.Context) {
	predictions, err := predict.PredictSolarOutput(predict.SampleWeather, predict.SamplePanel)
	if err != nil {
		zap.L().Error("Sample solar prediction failed", zap.Error(err))
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to predict solar output")
		return
	}
	c.JSON(http.StatusOK, gin.H{"predictions": predictions})
}

func (ec *EnergyController) PredictSolarOutput(c *gin.Context) {
	var input SolarOutputInput
	if !bindJSON(c, &input) {
		return
	}
	panel := predict.SamplePanel
	if input.Panel != nil {
		panel = *input.Panel
	}
	predictions, err := predict.PredictSolarOutput(input.Weather, panel)
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"predictions": predictions})
}

func (ec *EnergyController) DetectDevice(c *gin.Context) {
	var input DeviceInput
	if !bindJSON(c, &input) {
		return
	}
	detection, err := ec.devices.Predict(input.Sequence)
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, err.Error())
		return
	}
	c.JSON(http.StatusOK, detection)
}

func (ec *EnergyController) LoadShedding(c *gin.Context) {
	area := c.DefaultQuery("area", ec.defaultArea)
	if area == "" {
		utils.RespondWithError(c, http.StatusBadRequest, "area is required")
		return
	}
	schedule, err := ec.eskom.AreaSchedule(c.Request.Context(), area)
	if err != nil {
		respondIntegrationError(c, "Load shedding service", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"area": area, "schedule": schedule})
}

func (ec *EnergyController) SearchAreas(c *gin.Context) {
	text := c.Query("text")
	if text == "" {
		utils.RespondWithError(c, http.StatusBadRequest, "Missing search text")
		return
	}
	raw, err := ec.eskom.SearchAreas(c.Request.Context(), text)
	if err != nil {
		respondIntegrationError(c, "Load shedding service", err)
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", raw)
}

func (ec *EnergyController) Sunlight(c *gin.Context) {
	location := c.DefaultQuery("location", ec.location)
	hours, err := ec.tomorrow.SunlightHours(c.Request.Context(), location)
	if err != nil {
		respondIntegrationError(c, "Weather service", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"location": location, "sunlightHours": hours})
}
