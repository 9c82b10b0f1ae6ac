package predict

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// ridge keeps the normal equations solvable when a feature is constant.
const ridge = 1e-9

type WeatherDay struct {
	Date          string  `json:"date" binding:"required"`
	Temperature   float64 `json:"temperature"`
	SunlightHours float64 `json:"sunlightHours"`
}

type PanelSpecs struct {
	Efficiency float64 `json:"efficiency"`
	Area       float64 `json:"area"`
}

type SolarPrediction struct {
	Date               string  `json:"date"`
	PredictedOutputKWh float64 `json:"predictedOutputKwh"`
}

// SampleWeather and SamplePanel back the GET endpoint.
var (
	SampleWeather = []WeatherDay{
		{Date: "2023-10-01", Temperature: 25, SunlightHours: 8},
		{Date: "2023-10-02", Temperature: 22, SunlightHours: 6},
		{Date: "2023-10-03", Temperature: 28, SunlightHours: 9},
	}
	SamplePanel = PanelSpecs{Efficiency: 0.18, Area: 10}
)

// PredictSolarOutput fits output = hours * efficiency * area against
// (sunlight hours, temperature) with an intercept and returns the fitted
// value per day, rounded to two decimals.
func PredictSolarOutput(days []WeatherDay, panel PanelSpecs) ([]SolarPrediction, error) {
	if len(days) == 0 {
		return nil, errors.New("at least one weather day is required")
	}
	if panel.Efficiency <= 0 || panel.Efficiency > 1 {
		return nil, fmt.Errorf("efficiency must be in (0, 1], got %g", panel.Efficiency)
	}
	if panel.Area <= 0 {
		return nil, fmt.Errorf("panel area must be positive, got %g", panel.Area)
	}

	n := len(days)
	hours := make([]float64, n)
	temps := make([]float64, n)
	target := make([]float64, n)
	for i, d := range days {
		if d.SunlightHours < 0 || d.SunlightHours > 24 {
			return nil, fmt.Errorf("%s: sunlight hours must be within 0-24", d.Date)
		}
		hours[i] = d.SunlightHours
		temps[i] = d.Temperature
		target[i] = d.SunlightHours * panel.Efficiency * panel.Area
	}

	meanHours := stat.Mean(hours, nil)
	meanTemps := stat.Mean(temps, nil)
	meanTarget := stat.Mean(target, nil)

	// Centred design matrix, so the intercept falls out of the means.
	x := mat.NewDense(n, 2, nil)
	y := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		x.Set(i, 0, hours[i]-meanHours)
		x.Set(i, 1, temps[i]-meanTemps)
		y.SetVec(i, target[i]-meanTarget)
	}

	var gram mat.Dense
	gram.Mul(x.T(), x)
	for i := 0; i < 2; i++ {
		gram.Set(i, i, gram.At(i, i)+ridge)
	}
	var xty mat.VecDense
	xty.MulVec(x.T(), y)

	var coef mat.VecDense
	if err := coef.SolveVec(&gram, &xty); err != nil {
		// An ill-conditioned fit still yields a usable solution.
		var cond mat.Condition
		if !errors.As(err, &cond) {
			return nil, fmt.Errorf("fit solar model: %w", err)
		}
	}

	predictions := make([]SolarPrediction, n)
	for i, d := range days {
		fitted := meanTarget + coef.AtVec(0)*(hours[i]-meanHours) + coef.AtVec(1)*(temps[i]-meanTemps)
		predictions[i] = SolarPrediction{Date: d.Date, PredictedOutputKWh: round2(fitted)}
	}
	return predictions, nil
}

func round2(v float64) float64 {
	r := math.Round(v*100) / 100
	if r == 0 {
		return 0 // drop negative zero
	}
	return r
}
