package predict

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(day, hour int) time.Time {
	return time.Date(2025, 3, day, hour, 15, 0, 0, time.UTC)
}

func TestAnalyzeUsage(t *testing.T) {
	readings := []Reading{
		{Timestamp: at(1, 7), UsageKWh: 1.2},
		{Timestamp: at(2, 7), UsageKWh: 1.6},
		{Timestamp: at(1, 18), UsageKWh: 3.5},
		{Timestamp: at(2, 18), UsageKWh: 2.5},
		{Timestamp: at(1, 2), UsageKWh: 0.3},
		{Timestamp: at(2, 3), UsageKWh: 0.3},
	}

	analysis, err := AnalyzeUsage(readings)
	require.NoError(t, err)
	assert.Equal(t, 18, analysis.PeakUsageHour)
	// Hours 2 and 3 tie; the earlier one wins.
	assert.Equal(t, 2, analysis.LowUsageHour)
	assert.Equal(t, "Consider using power around 2:00 when demand is lowest.", analysis.Recommendation)
	require.Len(t, analysis.Hourly, 4)
	assert.Equal(t, 7, analysis.Hourly[2].Hour)
	assert.InDelta(t, 1.4, analysis.Hourly[2].AverageKWh, 1e-9)
}

func TestAnalyzeUsageRejectsBadInput(t *testing.T) {
	_, err := AnalyzeUsage(nil)
	assert.ErrorIs(t, err, ErrNoReadings)

	_, err = AnalyzeUsage([]Reading{{Timestamp: at(1, 1), UsageKWh: -1}})
	assert.Error(t, err)
}

func TestReadUsageCSV(t *testing.T) {
	input := "usage_kwh,timestamp\n" +
		"0.5,2025-03-01 06:00:00\n" +
		"2.25, 2025-03-01T19:30:00Z\n"

	readings, err := ReadUsageCSV(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, readings, 2)
	assert.Equal(t, 6, readings[0].Timestamp.Hour())
	assert.InDelta(t, 2.25, readings[1].UsageKWh, 1e-9)
	assert.Equal(t, 19, readings[1].Timestamp.Hour())

	_, err = ReadUsageCSV(strings.NewReader("time,kwh\n1,2\n"))
	assert.Error(t, err)

	_, err = ReadUsageCSV(strings.NewReader("timestamp,usage_kwh\nyesterday,1\n"))
	assert.ErrorContains(t, err, "line 2")
}

func TestPredictSolarOutputSampleData(t *testing.T) {
	predictions, err := PredictSolarOutput(SampleWeather, SamplePanel)
	require.NoError(t, err)

	assert.Equal(t, []SolarPrediction{
		{Date: "2023-10-01", PredictedOutputKWh: 14.4},
		{Date: "2023-10-02", PredictedOutputKWh: 10.8},
		{Date: "2023-10-03", PredictedOutputKWh: 16.2},
	}, predictions)
}

func TestPredictSolarOutputDegenerateInput(t *testing.T) {
	// A single day leaves nothing to regress on; the fit is the mean.
	predictions, err := PredictSolarOutput([]WeatherDay{{Date: "2024-01-01", Temperature: 30, SunlightHours: 10}}, PanelSpecs{Efficiency: 0.2, Area: 5})
	require.NoError(t, err)
	assert.Equal(t, 10.0, predictions[0].PredictedOutputKWh)

	// Constant temperature.
	days := []WeatherDay{
		{Date: "a", Temperature: 20, SunlightHours: 4},
		{Date: "b", Temperature: 20, SunlightHours: 7},
	}
	predictions, err = PredictSolarOutput(days, PanelSpecs{Efficiency: 0.5, Area: 2})
	require.NoError(t, err)
	assert.Equal(t, 4.0, predictions[0].PredictedOutputKWh)
	assert.Equal(t, 7.0, predictions[1].PredictedOutputKWh)
}

func TestPredictSolarOutputValidation(t *testing.T) {
	_, err := PredictSolarOutput(nil, SamplePanel)
	assert.Error(t, err)

	_, err = PredictSolarOutput(SampleWeather, PanelSpecs{Efficiency: 1.5, Area: 10})
	assert.Error(t, err)

	_, err = PredictSolarOutput(SampleWeather, PanelSpecs{Efficiency: 0.2, Area: 0})
	assert.Error(t, err)

	_, err = PredictSolarOutput([]WeatherDay{{Date: "x", SunlightHours: 25}}, SamplePanel)
	assert.Error(t, err)
}

func TestDeviceClassifier(t *testing.T) {
	classifier, err := NewDeviceClassifier(DefaultDeviceSamples)
	require.NoError(t, err)
	assert.Equal(t, []string{"fridge", "TV", "irrigation"}, classifier.devices)

	exact, err := classifier.Predict([]float64{1.5, 1.7, 1.6})
	require.NoError(t, err)
	assert.Equal(t, &DeviceDetection{Device: "irrigation", Confidence: 1}, exact)

	near, err := classifier.Predict([]float64{0.25, 0.3, 0.15})
	require.NoError(t, err)
	assert.Equal(t, "fridge", near.Device)
	assert.Greater(t, near.Confidence, 0.7)
	assert.Less(t, near.Confidence, 1.0)

	_, err = classifier.Predict([]float64{0.1, 0.2})
	assert.ErrorIs(t, err, ErrSequenceLength)

	_, err = classifier.Predict([]float64{0.1, -0.2, 0.3})
	assert.ErrorIs(t, err, ErrNegativePower)
}

func TestDeviceClassifierAveragesSamples(t *testing.T) {
	classifier, err := NewDeviceClassifier([]DeviceSample{
		{Device: "kettle", Sequence: []float64{2, 2, 2}},
		{Device: "kettle", Sequence: []float64{2.2, 2.2, 2.2}},
		{Device: "lamp", Sequence: []float64{0.05, 0.05, 0.05}},
	})
	require.NoError(t, err)

	got, err := classifier.Predict([]float64{2.1, 2.1, 2.1})
	require.NoError(t, err)
	assert.Equal(t, "kettle", got.Device)
	assert.Equal(t, 1.0, got.Confidence)

	_, err = NewDeviceClassifier([]DeviceSample{{Device: "bad", Sequence: []float64{1}}})
	assert.ErrorIs(t, err, ErrSequenceLength)
}
