// Package predict holds the energy helpers: usage peak analysis, solar
// output regression and appliance detection.
package predict

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"gonum.org/v1/gonum/stat"
)

var ErrNoReadings = errors.New("no usage readings")

type Reading struct {
	Timestamp time.Time `json:"timestamp" binding:"required"`
	UsageKWh  float64   `json:"usageKwh"`
}

type HourlyUsage struct {
	Hour       int     `json:"hour"`
	AverageKWh float64 `json:"averageKwh"`
}

type UsageAnalysis struct {
	PeakUsageHour  int           `json:"peakUsageHour"`
	LowUsageHour   int           `json:"lowUsageHour"`
	Recommendation string        `json:"recommendation"`
	Hourly         []HourlyUsage `json:"hourly"`
}

// AnalyzeUsage averages consumption per hour of day and reports the busiest
// and quietest hours. Ties go to the earlier hour.
func AnalyzeUsage(readings []Reading) (*UsageAnalysis, error) {
	if len(readings) == 0 {
		return nil, ErrNoReadings
	}

	var byHour [24][]float64
	for _, r := range readings {
		if r.UsageKWh < 0 {
			return nil, fmt.Errorf("negative usage %.3f at %s", r.UsageKWh, r.Timestamp.Format(time.RFC3339))
		}
		h := r.Timestamp.Hour()
		byHour[h] = append(byHour[h], r.UsageKWh)
	}

	analysis := &UsageAnalysis{PeakUsageHour: -1, LowUsageHour: -1}
	var peak, low float64
	for hour, values := range byHour {
		if len(values) == 0 {
			continue
		}
		mean := stat.Mean(values, nil)
		analysis.Hourly = append(analysis.Hourly, HourlyUsage{Hour: hour, AverageKWh: mean})
		if analysis.PeakUsageHour < 0 || mean > peak {
			analysis.PeakUsageHour, peak = hour, mean
		}
		if analysis.LowUsageHour < 0 || mean < low {
			analysis.LowUsageHour, low = hour, mean
		}
	}
	analysis.Recommendation = fmt.Sprintf("Consider using power around %d:00 when demand is lowest.", analysis.LowUsageHour)
	return analysis, nil
}

var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
}

// ReadUsageCSV parses a CSV with a header containing timestamp and
// usage_kwh columns.
func ReadUsageCSV(r io.Reader) ([]Reading, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read usage header: %w", err)
	}
	tsCol, usageCol := -1, -1
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "timestamp":
			tsCol = i
		case "usage_kwh":
			usageCol = i
		}
	}
	if tsCol < 0 || usageCol < 0 {
		return nil, errors.New("usage csv needs timestamp and usage_kwh columns")
	}

	var readings []Reading
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read usage line %d: %w", line, err)
		}
		ts, err := parseTimestamp(record[tsCol])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		usage, err := strconv.ParseFloat(strings.TrimSpace(record[usageCol]), 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid usage %q", line, record[usageCol])
		}
		readings = append(readings, Reading{Timestamp: ts, UsageKWh: usage})
	}
	return readings, nil
}

func parseTimestamp(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", value)
}
