package predict

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// SequenceLength is the number of power readings (kW) a detection takes.
const SequenceLength = 3

var (
	ErrSequenceLength = fmt.Errorf("power sequence must have exactly %d readings", SequenceLength)
	ErrNegativePower  = errors.New("power readings cannot be negative")
)

type DeviceSample struct {
	Device   string
	Sequence []float64
}

var DefaultDeviceSamples = []DeviceSample{
	{Device: "fridge", Sequence: []float64{0.2, 0.3, 0.1}},
	{Device: "TV", Sequence: []float64{0.8, 1.0, 0.9}},
	{Device: "irrigation", Sequence: []float64{1.5, 1.7, 1.6}},
}

type DeviceDetection struct {
	Device     string  `json:"device"`
	Confidence float64 `json:"confidence"`
}

// DeviceClassifier matches a power signature to the nearest device centroid.
type DeviceClassifier struct {
	devices   []string
	centroids [][]float64
}

func NewDeviceClassifier(samples []DeviceSample) (*DeviceClassifier, error) {
	if len(samples) == 0 {
		return nil, errors.New("device classifier needs training samples")
	}

	sums := make(map[string][]float64)
	counts := make(map[string]float64)
	var order []string
	for _, s := range samples {
		if len(s.Sequence) != SequenceLength {
			return nil, fmt.Errorf("sample %q: %w", s.Device, ErrSequenceLength)
		}
		if _, ok := sums[s.Device]; !ok {
			sums[s.Device] = make([]float64, SequenceLength)
			order = append(order, s.Device)
		}
		floats.Add(sums[s.Device], s.Sequence)
		counts[s.Device]++
	}

	c := &DeviceClassifier{}
	for _, device := range order {
		centroid := sums[device]
		floats.Scale(1/counts[device], centroid)
		c.devices = append(c.devices, device)
		c.centroids = append(c.centroids, centroid)
	}
	return c, nil
}

// Predict returns the closest device. Confidence is its share of the inverse
// distances to every centroid; an exact match scores 1.
func (c *DeviceClassifier) Predict(sequence []float64) (*DeviceDetection, error) {
	if len(sequence) != SequenceLength {
		return nil, ErrSequenceLength
	}
	if floats.Min(sequence) < 0 {
		return nil, ErrNegativePower
	}

	best := 0
	dists := make([]float64, len(c.centroids))
	for i, centroid := range c.centroids {
		dists[i] = floats.Distance(sequence, centroid, 2)
		if dists[i] < dists[best] {
			best = i
		}
	}
	if dists[best] == 0 {
		return &DeviceDetection{Device: c.devices[best], Confidence: 1}, nil
	}

	var total float64
	for _, d := range dists {
		total += 1 / d
	}
	confidence := (1 / dists[best]) / total
	return &DeviceDetection{
		Device:     c.devices[best],
		Confidence: math.Round(confidence*100) / 100,
	}, nil
}
