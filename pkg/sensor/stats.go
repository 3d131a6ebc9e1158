package sensor

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// axisStats summarises one axis of a capture record.
type axisStats struct {
	RMS     float64
	Peak    float64
	PeakRaw int16
}

func summarize(raw []int16, scale func(int16) float64) axisStats {
	if len(raw) == 0 {
		return axisStats{}
	}
	v := make([]float64, len(raw))
	for i, r := range raw {
		v[i] = math.Abs(scale(r))
	}
	idx := floats.MaxIdx(v)
	return axisStats{
		RMS:     floats.Norm(v, 2) / math.Sqrt(float64(len(v))),
		Peak:    v[idx],
		PeakRaw: raw[idx],
	}
}
