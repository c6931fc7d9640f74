package transform

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// StandardScaler standardizes values by subtracting the fit-data mean and
// dividing by the fit-data standard deviation.
type StandardScaler struct {
	mean   float64
	stddev float64
	fitted bool
}

// Fit computes mean and population standard deviation over xs. A constant
// column gets a unit scale so transformed values are zero rather than a
// division by zero.
func (s *StandardScaler) Fit(xs []float64) error {
	if len(xs) == 0 {
		return fmt.Errorf("cannot fit scaler: column is empty")
	}
	s.mean = stat.Mean(xs, nil)

	var sq float64
	for _, v := range xs {
		d := v - s.mean
		sq += d * d
	}
	s.stddev = math.Sqrt(sq / float64(len(xs)))
	if s.stddev == 0 {
		s.stddev = 1
	}
	s.fitted = true
	return nil
}

// Transform returns a standardized copy of xs using the fitted statistics.
func (s *StandardScaler) Transform(xs []float64) ([]float64, error) {
	if !s.fitted {
		return nil, fmt.Errorf("scaler used before Fit")
	}
	out := make([]float64, len(xs))
	for i, v := range xs {
		out[i] = (v - s.mean) / s.stddev
	}
	return out, nil
}

// Mean returns the fitted mean.
func (s *StandardScaler) Mean() float64 {
	return s.mean
}

// StdDev returns the fitted standard deviation.
func (s *StandardScaler) StdDev() float64 {
	return s.stddev
}
