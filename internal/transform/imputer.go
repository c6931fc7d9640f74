package transform

import (
	"fmt"
	"math"
	"sort"
)

// MedianImputer replaces missing (NaN) values with the median of the
// non-missing values seen at fit time.
type MedianImputer struct {
	median float64
	fitted bool
}

// Fit computes the median over the non-missing values of xs.
func (m *MedianImputer) Fit(xs []float64) error {
	present := make([]float64, 0, len(xs))
	for _, v := range xs {
		if !math.IsNaN(v) {
			present = append(present, v)
		}
	}
	if len(present) == 0 {
		return fmt.Errorf("cannot fit median imputer: column has no non-missing values")
	}
	sort.Float64s(present)
	n := len(present)
	if n%2 == 1 {
		m.median = present[n/2]
	} else {
		m.median = (present[n/2-1] + present[n/2]) / 2
	}
	m.fitted = true
	return nil
}

// Transform returns a copy of xs with NaN values replaced by the fitted
// median.
func (m *MedianImputer) Transform(xs []float64) ([]float64, error) {
	if !m.fitted {
		return nil, fmt.Errorf("median imputer used before Fit")
	}
	out := make([]float64, len(xs))
	for i, v := range xs {
		if math.IsNaN(v) {
			out[i] = m.median
			continue
		}
		out[i] = v
	}
	return out, nil
}

// Median returns the fitted fill value.
func (m *MedianImputer) Median() float64 {
	return m.median
}

// ConstantImputer replaces missing (empty) categorical values with a fixed
// placeholder.
type ConstantImputer struct {
	Fill string
}

// Transform returns a copy of values with empty strings replaced by the
// fill placeholder. ConstantImputer is stateless; there is nothing to fit.
func (c ConstantImputer) Transform(values []string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		if v == "" {
			out[i] = c.Fill
			continue
		}
		out[i] = v
	}
	return out
}
