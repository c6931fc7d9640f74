package transform

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMedianImputerFillsMissing(t *testing.T) {
	// Median computed over non-missing values only.
	m := &MedianImputer{}
	require.NoError(t, m.Fit([]float64{1, 2, math.NaN(), 3}))
	require.Equal(t, 2.0, m.Median())

	out, err := m.Transform([]float64{math.NaN(), 5, math.NaN()})
	require.NoError(t, err)
	require.Equal(t, []float64{2, 5, 2}, out)
}

func TestMedianImputerEvenCount(t *testing.T) {
	m := &MedianImputer{}
	require.NoError(t, m.Fit([]float64{1, 2, 3, 4}))
	require.Equal(t, 2.5, m.Median())
}

func TestMedianImputerUnsortedInput(t *testing.T) {
	m := &MedianImputer{}
	require.NoError(t, m.Fit([]float64{9, 1, 5}))
	require.Equal(t, 5.0, m.Median())
}

func TestMedianImputerAllMissing(t *testing.T) {
	m := &MedianImputer{}
	err := m.Fit([]float64{math.NaN(), math.NaN()})
	require.Error(t, err)
	require.Contains(t, err.Error(), "no non-missing values")
}

func TestMedianImputerUnfitted(t *testing.T) {
	m := &MedianImputer{}
	_, err := m.Transform([]float64{1})
	require.Error(t, err)
}

func TestMedianImputerDoesNotMutateInput(t *testing.T) {
	m := &MedianImputer{}
	require.NoError(t, m.Fit([]float64{1, 2, 3}))

	in := []float64{math.NaN(), 1}
	_, err := m.Transform(in)
	require.NoError(t, err)
	require.True(t, math.IsNaN(in[0]))
}

func TestConstantImputer(t *testing.T) {
	c := ConstantImputer{Fill: "missing"}
	out := c.Transform([]string{"M", "", "F"})
	require.Equal(t, []string{"M", "missing", "F"}, out)
}
