package transform

import (
	"fmt"
	"sort"
)

// OneHotEncoder encodes categorical values as binary vectors, one column
// per category observed at fit time, in sorted category order. Values not
// seen at fit time encode to an all-zero vector.
type OneHotEncoder struct {
	categories []string
	index      map[string]int
}

// Fit records the distinct categories of values in deterministic order.
func (e *OneHotEncoder) Fit(values []string) error {
	if len(values) == 0 {
		return fmt.Errorf("cannot fit one-hot encoder: column is empty")
	}
	seen := make(map[string]bool)
	for _, v := range values {
		seen[v] = true
	}
	e.categories = make([]string, 0, len(seen))
	for v := range seen {
		e.categories = append(e.categories, v)
	}
	sort.Strings(e.categories)

	e.index = make(map[string]int, len(e.categories))
	for i, v := range e.categories {
		e.index[v] = i
	}
	return nil
}

// Transform encodes values as an n x k binary matrix, k being the fitted
// vocabulary size.
func (e *OneHotEncoder) Transform(values []string) ([][]float64, error) {
	if e.index == nil {
		return nil, fmt.Errorf("one-hot encoder used before Fit")
	}
	out := make([][]float64, len(values))
	for i, v := range values {
		row := make([]float64, len(e.categories))
		if j, ok := e.index[v]; ok {
			row[j] = 1
		}
		out[i] = row
	}
	return out, nil
}

// Categories returns the fitted vocabulary in encoding order.
func (e *OneHotEncoder) Categories() []string {
	return e.categories
}
