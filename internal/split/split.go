// Package split shuffles transformed rows and partitions them into train,
// validation, and test blocks by fixed ratios.
package split

import (
	"fmt"
	"log/slog"
	"math/rand"
	"time"
)

// DefaultTrainRatio and DefaultValidationRatio are the fixed 70/15/15
// partition cut points; the test block takes the remainder.
const (
	DefaultTrainRatio      = 0.7
	DefaultValidationRatio = 0.15
)

// Splitter partitions a matrix of rows after an optional shuffle.
type Splitter struct {
	TrainRatio      float64
	ValidationRatio float64

	// Rand overrides the shuffle source; nil means a time-seeded source,
	// so row order is non-deterministic across runs.
	Rand *rand.Rand

	// DisableShuffle keeps the input row order. Test hook only.
	DisableShuffle bool
}

// Result holds the three disjoint partitions covering the input exactly.
type Result struct {
	Train      [][]float64
	Validation [][]float64
	Test       [][]float64
}

// New returns a Splitter with the default 70/15/15 ratios.
func New() *Splitter {
	return &Splitter{
		TrainRatio:      DefaultTrainRatio,
		ValidationRatio: DefaultValidationRatio,
	}
}

// Split shuffles rows in place and cuts them into three contiguous blocks
// at floor(trainRatio*n) and floor((trainRatio+validationRatio)*n). Every
// input row lands in exactly one partition.
func (s *Splitter) Split(log *slog.Logger, rows [][]float64) (*Result, error) {
	if s.TrainRatio <= 0 || s.ValidationRatio < 0 || s.TrainRatio+s.ValidationRatio > 1 {
		return nil, fmt.Errorf("invalid split ratios: train=%v validation=%v", s.TrainRatio, s.ValidationRatio)
	}

	if !s.DisableShuffle {
		r := s.Rand
		if r == nil {
			r = rand.New(rand.NewSource(time.Now().UnixNano()))
		}
		r.Shuffle(len(rows), func(i, j int) {
			rows[i], rows[j] = rows[j], rows[i]
		})
	}

	n := len(rows)
	trainEnd := int(s.TrainRatio * float64(n))
	validationEnd := int((s.TrainRatio + s.ValidationRatio) * float64(n))

	result := &Result{
		Train:      rows[:trainEnd],
		Validation: rows[trainEnd:validationEnd],
		Test:       rows[validationEnd:],
	}

	log.Info("Split rows into partitions",
		slog.Int("total", n),
		slog.Int("train", len(result.Train)),
		slog.Int("validation", len(result.Validation)),
		slog.Int("test", len(result.Test)))

	return result, nil
}
