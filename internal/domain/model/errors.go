package model

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidProbability rejects readings outside [0, 1] (including NaN
// and infinities) at the ingestion boundary, before any store write.
var ErrInvalidProbability = errors.New("probability must be in [0, 1]")

// ValidateProbability checks a probability reading.
func ValidateProbability(p float64) error {
	if math.IsNaN(p) || math.IsInf(p, 0) || p < 0 || p > 1 {
		return fmt.Errorf("%w: %v", ErrInvalidProbability, p)
	}
	return nil
}
