package utils

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidThreshold is returned for similarity thresholds outside [0,1]
var ErrInvalidThreshold = errors.New("threshold must be between 0.0 and 1.0")

// ValidateThreshold checks that a normalized distance threshold lies in [0,1]
func ValidateThreshold(threshold float64) error {
	if threshold < 0 || threshold > 1 {
		return fmt.Errorf("%w: got %v", ErrInvalidThreshold, threshold)
	}
	return nil
}

// ParseThreshold parses a threshold given either as a fraction ("0.08") or
// as a percentage ("8%").
func ParseThreshold(thresholdStr string) (float64, error) {
	s := strings.TrimSpace(thresholdStr)
	percent := strings.HasSuffix(s, "%")
	s = strings.TrimSuffix(s, "%")

	parsed, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidThreshold, thresholdStr)
	}
	if percent {
		parsed /= 100
	}
	if err := ValidateThreshold(parsed); err != nil {
		return 0, err
	}
	return parsed, nil
}
