// Package units converts human size strings such as "10MB" into byte counts.
package units

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

const (
	KB = 1024
	MB = 1024 * KB
	GB = 1024 * MB
)

// ErrInvalidSize is returned for any string ParseSize cannot interpret.
var ErrInvalidSize = errors.New("invalid size")

// Multi-letter units come first so "10KB" is never read as "10K" bytes.
var suffixes = []struct {
	unit       string
	multiplier float64
}{
	{"KB", KB},
	{"MB", MB},
	{"GB", GB},
	{"B", 1},
}

// ParseSize converts strings like "512B", "1.5KB", "10MB" or "2GB" to bytes.
// Units are case-sensitive and the numeric prefix must be a non-negative decimal.
func ParseSize(s string) (float64, error) {
	if s == "" {
		return 0, fmt.Errorf("%w: empty string", ErrInvalidSize)
	}

	for _, sfx := range suffixes {
		if !strings.HasSuffix(s, sfx.unit) {
			continue
		}
		prefix := strings.TrimSuffix(s, sfx.unit)
		if prefix == "" {
			return 0, fmt.Errorf("%w: %q has no number", ErrInvalidSize, s)
		}
		if strings.Trim(prefix, "0123456789.") != "" {
			return 0, fmt.Errorf("%w: %q is not a plain decimal number", ErrInvalidSize, s)
		}
		n, err := strconv.ParseFloat(prefix, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q: %v", ErrInvalidSize, s, err)
		}
		if math.IsInf(n, 0) {
			return 0, fmt.Errorf("%w: %q is out of range", ErrInvalidSize, s)
		}
		return n * sfx.multiplier, nil
	}

	return 0, fmt.Errorf("%w: %q has no unit", ErrInvalidSize, s)
}

// Hint describes the accepted format for use in error messages.
func Hint() string {
	return "Valid file size strings are: xxB, xxKB, xxMB, xxGB. xx represents a decimal number."
}
