package units

import (
	"errors"
	"testing"
)

func TestParseSize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  float64
	}{
		{"bytes", "10B", 10},
		{"zero bytes", "0B", 0},
		{"kilobytes", "10KB", 10 * 1024},
		{"megabytes", "3MB", 3 * 1024 * 1024},
		{"gigabytes", "2GB", 2 * 1024 * 1024 * 1024},
		{"fractional", "1.5KB", 1536},
		{"leading dot", ".5MB", 512 * 1024},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSize(tt.input)
			if err != nil {
				t.Fatalf("ParseSize(%q) unexpected error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseSize(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseSizeRejects(t *testing.T) {
	inputs := []string{
		"",
		"10",
		"B",
		"KB",
		"abcMB",
		"-1KB",
		"10kb",
		"10 TB",
		"NaNB",
		"InfGB",
		"10MiB",
		"0x1p4B",
		"1e3KB",
		"+5MB",
		"1_0B",
		".B",
	}

	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			_, err := ParseSize(in)
			if err == nil {
				t.Fatalf("ParseSize(%q) expected error, got nil", in)
			}
			if !errors.Is(err, ErrInvalidSize) {
				t.Errorf("ParseSize(%q) error %v does not wrap ErrInvalidSize", in, err)
			}
		})
	}
}
