package auth

import (
	"errors"
	"testing"
)

func TestNormalizeMobile(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"9876543210", "9876543210"},
		{"  9876543210  ", "9876543210"},
		{"+91 98765 43210", "9876543210"},
		{"919876543210", "9876543210"},
		{"09876543210", "9876543210"},
		{"98765-43210", "9876543210"},
		{"(987) 654-3210", "9876543210"},
	}
	for _, tc := range cases {
		got, err := NormalizeMobile(tc.in)
		if err != nil {
			t.Fatalf("NormalizeMobile(%q): %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("NormalizeMobile(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNormalizeMobile_Invalid(t *testing.T) {
	cases := []string{
		"",
		"12345",
		"98765432101234",
		"98765abc10",
		"9876543210x",
		"989876543210", // 12 digits without the country prefix
	}
	for _, in := range cases {
		if _, err := NormalizeMobile(in); !errors.Is(err, ErrInvalidMobile) {
			t.Fatalf("NormalizeMobile(%q): expected ErrInvalidMobile, got %v", in, err)
		}
	}
}
