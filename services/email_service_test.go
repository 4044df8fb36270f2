package services

import (
	"testing"
	"time"
)

func TestFormatPrice(t *testing.T) {
	cases := map[float64]string{
		152.3:    "$152.30",
		100:      "$100.00",
		0.005:    "$0.01",
		1234.567: "$1234.57",
	}
	for price, want := range cases {
		if got := FormatPrice(price); got != want {
			t.Errorf("FormatPrice(%v) = %q, want %q", price, got, want)
		}
	}
}

func TestFormatAlertTimestamp(t *testing.T) {
	at := time.Date(2026, time.March, 5, 14, 30, 0, 0, time.UTC)
	if got := FormatAlertTimestamp(at); got != "Mar 5, 2026 2:30 PM" {
		t.Errorf("Unexpected timestamp format: %q", got)
	}
}
