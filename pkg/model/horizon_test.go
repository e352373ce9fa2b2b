package model

import (
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestNewHorizon(t *testing.T) {
	h, err := NewHorizon([]time.Time{date(2023, 4, 18), date(2023, 4, 19), date(2023, 5, 2)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	offsets := h.Offsets()
	expected := []int{0, 1, 14}
	for i := range expected {
		if offsets[i] != expected[i] {
			t.Errorf("offset[%d]: expected %d, got %d", i, expected[i], offsets[i])
		}
	}
}

func TestNewHorizon_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		dates []time.Time
	}{
		{"空序列", nil},
		{"重复日期", []time.Time{date(2023, 4, 18), date(2023, 4, 18)}},
		{"乱序", []time.Time{date(2023, 4, 19), date(2023, 4, 18)}},
		{"跨年", []time.Time{date(2023, 12, 29), date(2024, 1, 2)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewHorizon(tt.dates); err == nil {
				t.Error("Expected error")
			}
		})
	}
}

func TestParseHorizon(t *testing.T) {
	h, err := ParseHorizon([]string{"2023-06-13", "2023-06-14"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h.Len() != 2 {
		t.Errorf("Expected 2 days, got %d", h.Len())
	}
	if h[1].Format(DateLayout) != "2023-06-14" {
		t.Errorf("Expected 2023-06-14, got %s", h[1].Format(DateLayout))
	}

	if _, err := ParseHorizon([]string{"13/06/2023"}); err == nil {
		t.Error("Expected error for invalid date format")
	}
}
