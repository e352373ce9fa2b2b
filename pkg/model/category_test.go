package model

import (
	"testing"
	"time"
)

func TestCategory_MinimalInterval(t *testing.T) {
	tests := []struct {
		category Category
		expected int
	}{
		{CategoryHighPriority, 5},
		{CategoryMediumPriority, 9},
		{CategoryLowPriority, 14},
	}

	for _, tt := range tests {
		t.Run(tt.category.String(), func(t *testing.T) {
			got, err := tt.category.MinimalInterval()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.expected {
				t.Errorf("Expected %d, got %d", tt.expected, got)
			}
		})
	}
}

func TestCategory_MinimalIntervalInvalid(t *testing.T) {
	if _, err := Category(0).MinimalInterval(); err == nil {
		t.Error("Expected error for zero category")
	}
	if _, err := Category(42).MinimalInterval(); err == nil {
		t.Error("Expected error for unknown category")
	}

	defer func() {
		if recover() == nil {
			t.Error("MustMinimalInterval should panic on invalid category")
		}
	}()
	Category(7).MustMinimalInterval()
}

func TestParseCategory(t *testing.T) {
	tests := []struct {
		input    string
		expected Category
		wantErr  bool
	}{
		{"HighPriority", CategoryHighPriority, false},
		{"highpriority", CategoryHighPriority, false},
		{"MEDIUMPRIORITY", CategoryMediumPriority, false},
		{" LowPriority ", CategoryLowPriority, false},
		{"Urgent", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseCategory(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("Expected error for %q", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.expected {
				t.Errorf("Expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestCategory_NextVisitDate(t *testing.T) {
	// 2023-04-18 周二 + 5 = 2023-04-23 周日 -> 顺延到 2023-04-24 周一
	last := time.Date(2023, 4, 18, 0, 0, 0, 0, time.UTC)
	next, err := CategoryHighPriority.NextVisitDate(last)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expected := time.Date(2023, 4, 24, 0, 0, 0, 0, time.UTC)
	if !next.Equal(expected) {
		t.Errorf("Expected %s, got %s", expected.Format(DateLayout), next.Format(DateLayout))
	}

	// 2023-04-18 + 9 = 2023-04-27 周四，不需要顺延
	next, _ = CategoryMediumPriority.NextVisitDate(last)
	if next.Format(DateLayout) != "2023-04-27" {
		t.Errorf("Expected 2023-04-27, got %s", next.Format(DateLayout))
	}
}

func TestCategory_TextRoundTrip(t *testing.T) {
	var c Category
	if err := c.UnmarshalText([]byte("lowpriority")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	text, err := c.MarshalText()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(text) != "LowPriority" {
		t.Errorf("Expected LowPriority, got %s", text)
	}
}
