package model

import "testing"

func TestDistrict_TransitionWeight(t *testing.T) {
	tests := []struct {
		name     string
		from     District
		to       District
		expected int
	}{
		{"主区域相同", NewDistrict("A", "B"), NewDistrict("A", "C"), 0},
		{"主区域等于对方次区域", NewDistrict("A", "B"), NewDistrict("C", "A"), 1},
		{"次区域等于对方主区域", NewDistrict("A", "B"), NewDistrict("B", "C"), 1},
		{"无关联", NewDistrict("A", "B"), NewDistrict("C", "D"), 2},
		{"不区分大小写", NewDistrict("north", "B"), NewDistrict("NORTH", "C"), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.from.TransitionWeight(tt.to); got != tt.expected {
				t.Errorf("Expected %d, got %d", tt.expected, got)
			}
		})
	}
}

func TestDistrict_TransitionWeightSymmetry(t *testing.T) {
	a := NewDistrict("A", "B")
	b := NewDistrict("A", "Z")
	if a.TransitionWeight(b) != b.TransitionWeight(a) {
		t.Error("Same main district should weigh 0 in both directions")
	}

	// main==secondary 在一个方向成立时，反方向通过 secondary==main 命中
	c := NewDistrict("C", "A")
	if a.TransitionWeight(c) != 1 || c.TransitionWeight(a) != 1 {
		t.Errorf("Expected 1/1, got %d/%d", a.TransitionWeight(c), c.TransitionWeight(a))
	}
}
