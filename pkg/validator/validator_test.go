package validator

import (
	"testing"
	"time"

	"github.com/paiban/visitplan/pkg/model"
)

func day(d int, visits ...*model.ServicePoint) model.DayPlan {
	return model.DayPlan{
		Date:   time.Date(2024, time.March, d, 0, 0, 0, 0, time.UTC),
		Visits: visits,
	}
}

func fixture() ([]*model.ServicePoint, model.VisitRequirement) {
	district := model.NewDistrict("North", "East")
	points := []*model.ServicePoint{
		model.NewServicePoint("A", model.CategoryHighPriority, district, ""),
		model.NewServicePoint("B", model.CategoryMediumPriority, district, ""),
	}
	return points, model.VisitRequirement{"A": 2, "B": 1}
}

func TestCheck_Valid(t *testing.T) {
	points, left := fixture()
	a, b := points[0], points[1]

	s := model.NewSchedule(model.StrategyConstraint, []model.DayPlan{
		day(1, a),
		day(4, b),
		day(6, a),
	})

	if v := Check(s, points, left, 1); len(v) != 0 {
		t.Errorf("Expected no violations, got %v", v)
	}
	if !Valid(s, points, left, 1) {
		t.Error("Expected valid schedule")
	}
}

func TestCheck_Violations(t *testing.T) {
	points, left := fixture()
	a, b := points[0], points[1]
	ghost := model.NewServicePoint("Z", model.CategoryLowPriority, model.NewDistrict("X", "Y"), "")

	tests := []struct {
		name string
		days []model.DayPlan
		want []ViolationType
	}{
		{
			name: "interval too short",
			days: []model.DayPlan{day(1, a), day(4, b), day(5, a)},
			want: []ViolationType{ViolationInterval},
		},
		{
			name: "slot count",
			days: []model.DayPlan{day(1, a, b), day(4), day(6, a)},
			want: []ViolationType{ViolationSlotCount, ViolationSlotCount},
		},
		{
			name: "duplicate in day",
			days: []model.DayPlan{day(1, a), day(4, b, b), day(6, a)},
			want: []ViolationType{ViolationSlotCount, ViolationDuplicate},
		},
		{
			name: "visit count",
			days: []model.DayPlan{day(1, a), day(4, b), day(20, b)},
			want: []ViolationType{ViolationVisitCount, ViolationVisitCount},
		},
		{
			name: "unknown point",
			days: []model.DayPlan{day(1, a), day(4, ghost), day(6, a)},
			want: []ViolationType{ViolationUnknownPoint, ViolationVisitCount},
		},
		{
			name: "date order",
			days: []model.DayPlan{day(6, a), day(4, b), day(1, a)},
			want: []ViolationType{ViolationDateOrder, ViolationDateOrder, ViolationInterval},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := model.NewSchedule(model.StrategyConstraint, tt.days)
			got := Check(s, points, left, 1)

			if len(got) != len(tt.want) {
				t.Fatalf("Expected %d violations, got %d: %v", len(tt.want), len(got), got)
			}
			for i, v := range got {
				if v.Type != tt.want[i] {
					t.Errorf("violation %d: expected %s, got %s", i, tt.want[i], v.Type)
				}
			}
		})
	}
}
