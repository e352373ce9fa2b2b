package solver

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paiban/visitplan/pkg/cpsat"
	"github.com/paiban/visitplan/pkg/model"
	"github.com/paiban/visitplan/pkg/scheduler/constraint"
)

func TestFillerSolver_Success(t *testing.T) {
	req := &Request{
		Points:        points(model.CategoryHighPriority, "A", "B", "C"),
		Horizon:       horizon(t, 1, 2, 3),
		VisitsLeft:    model.VisitRequirement{"A": 1, "B": 1, "C": 1},
		VisitsPerDay:  1,
		SolutionLimit: 2,
	}
	s := NewFillerSolver(10, 42)

	res, err := s.Solve(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, "FillerSolver", s.Name())
	assert.Equal(t, cpsat.StatusFeasible, res.Status)
	assert.Equal(t, model.StrategyFiller, res.Strategy)
	assert.Equal(t, 2, res.Statistics.Attempts)
	require.Len(t, res.Schedules, 2)
	for _, sch := range res.Schedules {
		assertScheduleValid(t, sch, req)
	}
	assert.Nil(t, s.BestPartial())
}

func TestFillerSolver_Deterministic(t *testing.T) {
	req := &Request{
		Points:       points(model.CategoryHighPriority, "A", "B", "C", "D"),
		Horizon:      horizon(t, 1, 2),
		VisitsLeft:   model.VisitRequirement{"A": 1, "B": 1, "C": 1, "D": 1},
		VisitsPerDay: 2,
	}

	a, err := NewFillerSolver(5, 7).Solve(context.Background(), req)
	require.NoError(t, err)
	b, err := NewFillerSolver(5, 7).Solve(context.Background(), req)
	require.NoError(t, err)

	require.Equal(t, len(a.Schedules), len(b.Schedules))
	for i := range a.Schedules {
		assert.Equal(t, signature(a.Schedules[i]), signature(b.Schedules[i]))
	}
}

func TestFillerSolver_KeepsBestPartial(t *testing.T) {
	req := &Request{
		Points:       points(model.CategoryLowPriority, "A"),
		Horizon:      horizon(t, 1, 2),
		VisitsLeft:   model.VisitRequirement{"A": 2},
		VisitsPerDay: 1,
	}
	s := NewFillerSolver(3, 1)

	res, err := s.Solve(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, cpsat.StatusUnknown, res.Status)
	assert.Empty(t, res.Schedules)
	assert.Equal(t, 3, res.Statistics.Attempts)

	best := s.BestPartial()
	require.NotNil(t, best)
	require.Len(t, best.Days, 1)
	assert.Equal(t, "A", best.Days[0].Visits[0].ID)
}

func TestFillerSolver_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := NewFillerSolver(3, 1).Solve(ctx, spacedRequest(t))
	require.NoError(t, err)
	assert.Equal(t, cpsat.StatusUnknown, res.Status)
	assert.Zero(t, res.Statistics.Attempts)
}

func TestFillerSolver_ImplementsSolver(t *testing.T) {
	var _ Solver = NewFillerSolver(1, 1)
	var _ Solver = NewCPSolver(constraint.DefaultOptions())
}
