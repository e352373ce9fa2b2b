package repository

import (
	"context"
	"fmt"

	"github.com/paiban/visitplan/pkg/logger"
	"github.com/paiban/visitplan/pkg/scheduler/solver"
	"github.com/paiban/visitplan/pkg/stats"
)

// Store 在一个事务中保存完整的求解结果
type Store struct {
	db TxBeginner
}

// NewStore 创建结果存储
func NewStore(db TxBeginner) *Store {
	return &Store{db: db}
}

// SaveResult 保存运行记录、按路线成本排序的方案及其访问明细
func (s *Store) SaveResult(ctx context.Context, req *solver.Request, res *solver.Result) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("开始事务失败: %w", err)
	}
	defer tx.Rollback()

	runs := NewSolveRunRepository(tx)
	schedules := NewScheduleRepository(tx)

	if err := runs.Create(ctx, NewSolveRun(req, res)); err != nil {
		return err
	}

	byID := make(map[string]int, len(res.Schedules))
	for i, sch := range res.Schedules {
		byID[sch.ID.String()] = i
	}
	for rank, report := range stats.Rank(res.Schedules) {
		sch := res.Schedules[byID[report.ScheduleID.String()]]
		if err := schedules.Create(ctx, NewScheduleRecord(res.RunID, rank+1, sch, report)); err != nil {
			return err
		}
		if err := schedules.CreateVisits(ctx, sch.ID, sch); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("事务提交失败: %w", err)
	}

	logger.Info().
		Str("run_id", res.RunID.String()).
		Int("schedules", len(res.Schedules)).
		Msg("求解结果已保存")
	return nil
}
