package stats

import (
	"context"
	"sync"

	"github.com/paiban/visitplan/pkg/model"
)

// ParallelEvaluator 并行评估器
type ParallelEvaluator struct {
	workers int
}

// NewParallelEvaluator 创建并行评估器
func NewParallelEvaluator(workers int) *ParallelEvaluator {
	if workers <= 0 {
		workers = 4
	}
	return &ParallelEvaluator{workers: workers}
}

type evalJob struct {
	index    int
	schedule *model.Schedule
}

// EvaluateBatch 并行评估一批方案，结果顺序与输入一致
func (p *ParallelEvaluator) EvaluateBatch(ctx context.Context, schedules []*model.Schedule) ([]*Report, error) {
	reports := make([]*Report, len(schedules))
	if len(schedules) == 0 {
		return reports, nil
	}

	jobs := make(chan evalJob)

	// 启动工作协程，每个协程只写自己任务的下标
	var wg sync.WaitGroup
	for i := 0; i < min(p.workers, len(schedules)); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				reports[job.index] = Evaluate(job.schedule)
			}
		}()
	}

	// 发送任务
	var err error
	for i, s := range schedules {
		if err = ctx.Err(); err != nil {
			break
		}
		select {
		case <-ctx.Done():
			err = ctx.Err()
		case jobs <- evalJob{index: i, schedule: s}:
		}
		if err != nil {
			break
		}
	}
	close(jobs)
	wg.Wait()

	if err != nil {
		return nil, err
	}
	return reports, nil
}

// Rank 并行评估后按路线成本排序，规则同包级 Rank
func (p *ParallelEvaluator) Rank(ctx context.Context, schedules []*model.Schedule) ([]*Report, error) {
	reports, err := p.EvaluateBatch(ctx, schedules)
	if err != nil {
		return nil, err
	}
	sortReports(reports)
	return reports, nil
}
