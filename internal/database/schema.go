package database

import (
	"context"
	"fmt"

	"github.com/paiban/visitplan/pkg/logger"
)

// schema 巡店计划持久化表结构
var schema = []string{
	`CREATE TABLE IF NOT EXISTS solve_runs (
		id UUID PRIMARY KEY,
		strategy VARCHAR(16) NOT NULL,
		status VARCHAR(16) NOT NULL,
		points INTEGER NOT NULL,
		days INTEGER NOT NULL,
		visits_per_day INTEGER NOT NULL,
		solution_limit INTEGER NOT NULL,
		solutions_found INTEGER NOT NULL,
		conflicts BIGINT NOT NULL DEFAULT 0,
		branches BIGINT NOT NULL DEFAULT 0,
		wall_time_ms BIGINT NOT NULL DEFAULT 0,
		message TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS schedules (
		id UUID PRIMARY KEY,
		run_id UUID NOT NULL REFERENCES solve_runs(id) ON DELETE CASCADE,
		rank INTEGER NOT NULL,
		start_date DATE NOT NULL,
		end_date DATE NOT NULL,
		total_visits INTEGER NOT NULL,
		route_cost DOUBLE PRECISION NOT NULL,
		district_switches INTEGER NOT NULL,
		minimal_intervals JSONB NOT NULL DEFAULT '{}',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS schedule_visits (
		schedule_id UUID NOT NULL REFERENCES schedules(id) ON DELETE CASCADE,
		visit_date DATE NOT NULL,
		slot INTEGER NOT NULL,
		point_id VARCHAR(64) NOT NULL,
		address TEXT NOT NULL,
		district_main VARCHAR(64) NOT NULL,
		district_secondary VARCHAR(64) NOT NULL,
		category VARCHAR(16) NOT NULL,
		PRIMARY KEY (schedule_id, visit_date, slot)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_schedules_run_id ON schedules(run_id)`,
	`CREATE INDEX IF NOT EXISTS idx_schedule_visits_point ON schedule_visits(point_id)`,
}

// Migrate 创建表结构
func (db *DB) Migrate(ctx context.Context) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("执行建表语句 %d 失败: %w", i+1, err)
		}
	}
	logger.Info().Int("statements", len(schema)).Msg("数据库表结构已就绪")
	return nil
}
