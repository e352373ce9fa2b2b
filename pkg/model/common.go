// Package model 定义巡店排程的核心数据模型
package model

import (
	"time"

	"github.com/google/uuid"
)

// StrategyType 排程策略类型
type StrategyType string

const (
	StrategyConstraint StrategyType = "cp"     // 约束求解（生产路径）
	StrategyFiller     StrategyType = "filler" // 随机贪心填充（旧版）
)

// BaseModel 基础模型（包含通用字段）
type BaseModel struct {
	ID        uuid.UUID `json:"id" db:"id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// NewBaseModel 创建新的基础模型
func NewBaseModel() BaseModel {
	return BaseModel{
		ID:        uuid.New(),
		CreatedAt: time.Now(),
	}
}
