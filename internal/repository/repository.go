// Package repository 提供数据访问层
package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
)

// Repository 通用仓储接口
type Repository[T any] interface {
	Create(ctx context.Context, entity *T) error
	GetByID(ctx context.Context, id uuid.UUID) (*T, error)
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, filter ListFilter) ([]*T, int, error)
}

// ListFilter 列表查询过滤器
type ListFilter struct {
	Strategy string `json:"strategy,omitempty"`
	Status   string `json:"status,omitempty"`
	Offset   int    `json:"offset"`
	Limit    int    `json:"limit"`
	OrderBy  string `json:"order_by,omitempty"`
	OrderDir string `json:"order_dir,omitempty"` // asc/desc
}

// DefaultListFilter 返回默认过滤器
func DefaultListFilter() ListFilter {
	return ListFilter{
		Offset:   0,
		Limit:    20,
		OrderBy:  "created_at",
		OrderDir: "desc",
	}
}

// WithLimit 设置限制
func (f ListFilter) WithLimit(limit int) ListFilter {
	f.Limit = limit
	return f
}

// WithOffset 设置偏移
func (f ListFilter) WithOffset(offset int) ListFilter {
	f.Offset = offset
	return f
}

// WithStrategy 设置求解策略过滤
func (f ListFilter) WithStrategy(strategy string) ListFilter {
	f.Strategy = strategy
	return f
}

// WithStatus 设置状态过滤
func (f ListFilter) WithStatus(status string) ListFilter {
	f.Status = status
	return f
}

// orderClause 返回白名单内的排序子句
func (f ListFilter) orderClause(allowed ...string) string {
	column := "created_at"
	for _, a := range allowed {
		if f.OrderBy == a {
			column = a
		}
	}
	dir := "DESC"
	if f.OrderDir == "asc" {
		dir = "ASC"
	}
	return column + " " + dir
}

// DB 数据库接口
type DB interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// TxBeginner 可开启事务的数据库
type TxBeginner interface {
	DB
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

// ErrNotFound 记录不存在
var ErrNotFound = errors.New("record not found")

// Scanner 行扫描接口
type Scanner interface {
	Scan(dest ...interface{}) error
}
