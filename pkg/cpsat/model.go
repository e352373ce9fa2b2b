// Package cpsat 提供有界整数约束求解引擎
//
// 模型由有界整数变量和带执行文字（enforcement literal）的线性约束组成，
// 求解器以边界传播 + 深度优先搜索的方式枚举可行解，
// 每找到一个解就同步调用一次回调。
package cpsat

import (
	"fmt"
)

// bound 表示无界的哨兵值，足够大且相减不会溢出
const bound = 1 << 40

// IntVar 整数变量句柄
type IntVar struct {
	index int
}

// Index 返回变量在模型中的序号
func (v IntVar) Index() int {
	return v.index
}

// Term 线性项 coef * var
type Term struct {
	Var  IntVar
	Coef int
}

// LinearExpr 线性表达式
type LinearExpr struct {
	Terms []Term
}

// Sum 构造变量之和
func Sum(vars ...IntVar) LinearExpr {
	terms := make([]Term, len(vars))
	for i, v := range vars {
		terms[i] = Term{Var: v, Coef: 1}
	}
	return LinearExpr{Terms: terms}
}

// Diff 构造 a - b
func Diff(a, b IntVar) LinearExpr {
	return LinearExpr{Terms: []Term{{Var: a, Coef: 1}, {Var: b, Coef: -1}}}
}

// Plus 追加一项
func (e LinearExpr) Plus(v IntVar, coef int) LinearExpr {
	terms := make([]Term, len(e.Terms), len(e.Terms)+1)
	copy(terms, e.Terms)
	return LinearExpr{Terms: append(terms, Term{Var: v, Coef: coef})}
}

// Constraint 线性约束 lo <= Σ coef*var <= hi，
// 仅当所有执行文字取值为1时生效
type Constraint struct {
	terms   []Term
	lo, hi  int
	enforce []int
}

// OnlyEnforceIf 设置执行文字（必须是布尔变量）
func (c *Constraint) OnlyEnforceIf(lits ...IntVar) *Constraint {
	for _, l := range lits {
		c.enforce = append(c.enforce, l.index)
	}
	return c
}

// SearchStrategy 搜索策略：按给定顺序分支，取值方向由 SelectMax 决定
// 出现在搜索策略中的变量称为决策变量
type SearchStrategy struct {
	Vars      []IntVar
	SelectMax bool
}

// Decision 一次分支：左分支把 Var 固定为上界（SelectMax）或下界，右分支排除该值
type Decision struct {
	Var       IntVar
	SelectMax bool
}

// Domains 搜索过程中变量的当前取值范围
type Domains interface {
	Min(v IntVar) int
	Max(v IntVar) int
}

// DecisionFunc 按当前取值范围动态选择下一个决策变量，
// 返回 false 时按搜索策略的静态顺序继续
type DecisionFunc func(dom Domains) (Decision, bool)

// Model 约束模型
type Model struct {
	names       []string
	lo, hi      []int
	constraints []*Constraint
	strategies  []SearchStrategy
	decide      DecisionFunc
}

// NewModel 创建空模型
func NewModel() *Model {
	return &Model{}
}

// NewIntVar 创建取值范围为 [lo, hi] 的整数变量
func (m *Model) NewIntVar(lo, hi int, name string) IntVar {
	m.names = append(m.names, name)
	m.lo = append(m.lo, lo)
	m.hi = append(m.hi, hi)
	return IntVar{index: len(m.names) - 1}
}

// NewBoolVar 创建布尔变量
func (m *Model) NewBoolVar(name string) IntVar {
	return m.NewIntVar(0, 1, name)
}

// Bounds 返回变量初始取值范围
func (m *Model) Bounds(v IntVar) (int, int) {
	return m.lo[v.index], m.hi[v.index]
}

// AddLinear 添加 lo <= expr <= hi
func (m *Model) AddLinear(expr LinearExpr, lo, hi int) *Constraint {
	c := &Constraint{terms: expr.Terms, lo: lo, hi: hi}
	m.constraints = append(m.constraints, c)
	return c
}

// AddLessOrEqual 添加 expr <= k
func (m *Model) AddLessOrEqual(expr LinearExpr, k int) *Constraint {
	return m.AddLinear(expr, -bound, k)
}

// AddGreaterOrEqual 添加 expr >= k
func (m *Model) AddGreaterOrEqual(expr LinearExpr, k int) *Constraint {
	return m.AddLinear(expr, k, bound)
}

// AddEquality 添加 expr == k
func (m *Model) AddEquality(expr LinearExpr, k int) *Constraint {
	return m.AddLinear(expr, k, k)
}

// AddDecisionStrategy 指定优先分支的变量及取值方向
func (m *Model) AddDecisionStrategy(vars []IntVar, selectMax bool) {
	m.strategies = append(m.strategies, SearchStrategy{Vars: vars, SelectMax: selectMax})
}

// SetDecisionFunc 设置动态分支函数，只应返回决策变量
func (m *Model) SetDecisionFunc(f DecisionFunc) {
	m.decide = f
}

// NumVariables 返回变量数
func (m *Model) NumVariables() int {
	return len(m.names)
}

// NumConstraints 返回约束数
func (m *Model) NumConstraints() int {
	return len(m.constraints)
}

// Validate 检查模型是否合法
func (m *Model) Validate() error {
	for i := range m.names {
		if m.lo[i] > m.hi[i] {
			return fmt.Errorf("变量 %s 取值范围为空: [%d, %d]", m.names[i], m.lo[i], m.hi[i])
		}
		if m.lo[i] < -bound || m.hi[i] > bound {
			return fmt.Errorf("变量 %s 取值范围超出限制", m.names[i])
		}
	}
	for ci, c := range m.constraints {
		for _, t := range c.terms {
			if t.Var.index < 0 || t.Var.index >= len(m.names) {
				return fmt.Errorf("约束 #%d 引用了不存在的变量", ci)
			}
		}
		for _, l := range c.enforce {
			if l < 0 || l >= len(m.names) {
				return fmt.Errorf("约束 #%d 引用了不存在的执行文字", ci)
			}
			if m.lo[l] < 0 || m.hi[l] > 1 {
				return fmt.Errorf("约束 #%d 的执行文字 %s 不是布尔变量", ci, m.names[l])
			}
		}
	}
	for _, s := range m.strategies {
		for _, v := range s.Vars {
			if v.index < 0 || v.index >= len(m.names) {
				return fmt.Errorf("搜索策略引用了不存在的变量")
			}
		}
	}
	return nil
}
