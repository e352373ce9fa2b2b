package cpsat

import "context"

type trailEntry struct {
	v, lo, hi int
}

// search 单次求解的搜索状态
type search struct {
	ctx    context.Context
	m      *Model
	solver *Solver
	params Parameters
	cb     SolutionCallback

	lo, hi  []int
	trail   []trailEntry
	watches [][]int32
	queue   []int32
	queued  []bool

	// order 前 decisions 个为决策变量
	order     []int
	decisions int
	selectMax []bool

	// completing 为决策变量已固定后的补全阶段，completed 表示补全已找到
	completing bool
	completed  bool

	stats       Stats
	interrupted bool
	done        bool
}

func newSearch(ctx context.Context, m *Model, solver *Solver, params Parameters, cb SolutionCallback) *search {
	n := m.NumVariables()
	st := &search{
		ctx:       ctx,
		m:         m,
		solver:    solver,
		params:    params,
		cb:        cb,
		lo:        append([]int(nil), m.lo...),
		hi:        append([]int(nil), m.hi...),
		watches:   make([][]int32, n),
		queued:    make([]bool, len(m.constraints)),
		selectMax: make([]bool, n),
	}

	for ci, c := range m.constraints {
		for _, t := range c.terms {
			st.watches[t.Var.index] = append(st.watches[t.Var.index], int32(ci))
		}
		for _, l := range c.enforce {
			st.watches[l] = append(st.watches[l], int32(ci))
		}
	}

	// 先按搜索策略排列决策变量，其余变量按序号追加
	seen := make([]bool, n)
	for _, s := range m.strategies {
		for _, v := range s.Vars {
			if seen[v.index] {
				continue
			}
			seen[v.index] = true
			st.order = append(st.order, v.index)
			st.selectMax[v.index] = s.SelectMax
		}
	}
	st.decisions = len(st.order)
	for i := 0; i < n; i++ {
		if !seen[i] {
			st.order = append(st.order, i)
		}
	}
	return st
}

// Min 实现 Domains
func (st *search) Min(v IntVar) int {
	return st.lo[v.index]
}

// Max 实现 Domains
func (st *search) Max(v IntVar) int {
	return st.hi[v.index]
}

// run 执行搜索，返回是否穷尽了搜索空间
func (st *search) run() bool {
	for ci := range st.m.constraints {
		st.enqueueConstraint(int32(ci))
	}
	if !st.propagate() {
		st.stats.Conflicts++
		return true
	}
	st.dfs(0)
	return !st.interrupted
}

// shouldStop 检查外部停止信号
func (st *search) shouldStop() bool {
	if st.done {
		return true
	}
	if st.solver.stop.Load() {
		st.interrupted = true
		st.done = true
		return true
	}
	if st.stats.Branches%ctxCheckInterval == 0 && st.ctx.Err() != nil {
		st.interrupted = true
		st.done = true
		return true
	}
	return false
}

// dfs 选择下一个分支变量做二分支，变量全部固定时报告一个解
// order[:start] 中的变量均已固定
func (st *search) dfs(start int) {
	if st.shouldStop() {
		return
	}

	pos, v, selectMax := st.next(start)
	if pos < 0 {
		st.onSolution()
		return
	}

	if pos >= st.decisions && st.params.ProjectOnDecisionVars && !st.completing {
		st.completing = true
		st.branch(pos, v, selectMax)
		st.completing, st.completed = false, false
		return
	}
	st.branch(pos, v, selectMax)
}

// next 返回下一个分支变量及其在 order 中的位置，全部固定时位置为 -1
func (st *search) next(start int) (int, int, bool) {
	if st.m.decide != nil && start < st.decisions {
		if d, ok := st.m.decide(st); ok && st.lo[d.Var.index] < st.hi[d.Var.index] {
			return start, d.Var.index, d.SelectMax
		}
	}
	for pos := start; pos < len(st.order); pos++ {
		v := st.order[pos]
		if st.lo[v] < st.hi[v] {
			return pos, v, st.selectMax[v]
		}
	}
	return -1, 0, false
}

func (st *search) branch(pos, v int, selectMax bool) {
	mark := len(st.trail)
	st.stats.Branches++

	// 左分支固定为首选值，右分支排除该值
	val := st.lo[v]
	if selectMax {
		val = st.hi[v]
	}
	if st.setLo(v, val) && st.setHi(v, val) && st.propagate() {
		st.dfs(pos)
	} else {
		st.stats.Conflicts++
	}
	st.undo(mark)
	if st.done || st.completed {
		return
	}

	var ok bool
	if selectMax {
		ok = st.setHi(v, val-1) && st.propagate()
	} else {
		ok = st.setLo(v, val+1) && st.propagate()
	}
	if ok {
		st.dfs(pos)
	} else {
		st.stats.Conflicts++
	}
	st.undo(mark)
}

// onSolution 所有变量已固定
func (st *search) onSolution() {
	st.stats.Solutions++
	if st.completing {
		st.completed = true
	}
	if st.cb != nil {
		st.cb.OnSolution(&Assignment{values: append([]int(nil), st.lo...), solver: st.solver})
	}
	if !st.params.EnumerateAllSolutions {
		st.done = true
		return
	}
	if st.solver.stop.Load() || st.ctx.Err() != nil {
		st.interrupted = true
		st.done = true
	}
}

func (st *search) setLo(v, val int) bool {
	if val <= st.lo[v] {
		return true
	}
	if val > st.hi[v] {
		st.clearQueue()
		return false
	}
	st.trail = append(st.trail, trailEntry{v: v, lo: st.lo[v], hi: st.hi[v]})
	st.lo[v] = val
	st.enqueueWatchers(v)
	return true
}

func (st *search) setHi(v, val int) bool {
	if val >= st.hi[v] {
		return true
	}
	if val < st.lo[v] {
		st.clearQueue()
		return false
	}
	st.trail = append(st.trail, trailEntry{v: v, lo: st.lo[v], hi: st.hi[v]})
	st.hi[v] = val
	st.enqueueWatchers(v)
	return true
}

func (st *search) undo(mark int) {
	for i := len(st.trail) - 1; i >= mark; i-- {
		e := st.trail[i]
		st.lo[e.v] = e.lo
		st.hi[e.v] = e.hi
	}
	st.trail = st.trail[:mark]
}

func (st *search) enqueueWatchers(v int) {
	for _, ci := range st.watches[v] {
		st.enqueueConstraint(ci)
	}
}

func (st *search) enqueueConstraint(ci int32) {
	if !st.queued[ci] {
		st.queued[ci] = true
		st.queue = append(st.queue, ci)
	}
}

func (st *search) clearQueue() {
	for _, ci := range st.queue {
		st.queued[ci] = false
	}
	st.queue = st.queue[:0]
}

// propagate 传播到不动点，发现冲突时返回 false
func (st *search) propagate() bool {
	for len(st.queue) > 0 {
		ci := st.queue[0]
		st.queue = st.queue[1:]
		st.queued[ci] = false
		if !st.propagateLinear(st.m.constraints[ci]) {
			st.clearQueue()
			return false
		}
	}
	return true
}

// propagateLinear 线性约束的边界传播（含半蕴含的执行文字）
func (st *search) propagateLinear(c *Constraint) bool {
	open, openLit := 0, -1
	for _, l := range c.enforce {
		if st.hi[l] == 0 {
			return true
		}
		if st.lo[l] == 0 {
			open++
			openLit = l
		}
	}

	minSum, maxSum := 0, 0
	for _, t := range c.terms {
		lo, hi := st.lo[t.Var.index], st.hi[t.Var.index]
		if t.Coef > 0 {
			minSum += t.Coef * lo
			maxSum += t.Coef * hi
		} else {
			minSum += t.Coef * hi
			maxSum += t.Coef * lo
		}
	}

	if minSum > c.hi || maxSum < c.lo {
		switch open {
		case 0:
			return false
		case 1:
			// 约束不可能成立，唯一未定的执行文字只能为0
			return st.setHi(openLit, 0)
		default:
			return true
		}
	}
	if open > 0 {
		return true
	}

	for _, t := range c.terms {
		v := t.Var.index
		lo, hi := st.lo[v], st.hi[v]
		var tMin, tMax int
		if t.Coef > 0 {
			tMin, tMax = t.Coef*lo, t.Coef*hi
		} else {
			tMin, tMax = t.Coef*hi, t.Coef*lo
		}
		upper := c.hi - (minSum - tMin) // coef*x <= upper
		lower := c.lo - (maxSum - tMax) // coef*x >= lower

		var newLo, newHi int
		if t.Coef > 0 {
			newLo, newHi = ceilDiv(lower, t.Coef), floorDiv(upper, t.Coef)
		} else {
			newLo, newHi = ceilDiv(upper, t.Coef), floorDiv(lower, t.Coef)
		}
		if !st.setLo(v, newLo) || !st.setHi(v, newHi) {
			return false
		}
	}
	return true
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func ceilDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) == (b < 0)) {
		q++
	}
	return q
}
