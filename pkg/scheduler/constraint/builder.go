package constraint

import (
	"context"
	"fmt"
	"sort"

	"github.com/paiban/visitplan/pkg/cpsat"
	apperrors "github.com/paiban/visitplan/pkg/errors"
)

// Build 构建巡店约束模型
// 每添加一组间隔约束检查一次 ctx，取消时返回 ctx.Err()
func Build(ctx context.Context, in Input, opts Options) (*Problem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := checkInput(in); err != nil {
		return nil, err
	}
	if opts.Spacing == "" {
		opts.Spacing = SpacingStrict
	}

	b := &builder{
		in:      in,
		opts:    opts,
		m:       cpsat.NewModel(),
		offsets: in.Horizon.Offsets(),
		problem: &Problem{
			Input:   in,
			Options: opts,
			Counts:  make(map[Type]int),
		},
	}
	b.problem.Model = b.m
	b.computeReach()

	b.newVisitVars()
	b.newDateVars()
	b.addOneVisitPerDay()
	b.addDailyVisits()
	b.addVisitCounts()
	b.addSlotFilled()
	if err := b.addMinimalIntervals(ctx); err != nil {
		return nil, err
	}
	b.addVisitCapacity()
	b.precheck()
	b.addDecisionStrategy()

	return b.problem, nil
}

// checkInput 前置条件检查，失败属于数据或编程错误
func checkInput(in Input) error {
	if in.Horizon.Len() == 0 {
		return apperrors.PreconditionFailed("排程日期为空")
	}
	if in.VisitsPerDay <= 0 {
		return apperrors.PreconditionFailed(fmt.Sprintf("每日访问数必须大于0: %d", in.VisitsPerDay))
	}
	if err := in.VisitsLeft.Covers(in.Points); err != nil {
		return apperrors.Wrap(err, apperrors.CodePreconditionFailed, "剩余访问次数与服务点不匹配")
	}
	for _, p := range in.Points {
		if !p.Category.IsValid() {
			return apperrors.PreconditionFailed(fmt.Sprintf("服务点 %s 类别无效: %d", p.ID, int(p.Category)))
		}
	}
	return nil
}

type builder struct {
	in      Input
	opts    Options
	m       *cpsat.Model
	offsets []int
	problem *Problem

	// reach[p][s] 从第 s 天起按最小间隔最多能安排的访问次数，末尾为 0
	reach [][]int
}

func (b *builder) days() int   { return b.in.Horizon.Len() }
func (b *builder) points() int { return len(b.in.Points) }
func (b *builder) slots() int  { return b.in.VisitsPerDay }

func (b *builder) need(p int) int {
	return b.in.VisitsLeft[b.in.Points[p].ID]
}

// windowEnd 第 s 天之后第一个与其间隔不小于 interval 的日期序号
func (b *builder) windowEnd(s, interval int) int {
	return sort.SearchInts(b.offsets, b.offsets[s]+interval)
}

// computeReach 贪心地取最早可行日期即得最大访问次数
func (b *builder) computeReach() {
	byInterval := make(map[int][]int)
	b.reach = make([][]int, b.points())
	for p, point := range b.in.Points {
		interval := point.Category.MustMinimalInterval()
		reach, ok := byInterval[interval]
		if !ok {
			reach = make([]int, b.days()+1)
			for s := b.days() - 1; s >= 0; s-- {
				reach[s] = 1 + reach[b.windowEnd(s, interval)]
			}
			byInterval[interval] = reach
		}
		b.reach[p] = reach
	}
}

func (b *builder) newVisitVars() {
	visits := make([][][]cpsat.IntVar, b.days())
	visited := make([][]cpsat.IntVar, b.days())
	for d := range visits {
		visits[d] = make([][]cpsat.IntVar, b.points())
		visited[d] = make([]cpsat.IntVar, b.points())
		for p := range visits[d] {
			visits[d][p] = make([]cpsat.IntVar, b.slots())
			for v := range visits[d][p] {
				visits[d][p][v] = b.m.NewBoolVar(fmt.Sprintf("visit[%d,%d,%d]", d, p, v))
			}
			visited[d][p] = b.m.NewBoolVar(fmt.Sprintf("visited[%d,%d]", d, p))
		}
	}
	b.problem.Visits = visits
	b.problem.Visited = visited
}

// newDateVars 日期变量，严格模式固定为偏移量，宽松模式允许取到下一日期的偏移量
func (b *builder) newDateVars() {
	last := len(b.offsets) - 1
	dates := make([]cpsat.IntVar, len(b.offsets))
	for d, off := range b.offsets {
		hi := off
		if b.opts.Spacing == SpacingSlack {
			hi = b.offsets[min(d+1, last)]
		}
		dates[d] = b.m.NewIntVar(off, hi, fmt.Sprintf("date[%d]", d))
	}
	b.problem.Dates = dates
}

// addOneVisitPerDay visited[d][p] = Σ_v visit[d][p][v]，布尔取值保证每天至多一次
func (b *builder) addOneVisitPerDay() {
	for d := 0; d < b.days(); d++ {
		for p := 0; p < b.points(); p++ {
			expr := cpsat.Sum(b.problem.Visited[d][p])
			for _, x := range b.problem.Visits[d][p] {
				expr = expr.Plus(x, -1)
			}
			b.m.AddEquality(expr, 0)
			b.problem.Counts[TypeOneVisitPerDay]++
		}
	}
}

func (b *builder) addDailyVisits() {
	for d := 0; d < b.days(); d++ {
		b.m.AddEquality(cpsat.Sum(b.problem.Visited[d]...), b.slots())
		b.problem.Counts[TypeDailyVisits]++
	}
}

func (b *builder) addVisitCounts() {
	for p := 0; p < b.points(); p++ {
		vars := make([]cpsat.IntVar, b.days())
		for d := range vars {
			vars[d] = b.problem.Visited[d][p]
		}
		b.m.AddEquality(cpsat.Sum(vars...), b.need(p))
		b.problem.Counts[TypeVisitCount]++
	}
}

func (b *builder) addSlotFilled() {
	for d := 0; d < b.days(); d++ {
		for v := 0; v < b.slots(); v++ {
			vars := make([]cpsat.IntVar, b.points())
			for p := range vars {
				vars[p] = b.problem.Visits[d][p][v]
			}
			b.m.AddEquality(cpsat.Sum(vars...), 1)
			b.problem.Counts[TypeSlotFilled]++
		}
	}
}

// addMinimalIntervals 同一服务点的任意两次访问，日期差不小于类别最小间隔
func (b *builder) addMinimalIntervals(ctx context.Context) error {
	if b.opts.Spacing == SpacingStrict {
		return b.addSpacingWindows(ctx)
	}

	dates := b.problem.Dates
	for p, point := range b.in.Points {
		interval := point.Category.MustMinimalInterval()
		for d1 := 0; d1 < b.days(); d1++ {
			for d2 := d1 + 1; d2 < b.days(); d2++ {
				if err := ctx.Err(); err != nil {
					return err
				}
				if b.opts.SkipSatisfiedPairs && b.gapAtLeast(d1, d2, interval) {
					continue
				}
				b.addPairSpacing(p, d1, d2, dates[d2], dates[d1], interval)
			}
		}
	}
	return nil
}

// addSpacingWindows 严格模式下日期固定，间隔不足的日期落在同一窗口内，每个窗口至多访问一次
// 被前一个窗口包含的窗口不再添加
func (b *builder) addSpacingWindows(ctx context.Context) error {
	for p, point := range b.in.Points {
		interval := point.Category.MustMinimalInterval()
		prevEnd := -1
		for s := 0; s < b.days(); s++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			end := b.windowEnd(s, interval)
			if end-s < 2 || end == prevEnd {
				continue
			}
			prevEnd = end

			vars := make([]cpsat.IntVar, 0, end-s)
			for d := s; d < end; d++ {
				vars = append(vars, b.problem.Visited[d][p])
			}
			b.m.AddLessOrEqual(cpsat.Sum(vars...), 1)
			b.problem.Counts[TypeMinimalInterval]++
		}
	}
	return nil
}

// gapAtLeast 两个日期变量的最小差值是否已满足间隔
func (b *builder) gapAtLeast(d1, d2, interval int) bool {
	lo2, _ := b.m.Bounds(b.problem.Dates[d2])
	_, hi1 := b.m.Bounds(b.problem.Dates[d1])
	return lo2-hi1 >= interval
}

// addPairSpacing 宽松模式仅约束不同时段的访问对
func (b *builder) addPairSpacing(p, d1, d2 int, later, earlier cpsat.IntVar, interval int) {
	for v1 := 0; v1 < b.slots(); v1++ {
		for v2 := 0; v2 < b.slots(); v2++ {
			if v1 == v2 {
				continue
			}
			x := b.problem.Visits[d1][p][v1]
			y := b.problem.Visits[d2][p][v2]

			both := b.m.NewBoolVar("both")
			b.m.AddEquality(cpsat.Sum(x), 1).OnlyEnforceIf(both)
			b.m.AddEquality(cpsat.Sum(y), 1).OnlyEnforceIf(both)
			b.m.AddLessOrEqual(cpsat.Sum(x, y).Plus(both, -1), 1)
			b.problem.Counts[TypeReification] += 3

			b.m.AddGreaterOrEqual(cpsat.Diff(later, earlier), interval).OnlyEnforceIf(both)
			b.problem.Counts[TypeMinimalInterval]++
		}
	}
}

// addVisitCapacity 第 s 天及以后最多还能访问 reach[s] 次，其余次数必须在此之前完成
func (b *builder) addVisitCapacity() {
	if b.opts.Spacing != SpacingStrict {
		return
	}
	for p := 0; p < b.points(); p++ {
		for s := 1; s < b.days(); s++ {
			early := b.need(p) - b.reach[p][s]
			if early <= 0 {
				continue
			}
			vars := make([]cpsat.IntVar, s)
			for d := range vars {
				vars[d] = b.problem.Visited[d][p]
			}
			b.m.AddGreaterOrEqual(cpsat.Sum(vars...), early)
			b.problem.Counts[TypeVisitCapacity]++
		}
	}
}

// precheck 记录无需搜索即可判定的无解原因
func (b *builder) precheck() {
	total := 0
	for p := 0; p < b.points(); p++ {
		total += b.need(p)
	}
	if slots := b.days() * b.slots(); total != slots {
		b.problem.Infeasible = apperrors.NoFeasibleSolution(
			fmt.Sprintf("剩余访问总数 %d 与时段总数 %d 不相等", total, slots))
		return
	}

	if b.opts.Spacing != SpacingStrict {
		return
	}
	for p, point := range b.in.Points {
		if need, most := b.need(p), b.reach[p][0]; need > most {
			b.problem.Infeasible = apperrors.NoFeasibleSolution(
				fmt.Sprintf("服务点 %s 需访问 %d 次，按最小间隔最多只能安排 %d 次", point.ID, need, most)).
				WithField("point_id", point.ID)
			return
		}
	}
}

// addDecisionStrategy 先决定每天访问哪些服务点，再分配时段
func (b *builder) addDecisionStrategy() {
	days := make([]cpsat.IntVar, 0, b.days()*b.points())
	slots := make([]cpsat.IntVar, 0, b.days()*b.slots()*b.points())
	for d := 0; d < b.days(); d++ {
		days = append(days, b.problem.Visited[d]...)
		for v := 0; v < b.slots(); v++ {
			for p := 0; p < b.points(); p++ {
				slots = append(slots, b.problem.Visits[d][p][v])
			}
		}
	}
	b.m.AddDecisionStrategy(days, true)
	b.m.AddDecisionStrategy(slots, true)

	need := make([]int, b.points())
	for p := range need {
		need[p] = b.need(p)
	}
	br := &brancher{problem: b.problem, need: need, reach: b.reach}
	b.m.SetDecisionFunc(br.decide)
}

// brancher 按日期顺序选点，截止日期最早的服务点优先，截止日期相同时剩余次数多的优先
// 每天的服务点全部确定后再按时段顺序分配
type brancher struct {
	problem *Problem
	need    []int
	reach   [][]int
}

func (br *brancher) decide(dom cpsat.Domains) (cpsat.Decision, bool) {
	if d, ok := br.nextDay(dom); ok {
		return d, true
	}
	return br.nextSlot(dom)
}

func (br *brancher) nextDay(dom cpsat.Domains) (cpsat.Decision, bool) {
	visited := br.problem.Visited
	for d := range visited {
		chosen := 0
		for _, y := range visited[d] {
			chosen += dom.Min(y)
		}
		if chosen == br.problem.Input.VisitsPerDay {
			continue
		}

		best, bestDeadline, bestLeft := -1, 0, 0
		for p, y := range visited[d] {
			if dom.Min(y) == dom.Max(y) {
				continue
			}
			left := br.need[p] - br.visitedSoFar(dom, p)
			deadline := br.deadline(p, d, left)
			if best < 0 || deadline < bestDeadline || (deadline == bestDeadline && left > bestLeft) {
				best, bestDeadline, bestLeft = p, deadline, left
			}
		}
		if best < 0 {
			return cpsat.Decision{}, false
		}
		return cpsat.Decision{Var: visited[d][best], SelectMax: true}, true
	}
	return cpsat.Decision{}, false
}

func (br *brancher) visitedSoFar(dom cpsat.Domains, p int) int {
	n := 0
	for d := range br.problem.Visited {
		n += dom.Min(br.problem.Visited[d][p])
	}
	return n
}

// deadline 剩余 left 次访问最晚须在哪一天开始，已来不及时返回 d-1
func (br *brancher) deadline(p, d, left int) int {
	reach := br.reach[p]
	last := d - 1
	for s := d; s < len(reach)-1 && reach[s] >= left; s++ {
		last = s
	}
	return last
}

func (br *brancher) nextSlot(dom cpsat.Domains) (cpsat.Decision, bool) {
	visits := br.problem.Visits
	for d := range visits {
		for v := 0; v < br.problem.Input.VisitsPerDay; v++ {
			open, filled := -1, false
			for p := range visits[d] {
				x := visits[d][p][v]
				if dom.Min(x) == 1 {
					filled = true
					break
				}
				if open < 0 && dom.Max(x) == 1 {
					open = p
				}
			}
			if !filled && open >= 0 {
				return cpsat.Decision{Var: visits[d][open][v], SelectMax: true}, true
			}
		}
	}
	return cpsat.Decision{}, false
}
