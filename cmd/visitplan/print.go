package main

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/paiban/visitplan/pkg/model"
	"github.com/paiban/visitplan/pkg/scheduler/solver"
	"github.com/paiban/visitplan/pkg/stats"
)

type rankedSchedule struct {
	schedule *model.Schedule
	report   *stats.Report
}

// ranked 按路线成本排序方案
func ranked(schedules []*model.Schedule) []rankedSchedule {
	byID := make(map[string]*model.Schedule, len(schedules))
	for _, s := range schedules {
		byID[s.ID.String()] = s
	}
	reports := stats.Rank(schedules)
	out := make([]rankedSchedule, len(reports))
	for i, r := range reports {
		out[i] = rankedSchedule{schedule: byID[r.ScheduleID.String()], report: r}
	}
	return out
}

// printResult 输出求解统计与每个方案的访问明细
func printResult(w io.Writer, result *solver.Result, visitsPerDay int) error {
	st := result.Statistics
	fmt.Fprintf(w, "\n状态: %s\n", result.StatusName)
	fmt.Fprintf(w, "策略: %s  方案数: %d  冲突: %d  分支: %d  耗时: %s\n",
		result.Strategy, st.SolutionsFound, st.Conflicts, st.Branches, st.WallTime)
	if result.Message != "" {
		fmt.Fprintf(w, "说明: %s\n", result.Message)
	}

	for i, rs := range ranked(result.Schedules) {
		fmt.Fprintf(w, "\n方案 #%d  路线成本 %.3f  跨区域 %d  最小间隔 %s\n",
			i+1, rs.report.RouteCost, rs.report.DistrictSwitches, formatIntervals(rs.report.MinimalIntervals))
		if err := printRows(w, rs.schedule.Rows(visitsPerDay)); err != nil {
			return err
		}
	}
	return nil
}

func printRows(w io.Writer, rows []model.VisitRow) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "日期\t槽位\t服务点\t地址\t区域\t类别")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\t%s\n", r.Date, r.Slot, r.PointID, r.Address, r.District, r.Category)
	}
	return tw.Flush()
}

func formatIntervals(intervals map[string]int) string {
	if len(intervals) == 0 {
		return "-"
	}
	names := make([]string, 0, len(intervals))
	for name := range intervals {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = fmt.Sprintf("%s=%d", name, intervals[name])
	}
	return strings.Join(parts, " ")
}
