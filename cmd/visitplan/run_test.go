package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paiban/visitplan/internal/config"
	apperrors "github.com/paiban/visitplan/pkg/errors"
)

const pointsCSV = `Id,DistrictMain,DistrictSecondary,Address,Category,VisitsLeft
A,DA,North,A street,HighPriority,2
B,DB,North,B street,HighPriority,2
C,DC,North,C street,HighPriority,2
D,DD,North,D street,HighPriority,2
E,DE,North,E street,HighPriority,2
`

var tenDays = []string{
	"2024-01-01", "2024-01-02", "2024-01-03", "2024-01-04", "2024-01-05",
	"2024-01-06", "2024-01-07", "2024-01-08", "2024-01-09", "2024-01-10",
}

func writeInput(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "points.csv")
	require.NoError(t, os.WriteFile(path, []byte(pointsCSV), 0o644))
	return path
}

func TestRun_ConstraintSolver(t *testing.T) {
	var out bytes.Buffer
	opts := options{InputPath: writeInput(t), VisitsPerDay: 1, Horizon: tenDays}

	require.NoError(t, run(context.Background(), config.Default(), opts, &out))

	text := out.String()
	assert.Contains(t, text, "状态: Feasible")
	assert.Contains(t, text, "已找到 5 个方案")
	assert.Contains(t, text, "方案 #5")
	assert.NotContains(t, text, "方案 #6")
	assert.Contains(t, text, "HighPriority=")
}

func TestRun_ExportsBestSchedule(t *testing.T) {
	var out bytes.Buffer
	outPath := filepath.Join(t.TempDir(), "best.csv")
	opts := options{InputPath: writeInput(t), VisitsPerDay: 1, Horizon: tenDays, Limit: 1, OutPath: outPath}

	require.NoError(t, run(context.Background(), config.Default(), opts, &out))

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	assert.Len(t, lines, 11)
	assert.Equal(t, "date,slot,point_id,address,district,category", lines[0])
}

func TestRun_Filler(t *testing.T) {
	var out bytes.Buffer
	opts := options{InputPath: writeInput(t), VisitsPerDay: 1, Horizon: tenDays, Strategy: "filler"}

	require.NoError(t, run(context.Background(), config.Default(), opts, &out))
	assert.Contains(t, out.String(), "策略: filler")
}

func TestRun_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	opts := options{InputPath: writeInput(t), VisitsPerDay: 1, Horizon: tenDays}
	require.NoError(t, run(ctx, config.Default(), opts, &out))
	assert.Contains(t, out.String(), "状态: Unknown")
}

func TestRun_Errors(t *testing.T) {
	input := writeInput(t)

	tests := []struct {
		name string
		opts options
		code apperrors.Code
	}{
		{"bad strategy", options{InputPath: input, Strategy: "tabu"}, apperrors.CodeInvalidInput},
		{"missing file", options{InputPath: filepath.Join(t.TempDir(), "none.csv")}, apperrors.CodeInvalidInput},
		{"save without database", options{InputPath: input, VisitsPerDay: 1, Horizon: tenDays, Limit: 1, Save: true}, apperrors.CodeInvalidInput},
		{"bad horizon", options{InputPath: input, Horizon: []string{"2024-02-30"}}, apperrors.CodeInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := run(context.Background(), config.Default(), tt.opts, &bytes.Buffer{})
			require.Error(t, err)
			assert.Equal(t, tt.code, apperrors.GetCode(err))
		})
	}
}

func TestOptions_Apply(t *testing.T) {
	base := config.Default().Scheduler

	cfg, err := options{Limit: 3, Spacing: "slack", Horizon: []string{" 2024-01-01", "2024-01-02 "}}.apply(base)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.SolutionLimit)
	assert.Equal(t, "slack", cfg.SpacingMode)
	assert.Equal(t, []string{"2024-01-01", "2024-01-02"}, cfg.Horizon)
	assert.Equal(t, base.VisitsPerDay, cfg.VisitsPerDay)

	_, err = options{Spacing: "loose"}.apply(base)
	assert.Error(t, err)
}

func TestSolve_PrintsProgressFromCaller(t *testing.T) {
	var out bytes.Buffer
	opts := options{InputPath: writeInput(t), VisitsPerDay: 1, Horizon: tenDays, Limit: 3}

	require.NoError(t, run(context.Background(), config.Default(), opts, &out))

	text := out.String()
	first := strings.Index(text, "已找到 1 个方案")
	last := strings.Index(text, "已找到 3 个方案")
	require.GreaterOrEqual(t, first, 0)
	require.Greater(t, last, first)
	assert.Less(t, last, strings.Index(text, "状态:"))
}
