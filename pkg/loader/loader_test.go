package loader

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/paiban/visitplan/pkg/errors"
	"github.com/paiban/visitplan/pkg/model"
)

const sample = `Id,DistrictMain,DistrictSecondary,Address,Category,VisitsLeft
P1,North,East,1 Main St,HighPriority,3
P2,South,West,2 Side Rd,mediumpriority,2
P3,East,North,3 Hill Ave, LOWPRIORITY ,0
`

func TestParse(t *testing.T) {
	in, err := Parse(strings.NewReader(sample))
	require.NoError(t, err)

	require.Len(t, in.Points, 3)
	assert.Equal(t, "P1", in.Points[0].ID)
	assert.Equal(t, model.CategoryHighPriority, in.Points[0].Category)
	assert.Equal(t, model.NewDistrict("North", "East"), in.Points[0].District)
	assert.Equal(t, "1 Main St", in.Points[0].Address)
	assert.Equal(t, model.CategoryMediumPriority, in.Points[1].Category)
	assert.Equal(t, model.CategoryLowPriority, in.Points[2].Category)

	assert.Equal(t, model.VisitRequirement{"P1": 3, "P2": 2, "P3": 0}, in.VisitsLeft)
	assert.NoError(t, in.VisitsLeft.Covers(in.Points))
}

func TestParse_HeaderOnly(t *testing.T) {
	in, err := Parse(strings.NewReader("Id,a,b,c,d,e\n"))
	require.NoError(t, err)
	assert.Empty(t, in.Points)
}

func TestParse_Errors(t *testing.T) {
	header := "Id,DistrictMain,DistrictSecondary,Address,Category,VisitsLeft\n"

	tests := []struct {
		name  string
		input string
	}{
		{"empty file", ""},
		{"too few fields", header + "P1,North,East,HighPriority,3\n"},
		{"too many fields", header + "P1,North,East,addr,HighPriority,3,extra\n"},
		{"bad category", header + "P1,North,East,addr,Urgent,3\n"},
		{"bad count", header + "P1,North,East,addr,HighPriority,three\n"},
		{"negative count", header + "P1,North,East,addr,HighPriority,-1\n"},
		{"empty id", header + ",North,East,addr,HighPriority,1\n"},
		{"duplicate id", header + "P1,North,East,addr,HighPriority,1\nP1,South,West,addr,LowPriority,1\n"},
		{"bad row after good", header + "P1,North,East,addr,HighPriority,1\nP2,North\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in, err := Parse(strings.NewReader(tt.input))
			assert.Nil(t, in)
			require.Error(t, err)
			assert.True(t, apperrors.Is(err, apperrors.CodeInvalidInput), "got %v", err)
		})
	}
}

func TestParse_ReportsLine(t *testing.T) {
	input := "h1,h2,h3,h4,h5,h6\nP1,N,E,a,HighPriority,1\nP2,N,E,a,Nope,1\n"
	_, err := Parse(strings.NewReader(input))

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, 3, appErr.Fields["line"])
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "points.csv")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))

	in, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, in.Points, 3)

	_, err = Load(filepath.Join(t.TempDir(), "missing.csv"))
	assert.True(t, apperrors.Is(err, apperrors.CodeInvalidInput))
}

func TestWriteRows(t *testing.T) {
	rows := []model.VisitRow{
		{Date: "2024-01-02", Slot: 0, PointID: "P1", Address: "1 Main St, Apt 2", District: "North / East", Category: "HighPriority"},
		{Date: "2024-01-02", Slot: 1, PointID: "-", Address: "-", District: "- / -", Category: "-"},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteRows(&buf, rows))

	want := "date,slot,point_id,address,district,category\n" +
		"2024-01-02,0,P1,\"1 Main St, Apt 2\",North / East,HighPriority\n" +
		"2024-01-02,1,-,-,- / -,-\n"
	assert.Equal(t, want, buf.String())
}
