// Package loader 读取服务点清单
package loader

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	apperrors "github.com/paiban/visitplan/pkg/errors"
	"github.com/paiban/visitplan/pkg/model"
)

// FieldCount 每行字段数：id, 主区域, 次区域, 地址, 类别, 剩余访问次数
const FieldCount = 6

// Input 解析结果
type Input struct {
	Points     []*model.ServicePoint  `json:"points"`
	VisitsLeft model.VisitRequirement `json:"visits_left"`
}

// Load 从文件读取服务点清单
func Load(path string) (*Input, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInvalidInput, fmt.Sprintf("无法打开文件 %s", path))
	}
	defer f.Close()

	return Parse(f)
}

// Parse 解析逗号分隔的服务点清单，首行为表头
// 任何一行出错都会使整个加载失败
func Parse(r io.Reader) (*Input, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	if _, err := reader.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, apperrors.New(apperrors.CodeInvalidInput, "文件为空，缺少表头")
		}
		return nil, apperrors.Wrap(err, apperrors.CodeInvalidInput, "读取表头失败")
	}

	in := &Input{
		Points:     make([]*model.ServicePoint, 0),
		VisitsLeft: make(model.VisitRequirement),
	}

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeInvalidInput, "读取数据行失败")
		}
		line, _ := reader.FieldPos(0)

		p, visits, perr := parseRecord(record)
		if perr != nil {
			return nil, perr.WithField("line", line)
		}
		if _, dup := in.VisitsLeft[p.ID]; dup {
			return nil, lineError(line, "服务点ID重复: %s", p.ID)
		}

		in.Points = append(in.Points, p)
		in.VisitsLeft[p.ID] = visits
	}

	return in, nil
}

func parseRecord(record []string) (*model.ServicePoint, int, *apperrors.AppError) {
	if len(record) != FieldCount {
		return nil, 0, apperrors.New(apperrors.CodeInvalidInput,
			fmt.Sprintf("字段数错误: 需要 %d 个，实际 %d 个", FieldCount, len(record)))
	}
	for i := range record {
		record[i] = strings.TrimSpace(record[i])
	}

	if record[0] == "" {
		return nil, 0, apperrors.InvalidInput("id", "服务点ID为空")
	}

	category, err := model.ParseCategory(record[4])
	if err != nil {
		return nil, 0, apperrors.InvalidInput("category", fmt.Sprintf("无效的类别 %q", record[4]))
	}

	visits, err := strconv.Atoi(record[5])
	if err != nil || visits < 0 {
		return nil, 0, apperrors.InvalidInput("visits", fmt.Sprintf("无效的访问次数 %q", record[5]))
	}

	p := model.NewServicePoint(record[0], category, model.NewDistrict(record[1], record[2]), record[3])
	return p, visits, nil
}

func lineError(line int, format string, args ...interface{}) *apperrors.AppError {
	return apperrors.New(apperrors.CodeInvalidInput, fmt.Sprintf(format, args...)).WithField("line", line)
}
