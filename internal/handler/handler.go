// Package handler 提供HTTP请求处理器
package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	apperrors "github.com/paiban/visitplan/pkg/errors"
	"github.com/paiban/visitplan/pkg/logger"
	"github.com/paiban/visitplan/pkg/model"
)

// PointInput 服务点输入
type PointInput struct {
	ID                string `json:"id"`
	Category          string `json:"category"`
	DistrictMain      string `json:"district_main"`
	DistrictSecondary string `json:"district_secondary"`
	Address           string `json:"address"`
	VisitsLeft        int    `json:"visits_left"`
}

// DayInput 某一天的拜访安排输入（按槽位顺序的服务点ID）
type DayInput struct {
	Date   string   `json:"date"`
	Visits []string `json:"visits"`
}

// ScheduleInput 排程方案输入
type ScheduleInput struct {
	Days []DayInput `json:"days"`
}

// validatePoints 校验服务点输入
func validatePoints(ve *apperrors.ValidationErrors, points []PointInput) {
	if len(points) == 0 {
		ve.Add("points", "服务点列表不能为空")
		return
	}
	seen := make(map[string]bool, len(points))
	for i, p := range points {
		field := fmt.Sprintf("points[%d]", i)
		if p.ID == "" {
			ve.Add(field+".id", "服务点ID不能为空")
		} else if seen[p.ID] {
			ve.Add(field+".id", "服务点ID重复: "+p.ID)
		}
		seen[p.ID] = true
		if _, err := model.ParseCategory(p.Category); err != nil {
			ve.Add(field+".category", err.Error())
		}
		if p.VisitsLeft < 0 {
			ve.Add(field+".visits_left", "剩余访问次数不能为负")
		}
	}
}

// buildPoints 转换服务点输入，调用前须已通过 validatePoints
func buildPoints(inputs []PointInput) ([]*model.ServicePoint, model.VisitRequirement) {
	points := make([]*model.ServicePoint, 0, len(inputs))
	visitsLeft := make(model.VisitRequirement, len(inputs))
	for _, in := range inputs {
		category, _ := model.ParseCategory(in.Category)
		points = append(points, model.NewServicePoint(
			in.ID, category, model.NewDistrict(in.DistrictMain, in.DistrictSecondary), in.Address,
		))
		visitsLeft[in.ID] = in.VisitsLeft
	}
	return points, visitsLeft
}

// buildSchedule 由输入构造方案，strict 时未知服务点视为错误，否则以仅含ID的占位服务点代替
func buildSchedule(in ScheduleInput, index map[string]*model.ServicePoint, strict bool) (*model.Schedule, *apperrors.AppError) {
	days := make([]model.DayPlan, 0, len(in.Days))
	for i, d := range in.Days {
		date, err := time.Parse(model.DateLayout, d.Date)
		if err != nil {
			return nil, apperrors.InvalidInput(fmt.Sprintf("days[%d].date", i), "日期格式无效，应为YYYY-MM-DD")
		}
		visits := make([]*model.ServicePoint, 0, len(d.Visits))
		for _, id := range d.Visits {
			p, ok := index[id]
			if !ok {
				if strict {
					return nil, apperrors.NotFound("服务点", id)
				}
				p = &model.ServicePoint{ID: id}
			}
			visits = append(visits, p)
		}
		days = append(days, model.DayPlan{Date: date, Visits: visits})
	}
	return model.NewSchedule("", days), nil
}

// decodeJSON 解析POST请求体
func decodeJSON(r *http.Request, v interface{}) *apperrors.AppError {
	if r.Method != http.MethodPost {
		return apperrors.New(apperrors.CodeInvalidInput, "仅支持POST方法")
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apperrors.Wrap(err, apperrors.CodeInvalidInput, "解析请求失败")
	}
	return nil
}

// asAppError 统一转换为 AppError
func asAppError(err error) *apperrors.AppError {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return apperrors.Wrap(err, apperrors.CodeInternal, "内部错误")
}

// respondJSON 返回JSON响应
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Warn().Err(err).Msg("写入响应失败")
	}
}

// respondError 返回错误响应
func respondError(w http.ResponseWriter, err *apperrors.AppError) {
	respondJSON(w, err.HTTPStatus, map[string]interface{}{
		"error":   true,
		"code":    err.Code,
		"message": err.Message,
		"details": err.Details,
		"fields":  err.Fields,
	})
}
