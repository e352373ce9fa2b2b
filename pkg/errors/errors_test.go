package errors

import (
	"context"
	"errors"
	"net/http"
	"testing"
)

func TestNew_HTTPStatus(t *testing.T) {
	tests := []struct {
		code Code
		want int
	}{
		{CodeInvalidInput, http.StatusBadRequest},
		{CodeNotFound, http.StatusNotFound},
		{CodePreconditionFailed, http.StatusUnprocessableEntity},
		{CodeNoFeasibleSolution, http.StatusUnprocessableEntity},
		{CodeDatabaseError, http.StatusInternalServerError},
		{CodeCanceled, 499},
		{CodeTimeout, http.StatusGatewayTimeout},
		{CodeRateLimited, http.StatusTooManyRequests},
		{CodeModelInvalid, http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			err := New(tt.code, "x")
			if err.HTTPStatus != tt.want {
				t.Errorf("Expected %d, got %d", tt.want, err.HTTPStatus)
			}
		})
	}
}

func TestWrap_Unwrap(t *testing.T) {
	err := Wrap(context.Canceled, CodeCanceled, "求解被取消")

	if !errors.Is(err, context.Canceled) {
		t.Error("Expected wrapped error to match context.Canceled")
	}
	if !Is(err, CodeCanceled) {
		t.Error("Expected code CANCELED")
	}
	if GetCode(errors.New("plain")) != CodeUnknown {
		t.Error("Expected CodeUnknown for plain error")
	}
}

func TestAppError_Error(t *testing.T) {
	err := PreconditionFailed("缺少服务点 A1 的剩余访问次数")
	if err.Error() != "[PRECONDITION_FAILED] 缺少服务点 A1 的剩余访问次数" {
		t.Errorf("Unexpected message: %s", err.Error())
	}

	err = err.WithField("point_id", "A1").WithDetails("horizon has 2 days")
	if err.Fields["point_id"] != "A1" {
		t.Error("Expected field point_id")
	}
	if err.Details != "horizon has 2 days" {
		t.Errorf("Unexpected details: %s", err.Details)
	}
}

func TestValidationErrors(t *testing.T) {
	ve := &ValidationErrors{}
	if ve.HasErrors() {
		t.Error("Expected no errors")
	}

	ve.Add("visits_per_day", "必须大于0")
	ve.Add("horizon", "不能为空")

	if !ve.HasErrors() {
		t.Fatal("Expected errors")
	}

	appErr := ve.ToAppError()
	if appErr.Code != CodeValidationFail {
		t.Errorf("Expected %s, got %s", CodeValidationFail, appErr.Code)
	}
	if len(appErr.Fields) != 2 {
		t.Errorf("Expected 2 fields, got %d", len(appErr.Fields))
	}
}
