package service

import (
	"net/http"

	apperrors "github.com/wfunc/galaxy-explorer/internal/errors"
	"github.com/wfunc/galaxy-explorer/internal/game"
)

// Result 操作结果的对外表示，HTTP 和 WebSocket 共用
type Result struct {
	Success bool                `json:"success"`
	Reason  game.Reason         `json:"reason,omitempty"`
	Code    apperrors.ErrorCode `json:"code,omitempty"`
	Message string              `json:"message"`
	Warning string              `json:"warning,omitempty"`
	Data    interface{}         `json:"data,omitempty"`
}

// NewResult 由引擎结果构建
func NewResult(out game.Outcome, message string, data interface{}) *Result {
	return &Result{
		Success: out.Success,
		Reason:  out.Reason,
		Code:    out.Reason.Code(),
		Message: message,
		Warning: out.Warning,
		Data:    data,
	}
}

// HTTPStatus 校验拒绝属于正常结果，只有存储或内部错误才返回错误状态码
func (r *Result) HTTPStatus() int {
	switch r.Reason {
	case game.ReasonPersistence:
		return http.StatusServiceUnavailable
	case game.ReasonInternal:
		return http.StatusInternalServerError
	}
	return http.StatusOK
}

// TravelResult 航行结果
func TravelResult(out *game.TravelOutcome) *Result {
	return NewResult(out.Outcome, out.Message(), out)
}

// ExploreResult 探索结果
func ExploreResult(out *game.ExploreOutcome) *Result {
	return NewResult(out.Outcome, out.Message(), out)
}

// OutcomeResult 通用操作结果
func OutcomeResult(out *game.Outcome) *Result {
	return NewResult(*out, out.Message(), out)
}
