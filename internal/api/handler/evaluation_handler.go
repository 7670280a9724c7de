package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"practicum/backend/internal/dto"
	"practicum/backend/internal/service"
	"practicum/backend/pkg/response"
)

// EvaluationHandler 终评 HTTP 处理器
type EvaluationHandler struct {
	svc    service.EvaluationService
	logger *zap.Logger
}

// NewEvaluationHandler 创建 EvaluationHandler
func NewEvaluationHandler(svc service.EvaluationService, logger *zap.Logger) *EvaluationHandler {
	return &EvaluationHandler{svc: svc, logger: logger}
}

// AddFinalComment 提交终评（每个角色仅一次）
// POST /api/v1/sessions/:id/evaluations
func (h *EvaluationHandler) AddFinalComment(c *gin.Context) {
	sessionID, ok := mustParam(c, "id", "实习期ID")
	if !ok {
		return
	}
	var req dto.CreateFinalEvaluationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, codeInvalidParams, "参数校验失败")
		return
	}
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	evaluation, err := h.svc.AddFinalComment(c.Request.Context(), caller, sessionID, &req)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}

	response.Created(c, evaluation)
}

// ListFinalEvaluations 学生的终评列表
// GET /api/v1/sessions/:id/evaluations?student_id=
func (h *EvaluationHandler) ListFinalEvaluations(c *gin.Context) {
	sessionID, ok := mustParam(c, "id", "实习期ID")
	if !ok {
		return
	}
	studentID := c.Query("student_id")
	if studentID == "" {
		response.BadRequest(c, codeInvalidParams, "student_id 不能为空")
		return
	}
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	list, err := h.svc.ListFinalEvaluations(c.Request.Context(), caller, sessionID, studentID)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}

	response.OK(c, gin.H{"list": list})
}
