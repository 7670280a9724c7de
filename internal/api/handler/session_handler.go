package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"practicum/backend/internal/dto"
	"practicum/backend/internal/service"
	"practicum/backend/pkg/response"
)

// SessionHandler 实习期与参加记录 HTTP 处理器
type SessionHandler struct {
	svc    service.SessionService
	logger *zap.Logger
}

// NewSessionHandler 创建 SessionHandler
func NewSessionHandler(svc service.SessionService, logger *zap.Logger) *SessionHandler {
	return &SessionHandler{svc: svc, logger: logger}
}

// ListSessions 获取实习期列表
// GET /api/v1/sessions
func (h *SessionHandler) ListSessions(c *gin.Context) {
	sessions, err := h.svc.ListSessions(c.Request.Context())
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}

	response.OK(c, gin.H{"list": sessions})
}

// GetSession 获取实习期详情
// GET /api/v1/sessions/:id
func (h *SessionHandler) GetSession(c *gin.Context) {
	id, ok := mustParam(c, "id", "实习期ID")
	if !ok {
		return
	}

	session, err := h.svc.GetSession(c.Request.Context(), id)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}

	response.OK(c, session)
}

// CreateSession 创建实习期
// POST /api/v1/sessions
func (h *SessionHandler) CreateSession(c *gin.Context) {
	var req dto.CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, codeInvalidParams, "参数校验失败")
		return
	}

	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	session, err := h.svc.CreateSession(c.Request.Context(), caller, &req)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}

	response.Created(c, session)
}

// CloseSession 关闭实习期（终态）
// POST /api/v1/sessions/:id/close
func (h *SessionHandler) CloseSession(c *gin.Context) {
	id, ok := mustParam(c, "id", "实习期ID")
	if !ok {
		return
	}
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	session, err := h.svc.CloseSession(c.Request.Context(), caller, id)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}

	response.OK(c, session)
}

// ListEnrollments 获取实习期参加名单
// GET /api/v1/sessions/:id/enrollments
func (h *SessionHandler) ListEnrollments(c *gin.Context) {
	id, ok := mustParam(c, "id", "实习期ID")
	if !ok {
		return
	}
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	list, err := h.svc.ListEnrollments(c.Request.Context(), caller, id)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}

	response.OK(c, gin.H{"list": list})
}

// Enroll 学生参加实习
// POST /api/v1/sessions/:id/enrollments
func (h *SessionHandler) Enroll(c *gin.Context) {
	id, ok := mustParam(c, "id", "实习期ID")
	if !ok {
		return
	}
	var req dto.EnrollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, codeInvalidParams, "参数校验失败")
		return
	}
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	enrollment, err := h.svc.Enroll(c.Request.Context(), caller, id, &req)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}

	response.Created(c, enrollment)
}

// BatchEnroll 批量参加实习（返回清单，单条失败不影响其余）
// POST /api/v1/sessions/:id/enrollments/batch
func (h *SessionHandler) BatchEnroll(c *gin.Context) {
	id, ok := mustParam(c, "id", "实习期ID")
	if !ok {
		return
	}
	var req dto.BatchEnrollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, codeInvalidParams, "参数校验失败")
		return
	}
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	manifest, err := h.svc.BatchEnroll(c.Request.Context(), caller, id, &req)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}

	response.OK(c, manifest)
}

// Withdraw 学生退出实习
// DELETE /api/v1/sessions/:id/enrollments/:student_id
func (h *SessionHandler) Withdraw(c *gin.Context) {
	id, ok := mustParam(c, "id", "实习期ID")
	if !ok {
		return
	}
	studentID, ok := mustParam(c, "student_id", "学生ID")
	if !ok {
		return
	}
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	resp, err := h.svc.Withdraw(c.Request.Context(), caller, id, studentID)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}

	response.OK(c, resp)
}
