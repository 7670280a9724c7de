package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"practicum/backend/internal/dto"
	"practicum/backend/internal/service"
	"practicum/backend/pkg/response"
)

// AllocationHandler 学生-导师分配 HTTP 处理器
type AllocationHandler struct {
	svc    service.AllocationService
	logger *zap.Logger
}

// NewAllocationHandler 创建 AllocationHandler
func NewAllocationHandler(svc service.AllocationService, logger *zap.Logger) *AllocationHandler {
	return &AllocationHandler{svc: svc, logger: logger}
}

// ManualAssign 手动分配
// POST /api/v1/sessions/:id/assignments
func (h *AllocationHandler) ManualAssign(c *gin.Context) {
	sessionID, ok := mustParam(c, "id", "实习期ID")
	if !ok {
		return
	}
	var req dto.ManualAssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, codeInvalidParams, "参数校验失败")
		return
	}
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	assignment, err := h.svc.ManualAssign(c.Request.Context(), caller, sessionID, &req)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}

	response.Created(c, assignment)
}

// RemoveAssignment 删除分配（释放名额）
// DELETE /api/v1/assignments/:id
func (h *AllocationHandler) RemoveAssignment(c *gin.Context) {
	id, ok := mustParam(c, "id", "分配ID")
	if !ok {
		return
	}
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	if err := h.svc.RemoveAssignment(c.Request.Context(), caller, id); err != nil {
		handleServiceError(c, h.logger, err)
		return
	}

	response.OK(c, nil)
}

// AutoAssign 自动分配（返回成功 / 失败清单）
// POST /api/v1/sessions/:id/assignments/auto
func (h *AllocationHandler) AutoAssign(c *gin.Context) {
	sessionID, ok := mustParam(c, "id", "实习期ID")
	if !ok {
		return
	}
	var req dto.AutoAssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, codeInvalidParams, "参数校验失败")
		return
	}
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	result, err := h.svc.AutoAssign(c.Request.Context(), caller, sessionID, &req)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}

	response.OK(c, result)
}

// ListAssignments 实习期分配列表
// GET /api/v1/sessions/:id/assignments?role=
func (h *AllocationHandler) ListAssignments(c *gin.Context) {
	sessionID, ok := mustParam(c, "id", "实习期ID")
	if !ok {
		return
	}
	var req dto.AssignmentListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, codeInvalidParams, "参数校验失败")
		return
	}
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	list, err := h.svc.ListAssignments(c.Request.Context(), caller, sessionID, &req)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}

	response.OK(c, gin.H{"list": list})
}

// WorkloadReport 导师负载报表
// GET /api/v1/sessions/:id/workload?role=
func (h *AllocationHandler) WorkloadReport(c *gin.Context) {
	sessionID, ok := mustParam(c, "id", "实习期ID")
	if !ok {
		return
	}
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	report, err := h.svc.WorkloadReport(c.Request.Context(), caller, sessionID, c.Query("role"))
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}

	response.OK(c, report)
}

// RebuildLoads 按有效分配重建导师负载
// POST /api/v1/sessions/:id/workload/rebuild
func (h *AllocationHandler) RebuildLoads(c *gin.Context) {
	sessionID, ok := mustParam(c, "id", "实习期ID")
	if !ok {
		return
	}
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	resp, err := h.svc.RebuildLoads(c.Request.Context(), caller, sessionID)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}

	response.OK(c, resp)
}

// ListRuns 自动分配批次记录
// GET /api/v1/sessions/:id/allocation-runs
func (h *AllocationHandler) ListRuns(c *gin.Context) {
	sessionID, ok := mustParam(c, "id", "实习期ID")
	if !ok {
		return
	}
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	runs, err := h.svc.ListRuns(c.Request.Context(), caller, sessionID)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}

	response.OK(c, gin.H{"list": runs})
}
