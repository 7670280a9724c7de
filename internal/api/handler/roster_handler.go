package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"practicum/backend/internal/dto"
	"practicum/backend/internal/service"
	"practicum/backend/pkg/response"
)

// RosterHandler 学生与导师名册 HTTP 处理器
type RosterHandler struct {
	svc    service.RosterService
	logger *zap.Logger
}

// NewRosterHandler 创建 RosterHandler
func NewRosterHandler(svc service.RosterService, logger *zap.Logger) *RosterHandler {
	return &RosterHandler{svc: svc, logger: logger}
}

// ──────────────────────────── 学生 ────────────────────────────

// CreateStudent 创建学生
// POST /api/v1/students
func (h *RosterHandler) CreateStudent(c *gin.Context) {
	var req dto.CreateStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, codeInvalidParams, "参数校验失败")
		return
	}
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	student, err := h.svc.CreateStudent(c.Request.Context(), caller, &req)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}

	response.Created(c, student)
}

// BatchCreateStudents 批量创建学生
// POST /api/v1/students/batch
func (h *RosterHandler) BatchCreateStudents(c *gin.Context) {
	var req dto.BatchCreateStudentsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, codeInvalidParams, "参数校验失败")
		return
	}
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	manifest, err := h.svc.BatchCreateStudents(c.Request.Context(), caller, &req)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}

	response.OK(c, manifest)
}

// ImportStudents 从 Excel 导入学生
// POST /api/v1/students/import (multipart/form-data, field="file")
func (h *RosterHandler) ImportStudents(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}
	file, _, err := c.Request.FormFile("file")
	if err != nil {
		response.BadRequest(c, codeInvalidParams, "请上传 xlsx 文件")
		return
	}
	defer file.Close()

	rows, err := h.svc.ParseStudentWorkbook(file)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}
	result, err := h.svc.ImportStudents(c.Request.Context(), caller, rows)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}

	response.OK(c, result)
}

// ListStudents 学生分页列表
// GET /api/v1/students?department_id=&page=&page_size=
func (h *RosterHandler) ListStudents(c *gin.Context) {
	var req dto.StudentListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, codeInvalidParams, "参数校验失败")
		return
	}
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	page, err := h.svc.ListStudents(c.Request.Context(), caller, &req)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}

	response.OKPage(c, page.Items, page.Total, page.Page, page.PageSize)
}

// GetStudent 学生详情（管理员、本人、分配过的导师）
// GET /api/v1/students/:id
func (h *RosterHandler) GetStudent(c *gin.Context) {
	id, ok := mustParam(c, "id", "学生ID")
	if !ok {
		return
	}
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	student, err := h.svc.GetStudent(c.Request.Context(), caller, id)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}

	response.OK(c, student)
}

// ──────────────────────────── 导师 ────────────────────────────

// CreateSupervisor 创建导师
// POST /api/v1/supervisors
func (h *RosterHandler) CreateSupervisor(c *gin.Context) {
	var req dto.CreateSupervisorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, codeInvalidParams, "参数校验失败")
		return
	}
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	supervisor, err := h.svc.CreateSupervisor(c.Request.Context(), caller, &req)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}

	response.Created(c, supervisor)
}

// BatchCreateSupervisors 批量创建导师
// POST /api/v1/supervisors/batch
func (h *RosterHandler) BatchCreateSupervisors(c *gin.Context) {
	var req dto.BatchCreateSupervisorsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, codeInvalidParams, "参数校验失败")
		return
	}
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	manifest, err := h.svc.BatchCreateSupervisors(c.Request.Context(), caller, &req)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}

	response.OK(c, manifest)
}

// ImportSupervisors 从 Excel 导入导师
// POST /api/v1/supervisors/import (multipart/form-data, field="file")
func (h *RosterHandler) ImportSupervisors(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}
	file, _, err := c.Request.FormFile("file")
	if err != nil {
		response.BadRequest(c, codeInvalidParams, "请上传 xlsx 文件")
		return
	}
	defer file.Close()

	rows, err := h.svc.ParseSupervisorWorkbook(file)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}
	result, err := h.svc.ImportSupervisors(c.Request.Context(), caller, rows)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}

	response.OK(c, result)
}

// ListSupervisors 导师列表
// GET /api/v1/supervisors?role=
func (h *RosterHandler) ListSupervisors(c *gin.Context) {
	var req dto.SupervisorListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, codeInvalidParams, "参数校验失败")
		return
	}
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	list, err := h.svc.ListSupervisors(c.Request.Context(), caller, &req)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}

	response.OK(c, gin.H{"list": list})
}

// DeactivateSupervisor 停用导师
// POST /api/v1/supervisors/:id/deactivate
func (h *RosterHandler) DeactivateSupervisor(c *gin.Context) {
	id, ok := mustParam(c, "id", "导师ID")
	if !ok {
		return
	}
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	supervisor, err := h.svc.DeactivateSupervisor(c.Request.Context(), caller, id)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}

	response.OK(c, supervisor)
}

// UpdateSupervisorCapacity 调整导师容量
// PUT /api/v1/supervisors/:id/capacity
func (h *RosterHandler) UpdateSupervisorCapacity(c *gin.Context) {
	id, ok := mustParam(c, "id", "导师ID")
	if !ok {
		return
	}
	var req dto.UpdateCapacityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, codeInvalidParams, "参数校验失败")
		return
	}
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	supervisor, err := h.svc.UpdateSupervisorCapacity(c.Request.Context(), caller, id, &req)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}

	response.OK(c, supervisor)
}
