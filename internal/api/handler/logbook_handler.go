package handler

import (
	"errors"
	"io"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"practicum/backend/internal/dto"
	"practicum/backend/internal/service"
	"practicum/backend/pkg/response"
)

// LogbookHandler 周记 HTTP 处理器
type LogbookHandler struct {
	svc    service.LogbookService
	logger *zap.Logger
}

// NewLogbookHandler 创建 LogbookHandler
func NewLogbookHandler(svc service.LogbookService, logger *zap.Logger) *LogbookHandler {
	return &LogbookHandler{svc: svc, logger: logger}
}

// ListWeeks 学生在实习期内的全部周记
// GET /api/v1/sessions/:id/weeks?student_id=
func (h *LogbookHandler) ListWeeks(c *gin.Context) {
	sessionID, ok := mustParam(c, "id", "实习期ID")
	if !ok {
		return
	}
	var req dto.WeekListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, codeInvalidParams, "student_id 不能为空")
		return
	}
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	weeks, err := h.svc.ListWeeks(c.Request.Context(), caller, sessionID, req.StudentID)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}

	response.OK(c, gin.H{"list": weeks})
}

// GetWeek 周记详情（含每日内容与评语历史）
// GET /api/v1/weeks/:id
func (h *LogbookHandler) GetWeek(c *gin.Context) {
	id, ok := mustParam(c, "id", "周记ID")
	if !ok {
		return
	}
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	week, err := h.svc.GetWeek(c.Request.Context(), caller, id)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}

	response.OK(c, week)
}

// SaveEntry 保存某一天的内容
// PUT /api/v1/weeks/:id/entries
func (h *LogbookHandler) SaveEntry(c *gin.Context) {
	id, ok := mustParam(c, "id", "周记ID")
	if !ok {
		return
	}
	var req dto.SaveEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, codeInvalidParams, "参数校验失败")
		return
	}
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	entry, err := h.svc.SaveEntry(c.Request.Context(), caller, id, &req)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}

	response.OK(c, entry)
}

// RequestReview 学生提交审阅
// POST /api/v1/weeks/:id/review-request
func (h *LogbookHandler) RequestReview(c *gin.Context) {
	id, ok := mustParam(c, "id", "周记ID")
	if !ok {
		return
	}
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	week, err := h.svc.RequestReview(c.Request.Context(), caller, id)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}

	response.OK(c, week)
}

// AddWeeklyComment 导师评语（提交后周记锁定）
// POST /api/v1/weeks/:id/comments
func (h *LogbookHandler) AddWeeklyComment(c *gin.Context) {
	id, ok := mustParam(c, "id", "周记ID")
	if !ok {
		return
	}
	var req dto.WeeklyCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, codeInvalidParams, "参数校验失败")
		return
	}
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	week, err := h.svc.AddWeeklyComment(c.Request.Context(), caller, id, &req)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}

	response.Created(c, week)
}

// LockWeek 导师锁定周记（请求体可省略）
// POST /api/v1/weeks/:id/lock
func (h *LogbookHandler) LockWeek(c *gin.Context) {
	id, ok := mustParam(c, "id", "周记ID")
	if !ok {
		return
	}
	var req dto.LockWeekRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.BadRequest(c, codeInvalidParams, "参数校验失败")
		return
	}
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	week, err := h.svc.LockWeek(c.Request.Context(), caller, id, &req)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}

	response.OK(c, week)
}

// UnlockWeek 校内导师解锁周记
// POST /api/v1/weeks/:id/unlock
func (h *LogbookHandler) UnlockWeek(c *gin.Context) {
	id, ok := mustParam(c, "id", "周记ID")
	if !ok {
		return
	}
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	week, err := h.svc.UnlockWeek(c.Request.Context(), caller, id)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}

	response.OK(c, week)
}
