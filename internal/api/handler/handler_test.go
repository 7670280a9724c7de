package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"practicum/backend/internal/dto"
	"practicum/backend/internal/model"
	"practicum/backend/internal/service"
	"practicum/backend/pkg/response"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// ═══════════════════════════════════════════════════════════
// Mock Services
// ═══════════════════════════════════════════════════════════

// ── Mock AllocationService ──

type mockAllocationService struct {
	manualResult *dto.AssignmentResponse
	manualErr    error
	removeErr    error
	autoResult   *dto.AutoAssignResult
	autoErr      error
	listResult   []dto.AssignmentResponse
	listErr      error
	reportResult *dto.WorkloadReport
	reportErr    error
	rebuildErr   error

	gotCaller model.Caller
	gotRole   string
}

func (m *mockAllocationService) ManualAssign(_ context.Context, caller model.Caller, _ string, _ *dto.ManualAssignRequest) (*dto.AssignmentResponse, error) {
	m.gotCaller = caller
	return m.manualResult, m.manualErr
}
func (m *mockAllocationService) RemoveAssignment(_ context.Context, _ model.Caller, _ string) error {
	return m.removeErr
}
func (m *mockAllocationService) AutoAssign(_ context.Context, _ model.Caller, _ string, req *dto.AutoAssignRequest) (*dto.AutoAssignResult, error) {
	m.gotRole = req.Role
	return m.autoResult, m.autoErr
}
func (m *mockAllocationService) ListAssignments(_ context.Context, _ model.Caller, _ string, _ *dto.AssignmentListRequest) ([]dto.AssignmentResponse, error) {
	return m.listResult, m.listErr
}
func (m *mockAllocationService) WorkloadReport(_ context.Context, _ model.Caller, _ string, role string) (*dto.WorkloadReport, error) {
	m.gotRole = role
	return m.reportResult, m.reportErr
}
func (m *mockAllocationService) RebuildLoads(_ context.Context, _ model.Caller, sessionID string) (*dto.RebuildLoadsResponse, error) {
	return &dto.RebuildLoadsResponse{SessionID: sessionID}, m.rebuildErr
}
func (m *mockAllocationService) ListRuns(_ context.Context, _ model.Caller, _ string) ([]dto.AllocationRunResponse, error) {
	return nil, nil
}

// ── Mock LogbookService ──

type mockLogbookService struct {
	week     *dto.WeekResponse
	err      error
	lockReq  *dto.LockWeekRequest
	lockCall bool
}

func (m *mockLogbookService) SaveEntry(_ context.Context, _ model.Caller, _ string, req *dto.SaveEntryRequest) (*dto.EntryResponse, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &dto.EntryResponse{Day: req.Day, Content: req.Content}, nil
}
func (m *mockLogbookService) RequestReview(_ context.Context, _ model.Caller, _ string) (*dto.WeekResponse, error) {
	return m.week, m.err
}
func (m *mockLogbookService) AddWeeklyComment(_ context.Context, _ model.Caller, _ string, _ *dto.WeeklyCommentRequest) (*dto.WeekResponse, error) {
	return m.week, m.err
}
func (m *mockLogbookService) LockWeek(_ context.Context, _ model.Caller, _ string, req *dto.LockWeekRequest) (*dto.WeekResponse, error) {
	m.lockCall = true
	m.lockReq = req
	return m.week, m.err
}
func (m *mockLogbookService) UnlockWeek(_ context.Context, _ model.Caller, _ string) (*dto.WeekResponse, error) {
	return m.week, m.err
}
func (m *mockLogbookService) GetWeek(_ context.Context, _ model.Caller, _ string) (*dto.WeekResponse, error) {
	return m.week, m.err
}
func (m *mockLogbookService) ListWeeks(_ context.Context, _ model.Caller, _, _ string) ([]dto.WeekResponse, error) {
	if m.err != nil {
		return nil, m.err
	}
	return []dto.WeekResponse{*m.week}, nil
}

// ── Mock EvaluationService ──

type mockEvaluationService struct {
	result *dto.FinalEvaluationResponse
	err    error
}

func (m *mockEvaluationService) AddFinalComment(_ context.Context, _ model.Caller, _ string, _ *dto.CreateFinalEvaluationRequest) (*dto.FinalEvaluationResponse, error) {
	return m.result, m.err
}
func (m *mockEvaluationService) ListFinalEvaluations(_ context.Context, _ model.Caller, _, _ string) ([]dto.FinalEvaluationResponse, error) {
	return nil, m.err
}

// ── Mock RosterService（只覆盖导入路径，其余方法未使用） ──

type mockRosterService struct {
	service.RosterService
	parsedRows []service.StudentImportRow
	importErr  error
}

func (m *mockRosterService) ParseStudentWorkbook(reader io.Reader) ([]service.StudentImportRow, error) {
	f, err := excelize.OpenReader(reader)
	if err != nil {
		return nil, service.ErrImportUnreadable
	}
	defer f.Close()
	rows, _ := f.GetRows(f.GetSheetName(0))
	for i := 1; i < len(rows); i++ {
		m.parsedRows = append(m.parsedRows, service.StudentImportRow{Row: i + 1, MatricNo: rows[i][0]})
	}
	return m.parsedRows, nil
}
func (m *mockRosterService) ImportStudents(_ context.Context, _ model.Caller, rows []service.StudentImportRow) (*dto.ImportResult, error) {
	if m.importErr != nil {
		return nil, m.importErr
	}
	manifest := dto.NewManifest[dto.RosterItem]()
	for _, r := range rows {
		manifest.Succeed(dto.RosterItem{Index: r.Row, Key: r.MatricNo})
	}
	return &dto.ImportResult{Rows: len(rows), Manifest: manifest}, nil
}

// ═══════════════════════════════════════════════════════════
// Test Helpers
// ═══════════════════════════════════════════════════════════

func setupGin() (*gin.Engine, *gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, r := gin.CreateTestContext(w)
	return r, c, w
}

// withCaller 模拟 JWTAuth 中间件注入身份
func withCaller(userID string, role model.CallerRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(CtxUserID, userID)
		c.Set(CtxRole, role)
		c.Next()
	}
}

func adminAuth() gin.HandlerFunc { return withCaller("admin-id", model.RoleAdmin) }

func jsonBody(v interface{}) io.Reader {
	b, _ := json.Marshal(v)
	return bytes.NewReader(b)
}

type testResponse struct {
	response.Response
	Data json.RawMessage `json:"data,omitempty"`
}

func parseResponse(w *httptest.ResponseRecorder) testResponse {
	var resp testResponse
	json.Unmarshal(w.Body.Bytes(), &resp)
	return resp
}

// ═══════════════════════════════════════════════════════════
// 错误类别映射
// ═══════════════════════════════════════════════════════════

func TestHandler_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   int
		wantKind   string
	}{
		{"NotFound", service.ErrStudentNotFound, 404, codeNotFound, "NotFound"},
		{"Forbidden", service.ErrAdminOnly, 403, codeForbidden, "Forbidden"},
		{"InvalidState", service.ErrSessionClosed, 409, codeInvalidState, "InvalidState"},
		{"Duplicate", service.ErrDuplicateAssignment, 409, codeDuplicateAssignment, "DuplicateAssignment"},
		{"Capacity", service.ErrCapacityExceeded, 409, codeCapacityExceeded, "CapacityExceeded"},
		{"Ineligible", service.ErrIneligibleSupervisor, 422, codeIneligibleSupervisor, "IneligibleSupervisor"},
		{"InvalidInput", service.ErrInvalidRole, 400, codeInvalidParams, "InvalidInput"},
		{"Conflict", service.ErrBatchInProgress, 409, codeConflict, "Conflict"},
		{"InternalError", errors.New("connection reset"), 500, 50000, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &mockAllocationService{manualErr: tt.err}
			h := NewAllocationHandler(mock, zap.NewNop())

			_, _, w := setupGin()
			req := httptest.NewRequest("POST", "/sessions/s1/assignments", jsonBody(dto.ManualAssignRequest{
				StudentID:    "6f1c1c2e-7f0a-4d7e-9a55-0c7d3f8f1a01",
				SupervisorID: "6f1c1c2e-7f0a-4d7e-9a55-0c7d3f8f1a02",
				Role:         "school",
			}))
			req.Header.Set("Content-Type", "application/json")

			r := gin.New()
			r.POST("/sessions/:id/assignments", adminAuth(), h.ManualAssign)
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, w.Code)
			}
			resp := parseResponse(w)
			if resp.Code != tt.wantCode {
				t.Errorf("expected code %d, got %d", tt.wantCode, resp.Code)
			}
			if resp.Kind != tt.wantKind {
				t.Errorf("expected kind %q, got %q", tt.wantKind, resp.Kind)
			}
			if tt.wantStatus == 500 && resp.Message != "服务器内部错误" {
				t.Errorf("基础设施错误细节不应外泄，got %q", resp.Message)
			}
		})
	}
}

// ═══════════════════════════════════════════════════════════
// AllocationHandler Tests
// ═══════════════════════════════════════════════════════════

func TestAllocationHandler_ManualAssign_Success(t *testing.T) {
	mock := &mockAllocationService{manualResult: &dto.AssignmentResponse{ID: "a1", Role: "school"}}
	h := NewAllocationHandler(mock, zap.NewNop())

	_, _, w := setupGin()
	req := httptest.NewRequest("POST", "/sessions/s1/assignments", jsonBody(dto.ManualAssignRequest{
		StudentID:    "6f1c1c2e-7f0a-4d7e-9a55-0c7d3f8f1a01",
		SupervisorID: "6f1c1c2e-7f0a-4d7e-9a55-0c7d3f8f1a02",
		Role:         "school",
	}))
	req.Header.Set("Content-Type", "application/json")

	r := gin.New()
	r.POST("/sessions/:id/assignments", adminAuth(), h.ManualAssign)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", w.Code)
	}
	if mock.gotCaller.Role != model.RoleAdmin || mock.gotCaller.UserID != "admin-id" {
		t.Errorf("调用方身份未正确传递: %+v", mock.gotCaller)
	}
}

func TestAllocationHandler_ManualAssign_BadRole(t *testing.T) {
	h := NewAllocationHandler(&mockAllocationService{}, zap.NewNop())

	_, _, w := setupGin()
	req := httptest.NewRequest("POST", "/sessions/s1/assignments", jsonBody(map[string]string{
		"student_id":    "6f1c1c2e-7f0a-4d7e-9a55-0c7d3f8f1a01",
		"supervisor_id": "6f1c1c2e-7f0a-4d7e-9a55-0c7d3f8f1a02",
		"role":          "mentor",
	}))
	req.Header.Set("Content-Type", "application/json")

	r := gin.New()
	r.POST("/sessions/:id/assignments", adminAuth(), h.ManualAssign)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestAllocationHandler_Unauthenticated(t *testing.T) {
	h := NewAllocationHandler(&mockAllocationService{}, zap.NewNop())

	_, _, w := setupGin()
	req := httptest.NewRequest("DELETE", "/assignments/a1", nil)

	r := gin.New()
	r.DELETE("/assignments/:id", h.RemoveAssignment)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
}

func TestAllocationHandler_AutoAssign_Manifest(t *testing.T) {
	manifest := dto.NewManifest[dto.AutoAssignItem]()
	manifest.Succeed(dto.AutoAssignItem{StudentID: "st1", SupervisorID: "sv1"})
	manifest.Fail(dto.AutoAssignItem{StudentID: "st2"}, "NoEligibleSupervisor", "没有符合条件的导师")
	mock := &mockAllocationService{autoResult: &dto.AutoAssignResult{RunID: "r1", Manifest: manifest}}
	h := NewAllocationHandler(mock, zap.NewNop())

	_, _, w := setupGin()
	req := httptest.NewRequest("POST", "/sessions/s1/assignments/auto", jsonBody(dto.AutoAssignRequest{Role: "industry"}))
	req.Header.Set("Content-Type", "application/json")

	r := gin.New()
	r.POST("/sessions/:id/assignments/auto", adminAuth(), h.AutoAssign)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if mock.gotRole != "industry" {
		t.Errorf("expected role industry, got %s", mock.gotRole)
	}

	var data map[string]any
	if err := json.Unmarshal(parseResponse(w).Data, &data); err != nil {
		t.Fatalf("解析 data 失败: %v", err)
	}
	for _, key := range []string{"succeeded", "failed", "successCount", "failureCount", "run_id"} {
		if _, ok := data[key]; !ok {
			t.Errorf("清单缺少字段 %s", key)
		}
	}
	if data["successCount"] != float64(1) || data["failureCount"] != float64(1) {
		t.Errorf("计数错误: %v / %v", data["successCount"], data["failureCount"])
	}
}

func TestAllocationHandler_WorkloadReport_RoleQuery(t *testing.T) {
	mock := &mockAllocationService{reportResult: &dto.WorkloadReport{Consistent: true}}
	h := NewAllocationHandler(mock, zap.NewNop())

	_, _, w := setupGin()
	req := httptest.NewRequest("GET", "/sessions/s1/workload?role=school", nil)

	r := gin.New()
	r.GET("/sessions/:id/workload", adminAuth(), h.WorkloadReport)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	if mock.gotRole != "school" {
		t.Errorf("expected role school, got %q", mock.gotRole)
	}
}

// ═══════════════════════════════════════════════════════════
// LogbookHandler Tests
// ═══════════════════════════════════════════════════════════

func TestLogbookHandler_LockWeek_EmptyBody(t *testing.T) {
	mock := &mockLogbookService{week: &dto.WeekResponse{ID: "w1", Status: "locked"}}
	h := NewLogbookHandler(mock, zap.NewNop())

	_, _, w := setupGin()
	req := httptest.NewRequest("POST", "/weeks/w1/lock", nil)

	r := gin.New()
	r.POST("/weeks/:id/lock", withCaller("sv1", model.RoleSchoolSupervisor), h.LockWeek)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	if !mock.lockCall {
		t.Error("expected LockWeek to be called")
	}
}

func TestLogbookHandler_AddWeeklyComment_InvalidState(t *testing.T) {
	mock := &mockLogbookService{err: service.ErrInvalidTransition}
	h := NewLogbookHandler(mock, zap.NewNop())

	_, _, w := setupGin()
	req := httptest.NewRequest("POST", "/weeks/w1/comments", jsonBody(dto.WeeklyCommentRequest{Text: "很好"}))
	req.Header.Set("Content-Type", "application/json")

	r := gin.New()
	r.POST("/weeks/:id/comments", withCaller("sv1", model.RoleIndustrySupervisor), h.AddWeeklyComment)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d", w.Code)
	}
	if resp := parseResponse(w); resp.Kind != "InvalidState" {
		t.Errorf("expected kind InvalidState, got %q", resp.Kind)
	}
}

func TestLogbookHandler_SaveEntry_DayOutOfRange(t *testing.T) {
	h := NewLogbookHandler(&mockLogbookService{}, zap.NewNop())

	_, _, w := setupGin()
	req := httptest.NewRequest("PUT", "/weeks/w1/entries", jsonBody(dto.SaveEntryRequest{Day: 8, Content: "x"}))
	req.Header.Set("Content-Type", "application/json")

	r := gin.New()
	r.PUT("/weeks/:id/entries", withCaller("st1", model.RoleStudent), h.SaveEntry)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestLogbookHandler_ListWeeks_RequiresStudentID(t *testing.T) {
	h := NewLogbookHandler(&mockLogbookService{week: &dto.WeekResponse{}}, zap.NewNop())

	_, _, w := setupGin()
	req := httptest.NewRequest("GET", "/sessions/s1/weeks", nil)

	r := gin.New()
	r.GET("/sessions/:id/weeks", adminAuth(), h.ListWeeks)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

// ═══════════════════════════════════════════════════════════
// EvaluationHandler Tests
// ═══════════════════════════════════════════════════════════

func TestEvaluationHandler_AddFinalComment(t *testing.T) {
	tests := []struct {
		name       string
		body       interface{}
		err        error
		wantStatus int
	}{
		{"success", map[string]any{"student_id": "6f1c1c2e-7f0a-4d7e-9a55-0c7d3f8f1a01", "comment": "优秀", "rating": 0}, nil, 201},
		{"missing_rating", map[string]any{"student_id": "6f1c1c2e-7f0a-4d7e-9a55-0c7d3f8f1a01", "comment": "优秀"}, nil, 400},
		{"duplicate", map[string]any{"student_id": "6f1c1c2e-7f0a-4d7e-9a55-0c7d3f8f1a01", "comment": "优秀", "rating": 90}, service.ErrDuplicateEvaluation, 409},
		{"forbidden", map[string]any{"student_id": "6f1c1c2e-7f0a-4d7e-9a55-0c7d3f8f1a01", "comment": "优秀", "rating": 90}, service.ErrNotAssigned, 403},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &mockEvaluationService{result: &dto.FinalEvaluationResponse{ID: "e1"}, err: tt.err}
			h := NewEvaluationHandler(mock, zap.NewNop())

			_, _, w := setupGin()
			req := httptest.NewRequest("POST", "/sessions/s1/evaluations", jsonBody(tt.body))
			req.Header.Set("Content-Type", "application/json")

			r := gin.New()
			r.POST("/sessions/:id/evaluations", withCaller("sv1", model.RoleSchoolSupervisor), h.AddFinalComment)
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("expected %d, got %d", tt.wantStatus, w.Code)
			}
		})
	}
}

// ═══════════════════════════════════════════════════════════
// RosterHandler Tests
// ═══════════════════════════════════════════════════════════

func TestRosterHandler_ImportStudents(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	f.SetCellValue(sheet, "A1", "学号")
	f.SetCellValue(sheet, "A2", "2025001")
	f.SetCellValue(sheet, "A3", "2025002")
	xlsx, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("生成 xlsx 失败: %v", err)
	}
	f.Close()

	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	part, _ := mw.CreateFormFile("file", "students.xlsx")
	part.Write(xlsx.Bytes())
	mw.Close()

	mock := &mockRosterService{}
	h := NewRosterHandler(mock, zap.NewNop())

	_, _, w := setupGin()
	req := httptest.NewRequest("POST", "/students/import", body)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	r := gin.New()
	r.POST("/students/import", adminAuth(), h.ImportStudents)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if len(mock.parsedRows) != 2 {
		t.Errorf("expected 2 parsed rows, got %d", len(mock.parsedRows))
	}
	var result map[string]any
	json.Unmarshal(parseResponse(w).Data, &result)
	if result["rows"] != float64(2) || result["successCount"] != float64(2) {
		t.Errorf("导入结果不符: %v", result)
	}
}

func TestRosterHandler_ImportStudents_MissingFile(t *testing.T) {
	h := NewRosterHandler(&mockRosterService{}, zap.NewNop())

	_, _, w := setupGin()
	req := httptest.NewRequest("POST", "/students/import", nil)

	r := gin.New()
	r.POST("/students/import", adminAuth(), h.ImportStudents)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}
