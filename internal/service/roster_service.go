package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"practicum/backend/internal/dto"
	"practicum/backend/internal/model"
	"practicum/backend/internal/repository"
	pkgerrors "practicum/backend/pkg/errors"
)

// RosterService 学生与导师名册业务接口
//
// 批量创建逐行独立提交，单行失败记入清单，不影响其余行。
type RosterService interface {
	CreateStudent(ctx context.Context, caller model.Caller, req *dto.CreateStudentRequest) (*dto.StudentResponse, error)
	BatchCreateStudents(ctx context.Context, caller model.Caller, req *dto.BatchCreateStudentsRequest) (*dto.Manifest[dto.RosterItem], error)
	GetStudent(ctx context.Context, caller model.Caller, studentID string) (*dto.StudentResponse, error)
	ListStudents(ctx context.Context, caller model.Caller, req *dto.StudentListRequest) (*dto.StudentListResponse, error)

	CreateSupervisor(ctx context.Context, caller model.Caller, req *dto.CreateSupervisorRequest) (*dto.SupervisorResponse, error)
	BatchCreateSupervisors(ctx context.Context, caller model.Caller, req *dto.BatchCreateSupervisorsRequest) (*dto.Manifest[dto.RosterItem], error)
	ListSupervisors(ctx context.Context, caller model.Caller, req *dto.SupervisorListRequest) ([]dto.SupervisorResponse, error)
	DeactivateSupervisor(ctx context.Context, caller model.Caller, supervisorID string) (*dto.SupervisorResponse, error)
	UpdateSupervisorCapacity(ctx context.Context, caller model.Caller, supervisorID string, req *dto.UpdateCapacityRequest) (*dto.SupervisorResponse, error)

	ParseStudentWorkbook(reader io.Reader) ([]StudentImportRow, error)
	ParseSupervisorWorkbook(reader io.Reader) ([]SupervisorImportRow, error)
	ImportStudents(ctx context.Context, caller model.Caller, rows []StudentImportRow) (*dto.ImportResult, error)
	ImportSupervisors(ctx context.Context, caller model.Caller, rows []SupervisorImportRow) (*dto.ImportResult, error)
}

// StudentImportRow 学生导入表解析后的单行
type StudentImportRow struct {
	Row              int
	Name             string
	MatricNo         string
	Email            string
	DepartmentName   string
	OrganizationName string
}

// SupervisorImportRow 导师导入表解析后的单行
type SupervisorImportRow struct {
	Row              int
	Name             string
	Email            string
	Role             string
	DepartmentName   string
	OrganizationName string
	Capacity         string
}

type rosterService struct {
	repo          *repository.Repository
	maxImportRows int
	logger        *zap.Logger
}

// NewRosterService 创建 RosterService 实例
func NewRosterService(repo *repository.Repository, maxImportRows int, logger *zap.Logger) RosterService {
	if maxImportRows <= 0 {
		maxImportRows = 1000
	}
	return &rosterService{repo: repo, maxImportRows: maxImportRows, logger: logger}
}

// ────────────────────── 学生 ──────────────────────

func (s *rosterService) CreateStudent(ctx context.Context, caller model.Caller, req *dto.CreateStudentRequest) (*dto.StudentResponse, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	student, err := s.createStudent(ctx, caller, req)
	if err != nil {
		return nil, err
	}
	return toStudentResponse(student), nil
}

func (s *rosterService) BatchCreateStudents(ctx context.Context, caller model.Caller, req *dto.BatchCreateStudentsRequest) (*dto.Manifest[dto.RosterItem], error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}

	manifest := dto.NewManifest[dto.RosterItem]()
	for i := range req.Students {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		item := dto.RosterItem{Index: i, Key: req.Students[i].MatricNo}
		student, err := s.createStudent(ctx, caller, &req.Students[i])
		if err != nil {
			manifest.Fail(item, failureReason(err), err.Error())
			continue
		}
		item.ID = student.StudentID
		manifest.Succeed(item)
	}
	return manifest, nil
}

func (s *rosterService) createStudent(ctx context.Context, caller model.Caller, req *dto.CreateStudentRequest) (*model.Student, error) {
	name := strings.TrimSpace(req.Name)
	matricNo := strings.TrimSpace(req.MatricNo)
	if name == "" || matricNo == "" {
		return nil, pkgerrors.New(pkgerrors.KindInvalidInput, "姓名和学号不能为空")
	}
	if req.DepartmentID == "" {
		return nil, ErrDepartmentNotFound
	}
	if _, err := s.repo.Department.GetByID(ctx, req.DepartmentID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDepartmentNotFound
		}
		return nil, err
	}
	orgID, err := s.optionalOrganization(ctx, req.OrganizationID)
	if err != nil {
		return nil, err
	}
	if _, err := s.repo.Student.GetByMatricNo(ctx, matricNo); err == nil {
		return nil, ErrMatricNoExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	student := &model.Student{
		Name:           name,
		MatricNo:       matricNo,
		Email:          strings.TrimSpace(req.Email),
		DepartmentID:   req.DepartmentID,
		OrganizationID: orgID,
	}
	student.CreatedBy = &caller.UserID
	student.UpdatedBy = &caller.UserID

	if err := s.repo.Student.Create(ctx, student); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrMatricNoExists
		}
		s.logger.Error("创建学生失败", zap.String("matric_no", matricNo), zap.Error(err))
		return nil, err
	}
	return student, nil
}

// GetStudent 管理员、学生本人或曾被分配给该学生的导师可查看
func (s *rosterService) GetStudent(ctx context.Context, caller model.Caller, studentID string) (*dto.StudentResponse, error) {
	if studentID == "" {
		return nil, ErrInvalidID
	}
	student, err := s.repo.Student.GetByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrStudentNotFound
		}
		return nil, err
	}

	switch caller.Role {
	case model.RoleAdmin:
	case model.RoleStudent:
		if caller.UserID != studentID {
			return nil, ErrNoRelationship
		}
	case model.RoleSchoolSupervisor, model.RoleIndustrySupervisor:
		ok, err := s.repo.Assignment.HasAnyForStudent(ctx, studentID, caller.UserID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrNoRelationship
		}
	default:
		return nil, ErrNoRelationship
	}

	return toStudentResponse(student), nil
}

func (s *rosterService) ListStudents(ctx context.Context, caller model.Caller, req *dto.StudentListRequest) (*dto.StudentListResponse, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}

	students, total, err := s.repo.Student.List(ctx, req.DepartmentID, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("列出学生失败", zap.Error(err))
		return nil, err
	}

	items := make([]dto.StudentResponse, 0, len(students))
	for i := range students {
		items = append(items, *toStudentResponse(&students[i]))
	}
	return &dto.StudentListResponse{
		Items:    items,
		Total:    total,
		Page:     req.GetPage(),
		PageSize: req.GetPageSize(),
	}, nil
}

// ────────────────────── 导师 ──────────────────────

func (s *rosterService) CreateSupervisor(ctx context.Context, caller model.Caller, req *dto.CreateSupervisorRequest) (*dto.SupervisorResponse, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	supervisor, err := s.createSupervisor(ctx, caller, req)
	if err != nil {
		return nil, err
	}
	return toSupervisorResponse(supervisor), nil
}

func (s *rosterService) BatchCreateSupervisors(ctx context.Context, caller model.Caller, req *dto.BatchCreateSupervisorsRequest) (*dto.Manifest[dto.RosterItem], error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}

	manifest := dto.NewManifest[dto.RosterItem]()
	for i := range req.Supervisors {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		item := dto.RosterItem{Index: i, Key: req.Supervisors[i].Email}
		supervisor, err := s.createSupervisor(ctx, caller, &req.Supervisors[i])
		if err != nil {
			manifest.Fail(item, failureReason(err), err.Error())
			continue
		}
		item.ID = supervisor.SupervisorID
		manifest.Succeed(item)
	}
	return manifest, nil
}

func (s *rosterService) createSupervisor(ctx context.Context, caller model.Caller, req *dto.CreateSupervisorRequest) (*model.Supervisor, error) {
	role, err := model.ParseSupervisorRole(req.Role)
	if err != nil {
		return nil, ErrInvalidRole
	}
	name := strings.TrimSpace(req.Name)
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if name == "" || email == "" {
		return nil, pkgerrors.New(pkgerrors.KindInvalidInput, "姓名和邮箱不能为空")
	}
	if req.Capacity < 0 {
		return nil, ErrInvalidCapacity
	}

	var deptID *string
	switch role {
	case model.SupervisorRoleSchool:
		if req.DepartmentID == "" {
			return nil, ErrSchoolNeedsDepartment
		}
		if _, err := s.repo.Department.GetByID(ctx, req.DepartmentID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrDepartmentNotFound
			}
			return nil, err
		}
		id := req.DepartmentID
		deptID = &id
	case model.SupervisorRoleIndustry:
		// 企业导师不受院系约束
	}
	orgID, err := s.optionalOrganization(ctx, req.OrganizationID)
	if err != nil {
		return nil, err
	}

	if _, err := s.repo.Supervisor.GetByEmail(ctx, email); err == nil {
		return nil, ErrSupervisorEmailExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	supervisor := &model.Supervisor{
		Name:           name,
		Email:          email,
		Role:           role,
		DepartmentID:   deptID,
		OrganizationID: orgID,
		Capacity:       req.Capacity,
		IsActive:       true,
	}
	supervisor.CreatedBy = &caller.UserID
	supervisor.UpdatedBy = &caller.UserID

	if err := s.repo.Supervisor.Create(ctx, supervisor); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrSupervisorEmailExists
		}
		s.logger.Error("创建导师失败", zap.String("email", email), zap.Error(err))
		return nil, err
	}
	return supervisor, nil
}

func (s *rosterService) ListSupervisors(ctx context.Context, caller model.Caller, req *dto.SupervisorListRequest) ([]dto.SupervisorResponse, error) {
	var role model.SupervisorRole
	if req != nil && req.Role != "" {
		r, err := model.ParseSupervisorRole(req.Role)
		if err != nil {
			return nil, ErrInvalidRole
		}
		role = r
	}
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}

	supervisors, err := s.repo.Supervisor.List(ctx, role)
	if err != nil {
		return nil, err
	}
	result := make([]dto.SupervisorResponse, 0, len(supervisors))
	for i := range supervisors {
		result = append(result, *toSupervisorResponse(&supervisors[i]))
	}
	return result, nil
}

// DeactivateSupervisor 停用导师：已有分配保留，之后不再参与分配
func (s *rosterService) DeactivateSupervisor(ctx context.Context, caller model.Caller, supervisorID string) (*dto.SupervisorResponse, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	supervisor, err := s.getSupervisor(ctx, supervisorID)
	if err != nil {
		return nil, err
	}
	if !supervisor.IsActive {
		return nil, ErrSupervisorInactive
	}

	if err := s.repo.Supervisor.Deactivate(ctx, supervisor, caller.UserID); err != nil {
		if errors.Is(err, pkgerrors.ErrOptimisticLock) {
			return nil, ErrConcurrentWrite
		}
		s.logger.Error("停用导师失败", zap.String("supervisor_id", supervisorID), zap.Error(err))
		return nil, err
	}

	s.logger.Info("导师已停用", zap.String("supervisor_id", supervisorID))
	return toSupervisorResponse(supervisor), nil
}

// UpdateSupervisorCapacity 调整容量，不得低于该导师在任一实习期的当前负载
func (s *rosterService) UpdateSupervisorCapacity(ctx context.Context, caller model.Caller, supervisorID string, req *dto.UpdateCapacityRequest) (*dto.SupervisorResponse, error) {
	if req.Capacity < 0 {
		return nil, ErrInvalidCapacity
	}
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	if _, err := s.getSupervisor(ctx, supervisorID); err != nil {
		return nil, err
	}

	// 锁定导师行后再读负载：进行中的名额占用持有共享锁，提交后其负载才可见
	var supervisor *model.Supervisor
	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		var err error
		supervisor, err = tx.Supervisor.GetForUpdate(ctx, supervisorID)
		if err != nil {
			return err
		}
		maxLoad, err := tx.Load.MaxLoad(ctx, supervisorID)
		if err != nil {
			return err
		}
		if req.Capacity < maxLoad {
			return fmt.Errorf("%w: 当前最大负载 %d", ErrCapacityBelowLoad, maxLoad)
		}
		return tx.Supervisor.UpdateCapacity(ctx, supervisor, req.Capacity, caller.UserID)
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrCapacityBelowLoad):
			return nil, err
		case errors.Is(err, gorm.ErrRecordNotFound):
			return nil, ErrSupervisorNotFound
		case errors.Is(err, pkgerrors.ErrOptimisticLock):
			return nil, ErrConcurrentWrite
		}
		s.logger.Error("调整导师容量失败", zap.String("supervisor_id", supervisorID), zap.Error(err))
		return nil, err
	}

	s.logger.Info("导师容量已调整",
		zap.String("supervisor_id", supervisorID),
		zap.Int("capacity", req.Capacity),
	)
	return toSupervisorResponse(supervisor), nil
}

// ────────────────────── Excel 导入 ──────────────────────

var studentHeaders = map[string][]string{
	"name":         {"姓名", "name"},
	"matric_no":    {"学号", "matric_no"},
	"email":        {"邮箱", "email"},
	"department":   {"院系", "department"},
	"organization": {"实习单位", "organization"},
}

var supervisorHeaders = map[string][]string{
	"name":         {"姓名", "name"},
	"email":        {"邮箱", "email"},
	"role":         {"类别", "role"},
	"department":   {"院系", "department"},
	"organization": {"实习单位", "organization"},
	"capacity":     {"容量", "capacity"},
}

// ParseStudentWorkbook 解析学生导入表（第一个工作表，第一行为表头，列序不限）
func (s *rosterService) ParseStudentWorkbook(reader io.Reader) ([]StudentImportRow, error) {
	excelRows, err := readFirstSheet(reader)
	if err != nil {
		return nil, err
	}

	colIndex := parseHeaderIndex(excelRows[0], studentHeaders)
	if colIndex["name"] < 0 || colIndex["matric_no"] < 0 || colIndex["department"] < 0 {
		return nil, ErrImportBadHeader
	}

	var rows []StudentImportRow
	for i := 1; i < len(excelRows); i++ {
		row := excelRows[i]
		item := StudentImportRow{
			Row:              i + 1,
			Name:             cell(row, colIndex["name"]),
			MatricNo:         cell(row, colIndex["matric_no"]),
			Email:            cell(row, colIndex["email"]),
			DepartmentName:   cell(row, colIndex["department"]),
			OrganizationName: cell(row, colIndex["organization"]),
		}
		// 跳过全空行
		if item.Name == "" && item.MatricNo == "" && item.Email == "" && item.DepartmentName == "" && item.OrganizationName == "" {
			continue
		}
		rows = append(rows, item)
	}

	if len(rows) == 0 {
		return nil, ErrImportNoData
	}
	if len(rows) > s.maxImportRows {
		return nil, fmt.Errorf("%w（%d 行）", ErrImportTooManyRows, s.maxImportRows)
	}
	return rows, nil
}

// ParseSupervisorWorkbook 解析导师导入表
func (s *rosterService) ParseSupervisorWorkbook(reader io.Reader) ([]SupervisorImportRow, error) {
	excelRows, err := readFirstSheet(reader)
	if err != nil {
		return nil, err
	}

	colIndex := parseHeaderIndex(excelRows[0], supervisorHeaders)
	if colIndex["name"] < 0 || colIndex["email"] < 0 || colIndex["role"] < 0 || colIndex["capacity"] < 0 {
		return nil, ErrImportBadHeader
	}

	var rows []SupervisorImportRow
	for i := 1; i < len(excelRows); i++ {
		row := excelRows[i]
		item := SupervisorImportRow{
			Row:              i + 1,
			Name:             cell(row, colIndex["name"]),
			Email:            cell(row, colIndex["email"]),
			Role:             cell(row, colIndex["role"]),
			DepartmentName:   cell(row, colIndex["department"]),
			OrganizationName: cell(row, colIndex["organization"]),
			Capacity:         cell(row, colIndex["capacity"]),
		}
		if item.Name == "" && item.Email == "" && item.Role == "" && item.Capacity == "" {
			continue
		}
		rows = append(rows, item)
	}

	if len(rows) == 0 {
		return nil, ErrImportNoData
	}
	if len(rows) > s.maxImportRows {
		return nil, fmt.Errorf("%w（%d 行）", ErrImportTooManyRows, s.maxImportRows)
	}
	return rows, nil
}

// ImportStudents 按名称解析院系与实习单位后逐行创建
func (s *rosterService) ImportStudents(ctx context.Context, caller model.Caller, rows []StudentImportRow) (*dto.ImportResult, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}

	names := newNameResolver(s.repo)
	manifest := dto.NewManifest[dto.RosterItem]()
	for _, row := range rows {
		item := dto.RosterItem{Index: row.Row, Key: row.MatricNo}

		req := &dto.CreateStudentRequest{
			Name:     row.Name,
			MatricNo: row.MatricNo,
			Email:    row.Email,
		}
		deptID, err := names.department(ctx, row.DepartmentName)
		if err == nil && row.OrganizationName != "" {
			req.OrganizationID, err = names.organization(ctx, row.OrganizationName)
		}
		if err != nil {
			manifest.Fail(item, failureReason(err), err.Error())
			continue
		}
		req.DepartmentID = deptID

		student, err := s.createStudent(ctx, caller, req)
		if err != nil {
			manifest.Fail(item, failureReason(err), err.Error())
			continue
		}
		item.ID = student.StudentID
		manifest.Succeed(item)
	}

	s.logger.Info("学生导入完成",
		zap.Int("rows", len(rows)),
		zap.Int("succeeded", manifest.SuccessCount),
		zap.Int("failed", manifest.FailureCount),
	)
	return &dto.ImportResult{Rows: len(rows), Manifest: manifest}, nil
}

// ImportSupervisors 按名称解析院系与实习单位后逐行创建
func (s *rosterService) ImportSupervisors(ctx context.Context, caller model.Caller, rows []SupervisorImportRow) (*dto.ImportResult, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}

	names := newNameResolver(s.repo)
	manifest := dto.NewManifest[dto.RosterItem]()
	for _, row := range rows {
		item := dto.RosterItem{Index: row.Row, Key: row.Email}

		req, err := s.supervisorRequestFromRow(ctx, names, row)
		if err != nil {
			manifest.Fail(item, failureReason(err), err.Error())
			continue
		}
		supervisor, err := s.createSupervisor(ctx, caller, req)
		if err != nil {
			manifest.Fail(item, failureReason(err), err.Error())
			continue
		}
		item.ID = supervisor.SupervisorID
		manifest.Succeed(item)
	}

	s.logger.Info("导师导入完成",
		zap.Int("rows", len(rows)),
		zap.Int("succeeded", manifest.SuccessCount),
		zap.Int("failed", manifest.FailureCount),
	)
	return &dto.ImportResult{Rows: len(rows), Manifest: manifest}, nil
}

func (s *rosterService) supervisorRequestFromRow(ctx context.Context, names *nameResolver, row SupervisorImportRow) (*dto.CreateSupervisorRequest, error) {
	capacity, err := strconv.Atoi(row.Capacity)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.KindInvalidInput, fmt.Sprintf("容量不是整数: %q", row.Capacity))
	}

	req := &dto.CreateSupervisorRequest{
		Name:     row.Name,
		Email:    row.Email,
		Role:     normalizeRole(row.Role),
		Capacity: capacity,
	}
	if row.DepartmentName != "" {
		if req.DepartmentID, err = names.department(ctx, row.DepartmentName); err != nil {
			return nil, err
		}
	}
	if row.OrganizationName != "" {
		if req.OrganizationID, err = names.organization(ctx, row.OrganizationName); err != nil {
			return nil, err
		}
	}
	return req, nil
}

// normalizeRole 接受中文类别名
func normalizeRole(v string) string {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "校内", "校内导师", "school":
		return string(model.SupervisorRoleSchool)
	case "企业", "企业导师", "industry":
		return string(model.SupervisorRoleIndustry)
	default:
		return v
	}
}

func readFirstSheet(reader io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(reader)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImportUnreadable, err)
	}
	defer f.Close()

	excelRows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImportUnreadable, err)
	}
	if len(excelRows) < 2 {
		return nil, ErrImportNoData
	}
	return excelRows, nil
}

// parseHeaderIndex 解析表头，返回列名 -> 列索引（缺失为 -1）
func parseHeaderIndex(header []string, aliases map[string][]string) map[string]int {
	idx := make(map[string]int, len(aliases))
	for key := range aliases {
		idx[key] = -1
	}
	for i, h := range header {
		lower := strings.ToLower(strings.TrimSpace(h))
		for key, names := range aliases {
			for _, name := range names {
				if lower == name {
					idx[key] = i
				}
			}
		}
	}
	return idx
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// nameResolver 导入时按名称查找院系与实习单位（单次导入内缓存）
type nameResolver struct {
	repo  *repository.Repository
	depts map[string]string
	orgs  map[string]string
}

func newNameResolver(repo *repository.Repository) *nameResolver {
	return &nameResolver{
		repo:  repo,
		depts: make(map[string]string),
		orgs:  make(map[string]string),
	}
}

func (r *nameResolver) department(ctx context.Context, name string) (string, error) {
	if name == "" {
		return "", ErrDepartmentNotFound
	}
	if id, ok := r.depts[name]; ok {
		return id, nil
	}
	dept, err := r.repo.Department.GetByName(ctx, name)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", fmt.Errorf("%w: %s", ErrDepartmentNotFound, name)
		}
		return "", err
	}
	r.depts[name] = dept.DepartmentID
	return dept.DepartmentID, nil
}

func (r *nameResolver) organization(ctx context.Context, name string) (string, error) {
	if id, ok := r.orgs[name]; ok {
		return id, nil
	}
	org, err := r.repo.Organization.GetByName(ctx, name)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", fmt.Errorf("%w: %s", ErrOrganizationNotFound, name)
		}
		return "", err
	}
	r.orgs[name] = org.OrganizationID
	return org.OrganizationID, nil
}

// ── 内部辅助方法 ──

func (s *rosterService) optionalOrganization(ctx context.Context, organizationID string) (*string, error) {
	if organizationID == "" {
		return nil, nil
	}
	if _, err := s.repo.Organization.GetByID(ctx, organizationID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrganizationNotFound
		}
		return nil, err
	}
	return &organizationID, nil
}

func (s *rosterService) getSupervisor(ctx context.Context, supervisorID string) (*model.Supervisor, error) {
	if supervisorID == "" {
		return nil, ErrInvalidID
	}
	supervisor, err := s.repo.Supervisor.GetByID(ctx, supervisorID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSupervisorNotFound
		}
		return nil, err
	}
	return supervisor, nil
}

func toStudentResponse(st *model.Student) *dto.StudentResponse {
	resp := &dto.StudentResponse{
		ID:           st.StudentID,
		Name:         st.Name,
		MatricNo:     st.MatricNo,
		Email:        st.Email,
		DepartmentID: st.DepartmentID,
	}
	if st.Department != nil {
		resp.DepartmentName = st.Department.Name
	}
	if st.OrganizationID != nil {
		resp.OrganizationID = *st.OrganizationID
	}
	return resp
}

func toSupervisorResponse(sv *model.Supervisor) *dto.SupervisorResponse {
	resp := &dto.SupervisorResponse{
		ID:            sv.SupervisorID,
		Name:          sv.Name,
		Email:         sv.Email,
		Role:          string(sv.Role),
		Capacity:      sv.Capacity,
		IsActive:      sv.IsActive,
		DeactivatedAt: dto.FormatTimePtr(sv.DeactivatedAt),
	}
	if sv.DepartmentID != nil {
		resp.DepartmentID = *sv.DepartmentID
	}
	if sv.OrganizationID != nil {
		resp.OrganizationID = *sv.OrganizationID
	}
	return resp
}
