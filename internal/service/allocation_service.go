package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"practicum/backend/internal/dto"
	"practicum/backend/internal/model"
	"practicum/backend/internal/repository"
	pkgerrors "practicum/backend/pkg/errors"
)

// BatchLocker 跨实例互斥（同一实习期同一角色同时只跑一个自动分配批次）
//
// 正确性由数据库 CAS 保证，锁只避免重复劳动；未配置 Redis 时传 nil。
type BatchLocker interface {
	AcquireLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error)
	ReleaseLock(ctx context.Context, key, token string) error
}

// AllocationService 学生-导师分配业务接口（仅管理员）
type AllocationService interface {
	ManualAssign(ctx context.Context, caller model.Caller, sessionID string, req *dto.ManualAssignRequest) (*dto.AssignmentResponse, error)
	RemoveAssignment(ctx context.Context, caller model.Caller, assignmentID string) error
	AutoAssign(ctx context.Context, caller model.Caller, sessionID string, req *dto.AutoAssignRequest) (*dto.AutoAssignResult, error)
	ListAssignments(ctx context.Context, caller model.Caller, sessionID string, req *dto.AssignmentListRequest) ([]dto.AssignmentResponse, error)
	WorkloadReport(ctx context.Context, caller model.Caller, sessionID string, role string) (*dto.WorkloadReport, error)
	RebuildLoads(ctx context.Context, caller model.Caller, sessionID string) (*dto.RebuildLoadsResponse, error)
	ListRuns(ctx context.Context, caller model.Caller, sessionID string) ([]dto.AllocationRunResponse, error)
}

type allocationService struct {
	repo        *repository.Repository
	capacity    CapacityDirectory
	eligibility EligibilityResolver
	locker      BatchLocker
	lockTTL     time.Duration
	logger      *zap.Logger
}

// NewAllocationService 创建 AllocationService 实例
func NewAllocationService(
	repo *repository.Repository,
	capacity CapacityDirectory,
	eligibility EligibilityResolver,
	locker BatchLocker,
	lockTTL time.Duration,
	logger *zap.Logger,
) AllocationService {
	if lockTTL <= 0 {
		lockTTL = 10 * time.Minute
	}
	return &allocationService{
		repo:        repo,
		capacity:    capacity,
		eligibility: eligibility,
		locker:      locker,
		lockTTL:     lockTTL,
		logger:      logger,
	}
}

// ────────────────────── ManualAssign ──────────────────────

func (s *allocationService) ManualAssign(ctx context.Context, caller model.Caller, sessionID string, req *dto.ManualAssignRequest) (*dto.AssignmentResponse, error) {
	role, err := model.ParseSupervisorRole(req.Role)
	if err != nil {
		return nil, ErrInvalidRole
	}
	if req.StudentID == "" || req.SupervisorID == "" {
		return nil, ErrInvalidID
	}
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}

	if _, err := s.openSession(ctx, sessionID); err != nil {
		return nil, err
	}
	student, err := s.getStudent(ctx, req.StudentID)
	if err != nil {
		return nil, err
	}
	if err := s.requireEnrolled(ctx, student.StudentID, sessionID); err != nil {
		return nil, err
	}
	supervisor, err := s.getSupervisor(ctx, req.SupervisorID)
	if err != nil {
		return nil, err
	}

	// ── 资格 ──
	if supervisor.Role != role || !supervisor.IsActive {
		return nil, ErrIneligibleSupervisor
	}
	candidates, err := s.eligibility.Eligible(ctx, student, role)
	if err != nil {
		return nil, err
	}
	if !containsSupervisor(candidates, supervisor.SupervisorID) {
		return nil, ErrIneligibleSupervisor
	}

	// ── 唯一性与容量预检（最终以事务内 CAS 与唯一索引为准） ──
	if _, err := s.repo.Assignment.GetActive(ctx, student.StudentID, sessionID, role); err == nil {
		return nil, ErrDuplicateAssignment
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	ok, err := s.capacity.HasCapacity(ctx, supervisor.SupervisorID, sessionID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrCapacityExceeded
	}

	assignment, err := s.assign(ctx, caller, student.StudentID, sessionID, supervisor.SupervisorID, role)
	if err != nil {
		return nil, err
	}

	s.logger.Info("手动分配成功",
		zap.String("assignment_id", assignment.AssignmentID),
		zap.String("student_id", student.StudentID),
		zap.String("supervisor_id", supervisor.SupervisorID),
		zap.String("role", string(role)),
	)

	assignment.Student = student
	assignment.Supervisor = supervisor
	return toAssignmentResponse(assignment), nil
}

// assign 在一个事务内占用名额并写入分配
func (s *allocationService) assign(ctx context.Context, caller model.Caller, studentID, sessionID, supervisorID string, role model.SupervisorRole) (*model.Assignment, error) {
	assignment := &model.Assignment{
		StudentID:    studentID,
		SessionID:    sessionID,
		Role:         role,
		SupervisorID: supervisorID,
	}
	assignment.CreatedBy = &caller.UserID
	assignment.UpdatedBy = &caller.UserID

	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		if err := lockActiveEnrollment(ctx, tx, studentID, sessionID); err != nil {
			return err
		}
		if err := s.capacity.Reserve(ctx, tx, supervisorID, sessionID); err != nil {
			return err
		}
		return tx.Assignment.Create(ctx, assignment)
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateAssignment
		}
		if pkgerrors.KindOf(err) == "" && ctx.Err() == nil {
			s.logger.Error("写入分配失败",
				zap.String("student_id", studentID),
				zap.String("supervisor_id", supervisorID),
				zap.Error(err),
			)
		}
		return nil, err
	}
	return assignment, nil
}

// ────────────────────── RemoveAssignment ──────────────────────

func (s *allocationService) RemoveAssignment(ctx context.Context, caller model.Caller, assignmentID string) error {
	if assignmentID == "" {
		return ErrInvalidID
	}
	if err := requireAdmin(caller); err != nil {
		return err
	}

	assignment, err := s.repo.Assignment.GetByID(ctx, assignmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrAssignmentNotFound
		}
		return err
	}
	if _, err := s.openSession(ctx, assignment.SessionID); err != nil {
		return err
	}

	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		if _, err := tx.Enrollment.GetForUpdate(ctx, assignment.StudentID, assignment.SessionID); err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err := tx.Assignment.SoftDelete(ctx, assignment.AssignmentID, caller.UserID); err != nil {
			return err
		}
		return s.capacity.Release(ctx, tx, assignment.SupervisorID, assignment.SessionID)
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrAssignmentNotFound
		}
		s.logger.Error("删除分配失败", zap.String("assignment_id", assignmentID), zap.Error(err))
		return err
	}

	s.logger.Info("分配已删除",
		zap.String("assignment_id", assignmentID),
		zap.String("supervisor_id", assignment.SupervisorID),
	)
	return nil
}

// ────────────────────── AutoAssign ──────────────────────

// AutoAssign 贪心批量分配
//
// 学生按参加时间（同时间按 student_id）依次处理；每个学生选当前负载最低的合格导师
// （同负载按 supervisor_id），每人一个事务，后面的学生能看到前面提交后的负载。
// 单个学生失败只记入清单，不中断批次；调用方取消时已提交的分配保留。
func (s *allocationService) AutoAssign(ctx context.Context, caller model.Caller, sessionID string, req *dto.AutoAssignRequest) (*dto.AutoAssignResult, error) {
	role, err := model.ParseSupervisorRole(req.Role)
	if err != nil {
		return nil, ErrInvalidRole
	}
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	if _, err := s.openSession(ctx, sessionID); err != nil {
		return nil, err
	}

	if s.locker != nil {
		key := fmt.Sprintf("practicum:auto_assign:%s:%s", sessionID, role)
		token, acquired, err := s.locker.AcquireLock(ctx, key, s.lockTTL)
		switch {
		case err != nil:
			s.logger.Warn("获取自动分配锁失败，按单实例继续", zap.String("key", key), zap.Error(err))
		case !acquired:
			return nil, ErrBatchInProgress
		default:
			defer func() {
				if err := s.locker.ReleaseLock(context.WithoutCancel(ctx), key, token); err != nil {
					s.logger.Warn("释放自动分配锁失败", zap.String("key", key), zap.Error(err))
				}
			}()
		}
	}

	startedAt := time.Now().UTC()

	enrollments, err := s.repo.Enrollment.ListUnassigned(ctx, sessionID, role)
	if err != nil {
		s.logger.Error("查询未分配学生失败", zap.String("session_id", sessionID), zap.Error(err))
		return nil, err
	}
	loads, err := s.capacity.Loads(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	b := &autoBatch{
		svc:       s,
		caller:    caller,
		sessionID: sessionID,
		role:      role,
		loads:     loads,
		full:      make(map[string]bool),
		byDept:    make(map[string][]model.Supervisor),
	}
	manifest := dto.NewManifest[dto.AutoAssignItem]()
	canceled := false

	for i := range enrollments {
		if ctx.Err() != nil {
			canceled = true
			break
		}

		item := dto.AutoAssignItem{StudentID: enrollments[i].StudentID}
		assignment, err := b.allocate(ctx, enrollments[i].Student)
		if err != nil {
			if ctx.Err() != nil {
				canceled = true
				break
			}
			manifest.Fail(item, failureReason(err), err.Error())
			continue
		}

		item.SupervisorID = assignment.SupervisorID
		item.AssignmentID = assignment.AssignmentID
		manifest.Succeed(item)
	}

	finishedAt := time.Now().UTC()
	result := &dto.AutoAssignResult{
		SessionID: sessionID,
		Role:      string(role),
		Canceled:  canceled,
		Manifest:  manifest,
	}

	// 批次记录在调用方取消后也要落库
	outcome, err := json.Marshal(manifest)
	if err != nil {
		return nil, err
	}
	run := &model.AllocationRun{
		SessionID:    sessionID,
		Role:         role,
		TriggeredBy:  caller.UserID,
		SuccessCount: manifest.SuccessCount,
		FailureCount: manifest.FailureCount,
		Canceled:     canceled,
		Outcome:      datatypes.JSON(outcome),
		StartedAt:    startedAt,
		FinishedAt:   finishedAt,
	}
	if err := s.repo.AllocationRun.Create(context.WithoutCancel(ctx), run); err != nil {
		s.logger.Error("保存自动分配批次记录失败", zap.String("session_id", sessionID), zap.Error(err))
	} else {
		result.RunID = run.RunID
	}

	s.logger.Info("自动分配完成",
		zap.String("session_id", sessionID),
		zap.String("role", string(role)),
		zap.Int("students", len(enrollments)),
		zap.Int("succeeded", manifest.SuccessCount),
		zap.Int("failed", manifest.FailureCount),
		zap.Bool("canceled", canceled),
		zap.Duration("elapsed", finishedAt.Sub(startedAt)),
	)

	return result, nil
}

// autoBatch 一次自动分配批次的内存状态
//
// loads 从负载目录快照开始，随本批次每次成功分配递增；full 记录事务内 CAS 失败的导师
// （被并发的手动分配占满），本批次内不再尝试。
type autoBatch struct {
	svc       *allocationService
	caller    model.Caller
	sessionID string
	role      model.SupervisorRole

	loads  map[string]int
	full   map[string]bool
	byDept map[string][]model.Supervisor

	industry       []model.Supervisor
	industryLoaded bool
}

func (b *autoBatch) allocate(ctx context.Context, student *model.Student) (*model.Assignment, error) {
	if student == nil {
		return nil, ErrStudentNotFound
	}

	candidates, err := b.candidates(ctx, student)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, ErrNoEligibleSupervisor
	}

	ranked := b.rank(candidates)
	if b.role == model.SupervisorRoleIndustry && student.OrganizationID != nil {
		// 同一实习单位有空位的企业导师优先，全部满员时才退回全体
		if same := sameOrganization(ranked, *student.OrganizationID); len(same) > 0 {
			ranked = same
		}
	}
	if len(ranked) == 0 {
		return nil, ErrCapacityExceeded
	}

	for _, sv := range ranked {
		assignment, err := b.svc.assign(ctx, b.caller, student.StudentID, b.sessionID, sv.SupervisorID, b.role)
		switch {
		case err == nil:
			b.loads[sv.SupervisorID]++
			return assignment, nil
		case errors.Is(err, ErrCapacityExceeded):
			b.full[sv.SupervisorID] = true
		default:
			return nil, err
		}
	}
	return nil, ErrCapacityExceeded
}

// candidates 合格导师（同一院系的校内导师只查询一次）
func (b *autoBatch) candidates(ctx context.Context, student *model.Student) ([]model.Supervisor, error) {
	switch b.role {
	case model.SupervisorRoleSchool:
		if cached, ok := b.byDept[student.DepartmentID]; ok {
			return cached, nil
		}
		list, err := b.svc.eligibility.EligibleSchoolSupervisors(ctx, student)
		if err != nil {
			return nil, err
		}
		b.byDept[student.DepartmentID] = list
		return list, nil
	case model.SupervisorRoleIndustry:
		if !b.industryLoaded {
			list, err := b.svc.eligibility.EligibleIndustrySupervisors(ctx)
			if err != nil {
				return nil, err
			}
			b.industry = list
			b.industryLoaded = true
		}
		return b.industry, nil
	default:
		return nil, ErrInvalidRole
	}
}

// rank 过滤掉已满的导师，按 (当前负载, supervisor_id) 升序
func (b *autoBatch) rank(candidates []model.Supervisor) []model.Supervisor {
	available := make([]model.Supervisor, 0, len(candidates))
	for _, sv := range candidates {
		if b.full[sv.SupervisorID] || b.loads[sv.SupervisorID] >= sv.Capacity {
			continue
		}
		available = append(available, sv)
	}
	sort.SliceStable(available, func(i, j int) bool {
		li, lj := b.loads[available[i].SupervisorID], b.loads[available[j].SupervisorID]
		if li != lj {
			return li < lj
		}
		return available[i].SupervisorID < available[j].SupervisorID
	})
	return available
}

func sameOrganization(list []model.Supervisor, organizationID string) []model.Supervisor {
	var out []model.Supervisor
	for _, sv := range list {
		if sv.OrganizationID != nil && *sv.OrganizationID == organizationID {
			out = append(out, sv)
		}
	}
	return out
}

// ────────────────────── 查询 ──────────────────────

func (s *allocationService) ListAssignments(ctx context.Context, caller model.Caller, sessionID string, req *dto.AssignmentListRequest) ([]dto.AssignmentResponse, error) {
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
	if _, err := s.getSession(ctx, sessionID); err != nil {
		return nil, err
	}

	assignments, err := s.repo.Assignment.ListBySession(ctx, sessionID, role)
	if err != nil {
		s.logger.Error("列出分配失败", zap.String("session_id", sessionID), zap.Error(err))
		return nil, err
	}

	result := make([]dto.AssignmentResponse, 0, len(assignments))
	for i := range assignments {
		result = append(result, *toAssignmentResponse(&assignments[i]))
	}
	return result, nil
}

// WorkloadReport 负载报表：对比负载目录记录值与有效分配的实际行数
func (s *allocationService) WorkloadReport(ctx context.Context, caller model.Caller, sessionID string, role string) (*dto.WorkloadReport, error) {
	var filter model.SupervisorRole
	if role != "" {
		r, err := model.ParseSupervisorRole(role)
		if err != nil {
			return nil, ErrInvalidRole
		}
		filter = r
	}
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	if _, err := s.getSession(ctx, sessionID); err != nil {
		return nil, err
	}

	supervisors, err := s.repo.Supervisor.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	counts, err := s.repo.Assignment.CountBySupervisor(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	loads, err := s.capacity.Loads(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	report := &dto.WorkloadReport{
		SessionID:  sessionID,
		Role:       string(filter),
		Items:      make([]dto.WorkloadItem, 0, len(supervisors)),
		Consistent: loadsMatch(loads, counts),
	}
	for _, sv := range supervisors {
		load := loads[sv.SupervisorID]
		remaining := sv.Capacity - load
		if remaining < 0 || !sv.IsActive {
			remaining = 0
		}
		report.Items = append(report.Items, dto.WorkloadItem{
			SupervisorID:   sv.SupervisorID,
			SupervisorName: sv.Name,
			Role:           string(sv.Role),
			IsActive:       sv.IsActive,
			Capacity:       sv.Capacity,
			CurrentLoad:    load,
			AssignedCount:  counts[sv.SupervisorID],
			Remaining:      remaining,
		})
	}
	return report, nil
}

func loadsMatch(loads, counts map[string]int) bool {
	for id, n := range loads {
		if counts[id] != n {
			return false
		}
	}
	for id, n := range counts {
		if loads[id] != n {
			return false
		}
	}
	return true
}

func (s *allocationService) RebuildLoads(ctx context.Context, caller model.Caller, sessionID string) (*dto.RebuildLoadsResponse, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	if _, err := s.getSession(ctx, sessionID); err != nil {
		return nil, err
	}

	corrected, supervisors, err := s.capacity.Rebuild(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return &dto.RebuildLoadsResponse{
		SessionID:   sessionID,
		Supervisors: supervisors,
		Corrected:   corrected,
	}, nil
}

func (s *allocationService) ListRuns(ctx context.Context, caller model.Caller, sessionID string) ([]dto.AllocationRunResponse, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	if _, err := s.getSession(ctx, sessionID); err != nil {
		return nil, err
	}

	runs, err := s.repo.AllocationRun.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	result := make([]dto.AllocationRunResponse, 0, len(runs))
	for _, r := range runs {
		result = append(result, dto.AllocationRunResponse{
			ID:           r.RunID,
			SessionID:    r.SessionID,
			Role:         string(r.Role),
			TriggeredBy:  r.TriggeredBy,
			SuccessCount: r.SuccessCount,
			FailureCount: r.FailureCount,
			Canceled:     r.Canceled,
			StartedAt:    dto.FormatTime(r.StartedAt),
			FinishedAt:   dto.FormatTime(r.FinishedAt),
		})
	}
	return result, nil
}

// ────────────────────── 内部方法 ──────────────────────

func (s *allocationService) getSession(ctx context.Context, sessionID string) (*model.Session, error) {
	return loadSession(ctx, s.repo, sessionID)
}

func (s *allocationService) openSession(ctx context.Context, sessionID string) (*model.Session, error) {
	session, err := loadSession(ctx, s.repo, sessionID)
	if err != nil {
		return nil, err
	}
	if !session.IsOpen() {
		return nil, ErrSessionClosed
	}
	return session, nil
}

func (s *allocationService) getStudent(ctx context.Context, studentID string) (*model.Student, error) {
	student, err := s.repo.Student.GetByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrStudentNotFound
		}
		return nil, err
	}
	return student, nil
}

func (s *allocationService) getSupervisor(ctx context.Context, supervisorID string) (*model.Supervisor, error) {
	supervisor, err := s.repo.Supervisor.GetByID(ctx, supervisorID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSupervisorNotFound
		}
		return nil, err
	}
	return supervisor, nil
}

func (s *allocationService) requireEnrolled(ctx context.Context, studentID, sessionID string) error {
	enrollment, err := s.repo.Enrollment.Get(ctx, studentID, sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotEnrolled
		}
		return err
	}
	if enrollment.Status != model.EnrollmentActive {
		return ErrNotEnrolled
	}
	return nil
}

// lockActiveEnrollment 事务内锁定参加记录并确认仍为 active，与退出互斥
func lockActiveEnrollment(ctx context.Context, tx *repository.Repository, studentID, sessionID string) error {
	enrollment, err := tx.Enrollment.GetForUpdate(ctx, studentID, sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotEnrolled
		}
		return err
	}
	if enrollment.Status != model.EnrollmentActive {
		return ErrNotEnrolled
	}
	return nil
}

// loadSession 查询实习期，不存在时返回 ErrSessionNotFound
func loadSession(ctx context.Context, repo *repository.Repository, sessionID string) (*model.Session, error) {
	if sessionID == "" {
		return nil, ErrInvalidID
	}
	session, err := repo.Session.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return session, nil
}

func toAssignmentResponse(a *model.Assignment) *dto.AssignmentResponse {
	resp := &dto.AssignmentResponse{
		ID:           a.AssignmentID,
		StudentID:    a.StudentID,
		SessionID:    a.SessionID,
		SupervisorID: a.SupervisorID,
		Role:         string(a.Role),
		CreatedAt:    dto.FormatTime(a.CreatedAt),
	}
	if a.Student != nil {
		resp.StudentName = a.Student.Name
	}
	if a.Supervisor != nil {
		resp.SupervisorName = a.Supervisor.Name
	}
	return resp
}
