package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"practicum/backend/config"
	"practicum/backend/internal/dto"
	"practicum/backend/internal/model"
	"practicum/backend/internal/repository"
	"practicum/backend/pkg/database"
)

// ═══════════════════════════════════════════════════════════
// 测试环境（内存 SQLite + 真实 Repository）
// ═══════════════════════════════════════════════════════════

type testEnv struct {
	repo    *repository.Repository
	svc     *Service
	dept    *model.Department
	session *model.Session
	admin   model.Caller
}

func newTestEnv(t *testing.T, locker BatchLocker) *testEnv {
	t.Helper()
	db, err := database.NewDB(&config.DatabaseConfig{
		Driver:     "sqlite",
		SQLitePath: "file::memory:",
	}, "error", zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, repository.AutoMigrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	repo := repository.NewRepository(db)
	cfg := &config.Config{Workflow: config.WorkflowConfig{
		AutoAssignLockTTL: time.Minute,
		MaxImportRows:     50,
	}}

	ctx := context.Background()
	dept := &model.Department{Name: "计算机系", IsActive: true}
	require.NoError(t, repo.Department.Create(ctx, dept))
	session := &model.Session{
		Name:      "2025 夏季实习",
		StartDate: time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2025, 8, 22, 0, 0, 0, 0, time.UTC),
		Status:    model.SessionOpen,
	}
	require.NoError(t, repo.Session.Create(ctx, session))

	return &testEnv{
		repo:    repo,
		svc:     NewService(cfg, repo, locker, zap.NewNop()),
		dept:    dept,
		session: session,
		admin:   model.Caller{UserID: uuid.NewString(), Role: model.RoleAdmin},
	}
}

func (e *testEnv) addDepartment(t *testing.T, name string) *model.Department {
	t.Helper()
	dept := &model.Department{Name: name, IsActive: true}
	require.NoError(t, e.repo.Department.Create(context.Background(), dept))
	return dept
}

func (e *testEnv) addOrganization(t *testing.T, name string) *model.Organization {
	t.Helper()
	org := &model.Organization{Name: name}
	require.NoError(t, e.repo.Organization.Create(context.Background(), org))
	return org
}

// addStudent 创建学生（不参加实习）
func (e *testEnv) addStudent(t *testing.T, deptID string, orgID *string) *model.Student {
	t.Helper()
	st := &model.Student{
		Name:           "学生",
		MatricNo:       "M" + uuid.NewString()[:8],
		DepartmentID:   deptID,
		OrganizationID: orgID,
	}
	require.NoError(t, e.repo.Student.Create(context.Background(), st))
	return st
}

// enrolledStudent 创建学生并参加当前实习期（同时生成周记）
func (e *testEnv) enrolledStudent(t *testing.T, deptID string, orgID *string) *model.Student {
	t.Helper()
	st := e.addStudent(t, deptID, orgID)
	_, err := e.svc.Session.Enroll(context.Background(), e.admin, e.session.SessionID, &dto.EnrollRequest{StudentID: st.StudentID})
	require.NoError(t, err)
	return st
}

func (e *testEnv) schoolSupervisor(t *testing.T, deptID string, capacity int) *model.Supervisor {
	t.Helper()
	sv := &model.Supervisor{
		Name:         "校内导师",
		Email:        "sv-" + uuid.NewString()[:8] + "@uni.edu",
		Role:         model.SupervisorRoleSchool,
		DepartmentID: &deptID,
		Capacity:     capacity,
		IsActive:     true,
	}
	require.NoError(t, e.repo.Supervisor.Create(context.Background(), sv))
	return sv
}

func (e *testEnv) industrySupervisor(t *testing.T, orgID *string, capacity int) *model.Supervisor {
	t.Helper()
	sv := &model.Supervisor{
		Name:           "企业导师",
		Email:          "iv-" + uuid.NewString()[:8] + "@corp.com",
		Role:           model.SupervisorRoleIndustry,
		OrganizationID: orgID,
		Capacity:       capacity,
		IsActive:       true,
	}
	require.NoError(t, e.repo.Supervisor.Create(context.Background(), sv))
	return sv
}

func (e *testEnv) assign(t *testing.T, st *model.Student, sv *model.Supervisor) *dto.AssignmentResponse {
	t.Helper()
	resp, err := e.svc.Allocation.ManualAssign(context.Background(), e.admin, e.session.SessionID, &dto.ManualAssignRequest{
		StudentID:    st.StudentID,
		SupervisorID: sv.SupervisorID,
		Role:         string(sv.Role),
	})
	require.NoError(t, err)
	return resp
}

func (e *testEnv) firstWeek(t *testing.T, st *model.Student) *model.LogbookWeek {
	t.Helper()
	weeks, err := e.repo.Week.ListByStudent(context.Background(), st.StudentID, e.session.SessionID)
	require.NoError(t, err)
	require.NotEmpty(t, weeks)
	return &weeks[0]
}

func (e *testEnv) load(t *testing.T, sv *model.Supervisor) int {
	t.Helper()
	n, err := e.svc.Capacity.CurrentLoad(context.Background(), sv.SupervisorID, e.session.SessionID)
	require.NoError(t, err)
	return n
}

// tableRead 一次查询访问的表与行锁强度（未加锁时 Lock 为空）
type tableRead struct {
	Table string
	Lock  string
}

// recordReads 记录此后全部查询的表与行锁；SQLite 不输出 FOR 子句，但语句上的锁声明仍可见
func (e *testEnv) recordReads(t *testing.T) func() []tableRead {
	t.Helper()
	var mu sync.Mutex
	var reads []tableRead
	record := func(db *gorm.DB) {
		read := tableRead{Table: db.Statement.Table}
		if c, ok := db.Statement.Clauses["FOR"]; ok {
			if locking, ok := c.Expression.(clause.Locking); ok {
				read.Lock = locking.Strength
			}
		}
		mu.Lock()
		reads = append(reads, read)
		mu.Unlock()
	}

	cb := e.repo.DB().Callback()
	require.NoError(t, cb.Query().Before("gorm:query").Register("test:record_query", record))
	require.NoError(t, cb.Row().Before("gorm:row").Register("test:record_row", record))
	return func() []tableRead {
		mu.Lock()
		defer mu.Unlock()
		return append([]tableRead(nil), reads...)
	}
}

// indexOf 返回 read 首次出现的位置，未出现时为 -1
func indexOf(reads []tableRead, read tableRead) int {
	for i, r := range reads {
		if r == read {
			return i
		}
	}
	return -1
}

func supervisorCaller(sv *model.Supervisor) model.Caller {
	return model.Caller{UserID: sv.SupervisorID, Role: sv.Role.CallerRole()}
}

func studentCaller(st *model.Student) model.Caller {
	return model.Caller{UserID: st.StudentID, Role: model.RoleStudent}
}

func strPtr(s string) *string { return &s }
