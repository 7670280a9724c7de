package service

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"practicum/backend/internal/dto"
	"practicum/backend/internal/model"
	pkgerrors "practicum/backend/pkg/errors"
)

// ── ManualAssign ──

func TestAllocationService_ManualAssign_Success(t *testing.T) {
	env := newTestEnv(t, nil)
	st := env.enrolledStudent(t, env.dept.DepartmentID, nil)
	ss := env.schoolSupervisor(t, env.dept.DepartmentID, 2)

	resp := env.assign(t, st, ss)
	assert.Equal(t, st.StudentID, resp.StudentID)
	assert.Equal(t, ss.SupervisorID, resp.SupervisorID)
	assert.Equal(t, "school", resp.Role)
	assert.Equal(t, 1, env.load(t, ss))
}

func TestAllocationService_ManualAssign_Ineligible(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	other := env.addDepartment(t, "机械系")
	st := env.enrolledStudent(t, env.dept.DepartmentID, nil)
	foreign := env.schoolSupervisor(t, other.DepartmentID, 5)
	inactive := env.schoolSupervisor(t, env.dept.DepartmentID, 5)
	require.NoError(t, env.repo.Supervisor.Deactivate(ctx, inactive, env.admin.UserID))
	iv := env.industrySupervisor(t, nil, 5)

	tests := []struct {
		name         string
		supervisorID string
	}{
		{"other_department", foreign.SupervisorID},
		{"inactive", inactive.SupervisorID},
		{"role_mismatch", iv.SupervisorID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.svc.Allocation.ManualAssign(ctx, env.admin, env.session.SessionID, &dto.ManualAssignRequest{
				StudentID: st.StudentID, SupervisorID: tt.supervisorID, Role: "school",
			})
			assert.ErrorIs(t, err, ErrIneligibleSupervisor)
			assert.Equal(t, pkgerrors.KindIneligibleSupervisor, pkgerrors.KindOf(err))
		})
	}
	assert.Equal(t, 0, env.load(t, foreign))
}

func TestAllocationService_ManualAssign_Duplicate(t *testing.T) {
	env := newTestEnv(t, nil)
	st := env.enrolledStudent(t, env.dept.DepartmentID, nil)
	ss1 := env.schoolSupervisor(t, env.dept.DepartmentID, 5)
	ss2 := env.schoolSupervisor(t, env.dept.DepartmentID, 5)
	env.assign(t, st, ss1)

	_, err := env.svc.Allocation.ManualAssign(context.Background(), env.admin, env.session.SessionID, &dto.ManualAssignRequest{
		StudentID: st.StudentID, SupervisorID: ss2.SupervisorID, Role: "school",
	})
	assert.ErrorIs(t, err, ErrDuplicateAssignment)
	assert.Equal(t, 0, env.load(t, ss2), "失败的分配不得占用名额")
}

func TestAllocationService_ManualAssign_CapacityExceeded(t *testing.T) {
	env := newTestEnv(t, nil)
	ss := env.schoolSupervisor(t, env.dept.DepartmentID, 1)
	env.assign(t, env.enrolledStudent(t, env.dept.DepartmentID, nil), ss)

	st := env.enrolledStudent(t, env.dept.DepartmentID, nil)
	_, err := env.svc.Allocation.ManualAssign(context.Background(), env.admin, env.session.SessionID, &dto.ManualAssignRequest{
		StudentID: st.StudentID, SupervisorID: ss.SupervisorID, Role: "school",
	})
	assert.ErrorIs(t, err, ErrCapacityExceeded)
	assert.Equal(t, 1, env.load(t, ss))
}

func TestAllocationService_ManualAssign_Guards(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	st := env.enrolledStudent(t, env.dept.DepartmentID, nil)
	ss := env.schoolSupervisor(t, env.dept.DepartmentID, 5)
	req := &dto.ManualAssignRequest{StudentID: st.StudentID, SupervisorID: ss.SupervisorID, Role: "school"}

	_, err := env.svc.Allocation.ManualAssign(ctx, supervisorCaller(ss), env.session.SessionID, req)
	assert.ErrorIs(t, err, ErrAdminOnly)

	_, err = env.svc.Allocation.ManualAssign(ctx, env.admin, env.session.SessionID, &dto.ManualAssignRequest{
		StudentID: st.StudentID, SupervisorID: ss.SupervisorID, Role: "mentor",
	})
	assert.ErrorIs(t, err, ErrInvalidRole)

	notEnrolled := env.addStudent(t, env.dept.DepartmentID, nil)
	_, err = env.svc.Allocation.ManualAssign(ctx, env.admin, env.session.SessionID, &dto.ManualAssignRequest{
		StudentID: notEnrolled.StudentID, SupervisorID: ss.SupervisorID, Role: "school",
	})
	assert.ErrorIs(t, err, ErrNotEnrolled)

	_, err = env.svc.Allocation.ManualAssign(ctx, env.admin, "00000000-0000-0000-0000-000000000000", req)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

// 并发手动分配同一学生同一角色：恰好一个成功
func TestAllocationService_ConcurrentManualAssign_SameSlot(t *testing.T) {
	env := newTestEnv(t, nil)
	st := env.enrolledStudent(t, env.dept.DepartmentID, nil)
	supervisors := []*model.Supervisor{
		env.schoolSupervisor(t, env.dept.DepartmentID, 5),
		env.schoolSupervisor(t, env.dept.DepartmentID, 5),
		env.schoolSupervisor(t, env.dept.DepartmentID, 5),
	}

	var wg sync.WaitGroup
	errs := make([]error, len(supervisors))
	for i, sv := range supervisors {
		wg.Add(1)
		go func(i int, sv *model.Supervisor) {
			defer wg.Done()
			_, errs[i] = env.svc.Allocation.ManualAssign(context.Background(), env.admin, env.session.SessionID, &dto.ManualAssignRequest{
				StudentID: st.StudentID, SupervisorID: sv.SupervisorID, Role: "school",
			})
		}(i, sv)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, ErrDuplicateAssignment)
	}
	assert.Equal(t, 1, succeeded)

	total := 0
	for _, sv := range supervisors {
		total += env.load(t, sv)
	}
	assert.Equal(t, 1, total, "负载总和应等于有效分配数")
}

// 并发争抢导师最后一个名额：输家得到 CapacityExceeded
func TestAllocationService_ConcurrentManualAssign_LastSlot(t *testing.T) {
	env := newTestEnv(t, nil)
	ss := env.schoolSupervisor(t, env.dept.DepartmentID, 1)
	students := []*model.Student{
		env.enrolledStudent(t, env.dept.DepartmentID, nil),
		env.enrolledStudent(t, env.dept.DepartmentID, nil),
		env.enrolledStudent(t, env.dept.DepartmentID, nil),
	}

	var wg sync.WaitGroup
	errs := make([]error, len(students))
	for i, st := range students {
		wg.Add(1)
		go func(i int, st *model.Student) {
			defer wg.Done()
			_, errs[i] = env.svc.Allocation.ManualAssign(context.Background(), env.admin, env.session.SessionID, &dto.ManualAssignRequest{
				StudentID: st.StudentID, SupervisorID: ss.SupervisorID, Role: "school",
			})
		}(i, st)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, ErrCapacityExceeded)
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, env.load(t, ss))
}

// ── RemoveAssignment ──

func TestAllocationService_RemoveAssignment(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	st := env.enrolledStudent(t, env.dept.DepartmentID, nil)
	ss := env.schoolSupervisor(t, env.dept.DepartmentID, 1)
	a := env.assign(t, st, ss)

	require.NoError(t, env.svc.Allocation.RemoveAssignment(ctx, env.admin, a.ID))
	assert.Equal(t, 0, env.load(t, ss))

	err := env.svc.Allocation.RemoveAssignment(ctx, env.admin, a.ID)
	assert.ErrorIs(t, err, ErrAssignmentNotFound)
	assert.Equal(t, 0, env.load(t, ss), "重复删除不得再次释放")

	// 名额释放后可重新分配
	env.assign(t, st, ss)
	assert.Equal(t, 1, env.load(t, ss))
}

// ── AutoAssign ──

func TestAllocationService_AutoAssign_Balanced(t *testing.T) {
	env := newTestEnv(t, nil)
	ss1 := env.schoolSupervisor(t, env.dept.DepartmentID, 5)
	ss2 := env.schoolSupervisor(t, env.dept.DepartmentID, 5)
	for i := 0; i < 4; i++ {
		env.enrolledStudent(t, env.dept.DepartmentID, nil)
	}

	result, err := env.svc.Allocation.AutoAssign(context.Background(), env.admin, env.session.SessionID, &dto.AutoAssignRequest{Role: "school"})
	require.NoError(t, err)
	assert.Equal(t, 4, result.SuccessCount)
	assert.Equal(t, 0, result.FailureCount)
	assert.False(t, result.Canceled)
	assert.NotEmpty(t, result.RunID)
	assert.Equal(t, 2, env.load(t, ss1))
	assert.Equal(t, 2, env.load(t, ss2))

	// 第一个学生落在 id 较小的导师上
	first := ss1.SupervisorID
	if ss2.SupervisorID < first {
		first = ss2.SupervisorID
	}
	assert.Equal(t, first, result.Succeeded[0].SupervisorID)

	// 重跑幂等：已分配的学生不再出现
	again, err := env.svc.Allocation.AutoAssign(context.Background(), env.admin, env.session.SessionID, &dto.AutoAssignRequest{Role: "school"})
	require.NoError(t, err)
	assert.Equal(t, 0, again.SuccessCount+again.FailureCount)
}

// 需求超过总容量：超出部分记为 CapacityExceeded，任何导师都不超容
func TestAllocationService_AutoAssign_CapacityExceeded(t *testing.T) {
	env := newTestEnv(t, nil)
	ss1 := env.schoolSupervisor(t, env.dept.DepartmentID, 2)
	ss2 := env.schoolSupervisor(t, env.dept.DepartmentID, 1)
	for i := 0; i < 5; i++ {
		env.enrolledStudent(t, env.dept.DepartmentID, nil)
	}

	result, err := env.svc.Allocation.AutoAssign(context.Background(), env.admin, env.session.SessionID, &dto.AutoAssignRequest{Role: "school"})
	require.NoError(t, err)
	assert.Equal(t, 3, result.SuccessCount)
	assert.Equal(t, 2, result.FailureCount)
	for _, f := range result.Failed {
		assert.Equal(t, string(pkgerrors.KindCapacityExceeded), f.Reason)
	}
	assert.Equal(t, 2, env.load(t, ss1))
	assert.Equal(t, 1, env.load(t, ss2))

	report, err := env.svc.Allocation.WorkloadReport(context.Background(), env.admin, env.session.SessionID, "school")
	require.NoError(t, err)
	assert.True(t, report.Consistent)
	for _, item := range report.Items {
		assert.LessOrEqual(t, item.CurrentLoad, item.Capacity)
	}
}

func TestAllocationService_AutoAssign_NoEligibleSupervisor(t *testing.T) {
	env := newTestEnv(t, nil)
	other := env.addDepartment(t, "化学系")
	env.schoolSupervisor(t, env.dept.DepartmentID, 5)
	orphan := env.enrolledStudent(t, other.DepartmentID, nil)
	env.enrolledStudent(t, env.dept.DepartmentID, nil)

	result, err := env.svc.Allocation.AutoAssign(context.Background(), env.admin, env.session.SessionID, &dto.AutoAssignRequest{Role: "school"})
	require.NoError(t, err)
	assert.Equal(t, 1, result.SuccessCount)
	require.Len(t, result.Failed, 1)
	assert.Equal(t, orphan.StudentID, result.Failed[0].Item.StudentID)
	assert.Equal(t, string(pkgerrors.KindNoEligibleSupervisor), result.Failed[0].Reason)
}

// 企业导师优先同一实习单位
func TestAllocationService_AutoAssign_IndustryPrefersOrganization(t *testing.T) {
	env := newTestEnv(t, nil)
	acme := env.addOrganization(t, "Acme")
	globex := env.addOrganization(t, "Globex")
	ivAcme := env.industrySupervisor(t, &acme.OrganizationID, 1)
	ivGlobex := env.industrySupervisor(t, &globex.OrganizationID, 5)

	env.enrolledStudent(t, env.dept.DepartmentID, &acme.OrganizationID)
	env.enrolledStudent(t, env.dept.DepartmentID, &acme.OrganizationID)

	result, err := env.svc.Allocation.AutoAssign(context.Background(), env.admin, env.session.SessionID, &dto.AutoAssignRequest{Role: "industry"})
	require.NoError(t, err)
	require.Equal(t, 2, result.SuccessCount)

	// 第一个学生只在同单位 Acme 中挑选；Acme 满员后才退回全体
	assert.Equal(t, ivAcme.SupervisorID, result.Succeeded[0].SupervisorID)
	assert.Equal(t, ivGlobex.SupervisorID, result.Succeeded[1].SupervisorID)
}

// cancelingResolver 第二次查询合格导师时取消批次，模拟调用方中途放弃
type cancelingResolver struct {
	EligibilityResolver
	cancel context.CancelFunc
	calls  int
}

func (r *cancelingResolver) EligibleSchoolSupervisors(ctx context.Context, student *model.Student) ([]model.Supervisor, error) {
	r.calls++
	if r.calls == 2 {
		r.cancel()
	}
	return r.EligibilityResolver.EligibleSchoolSupervisors(ctx, student)
}

func TestAllocationService_AutoAssign_Canceled(t *testing.T) {
	env := newTestEnv(t, nil)
	other := env.addDepartment(t, "物理系")
	env.schoolSupervisor(t, env.dept.DepartmentID, 10)
	env.schoolSupervisor(t, other.DepartmentID, 10)
	env.enrolledStudent(t, env.dept.DepartmentID, nil)
	env.enrolledStudent(t, other.DepartmentID, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	resolver := &cancelingResolver{EligibilityResolver: env.svc.Eligibility, cancel: cancel}
	svc := NewAllocationService(env.repo, env.svc.Capacity, resolver, nil, time.Minute, zap.NewNop())

	result, err := svc.AutoAssign(ctx, env.admin, env.session.SessionID, &dto.AutoAssignRequest{Role: "school"})
	require.NoError(t, err)
	assert.True(t, result.Canceled)
	assert.Equal(t, 1, result.SuccessCount, "取消前已提交的分配保留")
	assert.Equal(t, 0, result.FailureCount, "被取消的学生不计为失败")
	assert.NotEmpty(t, result.RunID, "取消后批次记录仍要落库")

	runs, err := env.svc.Allocation.ListRuns(context.Background(), env.admin, env.session.SessionID)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.True(t, runs[0].Canceled)

	report, err := env.svc.Allocation.WorkloadReport(context.Background(), env.admin, env.session.SessionID, "school")
	require.NoError(t, err)
	assert.True(t, report.Consistent)
}

// withdrawingResolver 查询合格导师时让该学生退出，模拟分配途中学生被并发退出
type withdrawingResolver struct {
	EligibilityResolver
	t   *testing.T
	env *testEnv
}

func (r *withdrawingResolver) withdraw(student *model.Student) {
	_, err := r.env.svc.Session.Withdraw(context.Background(), r.env.admin, r.env.session.SessionID, student.StudentID)
	require.NoError(r.t, err)
}

func (r *withdrawingResolver) EligibleSchoolSupervisors(ctx context.Context, student *model.Student) ([]model.Supervisor, error) {
	r.withdraw(student)
	return r.EligibilityResolver.EligibleSchoolSupervisors(ctx, student)
}

func (r *withdrawingResolver) Eligible(ctx context.Context, student *model.Student, role model.SupervisorRole) ([]model.Supervisor, error) {
	r.withdraw(student)
	return r.EligibilityResolver.Eligible(ctx, student, role)
}

func TestAllocationService_ManualAssign_WithdrawnMidway(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	st := env.enrolledStudent(t, env.dept.DepartmentID, nil)
	ss := env.schoolSupervisor(t, env.dept.DepartmentID, 5)

	resolver := &withdrawingResolver{EligibilityResolver: env.svc.Eligibility, t: t, env: env}
	svc := NewAllocationService(env.repo, env.svc.Capacity, resolver, nil, time.Minute, zap.NewNop())

	_, err := svc.ManualAssign(ctx, env.admin, env.session.SessionID, &dto.ManualAssignRequest{
		StudentID: st.StudentID, SupervisorID: ss.SupervisorID, Role: "school",
	})
	assert.ErrorIs(t, err, ErrNotEnrolled)
	assert.Equal(t, 0, env.load(t, ss))

	assignments, err := env.repo.Assignment.ListByStudent(ctx, st.StudentID, env.session.SessionID)
	require.NoError(t, err)
	assert.Empty(t, assignments)
}

func TestAllocationService_AutoAssign_WithdrawnMidway(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	ss := env.schoolSupervisor(t, env.dept.DepartmentID, 5)
	first := env.enrolledStudent(t, env.dept.DepartmentID, nil)
	second := env.enrolledStudent(t, env.dept.DepartmentID, nil)

	// 同院系候选只查询一次，即只有第一个学生在列表读出后被退出
	resolver := &withdrawingResolver{EligibilityResolver: env.svc.Eligibility, t: t, env: env}
	svc := NewAllocationService(env.repo, env.svc.Capacity, resolver, nil, time.Minute, zap.NewNop())

	result, err := svc.AutoAssign(ctx, env.admin, env.session.SessionID, &dto.AutoAssignRequest{Role: "school"})
	require.NoError(t, err)
	require.Equal(t, 1, result.SuccessCount)
	require.Equal(t, 1, result.FailureCount)
	assert.Equal(t, second.StudentID, result.Succeeded[0].StudentID)
	assert.Equal(t, first.StudentID, result.Failed[0].Item.StudentID)
	assert.Equal(t, string(pkgerrors.KindInvalidState), result.Failed[0].Reason)
	assert.Equal(t, 1, env.load(t, ss))

	assignments, err := env.repo.Assignment.ListByStudent(ctx, first.StudentID, env.session.SessionID)
	require.NoError(t, err)
	assert.Empty(t, assignments, "已退出的学生不得留有分配")
}

func TestAllocationService_Assign_LockOrder(t *testing.T) {
	env := newTestEnv(t, nil)
	st := env.enrolledStudent(t, env.dept.DepartmentID, nil)
	ss := env.schoolSupervisor(t, env.dept.DepartmentID, 5)

	reads := env.recordReads(t)
	env.assign(t, st, ss)

	var locks []tableRead
	for _, r := range reads() {
		if r.Lock != "" {
			locks = append(locks, r)
		}
	}
	assert.Equal(t, []tableRead{
		{Table: "enrollments", Lock: "UPDATE"},
		{Table: "supervisors", Lock: "SHARE"},
	}, locks)
}

type fakeLocker struct {
	mu      sync.Mutex
	held    map[string]string
	denyAll bool
}

func newFakeLocker() *fakeLocker { return &fakeLocker{held: map[string]string{}} }

func (l *fakeLocker) AcquireLock(_ context.Context, key string, _ time.Duration) (string, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.denyAll {
		return "", false, nil
	}
	if _, ok := l.held[key]; ok {
		return "", false, nil
	}
	l.held[key] = "token-" + key
	return l.held[key], true, nil
}

func (l *fakeLocker) ReleaseLock(_ context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] == token {
		delete(l.held, key)
	}
	return nil
}

func TestAllocationService_AutoAssign_BatchLock(t *testing.T) {
	locker := newFakeLocker()
	env := newTestEnv(t, locker)
	env.schoolSupervisor(t, env.dept.DepartmentID, 5)
	env.enrolledStudent(t, env.dept.DepartmentID, nil)

	locker.denyAll = true
	_, err := env.svc.Allocation.AutoAssign(context.Background(), env.admin, env.session.SessionID, &dto.AutoAssignRequest{Role: "school"})
	assert.ErrorIs(t, err, ErrBatchInProgress)
	assert.ErrorIs(t, err, pkgerrors.Conflict)

	locker.denyAll = false
	result, err := env.svc.Allocation.AutoAssign(context.Background(), env.admin, env.session.SessionID, &dto.AutoAssignRequest{Role: "school"})
	require.NoError(t, err)
	assert.Equal(t, 1, result.SuccessCount)
	assert.Empty(t, locker.held, "批次结束后应释放锁")
}

func TestAllocationService_AutoAssign_RunRecorded(t *testing.T) {
	env := newTestEnv(t, nil)
	env.schoolSupervisor(t, env.dept.DepartmentID, 1)
	env.enrolledStudent(t, env.dept.DepartmentID, nil)
	env.enrolledStudent(t, env.dept.DepartmentID, nil)

	result, err := env.svc.Allocation.AutoAssign(context.Background(), env.admin, env.session.SessionID, &dto.AutoAssignRequest{Role: "school"})
	require.NoError(t, err)

	run, err := env.repo.AllocationRun.GetByID(context.Background(), result.RunID)
	require.NoError(t, err)
	assert.Equal(t, 1, run.SuccessCount)
	assert.Equal(t, 1, run.FailureCount)

	var outcome map[string]any
	require.NoError(t, json.Unmarshal(run.Outcome, &outcome))
	assert.Contains(t, outcome, "successCount")
	assert.Contains(t, outcome, "failureCount")
}

// ── 负载一致性 ──

func TestAllocationService_RebuildLoads(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	ss := env.schoolSupervisor(t, env.dept.DepartmentID, 5)
	env.assign(t, env.enrolledStudent(t, env.dept.DepartmentID, nil), ss)
	env.assign(t, env.enrolledStudent(t, env.dept.DepartmentID, nil), ss)

	// 人为破坏派生负载
	require.NoError(t, env.repo.Load.Replace(ctx, env.session.SessionID, map[string]int{ss.SupervisorID: 4}))

	report, err := env.svc.Allocation.WorkloadReport(ctx, env.admin, env.session.SessionID, "")
	require.NoError(t, err)
	assert.False(t, report.Consistent)

	resp, err := env.svc.Allocation.RebuildLoads(ctx, env.admin, env.session.SessionID)
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Corrected)
	assert.Equal(t, 1, resp.Supervisors)
	assert.Equal(t, 2, env.load(t, ss))

	report, err = env.svc.Allocation.WorkloadReport(ctx, env.admin, env.session.SessionID, "")
	require.NoError(t, err)
	assert.True(t, report.Consistent)
}

func TestAllocationService_RebuildLoads_LocksEnrollmentsBeforeCounting(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	ss := env.schoolSupervisor(t, env.dept.DepartmentID, 5)
	env.assign(t, env.enrolledStudent(t, env.dept.DepartmentID, nil), ss)

	reads := env.recordReads(t)
	_, err := env.svc.Allocation.RebuildLoads(ctx, env.admin, env.session.SessionID)
	require.NoError(t, err)

	got := reads()
	locked := indexOf(got, tableRead{Table: "enrollments", Lock: "UPDATE"})
	counted := indexOf(got, tableRead{Table: "assignments"})
	require.GreaterOrEqual(t, locked, 0, "应锁定参加记录: %v", got)
	assert.Less(t, locked, counted, "计数须在锁定参加记录之后: %v", got)
}

// 重建与分配并发：结束后负载与有效分配一致
func TestAllocationService_RebuildLoads_ConcurrentAssign(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	ss := env.schoolSupervisor(t, env.dept.DepartmentID, 20)
	students := make([]*model.Student, 8)
	for i := range students {
		students[i] = env.enrolledStudent(t, env.dept.DepartmentID, nil)
	}

	var wg sync.WaitGroup
	for _, st := range students {
		wg.Add(2)
		go func(st *model.Student) {
			defer wg.Done()
			_, err := env.svc.Allocation.ManualAssign(ctx, env.admin, env.session.SessionID, &dto.ManualAssignRequest{
				StudentID: st.StudentID, SupervisorID: ss.SupervisorID, Role: "school",
			})
			assert.NoError(t, err)
		}(st)
		go func() {
			defer wg.Done()
			_, err := env.svc.Allocation.RebuildLoads(ctx, env.admin, env.session.SessionID)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, len(students), env.load(t, ss))
	report, err := env.svc.Allocation.WorkloadReport(ctx, env.admin, env.session.SessionID, "school")
	require.NoError(t, err)
	assert.True(t, report.Consistent)
}

func TestAllocationService_ClosedSessionRejectsMutations(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	st := env.enrolledStudent(t, env.dept.DepartmentID, nil)
	ss := env.schoolSupervisor(t, env.dept.DepartmentID, 5)
	a := env.assign(t, st, ss)

	_, err := env.svc.Session.CloseSession(ctx, env.admin, env.session.SessionID)
	require.NoError(t, err)

	err = env.svc.Allocation.RemoveAssignment(ctx, env.admin, a.ID)
	assert.ErrorIs(t, err, ErrSessionClosed)
	_, err = env.svc.Allocation.AutoAssign(ctx, env.admin, env.session.SessionID, &dto.AutoAssignRequest{Role: "school"})
	assert.ErrorIs(t, err, ErrSessionClosed)

	list, err := env.svc.Allocation.ListAssignments(ctx, env.admin, env.session.SessionID, nil)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
