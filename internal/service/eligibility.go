package service

import (
	"context"
	"fmt"

	"practicum/backend/internal/model"
	"practicum/backend/internal/repository"
)

// EligibilityResolver 导师资格判定
//
// 结果按 supervisor_id 升序；没有符合条件的导师时返回空集而非错误。
type EligibilityResolver interface {
	// EligibleSchoolSupervisors 与学生同院系的在职校内导师
	EligibleSchoolSupervisors(ctx context.Context, student *model.Student) ([]model.Supervisor, error)
	// EligibleIndustrySupervisors 全部在职企业导师（不受院系约束）
	EligibleIndustrySupervisors(ctx context.Context) ([]model.Supervisor, error)
	// Eligible 按角色分派到上面两个方法
	Eligible(ctx context.Context, student *model.Student, role model.SupervisorRole) ([]model.Supervisor, error)
}

type eligibilityResolver struct {
	repo *repository.Repository
}

// NewEligibilityResolver 创建 EligibilityResolver 实例
func NewEligibilityResolver(repo *repository.Repository) EligibilityResolver {
	return &eligibilityResolver{repo: repo}
}

func (r *eligibilityResolver) EligibleSchoolSupervisors(ctx context.Context, student *model.Student) ([]model.Supervisor, error) {
	if student.DepartmentID == "" {
		return []model.Supervisor{}, nil
	}
	return r.repo.Supervisor.ListActive(ctx, model.SupervisorRoleSchool, student.DepartmentID)
}

func (r *eligibilityResolver) EligibleIndustrySupervisors(ctx context.Context) ([]model.Supervisor, error) {
	return r.repo.Supervisor.ListActive(ctx, model.SupervisorRoleIndustry, "")
}

func (r *eligibilityResolver) Eligible(ctx context.Context, student *model.Student, role model.SupervisorRole) ([]model.Supervisor, error) {
	switch role {
	case model.SupervisorRoleSchool:
		return r.EligibleSchoolSupervisors(ctx, student)
	case model.SupervisorRoleIndustry:
		return r.EligibleIndustrySupervisors(ctx)
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}
}

// containsSupervisor 判断 supervisorID 是否在候选集中
func containsSupervisor(candidates []model.Supervisor, supervisorID string) bool {
	for i := range candidates {
		if candidates[i].SupervisorID == supervisorID {
			return true
		}
	}
	return false
}
