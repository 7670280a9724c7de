package service

import (
	"context"
	"fmt"

	"practicum/backend/internal/model"
	"practicum/backend/internal/repository"
)

// requireAdmin 管理员操作守卫
func requireAdmin(caller model.Caller) error {
	switch caller.Role {
	case model.RoleAdmin:
		return nil
	case model.RoleStudent, model.RoleSchoolSupervisor, model.RoleIndustrySupervisor:
		return ErrAdminOnly
	default:
		return fmt.Errorf("%w: %s", ErrAdminOnly, caller.Role)
	}
}

// supervisorRoleOf 返回调用方作为导师的角色，非导师返回 ErrNotSupervisor
func supervisorRoleOf(caller model.Caller) (model.SupervisorRole, error) {
	role, ok := caller.Role.SupervisorRole()
	if !ok {
		return "", ErrNotSupervisor
	}
	return role, nil
}

// relationshipGuard 基于关系的读权限检查
//
// 学生只能看自己；导师只能看持有有效分配的学生；管理员不受限。
type relationshipGuard struct {
	repo *repository.Repository
}

// canView 检查调用方能否查看学生在某实习期的记录
func (g relationshipGuard) canView(ctx context.Context, caller model.Caller, studentID, sessionID string) error {
	switch caller.Role {
	case model.RoleAdmin:
		return nil
	case model.RoleStudent:
		if caller.UserID == studentID {
			return nil
		}
		return ErrNoRelationship
	case model.RoleSchoolSupervisor, model.RoleIndustrySupervisor:
		role, _ := caller.Role.SupervisorRole()
		ok, err := g.repo.Assignment.HasActive(ctx, studentID, sessionID, caller.UserID, role)
		if err != nil {
			return err
		}
		if !ok {
			return ErrNoRelationship
		}
		return nil
	default:
		return ErrNoRelationship
	}
}

// requireAssignment 要求导师以其角色持有该学生的有效分配
func (g relationshipGuard) requireAssignment(ctx context.Context, caller model.Caller, studentID, sessionID string) (model.SupervisorRole, error) {
	role, err := supervisorRoleOf(caller)
	if err != nil {
		return "", err
	}
	ok, err := g.repo.Assignment.HasActive(ctx, studentID, sessionID, caller.UserID, role)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrNotAssigned
	}
	return role, nil
}
