package model

import "fmt"

// CallerRole 调用方角色（封闭枚举）
//
// 由 JWT 中的角色字符串在边界处解析一次，之后所有分支都对该枚举做穷举 switch，
// 新增角色时未覆盖的分支会落入 default 返回错误，而不是按字符串静默放行。
type CallerRole uint8

const (
	RoleStudent CallerRole = iota + 1
	RoleSchoolSupervisor
	RoleIndustrySupervisor
	RoleAdmin
)

func (r CallerRole) String() string {
	switch r {
	case RoleStudent:
		return "student"
	case RoleSchoolSupervisor:
		return "school_supervisor"
	case RoleIndustrySupervisor:
		return "industry_supervisor"
	case RoleAdmin:
		return "admin"
	default:
		return fmt.Sprintf("CallerRole(%d)", uint8(r))
	}
}

// ParseCallerRole 将外部角色字符串解析为 CallerRole
func ParseCallerRole(s string) (CallerRole, error) {
	switch s {
	case "student":
		return RoleStudent, nil
	case "school_supervisor":
		return RoleSchoolSupervisor, nil
	case "industry_supervisor":
		return RoleIndustrySupervisor, nil
	case "admin":
		return RoleAdmin, nil
	default:
		return 0, fmt.Errorf("未知角色: %q", s)
	}
}

// SupervisorRole 返回调用方以导师身份行事时对应的分配角色
func (r CallerRole) SupervisorRole() (SupervisorRole, bool) {
	switch r {
	case RoleSchoolSupervisor:
		return SupervisorRoleSchool, true
	case RoleIndustrySupervisor:
		return SupervisorRoleIndustry, true
	case RoleStudent, RoleAdmin:
		return "", false
	default:
		return "", false
	}
}

// SupervisorRole 导师类别，同时是 Assignment / FinalEvaluation 的角色维度
type SupervisorRole string

const (
	SupervisorRoleSchool   SupervisorRole = "school"
	SupervisorRoleIndustry SupervisorRole = "industry"
)

// Valid 是否为已知导师类别
func (r SupervisorRole) Valid() bool {
	switch r {
	case SupervisorRoleSchool, SupervisorRoleIndustry:
		return true
	default:
		return false
	}
}

// CallerRole 返回该导师类别对应的调用方角色
func (r SupervisorRole) CallerRole() CallerRole {
	switch r {
	case SupervisorRoleSchool:
		return RoleSchoolSupervisor
	case SupervisorRoleIndustry:
		return RoleIndustrySupervisor
	default:
		return 0
	}
}

// ParseSupervisorRole 解析导师类别
func ParseSupervisorRole(s string) (SupervisorRole, error) {
	r := SupervisorRole(s)
	if !r.Valid() {
		return "", fmt.Errorf("未知导师类别: %q", s)
	}
	return r, nil
}

// Caller 已认证的调用方身份（由外部认证层签发，核心只做基于关系的鉴权）
//
// 学生的 UserID 即 students.student_id，导师的 UserID 即 supervisors.supervisor_id。
type Caller struct {
	UserID string
	Role   CallerRole
}
