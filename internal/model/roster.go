package model

import (
	"time"

	"gorm.io/gorm"
)

// Student 学生表，对应 students
type Student struct {
	StudentID      string  `gorm:"type:uuid;primaryKey"                      json:"student_id"`
	Name           string  `gorm:"type:varchar(100);not null"                json:"name"`
	MatricNo       string  `gorm:"type:varchar(30);not null;uniqueIndex"     json:"matric_no"`
	Email          string  `gorm:"type:varchar(255)"                         json:"email,omitempty"`
	DepartmentID   string  `gorm:"type:uuid;not null;index"                  json:"department_id"`
	OrganizationID *string `gorm:"type:uuid"                                 json:"organization_id,omitempty"` // 实习单位
	SoftDeleteModel

	// 关联
	Department *Department `gorm:"foreignKey:DepartmentID;references:DepartmentID" json:"department,omitempty"`
}

// TableName 指定表名
func (Student) TableName() string { return "students" }

// BeforeCreate 生成主键
func (s *Student) BeforeCreate(_ *gorm.DB) error {
	ensureID(&s.StudentID)
	return nil
}

// Supervisor 导师表，对应 supervisors
//
// 校内导师必须归属院系；企业导师不受院系约束，可选归属实习单位。
// 导师只会被停用，持有分配时不做物理删除。
type Supervisor struct {
	SupervisorID   string         `gorm:"type:uuid;primaryKey"                  json:"supervisor_id"`
	Name           string         `gorm:"type:varchar(100);not null"            json:"name"`
	Email          string         `gorm:"type:varchar(255);not null;uniqueIndex" json:"email"`
	Role           SupervisorRole `gorm:"type:varchar(20);not null;index"       json:"role"`
	DepartmentID   *string        `gorm:"type:uuid;index"                       json:"department_id,omitempty"`
	OrganizationID *string        `gorm:"type:uuid"                             json:"organization_id,omitempty"`
	Capacity       int            `gorm:"not null;default:0"                    json:"capacity"` // 每个实习期最多指导学生数
	IsActive       bool           `gorm:"not null;default:true"                 json:"is_active"`
	DeactivatedAt  *time.Time     `json:"deactivated_at,omitempty"`
	VersionedModel

	// 关联
	Department *Department `gorm:"foreignKey:DepartmentID;references:DepartmentID" json:"department,omitempty"`
}

// TableName 指定表名
func (Supervisor) TableName() string { return "supervisors" }

// BeforeCreate 生成主键
func (s *Supervisor) BeforeCreate(_ *gorm.DB) error {
	ensureID(&s.SupervisorID)
	ensureVersion(&s.Version)
	return nil
}

// SupervisorLoad 导师在某实习期内的当前负载，对应 supervisor_loads
//
// 派生视图：CurrentLoad 必须始终等于该导师在该实习期内有效 Assignment 的行数，
// 只随 Assignment 写入在同一事务内增减，可由 RebuildLoads 从 Assignment 重算。
type SupervisorLoad struct {
	SupervisorID string    `gorm:"type:uuid;primaryKey"               json:"supervisor_id"`
	SessionID    string    `gorm:"type:uuid;primaryKey"               json:"session_id"`
	CurrentLoad  int       `gorm:"not null;default:0"                 json:"current_load"`
	UpdatedAt    time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName 指定表名
func (SupervisorLoad) TableName() string { return "supervisor_loads" }
