package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// EnrollmentStatus 选课（参加实习）状态
type EnrollmentStatus string

const (
	EnrollmentActive    EnrollmentStatus = "active"
	EnrollmentWithdrawn EnrollmentStatus = "withdrawn"
)

// Enrollment 学生-实习期参加记录，对应 enrollments
type Enrollment struct {
	EnrollmentID string           `gorm:"type:uuid;primaryKey"                                  json:"enrollment_id"`
	StudentID    string           `gorm:"type:uuid;not null;uniqueIndex:uq_enrollment"          json:"student_id"`
	SessionID    string           `gorm:"type:uuid;not null;uniqueIndex:uq_enrollment"          json:"session_id"`
	Status       EnrollmentStatus `gorm:"type:varchar(20);not null;default:'active'"            json:"status"`
	WithdrawnAt  *time.Time       `json:"withdrawn_at,omitempty"`
	BaseModel

	// 关联
	Student *Student `gorm:"foreignKey:StudentID;references:StudentID" json:"student,omitempty"`
}

// TableName 指定表名
func (Enrollment) TableName() string { return "enrollments" }

// BeforeCreate 生成主键
func (e *Enrollment) BeforeCreate(_ *gorm.DB) error {
	ensureID(&e.EnrollmentID)
	return nil
}

// Assignment 学生-导师分配表，对应 assignments
//
// (student_id, session_id, role) 在未删除的行中唯一：同一实习期内每个角色只有一位导师。
// 删除为软删除，删除与负载释放在同一事务内提交。
type Assignment struct {
	AssignmentID string         `gorm:"type:uuid;primaryKey"                                                            json:"assignment_id"`
	StudentID    string         `gorm:"type:uuid;not null;uniqueIndex:uq_assignment_active,where:deleted_at IS NULL"    json:"student_id"`
	SessionID    string         `gorm:"type:uuid;not null;uniqueIndex:uq_assignment_active;index:idx_assignment_load"   json:"session_id"`
	Role         SupervisorRole `gorm:"type:varchar(20);not null;uniqueIndex:uq_assignment_active"                      json:"role"`
	SupervisorID string         `gorm:"type:uuid;not null;index:idx_assignment_load"                                    json:"supervisor_id"`
	SoftDeleteModel

	// 关联
	Student    *Student    `gorm:"foreignKey:StudentID;references:StudentID"       json:"student,omitempty"`
	Supervisor *Supervisor `gorm:"foreignKey:SupervisorID;references:SupervisorID" json:"supervisor,omitempty"`
}

// TableName 指定表名
func (Assignment) TableName() string { return "assignments" }

// BeforeCreate 生成主键
func (a *Assignment) BeforeCreate(_ *gorm.DB) error {
	ensureID(&a.AssignmentID)
	return nil
}

// AllocationRun 自动分配批次记录，对应 allocation_runs（纯审计）
type AllocationRun struct {
	RunID        string         `gorm:"type:uuid;primaryKey"        json:"run_id"`
	SessionID    string         `gorm:"type:uuid;not null;index"    json:"session_id"`
	Role         SupervisorRole `gorm:"type:varchar(20);not null"   json:"role"`
	TriggeredBy  string         `gorm:"type:uuid;not null"          json:"triggered_by"`
	SuccessCount int            `gorm:"not null;default:0"          json:"success_count"`
	FailureCount int            `gorm:"not null;default:0"          json:"failure_count"`
	Canceled     bool           `gorm:"not null;default:false"      json:"canceled"`
	Outcome      datatypes.JSON `json:"outcome"` // 完整分配清单
	StartedAt    time.Time      `gorm:"not null"                    json:"started_at"`
	FinishedAt   time.Time      `gorm:"not null"                    json:"finished_at"`
}

// TableName 指定表名
func (AllocationRun) TableName() string { return "allocation_runs" }

// BeforeCreate 生成主键
func (r *AllocationRun) BeforeCreate(_ *gorm.DB) error {
	ensureID(&r.RunID)
	return nil
}
