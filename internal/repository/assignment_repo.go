package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"practicum/backend/internal/model"
	pkgerrors "practicum/backend/pkg/errors"
)

// ════════════════════════════════════════════════════════════
// Enrollment
// ════════════════════════════════════════════════════════════

// EnrollmentRepository 参加实习记录数据访问接口
type EnrollmentRepository interface {
	Create(ctx context.Context, enrollment *model.Enrollment) error
	Get(ctx context.Context, studentID, sessionID string) (*model.Enrollment, error)
	// GetForUpdate 事务内读取并锁定参加记录；分配写入、删除与退出都先锁这一行
	GetForUpdate(ctx context.Context, studentID, sessionID string) (*model.Enrollment, error)
	// LockBySession 锁定实习期内全部参加记录，等待进行中的分配事务结束
	LockBySession(ctx context.Context, sessionID string) error
	ListBySession(ctx context.Context, sessionID string) ([]model.Enrollment, error)
	// ListUnassigned 返回尚无该角色有效分配的在读学生，按 (created_at, student_id) 升序
	ListUnassigned(ctx context.Context, sessionID string, role model.SupervisorRole) ([]model.Enrollment, error)
	// Withdraw 条件更新：仅 active 记录可退出
	Withdraw(ctx context.Context, enrollment *model.Enrollment, updatedBy string) error
}

type enrollmentRepo struct {
	db *gorm.DB
}

// NewEnrollmentRepo 创建 EnrollmentRepository 实例
func NewEnrollmentRepo(db *gorm.DB) EnrollmentRepository {
	return &enrollmentRepo{db: db}
}

func (r *enrollmentRepo) Create(ctx context.Context, enrollment *model.Enrollment) error {
	return r.db.WithContext(ctx).Create(enrollment).Error
}

func (r *enrollmentRepo) Get(ctx context.Context, studentID, sessionID string) (*model.Enrollment, error) {
	var enrollment model.Enrollment
	err := r.db.WithContext(ctx).
		Where("student_id = ? AND session_id = ?", studentID, sessionID).
		First(&enrollment).Error
	if err != nil {
		return nil, err
	}
	return &enrollment, nil
}

func (r *enrollmentRepo) GetForUpdate(ctx context.Context, studentID, sessionID string) (*model.Enrollment, error) {
	var enrollment model.Enrollment
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("student_id = ? AND session_id = ?", studentID, sessionID).
		First(&enrollment).Error
	if err != nil {
		return nil, err
	}
	return &enrollment, nil
}

func (r *enrollmentRepo) LockBySession(ctx context.Context, sessionID string) error {
	var ids []string
	return r.db.WithContext(ctx).
		Model(&model.Enrollment{}).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("session_id = ?", sessionID).
		Order("enrollment_id ASC").
		Pluck("enrollment_id", &ids).Error
}

func (r *enrollmentRepo) ListBySession(ctx context.Context, sessionID string) ([]model.Enrollment, error) {
	var enrollments []model.Enrollment
	err := r.db.WithContext(ctx).
		Preload("Student").
		Where("session_id = ?", sessionID).
		Order("created_at ASC, student_id ASC").
		Find(&enrollments).Error
	return enrollments, err
}

func (r *enrollmentRepo) ListUnassigned(ctx context.Context, sessionID string, role model.SupervisorRole) ([]model.Enrollment, error) {
	var enrollments []model.Enrollment
	err := r.db.WithContext(ctx).
		Preload("Student").
		Where("enrollments.session_id = ? AND enrollments.status = ?", sessionID, model.EnrollmentActive).
		Where("enrollments.student_id IN (SELECT student_id FROM students WHERE deleted_at IS NULL)").
		Where(`NOT EXISTS (
			SELECT 1 FROM assignments a
			 WHERE a.student_id = enrollments.student_id
			   AND a.session_id = enrollments.session_id
			   AND a.role = ? AND a.deleted_at IS NULL)`, role).
		Order("enrollments.created_at ASC, enrollments.student_id ASC").
		Find(&enrollments).Error
	return enrollments, err
}

func (r *enrollmentRepo) Withdraw(ctx context.Context, enrollment *model.Enrollment, updatedBy string) error {
	now := time.Now().UTC()
	result := r.db.WithContext(ctx).
		Model(&model.Enrollment{}).
		Where("enrollment_id = ? AND status = ?", enrollment.EnrollmentID, model.EnrollmentActive).
		Updates(map[string]interface{}{
			"status":       model.EnrollmentWithdrawn,
			"withdrawn_at": now,
			"updated_by":   updatedBy,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	enrollment.Status = model.EnrollmentWithdrawn
	enrollment.WithdrawnAt = &now
	return nil
}

// ════════════════════════════════════════════════════════════
// Assignment
// ════════════════════════════════════════════════════════════

// AssignmentRepository 分配数据访问接口（所有查询只返回未删除的分配）
type AssignmentRepository interface {
	Create(ctx context.Context, assignment *model.Assignment) error
	GetByID(ctx context.Context, id string) (*model.Assignment, error)
	// GetActive 返回学生在实习期内某角色的有效分配
	GetActive(ctx context.Context, studentID, sessionID string, role model.SupervisorRole) (*model.Assignment, error)
	// HasActive 判断导师是否以指定角色持有该学生的有效分配
	HasActive(ctx context.Context, studentID, sessionID, supervisorID string, role model.SupervisorRole) (bool, error)
	// HasAnyForStudent 判断导师是否在任一实习期内持有该学生的有效分配
	HasAnyForStudent(ctx context.Context, studentID, supervisorID string) (bool, error)
	ListBySession(ctx context.Context, sessionID string, role model.SupervisorRole) ([]model.Assignment, error)
	ListByStudent(ctx context.Context, studentID, sessionID string) ([]model.Assignment, error)
	// SoftDelete 条件软删除：已删除的分配返回 gorm.ErrRecordNotFound
	SoftDelete(ctx context.Context, id string, deletedBy string) error
	// CountBySupervisor 统计实习期内每位导师的有效分配数
	CountBySupervisor(ctx context.Context, sessionID string) (map[string]int, error)
}

type assignmentRepo struct {
	db *gorm.DB
}

// NewAssignmentRepo 创建 AssignmentRepository 实例
func NewAssignmentRepo(db *gorm.DB) AssignmentRepository {
	return &assignmentRepo{db: db}
}

func (r *assignmentRepo) Create(ctx context.Context, assignment *model.Assignment) error {
	return r.db.WithContext(ctx).Create(assignment).Error
}

func (r *assignmentRepo) GetByID(ctx context.Context, id string) (*model.Assignment, error) {
	var assignment model.Assignment
	err := r.db.WithContext(ctx).
		Where("assignment_id = ?", id).
		First(&assignment).Error
	if err != nil {
		return nil, err
	}
	return &assignment, nil
}

func (r *assignmentRepo) GetActive(ctx context.Context, studentID, sessionID string, role model.SupervisorRole) (*model.Assignment, error) {
	var assignment model.Assignment
	err := r.db.WithContext(ctx).
		Where("student_id = ? AND session_id = ? AND role = ?", studentID, sessionID, role).
		First(&assignment).Error
	if err != nil {
		return nil, err
	}
	return &assignment, nil
}

func (r *assignmentRepo) HasActive(ctx context.Context, studentID, sessionID, supervisorID string, role model.SupervisorRole) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Assignment{}).
		Where("student_id = ? AND session_id = ? AND supervisor_id = ? AND role = ?",
			studentID, sessionID, supervisorID, role).
		Count(&count).Error
	return count > 0, err
}

func (r *assignmentRepo) HasAnyForStudent(ctx context.Context, studentID, supervisorID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Assignment{}).
		Where("student_id = ? AND supervisor_id = ?", studentID, supervisorID).
		Count(&count).Error
	return count > 0, err
}

// ListBySession role 为空时返回所有角色
func (r *assignmentRepo) ListBySession(ctx context.Context, sessionID string, role model.SupervisorRole) ([]model.Assignment, error) {
	var assignments []model.Assignment
	q := r.db.WithContext(ctx).
		Preload("Student").
		Preload("Supervisor").
		Where("session_id = ?", sessionID)
	if role != "" {
		q = q.Where("role = ?", role)
	}
	err := q.Order("created_at ASC, assignment_id ASC").Find(&assignments).Error
	return assignments, err
}

func (r *assignmentRepo) ListByStudent(ctx context.Context, studentID, sessionID string) ([]model.Assignment, error) {
	var assignments []model.Assignment
	err := r.db.WithContext(ctx).
		Preload("Supervisor").
		Where("student_id = ? AND session_id = ?", studentID, sessionID).
		Order("role ASC").
		Find(&assignments).Error
	return assignments, err
}

func (r *assignmentRepo) SoftDelete(ctx context.Context, id string, deletedBy string) error {
	result := r.db.WithContext(ctx).
		Model(&model.Assignment{}).
		Where("assignment_id = ? AND deleted_at IS NULL", id).
		Updates(map[string]interface{}{
			"deleted_at": time.Now().UTC(),
			"deleted_by": deletedBy,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

type supervisorCount struct {
	SupervisorID string
	Total        int
}

func (r *assignmentRepo) CountBySupervisor(ctx context.Context, sessionID string) (map[string]int, error) {
	var rows []supervisorCount
	err := r.db.WithContext(ctx).
		Model(&model.Assignment{}).
		Select("supervisor_id, COUNT(*) AS total").
		Where("session_id = ?", sessionID).
		Group("supervisor_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int, len(rows))
	for _, row := range rows {
		counts[row.SupervisorID] = row.Total
	}
	return counts, nil
}
