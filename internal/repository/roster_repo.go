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
// Student
// ════════════════════════════════════════════════════════════

// StudentRepository 学生数据访问接口
type StudentRepository interface {
	Create(ctx context.Context, student *model.Student) error
	GetByID(ctx context.Context, id string) (*model.Student, error)
	GetByMatricNo(ctx context.Context, matricNo string) (*model.Student, error)
	List(ctx context.Context, departmentID string, offset, limit int) ([]model.Student, int64, error)
}

type studentRepo struct {
	db *gorm.DB
}

// NewStudentRepo 创建 StudentRepository 实例
func NewStudentRepo(db *gorm.DB) StudentRepository {
	return &studentRepo{db: db}
}

func (r *studentRepo) Create(ctx context.Context, student *model.Student) error {
	return r.db.WithContext(ctx).Create(student).Error
}

func (r *studentRepo) GetByID(ctx context.Context, id string) (*model.Student, error) {
	var student model.Student
	err := r.db.WithContext(ctx).
		Where("student_id = ?", id).
		First(&student).Error
	if err != nil {
		return nil, err
	}
	return &student, nil
}

func (r *studentRepo) GetByMatricNo(ctx context.Context, matricNo string) (*model.Student, error) {
	var student model.Student
	err := r.db.WithContext(ctx).
		Where("matric_no = ?", matricNo).
		First(&student).Error
	if err != nil {
		return nil, err
	}
	return &student, nil
}

// List 分页列出学生；departmentID 为空时不过滤院系
func (r *studentRepo) List(ctx context.Context, departmentID string, offset, limit int) ([]model.Student, int64, error) {
	var students []model.Student
	var total int64

	db := r.db.WithContext(ctx).Model(&model.Student{})
	if departmentID != "" {
		db = db.Where("department_id = ?", departmentID)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := db.Preload("Department").
		Offset(offset).Limit(limit).
		Order("matric_no ASC").
		Find(&students).Error; err != nil {
		return nil, 0, err
	}

	return students, total, nil
}

// ════════════════════════════════════════════════════════════
// Supervisor
// ════════════════════════════════════════════════════════════

// SupervisorRepository 导师数据访问接口
type SupervisorRepository interface {
	Create(ctx context.Context, supervisor *model.Supervisor) error
	GetByID(ctx context.Context, id string) (*model.Supervisor, error)
	// GetForUpdate 事务内读取并锁定导师行，与名额占用互斥
	GetForUpdate(ctx context.Context, id string) (*model.Supervisor, error)
	GetByEmail(ctx context.Context, email string) (*model.Supervisor, error)
	List(ctx context.Context, role model.SupervisorRole) ([]model.Supervisor, error)
	// ListActive 返回指定类别的在职导师，departmentID 非空时按院系过滤，按 supervisor_id 升序
	ListActive(ctx context.Context, role model.SupervisorRole, departmentID string) ([]model.Supervisor, error)
	Deactivate(ctx context.Context, supervisor *model.Supervisor, updatedBy string) error
	UpdateCapacity(ctx context.Context, supervisor *model.Supervisor, capacity int, updatedBy string) error
}

type supervisorRepo struct {
	db *gorm.DB
}

// NewSupervisorRepo 创建 SupervisorRepository 实例
func NewSupervisorRepo(db *gorm.DB) SupervisorRepository {
	return &supervisorRepo{db: db}
}

func (r *supervisorRepo) Create(ctx context.Context, supervisor *model.Supervisor) error {
	return r.db.WithContext(ctx).Create(supervisor).Error
}

func (r *supervisorRepo) GetByID(ctx context.Context, id string) (*model.Supervisor, error) {
	var supervisor model.Supervisor
	err := r.db.WithContext(ctx).
		Where("supervisor_id = ?", id).
		First(&supervisor).Error
	if err != nil {
		return nil, err
	}
	return &supervisor, nil
}

func (r *supervisorRepo) GetForUpdate(ctx context.Context, id string) (*model.Supervisor, error) {
	var supervisor model.Supervisor
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("supervisor_id = ?", id).
		First(&supervisor).Error
	if err != nil {
		return nil, err
	}
	return &supervisor, nil
}

func (r *supervisorRepo) GetByEmail(ctx context.Context, email string) (*model.Supervisor, error) {
	var supervisor model.Supervisor
	err := r.db.WithContext(ctx).
		Where("email = ?", email).
		First(&supervisor).Error
	if err != nil {
		return nil, err
	}
	return &supervisor, nil
}

func (r *supervisorRepo) List(ctx context.Context, role model.SupervisorRole) ([]model.Supervisor, error) {
	var supervisors []model.Supervisor
	q := r.db.WithContext(ctx)
	if role != "" {
		q = q.Where("role = ?", role)
	}
	err := q.Order("name ASC, supervisor_id ASC").Find(&supervisors).Error
	return supervisors, err
}

func (r *supervisorRepo) ListActive(ctx context.Context, role model.SupervisorRole, departmentID string) ([]model.Supervisor, error) {
	var supervisors []model.Supervisor
	q := r.db.WithContext(ctx).
		Where("role = ? AND is_active = ?", role, true)
	if departmentID != "" {
		q = q.Where("department_id = ?", departmentID)
	}
	err := q.Order("supervisor_id ASC").Find(&supervisors).Error
	return supervisors, err
}

func (r *supervisorRepo) Deactivate(ctx context.Context, supervisor *model.Supervisor, updatedBy string) error {
	oldVersion := supervisor.Version
	now := time.Now().UTC()
	result := r.db.WithContext(ctx).
		Model(&model.Supervisor{}).
		Where("supervisor_id = ? AND version = ?", supervisor.SupervisorID, oldVersion).
		Updates(map[string]interface{}{
			"is_active":      false,
			"deactivated_at": now,
			"updated_by":     updatedBy,
			"version":        oldVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	supervisor.IsActive = false
	supervisor.DeactivatedAt = &now
	supervisor.Version = oldVersion + 1
	return nil
}

func (r *supervisorRepo) UpdateCapacity(ctx context.Context, supervisor *model.Supervisor, capacity int, updatedBy string) error {
	oldVersion := supervisor.Version
	result := r.db.WithContext(ctx).
		Model(&model.Supervisor{}).
		Where("supervisor_id = ? AND version = ?", supervisor.SupervisorID, oldVersion).
		Updates(map[string]interface{}{
			"capacity":   capacity,
			"updated_by": updatedBy,
			"version":    oldVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	supervisor.Capacity = capacity
	supervisor.Version = oldVersion + 1
	return nil
}
