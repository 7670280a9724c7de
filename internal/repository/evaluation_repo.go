package repository

import (
	"context"

	"gorm.io/gorm"

	"practicum/backend/internal/model"
)

// FinalEvaluationRepository 终评数据访问接口（只新增，不更新、不删除）
type FinalEvaluationRepository interface {
	Create(ctx context.Context, evaluation *model.FinalEvaluation) error
	Exists(ctx context.Context, studentID, sessionID string, role model.SupervisorRole) (bool, error)
	ListByStudent(ctx context.Context, studentID, sessionID string) ([]model.FinalEvaluation, error)
}

type finalEvaluationRepo struct {
	db *gorm.DB
}

// NewFinalEvaluationRepo 创建 FinalEvaluationRepository 实例
func NewFinalEvaluationRepo(db *gorm.DB) FinalEvaluationRepository {
	return &finalEvaluationRepo{db: db}
}

func (r *finalEvaluationRepo) Create(ctx context.Context, evaluation *model.FinalEvaluation) error {
	return r.db.WithContext(ctx).Create(evaluation).Error
}

func (r *finalEvaluationRepo) Exists(ctx context.Context, studentID, sessionID string, role model.SupervisorRole) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.FinalEvaluation{}).
		Where("student_id = ? AND session_id = ? AND author_role = ?", studentID, sessionID, role).
		Count(&count).Error
	return count > 0, err
}

func (r *finalEvaluationRepo) ListByStudent(ctx context.Context, studentID, sessionID string) ([]model.FinalEvaluation, error) {
	var evaluations []model.FinalEvaluation
	err := r.db.WithContext(ctx).
		Where("student_id = ? AND session_id = ?", studentID, sessionID).
		Order("author_role DESC").
		Find(&evaluations).Error
	return evaluations, err
}

// AllocationRunRepository 自动分配批次记录数据访问接口
type AllocationRunRepository interface {
	Create(ctx context.Context, run *model.AllocationRun) error
	GetByID(ctx context.Context, id string) (*model.AllocationRun, error)
	ListBySession(ctx context.Context, sessionID string) ([]model.AllocationRun, error)
}

type allocationRunRepo struct {
	db *gorm.DB
}

// NewAllocationRunRepo 创建 AllocationRunRepository 实例
func NewAllocationRunRepo(db *gorm.DB) AllocationRunRepository {
	return &allocationRunRepo{db: db}
}

func (r *allocationRunRepo) Create(ctx context.Context, run *model.AllocationRun) error {
	return r.db.WithContext(ctx).Create(run).Error
}

func (r *allocationRunRepo) GetByID(ctx context.Context, id string) (*model.AllocationRun, error) {
	var run model.AllocationRun
	err := r.db.WithContext(ctx).
		Where("run_id = ?", id).
		First(&run).Error
	if err != nil {
		return nil, err
	}
	return &run, nil
}

func (r *allocationRunRepo) ListBySession(ctx context.Context, sessionID string) ([]model.AllocationRun, error) {
	var runs []model.AllocationRun
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("started_at DESC").
		Find(&runs).Error
	return runs, err
}
