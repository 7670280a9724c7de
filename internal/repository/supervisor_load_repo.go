package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"practicum/backend/internal/model"
)

// SupervisorLoadRepository 导师负载数据访问接口
//
// 只应由 Capacity Directory 调用；Reserve/Release 必须与对应的 Assignment 写入处于同一事务。
type SupervisorLoadRepository interface {
	// Ensure 确保 (supervisor, session) 负载行存在，已存在时不做任何修改
	Ensure(ctx context.Context, supervisorID, sessionID string) error
	// Reserve 条件自增：锁定导师行后，仅当导师在职且 current_load < capacity 时 +1，返回是否成功
	Reserve(ctx context.Context, supervisorID, sessionID string) (bool, error)
	// Release 条件自减：仅当 current_load > 0 时 -1，返回是否成功
	Release(ctx context.Context, supervisorID, sessionID string) (bool, error)
	Get(ctx context.Context, supervisorID, sessionID string) (int, error)
	ListBySession(ctx context.Context, sessionID string) ([]model.SupervisorLoad, error)
	// MaxLoad 返回导师在所有实习期中的最大负载
	MaxLoad(ctx context.Context, supervisorID string) (int, error)
	// Replace 用 counts 覆盖某实习期的全部负载（counts 中没有的导师归零）
	Replace(ctx context.Context, sessionID string, counts map[string]int) error
}

type supervisorLoadRepo struct {
	db *gorm.DB
}

// NewSupervisorLoadRepo 创建 SupervisorLoadRepository 实例
func NewSupervisorLoadRepo(db *gorm.DB) SupervisorLoadRepository {
	return &supervisorLoadRepo{db: db}
}

func (r *supervisorLoadRepo) Ensure(ctx context.Context, supervisorID, sessionID string) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&model.SupervisorLoad{
			SupervisorID: supervisorID,
			SessionID:    sessionID,
		}).Error
}

func (r *supervisorLoadRepo) Reserve(ctx context.Context, supervisorID, sessionID string) (bool, error) {
	// 共享锁持有到事务结束：容量调整与停用需要排他锁，必须等本次占用提交后再读负载
	var supervisor model.Supervisor
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "SHARE"}).
		Select("supervisor_id", "capacity").
		Where("supervisor_id = ? AND is_active = ?", supervisorID, true).
		First(&supervisor).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	result := r.db.WithContext(ctx).
		Model(&model.SupervisorLoad{}).
		Where("supervisor_id = ? AND session_id = ? AND current_load < ?", supervisorID, sessionID, supervisor.Capacity).
		Updates(map[string]interface{}{
			"current_load": gorm.Expr("current_load + 1"),
			"updated_at":   time.Now().UTC(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *supervisorLoadRepo) Release(ctx context.Context, supervisorID, sessionID string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&model.SupervisorLoad{}).
		Where("supervisor_id = ? AND session_id = ? AND current_load > 0", supervisorID, sessionID).
		Updates(map[string]interface{}{
			"current_load": gorm.Expr("current_load - 1"),
			"updated_at":   time.Now().UTC(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *supervisorLoadRepo) Get(ctx context.Context, supervisorID, sessionID string) (int, error) {
	var load model.SupervisorLoad
	err := r.db.WithContext(ctx).
		Where("supervisor_id = ? AND session_id = ?", supervisorID, sessionID).
		First(&load).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return load.CurrentLoad, nil
}

func (r *supervisorLoadRepo) ListBySession(ctx context.Context, sessionID string) ([]model.SupervisorLoad, error) {
	var loads []model.SupervisorLoad
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("supervisor_id ASC").
		Find(&loads).Error
	return loads, err
}

func (r *supervisorLoadRepo) MaxLoad(ctx context.Context, supervisorID string) (int, error) {
	var max int
	err := r.db.WithContext(ctx).
		Model(&model.SupervisorLoad{}).
		Where("supervisor_id = ?", supervisorID).
		Select("COALESCE(MAX(current_load), 0)").
		Scan(&max).Error
	return max, err
}

func (r *supervisorLoadRepo) Replace(ctx context.Context, sessionID string, counts map[string]int) error {
	now := time.Now().UTC()
	if err := r.db.WithContext(ctx).
		Model(&model.SupervisorLoad{}).
		Where("session_id = ?", sessionID).
		Updates(map[string]interface{}{"current_load": 0, "updated_at": now}).Error; err != nil {
		return err
	}
	if len(counts) == 0 {
		return nil
	}

	rows := make([]model.SupervisorLoad, 0, len(counts))
	for supervisorID, n := range counts {
		rows = append(rows, model.SupervisorLoad{
			SupervisorID: supervisorID,
			SessionID:    sessionID,
			CurrentLoad:  n,
			UpdatedAt:    now,
		})
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "supervisor_id"}, {Name: "session_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"current_load", "updated_at"}),
		}).
		Create(&rows).Error
}
