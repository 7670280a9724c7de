package service

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"practicum/backend/internal/repository"
)

// CapacityDirectory 导师负载目录
//
// 负载的唯一写入口。Reserve/Release 只接受事务内的 Repository，
// 保证负载变化与 Assignment 行一起提交或一起回滚。
//
// 加锁顺序：enrollments → supervisors → supervisor_loads。
type CapacityDirectory interface {
	// CurrentLoad 导师在实习期内的当前负载
	CurrentLoad(ctx context.Context, supervisorID, sessionID string) (int, error)
	// HasCapacity 在职且 load < capacity
	HasCapacity(ctx context.Context, supervisorID, sessionID string) (bool, error)
	// Loads 返回实习期内所有导师的负载快照
	Loads(ctx context.Context, sessionID string) (map[string]int, error)
	// Reserve 在事务内占用一个名额，容量不足或导师停用时返回 ErrCapacityExceeded
	Reserve(ctx context.Context, tx *repository.Repository, supervisorID, sessionID string) error
	// Release 在事务内释放一个名额
	Release(ctx context.Context, tx *repository.Repository, supervisorID, sessionID string) error
	// Rebuild 按有效 Assignment 行数重算实习期内全部负载，返回被修正的导师数
	Rebuild(ctx context.Context, sessionID string) (corrected int, assigned int, err error)
}

type capacityDirectory struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewCapacityDirectory 创建 CapacityDirectory 实例
func NewCapacityDirectory(repo *repository.Repository, logger *zap.Logger) CapacityDirectory {
	return &capacityDirectory{repo: repo, logger: logger}
}

func (d *capacityDirectory) CurrentLoad(ctx context.Context, supervisorID, sessionID string) (int, error) {
	return d.repo.Load.Get(ctx, supervisorID, sessionID)
}

func (d *capacityDirectory) HasCapacity(ctx context.Context, supervisorID, sessionID string) (bool, error) {
	sv, err := d.repo.Supervisor.GetByID(ctx, supervisorID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, ErrSupervisorNotFound
		}
		return false, err
	}
	if !sv.IsActive {
		return false, nil
	}
	load, err := d.repo.Load.Get(ctx, supervisorID, sessionID)
	if err != nil {
		return false, err
	}
	return load < sv.Capacity, nil
}

func (d *capacityDirectory) Loads(ctx context.Context, sessionID string) (map[string]int, error) {
	rows, err := d.repo.Load.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	loads := make(map[string]int, len(rows))
	for _, row := range rows {
		loads[row.SupervisorID] = row.CurrentLoad
	}
	return loads, nil
}

func (d *capacityDirectory) Reserve(ctx context.Context, tx *repository.Repository, supervisorID, sessionID string) error {
	if err := tx.Load.Ensure(ctx, supervisorID, sessionID); err != nil {
		return err
	}
	ok, err := tx.Load.Reserve(ctx, supervisorID, sessionID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrCapacityExceeded
	}
	return nil
}

func (d *capacityDirectory) Release(ctx context.Context, tx *repository.Repository, supervisorID, sessionID string) error {
	ok, err := tx.Load.Release(ctx, supervisorID, sessionID)
	if err != nil {
		return err
	}
	if !ok {
		// 负载已为 0 却有分配被删除，说明目录与 Assignment 已不一致，需要 Rebuild
		d.logger.Warn("释放名额时负载已为 0",
			zap.String("supervisor_id", supervisorID),
			zap.String("session_id", sessionID),
		)
	}
	return nil
}

func (d *capacityDirectory) Rebuild(ctx context.Context, sessionID string) (int, int, error) {
	corrected := 0
	var counts map[string]int
	err := d.repo.Transaction(ctx, func(tx *repository.Repository) error {
		// 分配的写入与删除都先锁参加记录；全部锁住后计数期间不会再有负载变化
		if err := tx.Enrollment.LockBySession(ctx, sessionID); err != nil {
			return err
		}
		var err error
		counts, err = tx.Assignment.CountBySupervisor(ctx, sessionID)
		if err != nil {
			return err
		}
		before, err := tx.Load.ListBySession(ctx, sessionID)
		if err != nil {
			return err
		}

		seen := make(map[string]bool, len(before))
		for _, row := range before {
			seen[row.SupervisorID] = true
			if row.CurrentLoad != counts[row.SupervisorID] {
				corrected++
			}
		}
		for supervisorID := range counts {
			if !seen[supervisorID] {
				corrected++
			}
		}

		return tx.Load.Replace(ctx, sessionID, counts)
	})
	if err != nil {
		d.logger.Error("重建导师负载失败", zap.String("session_id", sessionID), zap.Error(err))
		return 0, 0, err
	}

	if corrected > 0 {
		d.logger.Warn("导师负载已按分配记录修正",
			zap.String("session_id", sessionID),
			zap.Int("corrected", corrected),
		)
	}
	return corrected, len(counts), nil
}
