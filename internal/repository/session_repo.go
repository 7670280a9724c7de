package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"practicum/backend/internal/model"
	pkgerrors "practicum/backend/pkg/errors"
)

// SessionRepository 实习期数据访问接口
type SessionRepository interface {
	Create(ctx context.Context, session *model.Session) error
	GetByID(ctx context.Context, id string) (*model.Session, error)
	List(ctx context.Context) ([]model.Session, error)
	// LockForCreate 事务内串行化实习期创建，须在 FindOpenOverlapping 之前调用
	LockForCreate(ctx context.Context) error
	// FindOpenOverlapping 查找与 [start, end] 重叠的开放实习期
	FindOpenOverlapping(ctx context.Context, start, end time.Time) ([]model.Session, error)
	// Close 乐观锁关闭：仅当 version 未变且仍为 open 时生效
	Close(ctx context.Context, session *model.Session, closedBy string) error
}

// sessionCreateLockKey 实习期创建的事务级 advisory lock 键
const sessionCreateLockKey int64 = 0x5052_4143_5345_5353

type sessionRepo struct {
	db *gorm.DB
}

// NewSessionRepo 创建 SessionRepository 实例
func NewSessionRepo(db *gorm.DB) SessionRepository {
	return &sessionRepo{db: db}
}

func (r *sessionRepo) Create(ctx context.Context, session *model.Session) error {
	return r.db.WithContext(ctx).Create(session).Error
}

func (r *sessionRepo) GetByID(ctx context.Context, id string) (*model.Session, error) {
	var session model.Session
	err := r.db.WithContext(ctx).
		Where("session_id = ?", id).
		First(&session).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *sessionRepo) List(ctx context.Context) ([]model.Session, error) {
	var sessions []model.Session
	err := r.db.WithContext(ctx).
		Order("start_date DESC").
		Find(&sessions).Error
	return sessions, err
}

func (r *sessionRepo) LockForCreate(ctx context.Context) error {
	// SQLite 单连接，事务本身已串行
	if r.db.Dialector.Name() != "postgres" {
		return nil
	}
	return r.db.WithContext(ctx).Exec("SELECT pg_advisory_xact_lock(?)", sessionCreateLockKey).Error
}

func (r *sessionRepo) FindOpenOverlapping(ctx context.Context, start, end time.Time) ([]model.Session, error) {
	var sessions []model.Session
	err := r.db.WithContext(ctx).
		Where("status = ? AND start_date <= ? AND end_date >= ?", model.SessionOpen, end, start).
		Find(&sessions).Error
	return sessions, err
}

func (r *sessionRepo) Close(ctx context.Context, session *model.Session, closedBy string) error {
	oldVersion := session.Version
	now := time.Now().UTC()
	result := r.db.WithContext(ctx).
		Model(&model.Session{}).
		Where("session_id = ? AND version = ? AND status = ?", session.SessionID, oldVersion, model.SessionOpen).
		Updates(map[string]interface{}{
			"status":     model.SessionClosed,
			"closed_at":  now,
			"updated_by": closedBy,
			"version":    oldVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	session.Status = model.SessionClosed
	session.ClosedAt = &now
	session.UpdatedBy = &closedBy
	session.Version = oldVersion + 1
	return nil
}
