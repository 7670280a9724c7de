package repository

import (
	"context"

	"gorm.io/gorm"

	"practicum/backend/internal/model"
	pkgerrors "practicum/backend/pkg/errors"
)

// ──── LogbookWeek ──────────────────────────────────────────

// LogbookWeekRepository 周记数据访问接口
type LogbookWeekRepository interface {
	BatchCreate(ctx context.Context, weeks []model.LogbookWeek) error
	GetByID(ctx context.Context, id string) (*model.LogbookWeek, error)
	// GetDetail 返回周记及其每日内容（按 day）与评语历史（按时间）
	GetDetail(ctx context.Context, id string) (*model.LogbookWeek, error)
	ListByStudent(ctx context.Context, studentID, sessionID string) ([]model.LogbookWeek, error)
	// UpdateState 比较并写入：仅当库中 version 与 status 仍等于 week 读取时的值才写入新状态
	UpdateState(ctx context.Context, week *model.LogbookWeek, from model.WeekStatus) error
}

type logbookWeekRepo struct {
	db *gorm.DB
}

// NewLogbookWeekRepo 创建 LogbookWeekRepository 实例
func NewLogbookWeekRepo(db *gorm.DB) LogbookWeekRepository {
	return &logbookWeekRepo{db: db}
}

func (r *logbookWeekRepo) BatchCreate(ctx context.Context, weeks []model.LogbookWeek) error {
	if len(weeks) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&weeks).Error
}

func (r *logbookWeekRepo) GetByID(ctx context.Context, id string) (*model.LogbookWeek, error) {
	var week model.LogbookWeek
	err := r.db.WithContext(ctx).
		Where("week_id = ?", id).
		First(&week).Error
	if err != nil {
		return nil, err
	}
	return &week, nil
}

func (r *logbookWeekRepo) GetDetail(ctx context.Context, id string) (*model.LogbookWeek, error) {
	var week model.LogbookWeek
	err := r.db.WithContext(ctx).
		Preload("Entries", func(db *gorm.DB) *gorm.DB {
			return db.Order("day ASC")
		}).
		Preload("Comments", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC, comment_id ASC")
		}).
		Where("week_id = ?", id).
		First(&week).Error
	if err != nil {
		return nil, err
	}
	return &week, nil
}

func (r *logbookWeekRepo) ListByStudent(ctx context.Context, studentID, sessionID string) ([]model.LogbookWeek, error) {
	var weeks []model.LogbookWeek
	err := r.db.WithContext(ctx).
		Where("student_id = ? AND session_id = ?", studentID, sessionID).
		Order("week_number ASC").
		Find(&weeks).Error
	return weeks, err
}

func (r *logbookWeekRepo) UpdateState(ctx context.Context, week *model.LogbookWeek, from model.WeekStatus) error {
	oldVersion := week.Version
	result := r.db.WithContext(ctx).
		Model(&model.LogbookWeek{}).
		Where("week_id = ? AND version = ? AND status = ?", week.WeekID, oldVersion, from).
		Updates(map[string]interface{}{
			"status":              week.Status,
			"locked_by":           week.LockedBy,
			"locked_at":           week.LockedAt,
			"lock_reason":         week.LockReason,
			"review_requested_at": week.ReviewRequestedAt,
			"updated_by":          week.UpdatedBy,
			"version":             oldVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	week.Version = oldVersion + 1
	return nil
}

// ──── LogbookEntry ─────────────────────────────────────────

// LogbookEntryRepository 周记每日内容数据访问接口
type LogbookEntryRepository interface {
	Create(ctx context.Context, entry *model.LogbookEntry) error
	GetByDay(ctx context.Context, weekID string, day int) (*model.LogbookEntry, error)
	UpdateContent(ctx context.Context, entry *model.LogbookEntry) error
	ListByWeek(ctx context.Context, weekID string) ([]model.LogbookEntry, error)
}

type logbookEntryRepo struct {
	db *gorm.DB
}

// NewLogbookEntryRepo 创建 LogbookEntryRepository 实例
func NewLogbookEntryRepo(db *gorm.DB) LogbookEntryRepository {
	return &logbookEntryRepo{db: db}
}

func (r *logbookEntryRepo) Create(ctx context.Context, entry *model.LogbookEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *logbookEntryRepo) GetByDay(ctx context.Context, weekID string, day int) (*model.LogbookEntry, error) {
	var entry model.LogbookEntry
	err := r.db.WithContext(ctx).
		Where("week_id = ? AND day = ?", weekID, day).
		First(&entry).Error
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *logbookEntryRepo) UpdateContent(ctx context.Context, entry *model.LogbookEntry) error {
	return r.db.WithContext(ctx).
		Model(entry).
		Where("entry_id = ?", entry.EntryID).
		Updates(map[string]interface{}{
			"content":    entry.Content,
			"updated_by": entry.UpdatedBy,
		}).Error
}

func (r *logbookEntryRepo) ListByWeek(ctx context.Context, weekID string) ([]model.LogbookEntry, error) {
	var entries []model.LogbookEntry
	err := r.db.WithContext(ctx).
		Where("week_id = ?", weekID).
		Order("day ASC").
		Find(&entries).Error
	return entries, err
}

// ──── WeeklyComment ────────────────────────────────────────

// WeeklyCommentRepository 周评语数据访问接口（只追加）
type WeeklyCommentRepository interface {
	Create(ctx context.Context, comment *model.WeeklyComment) error
	ListByWeek(ctx context.Context, weekID string) ([]model.WeeklyComment, error)
}

type weeklyCommentRepo struct {
	db *gorm.DB
}

// NewWeeklyCommentRepo 创建 WeeklyCommentRepository 实例
func NewWeeklyCommentRepo(db *gorm.DB) WeeklyCommentRepository {
	return &weeklyCommentRepo{db: db}
}

func (r *weeklyCommentRepo) Create(ctx context.Context, comment *model.WeeklyComment) error {
	return r.db.WithContext(ctx).Create(comment).Error
}

func (r *weeklyCommentRepo) ListByWeek(ctx context.Context, weekID string) ([]model.WeeklyComment, error) {
	var comments []model.WeeklyComment
	err := r.db.WithContext(ctx).
		Where("week_id = ?", weekID).
		Order("created_at ASC, comment_id ASC").
		Find(&comments).Error
	return comments, err
}
