package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"practicum/backend/internal/dto"
	"practicum/backend/internal/model"
	"practicum/backend/internal/repository"
	pkgerrors "practicum/backend/pkg/errors"
)

// LogbookService 周记业务接口
//
// 每个写操作的检查顺序：参数 → 周记是否存在 → 调用方权限 → 实习期是否开放 → 状态迁移。
type LogbookService interface {
	SaveEntry(ctx context.Context, caller model.Caller, weekID string, req *dto.SaveEntryRequest) (*dto.EntryResponse, error)
	RequestReview(ctx context.Context, caller model.Caller, weekID string) (*dto.WeekResponse, error)
	AddWeeklyComment(ctx context.Context, caller model.Caller, weekID string, req *dto.WeeklyCommentRequest) (*dto.WeekResponse, error)
	LockWeek(ctx context.Context, caller model.Caller, weekID string, req *dto.LockWeekRequest) (*dto.WeekResponse, error)
	UnlockWeek(ctx context.Context, caller model.Caller, weekID string) (*dto.WeekResponse, error)
	GetWeek(ctx context.Context, caller model.Caller, weekID string) (*dto.WeekResponse, error)
	ListWeeks(ctx context.Context, caller model.Caller, sessionID, studentID string) ([]dto.WeekResponse, error)
}

type logbookService struct {
	repo   *repository.Repository
	guard  relationshipGuard
	logger *zap.Logger
}

// NewLogbookService 创建 LogbookService 实例
func NewLogbookService(repo *repository.Repository, logger *zap.Logger) LogbookService {
	return &logbookService{
		repo:   repo,
		guard:  relationshipGuard{repo: repo},
		logger: logger,
	}
}

// ────────────────────── SaveEntry ──────────────────────

func (s *logbookService) SaveEntry(ctx context.Context, caller model.Caller, weekID string, req *dto.SaveEntryRequest) (*dto.EntryResponse, error) {
	if req.Day < 1 || req.Day > 7 {
		return nil, ErrInvalidDay
	}
	if strings.TrimSpace(req.Content) == "" {
		return nil, ErrEmptyText
	}

	week, err := s.loadWeek(ctx, weekID)
	if err != nil {
		return nil, err
	}
	if caller.Role != model.RoleStudent || caller.UserID != week.StudentID {
		return nil, ErrNotWeekOwner
	}
	if err := s.requireOpenSession(ctx, week.SessionID); err != nil {
		return nil, err
	}
	if week.Status == model.WeekLocked {
		return nil, ErrWeekLocked
	}

	var entry *model.LogbookEntry
	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		// 以同状态 CAS 占住周记版本，与并发的锁定互斥
		touched := *week
		touched.UpdatedBy = &caller.UserID
		if err := tx.Week.UpdateState(ctx, &touched, week.Status); err != nil {
			return err
		}

		existing, err := tx.Entry.GetByDay(ctx, week.WeekID, req.Day)
		switch {
		case err == nil:
			existing.Content = req.Content
			existing.UpdatedBy = &caller.UserID
			if err := tx.Entry.UpdateContent(ctx, existing); err != nil {
				return err
			}
			entry = existing
			return nil
		case errors.Is(err, gorm.ErrRecordNotFound):
			entry = &model.LogbookEntry{
				WeekID:  week.WeekID,
				Day:     req.Day,
				Content: req.Content,
			}
			entry.CreatedBy = &caller.UserID
			entry.UpdatedBy = &caller.UserID
			return tx.Entry.Create(ctx, entry)
		default:
			return err
		}
	})
	if err != nil {
		if errors.Is(err, pkgerrors.ErrOptimisticLock) {
			return nil, ErrWeekLocked
		}
		s.logger.Error("保存周记内容失败", zap.String("week_id", weekID), zap.Error(err))
		return nil, err
	}

	return &dto.EntryResponse{
		ID:        entry.EntryID,
		Day:       entry.Day,
		Content:   entry.Content,
		UpdatedAt: dto.FormatTime(time.Now()),
	}, nil
}

// ────────────────────── RequestReview ──────────────────────

func (s *logbookService) RequestReview(ctx context.Context, caller model.Caller, weekID string) (*dto.WeekResponse, error) {
	week, err := s.loadWeek(ctx, weekID)
	if err != nil {
		return nil, err
	}
	if caller.Role != model.RoleStudent || caller.UserID != week.StudentID {
		return nil, ErrNotWeekOwner
	}
	if err := s.requireOpenSession(ctx, week.SessionID); err != nil {
		return nil, err
	}

	err = s.transition(ctx, week, ActionRequestReview, caller.UserID, func(w *model.LogbookWeek, now time.Time) {
		w.ReviewRequestedAt = &now
	}, nil)
	if err != nil {
		return nil, err
	}

	s.logger.Info("周记已提交审阅", zap.String("week_id", weekID), zap.String("student_id", caller.UserID))
	return s.detail(ctx, weekID)
}

// ────────────────────── AddWeeklyComment ──────────────────────

func (s *logbookService) AddWeeklyComment(ctx context.Context, caller model.Caller, weekID string, req *dto.WeeklyCommentRequest) (*dto.WeekResponse, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, ErrEmptyText
	}

	week, err := s.loadWeek(ctx, weekID)
	if err != nil {
		return nil, err
	}
	role, err := s.guard.requireAssignment(ctx, caller, week.StudentID, week.SessionID)
	if err != nil {
		return nil, err
	}

	// 评语与锁定同一事务提交：任一失败都不留下半完成状态
	err = s.transition(ctx, week, ActionComment, caller.UserID, func(w *model.LogbookWeek, now time.Time) {
		w.LockedBy = &caller.UserID
		w.LockedAt = &now
		w.LockReason = ""
	}, func(tx *repository.Repository) error {
		return tx.Comment.Create(ctx, &model.WeeklyComment{
			WeekID:     week.WeekID,
			AuthorRole: role,
			AuthorID:   caller.UserID,
			Text:       text,
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("周记已评阅并锁定",
		zap.String("week_id", weekID),
		zap.String("supervisor_id", caller.UserID),
		zap.String("role", string(role)),
	)
	return s.detail(ctx, weekID)
}

// ────────────────────── LockWeek ──────────────────────

func (s *logbookService) LockWeek(ctx context.Context, caller model.Caller, weekID string, req *dto.LockWeekRequest) (*dto.WeekResponse, error) {
	week, err := s.loadWeek(ctx, weekID)
	if err != nil {
		return nil, err
	}
	if _, err := s.guard.requireAssignment(ctx, caller, week.StudentID, week.SessionID); err != nil {
		return nil, err
	}

	reason := ""
	if req != nil {
		reason = strings.TrimSpace(req.Reason)
	}
	err = s.transition(ctx, week, ActionLock, caller.UserID, func(w *model.LogbookWeek, now time.Time) {
		w.LockedBy = &caller.UserID
		w.LockedAt = &now
		w.LockReason = reason
	}, nil)
	if err != nil {
		return nil, err
	}

	s.logger.Info("周记已锁定", zap.String("week_id", weekID), zap.String("supervisor_id", caller.UserID))
	return s.detail(ctx, weekID)
}

// ────────────────────── UnlockWeek ──────────────────────

func (s *logbookService) UnlockWeek(ctx context.Context, caller model.Caller, weekID string) (*dto.WeekResponse, error) {
	week, err := s.loadWeek(ctx, weekID)
	if err != nil {
		return nil, err
	}

	switch caller.Role {
	case model.RoleSchoolSupervisor:
	case model.RoleIndustrySupervisor, model.RoleStudent, model.RoleAdmin:
		return nil, ErrUnlockForbidden
	default:
		return nil, ErrUnlockForbidden
	}
	if _, err := s.guard.requireAssignment(ctx, caller, week.StudentID, week.SessionID); err != nil {
		return nil, err
	}

	// 解锁不删除评语，历史只追加
	err = s.transition(ctx, week, ActionUnlock, caller.UserID, func(w *model.LogbookWeek, _ time.Time) {
		w.LockedBy = nil
		w.LockedAt = nil
		w.LockReason = ""
	}, nil)
	if err != nil {
		return nil, err
	}

	s.logger.Info("周记已解锁", zap.String("week_id", weekID), zap.String("supervisor_id", caller.UserID))
	return s.detail(ctx, weekID)
}

// ────────────────────── GetWeek / ListWeeks ──────────────────────

func (s *logbookService) GetWeek(ctx context.Context, caller model.Caller, weekID string) (*dto.WeekResponse, error) {
	week, err := s.loadWeek(ctx, weekID)
	if err != nil {
		return nil, err
	}
	if err := s.guard.canView(ctx, caller, week.StudentID, week.SessionID); err != nil {
		return nil, err
	}
	return s.detail(ctx, weekID)
}

func (s *logbookService) ListWeeks(ctx context.Context, caller model.Caller, sessionID, studentID string) ([]dto.WeekResponse, error) {
	if sessionID == "" || studentID == "" {
		return nil, ErrInvalidID
	}
	if err := s.guard.canView(ctx, caller, studentID, sessionID); err != nil {
		return nil, err
	}

	weeks, err := s.repo.Week.ListByStudent(ctx, studentID, sessionID)
	if err != nil {
		s.logger.Error("列出周记失败", zap.String("student_id", studentID), zap.Error(err))
		return nil, err
	}

	result := make([]dto.WeekResponse, 0, len(weeks))
	for i := range weeks {
		result = append(result, *toWeekResponse(&weeks[i]))
	}
	return result, nil
}

// ────────────────────── 内部方法 ──────────────────────

func (s *logbookService) loadWeek(ctx context.Context, weekID string) (*model.LogbookWeek, error) {
	if weekID == "" {
		return nil, ErrInvalidID
	}
	week, err := s.repo.Week.GetByID(ctx, weekID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWeekNotFound
		}
		s.logger.Error("查询周记失败", zap.String("week_id", weekID), zap.Error(err))
		return nil, err
	}
	return week, nil
}

func (s *logbookService) requireOpenSession(ctx context.Context, sessionID string) error {
	session, err := s.repo.Session.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrSessionNotFound
		}
		return err
	}
	if !session.IsOpen() {
		return ErrSessionClosed
	}
	return nil
}

// transition 按迁移表计算目标状态并以 CAS 写入
//
// apply 修改副本上的附带字段；after 在同一事务内执行附带写入（如评语）。
// CAS 失败说明并发操作已先行迁移，按非法状态处理。
func (s *logbookService) transition(
	ctx context.Context,
	week *model.LogbookWeek,
	action WeekAction,
	callerID string,
	apply func(w *model.LogbookWeek, now time.Time),
	after func(tx *repository.Repository) error,
) error {
	from := week.Status
	to, err := transitionWeek(from, action)
	if err != nil {
		return err
	}

	next := *week
	next.Status = to
	next.UpdatedBy = &callerID
	if apply != nil {
		apply(&next, time.Now().UTC())
	}

	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		if err := tx.Week.UpdateState(ctx, &next, from); err != nil {
			return err
		}
		if after != nil {
			return after(tx)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, pkgerrors.ErrOptimisticLock) {
			return ErrConcurrentTransition
		}
		s.logger.Error("周记状态迁移失败",
			zap.String("week_id", week.WeekID),
			zap.Stringer("action", action),
			zap.Error(err),
		)
		return err
	}

	*week = next
	return nil
}

func (s *logbookService) detail(ctx context.Context, weekID string) (*dto.WeekResponse, error) {
	week, err := s.repo.Week.GetDetail(ctx, weekID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWeekNotFound
		}
		return nil, err
	}
	return toWeekResponse(week), nil
}

func toWeekResponse(w *model.LogbookWeek) *dto.WeekResponse {
	resp := &dto.WeekResponse{
		ID:                w.WeekID,
		StudentID:         w.StudentID,
		SessionID:         w.SessionID,
		WeekNumber:        w.WeekNumber,
		Status:            string(w.Status),
		LockedAt:          dto.FormatTimePtr(w.LockedAt),
		LockReason:        w.LockReason,
		ReviewRequestedAt: dto.FormatTimePtr(w.ReviewRequestedAt),
	}
	if w.LockedBy != nil {
		resp.LockedBy = *w.LockedBy
	}
	for _, e := range w.Entries {
		resp.Entries = append(resp.Entries, dto.EntryResponse{
			ID:        e.EntryID,
			Day:       e.Day,
			Content:   e.Content,
			UpdatedAt: dto.FormatTime(e.UpdatedAt),
		})
	}
	for _, c := range w.Comments {
		resp.Comments = append(resp.Comments, dto.CommentResponse{
			ID:         c.CommentID,
			AuthorRole: string(c.AuthorRole),
			AuthorID:   c.AuthorID,
			Text:       c.Text,
			CreatedAt:  dto.FormatTime(c.CreatedAt),
		})
	}
	return resp
}
