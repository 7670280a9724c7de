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

// SessionService 实习期与参加记录业务接口
type SessionService interface {
	CreateSession(ctx context.Context, caller model.Caller, req *dto.CreateSessionRequest) (*dto.SessionResponse, error)
	CloseSession(ctx context.Context, caller model.Caller, sessionID string) (*dto.SessionResponse, error)
	GetSession(ctx context.Context, sessionID string) (*dto.SessionResponse, error)
	ListSessions(ctx context.Context) ([]dto.SessionResponse, error)

	Enroll(ctx context.Context, caller model.Caller, sessionID string, req *dto.EnrollRequest) (*dto.EnrollmentResponse, error)
	BatchEnroll(ctx context.Context, caller model.Caller, sessionID string, req *dto.BatchEnrollRequest) (*dto.Manifest[dto.EnrollItem], error)
	Withdraw(ctx context.Context, caller model.Caller, sessionID, studentID string) (*dto.WithdrawResponse, error)
	ListEnrollments(ctx context.Context, caller model.Caller, sessionID string) ([]dto.EnrollmentResponse, error)
}

type sessionService struct {
	repo     *repository.Repository
	capacity CapacityDirectory
	logger   *zap.Logger
}

// NewSessionService 创建 SessionService 实例
func NewSessionService(repo *repository.Repository, capacity CapacityDirectory, logger *zap.Logger) SessionService {
	return &sessionService{repo: repo, capacity: capacity, logger: logger}
}

// ────────────────────── CreateSession ──────────────────────

func (s *sessionService) CreateSession(ctx context.Context, caller model.Caller, req *dto.CreateSessionRequest) (*dto.SessionResponse, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, ErrEmptyText
	}
	startDate, err := time.Parse(dto.DateLayout, req.StartDate)
	if err != nil {
		return nil, ErrInvalidDate
	}
	endDate, err := time.Parse(dto.DateLayout, req.EndDate)
	if err != nil {
		return nil, ErrInvalidDate
	}
	if !endDate.After(startDate) {
		return nil, ErrInvalidDateRange
	}
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}

	session := &model.Session{
		Name:      name,
		StartDate: startDate,
		EndDate:   endDate,
		Status:    model.SessionOpen,
	}
	session.CreatedBy = &caller.UserID
	session.UpdatedBy = &caller.UserID

	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		if err := tx.Session.LockForCreate(ctx); err != nil {
			return err
		}
		overlapping, err := tx.Session.FindOpenOverlapping(ctx, startDate, endDate)
		if err != nil {
			return err
		}
		if len(overlapping) > 0 {
			return ErrSessionOverlap
		}
		return tx.Session.Create(ctx, session)
	})
	if err != nil {
		if errors.Is(err, ErrSessionOverlap) {
			return nil, err
		}
		s.logger.Error("创建实习期失败", zap.Error(err))
		return nil, err
	}

	s.logger.Info("实习期已创建",
		zap.String("session_id", session.SessionID),
		zap.String("start", req.StartDate),
		zap.String("end", req.EndDate),
	)
	return toSessionResponse(session), nil
}

// ────────────────────── CloseSession ──────────────────────

func (s *sessionService) CloseSession(ctx context.Context, caller model.Caller, sessionID string) (*dto.SessionResponse, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	session, err := loadSession(ctx, s.repo, sessionID)
	if err != nil {
		return nil, err
	}
	if !session.IsOpen() {
		return nil, ErrSessionClosed
	}

	if err := s.repo.Session.Close(ctx, session, caller.UserID); err != nil {
		if errors.Is(err, pkgerrors.ErrOptimisticLock) {
			return nil, ErrSessionClosed
		}
		s.logger.Error("关闭实习期失败", zap.String("session_id", sessionID), zap.Error(err))
		return nil, err
	}

	s.logger.Info("实习期已关闭", zap.String("session_id", sessionID))
	return toSessionResponse(session), nil
}

// ────────────────────── GetSession / ListSessions ──────────────────────

func (s *sessionService) GetSession(ctx context.Context, sessionID string) (*dto.SessionResponse, error) {
	session, err := loadSession(ctx, s.repo, sessionID)
	if err != nil {
		return nil, err
	}
	return toSessionResponse(session), nil
}

func (s *sessionService) ListSessions(ctx context.Context) ([]dto.SessionResponse, error) {
	sessions, err := s.repo.Session.List(ctx)
	if err != nil {
		s.logger.Error("列出实习期失败", zap.Error(err))
		return nil, err
	}
	result := make([]dto.SessionResponse, 0, len(sessions))
	for i := range sessions {
		result = append(result, *toSessionResponse(&sessions[i]))
	}
	return result, nil
}

// ────────────────────── Enroll ──────────────────────

func (s *sessionService) Enroll(ctx context.Context, caller model.Caller, sessionID string, req *dto.EnrollRequest) (*dto.EnrollmentResponse, error) {
	if req.StudentID == "" {
		return nil, ErrInvalidID
	}
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	session, err := s.openSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	enrollment, err := s.enrollOne(ctx, caller, session, req.StudentID)
	if err != nil {
		return nil, err
	}
	return toEnrollmentResponse(enrollment, session), nil
}

func (s *sessionService) BatchEnroll(ctx context.Context, caller model.Caller, sessionID string, req *dto.BatchEnrollRequest) (*dto.Manifest[dto.EnrollItem], error) {
	if len(req.StudentIDs) == 0 {
		return nil, ErrInvalidID
	}
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	session, err := s.openSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	manifest := dto.NewManifest[dto.EnrollItem]()
	for _, studentID := range req.StudentIDs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		item := dto.EnrollItem{StudentID: studentID}
		enrollment, err := s.enrollOne(ctx, caller, session, studentID)
		if err != nil {
			manifest.Fail(item, failureReason(err), err.Error())
			continue
		}
		item.EnrollmentID = enrollment.EnrollmentID
		manifest.Succeed(item)
	}

	s.logger.Info("批量参加实习完成",
		zap.String("session_id", sessionID),
		zap.Int("succeeded", manifest.SuccessCount),
		zap.Int("failed", manifest.FailureCount),
	)
	return manifest, nil
}

// enrollOne 写入参加记录并按实习期周数生成 DRAFT 周记，同一事务
func (s *sessionService) enrollOne(ctx context.Context, caller model.Caller, session *model.Session, studentID string) (*model.Enrollment, error) {
	if studentID == "" {
		return nil, ErrInvalidID
	}
	if _, err := s.repo.Student.GetByID(ctx, studentID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrStudentNotFound
		}
		return nil, err
	}
	if _, err := s.repo.Enrollment.Get(ctx, studentID, session.SessionID); err == nil {
		return nil, ErrAlreadyEnrolled
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	enrollment := &model.Enrollment{
		StudentID: studentID,
		SessionID: session.SessionID,
		Status:    model.EnrollmentActive,
	}
	enrollment.CreatedBy = &caller.UserID
	enrollment.UpdatedBy = &caller.UserID

	weeks := make([]model.LogbookWeek, 0, session.WeekCount())
	for n := 1; n <= session.WeekCount(); n++ {
		week := model.LogbookWeek{
			StudentID:  studentID,
			SessionID:  session.SessionID,
			WeekNumber: n,
			Status:     model.WeekDraft,
		}
		week.CreatedBy = &caller.UserID
		weeks = append(weeks, week)
	}

	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		if err := tx.Enrollment.Create(ctx, enrollment); err != nil {
			return err
		}
		return tx.Week.BatchCreate(ctx, weeks)
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrAlreadyEnrolled
		}
		s.logger.Error("参加实习失败", zap.String("student_id", studentID), zap.Error(err))
		return nil, err
	}
	return enrollment, nil
}

// ────────────────────── Withdraw ──────────────────────

// Withdraw 退出实习：标记参加记录并删除该学生在本实习期的全部有效分配（释放名额）
func (s *sessionService) Withdraw(ctx context.Context, caller model.Caller, sessionID, studentID string) (*dto.WithdrawResponse, error) {
	if studentID == "" {
		return nil, ErrInvalidID
	}
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	session, err := s.openSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	enrollment, err := s.repo.Enrollment.Get(ctx, studentID, sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEnrollmentNotFound
		}
		return nil, err
	}
	if enrollment.Status != model.EnrollmentActive {
		return nil, ErrNotEnrolled
	}

	removed := 0
	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		if err := tx.Enrollment.Withdraw(ctx, enrollment, caller.UserID); err != nil {
			return err
		}
		// 退出已锁定参加记录，此后读到的分配包含所有已提交的并发分配
		assignments, err := tx.Assignment.ListByStudent(ctx, studentID, sessionID)
		if err != nil {
			return err
		}
		for _, a := range assignments {
			if err := tx.Assignment.SoftDelete(ctx, a.AssignmentID, caller.UserID); err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					continue // 已被并发删除，名额已由对方释放
				}
				return err
			}
			if err := s.capacity.Release(ctx, tx, a.SupervisorID, sessionID); err != nil {
				return err
			}
			removed++
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, pkgerrors.ErrOptimisticLock) {
			return nil, ErrNotEnrolled
		}
		s.logger.Error("退出实习失败", zap.String("student_id", studentID), zap.Error(err))
		return nil, err
	}

	s.logger.Info("学生已退出实习",
		zap.String("session_id", sessionID),
		zap.String("student_id", studentID),
		zap.Int("removed_assignments", removed),
	)
	return &dto.WithdrawResponse{
		Enrollment:         *toEnrollmentResponse(enrollment, session),
		RemovedAssignments: removed,
	}, nil
}

func (s *sessionService) ListEnrollments(ctx context.Context, caller model.Caller, sessionID string) ([]dto.EnrollmentResponse, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	session, err := loadSession(ctx, s.repo, sessionID)
	if err != nil {
		return nil, err
	}

	enrollments, err := s.repo.Enrollment.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	result := make([]dto.EnrollmentResponse, 0, len(enrollments))
	for i := range enrollments {
		result = append(result, *toEnrollmentResponse(&enrollments[i], session))
	}
	return result, nil
}

// ────────────────────── 内部方法 ──────────────────────

func (s *sessionService) openSession(ctx context.Context, sessionID string) (*model.Session, error) {
	session, err := loadSession(ctx, s.repo, sessionID)
	if err != nil {
		return nil, err
	}
	if !session.IsOpen() {
		return nil, ErrSessionClosed
	}
	return session, nil
}

// failureReason 清单中的失败原因取错误类别，基础设施错误记为 Internal
func failureReason(err error) string {
	if kind := pkgerrors.KindOf(err); kind != "" {
		return string(kind)
	}
	return "Internal"
}

func toSessionResponse(s *model.Session) *dto.SessionResponse {
	return &dto.SessionResponse{
		ID:        s.SessionID,
		Name:      s.Name,
		StartDate: s.StartDate.Format(dto.DateLayout),
		EndDate:   s.EndDate.Format(dto.DateLayout),
		Status:    string(s.Status),
		WeekCount: s.WeekCount(),
		ClosedAt:  dto.FormatTimePtr(s.ClosedAt),
		CreatedAt: dto.FormatTime(s.CreatedAt),
	}
}

func toEnrollmentResponse(e *model.Enrollment, session *model.Session) *dto.EnrollmentResponse {
	return &dto.EnrollmentResponse{
		ID:          e.EnrollmentID,
		StudentID:   e.StudentID,
		SessionID:   e.SessionID,
		Status:      string(e.Status),
		WeekCount:   session.WeekCount(),
		WithdrawnAt: dto.FormatTimePtr(e.WithdrawnAt),
		CreatedAt:   dto.FormatTime(e.CreatedAt),
	}
}
