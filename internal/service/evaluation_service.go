package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"practicum/backend/internal/dto"
	"practicum/backend/internal/model"
	"practicum/backend/internal/repository"
)

// EvaluationService 实习期终评业务接口
//
// 终评只可创建一次，没有修改和删除入口。
type EvaluationService interface {
	AddFinalComment(ctx context.Context, caller model.Caller, sessionID string, req *dto.CreateFinalEvaluationRequest) (*dto.FinalEvaluationResponse, error)
	ListFinalEvaluations(ctx context.Context, caller model.Caller, sessionID, studentID string) ([]dto.FinalEvaluationResponse, error)
}

type evaluationService struct {
	repo   *repository.Repository
	guard  relationshipGuard
	logger *zap.Logger
}

// NewEvaluationService 创建 EvaluationService 实例
func NewEvaluationService(repo *repository.Repository, logger *zap.Logger) EvaluationService {
	return &evaluationService{
		repo:   repo,
		guard:  relationshipGuard{repo: repo},
		logger: logger,
	}
}

func (s *evaluationService) AddFinalComment(ctx context.Context, caller model.Caller, sessionID string, req *dto.CreateFinalEvaluationRequest) (*dto.FinalEvaluationResponse, error) {
	comment := strings.TrimSpace(req.Comment)
	if comment == "" {
		return nil, ErrEmptyText
	}
	if req.Rating == nil || *req.Rating < model.MinRating || *req.Rating > model.MaxRating {
		return nil, ErrRatingOutOfRange
	}
	if req.StudentID == "" {
		return nil, ErrInvalidID
	}
	if _, err := supervisorRoleOf(caller); err != nil {
		return nil, err
	}

	if _, err := loadSession(ctx, s.repo, sessionID); err != nil {
		return nil, err
	}
	if _, err := s.repo.Student.GetByID(ctx, req.StudentID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrStudentNotFound
		}
		return nil, err
	}
	role, err := s.guard.requireAssignment(ctx, caller, req.StudentID, sessionID)
	if err != nil {
		return nil, err
	}

	exists, err := s.repo.Evaluation.Exists(ctx, req.StudentID, sessionID, role)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrDuplicateEvaluation
	}

	evaluation := &model.FinalEvaluation{
		StudentID:  req.StudentID,
		SessionID:  sessionID,
		AuthorRole: role,
		AuthorID:   caller.UserID,
		Comment:    comment,
		Rating:     *req.Rating,
	}
	if err := s.repo.Evaluation.Create(ctx, evaluation); err != nil {
		// 并发提交由唯一索引兜底
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateEvaluation
		}
		s.logger.Error("保存终评失败", zap.String("student_id", req.StudentID), zap.Error(err))
		return nil, err
	}

	s.logger.Info("终评已提交",
		zap.String("student_id", req.StudentID),
		zap.String("session_id", sessionID),
		zap.String("role", string(role)),
	)
	return toEvaluationResponse(evaluation), nil
}

func (s *evaluationService) ListFinalEvaluations(ctx context.Context, caller model.Caller, sessionID, studentID string) ([]dto.FinalEvaluationResponse, error) {
	if studentID == "" {
		return nil, ErrInvalidID
	}
	if _, err := loadSession(ctx, s.repo, sessionID); err != nil {
		return nil, err
	}
	if err := s.guard.canView(ctx, caller, studentID, sessionID); err != nil {
		return nil, err
	}

	evaluations, err := s.repo.Evaluation.ListByStudent(ctx, studentID, sessionID)
	if err != nil {
		return nil, err
	}
	result := make([]dto.FinalEvaluationResponse, 0, len(evaluations))
	for i := range evaluations {
		result = append(result, *toEvaluationResponse(&evaluations[i]))
	}
	return result, nil
}

func toEvaluationResponse(e *model.FinalEvaluation) *dto.FinalEvaluationResponse {
	return &dto.FinalEvaluationResponse{
		ID:         e.EvaluationID,
		StudentID:  e.StudentID,
		SessionID:  e.SessionID,
		AuthorRole: string(e.AuthorRole),
		AuthorID:   e.AuthorID,
		Comment:    e.Comment,
		Rating:     e.Rating,
		CreatedAt:  dto.FormatTime(e.CreatedAt),
	}
}
