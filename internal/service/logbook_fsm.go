package service

import (
	"fmt"

	"practicum/backend/internal/model"
)

// WeekAction 周记状态机上的动作
type WeekAction uint8

const (
	ActionRequestReview WeekAction = iota + 1
	ActionComment
	ActionLock
	ActionUnlock
)

func (a WeekAction) String() string {
	switch a {
	case ActionRequestReview:
		return "request_review"
	case ActionComment:
		return "comment"
	case ActionLock:
		return "lock"
	case ActionUnlock:
		return "unlock"
	default:
		return fmt.Sprintf("WeekAction(%d)", uint8(a))
	}
}

// transitionWeek 纯函数迁移表
//
//	draft     --request_review--> submitted
//	draft     --lock-----------> locked
//	submitted --comment--------> locked
//	submitted --lock-----------> locked
//	locked    --unlock---------> submitted
//
// 其余组合一律 ErrInvalidTransition。
func transitionWeek(from model.WeekStatus, action WeekAction) (model.WeekStatus, error) {
	switch from {
	case model.WeekDraft:
		switch action {
		case ActionRequestReview:
			return model.WeekSubmitted, nil
		case ActionLock:
			return model.WeekLocked, nil
		}
	case model.WeekSubmitted:
		switch action {
		case ActionComment, ActionLock:
			return model.WeekLocked, nil
		}
	case model.WeekLocked:
		if action == ActionUnlock {
			return model.WeekSubmitted, nil
		}
	}
	return from, fmt.Errorf("%w: %s 状态下不能执行 %s", ErrInvalidTransition, from, action)
}
