package errors

import "errors"

// ErrOptimisticLock 乐观锁冲突：记录已被其他操作修改
var ErrOptimisticLock = errors.New("数据已被其他操作修改，请刷新后重试")

// Kind 业务错误类别（封闭集合，Handler 层据此映射 HTTP 状态码）
type Kind string

const (
	KindNotFound             Kind = "NotFound"
	KindForbidden            Kind = "Forbidden"
	KindInvalidState         Kind = "InvalidState"
	KindDuplicateAssignment  Kind = "DuplicateAssignment"
	KindDuplicateEvaluation  Kind = "DuplicateEvaluation"
	KindCapacityExceeded     Kind = "CapacityExceeded"
	KindIneligibleSupervisor Kind = "IneligibleSupervisor"
	KindNoEligibleSupervisor Kind = "NoEligibleSupervisor"
	KindInvalidInput         Kind = "InvalidInput"
	KindConflict             Kind = "Conflict"
)

// Error 带类别的业务错误
//
// 同类别匹配：errors.Is(err, errors.NotFound) 对任意 NotFound 类错误成立；
// 具体哨兵（Message 非空）之间只按指针相等匹配。
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return e.Message
}

// Is 支持按类别匹配
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Message == "" && t.Kind == e.Kind
}

// New 创建指定类别的业务错误
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// 类别哨兵，仅用于 errors.Is 按类别匹配
var (
	NotFound             = &Error{Kind: KindNotFound}
	Forbidden            = &Error{Kind: KindForbidden}
	InvalidState         = &Error{Kind: KindInvalidState}
	DuplicateAssignment  = &Error{Kind: KindDuplicateAssignment}
	DuplicateEvaluation  = &Error{Kind: KindDuplicateEvaluation}
	CapacityExceeded     = &Error{Kind: KindCapacityExceeded}
	IneligibleSupervisor = &Error{Kind: KindIneligibleSupervisor}
	NoEligibleSupervisor = &Error{Kind: KindNoEligibleSupervisor}
	InvalidInput         = &Error{Kind: KindInvalidInput}
	Conflict             = &Error{Kind: KindConflict}
)

// KindOf 返回错误链中第一个业务错误的类别；基础设施错误返回空串
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
