package service

import (
	pkgerrors "practicum/backend/pkg/errors"
)

// ── 业务错误（按类别构造，Handler 层按 pkgerrors.KindOf 映射状态码） ──

// 通用
var (
	ErrAdminOnly       = pkgerrors.New(pkgerrors.KindForbidden, "仅管理员可执行该操作")
	ErrNotSupervisor   = pkgerrors.New(pkgerrors.KindForbidden, "仅导师可执行该操作")
	ErrNoRelationship  = pkgerrors.New(pkgerrors.KindForbidden, "无权访问该学生的记录")
	ErrInvalidRole     = pkgerrors.New(pkgerrors.KindInvalidInput, "导师类别无效")
	ErrInvalidID       = pkgerrors.New(pkgerrors.KindInvalidInput, "ID 不能为空")
	ErrBatchInProgress = pkgerrors.New(pkgerrors.KindConflict, "该实习期同一角色的自动分配正在进行中")
	ErrConcurrentWrite = pkgerrors.New(pkgerrors.KindConflict, "记录已被其他操作修改，请刷新后重试")
)

// 实习期与参加记录
var (
	ErrSessionNotFound    = pkgerrors.New(pkgerrors.KindNotFound, "实习期不存在")
	ErrSessionClosed      = pkgerrors.New(pkgerrors.KindInvalidState, "实习期已关闭")
	ErrSessionOverlap     = pkgerrors.New(pkgerrors.KindConflict, "与已开放的实习期日期重叠")
	ErrInvalidDateRange   = pkgerrors.New(pkgerrors.KindInvalidInput, "结束日期不能早于开始日期")
	ErrInvalidDate        = pkgerrors.New(pkgerrors.KindInvalidInput, "日期格式应为 YYYY-MM-DD")
	ErrEnrollmentNotFound = pkgerrors.New(pkgerrors.KindNotFound, "学生未参加该实习期")
	ErrAlreadyEnrolled    = pkgerrors.New(pkgerrors.KindConflict, "学生已参加该实习期")
	ErrNotEnrolled        = pkgerrors.New(pkgerrors.KindInvalidState, "学生未参加该实习期或已退出")
)

// 名册
var (
	ErrStudentNotFound       = pkgerrors.New(pkgerrors.KindNotFound, "学生不存在")
	ErrSupervisorNotFound    = pkgerrors.New(pkgerrors.KindNotFound, "导师不存在")
	ErrDepartmentNotFound    = pkgerrors.New(pkgerrors.KindNotFound, "院系不存在")
	ErrOrganizationNotFound  = pkgerrors.New(pkgerrors.KindNotFound, "实习单位不存在")
	ErrMatricNoExists        = pkgerrors.New(pkgerrors.KindConflict, "学号已存在")
	ErrSupervisorEmailExists = pkgerrors.New(pkgerrors.KindConflict, "导师邮箱已存在")
	ErrSchoolNeedsDepartment = pkgerrors.New(pkgerrors.KindInvalidInput, "校内导师必须指定院系")
	ErrCapacityBelowLoad     = pkgerrors.New(pkgerrors.KindInvalidInput, "容量不能低于导师当前负载")
	ErrSupervisorInactive    = pkgerrors.New(pkgerrors.KindInvalidState, "导师已停用")
	ErrImportNoData          = pkgerrors.New(pkgerrors.KindInvalidInput, "文件中没有数据行")
	ErrImportBadHeader       = pkgerrors.New(pkgerrors.KindInvalidInput, "表头缺少必需列")
	ErrImportTooManyRows     = pkgerrors.New(pkgerrors.KindInvalidInput, "导入行数超过上限")
	ErrImportUnreadable      = pkgerrors.New(pkgerrors.KindInvalidInput, "无法解析 Excel 文件")
	ErrInvalidCapacity       = pkgerrors.New(pkgerrors.KindInvalidInput, "容量不能为负数")
)

// 分配
var (
	ErrAssignmentNotFound   = pkgerrors.New(pkgerrors.KindNotFound, "分配不存在或已删除")
	ErrDuplicateAssignment  = pkgerrors.New(pkgerrors.KindDuplicateAssignment, "学生在该实习期已有该角色的导师")
	ErrCapacityExceeded     = pkgerrors.New(pkgerrors.KindCapacityExceeded, "导师容量已满")
	ErrIneligibleSupervisor = pkgerrors.New(pkgerrors.KindIneligibleSupervisor, "导师不符合该学生的分配条件")
	ErrNoEligibleSupervisor = pkgerrors.New(pkgerrors.KindNoEligibleSupervisor, "没有符合条件的导师")
)

// 周记
var (
	ErrWeekNotFound         = pkgerrors.New(pkgerrors.KindNotFound, "周记不存在")
	ErrInvalidTransition    = pkgerrors.New(pkgerrors.KindInvalidState, "当前状态不允许该操作")
	ErrConcurrentTransition = pkgerrors.New(pkgerrors.KindInvalidState, "周记状态已被其他操作修改")
	ErrWeekLocked           = pkgerrors.New(pkgerrors.KindInvalidState, "周记已锁定，无法编辑")
	ErrNotWeekOwner         = pkgerrors.New(pkgerrors.KindForbidden, "只有周记所属学生可以执行该操作")
	ErrNotAssigned          = pkgerrors.New(pkgerrors.KindForbidden, "导师未被分配给该学生")
	ErrUnlockForbidden      = pkgerrors.New(pkgerrors.KindForbidden, "只有校内导师可以解锁周记")
	ErrInvalidDay           = pkgerrors.New(pkgerrors.KindInvalidInput, "日期序号必须在 1-7 之间")
	ErrEmptyText            = pkgerrors.New(pkgerrors.KindInvalidInput, "内容不能为空")
)

// 终评
var (
	ErrDuplicateEvaluation = pkgerrors.New(pkgerrors.KindDuplicateEvaluation, "该角色已提交过终评")
	ErrRatingOutOfRange    = pkgerrors.New(pkgerrors.KindInvalidInput, "评分超出允许范围")
)
