package dto

// ── 分配模块 DTO ──

// ManualAssignRequest 手动分配请求
type ManualAssignRequest struct {
	StudentID    string `json:"student_id"    binding:"required,uuid"`
	SupervisorID string `json:"supervisor_id" binding:"required,uuid"`
	Role         string `json:"role"          binding:"required,oneof=school industry"`
}

// AutoAssignRequest 自动分配请求
type AutoAssignRequest struct {
	Role string `json:"role" binding:"required,oneof=school industry"`
}

// AssignmentListRequest 分配列表查询参数
type AssignmentListRequest struct {
	Role string `form:"role" binding:"omitempty,oneof=school industry"`
}

// AssignmentResponse 分配响应
type AssignmentResponse struct {
	ID             string `json:"id"`
	StudentID      string `json:"student_id"`
	StudentName    string `json:"student_name,omitempty"`
	SessionID      string `json:"session_id"`
	SupervisorID   string `json:"supervisor_id"`
	SupervisorName string `json:"supervisor_name,omitempty"`
	Role           string `json:"role"`
	CreatedAt      string `json:"created_at"`
}

// AutoAssignItem 自动分配清单中的单个学生
type AutoAssignItem struct {
	StudentID    string `json:"studentId"`
	SupervisorID string `json:"supervisorId,omitempty"`
	AssignmentID string `json:"assignmentId,omitempty"`
}

// AutoAssignResult 自动分配结果
type AutoAssignResult struct {
	RunID     string `json:"run_id"`
	SessionID string `json:"session_id"`
	Role      string `json:"role"`
	Canceled  bool   `json:"canceled"` // 被调用方取消；已提交的分配不回滚
	*Manifest[AutoAssignItem]
}

// WorkloadItem 单个导师的负载统计
type WorkloadItem struct {
	SupervisorID   string `json:"supervisor_id"`
	SupervisorName string `json:"supervisor_name"`
	Role           string `json:"role"`
	IsActive       bool   `json:"is_active"`
	Capacity       int    `json:"capacity"`
	CurrentLoad    int    `json:"current_load"`   // 负载目录中的记录值
	AssignedCount  int    `json:"assigned_count"` // 有效分配的实际行数
	Remaining      int    `json:"remaining"`
}

// WorkloadReport 实习期负载报表
type WorkloadReport struct {
	SessionID  string         `json:"session_id"`
	Role       string         `json:"role,omitempty"`
	Items      []WorkloadItem `json:"items"`
	Consistent bool           `json:"consistent"` // 所有导师 CurrentLoad == AssignedCount
}

// RebuildLoadsResponse 负载重建结果
type RebuildLoadsResponse struct {
	SessionID   string `json:"session_id"`
	Supervisors int    `json:"supervisors"` // 有分配的导师数
	Corrected   int    `json:"corrected"`   // 记录值与实际不符、被修正的导师数
}

// AllocationRunResponse 自动分配批次记录
type AllocationRunResponse struct {
	ID           string `json:"id"`
	SessionID    string `json:"session_id"`
	Role         string `json:"role"`
	TriggeredBy  string `json:"triggered_by"`
	SuccessCount int    `json:"success_count"`
	FailureCount int    `json:"failure_count"`
	Canceled     bool   `json:"canceled"`
	StartedAt    string `json:"started_at"`
	FinishedAt   string `json:"finished_at"`
}
