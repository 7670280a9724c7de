package dto

// ── 实习期模块 DTO ──

// CreateSessionRequest 创建实习期请求（日期格式 2006-01-02）
type CreateSessionRequest struct {
	Name      string `json:"name"       binding:"required,min=2,max=100"`
	StartDate string `json:"start_date" binding:"required"`
	EndDate   string `json:"end_date"   binding:"required"`
}

// SessionResponse 实习期响应
type SessionResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Status    string `json:"status"`
	WeekCount int    `json:"week_count"`
	ClosedAt  string `json:"closed_at,omitempty"`
	CreatedAt string `json:"created_at"`
}

// ── 参加实习 DTO ──

// EnrollRequest 学生参加实习请求
type EnrollRequest struct {
	StudentID string `json:"student_id" binding:"required,uuid"`
}

// BatchEnrollRequest 批量参加实习请求
type BatchEnrollRequest struct {
	StudentIDs []string `json:"student_ids" binding:"required,min=1,dive,required"`
}

// EnrollmentResponse 参加实习记录响应
type EnrollmentResponse struct {
	ID          string `json:"id"`
	StudentID   string `json:"student_id"`
	SessionID   string `json:"session_id"`
	Status      string `json:"status"`
	WeekCount   int    `json:"week_count"`
	WithdrawnAt string `json:"withdrawn_at,omitempty"`
	CreatedAt   string `json:"created_at"`
}

// WithdrawResponse 退出实习响应
type WithdrawResponse struct {
	Enrollment         EnrollmentResponse `json:"enrollment"`
	RemovedAssignments int                `json:"removed_assignments"`
}

// EnrollItem 批量参加清单中的单个学生
type EnrollItem struct {
	StudentID    string `json:"studentId"`
	EnrollmentID string `json:"enrollmentId,omitempty"`
}
