package dto

// ── 终评模块 DTO ──

// CreateFinalEvaluationRequest 提交终评请求
//
// Rating 用指针区分"未填写"与 0 分；范围校验在 Service 层完成。
type CreateFinalEvaluationRequest struct {
	StudentID string `json:"student_id" binding:"required,uuid"`
	Comment   string `json:"comment"    binding:"required,max=5000"`
	Rating    *int   `json:"rating"     binding:"required"`
}

// FinalEvaluationResponse 终评响应
type FinalEvaluationResponse struct {
	ID         string `json:"id"`
	StudentID  string `json:"student_id"`
	SessionID  string `json:"session_id"`
	AuthorRole string `json:"author_role"`
	AuthorID   string `json:"author_id"`
	Comment    string `json:"comment"`
	Rating     int    `json:"rating"`
	CreatedAt  string `json:"created_at"`
}
