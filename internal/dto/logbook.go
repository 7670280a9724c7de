package dto

// ── 周记模块 DTO ──

// SaveEntryRequest 保存每日内容请求
type SaveEntryRequest struct {
	Day     int    `json:"day"     binding:"required,min=1,max=7"`
	Content string `json:"content" binding:"required,max=5000"`
}

// WeeklyCommentRequest 导师评语请求
type WeeklyCommentRequest struct {
	Text string `json:"text" binding:"required,max=2000"`
}

// LockWeekRequest 导师锁定周记请求
type LockWeekRequest struct {
	Reason string `json:"reason" binding:"omitempty,max=500"`
}

// WeekListRequest 周记列表查询参数
type WeekListRequest struct {
	StudentID string `form:"student_id" binding:"required,uuid"`
}

// EntryResponse 每日内容响应
type EntryResponse struct {
	ID        string `json:"id"`
	Day       int    `json:"day"`
	Content   string `json:"content"`
	UpdatedAt string `json:"updated_at"`
}

// CommentResponse 评语响应
type CommentResponse struct {
	ID         string `json:"id"`
	AuthorRole string `json:"author_role"`
	AuthorID   string `json:"author_id"`
	Text       string `json:"text"`
	CreatedAt  string `json:"created_at"`
}

// WeekResponse 周记响应
type WeekResponse struct {
	ID                string            `json:"id"`
	StudentID         string            `json:"student_id"`
	SessionID         string            `json:"session_id"`
	WeekNumber        int               `json:"week_number"`
	Status            string            `json:"status"`
	LockedBy          string            `json:"locked_by,omitempty"`
	LockedAt          string            `json:"locked_at,omitempty"`
	LockReason        string            `json:"lock_reason,omitempty"`
	ReviewRequestedAt string            `json:"review_requested_at,omitempty"`
	Entries           []EntryResponse   `json:"entries,omitempty"`
	Comments          []CommentResponse `json:"comments,omitempty"`
}
