package dto

// ── 学生名册 DTO ──

// CreateStudentRequest 创建学生请求
type CreateStudentRequest struct {
	Name           string `json:"name"            binding:"required,min=2,max=100"`
	MatricNo       string `json:"matric_no"       binding:"required,max=30"`
	Email          string `json:"email"           binding:"omitempty,email"`
	DepartmentID   string `json:"department_id"   binding:"required,uuid"`
	OrganizationID string `json:"organization_id" binding:"omitempty,uuid"`
}

// BatchCreateStudentsRequest 批量创建学生请求
type BatchCreateStudentsRequest struct {
	Students []CreateStudentRequest `json:"students" binding:"required,min=1"`
}

// StudentListRequest 学生列表查询参数
type StudentListRequest struct {
	PaginationRequest
	DepartmentID string `form:"department_id" binding:"omitempty,uuid"`
}

// StudentResponse 学生信息响应
type StudentResponse struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	MatricNo       string `json:"matric_no"`
	Email          string `json:"email,omitempty"`
	DepartmentID   string `json:"department_id"`
	DepartmentName string `json:"department_name,omitempty"`
	OrganizationID string `json:"organization_id,omitempty"`
}

// StudentListResponse 学生分页列表
type StudentListResponse struct {
	Items    []StudentResponse `json:"items"`
	Total    int64             `json:"total"`
	Page     int               `json:"page"`
	PageSize int               `json:"page_size"`
}

// ── 导师名册 DTO ──

// CreateSupervisorRequest 创建导师请求
type CreateSupervisorRequest struct {
	Name           string `json:"name"            binding:"required,min=2,max=100"`
	Email          string `json:"email"           binding:"required,email"`
	Role           string `json:"role"            binding:"required,oneof=school industry"`
	DepartmentID   string `json:"department_id"   binding:"omitempty,uuid"`
	OrganizationID string `json:"organization_id" binding:"omitempty,uuid"`
	Capacity       int    `json:"capacity"        binding:"min=0,max=1000"`
}

// BatchCreateSupervisorsRequest 批量创建导师请求
type BatchCreateSupervisorsRequest struct {
	Supervisors []CreateSupervisorRequest `json:"supervisors" binding:"required,min=1"`
}

// UpdateCapacityRequest 调整导师容量请求
type UpdateCapacityRequest struct {
	Capacity int `json:"capacity" binding:"min=0,max=1000"`
}

// SupervisorListRequest 导师列表查询参数
type SupervisorListRequest struct {
	Role string `form:"role" binding:"omitempty,oneof=school industry"`
}

// SupervisorResponse 导师信息响应
type SupervisorResponse struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Email          string `json:"email"`
	Role           string `json:"role"`
	DepartmentID   string `json:"department_id,omitempty"`
	OrganizationID string `json:"organization_id,omitempty"`
	Capacity       int    `json:"capacity"`
	IsActive       bool   `json:"is_active"`
	DeactivatedAt  string `json:"deactivated_at,omitempty"`
}

// ── 批量创建 / 导入清单 ──

// RosterItem 批量创建清单中的单行
// Index 为请求数组下标（导入时为 Excel 行号），Key 为学号或邮箱
type RosterItem struct {
	Index int    `json:"index"`
	Key   string `json:"key"`
	ID    string `json:"id,omitempty"`
}

// ImportResult Excel 导入结果
type ImportResult struct {
	Rows int `json:"rows"` // 解析出的数据行数
	*Manifest[RosterItem]
}
