package dto

// ── 批量操作结果清单 ──

// ManifestFailure 单条失败记录
type ManifestFailure[T any] struct {
	Item    T      `json:"item"`
	Reason  string `json:"reason"`            // 错误类别，如 NoEligibleSupervisor / CapacityExceeded
	Message string `json:"message,omitempty"` // 面向用户的说明
}

// Manifest 批量操作结果清单
//
// 单条失败不会中断整批；SuccessCount/FailureCount 始终等于两个列表的长度。
// 键名为前端"成功 N 条，失败 M 条"提示所依赖的固定格式。
type Manifest[T any] struct {
	Succeeded    []T                  `json:"succeeded"`
	Failed       []ManifestFailure[T] `json:"failed"`
	SuccessCount int                  `json:"successCount"`
	FailureCount int                  `json:"failureCount"`
}

// NewManifest 创建空清单（列表非 nil，序列化为 []）
func NewManifest[T any]() *Manifest[T] {
	return &Manifest[T]{
		Succeeded: make([]T, 0),
		Failed:    make([]ManifestFailure[T], 0),
	}
}

// Succeed 记录一条成功
func (m *Manifest[T]) Succeed(item T) {
	m.Succeeded = append(m.Succeeded, item)
	m.SuccessCount = len(m.Succeeded)
}

// Fail 记录一条失败
func (m *Manifest[T]) Fail(item T, reason, message string) {
	m.Failed = append(m.Failed, ManifestFailure[T]{Item: item, Reason: reason, Message: message})
	m.FailureCount = len(m.Failed)
}
