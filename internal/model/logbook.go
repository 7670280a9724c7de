package model

import (
	"time"

	"gorm.io/gorm"
)

// WeekStatus 周记状态
//
// 合法迁移：draft → submitted → locked，locked → submitted（解锁）。
type WeekStatus string

const (
	WeekDraft     WeekStatus = "draft"
	WeekSubmitted WeekStatus = "submitted"
	WeekLocked    WeekStatus = "locked"
)

// LogbookWeek 周记表，对应 logbook_weeks
type LogbookWeek struct {
	WeekID            string     `gorm:"type:uuid;primaryKey"                              json:"week_id"`
	StudentID         string     `gorm:"type:uuid;not null;uniqueIndex:uq_logbook_week"     json:"student_id"`
	SessionID         string     `gorm:"type:uuid;not null;uniqueIndex:uq_logbook_week"     json:"session_id"`
	WeekNumber        int        `gorm:"type:smallint;not null;uniqueIndex:uq_logbook_week" json:"week_number"`
	Status            WeekStatus `gorm:"type:varchar(20);not null;default:'draft'"          json:"status"`
	LockedBy          *string    `gorm:"type:uuid"                                          json:"locked_by,omitempty"`
	LockedAt          *time.Time `json:"locked_at,omitempty"`
	LockReason        string     `gorm:"type:varchar(500)"                                  json:"lock_reason,omitempty"`
	ReviewRequestedAt *time.Time `json:"review_requested_at,omitempty"`
	Version           int        `gorm:"not null;default:1"                                 json:"version"`
	BaseModel

	// 关联
	Entries  []LogbookEntry  `gorm:"foreignKey:WeekID;references:WeekID" json:"entries,omitempty"`
	Comments []WeeklyComment `gorm:"foreignKey:WeekID;references:WeekID" json:"comments,omitempty"`
}

// TableName 指定表名
func (LogbookWeek) TableName() string { return "logbook_weeks" }

// BeforeCreate 生成主键
func (w *LogbookWeek) BeforeCreate(_ *gorm.DB) error {
	ensureID(&w.WeekID)
	ensureVersion(&w.Version)
	return nil
}

// LogbookEntry 周记每日内容，对应 logbook_entries
type LogbookEntry struct {
	EntryID string `gorm:"type:uuid;primaryKey"                          json:"entry_id"`
	WeekID  string `gorm:"type:uuid;not null;uniqueIndex:uq_logbook_entry" json:"week_id"`
	Day     int    `gorm:"type:smallint;not null;uniqueIndex:uq_logbook_entry" json:"day"` // 1=周一 … 7=周日
	Content string `gorm:"type:text;not null"                            json:"content"`
	BaseModel
}

// TableName 指定表名
func (LogbookEntry) TableName() string { return "logbook_entries" }

// BeforeCreate 生成主键
func (e *LogbookEntry) BeforeCreate(_ *gorm.DB) error {
	ensureID(&e.EntryID)
	return nil
}

// WeeklyComment 导师周评语，对应 weekly_comments（只追加，不可修改）
type WeeklyComment struct {
	CommentID  string         `gorm:"type:uuid;primaryKey"               json:"comment_id"`
	WeekID     string         `gorm:"type:uuid;not null;index"           json:"week_id"`
	AuthorRole SupervisorRole `gorm:"type:varchar(20);not null"          json:"author_role"`
	AuthorID   string         `gorm:"type:uuid;not null"                 json:"author_id"`
	Text       string         `gorm:"type:text;not null"                 json:"text"`
	CreatedAt  time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName 指定表名
func (WeeklyComment) TableName() string { return "weekly_comments" }

// BeforeCreate 生成主键
func (c *WeeklyComment) BeforeCreate(_ *gorm.DB) error {
	ensureID(&c.CommentID)
	return nil
}

// 终评分数范围（闭区间）
const (
	MinRating = 0
	MaxRating = 100
)

// FinalEvaluation 实习期终评，对应 final_evaluations
//
// (student_id, session_id, author_role) 唯一：每个导师角色对每个学生只能终评一次，创建后不可修改。
type FinalEvaluation struct {
	EvaluationID string         `gorm:"type:uuid;primaryKey"                                   json:"evaluation_id"`
	StudentID    string         `gorm:"type:uuid;not null;uniqueIndex:uq_final_evaluation"     json:"student_id"`
	SessionID    string         `gorm:"type:uuid;not null;uniqueIndex:uq_final_evaluation"     json:"session_id"`
	AuthorRole   SupervisorRole `gorm:"type:varchar(20);not null;uniqueIndex:uq_final_evaluation" json:"author_role"`
	AuthorID     string         `gorm:"type:uuid;not null"                                     json:"author_id"`
	Comment      string         `gorm:"type:text;not null"                                     json:"comment"`
	Rating       int            `gorm:"not null"                                               json:"rating"`
	CreatedAt    time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP"                     json:"created_at"`
}

// TableName 指定表名
func (FinalEvaluation) TableName() string { return "final_evaluations" }

// BeforeCreate 生成主键
func (e *FinalEvaluation) BeforeCreate(_ *gorm.DB) error {
	ensureID(&e.EvaluationID)
	return nil
}
